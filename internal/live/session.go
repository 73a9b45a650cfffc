package live

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchant-ops/backend/internal/querystate"
)

// Config tunes sessions.
type Config struct {
	// Refetch is the polling period while a session is open.
	Refetch time.Duration
	// Debounce is the quiet period before a search keystroke is applied.
	Debounce time.Duration
}

func (c Config) withDefaults() Config {
	if c.Refetch <= 0 {
		c.Refetch = 30 * time.Second
	}
	if c.Debounce <= 0 {
		c.Debounce = 500 * time.Millisecond
	}
	return c
}

type loadResult struct {
	seq  uint64
	page any
	err  error
}

// Session watches one view for one user in one organization. Run owns the filter state; every
// other goroutine talks to it through channels. Each load supersedes the one before it: the
// previous fetch is cancelled and its result, if any, is dropped.
type Session struct {
	ID     string
	OrgID  uuid.UUID
	UserID uuid.UUID

	view      View
	state     querystate.State
	cfg       Config
	debouncer *querystate.Debouncer
	out       chan<- Message
	logger    *zap.Logger

	invalidated chan struct{}
	pendingMu   sync.Mutex
	pending     []string
	commits     chan func()
	results     chan loadResult
	done        chan struct{}

	cancelLoad context.CancelFunc
	seq        uint64
}

// NewSession creates a session that writes its messages to out.
func NewSession(orgID, userID uuid.UUID, view View, st querystate.State, cfg Config, out chan<- Message, logger *zap.Logger) *Session {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		ID:          uuid.New().String(),
		OrgID:       orgID,
		UserID:      userID,
		view:        view,
		state:       st,
		cfg:         cfg,
		debouncer:   querystate.NewDebouncer(cfg.Debounce),
		out:         out,
		logger:      logger.With(zap.String("view", view.Name()), zap.String("org_id", orgID.String())),
		invalidated: make(chan struct{}, 1),
		commits:     make(chan func()),
		results:     make(chan loadResult),
		done:        make(chan struct{}),
	}
}

// Notify tells the session that collections changed. It never blocks; notifications that
// arrive while one is already pending are merged into it.
func (s *Session) Notify(collections []string) {
	s.pendingMu.Lock()
	s.pending = append(s.pending, collections...)
	s.pendingMu.Unlock()
	select {
	case s.invalidated <- struct{}{}:
	default:
	}
}

func (s *Session) takePending() []string {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	cols := s.pending
	s.pending = nil
	return cols
}

// Run loads the view, then serves client messages, polling and invalidations until ctx ends
// or in is closed.
func (s *Session) Run(ctx context.Context, in <-chan Message) {
	ticker := time.NewTicker(s.cfg.Refetch)
	defer func() {
		ticker.Stop()
		s.debouncer.Cancel()
		if s.cancelLoad != nil {
			s.cancelLoad()
		}
		close(s.done)
	}()

	s.load(ctx, false)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			s.handle(ctx, msg)
		case <-ticker.C:
			s.load(ctx, true)
		case <-s.invalidated:
			if s.watches(s.takePending()) {
				s.load(ctx, true)
			}
		case commit := <-s.commits:
			commit()
		case res := <-s.results:
			s.deliver(ctx, res)
		}
	}
}

func (s *Session) watches(collections []string) bool {
	for _, c := range collections {
		if c == s.view.Collection() {
			return true
		}
	}
	return false
}

func (s *Session) handle(ctx context.Context, msg Message) {
	switch msg.Type {
	case TypeSetFilter:
		var p SetFilter
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			s.emit(ctx, TypeError, ErrorPayload{View: s.view.Name(), Message: "invalid set_filter payload"})
			return
		}
		field, ok := s.view.Schema().Field(p.Name)
		if !ok {
			s.emit(ctx, TypeError, ErrorPayload{View: s.view.Name(), Message: "unknown filter " + p.Name})
			return
		}
		apply := func() {
			s.state = s.view.Schema().Set(s.state, p.Name, p.Value)
			s.load(ctx, false)
		}
		if !field.Debounced {
			apply()
			return
		}
		s.debouncer.Push(func() {
			select {
			case s.commits <- apply:
			case <-s.done:
			}
		})
	case TypeClearFilters:
		s.debouncer.Cancel()
		s.state = s.view.Schema().Clear()
		s.load(ctx, false)
	case TypeRefresh:
		s.load(ctx, true)
	default:
		s.logger.Debug("ignoring message", zap.String("type", msg.Type))
	}
}

func (s *Session) load(ctx context.Context, fresh bool) {
	if s.cancelLoad != nil {
		s.cancelLoad()
	}
	s.seq++
	seq := s.seq
	lctx, cancel := context.WithCancel(ctx)
	s.cancelLoad = cancel
	st := s.state

	go func() {
		page, err := s.view.Load(lctx, s.OrgID, st, fresh)
		select {
		case s.results <- loadResult{seq: seq, page: page, err: err}:
		case <-s.done:
		}
	}()
}

func (s *Session) deliver(ctx context.Context, res loadResult) {
	if res.seq != s.seq {
		return
	}
	if res.err != nil {
		if errors.Is(res.err, context.Canceled) {
			return
		}
		s.logger.Warn("live load failed", zap.Error(res.err))
		s.emit(ctx, TypeError, ErrorPayload{View: s.view.Name(), Message: "failed to load " + s.view.Name()})
		return
	}
	s.emit(ctx, TypeList, ListPayload{View: s.view.Name(), Page: res.page})
}

func (s *Session) emit(ctx context.Context, typ string, payload any) {
	select {
	case s.out <- newMessage(typ, payload):
	case <-ctx.Done():
	}
}
