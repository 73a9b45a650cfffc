package live

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventInvalidate is the pub/sub event carrying changed collection names.
const EventInvalidate = "invalidate"

// Publisher publishes organization events to other instances.
type Publisher interface {
	PublishOrgEvent(orgID uuid.UUID, event string, payload []byte) error
}

// Subscriber subscribes to an organization's events.
type Subscriber interface {
	SubscribeOrg(orgID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub tracks open sessions per organization and fans invalidations out to them.
// With Redis configured, a notification is published once and delivered on every instance
// by the subscription callback, this one included.
type Hub struct {
	orgs   map[uuid.UUID]map[string]*Session
	subs   map[uuid.UUID]func()
	mu     sync.RWMutex
	logger *zap.Logger
	pub    Publisher
	sub    Subscriber
}

// NewHub creates a hub. pub and sub may be nil for a single instance.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		orgs:   make(map[uuid.UUID]map[string]*Session),
		subs:   make(map[uuid.UUID]func()),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

// Register adds a session. The first session of an organization opens its subscription.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.orgs[s.OrgID] == nil {
		h.orgs[s.OrgID] = make(map[string]*Session)
		if h.sub != nil {
			orgID := s.OrgID
			cancel, err := h.sub.SubscribeOrg(orgID, func(event string, payload []byte) {
				if event != EventInvalidate {
					return
				}
				var cols []string
				if err := json.Unmarshal(payload, &cols); err != nil {
					return
				}
				h.deliver(orgID, cols)
			})
			if err != nil {
				h.logger.Warn("org subscription failed", zap.String("org_id", orgID.String()), zap.Error(err))
			} else {
				h.subs[orgID] = cancel
			}
		}
	}
	h.orgs[s.OrgID][s.ID] = s
	h.logger.Debug("live session opened", zap.String("session_id", s.ID), zap.String("org_id", s.OrgID.String()))
}

// Unregister removes a session. The last session of an organization closes its subscription.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.orgs[s.OrgID]; ok {
		delete(m, s.ID)
		if len(m) == 0 {
			delete(h.orgs, s.OrgID)
			if cancel, ok := h.subs[s.OrgID]; ok {
				cancel()
				delete(h.subs, s.OrgID)
			}
		}
	}
	h.logger.Debug("live session closed", zap.String("session_id", s.ID), zap.String("org_id", s.OrgID.String()))
}

// Sessions returns the number of open sessions for an organization.
func (h *Hub) Sessions(orgID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.orgs[orgID])
}

// NotifyInvalidated implements listing.Notifier.
func (h *Hub) NotifyInvalidated(orgID uuid.UUID, collections ...string) {
	h.mu.RLock()
	_, subscribed := h.subs[orgID]
	h.mu.RUnlock()

	published := false
	if h.pub != nil {
		data, _ := json.Marshal(collections)
		if err := h.pub.PublishOrgEvent(orgID, EventInvalidate, data); err != nil {
			h.logger.Warn("publish invalidation failed", zap.String("org_id", orgID.String()), zap.Error(err))
		} else {
			published = true
		}
	}
	if !published || !subscribed {
		h.deliver(orgID, collections)
	}
}

func (h *Hub) deliver(orgID uuid.UUID, collections []string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.orgs[orgID] {
		s.Notify(collections)
	}
}
