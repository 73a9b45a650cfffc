package live

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchant-ops/backend/internal/querystate"
)

var testSchema = querystate.NewSchema(
	querystate.Field{Name: "platform", Default: "all", Allowed: []string{"all", "shopify", "amazon"}},
	querystate.Field{Name: "search", Debounced: true},
)

type loadCall struct {
	st    querystate.State
	fresh bool
}

type fakeView struct {
	mu    sync.Mutex
	calls []loadCall
	load  func(ctx context.Context, n int, st querystate.State) (any, error)
}

func (v *fakeView) Name() string { return "events" }
func (v *fakeView) Collection() string { return "events" }
func (v *fakeView) Schema() querystate.Schema { return testSchema }

func (v *fakeView) Load(ctx context.Context, _ uuid.UUID, st querystate.State, fresh bool) (any, error) {
	v.mu.Lock()
	v.calls = append(v.calls, loadCall{st: st, fresh: fresh})
	n := len(v.calls)
	fn := v.load
	v.mu.Unlock()
	if fn != nil {
		return fn(ctx, n, st)
	}
	return st.Get("platform") + "|" + st.Get("search"), nil
}

func (v *fakeView) snapshot() []loadCall {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]loadCall(nil), v.calls...)
}

type listBody struct {
	View string `json:"view"`
	Page string `json:"page"`
}

func next(t *testing.T, out <-chan Message) Message {
	t.Helper()
	select {
	case msg := <-out:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func nextList(t *testing.T, out <-chan Message) listBody {
	t.Helper()
	msg := next(t, out)
	require.Equal(t, TypeList, msg.Type, string(msg.Data))
	var body listBody
	require.NoError(t, json.Unmarshal(msg.Data, &body))
	return body
}

func setFilter(name, value string) Message {
	data, _ := json.Marshal(SetFilter{Name: name, Value: value})
	return Message{Type: TypeSetFilter, Data: data}
}

func start(t *testing.T, view View, cfg Config) (chan<- Message, <-chan Message, *Session) {
	t.Helper()
	out := make(chan Message, 16)
	in := make(chan Message)
	s := NewSession(uuid.New(), uuid.New(), view, testSchema.Clear(), cfg, out, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx, in)
	return in, out, s
}

func TestSession_InitialLoadAndFilter(t *testing.T) {
	view := &fakeView{}
	in, out, _ := start(t, view, Config{Refetch: time.Hour})

	assert.Equal(t, listBody{View: "events", Page: "all|"}, nextList(t, out))

	in <- setFilter("platform", "amazon")
	assert.Equal(t, "amazon|", nextList(t, out).Page)

	in <- setFilter("platform", "bogus")
	assert.Equal(t, "all|", nextList(t, out).Page, "invalid values fall back to the default")

	in <- setFilter("platform", "shopify")
	assert.Equal(t, "shopify|", nextList(t, out).Page)
	in <- Message{Type: TypeClearFilters}
	assert.Equal(t, "all|", nextList(t, out).Page)
}

func TestSession_UnknownFilter(t *testing.T) {
	in, out, _ := start(t, &fakeView{}, Config{Refetch: time.Hour})
	nextList(t, out)

	in <- setFilter("colour", "red")

	msg := next(t, out)
	assert.Equal(t, TypeError, msg.Type)
	assert.Contains(t, string(msg.Data), "unknown filter colour")
}

func TestSession_SearchIsDebounced(t *testing.T) {
	view := &fakeView{}
	in, out, _ := start(t, view, Config{Refetch: time.Hour, Debounce: 50 * time.Millisecond})
	nextList(t, out)

	in <- setFilter("search", "a")
	in <- setFilter("search", "am")
	in <- setFilter("search", "ama")

	assert.Equal(t, "all|ama", nextList(t, out).Page)
	calls := view.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "ama", calls[1].st.Get("search"))
}

func TestSession_InvalidationRefetches(t *testing.T) {
	view := &fakeView{}
	_, out, s := start(t, view, Config{Refetch: time.Hour})
	nextList(t, out)

	s.Notify([]string{"stores"})
	s.Notify([]string{"events"})

	nextList(t, out)
	calls := view.snapshot()
	require.Len(t, calls, 2)
	assert.False(t, calls[0].fresh)
	assert.True(t, calls[1].fresh, "invalidation bypasses the cache")
}

func TestSession_Polls(t *testing.T) {
	view := &fakeView{}
	_, out, _ := start(t, view, Config{Refetch: 20 * time.Millisecond})

	nextList(t, out)
	nextList(t, out)
	nextList(t, out)

	calls := view.snapshot()
	assert.GreaterOrEqual(t, len(calls), 3)
	assert.True(t, calls[1].fresh)
}

func TestSession_SupersededLoadIsCancelled(t *testing.T) {
	cancelled := make(chan struct{})
	var once sync.Once
	view := &fakeView{}
	view.load = func(ctx context.Context, n int, st querystate.State) (any, error) {
		switch n {
		case 2:
			<-ctx.Done()
			once.Do(func() { close(cancelled) })
			return "stale", ctx.Err()
		default:
			return "fresh", nil
		}
	}
	in, out, _ := start(t, view, Config{Refetch: time.Hour})
	nextList(t, out)

	in <- Message{Type: TypeRefresh}
	in <- Message{Type: TypeRefresh}

	assert.Equal(t, "fresh", nextList(t, out).Page)
	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("superseded load was not cancelled")
	}
	select {
	case msg := <-out:
		t.Fatalf("unexpected message %s %s", msg.Type, msg.Data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSession_LoadErrorKeepsRunning(t *testing.T) {
	var calls atomic.Int32
	view := &fakeView{}
	view.load = func(ctx context.Context, n int, st querystate.State) (any, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("db down")
		}
		return "ok", nil
	}
	in, out, _ := start(t, view, Config{Refetch: time.Hour})

	msg := next(t, out)
	assert.Equal(t, TypeError, msg.Type)
	assert.Contains(t, string(msg.Data), "failed to load events")

	in <- Message{Type: TypeRefresh}
	assert.Equal(t, "ok", nextList(t, out).Page)
}
