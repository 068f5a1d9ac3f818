package endpoints_test

import (
	"bytes"
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/almanac/internal/db"
	"github.com/Nixie-Tech-LLC/almanac/internal/http/api"
	"github.com/Nixie-Tech-LLC/almanac/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/almanac/internal/model"
)

const testSecret = "test-secret"

var (
	editor    = &model.User{ID: 1, Email: "editor@example.com", IsActive: true}
	publisher = &model.User{ID: 2, Email: "publisher@example.com", IsActive: true, CanPublish: true}
)

type users map[int]*model.User

func (u users) GetUserByID(_ context.Context, id int) (*model.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, model.ErrNotFound
}

func newRouter(t *testing.T, modules ...api.Module) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api/admin",
		Auth:      true,
		SecretKey: testSecret,
		Users:     users{editor.ID: editor, publisher.ID: publisher},
	}, modules...)
	return r
}

// do sends body as JSON on behalf of user and returns the recorder.
func do(t *testing.T, r http.Handler, user *model.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, err := middleware.GenerateJWT(user.ID, testSecret)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// memEvents is an in-memory EventStore and events.EventSource. A transaction
// holds the mutex and restores the map when its callback fails.
type memEvents struct {
	mu     sync.Mutex
	events map[int]model.Event
	nextID int

	// failRepeats, when set, is returned by every ReplaceRepeats call.
	failRepeats error
}

func newMemEvents() *memEvents {
	return &memEvents{events: map[int]model.Event{}, nextID: 1}
}

func (m *memEvents) CreateEvent(ctx context.Context, e *model.Event) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memEventTx{m}.CreateEvent(ctx, e)
}

func (m *memEvents) InEventTx(_ context.Context, fn func(tx db.EventTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved, savedID := maps.Clone(m.events), m.nextID
	if err := fn(memEventTx{m}); err != nil {
		m.events, m.nextID = saved, savedID
		return err
	}
	return nil
}

// memEventTx writes to its store without locking; InEventTx holds the lock.
type memEventTx struct {
	m *memEvents
}

func (t memEventTx) CreateEvent(_ context.Context, e *model.Event) (*model.Event, error) {
	out := *e
	out.ID = t.m.nextID
	t.m.nextID++
	out.CreatedAt = time.Now().UTC()
	out.UpdatedAt = out.CreatedAt
	t.m.events[out.ID] = out
	return &out, nil
}

func (t memEventTx) UpdateEvent(_ context.Context, e *model.Event) (*model.Event, error) {
	if _, ok := t.m.events[e.ID]; !ok {
		return nil, model.ErrNotFound
	}
	out := *e
	out.UpdatedAt = time.Now().UTC()
	t.m.events[out.ID] = out
	return &out, nil
}

func (t memEventTx) ReplaceRepeats(_ context.Context, parentID int, repeats []model.Event) error {
	if t.m.failRepeats != nil {
		return t.m.failRepeats
	}
	for k, e := range t.m.events {
		if e.IsRepeat && e.ParentID != nil && *e.ParentID == parentID {
			delete(t.m.events, k)
		}
	}
	for _, r := range repeats {
		r.ID = t.m.nextID
		t.m.nextID++
		pid := parentID
		r.ParentID = &pid
		t.m.events[r.ID] = r
	}
	return nil
}

func (t memEventTx) PropagateToRepeats(_ context.Context, parent *model.Event) (int64, error) {
	var n int64
	for k, e := range t.m.events {
		if e.IsRepeat && e.ParentID != nil && *e.ParentID == parent.ID {
			e.Title = parent.Title
			e.TypeID = parent.TypeID
			e.ShowInCalendar = parent.ShowInCalendar
			t.m.events[k] = e
			n++
		}
	}
	return n, nil
}

func (m *memEvents) GetEvent(_ context.Context, id int) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &e, nil
}

func (m *memEvents) DeleteEvent(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return model.ErrNotFound
	}
	delete(m.events, id)
	for k, e := range m.events {
		if e.ParentID != nil && *e.ParentID == id {
			delete(m.events, k)
		}
	}
	return nil
}

func (m *memEvents) ListEvents(_ context.Context) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memEvents) ListEventsInRange(ctx context.Context, _, _ time.Time) ([]model.Event, error) {
	return m.ListEvents(ctx)
}

func (m *memEvents) count(pred func(model.Event) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if pred(e) {
			n++
		}
	}
	return n
}

func repeatsOf(id int) func(model.Event) bool {
	return func(e model.Event) bool {
		return e.IsRepeat && e.ParentID != nil && *e.ParentID == id
	}
}
