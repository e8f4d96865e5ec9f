package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nowaiting/clinic-console/internal/domain/entities"
)

// stubQueueState serves fixed entries as a session's initial load.
type stubQueueState struct {
	entries []*entities.QueueEntry
}

func (s *stubQueueState) ListByScope(ctx context.Context, scope entities.Scope) ([]*entities.QueueEntry, error) {
	return s.entries, nil
}

// stubFeed hands out pre-made channels to synchronizer sessions.
type stubFeed struct {
	queueCh   chan *entities.QueueSnapshot
	pointerCh chan *entities.OrderPointerSnapshot
	messageCh chan *entities.DoctorMessage
}

func newStubFeed() *stubFeed {
	return &stubFeed{
		queueCh:   make(chan *entities.QueueSnapshot, 4),
		pointerCh: make(chan *entities.OrderPointerSnapshot, 4),
		messageCh: make(chan *entities.DoctorMessage, 4),
	}
}

func (f *stubFeed) SubscribeQueue(ctx context.Context, scope entities.Scope) (<-chan *entities.QueueSnapshot, error) {
	return f.queueCh, nil
}

func (f *stubFeed) SubscribeOrderPointer(ctx context.Context, scope entities.Scope) (<-chan *entities.OrderPointerSnapshot, error) {
	return f.pointerCh, nil
}

func (f *stubFeed) SubscribeMessages(ctx context.Context, assistantID string) (<-chan *entities.DoctorMessage, error) {
	return f.messageCh, nil
}

func (f *stubFeed) PublishQueue(ctx context.Context, snapshot *entities.QueueSnapshot) error { return nil }
func (f *stubFeed) PublishOrderPointer(ctx context.Context, scope entities.Scope, snapshot *entities.OrderPointerSnapshot) error {
	return nil
}
func (f *stubFeed) PublishMessage(ctx context.Context, msg *entities.DoctorMessage) error { return nil }
func (f *stubFeed) Close() error                                                          { return nil }

func streamRequest(t *testing.T, handler *StreamHandler, feed *stubFeed, drive func()) string {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stream/queue/{clinicId}/{doctorId}/{date}", handler.StreamQueue)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/stream/queue/clinic-1/doc-1/2026-9-1", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		mux.ServeHTTP(rec, req)
		close(done)
	}()

	drive()
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream handler did not return after disconnect")
	}
	return rec.Body.String()
}

func TestStreamHandler_StreamsQueueUpdates(t *testing.T) {
	feed := newStubFeed()
	handler := NewStreamHandler(feed, &stubQueueState{}, nil)

	body := streamRequest(t, handler, feed, func() {
		feed.queueCh <- &entities.QueueSnapshot{
			Scope:   entities.Scope{ClinicID: "clinic-1", DoctorID: "doc-1", Date: "2026-9-1"},
			Entries: []*entities.QueueEntry{{ID: "e1", Status: entities.VisitStatusWaiting}},
		}
		feed.pointerCh <- &entities.OrderPointerSnapshot{CurrentOrder: 2}
	})

	assert.Contains(t, body, "event: connected")
	assert.Contains(t, body, "event: queue")
	assert.Contains(t, body, `"e1"`)
	assert.Contains(t, body, "event: pointer")
	assert.Contains(t, body, `"currentOrder":2`)
	assert.Equal(t, 0, handler.ActiveSessions(), "session gauge returns to zero on disconnect")
}

func TestStreamHandler_DeliversInitialStateBeforeAnyWrite(t *testing.T) {
	feed := newStubFeed()
	handler := NewStreamHandler(feed, &stubQueueState{
		entries: []*entities.QueueEntry{{ID: "seeded-1", Status: entities.VisitStatusWaiting}},
	}, nil)

	body := streamRequest(t, handler, feed, func() {})

	assert.Contains(t, body, "event: queue")
	assert.Contains(t, body, `"seeded-1"`, "connect must stream current state without waiting for a write")
}

func TestStreamHandler_FaultEndsTheStream(t *testing.T) {
	feed := newStubFeed()
	handler := NewStreamHandler(feed, &stubQueueState{}, nil)

	body := streamRequest(t, handler, feed, func() {
		close(feed.queueCh)
	})

	assert.Contains(t, body, "event: fault")
}

func TestStreamHandler_RejectsIncompleteScope(t *testing.T) {
	handler := NewStreamHandler(newStubFeed(), &stubQueueState{}, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stream/queue/{clinicId}/{doctorId}/{date}", handler.StreamQueue)

	req := httptest.NewRequest(http.MethodGet, "/api/stream/queue/clinic-1/doc-1/%20", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "required"))
}
