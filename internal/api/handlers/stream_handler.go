package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nowaiting/clinic-console/internal/application/services"
	"github.com/nowaiting/clinic-console/internal/domain/entities"
	"github.com/nowaiting/clinic-console/internal/domain/providers"
	"github.com/nowaiting/clinic-console/internal/infrastructure/observability"
)

// heartbeatInterval keeps intermediaries from reaping idle streams.
const heartbeatInterval = 30 * time.Second

// StreamHandler serves the console's live update stream over Server-Sent
// Events. Each connection owns one synchronizer session: baseline and
// notification dedup state start fresh on every connect, and die with it.
type StreamHandler struct {
	feed    providers.ChangeFeed
	queues  services.QueueLister
	metrics *observability.Metrics
	mu      sync.Mutex
	active  int
	logger  zerolog.Logger
}

// NewStreamHandler creates a new stream handler. The queue lister supplies
// each session's initial state.
func NewStreamHandler(feed providers.ChangeFeed, queues services.QueueLister, metrics *observability.Metrics) *StreamHandler {
	return &StreamHandler{
		feed:    feed,
		queues:  queues,
		metrics: metrics,
		logger:  observability.GetLogger().With().Str("component", "stream_handler").Logger(),
	}
}

// StreamQueue handles GET /api/stream/queue/{clinicId}/{doctorId}/{date}
//
// Query parameter assistant_id attaches the operator's doctor-message feed
// to the session; without it only queue and pointer updates stream.
func (h *StreamHandler) StreamQueue(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromRequest(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "clinic, doctor and date are required")
		return
	}
	assistantID := r.URL.Query().Get("assistant_id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Set headers for SSE
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	session := services.NewQueueSynchronizer(h.feed, h.queues, scope, assistantID)
	runErr := make(chan error, 1)
	go func() { runErr <- session.Run(r.Context()) }()

	h.trackSession(r.Context(), scope, +1)
	defer h.trackSession(r.Context(), scope, -1)

	h.sendEvent(w, "connected", map[string]interface{}{
		"scope":     scope,
		"timestamp": time.Now(),
	})
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info().Str("scope", scope.Key()).Msg("console disconnected")
			return

		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()

		case update, open := <-session.Updates():
			if !open {
				// The session only ends without a context cancel on a
				// subscription fault. Tell the console to resubscribe
				// from scratch; dropping the connection is the signal.
				err := <-runErr
				if err != nil {
					h.logger.Error().Err(err).Str("scope", scope.Key()).Msg("console session faulted")
					h.sendEvent(w, "fault", map[string]string{"error": "subscription lost"})
					flusher.Flush()
				}
				return
			}
			h.countNotifications(r.Context(), update)
			h.sendEvent(w, string(update.Kind), update)
			flusher.Flush()
		}
	}
}

// trackSession keeps a connection gauge for diagnostics.
func (h *StreamHandler) trackSession(ctx context.Context, scope entities.Scope, delta int) {
	h.mu.Lock()
	h.active += delta
	count := h.active
	h.mu.Unlock()
	observability.RecordStreamSession(ctx, h.metrics, scope.ClinicID, int64(delta))
	h.logger.Info().Str("scope", scope.Key()).Int("active", count).Msg("console sessions changed")
}

// countNotifications records delivered notifications on the update's way out.
func (h *StreamHandler) countNotifications(ctx context.Context, update *services.ConsoleUpdate) {
	for range update.Events {
		observability.RecordNotification(ctx, h.metrics, "bill_added")
	}
	if update.Kind == services.UpdateKindNotification {
		observability.RecordNotification(ctx, h.metrics, "doctor_message")
	}
}

// ActiveSessions returns the number of connected consoles.
func (h *StreamHandler) ActiveSessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// sendEvent sends an SSE event to the client
func (h *StreamHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}
