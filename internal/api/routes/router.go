package routes

import (
	"net/http"

	"github.com/nowaiting/clinic-console/internal/api/handlers"
	"github.com/nowaiting/clinic-console/internal/api/middleware"
	"github.com/nowaiting/clinic-console/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	queueHandler  *handlers.QueueHandler
	streamHandler *handlers.StreamHandler

	metrics *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	queueHandler *handlers.QueueHandler,
	streamHandler *handlers.StreamHandler,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:           http.NewServeMux(),
		queueHandler:  queueHandler,
		streamHandler: streamHandler,
		metrics:       metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Queue endpoints
	r.mux.HandleFunc("GET /api/queue/{clinicId}/{doctorId}/{date}", r.queueHandler.GetQueue)
	r.mux.HandleFunc("POST /api/queue/{clinicId}/{doctorId}/{date}/patients", r.queueHandler.AddPatient)
	r.mux.HandleFunc("PATCH /api/queue/{clinicId}/{doctorId}/{date}/patients/{id}/status", r.queueHandler.ChangeStatus)

	// Payment endpoints
	r.mux.HandleFunc("POST /api/queue/{clinicId}/{doctorId}/{date}/patients/{id}/payments/consultation", r.queueHandler.ConfirmConsultationPayment)
	r.mux.HandleFunc("POST /api/queue/{clinicId}/{doctorId}/{date}/patients/{id}/bills/{billingId}/payment", r.queueHandler.ConfirmBillPayment)

	// Order pointer endpoints
	r.mux.HandleFunc("POST /api/queue/{clinicId}/{doctorId}/{date}/pointer/increment", r.queueHandler.AdvancePointer)
	r.mux.HandleFunc("POST /api/queue/{clinicId}/{doctorId}/{date}/pointer/decrement", r.queueHandler.RewindPointer)
	r.mux.HandleFunc("POST /api/queue/{clinicId}/{doctorId}/{date}/pointer/reset", r.queueHandler.ResetPointer)

	// Doctor settings endpoint
	r.mux.HandleFunc("GET /api/doctors/{doctorId}/settings", r.queueHandler.GetDoctorSettings)

	// Live console stream
	r.mux.HandleFunc("GET /api/stream/queue/{clinicId}/{doctorId}/{date}", r.streamHandler.StreamQueue)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// CORS wraps everything
	handler = middleware.CORSMiddleware(handler)

	return handler
}
