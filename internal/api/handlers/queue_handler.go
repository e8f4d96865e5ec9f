package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nowaiting/clinic-console/internal/application/services"
	"github.com/nowaiting/clinic-console/internal/domain/entities"
)

// VisitService defines the interface for visit lifecycle operations
type VisitService interface {
	AddPatient(ctx context.Context, input services.AddPatientInput) (*entities.QueueEntry, error)
	ChangeStatus(ctx context.Context, scope entities.Scope, entryID string, status entities.VisitStatus, assistantID string) error
	ListQueue(ctx context.Context, scope entities.Scope) ([]*entities.QueueEntry, error)
}

// PaymentService defines the interface for payment confirmation operations
type PaymentService interface {
	ConfirmConsultationPayment(ctx context.Context, scope entities.Scope, entryID string, method entities.PaymentMethod, paidBy string) error
	ConfirmBillPayment(ctx context.Context, scope entities.Scope, entryID, billingID string, method entities.PaymentMethod) error
}

// OrderPointerService defines the interface for "now serving" operations
type OrderPointerService interface {
	Increment(ctx context.Context, scope entities.Scope) (int, error)
	Decrement(ctx context.Context, scope entities.Scope) (int, error)
	Reset(ctx context.Context, scope entities.Scope) (int, error)
}

// SettingsService defines the interface for doctor settings lookups
type SettingsService interface {
	GetDoctorSettings(ctx context.Context, doctorID string) (*entities.DoctorSettings, error)
}

// QueueHandler handles the front-desk queue operations
type QueueHandler struct {
	visits   VisitService
	payments PaymentService
	pointer  OrderPointerService
	settings SettingsService
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(visits VisitService, payments PaymentService, pointer OrderPointerService, settings SettingsService) *QueueHandler {
	return &QueueHandler{
		visits:   visits,
		payments: payments,
		pointer:  pointer,
		settings: settings,
	}
}

// scopeFromRequest builds the queue scope from the route parameters.
func scopeFromRequest(r *http.Request) (entities.Scope, bool) {
	scope := entities.Scope{
		ClinicID: r.PathValue("clinicId"),
		DoctorID: r.PathValue("doctorId"),
		Date:     r.PathValue("date"),
	}
	return scope, scope.Validate() == nil
}

// GetQueue handles GET /api/queue/{clinicId}/{doctorId}/{date}
func (h *QueueHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromRequest(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "clinic, doctor and date are required")
		return
	}

	entries, err := h.visits.ListQueue(r.Context(), scope)
	if err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"stats":   services.Stats(entries),
	})
}

type addPatientRequest struct {
	DoctorName     string   `json:"doctor_name"`
	PatientName    string   `json:"patient_name"`
	PatientPhone   string   `json:"patient_phone"`
	VisitType      string   `json:"visit_type"`
	VisitSpeed     string   `json:"visit_speed"`
	ReferralSource string   `json:"referral_source"`
	Fee            *float64 `json:"fee"`
}

// AddPatient handles POST /api/queue/{clinicId}/{doctorId}/{date}/patients
func (h *QueueHandler) AddPatient(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromRequest(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "clinic, doctor and date are required")
		return
	}

	var req addPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	entry, err := h.visits.AddPatient(r.Context(), services.AddPatientInput{
		Scope:          scope,
		DoctorName:     req.DoctorName,
		PatientName:    req.PatientName,
		PatientPhone:   req.PatientPhone,
		VisitType:      entities.VisitType(req.VisitType),
		VisitSpeed:     entities.VisitSpeed(req.VisitSpeed),
		ReferralSource: req.ReferralSource,
		Fee:            req.Fee,
	})
	if err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, entry)
}

type changeStatusRequest struct {
	Status      string `json:"status"`
	AssistantID string `json:"assistant_id"`
}

// ChangeStatus handles PATCH /api/queue/{clinicId}/{doctorId}/{date}/patients/{id}/status
func (h *QueueHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromRequest(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "clinic, doctor and date are required")
		return
	}
	entryID := r.PathValue("id")
	if entryID == "" {
		respondWithError(w, http.StatusBadRequest, "entry ID is required")
		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := h.visits.ChangeStatus(r.Context(), scope, entryID, entities.VisitStatus(req.Status), req.AssistantID); err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

type paymentRequest struct {
	Method string `json:"payment_method"`
	PaidBy string `json:"paid_by"`
}

// ConfirmConsultationPayment handles
// POST /api/queue/{clinicId}/{doctorId}/{date}/patients/{id}/payments/consultation
func (h *QueueHandler) ConfirmConsultationPayment(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromRequest(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "clinic, doctor and date are required")
		return
	}
	entryID := r.PathValue("id")
	if entryID == "" {
		respondWithError(w, http.StatusBadRequest, "entry ID is required")
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	method, ok := parsePaymentMethod(req.Method)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "payment method must be cash or card")
		return
	}

	if err := h.payments.ConfirmConsultationPayment(r.Context(), scope, entryID, method, req.PaidBy); err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": string(entities.PaymentStatusPaid)})
}

// ConfirmBillPayment handles
// POST /api/queue/{clinicId}/{doctorId}/{date}/patients/{id}/bills/{billingId}/payment
func (h *QueueHandler) ConfirmBillPayment(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromRequest(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "clinic, doctor and date are required")
		return
	}
	entryID := r.PathValue("id")
	billingID := r.PathValue("billingId")
	if entryID == "" || billingID == "" {
		respondWithError(w, http.StatusBadRequest, "entry ID and billing ID are required")
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	method, ok := parsePaymentMethod(req.Method)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "payment method must be cash or card")
		return
	}

	if err := h.payments.ConfirmBillPayment(r.Context(), scope, entryID, billingID, method); err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": string(entities.PaymentStatusPaid)})
}

// AdvancePointer handles POST /api/queue/{clinicId}/{doctorId}/{date}/pointer/increment
func (h *QueueHandler) AdvancePointer(w http.ResponseWriter, r *http.Request) {
	h.pointerOp(w, r, h.pointer.Increment)
}

// RewindPointer handles POST /api/queue/{clinicId}/{doctorId}/{date}/pointer/decrement
func (h *QueueHandler) RewindPointer(w http.ResponseWriter, r *http.Request) {
	h.pointerOp(w, r, h.pointer.Decrement)
}

// ResetPointer handles POST /api/queue/{clinicId}/{doctorId}/{date}/pointer/reset
func (h *QueueHandler) ResetPointer(w http.ResponseWriter, r *http.Request) {
	h.pointerOp(w, r, h.pointer.Reset)
}

func (h *QueueHandler) pointerOp(w http.ResponseWriter, r *http.Request, op func(context.Context, entities.Scope) (int, error)) {
	scope, ok := scopeFromRequest(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "clinic, doctor and date are required")
		return
	}

	value, err := op(r.Context(), scope)
	if err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"currentOrder": value})
}

// GetDoctorSettings handles GET /api/doctors/{doctorId}/settings
func (h *QueueHandler) GetDoctorSettings(w http.ResponseWriter, r *http.Request) {
	doctorID := r.PathValue("doctorId")
	if doctorID == "" {
		respondWithError(w, http.StatusBadRequest, "doctor ID is required")
		return
	}

	settings, err := h.settings.GetDoctorSettings(r.Context(), doctorID)
	if err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, settings)
}

func parsePaymentMethod(raw string) (entities.PaymentMethod, bool) {
	switch entities.PaymentMethod(raw) {
	case entities.PaymentMethodCash, entities.PaymentMethodCard:
		return entities.PaymentMethod(raw), true
	default:
		return "", false
	}
}
