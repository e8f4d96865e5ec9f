package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nowaiting/clinic-console/internal/domain/entities"
	"github.com/nowaiting/clinic-console/internal/domain/repositories"
	apperrors "github.com/nowaiting/clinic-console/pkg/errors"
)

// VisitService handles the operator actions that create and close visits.
// Every write lands in the primary store only; the console's derived state
// catches up through the feed echo, never through local mutation.
type VisitService struct {
	repo           repositories.QueueRepository
	pointer        *OrderPointerService
	reconciliation *ReconciliationService
	settings       *SettingsService
}

// NewVisitService creates a new visit service.
func NewVisitService(
	repo repositories.QueueRepository,
	pointer *OrderPointerService,
	reconciliation *ReconciliationService,
	settings *SettingsService,
) *VisitService {
	return &VisitService{
		repo:           repo,
		pointer:        pointer,
		reconciliation: reconciliation,
		settings:       settings,
	}
}

// AddPatientInput carries the front-desk form fields for a new visit.
type AddPatientInput struct {
	Scope          entities.Scope
	DoctorName     string
	PatientName    string
	PatientPhone   string
	VisitType      entities.VisitType
	VisitSpeed     entities.VisitSpeed
	ReferralSource string
	Fee            *float64
}

// AddPatient appends a patient to the scope's queue. The queue position is
// max existing position + 1, assigned once and never reused within the
// scope. The consultation fee defaults from the doctor's schedule when the
// form did not set one; a schedule lookup failure defaults the fee to 0
// rather than blocking intake.
func (s *VisitService) AddPatient(ctx context.Context, input AddPatientInput) (*entities.QueueEntry, error) {
	if err := input.Scope.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if strings.TrimSpace(input.PatientName) == "" {
		return nil, apperrors.NewValidationError("patient name is required")
	}
	if strings.TrimSpace(input.PatientPhone) == "" {
		return nil, apperrors.NewValidationError("patient phone is required")
	}

	visitType := input.VisitType
	if visitType == "" {
		visitType = entities.VisitTypeConsult
	}
	visitSpeed := input.VisitSpeed
	if visitSpeed == "" {
		visitSpeed = entities.VisitSpeedNormal
	}
	referral := input.ReferralSource
	if referral == "" {
		referral = entities.ReferralSourceDefault
	}

	position, err := s.repo.NextPosition(ctx, input.Scope)
	if err != nil {
		return nil, err
	}

	fee := 0.0
	if input.Fee != nil {
		fee = *input.Fee
	} else if s.settings != nil {
		if schedule, err := s.settings.GetDoctorSettings(ctx, input.Scope.DoctorID); err == nil {
			fee = schedule.FeeFor(visitType, visitSpeed)
		}
	}

	now := time.Now()
	entry := &entities.QueueEntry{
		ID:             uuid.New().String(),
		PatientName:    strings.TrimSpace(input.PatientName),
		PatientPhone:   strings.TrimSpace(input.PatientPhone),
		DoctorID:       input.Scope.DoctorID,
		DoctorName:     input.DoctorName,
		ClinicID:       input.Scope.ClinicID,
		Date:           input.Scope.Date,
		Time:           now.Format("03:04 PM"),
		Status:         entities.VisitStatusWaiting,
		Position:       position,
		VisitType:      visitType,
		VisitSpeed:     visitSpeed,
		ReferralSource: referral,
		CreatedAt:      now.UnixMilli(),
		Consultation: entities.ConsultationPayment{
			Amount:           fee,
			PaymentStatus:    entities.PaymentStatusPending,
			PaymentMethod:    entities.PaymentMethodCash,
			ConsultationType: visitType,
		},
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// ChangeStatus patches an entry's lifecycle status. A FINISHED transition
// additionally pushes the analytics projection; either terminal transition
// auto-advances the scope's pointer to the next waiting position.
func (s *VisitService) ChangeStatus(ctx context.Context, scope entities.Scope, entryID string, status entities.VisitStatus, assistantID string) error {
	switch status {
	case entities.VisitStatusWaiting, entities.VisitStatusFinished, entities.VisitStatusCanceled:
	default:
		return apperrors.NewValidationError("unknown visit status")
	}

	entry, err := s.repo.GetByID(ctx, scope, entryID)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateStatus(ctx, scope, entryID, status); err != nil {
		return err
	}

	if status == entities.VisitStatusFinished {
		s.reconciliation.PushFinishedVisit(entry, assistantID)
	}

	if status.Terminal() {
		entries, err := s.repo.ListByScope(ctx, scope)
		if err != nil {
			return err
		}
		if _, _, err := s.pointer.AutoAdvance(ctx, scope, entries, entryID); err != nil {
			return err
		}
	}

	return nil
}

// ListQueue returns the scope's entries in serving order.
func (s *VisitService) ListQueue(ctx context.Context, scope entities.Scope) ([]*entities.QueueEntry, error) {
	entries, err := s.repo.ListByScope(ctx, scope)
	if err != nil {
		return nil, err
	}
	return OrderEntries(entries), nil
}
