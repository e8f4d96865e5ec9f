package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nowaiting/clinic-console/internal/domain/entities"
	"github.com/nowaiting/clinic-console/internal/domain/providers"
	"github.com/nowaiting/clinic-console/internal/domain/repositories"
	apperrors "github.com/nowaiting/clinic-console/pkg/errors"
)

// PaymentService sequences every payment the same way: a mandatory,
// synchronous write to the primary store first, then a best-effort push to
// the secondary ledger. The ledger push failing never rolls back the
// primary write and never reaches the operator.
type PaymentService struct {
	repo       repositories.QueueRepository
	ledger     providers.LedgerProvider
	dispatcher *Dispatcher
}

// NewPaymentService creates a new payment service.
func NewPaymentService(repo repositories.QueueRepository, ledger providers.LedgerProvider, dispatcher *Dispatcher) *PaymentService {
	return &PaymentService{
		repo:       repo,
		ledger:     ledger,
		dispatcher: dispatcher,
	}
}

// ConfirmConsultationPayment settles the base consultation fee. The amount
// was fixed at entry creation; only status, method, paid-at and payer
// change, and only pending->paid.
func (s *PaymentService) ConfirmConsultationPayment(ctx context.Context, scope entities.Scope, entryID string, method entities.PaymentMethod, paidBy string) error {
	entry, err := s.repo.GetByID(ctx, scope, entryID)
	if err != nil {
		return err
	}

	if entry.Consultation.PaymentStatus == entities.PaymentStatusPaid {
		return apperrors.NewConflictError("consultation payment is already settled")
	}

	now := time.Now()
	payment := entry.Consultation
	payment.PaymentStatus = entities.PaymentStatusPaid
	payment.PaymentMethod = method
	payment.PaidAt = &now
	payment.PaidBy = paidBy

	// 1. Authoritative write; the queue display depends on this state.
	if err := s.repo.UpdateConsultationPayment(ctx, scope, entryID, &payment); err != nil {
		return err
	}

	// 2. Best-effort ledger record for the dashboard.
	record := &providers.ConsultationPaymentRecord{
		DoctorID:         entry.DoctorID,
		PatientID:        entry.ID,
		PatientName:      entry.PatientName,
		PatientPhone:     entry.PatientPhone,
		ClinicID:         entry.ClinicID,
		ConsultationType: payment.ConsultationType,
		ConsultationFee:  payment.Amount,
		PaymentMethod:    method,
	}
	s.dispatcher.Dispatch(entry.ID, "billing_consultation", func(taskCtx context.Context) error {
		return s.ledger.RecordConsultationPayment(taskCtx, record)
	})

	return nil
}

// ConfirmBillPayment settles one doctor-issued bill, matched by billing id.
// The whole bill sequence is rewritten with only the matching bill's
// status/method/paid-at updated in place; every other bill and every line
// item is carried over untouched.
func (s *PaymentService) ConfirmBillPayment(ctx context.Context, scope entities.Scope, entryID, billingID string, method entities.PaymentMethod) error {
	entry, err := s.repo.GetByID(ctx, scope, entryID)
	if err != nil {
		return err
	}

	now := time.Now()
	var settled *entities.Bill

	bills := make([]entities.Bill, len(entry.Bills))
	copy(bills, entry.Bills)
	for i := range bills {
		if bills[i].BillingID != billingID {
			continue
		}
		if bills[i].PaymentStatus == entities.PaymentStatusPaid {
			return apperrors.NewConflictError(fmt.Sprintf("bill %s is already settled", billingID))
		}
		bills[i].PaymentStatus = entities.PaymentStatusPaid
		bills[i].PaymentMethod = method
		bills[i].PaidAt = &now
		settled = &bills[i]
	}

	if settled == nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("bill %s not found on entry %s", billingID, entryID))
	}

	// 1. Authoritative write.
	if err := s.repo.ReplaceBills(ctx, scope, entryID, bills); err != nil {
		return err
	}

	// 2. Best-effort ledger settlement.
	settlement := &providers.BillSettlement{
		PaymentStatus: entities.PaymentStatusPaid,
		PaymentMethod: method,
		AmountPaid:    settled.TotalAmount,
	}
	doctorID := entry.DoctorID
	s.dispatcher.Dispatch(entry.ID, "billing_settlement", func(taskCtx context.Context) error {
		return s.ledger.SettleBill(taskCtx, doctorID, billingID, settlement)
	})

	return nil
}
