package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nowaiting/clinic-console/internal/domain/entities"
	apperrors "github.com/nowaiting/clinic-console/pkg/errors"
)

func paymentEntry() *entities.QueueEntry {
	return &entities.QueueEntry{
		ID:       "e1",
		ClinicID: "clinic-1",
		DoctorID: "doc-1",
		Date:     "2026-9-1",
		Consultation: entities.ConsultationPayment{
			Amount:           300,
			PaymentStatus:    entities.PaymentStatusPending,
			ConsultationType: entities.VisitTypeConsult,
		},
		Bills: []entities.Bill{
			{BillingID: "bill-1", TotalAmount: 200, PaymentStatus: entities.PaymentStatusPending},
			{BillingID: "bill-2", TotalAmount: 450, PaymentStatus: entities.PaymentStatusPending},
		},
	}
}

func TestPaymentService_ConfirmConsultationPayment(t *testing.T) {
	scope := syncScope()

	t.Run("settles and mirrors to the ledger", func(t *testing.T) {
		repo := new(MockQueueRepository)
		ledger := &countingLedger{}
		dispatcher := NewDispatcher(nil)
		service := NewPaymentService(repo, ledger, dispatcher)

		repo.On("GetByID", mock.Anything, scope, "e1").Return(paymentEntry(), nil)
		repo.On("UpdateConsultationPayment", mock.Anything, scope, "e1",
			mock.MatchedBy(func(p *entities.ConsultationPayment) bool {
				return p.PaymentStatus == entities.PaymentStatusPaid &&
					p.PaymentMethod == entities.PaymentMethodCard &&
					p.Amount == 300 &&
					p.PaidAt != nil &&
					p.PaidBy == "assistant-1"
			})).Return(nil)

		err := service.ConfirmConsultationPayment(context.Background(), scope, "e1", entities.PaymentMethodCard, "assistant-1")
		require.NoError(t, err)
		dispatcher.Wait()

		repo.AssertExpectations(t)
		require.Len(t, ledger.consultations, 1)
		assert.Equal(t, "doc-1", ledger.consultations[0].DoctorID)
		assert.Equal(t, float64(300), ledger.consultations[0].ConsultationFee)
	})

	t.Run("already paid is a conflict and never reaches the ledger", func(t *testing.T) {
		repo := new(MockQueueRepository)
		ledger := &countingLedger{}
		dispatcher := NewDispatcher(nil)
		service := NewPaymentService(repo, ledger, dispatcher)

		entry := paymentEntry()
		entry.Consultation.PaymentStatus = entities.PaymentStatusPaid
		repo.On("GetByID", mock.Anything, scope, "e1").Return(entry, nil)

		err := service.ConfirmConsultationPayment(context.Background(), scope, "e1", entities.PaymentMethodCash, "assistant-1")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeConflict, err.(*apperrors.AppError).Type)
		dispatcher.Wait()
		assert.Empty(t, ledger.consultations)
	})

	t.Run("primary write failure surfaces and skips the ledger", func(t *testing.T) {
		repo := new(MockQueueRepository)
		ledger := &countingLedger{}
		dispatcher := NewDispatcher(nil)
		service := NewPaymentService(repo, ledger, dispatcher)

		repo.On("GetByID", mock.Anything, scope, "e1").Return(paymentEntry(), nil)
		repo.On("UpdateConsultationPayment", mock.Anything, scope, "e1", mock.Anything).
			Return(errors.New("store unavailable"))

		err := service.ConfirmConsultationPayment(context.Background(), scope, "e1", entities.PaymentMethodCash, "assistant-1")
		require.Error(t, err)
		dispatcher.Wait()
		assert.Empty(t, ledger.consultations)
	})

	t.Run("ledger failure never surfaces to the operator", func(t *testing.T) {
		repo := new(MockQueueRepository)
		ledger := &countingLedger{failuresLeft: 2, failWith: errors.New("ledger down")}
		log := &fakeFailureLog{}
		dispatcher := NewDispatcher(log)
		service := NewPaymentService(repo, ledger, dispatcher)

		repo.On("GetByID", mock.Anything, scope, "e1").Return(paymentEntry(), nil)
		repo.On("UpdateConsultationPayment", mock.Anything, scope, "e1", mock.Anything).Return(nil)

		err := service.ConfirmConsultationPayment(context.Background(), scope, "e1", entities.PaymentMethodCash, "assistant-1")
		require.NoError(t, err)
		dispatcher.Wait()

		assert.Equal(t, 2, ledger.attempts, "one attempt plus exactly one retry")
		assert.Equal(t, []string{"e1/billing_consultation"}, log.recorded())
	})
}

func TestPaymentService_ConfirmBillPayment(t *testing.T) {
	scope := syncScope()

	t.Run("settles the matching bill and mirrors the settlement", func(t *testing.T) {
		repo := new(MockQueueRepository)
		ledger := &countingLedger{}
		dispatcher := NewDispatcher(nil)
		service := NewPaymentService(repo, ledger, dispatcher)

		repo.On("GetByID", mock.Anything, scope, "e1").Return(paymentEntry(), nil)
		repo.On("ReplaceBills", mock.Anything, scope, "e1",
			mock.MatchedBy(func(bills []entities.Bill) bool {
				return len(bills) == 2 &&
					bills[0].PaymentStatus == entities.PaymentStatusPending &&
					bills[1].PaymentStatus == entities.PaymentStatusPaid &&
					bills[1].PaymentMethod == entities.PaymentMethodCash &&
					bills[1].PaidAt != nil
			})).Return(nil)

		err := service.ConfirmBillPayment(context.Background(), scope, "e1", "bill-2", entities.PaymentMethodCash)
		require.NoError(t, err)
		dispatcher.Wait()

		repo.AssertExpectations(t)
		require.Len(t, ledger.settlements, 1)
		assert.Equal(t, "doc-1", ledger.settlements[0].doctorID)
		assert.Equal(t, "bill-2", ledger.settlements[0].billingID)
		assert.Equal(t, float64(450), ledger.settlements[0].settlement.AmountPaid)
	})

	t.Run("unknown billing id is not found", func(t *testing.T) {
		repo := new(MockQueueRepository)
		dispatcher := NewDispatcher(nil)
		service := NewPaymentService(repo, &countingLedger{}, dispatcher)

		repo.On("GetByID", mock.Anything, scope, "e1").Return(paymentEntry(), nil)

		err := service.ConfirmBillPayment(context.Background(), scope, "e1", "bill-9", entities.PaymentMethodCash)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeNotFound, err.(*apperrors.AppError).Type)
	})

	t.Run("an already settled bill is a conflict", func(t *testing.T) {
		repo := new(MockQueueRepository)
		dispatcher := NewDispatcher(nil)
		service := NewPaymentService(repo, &countingLedger{}, dispatcher)

		entry := paymentEntry()
		entry.Bills[0].PaymentStatus = entities.PaymentStatusPaid
		repo.On("GetByID", mock.Anything, scope, "e1").Return(entry, nil)

		err := service.ConfirmBillPayment(context.Background(), scope, "e1", "bill-1", entities.PaymentMethodCard)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeConflict, err.(*apperrors.AppError).Type)
	})
}
