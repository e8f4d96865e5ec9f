package services

import (
	"context"

	"github.com/nowaiting/clinic-console/internal/domain/entities"
	"github.com/nowaiting/clinic-console/internal/domain/providers"
)

// ReconciliationService mirrors terminal FINISHED transitions into the
// secondary store for analytics. Fire-and-forget: one attempt plus one
// retry, then the failure is absorbed. The primary store already holds the
// authoritative status, so the operator never sees this path fail.
type ReconciliationService struct {
	ledger     providers.LedgerProvider
	dispatcher *Dispatcher
}

// NewReconciliationService creates a new reconciliation service.
func NewReconciliationService(ledger providers.LedgerProvider, dispatcher *Dispatcher) *ReconciliationService {
	return &ReconciliationService{
		ledger:     ledger,
		dispatcher: dispatcher,
	}
}

// PushFinishedVisit posts the denormalized projection of a finished entry.
// Returns immediately; the push runs detached.
func (s *ReconciliationService) PushFinishedVisit(entry *entities.QueueEntry, assistantID string) {
	record := entities.NewFinishedVisitRecord(entry, assistantID)
	s.dispatcher.Dispatch(entry.ID, "finished_visit", func(ctx context.Context) error {
		return s.ledger.RecordFinishedVisit(ctx, record)
	})
}
