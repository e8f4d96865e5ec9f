package repositories

import (
	"context"

	"github.com/nowaiting/clinic-console/internal/domain/entities"
)

// QueueRepository defines the primary-store operations on queue entries.
// The store is authoritative: derived state is only ever refreshed from the
// change feed echo that follows each successful write.
type QueueRepository interface {
	// Create inserts a new entry. The caller has already assigned the
	// queue position; positions are never reused within a scope.
	Create(ctx context.Context, entry *entities.QueueEntry) error

	// GetByID retrieves one entry within a scope.
	GetByID(ctx context.Context, scope entities.Scope, id string) (*entities.QueueEntry, error)

	// ListByScope returns the complete current set of entries for a scope.
	ListByScope(ctx context.Context, scope entities.Scope) ([]*entities.QueueEntry, error)

	// NextPosition returns the next unused queue position for a scope
	// (1 for an empty scope).
	NextPosition(ctx context.Context, scope entities.Scope) (int, error)

	// UpdateStatus patches an entry's lifecycle status.
	UpdateStatus(ctx context.Context, scope entities.Scope, id string, status entities.VisitStatus) error

	// UpdateConsultationPayment patches the consultation payment sub-record.
	UpdateConsultationPayment(ctx context.Context, scope entities.Scope, id string, payment *entities.ConsultationPayment) error

	// ReplaceBills rewrites the entire bill sequence of an entry.
	ReplaceBills(ctx context.Context, scope entities.Scope, id string, bills []entities.Bill) error
}

// OrderPointerRepository defines the primary-store operations on a scope's
// "now serving" pointer. Writes are last-write-wins with merge semantics.
type OrderPointerRepository interface {
	// Get returns the current pointer value; 0 when no pointer document
	// exists yet for the scope.
	Get(ctx context.Context, scope entities.Scope) (int, error)

	// Set upserts the pointer value for a scope.
	Set(ctx context.Context, scope entities.Scope, value int) error
}

// ReconciliationLogRepository records secondary-write failures for
// diagnostics. Never read on any operator path.
type ReconciliationLogRepository interface {
	// RecordFailure stores one exhausted best-effort push.
	RecordFailure(ctx context.Context, entryID, operation, detail string) error
}
