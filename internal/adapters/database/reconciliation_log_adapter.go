package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/nowaiting/clinic-console/internal/domain/repositories"
	"github.com/nowaiting/clinic-console/internal/infrastructure/clients/postgres"
	"github.com/nowaiting/clinic-console/internal/infrastructure/observability"
	apperrors "github.com/nowaiting/clinic-console/pkg/errors"
)

// ReconciliationLogAdapter records mirror pushes that exhausted their retry
// budget so operators can replay them by hand.
type ReconciliationLogAdapter struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

// NewReconciliationLogAdapter creates a new reconciliation log adapter.
func NewReconciliationLogAdapter(client *postgres.Client) repositories.ReconciliationLogRepository {
	return &ReconciliationLogAdapter{
		db:     sqlx.NewDb(client.DB(), "postgres"),
		logger: observability.GetLogger().With().Str("component", "reconciliation_log").Logger(),
	}
}

// RecordFailure persists one exhausted reconciliation attempt.
func (a *ReconciliationLogAdapter) RecordFailure(ctx context.Context, entryID, operation, detail string) error {
	const query = `
		INSERT INTO reconciliation_failures (id, entry_id, operation, detail, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := a.db.ExecContext(ctx, query, uuid.New().String(), entryID, operation, detail, time.Now().UTC())
	if err != nil {
		a.logger.Error().Err(err).
			Str("entry_id", entryID).
			Str("operation", operation).
			Msg("failed to record reconciliation failure")
		return apperrors.NewInternalError("failed to record reconciliation failure", err)
	}
	return nil
}
