package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/rs/zerolog"

	"github.com/nowaiting/clinic-console/internal/domain/entities"
	"github.com/nowaiting/clinic-console/internal/domain/providers"
	"github.com/nowaiting/clinic-console/internal/domain/repositories"
	"github.com/nowaiting/clinic-console/internal/infrastructure/clients/postgres"
	"github.com/nowaiting/clinic-console/internal/infrastructure/observability"
	apperrors "github.com/nowaiting/clinic-console/pkg/errors"
)

// OrderPointerAdapter implements the OrderPointerRepository interface.
// Every Set publishes the new pointer value on the change feed.
type OrderPointerAdapter struct {
	client *postgres.Client
	db     *goqu.Database
	feed   providers.ChangeFeed
	logger zerolog.Logger
}

// NewOrderPointerAdapter creates a new order pointer adapter.
func NewOrderPointerAdapter(client *postgres.Client, feed providers.ChangeFeed) repositories.OrderPointerRepository {
	return &OrderPointerAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
		feed:   feed,
		logger: observability.GetLogger().With().Str("component", "order_pointer_adapter").Logger(),
	}
}

// Get returns the current pointer for a scope, zero when none was ever set.
func (a *OrderPointerAdapter) Get(ctx context.Context, scope entities.Scope) (int, error) {
	query, args, err := a.db.Select("current_order").
		From("order_pointers").
		Where(scopeEx(scope)).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build query", err)
	}

	var current int
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&current)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, apperrors.NewInternalError("failed to get order pointer", err)
	}
	return current, nil
}

// Set upserts the pointer and echoes the new value on the change feed.
func (a *OrderPointerAdapter) Set(ctx context.Context, scope entities.Scope, value int) error {
	record := goqu.Record{
		"clinic_id":     scope.ClinicID,
		"doctor_id":     scope.DoctorID,
		"date":          scope.Date,
		"current_order": value,
		"updated_at":    time.Now().UTC(),
	}

	query, args, err := a.db.Insert("order_pointers").
		Rows(record).
		OnConflict(goqu.DoUpdate("clinic_id, doctor_id, date", goqu.Record{
			"current_order": value,
			"updated_at":    time.Now().UTC(),
		})).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to set order pointer", err)
	}

	snapshot := &entities.OrderPointerSnapshot{CurrentOrder: value}
	if err := a.feed.PublishOrderPointer(ctx, scope, snapshot); err != nil {
		a.logger.Error().Err(err).Str("scope", scope.Key()).Msg("failed to publish order pointer echo")
	}
	return nil
}
