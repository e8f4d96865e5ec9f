package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/rs/zerolog"

	"github.com/nowaiting/clinic-console/internal/domain/entities"
	"github.com/nowaiting/clinic-console/internal/domain/providers"
	"github.com/nowaiting/clinic-console/internal/domain/repositories"
	"github.com/nowaiting/clinic-console/internal/infrastructure/clients/postgres"
	"github.com/nowaiting/clinic-console/internal/infrastructure/observability"
	apperrors "github.com/nowaiting/clinic-console/pkg/errors"
)

// QueueAdapter implements the QueueRepository interface. After every
// successful write it republishes the scope's complete entry set on the
// change feed. That echo is what consoles apply instead of mutating local
// state.
type QueueAdapter struct {
	client *postgres.Client
	db     *goqu.Database
	feed   providers.ChangeFeed
	logger zerolog.Logger
}

// NewQueueAdapter creates a new queue adapter.
func NewQueueAdapter(client *postgres.Client, feed providers.ChangeFeed) repositories.QueueRepository {
	return &QueueAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
		feed:   feed,
		logger: observability.GetLogger().With().Str("component", "queue_adapter").Logger(),
	}
}

var queueEntryColumns = []interface{}{
	"id", "clinic_id", "doctor_id", "date", "patient_name", "patient_phone",
	"doctor_name", "time", "status", "position", "visit_type", "visit_speed",
	"age", "address", "referral_source", "created_at_ms", "consultation", "bills",
}

// Create inserts a new entry and echoes the refreshed scope.
func (a *QueueAdapter) Create(ctx context.Context, entry *entities.QueueEntry) error {
	consultation, err := json.Marshal(entry.Consultation)
	if err != nil {
		return apperrors.NewInternalError("failed to encode consultation payment", err)
	}
	bills, err := json.Marshal(entry.Bills)
	if err != nil {
		return apperrors.NewInternalError("failed to encode bills", err)
	}

	record := goqu.Record{
		"id":              entry.ID,
		"clinic_id":       entry.ClinicID,
		"doctor_id":       entry.DoctorID,
		"date":            entry.Date,
		"patient_name":    entry.PatientName,
		"patient_phone":   entry.PatientPhone,
		"doctor_name":     entry.DoctorName,
		"time":            entry.Time,
		"status":          entry.Status,
		"position":        entry.Position,
		"visit_type":      entry.VisitType,
		"visit_speed":     entry.VisitSpeed,
		"age":             entry.Age,
		"address":         entry.Address,
		"referral_source": entry.ReferralSource,
		"created_at_ms":   entry.CreatedAt,
		"consultation":    consultation,
		"bills":           bills,
	}

	query, args, err := a.db.Insert("queue_entries").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create queue entry", err)
	}

	a.echoScope(ctx, entry.Scope())
	return nil
}

// GetByID retrieves one entry within a scope.
func (a *QueueAdapter) GetByID(ctx context.Context, scope entities.Scope, id string) (*entities.QueueEntry, error) {
	query, args, err := a.db.Select(queueEntryColumns...).
		From("queue_entries").
		Where(goqu.Ex{"id": id}, scopeEx(scope)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	entry, err := scanQueueEntry(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("queue entry %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get queue entry", err)
	}
	return entry, nil
}

// ListByScope returns the complete current entry set for a scope.
func (a *QueueAdapter) ListByScope(ctx context.Context, scope entities.Scope) ([]*entities.QueueEntry, error) {
	query, args, err := a.db.Select(queueEntryColumns...).
		From("queue_entries").
		Where(scopeEx(scope)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list queue entries", err)
	}
	defer rows.Close()

	var entries []*entities.QueueEntry
	for rows.Next() {
		entry, err := scanQueueEntry(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan queue entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to read queue entries", err)
	}

	return entries, nil
}

// NextPosition returns max(position)+1 for the scope, 1 when empty.
func (a *QueueAdapter) NextPosition(ctx context.Context, scope entities.Scope) (int, error) {
	query, args, err := a.db.Select(goqu.COALESCE(goqu.MAX("position"), 0)).
		From("queue_entries").
		Where(scopeEx(scope)).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build query", err)
	}

	var max int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&max); err != nil {
		return 0, apperrors.NewInternalError("failed to compute next position", err)
	}
	return max + 1, nil
}

// UpdateStatus patches an entry's lifecycle status and echoes the scope.
func (a *QueueAdapter) UpdateStatus(ctx context.Context, scope entities.Scope, id string, status entities.VisitStatus) error {
	return a.patch(ctx, scope, id, goqu.Record{"status": status}, "status")
}

// UpdateConsultationPayment patches the payment sub-record and echoes.
func (a *QueueAdapter) UpdateConsultationPayment(ctx context.Context, scope entities.Scope, id string, payment *entities.ConsultationPayment) error {
	data, err := json.Marshal(payment)
	if err != nil {
		return apperrors.NewInternalError("failed to encode consultation payment", err)
	}
	return a.patch(ctx, scope, id, goqu.Record{"consultation": data}, "consultation payment")
}

// ReplaceBills rewrites the entire bill sequence of an entry and echoes.
func (a *QueueAdapter) ReplaceBills(ctx context.Context, scope entities.Scope, id string, bills []entities.Bill) error {
	data, err := json.Marshal(bills)
	if err != nil {
		return apperrors.NewInternalError("failed to encode bills", err)
	}
	return a.patch(ctx, scope, id, goqu.Record{"bills": data}, "bills")
}

func (a *QueueAdapter) patch(ctx context.Context, scope entities.Scope, id string, record goqu.Record, what string) error {
	query, args, err := a.db.Update("queue_entries").
		Set(record).
		Where(goqu.Ex{"id": id}, scopeEx(scope)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("failed to update %s", what), err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("queue entry %s not found", id))
	}

	a.echoScope(ctx, scope)
	return nil
}

// echoScope publishes the scope's refreshed snapshot. The primary write has
// already committed, so a failed echo only delays the display; it is logged
// and not surfaced.
func (a *QueueAdapter) echoScope(ctx context.Context, scope entities.Scope) {
	entries, err := a.ListByScope(ctx, scope)
	if err != nil {
		a.logger.Error().Err(err).Str("scope", scope.Key()).Msg("failed to load scope for feed echo")
		return
	}
	snapshot := &entities.QueueSnapshot{Scope: scope, Entries: entries}
	if err := a.feed.PublishQueue(ctx, snapshot); err != nil {
		a.logger.Error().Err(err).Str("scope", scope.Key()).Msg("failed to publish feed echo")
	}
}

func scopeEx(scope entities.Scope) goqu.Ex {
	return goqu.Ex{
		"clinic_id": scope.ClinicID,
		"doctor_id": scope.DoctorID,
		"date":      scope.Date,
	}
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQueueEntry(row rowScanner) (*entities.QueueEntry, error) {
	entry := &entities.QueueEntry{}
	var age, address, referral sql.NullString
	var consultation, bills []byte

	err := row.Scan(
		&entry.ID,
		&entry.ClinicID,
		&entry.DoctorID,
		&entry.Date,
		&entry.PatientName,
		&entry.PatientPhone,
		&entry.DoctorName,
		&entry.Time,
		&entry.Status,
		&entry.Position,
		&entry.VisitType,
		&entry.VisitSpeed,
		&age,
		&address,
		&referral,
		&entry.CreatedAt,
		&consultation,
		&bills,
	)
	if err != nil {
		return nil, err
	}

	entry.Age = age.String
	entry.Address = address.String
	entry.ReferralSource = referral.String

	if len(consultation) > 0 {
		if err := json.Unmarshal(consultation, &entry.Consultation); err != nil {
			return nil, fmt.Errorf("failed to decode consultation payment: %w", err)
		}
	}
	if len(bills) > 0 {
		if err := json.Unmarshal(bills, &entry.Bills); err != nil {
			return nil, fmt.Errorf("failed to decode bills: %w", err)
		}
	}

	return entry, nil
}
