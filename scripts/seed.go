package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nowaiting/clinic-console/internal/adapters/database"
	"github.com/nowaiting/clinic-console/internal/adapters/feed"
	"github.com/nowaiting/clinic-console/internal/domain/entities"
	"github.com/nowaiting/clinic-console/internal/infrastructure/clients/postgres"
	"github.com/nowaiting/clinic-console/internal/infrastructure/clients/redis"
	"github.com/nowaiting/clinic-console/pkg/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS queue_entries (
	id              TEXT PRIMARY KEY,
	clinic_id       TEXT NOT NULL,
	doctor_id       TEXT NOT NULL,
	date            TEXT NOT NULL,
	patient_name    TEXT NOT NULL,
	patient_phone   TEXT NOT NULL DEFAULT '',
	doctor_name     TEXT NOT NULL DEFAULT '',
	time            TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	position        INTEGER NOT NULL,
	visit_type      TEXT NOT NULL,
	visit_speed     TEXT NOT NULL,
	age             TEXT,
	address         TEXT,
	referral_source TEXT,
	created_at_ms   BIGINT NOT NULL,
	consultation    JSONB NOT NULL DEFAULT '{}',
	bills           JSONB NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_queue_entries_scope
	ON queue_entries (clinic_id, doctor_id, date);

CREATE TABLE IF NOT EXISTS order_pointers (
	clinic_id     TEXT NOT NULL,
	doctor_id     TEXT NOT NULL,
	date          TEXT NOT NULL,
	current_order INTEGER NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (clinic_id, doctor_id, date)
);

CREATE TABLE IF NOT EXISTS reconciliation_failures (
	id         TEXT PRIMARY KEY,
	entry_id   TEXT NOT NULL,
	operation  TEXT NOT NULL,
	detail     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	changeFeed := feed.NewRedisChangeFeed(redisClient)
	defer changeFeed.Close()

	ctx := context.Background()

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				queue_entries,
				order_pointers,
				reconciliation_failures
		`)
		if err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	if _, err := pgClient.DB().ExecContext(ctx, schema); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}

	queueRepo := database.NewQueueAdapter(pgClient, changeFeed)
	pointerRepo := database.NewOrderPointerAdapter(pgClient, changeFeed)

	scope := entities.NewScope("clinic-demo", "doctor-demo", time.Now())

	// Seed a morning's worth of walk-ins
	names := []struct {
		name  string
		speed entities.VisitSpeed
	}{
		{"Amina Yusuf", entities.VisitSpeedNormal},
		{"Chidi Okafor", entities.VisitSpeedNormal},
		{"Funke Adeyemi", entities.VisitSpeedUrgent},
		{"Tunde Bello", entities.VisitSpeedNormal},
	}

	for i, p := range names {
		entry := &entities.QueueEntry{
			ID:           uuid.New().String(),
			PatientName:  p.name,
			PatientPhone: fmt.Sprintf("080000000%02d", i+1),
			ClinicID:     scope.ClinicID,
			DoctorID:     scope.DoctorID,
			DoctorName:   "Dr. Demo",
			Date:         scope.Date,
			Time:         time.Now().Format("15:04"),
			Status:       entities.VisitStatusWaiting,
			Position:     i + 1,
			VisitType:    entities.VisitTypeConsult,
			VisitSpeed:   p.speed,
			CreatedAt:    time.Now().UnixMilli(),
			Consultation: entities.ConsultationPayment{Amount: 300, PaymentStatus: entities.PaymentStatusPending},
		}
		if err := queueRepo.Create(ctx, entry); err != nil {
			log.Printf("Failed to create queue entry %s: %v", p.name, err)
		}
	}

	if err := pointerRepo.Set(ctx, scope, 1); err != nil {
		log.Printf("Failed to set order pointer: %v", err)
	}

	log.Printf("Seeded %d entries for %s", len(names), scope.Key())
}
