package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/availability"
	"github.com/hackgods/clinic-appointment-booking/internal/config"
	"github.com/hackgods/clinic-appointment-booking/internal/db"
	"github.com/hackgods/clinic-appointment-booking/internal/logger"
)

const (
	doctorCount   = 20
	patientCount  = 500
	seriesWeeks   = 4
	firstHour     = 9
	slotsPerDay   = 8
	slotLength    = 45 * time.Minute
	patientsBatch = 250
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		fmt.Fprintln(os.Stderr, "seed needs the postgres store driver")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.CreateSchema(ctx, pool); err != nil {
		log.Fatal("create schema", zap.Error(err))
	}

	gofakeit.Seed(time.Now().UnixNano())

	doctors, err := seedDoctors(ctx, log, pool, doctorCount)
	if err != nil {
		log.Fatal("seed doctors", zap.Error(err))
	}
	if err := seedPatients(ctx, log, pool, patientCount); err != nil {
		log.Fatal("seed patients", zap.Error(err))
	}

	svc := availability.NewService(availability.NewPgRepository(pool), log)
	if err := seedAvailability(ctx, log, svc, doctors); err != nil {
		log.Fatal("seed availability", zap.Error(err))
	}

	log.Info("seed complete")
}

func seedDoctors(ctx context.Context, log *zap.Logger, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Info("seeding doctors", zap.Int("count", count))

	specialities := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		spec := specialities[gofakeit.Number(0, len(specialities)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, user_id, name, speciality, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, gofakeit.UUID(), "Dr. "+gofakeit.Name(), spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

func seedPatients(ctx context.Context, log *zap.Logger, pool *pgxpool.Pool, count int) error {
	log.Info("seeding patients", zap.Int("count", count))

	for offset := 0; offset < count; offset += patientsBatch {
		end := min(offset+patientsBatch, count)

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, user_id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, uuid.New(), gofakeit.UUID(), gofakeit.Name(), gofakeit.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
		log.Info("patients seeded", zap.Int("done", end), zap.Int("total", count))
	}
	return nil
}

// seedAvailability gives every doctor weekly series for each weekday slot of
// next week, running seriesWeeks weeks.
func seedAvailability(ctx context.Context, log *zap.Logger, svc *availability.Service, doctors []uuid.UUID) error {
	monday := nextMonday(time.Now().UTC())
	last := monday.AddDate(0, 0, 7*(seriesWeeks-1)+4)

	total := 0
	for _, doctorID := range doctors {
		for day := 0; day < 5; day++ {
			for n := 0; n < slotsPerDay; n++ {
				start := monday.AddDate(0, 0, day).Add(time.Duration(firstHour+n) * time.Hour)

				slots, err := svc.CreateAvailability(ctx, availability.CreateRequest{
					DoctorID:          doctorID,
					StartTime:         start,
					EndTime:           start.Add(slotLength),
					RecurrencePattern: availability.PatternWeekly,
					RecurrenceEndDate: &last,
				})
				if err != nil {
					return err
				}
				total += len(slots)
			}
		}
	}

	log.Info("availability seeded", zap.Int("slots", total))
	return nil
}

func nextMonday(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := (8 - int(day.Weekday())) % 7
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, offset)
}
