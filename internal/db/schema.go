package db

import (
	"context"
	"fmt"
)

// CreateSchema creates the tables used by the booking service. Doctors and
// patients are owned by other services; the rows here only back foreign keys
// and notification addressing.
func CreateSchema(ctx context.Context, q Querier) error {
	statements := []string{
		createDoctorsTable,
		createPatientsTable,
		createAvailabilitySlotsTable,
		createAppointmentsTable,
		createNotificationsTable,
		createUserNotificationsTable,
	}

	for _, stmt := range statements {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	return nil
}

const createDoctorsTable = `
CREATE TABLE IF NOT EXISTS doctors (
	id         UUID PRIMARY KEY,
	user_id    TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	speciality TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const createPatientsTable = `
CREATE TABLE IF NOT EXISTS patients (
	id         UUID PRIMARY KEY,
	user_id    TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	email      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const createAvailabilitySlotsTable = `
CREATE TABLE IF NOT EXISTS availability_slots (
	id                  BIGSERIAL PRIMARY KEY,
	doctor_id           UUID NOT NULL REFERENCES doctors (id) ON DELETE CASCADE,
	start_time          TIMESTAMPTZ NOT NULL,
	end_time            TIMESTAMPTZ NOT NULL,
	is_booked           BOOLEAN NOT NULL DEFAULT false,
	recurrence_pattern  TEXT,
	recurrence_end_date TIMESTAMPTZ,
	series_id           UUID,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT availability_slots_time_range CHECK (start_time < end_time)
);
CREATE INDEX IF NOT EXISTS availability_slots_doctor_idx ON availability_slots (doctor_id, start_time);
CREATE INDEX IF NOT EXISTS availability_slots_series_idx ON availability_slots (series_id);`

// The partial unique index is the storage level form of "one active
// appointment per slot".
const createAppointmentsTable = `
CREATE TABLE IF NOT EXISTS appointments (
	id         BIGSERIAL PRIMARY KEY,
	slot_id    BIGINT NOT NULL REFERENCES availability_slots (id) ON DELETE CASCADE,
	patient_id UUID NOT NULL REFERENCES patients (id),
	date       TIMESTAMPTZ NOT NULL,
	status     TEXT NOT NULL CHECK (status IN ('Scheduled', 'Completed', 'Cancelled')),
	visit_id   BIGINT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS appointments_active_slot_uidx ON appointments (slot_id) WHERE status <> 'Cancelled';
CREATE INDEX IF NOT EXISTS appointments_patient_idx ON appointments (patient_id);`

const createNotificationsTable = `
CREATE TABLE IF NOT EXISTS notifications (
	id         BIGSERIAL PRIMARY KEY,
	title      TEXT NOT NULL,
	message    TEXT NOT NULL,
	type       TEXT NOT NULL,
	is_global  BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const createUserNotificationsTable = `
CREATE TABLE IF NOT EXISTS user_notifications (
	id              BIGSERIAL PRIMARY KEY,
	user_id         TEXT NOT NULL,
	notification_id BIGINT NOT NULL REFERENCES notifications (id) ON DELETE CASCADE,
	is_read         BOOLEAN NOT NULL DEFAULT false
);
CREATE INDEX IF NOT EXISTS user_notifications_user_idx ON user_notifications (user_id, is_read);`
