package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-appointment-booking/internal/db"
)

const appointmentColumns = `id, slot_id, patient_id, date, status, visit_id, created_at, updated_at`

// slotForeignKey is the name Postgres gives the appointments.slot_id reference.
const slotForeignKey = "appointments_slot_id_fkey"

type PgRepository struct {
	q db.Querier
}

func NewPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{q: q}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string

	err := row.Scan(
		&a.ID,
		&a.SlotID,
		&a.PatientID,
		&a.Date,
		&status,
		&a.VisitID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Status = Status(status)
	return &a, nil
}

// Interface methods

func (r *PgRepository) Create(ctx context.Context, a *Appointment) error {
	row := r.q.QueryRow(ctx, `
		INSERT INTO appointments (slot_id, patient_id, date, status, visit_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING `+appointmentColumns,
		a.SlotID, a.PatientID, a.Date, string(a.Status), a.VisitID)

	created, err := scanAppointment(row)
	if err != nil {
		switch {
		case db.IsUniqueViolation(err):
			return ErrSlotAlreadyHasAppointment
		case db.IsForeignKeyViolation(err) && db.ConstraintName(err) == slotForeignKey:
			return ErrInvalidSlot
		case db.IsForeignKeyViolation(err):
			return fmt.Errorf("%w: %s", ErrPatientNotFound, a.PatientID)
		}
		return fmt.Errorf("insert appointment: %w", err)
	}

	*a = *created
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) LockByID(ctx context.Context, id int64) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetLatestBySlot(ctx context.Context, slotID int64) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE slot_id = $1
		ORDER BY id DESC
		LIMIT 1
	`, slotID)
	return scanAppointment(row)
}

func (r *PgRepository) HasActiveForSlot(ctx context.Context, slotID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE slot_id = $1 AND status <> 'Cancelled'
		)
	`, slotID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active appointment: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) Update(ctx context.Context, a *Appointment) error {
	row := r.q.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    date = $3,
		    visit_id = $4,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns,
		a.ID, string(a.Status), a.Date, a.VisitID)

	updated, err := scanAppointment(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrSlotAlreadyHasAppointment
		}
		return err
	}

	*a = *updated
	return nil
}

func (r *PgRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}
