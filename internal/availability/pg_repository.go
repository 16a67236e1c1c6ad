package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-appointment-booking/internal/db"
)

const slotColumns = `id, doctor_id, start_time, end_time, is_booked, recurrence_pattern, recurrence_end_date, series_id, created_at, updated_at`

type PgRepository struct {
	q db.TxBeginner
}

// NewPgRepository works on a pool or inside a transaction.
func NewPgRepository(q db.TxBeginner) *PgRepository {
	return &PgRepository{q: q}
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	var pattern *string

	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.StartTime,
		&s.EndTime,
		&s.IsBooked,
		&pattern,
		&s.RecurrenceEndDate,
		&s.SeriesID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	if pattern != nil {
		p := Pattern(*pattern)
		s.RecurrencePattern = &p
	}
	return &s, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id int64) (*Slot, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

// LockByID loads the slot and holds its row lock until the surrounding
// transaction ends. Outside a transaction it behaves like GetByID.
func (r *PgRepository) LockByID(ctx context.Context, id int64) (*Slot, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) SetBooked(ctx context.Context, id int64, booked bool) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE availability_slots
		SET is_booked = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, booked)
	if err != nil {
		return fmt.Errorf("set slot booked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// CreateSlots inserts all slots or none of them.
func (r *PgRepository) CreateSlots(ctx context.Context, slots []Slot) ([]Slot, error) {
	tx, err := r.q.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create slots: %w", err)
	}
	defer tx.Rollback(ctx)

	created := make([]Slot, 0, len(slots))
	for _, s := range slots {
		var pattern *string
		if s.RecurrencePattern != nil {
			p := string(*s.RecurrencePattern)
			pattern = &p
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO availability_slots (doctor_id, start_time, end_time, is_booked, recurrence_pattern, recurrence_end_date, series_id, created_at, updated_at)
			VALUES ($1, $2, $3, false, $4, $5, $6, now(), now())
			RETURNING `+slotColumns,
			s.DoctorID, s.StartTime, s.EndTime, pattern, s.RecurrenceEndDate, s.SeriesID)

		slot, err := scanSlot(row)
		if err != nil {
			if db.IsForeignKeyViolation(err) {
				return nil, fmt.Errorf("%w: %s", ErrDoctorNotFound, s.DoctorID)
			}
			return nil, fmt.Errorf("insert slot: %w", err)
		}
		created = append(created, *slot)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create slots: %w", err)
	}
	return created, nil
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Slot, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE doctor_id = $1
		ORDER BY start_time, id
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) Reschedule(ctx context.Context, id int64, start, end time.Time) (*Slot, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE availability_slots
		SET start_time = $2,
		    end_time = $3,
		    updated_at = now()
		WHERE id = $1
		  AND is_booked = false
		RETURNING `+slotColumns,
		id, start, end)

	slot, err := scanSlot(row)
	if errors.Is(err, ErrSlotNotFound) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrSlotBooked
	}
	return slot, err
}

// Delete removes the slot; dependent appointments go with it through the
// foreign key cascade.
func (r *PgRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM availability_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}
