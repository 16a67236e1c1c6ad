package appointment

import (
	"context"
	"fmt"

	"github.com/hackgods/clinic-appointment-booking/internal/availability"
	"github.com/hackgods/clinic-appointment-booking/internal/db"
)

// PgStore runs units of work as read committed transactions. Slot rows are
// locked with SELECT ... FOR UPDATE, so two bookings of one slot queue up
// behind each other and the second sees the first one's write.
type PgStore struct {
	pool db.TxBeginner
}

func NewPgStore(pool db.TxBeginner) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) WithinTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	uow := UnitOfWork{
		Slots:        availability.NewPgRepository(tx),
		Appointments: NewPgRepository(tx),
	}

	if err := fn(ctx, uow); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PgStore) Appointments() Repository {
	return NewPgRepository(s.pool)
}

func (s *PgStore) DivergentSlotIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id
		FROM availability_slots s
		WHERE s.is_booked <> EXISTS (
			SELECT 1 FROM appointments a
			WHERE a.slot_id = s.id AND a.status <> 'Cancelled'
		)
		ORDER BY s.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
