// Package memstore keeps slots and appointments in a go-memdb database. It
// backs the memory store driver and the service tests.
//
// memdb admits one write transaction at a time and readers see committed
// snapshots, which gives the same all-or-nothing and one-writer-per-slot
// guarantees as the Postgres store.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"

	"github.com/hackgods/clinic-appointment-booking/internal/appointment"
	"github.com/hackgods/clinic-appointment-booking/internal/availability"
)

type Store struct {
	db  *memdb.MemDB
	now func() time.Time

	// Ids are not handed back on abort, like Postgres sequences.
	nextSlotID atomic.Int64
	nextApptID atomic.Int64
}

func New() *Store {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		panic(fmt.Sprintf("memstore: invalid schema: %v", err))
	}
	return &Store{db: db, now: time.Now}
}

func (s *Store) read() *unit {
	return &unit{txn: s.db.Txn(false), s: s}
}

// write runs fn in its own write transaction and commits when fn succeeds.
func (s *Store) write(fn func(u *unit) error) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := fn(&unit{txn: txn, s: s}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// WithinTx implements appointment.Store. fn must not call the store's own
// write methods: it already holds the only write transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, uow appointment.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.write(func(u *unit) error {
		if err := fn(ctx, appointment.UnitOfWork{Slots: slotView{u}, Appointments: apptView{u}}); err != nil {
			return err
		}
		return ctx.Err()
	})
}

// Appointments returns a repository that runs each call in its own
// transaction.
func (s *Store) Appointments() appointment.Repository {
	return liveAppointments{s}
}

func (s *Store) DivergentSlotIDs(context.Context) ([]int64, error) {
	u := s.read()

	it, err := u.txn.Get(tableSlots, indexID)
	if err != nil {
		return nil, err
	}

	var ids []int64
	for raw := it.Next(); raw != nil; raw = it.Next() {
		slot := raw.(*availability.Slot)
		active, err := u.activeFor(slot.ID)
		if err != nil {
			return nil, err
		}
		if slot.IsBooked != (active != 0) {
			ids = append(ids, slot.ID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// availability.Repository

func (s *Store) GetByID(_ context.Context, id int64) (*availability.Slot, error) {
	return s.read().slot(id)
}

func (s *Store) SetBooked(ctx context.Context, id int64, booked bool) error {
	return s.write(func(u *unit) error {
		return slotView{u}.SetBooked(ctx, id, booked)
	})
}

func (s *Store) CreateSlots(_ context.Context, slots []availability.Slot) ([]availability.Slot, error) {
	for _, slot := range slots {
		if !slot.StartTime.Before(slot.EndTime) {
			return nil, availability.ErrInvalidTimeRange
		}
	}

	created := make([]availability.Slot, 0, len(slots))
	err := s.write(func(u *unit) error {
		now := s.now()
		for _, slot := range slots {
			slot.ID = s.nextSlotID.Add(1)
			slot.IsBooked = false
			slot.CreatedAt = now
			slot.UpdatedAt = now

			row := slot
			if err := u.txn.Insert(tableSlots, &row); err != nil {
				return err
			}
			created = append(created, slot)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]availability.Slot, error) {
	it, err := s.read().txn.Get(tableSlots, indexDoctor, doctorID)
	if err != nil {
		return nil, err
	}

	var result []availability.Slot
	for raw := it.Next(); raw != nil; raw = it.Next() {
		result = append(result, *raw.(*availability.Slot))
	}
	slices.SortFunc(result, func(a, b availability.Slot) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})
	return result, nil
}

func (s *Store) Reschedule(_ context.Context, id int64, start, end time.Time) (*availability.Slot, error) {
	var moved *availability.Slot
	err := s.write(func(u *unit) error {
		slot, err := u.slot(id)
		if err != nil {
			return err
		}
		if slot.IsBooked {
			return availability.ErrSlotBooked
		}

		slot.StartTime = start
		slot.EndTime = end
		slot.UpdatedAt = s.now()
		if err := u.txn.Insert(tableSlots, slot); err != nil {
			return err
		}

		result := *slot
		moved = &result
		return nil
	})
	return moved, err
}

// Delete removes the slot and every appointment referencing it.
func (s *Store) Delete(_ context.Context, id int64) error {
	return s.write(func(u *unit) error {
		raw, err := u.txn.First(tableSlots, indexID, id)
		if err != nil {
			return err
		}
		if raw == nil {
			return availability.ErrSlotNotFound
		}

		if err := u.txn.Delete(tableSlots, raw); err != nil {
			return err
		}
		_, err = u.txn.DeleteAll(tableAppointments, indexSlot, id)
		return err
	})
}

// liveAppointments adapts the store to appointment.Repository outside a unit
// of work.
type liveAppointments struct {
	s *Store
}

func (l liveAppointments) Create(ctx context.Context, a *appointment.Appointment) error {
	return l.s.write(func(u *unit) error { return apptView{u}.Create(ctx, a) })
}

func (l liveAppointments) GetByID(ctx context.Context, id int64) (*appointment.Appointment, error) {
	return apptView{l.s.read()}.GetByID(ctx, id)
}

func (l liveAppointments) LockByID(ctx context.Context, id int64) (*appointment.Appointment, error) {
	return l.GetByID(ctx, id)
}

func (l liveAppointments) GetLatestBySlot(ctx context.Context, slotID int64) (*appointment.Appointment, error) {
	return apptView{l.s.read()}.GetLatestBySlot(ctx, slotID)
}

func (l liveAppointments) HasActiveForSlot(ctx context.Context, slotID int64) (bool, error) {
	return apptView{l.s.read()}.HasActiveForSlot(ctx, slotID)
}

func (l liveAppointments) Update(ctx context.Context, a *appointment.Appointment) error {
	return l.s.write(func(u *unit) error { return apptView{u}.Update(ctx, a) })
}

func (l liveAppointments) Delete(ctx context.Context, id int64) error {
	return l.s.write(func(u *unit) error { return apptView{u}.Delete(ctx, id) })
}
