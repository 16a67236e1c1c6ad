package memstore

import (
	"context"

	"github.com/hashicorp/go-memdb"

	"github.com/hackgods/clinic-appointment-booking/internal/appointment"
	"github.com/hackgods/clinic-appointment-booking/internal/availability"
)

// unit is one memdb transaction. Write methods need a write transaction.
type unit struct {
	txn *memdb.Txn
	s   *Store
}

// slotView and apptView expose a unit as the two stores of a unit of work.
type (
	slotView struct{ *unit }
	apptView struct{ *unit }
)

func (u *unit) slot(id int64) (*availability.Slot, error) {
	raw, err := u.txn.First(tableSlots, indexID, id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, availability.ErrSlotNotFound
	}
	slot := *raw.(*availability.Slot)
	return &slot, nil
}

func (u *unit) appointment(id int64) (*appointment.Appointment, error) {
	raw, err := u.txn.First(tableAppointments, indexID, id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, appointment.ErrAppointmentNotFound
	}
	a := *raw.(*appointment.Appointment)
	return &a, nil
}

// activeFor returns the id of the active appointment on the slot, or zero.
func (u *unit) activeFor(slotID int64) (int64, error) {
	raw, err := u.txn.First(tableAppointments, indexActiveSlot, slotID)
	if err != nil || raw == nil {
		return 0, err
	}
	return raw.(*appointment.Appointment).ID, nil
}

func (v slotView) GetByID(_ context.Context, id int64) (*availability.Slot, error) {
	return v.slot(id)
}

// LockByID needs no extra locking: memdb admits one write transaction at a
// time.
func (v slotView) LockByID(ctx context.Context, id int64) (*availability.Slot, error) {
	return v.GetByID(ctx, id)
}

func (v slotView) SetBooked(_ context.Context, id int64, booked bool) error {
	slot, err := v.slot(id)
	if err != nil {
		return err
	}
	slot.IsBooked = booked
	slot.UpdatedAt = v.s.now()
	return v.txn.Insert(tableSlots, slot)
}

func (v apptView) Create(_ context.Context, a *appointment.Appointment) error {
	if _, err := v.slot(a.SlotID); err != nil {
		return err
	}
	if a.Status.Active() {
		active, err := v.activeFor(a.SlotID)
		if err != nil {
			return err
		}
		if active != 0 {
			return appointment.ErrSlotAlreadyHasAppointment
		}
	}

	now := v.s.now()
	row := *a
	row.ID = v.s.nextApptID.Add(1)
	row.CreatedAt = now
	row.UpdatedAt = now
	if err := v.txn.Insert(tableAppointments, &row); err != nil {
		return err
	}
	*a = row
	return nil
}

func (v apptView) GetByID(_ context.Context, id int64) (*appointment.Appointment, error) {
	return v.appointment(id)
}

func (v apptView) LockByID(ctx context.Context, id int64) (*appointment.Appointment, error) {
	return v.GetByID(ctx, id)
}

func (v apptView) GetLatestBySlot(_ context.Context, slotID int64) (*appointment.Appointment, error) {
	it, err := v.txn.Get(tableAppointments, indexSlot, slotID)
	if err != nil {
		return nil, err
	}

	var latest *appointment.Appointment
	for raw := it.Next(); raw != nil; raw = it.Next() {
		a := raw.(*appointment.Appointment)
		if latest == nil || a.ID > latest.ID {
			latest = a
		}
	}
	if latest == nil {
		return nil, appointment.ErrAppointmentNotFound
	}
	found := *latest
	return &found, nil
}

func (v apptView) HasActiveForSlot(_ context.Context, slotID int64) (bool, error) {
	id, err := v.activeFor(slotID)
	return id != 0, err
}

func (v apptView) Update(_ context.Context, a *appointment.Appointment) error {
	current, err := v.appointment(a.ID)
	if err != nil {
		return err
	}
	if a.Status.Active() {
		active, err := v.activeFor(current.SlotID)
		if err != nil {
			return err
		}
		if active != 0 && active != a.ID {
			return appointment.ErrSlotAlreadyHasAppointment
		}
	}

	current.Status = a.Status
	current.Date = a.Date
	current.VisitID = a.VisitID
	current.UpdatedAt = v.s.now()
	if err := v.txn.Insert(tableAppointments, current); err != nil {
		return err
	}
	*a = *current
	return nil
}

func (v apptView) Delete(_ context.Context, id int64) error {
	raw, err := v.txn.First(tableAppointments, indexID, id)
	if err != nil {
		return err
	}
	if raw == nil {
		return appointment.ErrAppointmentNotFound
	}
	return v.txn.Delete(tableAppointments, raw)
}
