package appointment

import (
	"context"
	"errors"

	"github.com/hackgods/clinic-appointment-booking/internal/availability"
)

var (
	ErrInvalidSlot               = errors.New("slot does not exist")
	ErrSlotAlreadyBooked         = errors.New("slot is already booked")
	ErrSlotAlreadyHasAppointment = errors.New("slot already has an active appointment")
	ErrSlotBeingBooked           = errors.New("slot is currently being booked")
	ErrAppointmentNotFound       = errors.New("appointment not found")
	ErrInvalidStatus             = errors.New("invalid appointment status")
	ErrInvalidStatusTransition   = errors.New("invalid status transition")
	ErrPatientRequired           = errors.New("patient id is required")
	ErrPatientNotFound           = errors.New("patient not found")
	ErrTransactionFailed         = errors.New("transaction failed")
)

// IsConflict reports errors a client must not retry without re-reading the
// slot.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSlotAlreadyBooked) ||
		errors.Is(err, ErrSlotAlreadyHasAppointment) ||
		errors.Is(err, ErrSlotBeingBooked) ||
		errors.Is(err, ErrInvalidStatusTransition)
}

// Repository persists appointments. It holds no business rules.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	// LockByID is GetByID holding the row until the unit of work ends.
	LockByID(ctx context.Context, id int64) (*Appointment, error)
	// GetLatestBySlot returns the newest appointment for the slot, active or
	// not, or ErrAppointmentNotFound.
	GetLatestBySlot(ctx context.Context, slotID int64) (*Appointment, error)
	HasActiveForSlot(ctx context.Context, slotID int64) (bool, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id int64) error
}

// SlotStore is the part of the availability store the booking core needs.
type SlotStore interface {
	GetByID(ctx context.Context, id int64) (*availability.Slot, error)
	// LockByID serializes writers of the same slot inside a unit of work.
	LockByID(ctx context.Context, id int64) (*availability.Slot, error)
	SetBooked(ctx context.Context, id int64, booked bool) error
}

// UnitOfWork exposes stores whose writes commit or roll back together.
type UnitOfWork struct {
	Slots        SlotStore
	Appointments Repository
}

type Store interface {
	// WithinTx runs fn in one unit of work. Any error from fn, or from the
	// commit, leaves no trace of fn's writes.
	WithinTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
	Appointments() Repository
	// DivergentSlotIDs lists slots whose booked flag disagrees with the
	// existence of an active appointment.
	DivergentSlotIDs(ctx context.Context) ([]int64, error)
}
