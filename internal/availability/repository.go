package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound              = errors.New("availability slot not found")
	ErrSlotBooked                = errors.New("availability slot is booked")
	ErrDoctorNotFound            = errors.New("doctor not found")
	ErrInvalidTimeRange          = errors.New("start time must be before end time")
	ErrUnknownRecurrencePattern  = errors.New("unknown recurrence pattern")
	ErrRecurrenceEndDateRequired = errors.New("recurrence end date is required for recurring availability")
	ErrRecurrenceEndBeforeStart  = errors.New("recurrence end date is before the first occurrence")
	ErrSeriesTooLong             = errors.New("recurrence expands to too many slots")
)

// Repository persists availability slots.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Slot, error)
	SetBooked(ctx context.Context, id int64, booked bool) error

	// Management
	CreateSlots(ctx context.Context, slots []Slot) ([]Slot, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Slot, error)
	Reschedule(ctx context.Context, id int64, start, end time.Time) (*Slot, error)
	Delete(ctx context.Context, id int64) error
}
