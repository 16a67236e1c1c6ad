package availability

import (
	"time"

	"github.com/google/uuid"
)

type Pattern string

const (
	PatternNone     Pattern = "None"
	PatternWeekly   Pattern = "Weekly"
	PatternBiWeekly Pattern = "BiWeekly"
)

// Slot is a bookable interval owned by a doctor. IsBooked mirrors the
// existence of an active appointment for the slot and is only written in the
// same unit of work as that appointment.
type Slot struct {
	ID                int64
	DoctorID          uuid.UUID
	StartTime         time.Time
	EndTime           time.Time
	IsBooked          bool
	RecurrencePattern *Pattern
	RecurrenceEndDate *time.Time
	SeriesID          *uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CreateRequest asks for one slot or a recurring series of slots.
type CreateRequest struct {
	DoctorID          uuid.UUID
	StartTime         time.Time
	EndTime           time.Time
	RecurrencePattern Pattern
	RecurrenceEndDate *time.Time
}
