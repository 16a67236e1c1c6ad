package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

type Appointment struct {
	ID        int64
	SlotID    int64
	PatientID uuid.UUID
	Date      time.Time
	Status    Status
	VisitID   *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BookingRequest is the input of BookSlot. A zero Date falls back to the
// slot start time and an empty Status to Scheduled.
type BookingRequest struct {
	PatientID uuid.UUID
	SlotID    int64
	Date      time.Time
	Status    Status
}
