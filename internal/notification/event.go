package notification

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventAppointmentBooked        EventType = "AppointmentBooked"
	EventAppointmentStatusChanged EventType = "AppointmentStatusChanged"
)

// Event is produced by a committed unit of work and addressed to the doctor
// owning the slot. The recipient user id is resolved at dispatch time.
type Event struct {
	Type          EventType
	DoctorID      uuid.UUID
	AppointmentID int64
	SlotID        int64
	Title         string
	Message       string
	OccurredAt    time.Time
}
