package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-booking/internal/appointment"
	"github.com/hackgods/clinic-appointment-booking/internal/availability"
)

type CreateAppointmentRequest struct {
	SlotID    int64      `json:"slot_id" validate:"required,gt=0"`
	PatientID string     `json:"patient_id" validate:"required,uuid"`
	Date      *time.Time `json:"date,omitempty"`
	Status    string     `json:"status,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type CreateAvailabilityRequest struct {
	DoctorID          string    `json:"doctor_id" validate:"required,uuid"`
	StartTime         time.Time `json:"start_time" validate:"required"`
	EndTime           time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	RecurrencePattern string    `json:"recurrence_pattern,omitempty"`
	RecurrenceEndDate *Date     `json:"recurrence_end_date,omitempty"`
}

type RescheduleRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
}

type AppointmentResponse struct {
	ID        int64     `json:"id"`
	SlotID    int64     `json:"slot_id"`
	PatientID uuid.UUID `json:"patient_id"`
	Date      time.Time `json:"date"`
	Status    string    `json:"status"`
	VisitID   *int64    `json:"visit_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SlotResponse struct {
	ID                int64      `json:"id"`
	DoctorID          uuid.UUID  `json:"doctor_id"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           time.Time  `json:"end_time"`
	IsBooked          bool       `json:"is_booked"`
	RecurrencePattern string     `json:"recurrence_pattern,omitempty"`
	RecurrenceEndDate *Date      `json:"recurrence_end_date,omitempty"`
	SeriesID          *uuid.UUID `json:"series_id,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		SlotID:    a.SlotID,
		PatientID: a.PatientID,
		Date:      a.Date,
		Status:    string(a.Status),
		VisitID:   a.VisitID,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toSlotResponse(s availability.Slot) SlotResponse {
	resp := SlotResponse{
		ID:                s.ID,
		DoctorID:          s.DoctorID,
		StartTime:         s.StartTime,
		EndTime:           s.EndTime,
		IsBooked:          s.IsBooked,
		RecurrenceEndDate: datePtr(s.RecurrenceEndDate),
		SeriesID:          s.SeriesID,
	}
	if s.RecurrencePattern != nil {
		resp.RecurrencePattern = string(*s.RecurrencePattern)
	}
	return resp
}

func toSlotResponses(slots []availability.Slot) []SlotResponse {
	resp := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		resp = append(resp, toSlotResponse(s))
	}
	return resp
}
