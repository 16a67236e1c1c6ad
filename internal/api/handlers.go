package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-booking/internal/appointment"
	"github.com/hackgods/clinic-appointment-booking/internal/availability"
)

type AppointmentService interface {
	BookSlot(ctx context.Context, req appointment.BookingRequest) (*appointment.Appointment, error)
	SetStatus(ctx context.Context, id int64, next appointment.Status) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, id int64) (*appointment.Appointment, error)
	DeleteAppointment(ctx context.Context, id int64) error
}

type AvailabilityService interface {
	CreateAvailability(ctx context.Context, req availability.CreateRequest) ([]availability.Slot, error)
	GetSlot(ctx context.Context, id int64) (*availability.Slot, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]availability.Slot, error)
	Reschedule(ctx context.Context, id int64, start, end time.Time) (*availability.Slot, error)
	DeleteSlot(ctx context.Context, id int64) error
}

func createAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		booking := appointment.BookingRequest{
			SlotID:    req.SlotID,
			PatientID: uuid.MustParse(req.PatientID),
		}
		if req.Date != nil {
			booking.Date = *req.Date
		}
		if req.Status != "" {
			status, err := appointment.ParseStatus(req.Status)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
				return
			}
			booking.Status = status
		}

		appt, err := svc.BookSlot(r.Context(), booking)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", err.Error())
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func updateStatusHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", err.Error())
			return
		}

		var req UpdateStatusRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		status, err := appointment.ParseStatus(req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
			return
		}

		appt, err := svc.SetStatus(r.Context(), id, status)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func deleteAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", err.Error())
			return
		}

		if err := svc.DeleteAppointment(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func createAvailabilityHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAvailabilityRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		pattern, err := availability.ParsePattern(req.RecurrencePattern)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_recurrence_pattern", err.Error())
			return
		}

		slots, err := svc.CreateAvailability(r.Context(), availability.CreateRequest{
			DoctorID:          uuid.MustParse(req.DoctorID),
			StartTime:         req.StartTime,
			EndTime:           req.EndTime,
			RecurrencePattern: pattern,
			RecurrenceEndDate: req.RecurrenceEndDate.timePtr(),
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toSlotResponses(slots))
	}
}

func getSlotHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", err.Error())
			return
		}

		slot, err := svc.GetSlot(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponse(*slot))
	}
}

func rescheduleSlotHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", err.Error())
			return
		}

		var req RescheduleRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		slot, err := svc.Reschedule(r.Context(), id, req.StartTime, req.EndTime)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponse(*slot))
	}
}

func deleteSlotHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", err.Error())
			return
		}

		if err := svc.DeleteSlot(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func listDoctorAvailabilityHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		slots, err := svc.ListByDoctor(r.Context(), doctorID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}
