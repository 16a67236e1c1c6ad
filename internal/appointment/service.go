package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/availability"
	"github.com/hackgods/clinic-appointment-booking/internal/metrics"
	"github.com/hackgods/clinic-appointment-booking/internal/notification"
	redisclient "github.com/hackgods/clinic-appointment-booking/internal/redis"
)

// Notifier receives the events of committed units of work.
type Notifier interface {
	Notify(ctx context.Context, events []notification.Event)
}

type Service struct {
	store    Store
	locker   redisclient.Locker
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

// NewService wires the booking core. locker may be nil, in which case the
// slot row lock of the store is the only serialization.
func NewService(store Store, locker redisclient.Locker, notifier Notifier, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		locker:   locker,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// BookSlot creates an appointment for a free slot and marks the slot booked
// in the same unit of work. The doctor is notified after commit; a failed
// notification does not undo the booking.
func (s *Service) BookSlot(ctx context.Context, req BookingRequest) (*Appointment, error) {
	start := s.now()
	appt, events, err := s.book(ctx, req)
	metrics.BookingDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.BookingsTotal.WithLabelValues(bookingResult(err)).Inc()
		s.log.Info("booking rejected",
			zap.Int64("slot_id", req.SlotID),
			zap.String("patient_id", req.PatientID.String()),
			zap.Error(err))
		return nil, err
	}

	metrics.BookingsTotal.WithLabelValues(metrics.ResultBooked).Inc()
	s.log.Info("slot booked",
		zap.Int64("slot_id", appt.SlotID),
		zap.Int64("appointment_id", appt.ID),
		zap.String("patient_id", appt.PatientID.String()))

	s.notifier.Notify(ctx, events)
	return appt, nil
}

// book runs the booking unit of work and returns the events to publish once
// it has committed.
func (s *Service) book(ctx context.Context, req BookingRequest) (*Appointment, []notification.Event, error) {
	if req.PatientID == uuid.Nil {
		return nil, nil, ErrPatientRequired
	}
	if req.SlotID <= 0 {
		return nil, nil, ErrInvalidSlot
	}

	status := req.Status
	if status == "" {
		status = StatusScheduled
	}
	if !status.Active() {
		// A booking that starts out cancelled would flag the slot booked
		// without an active appointment behind it.
		return nil, nil, fmt.Errorf("%w: cannot book with status %q", ErrInvalidStatus, status)
	}

	var (
		created *Appointment
		slot    *availability.Slot
	)

	run := func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
			var err error
			slot, err = uow.Slots.LockByID(ctx, req.SlotID)
			if err != nil {
				if errors.Is(err, availability.ErrSlotNotFound) {
					return ErrInvalidSlot
				}
				return fmt.Errorf("load slot: %w", err)
			}

			if slot.IsBooked {
				return ErrSlotAlreadyBooked
			}

			// The booked flag is a cache of this fact; check the record too
			// in case the two ever diverged.
			existing, err := uow.Appointments.GetLatestBySlot(ctx, slot.ID)
			if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
				return fmt.Errorf("check slot appointment: %w", err)
			}
			if existing != nil && existing.Status.Active() {
				return ErrSlotAlreadyHasAppointment
			}

			date := req.Date
			if date.IsZero() {
				date = slot.StartTime
			}

			appt := &Appointment{
				SlotID:    slot.ID,
				PatientID: req.PatientID,
				Date:      date,
				Status:    status,
			}
			if err := uow.Appointments.Create(ctx, appt); err != nil {
				return err
			}

			if err := uow.Slots.SetBooked(ctx, slot.ID, true); err != nil {
				return fmt.Errorf("mark slot booked: %w", err)
			}

			created = appt
			return nil
		})
	}

	var err error
	if s.locker != nil {
		err = s.locker.WithSlotLock(ctx, req.SlotID, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return nil, nil, classify(err)
	}

	events := []notification.Event{{
		Type:          notification.EventAppointmentBooked,
		DoctorID:      slot.DoctorID,
		AppointmentID: created.ID,
		SlotID:        slot.ID,
		Title:         "New appointment",
		Message: fmt.Sprintf("A patient booked your slot on %s.",
			slot.StartTime.Format("2006-01-02 15:04")),
		OccurredAt: s.now(),
	}}

	return created, events, nil
}

// SetStatus applies a status transition. Cancelling releases the slot in the
// same unit of work, which is the only way a slot becomes bookable again.
func (s *Service) SetStatus(ctx context.Context, id int64, next Status) (*Appointment, error) {
	if !next.Valid() {
		return nil, ErrInvalidStatus
	}

	var (
		updated *Appointment
		prev    Status
		slot    *availability.Slot
	)

	err := s.store.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		var err error
		slot, updated, err = lockAppointment(ctx, uow, id)
		if err != nil {
			return err
		}

		prev = updated.Status
		if !CanTransition(prev, next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, prev, next)
		}

		updated.Status = next
		if err := uow.Appointments.Update(ctx, updated); err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}

		if next == StatusCancelled {
			if err := uow.Slots.SetBooked(ctx, slot.ID, false); err != nil {
				return fmt.Errorf("release slot: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	metrics.StatusTransitions.WithLabelValues(string(prev), string(next)).Inc()
	s.log.Info("appointment status changed",
		zap.Int64("appointment_id", id),
		zap.String("from", string(prev)),
		zap.String("to", string(next)))

	s.notifier.Notify(ctx, []notification.Event{{
		Type:          notification.EventAppointmentStatusChanged,
		DoctorID:      slot.DoctorID,
		AppointmentID: updated.ID,
		SlotID:        slot.ID,
		Title:         "Appointment " + string(next),
		Message: fmt.Sprintf("The appointment on %s is now %s.",
			slot.StartTime.Format("2006-01-02 15:04"), next),
		OccurredAt: s.now(),
	}})

	return updated, nil
}

// lockAppointment locks the slot before the appointment, the same order a
// booking takes them in.
func lockAppointment(ctx context.Context, uow UnitOfWork, id int64) (*availability.Slot, *Appointment, error) {
	appt, err := uow.Appointments.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	slot, err := uow.Slots.LockByID(ctx, appt.SlotID)
	if err != nil {
		return nil, nil, fmt.Errorf("load slot %d: %w", appt.SlotID, err)
	}

	appt, err = uow.Appointments.LockByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return slot, appt, nil
}

func (s *Service) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	appt, err := s.store.Appointments().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

// DeleteAppointment removes an appointment administratively. Deleting an
// active appointment frees its slot.
func (s *Service) DeleteAppointment(ctx context.Context, id int64) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		slot, appt, err := lockAppointment(ctx, uow, id)
		if err != nil {
			return err
		}

		if err := uow.Appointments.Delete(ctx, id); err != nil {
			return err
		}

		if appt.Status.Active() {
			if err := uow.Slots.SetBooked(ctx, slot.ID, false); err != nil {
				return fmt.Errorf("release slot: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return classify(err)
	}

	s.log.Info("appointment deleted", zap.Int64("appointment_id", id))
	return nil
}

// ReconcileSlots rewrites booked flags that disagree with the appointment
// records and returns how many slots were repaired.
func (s *Service) ReconcileSlots(ctx context.Context) (int, error) {
	ids, err := s.store.DivergentSlotIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("find divergent slots: %w", err)
	}

	repaired := 0
	for _, id := range ids {
		var fixed bool
		err := s.store.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
			slot, err := uow.Slots.LockByID(ctx, id)
			if err != nil {
				return err
			}

			active, err := uow.Appointments.HasActiveForSlot(ctx, id)
			if err != nil {
				return err
			}
			if slot.IsBooked == active {
				return nil
			}

			fixed = true
			return uow.Slots.SetBooked(ctx, id, active)
		})
		if errors.Is(err, availability.ErrSlotNotFound) {
			continue
		}
		if err != nil {
			return repaired, fmt.Errorf("reconcile slot %d: %w", id, err)
		}

		if fixed {
			repaired++
			metrics.SlotsReconciled.Inc()
			s.log.Warn("slot booked flag repaired", zap.Int64("slot_id", id))
		}
	}

	return repaired, nil
}

// classify keeps domain errors as they are and marks everything else as a
// failed unit of work the caller may retry.
func classify(err error) error {
	switch {
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		return ErrSlotBeingBooked
	case errors.Is(err, ErrInvalidSlot),
		errors.Is(err, ErrSlotAlreadyBooked),
		errors.Is(err, ErrSlotAlreadyHasAppointment),
		errors.Is(err, ErrAppointmentNotFound),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidStatusTransition),
		errors.Is(err, ErrPatientRequired),
		errors.Is(err, ErrPatientNotFound):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
}

func bookingResult(err error) string {
	switch {
	case IsConflict(err):
		return metrics.ResultConflict
	case errors.Is(err, ErrTransactionFailed):
		return metrics.ResultFailed
	default:
		return metrics.ResultInvalid
	}
}
