package availability

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/metrics"
)

var ErrDoctorRequired = errors.New("doctor id is required")

type Service struct {
	repo Repository
	log  *zap.Logger
}

func NewService(repo Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// CreateAvailability stores one slot, or the whole series when a recurrence
// pattern is given. Either every slot of the series is stored or none is.
func (s *Service) CreateAvailability(ctx context.Context, req CreateRequest) ([]Slot, error) {
	if req.DoctorID == uuid.Nil {
		return nil, ErrDoctorRequired
	}

	seq, err := Occurrences(req)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateSlots(ctx, slices.Collect(seq))
	if err != nil {
		return nil, fmt.Errorf("create availability: %w", err)
	}

	metrics.SlotsCreated.Add(float64(len(created)))
	s.log.Info("availability created",
		zap.String("doctor_id", req.DoctorID.String()),
		zap.String("pattern", string(req.RecurrencePattern)),
		zap.Int("slots", len(created)))

	return created, nil
}

func (s *Service) GetSlot(ctx context.Context, id int64) (*Slot, error) {
	slot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return slot, nil
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Slot, error) {
	slots, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list availability by doctor: %w", err)
	}
	return slots, nil
}

// Reschedule moves an unbooked slot. Booked slots keep their times so the
// appointment referencing them stays truthful.
func (s *Service) Reschedule(ctx context.Context, id int64, start, end time.Time) (*Slot, error) {
	if !start.Before(end) {
		return nil, ErrInvalidTimeRange
	}

	slot, err := s.repo.Reschedule(ctx, id, start, end)
	if err != nil {
		return nil, fmt.Errorf("reschedule slot: %w", err)
	}
	return slot, nil
}

func (s *Service) DeleteSlot(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	s.log.Info("availability deleted", zap.Int64("slot_id", id))
	return nil
}
