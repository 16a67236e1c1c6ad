package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*Slot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Slot), args.Error(1)
}

func (m *MockRepository) SetBooked(ctx context.Context, id int64, booked bool) error {
	args := m.Called(ctx, id, booked)
	return args.Error(0)
}

func (m *MockRepository) CreateSlots(ctx context.Context, slots []Slot) ([]Slot, error) {
	args := m.Called(ctx, slots)
	if fn, ok := args.Get(0).(func([]Slot) []Slot); ok {
		return fn(slots), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Slot), args.Error(1)
}

func (m *MockRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Slot, error) {
	args := m.Called(ctx, doctorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Slot), args.Error(1)
}

func (m *MockRepository) Reschedule(ctx context.Context, id int64, start, end time.Time) (*Slot, error) {
	args := m.Called(ctx, id, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Slot), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// echoCreated returns the slots it was given with sequential ids, the way a
// store assigns them.
func echoCreated(in []Slot) []Slot {
	out := make([]Slot, len(in))
	for i, s := range in {
		s.ID = int64(i + 1)
		out[i] = s
	}
	return out
}

func TestCreateAvailability_StoresWholeSeries(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, zap.NewNop())

	start := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)

	repo.On("CreateSlots", mock.Anything, mock.MatchedBy(func(slots []Slot) bool { return len(slots) == 3 })).
		Return(echoCreated, nil)

	created, err := svc.CreateAvailability(context.Background(), CreateRequest{
		DoctorID:          uuid.New(),
		StartTime:         start,
		EndTime:           start.Add(time.Hour),
		RecurrencePattern: PatternBiWeekly,
		RecurrenceEndDate: &end,
	})
	require.NoError(t, err)
	require.Len(t, created, 3)

	assert.True(t, created[1].StartTime.Equal(start.AddDate(0, 0, 14)))
	assert.True(t, created[2].StartTime.Equal(start.AddDate(0, 0, 28)))
	repo.AssertExpectations(t)
}

func TestCreateAvailability_RejectsBeforeStoring(t *testing.T) {
	start := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		req  CreateRequest
		err  error
	}{
		{
			name: "missing doctor",
			req:  CreateRequest{StartTime: start, EndTime: start.Add(time.Hour)},
			err:  ErrDoctorRequired,
		},
		{
			name: "recurring without end date",
			req:  CreateRequest{DoctorID: uuid.New(), StartTime: start, EndTime: start.Add(time.Hour), RecurrencePattern: PatternWeekly},
			err:  ErrRecurrenceEndDateRequired,
		},
		{
			name: "empty interval",
			req:  CreateRequest{DoctorID: uuid.New(), StartTime: start, EndTime: start},
			err:  ErrInvalidTimeRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			_, err := NewService(repo, zap.NewNop()).CreateAvailability(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.err)
			repo.AssertNotCalled(t, "CreateSlots", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateAvailability_PropagatesStoreFailure(t *testing.T) {
	repo := new(MockRepository)
	failure := errors.New("insert failed")
	repo.On("CreateSlots", mock.Anything, mock.Anything).Return(nil, failure)

	start := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	_, err := NewService(repo, zap.NewNop()).CreateAvailability(context.Background(), CreateRequest{
		DoctorID: uuid.New(), StartTime: start, EndTime: start.Add(time.Hour),
	})
	assert.ErrorIs(t, err, failure)
}

func TestReschedule(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, zap.NewNop())

	start := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

	_, err := svc.Reschedule(context.Background(), 1, start, start.Add(-time.Minute))
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	repo.On("Reschedule", mock.Anything, int64(2), start, start.Add(time.Hour)).Return(nil, ErrSlotBooked)
	_, err = svc.Reschedule(context.Background(), 2, start, start.Add(time.Hour))
	assert.ErrorIs(t, err, ErrSlotBooked)

	repo.AssertNumberOfCalls(t, "Reschedule", 1)
}

func TestDeleteSlot(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Delete", mock.Anything, int64(4)).Return(ErrSlotNotFound)

	err := NewService(repo, zap.NewNop()).DeleteSlot(context.Background(), 4)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}
