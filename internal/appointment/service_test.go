package appointment_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/appointment"
	"github.com/hackgods/clinic-appointment-booking/internal/availability"
	"github.com/hackgods/clinic-appointment-booking/internal/memstore"
	"github.com/hackgods/clinic-appointment-booking/internal/notification"
	redisclient "github.com/hackgods/clinic-appointment-booking/internal/redis"
)

// recordingNotifier collects events instead of delivering them.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (r *recordingNotifier) Notify(_ context.Context, events []notification.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *recordingNotifier) Events() []notification.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification.Event(nil), r.events...)
}

// failingStore injects failures into the unit of work of the wrapped store.
type failingStore struct {
	*memstore.Store
	failSetBooked error
	failCreate    error
}

func (f *failingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, uow appointment.UnitOfWork) error) error {
	return f.Store.WithinTx(ctx, func(ctx context.Context, uow appointment.UnitOfWork) error {
		uow.Slots = failingSlots{SlotStore: uow.Slots, err: f.failSetBooked}
		uow.Appointments = failingAppointments{Repository: uow.Appointments, err: f.failCreate}
		return fn(ctx, uow)
	})
}

type failingSlots struct {
	appointment.SlotStore
	err error
}

func (f failingSlots) SetBooked(ctx context.Context, id int64, booked bool) error {
	if f.err != nil {
		return f.err
	}
	return f.SlotStore.SetBooked(ctx, id, booked)
}

type failingAppointments struct {
	appointment.Repository
	err error
}

func (f failingAppointments) Create(ctx context.Context, a *appointment.Appointment) error {
	if f.err != nil {
		return f.err
	}
	return f.Repository.Create(ctx, a)
}

type busyLocker struct{}

func (busyLocker) WithSlotLock(context.Context, int64, func(context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

type fixture struct {
	store    *memstore.Store
	svc      *appointment.Service
	notifier *recordingNotifier
	doctorID uuid.UUID
}

func setupTestService(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	notifier := &recordingNotifier{}
	return &fixture{
		store:    store,
		svc:      appointment.NewService(store, nil, notifier, zap.NewNop()),
		notifier: notifier,
		doctorID: uuid.New(),
	}
}

func (f *fixture) addSlot(t *testing.T, start time.Time) availability.Slot {
	t.Helper()

	created, err := f.store.CreateSlots(context.Background(), []availability.Slot{{
		DoctorID:  f.doctorID,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
	}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	return created[0]
}

func (f *fixture) slot(t *testing.T, id int64) *availability.Slot {
	t.Helper()

	slot, err := f.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return slot
}

// assertInvariant checks booked == "an active appointment references the slot".
func (f *fixture) assertInvariant(t *testing.T) {
	t.Helper()

	ids, err := f.store.DivergentSlotIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids, "slots with a booked flag out of sync")
}

var slotStart = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func TestBookSlot_Scenario(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	s101 := f.addSlot(t, slotStart)
	p1, p2 := uuid.New(), uuid.New()

	appt, err := f.svc.BookSlot(ctx, appointment.BookingRequest{PatientID: p1, SlotID: s101.ID, Date: slotStart})
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusScheduled, appt.Status)
	assert.Equal(t, s101.ID, appt.SlotID)
	assert.True(t, f.slot(t, s101.ID).IsBooked)
	f.assertInvariant(t)

	_, err = f.svc.BookSlot(ctx, appointment.BookingRequest{PatientID: p2, SlotID: s101.ID, Date: slotStart})
	assert.ErrorIs(t, err, appointment.ErrSlotAlreadyBooked)
	assert.True(t, appointment.IsConflict(err))

	cancelled, err := f.svc.SetStatus(ctx, appt.ID, appointment.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCancelled, cancelled.Status)
	assert.False(t, f.slot(t, s101.ID).IsBooked)
	f.assertInvariant(t)

	second, err := f.svc.BookSlot(ctx, appointment.BookingRequest{PatientID: p2, SlotID: s101.ID, Date: slotStart})
	require.NoError(t, err)
	assert.Equal(t, p2, second.PatientID)
	assert.True(t, f.slot(t, s101.ID).IsBooked)
	f.assertInvariant(t)
}

func TestBookSlot_EmitsEventForDoctor(t *testing.T) {
	f := setupTestService(t)
	slot := f.addSlot(t, slotStart)

	appt, err := f.svc.BookSlot(context.Background(), appointment.BookingRequest{PatientID: uuid.New(), SlotID: slot.ID})
	require.NoError(t, err)

	events := f.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notification.EventAppointmentBooked, events[0].Type)
	assert.Equal(t, f.doctorID, events[0].DoctorID)
	assert.Equal(t, appt.ID, events[0].AppointmentID)
	assert.Equal(t, slot.ID, events[0].SlotID)

	// Zero date falls back to the slot start.
	assert.True(t, appt.Date.Equal(slotStart))
}

func TestBookSlot_InvalidSlot(t *testing.T) {
	f := setupTestService(t)

	_, err := f.svc.BookSlot(context.Background(), appointment.BookingRequest{PatientID: uuid.New(), SlotID: 404})
	assert.ErrorIs(t, err, appointment.ErrInvalidSlot)
	assert.False(t, appointment.IsConflict(err))
	assert.Empty(t, f.notifier.Events())
}

func TestBookSlot_Validation(t *testing.T) {
	f := setupTestService(t)
	slot := f.addSlot(t, slotStart)
	ctx := context.Background()

	_, err := f.svc.BookSlot(ctx, appointment.BookingRequest{SlotID: slot.ID})
	assert.ErrorIs(t, err, appointment.ErrPatientRequired)

	_, err = f.svc.BookSlot(ctx, appointment.BookingRequest{PatientID: uuid.New(), SlotID: slot.ID, Status: appointment.StatusCancelled})
	assert.ErrorIs(t, err, appointment.ErrInvalidStatus)

	_, err = f.svc.BookSlot(ctx, appointment.BookingRequest{PatientID: uuid.New(), SlotID: slot.ID, Status: "Pending"})
	assert.ErrorIs(t, err, appointment.ErrInvalidStatus)

	assert.False(t, f.slot(t, slot.ID).IsBooked)
}

func TestBookSlot_DetectsActiveAppointmentBehindUnbookedFlag(t *testing.T) {
	f := setupTestService(t)
	slot := f.addSlot(t, slotStart)
	ctx := context.Background()

	// Appointment written behind the coordinator's back: flag stays false.
	orphan := &appointment.Appointment{SlotID: slot.ID, PatientID: uuid.New(), Date: slotStart, Status: appointment.StatusScheduled}
	require.NoError(t, f.store.Appointments().Create(ctx, orphan))
	require.False(t, f.slot(t, slot.ID).IsBooked)

	_, err := f.svc.BookSlot(ctx, appointment.BookingRequest{PatientID: uuid.New(), SlotID: slot.ID})
	assert.ErrorIs(t, err, appointment.ErrSlotAlreadyHasAppointment)
	assert.True(t, appointment.IsConflict(err))
}

func TestBookSlot_RollsBackWhenSlotUpdateFails(t *testing.T) {
	base := memstore.New()
	store := &failingStore{Store: base, failSetBooked: errors.New("disk full")}
	notifier := &recordingNotifier{}
	svc := appointment.NewService(store, nil, notifier, zap.NewNop())

	created, err := base.CreateSlots(context.Background(), []availability.Slot{{
		DoctorID: uuid.New(), StartTime: slotStart, EndTime: slotStart.Add(time.Hour),
	}})
	require.NoError(t, err)
	slotID := created[0].ID

	_, err = svc.BookSlot(context.Background(), appointment.BookingRequest{PatientID: uuid.New(), SlotID: slotID})
	require.ErrorIs(t, err, appointment.ErrTransactionFailed)
	assert.False(t, appointment.IsConflict(err))

	// Neither the appointment insert nor the flag survived.
	_, err = base.Appointments().GetLatestBySlot(context.Background(), slotID)
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)

	slot, err := base.GetByID(context.Background(), slotID)
	require.NoError(t, err)
	assert.False(t, slot.IsBooked)
	assert.Empty(t, notifier.Events())
}

func TestBookSlot_RollsBackWhenInsertFails(t *testing.T) {
	base := memstore.New()
	store := &failingStore{Store: base, failCreate: errors.New("connection reset")}
	svc := appointment.NewService(store, nil, &recordingNotifier{}, zap.NewNop())

	created, err := base.CreateSlots(context.Background(), []availability.Slot{{
		DoctorID: uuid.New(), StartTime: slotStart, EndTime: slotStart.Add(time.Hour),
	}})
	require.NoError(t, err)

	_, err = svc.BookSlot(context.Background(), appointment.BookingRequest{PatientID: uuid.New(), SlotID: created[0].ID})
	require.ErrorIs(t, err, appointment.ErrTransactionFailed)

	slot, err := base.GetByID(context.Background(), created[0].ID)
	require.NoError(t, err)
	assert.False(t, slot.IsBooked)
}

func TestBookSlot_ConcurrentRequestsBookOnce(t *testing.T) {
	f := setupTestService(t)
	slot := f.addSlot(t, slotStart)

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			_, err := f.svc.BookSlot(context.Background(), appointment.BookingRequest{PatientID: uuid.New(), SlotID: slot.ID})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case appointment.IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, conflicts)

	active, err := f.store.Appointments().HasActiveForSlot(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.True(t, active)
	f.assertInvariant(t)
}

func TestBookSlot_LockHeldElsewhere(t *testing.T) {
	store := memstore.New()
	svc := appointment.NewService(store, busyLocker{}, &recordingNotifier{}, zap.NewNop())

	created, err := store.CreateSlots(context.Background(), []availability.Slot{{
		DoctorID: uuid.New(), StartTime: slotStart, EndTime: slotStart.Add(time.Hour),
	}})
	require.NoError(t, err)

	_, err = svc.BookSlot(context.Background(), appointment.BookingRequest{PatientID: uuid.New(), SlotID: created[0].ID})
	assert.ErrorIs(t, err, appointment.ErrSlotBeingBooked)
	assert.True(t, appointment.IsConflict(err))
}

func TestSetStatus_Transitions(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	slot := f.addSlot(t, slotStart)

	appt, err := f.svc.BookSlot(ctx, appointment.BookingRequest{PatientID: uuid.New(), SlotID: slot.ID})
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, appt.ID, appointment.StatusScheduled)
	assert.ErrorIs(t, err, appointment.ErrInvalidStatusTransition)

	completed, err := f.svc.SetStatus(ctx, appt.ID, appointment.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCompleted, completed.Status)

	// Completed keeps the slot occupied.
	assert.True(t, f.slot(t, slot.ID).IsBooked)
	f.assertInvariant(t)

	_, err = f.svc.SetStatus(ctx, appt.ID, appointment.StatusCancelled)
	assert.ErrorIs(t, err, appointment.ErrInvalidStatusTransition)
	assert.True(t, f.slot(t, slot.ID).IsBooked)

	events := f.notifier.Events()
	require.Len(t, events, 2)
	assert.Equal(t, notification.EventAppointmentStatusChanged, events[1].Type)
	assert.Equal(t, f.doctorID, events[1].DoctorID)
}

func TestSetStatus_CancelledIsTerminal(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	slot := f.addSlot(t, slotStart)

	appt, err := f.svc.BookSlot(ctx, appointment.BookingRequest{PatientID: uuid.New(), SlotID: slot.ID})
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, appt.ID, appointment.StatusCancelled)
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, appt.ID, appointment.StatusScheduled)
	assert.ErrorIs(t, err, appointment.ErrInvalidStatusTransition)
	assert.False(t, f.slot(t, slot.ID).IsBooked)
}

func TestSetStatus_Errors(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	_, err := f.svc.SetStatus(ctx, 99, appointment.StatusCancelled)
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)

	_, err = f.svc.SetStatus(ctx, 99, "Archived")
	assert.ErrorIs(t, err, appointment.ErrInvalidStatus)
}

func TestSetStatus_RollsBackWhenReleaseFails(t *testing.T) {
	base := memstore.New()
	healthy := appointment.NewService(base, nil, &recordingNotifier{}, zap.NewNop())

	created, err := base.CreateSlots(context.Background(), []availability.Slot{{
		DoctorID: uuid.New(), StartTime: slotStart, EndTime: slotStart.Add(time.Hour),
	}})
	require.NoError(t, err)

	appt, err := healthy.BookSlot(context.Background(), appointment.BookingRequest{PatientID: uuid.New(), SlotID: created[0].ID})
	require.NoError(t, err)

	broken := appointment.NewService(&failingStore{Store: base, failSetBooked: errors.New("timeout")}, nil, &recordingNotifier{}, zap.NewNop())
	_, err = broken.SetStatus(context.Background(), appt.ID, appointment.StatusCancelled)
	require.ErrorIs(t, err, appointment.ErrTransactionFailed)

	got, err := healthy.GetAppointment(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusScheduled, got.Status)

	slot, err := base.GetByID(context.Background(), created[0].ID)
	require.NoError(t, err)
	assert.True(t, slot.IsBooked)
}

func TestDeleteAppointment_ReleasesActiveSlot(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()
	slot := f.addSlot(t, slotStart)

	appt, err := f.svc.BookSlot(ctx, appointment.BookingRequest{PatientID: uuid.New(), SlotID: slot.ID})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteAppointment(ctx, appt.ID))
	assert.False(t, f.slot(t, slot.ID).IsBooked)
	f.assertInvariant(t)

	_, err = f.svc.GetAppointment(ctx, appt.ID)
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)

	err = f.svc.DeleteAppointment(ctx, appt.ID)
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
}

func TestReconcileSlots_RepairsDivergence(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	flaggedOnly := f.addSlot(t, slotStart)
	recordOnly := f.addSlot(t, slotStart.Add(time.Hour))
	healthy := f.addSlot(t, slotStart.Add(2*time.Hour))

	require.NoError(t, f.store.SetBooked(ctx, flaggedOnly.ID, true))
	require.NoError(t, f.store.Appointments().Create(ctx, &appointment.Appointment{
		SlotID: recordOnly.ID, PatientID: uuid.New(), Date: slotStart, Status: appointment.StatusScheduled,
	}))
	_, err := f.svc.BookSlot(ctx, appointment.BookingRequest{PatientID: uuid.New(), SlotID: healthy.ID})
	require.NoError(t, err)

	repaired, err := f.svc.ReconcileSlots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repaired)

	assert.False(t, f.slot(t, flaggedOnly.ID).IsBooked)
	assert.True(t, f.slot(t, recordOnly.ID).IsBooked)
	assert.True(t, f.slot(t, healthy.ID).IsBooked)
	f.assertInvariant(t)

	repaired, err = f.svc.ReconcileSlots(ctx)
	require.NoError(t, err)
	assert.Zero(t, repaired)
}
