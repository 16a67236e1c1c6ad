package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/metrics"
)

const (
	statusSent   = "sent"
	statusFailed = "failed"
)

// Dispatcher delivers post-commit events. Delivery never reports back to the
// operation that produced the events; failures end up in the log and in
// metrics only.
type Dispatcher struct {
	directory Directory
	sink      Sink
	log       *zap.Logger
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewDispatcher(directory Directory, sink Sink, log *zap.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		directory: directory,
		sink:      sink,
		log:       log,
		timeout:   timeout,
	}
}

// Notify delivers events in the background. The caller's cancellation does
// not abort delivery, the dispatcher timeout does.
func (d *Dispatcher) Notify(ctx context.Context, events []Event) {
	if len(events) == 0 {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		_ = d.Dispatch(sendCtx, events)
	}()
}

// Dispatch delivers events one by one and returns every failure joined.
func (d *Dispatcher) Dispatch(ctx context.Context, events []Event) error {
	var errs []error
	for _, ev := range events {
		if err := d.deliver(ctx, ev); err != nil {
			metrics.NotificationsSent.WithLabelValues(string(ev.Type), statusFailed).Inc()
			d.log.Warn("notification delivery failed",
				zap.String("type", string(ev.Type)),
				zap.Int64("appointment_id", ev.AppointmentID),
				zap.String("doctor_id", ev.DoctorID.String()),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		metrics.NotificationsSent.WithLabelValues(string(ev.Type), statusSent).Inc()
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) error {
	userID, err := d.directory.OwningUserID(ctx, ev.DoctorID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	return d.sink.NotifyUser(ctx, userID, ev.Title, ev.Message, string(ev.Type))
}

// Wait blocks until background deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
