package worker

import (
	"context"
	"time"

	"trekko-booking/internal/queue"
	"trekko-booking/internal/usecase"

	"go.uber.org/zap"
)

const (
	expirySweepInterval  = time.Minute
	releaseSweepInterval = 5 * time.Minute
	payoutSweepInterval  = 5 * time.Minute
)

// Worker runs the periodic sweeps that drive the reservation lifecycle
// forward without user action: checkout expiry, contestation window release
// and payout execution. A queue consumer handles the scheduled-payout nudges
// between sweeps.
type Worker struct {
	service  *usecase.Service
	consumer *queue.Consumer
	log      *zap.Logger
}

func New(service *usecase.Service, queueURL string, log *zap.Logger) *Worker {
	w := &Worker{
		service: service,
		log:     log.With(zap.String("component", "worker")),
	}
	w.consumer = queue.NewConsumer(queueURL, w.handlePayoutScheduled, log)
	return w
}

// Run blocks until ctx is cancelled. Each sweep and the consumer run in their
// own goroutine; the sweeps are replay-safe, so overlap with the consumer or
// with another instance is harmless.
func (w *Worker) Run(ctx context.Context) {
	go w.sweep(ctx, expirySweepInterval, "expire_reservations", func(ctx context.Context, now time.Time) (int, error) {
		return w.service.Reservation.ExpireOverdue(ctx, now)
	})
	go w.sweep(ctx, releaseSweepInterval, "release_windows", func(ctx context.Context, now time.Time) (int, error) {
		return w.service.Payout.ReleaseExpiredWindows(ctx, now)
	})
	go w.sweep(ctx, payoutSweepInterval, "process_payouts", func(ctx context.Context, now time.Time) (int, error) {
		return w.service.Payout.ProcessDue(ctx, now)
	})

	w.consumer.Run(ctx)
}

func (w *Worker) sweep(ctx context.Context, interval time.Duration, name string, fn func(context.Context, time.Time) (int, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			count, err := fn(ctx, now)
			if err != nil {
				w.log.Error("Sweep failed",
					zap.String("sweep", name),
					zap.Error(err),
				)
				continue
			}
			if count > 0 {
				w.log.Info("Sweep done",
					zap.String("sweep", name),
					zap.Int("count", count),
				)
			}
		}
	}
}

func (w *Worker) handlePayoutScheduled(ctx context.Context, event queue.PayoutScheduledEvent) error {
	return w.service.Payout.ProcessByID(ctx, event.PayoutID)
}
