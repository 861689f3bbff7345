// Package worker runs the background side of the marketplace: the stale
// pending sweep and the notification consumer.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dparkr/dparkr/internal/kafka"
	"github.com/go-co-op/gocron/v2"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Expirer interface {
	ExpireStalePending(ctx context.Context) (int, error)
}

type Sender interface {
	Send(ctx context.Context, event kafka.BookingEvent) error
}

type MessageSource interface {
	Consume(ctx context.Context, handler kafka.Handler) error
}

type Worker struct {
	expirer       Expirer
	sender        Sender
	source        MessageSource
	sweepInterval time.Duration
	log           *zap.Logger
}

// New builds a worker. source may be nil when no notifications topic is configured.
func New(expirer Expirer, sender Sender, source MessageSource, sweepInterval time.Duration, log *zap.Logger) *Worker {
	return &Worker{
		expirer:       expirer,
		sender:        sender,
		source:        source,
		sweepInterval: sweepInterval,
		log:           log.With(zap.String("component", "worker")),
	}
}

// Run blocks until ctx is cancelled or the consumer fails.
func (w *Worker) Run(ctx context.Context) error {
	scheduler, err := w.schedule(ctx)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			w.log.Warn("scheduler shutdown", zap.Error(err))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	if w.source != nil {
		g.Go(func() error {
			return w.source.Consume(gctx, w.HandleMessage)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	return g.Wait()
}

func (w *Worker) schedule(ctx context.Context) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(w.sweepInterval),
		gocron.NewTask(func() { w.Sweep(ctx) }),
		gocron.WithName("expire-stale-pending"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule stale pending sweep: %w", err)
	}
	return scheduler, nil
}

func (w *Worker) Sweep(ctx context.Context) {
	expired, err := w.expirer.ExpireStalePending(ctx)
	if err != nil {
		w.log.Error("stale pending sweep failed", zap.Int("expired", expired), zap.Error(err))
		return
	}
	if expired > 0 {
		w.log.Info("stale pending sweep", zap.Int("expired", expired))
	}
}

// HandleMessage delivers one notification. Undecodable payloads are skipped so
// a single bad message cannot stall the partition.
func (w *Worker) HandleMessage(ctx context.Context, msg kafkago.Message) error {
	event, err := kafka.DecodeBookingEvent(msg)
	if err != nil {
		w.log.Warn("skipping message", zap.Error(err))
		return nil
	}
	if err := w.sender.Send(ctx, event); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("send notification for booking %s: %w", event.BookingID, err)
	}
	return nil
}
