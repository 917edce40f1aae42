package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// NewMux routes queued notification tasks to d.
func NewMux(d *Dispatcher) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskRequestCreated, d.HandleTask)
	mux.HandleFunc(TaskRequestRedraw, d.HandleTask)
	mux.HandleFunc(TaskConfirmationEmail, d.HandleTask)
	return mux
}

// HandleTask delivers one queued notification. Failures are reported and
// returned; tasks are enqueued without retries so asynq archives them.
func (d *Dispatcher) HandleTask(ctx context.Context, t *asynq.Task) error {
	var p TaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}

	var op string
	var err error
	switch t.Type() {
	case TaskRequestCreated:
		op, err = OpPost, d.DeliverCreated(ctx, p.Request)
	case TaskRequestRedraw:
		if !p.Target.Valid() {
			return fmt.Errorf("redraw %s without target: %w", p.Request.ID, asynq.SkipRetry)
		}
		op, err = OpUpdate, d.DeliverRedraw(ctx, p.Request, *p.Target)
	case TaskConfirmationEmail:
		op, err = OpConfirm, d.DeliverConfirmation(ctx, p.Request)
	default:
		return fmt.Errorf("unknown task type %q: %w", t.Type(), asynq.SkipRetry)
	}
	d.report(op, p.Request.ID, err)
	if err == nil {
		d.logger.Info("notification delivered",
			zap.String("op", op),
			zap.String("request_id", p.Request.ID),
			zap.Duration("queued_for", d.now().Sub(p.QueuedAt)),
		)
	}
	return err
}

// RunWorker consumes the notification queue until ctx is cancelled.
func RunWorker(ctx context.Context, redis asynq.RedisConnOpt, d *Dispatcher, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(redis, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueNotifications: 1},
		Logger:      d.logger.Sugar(),
	})
	if err := srv.Start(NewMux(d)); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	d.logger.Info("notification worker started", zap.Int("concurrency", concurrency))

	<-ctx.Done()
	srv.Shutdown()
	d.logger.Info("notification worker stopped")
	return nil
}
