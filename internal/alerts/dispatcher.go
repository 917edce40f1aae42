package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/sudo-init-do/brandwacht/internal/marketplace"
)

// Transport posts and edits chat messages.
type Transport interface {
	Post(ctx context.Context, channel string, msg Message) (marketplace.RenderTarget, error)
	Update(ctx context.Context, target marketplace.RenderTarget, msg Message) error
}

// Recorder counts delivery outcomes. A nil Recorder is allowed.
type Recorder interface {
	NotificationResult(op string, err error)
}

// Enqueuer is the part of asynq.Client the dispatcher uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NotificationError describes a delivery that did not happen.
type NotificationError struct {
	Op        string
	RequestID string
	Channel   string
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification %s for request %s: %v", e.Op, e.RequestID, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// Dispatcher delivers request notifications without holding up the caller.
// In inline mode every delivery runs on its own goroutine; in queue mode the
// goroutine only hands the task to asynq and a worker delivers it.
type Dispatcher struct {
	transport Transport
	channel   string
	appURL    string
	timeout   time.Duration
	mailer    Mailer
	queue     Enqueuer
	metrics   Recorder
	logger    *zap.Logger
	now       func() time.Time

	wg sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMailer sends a confirmation email to the requester after intake.
func WithMailer(m Mailer) Option {
	return func(d *Dispatcher) { d.mailer = m }
}

// WithQueue routes deliveries through asynq.
func WithQueue(q Enqueuer) Option {
	return func(d *Dispatcher) { d.queue = q }
}

// WithMetrics sets the delivery recorder.
func WithMetrics(r Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.metrics = r
		}
	}
}

// NewDispatcher returns a dispatcher posting to channel. timeout bounds each
// delivery independently of the request that triggered it.
func NewDispatcher(t Transport, channel, appURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d := &Dispatcher{
		transport: t,
		channel:   channel,
		appURL:    appURL,
		timeout:   timeout,
		metrics:   nopRecorder{},
		logger:    logger,
		now:       time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Notify announces a new request. It returns immediately.
func (d *Dispatcher) Notify(ctx context.Context, r marketplace.Request) {
	if d.queue != nil {
		d.launch(ctx, OpEnqueue, r.ID, func(ctx context.Context) error {
			return d.enqueue(ctx, TaskRequestCreated, TaskPayload{Request: r})
		})
	} else {
		d.launch(ctx, OpPost, r.ID, func(ctx context.Context) error {
			return d.DeliverCreated(ctx, r)
		})
	}
	if d.mailer == nil || r.Email == "" {
		return
	}
	if d.queue != nil {
		d.launch(ctx, OpEnqueue, r.ID, func(ctx context.Context) error {
			return d.enqueue(ctx, TaskConfirmationEmail, TaskPayload{Request: r})
		})
		return
	}
	d.launch(ctx, OpConfirm, r.ID, func(ctx context.Context) error {
		return d.DeliverConfirmation(ctx, r)
	})
}

// Redraw refreshes the posted card for r. It returns immediately.
func (d *Dispatcher) Redraw(ctx context.Context, r marketplace.Request, target marketplace.RenderTarget) {
	if d.queue != nil {
		d.launch(ctx, OpEnqueue, r.ID, func(ctx context.Context) error {
			return d.enqueue(ctx, TaskRequestRedraw, TaskPayload{Request: r, Target: &target})
		})
		return
	}
	d.launch(ctx, OpUpdate, r.ID, func(ctx context.Context) error {
		return d.DeliverRedraw(ctx, r, target)
	})
}

// DeliverCreated posts the card for a new request.
func (d *Dispatcher) DeliverCreated(ctx context.Context, r marketplace.Request) error {
	ref, err := d.transport.Post(ctx, d.channel, RenderRequest(r, d.appURL))
	if err != nil {
		return err
	}
	d.logger.Debug("request posted",
		zap.String("request_id", r.ID),
		zap.String("channel", ref.Channel),
		zap.String("ts", ref.MessageTS),
	)
	return nil
}

// DeliverRedraw replaces the card at target with r's current state.
func (d *Dispatcher) DeliverRedraw(ctx context.Context, r marketplace.Request, target marketplace.RenderTarget) error {
	return d.transport.Update(ctx, target, RenderRequest(r, d.appURL))
}

// DeliverConfirmation mails the requester a receipt.
func (d *Dispatcher) DeliverConfirmation(ctx context.Context, r marketplace.Request) error {
	if d.mailer == nil {
		return nil
	}
	return d.mailer.Send(ctx, RenderConfirmation(r, d.appURL))
}

// Wait blocks until all in-flight deliveries have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) launch(ctx context.Context, op, requestID string, fn func(context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				d.report(op, requestID, fmt.Errorf("panic: %v", p))
			}
		}()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		d.report(op, requestID, fn(ctx))
	}()
}

func (d *Dispatcher) enqueue(ctx context.Context, taskType string, p TaskPayload) error {
	p.QueuedAt = d.now()
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = d.queue.EnqueueContext(ctx, asynq.NewTask(taskType, b),
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(0),
		asynq.Timeout(d.timeout),
	)
	return err
}

func (d *Dispatcher) report(op, requestID string, err error) {
	d.metrics.NotificationResult(op, err)
	if err == nil {
		return
	}
	nerr := &NotificationError{Op: op, RequestID: requestID, Channel: d.channel, Err: err}
	d.logger.Warn("notification failed",
		zap.String("op", op),
		zap.String("request_id", requestID),
		zap.String("channel", d.channel),
		zap.Error(nerr),
	)
}

type nopRecorder struct{}

func (nopRecorder) NotificationResult(string, error) {}

var _ marketplace.Notifier = (*Dispatcher)(nil)
