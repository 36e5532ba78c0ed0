package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/acme/call-dispatch/internal/domain"
	"github.com/acme/call-dispatch/internal/metrics"
	"github.com/acme/call-dispatch/internal/telephony"
	apperrors "github.com/acme/call-dispatch/pkg/errors"
	"github.com/acme/call-dispatch/pkg/logger"
)

// Mode selects how a batch is scheduled.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeConcurrent Mode = "concurrent"
)

// ParseMode validates a configured mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSequential, ModeConcurrent:
		return Mode(s), nil
	case "":
		return ModeSequential, nil
	}
	return "", fmt.Errorf("%w: unknown dispatch mode %q", apperrors.ErrValidation, s)
}

// ResultSink receives every result as soon as its item reaches a terminal state.
type ResultSink interface {
	RecordResult(ctx context.Context, batchID uuid.UUID, position int, result domain.CallResult) error
}

// SlotLimiter bounds in-flight calls across processes.
type SlotLimiter interface {
	Acquire(ctx context.Context, scope string, limit int) (bool, error)
	Release(ctx context.Context, scope string) error
}

// Dispatcher applies one shared call configuration to every item of a batch.
type Dispatcher struct {
	caller telephony.Caller
	job    *BatchJob

	pacing         time.Duration
	cooldown       time.Duration
	maxConcurrency int

	limiter   SlotLimiter
	slotScope string
	slotLimit int
	slotPoll  time.Duration

	sinks  []ResultSink
	logger *logger.Logger
	sleep  func(context.Context, time.Duration) error
	tracer trace.Tracer

	mu     sync.Mutex
	states []domain.ItemState
	status domain.BatchStatus
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPacing sets the pause before every dispatch after the first.
func WithPacing(d time.Duration) Option {
	return func(disp *Dispatcher) { disp.pacing = d }
}

// WithFailureCooldown sets the pause that follows a failed item. It replaces
// the pacing delay when it is longer.
func WithFailureCooldown(d time.Duration) Option {
	return func(disp *Dispatcher) { disp.cooldown = d }
}

// WithMaxConcurrency caps in-flight calls in concurrent mode. Zero means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(disp *Dispatcher) { disp.maxConcurrency = n }
}

// WithSlotLimiter shares a concurrency budget with other processes in concurrent mode.
func WithSlotLimiter(l SlotLimiter, scope string, limit int) Option {
	return func(disp *Dispatcher) {
		disp.limiter = l
		disp.slotScope = scope
		disp.slotLimit = limit
	}
}

// WithSinks registers result sinks for incremental flushing.
func WithSinks(sinks ...ResultSink) Option {
	return func(disp *Dispatcher) { disp.sinks = append(disp.sinks, sinks...) }
}

func WithLogger(lg *logger.Logger) Option {
	return func(disp *Dispatcher) {
		if lg != nil {
			disp.logger = lg
		}
	}
}

// WithSleep replaces the blocking pause, for tests.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(disp *Dispatcher) {
		if fn != nil {
			disp.sleep = fn
		}
	}
}

// New builds a dispatcher for job using caller for every item.
func New(caller telephony.Caller, job *BatchJob, opts ...Option) (*Dispatcher, error) {
	if caller == nil {
		return nil, fmt.Errorf("%w: dispatcher needs a caller", apperrors.ErrValidation)
	}
	if job == nil {
		return nil, fmt.Errorf("%w: dispatcher needs a batch job", apperrors.ErrValidation)
	}

	d := &Dispatcher{
		caller:   caller,
		job:      job,
		logger:   logger.Nop(),
		sleep:    sleepContext,
		slotPoll: 50 * time.Millisecond,
		tracer:   otel.Tracer("calldispatch.dispatcher"),
		states:   make([]domain.ItemState, job.Len()),
		status:   domain.BatchStatusPending,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(zap.String("batch_id", job.ID().String()))
	for i := range d.states {
		d.states[i] = domain.ItemStatePending
	}
	return d, nil
}

// Job returns the batch being dispatched.
func (d *Dispatcher) Job() *BatchJob { return d.job }

// Run dispatches the batch in the given mode.
func (d *Dispatcher) Run(ctx context.Context, mode Mode) []domain.CallResult {
	if mode == ModeConcurrent {
		return d.RunConcurrent(ctx)
	}
	return d.RunSequential(ctx)
}

// RunSequential dispatches items one at a time in input order. Only one call
// is ever in flight. Failures become error records and the loop continues.
func (d *Dispatcher) RunSequential(ctx context.Context) []domain.CallResult {
	ctx, span := d.tracer.Start(ctx, "dispatcher.run_sequential", trace.WithAttributes(
		attribute.String("batch.id", d.job.ID().String()),
		attribute.Int("batch.size", d.job.Len()),
	))
	defer span.End()

	d.begin()
	defer d.finish()

	results := make([]domain.CallResult, d.job.Len())
	prevFailed := false
	for i, item := range d.job.items {
		if i > 0 {
			delay := d.pacing
			if prevFailed && d.cooldown > delay {
				delay = d.cooldown
			}
			if err := d.sleep(ctx, delay); err != nil {
				d.logger.Debug("dispatcher: pause interrupted", zap.Error(err))
			}
		}

		results[i] = d.dispatch(ctx, i, item)
		prevFailed = !results[i].Succeeded()
	}
	return results
}

// RunConcurrent dispatches every item at once, bounded only by the configured
// caps, and returns results re-aligned to input order.
func (d *Dispatcher) RunConcurrent(ctx context.Context) []domain.CallResult {
	ctx, span := d.tracer.Start(ctx, "dispatcher.run_concurrent", trace.WithAttributes(
		attribute.String("batch.id", d.job.ID().String()),
		attribute.Int("batch.size", d.job.Len()),
		attribute.Int("max_concurrency", d.maxConcurrency),
	))
	defer span.End()

	d.begin()
	defer d.finish()

	results := make([]domain.CallResult, d.job.Len())

	var g errgroup.Group
	if d.maxConcurrency > 0 {
		g.SetLimit(d.maxConcurrency)
	}
	for i, item := range d.job.items {
		i, item := i, item
		g.Go(func() error {
			release, err := d.waitForSlot(ctx)
			if err != nil {
				results[i] = d.fail(ctx, i, item, fmt.Errorf("wait for call slot: %w", err))
				return nil
			}
			defer release()
			results[i] = d.dispatch(ctx, i, item)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Snapshot reports the current per-item states and batch status.
func (d *Dispatcher) Snapshot() ([]domain.ItemState, domain.BatchStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	states := make([]domain.ItemState, len(d.states))
	copy(states, d.states)
	return states, d.status
}

func (d *Dispatcher) dispatch(ctx context.Context, i int, item domain.WorkItem) domain.CallResult {
	if err := ctx.Err(); err != nil {
		return d.fail(ctx, i, item, fmt.Errorf("batch cancelled before dispatch: %w", err))
	}

	d.setState(i, domain.ItemStateDispatching)

	cctx, span := d.tracer.Start(ctx, "dispatcher.item", trace.WithAttributes(
		attribute.Int("position", i),
		attribute.String("phone", item.PhoneNumber),
	))
	defer span.End()

	payload, err := d.caller.PlaceCall(cctx, d.job.request(i))
	if err != nil {
		span.RecordError(err)
		return d.fail(ctx, i, item, err)
	}

	result := domain.SuccessResult(item.PhoneNumber, payload)
	d.setState(i, domain.ItemStateSucceeded)
	metrics.IncCallsPlaced()
	d.logger.Info("dispatcher: call placed",
		zap.Int("position", i),
		zap.String("phone", item.PhoneNumber),
		zap.String("call_id", result.CallID()),
	)
	d.flush(ctx, i, result)
	return result
}

func (d *Dispatcher) fail(ctx context.Context, i int, item domain.WorkItem, err error) domain.CallResult {
	result := domain.FailureResult(item.PhoneNumber, err)
	d.setState(i, domain.ItemStateFailed)
	metrics.IncCallsFailed()
	d.logger.Warn("dispatcher: call failed",
		zap.Int("position", i),
		zap.String("phone", item.PhoneNumber),
		zap.Error(err),
	)
	d.flush(ctx, i, result)
	return result
}

// flush hands the result to every sink. Sink errors never affect the batch.
func (d *Dispatcher) flush(ctx context.Context, i int, result domain.CallResult) {
	for _, sink := range d.sinks {
		if err := sink.RecordResult(context.WithoutCancel(ctx), d.job.ID(), i, result); err != nil {
			d.logger.Error("dispatcher: record result", zap.Int("position", i), zap.Error(err))
		}
	}
}

func (d *Dispatcher) waitForSlot(ctx context.Context) (func(), error) {
	noop := func() {}
	if d.limiter == nil || d.slotLimit <= 0 {
		return noop, nil
	}

	for {
		acquired, err := d.limiter.Acquire(ctx, d.slotScope, d.slotLimit)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if acquired {
			release := func() {
				if err := d.limiter.Release(context.Background(), d.slotScope); err != nil {
					d.logger.Warn("dispatcher: release slot", zap.Error(err))
				}
			}
			return release, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d.slotPoll):
		}
	}
}

func (d *Dispatcher) begin() {
	d.mu.Lock()
	for i := range d.states {
		d.states[i] = domain.ItemStatePending
	}
	d.status = domain.BatchStatusRunning
	d.mu.Unlock()

	metrics.BatchStarted()
	d.logger.Info("dispatcher: batch started", zap.Int("items", d.job.Len()))
}

func (d *Dispatcher) finish() {
	d.mu.Lock()
	d.status = domain.BatchStatusComplete
	succeeded, failed := 0, 0
	for _, s := range d.states {
		if s == domain.ItemStateSucceeded {
			succeeded++
		} else {
			failed++
		}
	}
	d.mu.Unlock()

	metrics.BatchCompleted()
	d.logger.Info("dispatcher: batch complete", zap.Int("succeeded", succeeded), zap.Int("failed", failed))
}

func (d *Dispatcher) setState(i int, state domain.ItemState) {
	d.mu.Lock()
	d.states[i] = state
	d.mu.Unlock()
}

// Tally counts successes and failures in a result list.
func Tally(results []domain.CallResult) (succeeded, failed int) {
	for _, r := range results {
		if r.Succeeded() {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
