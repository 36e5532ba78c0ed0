package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acme/call-dispatch/internal/dispatcher"
	"github.com/acme/call-dispatch/internal/domain"
	"github.com/acme/call-dispatch/internal/phone"
	"github.com/acme/call-dispatch/internal/repository"
	"github.com/acme/call-dispatch/internal/telephony"
	apperrors "github.com/acme/call-dispatch/pkg/errors"
	"github.com/acme/call-dispatch/pkg/logger"
)

// Settings carries the dispatch defaults applied to every batch.
type Settings struct {
	Mode             dispatcher.Mode
	Pacing           time.Duration
	FailureCooldown  time.Duration
	MaxConcurrency   int
	Region           string
	DefaultPathwayID string
	DefaultModel     string

	SlotLimiter dispatcher.SlotLimiter
	SlotScope   string
	SlotLimit   int
}

// Input describes one batch. An empty Mode uses the configured one.
type Input struct {
	Items    []domain.WorkItem
	Template domain.CallRequest
	Mode     dispatcher.Mode
}

// Service runs batches and, when a store is configured, records them.
type Service struct {
	caller   telephony.Caller
	store    repository.BatchStore
	sinks    []dispatcher.ResultSink
	settings Settings
	logger   *logger.Logger
	sleep    func(context.Context, time.Duration) error

	wg sync.WaitGroup
}

// NewService builds the batch service. store may be nil; extra sinks receive
// every result after the store does.
func NewService(caller telephony.Caller, store repository.BatchStore, sinks []dispatcher.ResultSink, settings Settings, lg *logger.Logger) *Service {
	if lg == nil {
		lg = logger.Nop()
	}
	if settings.Mode == "" {
		settings.Mode = dispatcher.ModeSequential
	}
	return &Service{
		caller:   caller,
		store:    store,
		sinks:    sinks,
		settings: settings,
		logger:   lg,
	}
}

// HasStore reports whether batch runs are persisted.
func (s *Service) HasStore() bool {
	return s.store != nil
}

// Run dispatches the batch and blocks until every item has a result.
func (s *Service) Run(ctx context.Context, input Input) (*domain.BatchRun, []domain.CallResult, error) {
	d, run, mode, err := s.prepare(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	results := s.execute(ctx, d, run, mode)
	return run, results, nil
}

// Start records the run and dispatches it in the background. It needs a
// store so the outcome can be fetched later with Get.
func (s *Service) Start(ctx context.Context, input Input) (*domain.BatchRun, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: batch store is not configured", apperrors.ErrUnavailable)
	}
	d, run, mode, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	snapshot := *run
	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(bg, d, run, mode)
	}()
	return &snapshot, nil
}

// Wait blocks until every background batch has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Get returns a stored run with its results in input order.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.BatchRun, []domain.StoredResult, error) {
	if s.store == nil {
		return nil, nil, fmt.Errorf("%w: batch store is not configured", apperrors.ErrUnavailable)
	}
	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	results, err := s.store.ListResults(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return run, results, nil
}

func (s *Service) prepare(ctx context.Context, input Input) (*dispatcher.Dispatcher, *domain.BatchRun, dispatcher.Mode, error) {
	mode := s.settings.Mode
	if input.Mode != "" {
		parsed, err := dispatcher.ParseMode(string(input.Mode))
		if err != nil {
			return nil, nil, "", err
		}
		mode = parsed
	}

	items := input.Items
	if s.settings.Region != "" {
		items = phone.NormalizeItems(items, s.settings.Region, s.logger)
	}
	template := input.Template.WithDefaults(s.settings.DefaultPathwayID, s.settings.DefaultModel)

	job, err := dispatcher.NewBatchJob(items, template)
	if err != nil {
		return nil, nil, "", err
	}

	sinks := make([]dispatcher.ResultSink, 0, len(s.sinks)+1)
	if s.store != nil {
		sinks = append(sinks, s.store)
	}
	sinks = append(sinks, s.sinks...)

	opts := []dispatcher.Option{
		dispatcher.WithPacing(s.settings.Pacing),
		dispatcher.WithFailureCooldown(s.settings.FailureCooldown),
		dispatcher.WithMaxConcurrency(s.settings.MaxConcurrency),
		dispatcher.WithSinks(sinks...),
		dispatcher.WithLogger(s.logger),
	}
	if s.settings.SlotLimiter != nil {
		opts = append(opts, dispatcher.WithSlotLimiter(s.settings.SlotLimiter, s.settings.SlotScope, s.settings.SlotLimit))
	}
	if s.sleep != nil {
		opts = append(opts, dispatcher.WithSleep(s.sleep))
	}

	d, err := dispatcher.New(s.caller, job, opts...)
	if err != nil {
		return nil, nil, "", err
	}

	run := &domain.BatchRun{
		ID:         job.ID(),
		Mode:       string(mode),
		Task:       template.Task,
		PathwayID:  template.PathwayID,
		TotalItems: job.Len(),
		Status:     domain.BatchStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	if s.store != nil {
		if err := s.store.CreateRun(ctx, run); err != nil {
			return nil, nil, "", fmt.Errorf("%w: record batch run: %v", apperrors.ErrUnavailable, err)
		}
	}
	return d, run, mode, nil
}

func (s *Service) execute(ctx context.Context, d *dispatcher.Dispatcher, run *domain.BatchRun, mode dispatcher.Mode) []domain.CallResult {
	results := d.Run(ctx, mode)

	succeeded, failed := dispatcher.Tally(results)
	completed := time.Now().UTC()
	run.Succeeded = succeeded
	run.Failed = failed
	run.Status = domain.BatchStatusComplete
	run.CompletedAt = &completed

	if s.store != nil {
		if err := s.store.CompleteRun(context.WithoutCancel(ctx), run.ID, succeeded, failed, completed); err != nil {
			s.logger.Error("batch: complete run", zap.String("batch_id", run.ID.String()), zap.Error(err))
		}
	}
	return results
}
