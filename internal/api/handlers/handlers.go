package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acme/call-dispatch/internal/domain"
	"github.com/acme/call-dispatch/internal/metrics"
	batchsvc "github.com/acme/call-dispatch/internal/service/batch"
	"github.com/acme/call-dispatch/internal/telephony"
	"github.com/acme/call-dispatch/pkg/logger"
)

// BatchRunner runs and looks up dispatch batches.
type BatchRunner interface {
	HasStore() bool
	Run(ctx context.Context, input batchsvc.Input) (*domain.BatchRun, []domain.CallResult, error)
	Start(ctx context.Context, input batchsvc.Input) (*domain.BatchRun, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.BatchRun, []domain.StoredResult, error)
}

// Summarizer produces and reads call summaries.
type Summarizer interface {
	Summarize(ctx context.Context, startDate, endDate, goal string, questions []domain.AnalysisQuestion) ([]domain.CallSummary, error)
	ForDay(ctx context.Context, day time.Time) ([]domain.CallSummary, error)
}

// HealthCheck pings one backing dependency.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators the handlers need.
type Deps struct {
	Client    telephony.Client
	Batches   BatchRunner
	Summaries Summarizer
	Logger    *logger.Logger

	Region           string
	DefaultPathwayID string
	DefaultModel     string
	AnalysisGoal     string
	Questions        []domain.AnalysisQuestion

	HealthChecks map[string]HealthCheck
}

// HandlerSet bundles all HTTP handlers.
type HandlerSet struct {
	Deps
}

// NewHandlerSet creates a new handler bundle.
func NewHandlerSet(deps Deps) *HandlerSet {
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	return &HandlerSet{Deps: deps}
}

// Register wires all routes onto the fiber app.
func (h *HandlerSet) Register(app *fiber.App) {
	app.Get("/healthz", h.health)
	app.Get("/metrics", h.metrics)

	api := app.Group("/api")
	v1 := api.Group("/v1")

	calls := v1.Group("/calls")
	calls.Post("/", h.placeCall)
	calls.Get("/", h.listCalls)
	calls.Post("/:id/analyze", h.analyzeCall)

	batches := v1.Group("/batches")
	batches.Post("/", h.createBatch)
	batches.Get("/:id", h.getBatch)

	summaries := v1.Group("/summaries")
	summaries.Post("/", h.summarize)
	summaries.Get("/", h.listSummaries)
}

// ErrorHandler provides centralized error responses.
func (h *HandlerSet) ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	if code == fiber.StatusInternalServerError {
		h.Logger.WithContext(ctx.UserContext()).Error("request failed", zap.String("path", ctx.Path()), zap.Error(err))
	}

	return ctx.Status(code).JSON(fiber.Map{"error": message})
}

func (h *HandlerSet) health(ctx *fiber.Ctx) error {
	healthCtx, cancel := context.WithTimeout(ctx.UserContext(), 2*time.Second)
	defer cancel()

	errs := make(map[string]string)
	for name, check := range h.HealthChecks {
		if err := check(healthCtx); err != nil {
			errs[name] = err.Error()
		}
	}

	status, label := fiber.StatusOK, "ok"
	if len(errs) > 0 {
		status, label = fiber.StatusServiceUnavailable, "degraded"
	}
	return ctx.Status(status).JSON(fiber.Map{"status": label, "errors": errs})
}

func (h *HandlerSet) metrics(ctx *fiber.Ctx) error {
	ctx.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
	return ctx.SendString(metrics.PrometheusText())
}
