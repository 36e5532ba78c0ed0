package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"

	"github.com/acme/call-dispatch/internal/api/handlers"
	"github.com/acme/call-dispatch/internal/app"
	"github.com/acme/call-dispatch/internal/domain"
)

// Server wraps the Fiber application.
type Server struct {
	app  *fiber.App
	deps *app.Container
}

// NewServer constructs a new HTTP server over the container's services.
func NewServer(deps *app.Container) *Server {
	cfg := deps.Config
	h := handlers.NewHandlerSet(handlers.Deps{
		Client:           deps.Client,
		Batches:          deps.BatchService,
		Summaries:        deps.SummaryService,
		Logger:           deps.Logger,
		Region:           cfg.Dispatch.DefaultRegion,
		DefaultPathwayID: cfg.Bland.DefaultPathwayID,
		DefaultModel:     cfg.Bland.DefaultModel,
		AnalysisGoal:     cfg.Summary.Goal,
		Questions:        domain.QuestionsFromPairs(cfg.Summary.Questions),
		HealthChecks:     healthChecks(deps),
	})

	fiberApp := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		ErrorHandler: h.ErrorHandler,
	})
	fiberApp.Use(otelfiber.Middleware())
	h.Register(fiberApp)

	return &Server{app: fiberApp, deps: deps}
}

// Start begins serving HTTP traffic until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.deps.Config.HTTP.Port)
	go func() {
		<-ctx.Done()
		_ = s.Shutdown()
	}()
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}

func healthChecks(c *app.Container) map[string]handlers.HealthCheck {
	checks := make(map[string]handlers.HealthCheck)
	if c.Postgres != nil {
		checks["postgres"] = func(ctx context.Context) error {
			return c.Postgres.DB().PingContext(ctx)
		}
	}
	if c.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return c.Redis.Inner().Ping(ctx).Err()
		}
	}
	if c.Scylla != nil {
		checks["scylla"] = func(ctx context.Context) error {
			return c.Scylla.Session().Query("SELECT now() FROM system.local").WithContext(ctx).Exec()
		}
	}
	return checks
}
