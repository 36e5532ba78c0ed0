package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/acme/call-dispatch/internal/config"
	"github.com/acme/call-dispatch/internal/dispatcher"
	"github.com/acme/call-dispatch/internal/infra/db"
	"github.com/acme/call-dispatch/internal/infra/redis"
	"github.com/acme/call-dispatch/internal/queue"
	"github.com/acme/call-dispatch/internal/repository"
	pgrepo "github.com/acme/call-dispatch/internal/repository/postgres"
	scyllarepo "github.com/acme/call-dispatch/internal/repository/scylla"
	batchsvc "github.com/acme/call-dispatch/internal/service/batch"
	"github.com/acme/call-dispatch/internal/service/concurrency"
	summarysvc "github.com/acme/call-dispatch/internal/service/summary"
	"github.com/acme/call-dispatch/internal/telemetry"
	"github.com/acme/call-dispatch/internal/telephony"
	"github.com/acme/call-dispatch/internal/telephony/bland"
	telephonyMock "github.com/acme/call-dispatch/internal/telephony/mock"
	"github.com/acme/call-dispatch/pkg/logger"
)

// Container wires together shared infrastructure dependencies. Every backing
// store is optional and only connected when enabled in config.
type Container struct {
	Config *config.Config
	Logger *logger.Logger

	Postgres *db.Postgres
	Scylla   *db.Scylla
	Redis    *redis.Client
	Kafka    *queue.Kafka

	Client    telephony.Client
	Batches   repository.BatchStore
	Summaries repository.SummaryStore
	Publisher *queue.ResultPublisher
	Limiter   *concurrency.Limiter

	BatchService   *batchsvc.Service
	SummaryService *summarysvc.Service

	shutdownTelemetry telemetry.Shutdown
}

// Build constructs a container for the given configuration path.
func Build(ctx context.Context, configPath string) (*Container, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	lg, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		return nil, err
	}

	c := &Container{Config: cfg, Logger: lg}
	if err := c.bootstrap(ctx); err != nil {
		_ = c.Close(context.Background())
		return nil, err
	}
	return c, nil
}

func (c *Container) bootstrap(ctx context.Context) error {
	cfg := c.Config

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, cfg.App)
	if err != nil {
		return fmt.Errorf("bootstrap telemetry: %w", err)
	}
	c.shutdownTelemetry = shutdown

	c.Client = newClient(cfg.Bland, c.Logger)

	if cfg.Postgres.Enabled {
		pg, err := db.NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("bootstrap postgres: %w", err)
		}
		c.Postgres = pg
		if cfg.Postgres.InitSchema {
			if err := pgrepo.EnsureSchema(ctx, pg.DB()); err != nil {
				return err
			}
		}
		c.Batches = pgrepo.NewBatchRepository(pg.DB())
	}

	if cfg.Scylla.Enabled {
		scylla, err := db.NewScylla(cfg.Scylla)
		if err != nil {
			return fmt.Errorf("bootstrap scylla: %w", err)
		}
		c.Scylla = scylla
		store := scyllarepo.NewSummaryStore(scylla.Session())
		if cfg.Scylla.InitSchema {
			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}
		}
		c.Summaries = store
	}

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("bootstrap redis: %w", err)
		}
		c.Redis = redisClient
		c.Limiter = concurrency.NewLimiter(redisClient.Inner(), cfg.Dispatch.SlotTTL)
	}

	var sinks []dispatcher.ResultSink
	if cfg.Kafka.Enabled {
		kafka, err := queue.NewKafka(cfg.Kafka)
		if err != nil {
			return fmt.Errorf("bootstrap kafka: %w", err)
		}
		c.Kafka = kafka
		if err := kafka.EnsureTopics(ctx, []string{cfg.Kafka.ResultTopic}, cfg.Kafka.Partitions, 1); err != nil {
			return fmt.Errorf("bootstrap kafka: %w", err)
		}
		c.Publisher = queue.NewResultPublisher(kafka, cfg.Kafka.ResultTopic)
		sinks = append(sinks, c.Publisher)
	}

	c.BatchService = batchsvc.NewService(c.Client, c.Batches, sinks, c.batchSettings(), c.Logger)
	c.SummaryService = summarysvc.NewService(c.Client, c.Summaries, cfg.Summary.RequestsPerSecond, cfg.Summary.Burst, c.Logger)
	return nil
}

func (c *Container) batchSettings() batchsvc.Settings {
	cfg := c.Config
	settings := batchsvc.Settings{
		Mode:             dispatcher.Mode(cfg.Dispatch.Mode),
		Pacing:           cfg.Dispatch.PacingDelay,
		FailureCooldown:  cfg.Dispatch.FailureCooldown,
		MaxConcurrency:   cfg.Dispatch.MaxConcurrency,
		Region:           cfg.Dispatch.DefaultRegion,
		DefaultPathwayID: cfg.Bland.DefaultPathwayID,
		DefaultModel:     cfg.Bland.DefaultModel,
	}
	if c.Limiter != nil {
		settings.SlotLimiter = c.Limiter
		settings.SlotScope = cfg.Bland.Provider
		settings.SlotLimit = cfg.Dispatch.MaxConcurrency
	}
	return settings
}

func newClient(cfg config.BlandConfig, lg *logger.Logger) telephony.Client {
	if cfg.Provider == "mock" {
		lg.Warn("using simulated calling provider; no real calls will be placed")
		return telephonyMock.NewProvider(cfg.MockSuccessRate, cfg.MockLatency, cfg.MockSeed)
	}
	return bland.NewClient(cfg, lg)
}

// Close waits for background batches and releases all held resources.
func (c *Container) Close(ctx context.Context) error {
	if c.BatchService != nil {
		c.BatchService.Wait()
	}

	var errs []error
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("result publisher close: %w", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if c.Scylla != nil {
		if err := c.Scylla.Close(); err != nil {
			errs = append(errs, fmt.Errorf("scylla close: %w", err))
		}
	}
	if c.Postgres != nil {
		if err := c.Postgres.Close(); err != nil {
			errs = append(errs, fmt.Errorf("postgres close: %w", err))
		}
	}
	if c.shutdownTelemetry != nil {
		sctx, cancel := context.WithTimeout(ctx, c.Config.Telemetry.ShutdownTimeout)
		defer cancel()
		if err := c.shutdownTelemetry(sctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
	}
	if c.Logger != nil {
		c.Logger.Sync()
	}
	return errors.Join(errs...)
}
