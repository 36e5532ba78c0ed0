package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures the full configuration surface for the application.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Bland     BlandConfig     `mapstructure:"bland"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Summary   SummaryConfig   `mapstructure:"summary"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Scylla    ScyllaConfig    `mapstructure:"scylla"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	Version  string `mapstructure:"version"`
	LogLevel string `mapstructure:"log_level"`
}

type HTTPConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// BlandConfig describes the remote calling API.
type BlandConfig struct {
	Provider         string        `mapstructure:"provider"`
	BaseURL          string        `mapstructure:"base_url"`
	APIKey           string        `mapstructure:"api_key"`
	DefaultPathwayID string        `mapstructure:"default_pathway_id"`
	DefaultModel     string        `mapstructure:"default_model"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	MockSuccessRate  float64       `mapstructure:"mock_success_rate"`
	MockLatency      time.Duration `mapstructure:"mock_latency"`
	MockSeed         int64         `mapstructure:"mock_seed"`
}

// DispatchConfig controls batch pacing.
type DispatchConfig struct {
	Mode            string        `mapstructure:"mode"`
	PacingDelay     time.Duration `mapstructure:"pacing_delay"`
	FailureCooldown time.Duration `mapstructure:"failure_cooldown"`
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
	DefaultRegion   string        `mapstructure:"default_region"`
	SlotTTL         time.Duration `mapstructure:"slot_ttl"`
}

type SummaryConfig struct {
	RequestsPerSecond float64    `mapstructure:"requests_per_second"`
	Burst             int        `mapstructure:"burst"`
	Goal              string     `mapstructure:"goal"`
	Questions         [][]string `mapstructure:"questions"`
}

type PostgresConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	InitSchema      bool          `mapstructure:"init_schema"`
}

type ScyllaConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Hosts       []string      `mapstructure:"hosts"`
	Port        int           `mapstructure:"port"`
	Keyspace    string        `mapstructure:"keyspace"`
	Consistency string        `mapstructure:"consistency"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Replication int           `mapstructure:"replication"`
	InitSchema  bool          `mapstructure:"init_schema"`
}

type KafkaConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	ClientID    string   `mapstructure:"client_id"`
	ResultTopic string   `mapstructure:"result_topic"`
	Partitions  int      `mapstructure:"partitions"`
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

type TelemetryConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	SampleRatio     float64       `mapstructure:"sample_ratio"`
	TracingEnabled  bool          `mapstructure:"tracing_enabled"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

const envPrefix = "CALLDISPATCH"

// Load reads configuration from an optional file, a .env file and environment variables.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to read .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(NewEnvReplacer())
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config: failed to read config file: %w", err)
			}
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal config: %w", err)
	}

	applyLegacyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that every command depends on.
func (c *Config) Validate() error {
	if c.Bland.Provider != "mock" && c.Bland.APIKey == "" {
		return fmt.Errorf("config: bland.api_key is required (set %s_BLAND_API_KEY or BLAND_API_KEY)", envPrefix)
	}
	switch c.Dispatch.Mode {
	case "sequential", "concurrent":
	default:
		return fmt.Errorf("config: dispatch.mode must be sequential or concurrent, got %q", c.Dispatch.Mode)
	}
	if c.Dispatch.PacingDelay < 0 || c.Dispatch.FailureCooldown < 0 {
		return fmt.Errorf("config: dispatch delays must not be negative")
	}
	return nil
}

// NewEnvReplacer standardizes environment variable names.
func NewEnvReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_", "-", "_")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "call-dispatch")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.log_level", "")

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)

	v.SetDefault("bland.provider", "bland")
	v.SetDefault("bland.base_url", "https://api.bland.ai")
	v.SetDefault("bland.api_key", "")
	v.SetDefault("bland.default_pathway_id", "")
	v.SetDefault("bland.default_model", "")
	v.SetDefault("bland.request_timeout", 30*time.Second)
	v.SetDefault("bland.mock_success_rate", 0.9)
	v.SetDefault("bland.mock_latency", 200*time.Millisecond)
	v.SetDefault("bland.mock_seed", 0)

	v.SetDefault("dispatch.mode", "sequential")
	v.SetDefault("dispatch.pacing_delay", 20*time.Second)
	v.SetDefault("dispatch.failure_cooldown", 60*time.Second)
	v.SetDefault("dispatch.max_concurrency", 0)
	v.SetDefault("dispatch.default_region", "US")
	v.SetDefault("dispatch.slot_ttl", 5*time.Minute)

	v.SetDefault("summary.requests_per_second", 1.0)
	v.SetDefault("summary.burst", 1)
	v.SetDefault("summary.goal", "")
	v.SetDefault("summary.questions", [][]string{})

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.database", "call_dispatch")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 1)
	v.SetDefault("postgres.max_conn_lifetime", time.Hour)
	v.SetDefault("postgres.max_conn_idle_time", 10*time.Minute)
	v.SetDefault("postgres.init_schema", true)

	v.SetDefault("scylla.enabled", false)
	v.SetDefault("scylla.hosts", []string{"localhost"})
	v.SetDefault("scylla.port", 9042)
	v.SetDefault("scylla.keyspace", "call_dispatch")
	v.SetDefault("scylla.consistency", "quorum")
	v.SetDefault("scylla.timeout", 5*time.Second)
	v.SetDefault("scylla.replication", 1)
	v.SetDefault("scylla.init_schema", true)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.client_id", "call-dispatch")
	v.SetDefault("kafka.result_topic", "call-dispatch.results")
	v.SetDefault("kafka.partitions", 6)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 1)
	v.SetDefault("redis.max_retries", 3)

	v.SetDefault("telemetry.endpoint", "localhost:4318")
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.shutdown_timeout", 5*time.Second)
}

// applyLegacyEnv honours the variable names used by the older scripts.
func applyLegacyEnv(cfg *Config) {
	if cfg.Bland.APIKey == "" {
		cfg.Bland.APIKey = os.Getenv("BLAND_API_KEY")
	}
	if cfg.Bland.DefaultPathwayID == "" {
		cfg.Bland.DefaultPathwayID = os.Getenv("PATHWAY_ID")
	}
}
