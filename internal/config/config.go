package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flexprice/planshift/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment   DeploymentConfig   `mapstructure:"deployment" validate:"required"`
	Server       ServerConfig       `mapstructure:"server" validate:"required"`
	Logging      LoggingConfig      `mapstructure:"logging" validate:"required"`
	Postgres     PostgresConfig     `mapstructure:"postgres"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Notification NotificationConfig `mapstructure:"notification"`
	Billing      BillingConfig      `mapstructure:"billing"`
	Migration    MigrationConfig    `mapstructure:"migration" validate:"required"`
	Risk         RiskConfig         `mapstructure:"risk" validate:"required"`
	Analysis     AnalysisConfig     `mapstructure:"analysis"`
	Lock         LockConfig         `mapstructure:"lock"`
	Temporal     TemporalConfig     `mapstructure:"temporal"`
	Sentry       SentryConfig       `mapstructure:"sentry"`
	Cache        CacheConfig        `mapstructure:"cache"`
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

type PostgresConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port"`
	User                   string `mapstructure:"user"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbname"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
	AutoMigrate            bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	UseTLS   bool          `mapstructure:"use_tls"`
	PoolSize int           `mapstructure:"pool_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	ClientID      string   `mapstructure:"client_id"`
	TLS           bool     `mapstructure:"tls"`
	UseSASL       bool     `mapstructure:"use_sasl"`
	SASLMechanism string   `mapstructure:"sasl_mechanism"`
	SASLUser      string   `mapstructure:"sasl_user"`
	SASLPassword  string   `mapstructure:"sasl_password"`
}

// NotificationConfig configures the customer notification transport
type NotificationConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Topic   string           `mapstructure:"topic"`
	PubSub  types.PubSubType `mapstructure:"pubsub"`
}

// BillingConfig selects and configures the billing gateway adapter
type BillingConfig struct {
	Provider  types.BillingProvider `mapstructure:"provider"`
	Stripe    StripeConfig          `mapstructure:"stripe"`
	Timeout   time.Duration         `mapstructure:"timeout"`
	RateLimit float64               `mapstructure:"rate_limit"`
	// MaxRetries is the number of retries after the first failed attempt
	MaxRetries      uint64        `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
}

type StripeConfig struct {
	SecretKey string `mapstructure:"secret_key"`
}

// MigrationConfig holds the knobs of the migration planner and executor
type MigrationConfig struct {
	DefaultBatchSize int           `mapstructure:"default_batch_size" validate:"min=1"`
	MaxBatchSize     int           `mapstructure:"max_batch_size" validate:"min=1"`
	GradualDelay     time.Duration `mapstructure:"gradual_delay"`
	BatchConcurrency int           `mapstructure:"batch_concurrency" validate:"min=1"`
	LockTTL          time.Duration `mapstructure:"lock_ttl"`
}

// RiskConfig holds the thresholds used to classify impact analyses.
// These are operator configuration, not business rules baked into code.
type RiskConfig struct {
	HighAffectedCount   int     `mapstructure:"high_affected_count" validate:"min=1"`
	MediumAffectedCount int     `mapstructure:"medium_affected_count" validate:"min=1"`
	HighRevenueFraction float64 `mapstructure:"high_revenue_fraction" validate:"gt=0"`
}

// AnalysisConfig bounds the size and cost of impact analyses
type AnalysisConfig struct {
	MaxAffectedIDs int `mapstructure:"max_affected_ids"`
	// UsageConcurrency caps parallel usage lookups of a limits analysis
	UsageConcurrency int `mapstructure:"usage_concurrency" validate:"min=1"`
}

type LockConfig struct {
	Backend types.LockBackend `mapstructure:"backend"`
}

type TemporalConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func NewConfig() (*Configuration, error) {
	// a local .env is optional
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/planshift")

	v.SetEnvPrefix("PLANSHIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()
	v.SetDefault("deployment.mode", d.Deployment.Mode)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("postgres.sslmode", d.Postgres.SSLMode)
	v.SetDefault("postgres.port", d.Postgres.Port)
	v.SetDefault("postgres.max_open_conns", d.Postgres.MaxOpenConns)
	v.SetDefault("postgres.max_idle_conns", d.Postgres.MaxIdleConns)
	v.SetDefault("postgres.conn_max_lifetime_minutes", d.Postgres.ConnMaxLifetimeMinutes)
	v.SetDefault("redis.port", d.Redis.Port)
	v.SetDefault("redis.timeout", d.Redis.Timeout)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("notification.topic", d.Notification.Topic)
	v.SetDefault("notification.pubsub", d.Notification.PubSub)
	v.SetDefault("billing.provider", d.Billing.Provider)
	v.SetDefault("billing.timeout", d.Billing.Timeout)
	v.SetDefault("billing.max_retries", d.Billing.MaxRetries)
	v.SetDefault("billing.initial_interval", d.Billing.InitialInterval)
	v.SetDefault("migration.default_batch_size", d.Migration.DefaultBatchSize)
	v.SetDefault("migration.max_batch_size", d.Migration.MaxBatchSize)
	v.SetDefault("migration.gradual_delay", d.Migration.GradualDelay)
	v.SetDefault("migration.batch_concurrency", d.Migration.BatchConcurrency)
	v.SetDefault("migration.lock_ttl", d.Migration.LockTTL)
	v.SetDefault("risk.high_affected_count", d.Risk.HighAffectedCount)
	v.SetDefault("risk.medium_affected_count", d.Risk.MediumAffectedCount)
	v.SetDefault("risk.high_revenue_fraction", d.Risk.HighRevenueFraction)
	v.SetDefault("analysis.max_affected_ids", d.Analysis.MaxAffectedIDs)
	v.SetDefault("analysis.usage_concurrency", d.Analysis.UsageConcurrency)
	v.SetDefault("lock.backend", d.Lock.Backend)
	v.SetDefault("temporal.namespace", d.Temporal.Namespace)
	v.SetDefault("temporal.task_queue", d.Temporal.TaskQueue)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Risk.MediumAffectedCount > c.Risk.HighAffectedCount {
		return fmt.Errorf("risk.medium_affected_count (%d) must not exceed risk.high_affected_count (%d)",
			c.Risk.MediumAffectedCount, c.Risk.HighAffectedCount)
	}
	if c.Migration.DefaultBatchSize > c.Migration.MaxBatchSize {
		return fmt.Errorf("migration.default_batch_size (%d) must not exceed migration.max_batch_size (%d)",
			c.Migration.DefaultBatchSize, c.Migration.MaxBatchSize)
	}
	return nil
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts, tests or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Postgres: PostgresConfig{
			Port:                   5432,
			SSLMode:                "disable",
			MaxOpenConns:           10,
			MaxIdleConns:           5,
			ConnMaxLifetimeMinutes: 30,
		},
		Redis: RedisConfig{
			Port:     6379,
			PoolSize: 10,
			Timeout:  5 * time.Second,
		},
		Notification: NotificationConfig{
			Topic:  "plan_migration_notifications",
			PubSub: types.MemoryPubSub,
		},
		Billing: BillingConfig{
			Provider:        types.BillingProviderNoop,
			Timeout:         10 * time.Second,
			MaxRetries:      2,
			InitialInterval: 200 * time.Millisecond,
		},
		Migration: MigrationConfig{
			DefaultBatchSize: 50,
			MaxBatchSize:     1000,
			GradualDelay:     time.Minute,
			BatchConcurrency: 4,
			LockTTL:          30 * time.Minute,
		},
		Risk: RiskConfig{
			HighAffectedCount:   500,
			MediumAffectedCount: 50,
			HighRevenueFraction: 0.25,
		},
		Analysis: AnalysisConfig{
			MaxAffectedIDs:   1000,
			UsageConcurrency: 8,
		},
		Lock: LockConfig{Backend: types.LockBackendMemory},
		Temporal: TemporalConfig{
			Namespace: "default",
			TaskQueue: "plan-migrations",
		},
		Cache: CacheConfig{Enabled: true},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}

// Enabled reports whether postgres persistence is configured; without it the
// service falls back to in-memory stores, which is only meant for local runs.
func (c PostgresConfig) Enabled() bool {
	return c.Host != ""
}
