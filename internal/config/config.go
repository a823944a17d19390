package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config aggregates all service configuration sections
type Config struct {
	Service    Service
	Pipeline   Pipeline
	Source     Source
	SQS        SQS
	ClickHouse ClickHouse
	Signals    Signals
}

// Service holds process-level settings
type Service struct {
	Environment string `envconfig:"SERVICE_ENVIRONMENT" required:"true"`
	APIPort     string `envconfig:"SERVICE_API_PORT" default:"8080"`
	Host        string `envconfig:"SERVICE_HOST" default:"localhost:8080"`
	StatusPort  string `envconfig:"PIPELINE_STATUS_PORT" default:"8081"`
}

// Pipeline holds windowing, correlation and retry settings
type Pipeline struct {
	WindowSize          time.Duration `envconfig:"PIPELINE_WINDOW_SIZE" default:"5m"`
	GracePeriod         time.Duration `envconfig:"PIPELINE_GRACE_PERIOD" default:"2m"`
	CorrelationInterval time.Duration `envconfig:"PIPELINE_CORRELATION_INTERVAL" default:"1m"`
	SignalTypes         []string      `envconfig:"PIPELINE_SIGNAL_TYPES" default:"weather,market,news"`
	BaselineWindowCount int           `envconfig:"PIPELINE_BASELINE_WINDOW_COUNT" default:"12"`
	AnomalyThresholdPct float64       `envconfig:"PIPELINE_ANOMALY_THRESHOLD_PCT" default:"25"`
	RetryMaxAttempts    int           `envconfig:"PIPELINE_RETRY_MAX_ATTEMPTS" default:"5"`
	RetryBackoffBase    time.Duration `envconfig:"PIPELINE_RETRY_BACKOFF_BASE" default:"500ms"`
	SinkRetryAttempts   int           `envconfig:"PIPELINE_SINK_RETRY_ATTEMPTS" default:"3"`
}

// Source selects and configures the event source
type Source struct {
	Mode         string        `envconfig:"SOURCE_MODE" default:"sim"`
	SimSeed      int64         `envconfig:"SOURCE_SIM_SEED" default:"0"`
	SimInterval  time.Duration `envconfig:"SOURCE_SIM_INTERVAL" default:"1s"`
	SimLimit     int           `envconfig:"SOURCE_SIM_LIMIT" default:"0"`
	SimCustomers int           `envconfig:"SOURCE_SIM_CUSTOMERS" default:"1000"`
}

// SQS holds queue settings for the SQS-backed source and the dead-letter path
type SQS struct {
	Endpoint      string `envconfig:"SQS_ENDPOINT"`
	QueueURL      string `envconfig:"SQS_QUEUE_URL"`
	DeadLetterURL string `envconfig:"SQS_DEAD_LETTER_URL"`
	Region        string `envconfig:"SQS_REGION" default:"us-east-1"`
}

// ClickHouse holds warehouse sink connection settings
type ClickHouse struct {
	Host            string `envconfig:"CLICKHOUSE_HOST" required:"true"`
	Port            string `envconfig:"CLICKHOUSE_PORT" required:"true"`
	Database        string `envconfig:"CLICKHOUSE_DB" required:"true"`
	User            string `envconfig:"CLICKHOUSE_USER" default:""`
	Password        string `envconfig:"CLICKHOUSE_PASSWORD" default:""`
	UseTLS          bool   `envconfig:"CLICKHOUSE_USE_TLS" default:"false"`
	MaxOpenConns    int    `envconfig:"CLICKHOUSE_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int    `envconfig:"CLICKHOUSE_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime int    `envconfig:"CLICKHOUSE_CONN_MAX_LIFETIME_SEC" default:"3600"`
}

// Signals holds external signal fetcher settings. A missing API key switches
// the corresponding fetcher to deterministic local data so the pipeline runs
// without credentials in development.
type Signals struct {
	WeatherAPIKey   string        `envconfig:"OPENWEATHER_API_KEY"`
	WeatherCity     string        `envconfig:"SIGNAL_WEATHER_CITY" default:"New York"`
	WeatherSchedule string        `envconfig:"SIGNAL_WEATHER_SCHEDULE" default:"@every 1m"`
	MarketAPIKey    string        `envconfig:"ALPHA_VANTAGE_API_KEY"`
	MarketSymbol    string        `envconfig:"SIGNAL_MARKET_SYMBOL" default:"SPY"`
	MarketSchedule  string        `envconfig:"SIGNAL_MARKET_SCHEDULE" default:"@every 1m"`
	NewsAPIKey      string        `envconfig:"NEWS_API_KEY"`
	NewsQuery       string        `envconfig:"SIGNAL_NEWS_QUERY" default:"retail shopping"`
	NewsSchedule    string        `envconfig:"SIGNAL_NEWS_SCHEDULE" default:"@every 2m"`
	TTL             time.Duration `envconfig:"SIGNAL_TTL" default:"5m"`
	FetchTimeout    time.Duration `envconfig:"SIGNAL_FETCH_TIMEOUT" default:"5s"`
	MarketBandPct   float64       `envconfig:"SIGNAL_MARKET_BAND_PCT" default:"2"`
	NewsBand        float64       `envconfig:"SIGNAL_NEWS_BAND" default:"0.5"`
}

// Load reads configuration from the environment and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with. A
// non-positive window size here is a programming-level error, not a degraded
// condition.
func (c *Config) Validate() error {
	if c.Pipeline.WindowSize <= 0 {
		return fmt.Errorf("window size must be positive, got %s", c.Pipeline.WindowSize)
	}
	if c.Pipeline.GracePeriod < 0 {
		return fmt.Errorf("grace period must not be negative, got %s", c.Pipeline.GracePeriod)
	}
	if c.Pipeline.CorrelationInterval <= 0 {
		return fmt.Errorf("correlation interval must be positive, got %s", c.Pipeline.CorrelationInterval)
	}
	if c.Pipeline.BaselineWindowCount <= 0 {
		return fmt.Errorf("baseline window count must be positive, got %d", c.Pipeline.BaselineWindowCount)
	}
	for _, raw := range c.Pipeline.SignalTypes {
		if _, err := parseSignalType(raw); err != nil {
			return err
		}
	}
	if c.Source.Mode != "sim" && c.Source.Mode != "sqs" {
		return fmt.Errorf("unsupported source mode: %q (supported: sim, sqs)", c.Source.Mode)
	}
	if c.Source.Mode == "sqs" && c.SQS.QueueURL == "" {
		return fmt.Errorf("SQS_QUEUE_URL is required when SOURCE_MODE=sqs")
	}
	return nil
}

// parseSignalType mirrors domain.ParseSignalType without importing it, to keep
// config a leaf package
func parseSignalType(raw string) (string, error) {
	switch raw {
	case "weather", "market", "news":
		return raw, nil
	}
	return "", fmt.Errorf("unknown signal type in PIPELINE_SIGNAL_TYPES: %q", raw)
}
