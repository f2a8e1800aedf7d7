// Package config loads the forecast and ingestion configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"oil-forecast/internal/domain"
	"oil-forecast/internal/forecast"
	"oil-forecast/internal/probability"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "OILFC_"

// Source types.
const (
	SourceYahoo      = "yahoo"
	SourceCSV        = "csv"
	SourcePostgres   = "postgres"
	SourceClickHouse = "clickhouse"
	SourceFixtures   = "fixtures"
)

// Config is the full run configuration.
type Config struct {
	StartDate            string  `yaml:"start_date" default:"2015-01-01" validate:"required,datetime=2006-01-02"`
	SymbolBrent          string  `yaml:"symbol_brent" default:"BZ=F" validate:"required"`
	SymbolWTI            string  `yaml:"symbol_wti" default:"CL=F" validate:"required,nefield=SymbolBrent"`
	ProbabilityThreshold float64 `yaml:"probability_threshold" default:"0.57" validate:"gte=0.5,lte=1"`
	AdjustmentPolicy     string  `yaml:"adjustment_policy" default:"narrow" validate:"oneof=narrow wide"`
	OutputPath           string  `yaml:"output_path" default:"oil_forecast_output.txt" validate:"required"`
	OutputFormat         string  `yaml:"output_format" default:"text" validate:"oneof=text markdown"`

	Source     SourceConfig   `yaml:"source"`
	Yahoo      YahooConfig    `yaml:"yahoo"`
	Postgres   DatabaseConfig `yaml:"postgres"`
	ClickHouse DatabaseConfig `yaml:"clickhouse"`
	Cache      CacheConfig    `yaml:"cache"`
	Log        LogConfig      `yaml:"log"`
	Metrics    MetricsConfig  `yaml:"metrics"`
	Tracing    TracingConfig  `yaml:"tracing"`
}

// SourceConfig selects where quotes come from.
type SourceConfig struct {
	Type string    `yaml:"type" default:"yahoo" validate:"oneof=yahoo csv postgres clickhouse fixtures"`
	CSV  CSVConfig `yaml:"csv"`
}

// CSVConfig holds one date,close file per symbol.
type CSVConfig struct {
	BrentPath string `yaml:"brent_path"`
	WTIPath   string `yaml:"wti_path"`
}

// YahooConfig configures the chart API client.
type YahooConfig struct {
	BaseURL    string        `yaml:"base_url" default:"https://query1.finance.yahoo.com" validate:"required,url"`
	Timeout    time.Duration `yaml:"timeout" default:"30s" validate:"gt=0"`
	MaxRetries int           `yaml:"max_retries" default:"3" validate:"gte=0,lte=10"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"1s" validate:"gte=0"`
}

// DatabaseConfig holds a connection string.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// CacheConfig configures the quote cache. An empty RedisURL disables it.
type CacheConfig struct {
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl" default:"6h" validate:"gt=0"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	Output string `yaml:"output" default:"stderr" validate:"required"`
}

// MetricsConfig configures the Pushgateway. An empty URL disables pushing.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" validate:"omitempty,url"`
	Job            string `yaml:"job" default:"oil_forecast" validate:"required"`
}

// TracingConfig configures OTLP span export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint" default:"localhost:4317"`
	ServiceName string `yaml:"service_name" default:"oil-forecast"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Default returns the configuration with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads a YAML file on top of the defaults and validates the result.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadWithEnv is Load with OILFC_* environment variables applied before
// validation.
func LoadWithEnv(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func read(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"START_DATE":        &c.StartDate,
		"SYMBOL_BRENT":      &c.SymbolBrent,
		"SYMBOL_WTI":        &c.SymbolWTI,
		"ADJUSTMENT_POLICY": &c.AdjustmentPolicy,
		"OUTPUT_PATH":       &c.OutputPath,
		"OUTPUT_FORMAT":     &c.OutputFormat,
		"SOURCE":            &c.Source.Type,
		"YAHOO_BASE_URL":    &c.Yahoo.BaseURL,
		"POSTGRES_DSN":      &c.Postgres.DSN,
		"CLICKHOUSE_DSN":    &c.ClickHouse.DSN,
		"REDIS_URL":         &c.Cache.RedisURL,
		"LOG_LEVEL":         &c.Log.Level,
		"LOG_FORMAT":        &c.Log.Format,
		"PUSHGATEWAY_URL":   &c.Metrics.PushgatewayURL,
		"OTLP_ENDPOINT":     &c.Tracing.Endpoint,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "PROBABILITY_THRESHOLD"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sPROBABILITY_THRESHOLD: %w", EnvPrefix, err)
		}
		c.ProbabilityThreshold = f
	}
	if v, ok := lookup(EnvPrefix + "TRACING_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sTRACING_ENABLED: %w", EnvPrefix, err)
		}
		c.Tracing.Enabled = b
	}
	return nil
}

// Validate checks field constraints and the rules that span several fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, errorMessage(fe))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Source.Type {
	case SourceCSV:
		if c.Source.CSV.BrentPath == "" || c.Source.CSV.WTIPath == "" {
			return fmt.Errorf("invalid config: source.csv.brent_path and source.csv.wti_path are required for the csv source")
		}
	case SourcePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("invalid config: postgres.dsn is required for the postgres source")
		}
	case SourceClickHouse:
		if c.ClickHouse.DSN == "" {
			return fmt.Errorf("invalid config: clickhouse.dsn is required for the clickhouse source")
		}
	}
	return nil
}

func errorMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "datetime":
		return fmt.Sprintf("%s must be a date in %s format", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed on %s", field, fe.Tag())
	}
}

// StartTime returns StartDate as a UTC date.
func (c *Config) StartTime() (time.Time, error) {
	return domain.ParseDate(c.StartDate)
}

// ForecastSettings converts the configuration into engine settings.
func (c *Config) ForecastSettings() (forecast.Settings, error) {
	policy, err := probability.ParsePolicy(c.AdjustmentPolicy)
	if err != nil {
		return forecast.Settings{}, err
	}
	return forecast.Settings{
		Policy:    policy,
		Threshold: decimal.NewFromFloat(c.ProbabilityThreshold),
	}, nil
}
