package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"oil-forecast/internal/cache"
	"oil-forecast/internal/config"
	"oil-forecast/internal/forecast"
	"oil-forecast/internal/logging"
	"oil-forecast/internal/marketdata"
	"oil-forecast/internal/observability"
	"oil-forecast/internal/pipeline"
	"oil-forecast/internal/reporting"
	chstore "oil-forecast/internal/storage/clickhouse"
	pgstore "oil-forecast/internal/storage/postgres"
	"oil-forecast/internal/tracing"
)

var (
	loadEnvFunc  = godotenv.Load
	newRedis     = cache.NewRedisCache
	now          = func() time.Time { return time.Now().UTC() }
	shutdownWait = 5 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	configPath  string
	envFile     string
	output      string
	format      string
	policy      string
	threshold   float64
	source      string
	startDate   string
	useFixtures bool
}

func parseFlags(args []string) (*flags, error) {
	set := flag.NewFlagSet("forecast", flag.ContinueOnError)
	f := &flags{}
	set.StringVar(&f.configPath, "config", "", "Path to YAML config (defaults apply when empty)")
	set.StringVar(&f.envFile, "env-file", ".env", "Optional .env file with OILFC_* overrides")
	set.StringVar(&f.output, "output", "", "Report output path (overrides output_path)")
	set.StringVar(&f.format, "format", "", "Report format: text or markdown")
	set.StringVar(&f.policy, "policy", "", "Adjustment policy: narrow or wide")
	set.Float64Var(&f.threshold, "threshold", 0, "Probability threshold in [0.5, 1]")
	set.StringVar(&f.source, "source", "", "Data source: yahoo, csv, postgres, clickhouse or fixtures")
	set.StringVar(&f.startDate, "start-date", "", "First date to fetch (YYYY-MM-DD)")
	set.BoolVar(&f.useFixtures, "use-fixtures", false, "Run on built-in demo series instead of a live source")
	if err := set.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func loadConfig(f *flags) (*config.Config, error) {
	if f.envFile != "" {
		if err := loadEnvFunc(f.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	cfg, err := config.LoadWithEnv(f.configPath)
	if err != nil {
		return nil, err
	}

	if f.output != "" {
		cfg.OutputPath = f.output
	}
	if f.format != "" {
		cfg.OutputFormat = f.format
	}
	if f.policy != "" {
		cfg.AdjustmentPolicy = f.policy
	}
	if f.threshold != 0 {
		cfg.ProbabilityThreshold = f.threshold
	}
	if f.source != "" {
		cfg.Source.Type = f.source
	}
	if f.startDate != "" {
		cfg.StartDate = f.startDate
	}
	if f.useFixtures {
		cfg.Source.Type = config.SourceFixtures
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		return err
	}

	tp, tracer, err := tracing.InitTracer(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	settings, err := cfg.ForecastSettings()
	if err != nil {
		return err
	}
	engine, err := forecast.NewEngine(settings)
	if err != nil {
		return err
	}
	engine.WithLogger(logger)

	start, err := cfg.StartTime()
	if err != nil {
		return fmt.Errorf("start date: %w", err)
	}
	symbols := pipeline.Symbols{Brent: cfg.SymbolBrent, WTI: cfg.SymbolWTI}

	source, closeSource, err := buildSource(ctx, cfg, symbols, logger, tracer)
	if err != nil {
		return err
	}
	defer closeSource()

	format, err := reporting.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return err
	}
	writer := reporting.NewFileWriter(cfg.OutputPath).WithFormat(format)

	metrics := observability.NewMetrics("")
	p := pipeline.NewForecastPipeline(engine, source, writer, symbols, start).
		WithClock(now).
		WithLogger(logger).
		WithMetrics(metrics).
		WithTracer(tracer)

	logger.Info().
		Str("policy", string(settings.Policy)).
		Str("threshold", settings.Threshold.String()).
		Str("source", cfg.Source.Type).
		Str("start_date", cfg.StartDate).
		Msg("starting forecast run")

	_, runErr := p.Run(ctx)

	if cfg.Metrics.PushgatewayURL != "" {
		if err := metrics.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			logger.Warn().Err(err).Msg("metrics push failed")
		}
	}

	if runErr != nil {
		return runErr
	}

	logger.Info().Str("path", writer.Path()).Msg("report written")
	fmt.Fprintf(stdout, "[OK] Oil forecast written to %s\n", writer.Path())
	return nil
}

// buildSource returns the configured market data source and a release func.
func buildSource(ctx context.Context, cfg *config.Config, symbols pipeline.Symbols, logger zerolog.Logger, tracer trace.Tracer) (marketdata.Source, func(), error) {
	var (
		source  marketdata.Source
		closers []func()
	)
	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Source.Type {
	case config.SourceFixtures:
		source = marketdata.NewStaticSource(pipeline.FixtureQuotes(symbols))
	case config.SourceCSV:
		source = marketdata.NewCSVSource(map[string]string{
			symbols.Brent: cfg.Source.CSV.BrentPath,
			symbols.WTI:   cfg.Source.CSV.WTIPath,
		})
	case config.SourcePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, release, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		source = marketdata.NewStoreSource(pgstore.NewPriceHistoryStore(pool))
	case config.SourceClickHouse:
		conn, err := chstore.NewConn(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			return nil, release, fmt.Errorf("connect clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		source = marketdata.NewStoreSource(chstore.NewPriceHistoryStore(conn))
	default:
		source = marketdata.NewYahooClient(
			marketdata.WithBaseURL(cfg.Yahoo.BaseURL),
			marketdata.WithTimeout(cfg.Yahoo.Timeout),
			marketdata.WithMaxRetries(cfg.Yahoo.MaxRetries),
			marketdata.WithRetryDelay(cfg.Yahoo.RetryDelay),
			marketdata.WithLogger(logger),
			marketdata.WithTracer(tracer),
		)
	}

	if cfg.Cache.RedisURL != "" && cfg.Source.Type != config.SourceFixtures {
		rc, err := newRedis(ctx, cfg.Cache.RedisURL)
		if err != nil {
			// caching is optional
			logger.Warn().Err(err).Msg("redis unavailable, fetching without cache")
		} else {
			closers = append(closers, func() { rc.Close() })
			source = marketdata.NewCachedSource(source, rc).
				WithTTL(cfg.Cache.TTL).
				WithClock(now).
				WithLogger(logger)
		}
	}

	return source, release, nil
}
