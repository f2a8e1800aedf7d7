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
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"oil-forecast/internal/config"
	"oil-forecast/internal/ingestion"
	"oil-forecast/internal/logging"
	"oil-forecast/internal/marketdata"
	"oil-forecast/internal/observability"
	"oil-forecast/internal/storage"
	chstore "oil-forecast/internal/storage/clickhouse"
	"oil-forecast/internal/storage/migrations"
	pgstore "oil-forecast/internal/storage/postgres"
)

// Store backends.
const (
	storePostgres   = "postgres"
	storeClickHouse = "clickhouse"
)

var (
	loadEnvFunc = godotenv.Load
	openStore   = openDatabaseStore
	now         = func() time.Time { return time.Now().UTC() }
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	set := flag.NewFlagSet("ingest", flag.ContinueOnError)
	configPath := set.String("config", "", "Path to YAML config (defaults apply when empty)")
	envFile := set.String("env-file", ".env", "Optional .env file with OILFC_* overrides")
	store := set.String("store", storePostgres, "Target store: postgres or clickhouse")
	source := set.String("source", "", "Quote source: yahoo or csv (defaults to yahoo unless the config names csv)")
	startDate := set.String("start-date", "", "First date for symbols with no stored history (YYYY-MM-DD)")
	symbolsFlag := set.String("symbols", "", "Comma-separated symbols (defaults to the configured Brent and WTI)")
	batchSize := set.Int("batch-size", ingestion.DefaultBatchSize, "Quotes per insert batch")
	if err := set.Parse(args); err != nil {
		return err
	}

	if *envFile != "" {
		if err := loadEnvFunc(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		return err
	}
	if *startDate != "" {
		cfg.StartDate = *startDate
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	start, err := cfg.StartTime()
	if err != nil {
		return fmt.Errorf("start date: %w", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		return err
	}

	src, err := buildSource(cfg, *source, logger)
	if err != nil {
		return err
	}

	target, closeStore, err := openStore(ctx, cfg, *store)
	if err != nil {
		return err
	}
	defer closeStore()

	symbols := []string{cfg.SymbolBrent, cfg.SymbolWTI}
	if *symbolsFlag != "" {
		symbols = splitSymbols(*symbolsFlag)
	}

	backfiller := ingestion.NewBackfiller(ingestion.BackfillOptions{
		Source:    src,
		Store:     target,
		BatchSize: *batchSize,
		Now:       now,
		Logger:    &logger,
	})

	metrics := observability.NewMetrics("")
	began := time.Now()
	result, runErr := backfiller.Run(ctx, symbols, start)

	outcome := observability.OutcomeSuccess
	if runErr != nil {
		outcome = observability.OutcomeFailure
	}
	if result != nil {
		for _, sr := range result.Symbols {
			metrics.RecordIngested(sr.Symbol, sr.Inserted)
		}
	}
	metrics.RecordRun(outcome, time.Since(began), now())
	if cfg.Metrics.PushgatewayURL != "" {
		if err := metrics.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job+"_ingest"); err != nil {
			logger.Warn().Err(err).Msg("metrics push failed")
		}
	}

	if runErr != nil {
		return runErr
	}

	for _, sr := range result.Symbols {
		if sr.UpToDate {
			fmt.Fprintf(stdout, "  %-6s up to date\n", sr.Symbol)
			continue
		}
		fmt.Fprintf(stdout, "  %-6s from %s: fetched %d, inserted %d, duplicates %d\n",
			sr.Symbol, sr.From.Format("2006-01-02"), sr.Fetched, sr.Inserted, sr.DuplicatesSkipped)
	}
	fmt.Fprintf(stdout, "[OK] Ingested %d quotes into %s in %s\n", result.Inserted(), *store, result.Duration.Round(time.Millisecond))
	return nil
}

func buildSource(cfg *config.Config, kind string, logger zerolog.Logger) (marketdata.Source, error) {
	if kind == "" {
		kind = config.SourceYahoo
		if cfg.Source.Type == config.SourceCSV {
			kind = config.SourceCSV
		}
	}

	switch kind {
	case config.SourceYahoo:
		return marketdata.NewYahooClient(
			marketdata.WithBaseURL(cfg.Yahoo.BaseURL),
			marketdata.WithTimeout(cfg.Yahoo.Timeout),
			marketdata.WithMaxRetries(cfg.Yahoo.MaxRetries),
			marketdata.WithRetryDelay(cfg.Yahoo.RetryDelay),
			marketdata.WithLogger(logger),
		), nil
	case config.SourceCSV:
		if cfg.Source.CSV.BrentPath == "" || cfg.Source.CSV.WTIPath == "" {
			return nil, fmt.Errorf("csv source requires source.csv.brent_path and source.csv.wti_path")
		}
		return marketdata.NewCSVSource(map[string]string{
			cfg.SymbolBrent: cfg.Source.CSV.BrentPath,
			cfg.SymbolWTI:   cfg.Source.CSV.WTIPath,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported ingest source %q (want yahoo or csv)", kind)
	}
}

// openDatabaseStore connects to the target store and applies migrations.
func openDatabaseStore(ctx context.Context, cfg *config.Config, kind string) (storage.PriceHistoryStore, func(), error) {
	switch kind {
	case storePostgres:
		if cfg.Postgres.DSN == "" {
			return nil, nil, fmt.Errorf("postgres.dsn is required")
		}
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return pgstore.NewPriceHistoryStore(pool), pool.Close, nil

	case storeClickHouse:
		if cfg.ClickHouse.DSN == "" {
			return nil, nil, fmt.Errorf("clickhouse.dsn is required")
		}
		if err := chstore.EnsureDatabase(ctx, cfg.ClickHouse.DSN); err != nil {
			return nil, nil, err
		}
		conn, err := chstore.NewConn(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect clickhouse: %w", err)
		}
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
		}
		return chstore.NewPriceHistoryStore(conn), func() { conn.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q (want postgres or clickhouse)", kind)
	}
}

func splitSymbols(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
