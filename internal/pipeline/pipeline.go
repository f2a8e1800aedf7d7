// Package pipeline wires a market data source, the forecast engine and a
// report writer into one run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"oil-forecast/internal/domain"
	"oil-forecast/internal/forecast"
	"oil-forecast/internal/marketdata"
	"oil-forecast/internal/observability"
	"oil-forecast/internal/reporting"
)

// Symbols names the Brent and WTI tickers to fetch.
type Symbols struct {
	Brent string
	WTI   string
}

// ForecastPipeline fetches both series, runs the engine and writes the report.
// The writer is only invoked after every earlier stage succeeded.
type ForecastPipeline struct {
	engine  *forecast.Engine
	source  marketdata.Source
	writer  reporting.Writer
	symbols Symbols
	start   time.Time

	clock   func() time.Time
	logger  zerolog.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
}

// NewForecastPipeline creates a pipeline. start is the first date requested
// from the source.
func NewForecastPipeline(
	engine *forecast.Engine,
	source marketdata.Source,
	writer reporting.Writer,
	symbols Symbols,
	start time.Time,
) *ForecastPipeline {
	return &ForecastPipeline{
		engine:  engine,
		source:  source,
		writer:  writer,
		symbols: symbols,
		start:   domain.DateOf(start),
		clock:   func() time.Time { return time.Now().UTC() },
		logger:  zerolog.Nop(),
		tracer:  noop.NewTracerProvider().Tracer("pipeline"),
	}
}

// WithClock sets the clock used for the report timestamp.
func (p *ForecastPipeline) WithClock(clock func() time.Time) *ForecastPipeline {
	p.clock = clock
	return p
}

// WithLogger sets the run logger.
func (p *ForecastPipeline) WithLogger(l zerolog.Logger) *ForecastPipeline {
	p.logger = l
	return p
}

// WithMetrics enables metric recording.
func (p *ForecastPipeline) WithMetrics(m *observability.Metrics) *ForecastPipeline {
	p.metrics = m
	return p
}

// WithTracer sets the tracer for run spans.
func (p *ForecastPipeline) WithTracer(t trace.Tracer) *ForecastPipeline {
	p.tracer = t
	return p
}

// Run executes one forecast. On error nothing is written.
func (p *ForecastPipeline) Run(ctx context.Context) (*reporting.Report, error) {
	started := time.Now()
	ctx, span := p.tracer.Start(ctx, "forecast.run", trace.WithAttributes(
		attribute.String("policy", string(p.engine.Settings().Policy)),
		attribute.String("threshold", p.engine.Settings().Threshold.String()),
	))
	defer span.End()

	report, err := p.run(ctx)

	outcome := observability.OutcomeSuccess
	if err != nil {
		outcome = observability.OutcomeFailure
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if p.metrics != nil {
		p.metrics.RecordRun(outcome, time.Since(started), p.clock())
	}
	return report, err
}

func (p *ForecastPipeline) run(ctx context.Context) (*reporting.Report, error) {
	brent, err := p.fetch(ctx, p.symbols.Brent)
	if err != nil {
		return nil, err
	}
	wti, err := p.fetch(ctx, p.symbols.WTI)
	if err != nil {
		return nil, err
	}

	_, span := p.tracer.Start(ctx, "forecast.engine")
	result, err := p.engine.Forecast(brent, wti)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}

	p.logger.Info().
		Str("data_date", result.DataDate.Format(domain.DateLayout)).
		Str("prob_up", result.ProbUp.String()).
		Str("prob_down", result.ProbDown.String()).
		Str("signal", string(result.Signal)).
		Msg("forecast computed")

	if p.metrics != nil {
		p.metrics.RecordForecast(
			result.Policy,
			result.ProbUp.InexactFloat64(),
			string(result.Signal),
			[]string{string(domain.SignalUp), string(domain.SignalDown), string(domain.SignalNoTrade)},
			result.DataDate,
		)
	}

	report := reporting.NewReport(result, p.engine.Rules().Label, p.clock())
	if err := p.writer.Write(report); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	return report, nil
}

func (p *ForecastPipeline) fetch(ctx context.Context, symbol string) ([]domain.Quote, error) {
	ctx, span := p.tracer.Start(ctx, "forecast.fetch", trace.WithAttributes(attribute.String("symbol", symbol)))
	defer span.End()

	started := time.Now()
	quotes, err := p.source.FetchDaily(ctx, symbol, p.start)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if p.metrics != nil {
		p.metrics.RecordFetch(symbol, len(quotes), time.Since(started))
	}

	p.logger.Info().Str("symbol", symbol).Int("quotes", len(quotes)).Msg("quotes fetched")
	return quotes, nil
}
