package monitoring

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName    = "github.com/matchfound/matchfound/internal/monitoring"
	instrumentationVersion = "1.0.0"
)

// MatchInstrumentation provides OpenTelemetry tracing and metrics for the
// match pipeline and the bot command surface.
type MatchInstrumentation struct {
	tracer trace.Tracer
	meter  metric.Meter

	updatesTotal     metric.Int64Counter
	commandsTotal    metric.Int64Counter
	findDuration     metric.Float64Histogram
	matchListSize    metric.Int64Histogram
	cacheHitsTotal   metric.Int64Counter
	cacheMissesTotal metric.Int64Counter
	likesTotal       metric.Int64Counter
	errorsTotal      metric.Int64Counter
}

func NewMatchInstrumentation() (*MatchInstrumentation, error) {
	tracer := otel.Tracer(instrumentationName, trace.WithInstrumentationVersion(instrumentationVersion))
	meter := otel.Meter(instrumentationName, metric.WithInstrumentationVersion(instrumentationVersion))

	updatesTotal, err := meter.Int64Counter(
		"bot_updates_total",
		metric.WithDescription("Total number of bot updates received"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot_updates_total counter: %w", err)
	}

	commandsTotal, err := meter.Int64Counter(
		"bot_commands_total",
		metric.WithDescription("Total number of bot commands processed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot_commands_total counter: %w", err)
	}

	findDuration, err := meter.Float64Histogram(
		"match_find_duration_seconds",
		metric.WithDescription("End to end duration of a find request"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create match_find_duration_seconds histogram: %w", err)
	}

	matchListSize, err := meter.Int64Histogram(
		"match_list_size",
		metric.WithDescription("Number of matches returned per find request"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(0, 1, 5, 10, 25, 50, 100, 250),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create match_list_size histogram: %w", err)
	}

	cacheHitsTotal, err := meter.Int64Counter(
		"match_cache_hits_total",
		metric.WithDescription("Match list requests served from cache"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create match_cache_hits_total counter: %w", err)
	}

	cacheMissesTotal, err := meter.Int64Counter(
		"match_cache_misses_total",
		metric.WithDescription("Match list requests recomputed from the database"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create match_cache_misses_total counter: %w", err)
	}

	likesTotal, err := meter.Int64Counter(
		"match_likes_total",
		metric.WithDescription("Like edges recorded, labelled by mutuality"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create match_likes_total counter: %w", err)
	}

	errorsTotal, err := meter.Int64Counter(
		"bot_errors_total",
		metric.WithDescription("Handler errors by error type"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot_errors_total counter: %w", err)
	}

	return &MatchInstrumentation{
		tracer:           tracer,
		meter:            meter,
		updatesTotal:     updatesTotal,
		commandsTotal:    commandsTotal,
		findDuration:     findDuration,
		matchListSize:    matchListSize,
		cacheHitsTotal:   cacheHitsTotal,
		cacheMissesTotal: cacheMissesTotal,
		likesTotal:       likesTotal,
		errorsTotal:      errorsTotal,
	}, nil
}

// StartCommandSpan opens a span for one bot command
func (i *MatchInstrumentation) StartCommandSpan(ctx context.Context, command string, userID int64) (context.Context, trace.Span) {
	ctx, span := i.tracer.Start(ctx, fmt.Sprintf("bot.command %s", command),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("bot.command", command),
			attribute.Int64("user.id", userID),
		),
	)
	i.commandsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("command", command)))
	return ctx, span
}

// EndCommandSpan closes a command span, recording the error if any
func (i *MatchInstrumentation) EndCommandSpan(ctx context.Context, span trace.Span, command string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		i.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("command", command)))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (i *MatchInstrumentation) RecordUpdate(ctx context.Context, updateType string) {
	i.updatesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("type", updateType)))
}

func (i *MatchInstrumentation) RecordFind(ctx context.Context, duration time.Duration, matches int, err error) {
	attrs := metric.WithAttributes(attribute.Bool("error", err != nil))
	i.findDuration.Record(ctx, duration.Seconds(), attrs)
	if err == nil {
		i.matchListSize.Record(ctx, int64(matches))
	}
}

func (i *MatchInstrumentation) RecordCacheHit(ctx context.Context) {
	i.cacheHitsTotal.Add(ctx, 1)
}

func (i *MatchInstrumentation) RecordCacheMiss(ctx context.Context) {
	i.cacheMissesTotal.Add(ctx, 1)
}

func (i *MatchInstrumentation) RecordLike(ctx context.Context, mutual bool) {
	i.likesTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("mutual", mutual)))
}
