package coordinator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics holds the instruments shared by the loop, coordinator, adjuster and workflow.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	rounds            metric.Int64Counter
	approvals         metric.Int64Counter
	exhaustions       metric.Int64Counter
	oracleFailures    metric.Int64Counter
	unknownKeys       metric.Int64Counter
	adjusterFallbacks metric.Int64Counter
	meals             metric.Int64Counter
	ingredients       metric.Int64Histogram
	oracleLatency     metric.Float64Histogram
	loopDuration      metric.Float64Histogram
	mealDuration      metric.Float64Histogram
}

// NewMetrics creates the instruments on meter. A nil meter yields no-op instruments.
func NewMetrics(meter metric.Meter) *Metrics {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("")
	}

	m := &Metrics{}
	m.rounds, _ = meter.Int64Counter("ingredient_rounds_total",
		metric.WithDescription("Total number of estimate/validate rounds"))
	m.approvals, _ = meter.Int64Counter("ingredient_approvals_total",
		metric.WithDescription("Total number of ingredient estimates approved by the validator"))
	m.exhaustions, _ = meter.Int64Counter("ingredient_exhaustions_total",
		metric.WithDescription("Total number of ingredient loops that ran out of rounds"))
	m.oracleFailures, _ = meter.Int64Counter("oracle_failures_total",
		metric.WithDescription("Total number of failed oracle calls"))
	m.unknownKeys, _ = meter.Int64Counter("unknown_nutrient_keys_total",
		metric.WithDescription("Total number of nutrient keys dropped because they did not resolve"))
	m.adjusterFallbacks, _ = meter.Int64Counter("adjuster_fallbacks_total",
		metric.WithDescription("Total number of meals whose interaction adjustment fell back to merged totals"))
	m.meals, _ = meter.Int64Counter("meals_estimated_total",
		metric.WithDescription("Total number of meals estimated"))
	m.ingredients, _ = meter.Int64Histogram("meal_ingredients",
		metric.WithDescription("Number of ingredients per meal"))
	m.oracleLatency, _ = meter.Float64Histogram("oracle_latency_seconds",
		metric.WithDescription("Time taken by individual oracle calls in seconds"),
		metric.WithUnit("s"))
	m.loopDuration, _ = meter.Float64Histogram("ingredient_loop_duration_seconds",
		metric.WithDescription("Duration of one ingredient convergence loop in seconds"),
		metric.WithUnit("s"))
	m.mealDuration, _ = meter.Float64Histogram("meal_estimation_duration_seconds",
		metric.WithDescription("Duration of one meal estimation in seconds"),
		metric.WithUnit("s"))
	return m
}

func oracleAttr(oracle string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("oracle", oracle))
}

func (m *Metrics) oracleCall(ctx context.Context, oracle string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.oracleLatency.Record(ctx, time.Since(start).Seconds(), oracleAttr(oracle))
	if err != nil {
		m.oracleFailures.Add(ctx, 1, oracleAttr(oracle))
	}
}

func (m *Metrics) round(ctx context.Context) {
	if m == nil {
		return
	}
	m.rounds.Add(ctx, 1)
}

func (m *Metrics) loopFinished(ctx context.Context, state State, start time.Time) {
	if m == nil {
		return
	}
	switch state {
	case StateApproved:
		m.approvals.Add(ctx, 1)
	case StateRoundsExhausted:
		m.exhaustions.Add(ctx, 1)
	}
	m.loopDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("state", state.String())))
}

func (m *Metrics) unknown(ctx context.Context, stage string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.unknownKeys.Add(ctx, int64(n), metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *Metrics) adjusterFallback(ctx context.Context) {
	if m == nil {
		return
	}
	m.adjusterFallbacks.Add(ctx, 1)
}

func (m *Metrics) mealFinished(ctx context.Context, ingredients int, start time.Time) {
	if m == nil {
		return
	}
	m.meals.Add(ctx, 1)
	m.ingredients.Record(ctx, int64(ingredients))
	m.mealDuration.Record(ctx, time.Since(start).Seconds())
}
