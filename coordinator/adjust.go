package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"mealagent"
	"mealagent/nutrient"
)

// NoAdjustmentRationale is the rationale reported when the interaction pass could not
// run and the merged totals are returned unchanged.
const NoAdjustmentRationale = "no adjustment applied due to error"

var errNoInteractionOracle = errors.New("no interaction oracle configured")

// Adjusted is the outcome of the interaction pass.
type Adjusted struct {
	Final                  nutrient.Map
	InteractionReasoning   string
	ProcessImpactReasoning string
	// Fallback is set when the oracle failed and Final equals the merged totals.
	Fallback bool
	Err      error
	Unknown  []string
}

// Adjuster applies one interaction and cooking-loss pass to merged meal totals.
type Adjuster struct {
	oracle  mealagent.InteractionOracle
	timeout time.Duration
	metrics *Metrics
}

func NewAdjuster(oracle mealagent.InteractionOracle, timeout time.Duration, metrics *Metrics) *Adjuster {
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}
	return &Adjuster{oracle: oracle, timeout: timeout, metrics: metrics}
}

// Apply never fails. Every canonical key of the merged totals is present in the result:
// keys the oracle leaves out keep their merged value, and on oracle failure the merged
// totals come back unchanged with NoAdjustmentRationale.
func (a *Adjuster) Apply(ctx context.Context, req mealagent.AdjustRequest) Adjusted {
	ctx, span := otel.Tracer(mealagent.TracerNameWorkflow).Start(ctx, "Adjuster.Apply")
	defer span.End()

	merged := req.Merged.Complete()
	req.Merged = merged

	adj, err := a.call(ctx, req)
	if err != nil {
		slog.Warn("ADJUSTER: interaction pass failed, keeping merged totals", "error", err)
		a.metrics.adjusterFallback(ctx)
		span.SetStatus(codes.Error, "fallback")
		span.RecordError(err)
		return Adjusted{
			Final:                  merged.Clone(),
			InteractionReasoning:   NoAdjustmentRationale,
			ProcessImpactReasoning: NoAdjustmentRationale,
			Fallback:               true,
			Err:                    err,
		}
	}

	resolved, unknown := nutrient.FromRaw(adj.FinalEstimates)
	for _, key := range unknown {
		slog.Warn("ADJUSTER: unknown nutrient key dropped", "key", key)
	}
	a.metrics.unknown(ctx, "adjust", len(unknown))

	final := merged.Clone()
	backfilled := 0
	for k := range merged {
		if v, ok := resolved[k]; ok {
			final[k] = v
		} else {
			backfilled++
		}
	}
	if backfilled > 0 {
		slog.Info("ADJUSTER: backfilled nutrients missing from adjustment", "count", backfilled)
	}

	return Adjusted{
		Final:                  final,
		InteractionReasoning:   adj.InteractionReasoning,
		ProcessImpactReasoning: adj.ProcessImpactReasoning,
		Unknown:                unknown,
	}
}

func (a *Adjuster) call(ctx context.Context, req mealagent.AdjustRequest) (mealagent.Adjustment, error) {
	if a.oracle == nil {
		return mealagent.Adjustment{}, errNoInteractionOracle
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	adj, err := a.oracle.Adjust(ctx, req)
	a.metrics.oracleCall(ctx, "adjust", start, err)
	return adj, err
}
