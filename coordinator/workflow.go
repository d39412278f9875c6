package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mealagent"
	"mealagent/nutrient"
)

// UnknownMethod is the cooking method used when preprocessing cannot tell.
const UnknownMethod = "unknown"

// WorkflowOptions configures a Workflow. Zero values take defaults.
type WorkflowOptions struct {
	OracleTimeout time.Duration
	Events        mealagent.EventSink
	Metrics       *Metrics
}

// Workflow estimates the nutrients of a meal from its free-text description.
type Workflow struct {
	preprocessor mealagent.Preprocessor
	coordinator  *Coordinator
	adjuster     *Adjuster
	timeout      time.Duration
	events       mealagent.EventSink
	metrics      *Metrics
}

func NewWorkflow(pre mealagent.Preprocessor, coord *Coordinator, adj *Adjuster, opts WorkflowOptions) *Workflow {
	if opts.OracleTimeout <= 0 {
		opts.OracleTimeout = DefaultOracleTimeout
	}
	return &Workflow{
		preprocessor: pre,
		coordinator:  coord,
		adjuster:     adj,
		timeout:      opts.OracleTimeout,
		events:       sinkOrNop(opts.Events),
		metrics:      opts.Metrics,
	}
}

// Estimate runs preprocessing, per-ingredient estimation, merge and the interaction pass.
// maxRounds below 1 uses the loop default. Oracle failures degrade the result and are
// listed in Warnings; the only error is cancellation, returned together with whatever
// was estimated before ctx ended.
func (w *Workflow) Estimate(ctx context.Context, description string, maxRounds int) (mealagent.MealResult, error) {
	ctx, span := otel.Tracer(mealagent.TracerNameWorkflow).Start(ctx, "Workflow.Estimate",
		trace.WithAttributes(attribute.Int("max_rounds", maxRounds)))
	defer span.End()

	start := time.Now()
	slog.Info("WORKFLOW: Starting meal estimation", "description", description)
	emit(ctx, w.events, mealagent.EventWorkflowStart, "start", "Starting meal analysis", map[string]any{
		"description": description,
	})

	result := mealagent.MealResult{
		Description:  description,
		Estimates:    nutrient.Zero(),
		EstimatesSum: nutrient.Zero(),
		Ingredients:  map[string]mealagent.IngredientEstimate{},
	}

	pre := w.preprocess(ctx, description, &result)
	result.CookingProcess = pre.CookingProcess
	result.MealCategory = pre.MealCategory

	emit(ctx, w.events, mealagent.EventPreprocessingComplete, "preprocessing",
		fmt.Sprintf("Identified %d ingredients", len(pre.Ingredients)), map[string]any{
			"ingredients":     ingredientNames(pre.Ingredients),
			"cooking_process": pre.CookingProcess,
			"meal_category":   pre.MealCategory,
		})

	if err := ctx.Err(); err != nil {
		return w.abort(ctx, span, result, err)
	}

	if len(pre.Ingredients) == 0 {
		result.Warnings = append(result.Warnings, "no ingredients identified")
		slog.Warn("WORKFLOW: no ingredients identified, returning zero estimate")
		result.InteractionReasoning = "no ingredients to analyze"
		result.ProcessImpactReasoning = "no ingredients to analyze"
		w.finish(ctx, start, result)
		return result, nil
	}

	records, err := w.coordinator.Run(ctx, pre.Ingredients, maxRounds)
	result.Ingredients = records
	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if rec := records[name]; rec.Exhausted {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: estimate accepted without approval after %d rounds", name, rec.Round))
		}
	}
	if err != nil {
		merged, _ := Merge(records)
		result.EstimatesSum = merged
		result.Estimates = merged.Clone()
		result.Macros = mealagent.MacrosFrom(result.Estimates)
		return w.abort(ctx, span, result, err)
	}

	emit(ctx, w.events, mealagent.EventParallelEstimation, "estimation",
		fmt.Sprintf("Estimated %d ingredients", len(records)), map[string]any{
			"ingredients": len(records),
		})

	merged, unknown := Merge(records)
	w.metrics.unknown(ctx, "merge", len(unknown))
	for _, u := range unknown {
		result.Warnings = append(result.Warnings, "unknown nutrient key dropped: "+u)
	}
	result.EstimatesSum = merged

	emit(ctx, w.events, mealagent.EventMergeComplete, "merge", "Merged ingredient estimates", map[string]any{
		"macros": mealagent.MacrosFrom(merged),
	})

	adj := w.adjuster.Apply(ctx, mealagent.AdjustRequest{
		Description:    description,
		Ingredients:    pre.Ingredients,
		CookingProcess: pre.CookingProcess,
		Merged:         merged,
	})
	if adj.Fallback {
		result.Warnings = append(result.Warnings, "interaction adjustment failed: "+errString(adj.Err))
	}
	for _, u := range adj.Unknown {
		result.Warnings = append(result.Warnings, "unknown nutrient key dropped: adjustment: "+u)
	}
	result.Estimates = adj.Final
	result.InteractionReasoning = adj.InteractionReasoning
	result.ProcessImpactReasoning = adj.ProcessImpactReasoning
	result.Macros = mealagent.MacrosFrom(result.Estimates)

	emit(ctx, w.events, mealagent.EventFinalAnalysisComplete, "final_analysis", "Applied nutrient interactions", map[string]any{
		"fallback": adj.Fallback,
	})

	w.finish(ctx, start, result)
	span.SetAttributes(attribute.Int("ingredients", len(records)), attribute.Float64("calories", result.Calories))
	return result, nil
}

func (w *Workflow) preprocess(ctx context.Context, description string, result *mealagent.MealResult) mealagent.Preprocessed {
	fallback := mealagent.Preprocessed{
		CookingProcess: mealagent.CookingProcess{Method: UnknownMethod},
	}
	if strings.TrimSpace(description) == "" {
		result.Warnings = append(result.Warnings, "empty meal description")
		return fallback
	}
	if w.preprocessor == nil {
		result.Warnings = append(result.Warnings, "preprocessing unavailable")
		return fallback
	}

	pctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	pre, err := w.preprocessor.Preprocess(pctx, description)
	w.metrics.oracleCall(ctx, "preprocess", start, err)
	if err != nil {
		slog.Warn("WORKFLOW: preprocessing failed", "error", err)
		result.Warnings = append(result.Warnings, "preprocessing failed: "+err.Error())
		return fallback
	}
	if pre.CookingProcess.Method == "" {
		pre.CookingProcess.Method = UnknownMethod
	}
	return pre
}

func (w *Workflow) finish(ctx context.Context, start time.Time, result mealagent.MealResult) {
	w.metrics.mealFinished(ctx, len(result.Ingredients), start)
	slog.Info("WORKFLOW: Meal estimation complete",
		"ingredients", len(result.Ingredients),
		"calories", result.Calories,
		"warnings", len(result.Warnings),
		"duration", time.Since(start))
	emit(ctx, w.events, mealagent.EventWorkflowComplete, "complete", "Meal analysis complete", map[string]any{
		"result": result,
	})
}

func (w *Workflow) abort(ctx context.Context, span trace.Span, result mealagent.MealResult, err error) (mealagent.MealResult, error) {
	slog.Warn("WORKFLOW: cancelled", "error", err, "completed_ingredients", len(result.Ingredients))
	span.SetStatus(codes.Error, "cancelled")
	span.RecordError(err)
	result.Warnings = append(result.Warnings, "cancelled: "+err.Error())
	return result, fmt.Errorf("meal estimation cancelled: %w", err)
}

func ingredientNames(ings []mealagent.Ingredient) []string {
	names := make([]string, 0, len(ings))
	for _, ing := range ings {
		names = append(names, ing.Name)
	}
	return names
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
