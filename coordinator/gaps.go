package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mealagent"
	"mealagent/nutrient"
)

// prioritizeLimit is how many of the ranked gaps are offered to the prioritization oracle.
const prioritizeLimit = 15

var errNoGapOracle = errors.New("no gap oracle configured")

// FallbackSuggestions are returned when the suggestion oracle fails.
var FallbackSuggestions = []mealagent.MealSuggestion{
	{Meal: "Mixed berry smoothie with spinach", Reasoning: "High in vitamins, antioxidants, and fiber"},
	{Meal: "Salmon with quinoa and vegetables", Reasoning: "Rich in omega-3, protein, and essential minerals"},
	{Meal: "Lentil soup with whole grain bread", Reasoning: "Excellent source of fiber, iron, and B vitamins"},
}

// GapAdvisorOptions configures a GapAdvisor. Zero values take defaults.
type GapAdvisorOptions struct {
	Targets       nutrient.Targets
	OracleTimeout time.Duration
	Events        mealagent.EventSink
	Metrics       *Metrics
}

// GapAdvisor ranks a day's nutrient gaps and asks the gap oracle which ones matter and
// what to eat next.
type GapAdvisor struct {
	oracle  mealagent.GapOracle
	targets nutrient.Targets
	timeout time.Duration
	events  mealagent.EventSink
	metrics *Metrics
}

func NewGapAdvisor(oracle mealagent.GapOracle, opts GapAdvisorOptions) *GapAdvisor {
	if opts.Targets == nil {
		opts.Targets = nutrient.DefaultTargets()
	}
	if opts.OracleTimeout <= 0 {
		opts.OracleTimeout = DefaultOracleTimeout
	}
	return &GapAdvisor{
		oracle:  oracle,
		targets: opts.Targets,
		timeout: opts.OracleTimeout,
		events:  sinkOrNop(opts.Events),
		metrics: opts.Metrics,
	}
}

// Analyze scores meals against the advisor's targets. The ranking is always computed;
// the oracle passes fall back to fixed content on failure and are skipped when nothing
// is missing.
func (g *GapAdvisor) Analyze(ctx context.Context, meals []nutrient.Map) mealagent.GapAnalysis {
	ctx, span := otel.Tracer(mealagent.TracerNameGaps).Start(ctx, "GapAdvisor.Analyze",
		trace.WithAttributes(attribute.Int("meals", len(meals))))
	defer span.End()

	emit(ctx, g.events, mealagent.EventGapAnalysisStart, "gap_analysis",
		fmt.Sprintf("Analyzing %d meals", len(meals)), map[string]any{"meals": len(meals)})

	report := nutrient.AnalyzeGaps(meals, g.targets)
	out := mealagent.GapAnalysis{
		GapReport:      report,
		Prioritization: mealagent.Prioritization{ImportantGaps: []string{}, NutrientGroupings: map[string][]string{}},
		Suggestions:    []mealagent.MealSuggestion{},
	}
	span.SetAttributes(attribute.Int("gaps", len(report.AllGaps)))
	slog.Info("GAPS: analysis computed", "meals", len(meals), "gaps", len(report.AllGaps))

	if len(report.AllGaps) == 0 {
		out.Prioritization.Reasoning = "no nutrient gaps"
		g.complete(ctx, out)
		return out
	}

	gaps := report.AllGaps[:min(prioritizeLimit, len(report.AllGaps))]

	prio, err := g.prioritize(ctx, gaps)
	if err != nil {
		slog.Warn("GAPS: prioritization failed, using ranked gaps", "error", err)
		out.Warnings = append(out.Warnings, "gap prioritization failed: "+err.Error())
		prio = fallbackPrioritization(report.AllGaps, err)
	}
	out.Prioritization = prio

	emit(ctx, g.events, mealagent.EventGapAnalysisStatus, "gap_analysis", "Prioritized nutrient gaps", map[string]any{
		"important_gaps": prio.ImportantGaps,
	})

	suggestions, err := g.suggest(ctx, mealagent.SuggestRequest{Gaps: gaps, Prioritization: prio})
	if err != nil {
		slog.Warn("GAPS: suggestions failed, using defaults", "error", err)
		out.Warnings = append(out.Warnings, "meal suggestions failed: "+err.Error())
		suggestions = append([]mealagent.MealSuggestion(nil), FallbackSuggestions...)
	}
	out.Suggestions = suggestions

	g.complete(ctx, out)
	return out
}

func (g *GapAdvisor) prioritize(ctx context.Context, gaps []nutrient.Gap) (mealagent.Prioritization, error) {
	if g.oracle == nil {
		return mealagent.Prioritization{}, errNoGapOracle
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	p, err := g.oracle.Prioritize(ctx, gaps)
	g.metrics.oracleCall(ctx, "prioritize", start, err)
	if err != nil {
		return p, err
	}
	if p.NutrientGroupings == nil {
		p.NutrientGroupings = map[string][]string{}
	}
	return p, nil
}

func (g *GapAdvisor) suggest(ctx context.Context, req mealagent.SuggestRequest) ([]mealagent.MealSuggestion, error) {
	if g.oracle == nil {
		return nil, errNoGapOracle
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	s, err := g.oracle.Suggest(ctx, req)
	g.metrics.oracleCall(ctx, "suggest", start, err)
	if err == nil && len(s) == 0 {
		err = errors.New("no suggestions returned")
	}
	return s, err
}

func (g *GapAdvisor) complete(ctx context.Context, out mealagent.GapAnalysis) {
	emit(ctx, g.events, mealagent.EventGapAnalysisComplete, "gap_analysis", "Gap analysis complete", map[string]any{
		"result": out,
	})
}

func fallbackPrioritization(gaps []nutrient.Gap, err error) mealagent.Prioritization {
	n := min(nutrient.TopGapCount, len(gaps))
	names := make([]string, 0, n)
	for _, gap := range gaps[:n] {
		names = append(names, gap.Label)
	}
	return mealagent.Prioritization{
		ImportantGaps:     names,
		NutrientGroupings: map[string][]string{},
		Reasoning:         "Error occurred: " + err.Error(),
	}
}
