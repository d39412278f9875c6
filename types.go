package mealagent

import (
	"context"
	"net/http"
	"strings"
	"time"

	"mealagent/nutrient"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type SlackClient interface {
	PostMessage(ctx context.Context, channel string, message string) error
}

// Preprocessor turns a free-text meal description into ingredients and a cooking process.
type Preprocessor interface {
	Preprocess(ctx context.Context, description string) (Preprocessed, error)
}

// Estimator produces a nutrient estimate for one ingredient (or a whole meal).
type Estimator interface {
	Estimate(ctx context.Context, req EstimateRequest) (Estimate, error)
}

// Validator judges an estimate produced by an Estimator.
type Validator interface {
	Validate(ctx context.Context, req ValidateRequest) (Validation, error)
}

// InteractionOracle adjusts merged meal totals for nutrient interactions and cooking losses.
type InteractionOracle interface {
	Adjust(ctx context.Context, req AdjustRequest) (Adjustment, error)
}

// GapOracle prioritizes nutrient gaps and proposes meals that close them.
type GapOracle interface {
	Prioritize(ctx context.Context, gaps []nutrient.Gap) (Prioritization, error)
	Suggest(ctx context.Context, req SuggestRequest) ([]MealSuggestion, error)
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ParseConfidence maps free text onto a confidence level; anything unrecognized is low.
func ParseConfidence(s string) Confidence {
	switch c := Confidence(strings.ToLower(strings.TrimSpace(s))); c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return c
	default:
		return ConfidenceLow
	}
}

// Ingredient is one inferred component of a meal.
type Ingredient struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Notes  string `json:"notes,omitempty"`
}

// CookingProcess describes how a meal was prepared.
type CookingProcess struct {
	Method         string   `json:"method"`
	Temperature    string   `json:"temperature,omitempty"`
	Duration       string   `json:"duration,omitempty"`
	NutrientImpact []string `json:"nutrient_impact"`
}

// Preprocessed is the outcome of preprocessing a meal description.
type Preprocessed struct {
	Ingredients    []Ingredient   `json:"ingredients"`
	CookingProcess CookingProcess `json:"cooking_process"`
	MealCategory   string         `json:"meal_category"`
	Reasoning      string         `json:"reasoning"`
}

type EstimateRequest struct {
	Subject       string `json:"subject"`
	Amount        string `json:"amount,omitempty"`
	Notes         string `json:"notes,omitempty"`
	PriorFeedback string `json:"prior_feedback,omitempty"`
}

// Estimate is an estimator's answer. Estimates may use any nutrient spelling and may be
// partial; consumers resolve names through the nutrient package.
type Estimate struct {
	Estimates  map[string]float64 `json:"estimates"`
	Reasoning  string             `json:"reasoning"`
	Confidence Confidence         `json:"confidence"`
}

type ValidateRequest struct {
	Subject   string             `json:"subject"`
	Amount    string             `json:"amount,omitempty"`
	Estimates map[string]float64 `json:"estimates"`
}

type Validation struct {
	Approved    bool   `json:"approved"`
	Feedback    string `json:"feedback,omitempty"`
	IssuesFound int    `json:"issues_found"`
}

type AdjustRequest struct {
	Description    string         `json:"description"`
	Ingredients    []Ingredient   `json:"ingredients"`
	CookingProcess CookingProcess `json:"cooking_process"`
	Merged         nutrient.Map   `json:"merged_estimates"`
}

type Adjustment struct {
	FinalEstimates         map[string]float64 `json:"final_estimates"`
	InteractionReasoning   string             `json:"interaction_reasoning"`
	ProcessImpactReasoning string             `json:"process_impact_reasoning"`
}

// IngredientEstimate is the final record of one ingredient's convergence loop.
type IngredientEstimate struct {
	Ingredient  Ingredient         `json:"ingredient"`
	Estimates   map[string]float64 `json:"estimates"`
	Reasoning   string             `json:"reasoning"`
	Confidence  Confidence         `json:"confidence"`
	Round       int                `json:"round"`
	Approved    bool               `json:"approved"`
	Exhausted   bool               `json:"exhausted"`
	Feedback    string             `json:"feedback,omitempty"`
	IssuesFound int                `json:"issues_found"`
	Failures    int                `json:"oracle_failures"`
}

// Macros are the headline numbers of a meal.
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// MacrosFrom extracts protein, carbohydrates and fat (grams) from m and derives calories
// as 4 kcal/g protein, 4 kcal/g carbohydrate and 9 kcal/g fat.
func MacrosFrom(m nutrient.Map) Macros {
	protein := m.Get(nutrient.Protein)
	carbs := m.Get(nutrient.Carbohydrates)
	fat := m.Get(nutrient.TotalFats)
	return Macros{
		Calories: 4*protein + 4*carbs + 9*fat,
		Protein:  protein,
		Carbs:    carbs,
		Fat:      fat,
	}
}

// MealResult is the outcome of estimating one meal.
type MealResult struct {
	Macros
	Description            string                        `json:"description"`
	Estimates              nutrient.Map                  `json:"estimates"`
	EstimatesSum           nutrient.Map                  `json:"estimates_sum"`
	Ingredients            map[string]IngredientEstimate `json:"ingredient_results"`
	CookingProcess         CookingProcess                `json:"cooking_process"`
	MealCategory           string                        `json:"meal_category"`
	InteractionReasoning   string                        `json:"interaction_reasoning"`
	ProcessImpactReasoning string                        `json:"process_impact_reasoning"`
	Warnings               []string                      `json:"warnings,omitempty"`
}

type Prioritization struct {
	ImportantGaps     []string            `json:"important_gaps"`
	NutrientGroupings map[string][]string `json:"nutrient_groupings"`
	Reasoning         string              `json:"reasoning"`
}

type SuggestRequest struct {
	Gaps           []nutrient.Gap `json:"gaps"`
	Prioritization Prioritization `json:"prioritization"`
}

type MealSuggestion struct {
	Meal      string `json:"meal"`
	Reasoning string `json:"reasoning"`
}

// GapAnalysis extends a gap report with prioritization and next-meal suggestions.
type GapAnalysis struct {
	nutrient.GapReport
	Prioritization Prioritization   `json:"gap_prioritization"`
	Suggestions    []MealSuggestion `json:"meal_suggestions"`
	Warnings       []string         `json:"warnings,omitempty"`
}

type EventType string

// Progress events emitted while a meal is estimated or gaps are analyzed.
const (
	EventWorkflowStart         EventType = "workflow_start"
	EventPreprocessingComplete EventType = "preprocessing_complete"
	EventIngredientRound       EventType = "ingredient_round"
	EventIngredientComplete    EventType = "ingredient_complete"
	EventParallelEstimation    EventType = "parallel_estimation_complete"
	EventMergeComplete         EventType = "merge_complete"
	EventFinalAnalysisComplete EventType = "final_analysis_complete"
	EventWorkflowComplete      EventType = "workflow_complete"
	EventGapAnalysisStart      EventType = "gap_analysis_start"
	EventGapAnalysisStatus     EventType = "gap_analysis_status"
	EventGapAnalysisComplete   EventType = "gap_analysis_complete"
)

// Event is a plain progress record for a presentation layer. Data values are JSON
// friendly; completion events carry the full MealResult or GapAnalysis.
type Event struct {
	Type    EventType      `json:"type"`
	Stage   string         `json:"stage"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Time    time.Time      `json:"timestamp"`
}

// EventSink receives progress events. Emit is called from concurrent ingredient loops
// and must not block for long.
type EventSink interface {
	Emit(ctx context.Context, ev Event)
}
