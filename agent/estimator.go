package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"mealagent"
)

// Estimator asks the model for a nutrient estimate of one ingredient.
type Estimator struct {
	completer Completer
}

func NewEstimator(c Completer) *Estimator {
	return &Estimator{completer: c}
}

type estimateWire struct {
	Estimates       map[string]any `json:"estimates"`
	Reasoning       string         `json:"reasoning"`
	Confidence      string         `json:"confidence"`
	ConfidenceLevel string         `json:"confidence_level"`
}

func (e *Estimator) Estimate(ctx context.Context, req mealagent.EstimateRequest) (mealagent.Estimate, error) {
	text, err := e.completer.Complete(ctx, Request{
		Name:        NameEstimate,
		Description: "Report nutrient estimates for one ingredient",
		System:      estimateSystem(),
		User:        estimateUser(req),
		Schema:      EstimateSchema(),
	})
	if err != nil {
		return mealagent.Estimate{}, fmt.Errorf("estimate %q: %w", req.Subject, err)
	}

	var wire estimateWire
	if err := decodeJSON(text, &wire); err != nil {
		return mealagent.Estimate{}, fmt.Errorf("estimate %q: %w", req.Subject, err)
	}
	if wire.Estimates == nil {
		return mealagent.Estimate{}, fmt.Errorf("estimate %q: %w: missing estimates", req.Subject, ErrMalformed)
	}

	conf := wire.Confidence
	if conf == "" {
		conf = wire.ConfidenceLevel
	}
	return mealagent.Estimate{
		Estimates:  numbers(wire.Estimates),
		Reasoning:  wire.Reasoning,
		Confidence: mealagent.ParseConfidence(conf),
	}, nil
}

// Validator asks the model to approve or reject an estimate.
type Validator struct {
	completer Completer
}

func NewValidator(c Completer) *Validator {
	return &Validator{completer: c}
}

type validateWire struct {
	Approved    *bool           `json:"approved"`
	Feedback    json.RawMessage `json:"feedback"`
	IssuesFound json.RawMessage `json:"issues_found"`
}

func (v *Validator) Validate(ctx context.Context, req mealagent.ValidateRequest) (mealagent.Validation, error) {
	text, err := v.completer.Complete(ctx, Request{
		Name:        NameValidate,
		Description: "Approve or reject a nutrient estimate",
		System:      validateSystemPrompt,
		User:        validateUser(req),
		Schema:      ValidateSchema(),
	})
	if err != nil {
		return mealagent.Validation{}, fmt.Errorf("validate %q: %w", req.Subject, err)
	}

	var wire validateWire
	if err := decodeJSON(text, &wire); err != nil {
		return mealagent.Validation{}, fmt.Errorf("validate %q: %w", req.Subject, err)
	}
	if wire.Approved == nil {
		return mealagent.Validation{}, fmt.Errorf("validate %q: %w: missing approved", req.Subject, ErrMalformed)
	}

	return mealagent.Validation{
		Approved:    *wire.Approved,
		Feedback:    strings.Join(stringList(wire.Feedback), "\n"),
		IssuesFound: issueCount(wire.IssuesFound),
	}, nil
}

// Preprocessor asks the model to break a meal description into ingredients.
type Preprocessor struct {
	completer Completer
}

func NewPreprocessor(c Completer) *Preprocessor {
	return &Preprocessor{completer: c}
}

type preprocessWire struct {
	Ingredients    []json.RawMessage `json:"ingredients"`
	CookingProcess struct {
		Method         string          `json:"method"`
		Temperature    string          `json:"temperature"`
		Duration       string          `json:"duration"`
		NutrientImpact json.RawMessage `json:"nutrient_impact"`
	} `json:"cooking_process"`
	MealCategory string `json:"meal_category"`
	Reasoning    string `json:"reasoning"`
}

func (p *Preprocessor) Preprocess(ctx context.Context, description string) (mealagent.Preprocessed, error) {
	text, err := p.completer.Complete(ctx, Request{
		Name:        NamePreprocess,
		Description: "Report the ingredients and cooking process of a meal",
		System:      preprocessSystemPrompt,
		User:        preprocessUser(description),
		Schema:      PreprocessSchema(),
	})
	if err != nil {
		return mealagent.Preprocessed{}, fmt.Errorf("preprocess: %w", err)
	}

	var wire preprocessWire
	if err := decodeJSON(text, &wire); err != nil {
		return mealagent.Preprocessed{}, fmt.Errorf("preprocess: %w", err)
	}

	ingredients := make([]mealagent.Ingredient, 0, len(wire.Ingredients))
	for _, raw := range wire.Ingredients {
		ing, ok := ingredient(raw)
		if !ok {
			slog.Warn("LLM_CLIENT: malformed ingredient dropped", "ingredient", string(raw))
			continue
		}
		if ing.Name == "" {
			slog.Warn("LLM_CLIENT: unnamed ingredient dropped", "amount", ing.Amount)
			continue
		}
		ingredients = append(ingredients, ing)
	}

	method := strings.TrimSpace(wire.CookingProcess.Method)
	if method == "" {
		method = "unknown"
	}
	return mealagent.Preprocessed{
		Ingredients: ingredients,
		CookingProcess: mealagent.CookingProcess{
			Method:         method,
			Temperature:    wire.CookingProcess.Temperature,
			Duration:       wire.CookingProcess.Duration,
			NutrientImpact: stringList(wire.CookingProcess.NutrientImpact),
		},
		MealCategory: wire.MealCategory,
		Reasoning:    wire.Reasoning,
	}, nil
}

type ingredientWire struct {
	Name   json.RawMessage `json:"name"`
	Amount json.RawMessage `json:"amount"`
	Notes  json.RawMessage `json:"notes"`
}

// ingredient decodes one ingredient entry. Scalar fields of any JSON type are accepted
// ("amount": 2 becomes "2"); entries that are not objects are rejected.
func ingredient(raw json.RawMessage) (mealagent.Ingredient, bool) {
	var w ingredientWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return mealagent.Ingredient{}, false
	}
	return mealagent.Ingredient{
		Name:   strings.TrimSpace(scalarText(w.Name)),
		Amount: strings.TrimSpace(scalarText(w.Amount)),
		Notes:  strings.TrimSpace(scalarText(w.Notes)),
	}, true
}
