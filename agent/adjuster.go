package agent

import (
	"context"
	"fmt"
	"strings"

	"mealagent"
	"mealagent/nutrient"
)

// Interactions asks the model to adjust merged meal totals for nutrient interactions and
// cooking losses.
type Interactions struct {
	completer Completer
}

func NewInteractions(c Completer) *Interactions {
	return &Interactions{completer: c}
}

type adjustWire struct {
	FinalEstimates         map[string]any `json:"final_estimates"`
	InteractionReasoning   string         `json:"interaction_reasoning"`
	ProcessImpactReasoning string         `json:"process_impact_reasoning"`
}

func (a *Interactions) Adjust(ctx context.Context, req mealagent.AdjustRequest) (mealagent.Adjustment, error) {
	text, err := a.completer.Complete(ctx, Request{
		Name:        NameAdjust,
		Description: "Report adjusted meal nutrient totals",
		System:      adjustSystemPrompt,
		User:        adjustUser(req),
		Schema:      AdjustSchema(),
	})
	if err != nil {
		return mealagent.Adjustment{}, fmt.Errorf("adjust: %w", err)
	}

	var wire adjustWire
	if err := decodeJSON(text, &wire); err != nil {
		return mealagent.Adjustment{}, fmt.Errorf("adjust: %w", err)
	}
	if wire.FinalEstimates == nil {
		return mealagent.Adjustment{}, fmt.Errorf("adjust: %w: missing final_estimates", ErrMalformed)
	}

	return mealagent.Adjustment{
		FinalEstimates:         numbers(wire.FinalEstimates),
		InteractionReasoning:   wire.InteractionReasoning,
		ProcessImpactReasoning: wire.ProcessImpactReasoning,
	}, nil
}

// GapAdvice asks the model which gaps matter most and what to eat next.
type GapAdvice struct {
	completer Completer
}

func NewGapAdvice(c Completer) *GapAdvice {
	return &GapAdvice{completer: c}
}

type prioritizeWire struct {
	ImportantGaps     []string            `json:"important_gaps"`
	NutrientGroupings map[string][]string `json:"nutrient_groupings"`
	Reasoning         string              `json:"reasoning"`
}

func (g *GapAdvice) Prioritize(ctx context.Context, gaps []nutrient.Gap) (mealagent.Prioritization, error) {
	text, err := g.completer.Complete(ctx, Request{
		Name:        NamePrioritize,
		Description: "Report the most important nutrient gaps and food groupings",
		System:      prioritizeSystemPrompt,
		User:        prioritizeUser(gaps),
		Schema:      PrioritizeSchema(),
	})
	if err != nil {
		return mealagent.Prioritization{}, fmt.Errorf("prioritize: %w", err)
	}

	var wire prioritizeWire
	if err := decodeJSON(text, &wire); err != nil {
		return mealagent.Prioritization{}, fmt.Errorf("prioritize: %w", err)
	}
	if len(wire.ImportantGaps) == 0 {
		return mealagent.Prioritization{}, fmt.Errorf("prioritize: %w: no important gaps", ErrMalformed)
	}
	if wire.NutrientGroupings == nil {
		wire.NutrientGroupings = map[string][]string{}
	}

	return mealagent.Prioritization{
		ImportantGaps:     wire.ImportantGaps,
		NutrientGroupings: wire.NutrientGroupings,
		Reasoning:         wire.Reasoning,
	}, nil
}

// maxSuggestions caps how many meal ideas are kept from one answer.
const maxSuggestions = 5

type suggestWire struct {
	MealSuggestions []mealagent.MealSuggestion `json:"meal_suggestions"`
}

func (g *GapAdvice) Suggest(ctx context.Context, req mealagent.SuggestRequest) ([]mealagent.MealSuggestion, error) {
	text, err := g.completer.Complete(ctx, Request{
		Name:        NameSuggest,
		Description: "Report meal suggestions that close nutrient gaps",
		System:      suggestSystemPrompt,
		User:        suggestUser(req),
		Schema:      SuggestSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}

	var wire suggestWire
	if err := decodeJSON(text, &wire); err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}

	out := make([]mealagent.MealSuggestion, 0, len(wire.MealSuggestions))
	for _, s := range wire.MealSuggestions {
		if strings.TrimSpace(s.Meal) == "" {
			continue
		}
		out = append(out, s)
		if len(out) == maxSuggestions {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("suggest: %w: no meals", ErrMalformed)
	}
	return out, nil
}
