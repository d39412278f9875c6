// Package mock is an offline agent.Completer with deterministic answers. It is a
// learning aid and test double: real models are rarely this agreeable.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strings"

	"mealagent/agent"
)

type Client struct{}

func NewClient() *Client {
	return &Client{}
}

// food is a rough per-portion profile used by the mock estimator.
type food map[string]float64

var foods = map[string]food{
	"banana":  {"carbohydrates": 27, "protein": 1.3, "total_fats": 0.4, "fiber": 3.1, "potassium": 422, "vitamin_c": 10.3, "pyridoxine": 0.4, "magnesium": 32, "water": 89},
	"oats":    {"carbohydrates": 27, "protein": 5, "total_fats": 2.6, "fiber": 4, "iron": 1.9, "magnesium": 56, "zinc": 1.5, "manganese": 1.9},
	"milk":    {"carbohydrates": 12, "protein": 8, "total_fats": 8, "calcium": 300, "vitamin_d": 2.9, "vitamin_b12": 1.1, "riboflavin": 0.4, "water": 215},
	"chicken": {"protein": 31, "total_fats": 3.6, "niacin": 13.7, "pyridoxine": 0.6, "selenium": 27.6, "phosphorus": 228, "leucine": 2.5},
	"rice":    {"carbohydrates": 45, "protein": 4.3, "total_fats": 0.4, "fiber": 0.6, "manganese": 0.8, "selenium": 11.8},
	"egg":     {"protein": 6.3, "total_fats": 5.3, "carbohydrates": 0.4, "choline": 147, "vitamin_b12": 0.45, "selenium": 15.4, "vitamin_d": 1.1},
	"spinach": {"carbohydrates": 1.1, "protein": 0.9, "vitamin_k": 145, "vitamin_a": 141, "folate": 58, "iron": 0.8, "vitamin_c": 8.4, "lutein": 3659},
	"salmon":  {"protein": 25, "total_fats": 13, "epa_dha": 2200, "vitamin_d": 14, "vitamin_b12": 3.2, "selenium": 41},
	"oil":     {"total_fats": 13.5, "vitamin_e": 1.9, "vitamin_k": 8.1},
}

// generic is used for anything not in the table.
var generic = food{"carbohydrates": 10, "protein": 2, "total_fats": 1, "fiber": 1, "water": 50}

var (
	subjectRe  = regexp.MustCompile(`(?m)^Ingredient: (.+)$`)
	gapNameRe  = regexp.MustCompile(`"nutrient": "([^"]+)"`)
	splitterRe = regexp.MustCompile(`(?i)\s*(?:,|\band\b|\bwith\b|&)\s*`)
)

var cookingMethods = []string{"grilled", "fried", "boiled", "baked", "roasted", "steamed", "sauteed", "raw"}

// Complete returns a canned JSON answer for the oracle named by req.Name.
func (c *Client) Complete(ctx context.Context, req agent.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	slog.Debug("LLM_CLIENT: Invoked", "name", req.Name)

	var answer any
	switch req.Name {
	case agent.NamePreprocess:
		answer = preprocess(strings.TrimPrefix(req.User, "Meal description:\n"))
	case agent.NameEstimate:
		answer = estimate(subject(req.User))
	case agent.NameValidate:
		answer = map[string]any{"approved": true, "feedback": "", "issues_found": 0}
	case agent.NameAdjust:
		// An empty map leaves every total at its merged value.
		answer = map[string]any{
			"final_estimates":          map[string]float64{},
			"interaction_reasoning":    "No interactions modelled offline.",
			"process_impact_reasoning": "No cooking losses modelled offline.",
		}
	case agent.NamePrioritize:
		answer = prioritize(req.User)
	case agent.NameSuggest:
		answer = map[string]any{"meal_suggestions": []map[string]string{
			{"meal": "Spinach omelette with whole grain toast", "reasoning": "Folate, iron, vitamin K and choline"},
			{"meal": "Baked salmon with sweet potato", "reasoning": "Omega-3, vitamin D and vitamin A"},
			{"meal": "Greek yogurt with berries and almonds", "reasoning": "Calcium, vitamin C, vitamin E and fiber"},
		}}
	default:
		return "", fmt.Errorf("mock: no canned answer for %q", req.Name)
	}

	b, err := json.Marshal(answer)
	if err != nil {
		return "", fmt.Errorf("mock: marshal %s: %w", req.Name, err)
	}
	return string(b), nil
}

func subject(user string) string {
	m := subjectRe.FindStringSubmatch(user)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// foodNames fixes the match order so lookups are deterministic.
var foodNames = slices.Sorted(maps.Keys(foods))

func lookup(name string) (food, bool) {
	name = strings.ToLower(name)
	for _, key := range foodNames {
		if strings.Contains(name, key) {
			return foods[key], true
		}
	}
	return generic, false
}

func estimate(name string) map[string]any {
	f, known := lookup(name)
	conf := "high"
	if !known {
		conf = "low"
	}
	return map[string]any{
		"estimates":  f,
		"reasoning":  fmt.Sprintf("Offline table values for %q.", name),
		"confidence": conf,
	}
}

func preprocess(description string) map[string]any {
	lower := strings.ToLower(description)

	method := "unknown"
	for _, m := range cookingMethods {
		if strings.Contains(lower, m) {
			method = m
			break
		}
	}

	type ingredient struct {
		Name   string `json:"name"`
		Amount string `json:"amount"`
	}
	var ingredients []ingredient
	for _, part := range splitterRe.Split(description, -1) {
		part = strings.TrimSpace(part)
		for _, m := range cookingMethods {
			part = strings.TrimSpace(strings.TrimPrefix(strings.ToLower(part), m))
		}
		if part == "" {
			continue
		}
		ingredients = append(ingredients, ingredient{Name: part, Amount: "1 serving"})
	}

	return map[string]any{
		"ingredients": ingredients,
		"cooking_process": map[string]any{
			"method":          method,
			"nutrient_impact": []string{},
		},
		"meal_category": "meal",
		"reasoning":     "Split the description into its named components.",
	}
}

func prioritize(user string) map[string]any {
	var names []string
	for _, m := range gapNameRe.FindAllStringSubmatch(user, -1) {
		names = append(names, m[1])
		if len(names) == 5 {
			break
		}
	}
	return map[string]any{
		"important_gaps":     names,
		"nutrient_groupings": map[string][]string{},
		"reasoning":          "Largest weighted shortfalls first.",
	}
}
