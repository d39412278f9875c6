package agent

import (
	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"mealagent/nutrient"
)

// nutrientMapSchema lists every canonical nutrient as an optional non-negative number.
func nutrientMapSchema(description string) *jsonschema.Schema {
	zero := 0.0
	props := make(map[string]*jsonschema.Schema, len(nutrient.Keys()))
	for _, info := range nutrient.All() {
		props[string(info.Key)] = &jsonschema.Schema{
			Type:        "number",
			Minimum:     &zero,
			Description: info.Label + " (" + string(info.Unit) + ")",
		}
	}
	return &jsonschema.Schema{
		Type:        "object",
		Description: description,
		Properties:  props,
	}
}

func confidenceSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "string",
		Enum: []any{"high", "medium", "low"},
	}
}

func PreprocessSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"ingredients": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"name":   {Type: "string"},
						"amount": {Type: "string", Description: "Quantity with unit, e.g. 120g or 1 medium"},
						"notes":  {Type: "string"},
					},
					Required: []string{"name", "amount"},
				},
			},
			"cooking_process": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"method":          {Type: "string"},
					"temperature":     {Type: "string"},
					"duration":        {Type: "string"},
					"nutrient_impact": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
				},
				Required: []string{"method"},
			},
			"meal_category": {Type: "string"},
			"reasoning":     {Type: "string"},
		},
		Required: []string{"ingredients", "cooking_process", "meal_category", "reasoning"},
	}
}

func EstimateSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"estimates":  nutrientMapSchema("Nutrient amounts for the given quantity; use 0 for negligible nutrients"),
			"reasoning":  {Type: "string"},
			"confidence": confidenceSchema(),
		},
		Required: []string{"estimates", "reasoning", "confidence"},
	}
}

func ValidateSchema() *jsonschema.Schema {
	zero := 0.0
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"approved":     {Type: "boolean"},
			"feedback":     {Type: "string", Description: "What to correct when not approved"},
			"issues_found": {Type: "integer", Minimum: &zero},
		},
		Required: []string{"approved", "issues_found"},
	}
}

func AdjustSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"final_estimates":          nutrientMapSchema("Adjusted totals for the whole meal, covering every nutrient"),
			"interaction_reasoning":    {Type: "string"},
			"process_impact_reasoning": {Type: "string"},
		},
		Required: []string{"final_estimates", "interaction_reasoning", "process_impact_reasoning"},
	}
}

func PrioritizeSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"important_gaps": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"nutrient_groupings": {
				Type:                 "object",
				Description:          "Food group to the gap nutrients it covers",
				AdditionalProperties: &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			},
			"reasoning": {Type: "string"},
		},
		Required: []string{"important_gaps", "nutrient_groupings", "reasoning"},
	}
}

func SuggestSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"meal_suggestions": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"meal":      {Type: "string", Description: "Short meal title, at most 8 words"},
						"reasoning": {Type: "string", Description: "Key nutrients covered, at most 15 words"},
					},
					Required: []string{"meal", "reasoning"},
				},
			},
		},
		Required: []string{"meal_suggestions"},
	}
}
