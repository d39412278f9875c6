package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"mealagent"
	"mealagent/nutrient"
)

const jsonOnly = `Respond with ONLY the JSON object - no explanations, no text before or after, no markdown formatting. Start immediately with { and end with }.`

const preprocessSystemPrompt = `You are a culinary expert specializing in recipe analysis. Given a meal description, infer the likely ingredients, quantities, and cooking process.

RULES:
- List ALL likely ingredients with realistic quantities (specific amounts and units).
- Include ingredients that are implied but not mentioned (oil, salt, butter).
- Give every ingredient a distinct name.
- Describe the cooking method, temperature and duration, and how it affects nutrients.
- Assume standard recipes and typical serving sizes.

EXAMPLES:
- "pancakes" -> 120g all-purpose flour, 2 tablespoons sugar, 1 tablespoon baking powder, 240ml milk, 1 large egg (65g), 2 tablespoons melted butter
- "grilled chicken salad" -> 150g chicken breast, 100g mixed greens, 50g cherry tomatoes, 30g cucumber, 1 tablespoon olive oil

` + jsonOnly

const estimateSystemPrompt = `You are a nutritional expert. Estimate nutritional values for a SINGLE ingredient.

RULES:
- Focus ONLY on the given ingredient and amount.
- Use standard nutritional databases and knowledge.
- Use 0 for nutrients that are negligible in this ingredient.
- Use exactly the nutrient keys listed below; values are in the listed unit.
- When reviewer feedback is provided, correct the values it points out.

NUTRIENTS:
%s

` + jsonOnly

const validateSystemPrompt = `You are a nutritional fact-checker. Verify nutrient estimates for a SINGLE ingredient.

RULES:
- Check whether the estimates are realistic for THIS ingredient and amount.
- Compare against known nutritional databases.
- Accept estimates within 25% of expected values.
- Only reject when values are significantly wrong or unrealistic, and say which ones in feedback.

` + jsonOnly

const adjustSystemPrompt = `You are a nutritional biochemist. Adjust the summed nutrient totals of a meal for nutrient interactions and cooking losses.

CONSIDER:
- Vitamin absorption enhanced or inhibited by other nutrients.
- Mineral bioavailability changes.
- Heat-sensitive vitamin losses (vitamin C, B vitamins).
- Fat absorbed from cooking oil or rendered during cooking.

RULES:
- Return final_estimates for EVERY nutrient key in the current totals.
- Explain interactions and process impacts step by step.

` + jsonOnly

const prioritizeSystemPrompt = `You are a nutrition expert analyzing daily nutrient gaps.

RULES:
- Identify the MOST IMPORTANT gaps: essential vitamins, minerals and fatty acids, high priority deficiencies, and anything below 50% of target.
- Polyphenols and other non-essential compounds matter less.
- Group nutrients commonly found in the same foods, e.g. "Vitamin D, Omega-3, Calcium" -> fatty fish and fortified dairy.
- Explain your reasoning.

` + jsonOnly

const suggestSystemPrompt = `You are a nutrition expert suggesting meals to fill nutrient gaps.

RULES:
- Suggest 3 to 5 practical meals built from whole foods and common ingredients.
- Cover several deficiencies with one meal when possible.
- meal: a short specific title, at most 8 words.
- reasoning: the key nutrients covered, at most 15 words.

` + jsonOnly

// nutrientList renders the canonical key table once; it never changes at runtime.
var nutrientList = func() string {
	var b strings.Builder
	for _, info := range nutrient.All() {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", info.Key, info.Label, info.Unit)
	}
	return strings.TrimRight(b.String(), "\n")
}()

func estimateSystem() string {
	return fmt.Sprintf(estimateSystemPrompt, nutrientList)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}

func estimateUser(req mealagent.EstimateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ingredient: %s\n", req.Subject)
	fmt.Fprintf(&b, "Amount: %s\n", orNone(req.Amount))
	fmt.Fprintf(&b, "Notes: %s\n", orNone(req.Notes))
	if req.PriorFeedback != "" {
		fmt.Fprintf(&b, "\nReviewer feedback on your previous estimate:\n%s\n", req.PriorFeedback)
	}
	return b.String()
}

func validateUser(req mealagent.ValidateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ingredient: %s\n", req.Subject)
	fmt.Fprintf(&b, "Amount: %s\n\n", orNone(req.Amount))
	fmt.Fprintf(&b, "Nutrient estimates to verify:\n%s\n", mustJSON(req.Estimates))
	return b.String()
}

func preprocessUser(description string) string {
	return "Meal description:\n" + description
}

func adjustUser(req mealagent.AdjustRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Meal description: %s\n\nIngredients:\n", req.Description)
	for _, ing := range req.Ingredients {
		fmt.Fprintf(&b, "- %s: %s\n", ing.Name, ing.Amount)
	}
	cp := req.CookingProcess
	fmt.Fprintf(&b, "\nCooking process:\nMethod: %s\nTemperature: %s\nDuration: %s\nKnown impacts: %s\n",
		orNone(cp.Method), orNone(cp.Temperature), orNone(cp.Duration), orNone(strings.Join(cp.NutrientImpact, ", ")))
	fmt.Fprintf(&b, "\nCurrent nutrient totals (sum of all ingredients):\n%s\n", mustJSON(req.Merged.Values()))
	return b.String()
}

func prioritizeUser(gaps []nutrient.Gap) string {
	return "Current nutrient gaps (sorted by importance):\n" + mustJSON(gapView(gaps))
}

func suggestUser(req mealagent.SuggestRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Important nutrient gaps to address:\n%s\n\n", strings.Join(req.Prioritization.ImportantGaps, ", "))
	fmt.Fprintf(&b, "Nutrient groupings (nutrients found in similar foods):\n%s\n\n", mustJSON(req.Prioritization.NutrientGroupings))
	top := req.Gaps
	if len(top) > 10 {
		top = top[:10]
	}
	fmt.Fprintf(&b, "Current nutrient status (top deficiencies):\n%s\n", mustJSON(gapView(top)))
	return b.String()
}

type gapLine struct {
	Nutrient   string  `json:"nutrient"`
	Current    float64 `json:"current"`
	Target     float64 `json:"target"`
	Unit       string  `json:"unit"`
	Percentage float64 `json:"percentage"`
	Priority   string  `json:"priority"`
}

func gapView(gaps []nutrient.Gap) []gapLine {
	out := make([]gapLine, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, gapLine{
			Nutrient:   g.Label,
			Current:    g.Current,
			Target:     g.Target,
			Unit:       g.Unit,
			Percentage: g.Percentage,
			Priority:   string(g.Priority),
		})
	}
	return out
}

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
