package slack

import (
	"fmt"
	"sort"
	"strings"

	"mealagent"
)

// FormatMeal renders a meal estimate as Slack mrkdwn.
func FormatMeal(r mealagent.MealResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Meal:* %s\n", r.Description)
	if r.MealCategory != "" {
		fmt.Fprintf(&b, "*Category:* %s\n", r.MealCategory)
	}
	fmt.Fprintf(&b, "*Calories:* %.0f kcal | *Protein:* %.1f g | *Carbs:* %.1f g | *Fat:* %.1f g\n",
		r.Calories, r.Protein, r.Carbs, r.Fat)

	if len(r.Ingredients) > 0 {
		names := make([]string, 0, len(r.Ingredients))
		for name := range r.Ingredients {
			names = append(names, name)
		}
		sort.Strings(names)

		b.WriteString("*Ingredients:*\n")
		for _, name := range names {
			ing := r.Ingredients[name]
			status := "approved"
			if ing.Exhausted {
				status = "unverified"
			}
			fmt.Fprintf(&b, "• %s", name)
			if ing.Ingredient.Amount != "" {
				fmt.Fprintf(&b, " (%s)", ing.Ingredient.Amount)
			}
			fmt.Fprintf(&b, ": %s after %d round(s), %s confidence\n", status, ing.Round, ing.Confidence)
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("*Warnings:*\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "• %s\n", w)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatGaps renders a gap analysis as Slack mrkdwn.
func FormatGaps(a mealagent.GapAnalysis) string {
	if len(a.TopGaps) == 0 {
		return "*Nutrient gaps:* none, all daily targets met :tada:"
	}

	var b strings.Builder
	b.WriteString("*Top nutrient gaps:*\n")
	for _, g := range a.TopGaps {
		fmt.Fprintf(&b, "• %s: %.1f%% of target (%g/%g %s, %s priority)\n",
			g.Name, g.Percentage, g.Current, g.Target, g.Unit, g.Priority)
	}
	if a.Prioritization.Reasoning != "" {
		fmt.Fprintf(&b, "*Why:* %s\n", a.Prioritization.Reasoning)
	}
	if len(a.Suggestions) > 0 {
		b.WriteString("*Try next:*\n")
		for _, s := range a.Suggestions {
			fmt.Fprintf(&b, "• %s: %s\n", s.Meal, s.Reasoning)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
