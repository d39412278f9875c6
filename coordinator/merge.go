package coordinator

import (
	"log/slog"
	"sort"

	"mealagent"
	"mealagent/nutrient"
)

// Merge sums every ingredient's estimates into one map over the full canonical key set.
// Ingredients are visited in name order so the float summation is reproducible.
// Names that do not resolve to a canonical nutrient are logged and returned as
// "ingredient: name" pairs; they are never added to another key.
func Merge(results map[string]mealagent.IngredientEstimate) (nutrient.Map, []string) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	totals := nutrient.Zero()
	var unknown []string
	for _, name := range names {
		for _, key := range nutrient.Accumulate(totals, results[name].Estimates) {
			slog.Warn("MERGE: unknown nutrient key dropped", "ingredient", name, "key", key)
			unknown = append(unknown, name+": "+key)
		}
	}
	return totals, unknown
}
