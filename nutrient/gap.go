package nutrient

import (
	"math"
	"sort"
)

// TopGapCount is how many gaps are selected for presentation.
const TopGapCount = 5

// Rounded presentation values never claim a gap is closed.
const (
	maxDisplayPercentage = 99.9
	minDisplayDeficit    = 0.01
)

// Gap is a nutrient whose accumulated intake is below its daily target.
type Gap struct {
	Nutrient        Key      `json:"nutrient"`
	Label           string   `json:"label"`
	Current         float64  `json:"current"`
	Target          float64  `json:"target"`
	Deficit         float64  `json:"deficit"`
	Percentage      float64  `json:"percentage"`
	Priority        Priority `json:"priority"`
	Unit            string   `json:"unit"`
	ImportanceScore float64  `json:"importance_score"`
}

// TopGap is the presentation shape of a selected gap.
type TopGap struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Current         float64  `json:"current"`
	Target          float64  `json:"target"`
	Deficit         float64  `json:"deficit"`
	Percentage      float64  `json:"percentage"`
	Unit            string   `json:"unit"`
	Priority        Priority `json:"priority"`
	ImportanceScore float64  `json:"importance_score"`
}

// GapReport is the outcome of one gap analysis.
type GapReport struct {
	TotalNutrients Map      `json:"total_nutrients"`
	AllGaps        []Gap    `json:"all_gaps"`
	TopGaps        []TopGap `json:"top_gaps"`
}

// Percentage returns current as a percentage of target. A non-positive target counts as
// fully met.
func Percentage(current, target float64) float64 {
	if target <= 0 {
		return 100
	}
	return current / target * 100
}

// AnalyzeGaps sums the given meal totals, scores every targeted nutrient below 100% of its
// target and ranks the gaps by importance. It is a pure function of its inputs: ties keep
// canonical schema order.
func AnalyzeGaps(meals []Map, targets Targets) GapReport {
	totals := Sum(meals...)

	gaps := make([]Gap, 0, len(targets))
	for _, k := range targets.Ordered() {
		goal := targets[k]
		current := totals.Get(k)
		pct := Percentage(current, goal.Target)
		if pct >= 100 {
			continue
		}

		label := string(k)
		if info, ok := Lookup(k); ok {
			label = info.Label
		}
		gaps = append(gaps, Gap{
			Nutrient:        k,
			Label:           label,
			Current:         current,
			Target:          goal.Target,
			Deficit:         math.Max(0, goal.Target-current),
			Percentage:      pct,
			Priority:        goal.Priority,
			Unit:            goal.Unit,
			ImportanceScore: (100 - pct) * goal.Priority.Weight(),
		})
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].ImportanceScore > gaps[j].ImportanceScore
	})

	n := min(TopGapCount, len(gaps))
	top := make([]TopGap, 0, n)
	for _, g := range gaps[:n] {
		top = append(top, TopGap{
			ID:              ID(string(g.Nutrient)),
			Name:            g.Label,
			Current:         round(g.Current, 2),
			Target:          g.Target,
			Deficit:         math.Max(round(g.Deficit, 2), minDisplayDeficit),
			Percentage:      math.Min(round(g.Percentage, 1), maxDisplayPercentage),
			Unit:            g.Unit,
			Priority:        g.Priority,
			ImportanceScore: g.ImportanceScore,
		})
	}

	return GapReport{
		TotalNutrients: totals,
		AllGaps:        gaps,
		TopGaps:        top,
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
