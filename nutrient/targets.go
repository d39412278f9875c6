package nutrient

import (
	"fmt"
	"log/slog"
	"sort"

	"gopkg.in/yaml.v3"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Weight is the gap-scoring multiplier of a priority. Unknown priorities weigh as medium.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

// Target is a daily goal for one nutrient.
type Target struct {
	Target   float64  `yaml:"target" json:"target"`
	Unit     string   `yaml:"unit" json:"unit"`
	Priority Priority `yaml:"priority" json:"priority"`
	Min      *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max      *float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

// Targets is a daily target table keyed by canonical nutrient.
type Targets map[Key]Target

// Ordered returns the keys of t in canonical schema order.
func (t Targets) Ordered() []Key {
	keys := make([]Key, 0, len(t))
	for _, info := range schema {
		if _, ok := t[info.Key]; ok {
			keys = append(keys, info.Key)
		}
	}
	return keys
}

func between(target, min, max float64) Target {
	return Target{Target: target, Min: &min, Max: &max}
}

// DefaultTargets returns the built-in adult daily target table.
func DefaultTargets() Targets {
	t := Targets{
		Carbohydrates: between(275, 225, 325),
		Protein:       between(87.5, 84, 91),
		TotalFats:     between(79.5, 62, 97),
		Fiber:         {Target: 38},

		"alpha_linolenic_acid": {Target: 1.6},
		"linoleic_acid":        between(14.5, 12, 17),
		"epa_dha":              between(2500, 2000, 3000),

		VitaminC:           {Target: 90},
		"thiamine":         {Target: 1.2},
		"riboflavin":       {Target: 1.3},
		"niacin":           {Target: 16},
		"pantothenic_acid": {Target: 5},
		"pyridoxine":       {Target: 1.3},
		"biotin":           {Target: 30},
		"folate":           {Target: 400},
		"vitamin_b12":      {Target: 2.4},

		"vitamin_a": {Target: 900},
		"vitamin_d": between(17.5, 15, 20),
		"vitamin_e": {Target: 15},
		"vitamin_k": {Target: 120},

		"calcium":    {Target: 1000},
		"phosphorus": {Target: 700},
		"magnesium":  between(410, 400, 420),
		"potassium":  {Target: 3400},
		"sodium":     {Target: 1500, Priority: PriorityMedium},
		"chloride":   {Target: 2300, Priority: PriorityMedium},

		"iron":       {Target: 8},
		"zinc":       {Target: 11},
		"copper":     {Target: 900},
		"selenium":   {Target: 55},
		"manganese":  {Target: 2.3},
		"iodine":     {Target: 150},
		"chromium":   {Target: 35, Priority: PriorityMedium},
		"molybdenum": {Target: 45, Priority: PriorityMedium},

		"choline":           {Target: 550, Priority: PriorityMedium},
		"taurine":           withPriority(between(1750, 500, 3000), PriorityMedium),
		"coenzyme_q10":      withPriority(between(150, 100, 200), PriorityLow),
		"alpha_lipoic_acid": withPriority(between(450, 300, 600), PriorityLow),

		"beta_carotene": withPriority(between(10.5, 6, 15), PriorityMedium),
		"lycopene":      withPriority(between(10.75, 6.5, 15), PriorityMedium),
		"lutein":        withPriority(between(8, 6, 10), PriorityMedium),
		"zeaxanthin":    withPriority(between(3, 2, 4), PriorityMedium),
		"polyphenols":   withPriority(between(825, 650, 1000), PriorityLow),
		"quercetin":     withPriority(between(32.5, 15, 50), PriorityLow),

		"sulforaphane": withPriority(between(15, 10, 20), PriorityMedium),
		"allicin":      withPriority(between(4.5, 3.6, 5.4), PriorityLow),
		"curcumin":     withPriority(between(750, 500, 1000), PriorityLow),

		"beta_glucan":      withPriority(between(6.5, 3, 10), PriorityMedium),
		"resistant_starch": withPriority(between(17.5, 15, 20), PriorityMedium),

		Water: {Target: 3700},
	}
	// sodium carries an upper bound only
	sodiumMax := 2300.0
	sodium := t["sodium"]
	sodium.Max = &sodiumMax
	t["sodium"] = sodium

	for k, target := range t {
		if target.Priority == "" {
			target.Priority = PriorityHigh
		}
		if info, ok := Lookup(k); ok {
			target.Unit = string(info.Unit)
		}
		t[k] = target
	}
	return t
}

func withPriority(t Target, p Priority) Target {
	t.Priority = p
	return t
}

// ParseTargets decodes a target table written as YAML or JSON, keyed by any accepted
// nutrient spelling. Unknown nutrient names are logged and skipped; a missing unit is
// taken from the schema and a missing priority defaults to medium. When several
// spellings name the same nutrient, the canonical key wins, otherwise the first
// spelling in sorted order.
func ParseTargets(data []byte) (Targets, error) {
	var raw map[string]Target
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode target table: %w", err)
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(Targets, len(raw))
	exact := make(map[Key]bool, len(raw))
	for _, name := range names {
		target := raw[name]
		k, ok := Resolve(name)
		if !ok {
			slog.Warn("TARGETS: unknown nutrient skipped", "nutrient", name)
			continue
		}
		switch target.Priority {
		case PriorityHigh, PriorityMedium, PriorityLow:
		case "":
			target.Priority = PriorityMedium
		default:
			return nil, fmt.Errorf("nutrient %q: invalid priority %q", name, target.Priority)
		}
		if target.Unit == "" {
			info, _ := Lookup(k)
			target.Unit = string(info.Unit)
		}
		isExact := name == string(k)
		if _, seen := out[k]; seen && (exact[k] || !isExact) {
			slog.Warn("TARGETS: duplicate nutrient spelling ignored", "nutrient", name, "key", k)
			continue
		}
		out[k] = target
		exact[k] = isExact
	}
	return out, nil
}
