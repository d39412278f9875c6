package nutrient

import (
	"strings"
	"unicode"
)

// aliases maps normalized spellings that are not already canonical onto canonical keys.
// Labels, kebab-case and snake_case spellings of canonical keys need no entry here:
// Normalize folds them onto the canonical form.
var aliases = map[string]Key{
	"carbs":               Carbohydrates,
	"carb":                Carbohydrates,
	"carbohydrate":        Carbohydrates,
	"total_carbohydrates": Carbohydrates,
	"total_carbohydrate":  Carbohydrates,
	"total_carbs":         Carbohydrates,

	"proteins":      Protein,
	"total_protein": Protein,

	"fat":       TotalFats,
	"fats":      TotalFats,
	"total_fat": TotalFats,
	"lipids":    TotalFats,

	"fibre":         Fiber,
	"dietary_fiber": Fiber,
	"dietary_fibre": Fiber,
	"total_fiber":   Fiber,

	"ala":         "alpha_linolenic_acid",
	"omega_3_ala": "alpha_linolenic_acid",
	"omega_6":     "linoleic_acid",
	"la":          "linoleic_acid",

	"epa_and_dha":     "epa_dha",
	"dha_epa":         "epa_dha",
	"omega_3":         "epa_dha",
	"omega_3_epa_dha": "epa_dha",

	"ascorbic_acid": VitaminC,
	"vit_c":         VitaminC,

	"thiamin":                     "thiamine",
	"vitamin_b1":                  "thiamine",
	"vitamin_b1_thiamine":         "thiamine",
	"vitamin_b2":                  "riboflavin",
	"vitamin_b2_riboflavin":       "riboflavin",
	"vitamin_b3":                  "niacin",
	"vitamin_b3_niacin":           "niacin",
	"vitamin_b5":                  "pantothenic_acid",
	"vitamin_b5_pantothenic_acid": "pantothenic_acid",
	"vitamin_b6":                  "pyridoxine",
	"vitamin_b6_pyridoxine":       "pyridoxine",
	"vitamin_b7":                  "biotin",
	"vitamin_b7_biotin":           "biotin",
	"vitamin_b9":                  "folate",
	"vitamin_b9_folate":           "folate",
	"folic_acid":                  "folate",
	"cobalamin":                   "vitamin_b12",
	"b12":                         "vitamin_b12",

	"coq10":             "coenzyme_q10",
	"total_polyphenols": "polyphenols",
}

var unitSuffixes = []string{"_mcg", "_ug", "_mg", "_ml", "_g"}

// Normalize lowercases s and collapses every run of characters that are not letters or
// digits (spaces, '-', '+', '_', punctuation) into a single '_'.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// Resolve maps any accepted spelling of a nutrient onto its canonical key. It reports
// false for names that match neither a canonical key nor a known alias.
func Resolve(raw string) (Key, bool) {
	n := Normalize(raw)
	if n == "" {
		return "", false
	}
	if k, ok := lookupNormalized(n); ok {
		return k, true
	}
	// "protein_g", "vitamin_c_mg"
	for _, suffix := range unitSuffixes {
		if trimmed, found := strings.CutSuffix(n, suffix); found && trimmed != "" {
			if k, ok := lookupNormalized(trimmed); ok {
				return k, true
			}
		}
	}
	return "", false
}

func lookupNormalized(n string) (Key, bool) {
	if k := Key(n); IsCanonical(k) {
		return k, true
	}
	k, ok := aliases[n]
	return k, ok
}

// ID returns the client-facing identifier for a nutrient name: lowercase with spaces,
// '+' and '-' replaced by a single '_'.
func ID(name string) string {
	return Normalize(name)
}
