// Package nutrient holds the canonical nutrient vocabulary, daily targets and the
// pure arithmetic (aggregation, gap scoring) built on top of it.
package nutrient

// Key is a canonical nutrient identifier.
type Key string

type Category string

const (
	Macronutrient Category = "macronutrient"
	Vitamin       Category = "vitamin"
	Mineral       Category = "mineral"
	AminoAcid     Category = "amino_acid"
	Beneficial    Category = "beneficial"
	Phytonutrient Category = "phytonutrient"
)

type Unit string

const (
	Gram       Unit = "g"
	Milligram  Unit = "mg"
	Microgram  Unit = "mcg"
	Milliliter Unit = "ml"
)

// Info describes one canonical nutrient.
type Info struct {
	Key      Key
	Label    string
	Category Category
	Unit     Unit
}

const (
	Carbohydrates Key = "carbohydrates"
	Protein       Key = "protein"
	TotalFats     Key = "total_fats"
	Fiber         Key = "fiber"
	VitaminC      Key = "vitamin_c"
	Water         Key = "water"
)

// schema is the single definition of the canonical key set. Order matters: it is the
// iteration order for every deterministic walk over nutrients.
var schema = []Info{
	{Carbohydrates, "Carbohydrates", Macronutrient, Gram},
	{Protein, "Protein", Macronutrient, Gram},
	{TotalFats, "Total Fats", Macronutrient, Gram},
	{Fiber, "Fiber", Macronutrient, Gram},
	{"alpha_linolenic_acid", "Alpha-Linolenic Acid", Macronutrient, Gram},
	{"linoleic_acid", "Linoleic Acid", Macronutrient, Gram},
	{"epa_dha", "EPA+DHA", Macronutrient, Milligram},
	{Water, "Water", Macronutrient, Milliliter},

	{VitaminC, "Vitamin C", Vitamin, Milligram},
	{"thiamine", "Thiamine", Vitamin, Milligram},
	{"riboflavin", "Riboflavin", Vitamin, Milligram},
	{"niacin", "Niacin", Vitamin, Milligram},
	{"pantothenic_acid", "Pantothenic Acid", Vitamin, Milligram},
	{"pyridoxine", "Pyridoxine", Vitamin, Milligram},
	{"biotin", "Biotin", Vitamin, Microgram},
	{"folate", "Folate", Vitamin, Microgram},
	{"vitamin_b12", "Vitamin B12", Vitamin, Microgram},
	{"vitamin_a", "Vitamin A", Vitamin, Microgram},
	{"vitamin_d", "Vitamin D", Vitamin, Microgram},
	{"vitamin_e", "Vitamin E", Vitamin, Milligram},
	{"vitamin_k", "Vitamin K", Vitamin, Microgram},

	{"calcium", "Calcium", Mineral, Milligram},
	{"phosphorus", "Phosphorus", Mineral, Milligram},
	{"magnesium", "Magnesium", Mineral, Milligram},
	{"potassium", "Potassium", Mineral, Milligram},
	{"sodium", "Sodium", Mineral, Milligram},
	{"chloride", "Chloride", Mineral, Milligram},
	{"iron", "Iron", Mineral, Milligram},
	{"zinc", "Zinc", Mineral, Milligram},
	{"copper", "Copper", Mineral, Microgram},
	{"selenium", "Selenium", Mineral, Microgram},
	{"manganese", "Manganese", Mineral, Milligram},
	{"iodine", "Iodine", Mineral, Microgram},
	{"chromium", "Chromium", Mineral, Microgram},
	{"molybdenum", "Molybdenum", Mineral, Microgram},

	{"leucine", "Leucine", AminoAcid, Gram},
	{"lysine", "Lysine", AminoAcid, Gram},
	{"valine", "Valine", AminoAcid, Gram},
	{"isoleucine", "Isoleucine", AminoAcid, Gram},
	{"threonine", "Threonine", AminoAcid, Gram},
	{"methionine", "Methionine", AminoAcid, Gram},
	{"phenylalanine", "Phenylalanine", AminoAcid, Gram},
	{"histidine", "Histidine", AminoAcid, Gram},
	{"tryptophan", "Tryptophan", AminoAcid, Gram},

	{"choline", "Choline", Beneficial, Milligram},
	{"taurine", "Taurine", Beneficial, Milligram},
	{"coenzyme_q10", "Coenzyme Q10", Beneficial, Milligram},
	{"alpha_lipoic_acid", "Alpha-Lipoic Acid", Beneficial, Milligram},
	{"beta_glucan", "Beta-Glucan", Beneficial, Gram},
	{"resistant_starch", "Resistant Starch", Beneficial, Gram},

	{"beta_carotene", "Beta-Carotene", Phytonutrient, Milligram},
	{"lycopene", "Lycopene", Phytonutrient, Milligram},
	{"lutein", "Lutein", Phytonutrient, Milligram},
	{"zeaxanthin", "Zeaxanthin", Phytonutrient, Milligram},
	{"polyphenols", "Polyphenols", Phytonutrient, Milligram},
	{"quercetin", "Quercetin", Phytonutrient, Milligram},
	{"sulforaphane", "Sulforaphane", Phytonutrient, Milligram},
	{"allicin", "Allicin", Phytonutrient, Milligram},
	{"curcumin", "Curcumin", Phytonutrient, Milligram},
}

var byKey = func() map[Key]Info {
	m := make(map[Key]Info, len(schema))
	for _, info := range schema {
		m[info.Key] = info
	}
	return m
}()

// Keys returns the canonical keys in schema order. The returned slice is a copy.
func Keys() []Key {
	keys := make([]Key, len(schema))
	for i, info := range schema {
		keys[i] = info.Key
	}
	return keys
}

// All returns the schema entries in canonical order.
func All() []Info {
	out := make([]Info, len(schema))
	copy(out, schema)
	return out
}

// Lookup returns the schema entry for a canonical key.
func Lookup(k Key) (Info, bool) {
	info, ok := byKey[k]
	return info, ok
}

// IsCanonical reports whether k belongs to the canonical set.
func IsCanonical(k Key) bool {
	_, ok := byKey[k]
	return ok
}

// ByCategory returns the canonical keys of one category in schema order.
func ByCategory(c Category) []Key {
	var keys []Key
	for _, info := range schema {
		if info.Category == c {
			keys = append(keys, info.Key)
		}
	}
	return keys
}
