package nutrient

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZero(t *testing.T) {
	z := Zero()
	require.Len(t, z, len(Keys()))
	for _, k := range Keys() {
		v, ok := z[k]
		assert.True(t, ok, k)
		assert.Zero(t, v, k)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-3))
	assert.Equal(t, 0.0, Clamp(math.NaN()))
	assert.Equal(t, 0.0, Clamp(math.Inf(1)))
	assert.Equal(t, 2.5, Clamp(2.5))
}

func TestFromRaw(t *testing.T) {
	t.Run("resolves and clamps", func(t *testing.T) {
		got, unknown := FromRaw(map[string]float64{
			"Protein":   10,
			"carbs":     -4,
			"Vitamin C": 12.5,
			"mystery":   1,
			"flux":      2,
		})
		assert.Equal(t, Map{Protein: 10, Carbohydrates: 0, VitaminC: 12.5}, got)
		assert.Equal(t, []string{"flux", "mystery"}, unknown)
	})

	t.Run("canonical spelling wins over aliases", func(t *testing.T) {
		got, unknown := FromRaw(map[string]float64{
			"carbs":         5,
			"carbohydrates": 7,
			"Carbohydrate":  9,
		})
		assert.Empty(t, unknown)
		assert.Equal(t, 7.0, got[Carbohydrates])
	})

	t.Run("first sorted alias wins without canonical spelling", func(t *testing.T) {
		got, _ := FromRaw(map[string]float64{
			"fats":      3,
			"Total Fat": 4,
		})
		// "Total Fat" sorts before "fats"
		assert.Equal(t, 4.0, got[TotalFats])
	})
}

func TestAccumulate(t *testing.T) {
	totals := Zero()
	unknown := Accumulate(totals, map[string]float64{"protein": 10, "Carbs": 5})
	assert.Empty(t, unknown)
	unknown = Accumulate(totals, map[string]float64{"protein": 10, "carbohydrates": 5, "glitter": 1})
	assert.Equal(t, []string{"glitter"}, unknown)

	assert.InDelta(t, 20, totals[Protein], 1e-9)
	assert.InDelta(t, 10, totals[Carbohydrates], 1e-9)
	assert.Len(t, totals, len(Keys()))
}

func TestSum(t *testing.T) {
	a := Map{Protein: 1.1, VitaminC: 30}
	b := Map{Protein: 2.2, "not_a_nutrient": 99}

	got := Sum(a, b)
	assert.Len(t, got, len(Keys()))
	assert.InDelta(t, 3.3, got[Protein], 1e-9)
	assert.InDelta(t, 30, got[VitaminC], 1e-9)
	_, ok := got["not_a_nutrient"]
	assert.False(t, ok)

	assert.Equal(t, Zero(), Sum())
}

func TestMapComplete(t *testing.T) {
	m := Map{Protein: 4, "bogus": 1}
	c := m.Complete()
	assert.Len(t, c, len(Keys()))
	assert.Equal(t, 4.0, c[Protein])
	_, ok := c["bogus"]
	assert.False(t, ok)
	// original untouched
	assert.Len(t, m, 2)
}
