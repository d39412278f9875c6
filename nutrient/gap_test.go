package nutrient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeGaps_VitaminCScenario(t *testing.T) {
	targets := Targets{VitaminC: {Target: 90, Unit: "mg", Priority: PriorityHigh}}
	meals := []Map{{VitaminC: 20}, {VitaminC: 25}}

	report := AnalyzeGaps(meals, targets)

	require.Len(t, report.AllGaps, 1)
	gap := report.AllGaps[0]
	assert.Equal(t, VitaminC, gap.Nutrient)
	assert.InDelta(t, 45.0, gap.Current, 1e-9)
	assert.InDelta(t, 50.0, gap.Percentage, 1e-9)
	assert.InDelta(t, 45.0, gap.Deficit, 1e-9)
	assert.InDelta(t, 150.0, gap.ImportanceScore, 1e-9)

	require.Len(t, report.TopGaps, 1)
	assert.Equal(t, "vitamin_c", report.TopGaps[0].ID)
	assert.Equal(t, "Vitamin C", report.TopGaps[0].Name)
}

func TestAnalyzeGaps_Boundary(t *testing.T) {
	targets := Targets{
		Protein:  {Target: 100, Priority: PriorityHigh},
		VitaminC: {Target: 100, Priority: PriorityHigh},
	}

	t.Run("exactly at target is not a gap", func(t *testing.T) {
		report := AnalyzeGaps([]Map{{Protein: 100, VitaminC: 150}}, targets)
		assert.Empty(t, report.AllGaps)
		assert.Empty(t, report.TopGaps)
	})

	t.Run("just below target is a gap", func(t *testing.T) {
		report := AnalyzeGaps([]Map{{Protein: 99.999, VitaminC: 100}}, targets)
		require.Len(t, report.AllGaps, 1)
		assert.Equal(t, Protein, report.AllGaps[0].Nutrient)
		assert.Greater(t, report.AllGaps[0].ImportanceScore, 0.0)
		assert.Less(t, report.AllGaps[0].Percentage, 100.0)

		require.Len(t, report.TopGaps, 1)
		assert.Equal(t, 99.9, report.TopGaps[0].Percentage)
		assert.Equal(t, 0.01, report.TopGaps[0].Deficit)
	})
}

func TestAnalyzeGaps_NonPositiveTargetNeverAGap(t *testing.T) {
	targets := Targets{Protein: {Target: 0, Priority: PriorityHigh}}
	report := AnalyzeGaps(nil, targets)
	assert.Empty(t, report.AllGaps)
}

func TestAnalyzeGaps_RankingAndTopFive(t *testing.T) {
	targets := Targets{
		Protein:       {Target: 100, Priority: PriorityLow},    // 0%  -> 100
		Carbohydrates: {Target: 100, Priority: PriorityHigh},   // 50% -> 150
		TotalFats:     {Target: 100, Priority: PriorityMedium}, // 0%  -> 200
		Fiber:         {Target: 100, Priority: PriorityHigh},   // 90% -> 30
		VitaminC:      {Target: 100, Priority: PriorityMedium}, // 50% -> 100
		Water:         {Target: 100, Priority: PriorityHigh},   // 80% -> 60
		"iron":        {Target: 10, Priority: PriorityHigh},    // 100% -> excluded
	}
	meals := []Map{{Carbohydrates: 50, Fiber: 90, VitaminC: 50, Water: 80, "iron": 10}}

	report := AnalyzeGaps(meals, targets)

	require.Len(t, report.AllGaps, 6)
	var order []Key
	for _, g := range report.AllGaps {
		order = append(order, g.Nutrient)
	}
	// protein precedes vitamin_c on the 100-point tie because it comes first in the schema
	assert.Equal(t, []Key{TotalFats, Carbohydrates, Protein, VitaminC, Water, Fiber}, order)

	require.Len(t, report.TopGaps, TopGapCount)
	for i := 1; i < len(report.TopGaps); i++ {
		assert.GreaterOrEqual(t, report.TopGaps[i-1].ImportanceScore, report.TopGaps[i].ImportanceScore)
	}
	assert.Equal(t, "water", report.TopGaps[4].ID)
}

func TestAnalyzeGaps_Deterministic(t *testing.T) {
	targets := DefaultTargets()
	meals := []Map{
		{Protein: 12, Carbohydrates: 68, TotalFats: 14, Fiber: 8, VitaminC: 15, "iron": 2},
		{Protein: 42, Carbohydrates: 45, TotalFats: 22, Fiber: 6, "vitamin_a": 500, "calcium": 150},
	}

	first := AnalyzeGaps(meals, targets)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, AnalyzeGaps(meals, targets))
	}
	assert.LessOrEqual(t, len(first.TopGaps), TopGapCount)
	assert.Len(t, first.TotalNutrients, len(Keys()))
}

func TestAnalyzeGaps_Presentation(t *testing.T) {
	targets := Targets{"vitamin_b12": {Target: 3, Unit: "mcg", Priority: PriorityHigh}}
	report := AnalyzeGaps([]Map{{"vitamin_b12": 1.23456}}, targets)

	require.Len(t, report.TopGaps, 1)
	top := report.TopGaps[0]
	assert.Equal(t, "vitamin_b12", top.ID)
	assert.Equal(t, "Vitamin B12", top.Name)
	assert.Equal(t, 1.23, top.Current)
	assert.Equal(t, 1.77, top.Deficit)
	assert.Equal(t, 41.2, top.Percentage)
	assert.Equal(t, "mcg", top.Unit)
}
