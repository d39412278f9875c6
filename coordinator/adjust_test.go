package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealagent"
	"mealagent/nutrient"
)

func mergedTotals(values map[nutrient.Key]float64) nutrient.Map {
	m := nutrient.Zero()
	for k, v := range values {
		m[k] = v
	}
	return m
}

func TestAdjusterApply(t *testing.T) {
	t.Run("applies oracle values and backfills the rest", func(t *testing.T) {
		oracle := &fakeInteractions{out: mealagent.Adjustment{
			FinalEstimates: map[string]float64{
				"vitamin_c": 18,
				"iron":      -1,
				"glitter":   4,
			},
			InteractionReasoning:   "vitamin C boosts iron absorption",
			ProcessImpactReasoning: "boiling leaches vitamin C",
		}}
		merged := mergedTotals(map[nutrient.Key]float64{nutrient.VitaminC: 30, nutrient.Protein: 12, "iron": 3})

		got := NewAdjuster(oracle, 0, nil).Apply(context.Background(), mealagent.AdjustRequest{Merged: merged})

		assert.False(t, got.Fallback)
		require.Len(t, got.Final, len(nutrient.Keys()))
		assert.Equal(t, 18.0, got.Final[nutrient.VitaminC])
		assert.Equal(t, 12.0, got.Final[nutrient.Protein])
		assert.Equal(t, 0.0, got.Final["iron"])
		assert.Equal(t, []string{"glitter"}, got.Unknown)
		assert.Equal(t, "vitamin C boosts iron absorption", got.InteractionReasoning)
		assert.Equal(t, 30.0, merged[nutrient.VitaminC], "merged totals are not mutated")
	})

	t.Run("oracle receives complete merged totals", func(t *testing.T) {
		oracle := &fakeInteractions{out: mealagent.Adjustment{FinalEstimates: map[string]float64{}}}
		NewAdjuster(oracle, 0, nil).Apply(context.Background(), mealagent.AdjustRequest{
			Merged: nutrient.Map{nutrient.Protein: 3},
		})
		assert.Len(t, oracle.last.Merged, len(nutrient.Keys()))
		assert.Equal(t, 3.0, oracle.last.Merged[nutrient.Protein])
	})
}

func TestAdjusterApplyFallback(t *testing.T) {
	merged := mergedTotals(map[nutrient.Key]float64{nutrient.Protein: 25, nutrient.Carbohydrates: 40})

	tests := []struct {
		name   string
		oracle mealagent.InteractionOracle
	}{
		{"oracle error", &fakeInteractions{err: errOracle}},
		{"no oracle", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewAdjuster(tt.oracle, 0, nil).Apply(context.Background(), mealagent.AdjustRequest{Merged: merged})

			assert.True(t, got.Fallback)
			assert.Error(t, got.Err)
			assert.Equal(t, merged, got.Final)
			assert.Equal(t, NoAdjustmentRationale, got.InteractionReasoning)
			assert.Equal(t, NoAdjustmentRationale, got.ProcessImpactReasoning)
		})
	}
}

// blockingInteractions never answers before its context ends.
type blockingInteractions struct{}

func (blockingInteractions) Adjust(ctx context.Context, _ mealagent.AdjustRequest) (mealagent.Adjustment, error) {
	<-ctx.Done()
	return mealagent.Adjustment{}, ctx.Err()
}

func TestAdjusterApplyTimeout(t *testing.T) {
	merged := mergedTotals(map[nutrient.Key]float64{"iron": 4, nutrient.VitaminC: 30})

	start := time.Now()
	got := NewAdjuster(blockingInteractions{}, 20*time.Millisecond, nil).Apply(context.Background(), mealagent.AdjustRequest{Merged: merged})

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, got.Fallback)
	assert.ErrorIs(t, got.Err, context.DeadlineExceeded)
	assert.Equal(t, merged, got.Final)
	assert.Equal(t, NoAdjustmentRationale, got.InteractionReasoning)
	assert.Equal(t, NoAdjustmentRationale, got.ProcessImpactReasoning)
}
