package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealagent"
	"mealagent/nutrient"
)

func TestLoopRunExhaustsRounds(t *testing.T) {
	est := fixedEstimator(map[string]float64{"carbohydrates": 27, "protein": 1.3})
	val := rejecting("potassium looks low")
	loop := NewLoop(est, val, LoopOptions{})

	rec, err := loop.Run(context.Background(), "banana", mealagent.Ingredient{Name: "banana", Amount: "1 medium"}, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, rec.Round)
	assert.True(t, rec.Approved)
	assert.True(t, rec.Exhausted)
	assert.Equal(t, map[string]float64{"carbohydrates": 27, "protein": 1.3}, rec.Estimates)
	assert.Equal(t, "potassium looks low", rec.Feedback)
	assert.Len(t, est.calls(), 3)
	assert.Len(t, val.calls(), 3)

	calls := est.calls()
	assert.Empty(t, calls[0].PriorFeedback)
	assert.Equal(t, "potassium looks low", calls[1].PriorFeedback)
	assert.Equal(t, "1 medium", calls[0].Amount)
}

func TestLoopRunTerminatesWithinBudget(t *testing.T) {
	for _, maxRounds := range []int{1, 2, 3, 5, 8} {
		t.Run(fmt.Sprintf("max_rounds=%d", maxRounds), func(t *testing.T) {
			est := fixedEstimator(map[string]float64{"protein": 2})
			val := rejecting("no")
			loop := NewLoop(est, val, LoopOptions{})

			rec, err := loop.Run(context.Background(), "egg", mealagent.Ingredient{Name: "egg"}, maxRounds)
			require.NoError(t, err)
			assert.Equal(t, maxRounds, rec.Round)
			assert.Len(t, est.calls(), maxRounds)
			assert.True(t, rec.Exhausted)
		})
	}
}

func TestLoopRunDefaultRounds(t *testing.T) {
	est := fixedEstimator(map[string]float64{"protein": 2})
	loop := NewLoop(est, rejecting("no"), LoopOptions{})
	assert.Equal(t, DefaultMaxRounds, loop.MaxRounds())

	rec, err := loop.Run(context.Background(), "egg", mealagent.Ingredient{Name: "egg"}, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxRounds, rec.Round)

	loop = NewLoop(est, rejecting("no"), LoopOptions{MaxRounds: 2})
	rec, err = loop.Run(context.Background(), "egg", mealagent.Ingredient{Name: "egg"}, -1)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Round)
}

func TestLoopRunApprovesOnSecondRound(t *testing.T) {
	est := &fakeEstimator{fn: func(_ context.Context, req mealagent.EstimateRequest, call int) (mealagent.Estimate, error) {
		return mealagent.Estimate{
			Estimates:  map[string]float64{"protein": float64(call * 10)},
			Reasoning:  fmt.Sprintf("attempt %d", call),
			Confidence: mealagent.ConfidenceHigh,
		}, nil
	}}
	val := &fakeValidator{fn: func(_ context.Context, req mealagent.ValidateRequest, call int) (mealagent.Validation, error) {
		if call == 1 {
			return mealagent.Validation{Approved: false, Feedback: "protein too low", IssuesFound: 1}, nil
		}
		return mealagent.Validation{Approved: true}, nil
	}}

	rec, err := NewLoop(est, val, LoopOptions{}).Run(context.Background(), "chicken", mealagent.Ingredient{Name: "chicken"}, 3)
	require.NoError(t, err)

	assert.Equal(t, 2, rec.Round)
	assert.True(t, rec.Approved)
	assert.False(t, rec.Exhausted)
	assert.Equal(t, map[string]float64{"protein": 20}, rec.Estimates)
	assert.Equal(t, "attempt 2", rec.Reasoning)
	assert.Equal(t, "protein too low", est.calls()[1].PriorFeedback)
	assert.Equal(t, map[string]float64{"protein": 20}, val.calls()[1].Estimates)
}

func TestLoopRunEstimatorFailure(t *testing.T) {
	t.Run("zero fills when no estimate ever arrives", func(t *testing.T) {
		est := &fakeEstimator{fn: func(context.Context, mealagent.EstimateRequest, int) (mealagent.Estimate, error) {
			return mealagent.Estimate{}, errOracle
		}}
		val := approving()

		rec, err := NewLoop(est, val, LoopOptions{}).Run(context.Background(), "kale", mealagent.Ingredient{Name: "kale"}, 3)
		require.NoError(t, err)

		assert.Equal(t, 1, rec.Round)
		assert.Equal(t, 1, rec.Failures)
		assert.Equal(t, mealagent.ConfidenceLow, rec.Confidence)
		assert.Contains(t, rec.Reasoning, "estimation failed")
		assert.Len(t, rec.Estimates, len(nutrient.Keys()))
		for k, v := range rec.Estimates {
			assert.Zero(t, v, k)
		}
		require.Len(t, val.calls(), 1)
		assert.Len(t, val.calls()[0].Estimates, len(nutrient.Keys()))
	})

	t.Run("keeps previous estimate", func(t *testing.T) {
		est := &fakeEstimator{fn: func(_ context.Context, _ mealagent.EstimateRequest, call int) (mealagent.Estimate, error) {
			if call == 2 {
				return mealagent.Estimate{}, errOracle
			}
			return mealagent.Estimate{Estimates: map[string]float64{"fiber": float64(call)}, Confidence: mealagent.ConfidenceMedium}, nil
		}}
		val := &fakeValidator{fn: func(_ context.Context, _ mealagent.ValidateRequest, call int) (mealagent.Validation, error) {
			return mealagent.Validation{Approved: call == 3}, nil
		}}

		rec, err := NewLoop(est, val, LoopOptions{}).Run(context.Background(), "oats", mealagent.Ingredient{Name: "oats"}, 3)
		require.NoError(t, err)
		assert.Equal(t, 3, rec.Round)
		assert.Equal(t, 1, rec.Failures)
		assert.Equal(t, map[string]float64{"fiber": 1}, val.calls()[1].Estimates)
		assert.Equal(t, map[string]float64{"fiber": 3}, rec.Estimates)
		assert.False(t, rec.Exhausted)
	})
}

func TestLoopRunOracleTimeout(t *testing.T) {
	est := &fakeEstimator{fn: func(ctx context.Context, _ mealagent.EstimateRequest, _ int) (mealagent.Estimate, error) {
		<-ctx.Done()
		return mealagent.Estimate{}, ctx.Err()
	}}
	val := &fakeValidator{fn: func(ctx context.Context, _ mealagent.ValidateRequest, _ int) (mealagent.Validation, error) {
		<-ctx.Done()
		return mealagent.Validation{}, ctx.Err()
	}}
	loop := NewLoop(est, val, LoopOptions{MaxRounds: 2, OracleTimeout: 20 * time.Millisecond})

	start := time.Now()
	rec, err := loop.Run(context.Background(), "lentils", mealagent.Ingredient{Name: "lentils", Amount: "100g"}, 0)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 2, rec.Round)
	assert.True(t, rec.Approved)
	assert.True(t, rec.Exhausted)
	assert.Equal(t, 4, rec.Failures)
	assert.Equal(t, mealagent.ConfidenceLow, rec.Confidence)
	assert.Contains(t, rec.Reasoning, context.DeadlineExceeded.Error())
	require.Len(t, rec.Estimates, len(nutrient.Keys()))
	for k, v := range rec.Estimates {
		assert.Zero(t, v, k)
	}
	assert.Len(t, est.calls(), 2)
	assert.Len(t, val.calls(), 2)
}

func TestLoopRunValidationError(t *testing.T) {
	est := fixedEstimator(map[string]float64{"protein": 5})
	val := &fakeValidator{fn: func(_ context.Context, _ mealagent.ValidateRequest, call int) (mealagent.Validation, error) {
		if call == 1 {
			return mealagent.Validation{Approved: false, Feedback: "check fat"}, nil
		}
		return mealagent.Validation{}, errOracle
	}}

	rec, err := NewLoop(est, val, LoopOptions{}).Run(context.Background(), "tofu", mealagent.Ingredient{Name: "tofu"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Round)
	assert.True(t, rec.Approved)
	assert.True(t, rec.Exhausted)
	assert.Equal(t, 1, rec.Failures)
	assert.Equal(t, "check fat", rec.Feedback)
}

func TestLoopRunCancelled(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		est := fixedEstimator(map[string]float64{"protein": 5})

		rec, err := NewLoop(est, approving(), LoopOptions{}).Run(ctx, "tofu", mealagent.Ingredient{Name: "tofu"}, 3)
		require.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, rec.Round)
		assert.False(t, rec.Approved)
		assert.Len(t, rec.Estimates, len(nutrient.Keys()))
		assert.Empty(t, est.calls())
	})

	t.Run("mid loop", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		est := &fakeEstimator{fn: func(context.Context, mealagent.EstimateRequest, int) (mealagent.Estimate, error) {
			cancel()
			return mealagent.Estimate{Estimates: map[string]float64{"protein": 5}}, nil
		}}
		val := rejecting("again")

		rec, err := NewLoop(est, val, LoopOptions{}).Run(ctx, "tofu", mealagent.Ingredient{Name: "tofu"}, 3)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, rec.Round)
		assert.False(t, rec.Approved)
		assert.Len(t, est.calls(), 1)
	})
}

func TestLoopRunLogsRounds(t *testing.T) {
	var buf bytes.Buffer
	logger := mealagent.NewFileCoordinationLogger(&buf)
	est := fixedEstimator(map[string]float64{"protein": 5})

	_, err := NewLoop(est, rejecting("more"), LoopOptions{Logger: logger}).
		Run(context.Background(), "rice", mealagent.Ingredient{Name: "rice"}, 2)
	require.NoError(t, err)
	require.NoError(t, logger.Flush())

	var doc struct {
		Session struct {
			Rounds []mealagent.RoundLog `json:"rounds"`
		} `json:"coordination_session"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Session.Rounds, 2)
	assert.Equal(t, "rice", doc.Session.Rounds[0].Ingredient)
	assert.Equal(t, 2, doc.Session.Rounds[1].Round)
	require.NotNil(t, doc.Session.Rounds[1].Validation)
	assert.Equal(t, "more", doc.Session.Rounds[1].Validation.Feedback)
}

func TestLoopRunEmitsEvents(t *testing.T) {
	sink := &recordingSink{}
	est := fixedEstimator(map[string]float64{"protein": 5})

	_, err := NewLoop(est, rejecting("x"), LoopOptions{Events: sink}).
		Run(context.Background(), "rice", mealagent.Ingredient{Name: "rice"}, 2)
	require.NoError(t, err)

	assert.Equal(t, []mealagent.EventType{
		mealagent.EventIngredientRound,
		mealagent.EventIngredientRound,
		mealagent.EventIngredientComplete,
	}, sink.types())

	ev, ok := sink.last(mealagent.EventIngredientComplete)
	require.True(t, ok)
	assert.Equal(t, true, ev.Data["exhausted"])
	assert.Equal(t, 2, ev.Data["rounds"])
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		want     string
		terminal bool
	}{
		{StateEstimating, "estimating", false},
		{StateValidating, "validating", false},
		{StateApproved, "approved", true},
		{StateRoundsExhausted, "rounds_exhausted", true},
		{StateCancelled, "cancelled", true},
		{State(42), "state(42)", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
		assert.Equal(t, tt.terminal, tt.state.Terminal(), tt.want)
	}
}
