package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealagent"
	"mealagent/nutrient"
)

// fakeCompleter returns a canned answer and records the last request.
type fakeCompleter struct {
	answer string
	err    error
	last   Request
	calls  int
}

func (f *fakeCompleter) Complete(_ context.Context, req Request) (string, error) {
	f.calls++
	f.last = req
	return f.answer, f.err
}

func TestEstimator_Estimate(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		err     error
		want    mealagent.Estimate
		wantErr error
	}{
		{
			name:   "well formed",
			answer: `{"estimates": {"protein": 1.3, "Vitamin C": "10.3 mg"}, "reasoning": "USDA", "confidence": "HIGH"}`,
			want: mealagent.Estimate{
				Estimates:  map[string]float64{"protein": 1.3, "Vitamin C": 10.3},
				Reasoning:  "USDA",
				Confidence: mealagent.ConfidenceHigh,
			},
		},
		{
			name:   "legacy confidence field",
			answer: `{"estimates": {}, "reasoning": "", "confidence_level": "medium"}`,
			want: mealagent.Estimate{
				Estimates:  map[string]float64{},
				Confidence: mealagent.ConfidenceMedium,
			},
		},
		{
			name:   "unknown confidence is low",
			answer: `{"estimates": {"protein": 1}, "confidence": "pretty sure"}`,
			want: mealagent.Estimate{
				Estimates:  map[string]float64{"protein": 1},
				Confidence: mealagent.ConfidenceLow,
			},
		},
		{name: "missing estimates", answer: `{"reasoning": "?"}`, wantErr: ErrMalformed},
		{name: "not json", answer: `sorry`, wantErr: ErrNoJSON},
		{name: "transport failure", err: context.DeadlineExceeded, wantErr: context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{answer: tt.answer, err: tt.err}
			got, err := NewEstimator(fc).Estimate(context.Background(), mealagent.EstimateRequest{
				Subject: "banana", Amount: "1 medium", PriorFeedback: "potassium too low",
			})

			assert.Equal(t, NameEstimate, fc.last.Name)
			assert.Contains(t, fc.last.User, "Ingredient: banana")
			assert.Contains(t, fc.last.User, "potassium too low")
			assert.Contains(t, fc.last.System, "vitamin_c")
			require.NotNil(t, fc.last.Schema)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidator_Validate(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		want    mealagent.Validation
		wantErr error
	}{
		{
			name:   "approved with count",
			answer: `{"approved": true, "issues_found": 0}`,
			want:   mealagent.Validation{Approved: true},
		},
		{
			name:   "rejected with issue list",
			answer: `{"approved": false, "feedback": ["protein too high", "fiber missing"], "issues_found": ["protein", "fiber"]}`,
			want: mealagent.Validation{
				Approved:    false,
				Feedback:    "protein too high\nfiber missing",
				IssuesFound: 2,
			},
		},
		{name: "missing approved", answer: `{"issues_found": 1}`, wantErr: ErrMalformed},
		{name: "empty", answer: ``, wantErr: ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{answer: tt.answer}
			got, err := NewValidator(fc).Validate(context.Background(), mealagent.ValidateRequest{
				Subject:   "banana",
				Estimates: map[string]float64{"protein": 1.3},
			})
			assert.Equal(t, NameValidate, fc.last.Name)
			assert.Contains(t, fc.last.User, `"protein": 1.3`)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPreprocessor_Preprocess(t *testing.T) {
	fc := &fakeCompleter{answer: `{
		"ingredients": [
			{"name": "rolled oats", "amount": "40g"},
			{"name": "  ", "amount": "1 pinch"},
			{"name": "banana", "amount": "1 medium", "notes": "sliced"}
		],
		"cooking_process": {"method": "", "nutrient_impact": "minimal vitamin loss"},
		"meal_category": "breakfast",
		"reasoning": "standard porridge"
	}`}

	got, err := NewPreprocessor(fc).Preprocess(context.Background(), "oatmeal with banana")
	require.NoError(t, err)

	assert.Equal(t, NamePreprocess, fc.last.Name)
	assert.Contains(t, fc.last.User, "oatmeal with banana")
	assert.Equal(t, []mealagent.Ingredient{
		{Name: "rolled oats", Amount: "40g"},
		{Name: "banana", Amount: "1 medium", Notes: "sliced"},
	}, got.Ingredients)
	assert.Equal(t, "unknown", got.CookingProcess.Method)
	assert.Equal(t, []string{"minimal vitamin loss"}, got.CookingProcess.NutrientImpact)
	assert.Equal(t, "breakfast", got.MealCategory)
}

func TestPreprocessor_PreprocessLooseIngredients(t *testing.T) {
	fc := &fakeCompleter{answer: `{
		"ingredients": [
			{"name": "egg", "amount": 2},
			42,
			{"name": "toast", "amount": "1 slice", "notes": null},
			{"name": "butter", "amount": 0.5, "notes": ["salted"]}
		],
		"cooking_process": {"method": "frying"},
		"meal_category": "breakfast"
	}`}

	got, err := NewPreprocessor(fc).Preprocess(context.Background(), "two eggs on toast")
	require.NoError(t, err)
	assert.Equal(t, []mealagent.Ingredient{
		{Name: "egg", Amount: "2"},
		{Name: "toast", Amount: "1 slice"},
		{Name: "butter", Amount: "0.5"},
	}, got.Ingredients)
	assert.Equal(t, "frying", got.CookingProcess.Method)
}

func TestInteractions_Adjust(t *testing.T) {
	t.Run("adjusted totals", func(t *testing.T) {
		fc := &fakeCompleter{answer: `{"final_estimates": {"vitamin_c": 8, "protein": 20}, "interaction_reasoning": "iron absorption", "process_impact_reasoning": "boiling"}`}
		got, err := NewInteractions(fc).Adjust(context.Background(), mealagent.AdjustRequest{
			Description:    "lentil soup",
			Ingredients:    []mealagent.Ingredient{{Name: "lentils", Amount: "100g"}},
			CookingProcess: mealagent.CookingProcess{Method: "boiling"},
			Merged:         nutrient.Map{nutrient.VitaminC: 10, nutrient.Protein: 20},
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"vitamin_c": 8, "protein": 20}, got.FinalEstimates)
		assert.Equal(t, "iron absorption", got.InteractionReasoning)
		assert.Contains(t, fc.last.User, "Method: boiling")
		assert.Contains(t, fc.last.User, "- lentils: 100g")
	})

	t.Run("missing totals", func(t *testing.T) {
		fc := &fakeCompleter{answer: `{"interaction_reasoning": "x"}`}
		_, err := NewInteractions(fc).Adjust(context.Background(), mealagent.AdjustRequest{})
		assert.ErrorIs(t, err, ErrMalformed)
	})
}

func TestGapAdvice(t *testing.T) {
	gaps := []nutrient.Gap{{Nutrient: nutrient.VitaminC, Label: "Vitamin C", Current: 45, Target: 90, Percentage: 50, Priority: nutrient.PriorityHigh, Unit: "mg"}}

	t.Run("prioritize", func(t *testing.T) {
		fc := &fakeCompleter{answer: `{"important_gaps": ["Vitamin C"], "reasoning": "essential"}`}
		got, err := NewGapAdvice(fc).Prioritize(context.Background(), gaps)
		require.NoError(t, err)
		assert.Equal(t, []string{"Vitamin C"}, got.ImportantGaps)
		assert.NotNil(t, got.NutrientGroupings)
		assert.Contains(t, fc.last.User, `"nutrient": "Vitamin C"`)
	})

	t.Run("prioritize without gaps is malformed", func(t *testing.T) {
		fc := &fakeCompleter{answer: `{"important_gaps": [], "nutrient_groupings": {}, "reasoning": ""}`}
		_, err := NewGapAdvice(fc).Prioritize(context.Background(), gaps)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("suggest keeps at most five named meals", func(t *testing.T) {
		fc := &fakeCompleter{answer: `{"meal_suggestions": [
			{"meal": "a", "reasoning": "1"}, {"meal": "", "reasoning": "skip"},
			{"meal": "b", "reasoning": "2"}, {"meal": "c", "reasoning": "3"},
			{"meal": "d", "reasoning": "4"}, {"meal": "e", "reasoning": "5"},
			{"meal": "f", "reasoning": "6"}
		]}`}
		got, err := NewGapAdvice(fc).Suggest(context.Background(), mealagent.SuggestRequest{Gaps: gaps})
		require.NoError(t, err)
		require.Len(t, got, 5)
		assert.Equal(t, "e", got[4].Meal)
	})

	t.Run("suggest failure", func(t *testing.T) {
		fc := &fakeCompleter{err: errors.New("boom")}
		_, err := NewGapAdvice(fc).Suggest(context.Background(), mealagent.SuggestRequest{Gaps: gaps})
		assert.Error(t, err)
	})
}
