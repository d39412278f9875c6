package coordinator

import (
	"context"
	"errors"
	"sync"

	"mealagent"
	"mealagent/nutrient"
)

var errOracle = errors.New("oracle unavailable")

// fakeEstimator answers from fn and records every request.
type fakeEstimator struct {
	mu       sync.Mutex
	requests []mealagent.EstimateRequest
	fn       func(ctx context.Context, req mealagent.EstimateRequest, call int) (mealagent.Estimate, error)
}

func (f *fakeEstimator) Estimate(ctx context.Context, req mealagent.EstimateRequest) (mealagent.Estimate, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	call := len(f.requests)
	f.mu.Unlock()
	if f.fn == nil {
		return mealagent.Estimate{Estimates: map[string]float64{"protein": 1}, Confidence: mealagent.ConfidenceHigh}, nil
	}
	return f.fn(ctx, req, call)
}

func (f *fakeEstimator) calls() []mealagent.EstimateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mealagent.EstimateRequest(nil), f.requests...)
}

// fixedEstimator returns the same estimate for every call.
func fixedEstimator(estimates map[string]float64) *fakeEstimator {
	return &fakeEstimator{fn: func(context.Context, mealagent.EstimateRequest, int) (mealagent.Estimate, error) {
		return mealagent.Estimate{Estimates: estimates, Reasoning: "fixed", Confidence: mealagent.ConfidenceMedium}, nil
	}}
}

// perIngredient returns estimates keyed by the ingredient name.
func perIngredient(table map[string]map[string]float64) *fakeEstimator {
	return &fakeEstimator{fn: func(_ context.Context, req mealagent.EstimateRequest, _ int) (mealagent.Estimate, error) {
		est, ok := table[req.Subject]
		if !ok {
			return mealagent.Estimate{}, errOracle
		}
		return mealagent.Estimate{Estimates: est, Confidence: mealagent.ConfidenceHigh}, nil
	}}
}

type fakeValidator struct {
	mu       sync.Mutex
	requests []mealagent.ValidateRequest
	fn       func(ctx context.Context, req mealagent.ValidateRequest, call int) (mealagent.Validation, error)
}

func (f *fakeValidator) Validate(ctx context.Context, req mealagent.ValidateRequest) (mealagent.Validation, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	call := len(f.requests)
	f.mu.Unlock()
	if f.fn == nil {
		return mealagent.Validation{Approved: true}, nil
	}
	return f.fn(ctx, req, call)
}

func (f *fakeValidator) calls() []mealagent.ValidateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mealagent.ValidateRequest(nil), f.requests...)
}

func approving() *fakeValidator { return &fakeValidator{} }

func rejecting(feedback string) *fakeValidator {
	return &fakeValidator{fn: func(context.Context, mealagent.ValidateRequest, int) (mealagent.Validation, error) {
		return mealagent.Validation{Approved: false, Feedback: feedback, IssuesFound: 1}, nil
	}}
}

type fakePreprocessor struct {
	out   mealagent.Preprocessed
	err   error
	calls int
}

func (f *fakePreprocessor) Preprocess(context.Context, string) (mealagent.Preprocessed, error) {
	f.calls++
	return f.out, f.err
}

type fakeInteractions struct {
	out  mealagent.Adjustment
	err  error
	last mealagent.AdjustRequest
}

func (f *fakeInteractions) Adjust(_ context.Context, req mealagent.AdjustRequest) (mealagent.Adjustment, error) {
	f.last = req
	return f.out, f.err
}

type fakeGapOracle struct {
	prio           mealagent.Prioritization
	prioErr        error
	suggestions    []mealagent.MealSuggestion
	suggestErr     error
	prioritizeGaps []nutrient.Gap
	suggestReq     mealagent.SuggestRequest
	prioritized    int
	suggested      int
}

func (f *fakeGapOracle) Prioritize(_ context.Context, gaps []nutrient.Gap) (mealagent.Prioritization, error) {
	f.prioritized++
	f.prioritizeGaps = gaps
	return f.prio, f.prioErr
}

func (f *fakeGapOracle) Suggest(_ context.Context, req mealagent.SuggestRequest) ([]mealagent.MealSuggestion, error) {
	f.suggested++
	f.suggestReq = req
	return f.suggestions, f.suggestErr
}

// recordingSink keeps every emitted event.
type recordingSink struct {
	mu     sync.Mutex
	events []mealagent.Event
}

func (r *recordingSink) Emit(_ context.Context, ev mealagent.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) types() []mealagent.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]mealagent.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recordingSink) count(typ mealagent.EventType) int {
	n := 0
	for _, t := range r.types() {
		if t == typ {
			n++
		}
	}
	return n
}

func (r *recordingSink) last(typ mealagent.EventType) (mealagent.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == typ {
			return r.events[i], true
		}
	}
	return mealagent.Event{}, false
}
