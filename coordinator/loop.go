// Package coordinator runs meal estimation: one estimate/validate convergence loop per
// ingredient in parallel, a merge over canonical nutrients, a single interaction
// adjustment pass, and gap advice over a day of meals.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mealagent"
	"mealagent/nutrient"
)

const (
	DefaultMaxRounds     = 3
	DefaultOracleTimeout = 45 * time.Second
)

// State is a convergence loop state.
type State int

const (
	StateEstimating State = iota
	StateValidating
	StateApproved
	StateRoundsExhausted
	// StateCancelled is entered when the caller's context ends mid-loop.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateEstimating:
		return "estimating"
	case StateValidating:
		return "validating"
	case StateApproved:
		return "approved"
	case StateRoundsExhausted:
		return "rounds_exhausted"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the loop stops in s.
func (s State) Terminal() bool {
	return s == StateApproved || s == StateRoundsExhausted || s == StateCancelled
}

// LoopOptions configures a Loop. Zero values take defaults.
type LoopOptions struct {
	MaxRounds     int
	OracleTimeout time.Duration
	Logger        mealagent.CoordinationLogger
	Metrics       *Metrics
	Events        mealagent.EventSink
}

// Loop obtains an approved nutrient estimate for one ingredient, or gives up after a
// bounded number of rounds. Oracle failures never escape it.
type Loop struct {
	estimator mealagent.Estimator
	validator mealagent.Validator
	maxRounds int
	timeout   time.Duration
	logger    mealagent.CoordinationLogger
	metrics   *Metrics
	events    mealagent.EventSink
}

func NewLoop(estimator mealagent.Estimator, validator mealagent.Validator, opts LoopOptions) *Loop {
	if opts.MaxRounds < 1 {
		opts.MaxRounds = DefaultMaxRounds
	}
	if opts.OracleTimeout <= 0 {
		opts.OracleTimeout = DefaultOracleTimeout
	}
	if opts.Logger == nil {
		opts.Logger = mealagent.NewNoOpCoordinationLogger()
	}
	return &Loop{
		estimator: estimator,
		validator: validator,
		maxRounds: opts.MaxRounds,
		timeout:   opts.OracleTimeout,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		events:    sinkOrNop(opts.Events),
	}
}

// MaxRounds is the loop's default round budget.
func (l *Loop) MaxRounds() int { return l.maxRounds }

// Run drives the state machine for ing under key (its name within the meal). maxRounds
// below 1 uses the loop default. The returned record is always well formed; the error is
// non-nil only when ctx ended before a terminal state was reached.
func (l *Loop) Run(ctx context.Context, key string, ing mealagent.Ingredient, maxRounds int) (mealagent.IngredientEstimate, error) {
	if maxRounds < 1 {
		maxRounds = l.maxRounds
	}

	ctx, span := otel.Tracer(mealagent.TracerNameCoordinator).Start(ctx, "Loop.Run",
		trace.WithAttributes(attribute.String("ingredient", key), attribute.Int("max_rounds", maxRounds)))
	defer span.End()

	start := time.Now()
	rec := mealagent.IngredientEstimate{
		Ingredient: ing,
		Confidence: mealagent.ConfidenceLow,
	}
	haveEstimate := false
	feedback := ""
	state := StateEstimating
	var entry mealagent.RoundLog

	for !state.Terminal() {
		if ctx.Err() != nil {
			state = StateCancelled
			break
		}

		switch state {
		case StateEstimating:
			rec.Round++
			l.metrics.round(ctx)
			entry = mealagent.RoundLog{Ingredient: key, Round: rec.Round, Timestamp: time.Now()}

			est, err := l.estimate(ctx, ing, feedback)
			if err != nil {
				rec.Failures++
				entry.Error = "estimate: " + err.Error()
				slog.Warn("LOOP: estimation failed", "ingredient", key, "round", rec.Round, "error", err)
				if !haveEstimate {
					// Zero-fill so the record is usable even if no estimate ever arrives.
					rec.Estimates = nutrient.Zero().Values()
					rec.Reasoning = "estimation failed: " + err.Error()
					rec.Confidence = mealagent.ConfidenceLow
				}
			} else {
				haveEstimate = true
				rec.Estimates = est.Estimates
				if rec.Estimates == nil {
					rec.Estimates = map[string]float64{}
				}
				rec.Reasoning = est.Reasoning
				rec.Confidence = est.Confidence
				entry.Estimate = &est
			}
			state = StateValidating

		case StateValidating:
			v, err := l.validate(ctx, ing, rec.Estimates)
			approved := false
			if err != nil {
				// A failed validation counts as a rejection; the round budget decides
				// whether that means retry or accept.
				rec.Failures++
				entry.Error = joinErr(entry.Error, "validate: "+err.Error())
				slog.Warn("LOOP: validation failed", "ingredient", key, "round", rec.Round, "error", err)
			} else {
				entry.Validation = &v
				approved = v.Approved
				rec.Feedback = v.Feedback
				rec.IssuesFound = v.IssuesFound
				feedback = v.Feedback
			}

			if err := l.logger.LogRound(entry); err != nil {
				slog.Error("LOOP: failed to log round", "ingredient", key, "error", err)
			}

			switch {
			case ctx.Err() != nil:
				state = StateCancelled
			case approved:
				state = StateApproved
			case rec.Round < maxRounds:
				state = StateEstimating
			default:
				state = StateRoundsExhausted
			}

			emit(ctx, l.events, mealagent.EventIngredientRound, "estimation",
				fmt.Sprintf("%s round %d: %s", key, rec.Round, state), map[string]any{
					"ingredient": key,
					"round":      rec.Round,
					"approved":   approved,
					"state":      state.String(),
				})
		}
	}

	switch state {
	case StateApproved:
		rec.Approved = true
	case StateRoundsExhausted:
		// Downstream always gets an estimate; Exhausted keeps it distinguishable.
		rec.Approved = true
		rec.Exhausted = true
	}
	if rec.Estimates == nil {
		rec.Estimates = nutrient.Zero().Values()
	}

	l.metrics.loopFinished(ctx, state, start)
	span.SetAttributes(attribute.String("state", state.String()), attribute.Int("rounds", rec.Round))

	slog.Info("LOOP: finished", "ingredient", key, "state", state.String(), "rounds", rec.Round, "failures", rec.Failures)

	if state == StateCancelled {
		return rec, ctx.Err()
	}

	emit(ctx, l.events, mealagent.EventIngredientComplete, "estimation",
		fmt.Sprintf("%s %s after %d rounds", key, state, rec.Round), map[string]any{
			"ingredient": key,
			"rounds":     rec.Round,
			"approved":   rec.Approved,
			"exhausted":  rec.Exhausted,
			"confidence": string(rec.Confidence),
		})
	return rec, nil
}

func (l *Loop) estimate(ctx context.Context, ing mealagent.Ingredient, feedback string) (mealagent.Estimate, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	est, err := l.estimator.Estimate(ctx, mealagent.EstimateRequest{
		Subject:       ing.Name,
		Amount:        ing.Amount,
		Notes:         ing.Notes,
		PriorFeedback: feedback,
	})
	l.metrics.oracleCall(ctx, "estimate", start, err)
	return est, err
}

func (l *Loop) validate(ctx context.Context, ing mealagent.Ingredient, estimates map[string]float64) (mealagent.Validation, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	v, err := l.validator.Validate(ctx, mealagent.ValidateRequest{
		Subject:   ing.Name,
		Amount:    ing.Amount,
		Estimates: estimates,
	})
	l.metrics.oracleCall(ctx, "validate", start, err)
	return v, err
}

func joinErr(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
