package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"mealagent"
)

const DefaultMaxConcurrency = 8

// Coordinator runs one convergence loop per ingredient concurrently.
type Coordinator struct {
	loop           *Loop
	maxConcurrency int
}

// NewCoordinator bounds the fan-out to maxConcurrency loops at a time (default 8).
func NewCoordinator(loop *Loop, maxConcurrency int) *Coordinator {
	if maxConcurrency < 1 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Coordinator{
		loop:           loop,
		maxConcurrency: maxConcurrency,
	}
}

// Run estimates every ingredient and returns the records keyed by ingredient name.
// Duplicate names are disambiguated first (see UniqueNames) so no contribution is lost.
// If ctx ends early only loops that reached a terminal state are returned, along with
// ctx's error.
func (c *Coordinator) Run(ctx context.Context, ingredients []mealagent.Ingredient, maxRounds int) (map[string]mealagent.IngredientEstimate, error) {
	ctx, span := otel.Tracer(mealagent.TracerNameCoordinator).Start(ctx, "Coordinator.Run",
		trace.WithAttributes(attribute.Int("ingredients", len(ingredients))))
	defer span.End()

	keys := UniqueNames(ingredients)
	slog.Info("COORDINATOR: Starting run", "ingredients", len(ingredients), "max_concurrency", c.maxConcurrency)

	// Each loop writes only its own slot; the map is built after every loop has returned.
	records := make([]mealagent.IngredientEstimate, len(ingredients))
	done := make([]bool, len(ingredients))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrency)
	for i, ing := range ingredients {
		g.Go(func() error {
			rec, err := c.loop.Run(gctx, keys[i], ing, maxRounds)
			if err != nil {
				return err
			}
			records[i] = rec
			done[i] = true
			return nil
		})
	}
	waitErr := g.Wait()

	out := make(map[string]mealagent.IngredientEstimate, len(ingredients))
	for i := range ingredients {
		if done[i] {
			out[keys[i]] = records[i]
		}
	}

	if err := ctx.Err(); err != nil {
		slog.Warn("COORDINATOR: cancelled", "completed", len(out), "ingredients", len(ingredients))
		span.SetStatus(codes.Error, "cancelled")
		span.RecordError(err)
		return out, err
	}
	if waitErr != nil {
		// Loops only fail on cancellation, which was handled above.
		slog.Error("COORDINATOR: unexpected loop error", "error", waitErr)
	}

	slog.Info("COORDINATOR: Run complete", "ingredients", len(out))
	return out, nil
}

// UniqueNames returns one key per ingredient, in input order. The first occurrence of a
// name keeps it; later duplicates become "name (2)", "name (3)" and so on. Blank names
// become "ingredient N".
func UniqueNames(ingredients []mealagent.Ingredient) []string {
	keys := make([]string, len(ingredients))
	used := make(map[string]bool, len(ingredients))
	seen := make(map[string]int, len(ingredients))

	for i, ing := range ingredients {
		name := strings.TrimSpace(ing.Name)
		if name == "" {
			name = fmt.Sprintf("ingredient %d", i+1)
		}

		key := name
		for n := seen[name] + 1; used[key]; n++ {
			key = fmt.Sprintf("%s (%d)", name, n)
			seen[name] = n
		}
		if seen[name] == 0 {
			seen[name] = 1
		}
		used[key] = true
		keys[i] = key
	}
	return keys
}
