package coordinator

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"mealagent"
	"mealagent/agent"
	"mealagent/nutrient"
)

// EngineOptions configures NewEngine. Zero values take defaults.
type EngineOptions struct {
	MaxRounds      int
	MaxConcurrency int
	OracleTimeout  time.Duration
	Targets        nutrient.Targets
	Logger         mealagent.CoordinationLogger
	Events         mealagent.EventSink
	Meter          metric.Meter
}

// Engine bundles the meal workflow and the gap advisor built on one completer.
type Engine struct {
	Workflow *Workflow
	Gaps     *GapAdvisor
	Metrics  *Metrics
}

// NewEngine wires every oracle role onto c.
func NewEngine(c agent.Completer, opts EngineOptions) *Engine {
	metrics := NewMetrics(opts.Meter)

	loop := NewLoop(agent.NewEstimator(c), agent.NewValidator(c), LoopOptions{
		MaxRounds:     opts.MaxRounds,
		OracleTimeout: opts.OracleTimeout,
		Logger:        opts.Logger,
		Metrics:       metrics,
		Events:        opts.Events,
	})

	workflow := NewWorkflow(
		agent.NewPreprocessor(c),
		NewCoordinator(loop, opts.MaxConcurrency),
		NewAdjuster(agent.NewInteractions(c), opts.OracleTimeout, metrics),
		WorkflowOptions{
			OracleTimeout: opts.OracleTimeout,
			Events:        opts.Events,
			Metrics:       metrics,
		})

	gaps := NewGapAdvisor(agent.NewGapAdvice(c), GapAdvisorOptions{
		Targets:       opts.Targets,
		OracleTimeout: opts.OracleTimeout,
		Events:        opts.Events,
		Metrics:       metrics,
	})

	return &Engine{Workflow: workflow, Gaps: gaps, Metrics: metrics}
}
