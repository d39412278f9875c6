package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"

	"mealagent"
	"mealagent/agent/provider"
	"mealagent/coordinator"
	"mealagent/nutrient"
	"mealagent/storage"
)

type Params struct {
	Description string `json:"description"`
	MaxRounds   int    `json:"max_rounds"`
}

type Results struct {
	Result mealagent.MealResult  `json:"result"`
	Gaps   mealagent.GapAnalysis `json:"gaps"`
}

// lambdaConfig locates an optional target table in S3.
type lambdaConfig struct {
	TargetsBucket string `env:"TARGETS_S3_BUCKET"`
	TargetsKey    string `env:"TARGETS_S3_KEY"`
}

func main() {
	fn := func(ctx context.Context, params Params) (Results, error) {
		var modelConfig mealagent.ModelConfig
		if err := envdecode.Decode(&modelConfig); err != nil {
			return Results{}, fmt.Errorf("failed to decode model config: %w", err)
		}

		var agentConfig mealagent.AgentConfig
		if err := envdecode.Decode(&agentConfig); err != nil {
			return Results{}, fmt.Errorf("failed to decode agent config: %w", err)
		}

		var lc lambdaConfig
		if err := envdecode.Decode(&lc); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return Results{}, fmt.Errorf("failed to decode lambda config: %w", err)
		}

		targets, err := loadTargets(ctx, lc)
		if err != nil {
			slog.Error("SETUP: Failed to load targets", "error", err)
			return Results{}, err
		}

		completer, err := provider.New(ctx, modelConfig, agentConfig)
		if err != nil {
			slog.Error("SETUP: Failed to create LLM client", "error", err)
			return Results{}, err
		}

		_, meterProvider, otelShutdown, err := mealagent.InitOtel(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
			return Results{}, err
		}
		defer func() {
			if err := otelShutdown(ctx); err != nil {
				slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
			}
		}()

		engine := coordinator.NewEngine(completer, coordinator.EngineOptions{
			MaxRounds:      agentConfig.MaxRounds,
			MaxConcurrency: agentConfig.MaxConcurrency,
			OracleTimeout:  agentConfig.OracleTimeout,
			Targets:        targets,
			Logger:         mealagent.NewStdoutCoordinationLogger(),
			Events:         coordinator.LogSink{},
			Meter:          meterProvider.Meter(mealagent.MeterName),
		})

		maxRounds := params.MaxRounds
		if maxRounds < 1 {
			maxRounds = agentConfig.MaxRounds
		}

		start := time.Now()
		result, err := engine.Workflow.Estimate(ctx, params.Description, maxRounds)
		if err != nil {
			slog.Error("RESULT: Meal estimation interrupted", "error", err)
			return Results{}, err
		}
		gaps := engine.Gaps.Analyze(ctx, []nutrient.Map{result.Estimates})

		slog.Info("RESULT: Meal estimated", "calories", result.Calories, "gaps", len(gaps.AllGaps), "duration", time.Since(start))
		return Results{Result: result, Gaps: gaps}, nil
	}

	lambda.Start(fn)
}

func loadTargets(ctx context.Context, lc lambdaConfig) (nutrient.Targets, error) {
	if lc.TargetsBucket == "" || lc.TargetsKey == "" {
		return storage.LoadTargets(ctx, nil)
	}
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	blob := storage.NewS3Blob(s3.NewFromConfig(awsCfg), lc.TargetsBucket, lc.TargetsKey)
	return storage.LoadTargets(ctx, blob)
}
