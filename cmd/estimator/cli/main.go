package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mealagent"
	"mealagent/agent/provider"
	"mealagent/coordinator"
	"mealagent/slack"
	"mealagent/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var modelConfig mealagent.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var agentConfig mealagent.AgentConfig
	if err := envdecode.Decode(&agentConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	description := strings.TrimSpace(strings.Join(os.Args[1:], " "))
	if description == "" {
		description = "Grilled chicken breast with brown rice, steamed broccoli and a glass of orange juice"
	}

	completer, err := provider.New(ctx, modelConfig, agentConfig)
	if err != nil {
		slog.Error("SETUP: Failed to create LLM client", "error", err)
		return
	}

	var targetsBlob storage.Blob
	if agentConfig.TargetsPath != "" {
		targetsBlob = storage.NewFileBlob(agentConfig.TargetsPath)
	}
	targets, err := storage.LoadTargets(ctx, targetsBlob)
	if err != nil {
		slog.Error("SETUP: Failed to load targets", "error", err)
		return
	}
	slog.Info("SETUP: Targets loaded", "nutrients", len(targets))

	store, err := newStore(agentConfig.DatabasePath)
	if err != nil {
		slog.Error("SETUP: Failed to open meal store", "error", err)
		return
	}
	defer store.Close()

	logger, cleanup, err := newCoordinationLogger(modelConfig.ModelID)
	if err != nil {
		slog.Error("SETUP: Failed to create coordination logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush coordination log", "error", err)
		}
	}()

	tracerProvider, meterProvider, otelShutdown, err := mealagent.InitOtel(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	events := coordinator.MultiSink{coordinator.LogSink{}}
	if agentConfig.SlackWebhookURL != "" {
		events = append(events, slack.NewSink(slack.NewClient(agentConfig.SlackWebhookURL, http.DefaultClient), agentConfig.SlackChannel))
	}

	engine := coordinator.NewEngine(completer, coordinator.EngineOptions{
		MaxRounds:      agentConfig.MaxRounds,
		MaxConcurrency: agentConfig.MaxConcurrency,
		OracleTimeout:  agentConfig.OracleTimeout,
		Targets:        targets,
		Logger:         logger,
		Events:         events,
		Meter:          meterProvider.Meter(mealagent.MeterName),
	})

	tracer := tracerProvider.Tracer(mealagent.TracerNameWorkflow)
	ctx, span := tracer.Start(ctx, "estimator.cli", trace.WithAttributes(
		attribute.String("llm.provider", agentConfig.Provider),
		attribute.String("model.id", modelConfig.ModelID),
		attribute.Int("agent.max_rounds", agentConfig.MaxRounds),
	))
	defer span.End()

	result, err := engine.Workflow.Estimate(ctx, description, agentConfig.MaxRounds)
	if err != nil {
		slog.Error("RESULT: Meal estimation interrupted", "error", err)
		return
	}

	now := time.Now()
	id, err := store.SaveMeal(ctx, storage.RecordFromResult(result, now))
	if err != nil {
		slog.Error("RESULT: Failed to save meal", "error", err)
	} else {
		slog.Info("RESULT: Meal saved", "id", id)
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	meals, err := store.MealsBetween(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		slog.Error("RESULT: Failed to load today's meals", "error", err)
		return
	}
	gaps := engine.Gaps.Analyze(ctx, storage.Nutrients(meals))

	mealagent.Dump(result, gaps)

	out, err := json.MarshalIndent(map[string]any{
		"meal_id": id,
		"result":  result,
		"gaps":    gaps,
	}, "", "  ")
	if err != nil {
		slog.Error("RESULT: Failed to encode output", "error", err)
		return
	}
	fmt.Println(string(out))
}

func newStore(dbPath string) (*storage.SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return storage.NewSQLiteStore(dbPath)
}

func newCoordinationLogger(modelID string) (mealagent.CoordinationLogger, func() error, error) {
	logFilePath := mealagent.NewCoordinationLogFilePath(modelID)
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := mealagent.NewFileCoordinationLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}
