// Package provider builds the completer named by configuration.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"mealagent"
	"mealagent/agent"
	"mealagent/agent/bedrock"
	"mealagent/agent/mock"
	"mealagent/agent/ollama"
)

const (
	Bedrock = "bedrock"
	Ollama  = "ollama"
	Mock    = "mock"
)

// New returns the completer for agentCfg.Provider, rate limited per agentCfg.
func New(ctx context.Context, modelCfg mealagent.ModelConfig, agentCfg mealagent.AgentConfig) (agent.Completer, error) {
	var (
		c   agent.Completer
		err error
	)
	switch strings.ToLower(strings.TrimSpace(agentCfg.Provider)) {
	case Bedrock, "":
		c, err = newBedrock(ctx, modelCfg)
	case Ollama:
		c, err = ollama.NewClient(ollama.ClientOpts{
			BaseEndpoint: agentCfg.BaseOllamaEndpoint,
			ModelID:      modelCfg.ModelID,
			HTTPClient:   http.DefaultClient,
			Temperature:  float64(modelCfg.Temperature),
			TopP:         float64(modelCfg.TopP),
		})
	case Mock:
		c = mock.NewClient()
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", agentCfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", agentCfg.Provider, err)
	}

	slog.Info("SETUP: LLM provider ready", "provider", agentCfg.Provider, "model", modelCfg.ModelID,
		"rps", agentCfg.OracleRPS, "burst", agentCfg.OracleBurst)
	return agent.NewRateLimited(c, agentCfg.OracleRPS, agentCfg.OracleBurst), nil
}

func newBedrock(ctx context.Context, modelCfg mealagent.ModelConfig) (*bedrock.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
	if err != nil {
		return nil, err
	}
	return bedrock.NewClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.Options{
		ModelID:     modelCfg.ModelID,
		MaxTokens:   modelCfg.MaxTokens,
		Temperature: modelCfg.Temperature,
		TopP:        modelCfg.TopP,
	}), nil
}
