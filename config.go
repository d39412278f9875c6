package mealagent

import "time"

type ModelConfig struct {
	ModelID     string  `env:"MODEL_ID,default=us.anthropic.claude-3-7-sonnet-20250219-v1:0"`
	MaxTokens   int32   `env:"MAX_TOKENS,default=2048"`
	Temperature float32 `env:"TEMPERATURE,default=0.3"`
	TopP        float32 `env:"TOP_P,default=0.9"`
}

type AgentConfig struct {
	Provider           string        `env:"LLM_PROVIDER,default=bedrock"`
	BaseOllamaEndpoint string        `env:"BASE_OLLAMA_ENDPOINT,default=http://localhost:11434"`
	MaxRounds          int           `env:"MAX_ROUNDS,default=3"`
	MaxConcurrency     int           `env:"MAX_CONCURRENCY,default=8"`
	OracleTimeout      time.Duration `env:"ORACLE_TIMEOUT,default=45s"`
	OracleRPS          float64       `env:"ORACLE_RPS,default=5"`
	OracleBurst        int           `env:"ORACLE_BURST,default=10"`
	DatabasePath       string        `env:"DATABASE_PATH,default=artifacts/meals.db"`
	TargetsPath        string        `env:"TARGETS_PATH"`
	SlackWebhookURL    string        `env:"SLACK_WEBHOOK_URL"`
	SlackChannel       string        `env:"SLACK_CHANNEL,default=#nutrition"`
}
