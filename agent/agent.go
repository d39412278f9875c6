// Package agent adapts a text-completion backend (Bedrock, Ollama, or the offline mock)
// into the structured oracles the estimation core consumes: preprocessing, ingredient
// estimation, validation, interaction adjustment, and gap advice.
package agent

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// Oracle call names. Backends use them as tool names (Bedrock) and the mock keys its
// canned answers on them.
const (
	NamePreprocess = "preprocess_meal"
	NameEstimate   = "estimate_nutrients"
	NameValidate   = "validate_estimate"
	NameAdjust     = "adjust_interactions"
	NamePrioritize = "prioritize_gaps"
	NameSuggest    = "suggest_meals"
)

// Request is one structured-judgment call. Schema describes the JSON object the
// backend must answer with.
type Request struct {
	Name        string
	Description string
	System      string
	User        string
	Schema      *jsonschema.Schema
}

// Completer sends a request to a model and returns its raw answer, which should
// contain a single JSON object.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a plain function into a Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
