// Package ollama answers structured oracle requests through a local Ollama server,
// constraining the reply with the request's JSON schema via the chat "format" field.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"mealagent"
	"mealagent/agent"
)

const DefaultBaseEndpoint = "http://localhost:11434"

type options struct {
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
}

type Client struct {
	endpoint   string
	model      string
	httpClient mealagent.HTTPClient
	options    options
}

type ClientOpts struct {
	BaseEndpoint string
	ModelID      string
	HTTPClient   mealagent.HTTPClient
	Temperature  float64
	TopP         float64
}

func NewClient(opts ClientOpts) (*Client, error) {
	if strings.TrimSpace(opts.ModelID) == "" {
		return nil, errors.New("ollama: model id is required")
	}
	if opts.BaseEndpoint == "" {
		opts.BaseEndpoint = DefaultBaseEndpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.3
	}
	if opts.TopP == 0 {
		opts.TopP = 0.9
	}

	return &Client{
		model:      opts.ModelID,
		httpClient: opts.HTTPClient,
		endpoint:   strings.TrimRight(opts.BaseEndpoint, "/") + "/api/chat",
		options: options{
			Temperature:   opts.Temperature,
			TopP:          opts.TopP,
			RepeatPenalty: 1.05,
			NumCtx:        16384, // estimates list every nutrient; smaller windows truncate the answer
		},
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model    string          `json:"model"`
	Messages []message       `json:"messages"`
	Format   json.RawMessage `json:"format,omitempty"`
	Stream   bool            `json:"stream"`
	Options  options         `json:"options,omitempty"`
}

type wireResponse struct {
	Message message `json:"message"`
	Error   string  `json:"error,omitempty"`
	// other metadata omitted but available
}

// Complete implements agent.Completer.
func (c *Client) Complete(ctx context.Context, req agent.Request) (string, error) {
	slog.Debug("LLM_CLIENT: Invoked", "name", req.Name, "user_len", len(req.User))

	msgs := make([]message, 0, 2)
	if sp := strings.TrimSpace(req.System); sp != "" {
		msgs = append(msgs, message{Role: "system", Content: sp})
	}
	msgs = append(msgs, message{Role: "user", Content: req.User})

	body := wireRequest{
		Model:    c.model,
		Messages: msgs,
		Stream:   false,
		Options:  c.options,
	}
	if req.Schema != nil {
		format, err := json.Marshal(req.Schema)
		if err != nil {
			return "", fmt.Errorf("ollama: marshal schema for %s: %w", req.Name, err)
		}
		body.Format = format
	}

	reqBytes, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBytes))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama %s: %w", req.Name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ollama %s: read body: %w", req.Name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama %s: %s: %s", req.Name, resp.Status, string(respBody))
	}

	var wr wireResponse
	if err := json.Unmarshal(respBody, &wr); err != nil {
		slog.Warn("LLM_CLIENT: decode failed, returning raw", "name", req.Name, "error", err)
		return string(respBody), nil
	}
	if wr.Error != "" {
		return "", fmt.Errorf("ollama %s: %s", req.Name, wr.Error)
	}

	slog.Info("LLM_CLIENT: Ollama invoke succeeded", "name", req.Name, "content_len", len(wr.Message.Content))
	return wr.Message.Content, nil
}
