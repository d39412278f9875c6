package mealagent

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// CoordinationLogger records every estimator/validator round-trip.
// Implementations must be safe for concurrent use; ingredient loops run in parallel.
type CoordinationLogger interface {
	LogRound(round RoundLog) error
}

// NewCoordinationLogFilePath returns a file path based on a cleaned up model name or id to make easier to identify specific logs produced with various models.
func NewCoordinationLogFilePath(model string) string {
	return fmt.Sprintf(
		"./logs/%d.%s.json",
		time.Now().Unix(),
		strings.NewReplacer(":", "_", "/", "_").Replace(strings.ToLower(model)),
	)
}

// RoundLog represents a single estimate/validate round for one ingredient.
type RoundLog struct {
	Ingredient string      `json:"ingredient"`
	Round      int         `json:"round"`
	Timestamp  time.Time   `json:"timestamp"`
	Estimate   *Estimate   `json:"estimate,omitempty"`
	Validation *Validation `json:"validation,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// FileCoordinationLogger accumulates rounds and writes them as one JSON document on Flush.
type FileCoordinationLogger struct {
	mu     sync.Mutex
	rounds []RoundLog
	writer io.Writer
}

func NewFileCoordinationLogger(writer io.Writer) *FileCoordinationLogger {
	return &FileCoordinationLogger{
		rounds: make([]RoundLog, 0),
		writer: writer,
	}
}

// LogRound buffers the round (does not flush immediately)
func (fcl *FileCoordinationLogger) LogRound(round RoundLog) error {
	fcl.mu.Lock()
	defer fcl.mu.Unlock()
	fcl.rounds = append(fcl.rounds, round)
	return nil
}

// Flush flushes all accumulated rounds to the writer
func (fcl *FileCoordinationLogger) Flush() error {
	fcl.mu.Lock()
	defer fcl.mu.Unlock()

	if fcl.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"coordination_session": map[string]any{
			"timestamp": time.Now(),
			"rounds":    fcl.rounds,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal coordination log: %w", err)
	}

	if _, err := fcl.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write coordination log: %w", err)
	}

	fcl.rounds = fcl.rounds[:0]
	return nil
}

// NoOpCoordinationLogger discards all rounds.
type NoOpCoordinationLogger struct{}

func NewNoOpCoordinationLogger() *NoOpCoordinationLogger {
	return &NoOpCoordinationLogger{}
}

func (nop *NoOpCoordinationLogger) LogRound(round RoundLog) error {
	return nil
}

// StdoutCoordinationLogger logs each round as a JSON line (for Lambda/CloudWatch).
type StdoutCoordinationLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func NewStdoutCoordinationLogger() *StdoutCoordinationLogger {
	return &StdoutCoordinationLogger{w: os.Stdout}
}

func (l *StdoutCoordinationLogger) LogRound(round RoundLog) error {
	data, err := json.Marshal(round)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = fmt.Fprintln(l.w, string(data))
	return err
}
