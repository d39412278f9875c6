package coordinator

import (
	"context"
	"log/slog"
	"time"

	"mealagent"
)

// LogSink writes every event to slog.
type LogSink struct{}

func (LogSink) Emit(_ context.Context, ev mealagent.Event) {
	slog.Info("EVENT: "+string(ev.Type), "stage", ev.Stage, "message", ev.Message)
}

// MultiSink fans an event out to several sinks in order.
type MultiSink []mealagent.EventSink

func (m MultiSink) Emit(ctx context.Context, ev mealagent.Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, ev)
		}
	}
}

type nopSink struct{}

func (nopSink) Emit(context.Context, mealagent.Event) {}

func sinkOrNop(s mealagent.EventSink) mealagent.EventSink {
	if s == nil {
		return nopSink{}
	}
	return s
}

func emit(ctx context.Context, sink mealagent.EventSink, typ mealagent.EventType, stage, message string, data map[string]any) {
	sink.Emit(ctx, mealagent.Event{
		Type:    typ,
		Stage:   stage,
		Message: message,
		Data:    data,
		Time:    time.Now(),
	})
}
