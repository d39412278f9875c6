package slack

import (
	"context"
	"log/slog"

	"mealagent"
)

// Sink posts final meal and gap summaries to a channel. Intermediate events are ignored.
type Sink struct {
	client  mealagent.SlackClient
	channel string
}

func NewSink(client mealagent.SlackClient, channel string) *Sink {
	return &Sink{client: client, channel: channel}
}

// Emit posts synchronously; failures are logged and never interrupt estimation.
func (s *Sink) Emit(ctx context.Context, ev mealagent.Event) {
	var message string
	switch ev.Type {
	case mealagent.EventWorkflowComplete:
		r, ok := ev.Data["result"].(mealagent.MealResult)
		if !ok {
			return
		}
		message = FormatMeal(r)
	case mealagent.EventGapAnalysisComplete:
		a, ok := ev.Data["result"].(mealagent.GapAnalysis)
		if !ok {
			return
		}
		message = FormatGaps(a)
	default:
		return
	}

	if err := s.client.PostMessage(ctx, s.channel, message); err != nil {
		slog.Error("SLACK: failed to post summary", "event", ev.Type, "error", err)
	}
}
