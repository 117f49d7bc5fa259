package stage

import (
	"context"
	"log/slog"

	"github.com/joescharf/codereview/internal/llm"
	"github.com/joescharf/codereview/internal/models"
)

const maxAdvancedTopics = 3

// AdvancedSuggester proposes next topics for a submission that passes and
// reads well. Reads Code and Assignment.
type AdvancedSuggester struct {
	base
}

// NewAdvancedSuggester creates the advanced-suggestion stage.
func NewAdvancedSuggester(gen llm.Generator, logger *slog.Logger) *AdvancedSuggester {
	return &AdvancedSuggester{base: newBase(models.StageAdvancedSuggestion, gen, logger)}
}

// Analyze makes a single call and keeps at most three topics.
func (s *AdvancedSuggester) Analyze(ctx context.Context, state models.ReviewState) models.Delta {
	req := llm.Request{
		System:  advancedSystem,
		Prompt:  buildAdvancedPrompt(state.Code, state.Assignment),
		Options: advancedOptions,
	}
	topics, failure := attempt(ctx, s.base, "submission", req, parseTopics, nil)

	delta := models.Delta{Stage: s.name, AdvancedTopics: topics}
	if failure != nil {
		delta.Failures = []models.StageFailure{*failure}
	}
	s.log.Debug("advanced topics suggested", "topics", len(topics))
	return delta
}

func parseTopics(d llm.Decoded) []models.AdvancedTopic {
	var topics []models.AdvancedTopic
	for _, item := range d.Array("advanced_suggestions") {
		t := models.AdvancedTopic{
			Topic:     trimmed(item, "topic"),
			Rationale: trimmed(item, "rationale"),
		}
		if t.Topic == "" {
			continue
		}
		topics = append(topics, t)
		if len(topics) == maxAdvancedTopics {
			break
		}
	}
	return topics
}
