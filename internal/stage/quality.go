package stage

import (
	"context"
	"log/slog"

	"github.com/joescharf/codereview/internal/llm"
	"github.com/joescharf/codereview/internal/models"
)

// QualityAnalyzer collects style and readability notes. Reads Code.
type QualityAnalyzer struct {
	base
}

// NewQualityAnalyzer creates the quality-analysis stage.
func NewQualityAnalyzer(gen llm.Generator, logger *slog.Logger) *QualityAnalyzer {
	return &QualityAnalyzer{base: newBase(models.StageQualityAnalysis, gen, logger)}
}

type qualityVerdict struct {
	notes   []models.Note
	flagged bool
}

// Analyze makes a single call. NeedsImprovement is only ever raised here,
// never cleared, so the style heuristic's verdict survives a degraded call.
func (s *QualityAnalyzer) Analyze(ctx context.Context, state models.ReviewState) models.Delta {
	req := llm.Request{
		System:  qualitySystem,
		Prompt:  buildQualityPrompt(state.Code),
		Options: qualityOptions,
	}
	v, failure := attempt(ctx, s.base, "submission", req, parseQuality, qualityVerdict{})

	delta := models.Delta{Stage: s.name, ImprovementNotes: v.notes}
	if failure != nil {
		delta.Failures = []models.StageFailure{*failure}
	}
	if len(v.notes) > 0 || v.flagged {
		delta.NeedsImprovement = boolPtr(true)
	}
	s.log.Debug("quality analyzed", "notes", len(v.notes))
	return delta
}

func parseQuality(d llm.Decoded) qualityVerdict {
	var v qualityVerdict
	v.flagged = d.Get("needs_improvement").Bool()
	for _, item := range d.Array("improvement_notes") {
		n := models.Note{
			Location:      parseLocation(item.Get("location")),
			CodeSnippet:   trimmed(item, "code_snippet"),
			Issue:         trimmed(item, "issue"),
			FixSuggestion: trimmed(item, "fix_suggestion"),
		}
		if n.Issue == "" && n.FixSuggestion == "" {
			continue
		}
		v.notes = append(v.notes, n)
	}
	return v
}
