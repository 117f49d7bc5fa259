package stage

import (
	"context"
	"log/slog"
	"slices"

	"github.com/joescharf/codereview/internal/batch"
	"github.com/joescharf/codereview/internal/llm"
	"github.com/joescharf/codereview/internal/models"
)

const (
	hintMissing = "No fix suggestion generated."
	hintFailed  = "Error generating fix suggestion."
)

// HintGenerator writes a fix hint for every logic issue that has relevant
// concepts. Reads Assignment and LogicIssues.
type HintGenerator struct {
	base
	cfg Config
}

// NewHintGenerator creates the hint-generation stage.
func NewHintGenerator(gen llm.Generator, cfg Config, logger *slog.Logger) *HintGenerator {
	return &HintGenerator{
		base: newBase(models.StageHintGeneration, gen, logger),
		cfg:  cfg.normalized(),
	}
}

type hintResult struct {
	evidence int
	hint     string
	failure  *models.StageFailure
}

// Analyze issues one call per eligible issue on the worker pool.
func (s *HintGenerator) Analyze(ctx context.Context, state models.ReviewState) models.Delta {
	var targets []models.LogicIssue
	for _, issue := range state.SortedIssues() {
		if len(issue.RelevantConcepts) > 0 {
			targets = append(targets, issue)
		}
	}
	singles := slices.Collect(batch.Slices(targets, 1))

	results := batch.Process(ctx, singles, s.cfg.Workers, func(ctx context.Context, _ int, one []models.LogicIssue) hintResult {
		issue := one[0]
		req := llm.Request{
			System:  hintSystem,
			Prompt:  buildHintPrompt(state.Assignment.Requirements, issue),
			Options: hintOptions,
		}
		hint, failure := attempt(ctx, s.base, issueScope(issue.Evidence), req, func(d llm.Decoded) string {
			if h := d.String("fix_suggestion"); h != "" {
				return h
			}
			return hintMissing
		}, hintFailed)
		return hintResult{evidence: issue.Evidence, hint: hint, failure: failure}
	})

	delta := models.Delta{Stage: s.name, LogicIssues: make(map[int]models.LogicIssue, len(results))}
	for _, r := range results {
		if r.failure != nil {
			delta.Failures = append(delta.Failures, *r.failure)
		}
		delta.LogicIssues[r.evidence] = models.LogicIssue{Evidence: r.evidence, FixSuggestion: r.hint}
	}

	s.log.Debug("hints generated", "issues", len(state.LogicIssues), "hinted", len(results))
	return delta
}
