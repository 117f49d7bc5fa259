package stage

import (
	"context"
	"log/slog"
	"slices"

	"github.com/joescharf/codereview/internal/batch"
	"github.com/joescharf/codereview/internal/llm"
	"github.com/joescharf/codereview/internal/models"
	"github.com/joescharf/codereview/internal/quality"
)

// IssueDetector explains failing test cases as logic issues and computes the
// routing flags. Reads Code and TestOutcomes.
type IssueDetector struct {
	base
	cfg    Config
	scorer *quality.Scorer
}

// NewIssueDetector creates the issue-detection stage.
func NewIssueDetector(gen llm.Generator, cfg Config, logger *slog.Logger) *IssueDetector {
	cfg = cfg.normalized()
	return &IssueDetector{
		base:   newBase(models.StageIssueDetection, gen, logger),
		cfg:    cfg,
		scorer: quality.NewScorer(cfg.MaxLines),
	}
}

type detectResult struct {
	issues  []models.LogicIssue
	failure *models.StageFailure
}

// Analyze batches the failing outcomes, one generation call per batch.
// HasErrors holds when an issue was found or any outcome failed.
func (s *IssueDetector) Analyze(ctx context.Context, state models.ReviewState) models.Delta {
	failing := state.FailingOutcomes()
	batches := slices.Collect(batch.Slices(failing, s.cfg.BatchSize))

	results := batch.Process(ctx, batches, s.cfg.Workers, func(ctx context.Context, i int, outcomes []models.TestOutcome) detectResult {
		req := llm.Request{
			System:  detectSystem,
			Prompt:  buildDetectPrompt(state.Code, outcomes),
			Options: detectOptions,
		}
		issues, failure := attempt(ctx, s.base, batchScope(i), req, func(d llm.Decoded) []models.LogicIssue {
			return parseIssues(d, outcomes)
		}, nil)
		return detectResult{issues: issues, failure: failure}
	})

	delta := models.Delta{Stage: s.name, LogicIssues: make(map[int]models.LogicIssue)}
	for _, r := range results {
		if r.failure != nil {
			delta.Failures = append(delta.Failures, *r.failure)
		}
		for _, issue := range r.issues {
			delta.LogicIssues[issue.Evidence] = issue
		}
	}

	flags := s.AnalyzeOffline(state)
	delta.HasErrors = boolPtr(len(delta.LogicIssues) > 0 || *flags.HasErrors)
	delta.NeedsImprovement = flags.NeedsImprovement

	s.log.Debug("issues detected",
		"failing", len(failing),
		"batches", len(batches),
		"issues", len(delta.LogicIssues),
		"has_errors", *delta.HasErrors,
		"needs_improvement", *delta.NeedsImprovement,
	)
	return delta
}

// AnalyzeOffline computes only the routing flags, which never need the
// generation service.
func (s *IssueDetector) AnalyzeOffline(state models.ReviewState) models.Delta {
	return models.Delta{
		Stage:            s.name,
		HasErrors:        boolPtr(len(state.FailingOutcomes()) > 0),
		NeedsImprovement: boolPtr(s.scorer.NeedsImprovement(state.Code)),
	}
}

// parseIssues keeps one issue per evidence id that belongs to the batch. Ids
// outside the batch are dropped; a repeated id replaces the earlier entry.
func parseIssues(d llm.Decoded, outcomes []models.TestOutcome) []models.LogicIssue {
	inBatch := make(map[int]bool, len(outcomes))
	for _, o := range outcomes {
		inBatch[o.ID] = true
	}

	byEvidence := make(map[int]models.LogicIssue)
	var order []int
	for _, item := range d.Array("logic_issues") {
		id, ok := intValue(item.Get("evidence"))
		if !ok || !inBatch[id] {
			continue
		}
		if _, exists := byEvidence[id]; !exists {
			order = append(order, id)
		}
		byEvidence[id] = models.LogicIssue{
			Issue:            trimmed(item, "issue"),
			Evidence:         id,
			CodeSnippet:      trimmed(item, "code_snippet"),
			Location:         parseLocation(item.Get("location")),
			RelevantConcepts: []string{},
			OtherConcepts:    []string{},
		}
	}

	issues := make([]models.LogicIssue, 0, len(order))
	for _, id := range order {
		issues = append(issues, byEvidence[id])
	}
	return issues
}
