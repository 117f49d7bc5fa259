package stage

import (
	"context"
	"log/slog"
	"slices"

	"github.com/tidwall/gjson"

	"github.com/joescharf/codereview/internal/batch"
	"github.com/joescharf/codereview/internal/llm"
	"github.com/joescharf/codereview/internal/models"
)

const (
	conceptsUnavailable = "Concept mapping unavailable for this issue."
	conceptsOmitted     = "No concept mapping was returned for this issue."
)

// ConceptMapper relates each logic issue to course concepts. Reads
// Assignment and LogicIssues.
type ConceptMapper struct {
	base
	cfg Config
}

// NewConceptMapper creates the concept-mapping stage.
func NewConceptMapper(gen llm.Generator, cfg Config, logger *slog.Logger) *ConceptMapper {
	return &ConceptMapper{
		base: newBase(models.StageConceptMapping, gen, logger),
		cfg:  cfg.normalized(),
	}
}

type conceptResult struct {
	entries  []batch.Entry[int, models.LogicIssue]
	findings map[int]models.ConceptFinding
	failure  *models.StageFailure
}

// Analyze emits exactly one ConceptFinding per logic issue, in key order. Issues
// in a failed batch, or omitted from a response, get an unprocessed finding.
func (s *ConceptMapper) Analyze(ctx context.Context, state models.ReviewState) models.Delta {
	batches := slices.Collect(batch.Keyed(state.LogicIssues, s.cfg.BatchSize))

	results := batch.Process(ctx, batches, s.cfg.Workers, func(ctx context.Context, i int, entries []batch.Entry[int, models.LogicIssue]) conceptResult {
		req := llm.Request{
			System:  conceptSystem,
			Prompt:  buildConceptPrompt(state.Assignment, entries),
			Options: conceptOptions,
		}
		findings, failure := attempt(ctx, s.base, batchScope(i), req, func(d llm.Decoded) map[int]models.ConceptFinding {
			return parseFindings(d, entries)
		}, nil)
		return conceptResult{entries: entries, findings: findings, failure: failure}
	})

	delta := models.Delta{
		Stage:           s.name,
		LogicIssues:     make(map[int]models.LogicIssue),
		ConceptFindings: []models.ConceptFinding{},
	}
	for _, r := range results {
		reason := conceptsOmitted
		if r.failure != nil {
			delta.Failures = append(delta.Failures, *r.failure)
			reason = conceptsUnavailable
		}
		for _, e := range r.entries {
			f, ok := r.findings[e.Key]
			if !ok {
				delta.ConceptFindings = append(delta.ConceptFindings, unprocessedFinding(e.Key, reason))
				continue
			}
			delta.ConceptFindings = append(delta.ConceptFindings, f)
			if len(f.RelevantConcepts) > 0 || len(f.OtherConcepts) > 0 {
				delta.LogicIssues[e.Key] = models.LogicIssue{
					Evidence:         e.Key,
					RelevantConcepts: slices.Clone(f.RelevantConcepts),
					OtherConcepts:    slices.Clone(f.OtherConcepts),
				}
			}
		}
	}

	s.log.Debug("concepts mapped", "issues", len(state.LogicIssues), "batches", len(batches), "enriched", len(delta.LogicIssues))
	return delta
}

// parseFindings matches response entries to the batch by issue_ref first.
// Entries without a usable issue_ref then take the still unclaimed issues in
// batch order. The first entry naming an issue wins.
func parseFindings(d llm.Decoded, entries []batch.Entry[int, models.LogicIssue]) map[int]models.ConceptFinding {
	inBatch := make(map[int]bool, len(entries))
	for _, e := range entries {
		inBatch[e.Key] = true
	}

	out := make(map[int]models.ConceptFinding)
	var unmatched []gjson.Result
	for _, item := range d.Array("concept_issues") {
		key, ok := intValue(item.Get("issue_ref"))
		if !ok || !inBatch[key] {
			unmatched = append(unmatched, item)
			continue
		}
		if _, dup := out[key]; !dup {
			out[key] = toFinding(key, item)
		}
	}

	next := 0
	for _, e := range entries {
		if next == len(unmatched) {
			break
		}
		if _, claimed := out[e.Key]; claimed {
			continue
		}
		out[e.Key] = toFinding(e.Key, unmatched[next])
		next++
	}
	return out
}

func toFinding(key int, item gjson.Result) models.ConceptFinding {
	return models.ConceptFinding{
		IssueRef:         key,
		RelevantConcepts: models.AppendUnique(nil, llm.Strings(item.Get("relevant_concepts"))...),
		OtherConcepts:    models.AppendUnique(nil, llm.Strings(item.Get("other_concepts"))...),
		Explanation:      trimmed(item, "explanation"),
	}
}

func unprocessedFinding(key int, reason string) models.ConceptFinding {
	return models.ConceptFinding{
		IssueRef:         key,
		RelevantConcepts: []string{},
		OtherConcepts:    []string{},
		Explanation:      reason,
		Unprocessed:      true,
	}
}
