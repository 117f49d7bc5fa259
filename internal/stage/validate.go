package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/joescharf/codereview/internal/llm"
	"github.com/joescharf/codereview/internal/models"
)

var errEmptyReport = errors.New("response has no usable final_report")

// Validator turns the aggregated review into the final report. Reads Code,
// TestOutcomes, Assignment, ReviewItems, OverviewText and AdvancedTopics.
type Validator struct {
	base
}

// NewValidator creates the final-validation stage.
func NewValidator(gen llm.Generator, logger *slog.Logger) *Validator {
	return &Validator{base: newBase(models.StageFinalValidation, gen, logger)}
}

// Analyze asks for a polished report. A degraded call or an empty report
// falls back to the deterministic report, so FinalReport is always set.
func (s *Validator) Analyze(ctx context.Context, state models.ReviewState) models.Delta {
	req := llm.Request{
		System:  validateSystem,
		Prompt:  buildValidatePrompt(state),
		Options: validateOptions,
	}
	report, failure := attempt(ctx, s.base, "report", req, parseReport, nil)
	if report != nil {
		return models.Delta{Stage: s.name, FinalReport: report}
	}
	if failure == nil {
		failure = s.fail("report", models.FailureDecode, errEmptyReport)
	}

	delta := s.AnalyzeOffline(state)
	delta.FinalReport.Meta.Error = failure.Message
	delta.Failures = []models.StageFailure{*failure}
	return delta
}

// AnalyzeOffline builds the fallback report without calling out.
func (s *Validator) AnalyzeOffline(state models.ReviewState) models.Delta {
	return models.Delta{Stage: s.name, FinalReport: FallbackReport(state)}
}

// FallbackReport builds a report from ReviewItems, OverviewText and
// AdvancedTopics alone. It is deterministic and never empty.
func FallbackReport(state models.ReviewState) *models.FinalReport {
	report := &models.FinalReport{
		Feedback: make([]models.FeedbackEntry, 0, len(state.ReviewItems)),
		Meta:     models.ReportMeta{Validated: false, Fallback: true},
	}

	var concepts []string
	errorCount := 0
	for _, it := range state.ReviewItems {
		if it.Kind == models.ItemKindError {
			errorCount++
		}
		report.Feedback = append(report.Feedback, models.FeedbackEntry{
			Kind:          it.Kind,
			Location:      it.Location,
			CodeSnippet:   it.CodeSnippet,
			Issue:         it.Issue,
			FixSuggestion: it.FixSuggestion,
			Concepts:      models.AppendUnique(nil, it.RelevantConcepts...),
		})
		concepts = models.AppendUnique(concepts, it.RelevantConcepts...)
	}

	overview := state.OverviewText
	if overview == "" {
		overview = Overview(state.Flags)
	}
	report.Summary = models.ReportSummary{
		Overview:    overview,
		KeyConcepts: models.AppendUnique(concepts, state.Assignment.ExpectedConcepts...),
		NextSteps:   nextSteps(errorCount, len(state.ReviewItems)-errorCount, state.AdvancedTopics),
	}
	return report
}

func nextSteps(errorCount, warningCount int, topics []models.AdvancedTopic) string {
	switch {
	case errorCount > 0:
		return fmt.Sprintf("Fix the %d error(s) above and re-run the failing test cases.", errorCount)
	case warningCount > 0:
		return fmt.Sprintf("Address the %d style suggestion(s) above to make your code easier to read.", warningCount)
	case len(topics) > 0:
		names := make([]string, len(topics))
		for i, t := range topics {
			names[i] = t.Topic
		}
		return "Try exploring: " + strings.Join(names, ", ") + "."
	default:
		return "Keep practicing with new problems."
	}
}

// parseReport returns nil when the response carries no non-empty final_report.
func parseReport(d llm.Decoded) *models.FinalReport {
	root := d.Get("final_report")
	if !root.IsObject() {
		return nil
	}

	report := &models.FinalReport{Feedback: []models.FeedbackEntry{}}
	for _, item := range root.Get("feedback").Array() {
		if !item.IsObject() {
			continue
		}
		report.Feedback = append(report.Feedback, parseFeedback(item))
	}

	summary := root.Get("summary")
	report.Summary = models.ReportSummary{
		Overview:    trimmed(summary, "overview"),
		KeyConcepts: models.AppendUnique(nil, llm.Strings(summary.Get("key_concepts"))...),
		NextSteps:   trimmed(summary, "next_steps"),
	}

	meta := root.Get("meta")
	validated := meta.Get("validated")
	report.Meta = models.ReportMeta{
		Validated:        !validated.Exists() || validated.Bool(),
		DifficultyLevel:  trimmed(meta, "difficulty_level"),
		PedagogicalNotes: trimmed(meta, "pedagogical_notes"),
	}

	if report.Empty() {
		return nil
	}
	return report
}

func parseFeedback(item gjson.Result) models.FeedbackEntry {
	kind := models.ItemKindWarning
	if strings.EqualFold(trimmed(item, "type"), string(models.ItemKindError)) {
		kind = models.ItemKindError
	}

	concepts := llm.Strings(item.Get("educational_notes.concepts"))
	if concepts == nil {
		concepts = llm.Strings(item.Get("concepts"))
	}
	goal := trimmed(item, "educational_notes.learning_goal")
	if goal == "" {
		goal = trimmed(item, "learning_goal")
	}

	return models.FeedbackEntry{
		Kind:          kind,
		Location:      parseLocation(item.Get("location")),
		CodeSnippet:   trimmed(item, "code_snippet"),
		Issue:         trimmed(item, "issue"),
		FixSuggestion: trimmed(item, "fix_suggestion"),
		Concepts:      models.AppendUnique(nil, concepts...),
		LearningGoal:  goal,
	}
}
