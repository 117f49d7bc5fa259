package stage

import (
	"context"
	"strings"

	"github.com/joescharf/codereview/internal/models"
)

const (
	errorsClause      = "Your code has logic errors that cause some test cases to fail. Work through the errors below first."
	improvementClause = "Your code could be improved in style and readability."
	correctClause     = "Your code looks correct and passes all test cases. Great job!"
)

// Aggregator merges the findings of the previous stages into review items.
// It never calls out. Reads LogicIssues, ImprovementNotes and Flags.
type Aggregator struct{}

// NewAggregator creates the aggregation stage.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Name returns the stage name.
func (a *Aggregator) Name() models.StageName {
	return models.StageAggregation
}

// Analyze is AnalyzeOffline; aggregation has no external dependency.
func (a *Aggregator) Analyze(_ context.Context, state models.ReviewState) models.Delta {
	return a.AnalyzeOffline(state)
}

// AnalyzeOffline maps each logic issue (by evidence id) to an Error item and
// each improvement note to a Warning item, then composes the overview.
func (a *Aggregator) AnalyzeOffline(state models.ReviewState) models.Delta {
	items := make([]models.ReviewItem, 0, len(state.LogicIssues)+len(state.ImprovementNotes))
	for _, issue := range state.SortedIssues() {
		items = append(items, models.ReviewItem{
			Kind:             models.ItemKindError,
			Location:         issue.Location,
			CodeSnippet:      issue.CodeSnippet,
			Issue:            issue.Issue,
			FixSuggestion:    issue.FixSuggestion,
			RelevantConcepts: models.AppendUnique(nil, issue.RelevantConcepts...),
		})
	}
	for _, note := range state.ImprovementNotes {
		items = append(items, models.ReviewItem{
			Kind:             models.ItemKindWarning,
			Location:         note.Location,
			CodeSnippet:      note.CodeSnippet,
			Issue:            note.Issue,
			FixSuggestion:    note.FixSuggestion,
			RelevantConcepts: []string{},
		})
	}

	return models.Delta{
		Stage:        models.StageAggregation,
		ReviewItems:  items,
		OverviewText: stringPtr(Overview(state.Flags)),
	}
}

// Overview composes the fixed summary clauses for a set of flags: the errors
// clause first, then the improvement clause, otherwise the "looks correct" clause.
func Overview(flags models.RoutingFlags) string {
	var clauses []string
	if flags.HasErrors {
		clauses = append(clauses, errorsClause)
	}
	if flags.NeedsImprovement {
		clauses = append(clauses, improvementClause)
	}
	if len(clauses) == 0 {
		clauses = append(clauses, correctClause)
	}
	return strings.Join(clauses, " ")
}
