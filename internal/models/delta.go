package models

import (
	"fmt"
	"slices"
	"strconv"
)

// Delta is the partial state a stage returns. Nil fields are left untouched.
//
// Merge rules applied by Apply:
//   - OverviewText, FinalReport and the flag pointers replace prior values.
//   - LogicIssues merge key by key. Concept lists of an existing issue are
//     extended (order-preserving union); non-empty scalar sub-fields replace.
//   - ReviewItems is owned by the aggregation stage and replaced wholesale.
//   - Every other sequence is appended.
type Delta struct {
	Stage StageName

	LogicIssues      map[int]LogicIssue
	ConceptFindings  []ConceptFinding
	ImprovementNotes []Note
	AdvancedTopics   []AdvancedTopic
	ReviewItems      []ReviewItem
	OverviewText     *string
	FinalReport      *FinalReport
	HasErrors        *bool
	NeedsImprovement *bool
	Failures         []StageFailure
}

// reviewItemsOwner is the only stage allowed to write ReviewItems.
const reviewItemsOwner = StageAggregation

// Empty reports whether the delta changes nothing.
func (d Delta) Empty() bool {
	return len(d.LogicIssues) == 0 && len(d.ConceptFindings) == 0 &&
		len(d.ImprovementNotes) == 0 && len(d.AdvancedTopics) == 0 &&
		d.ReviewItems == nil && d.OverviewText == nil && d.FinalReport == nil &&
		d.HasErrors == nil && d.NeedsImprovement == nil && len(d.Failures) == 0
}

// Apply merges d into state and returns the new state. The input state is
// never modified; on error it is returned unchanged together with a
// *MergeConflictError, so a delta is applied entirely or not at all.
func Apply(state ReviewState, d Delta) (ReviewState, error) {
	if err := validate(state, d); err != nil {
		return state, err
	}

	next := state.Clone()
	if next.LogicIssues == nil {
		next.LogicIssues = make(map[int]LogicIssue)
	}

	for key, src := range d.LogicIssues {
		if dst, ok := next.LogicIssues[key]; ok {
			next.LogicIssues[key] = mergeIssue(dst, src)
			continue
		}
		next.LogicIssues[key] = mergeIssue(LogicIssue{Evidence: key}, src)
	}

	for _, f := range d.ConceptFindings {
		f.RelevantConcepts = slices.Clone(f.RelevantConcepts)
		f.OtherConcepts = slices.Clone(f.OtherConcepts)
		next.ConceptFindings = append(next.ConceptFindings, f)
	}
	for _, n := range d.ImprovementNotes {
		n.Location = n.Location.clone()
		next.ImprovementNotes = append(next.ImprovementNotes, n)
	}
	next.AdvancedTopics = append(next.AdvancedTopics, d.AdvancedTopics...)

	if d.ReviewItems != nil {
		items := make([]ReviewItem, len(d.ReviewItems))
		for i, it := range d.ReviewItems {
			it.Location = it.Location.clone()
			it.RelevantConcepts = slices.Clone(it.RelevantConcepts)
			items[i] = it
		}
		next.ReviewItems = items
	}

	if d.OverviewText != nil {
		next.OverviewText = *d.OverviewText
	}
	if d.FinalReport != nil {
		r := d.FinalReport.clone()
		next.FinalReport = &r
	}
	if d.HasErrors != nil {
		next.Flags.HasErrors = *d.HasErrors
	}
	if d.NeedsImprovement != nil {
		next.Flags.NeedsImprovement = *d.NeedsImprovement
	}
	next.Failures = append(next.Failures, d.Failures...)

	return next, nil
}

func validate(state ReviewState, d Delta) error {
	if d.Stage == "" {
		return &MergeConflictError{Field: "stage", Reason: "delta does not name its stage"}
	}

	var known map[int]bool
	for key, issue := range d.LogicIssues {
		if issue.Evidence != key {
			return &MergeConflictError{
				Stage:  d.Stage,
				Field:  "logic_issues",
				Key:    strconv.Itoa(key),
				Reason: fmt.Sprintf("key does not match evidence %d", issue.Evidence),
			}
		}
		if _, exists := state.LogicIssues[key]; exists {
			continue
		}
		if known == nil {
			known = state.OutcomeIDs()
		}
		if !known[key] {
			return &MergeConflictError{
				Stage:  d.Stage,
				Field:  "logic_issues",
				Key:    strconv.Itoa(key),
				Reason: "evidence does not reference a test outcome",
			}
		}
	}

	if d.ReviewItems != nil && d.Stage != reviewItemsOwner {
		return &MergeConflictError{
			Stage:  d.Stage,
			Field:  "review_items",
			Reason: fmt.Sprintf("field is owned by %s", reviewItemsOwner),
		}
	}
	return nil
}

func mergeIssue(dst, src LogicIssue) LogicIssue {
	if src.Issue != "" {
		dst.Issue = src.Issue
	}
	if src.CodeSnippet != "" {
		dst.CodeSnippet = src.CodeSnippet
	}
	if src.Location != nil {
		dst.Location = src.Location.clone()
	}
	if src.FixSuggestion != "" {
		dst.FixSuggestion = src.FixSuggestion
	}
	dst.RelevantConcepts = AppendUnique(slices.Clone(dst.RelevantConcepts), src.RelevantConcepts...)
	dst.OtherConcepts = AppendUnique(slices.Clone(dst.OtherConcepts), src.OtherConcepts...)
	return dst
}

// AppendUnique appends the values not already present in dst, keeping order.
// The result is never nil.
func AppendUnique(dst []string, values ...string) []string {
	if dst == nil {
		dst = []string{}
	}
	for _, v := range values {
		if v == "" || slices.Contains(dst, v) {
			continue
		}
		dst = append(dst, v)
	}
	return dst
}
