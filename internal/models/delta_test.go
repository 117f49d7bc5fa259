package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState() ReviewState {
	return NewReviewState("print(1)", []TestOutcome{
		{ID: 0, Input: "1", Expected: "2", Actual: "1"},
		{ID: 1, Input: "2", Expected: "3", Actual: "3", Passed: true},
		{ID: 2, Input: "3", Expected: "4", Actual: "0"},
	}, AssignmentContext{Requirements: "add one", ExpectedConcepts: []string{"variables"}})
}

func ptr[T any](v T) *T { return &v }

func TestNewReviewState_EmptyCollections(t *testing.T) {
	s := newTestState()
	assert.NotNil(t, s.LogicIssues)
	assert.Empty(t, s.LogicIssues)
	assert.NotNil(t, s.ConceptFindings)
	assert.NotNil(t, s.ImprovementNotes)
	assert.NotNil(t, s.ReviewItems)
	assert.Nil(t, s.FinalReport)
	assert.False(t, s.Flags.HasErrors)
}

func TestApply_ConceptUnionAcrossDeltas(t *testing.T) {
	s := newTestState()

	s, err := Apply(s, Delta{
		Stage:       StageIssueDetection,
		LogicIssues: map[int]LogicIssue{0: {Evidence: 0, Issue: "off by one", CodeSnippet: "x + 0"}},
	})
	require.NoError(t, err)

	s, err = Apply(s, Delta{
		Stage:       StageConceptMapping,
		LogicIssues: map[int]LogicIssue{0: {Evidence: 0, RelevantConcepts: []string{"arithmetic", "variables"}}},
	})
	require.NoError(t, err)

	s, err = Apply(s, Delta{
		Stage:       StageHintGeneration,
		LogicIssues: map[int]LogicIssue{0: {Evidence: 0, RelevantConcepts: []string{"variables", "operators"}, FixSuggestion: "add one"}},
	})
	require.NoError(t, err)

	issue := s.LogicIssues[0]
	assert.Equal(t, []string{"arithmetic", "variables", "operators"}, issue.RelevantConcepts)
	assert.Equal(t, "off by one", issue.Issue, "enrichment must not clear earlier fields")
	assert.Equal(t, "x + 0", issue.CodeSnippet)
	assert.Equal(t, "add one", issue.FixSuggestion)
}

func TestApply_DuplicateEvidenceOverwrites(t *testing.T) {
	s := newTestState()
	s, err := Apply(s, Delta{
		Stage: StageIssueDetection,
		LogicIssues: map[int]LogicIssue{
			2: {Evidence: 2, Issue: "first"},
		},
	})
	require.NoError(t, err)
	s, err = Apply(s, Delta{
		Stage:       StageIssueDetection,
		LogicIssues: map[int]LogicIssue{2: {Evidence: 2, Issue: "second"}},
	})
	require.NoError(t, err)

	assert.Len(t, s.LogicIssues, 1)
	assert.Equal(t, "second", s.LogicIssues[2].Issue)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	s := newTestState()
	s, err := Apply(s, Delta{
		Stage:       StageIssueDetection,
		LogicIssues: map[int]LogicIssue{0: {Evidence: 0, RelevantConcepts: []string{"loops"}}},
	})
	require.NoError(t, err)

	before := s.Clone()
	_, err = Apply(s, Delta{
		Stage:            StageConceptMapping,
		LogicIssues:      map[int]LogicIssue{0: {Evidence: 0, RelevantConcepts: []string{"conditions"}}},
		ImprovementNotes: []Note{{Issue: "naming"}},
	})
	require.NoError(t, err)

	assert.Equal(t, before, s)
}

func TestApply_SequencesAppendExceptOwnedReviewItems(t *testing.T) {
	s := newTestState()

	s, err := Apply(s, Delta{Stage: StageQualityAnalysis, ImprovementNotes: []Note{{Issue: "a"}}})
	require.NoError(t, err)
	s, err = Apply(s, Delta{Stage: StageQualityAnalysis, ImprovementNotes: []Note{{Issue: "b"}}})
	require.NoError(t, err)
	require.Len(t, s.ImprovementNotes, 2)
	assert.Equal(t, "a", s.ImprovementNotes[0].Issue)
	assert.Equal(t, "b", s.ImprovementNotes[1].Issue)

	s, err = Apply(s, Delta{Stage: StageAggregation, ReviewItems: []ReviewItem{{Kind: ItemKindWarning, Issue: "a"}, {Kind: ItemKindWarning, Issue: "b"}}})
	require.NoError(t, err)
	s, err = Apply(s, Delta{Stage: StageAggregation, ReviewItems: []ReviewItem{{Kind: ItemKindError, Issue: "c"}}})
	require.NoError(t, err)
	require.Len(t, s.ReviewItems, 1)
	assert.Equal(t, "c", s.ReviewItems[0].Issue)
}

func TestApply_ScalarsReplace(t *testing.T) {
	s := newTestState()
	s, err := Apply(s, Delta{Stage: StageIssueDetection, HasErrors: ptr(true), NeedsImprovement: ptr(true)})
	require.NoError(t, err)
	s, err = Apply(s, Delta{Stage: StageQualityAnalysis, NeedsImprovement: ptr(false), OverviewText: ptr("hi")})
	require.NoError(t, err)

	assert.True(t, s.Flags.HasErrors)
	assert.False(t, s.Flags.NeedsImprovement)
	assert.Equal(t, "hi", s.OverviewText)
}

func TestApply_MergeConflicts(t *testing.T) {
	tests := []struct {
		name  string
		delta Delta
		field string
	}{
		{
			name:  "missing stage",
			delta: Delta{OverviewText: ptr("x")},
			field: "stage",
		},
		{
			name:  "key does not match evidence",
			delta: Delta{Stage: StageIssueDetection, LogicIssues: map[int]LogicIssue{0: {Evidence: 2}}},
			field: "logic_issues",
		},
		{
			name:  "unknown evidence",
			delta: Delta{Stage: StageIssueDetection, LogicIssues: map[int]LogicIssue{42: {Evidence: 42}}},
			field: "logic_issues",
		},
		{
			name:  "review items written by non-owner",
			delta: Delta{Stage: StageQualityAnalysis, ReviewItems: []ReviewItem{}},
			field: "review_items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestState()
			got, err := Apply(s, tt.delta)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMergeConflict))

			var mc *MergeConflictError
			require.ErrorAs(t, err, &mc)
			assert.Equal(t, tt.field, mc.Field)
			assert.Equal(t, s, got, "state must be unchanged on conflict")
		})
	}
}

func TestApply_FailuresAccumulate(t *testing.T) {
	s := newTestState()
	s, err := Apply(s, Delta{Stage: StageIssueDetection, Failures: []StageFailure{{Stage: StageIssueDetection, Scope: "batch 1"}}})
	require.NoError(t, err)
	s, err = Apply(s, Delta{Stage: StageConceptMapping, Failures: []StageFailure{{Stage: StageConceptMapping, Scope: "batch 1"}}})
	require.NoError(t, err)
	assert.Len(t, s.Failures, 2)
}

func TestDelta_Empty(t *testing.T) {
	assert.True(t, Delta{Stage: StageAggregation}.Empty())
	assert.False(t, Delta{Stage: StageAggregation, ReviewItems: []ReviewItem{}}.Empty())
}

func TestAppendUnique(t *testing.T) {
	assert.Equal(t, []string{}, AppendUnique(nil))
	assert.Equal(t, []string{"a", "b"}, AppendUnique([]string{"a"}, "b", "a", ""))
}

func TestClone_Independent(t *testing.T) {
	s := newTestState()
	s.LogicIssues[0] = LogicIssue{Evidence: 0, RelevantConcepts: []string{"loops"}}
	s.FinalReport = &FinalReport{Summary: ReportSummary{KeyConcepts: []string{"a"}}}

	c := s.Clone()
	issue := c.LogicIssues[0]
	issue.RelevantConcepts[0] = "changed"
	c.FinalReport.Summary.KeyConcepts[0] = "changed"
	c.TestOutcomes[0].Actual = "changed"

	assert.Equal(t, "loops", s.LogicIssues[0].RelevantConcepts[0])
	assert.Equal(t, "a", s.FinalReport.Summary.KeyConcepts[0])
	assert.Equal(t, "1", s.TestOutcomes[0].Actual)
}

func TestReviewState_Helpers(t *testing.T) {
	s := newTestState()
	assert.Len(t, s.FailingOutcomes(), 2)
	assert.Equal(t, map[int]bool{0: true, 1: true, 2: true}, s.OutcomeIDs())

	s.LogicIssues[2] = LogicIssue{Evidence: 2}
	s.LogicIssues[0] = LogicIssue{Evidence: 0}
	issues := s.SortedIssues()
	require.Len(t, issues, 2)
	assert.Equal(t, 0, issues[0].Evidence)
	assert.Equal(t, 2, issues[1].Evidence)
}

func TestFinalReport_Empty(t *testing.T) {
	var r *FinalReport
	assert.True(t, r.Empty())
	assert.True(t, (&FinalReport{}).Empty())
	assert.False(t, (&FinalReport{Summary: ReportSummary{Overview: "ok"}}).Empty())
}
