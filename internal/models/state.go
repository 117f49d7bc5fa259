package models

import "slices"

// RoutingFlags are derived booleans consumed only by the router.
type RoutingFlags struct {
	HasErrors        bool `json:"has_errors"`
	NeedsImprovement bool `json:"needs_improvement"`
}

// ReviewState is the record threaded through the pipeline. Code, TestOutcomes
// and Assignment are set once by NewReviewState; no Delta field can change them.
// Everything else is written only by applying a stage's Delta.
type ReviewState struct {
	Code         string            `json:"code"`
	TestOutcomes []TestOutcome     `json:"test_outcomes"`
	Assignment   AssignmentContext `json:"assignment"`

	LogicIssues      map[int]LogicIssue `json:"logic_issues"`
	ConceptFindings  []ConceptFinding   `json:"concept_findings"`
	ImprovementNotes []Note             `json:"improvement_notes"`
	AdvancedTopics   []AdvancedTopic    `json:"advanced_topics"`
	ReviewItems      []ReviewItem       `json:"review_items"`
	OverviewText     string             `json:"overview"`
	FinalReport      *FinalReport       `json:"final_report,omitempty"`
	Flags            RoutingFlags       `json:"flags"`
	Failures         []StageFailure     `json:"failures,omitempty"`
}

// NewReviewState creates the initial state for one review with empty derived collections.
func NewReviewState(code string, outcomes []TestOutcome, assignment AssignmentContext) ReviewState {
	return ReviewState{
		Code:         code,
		TestOutcomes: slices.Clone(outcomes),
		Assignment: AssignmentContext{
			Requirements:     assignment.Requirements,
			ExpectedConcepts: slices.Clone(assignment.ExpectedConcepts),
		},
		LogicIssues:      make(map[int]LogicIssue),
		ConceptFindings:  []ConceptFinding{},
		ImprovementNotes: []Note{},
		AdvancedTopics:   []AdvancedTopic{},
		ReviewItems:      []ReviewItem{},
	}
}

// Clone returns a deep copy that shares no mutable memory with s.
func (s ReviewState) Clone() ReviewState {
	out := s
	out.TestOutcomes = slices.Clone(s.TestOutcomes)
	out.Assignment.ExpectedConcepts = slices.Clone(s.Assignment.ExpectedConcepts)

	out.LogicIssues = make(map[int]LogicIssue, len(s.LogicIssues))
	for k, v := range s.LogicIssues {
		out.LogicIssues[k] = v.clone()
	}

	out.ConceptFindings = make([]ConceptFinding, len(s.ConceptFindings))
	for i, f := range s.ConceptFindings {
		f.RelevantConcepts = slices.Clone(f.RelevantConcepts)
		f.OtherConcepts = slices.Clone(f.OtherConcepts)
		out.ConceptFindings[i] = f
	}

	out.ImprovementNotes = make([]Note, len(s.ImprovementNotes))
	for i, n := range s.ImprovementNotes {
		n.Location = n.Location.clone()
		out.ImprovementNotes[i] = n
	}

	out.AdvancedTopics = slices.Clone(s.AdvancedTopics)
	if out.AdvancedTopics == nil {
		out.AdvancedTopics = []AdvancedTopic{}
	}

	out.ReviewItems = make([]ReviewItem, len(s.ReviewItems))
	for i, it := range s.ReviewItems {
		it.Location = it.Location.clone()
		it.RelevantConcepts = slices.Clone(it.RelevantConcepts)
		out.ReviewItems[i] = it
	}

	if s.FinalReport != nil {
		r := s.FinalReport.clone()
		out.FinalReport = &r
	}
	out.Failures = slices.Clone(s.Failures)
	return out
}

// OutcomeIDs returns the set of test outcome ids known to the state.
func (s ReviewState) OutcomeIDs() map[int]bool {
	ids := make(map[int]bool, len(s.TestOutcomes))
	for _, o := range s.TestOutcomes {
		ids[o.ID] = true
	}
	return ids
}

// FailingOutcomes returns the outcomes that did not pass, in order.
func (s ReviewState) FailingOutcomes() []TestOutcome {
	var failing []TestOutcome
	for _, o := range s.TestOutcomes {
		if !o.Passed {
			failing = append(failing, o)
		}
	}
	return failing
}

// SortedIssues returns the logic issues ordered by evidence id.
func (s ReviewState) SortedIssues() []LogicIssue {
	keys := make([]int, 0, len(s.LogicIssues))
	for k := range s.LogicIssues {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]LogicIssue, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.LogicIssues[k])
	}
	return out
}

func (l *Location) clone() *Location {
	if l == nil {
		return nil
	}
	c := *l
	if l.StartCol != nil {
		v := *l.StartCol
		c.StartCol = &v
	}
	if l.EndCol != nil {
		v := *l.EndCol
		c.EndCol = &v
	}
	return &c
}

func (i LogicIssue) clone() LogicIssue {
	i.Location = i.Location.clone()
	i.RelevantConcepts = slices.Clone(i.RelevantConcepts)
	i.OtherConcepts = slices.Clone(i.OtherConcepts)
	return i
}

func (r FinalReport) clone() FinalReport {
	out := r
	out.Feedback = make([]FeedbackEntry, len(r.Feedback))
	for i, f := range r.Feedback {
		f.Location = f.Location.clone()
		f.Concepts = slices.Clone(f.Concepts)
		out.Feedback[i] = f
	}
	out.Summary.KeyConcepts = slices.Clone(r.Summary.KeyConcepts)
	return out
}
