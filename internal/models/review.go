package models

// ItemKind classifies a presentation-ready review item.
type ItemKind string

const (
	ItemKindError   ItemKind = "Error"
	ItemKindWarning ItemKind = "Warning"
)

// Location is a span in the submitted source. Columns are optional.
type Location struct {
	StartLine int  `json:"start_line"`
	EndLine   int  `json:"end_line"`
	StartCol  *int `json:"start_col,omitempty"`
	EndCol    *int `json:"end_col,omitempty"`
}

// TestOutcome is one executed test case for the submission.
type TestOutcome struct {
	ID       int    `json:"id"`
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
}

// AssignmentContext describes what the submission was supposed to do.
type AssignmentContext struct {
	Requirements     string   `json:"requirements"`
	ExpectedConcepts []string `json:"expected_concepts"`
}

// LogicIssue is a functional defect tied to the failing test case it explains.
// Evidence is the primary key and matches a TestOutcome ID.
type LogicIssue struct {
	Issue            string    `json:"issue"`
	Evidence         int       `json:"evidence"`
	CodeSnippet      string    `json:"code_snippet"`
	Location         *Location `json:"location,omitempty"`
	RelevantConcepts []string  `json:"relevant_concepts"`
	OtherConcepts    []string  `json:"other_concepts"`
	FixSuggestion    string    `json:"fix_suggestion"`
}

// ConceptFinding records how one logic issue relates to course concepts.
// Unprocessed is set when the mapping call for the issue's batch failed.
type ConceptFinding struct {
	IssueRef         int      `json:"issue_ref"`
	RelevantConcepts []string `json:"relevant_concepts"`
	OtherConcepts    []string `json:"other_concepts"`
	Explanation      string   `json:"explanation"`
	Unprocessed      bool     `json:"unprocessed,omitempty"`
}

// Note is a style or quality finding that does not affect correctness.
type Note struct {
	Location      *Location `json:"location,omitempty"`
	CodeSnippet   string    `json:"code_snippet"`
	Issue         string    `json:"issue"`
	FixSuggestion string    `json:"fix_suggestion"`
}

// AdvancedTopic is a next-step suggestion for a submission that already works.
type AdvancedTopic struct {
	Topic     string `json:"topic"`
	Rationale string `json:"rationale"`
}

// ReviewItem is a merged, presentation-ready finding. Items are produced only
// by the aggregation stage and never mutated afterwards.
type ReviewItem struct {
	Kind             ItemKind  `json:"type"`
	Location         *Location `json:"location,omitempty"`
	CodeSnippet      string    `json:"code_snippet"`
	Issue            string    `json:"issue"`
	FixSuggestion    string    `json:"fix_suggestion"`
	RelevantConcepts []string  `json:"relevant_concepts"`
}

// FinalReport is the polished terminal artifact of a review.
type FinalReport struct {
	Feedback []FeedbackEntry `json:"feedback"`
	Summary  ReportSummary   `json:"summary"`
	Meta     ReportMeta      `json:"meta"`
}

// FeedbackEntry is one finding as presented in the final report.
type FeedbackEntry struct {
	Kind          ItemKind  `json:"type"`
	Location      *Location `json:"location,omitempty"`
	CodeSnippet   string    `json:"code_snippet"`
	Issue         string    `json:"issue"`
	FixSuggestion string    `json:"fix_suggestion"`
	Concepts      []string  `json:"concepts,omitempty"`
	LearningGoal  string    `json:"learning_goal,omitempty"`
}

// ReportSummary is the overall assessment section of a final report.
type ReportSummary struct {
	Overview    string   `json:"overview"`
	KeyConcepts []string `json:"key_concepts"`
	NextSteps   string   `json:"next_steps"`
}

// ReportMeta describes how the report was produced.
type ReportMeta struct {
	Validated        bool   `json:"validated"`
	Fallback         bool   `json:"fallback,omitempty"`
	DifficultyLevel  string `json:"difficulty_level,omitempty"`
	PedagogicalNotes string `json:"pedagogical_notes,omitempty"`
	Error            string `json:"error,omitempty"`
}

// Empty reports whether the report carries no findings and no summary text.
func (r *FinalReport) Empty() bool {
	if r == nil {
		return true
	}
	return len(r.Feedback) == 0 && r.Summary.Overview == "" && r.Summary.NextSteps == ""
}
