package review

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joescharf/codereview/internal/models"
	"github.com/joescharf/codereview/internal/pipeline"
)

// ErrInvalidRequest is wrapped by every request validation error.
var ErrInvalidRequest = errors.New("invalid review request")

// Submission is the student's code.
type Submission struct {
	Code string `json:"code" yaml:"code"`
}

// TestResult is one executed test case as reported by the sandbox.
type TestResult struct {
	Input  string `json:"input" yaml:"input"`
	Expect string `json:"expect" yaml:"expect"`
	Actual string `json:"actual" yaml:"actual"`
	Status string `json:"status" yaml:"status"`
}

// Passed reports whether the sandbox marked the case as passing.
func (r TestResult) Passed() bool {
	s := strings.TrimSpace(r.Status)
	return strings.EqualFold(s, "pass") || strings.EqualFold(s, "passed")
}

// Assignment describes the task the submission answers.
type Assignment struct {
	Content          string   `json:"content" yaml:"content"`
	ExpectedConcepts []string `json:"expected_concepts" yaml:"expected_concepts"`
}

// Request is an inbound review request.
type Request struct {
	StudentSubmission Submission   `json:"student_submission" yaml:"student_submission"`
	TestResults       []TestResult `json:"test_results" yaml:"test_results"`
	Assignment        Assignment   `json:"assignment" yaml:"assignment"`
}

// Validate checks the request can be reviewed.
func (r Request) Validate() error {
	if strings.TrimSpace(r.StudentSubmission.Code) == "" {
		return fmt.Errorf("%w: student_submission.code is required", ErrInvalidRequest)
	}
	return nil
}

// State builds the initial review state. Test outcome ids are the positions
// of the results in the request.
func (r Request) State() models.ReviewState {
	outcomes := make([]models.TestOutcome, len(r.TestResults))
	for i, tr := range r.TestResults {
		outcomes[i] = models.TestOutcome{
			ID:       i,
			Input:    tr.Input,
			Expected: tr.Expect,
			Actual:   tr.Actual,
			Passed:   tr.Passed(),
		}
	}
	var concepts []string
	for _, c := range r.Assignment.ExpectedConcepts {
		if c = strings.TrimSpace(c); c != "" {
			concepts = append(concepts, c)
		}
	}
	return models.NewReviewState(r.StudentSubmission.Code, outcomes, models.AssignmentContext{
		Requirements:     strings.TrimSpace(r.Assignment.Content),
		ExpectedConcepts: concepts,
	})
}

// LineRange is an inclusive line span. Both ends default to 1.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ColumnRange is an optional column span.
type ColumnRange struct {
	Start *int `json:"start"`
	End   *int `json:"end"`
}

// Item is a review item as presented to clients.
type Item struct {
	Type             models.ItemKind `json:"type"`
	Line             LineRange       `json:"line"`
	Column           ColumnRange     `json:"column"`
	CodeSnippet      string          `json:"code_snippet"`
	Issue            string          `json:"issue"`
	FixSuggestion    string          `json:"fix_suggestion"`
	RelevantConcepts []string        `json:"relevant_concepts"`
}

// Response is the outbound result of a review.
type Response struct {
	ID          string                `json:"id,omitempty"`
	Summary     string                `json:"summary"`
	Detail      string                `json:"detail"`
	ReviewItems []Item                `json:"review_items"`
	FinalReport *models.FinalReport   `json:"final_report,omitempty"`
	Path        []models.StageName    `json:"path"`
	Cancelled   bool                  `json:"cancelled"`
	Failures    []models.StageFailure `json:"failures,omitempty"`
}

const (
	detailCompleted = "Review completed"
	detailDegraded  = "Review completed with degraded results"
	detailCancelled = "Review cancelled before completion; results are partial"
)

// NewResponse maps a pipeline result to the outbound shape.
func NewResponse(res *pipeline.Result) *Response {
	st := res.State
	items := make([]Item, len(st.ReviewItems))
	for i, it := range st.ReviewItems {
		items[i] = toItem(it)
	}

	detail := detailCompleted
	switch {
	case res.Cancelled:
		detail = detailCancelled
	case len(st.Failures) > 0:
		detail = detailDegraded
	}

	return &Response{
		Summary:     st.OverviewText,
		Detail:      detail,
		ReviewItems: items,
		FinalReport: st.FinalReport,
		Path:        res.Path,
		Cancelled:   res.Cancelled,
		Failures:    st.Failures,
	}
}

func toItem(it models.ReviewItem) Item {
	out := Item{
		Type:             it.Kind,
		Line:             LineRange{Start: 1, End: 1},
		CodeSnippet:      it.CodeSnippet,
		Issue:            it.Issue,
		FixSuggestion:    it.FixSuggestion,
		RelevantConcepts: models.AppendUnique(nil, it.RelevantConcepts...),
	}
	if loc := it.Location; loc != nil {
		out.Line = LineRange{Start: loc.StartLine, End: loc.EndLine}
		out.Column = ColumnRange{Start: loc.StartCol, End: loc.EndCol}
	}
	return out
}
