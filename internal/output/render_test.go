package output

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/codereview/internal/models"
	"github.com/joescharf/codereview/internal/review"
)

func TestReview(t *testing.T) {
	u, out, errOut := newTestUI()
	u.Verbose = true
	resp := &review.Response{
		ID:      "01HXREVIEW",
		Summary: "Your code has logic errors.",
		ReviewItems: []review.Item{{
			Type:          models.ItemKindError,
			Line:          review.LineRange{Start: 4, End: 5},
			Issue:         "subtracts instead of adds",
			FixSuggestion: "Which operator adds two numbers?",
		}},
		FinalReport: &models.FinalReport{
			Summary: models.ReportSummary{KeyConcepts: []string{"arithmetic"}, NextSteps: "Fix the operator."},
			Meta:    models.ReportMeta{Fallback: true},
		},
		Path:     []models.StageName{models.StageIssueDetection, models.StageConceptMapping},
		Failures: []models.StageFailure{{Stage: models.StageFinalValidation, Scope: "report", Kind: models.FailureDecode, Message: "bad json"}},
	}

	require.NoError(t, u.Review(resp))

	got := out.String()
	assert.Contains(t, got, "01HXREVIEW")
	assert.Contains(t, got, "Your code has logic errors.")
	assert.Contains(t, got, "subtracts instead of adds")
	assert.Contains(t, got, "4-5")
	assert.Contains(t, got, "Key concepts: arithmetic")
	assert.Contains(t, got, "Next steps: Fix the operator.")
	assert.Contains(t, got, "issue-detection -> concept-mapping")
	assert.Contains(t, got, "bad json")
	assert.Contains(t, errOut.String(), "without validation")
}

func TestHistory(t *testing.T) {
	u, out, _ := newTestUI()
	records := []*models.ReviewRecord{
		{ID: "01AAA", Verdict: models.VerdictErrors, ErrorCount: 2, Overview: "errors", CreatedAt: time.Now()},
		{ID: "01BBB", Verdict: models.VerdictCorrect, Overview: "fine", CreatedAt: time.Now()},
	}

	require.NoError(t, u.History(records))
	assert.Contains(t, out.String(), "01AAA")
	assert.Contains(t, out.String(), "01BBB")
}

func TestReviewRecord(t *testing.T) {
	u, out, _ := newTestUI()
	rec := &models.ReviewRecord{
		ID:       "01CCC",
		Verdict:  models.VerdictImprovement,
		Overview: "Needs comments.",
		Path:     []models.StageName{models.StageIssueDetection, models.StageQualityAnalysis},
		Items:    []models.ReviewItem{{Kind: models.ItemKindWarning, Issue: "No comments"}},
		Report:   &models.FinalReport{Summary: models.ReportSummary{NextSteps: "Add comments."}},
	}

	require.NoError(t, u.ReviewRecord(rec))
	got := out.String()
	assert.Contains(t, got, "01CCC")
	assert.Contains(t, got, "Needs comments.")
	assert.Contains(t, got, "No comments")
	assert.Contains(t, got, "Add comments.")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a\n  b", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijkl", 10))
}

func TestLineSpan(t *testing.T) {
	assert.Equal(t, "3", lineSpan(3, 3))
	assert.Equal(t, "3-7", lineSpan(3, 7))
}
