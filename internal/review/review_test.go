package review

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/codereview/internal/llm"
	"github.com/joescharf/codereview/internal/models"
	"github.com/joescharf/codereview/internal/pipeline"
	"github.com/joescharf/codereview/internal/store"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func setupTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRequest() Request {
	return Request{
		StudentSubmission: Submission{Code: "# add\na = int(input())\nb = int(input())\nprint(a - b)\n"},
		TestResults: []TestResult{
			{Input: "1 2", Expect: "3", Actual: "-1", Status: "fail"},
			{Input: "0 0", Expect: "0", Actual: "0", Status: "pass"},
		},
		Assignment: Assignment{Content: " Add two numbers. ", ExpectedConcepts: []string{"arithmetic", " "}},
	}
}

// byInstruction answers with the reply whose key appears in the system instruction.
func byInstruction(replies map[string]string) llm.GeneratorFunc {
	return func(_ context.Context, req llm.Request) (string, error) {
		for key, reply := range replies {
			if strings.Contains(req.System, key) {
				return reply, nil
			}
		}
		return "", llm.TransportError(errors.New("unexpected call"))
	}
}

func TestRequest_State(t *testing.T) {
	st := sampleRequest().State()

	require.Len(t, st.TestOutcomes, 2)
	assert.Equal(t, 0, st.TestOutcomes[0].ID)
	assert.False(t, st.TestOutcomes[0].Passed)
	assert.Equal(t, "3", st.TestOutcomes[0].Expected)
	assert.True(t, st.TestOutcomes[1].Passed)
	assert.Equal(t, "Add two numbers.", st.Assignment.Requirements)
	assert.Equal(t, []string{"arithmetic"}, st.Assignment.ExpectedConcepts)
}

func TestTestResult_Passed(t *testing.T) {
	for status, want := range map[string]bool{"pass": true, "PASSED": true, " pass ": true, "fail": false, "": false, "error": false} {
		assert.Equal(t, want, TestResult{Status: status}.Passed(), status)
	}
}

func TestRequest_Validate(t *testing.T) {
	assert.NoError(t, sampleRequest().Validate())
	err := Request{}.Validate()
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestToItem_DefaultsLocation(t *testing.T) {
	col := 5
	withLoc := toItem(models.ReviewItem{Kind: models.ItemKindError, Location: &models.Location{StartLine: 3, EndLine: 4, StartCol: &col}})
	assert.Equal(t, LineRange{Start: 3, End: 4}, withLoc.Line)
	require.NotNil(t, withLoc.Column.Start)
	assert.Equal(t, 5, *withLoc.Column.Start)
	assert.Nil(t, withLoc.Column.End)

	noLoc := toItem(models.ReviewItem{Kind: models.ItemKindWarning})
	assert.Equal(t, LineRange{Start: 1, End: 1}, noLoc.Line)
	assert.NotNil(t, noLoc.RelevantConcepts)
}

func TestService_Review(t *testing.T) {
	s := setupTestStore(t)
	gen := byInstruction(map[string]string{
		"identify the specific code snippets": `{"logic_issues":[{"issue":"subtracts","evidence":0,"code_snippet":"print(a - b)","location":{"start_line":4,"end_line":4}}]}`,
		"concept-mapping agent":               `{"concept_issues":[{"issue_ref":0,"relevant_concepts":["arithmetic"]}]}`,
		"teaching assistant":                  `{"fix_suggestion":"Which operator adds?"}`,
		"professor":                           `{"final_report":{"feedback":[{"type":"Error","issue":"subtracts"}],"summary":{"overview":"Almost."}}}`,
	})
	cfg := Config{Timeout: time.Minute, Model: "test-model", RecordHistory: true}
	svc, err := NewService(gen, s, cfg, quiet)
	require.NoError(t, err)
	assert.True(t, svc.Available())

	resp, err := svc.Review(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, detailCompleted, resp.Detail)
	assert.NotEmpty(t, resp.Summary)
	require.Len(t, resp.ReviewItems, 1)
	item := resp.ReviewItems[0]
	assert.Equal(t, models.ItemKindError, item.Type)
	assert.Equal(t, LineRange{Start: 4, End: 4}, item.Line)
	assert.Equal(t, "Which operator adds?", item.FixSuggestion)
	assert.Equal(t, "Almost.", resp.FinalReport.Summary.Overview)
	assert.Contains(t, resp.Path, models.StageConceptMapping)

	require.NotEmpty(t, resp.ID)
	rec, err := s.GetReview(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerdictErrors, rec.Verdict)
	assert.Equal(t, 1, rec.ErrorCount)
	assert.Equal(t, "test-model", rec.Model)
	assert.False(t, rec.Fallback)
}

func TestService_ReviewDegraded(t *testing.T) {
	svc, err := NewService(nil, nil, Config{}, quiet)
	require.NoError(t, err)
	assert.False(t, svc.Available())

	resp, err := svc.Review(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, detailDegraded, resp.Detail)
	assert.Empty(t, resp.ID, "no store, nothing recorded")
	require.NotNil(t, resp.FinalReport)
	assert.True(t, resp.FinalReport.Meta.Fallback)
	assert.NotEmpty(t, resp.Failures)
}

func TestService_ReviewTimeout(t *testing.T) {
	gen := llm.GeneratorFunc(func(ctx context.Context, _ llm.Request) (string, error) {
		<-ctx.Done()
		return "", llm.TransportError(ctx.Err())
	})
	svc, err := NewService(gen, nil, Config{Timeout: 20 * time.Millisecond}, quiet)
	require.NoError(t, err)

	resp, err := svc.Review(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.True(t, resp.Cancelled)
	assert.Equal(t, detailCancelled, resp.Detail)
	assert.NotNil(t, resp.FinalReport)
}

func TestService_ReviewHistoryDisabled(t *testing.T) {
	s := setupTestStore(t)
	svc, err := NewService(nil, s, Config{RecordHistory: false}, quiet)
	require.NoError(t, err)

	resp, err := svc.Review(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Empty(t, resp.ID)

	list, err := s.ListReviews(context.Background(), store.ReviewListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_ReviewInvalid(t *testing.T) {
	svc, err := NewService(nil, nil, Config{}, quiet)
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestNewRecord(t *testing.T) {
	res := &pipeline.Result{
		State: models.ReviewState{
			Code:         "x",
			OverviewText: "ok",
			Flags:        models.RoutingFlags{NeedsImprovement: true},
			ReviewItems:  []models.ReviewItem{{Kind: models.ItemKindWarning}, {Kind: models.ItemKindWarning}},
			FinalReport:  &models.FinalReport{Meta: models.ReportMeta{Fallback: true}},
			Failures:     []models.StageFailure{{Stage: models.StageQualityAnalysis}},
		},
		Path: []models.StageName{models.StageIssueDetection},
	}

	rec := NewRecord(res, "m", 1500*time.Millisecond)

	assert.Equal(t, models.VerdictImprovement, rec.Verdict)
	assert.Equal(t, 2, rec.WarningCount)
	assert.Equal(t, 0, rec.ErrorCount)
	assert.Equal(t, 1, rec.FailureCount)
	assert.True(t, rec.Fallback)
	assert.Equal(t, int64(1500), rec.DurationMS)
}

func TestDefaultConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg := DefaultConfig()
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 60, cfg.MaxLines)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.True(t, cfg.RecordHistory)

	viper.Set("pipeline.batch_size", 3)
	viper.Set("pipeline.timeout", "30s")
	viper.Set("history.enabled", false)
	cfg = DefaultConfig()
	assert.Equal(t, 3, cfg.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.False(t, cfg.RecordHistory)
	assert.Equal(t, 3, cfg.StageConfig().BatchSize)
}
