package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/codereview/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord() *models.ReviewRecord {
	return &models.ReviewRecord{
		Verdict:      models.VerdictErrors,
		Overview:     "Your code has logic errors.",
		Code:         "print(a - b)",
		Requirements: "Add two numbers.",
		Model:        "claude-haiku-4-5-20251001",
		ErrorCount:   1,
		FailureCount: 2,
		Path:         []models.StageName{models.StageIssueDetection, models.StageConceptMapping},
		Items: []models.ReviewItem{{
			Kind:             models.ItemKindError,
			Location:         &models.Location{StartLine: 1, EndLine: 1},
			Issue:            "subtracts",
			RelevantConcepts: []string{"arithmetic"},
		}},
		Report: &models.FinalReport{
			Feedback: []models.FeedbackEntry{{Kind: models.ItemKindError, Issue: "subtracts"}},
			Summary:  models.ReportSummary{Overview: "Close."},
			Meta:     models.ReportMeta{Fallback: true},
		},
		Fallback:   true,
		DurationMS: 1234,
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)

	err := s.Migrate(context.Background())
	assert.NoError(t, err)
}

func TestReviewRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := sampleRecord()
	require.NoError(t, s.SaveReview(ctx, r))
	assert.Len(t, r.ID, 26, "ULID assigned")
	assert.False(t, r.CreatedAt.IsZero())

	got, err := s.GetReview(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerdictErrors, got.Verdict)
	assert.Equal(t, r.Code, got.Code)
	assert.Equal(t, r.Path, got.Path)
	assert.Equal(t, r.Items, got.Items)
	require.NotNil(t, got.Report)
	assert.Equal(t, "Close.", got.Report.Summary.Overview)
	assert.True(t, got.Fallback)
	assert.False(t, got.Cancelled)
	assert.Equal(t, int64(1234), got.DurationMS)
	assert.Equal(t, 2, got.FailureCount)
}

func TestSaveReview_WithoutReport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := sampleRecord()
	r.Report = nil
	r.Items = nil
	require.NoError(t, s.SaveReview(ctx, r))

	got, err := s.GetReview(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Report)
	assert.NotNil(t, got.Items)
	assert.Empty(t, got.Items)
}

func TestGetReview_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetReview(context.Background(), "01NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindReview_Prefix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := sampleRecord()
	a.ID = "01AAAAAAAAAAAAAAAAAAAAAAAA"
	b := sampleRecord()
	b.ID = "01AAAAAAAAAAAAAAAAAAAAAAAB"
	c := sampleRecord()
	c.ID = "01BBBBBBBBBBBBBBBBBBBBBBBB"
	for _, r := range []*models.ReviewRecord{a, b, c} {
		require.NoError(t, s.SaveReview(ctx, r))
	}

	got, err := s.FindReview(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	got, err = s.FindReview(ctx, "01bb")
	require.NoError(t, err, "prefix is case-insensitive")
	assert.Equal(t, c.ID, got.ID)

	_, err = s.FindReview(ctx, "01AA")
	assert.ErrorIs(t, err, ErrAmbiguous)

	_, err = s.FindReview(ctx, "01ZZ")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.FindReview(ctx, "  ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindReview_WildcardsAreLiteral(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := sampleRecord()
	a.ID = "01CCCCCCCCCCCCCCCCCCCCCCCC"
	require.NoError(t, s.SaveReview(ctx, a))

	for _, prefix := range []string{"%", "_", "01_C", "0%", `\`} {
		_, err := s.FindReview(ctx, prefix)
		assert.ErrorIs(t, err, ErrNotFound, "prefix %q", prefix)
	}

	got, err := s.FindReview(ctx, "01cc")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestFindReview_ClosedStoreIsNotNotFound(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.FindReview(context.Background(), "01CC")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestListReviews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	verdicts := []models.Verdict{models.VerdictErrors, models.VerdictCorrect, models.VerdictErrors}
	var ids []string
	for i, v := range verdicts {
		r := sampleRecord()
		r.Verdict = v
		r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.SaveReview(ctx, r))
		ids = append(ids, r.ID)
	}

	all, err := s.ListReviews(ctx, ReviewListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")
	assert.Equal(t, ids[0], all[2].ID)

	errs, err := s.ListReviews(ctx, ReviewListFilter{Verdict: models.VerdictErrors})
	require.NoError(t, err)
	assert.Len(t, errs, 2)

	limited, err := s.ListReviews(ctx, ReviewListFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, ids[2], limited[0].ID)
}

func TestDeleteReview(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := sampleRecord()
	require.NoError(t, s.SaveReview(ctx, r))
	require.NoError(t, s.DeleteReview(ctx, r.ID))

	_, err := s.GetReview(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteReview(ctx, r.ID), ErrNotFound)
}

func TestVerdictFor(t *testing.T) {
	assert.Equal(t, models.VerdictErrors, models.VerdictFor(models.RoutingFlags{HasErrors: true, NeedsImprovement: true}))
	assert.Equal(t, models.VerdictImprovement, models.VerdictFor(models.RoutingFlags{NeedsImprovement: true}))
	assert.Equal(t, models.VerdictCorrect, models.VerdictFor(models.RoutingFlags{}))
}
