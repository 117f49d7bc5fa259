package store

import (
	"context"
	"errors"

	"github.com/joescharf/codereview/internal/models"
)

var (
	// ErrNotFound is returned when no review matches an id or prefix.
	ErrNotFound = errors.New("review not found")
	// ErrAmbiguous is returned when an id prefix matches more than one review.
	ErrAmbiguous = errors.New("ambiguous review id")
)

// ReviewListFilter specifies filters for listing reviews.
type ReviewListFilter struct {
	Verdict models.Verdict
	Limit   int
}

// Store defines the persistence interface for review history.
type Store interface {
	SaveReview(ctx context.Context, r *models.ReviewRecord) error
	GetReview(ctx context.Context, id string) (*models.ReviewRecord, error)
	FindReview(ctx context.Context, idOrPrefix string) (*models.ReviewRecord, error)
	ListReviews(ctx context.Context, filter ReviewListFilter) ([]*models.ReviewRecord, error)
	DeleteReview(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
