// Package stage implements the analysis steps of a submission review. Each
// stage reads a snapshot of the review state and returns a delta; stages never
// fail; a degraded model call shrinks the stage's contribution instead.
package stage

import (
	"context"
	"log/slog"

	"github.com/joescharf/codereview/internal/batch"
	"github.com/joescharf/codereview/internal/llm"
	"github.com/joescharf/codereview/internal/models"
	"github.com/joescharf/codereview/internal/quality"
)

// Stage is one named unit of review work.
type Stage interface {
	Name() models.StageName
	Analyze(ctx context.Context, state models.ReviewState) models.Delta
}

// Offline is implemented by stages that can produce their contribution
// without calling the generation service.
type Offline interface {
	Stage
	AnalyzeOffline(state models.ReviewState) models.Delta
}

// Config tunes batching and heuristics shared by the stages.
type Config struct {
	BatchSize int // items per generation request
	Workers   int // concurrent batch requests per stage
	MaxLines  int // style heuristic line threshold
}

// DefaultConfig returns the built-in stage configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize: batch.DefaultSize,
		Workers:   4,
		MaxLines:  quality.DefaultMaxLines,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.MaxLines <= 0 {
		c.MaxLines = d.MaxLines
	}
	return c
}

// All returns every stage of the review pipeline wired to gen.
func All(gen llm.Generator, cfg Config, logger *slog.Logger) []Stage {
	return []Stage{
		NewIssueDetector(gen, cfg, logger),
		NewConceptMapper(gen, cfg, logger),
		NewHintGenerator(gen, cfg, logger),
		NewQualityAnalyzer(gen, logger),
		NewAdvancedSuggester(gen, logger),
		NewAggregator(),
		NewValidator(gen, logger),
	}
}

// base carries what every model-backed stage needs.
type base struct {
	name models.StageName
	gen  llm.Generator
	log  *slog.Logger
}

func newBase(name models.StageName, gen llm.Generator, logger *slog.Logger) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{name: name, gen: gen, log: logger.With("stage", string(name))}
}

// Name returns the stage name.
func (b base) Name() models.StageName {
	return b.name
}

func boolPtr(v bool) *bool { return &v }

func stringPtr(v string) *string { return &v }
