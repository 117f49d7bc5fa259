package review

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/joescharf/codereview/internal/llm"
	"github.com/joescharf/codereview/internal/models"
	"github.com/joescharf/codereview/internal/pipeline"
	"github.com/joescharf/codereview/internal/stage"
	"github.com/joescharf/codereview/internal/store"
)

// Config holds review pipeline configuration.
type Config struct {
	BatchSize     int
	Workers       int
	MaxLines      int
	Timeout       time.Duration
	Model         string
	RecordHistory bool
}

// DefaultConfig returns the default review config, reading from viper when available.
func DefaultConfig() Config {
	def := stage.DefaultConfig()

	batchSize := viper.GetInt("pipeline.batch_size")
	if batchSize <= 0 {
		batchSize = def.BatchSize
	}
	workers := viper.GetInt("pipeline.workers")
	if workers <= 0 {
		workers = def.Workers
	}
	maxLines := viper.GetInt("pipeline.max_lines")
	if maxLines <= 0 {
		maxLines = def.MaxLines
	}
	timeout := viper.GetDuration("pipeline.timeout")
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	recordHistory := true
	if viper.IsSet("history.enabled") {
		recordHistory = viper.GetBool("history.enabled")
	}

	return Config{
		BatchSize:     batchSize,
		Workers:       workers,
		MaxLines:      maxLines,
		Timeout:       timeout,
		Model:         viper.GetString("anthropic.model"),
		RecordHistory: recordHistory,
	}
}

// StageConfig returns the stage tuning part of the config.
func (c Config) StageConfig() stage.Config {
	return stage.Config{BatchSize: c.BatchSize, Workers: c.Workers, MaxLines: c.MaxLines}
}

// Service runs reviews and records them to history.
type Service struct {
	gen   llm.Generator
	store store.Store
	cfg   Config
	log   *slog.Logger
	orch  *pipeline.Orchestrator
}

// NewService wires the full stage set around gen. The store may be nil, in
// which case nothing is recorded.
func NewService(gen llm.Generator, s store.Store, cfg Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	orch, err := pipeline.New(stage.All(gen, cfg.StageConfig(), logger), pipeline.Options{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	return &Service{gen: gen, store: s, cfg: cfg, log: logger, orch: orch}, nil
}

// Available reports whether a generation client is configured.
func (s *Service) Available() bool {
	return s.gen != nil
}

// Review runs the pipeline for req under the configured timeout. Stage
// failures and timeouts only thin the result; the returned error is either
// ErrInvalidRequest or a fatal pipeline error.
func (s *Service) Review(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	runCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.orch.Run(runCtx, req.State())
	if err != nil {
		s.log.Error("review pipeline failed", "error", err)
		return nil, fmt.Errorf("review pipeline: %w", err)
	}
	elapsed := time.Since(start)

	resp := NewResponse(res)
	s.log.Info("review completed",
		"path", res.Path,
		"items", len(resp.ReviewItems),
		"failures", len(res.State.Failures),
		"cancelled", res.Cancelled,
		"duration", elapsed,
	)

	if s.store != nil && s.cfg.RecordHistory {
		rec := NewRecord(res, s.cfg.Model, elapsed)
		if err := s.store.SaveReview(context.WithoutCancel(ctx), rec); err != nil {
			s.log.Warn("record review history", "error", err)
		} else {
			resp.ID = rec.ID
		}
	}
	return resp, nil
}

// NewRecord summarizes a pipeline result for the history store.
func NewRecord(res *pipeline.Result, model string, elapsed time.Duration) *models.ReviewRecord {
	st := res.State
	rec := &models.ReviewRecord{
		Verdict:      models.VerdictFor(st.Flags),
		Overview:     st.OverviewText,
		Code:         st.Code,
		Requirements: st.Assignment.Requirements,
		Model:        model,
		FailureCount: len(st.Failures),
		Path:         res.Path,
		Items:        st.ReviewItems,
		Report:       st.FinalReport,
		Cancelled:    res.Cancelled,
		DurationMS:   elapsed.Milliseconds(),
	}
	for _, it := range st.ReviewItems {
		switch it.Kind {
		case models.ItemKindError:
			rec.ErrorCount++
		case models.ItemKindWarning:
			rec.WarningCount++
		}
	}
	if st.FinalReport != nil {
		rec.Fallback = st.FinalReport.Meta.Fallback
	}
	return rec
}
