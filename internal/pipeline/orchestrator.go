// Package pipeline runs the review stages in the order chosen by the router.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joescharf/codereview/internal/models"
	"github.com/joescharf/codereview/internal/stage"
)

// DefaultMaxSteps bounds a run; the longest route visits five stages.
const DefaultMaxSteps = 16

// Options configures an Orchestrator.
type Options struct {
	Logger   *slog.Logger
	MaxSteps int
}

// Step records one visited stage.
type Step struct {
	Stage    models.StageName      `json:"stage"`
	Duration time.Duration         `json:"duration"`
	Skipped  bool                  `json:"skipped,omitempty"`
	Failures []models.StageFailure `json:"failures,omitempty"`
}

// Result is the outcome of a run.
type Result struct {
	State     models.ReviewState `json:"state"`
	Path      []models.StageName `json:"path"`
	Steps     []Step             `json:"steps"`
	Cancelled bool               `json:"cancelled"`
}

// Orchestrator owns all state mutation: it hands each stage a snapshot and
// applies the returned delta before routing to the next stage.
type Orchestrator struct {
	stages   map[models.StageName]stage.Stage
	log      *slog.Logger
	maxSteps int
}

// New registers stages by name. Registering two stages under one name is an error.
func New(stages []stage.Stage, opts Options) (*Orchestrator, error) {
	o := &Orchestrator{
		stages:   make(map[models.StageName]stage.Stage, len(stages)),
		log:      opts.Logger,
		maxSteps: opts.MaxSteps,
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	if o.maxSteps <= 0 {
		o.maxSteps = DefaultMaxSteps
	}
	for _, s := range stages {
		if s == nil {
			return nil, fmt.Errorf("register stage: nil stage")
		}
		if _, dup := o.stages[s.Name()]; dup {
			return nil, fmt.Errorf("register stage: %q registered twice", s.Name())
		}
		o.stages[s.Name()] = s
	}
	return o, nil
}

// Run walks the pipeline from Entry to the end. Once ctx is done the
// remaining route is still walked, but only stages that can work offline run;
// the result is then marked Cancelled and no error is returned. Errors are
// reserved for routing dead ends and merge conflicts, both fatal; the result
// returned with them holds the state as of the last applied delta.
func (o *Orchestrator) Run(ctx context.Context, state models.ReviewState) (*Result, error) {
	res := &Result{State: state.Clone()}

	for current := Entry; current != models.StageEnd; {
		if len(res.Path) >= o.maxSteps {
			return res, &RoutingDeadEndError{From: current, Flags: res.State.Flags, Reason: fmt.Sprintf("step limit %d exceeded", o.maxSteps)}
		}
		s, ok := o.stages[current]
		if !ok {
			return res, &RoutingDeadEndError{From: current, Flags: res.State.Flags, Reason: "no stage registered"}
		}
		res.Path = append(res.Path, current)

		if !res.Cancelled && ctx.Err() != nil {
			res.Cancelled = true
			o.log.Warn("review cancelled, continuing offline", "at", string(current), "error", ctx.Err())
		}

		start := time.Now()
		delta, ran := o.runStage(ctx, s, res.State, res.Cancelled)
		step := Step{Stage: current, Duration: time.Since(start), Skipped: !ran}
		if ran {
			if delta.Stage != current {
				return res, &models.MergeConflictError{Stage: delta.Stage, Field: "stage", Reason: fmt.Sprintf("delta returned by stage %s", current)}
			}
			next, err := models.Apply(res.State, delta)
			if err != nil {
				return res, fmt.Errorf("apply %s delta: %w", current, err)
			}
			res.State = next
			step.Failures = delta.Failures
		}
		res.Steps = append(res.Steps, step)
		o.log.Debug("stage finished", "stage", string(current), "skipped", step.Skipped, "failures", len(step.Failures), "duration", step.Duration)

		next, err := Next(current, res.State.Flags)
		if err != nil {
			return res, err
		}
		current = next
	}

	if !res.Cancelled && ctx.Err() != nil {
		res.Cancelled = true
	}
	return res, nil
}

// runStage invokes s on a snapshot. A panicking stage contributes only a
// failure record. When offline is set, stages that need the generation
// service are skipped.
func (o *Orchestrator) runStage(ctx context.Context, s stage.Stage, state models.ReviewState, offline bool) (delta models.Delta, ran bool) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("stage panicked", "stage", string(s.Name()), "panic", r)
			delta = models.Delta{
				Stage: s.Name(),
				Failures: []models.StageFailure{{
					Stage:   s.Name(),
					Scope:   "stage",
					Kind:    models.FailurePanic,
					Message: fmt.Sprint(r),
				}},
			}
			ran = true
		}
	}()

	snapshot := state.Clone()
	if offline {
		off, ok := s.(stage.Offline)
		if !ok {
			return models.Delta{}, false
		}
		return off.AnalyzeOffline(snapshot), true
	}
	return s.Analyze(ctx, snapshot), true
}
