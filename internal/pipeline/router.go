package pipeline

import (
	"errors"
	"fmt"

	"github.com/joescharf/codereview/internal/models"
)

// Entry is the first stage of every review.
const Entry = models.StageIssueDetection

// ErrRoutingDeadEnd is matched by every *RoutingDeadEndError.
var ErrRoutingDeadEnd = errors.New("routing dead end")

// RoutingDeadEndError reports a state the pipeline cannot leave. It always
// indicates a wiring defect and fails the whole review.
type RoutingDeadEndError struct {
	From   models.StageName
	Flags  models.RoutingFlags
	Reason string
}

func (e *RoutingDeadEndError) Error() string {
	return fmt.Sprintf("routing dead end at %q (has_errors=%t, needs_improvement=%t): %s",
		e.From, e.Flags.HasErrors, e.Flags.NeedsImprovement, e.Reason)
}

func (e *RoutingDeadEndError) Is(target error) bool {
	return target == ErrRoutingDeadEnd
}

// Next returns the stage that follows from. Flags are only consulted after
// issue detection; every other stage has a single successor. Next is pure.
func Next(from models.StageName, flags models.RoutingFlags) (models.StageName, error) {
	switch from {
	case models.StageIssueDetection:
		switch {
		case flags.HasErrors:
			return models.StageConceptMapping, nil
		case flags.NeedsImprovement:
			return models.StageQualityAnalysis, nil
		default:
			return models.StageAdvancedSuggestion, nil
		}
	case models.StageConceptMapping:
		return models.StageHintGeneration, nil
	case models.StageHintGeneration, models.StageQualityAnalysis, models.StageAdvancedSuggestion:
		return models.StageAggregation, nil
	case models.StageAggregation:
		return models.StageFinalValidation, nil
	case models.StageFinalValidation:
		return models.StageEnd, nil
	}
	return "", &RoutingDeadEndError{From: from, Flags: flags, Reason: "no transition defined"}
}

// Route returns the full path from Entry to the final stage for flags fixed
// at their post-detection values.
func Route(flags models.RoutingFlags) ([]models.StageName, error) {
	var path []models.StageName
	for cur := Entry; cur != models.StageEnd; {
		path = append(path, cur)
		next, err := Next(cur, flags)
		if err != nil {
			return path, err
		}
		cur = next
	}
	return path, nil
}
