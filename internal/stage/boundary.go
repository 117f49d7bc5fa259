package stage

import (
	"context"
	"errors"
	"fmt"

	"github.com/joescharf/codereview/internal/llm"
	"github.com/joescharf/codereview/internal/models"
)

var errNoGenerator = errors.New("no generation client configured")

// attempt runs one generation call inside a failure boundary. The response is
// decoded and handed to parse. Any failure (transport, cancellation, an
// undecodable response, a panic while parsing) returns fallback together with
// a failure record; nothing escapes to the caller.
func attempt[T any](ctx context.Context, b base, scope string, req llm.Request, parse func(llm.Decoded) T, fallback T) (result T, failure *models.StageFailure) {
	defer func() {
		if r := recover(); r != nil {
			result = fallback
			failure = b.fail(scope, models.FailurePanic, fmt.Errorf("panic: %v", r))
		}
	}()

	if b.gen == nil {
		return fallback, b.fail(scope, models.FailureGeneration, errNoGenerator)
	}
	if err := ctx.Err(); err != nil {
		return fallback, b.fail(scope, models.FailureGeneration, err)
	}

	text, err := b.gen.Generate(ctx, req)
	if err != nil {
		return fallback, b.fail(scope, models.FailureGeneration, fmt.Errorf("%s: %w", llm.KindOf(err), err))
	}

	decoded := llm.Decode(text)
	if decoded.Degraded() {
		return fallback, b.fail(scope, models.FailureDecode, fmt.Errorf("response is not a JSON object (%d bytes)", len(text)))
	}
	return parse(decoded), nil
}

// fail logs a recovered failure and returns its record.
func (b base) fail(scope string, kind models.FailureKind, err error) *models.StageFailure {
	b.log.Warn("stage call degraded", "scope", scope, "kind", string(kind), "error", err)
	return &models.StageFailure{
		Stage:   b.name,
		Scope:   scope,
		Kind:    kind,
		Message: err.Error(),
	}
}

func batchScope(i int) string {
	return fmt.Sprintf("batch %d", i+1)
}

func issueScope(evidence int) string {
	return fmt.Sprintf("issue %d", evidence)
}
