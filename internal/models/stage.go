package models

// StageName identifies a pipeline stage.
type StageName string

const (
	StageIssueDetection     StageName = "issue-detection"
	StageConceptMapping     StageName = "concept-mapping"
	StageHintGeneration     StageName = "hint-generation"
	StageQualityAnalysis    StageName = "quality-analysis"
	StageAdvancedSuggestion StageName = "advanced-suggestion"
	StageAggregation        StageName = "aggregation"
	StageFinalValidation    StageName = "final-validation"

	// StageEnd is the terminal marker returned by the router after final validation.
	StageEnd StageName = "end"
)

// FailureKind classifies a failure that a stage recovered from.
type FailureKind string

const (
	FailureGeneration FailureKind = "generation"
	FailureDecode     FailureKind = "decode"
	FailurePanic      FailureKind = "panic"
)

// StageFailure records one degraded call inside a stage. Scope names the unit
// that degraded, e.g. "batch 2" or "issue 7".
type StageFailure struct {
	Stage   StageName   `json:"stage"`
	Scope   string      `json:"scope"`
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}
