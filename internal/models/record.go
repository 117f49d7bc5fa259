package models

import "time"

// Verdict is the headline outcome of a stored review.
type Verdict string

const (
	VerdictErrors      Verdict = "errors"
	VerdictImprovement Verdict = "improvement"
	VerdictCorrect     Verdict = "correct"
)

// VerdictFor maps routing flags to a verdict with the router's precedence.
func VerdictFor(flags RoutingFlags) Verdict {
	switch {
	case flags.HasErrors:
		return VerdictErrors
	case flags.NeedsImprovement:
		return VerdictImprovement
	default:
		return VerdictCorrect
	}
}

// ReviewRecord is one completed review as kept in the history store.
type ReviewRecord struct {
	ID           string       `json:"id"`
	Verdict      Verdict      `json:"verdict"`
	Overview     string       `json:"overview"`
	Code         string       `json:"code"`
	Requirements string       `json:"requirements"`
	Model        string       `json:"model"`
	ErrorCount   int          `json:"error_count"`
	WarningCount int          `json:"warning_count"`
	FailureCount int          `json:"failure_count"`
	Path         []StageName  `json:"path"`
	Items        []ReviewItem `json:"review_items"`
	Report       *FinalReport `json:"final_report,omitempty"`
	Fallback     bool         `json:"fallback"`
	Cancelled    bool         `json:"cancelled"`
	DurationMS   int64        `json:"duration_ms"`
	CreatedAt    time.Time    `json:"created_at"`
}
