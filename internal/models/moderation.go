package models

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type ModerationAction string

const (
	ActionApprove ModerationAction = "approve"
	ActionFlag    ModerationAction = "flag"
	ActionRemove  ModerationAction = "remove"
)

// ModerationResult is the verdict returned for a piece of content
type ModerationResult struct {
	IsFlagged  bool             `json:"is_flagged"`
	Severity   Severity         `json:"severity"`
	Reason     string           `json:"reason"`
	Action     ModerationAction `json:"action"`
	Confidence float64          `json:"confidence"`
}
