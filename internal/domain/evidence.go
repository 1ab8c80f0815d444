package domain

// EvidenceReason explains the outcome of the answer engine's gate.
type EvidenceReason string

// Gate outcomes.
const (
	ReasonGrounded       EvidenceReason = "grounded"
	ReasonEmpty          EvidenceReason = "empty"
	ReasonRefusalEcho    EvidenceReason = "refusal_echo"
	ReasonMissingQuote   EvidenceReason = "missing_quote"
	ReasonFormatMissing  EvidenceReason = "format_missing"
	ReasonServiceFailure EvidenceReason = "service_failure"
	ReasonShortQuestion  EvidenceReason = "short_question"
)

// EvidenceCheckResult is the per-request outcome of the evidence gate. When
// Passed is false, Text is either RefusalSentinel or a fixed failure message,
// never partial generated content.
type EvidenceCheckResult struct {
	Passed bool           `json:"passed"`
	Text   string         `json:"text"`
	Reason EvidenceReason `json:"reason"`
	// Reformatted is true when the returned text came from the reformat retry.
	Reformatted bool `json:"reformatted,omitempty"`
}

// Refusal builds a failed result carrying the refusal sentinel.
func Refusal(reason EvidenceReason) EvidenceCheckResult {
	return EvidenceCheckResult{Text: RefusalSentinel, Reason: reason}
}
