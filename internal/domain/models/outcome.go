package models

import "github.com/shopspring/decimal"

// OutcomeStatus enumerates the distinct shapes a commit attempt can produce.
// Callers are expected to render each one differently.
type OutcomeStatus string

const (
	OutcomeCommitted OutcomeStatus = "committed"
	OutcomeRejected  OutcomeStatus = "rejected"
	OutcomeThrottled OutcomeStatus = "throttled"
	OutcomeFailed    OutcomeStatus = "failed"
)

// TankAvailability pairs a tank with its derived available balance.
type TankAvailability struct {
	Tank      string          `json:"tank"`
	Available decimal.Decimal `json:"available"`
}

// ValidationResult is the answer to "would this withdrawal be authorized
// right now". Deficit and Suggestion are only meaningful when Authorized is
// false; Suggestion is nil when no other tank can cover the request.
type ValidationResult struct {
	Authorized bool              `json:"authorized"`
	Available  decimal.Decimal   `json:"available"`
	Deficit    decimal.Decimal   `json:"deficit"`
	Suggestion *TankAvailability `json:"suggestion,omitempty"`
}

// CommitOutcome reports what happened to a commit attempt. Exactly one status
// applies; the remaining fields are populated according to it:
//
//   - committed: ID of the stored transfer record.
//   - rejected: Deficit and optional Suggestion from validation.
//   - throttled: RemainingSeconds of the active cooldown.
//   - failed: Reason, plus LedgerWritten when the ledger entry persisted but
//     the transfer record did not.
type CommitOutcome struct {
	Status           OutcomeStatus     `json:"status"`
	ID               string            `json:"id,omitempty"`
	Deficit          decimal.Decimal   `json:"deficit,omitempty"`
	Suggestion       *TankAvailability `json:"suggestion,omitempty"`
	RemainingSeconds int               `json:"remaining_seconds,omitempty"`
	Reason           string            `json:"reason,omitempty"`
	LedgerWritten    bool              `json:"ledger_written,omitempty"`
}
