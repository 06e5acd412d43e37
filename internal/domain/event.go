package domain

import (
	"time"

	"github.com/google/uuid"
)

// Outcome labels carried on audit events.
const (
	OutcomeResolved = "resolved"
	OutcomeRejected = "rejected"
)

// RepairEvent is the audit record published for each classified facility.
type RepairEvent struct {
	ID           string    `json:"id"`
	FacilityCode string    `json:"facility_code"`
	Outcome      string    `json:"outcome"`
	WardID       string    `json:"ward_id,omitempty"`
	Reasons      []string  `json:"reasons,omitempty"`
	Operator     string    `json:"operator"`
	ProcessedAt  time.Time `json:"processed_at"`
}

// NewRepairEvent builds the audit event for one classification outcome.
func NewRepairEvent(out Outcome, operator string) RepairEvent {
	ev := RepairEvent{
		ID:          uuid.NewString(),
		Operator:    operator,
		ProcessedAt: clock.Now(),
	}
	if out.Resolved() {
		ev.FacilityCode = out.Record.Code()
		ev.Outcome = OutcomeResolved
		ev.WardID = out.Ward.ID
	} else {
		ev.FacilityCode = out.Error.FacilityCode
		ev.Outcome = OutcomeRejected
		ev.Reasons = out.Error.Errors
	}
	return ev
}
