package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRepairEvent_Resolved(t *testing.T) {
	frozen := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	t.Cleanup(func() { SetClock(nil) })

	out := Outcome{
		Record: Record{"code": "19002", "ward": map[string]any{"id": "7"}},
		Ward:   Ward{ID: "7", Name: "Kilimani"},
	}

	ev := NewRepairEvent(out, "jdoe")

	_, err := uuid.Parse(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "19002", ev.FacilityCode)
	assert.Equal(t, OutcomeResolved, ev.Outcome)
	assert.Equal(t, "7", ev.WardID)
	assert.Empty(t, ev.Reasons)
	assert.Equal(t, "jdoe", ev.Operator)
	assert.Equal(t, frozen, ev.ProcessedAt)
}

func TestNewRepairEvent_Rejected(t *testing.T) {
	out := Outcome{Error: &ErrorRecord{
		FacilityCode: "19003",
		FacilityName: "Beta Dispensary",
		Errors:       []string{ReasonLatitudeMissing, ReasonLongitudeMissing},
	}}

	ev := NewRepairEvent(out, "jdoe")

	assert.Equal(t, "19003", ev.FacilityCode)
	assert.Equal(t, OutcomeRejected, ev.Outcome)
	assert.Empty(t, ev.WardID)
	assert.Equal(t, []string{ReasonLatitudeMissing, ReasonLongitudeMissing}, ev.Reasons)
}

func TestNewRepairEvent_DistinctIDs(t *testing.T) {
	out := Outcome{Record: Record{"code": "A"}, Ward: Ward{ID: "1"}}

	first := NewRepairEvent(out, "jdoe")
	second := NewRepairEvent(out, "jdoe")

	assert.NotEqual(t, first.ID, second.ID)
}
