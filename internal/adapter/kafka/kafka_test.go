package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umojahealth/facility-data-repair/internal/config"
	"github.com/umojahealth/facility-data-repair/internal/domain"
)

func TestSerializeToMessage_Resolved(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	event := domain.RepairEvent{
		ID:           "3f1a7a0e-8a51-4f0e-9a3c-2b6f6f1d0c11",
		FacilityCode: "19002",
		Outcome:      domain.OutcomeResolved,
		WardID:       "7",
		Operator:     "jdoe",
		ProcessedAt:  now,
	}

	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("19002"), msg.Key)
	assert.Contains(t, string(msg.Value), `"outcome":"resolved"`)
	assert.Contains(t, string(msg.Value), `"ward_id":"7"`)
	assert.NotContains(t, string(msg.Value), `"reasons"`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "outcome", msg.Headers[0].Key)
	assert.Equal(t, []byte("resolved"), msg.Headers[0].Value)
	assert.Equal(t, "processed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeToMessage_Rejected(t *testing.T) {
	event := domain.RepairEvent{
		ID:           "3f1a7a0e-8a51-4f0e-9a3c-2b6f6f1d0c12",
		FacilityCode: "19003",
		Outcome:      domain.OutcomeRejected,
		Reasons:      []string{domain.ReasonBadGeocodes},
		Operator:     "jdoe",
		ProcessedAt:  time.Now(),
	}

	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("19003"), msg.Key)
	assert.Contains(t, string(msg.Value), `"reasons":["Wrongly formatted geocodes"]`)
	assert.NotContains(t, string(msg.Value), `"ward_id"`)
}

func TestPublishBatch_EmptyIsNoOp(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "facility-repair-events"}
	w := NewWriter(cfg, nil)
	t.Cleanup(func() { _ = w.Close() })

	// No broker connection is attempted for an empty batch.
	require.NoError(t, w.PublishBatch(context.Background(), nil))
}
