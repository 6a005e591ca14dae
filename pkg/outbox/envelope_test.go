package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestNewEnvelopeDefaults(t *testing.T) {
	local := time.Date(2026, 5, 1, 10, 0, 0, 0, time.FixedZone("EST", -5*3600))
	env, err := newEnvelope(DomainEvent{
		EventType:  enums.EventOrderPlaced,
		Data:       map[string]string{"orderNumber": "ORD000001"},
		OccurredAt: local,
	})
	require.NoError(t, err)
	assert.Equal(t, EnvelopeVersion, env.Version)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, time.UTC, env.OccurredAt.Location())
	assert.True(t, env.OccurredAt.Equal(local))
	assert.JSONEq(t, `{"orderNumber":"ORD000001"}`, string(env.Data))
}

func TestDecodeEnvelopeRejectsUnknownShapes(t *testing.T) {
	row := func(env PayloadEnvelope) models.OutboxEvent {
		payload, err := json.Marshal(env)
		require.NoError(t, err)
		return models.OutboxEvent{ID: uuid.New(), Payload: payload}
	}

	_, err := DecodeEnvelope(row(PayloadEnvelope{Version: 1, Data: json.RawMessage(`{}`)}), nil)
	assert.ErrorContains(t, err, "no event id")

	_, err = DecodeEnvelope(row(PayloadEnvelope{Version: EnvelopeVersion + 1, EventID: "e", Data: json.RawMessage(`{}`)}), nil)
	assert.ErrorContains(t, err, "unsupported envelope version")

	var data map[string]int
	env, err := DecodeEnvelope(row(PayloadEnvelope{Version: 1, EventID: "e", Data: json.RawMessage(`{"n":3}`)}), &data)
	require.NoError(t, err)
	assert.Equal(t, "e", env.EventID)
	assert.Equal(t, 3, data["n"])
}
