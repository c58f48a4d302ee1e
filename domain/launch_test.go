package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenLaunch_MarshalJSON(t *testing.T) {
	creator := "8Yx3MqyMHupmzpoFwGHjFqQPrbv3GQYgTqJKpQg6Vr2t"
	name := "PUMP"
	symbol := "PMP"

	launch := TokenLaunch{
		Launchpad:    LaunchpadPumpfun,
		TokenAddress: "F3pzqzSfYvPmUMbCdLBQCBqjYmxGwCqVzYnabZbWpump",
		Creator:      &creator,
		Signature:    "5K9znHhq2VbRfLrYvbSkChTgkAqk6EZiMEFWHlQmEYyj",
		Slot:         348656012,
		Timestamp:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Metadata: LaunchMetadata{
			Name:   &name,
			Symbol: &symbol,
		},
	}

	payload, err := json.Marshal(launch)
	require.NoError(t, err)

	expected := `{
		"launchpad": "pumpfun",
		"token_address": "F3pzqzSfYvPmUMbCdLBQCBqjYmxGwCqVzYnabZbWpump",
		"creator": "8Yx3MqyMHupmzpoFwGHjFqQPrbv3GQYgTqJKpQg6Vr2t",
		"signature": "5K9znHhq2VbRfLrYvbSkChTgkAqk6EZiMEFWHlQmEYyj",
		"slot": 348656012,
		"timestamp": "2025-06-01T12:00:00Z",
		"metadata": {"name": "PUMP", "symbol": "PMP"}
	}`
	assert.JSONEq(t, expected, string(payload))

	var decoded TokenLaunch
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, launch, decoded)
}

func TestTokenLaunch_MarshalJSON_OmitsAbsentOptionalFields(t *testing.T) {
	launch := TokenLaunch{
		Launchpad:    LaunchpadMeteora,
		TokenAddress: "9dcjWnLmBRrGHHdjZZpvnDtLSnfXSmLkCjvjSsHUmeteora",
		Signature:    "3vTygkF2PMcrhBDK2fDvXTfRMkXLEeB7vEdTehJi1q8w",
		Slot:         348656013,
		Timestamp:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	payload, err := json.Marshal(launch)
	require.NoError(t, err)

	expected := `{
		"launchpad": "meteora",
		"token_address": "9dcjWnLmBRrGHHdjZZpvnDtLSnfXSmLkCjvjSsHUmeteora",
		"signature": "3vTygkF2PMcrhBDK2fDvXTfRMkXLEeB7vEdTehJi1q8w",
		"slot": 348656013,
		"timestamp": "2025-06-01T12:00:00Z",
		"metadata": {}
	}`
	assert.JSONEq(t, expected, string(payload))
}
