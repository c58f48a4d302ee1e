package db

import (
	"os"
	"testing"

	"github.com/launchfeed/launch-publisher/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var logger = zap.NewNop().Sugar()

func TestLaunchStore_ProcessedLaunches(t *testing.T) {

	dbDir, err := os.MkdirTemp("", "pebble_test")
	require.NoError(t, err)
	defer os.RemoveAll(dbDir)

	store, err := NewLaunchStore(dbDir, logger)
	require.NoError(t, err)
	defer store.Close()

	testData := []struct {
		name      string
		launchKey string
		slot      uint64
	}{
		{
			name:      "TestProcessedLaunch_1",
			launchKey: "sig-1:mint-1",
			slot:      348656012,
		},
		{
			name:      "TestProcessedLaunch_2",
			launchKey: "sig-2:mint-2",
			slot:      348656013,
		},
		{
			name:      "TestProcessedLaunch_3",
			launchKey: "sig-2:mint-3",
			slot:      348656013,
		},
	}

	for _, testRun := range testData {
		t.Run(testRun.name, func(t *testing.T) {
			_, err := store.GetProcessedSlot(testRun.launchKey)
			require.ErrorIs(t, err, domain.ErrStoreEntityNotFound)

			err = store.MarkProcessed(testRun.launchKey, testRun.slot)
			require.NoError(t, err)

			got, err := store.GetProcessedSlot(testRun.launchKey)
			require.NoError(t, err)
			require.Equal(t, testRun.slot, got)
		})
	}

}

func TestLaunchStore_LastProcessedSlot(t *testing.T) {

	dbDir, err := os.MkdirTemp("", "pebble_test")
	require.NoError(t, err)
	defer os.RemoveAll(dbDir)

	store, err := NewLaunchStore(dbDir, logger)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.GetLastProcessedSlot()
	require.ErrorIs(t, err, domain.ErrStoreEntityNotFound)

	err = store.SetLastProcessedSlot(348656012)
	require.NoError(t, err)

	slot, err := store.GetLastProcessedSlot()
	require.NoError(t, err)
	require.Equal(t, uint64(348656012), slot)

	err = store.SetLastProcessedSlot(348656099)
	require.NoError(t, err)

	slot, err = store.GetLastProcessedSlot()
	require.NoError(t, err)
	require.Equal(t, uint64(348656099), slot)
}
