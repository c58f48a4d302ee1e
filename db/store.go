// Package db persists which launches the consumer has already processed,
// keyed by signature and token address. It makes redeliveries idempotent
// across restarts.
package db

import (
	"encoding/binary"
	"io"
	"path/filepath"

	"github.com/cockroachdb/pebble"
	"github.com/launchfeed/launch-publisher/domain"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	processedLaunchKeyPrefix   = 0x00
	lastProcessedSlotKeyPrefix = 0x01
)

type LaunchStore struct {
	db     *pebble.DB
	logger *zap.SugaredLogger
}

func NewLaunchStore(storeDir string, logger *zap.SugaredLogger) (*LaunchStore, error) {
	db, err := pebble.Open(filepath.Join(storeDir, "launch-consumer-store"), &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "opening pebble db")
	}

	return &LaunchStore{db: db, logger: logger}, nil
}

func (ls *LaunchStore) MarkProcessed(launchKey string, slot uint64) error {
	var value []byte
	value = binary.BigEndian.AppendUint64(value, slot)

	err := ls.db.Set(processedKey(launchKey), value, pebble.Sync)
	if err != nil {
		return errors.Wrapf(err, "marking launch [%s] processed", launchKey)
	}

	return nil
}

// GetProcessedSlot returns the slot a launch was first processed at, or
// ErrStoreEntityNotFound when the launch has not been seen.
func (ls *LaunchStore) GetProcessedSlot(launchKey string) (slot uint64, err error) {
	value, closer, err := ls.db.Get(processedKey(launchKey))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, domain.ErrStoreEntityNotFound
	}
	if err != nil {
		return 0, errors.Wrapf(err, "getting value for launch [%s]", launchKey)
	}
	defer func(closer io.Closer) {
		err := closer.Close()
		if err != nil {
			ls.logger.Errorw("error closing value reader", "error", err)
		}
	}(closer)

	slot = binary.BigEndian.Uint64(value)

	return slot, nil
}

func (ls *LaunchStore) SetLastProcessedSlot(slot uint64) error {
	var value []byte
	value = binary.BigEndian.AppendUint64(value, slot)

	err := ls.db.Set([]byte{lastProcessedSlotKeyPrefix}, value, pebble.Sync)
	if err != nil {
		return errors.Wrapf(err, "setting last processed slot [%d]", slot)
	}

	return nil
}

func (ls *LaunchStore) GetLastProcessedSlot() (slot uint64, err error) {
	value, closer, err := ls.db.Get([]byte{lastProcessedSlotKeyPrefix})
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, domain.ErrStoreEntityNotFound
	}
	if err != nil {
		return 0, errors.Wrap(err, "getting last processed slot")
	}
	defer func(closer io.Closer) {
		err := closer.Close()
		if err != nil {
			ls.logger.Errorw("error closing value reader", "error", err)
		}
	}(closer)

	slot = binary.BigEndian.Uint64(value)

	return slot, nil
}

func (ls *LaunchStore) Close() error {
	return ls.db.Close()
}

func processedKey(launchKey string) []byte {
	key := []byte{processedLaunchKeyPrefix}
	return append(key, launchKey...)
}
