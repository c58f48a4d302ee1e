// Package consume turns broker deliveries into indexed token launch documents.
package consume

import (
	"context"

	"github.com/launchfeed/launch-publisher/domain"
	"github.com/launchfeed/launch-publisher/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type LaunchStore interface {
	GetProcessedSlot(launchKey string) (uint64, error)
	MarkProcessed(launchKey string, slot uint64) error
	SetLastProcessedSlot(slot uint64) error
}

type ElasticClient interface {
	IndexLaunch(ctx context.Context, documentID string, launch *domain.TokenLaunch) error
}

type LaunchProcessor struct {
	store         LaunchStore
	elasticClient ElasticClient
	logger        *zap.SugaredLogger
	metrics       *metrics.ConsumerMetrics
}

func NewLaunchProcessor(store LaunchStore, elasticClient ElasticClient, logger *zap.SugaredLogger, m *metrics.ConsumerMetrics) *LaunchProcessor {
	return &LaunchProcessor{
		store:         store,
		elasticClient: elasticClient,
		logger:        logger,
		metrics:       m,
	}
}

// HandleLaunch indexes one delivered token launch. Launches that were already
// processed are skipped, so broker redeliveries do not create duplicates. Any
// returned error leaves the launch unacknowledged for a later retry.
func (p *LaunchProcessor) HandleLaunch(launch *domain.TokenLaunch) error {
	key := launchKey(launch)

	slot, err := p.store.GetProcessedSlot(key)
	if err == nil {
		p.metrics.IncDuplicateLaunches()
		p.logger.Debugw("skipping already processed launch",
			"signature", launch.Signature, "tokenAddress", launch.TokenAddress, "processedSlot", slot)
		return nil
	}
	if !errors.Is(err, domain.ErrStoreEntityNotFound) {
		p.metrics.IncProcessingErrors()
		return errors.Wrapf(err, "reading processed state for launch [%s]", key)
	}

	err = p.elasticClient.IndexLaunch(context.Background(), key, launch)
	if err != nil {
		p.metrics.IncProcessingErrors()
		return errors.Wrapf(err, "indexing launch [%s]", key)
	}

	// mark after indexing so a failed index attempt is retried
	err = p.store.MarkProcessed(key, launch.Slot)
	if err != nil {
		p.metrics.IncProcessingErrors()
		return errors.Wrapf(err, "marking launch [%s] as processed", key)
	}

	// status only, a stale value is not worth a redelivery
	if err := p.store.SetLastProcessedSlot(launch.Slot); err != nil {
		p.logger.Warnw("error storing last processed slot", "slot", launch.Slot, "error", err)
	}

	p.metrics.IncIndexedLaunches()
	p.logger.Infow("Token launch indexed.",
		"launchpad", launch.Launchpad, "tokenAddress", launch.TokenAddress, "slot", launch.Slot)
	return nil
}

func launchKey(launch *domain.TokenLaunch) string {
	return launch.Signature + ":" + launch.TokenAddress
}
