package dispatch

import (
	"context"
	"time"

	"github.com/launchfeed/launch-publisher/domain"
	"github.com/launchfeed/launch-publisher/geyser"
	"github.com/launchfeed/launch-publisher/metrics"
	"go.uber.org/zap"
)

const (
	DefaultBatchSize = 10
	idleDelay        = 1 * time.Millisecond
)

type TransactionProcessor interface {
	ProcessTransaction(tx *domain.QueuedTransaction) []*domain.TokenLaunch
}

type Publisher interface {
	PublishTokenLaunch(ctx context.Context, launch *domain.TokenLaunch) error
}

// Dispatcher drains the transaction queue and forwards detected launches to
// the publisher. It runs on a single goroutine. Publish failures are logged
// and dropped so a broker outage cannot stall decoding.
type Dispatcher struct {
	queue     *geyser.TransactionQueue
	processor TransactionProcessor
	publisher Publisher
	batchSize int
	logger    *zap.SugaredLogger
	metrics   *metrics.ProcessingMetrics
}

func NewDispatcher(queue *geyser.TransactionQueue, processor TransactionProcessor, publisher Publisher,
	batchSize int, logger *zap.SugaredLogger, m *metrics.ProcessingMetrics) *Dispatcher {

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Dispatcher{
		queue:     queue,
		processor: processor,
		publisher: publisher,
		batchSize: batchSize,
		logger:    logger,
		metrics:   m,
	}
}

// Run drains the queue until the process exits.
func (d *Dispatcher) Run() {
	for {
		if !d.runBatch() {
			time.Sleep(idleDelay)
		}
	}
}

// runBatch processes one batch and reports whether there was work.
func (d *Dispatcher) runBatch() bool {
	batch := d.queue.PopBatch(d.batchSize)
	if len(batch) == 0 {
		return false
	}
	for _, tx := range batch {
		d.processTransaction(tx)
	}
	return true
}

func (d *Dispatcher) processTransaction(tx *domain.QueuedTransaction) {
	launches := d.processor.ProcessTransaction(tx)
	for _, launch := range launches {
		err := d.publisher.PublishTokenLaunch(context.Background(), launch)
		if err != nil {
			d.metrics.IncPublishErrors()
			d.logger.Errorw("error publishing token launch",
				"token", launch.TokenAddress, "signature", launch.Signature, "error", err)
			continue
		}
		d.metrics.IncPublishedLaunches()
	}
}
