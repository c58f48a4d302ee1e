package geyser

import (
	"sync"

	"github.com/launchfeed/launch-publisher/domain"
	"github.com/launchfeed/launch-publisher/metrics"
	"go.uber.org/zap"
)

const DefaultQueueCapacity = 5000

// TransactionQueue is a bounded FIFO buffer between the stream reader and
// the decoder loop. When full, the oldest entries are evicted to make room
// so that ingestion never blocks.
type TransactionQueue struct {
	mu      sync.Mutex
	entries []*domain.QueuedTransaction
	maxSize int
	logger  *zap.SugaredLogger
	metrics *metrics.ProcessingMetrics
}

func NewTransactionQueue(maxSize int, logger *zap.SugaredLogger, m *metrics.ProcessingMetrics) *TransactionQueue {
	if maxSize <= 0 {
		maxSize = DefaultQueueCapacity
	}
	return &TransactionQueue{
		maxSize: maxSize,
		logger:  logger,
		metrics: m,
	}
}

func (q *TransactionQueue) Push(tx *domain.QueuedTransaction) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.entries) >= q.maxSize {
		dropped := q.entries[0]
		q.entries[0] = nil
		q.entries = q.entries[1:]
		q.metrics.IncEvictedTransactions()
		q.logger.Warnw("queue full, dropping oldest transaction",
			"signature", dropped.Signature, "slot", dropped.Slot)
	}

	q.entries = append(q.entries, tx)
	q.metrics.SetQueueDepth(len(q.entries))
}

func (q *TransactionQueue) Pop() *domain.QueuedTransaction {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return nil
	}
	tx := q.entries[0]
	q.entries[0] = nil
	q.entries = q.entries[1:]
	q.metrics.SetQueueDepth(len(q.entries))
	return tx
}

// PopBatch removes and returns up to max transactions in FIFO order. The
// returned slice is nil when the queue is empty.
func (q *TransactionQueue) PopBatch(max int) []*domain.QueuedTransaction {
	q.mu.Lock()
	defer q.mu.Unlock()

	if max <= 0 || len(q.entries) == 0 {
		return nil
	}

	count := min(max, len(q.entries))
	batch := make([]*domain.QueuedTransaction, count)
	copy(batch, q.entries[:count])
	for i := 0; i < count; i++ {
		q.entries[i] = nil
	}
	q.entries = q.entries[count:]
	q.metrics.SetQueueDepth(len(q.entries))
	return batch
}

func (q *TransactionQueue) DrainAll() []*domain.QueuedTransaction {
	q.mu.Lock()
	defer q.mu.Unlock()

	drained := q.entries
	q.entries = nil
	q.metrics.SetQueueDepth(0)
	return drained
}

func (q *TransactionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *TransactionQueue) IsEmpty() bool {
	return q.Len() == 0
}
