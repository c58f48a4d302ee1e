package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ProcessingMetrics struct {
	sourceSlotGauge           prometheus.Gauge
	receivedUpdateCount       prometheus.Counter
	queuedTransactionCount    prometheus.Counter
	evictedTransactionCount   prometheus.Counter
	queueDepthGauge           prometheus.Gauge
	processedTransactionCount prometheus.Counter
	parserErrorCount          prometheus.Counter
	detectedLaunchCount       prometheus.Counter
	publishedLaunchCount      prometheus.Counter
	publishErrorCount         prometheus.Counter
}

func NewProcessingMetrics(namespace string) *ProcessingMetrics {
	m := ProcessingMetrics{
		// metrics for stream ingestion and queueing
		sourceSlotGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_source_slot", namespace),
			Help: "The latest slot seen on the transaction stream",
		}),
		receivedUpdateCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_received_update_count", namespace),
			Help: "The total number of transaction updates received",
		}),
		queuedTransactionCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_queued_transaction_count", namespace),
			Help: "The total number of transactions accepted into the queue",
		}),
		evictedTransactionCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_evicted_transaction_count", namespace),
			Help: "The total number of transactions evicted from the full queue",
		}),
		queueDepthGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_queue_depth", namespace),
			Help: "The current number of queued transactions",
		}),
		// metrics for decoding and publishing
		processedTransactionCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_processed_transaction_count", namespace),
			Help: "The total number of transactions run through the decoders",
		}),
		parserErrorCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_parser_error_count", namespace),
			Help: "The total number of decoder errors",
		}),
		detectedLaunchCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_detected_launch_count", namespace),
			Help: "The total number of detected token launches",
		}),
		publishedLaunchCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_published_launch_count", namespace),
			Help: "The total number of token launches published to the broker",
		}),
		publishErrorCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_publish_error_count", namespace),
			Help: "The total number of failed publish attempts",
		}),
	}
	return &m
}

func (metrics *ProcessingMetrics) SetSourceSlot(slot uint64) {
	metrics.sourceSlotGauge.Set(float64(slot))
}

func (metrics *ProcessingMetrics) IncReceivedUpdates() {
	metrics.receivedUpdateCount.Inc()
}

func (metrics *ProcessingMetrics) IncQueuedTransactions() {
	metrics.queuedTransactionCount.Inc()
}

func (metrics *ProcessingMetrics) IncEvictedTransactions() {
	metrics.evictedTransactionCount.Inc()
}

func (metrics *ProcessingMetrics) SetQueueDepth(depth int) {
	metrics.queueDepthGauge.Set(float64(depth))
}

func (metrics *ProcessingMetrics) IncProcessedTransactions() {
	metrics.processedTransactionCount.Inc()
}

func (metrics *ProcessingMetrics) IncParserErrors() {
	metrics.parserErrorCount.Inc()
}

func (metrics *ProcessingMetrics) IncDetectedLaunches() {
	metrics.detectedLaunchCount.Inc()
}

func (metrics *ProcessingMetrics) IncPublishedLaunches() {
	metrics.publishedLaunchCount.Inc()
}

func (metrics *ProcessingMetrics) IncPublishErrors() {
	metrics.publishErrorCount.Inc()
}

type ConsumerMetrics struct {
	consumedDeliveryCount  prometheus.Counter
	malformedDeliveryCount prometheus.Counter
	duplicateLaunchCount   prometheus.Counter
	indexedLaunchCount     prometheus.Counter
	processingErrorCount   prometheus.Counter
}

func NewConsumerMetrics(namespace string) *ConsumerMetrics {
	m := ConsumerMetrics{
		consumedDeliveryCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_consumed_delivery_count", namespace),
			Help: "The total number of deliveries received from the broker",
		}),
		malformedDeliveryCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_malformed_delivery_count", namespace),
			Help: "The total number of deliveries dropped because of invalid payloads",
		}),
		duplicateLaunchCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_duplicate_launch_count", namespace),
			Help: "The total number of launches skipped as already processed",
		}),
		indexedLaunchCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_indexed_launch_count", namespace),
			Help: "The total number of launches indexed downstream",
		}),
		processingErrorCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_processing_error_count", namespace),
			Help: "The total number of launch processing errors",
		}),
	}
	return &m
}

func (metrics *ConsumerMetrics) IncConsumedDeliveries() {
	metrics.consumedDeliveryCount.Inc()
}

func (metrics *ConsumerMetrics) IncMalformedDeliveries() {
	metrics.malformedDeliveryCount.Inc()
}

func (metrics *ConsumerMetrics) IncDuplicateLaunches() {
	metrics.duplicateLaunchCount.Inc()
}

func (metrics *ConsumerMetrics) IncIndexedLaunches() {
	metrics.indexedLaunchCount.Inc()
}

func (metrics *ConsumerMetrics) IncProcessingErrors() {
	metrics.processingErrorCount.Inc()
}
