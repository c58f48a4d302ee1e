package geyser

import (
	"io"
	"time"

	"github.com/launchfeed/launch-publisher/config"
	"github.com/launchfeed/launch-publisher/domain"
	"github.com/launchfeed/launch-publisher/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	reconnectDelay = 5 * time.Second
	streamEndDelay = 1 * time.Second
)

// Client consumes the remote transaction stream and feeds matching
// transactions into the queue. It owns the reconnect loop; downstream
// decoding happens on a separate goroutine.
type Client struct {
	endpoint string
	token    string
	filters  *config.Config
	queue    *TransactionQueue
	dial     DialFunc
	logger   *zap.SugaredLogger
	metrics  *metrics.ProcessingMetrics
}

func NewClient(endpoint, token string, filters *config.Config, queue *TransactionQueue,
	dial DialFunc, logger *zap.SugaredLogger, m *metrics.ProcessingMetrics) *Client {

	return &Client{
		endpoint: endpoint,
		token:    token,
		filters:  filters,
		queue:    queue,
		dial:     dial,
		logger:   logger,
		metrics:  m,
	}
}

// Run connects and consumes the stream until the process exits. Connection
// or stream errors back off before reconnecting; a clean stream end
// reconnects after a shorter delay.
func (c *Client) Run() {
	for {
		err := c.consumeStream()
		if err != nil {
			c.logger.Errorw("stream failed, reconnecting", "error", err, "delay", reconnectDelay)
			time.Sleep(reconnectDelay)
			continue
		}
		c.logger.Infow("stream ended, reconnecting", "delay", streamEndDelay)
		time.Sleep(streamEndDelay)
	}
}

func (c *Client) consumeStream() error {
	conn, err := c.dial(c.endpoint, c.token)
	if err != nil {
		return errors.Wrapf(err, "connecting to [%s]", c.endpoint)
	}
	defer conn.Close()

	err = conn.Subscribe(BuildSubscribeRequest(c.filters))
	if err != nil {
		return errors.Wrap(err, "subscribing")
	}
	c.logger.Infow("connected to transaction stream", "endpoint", c.endpoint)

	for {
		update, err := conn.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "receiving update")
		}
		c.processUpdate(update)
	}
}

func (c *Client) processUpdate(update *Update) {
	if update.Slot > 0 {
		c.metrics.SetSourceSlot(update.Slot)
	}

	tx := update.Transaction
	if tx == nil {
		return
	}
	c.metrics.IncReceivedUpdates()

	if len(tx.Signatures) == 0 {
		c.logger.Debugw("skipping transaction without signature", "slot", tx.Slot)
		return
	}

	if !c.shouldQueue(tx.Accounts) {
		return
	}

	c.queue.Push(&domain.QueuedTransaction{
		Signature:    tx.Signatures[0],
		Slot:         tx.Slot,
		ReceivedTime: time.Now().UTC(),
		Accounts:     tx.Accounts,
		Instructions: tx.Instructions,
	})
	c.metrics.IncQueuedTransactions()
}

// shouldQueue decides if a transaction is worth decoding: any account hit in
// an account_include list or all accounts of a non-empty account_required
// list present. Without transaction filters nothing is queued.
func (c *Client) shouldQueue(accounts []string) bool {
	if len(c.filters.Transactions) == 0 {
		return false
	}

	accountSet := make(map[string]struct{}, len(accounts))
	for _, account := range accounts {
		accountSet[account] = struct{}{}
	}

	for _, filter := range c.filters.Transactions {
		for _, include := range filter.AccountInclude {
			if _, ok := accountSet[include]; ok {
				return true
			}
		}

		if len(filter.AccountRequired) > 0 {
			foundAll := true
			for _, required := range filter.AccountRequired {
				if _, ok := accountSet[required]; !ok {
					foundAll = false
					break
				}
			}
			if foundAll {
				return true
			}
		}
	}
	return false
}
