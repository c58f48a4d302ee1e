// Package ws streams transaction updates over a websocket JSON-RPC
// subscription. It implements the stream connection consumed by the
// geyser client; reconnecting is left to the caller.
package ws

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/launchfeed/launch-publisher/config"
	"github.com/launchfeed/launch-publisher/domain"
	"github.com/launchfeed/launch-publisher/geyser"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

type Client struct {
	conn   *websocket.Conn
	logger *zap.SugaredLogger

	nextRequestID uint64
	// request id -> update kind, so rejections and confirmations can be attributed
	pendingKinds map[uint64]string
}

// Dial connects to the given websocket endpoint. A non-empty token is sent
// as X-Token header during the handshake.
func Dial(endpoint, token string, logger *zap.SugaredLogger) (*Client, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	var header http.Header
	if token != "" {
		header = http.Header{"X-Token": []string{token}}
	}

	conn, _, err := dialer.Dial(endpoint, header)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing websocket endpoint [%s]", endpoint)
	}

	return &Client{
		conn:         conn,
		logger:       logger,
		pendingKinds: make(map[uint64]string),
	}, nil
}

// Subscribe sends one subscription request per configured filter. Blocks meta
// and entry filters have no websocket equivalent and are ignored.
func (c *Client) Subscribe(request *geyser.SubscribeRequest) error {
	commitment := request.Commitment

	for name, filter := range request.Transactions {
		err := c.sendSubscribe("transactionSubscribe", transactionSubscribeParams(filter, commitment), "transaction")
		if err != nil {
			return errors.Wrapf(err, "subscribing to transaction filter [%s]", name)
		}
	}

	if len(request.Slots) > 0 {
		if err := c.sendSubscribe("slotSubscribe", nil, "slot"); err != nil {
			return errors.Wrap(err, "subscribing to slots")
		}
	}

	for name, filter := range request.Accounts {
		for _, account := range filter.Account {
			params := []any{account, map[string]any{"commitment": commitment, "encoding": "base64"}}
			if err := c.sendSubscribe("accountSubscribe", params, "account"); err != nil {
				return errors.Wrapf(err, "subscribing to account [%s] of filter [%s]", account, name)
			}
		}
		for _, owner := range filter.Owner {
			params := []any{owner, map[string]any{"commitment": commitment, "encoding": "base64"}}
			if err := c.sendSubscribe("programSubscribe", params, "account"); err != nil {
				return errors.Wrapf(err, "subscribing to program [%s] of filter [%s]", owner, name)
			}
		}
	}

	for name, filter := range request.Blocks {
		for _, params := range blockSubscribeParams(filter, commitment) {
			if err := c.sendSubscribe("blockSubscribe", params, "block"); err != nil {
				return errors.Wrapf(err, "subscribing to block filter [%s]", name)
			}
		}
	}

	if len(request.BlocksMeta) > 0 || len(request.Entries) > 0 {
		c.logger.Debugw("ignoring filter categories without websocket support",
			"blocksMeta", len(request.BlocksMeta), "entries", len(request.Entries))
	}

	return nil
}

// Recv blocks until the next update arrives. Subscription confirmations and
// unknown messages are skipped. A clean close from the server ends the
// stream with io.EOF.
func (c *Client) Recv() (*geyser.Update, error) {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, errors.Wrap(err, "reading stream message")
		}

		if update := c.handleMessage(message); update != nil {
			return update, nil
		}
	}
}

func (c *Client) Close() error {
	deadline := time.Now().Add(writeTimeout)
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, message, deadline)
	return c.conn.Close()
}

func (c *Client) sendSubscribe(method string, params []any, kind string) error {
	c.nextRequestID++
	request := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextRequestID,
		Method:  method,
		Params:  params,
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return errors.Wrap(err, "setting write deadline")
	}
	if err := c.conn.WriteJSON(request); err != nil {
		return errors.Wrapf(err, "writing [%s] request", method)
	}

	c.pendingKinds[request.ID] = kind
	return nil
}

func transactionSubscribeParams(filter config.TransactionFilter, commitment string) []any {
	criteria := map[string]any{}
	if filter.Vote != nil {
		criteria["vote"] = *filter.Vote
	}
	if filter.Failed != nil {
		criteria["failed"] = *filter.Failed
	}
	if filter.Signature != nil {
		criteria["signature"] = *filter.Signature
	}
	if len(filter.AccountInclude) > 0 {
		criteria["accountInclude"] = filter.AccountInclude
	}
	if len(filter.AccountExclude) > 0 {
		criteria["accountExclude"] = filter.AccountExclude
	}
	if len(filter.AccountRequired) > 0 {
		criteria["accountRequired"] = filter.AccountRequired
	}

	options := map[string]any{
		"commitment":                     commitment,
		"encoding":                       "json",
		"transactionDetails":             "full",
		"maxSupportedTransactionVersion": 0,
	}
	return []any{criteria, options}
}

func blockSubscribeParams(filter config.BlockFilter, commitment string) [][]any {
	options := map[string]any{
		"commitment":                     commitment,
		"encoding":                       "json",
		"transactionDetails":             "full",
		"maxSupportedTransactionVersion": 0,
	}

	// block subscriptions mention a single account each
	if len(filter.AccountInclude) == 0 {
		return [][]any{{"all", options}}
	}
	requests := make([][]any, 0, len(filter.AccountInclude))
	for _, account := range filter.AccountInclude {
		requests = append(requests, []any{map[string]any{"mentionsAccountOrProgram": account}, options})
	}
	return requests
}

// handleMessage maps one raw message onto an update. It returns nil for
// messages the pipeline does not act on.
func (c *Client) handleMessage(message []byte) *geyser.Update {
	var msg rpcMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warnw("skipping malformed stream message", "error", err)
		return nil
	}

	if msg.Error != nil {
		kind := c.pendingKinds[msg.ID]
		delete(c.pendingKinds, msg.ID)
		c.logger.Warnw("subscription request rejected",
			"kind", kind, "code", msg.Error.Code, "message", msg.Error.Message)
		return nil
	}

	if msg.Method == "" {
		c.confirmSubscription(&msg)
		return nil
	}
	if msg.Params == nil {
		return nil
	}

	switch msg.Method {
	case "transactionNotification":
		return c.transactionUpdate(msg.Params.Result)
	case "slotNotification":
		var notification slotNotification
		if err := json.Unmarshal(msg.Params.Result, &notification); err != nil {
			return nil
		}
		return &geyser.Update{Kind: "slot", Slot: notification.Slot}
	case "accountNotification", "programNotification":
		return contextUpdate("account", msg.Params.Result)
	case "blockNotification":
		return contextUpdate("block", msg.Params.Result)
	default:
		return nil
	}
}

func (c *Client) confirmSubscription(msg *rpcMessage) {
	kind, ok := c.pendingKinds[msg.ID]
	if !ok {
		return
	}
	delete(c.pendingKinds, msg.ID)

	var subscriptionID int64
	if err := json.Unmarshal(msg.Result, &subscriptionID); err != nil {
		c.logger.Warnw("unexpected subscription response", "kind", kind, "error", err)
		return
	}
	c.logger.Debugw("subscription confirmed", "kind", kind, "subscriptionId", subscriptionID)
}

func (c *Client) transactionUpdate(result json.RawMessage) *geyser.Update {
	var notification transactionNotification
	if err := json.Unmarshal(result, &notification); err != nil {
		c.logger.Warnw("skipping malformed transaction notification", "error", err)
		return nil
	}

	payload := notification.Transaction.Transaction
	accounts := payload.Message.AccountKeys
	if meta := notification.Transaction.Meta; meta != nil && meta.LoadedAddresses != nil {
		// loaded table addresses follow the static keys, writable first
		accounts = append(accounts, meta.LoadedAddresses.Writable...)
		accounts = append(accounts, meta.LoadedAddresses.Readonly...)
	}

	update := &geyser.TransactionUpdate{
		Slot:       notification.Slot,
		Signatures: payload.Signatures,
		Accounts:   accounts,
	}
	if len(update.Signatures) == 0 && notification.Signature != "" {
		update.Signatures = []string{notification.Signature}
	}

	for _, instruction := range payload.Message.Instructions {
		if instruction.ProgramIDIndex < 0 || instruction.ProgramIDIndex >= len(accounts) {
			continue
		}
		indices, ok := accountIndices(instruction.Accounts)
		if !ok {
			continue
		}
		data, err := base58.Decode(instruction.Data)
		if err != nil {
			// undecodable data cannot carry a known instruction layout
			data = nil
		}
		update.Instructions = append(update.Instructions, domain.TransactionInstruction{
			ProgramID:      accounts[instruction.ProgramIDIndex],
			AccountIndices: indices,
			Data:           data,
		})
	}

	return &geyser.Update{Kind: "transaction", Slot: notification.Slot, Transaction: update}
}

func accountIndices(indices []int) ([]uint16, bool) {
	converted := make([]uint16, 0, len(indices))
	for _, index := range indices {
		if index < 0 || index > math.MaxUint16 {
			return nil, false
		}
		converted = append(converted, uint16(index))
	}
	return converted, true
}

func contextUpdate(kind string, result json.RawMessage) *geyser.Update {
	var notification contextNotification
	if err := json.Unmarshal(result, &notification); err != nil {
		return nil
	}
	return &geyser.Update{Kind: kind, Slot: notification.Context.Slot}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcMessage struct {
	ID     uint64              `json:"id"`
	Method string              `json:"method"`
	Result json.RawMessage     `json:"result"`
	Error  *rpcError           `json:"error"`
	Params *notificationParams `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type notificationParams struct {
	Subscription int64           `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

type transactionNotification struct {
	Slot        uint64 `json:"slot"`
	Signature   string `json:"signature"`
	Transaction struct {
		Transaction transactionPayload `json:"transaction"`
		Meta        *transactionMeta   `json:"meta"`
	} `json:"transaction"`
}

type transactionPayload struct {
	Signatures []string `json:"signatures"`
	Message    struct {
		AccountKeys  []string         `json:"accountKeys"`
		Instructions []rawInstruction `json:"instructions"`
	} `json:"message"`
}

type rawInstruction struct {
	ProgramIDIndex int    `json:"programIdIndex"`
	Accounts       []int  `json:"accounts"`
	Data           string `json:"data"`
}

type transactionMeta struct {
	LoadedAddresses *loadedAddresses `json:"loadedAddresses"`
}

type loadedAddresses struct {
	Writable []string `json:"writable"`
	Readonly []string `json:"readonly"`
}

type slotNotification struct {
	Slot uint64 `json:"slot"`
}

type contextNotification struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
}
