package geyser

import (
	"io"
	"testing"

	"github.com/launchfeed/launch-publisher/config"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pumpfunProgram = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

type FakeStreamConn struct {
	subscribed *SubscribeRequest
	updates    []*Update
	recvErr    error
	closed     bool
}

func (f *FakeStreamConn) Subscribe(request *SubscribeRequest) error {
	f.subscribed = request
	return nil
}

func (f *FakeStreamConn) Recv() (*Update, error) {
	if len(f.updates) == 0 {
		if f.recvErr != nil {
			return nil, f.recvErr
		}
		return nil, io.EOF
	}
	update := f.updates[0]
	f.updates = f.updates[1:]
	return update, nil
}

func (f *FakeStreamConn) Close() error {
	f.closed = true
	return nil
}

func launchFilterConfig() *config.Config {
	return &config.Config{
		Transactions: map[string]config.TransactionFilter{
			"launchpads": {AccountInclude: []string{pumpfunProgram}},
		},
	}
}

func TestClient_consumeStream(t *testing.T) {
	conn := &FakeStreamConn{updates: []*Update{
		{Kind: "transaction", Slot: 100, Transaction: &TransactionUpdate{
			Slot:       100,
			Signatures: []string{"sig-1"},
			Accounts:   []string{"payer", pumpfunProgram},
		}},
		{Kind: "slot", Slot: 101},
	}}
	dial := func(endpoint, token string) (StreamConn, error) { return conn, nil }
	queue := NewTransactionQueue(10, logger, m)
	client := NewClient("wss://stream.example.org", "secret", launchFilterConfig(), queue, dial, logger, m)

	err := client.consumeStream()
	require.NoError(t, err)
	assert.True(t, conn.closed)
	require.NotNil(t, conn.subscribed)
	assert.Equal(t, config.DefaultCommitment, conn.subscribed.Commitment)

	require.Equal(t, 1, queue.Len())
	tx := queue.Pop()
	assert.Equal(t, "sig-1", tx.Signature)
	assert.Equal(t, uint64(100), tx.Slot)
	assert.Equal(t, []string{"payer", pumpfunProgram}, tx.Accounts)
	assert.False(t, tx.ReceivedTime.IsZero())
}

func TestClient_consumeStream_whenDialFails_thenError(t *testing.T) {
	dial := func(endpoint, token string) (StreamConn, error) {
		return nil, errors.New("connection refused")
	}
	queue := NewTransactionQueue(10, logger, m)
	client := NewClient("wss://stream.example.org", "", launchFilterConfig(), queue, dial, logger, m)

	err := client.consumeStream()
	assert.Error(t, err)
}

func TestClient_consumeStream_whenRecvFails_thenError(t *testing.T) {
	conn := &FakeStreamConn{recvErr: errors.New("connection reset")}
	dial := func(endpoint, token string) (StreamConn, error) { return conn, nil }
	queue := NewTransactionQueue(10, logger, m)
	client := NewClient("wss://stream.example.org", "", launchFilterConfig(), queue, dial, logger, m)

	err := client.consumeStream()
	assert.Error(t, err)
	assert.True(t, conn.closed)
}

func TestClient_processUpdate_ignoresNonTransactionUpdates(t *testing.T) {
	queue := NewTransactionQueue(10, logger, m)
	client := NewClient("", "", launchFilterConfig(), queue, nil, logger, m)

	client.processUpdate(&Update{Kind: "slot", Slot: 42})

	assert.True(t, queue.IsEmpty())
}

func TestClient_processUpdate_skipsTransactionWithoutSignature(t *testing.T) {
	queue := NewTransactionQueue(10, logger, m)
	client := NewClient("", "", launchFilterConfig(), queue, nil, logger, m)

	client.processUpdate(&Update{Kind: "transaction", Transaction: &TransactionUpdate{
		Accounts: []string{pumpfunProgram},
	}})

	assert.True(t, queue.IsEmpty())
}

func TestClient_processUpdate_skipsNonMatchingTransaction(t *testing.T) {
	queue := NewTransactionQueue(10, logger, m)
	client := NewClient("", "", launchFilterConfig(), queue, nil, logger, m)

	client.processUpdate(&Update{Kind: "transaction", Transaction: &TransactionUpdate{
		Signatures: []string{"sig-1"},
		Accounts:   []string{"payer", "some-other-program"},
	}})

	assert.True(t, queue.IsEmpty())
}

func TestClient_shouldQueue(t *testing.T) {
	cfg := &config.Config{
		Transactions: map[string]config.TransactionFilter{
			"included": {AccountInclude: []string{"AAA", "BBB"}},
			"required": {AccountRequired: []string{"CCC", "DDD"}},
		},
	}
	client := NewClient("", "", cfg, nil, nil, logger, m)

	testData := []struct {
		name     string
		accounts []string
		expected bool
	}{
		{name: "include hit", accounts: []string{"XXX", "BBB"}, expected: true},
		{name: "all required present", accounts: []string{"EEE", "DDD", "CCC"}, expected: true},
		{name: "required incomplete", accounts: []string{"CCC"}, expected: false},
		{name: "no match", accounts: []string{"XXX", "YYY"}, expected: false},
		{name: "no accounts", accounts: nil, expected: false},
	}

	for _, test := range testData {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, client.shouldQueue(test.accounts))
		})
	}
}

func TestClient_shouldQueue_whenNoFiltersConfigured_thenFalse(t *testing.T) {
	client := NewClient("", "", &config.Config{}, nil, nil, logger, m)
	assert.False(t, client.shouldQueue([]string{"AAA"}))
}

func TestBuildSubscribeRequest(t *testing.T) {
	vote := false
	cfg := &config.Config{
		Commitment: "processed",
		Transactions: map[string]config.TransactionFilter{
			"launchpads": {Vote: &vote, AccountInclude: []string{"AAA"}},
		},
		Slots: map[string]config.SlotFilter{"all": {}},
	}

	request := BuildSubscribeRequest(cfg)

	assert.Equal(t, "processed", request.Commitment)
	require.Contains(t, request.Transactions, "launchpads")
	assert.Equal(t, []string{"AAA"}, request.Transactions["launchpads"].AccountInclude)
	require.Contains(t, request.Slots, "all")
	assert.Nil(t, request.Accounts)
	assert.Nil(t, request.Blocks)
	assert.Nil(t, request.BlocksMeta)
	assert.Nil(t, request.Entries)
}

func TestBuildSubscribeRequest_whenNoCommitment_thenDefault(t *testing.T) {
	request := BuildSubscribeRequest(&config.Config{})
	assert.Equal(t, config.DefaultCommitment, request.Commitment)
}
