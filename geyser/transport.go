package geyser

import (
	"github.com/launchfeed/launch-publisher/config"
	"github.com/launchfeed/launch-publisher/domain"
)

// SubscribeRequest is the transport-level subscription derived from the
// declarative filter configuration. Categories without filters are left nil.
type SubscribeRequest struct {
	Commitment   string
	Transactions map[string]config.TransactionFilter
	Accounts     map[string]config.AccountFilter
	Slots        map[string]config.SlotFilter
	Blocks       map[string]config.BlockFilter
	BlocksMeta   map[string]config.BlockMetaFilter
	Entries      map[string]config.EntryFilter
}

// Update is one message from the stream. Transaction is nil for update
// kinds the pipeline does not act on (slot, account, block updates).
type Update struct {
	Kind        string
	Slot        uint64
	Transaction *TransactionUpdate
}

type TransactionUpdate struct {
	Slot         uint64
	Signatures   []string
	Accounts     []string
	Instructions []domain.TransactionInstruction
}

type StreamConn interface {
	Subscribe(request *SubscribeRequest) error
	Recv() (*Update, error)
	Close() error
}

// DialFunc opens a stream connection to the given endpoint. The token is
// passed as authentication metadata when non-empty.
type DialFunc func(endpoint, token string) (StreamConn, error)

func BuildSubscribeRequest(cfg *config.Config) *SubscribeRequest {
	request := SubscribeRequest{
		Commitment: cfg.CommitmentOrDefault(),
	}
	if len(cfg.Transactions) > 0 {
		request.Transactions = make(map[string]config.TransactionFilter, len(cfg.Transactions))
		for name, filter := range cfg.Transactions {
			request.Transactions[name] = filter
		}
	}
	if len(cfg.Accounts) > 0 {
		request.Accounts = make(map[string]config.AccountFilter, len(cfg.Accounts))
		for name, filter := range cfg.Accounts {
			request.Accounts[name] = filter
		}
	}
	if len(cfg.Slots) > 0 {
		request.Slots = make(map[string]config.SlotFilter, len(cfg.Slots))
		for name, filter := range cfg.Slots {
			request.Slots[name] = filter
		}
	}
	if len(cfg.Blocks) > 0 {
		request.Blocks = make(map[string]config.BlockFilter, len(cfg.Blocks))
		for name, filter := range cfg.Blocks {
			request.Blocks[name] = filter
		}
	}
	if len(cfg.BlocksMeta) > 0 {
		request.BlocksMeta = make(map[string]config.BlockMetaFilter, len(cfg.BlocksMeta))
		for name, filter := range cfg.BlocksMeta {
			request.BlocksMeta[name] = filter
		}
	}
	if len(cfg.Entries) > 0 {
		request.Entries = make(map[string]config.EntryFilter, len(cfg.Entries))
		for name, filter := range cfg.Entries {
			request.Entries[name] = filter
		}
	}
	return &request
}
