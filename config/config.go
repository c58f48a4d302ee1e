// Package config loads the declarative subscription filter configuration.
// The file groups named filters per update category; only transaction
// filters influence which updates get queued downstream.
package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

const DefaultCommitment = "confirmed"

type Config struct {
	Commitment   string                       `json:"commitment,omitempty"`
	Transactions map[string]TransactionFilter `json:"transactions,omitempty"`
	Accounts     map[string]AccountFilter     `json:"accounts,omitempty"`
	Slots        map[string]SlotFilter        `json:"slots,omitempty"`
	Blocks       map[string]BlockFilter       `json:"blocks,omitempty"`
	BlocksMeta   map[string]BlockMetaFilter   `json:"blocks_meta,omitempty"`
	Entries      map[string]EntryFilter       `json:"entry,omitempty"`
}

type TransactionFilter struct {
	Vote            *bool    `json:"vote,omitempty"`
	Failed          *bool    `json:"failed,omitempty"`
	Signature       *string  `json:"signature,omitempty"`
	AccountInclude  []string `json:"account_include,omitempty"`
	AccountExclude  []string `json:"account_exclude,omitempty"`
	AccountRequired []string `json:"account_required,omitempty"`
}

type AccountFilter struct {
	Account []string           `json:"account,omitempty"`
	Owner   []string           `json:"owner,omitempty"`
	Filters []AccountSubFilter `json:"filters,omitempty"`
}

type AccountSubFilter struct {
	Memcmp            *MemcmpFilter   `json:"memcmp,omitempty"`
	Datasize          *uint64         `json:"datasize,omitempty"`
	TokenAccountState *bool           `json:"token_account_state,omitempty"`
	Lamports          *LamportsFilter `json:"lamports,omitempty"`
}

type MemcmpFilter struct {
	Offset uint64 `json:"offset"`
	Data   string `json:"data"`
}

type LamportsFilter struct {
	Cmp   string `json:"cmp"`
	Value uint64 `json:"value"`
}

type SlotFilter struct {
	FilterByCommitment *bool `json:"filter_by_commitment,omitempty"`
	InterslotUpdates   *bool `json:"interslot_updates,omitempty"`
}

type BlockFilter struct {
	AccountInclude      []string `json:"account_include,omitempty"`
	IncludeTransactions *bool    `json:"include_transactions,omitempty"`
	IncludeAccounts     *bool    `json:"include_accounts,omitempty"`
	IncludeEntries      *bool    `json:"include_entries,omitempty"`
}

type BlockMetaFilter struct{}

type EntryFilter struct{}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading filter config file [%s]", path)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "unmarshalling filter config file [%s]", path)
	}

	return &cfg, nil
}

func (c *Config) CommitmentOrDefault() string {
	if c.Commitment == "" {
		return DefaultCommitment
	}
	return c.Commitment
}
