package domain

import "time"

type Launchpad string

const (
	LaunchpadPumpfun Launchpad = "pumpfun"
	LaunchpadMeteora Launchpad = "meteora"
)

type TransactionInstruction struct {
	ProgramID      string
	AccountIndices []uint16
	Data           []byte
}

type QueuedTransaction struct {
	Signature    string
	Slot         uint64
	ReceivedTime time.Time
	Accounts     []string
	Instructions []TransactionInstruction
}

// TokenLaunch is the wire contract published to the broker. Field names are
// consumed by external systems and must not change.
type TokenLaunch struct {
	Launchpad    Launchpad      `json:"launchpad"`
	TokenAddress string         `json:"token_address"`
	Creator      *string        `json:"creator,omitempty"`
	Signature    string         `json:"signature"`
	Slot         uint64         `json:"slot"`
	Timestamp    time.Time      `json:"timestamp"`
	Metadata     LaunchMetadata `json:"metadata"`
}

type LaunchMetadata struct {
	Name          *string `json:"name,omitempty"`
	Symbol        *string `json:"symbol,omitempty"`
	URI           *string `json:"uri,omitempty"`
	InitialSupply *uint64 `json:"initial_supply,omitempty"`
	MintAuthority *string `json:"mint_authority,omitempty"`
}

type Trade struct {
	Launchpad    Launchpad `json:"launchpad"`
	TokenAddress string    `json:"token_address"`
	Trader       string    `json:"trader"`
	Amount       uint64    `json:"amount"`
	Signature    string    `json:"signature"`
	Timestamp    time.Time `json:"timestamp"`
}
