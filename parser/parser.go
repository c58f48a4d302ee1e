// Package parser decodes launchpad program instructions out of queued
// transactions. Each launchpad has its own decoder; the manager routes
// transactions to the decoders claiming their program ids.
package parser

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/launchfeed/launch-publisher/domain"
)

const discriminatorLength = 8

type ResultKind int

const (
	KindNotRelevant ResultKind = iota
	KindTokenLaunch
	KindTrade
	KindOther
)

// ParseResult is the outcome of decoding one transaction. The payload field
// matching Kind is set, the others are zero.
type ParseResult struct {
	Kind   ResultKind
	Launch *domain.TokenLaunch
	Trade  *domain.Trade
	Event  string
}

func TokenLaunchResult(launch *domain.TokenLaunch) ParseResult {
	return ParseResult{Kind: KindTokenLaunch, Launch: launch}
}

func TradeResult(trade *domain.Trade) ParseResult {
	return ParseResult{Kind: KindTrade, Trade: trade}
}

func OtherResult(event string) ParseResult {
	return ParseResult{Kind: KindOther, Event: event}
}

func NotRelevantResult() ParseResult {
	return ParseResult{Kind: KindNotRelevant}
}

type LaunchpadParser interface {
	ProgramIDs() []string
	Launchpad() domain.Launchpad
	ParseTransaction(tx *domain.QueuedTransaction) ([]ParseResult, error)
}

// readLengthPrefixedString reads a little-endian u32 length-prefixed UTF-8
// string starting at offset. Returns the string and the offset after it, or
// ok false when the bytes do not form a complete valid string.
func readLengthPrefixedString(data []byte, offset int) (value string, next int, ok bool) {
	if offset < 0 || offset+4 > len(data) {
		return "", 0, false
	}
	length := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
	start := offset + 4
	if length > len(data)-start {
		return "", 0, false
	}
	raw := data[start : start+length]
	if !utf8.Valid(raw) {
		return "", 0, false
	}
	return string(raw), start + length, true
}

// extractCreateMetadata decodes the name and symbol that follow the create
// instruction discriminator. A truncated or invalid payload yields whatever
// was decoded before the failure, never an error.
func extractCreateMetadata(data []byte) domain.LaunchMetadata {
	var metadata domain.LaunchMetadata

	name, next, ok := readLengthPrefixedString(data, discriminatorLength)
	if !ok {
		return metadata
	}
	metadata.Name = &name

	symbol, _, ok := readLengthPrefixedString(data, next)
	if !ok {
		return metadata
	}
	metadata.Symbol = &symbol

	return metadata
}

// resolveAccount maps the instruction account at the given position through
// the transaction account list.
func resolveAccount(tx *domain.QueuedTransaction, instruction *domain.TransactionInstruction, position int) (string, bool) {
	if position < 0 || position >= len(instruction.AccountIndices) {
		return "", false
	}
	index := int(instruction.AccountIndices[position])
	if index >= len(tx.Accounts) {
		return "", false
	}
	return tx.Accounts[index], true
}
