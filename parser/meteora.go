package parser

import (
	"bytes"

	"github.com/launchfeed/launch-publisher/domain"
)

const MeteoraDbcProgramID = "dbcij3LWUppWqq96dh6gJWwBifmcGfLSB5D4DuSMaqN"

// Anchor discriminators of the two meteora dynamic bonding curve pool
// initialization variants.
var meteoraInitPoolDiscriminators = [][]byte{
	{140, 85, 215, 176, 102, 54, 104, 79},  // SPL token
	{169, 118, 51, 78, 145, 110, 220, 155}, // token-2022
}

const (
	meteoraCreatorAccountPosition = 2
	meteoraMintAccountPosition    = 3
)

// MeteoraParser detects virtual pool creations on the meteora dynamic
// bonding curve program. Account layout is shared by both initialization
// variants: creator at position 2, base mint at position 3.
type MeteoraParser struct{}

func NewMeteoraParser() *MeteoraParser {
	return &MeteoraParser{}
}

func (p *MeteoraParser) ProgramIDs() []string {
	return []string{MeteoraDbcProgramID}
}

func (p *MeteoraParser) Launchpad() domain.Launchpad {
	return domain.LaunchpadMeteora
}

func (p *MeteoraParser) ParseTransaction(tx *domain.QueuedTransaction) ([]ParseResult, error) {
	for i := range tx.Instructions {
		instruction := &tx.Instructions[i]
		if instruction.ProgramID != MeteoraDbcProgramID {
			continue
		}
		if len(instruction.Data) < discriminatorLength {
			continue
		}
		if !isMeteoraInitPool(instruction.Data[:discriminatorLength]) {
			continue
		}

		tokenAddress, ok := resolveAccount(tx, instruction, meteoraMintAccountPosition)
		if !ok {
			continue
		}

		launch := domain.TokenLaunch{
			Launchpad:    domain.LaunchpadMeteora,
			TokenAddress: tokenAddress,
			Signature:    tx.Signature,
			Slot:         tx.Slot,
			Timestamp:    tx.ReceivedTime,
			Metadata:     extractCreateMetadata(instruction.Data),
		}
		if creator, ok := resolveAccount(tx, instruction, meteoraCreatorAccountPosition); ok {
			launch.Creator = &creator
		}

		return []ParseResult{TokenLaunchResult(&launch)}, nil
	}
	return []ParseResult{NotRelevantResult()}, nil
}

func isMeteoraInitPool(discriminator []byte) bool {
	for _, candidate := range meteoraInitPoolDiscriminators {
		if bytes.Equal(discriminator, candidate) {
			return true
		}
	}
	return false
}
