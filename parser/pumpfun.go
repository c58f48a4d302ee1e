package parser

import (
	"bytes"

	"github.com/launchfeed/launch-publisher/domain"
)

const PumpfunProgramID = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

// Anchor discriminator of the pumpfun create instruction.
var pumpfunCreateDiscriminator = []byte{24, 30, 200, 40, 5, 28, 7, 119}

// PumpfunParser detects bonding curve token creations on pump.fun. The mint
// is the first account of the create instruction, the creator is the
// transaction fee payer.
type PumpfunParser struct{}

func NewPumpfunParser() *PumpfunParser {
	return &PumpfunParser{}
}

func (p *PumpfunParser) ProgramIDs() []string {
	return []string{PumpfunProgramID}
}

func (p *PumpfunParser) Launchpad() domain.Launchpad {
	return domain.LaunchpadPumpfun
}

func (p *PumpfunParser) ParseTransaction(tx *domain.QueuedTransaction) ([]ParseResult, error) {
	for i := range tx.Instructions {
		instruction := &tx.Instructions[i]
		if instruction.ProgramID != PumpfunProgramID {
			continue
		}
		if len(instruction.Data) < discriminatorLength {
			continue
		}
		if !bytes.Equal(instruction.Data[:discriminatorLength], pumpfunCreateDiscriminator) {
			continue
		}

		tokenAddress, ok := resolveAccount(tx, instruction, 0)
		if !ok {
			continue
		}

		launch := domain.TokenLaunch{
			Launchpad:    domain.LaunchpadPumpfun,
			TokenAddress: tokenAddress,
			Signature:    tx.Signature,
			Slot:         tx.Slot,
			Timestamp:    tx.ReceivedTime,
			Metadata:     extractCreateMetadata(instruction.Data),
		}
		if len(tx.Accounts) > 0 {
			creator := tx.Accounts[0]
			launch.Creator = &creator
		}

		// one launch per transaction, first create instruction wins
		return []ParseResult{TokenLaunchResult(&launch)}, nil
	}
	return []ParseResult{NotRelevantResult()}, nil
}
