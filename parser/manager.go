package parser

import (
	"slices"

	"github.com/launchfeed/launch-publisher/domain"
	"github.com/launchfeed/launch-publisher/metrics"
	"go.uber.org/zap"
)

// Manager owns the decoder registry. A program id maps to every decoder
// that claims it; claiming decoders run in registration order.
type Manager struct {
	parsers  []LaunchpadParser
	registry map[string][]int
	logger   *zap.SugaredLogger
	metrics  *metrics.ProcessingMetrics
}

func NewManager(logger *zap.SugaredLogger, m *metrics.ProcessingMetrics) *Manager {
	manager := Manager{
		registry: make(map[string][]int),
		logger:   logger,
		metrics:  m,
	}
	manager.register(NewPumpfunParser())
	manager.register(NewMeteoraParser())
	return &manager
}

func (mgr *Manager) register(parser LaunchpadParser) {
	index := len(mgr.parsers)
	mgr.parsers = append(mgr.parsers, parser)
	for _, programID := range parser.ProgramIDs() {
		mgr.registry[programID] = append(mgr.registry[programID], index)
	}
}

// ProcessTransaction runs every decoder claimed by the transaction's
// instruction program ids and returns the detected launches. A transaction
// without relevant program ids runs no decoder at all. Decoder errors are
// logged and skipped, they never stop the pipeline.
func (mgr *Manager) ProcessTransaction(tx *domain.QueuedTransaction) []*domain.TokenLaunch {
	indices := mgr.relevantParsers(tx)
	if len(indices) == 0 {
		return nil
	}
	mgr.metrics.IncProcessedTransactions()

	var launches []*domain.TokenLaunch
	for _, index := range indices {
		parser := mgr.parsers[index]
		results, err := parser.ParseTransaction(tx)
		if err != nil {
			mgr.metrics.IncParserErrors()
			mgr.logger.Warnw("decoder failed",
				"launchpad", parser.Launchpad(), "signature", tx.Signature, "error", err)
			continue
		}

		for _, result := range results {
			if result.Kind != KindTokenLaunch || result.Launch == nil {
				continue
			}
			launches = append(launches, result.Launch)
			mgr.metrics.IncDetectedLaunches()
			mgr.logger.Infow("Token launch detected",
				"launchpad", result.Launch.Launchpad,
				"token", result.Launch.TokenAddress,
				"signature", result.Launch.Signature,
				"slot", result.Launch.Slot)
		}
	}
	return launches
}

func (mgr *Manager) relevantParsers(tx *domain.QueuedTransaction) []int {
	seen := make(map[int]struct{})
	var indices []int
	for i := range tx.Instructions {
		for _, index := range mgr.registry[tx.Instructions[i].ProgramID] {
			if _, ok := seen[index]; !ok {
				seen[index] = struct{}{}
				indices = append(indices, index)
			}
		}
	}
	slices.Sort(indices)
	return indices
}
