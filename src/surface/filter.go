package surface

import (
	"github.com/montanaflynn/stats"

	"github.com/jiaming2012/option-arb/src/eventmodels"
)

type ChainFilterConfig struct {
	MinOpenInterest float64
	OptionType      eventmodels.OptionType
}

// FilterChain reduces a chain snapshot to the contracts that pass the
// liquidity and quote-quality rules. Rejected contracts are dropped without
// notice: absence from the output is the signal. Strike order is preserved.
func FilterChain(snapshot *eventmodels.OptionChainSnapshot, config ChainFilterConfig) *eventmodels.OptionChainSnapshot {
	var kept []*eventmodels.OptionContract

	for _, c := range snapshot.Contracts {
		if c.OptionType != config.OptionType {
			continue
		}

		if c.OpenInterest < config.MinOpenInterest {
			continue
		}

		if !c.HasConsistentQuote() {
			continue
		}

		kept = append(kept, c)
	}

	return snapshot.WithContracts(kept)
}

// FilterStrikeBand drops contracts whose strike falls outside
// spot +/- numStdev standard deviations of the observed strikes. When
// twoSigmaMove is set the upper bound is widened to spot + 2 stdev.
func FilterStrikeBand(snapshot *eventmodels.OptionChainSnapshot, spot, numStdev float64, twoSigmaMove bool) (*eventmodels.OptionChainSnapshot, error) {
	strikes := snapshot.Strikes()
	if len(strikes) == 0 {
		return snapshot, nil
	}

	stdev, err := stats.StandardDeviationPopulation(strikes)
	if err != nil {
		return nil, err
	}

	lowerBound := spot - numStdev*stdev
	upperBound := spot + numStdev*stdev

	if twoSigmaMove {
		upperBound = spot + 2*stdev
	}

	var kept []*eventmodels.OptionContract
	for _, c := range snapshot.Contracts {
		if c.Strike >= lowerBound && c.Strike <= upperBound {
			kept = append(kept, c)
		}
	}

	return snapshot.WithContracts(kept), nil
}
