// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sanity

import (
	"github.com/holiman/uint256"

	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking/reverts"
)

// Limits bound what a single report may change.
type Limits struct {
	// AnnualBalanceIncreaseBPLimit caps the consensus layer growth, annualised, in basis points.
	AnnualBalanceIncreaseBPLimit uint64 `yaml:"annualBalanceIncreaseBPLimit" json:"annualBalanceIncreaseBPLimit"`
	// OneOffCLBalanceDecreaseBPLimit caps the loss of a single report in basis points of the pre-report balance.
	OneOffCLBalanceDecreaseBPLimit uint64 `yaml:"oneOffCLBalanceDecreaseBPLimit" json:"oneOffCLBalanceDecreaseBPLimit"`
	// MaxBalancePerNewValidatorGwei and MinBalancePerNewValidatorGwei bound the balance
	// each newly reported validator brings.
	MaxBalancePerNewValidatorGwei uint64 `yaml:"maxBalancePerNewValidatorGwei" json:"maxBalancePerNewValidatorGwei"`
	MinBalancePerNewValidatorGwei uint64 `yaml:"minBalancePerNewValidatorGwei" json:"minBalancePerNewValidatorGwei"`
	// SimulatedShareRateDeviationBPLimit is the tolerance between the computed and the simulated rate.
	SimulatedShareRateDeviationBPLimit uint64 `yaml:"simulatedShareRateDeviationBPLimit" json:"simulatedShareRateDeviationBPLimit"`
	MaxWithdrawalBatches               uint64 `yaml:"maxWithdrawalBatches" json:"maxWithdrawalBatches"`
}

// DefaultLimits are used when no limits are configured.
var DefaultLimits = Limits{
	AnnualBalanceIncreaseBPLimit:       1_000,    // 10%
	OneOffCLBalanceDecreaseBPLimit:     500,      // 5%
	MaxBalancePerNewValidatorGwei:      33 * 1e9, // 33 ETH
	MinBalancePerNewValidatorGwei:      16 * 1e9, // ejection balance
	SimulatedShareRateDeviationBPLimit: 50,       // 0.5%
	MaxWithdrawalBatches:               36,
}

// Validate checks the limits are usable.
func (l Limits) Validate() error {
	for name, bp := range map[string]uint64{
		"annual balance increase":        l.AnnualBalanceIncreaseBPLimit,
		"one-off balance decrease":       l.OneOffCLBalanceDecreaseBPLimit,
		"simulated share rate deviation": l.SimulatedShareRateDeviationBPLimit,
	} {
		if bp > lsp.TotalBasisPoints {
			return reverts.Errorf(reverts.KindInvalidRequest, "%s limit %d exceeds %d bp", name, bp, lsp.TotalBasisPoints)
		}
	}
	if l.MinBalancePerNewValidatorGwei > l.MaxBalancePerNewValidatorGwei {
		return reverts.New(reverts.KindInvalidRequest, "min balance per new validator exceeds max")
	}
	return nil
}

func gweiToWei(gwei uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(gwei), lsp.Gwei)
}
