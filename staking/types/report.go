// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package types

import (
	"slices"

	"github.com/holiman/uint256"
)

// Report is the periodic oracle report about the consensus layer state of the pool validators.
type Report struct {
	Timestamp             uint64       `json:"timestamp"`
	TimeElapsed           uint64       `json:"timeElapsed"`
	CLValidators          uint64       `json:"clValidators"`
	CLBalance             *uint256.Int `json:"clBalance"`
	RewardIncome          *uint256.Int `json:"rewardIncome"`
	WithdrawalIncome      *uint256.Int `json:"withdrawalIncome"`
	SharesRequestedToBurn *uint256.Int `json:"sharesRequestedToBurn"`
	WithdrawalBatches     []uint64     `json:"withdrawalBatches"`
	SimulatedShareRate    *uint256.Int `json:"simulatedShareRate"`
}

// Copy returns a deep copy with absent amounts set to zero.
func (r *Report) Copy() *Report {
	return &Report{
		Timestamp:             r.Timestamp,
		TimeElapsed:           r.TimeElapsed,
		CLValidators:          r.CLValidators,
		CLBalance:             orZero(r.CLBalance),
		RewardIncome:          orZero(r.RewardIncome),
		WithdrawalIncome:      orZero(r.WithdrawalIncome),
		SharesRequestedToBurn: orZero(r.SharesRequestedToBurn),
		WithdrawalBatches:     slices.Clone(r.WithdrawalBatches),
		SimulatedShareRate:    orZero(r.SimulatedShareRate),
	}
}

// BatchesIncreasing reports whether the withdrawal batches are strictly increasing.
func (r *Report) BatchesIncreasing() bool {
	for i := 1; i < len(r.WithdrawalBatches); i++ {
		if r.WithdrawalBatches[i] <= r.WithdrawalBatches[i-1] {
			return false
		}
	}
	return true
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
