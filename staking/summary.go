// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/holiman/uint256"

	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking/fees"
	"github.com/vechain/lsp/staking/sanity"
)

// StakeLimit describes the deposit capacity at the current block.
// Current is lsp.Unlimited when no limit is set.
type StakeLimit struct {
	MaxLimit       *uint256.Int `json:"maxLimit"`
	GrowthPerBlock *uint256.Int `json:"growthPerBlock"`
	Current        *uint256.Int `json:"current"`
}

type Summary struct {
	BufferedEther        *uint256.Int  `json:"bufferedEther"`
	DepositedValidators  uint64        `json:"depositedValidators"`
	CLValidators         uint64        `json:"clValidators"`
	CLBalance            *uint256.Int  `json:"clBalance"`
	TransientBalance     *uint256.Int  `json:"transientBalance"`
	TotalPooledEther     *uint256.Int  `json:"totalPooledEther"`
	TotalShares          *uint256.Int  `json:"totalShares"`
	ShareRate            *uint256.Int  `json:"shareRate"`
	RewardIncome         *uint256.Int  `json:"rewardIncome"`
	WithdrawalIncome     *uint256.Int  `json:"withdrawalIncome"`
	LockedForWithdrawals *uint256.Int  `json:"lockedForWithdrawals"`
	PendingBurnShares    *uint256.Int  `json:"pendingBurnShares"`
	LastReportTimestamp  uint64        `json:"lastReportTimestamp"`
	StakingPaused        bool          `json:"stakingPaused"`
	StakeLimit           StakeLimit    `json:"stakeLimit"`
	LastRequestID        uint64        `json:"lastRequestId"`
	LastFinalizedID      uint64        `json:"lastFinalizedId"`
	Oracle               lsp.Address   `json:"oracle"`
	Fees                 fees.Table    `json:"fees"`
	SanityLimits         sanity.Limits `json:"sanityLimits"`
	Phase                Phase         `json:"phase"`
}
