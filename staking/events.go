// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/holiman/uint256"

	"github.com/vechain/lsp/lsp"
)

// DepositEvent is sent after a deposit is applied.
type DepositEvent struct {
	Depositor   lsp.Address  `json:"depositor"`
	Amount      *uint256.Int `json:"amount"`
	Shares      *uint256.Int `json:"shares"`
	Referral    lsp.Address  `json:"referral"`
	Timestamp   uint64       `json:"timestamp"`
	BlockNumber uint64       `json:"blockNumber"`
}

// RebaseEvent is sent after a report is committed. Listeners receive it asynchronously.
type RebaseEvent struct {
	Timestamp            uint64       `json:"timestamp"`
	TimeElapsed          uint64       `json:"timeElapsed"`
	CLValidators         uint64       `json:"clValidators"`
	CLBalance            *uint256.Int `json:"clBalance"`
	PreTotalShares       *uint256.Int `json:"preTotalShares"`
	PreTotalPooledEther  *uint256.Int `json:"preTotalPooledEther"`
	PostTotalShares      *uint256.Int `json:"postTotalShares"`
	PostTotalPooledEther *uint256.Int `json:"postTotalPooledEther"`
	FeeShares            *uint256.Int `json:"feeShares"`
	WithdrawalsLocked    *uint256.Int `json:"withdrawalsLocked"`
	SharesBurned         *uint256.Int `json:"sharesBurned"`
}
