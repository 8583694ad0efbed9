// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delta

import (
	"github.com/holiman/uint256"

	"github.com/vechain/lsp/lsp"
)

// Share is a change of a single holder balance.
type Share struct {
	Holder lsp.Address
	Shares *uint256.Int
}

// Report is the post-state computed by a report cycle, written to the ledger in one step.
// Balances are absolute values, share changes are relative.
type Report struct {
	Timestamp            uint64
	CLValidators         uint64
	CLBalance            *uint256.Int
	BufferedEther        *uint256.Int
	RewardIncome         *uint256.Int
	WithdrawalIncome     *uint256.Int
	LockedForWithdrawals *uint256.Int
	TotalShares          *uint256.Int

	Mints []Share
	Burns []Share
}

// MintedShares sums all mints.
func (r *Report) MintedShares() *uint256.Int {
	return sum(r.Mints)
}

// BurnedShares sums all burns.
func (r *Report) BurnedShares() *uint256.Int {
	return sum(r.Burns)
}

func sum(shares []Share) *uint256.Int {
	total := new(uint256.Int)
	for _, s := range shares {
		total.Add(total, s.Shares)
	}
	return total
}
