// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"github.com/holiman/uint256"

	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking/stakelimit"
)

// State holds the pool wide accounting values. Holder balances are kept by the Ledger.
type State struct {
	BufferedEther        *uint256.Int
	DepositedValidators  uint64
	CLValidators         uint64
	CLBalance            *uint256.Int
	TotalShares          *uint256.Int
	RewardIncome         *uint256.Int
	WithdrawalIncome     *uint256.Int
	LockedForWithdrawals *uint256.Int
	LastReportTimestamp  uint64
	StakeLimit           stakelimit.Data
}

func newState() State {
	return State{
		BufferedEther:        new(uint256.Int),
		CLBalance:            new(uint256.Int),
		TotalShares:          new(uint256.Int),
		RewardIncome:         new(uint256.Int),
		WithdrawalIncome:     new(uint256.Int),
		LockedForWithdrawals: new(uint256.Int),
		StakeLimit:           stakelimit.Paused(),
	}
}

// Copy returns a deep copy.
func (s State) Copy() State {
	return State{
		BufferedEther:        clone(s.BufferedEther),
		DepositedValidators:  s.DepositedValidators,
		CLValidators:         s.CLValidators,
		CLBalance:            clone(s.CLBalance),
		TotalShares:          clone(s.TotalShares),
		RewardIncome:         clone(s.RewardIncome),
		WithdrawalIncome:     clone(s.WithdrawalIncome),
		LockedForWithdrawals: clone(s.LockedForWithdrawals),
		LastReportTimestamp:  s.LastReportTimestamp,
		StakeLimit:           s.StakeLimit.Copy(),
	}
}

// TransientBalance is the ether sent to validator deposits which no report has confirmed yet.
func (s State) TransientBalance() *uint256.Int {
	if s.CLValidators > s.DepositedValidators {
		panic("ledger: reported validators exceed deposited validators")
	}
	return new(uint256.Int).Mul(uint256.NewInt(s.DepositedValidators-s.CLValidators), lsp.DepositSize)
}

// TotalPooledEther is the value backing all shares.
func (s State) TotalPooledEther() *uint256.Int {
	total, overflow := new(uint256.Int).AddOverflow(s.BufferedEther, s.CLBalance)
	if !overflow {
		total, overflow = total.AddOverflow(total, s.TransientBalance())
	}
	if overflow {
		panic("ledger: total pooled ether overflow")
	}
	return total
}

// SharesForEther converts an amount into shares at the current rate, rounding down.
func (s State) SharesForEther(amount *uint256.Int) *uint256.Int {
	if s.TotalShares.IsZero() {
		return clone(amount)
	}
	shares, overflow := new(uint256.Int).MulDivOverflow(amount, s.TotalShares, s.TotalPooledEther())
	if overflow {
		panic("ledger: shares overflow")
	}
	return shares
}

// EtherForShares converts shares into ether at the current rate, rounding down.
func (s State) EtherForShares(shares *uint256.Int) *uint256.Int {
	if s.TotalShares.IsZero() {
		return new(uint256.Int)
	}
	amount, overflow := new(uint256.Int).MulDivOverflow(shares, s.TotalPooledEther(), s.TotalShares)
	if overflow {
		panic("ledger: ether overflow")
	}
	return amount
}

// ShareRate returns the ether value of one share scaled by lsp.ShareRatePrecision.
// A pool without shares has a rate of one.
func (s State) ShareRate() *uint256.Int {
	return ShareRate(s.TotalPooledEther(), s.TotalShares)
}

// ShareRate returns pooled * lsp.ShareRatePrecision / shares.
func ShareRate(pooled, shares *uint256.Int) *uint256.Int {
	if shares.IsZero() {
		return clone(lsp.ShareRatePrecision)
	}
	rate, overflow := new(uint256.Int).MulDivOverflow(pooled, lsp.ShareRatePrecision, shares)
	if overflow {
		panic("ledger: share rate overflow")
	}
	return rate
}

func clone(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
