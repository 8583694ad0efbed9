// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package sanity validates oracle reports against the pre-report ledger state.
// The checker is stateless and never mutates its inputs.
package sanity

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking/ledger"
	"github.com/vechain/lsp/staking/reverts"
	"github.com/vechain/lsp/staking/types"
)

var (
	bigTotalBP        = big.NewInt(lsp.TotalBasisPoints)
	bigSecondsPerYear = big.NewInt(lsp.SecondsPerYear)
)

// Queue is the view of the withdrawal queue needed to check finalization batches.
type Queue interface {
	LastRequestID() uint64
	LastFinalizedID() uint64
}

// Checker validates reports against configured Limits.
type Checker struct {
	limits Limits
}

func New(limits Limits) (*Checker, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &Checker{limits: limits}, nil
}

func (c *Checker) Limits() Limits {
	return c.limits
}

// CheckReport runs every pre-settlement check in order and returns the first violation.
func (c *Checker) CheckReport(pre ledger.State, pendingBurnShares *uint256.Int, report *types.Report, queue Queue) error {
	if err := c.checkValidatorsCount(pre, report); err != nil {
		return err
	}
	if err := c.checkBalances(pre, report); err != nil {
		return err
	}
	if err := c.checkExternalIncome(pre, report); err != nil {
		return err
	}
	if report.SharesRequestedToBurn.Gt(pendingBurnShares) {
		return reverts.NewSanityViolation(reverts.ReasonBurnRequests,
			"shares to burn %s exceed pending %s", report.SharesRequestedToBurn, pendingBurnShares)
	}
	return c.CheckWithdrawalBatches(report.WithdrawalBatches, queue)
}

func (c *Checker) checkValidatorsCount(pre ledger.State, report *types.Report) error {
	switch {
	case pre.CLValidators > pre.DepositedValidators:
		return reverts.NewSanityViolation(reverts.ReasonValidatorsCount,
			"reported %d exceed deposited %d", pre.CLValidators, pre.DepositedValidators)
	case report.CLValidators < pre.CLValidators:
		return reverts.NewSanityViolation(reverts.ReasonValidatorsCount,
			"validators decreased from %d to %d", pre.CLValidators, report.CLValidators)
	case report.CLValidators > pre.DepositedValidators:
		return reverts.NewSanityViolation(reverts.ReasonValidatorsCount,
			"validators %d exceed deposited %d", report.CLValidators, pre.DepositedValidators)
	}
	return nil
}

// checkBalances bounds the consensus layer balance change.
//
// Appeared validators are expected to bring DepositSize each, the rest of the change is
// the reward or loss of the report.
func (c *Checker) checkBalances(pre ledger.State, report *types.Report) error {
	appeared := new(big.Int).SetUint64(report.CLValidators - pre.CLValidators)
	preBalance := pre.CLBalance.ToBig()
	postBalance := new(big.Int).Add(report.CLBalance.ToBig(), report.WithdrawalIncome.ToBig())
	elapsed := new(big.Int).SetUint64(report.TimeElapsed)

	// growth and loss allowed for validators already known
	allowedIncrease := new(big.Int).Mul(preBalance, new(big.Int).SetUint64(c.limits.AnnualBalanceIncreaseBPLimit))
	allowedIncrease.Mul(allowedIncrease, elapsed)
	allowedIncrease.Quo(allowedIncrease, new(big.Int).Mul(bigTotalBP, bigSecondsPerYear))
	allowedDecrease := new(big.Int).Mul(preBalance, new(big.Int).SetUint64(c.limits.OneOffCLBalanceDecreaseBPLimit))
	allowedDecrease.Quo(allowedDecrease, bigTotalBP)

	if appeared.Sign() > 0 {
		change := new(big.Int).Sub(postBalance, preBalance)

		lower := new(big.Int).Mul(appeared, gweiToWei(c.limits.MinBalancePerNewValidatorGwei).ToBig())
		lower.Sub(lower, allowedDecrease)
		upper := new(big.Int).Mul(appeared, gweiToWei(c.limits.MaxBalancePerNewValidatorGwei).ToBig())
		upper.Add(upper, allowedIncrease)

		if change.Cmp(lower) < 0 || change.Cmp(upper) > 0 {
			return reverts.NewSanityViolation(reverts.ReasonBalancePerValidator,
				"balance change %s for %s new validators outside [%s, %s]", change, appeared, lower, upper)
		}
	}

	preCL := new(big.Int).Add(preBalance, new(big.Int).Mul(appeared, lsp.DepositSize.ToBig()))
	rewardOrLoss := new(big.Int).Sub(postBalance, preCL)

	switch rewardOrLoss.Sign() {
	case 1:
		// rewardOrLoss / preCL * year / elapsed <= limit / 10000
		lhs := new(big.Int).Mul(rewardOrLoss, bigTotalBP)
		lhs.Mul(lhs, bigSecondsPerYear)
		rhs := new(big.Int).Mul(preCL, new(big.Int).SetUint64(c.limits.AnnualBalanceIncreaseBPLimit))
		rhs.Mul(rhs, elapsed)
		if preCL.Sign() == 0 || lhs.Cmp(rhs) > 0 {
			return reverts.NewSanityViolation(reverts.ReasonAnnualBalanceIncrease,
				"increase %s over %ds on %s exceeds %d bp", rewardOrLoss, report.TimeElapsed, preCL, c.limits.AnnualBalanceIncreaseBPLimit)
		}
	case -1:
		loss := new(big.Int).Neg(rewardOrLoss)
		lhs := new(big.Int).Mul(loss, bigTotalBP)
		rhs := new(big.Int).Mul(preCL, new(big.Int).SetUint64(c.limits.OneOffCLBalanceDecreaseBPLimit))
		if lhs.Cmp(rhs) > 0 {
			return reverts.NewSanityViolation(reverts.ReasonOneOffCLBalanceDecrease,
				"decrease %s on %s exceeds %d bp", loss, preCL, c.limits.OneOffCLBalanceDecreaseBPLimit)
		}
	}
	return nil
}

func (c *Checker) checkExternalIncome(pre ledger.State, report *types.Report) error {
	if report.RewardIncome.Gt(pre.RewardIncome) {
		return reverts.NewSanityViolation(reverts.ReasonExternalIncome,
			"reward income %s exceeds received %s", report.RewardIncome, pre.RewardIncome)
	}
	if report.WithdrawalIncome.Gt(pre.WithdrawalIncome) {
		return reverts.NewSanityViolation(reverts.ReasonExternalIncome,
			"withdrawal income %s exceeds received %s", report.WithdrawalIncome, pre.WithdrawalIncome)
	}
	return nil
}

// CheckWithdrawalBatches checks the batches are strictly increasing and only cover
// requests which are queued and not finalized yet.
func (c *Checker) CheckWithdrawalBatches(batches []uint64, queue Queue) error {
	if len(batches) == 0 {
		return nil
	}
	if uint64(len(batches)) > c.limits.MaxWithdrawalBatches {
		return reverts.NewSanityViolation(reverts.ReasonWithdrawalBatches,
			"%d batches exceed %d", len(batches), c.limits.MaxWithdrawalBatches)
	}
	if !(&types.Report{WithdrawalBatches: batches}).BatchesIncreasing() {
		return reverts.NewSanityViolation(reverts.ReasonWithdrawalBatches, "batches not strictly increasing")
	}
	if first := batches[0]; first <= queue.LastFinalizedID() {
		return reverts.NewSanityViolation(reverts.ReasonWithdrawalBatches,
			"batch %d already finalized up to %d", first, queue.LastFinalizedID())
	}
	if last := batches[len(batches)-1]; last > queue.LastRequestID() {
		return reverts.NewSanityViolation(reverts.ReasonWithdrawalBatches,
			"batch %d beyond last request %d", last, queue.LastRequestID())
	}
	return nil
}

// CheckSimulatedShareRate compares the rate computed by the engine with the one simulated
// off-chain by the oracle.
func (c *Checker) CheckSimulatedShareRate(actual, simulated *uint256.Int) error {
	if simulated == nil || simulated.IsZero() {
		return reverts.NewSanityViolation(reverts.ReasonSimulatedShareRate, "simulated share rate missing")
	}
	diff := new(big.Int).Sub(actual.ToBig(), simulated.ToBig())
	diff.Abs(diff).Mul(diff, bigTotalBP)

	tolerance := new(big.Int).Mul(simulated.ToBig(), new(big.Int).SetUint64(c.limits.SimulatedShareRateDeviationBPLimit))
	if diff.Cmp(tolerance) > 0 {
		return reverts.NewSanityViolation(reverts.ReasonSimulatedShareRate,
			"actual %s deviates from simulated %s by more than %d bp", actual, simulated, c.limits.SimulatedShareRateDeviationBPLimit)
	}
	return nil
}
