// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"fmt"
	"math/big"
	"time"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/lsp/kv"
	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking/delta"
	"github.com/vechain/lsp/staking/fees"
	"github.com/vechain/lsp/staking/ledger"
	"github.com/vechain/lsp/staking/reverts"
	"github.com/vechain/lsp/staking/types"
)

// Phase is the stage of a report cycle.
type Phase uint32

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseAccruing
	PhaseDistributing
	PhaseSettling
	PhaseCommitted
	PhaseRejected
)

var phaseNames = [...]string{
	PhaseIdle:         "idle",
	PhaseValidating:   "validating",
	PhaseAccruing:     "accruing",
	PhaseDistributing: "distributing",
	PhaseSettling:     "settling",
	PhaseCommitted:    "committed",
	PhaseRejected:     "rejected",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", uint32(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return errors.Errorf("unknown phase %q", text)
}

// InProgress reports whether a cycle in this phase has not ended yet.
func (p Phase) InProgress() bool {
	return p >= PhaseValidating && p <= PhaseSettling
}

// ReportResult is the outcome of a committed report.
type ReportResult struct {
	PostTotalPooledEther *uint256.Int `json:"postTotalPooledEther"`
	PostTotalShares      *uint256.Int `json:"postTotalShares"`
	ShareRate            *uint256.Int `json:"shareRate"`
	RewardOrLoss         *big.Int     `json:"rewardOrLoss"`
	FeeShares            *uint256.Int `json:"feeShares"`
	Fees                 []fees.Part  `json:"fees"`
	WithdrawalsLocked    *uint256.Int `json:"withdrawalsLocked"`
	SharesBurned         *uint256.Int `json:"sharesBurned"`
}

// Phase returns the phase of the current or last report cycle.
func (p *Pool) Phase() Phase {
	return Phase(p.phase.Load())
}

func (p *Pool) enter(phase Phase) {
	p.phase.Store(uint32(phase))
	metricReportPhase().Set(int64(phase))
}

// begin moves an idle pool into Validating, it fails when another cycle is running.
func (p *Pool) begin() bool {
	for {
		cur := p.phase.Load()
		if Phase(cur).InProgress() {
			return false
		}
		if p.phase.CompareAndSwap(cur, uint32(PhaseValidating)) {
			metricReportPhase().Set(int64(PhaseValidating))
			return true
		}
	}
}

// HandleReport runs a full report cycle. On any failure the ledger is left untouched.
func (p *Pool) HandleReport(caller lsp.Address, report *Report) (result *ReportResult, err error) {
	if report == nil {
		return nil, reverts.New(reverts.KindInvalidReport, "empty report")
	}
	logger.Debug("handling report", "caller", caller, "timestamp", report.Timestamp, "clValidators", report.CLValidators)

	if !p.begin() {
		return nil, reverts.ErrReportInProgress
	}
	p.lock.Lock()
	start := time.Now()
	// the terminal phase is set before the lock is released
	defer func() {
		if e := recover(); e != nil {
			p.enter(PhaseRejected)
			p.lock.Unlock()
			panic(e)
		}
		if err != nil {
			p.enter(PhaseRejected)
		} else {
			p.enter(PhaseCommitted)
		}
		p.lock.Unlock()

		metricReportDuration().Observe(time.Since(start).Milliseconds())
		if err != nil {
			metricReportCount().AddWithLabel(1, map[string]string{"status": "rejected", "reason": rejectReason(err)})
			logger.Info("report rejected", "timestamp", report.Timestamp, "error", err)
			return
		}
		metricReportCount().AddWithLabel(1, map[string]string{"status": "committed", "reason": ""})
	}()

	if caller != p.oracle {
		return nil, reverts.Errorf(reverts.KindUnauthorized, "%s is not the oracle", caller)
	}
	report = report.Copy()
	pre := p.ledger.Snapshot()
	if err := p.validate(pre, report); err != nil {
		return nil, err
	}

	t, err := p.compute(pre, report, p.enter)
	if err != nil {
		return nil, err
	}
	postRate := ledger.ShareRate(t.postTotalPooled, t.post.TotalShares)
	if err := p.checker.CheckSimulatedShareRate(postRate, report.SimulatedShareRate); err != nil {
		return nil, err
	}

	var changes []kv.Staged
	if len(report.WithdrawalBatches) > 0 {
		change, err := p.queue.PrepareFinalize(report.WithdrawalBatches, t.etherToLock)
		if err != nil {
			return nil, err
		}
		if change != nil {
			changes = append(changes, change)
		}
	}
	if err := p.ledger.CommitReportState(t.post, changes...); err != nil {
		logger.Error("failed to commit report", "timestamp", report.Timestamp, "error", err)
		return nil, err
	}

	post := p.ledger.Snapshot()
	updatePoolGauges(post)
	observeRebase(t.preTotalPooled, t.preTotalShares, t.postTotalPooled, post.TotalShares)

	ev := &RebaseEvent{
		Timestamp:            report.Timestamp,
		TimeElapsed:          report.TimeElapsed,
		CLValidators:         report.CLValidators,
		CLBalance:            new(uint256.Int).Set(report.CLBalance),
		PreTotalShares:       t.preTotalShares,
		PreTotalPooledEther:  t.preTotalPooled,
		PostTotalShares:      new(uint256.Int).Set(post.TotalShares),
		PostTotalPooledEther: post.TotalPooledEther(),
		FeeShares:            new(uint256.Int).Set(t.fees.TotalShares),
		WithdrawalsLocked:    new(uint256.Int).Set(t.etherToLock),
		SharesBurned:         t.post.BurnedShares(),
	}
	p.notify.Queue(func() {
		p.rebaseFeed.Send(ev)
	})

	logger.Info("report committed",
		"timestamp", report.Timestamp,
		"rewardOrLoss", t.rewardOrLoss,
		"feeShares", t.fees.TotalShares,
		"totalPooled", ev.PostTotalPooledEther,
		"totalShares", ev.PostTotalShares)

	return t.result(postRate), nil
}

// SimulateReport computes the outcome of a report without committing it. The simulated
// share rate of the report is ignored, the result carries the rate the report would produce.
func (p *Pool) SimulateReport(report *Report) (*ReportResult, error) {
	if report == nil {
		return nil, reverts.New(reverts.KindInvalidReport, "empty report")
	}
	p.lock.Lock()
	defer p.lock.Unlock()

	report = report.Copy()
	pre := p.ledger.Snapshot()
	if err := p.validate(pre, report); err != nil {
		return nil, err
	}
	t, err := p.compute(pre, report, func(Phase) {})
	if err != nil {
		return nil, err
	}
	return t.result(ledger.ShareRate(t.postTotalPooled, t.post.TotalShares)), nil
}

// validate checks the report shape and runs the pre-settlement sanity checks.
func (p *Pool) validate(pre ledger.State, report *types.Report) error {
	switch {
	case report.Timestamp <= pre.LastReportTimestamp:
		return reverts.Errorf(reverts.KindInvalidReport, "timestamp %d not after last report %d", report.Timestamp, pre.LastReportTimestamp)
	case report.Timestamp > p.clock.Now():
		return reverts.Errorf(reverts.KindInvalidReport, "timestamp %d in the future", report.Timestamp)
	case report.TimeElapsed == 0:
		return reverts.New(reverts.KindInvalidReport, "zero time elapsed")
	case !report.BatchesIncreasing():
		return reverts.New(reverts.KindInvalidReport, "withdrawal batches not strictly increasing")
	}
	return p.checker.CheckReport(pre, p.ledger.PendingBurnShares(), report, p.queue)
}

// transition is the computed outcome of a report, not yet applied.
type transition struct {
	preTotalPooled  *uint256.Int
	preTotalShares  *uint256.Int
	rewardOrLoss    *big.Int
	fees            *fees.Distribution
	etherToLock     *uint256.Int
	postTotalPooled *uint256.Int
	post            *delta.Report
}

func (t *transition) result(rate *uint256.Int) *ReportResult {
	return &ReportResult{
		PostTotalPooledEther: t.postTotalPooled,
		PostTotalShares:      new(uint256.Int).Set(t.post.TotalShares),
		ShareRate:            rate,
		RewardOrLoss:         t.rewardOrLoss,
		FeeShares:            t.fees.TotalShares,
		Fees:                 t.fees.Parts,
		WithdrawalsLocked:    t.etherToLock,
		SharesBurned:         t.post.BurnedShares(),
	}
}

// compute derives the post-report state from pre. Nothing is written.
func (p *Pool) compute(pre ledger.State, report *types.Report, enter func(Phase)) (*transition, error) {
	preTotalPooled, err := totalPooled(pre)
	if err != nil {
		return nil, err
	}
	t := &transition{
		preTotalPooled: preTotalPooled,
		preTotalShares: new(uint256.Int).Set(pre.TotalShares),
		etherToLock:    new(uint256.Int),
	}

	enter(PhaseAccruing)
	appeared := new(big.Int).SetUint64(report.CLValidators - pre.CLValidators)
	preCL := new(big.Int).Mul(appeared, lsp.DepositSize.ToBig())
	preCL.Add(preCL, pre.CLBalance.ToBig())
	t.rewardOrLoss = new(big.Int).Add(report.CLBalance.ToBig(), report.WithdrawalIncome.ToBig())
	t.rewardOrLoss.Sub(t.rewardOrLoss, preCL)

	post := pre.Copy()
	post.CLValidators = report.CLValidators
	post.CLBalance = new(uint256.Int).Set(report.CLBalance)
	post.RewardIncome.Sub(post.RewardIncome, report.RewardIncome)
	post.WithdrawalIncome.Sub(post.WithdrawalIncome, report.WithdrawalIncome)
	collected, overflow := new(uint256.Int).AddOverflow(report.RewardIncome, report.WithdrawalIncome)
	if !overflow {
		_, overflow = post.BufferedEther.AddOverflow(post.BufferedEther, collected)
	}
	if overflow {
		return nil, reverts.New(reverts.KindInvalidReport, "buffered ether overflow")
	}
	accrued, err := totalPooled(post)
	if err != nil {
		return nil, err
	}

	enter(PhaseDistributing)
	t.fees = &fees.Distribution{TotalShares: new(uint256.Int)}
	if base := new(big.Int).Add(t.rewardOrLoss, report.RewardIncome.ToBig()); base.Sign() > 0 {
		reward, ok := lsp.BigToUint256(base)
		if !ok {
			return nil, reverts.New(reverts.KindInvalidReport, "reward overflow")
		}
		if t.fees, err = p.distributor.Distribute(reward, t.preTotalPooled, t.preTotalShares); err != nil {
			return nil, err
		}
	}
	sharesAfterFees, overflow := new(uint256.Int).AddOverflow(pre.TotalShares, t.fees.TotalShares)
	if overflow {
		return nil, reverts.New(reverts.KindInvalidReport, "total shares overflow")
	}

	enter(PhaseSettling)
	var burns []delta.Share
	if len(report.WithdrawalBatches) > 0 {
		lock, burn, err := p.queue.CalculateSettlement(report.WithdrawalBatches, accrued, sharesAfterFees)
		if err != nil {
			return nil, err
		}
		if lock.Gt(post.BufferedEther) {
			return nil, reverts.NewSanityViolation(reverts.ReasonWithdrawalSettlement,
				"ether to lock %s exceeds buffered %s", lock, post.BufferedEther)
		}
		if escrow := p.ledger.SharesOf(ledger.WithdrawalEscrowAccount); burn.Gt(escrow) {
			return nil, reverts.NewSanityViolation(reverts.ReasonWithdrawalSettlement,
				"shares to burn %s exceed escrowed %s", burn, escrow)
		}
		t.etherToLock = lock
		post.BufferedEther.Sub(post.BufferedEther, lock)
		post.LockedForWithdrawals.Add(post.LockedForWithdrawals, lock)
		if !burn.IsZero() {
			burns = append(burns, delta.Share{Holder: ledger.WithdrawalEscrowAccount, Shares: burn})
		}
	}
	if !report.SharesRequestedToBurn.IsZero() {
		burns = append(burns, delta.Share{Holder: ledger.BurnerAccount, Shares: report.SharesRequestedToBurn})
	}

	mints := make([]delta.Share, 0, len(t.fees.Parts))
	for _, part := range t.fees.Parts {
		if !part.Shares.IsZero() {
			mints = append(mints, delta.Share{Holder: part.Recipient, Shares: part.Shares})
		}
	}

	t.post = &delta.Report{
		Timestamp:            report.Timestamp,
		CLValidators:         post.CLValidators,
		CLBalance:            post.CLBalance,
		BufferedEther:        post.BufferedEther,
		RewardIncome:         post.RewardIncome,
		WithdrawalIncome:     post.WithdrawalIncome,
		LockedForWithdrawals: post.LockedForWithdrawals,
		Mints:                mints,
		Burns:                burns,
	}
	t.post.TotalShares = new(uint256.Int).Sub(sharesAfterFees, t.post.BurnedShares())
	if t.postTotalPooled, err = totalPooled(post); err != nil {
		return nil, err
	}
	return t, nil
}

// totalPooled is State.TotalPooledEther reporting overflow as an invalid report.
func totalPooled(s ledger.State) (*uint256.Int, error) {
	total := new(big.Int).SetUint64(s.DepositedValidators - s.CLValidators)
	total.Mul(total, lsp.DepositSize.ToBig())
	total.Add(total, s.BufferedEther.ToBig())
	total.Add(total, s.CLBalance.ToBig())
	v, ok := lsp.BigToUint256(total)
	if !ok {
		return nil, reverts.New(reverts.KindInvalidReport, "total pooled ether overflow")
	}
	return v, nil
}

func observeRebase(preTotalPooled, preTotalShares, postTotalPooled, postTotalShares *uint256.Int) {
	pre := ledger.ShareRate(preTotalPooled, preTotalShares).ToBig()
	post := ledger.ShareRate(postTotalPooled, postTotalShares).ToBig()
	if pre.Sign() == 0 {
		return
	}
	change := new(big.Int).Sub(post, pre)
	direction := "up"
	if change.Sign() < 0 {
		direction = "down"
		change.Neg(change)
	}
	change.Mul(change, big.NewInt(lsp.TotalBasisPoints)).Quo(change, pre)
	if change.IsInt64() {
		metricRebaseChange().ObserveWithLabels(change.Int64(), map[string]string{"direction": direction})
	}
}

func rejectReason(err error) string {
	var violation *reverts.SanityViolation
	if errors.As(err, &violation) {
		return string(violation.Reason)
	}
	return reverts.KindOf(err).String()
}
