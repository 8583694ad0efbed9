// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/event"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/lsp/co"
	"github.com/vechain/lsp/log"
	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking/acl"
	"github.com/vechain/lsp/staking/fees"
	"github.com/vechain/lsp/staking/ledger"
	"github.com/vechain/lsp/staking/reverts"
	"github.com/vechain/lsp/staking/sanity"
	"github.com/vechain/lsp/staking/types"
	"github.com/vechain/lsp/staking/withdrawals"
)

var logger = log.WithContext("pkg", "staking")

// Report is the oracle report handled by the pool.
type Report = types.Report

// WithdrawalQueue is the withdrawal collaborator of the pool. It settles requests during
// report cycles and tracks requests between them. Its changes are written together with
// the ledger, so a persisted queue shares the ledger store.
type WithdrawalQueue interface {
	withdrawals.Adapter
	PrepareEnqueue(owner lsp.Address, shares, etherAtRequest *uint256.Int, timestamp uint64) (*withdrawals.Change, error)
	Claimable(id uint64, owner lsp.Address) (*withdrawals.Request, error)
	PrepareClaim(id uint64) (*withdrawals.Change, error)
	Request(id uint64) (*withdrawals.Request, error)
	RequestsOf(owner lsp.Address) []*withdrawals.Request
}

// StakeLimitConfig is the stake limit applied to a fresh ledger.
type StakeLimitConfig struct {
	MaxLimit       *uint256.Int `yaml:"maxLimit" json:"maxLimit"`
	GrowthPerBlock *uint256.Int `yaml:"growthPerBlock" json:"growthPerBlock"`
	Paused         bool         `yaml:"paused" json:"paused"`
}

// Config holds the governance parameters of a pool.
type Config struct {
	Oracle       lsp.Address       `yaml:"oracle"`
	Fees         fees.Table        `yaml:"fees"`
	SanityLimits sanity.Limits     `yaml:"sanityLimits"`
	StakeLimit   *StakeLimitConfig `yaml:"stakeLimit"`
}

// Pool is the liquid staking pool. It owns the ledger and runs deposits, report cycles
// and governance operations against it, one at a time.
type Pool struct {
	lock        sync.RWMutex
	phase       atomic.Uint32
	clock       lsp.Clock
	ledger      *ledger.Ledger
	queue       WithdrawalQueue
	authority   acl.Authority
	checker     *sanity.Checker
	distributor *fees.Distributor
	oracle      lsp.Address

	rebaseFeed  event.Feed
	depositFeed event.Feed
	scope       event.SubscriptionScope
	notify      *co.Serial
}

// New creates a pool over the given ledger and withdrawal queue.
// The stake limit of the config is applied only when the ledger is fresh.
func New(l *ledger.Ledger, queue WithdrawalQueue, authority acl.Authority, clock lsp.Clock, cfg Config) (*Pool, error) {
	checker, err := sanity.New(cfg.SanityLimits)
	if err != nil {
		return nil, errors.Wrap(err, "sanity limits")
	}
	distributor, err := fees.NewDistributor(cfg.Fees)
	if err != nil {
		return nil, errors.Wrap(err, "fee table")
	}

	p := &Pool{
		clock:       clock,
		ledger:      l,
		queue:       queue,
		authority:   authority,
		checker:     checker,
		distributor: distributor,
		oracle:      cfg.Oracle,
		notify:      co.NewSerial(),
	}

	if cfg.StakeLimit != nil && isFresh(l.Snapshot()) {
		if err := p.initStakeLimit(cfg.StakeLimit); err != nil {
			p.Close()
			return nil, errors.Wrap(err, "stake limit")
		}
	}
	updatePoolGauges(l.Snapshot())
	return p, nil
}

func isFresh(s ledger.State) bool {
	return s.TotalShares.IsZero() && s.DepositedValidators == 0 && s.LastReportTimestamp == 0
}

func (p *Pool) initStakeLimit(cfg *StakeLimitConfig) error {
	block := p.clock.BlockNumber()
	limit := p.ledger.StakeLimit().Resume(block)
	if cfg.MaxLimit != nil && !cfg.MaxLimit.IsZero() {
		growth := cfg.GrowthPerBlock
		if growth == nil {
			growth = new(uint256.Int)
		}
		var err error
		if limit, err = limit.SetLimit(cfg.MaxLimit, growth, block); err != nil {
			return err
		}
	}
	if cfg.Paused {
		limit = limit.Pause()
	}
	logger.Info("stake limit initialized", "max", cfg.MaxLimit, "growth", cfg.GrowthPerBlock, "paused", cfg.Paused)
	return p.ledger.SetStakeLimit(limit)
}

// Close stops event delivery and waits for pending notifications.
func (p *Pool) Close() {
	p.scope.Close()
	p.notify.Close()
}

// SubscribeRebase registers ch to receive a RebaseEvent for every committed report.
func (p *Pool) SubscribeRebase(ch chan *RebaseEvent) event.Subscription {
	return p.scope.Track(p.rebaseFeed.Subscribe(ch))
}

// SubscribeDeposit registers ch to receive a DepositEvent for every deposit.
func (p *Pool) SubscribeDeposit(ch chan *DepositEvent) event.Subscription {
	return p.scope.Track(p.depositFeed.Subscribe(ch))
}

// Snapshot returns a copy of the ledger state.
func (p *Pool) Snapshot() ledger.State {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return p.ledger.Snapshot()
}

// SharesOf returns the shares held by holder.
func (p *Pool) SharesOf(holder lsp.Address) *uint256.Int {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return p.ledger.SharesOf(holder)
}

// EtherOf returns the ether value of the shares held by holder.
func (p *Pool) EtherOf(holder lsp.Address) *uint256.Int {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return p.ledger.EtherForShares(p.ledger.SharesOf(holder))
}

// Oracle returns the address allowed to submit reports.
func (p *Pool) Oracle() lsp.Address {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return p.oracle
}

// Summary returns a view of the pool for reporting.
func (p *Pool) Summary() *Summary {
	p.lock.RLock()
	defer p.lock.RUnlock()

	s := p.ledger.Snapshot()
	block := p.clock.BlockNumber()
	return &Summary{
		BufferedEther:        s.BufferedEther,
		DepositedValidators:  s.DepositedValidators,
		CLValidators:         s.CLValidators,
		CLBalance:            s.CLBalance,
		TransientBalance:     s.TransientBalance(),
		TotalPooledEther:     s.TotalPooledEther(),
		TotalShares:          s.TotalShares,
		ShareRate:            s.ShareRate(),
		RewardIncome:         s.RewardIncome,
		WithdrawalIncome:     s.WithdrawalIncome,
		LockedForWithdrawals: s.LockedForWithdrawals,
		PendingBurnShares:    p.ledger.PendingBurnShares(),
		LastReportTimestamp:  s.LastReportTimestamp,
		StakingPaused:        s.StakeLimit.IsPaused(),
		StakeLimit: StakeLimit{
			MaxLimit:       s.StakeLimit.MaxLimit,
			GrowthPerBlock: s.StakeLimit.GrowthPerBlock,
			Current:        s.StakeLimit.CurrentLimit(block),
		},
		LastRequestID:   p.queue.LastRequestID(),
		LastFinalizedID: p.queue.LastFinalizedID(),
		Oracle:          p.oracle,
		Fees:            p.distributor.Table(),
		SanityLimits:    p.checker.Limits(),
		Phase:           p.Phase(),
	}
}

// Submit deposits amount on behalf of depositor and returns the minted shares.
func (p *Pool) Submit(depositor lsp.Address, amount *uint256.Int, referral lsp.Address) (*uint256.Int, error) {
	logger.Debug("submit", "depositor", depositor, "amount", amount, "referral", referral)

	p.lock.Lock()
	block := p.clock.BlockNumber()
	shares, err := p.ledger.ApplyDeposit(depositor, amount, block)
	if err != nil {
		p.lock.Unlock()
		logger.Debug("deposit rejected", "depositor", depositor, "error", err)
		return nil, err
	}
	snapshot := p.ledger.Snapshot()
	ev := &DepositEvent{
		Depositor:   depositor,
		Amount:      new(uint256.Int).Set(amount),
		Shares:      new(uint256.Int).Set(shares),
		Referral:    referral,
		Timestamp:   p.clock.Now(),
		BlockNumber: block,
	}
	// queued under the lock so listeners see deposits in commit order
	p.notify.Queue(func() {
		p.depositFeed.Send(ev)
	})
	p.lock.Unlock()

	metricDepositCount().Add(1)
	metricDepositedGwei().Add(lsp.ToGwei(amount))
	updatePoolGauges(snapshot)
	logger.Info("deposit accepted", "depositor", depositor, "amount", amount, "shares", shares)
	return shares, nil
}

// ReceiveRewardIncome records execution layer rewards paid into the pool.
func (p *Pool) ReceiveRewardIncome(amount *uint256.Int) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if err := p.ledger.ReceiveRewardIncome(amount); err != nil {
		return err
	}
	logger.Debug("reward income received", "amount", amount)
	return nil
}

// ReceiveWithdrawalIncome records ether withdrawn from validators into the pool.
func (p *Pool) ReceiveWithdrawalIncome(amount *uint256.Int) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if err := p.ledger.ReceiveWithdrawalIncome(amount); err != nil {
		return err
	}
	logger.Debug("withdrawal income received", "amount", amount)
	return nil
}

// RequestBurn hands shares of holder to the burner. They stop counting as the holder's and
// are burned by the next report which includes them.
func (p *Pool) RequestBurn(holder lsp.Address, shares *uint256.Int) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if err := p.ledger.MoveShares(holder, ledger.BurnerAccount, shares); err != nil {
		return err
	}
	logger.Info("burn requested", "holder", holder, "shares", shares)
	return nil
}

// RequestWithdrawal escrows shares of owner and queues a request to redeem them.
func (p *Pool) RequestWithdrawal(owner lsp.Address, shares *uint256.Int) (*withdrawals.Request, error) {
	if shares == nil || shares.IsZero() {
		return nil, reverts.ErrZeroAmount
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	if balance := p.ledger.SharesOf(owner); shares.Gt(balance) {
		return nil, reverts.Errorf(reverts.KindInvalidRequest, "insufficient shares: have %s, want %s", balance, shares)
	}
	amount := p.ledger.EtherForShares(shares)
	if amount.IsZero() {
		return nil, reverts.New(reverts.KindZeroAmount, "shares worth no ether")
	}

	change, err := p.queue.PrepareEnqueue(owner, shares, amount, p.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := p.ledger.MoveShares(owner, ledger.WithdrawalEscrowAccount, shares, change); err != nil {
		return nil, err
	}
	req := change.Request()
	logger.Info("withdrawal requested", "id", req.ID, "owner", owner, "shares", shares, "ether", amount)
	return req, nil
}

// ClaimWithdrawal pays out a finalized request and returns the amount paid.
func (p *Pool) ClaimWithdrawal(owner lsp.Address, id uint64) (*uint256.Int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	req, err := p.queue.Claimable(id, owner)
	if err != nil {
		return nil, err
	}
	change, err := p.queue.PrepareClaim(id)
	if err != nil {
		return nil, err
	}
	if req.Payout.IsZero() {
		err = p.ledger.Persist(change)
	} else {
		err = p.ledger.ReleaseLocked(req.Payout, change)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("withdrawal claimed", "id", id, "owner", owner, "payout", req.Payout)
	return req.Payout, nil
}

// WithdrawalRequest returns the request with the given id.
func (p *Pool) WithdrawalRequest(id uint64) (*withdrawals.Request, error) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return p.queue.Request(id)
}

// WithdrawalRequestsOf returns the requests of owner.
func (p *Pool) WithdrawalRequestsOf(owner lsp.Address) []*withdrawals.Request {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return p.queue.RequestsOf(owner)
}
