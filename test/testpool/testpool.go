// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package testpool builds pools wired to in-memory collaborators for tests outside the staking package.
package testpool

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking"
	"github.com/vechain/lsp/staking/acl"
	"github.com/vechain/lsp/staking/ledger"
	"github.com/vechain/lsp/staking/sanity"
	"github.com/vechain/lsp/staking/withdrawals"
)

const Day = 24 * 60 * 60

var (
	// Oracle is the designated oracle of every test pool.
	Oracle = lsp.BytesToAddress([]byte("oracle"))
	// Admin holds every role.
	Admin = lsp.BytesToAddress([]byte("admin"))
)

// Pool is a staking pool with a manual clock.
type Pool struct {
	*staking.Pool
	Clock  *lsp.ManualClock
	Roles  *acl.Roles
	Ledger *ledger.Ledger
	Queue  *withdrawals.Queue
}

// Option adjusts the pool config.
type Option func(*staking.Config)

// New creates an unlimited, resumed pool. The pool is closed on test cleanup.
func New(t testing.TB, opts ...Option) *Pool {
	clock := lsp.NewManualClock(1_700_000_000, 100)

	roles := acl.NewRoles()
	for _, r := range acl.AllRoles {
		require.NoError(t, roles.Grant(r, Admin))
	}

	cfg := staking.Config{
		Oracle:       Oracle,
		SanityLimits: sanity.DefaultLimits,
		StakeLimit:   &staking.StakeLimitConfig{},
	}
	for _, o := range opts {
		o(&cfg)
	}

	l := ledger.New()
	q := withdrawals.NewQueue()
	p, err := staking.New(l, q, roles, clock, cfg)
	require.NoError(t, err)
	t.Cleanup(p.Close)

	return &Pool{Pool: p, Clock: clock, Roles: roles, Ledger: l, Queue: q}
}

// NextReport advances the clock by elapsed seconds and returns a report stamped now.
func (p *Pool) NextReport(elapsed, clValidators uint64, clBalance *uint256.Int) *staking.Report {
	p.Clock.Advance(elapsed / lsp.BlockInterval)
	return &staking.Report{
		Timestamp:    p.Clock.Now(),
		TimeElapsed:  elapsed,
		CLValidators: clValidators,
		CLBalance:    clBalance,
	}
}

// Commit fills the simulated share rate and submits the report as the oracle.
func (p *Pool) Commit(t testing.TB, r *staking.Report) *staking.ReportResult {
	sim, err := p.SimulateReport(r)
	require.NoError(t, err)
	r.SimulatedShareRate = sim.ShareRate

	res, err := p.HandleReport(Oracle, r)
	require.NoError(t, err)
	return res
}

// Bootstrap deposits 32 ether for holder, sends it to one validator and confirms it with a report.
func (p *Pool) Bootstrap(t testing.TB, holder lsp.Address) {
	_, err := p.Submit(holder, lsp.Ethers(32), lsp.Address{})
	require.NoError(t, err)
	_, err = p.DepositBufferedEther(Admin, 1)
	require.NoError(t, err)
	p.Commit(t, p.NextReport(Day, 1, lsp.Ethers(32)))
}
