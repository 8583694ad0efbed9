// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/lsp/kv"
	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/lvldb"
	"github.com/vechain/lsp/staking/delta"
	"github.com/vechain/lsp/staking/reverts"
	"github.com/vechain/lsp/staking/stakelimit"
)

var (
	alice    = lsp.BytesToAddress([]byte("alice"))
	bob      = lsp.BytesToAddress([]byte("bob"))
	treasury = lsp.BytesToAddress([]byte("treasury"))
)

func eth(n uint64) *uint256.Int { return lsp.Ethers(n) }

func newLedger(t *testing.T) *Ledger {
	l := New()
	require.NoError(t, l.SetStakeLimit(stakelimit.Paused().Resume(1)))
	return l
}

func TestDepositScenario(t *testing.T) {
	l := newLedger(t)

	shares, err := l.ApplyDeposit(alice, eth(32), 1)
	require.NoError(t, err)
	assert.Equal(t, eth(32), shares)

	shares, err = l.ApplyDeposit(bob, eth(32), 2)
	require.NoError(t, err)
	assert.Equal(t, eth(32), shares)

	assert.Equal(t, eth(64), l.TotalShares())
	assert.Equal(t, eth(64), l.BufferedEther())
	assert.Equal(t, eth(64), l.TotalPooledEther())
	assert.Equal(t, lsp.ShareRatePrecision, l.ShareRate())
	assert.Equal(t, eth(32), l.SharesOf(alice))
	assert.Len(t, l.Holders(), 2)
}

func TestDepositRejected(t *testing.T) {
	l := New()
	_, err := l.ApplyDeposit(alice, eth(1), 1)
	assert.True(t, errors.Is(err, reverts.ErrStakingPaused))

	l = newLedger(t)
	_, err = l.ApplyDeposit(alice, new(uint256.Int), 1)
	assert.True(t, errors.Is(err, reverts.ErrZeroAmount))

	limit, err := l.StakeLimit().SetLimit(eth(10), eth(1), 1)
	require.NoError(t, err)
	require.NoError(t, l.SetStakeLimit(limit))

	before := l.Snapshot()
	_, err = l.ApplyDeposit(alice, eth(11), 1)
	assert.True(t, errors.Is(err, reverts.ErrLimitExceeded))
	assert.Equal(t, before, l.Snapshot())

	_, err = l.ApplyDeposit(alice, eth(10), 1)
	require.NoError(t, err)
	assert.True(t, l.StakeLimit().CurrentLimit(1).IsZero())
	assert.Equal(t, eth(3), l.StakeLimit().CurrentLimit(4))
}

func TestDepositFloorRounding(t *testing.T) {
	l := newLedger(t)
	_, err := l.ApplyDeposit(alice, eth(10), 1)
	require.NoError(t, err)

	// rate 1.5 after a report of 5 ETH reward on one validator
	_, err = l.DepositBufferedEther(0)
	assert.True(t, errors.Is(err, reverts.ErrZeroAmount))
	require.NoError(t, l.ReceiveWithdrawalIncome(eth(5)))
	require.NoError(t, l.CommitReportState(&delta.Report{
		Timestamp:            100,
		CLBalance:            new(uint256.Int),
		BufferedEther:        eth(15),
		RewardIncome:         new(uint256.Int),
		WithdrawalIncome:     new(uint256.Int),
		LockedForWithdrawals: new(uint256.Int),
		TotalShares:          eth(10),
	}))
	assert.Equal(t, eth(15), l.TotalPooledEther())

	prevTotal := l.TotalShares()
	for _, amount := range []uint64{2, 3, 7, 1_000_000_007} {
		shares, err := l.ApplyDeposit(bob, uint256.NewInt(amount), 2)
		require.NoError(t, err)
		// floor(amount * 2 / 3) never exceeds the amount at a rate above one
		assert.True(t, shares.Lt(uint256.NewInt(amount)))
		assert.True(t, l.TotalShares().Gt(prevTotal))
		prevTotal = l.TotalShares()
	}

	// a single wei buys no share at rate 1.5
	shares := l.SharesForEther(uint256.NewInt(1))
	assert.True(t, shares.IsZero())
	_, err = l.ApplyDeposit(bob, uint256.NewInt(1), 2)
	assert.True(t, errors.Is(err, reverts.ErrZeroAmount))
}

func TestDepositBufferedEther(t *testing.T) {
	l := newLedger(t)
	_, err := l.ApplyDeposit(alice, eth(70), 1)
	require.NoError(t, err)

	_, err = l.DepositBufferedEther(3)
	assert.True(t, errors.Is(err, reverts.ErrInvalidRequest))

	amount, err := l.DepositBufferedEther(2)
	require.NoError(t, err)
	assert.Equal(t, eth(64), amount)
	assert.Equal(t, eth(6), l.BufferedEther())
	assert.Equal(t, uint64(2), l.DepositedValidators())
	assert.Equal(t, eth(64), l.Snapshot().TransientBalance())
	// pooled value is unchanged by deposits
	assert.Equal(t, eth(70), l.TotalPooledEther())

	require.NoError(t, l.SetDepositedValidators(1))
	assert.Equal(t, eth(38), l.TotalPooledEther())
}

func TestMoveSharesAndRelease(t *testing.T) {
	l := newLedger(t)
	_, err := l.ApplyDeposit(alice, eth(5), 1)
	require.NoError(t, err)

	err = l.MoveShares(alice, BurnerAccount, eth(6))
	assert.True(t, errors.Is(err, reverts.ErrInvalidRequest))

	require.NoError(t, l.MoveShares(alice, BurnerAccount, eth(2)))
	assert.Equal(t, eth(2), l.PendingBurnShares())
	assert.Equal(t, eth(3), l.SharesOf(alice))
	assert.Equal(t, eth(5), l.TotalShares())

	require.NoError(t, l.MoveShares(alice, WithdrawalEscrowAccount, eth(3)))
	assert.True(t, l.SharesOf(alice).IsZero())
	assert.NotContains(t, l.Holders(), alice)

	err = l.ReleaseLocked(eth(1))
	assert.True(t, errors.Is(err, reverts.ErrInvalidRequest))
}

func TestCommitReportState(t *testing.T) {
	l := newLedger(t)
	_, err := l.ApplyDeposit(alice, eth(64), 1)
	require.NoError(t, err)
	_, err = l.DepositBufferedEther(2)
	require.NoError(t, err)
	require.NoError(t, l.MoveShares(alice, BurnerAccount, eth(1)))

	r := &delta.Report{
		Timestamp:            10,
		CLValidators:         2,
		CLBalance:            eth(65),
		BufferedEther:        new(uint256.Int),
		RewardIncome:         new(uint256.Int),
		WithdrawalIncome:     new(uint256.Int),
		LockedForWithdrawals: new(uint256.Int),
		TotalShares:          new(uint256.Int).Add(eth(63), uint256.NewInt(500)),
		Mints:                []delta.Share{{Holder: treasury, Shares: uint256.NewInt(500)}},
		Burns:                []delta.Share{{Holder: BurnerAccount, Shares: eth(1)}},
	}
	require.NoError(t, l.CommitReportState(r))

	assert.Equal(t, uint64(10), l.LastReportTimestamp())
	assert.Equal(t, uint64(2), l.CLValidators())
	assert.Equal(t, eth(65), l.CLBalance())
	assert.Equal(t, uint256.NewInt(500), l.SharesOf(treasury))
	assert.True(t, l.PendingBurnShares().IsZero())

	// a replay of the same report is a defect of the caller
	assert.Panics(t, func() { _ = l.CommitReportState(r) })

	bad := *r
	bad.Timestamp = 11
	bad.Mints = nil
	bad.Burns = nil
	bad.TotalShares = eth(1)
	assert.Panics(t, func() { _ = l.CommitReportState(&bad) })

	bad.TotalShares = l.TotalShares()
	bad.CLValidators = 3
	assert.Panics(t, func() { _ = l.CommitReportState(&bad) })
}

func TestPersistence(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	l, err := Load(db)
	require.NoError(t, err)
	require.NoError(t, l.SetStakeLimit(stakelimit.Paused().Resume(1)))

	_, err = l.ApplyDeposit(alice, eth(40), 1)
	require.NoError(t, err)
	_, err = l.ApplyDeposit(bob, eth(2), 1)
	require.NoError(t, err)
	_, err = l.DepositBufferedEther(1)
	require.NoError(t, err)
	require.NoError(t, l.ReceiveRewardIncome(eth(1)))
	require.NoError(t, l.MoveShares(bob, BurnerAccount, eth(2)))

	reloaded, err := Load(db)
	require.NoError(t, err)

	assert.Equal(t, l.Snapshot(), reloaded.Snapshot())
	assert.Equal(t, l.Holders(), reloaded.Holders())
	assert.True(t, reloaded.SharesOf(bob).IsZero())
	assert.Equal(t, eth(2), reloaded.PendingBurnShares())
}

type stagedPut struct {
	key, value []byte
	err        error
	committed  bool
}

func (s *stagedPut) Stage(w kv.Putter) error {
	if s.err != nil {
		return s.err
	}
	return w.Put(s.key, s.value)
}

func (s *stagedPut) Commit() { s.committed = true }

func TestStagedChanges(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	l, err := Load(db)
	require.NoError(t, err)
	require.NoError(t, l.SetStakeLimit(stakelimit.Paused().Resume(1)))
	_, err = l.ApplyDeposit(alice, eth(10), 1)
	require.NoError(t, err)
	before := l.Snapshot()

	// a change failing to stage aborts the whole write
	bad := &stagedPut{key: []byte("x"), value: []byte("1"), err: errors.New("encode")}
	assert.Error(t, l.MoveShares(alice, WithdrawalEscrowAccount, eth(1), bad))
	assert.False(t, bad.committed)
	assert.Equal(t, before, l.Snapshot())
	has, err := db.Has([]byte("x"))
	require.NoError(t, err)
	assert.False(t, has)

	good := &stagedPut{key: []byte("x"), value: []byte("1")}
	require.NoError(t, l.MoveShares(alice, WithdrawalEscrowAccount, eth(1), good))
	assert.True(t, good.committed)
	v, err := db.Get([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
	assert.Equal(t, eth(1), l.SharesOf(WithdrawalEscrowAccount))

	alone := &stagedPut{key: []byte("y"), value: []byte("2")}
	require.NoError(t, l.Persist(alone))
	assert.True(t, alone.committed)
	has, err = db.Has([]byte("y"))
	require.NoError(t, err)
	assert.True(t, has)

	// in memory the change is committed with the ledger
	mem := newLedger(t)
	c := &stagedPut{key: []byte("z")}
	require.NoError(t, mem.Persist(c))
	assert.True(t, c.committed)
}
