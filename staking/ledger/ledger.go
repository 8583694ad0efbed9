// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/lsp/kv"
	"github.com/vechain/lsp/log"
	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking/delta"
	"github.com/vechain/lsp/staking/reverts"
	"github.com/vechain/lsp/staking/stakelimit"
)

var (
	logger = log.WithContext("pkg", "ledger")

	stateBucket  = kv.Bucket("l")
	sharesBucket = kv.Bucket("s")
	stateKey     = []byte("state")
)

// System accounts holding shares on behalf of the pool.
var (
	// BurnerAccount holds shares requested to burn until a report burns them.
	BurnerAccount = lsp.BytesToAddress([]byte("lsp.burner"))
	// WithdrawalEscrowAccount holds shares of pending withdrawal requests.
	WithdrawalEscrowAccount = lsp.BytesToAddress([]byte("lsp.withdrawal-queue"))
)

// Ledger is the canonical accounting state of the pool.
//
// It is not safe for concurrent use, the owner serializes all calls. Every mutation is
// staged on a copy, persisted, and only then made visible.
type Ledger struct {
	state        State
	shares       map[lsp.Address]*uint256.Int
	holdersTotal *uint256.Int

	store kv.Store
}

// New creates an empty in-memory ledger.
func New() *Ledger {
	return &Ledger{
		state:        newState(),
		shares:       make(map[lsp.Address]*uint256.Int),
		holdersTotal: new(uint256.Int),
	}
}

// Load opens the ledger persisted in store, or an empty one backed by store.
func Load(store kv.Store) (*Ledger, error) {
	l := New()
	l.store = store

	data, err := store.Get(stateBucket.Key(stateKey))
	if err != nil {
		if store.IsNotFound(err) {
			return l, nil
		}
		return nil, errors.Wrap(err, "load ledger state")
	}
	if err := rlp.DecodeBytes(data, &l.state); err != nil {
		return nil, errors.Wrap(err, "decode ledger state")
	}

	if err := sharesBucket.NewStore(store).Iterate(nil, func(key, value []byte) bool {
		shares := new(uint256.Int).SetBytes(value)
		l.shares[lsp.BytesToAddress(key)] = shares
		l.holdersTotal.Add(l.holdersTotal, shares)
		return true
	}); err != nil {
		return nil, errors.Wrap(err, "load holder shares")
	}

	l.assertInvariants()
	logger.Debug("loaded ledger", "holders", len(l.shares), "totalShares", l.state.TotalShares)
	return l, nil
}

//
// Getters - no state change
//

// Snapshot returns a deep copy of the pool wide state.
func (l *Ledger) Snapshot() State {
	return l.state.Copy()
}

func (l *Ledger) BufferedEther() *uint256.Int        { return clone(l.state.BufferedEther) }
func (l *Ledger) DepositedValidators() uint64        { return l.state.DepositedValidators }
func (l *Ledger) CLValidators() uint64               { return l.state.CLValidators }
func (l *Ledger) CLBalance() *uint256.Int            { return clone(l.state.CLBalance) }
func (l *Ledger) TotalShares() *uint256.Int          { return clone(l.state.TotalShares) }
func (l *Ledger) RewardIncome() *uint256.Int         { return clone(l.state.RewardIncome) }
func (l *Ledger) WithdrawalIncome() *uint256.Int     { return clone(l.state.WithdrawalIncome) }
func (l *Ledger) LockedForWithdrawals() *uint256.Int { return clone(l.state.LockedForWithdrawals) }
func (l *Ledger) LastReportTimestamp() uint64        { return l.state.LastReportTimestamp }
func (l *Ledger) StakeLimit() stakelimit.Data        { return l.state.StakeLimit.Copy() }
func (l *Ledger) TotalPooledEther() *uint256.Int     { return l.state.TotalPooledEther() }
func (l *Ledger) ShareRate() *uint256.Int            { return l.state.ShareRate() }

func (l *Ledger) SharesForEther(amount *uint256.Int) *uint256.Int {
	return l.state.SharesForEther(amount)
}

func (l *Ledger) EtherForShares(shares *uint256.Int) *uint256.Int {
	return l.state.EtherForShares(shares)
}

// SharesOf returns the share balance of a holder.
func (l *Ledger) SharesOf(holder lsp.Address) *uint256.Int {
	return clone(l.shares[holder])
}

// PendingBurnShares returns the shares waiting to be burned by the next report.
func (l *Ledger) PendingBurnShares() *uint256.Int {
	return l.SharesOf(BurnerAccount)
}

// Holders returns a copy of all non-zero holder balances.
func (l *Ledger) Holders() map[lsp.Address]*uint256.Int {
	out := make(map[lsp.Address]*uint256.Int, len(l.shares))
	for addr, v := range l.shares {
		out[addr] = clone(v)
	}
	return out
}

//
// Setters - state change
//

// ApplyDeposit mints shares for amount at the pre-deposit rate and buffers the ether.
// The deposit consumes stake limit capacity at the given block.
func (l *Ledger) ApplyDeposit(holder lsp.Address, amount *uint256.Int, block uint64) (*uint256.Int, error) {
	if amount == nil || amount.IsZero() {
		return nil, reverts.ErrZeroAmount
	}

	limit, err := l.state.StakeLimit.Consume(amount, block)
	if err != nil {
		return nil, err
	}

	shares := l.state.SharesForEther(amount)
	if shares.IsZero() {
		return nil, reverts.New(reverts.KindZeroAmount, "deposit too small to mint shares")
	}

	st := l.stage()
	st.state.StakeLimit = limit
	if _, overflow := st.state.BufferedEther.AddOverflow(st.state.BufferedEther, amount); overflow {
		return nil, reverts.New(reverts.KindInvalidRequest, "buffered ether overflow")
	}
	if err := st.mint(holder, shares); err != nil {
		return nil, err
	}

	if err := l.apply(st); err != nil {
		return nil, err
	}
	return shares, nil
}

// DepositBufferedEther moves count validator deposits out of the buffer.
func (l *Ledger) DepositBufferedEther(count uint64) (*uint256.Int, error) {
	if count == 0 {
		return nil, reverts.ErrZeroAmount
	}
	amount, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(count), lsp.DepositSize)
	if overflow || amount.Gt(l.state.BufferedEther) {
		return nil, reverts.Errorf(reverts.KindInvalidRequest, "insufficient buffered ether for %d deposits", count)
	}

	st := l.stage()
	st.state.BufferedEther.Sub(st.state.BufferedEther, amount)
	st.state.DepositedValidators += count

	if err := l.apply(st); err != nil {
		return nil, err
	}
	return amount, nil
}

// SetDepositedValidators overrides the deposited validator count. It is an emergency
// correction and the only way to decrease the count.
func (l *Ledger) SetDepositedValidators(count uint64) error {
	if count < l.state.CLValidators {
		return reverts.Errorf(reverts.KindInvalidRequest, "deposited validators %d below reported %d", count, l.state.CLValidators)
	}
	st := l.stage()
	st.state.DepositedValidators = count
	return l.apply(st)
}

// SetStakeLimit replaces the stake limit state.
func (l *Ledger) SetStakeLimit(limit stakelimit.Data) error {
	st := l.stage()
	st.state.StakeLimit = limit.Copy()
	return l.apply(st)
}

// ReceiveRewardIncome tracks ether arriving from the execution layer reward vault.
func (l *Ledger) ReceiveRewardIncome(amount *uint256.Int) error {
	return l.receive(amount, func(s *State) *uint256.Int { return s.RewardIncome })
}

// ReceiveWithdrawalIncome tracks ether arriving from validator withdrawals.
func (l *Ledger) ReceiveWithdrawalIncome(amount *uint256.Int) error {
	return l.receive(amount, func(s *State) *uint256.Int { return s.WithdrawalIncome })
}

func (l *Ledger) receive(amount *uint256.Int, balance func(*State) *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return reverts.ErrZeroAmount
	}
	st := l.stage()
	b := balance(&st.state)
	if _, overflow := b.AddOverflow(b, amount); overflow {
		return reverts.New(reverts.KindInvalidRequest, "income overflow")
	}
	return l.apply(st)
}

// MoveShares transfers shares between holders. It backs burn and withdrawal requests.
func (l *Ledger) MoveShares(from, to lsp.Address, shares *uint256.Int, changes ...kv.Staged) error {
	if shares == nil || shares.IsZero() {
		return reverts.ErrZeroAmount
	}
	st := l.stage()
	if err := st.burn(from, shares); err != nil {
		return err
	}
	if err := st.mint(to, shares); err != nil {
		return err
	}
	return l.apply(st, changes...)
}

// ReleaseLocked pays out ether locked for finalized withdrawals.
func (l *Ledger) ReleaseLocked(amount *uint256.Int, changes ...kv.Staged) error {
	if amount == nil || amount.IsZero() {
		return reverts.ErrZeroAmount
	}
	if amount.Gt(l.state.LockedForWithdrawals) {
		return reverts.Errorf(reverts.KindInvalidRequest, "release %s exceeds locked %s", amount, l.state.LockedForWithdrawals)
	}
	st := l.stage()
	st.state.LockedForWithdrawals.Sub(st.state.LockedForWithdrawals, amount)
	return l.apply(st, changes...)
}

// Persist writes changes of collaborators sharing the ledger store without touching the ledger.
func (l *Ledger) Persist(changes ...kv.Staged) error {
	return l.apply(l.stage(), changes...)
}

// CommitReportState writes the post-state of a report cycle together with changes,
// the settlement of the withdrawal queue in practice, in one batch.
// The report is produced by the rebase engine and any inconsistency is a defect.
func (l *Ledger) CommitReportState(r *delta.Report, changes ...kv.Staged) error {
	if r.CLValidators > l.state.DepositedValidators {
		panic(fmt.Sprintf("ledger: reported validators %d exceed deposited %d", r.CLValidators, l.state.DepositedValidators))
	}
	if r.Timestamp <= l.state.LastReportTimestamp {
		panic(fmt.Sprintf("ledger: report timestamp %d not after %d", r.Timestamp, l.state.LastReportTimestamp))
	}

	st := l.stage()
	st.state.LastReportTimestamp = r.Timestamp
	st.state.CLValidators = r.CLValidators
	st.state.CLBalance = clone(r.CLBalance)
	st.state.BufferedEther = clone(r.BufferedEther)
	st.state.RewardIncome = clone(r.RewardIncome)
	st.state.WithdrawalIncome = clone(r.WithdrawalIncome)
	st.state.LockedForWithdrawals = clone(r.LockedForWithdrawals)

	for _, m := range r.Mints {
		if err := st.mint(m.Holder, m.Shares); err != nil {
			panic(fmt.Sprintf("ledger: mint %s to %s: %v", m.Shares, m.Holder, err))
		}
	}
	for _, b := range r.Burns {
		if err := st.burn(b.Holder, b.Shares); err != nil {
			panic(fmt.Sprintf("ledger: burn %s from %s: %v", b.Shares, b.Holder, err))
		}
	}
	if !st.state.TotalShares.Eq(r.TotalShares) {
		panic(fmt.Sprintf("ledger: total shares %s, report says %s", st.state.TotalShares, r.TotalShares))
	}

	return l.apply(st, changes...)
}

// stage is a pending mutation of the ledger.
type stage struct {
	l      *Ledger
	state  State
	shares map[lsp.Address]*uint256.Int
}

func (l *Ledger) stage() *stage {
	return &stage{
		l:      l,
		state:  l.state.Copy(),
		shares: make(map[lsp.Address]*uint256.Int),
	}
}

func (st *stage) sharesOf(holder lsp.Address) *uint256.Int {
	if v, ok := st.shares[holder]; ok {
		return v
	}
	v := clone(st.l.shares[holder])
	st.shares[holder] = v
	return v
}

func (st *stage) mint(holder lsp.Address, shares *uint256.Int) error {
	if _, overflow := st.state.TotalShares.AddOverflow(st.state.TotalShares, shares); overflow {
		return reverts.New(reverts.KindInvalidRequest, "total shares overflow")
	}
	balance := st.sharesOf(holder)
	balance.Add(balance, shares)
	return nil
}

func (st *stage) burn(holder lsp.Address, shares *uint256.Int) error {
	balance := st.sharesOf(holder)
	if shares.Gt(balance) {
		return reverts.Errorf(reverts.KindInvalidRequest, "insufficient shares: have %s, want %s", balance, shares)
	}
	balance.Sub(balance, shares)
	st.state.TotalShares.Sub(st.state.TotalShares, shares)
	return nil
}

// apply persists the stage with changes in one batch and then makes all of them visible.
func (l *Ledger) apply(st *stage, changes ...kv.Staged) error {
	if l.store != nil {
		data, err := rlp.EncodeToBytes(&st.state)
		if err != nil {
			return errors.Wrap(err, "encode ledger state")
		}

		batch := l.store.NewBatch()
		if err := batch.Put(stateBucket.Key(stateKey), data); err != nil {
			return err
		}
		for addr, v := range st.shares {
			if v.IsZero() {
				err = batch.Delete(sharesBucket.Key(addr.Bytes()))
			} else {
				err = batch.Put(sharesBucket.Key(addr.Bytes()), v.Bytes())
			}
			if err != nil {
				return err
			}
		}
		for _, c := range changes {
			if err := c.Stage(batch); err != nil {
				return err
			}
		}
		if err := batch.Write(); err != nil {
			return errors.Wrap(err, "write ledger")
		}
	}

	l.state = st.state
	for addr, v := range st.shares {
		l.holdersTotal.Sub(l.holdersTotal, clone(l.shares[addr]))
		l.holdersTotal.Add(l.holdersTotal, v)
		if v.IsZero() {
			delete(l.shares, addr)
		} else {
			l.shares[addr] = v
		}
	}
	for _, c := range changes {
		c.Commit()
	}
	l.assertInvariants()
	return nil
}

func (l *Ledger) assertInvariants() {
	if l.state.CLValidators > l.state.DepositedValidators {
		panic(fmt.Sprintf("ledger: reported validators %d exceed deposited %d", l.state.CLValidators, l.state.DepositedValidators))
	}
	if !l.holdersTotal.Eq(l.state.TotalShares) {
		panic(fmt.Sprintf("ledger: holder shares %s differ from total shares %s", l.holdersTotal, l.state.TotalShares))
	}
}
