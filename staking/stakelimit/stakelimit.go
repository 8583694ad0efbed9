// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package stakelimit implements the leaky bucket that throttles new deposits.
//
// The bucket is fully described by four values. Two sentinels encode the
// special states: PrevBlock == 0 means staking is paused and MaxLimit == 0
// means the limit is disabled.
package stakelimit

import (
	"github.com/holiman/uint256"

	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking/reverts"
)

// Data is the stake limit state. Methods never mutate the receiver.
type Data struct {
	MaxLimit       *uint256.Int
	GrowthPerBlock *uint256.Int
	PrevLimit      *uint256.Int
	PrevBlock      uint64
}

// Paused returns a disabled and paused limit, the state of a freshly created pool.
func Paused() Data {
	return Data{
		MaxLimit:       new(uint256.Int),
		GrowthPerBlock: new(uint256.Int),
		PrevLimit:      new(uint256.Int),
	}
}

// Copy returns a deep copy.
func (d Data) Copy() Data {
	return Data{
		MaxLimit:       clone(d.MaxLimit),
		GrowthPerBlock: clone(d.GrowthPerBlock),
		PrevLimit:      clone(d.PrevLimit),
		PrevBlock:      d.PrevBlock,
	}
}

func (d Data) IsPaused() bool {
	return d.PrevBlock == 0
}

// IsLimitSet reports whether deposits are throttled.
func (d Data) IsLimitSet() bool {
	return d.MaxLimit != nil && !d.MaxLimit.IsZero()
}

// CurrentLimit returns the amount that can be deposited at the given block.
// It is zero when paused and lsp.Unlimited when the limit is disabled.
func (d Data) CurrentLimit(block uint64) *uint256.Int {
	if d.IsPaused() {
		return new(uint256.Int)
	}
	if !d.IsLimitSet() {
		return new(uint256.Int).Set(lsp.Unlimited)
	}
	return d.grown(block)
}

// grown returns min(MaxLimit, PrevLimit + GrowthPerBlock * elapsed), ignoring the pause sentinel.
func (d Data) grown(block uint64) *uint256.Int {
	prev := clone(d.PrevLimit)
	if block <= d.PrevBlock || d.GrowthPerBlock == nil || d.GrowthPerBlock.IsZero() {
		return minOf(prev, d.MaxLimit)
	}

	growth, overflow := new(uint256.Int).MulOverflow(d.GrowthPerBlock, uint256.NewInt(block-d.PrevBlock))
	if overflow {
		return clone(d.MaxLimit)
	}
	limit, overflow := growth.AddOverflow(growth, prev)
	if overflow {
		return clone(d.MaxLimit)
	}
	return minOf(limit, d.MaxLimit)
}

// Consume takes amount out of the bucket at the given block.
func (d Data) Consume(amount *uint256.Int, block uint64) (Data, error) {
	if d.IsPaused() {
		return d, reverts.ErrStakingPaused
	}
	if !d.IsLimitSet() {
		return d.Copy(), nil
	}

	current := d.grown(block)
	if amount.Gt(current) {
		return d, reverts.Errorf(reverts.KindLimitExceeded, "amount %s exceeds current limit %s", amount, current)
	}

	next := d.Copy()
	next.PrevLimit = current.Sub(current, amount)
	next.PrevBlock = block
	return next, nil
}

// SetLimit configures the bucket. A limit replacing a disabled one starts full,
// otherwise the current capacity is kept and clamped to the new maximum.
func (d Data) SetLimit(maxLimit, growthPerBlock *uint256.Int, block uint64) (Data, error) {
	if maxLimit == nil || maxLimit.IsZero() {
		return d, reverts.New(reverts.KindInvalidRequest, "zero max stake limit")
	}
	if growthPerBlock == nil {
		growthPerBlock = new(uint256.Int)
	}
	if growthPerBlock.Gt(maxLimit) {
		return d, reverts.New(reverts.KindInvalidRequest, "growth per block exceeds max stake limit")
	}

	next := d.Copy()
	switch {
	case !d.IsLimitSet():
		next.PrevLimit = clone(maxLimit)
	case d.IsPaused():
		// no growth while paused
		next.PrevLimit = minOf(clone(d.PrevLimit), maxLimit)
	default:
		next.PrevLimit = minOf(d.grown(block), maxLimit)
	}
	next.MaxLimit = clone(maxLimit)
	next.GrowthPerBlock = clone(growthPerBlock)
	if !d.IsPaused() {
		next.PrevBlock = block
	}
	return next, nil
}

// Remove disables the limit. The pause state is kept.
func (d Data) Remove() Data {
	next := d.Copy()
	next.MaxLimit = new(uint256.Int)
	next.GrowthPerBlock = new(uint256.Int)
	next.PrevLimit = new(uint256.Int)
	return next
}

func (d Data) Pause() Data {
	next := d.Copy()
	next.PrevBlock = 0
	return next
}

// Resume restarts deposits at the given block, refilling from the stored limit.
func (d Data) Resume(block uint64) Data {
	next := d.Copy()
	next.PrevBlock = max(block, 1)
	return next
}

func clone(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}

func minOf(a, b *uint256.Int) *uint256.Int {
	if b != nil && a.Gt(b) {
		return clone(b)
	}
	return clone(a)
}
