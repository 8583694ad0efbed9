// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lsp

import (
	"sync/atomic"
	"time"
)

// Clock provides the wall time and the block height the pool runs at.
type Clock interface {
	// Now returns the current unix timestamp in seconds.
	Now() uint64
	// BlockNumber returns the current block height.
	BlockNumber() uint64
}

// SystemClock derives the block number from the wall clock and a genesis timestamp.
type SystemClock struct {
	GenesisTime uint64
}

func (c SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

func (c SystemClock) BlockNumber() uint64 {
	now := c.Now()
	if now <= c.GenesisTime {
		return 0
	}
	return (now - c.GenesisTime) / BlockInterval
}

// ManualClock is a clock advanced explicitly, for tests and simulations.
type ManualClock struct {
	now   atomic.Uint64
	block atomic.Uint64
}

func NewManualClock(now, block uint64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(now)
	c.block.Store(block)
	return c
}

func (c *ManualClock) Now() uint64         { return c.now.Load() }
func (c *ManualClock) BlockNumber() uint64 { return c.block.Load() }

// Advance moves the clock forward by the given number of blocks.
func (c *ManualClock) Advance(blocks uint64) {
	c.block.Add(blocks)
	c.now.Add(blocks * BlockInterval)
}

// Set moves the clock to an absolute position.
func (c *ManualClock) Set(now, block uint64) {
	c.now.Store(now)
	c.block.Store(block)
}
