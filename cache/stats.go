// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import "sync/atomic"

// Stats counts cache lookups.
type Stats struct {
	hit, miss atomic.Int64
	// hit rate in permille at the last Changed call
	lastRate atomic.Int64
}

func (s *Stats) Hit() int64  { return s.hit.Add(1) }
func (s *Stats) Miss() int64 { return s.miss.Add(1) }

// Counts returns the number of hits and misses so far.
func (s *Stats) Counts() (hit, miss int64) {
	return s.hit.Load(), s.miss.Load()
}

// HitRate returns the share of lookups served from the cache in permille.
func (s *Stats) HitRate() int64 {
	hit, miss := s.Counts()
	if hit+miss == 0 {
		return 0
	}
	return hit * 1000 / (hit + miss)
}

// Changed reports whether the hit rate moved since the previous call.
func (s *Stats) Changed() bool {
	rate := s.HitRate()
	return s.lastRate.Swap(rate) != rate
}
