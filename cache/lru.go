// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import lru "github.com/hashicorp/golang-lru"

// LRU is a fixed size least recently used cache which counts its hits and misses.
type LRU struct {
	*lru.Cache
	stats Stats
}

// NewLRU creates a cache holding up to maxSize entries. maxSize must be positive.
func NewLRU(maxSize int) (*LRU, error) {
	cache, err := lru.New(maxSize)
	if err != nil {
		return nil, err
	}
	return &LRU{Cache: cache}, nil
}

// Loader loads the value of a missing key.
type Loader func(key any) (any, error)

// GetOrLoad returns the cached value of key, loading and caching it on a miss.
// Failed loads are not cached.
func (l *LRU) GetOrLoad(key any, loader Loader) (any, error) {
	if v, ok := l.Get(key); ok {
		l.stats.Hit()
		return v, nil
	}
	l.stats.Miss()

	v, err := loader(key)
	if err != nil {
		return nil, err
	}
	l.Add(key, v)
	return v, nil
}

// Stats returns the hit and miss counters.
func (l *LRU) Stats() *Stats {
	return &l.stats
}
