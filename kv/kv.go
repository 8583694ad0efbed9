// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Getter wraps methods for getting kvs.
type Getter interface {
	// Get value for given key.
	// An error returned if key not found. It can be checked via IsNotFound.
	Get(key []byte) (value []byte, err error)
	Has(key []byte) (bool, error)
	IsNotFound(error) bool
}

// Putter wraps methods for putting kvs.
type Putter interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Batch collects puts and deletes and applies them atomically on Write.
type Batch interface {
	Putter
	Len() int
	Write() error
}

// Store is a kv store supporting atomic batches and prefix iteration.
type Store interface {
	Getter
	Putter
	NewBatch() Batch
	// Iterate calls fn for every pair whose key starts with prefix, in key order,
	// until fn returns false.
	Iterate(prefix []byte, fn func(key, value []byte) bool) error
}

// StoreCloser with close method.
type StoreCloser interface {
	Store
	Close() error
}

// Staged is a pending update of a component persisted next to others in one store.
// Stage adds its writes to a shared batch, Commit makes the update visible once that
// batch has been written.
type Staged interface {
	Stage(w Putter) error
	Commit()
}
