// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Bucket provides logical bucket for kv store.
type Bucket string

// Key returns key prefixed by the bucket name.
func (b Bucket) Key(key []byte) []byte {
	return append([]byte(b), key...)
}

// NewStore creates a bucket store from the source store.
// Keys passed to and returned from the bucket store are unprefixed.
func (b Bucket) NewStore(src Store) Store {
	return &bucketStore{b, src}
}

type bucketStore struct {
	b   Bucket
	src Store
}

func (s *bucketStore) Get(key []byte) ([]byte, error) { return s.src.Get(s.b.Key(key)) }
func (s *bucketStore) Has(key []byte) (bool, error)   { return s.src.Has(s.b.Key(key)) }
func (s *bucketStore) IsNotFound(err error) bool      { return s.src.IsNotFound(err) }
func (s *bucketStore) Put(key, value []byte) error    { return s.src.Put(s.b.Key(key), value) }
func (s *bucketStore) Delete(key []byte) error        { return s.src.Delete(s.b.Key(key)) }
func (s *bucketStore) NewBatch() Batch                { return &bucketBatch{s.b, s.src.NewBatch()} }

func (s *bucketStore) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	n := len(s.b)
	return s.src.Iterate(s.b.Key(prefix), func(key, value []byte) bool {
		// strip the bucket
		return fn(key[n:], value)
	})
}

type bucketBatch struct {
	b     Bucket
	batch Batch
}

func (bb *bucketBatch) Put(key, value []byte) error { return bb.batch.Put(bb.b.Key(key), value) }
func (bb *bucketBatch) Delete(key []byte) error     { return bb.batch.Delete(bb.b.Key(key)) }
func (bb *bucketBatch) Len() int                    { return bb.batch.Len() }
func (bb *bucketBatch) Write() error                { return bb.batch.Write() }
