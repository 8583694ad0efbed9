// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package withdrawals

import (
	"cmp"
	"encoding/binary"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/lsp/kv"
	"github.com/vechain/lsp/log"
	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking/reverts"
)

var (
	logger = log.WithContext("pkg", "withdrawals")

	requestBucket = kv.Bucket("w")
	metaKey       = []byte("q.meta")
)

var _ Adapter = (*Queue)(nil)

// Request is a withdrawal request. Its shares are escrowed until finalization burns them.
type Request struct {
	ID             uint64       `json:"id"`
	Owner          lsp.Address  `json:"owner"`
	Shares         *uint256.Int `json:"shares"`
	EtherAtRequest *uint256.Int `json:"etherAtRequest"`
	Timestamp      uint64       `json:"timestamp"`
	Finalized      bool         `json:"finalized"`
	Claimed        bool         `json:"claimed"`
	Payout         *uint256.Int `json:"payout"`
}

func (r *Request) copy() *Request {
	c := *r
	c.Shares = new(uint256.Int).Set(r.Shares)
	c.EtherAtRequest = new(uint256.Int).Set(r.EtherAtRequest)
	c.Payout = new(uint256.Int).Set(r.Payout)
	return &c
}

type meta struct {
	LastRequestID   uint64
	LastFinalizedID uint64
}

type settlement struct {
	batches []uint64
	payouts []*uint256.Int
	lock    *uint256.Int
}

// Queue is a first-in first-out withdrawal queue.
//
// Finalization pays min(etherAtRequest, shares * postRate) so requests never profit from
// rewards accrued after they were placed, while losses are shared.
//
// Updates are prepared as a Change and written through the ledger batch of the same
// operation, so a persisted queue lives in the store of the ledger. The owner prepares
// and commits one change at a time.
type Queue struct {
	lock     sync.RWMutex
	meta     meta
	requests map[uint64]*Request
	pending  *settlement
}

// NewQueue creates an in-memory queue.
func NewQueue() *Queue {
	return &Queue{requests: make(map[uint64]*Request)}
}

// LoadQueue opens the queue persisted in store.
func LoadQueue(store kv.Store) (*Queue, error) {
	q := NewQueue()

	data, err := store.Get(metaKey)
	if err != nil {
		if store.IsNotFound(err) {
			return q, nil
		}
		return nil, errors.Wrap(err, "load queue meta")
	}
	if err := rlp.DecodeBytes(data, &q.meta); err != nil {
		return nil, errors.Wrap(err, "decode queue meta")
	}

	var decodeErr error
	if err := requestBucket.NewStore(store).Iterate(nil, func(_, value []byte) bool {
		var r Request
		if decodeErr = rlp.DecodeBytes(value, &r); decodeErr != nil {
			return false
		}
		q.requests[r.ID] = &r
		return true
	}); err != nil {
		return nil, errors.Wrap(err, "load requests")
	}
	if decodeErr != nil {
		return nil, errors.Wrap(decodeErr, "decode request")
	}

	logger.Debug("loaded withdrawal queue", "requests", len(q.requests), "lastFinalized", q.meta.LastFinalizedID)
	return q, nil
}

func (q *Queue) LastRequestID() uint64 {
	q.lock.RLock()
	defer q.lock.RUnlock()
	return q.meta.LastRequestID
}

func (q *Queue) LastFinalizedID() uint64 {
	q.lock.RLock()
	defer q.lock.RUnlock()
	return q.meta.LastFinalizedID
}

// Request returns a copy of the request with the given id.
func (q *Queue) Request(id uint64) (*Request, error) {
	q.lock.RLock()
	defer q.lock.RUnlock()

	r, ok := q.requests[id]
	if !ok {
		return nil, reverts.Errorf(reverts.KindNotFound, "withdrawal request %d", id)
	}
	return r.copy(), nil
}

// RequestsOf lists the requests of an owner, oldest first.
func (q *Queue) RequestsOf(owner lsp.Address) []*Request {
	q.lock.RLock()
	defer q.lock.RUnlock()

	var out []*Request
	for _, r := range q.requests {
		if r.Owner == owner {
			out = append(out, r.copy())
		}
	}
	slices.SortFunc(out, func(a, b *Request) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// PrepareEnqueue stages a request for shares currently worth etherAtRequest.
func (q *Queue) PrepareEnqueue(owner lsp.Address, shares, etherAtRequest *uint256.Int, timestamp uint64) (*Change, error) {
	if shares == nil || shares.IsZero() || etherAtRequest == nil || etherAtRequest.IsZero() {
		return nil, reverts.New(reverts.KindZeroAmount, "withdrawal request")
	}

	q.lock.RLock()
	defer q.lock.RUnlock()

	r := &Request{
		ID:             q.meta.LastRequestID + 1,
		Owner:          owner,
		Shares:         new(uint256.Int).Set(shares),
		EtherAtRequest: new(uint256.Int).Set(etherAtRequest),
		Timestamp:      timestamp,
		Payout:         new(uint256.Int),
	}
	next := q.meta
	next.LastRequestID = r.ID
	// a new request does not change a pending settlement, which only covers older ids
	return &Change{q: q, meta: next, requests: []*Request{r}}, nil
}

// CalculateSettlement prices every request up to the last batch at the post-report rate.
func (q *Queue) CalculateSettlement(batches []uint64, postTotalPooled, postTotalShares *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	q.lock.Lock()
	defer q.lock.Unlock()

	etherToLock, sharesToBurn := new(uint256.Int), new(uint256.Int)
	q.pending = nil
	if len(batches) == 0 {
		return etherToLock, sharesToBurn, nil
	}

	last := batches[len(batches)-1]
	if batches[0] <= q.meta.LastFinalizedID || last > q.meta.LastRequestID {
		return nil, nil, reverts.Errorf(reverts.KindInvalidReport, "batches [%d..%d] outside pending requests", batches[0], last)
	}

	s := &settlement{batches: slices.Clone(batches)}
	for id := q.meta.LastFinalizedID + 1; id <= last; id++ {
		r := q.requests[id]
		payout := new(uint256.Int)
		if !postTotalShares.IsZero() {
			payout.MulDivOverflow(r.Shares, postTotalPooled, postTotalShares)
		}
		if payout.Gt(r.EtherAtRequest) {
			payout.Set(r.EtherAtRequest)
		}
		s.payouts = append(s.payouts, payout)
		etherToLock.Add(etherToLock, payout)
		sharesToBurn.Add(sharesToBurn, r.Shares)
	}
	s.lock = new(uint256.Int).Set(etherToLock)
	q.pending = s

	return etherToLock, sharesToBurn, nil
}

// PrepareFinalize stages the settlement computed by the last CalculateSettlement call.
// It returns nil when there is nothing to finalize.
func (q *Queue) PrepareFinalize(batches []uint64, etherToLock *uint256.Int) (kv.Staged, error) {
	q.lock.RLock()
	defer q.lock.RUnlock()

	if len(batches) == 0 {
		return nil, nil
	}
	s := q.pending
	if s == nil || !slices.Equal(s.batches, batches) || !s.lock.Eq(etherToLock) {
		return nil, errors.New("finalize does not match the calculated settlement")
	}

	next := q.meta
	next.LastFinalizedID = batches[len(batches)-1]

	updated := make([]*Request, 0, len(s.payouts))
	for i, payout := range s.payouts {
		r := q.requests[q.meta.LastFinalizedID+1+uint64(i)].copy()
		r.Finalized = true
		r.Payout = payout
		updated = append(updated, r)
	}
	return &Change{q: q, meta: next, requests: updated, settles: true}, nil
}

// Claimable returns the finalized, unclaimed request of owner.
func (q *Queue) Claimable(id uint64, owner lsp.Address) (*Request, error) {
	r, err := q.Request(id)
	if err != nil {
		return nil, err
	}
	switch {
	case r.Owner != owner:
		return nil, reverts.Errorf(reverts.KindUnauthorized, "request %d not owned by %s", id, owner)
	case !r.Finalized:
		return nil, reverts.Errorf(reverts.KindInvalidRequest, "request %d not finalized", id)
	case r.Claimed:
		return nil, reverts.Errorf(reverts.KindInvalidRequest, "request %d already claimed", id)
	}
	return r, nil
}

// PrepareClaim stages the payout record of a claimable request.
func (q *Queue) PrepareClaim(id uint64) (*Change, error) {
	q.lock.RLock()
	defer q.lock.RUnlock()

	r, ok := q.requests[id]
	if !ok {
		return nil, reverts.Errorf(reverts.KindNotFound, "withdrawal request %d", id)
	}
	claimed := r.copy()
	claimed.Claimed = true
	return &Change{q: q, meta: q.meta, requests: []*Request{claimed}}, nil
}

// Change is a prepared update of the queue.
type Change struct {
	q        *Queue
	meta     meta
	requests []*Request
	settles  bool
}

var _ kv.Staged = (*Change)(nil)

// Request returns the first request the change writes.
func (c *Change) Request() *Request {
	return c.requests[0].copy()
}

// Stage puts the queue meta and the updated requests into w.
func (c *Change) Stage(w kv.Putter) error {
	data, err := rlp.EncodeToBytes(&c.meta)
	if err != nil {
		return errors.Wrap(err, "encode queue meta")
	}
	if err := w.Put(metaKey, data); err != nil {
		return err
	}
	for _, r := range c.requests {
		data, err := rlp.EncodeToBytes(r)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		if err := w.Put(requestBucket.Key(requestKey(r.ID)), data); err != nil {
			return err
		}
	}
	return nil
}

// Commit makes the change visible.
func (c *Change) Commit() {
	q := c.q
	q.lock.Lock()
	defer q.lock.Unlock()

	q.meta = c.meta
	for _, r := range c.requests {
		q.requests[r.ID] = r
	}
	if c.settles {
		q.pending = nil
		logger.Debug("finalized withdrawals", "lastFinalized", c.meta.LastFinalizedID, "requests", len(c.requests))
	}
}

func requestKey(id uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, id)
}
