// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package withdrawals

import (
	"github.com/holiman/uint256"

	"github.com/vechain/lsp/kv"
)

// Adapter is the boundary to the withdrawal queue which owns withdrawal requests.
//
// The rebase engine calls CalculateSettlement while computing a report and PrepareFinalize
// right before committing it. Both must be deterministic for the same inputs. The staged
// finalization is written in the batch of the ledger commit and becomes visible with it.
type Adapter interface {
	// CalculateSettlement returns the ether to lock and the shares to burn when finalizing
	// every request up to the last batch at the given post-report totals.
	CalculateSettlement(batches []uint64, postTotalPooled, postTotalShares *uint256.Int) (etherToLock, sharesToBurn *uint256.Int, err error)
	// PrepareFinalize stages marking the requests covered by batches as claimable for
	// etherToLock in total. A nil change means there is nothing to finalize.
	PrepareFinalize(batches []uint64, etherToLock *uint256.Int) (kv.Staged, error)
	// LastRequestID is the id of the most recent request, 0 when there is none.
	LastRequestID() uint64
	// LastFinalizedID is the id of the most recent finalized request, 0 when there is none.
	LastFinalizedID() uint64
}
