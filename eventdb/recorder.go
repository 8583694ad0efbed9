// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"context"

	"github.com/ethereum/go-ethereum/event"

	"github.com/vechain/lsp/staking"
)

// Source publishes pool events.
type Source interface {
	SubscribeRebase(ch chan *staking.RebaseEvent) event.Subscription
	SubscribeDeposit(ch chan *staking.DepositEvent) event.Subscription
}

// Record stores the events of source until ctx is done or a subscription fails.
// A failed write is logged and skipped, the pool state stays the source of truth.
func (db *EventDB) Record(ctx context.Context, source Source) error {
	rebaseCh := make(chan *staking.RebaseEvent, 16)
	depositCh := make(chan *staking.DepositEvent, 64)
	rebaseSub := source.SubscribeRebase(rebaseCh)
	defer rebaseSub.Unsubscribe()
	depositSub := source.SubscribeDeposit(depositCh)
	defer depositSub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-rebaseSub.Err():
			return err
		case err := <-depositSub.Err():
			return err
		case ev := <-rebaseCh:
			if err := db.InsertRebase(ctx, ev); err != nil {
				logger.Warn("failed to record rebase", "timestamp", ev.Timestamp, "error", err)
				metricRecordedCounter().AddWithLabel(1, map[string]string{"type": "rebase", "status": "failed"})
				continue
			}
			metricRecordedCounter().AddWithLabel(1, map[string]string{"type": "rebase", "status": "ok"})
		case ev := <-depositCh:
			if _, err := db.InsertDeposit(ctx, ev); err != nil {
				logger.Warn("failed to record deposit", "depositor", ev.Depositor, "error", err)
				metricRecordedCounter().AddWithLabel(1, map[string]string{"type": "deposit", "status": "failed"})
				continue
			}
			metricRecordedCounter().AddWithLabel(1, map[string]string{"type": "deposit", "status": "ok"})
		}
	}
}
