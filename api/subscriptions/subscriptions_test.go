// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/lsp/eventdb"
	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/lspclient/wsclient"
	"github.com/vechain/lsp/staking"
	"github.com/vechain/lsp/test/testpool"
)

var alice = lsp.BytesToAddress([]byte("alice"))

func initSubscriptionServer(t *testing.T, db *eventdb.EventDB) (*testpool.Pool, *httptest.Server) {
	tp := testpool.New(t)

	subs := New(tp.Pool, db, []string{"https://good.example"})
	router := mux.NewRouter()
	subs.Mount(router, "/subscriptions")
	ts := httptest.NewServer(router)
	t.Cleanup(func() {
		subs.Close()
		ts.Close()
	})
	return tp, ts
}

func next[T any](t *testing.T, sub *wsclient.Subscription[T]) T {
	t.Helper()
	select {
	case ev, ok := <-sub.EventChan:
		require.True(t, ok, "subscription ended")
		require.NoError(t, ev.Error)
		return ev.Data
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	var zero T
	return zero
}

func TestSubscribeDeposit(t *testing.T) {
	tp, ts := initSubscriptionServer(t, nil)
	client, err := wsclient.NewClient(ts.URL)
	require.NoError(t, err)

	sub, err := client.SubscribeDeposits()
	require.NoError(t, err)
	defer sub.Unsubscribe()

	shares, err := tp.Submit(alice, lsp.Ethers(3), lsp.Address{})
	require.NoError(t, err)

	ev := next(t, sub)
	assert.Equal(t, alice, ev.Depositor)
	assert.Equal(t, lsp.Ethers(3), ev.Amount)
	assert.Equal(t, shares, ev.Shares)
}

func TestSubscribeRebase(t *testing.T) {
	tp, ts := initSubscriptionServer(t, nil)
	client, err := wsclient.NewClient(ts.URL)
	require.NoError(t, err)

	sub, err := client.SubscribeRebases(nil)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	tp.Bootstrap(t, alice)

	ev := next(t, sub)
	assert.Equal(t, tp.Summary().LastReportTimestamp, ev.Timestamp)
	assert.Equal(t, uint64(1), ev.CLValidators)
	assert.Equal(t, lsp.Ethers(32), ev.PostTotalPooledEther)

	// no history without a db
	since := uint64(0)
	_, err = client.SubscribeRebases(&since)
	assert.Error(t, err)
}

func TestSubscribeRebaseSince(t *testing.T) {
	db, err := eventdb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	for _, ts := range []uint64{100, 200, 300} {
		require.NoError(t, db.InsertRebase(ctx, &staking.RebaseEvent{
			Timestamp:            ts,
			CLBalance:            new(uint256.Int),
			PreTotalShares:       new(uint256.Int),
			PreTotalPooledEther:  new(uint256.Int),
			PostTotalShares:      new(uint256.Int),
			PostTotalPooledEther: new(uint256.Int),
			FeeShares:            new(uint256.Int),
			WithdrawalsLocked:    new(uint256.Int),
			SharesBurned:         new(uint256.Int),
		}))
	}

	tp, ts := initSubscriptionServer(t, db)
	client, err := wsclient.NewClient(ts.URL)
	require.NoError(t, err)

	since := uint64(100)
	sub, err := client.SubscribeRebases(&since)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	assert.Equal(t, uint64(200), next(t, sub).Timestamp)
	assert.Equal(t, uint64(300), next(t, sub).Timestamp)

	tp.Bootstrap(t, alice)
	assert.Equal(t, tp.Summary().LastReportTimestamp, next(t, sub).Timestamp)
}

func TestCheckOrigin(t *testing.T) {
	_, ts := initSubscriptionServer(t, nil)
	u := "ws" + ts.URL[len("http"):] + "/subscriptions/deposit"

	_, resp, err := websocket.DefaultDialer.Dial(u, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(u, http.Header{"Origin": {"https://good.example"}})
	require.NoError(t, err)
	conn.Close()
}

func TestClose(t *testing.T) {
	db, err := eventdb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	tp := testpool.New(t)

	subs := New(tp.Pool, db, nil)
	router := mux.NewRouter()
	subs.Mount(router, "/subscriptions")
	ts := httptest.NewServer(router)
	defer ts.Close()

	client, err := wsclient.NewClient(ts.URL)
	require.NoError(t, err)
	sub, err := client.SubscribeDeposits()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		subs.lock.Lock()
		defer subs.lock.Unlock()
		return len(subs.pendingConns) == 1
	}, time.Second, 10*time.Millisecond)

	subs.Close()

	select {
	case ev := <-sub.EventChan:
		assert.Error(t, ev.Error)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed")
	}
	assert.Empty(t, subs.pendingConns)
}
