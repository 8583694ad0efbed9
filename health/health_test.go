// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/lsp/staking"
)

func TestHealth_NewReport(t *testing.T) {
	h := New(time.Hour, false)

	h.NewReport(1_700_000_000)
	require.NotNil(t, h.lastReport)
	assert.Equal(t, uint64(1_700_000_000), *h.lastReport)
	assert.WithinDuration(t, time.Now(), h.newReport, time.Second)

	status, err := h.Status()
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Equal(t, h.lastReport, status.ReportIngestion.LastReport)
}

func TestHealth_RecordingStatus(t *testing.T) {
	h := New(time.Hour, true)

	status, err := h.Status()
	require.NoError(t, err)
	assert.False(t, status.Healthy, "events not recorded")

	h.RecordingStatus(true)
	status, err = h.Status()
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.True(t, status.EventsRecording)
	assert.Nil(t, status.ReportIngestion.LastReport)
}

func TestHealth_Status(t *testing.T) {
	h := New(10*time.Millisecond, false)

	status, err := h.Status()
	require.NoError(t, err)
	assert.True(t, status.Healthy, "grace period after start")

	time.Sleep(20 * time.Millisecond)
	status, err = h.Status()
	require.NoError(t, err)
	assert.False(t, status.Healthy, "no report in time")

	h.NewReport(1)
	status, err = h.Status()
	require.NoError(t, err)
	assert.True(t, status.Healthy)
}

type rebaseFeed struct {
	feed event.Feed
}

func (f *rebaseFeed) SubscribeRebase(ch chan *staking.RebaseEvent) event.Subscription {
	return f.feed.Subscribe(ch)
}

func TestHealth_Watch(t *testing.T) {
	h := New(time.Hour, false)
	src := &rebaseFeed{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Watch(ctx, src)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return src.feed.Send(&staking.RebaseEvent{Timestamp: 42}) == 1
	}, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		status, _ := h.Status()
		return status.ReportIngestion.LastReport != nil && *status.ReportIngestion.LastReport == 42
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
