// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"

	"github.com/vechain/lsp/staking"
)

type ReportIngestion struct {
	LastReport          *uint64    `json:"lastReport"`
	LastReportIngestion *time.Time `json:"lastReportIngestion"`
}

type Status struct {
	Healthy         bool             `json:"healthy"`
	ReportIngestion *ReportIngestion `json:"reportIngestion"`
	EventsRecording bool             `json:"eventsRecording"`
}

// Health tracks whether the pool keeps receiving reports.
type Health struct {
	lock          sync.RWMutex
	started       time.Time
	maxReportAge  time.Duration
	newReport     time.Time
	lastReport    *uint64
	recording     bool
	requireEvents bool
}

// New creates a Health that turns unhealthy when no report arrives for maxReportAge.
// With requireEvents set it is also unhealthy while events are not recorded.
func New(maxReportAge time.Duration, requireEvents bool) *Health {
	return &Health{
		started:       time.Now(),
		maxReportAge:  maxReportAge,
		requireEvents: requireEvents,
	}
}

func (h *Health) NewReport(timestamp uint64) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.newReport = time.Now()
	h.lastReport = &timestamp
}

func (h *Health) RecordingStatus(recording bool) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.recording = recording
}

func (h *Health) Status() (*Status, error) {
	h.lock.RLock()
	defer h.lock.RUnlock()

	since := h.started
	ingestion := &ReportIngestion{LastReport: h.lastReport}
	if h.lastReport != nil {
		since = h.newReport
		ingestion.LastReportIngestion = &h.newReport
	}

	healthy := time.Since(since) <= h.maxReportAge &&
		(h.recording || !h.requireEvents)

	return &Status{
		Healthy:         healthy,
		ReportIngestion: ingestion,
		EventsRecording: h.recording,
	}, nil
}

// Source feeds committed reports.
type Source interface {
	SubscribeRebase(ch chan *staking.RebaseEvent) event.Subscription
}

// Watch tracks the reports of source until ctx is done.
func (h *Health) Watch(ctx context.Context, source Source) {
	ch := make(chan *staking.RebaseEvent, 16)
	sub := source.SubscribeRebase(ch)
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Err():
			return
		case ev := <-ch:
			h.NewReport(ev.Timestamp)
		}
	}
}
