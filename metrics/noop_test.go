// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoopMetrics(t *testing.T) {
	metrics = defaultNoopMetrics()

	server := httptest.NewServer(HTTPHandler())
	t.Cleanup(server.Close)

	Counter("deposits").Add(1)
	Histogram("report_duration_ms", Bucket10s).Observe(12)
	HistogramVec("http_requests", []string{"code"}, nil).
		ObserveWithLabels(3, map[string]string{"thisIsNonsense": "butDoesntBreak"})
	CounterVec("reports", []string{"outcome"}).AddWithLabel(1, map[string]string{"outcome": "committed"})
	GaugeVec("ledger", []string{"field"}).SetWithLabel(7, map[string]string{"field": "buffered"})
	Gauge("phase").Set(2)

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
