// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/lsp/health"
)

func TestHealth(t *testing.T) {
	h := health.New(time.Hour, true)
	ts := initAPIServer(h)
	defer ts.Close()

	var status health.Status
	respBody, statusCode := httpGet(t, ts.URL+"/health")
	require.NoError(t, json.Unmarshal(respBody, &status))
	assert.False(t, status.Healthy)
	assert.False(t, status.EventsRecording)
	assert.Equal(t, http.StatusServiceUnavailable, statusCode)

	h.RecordingStatus(true)
	h.NewReport(1_700_000_000)
	respBody, statusCode = httpGet(t, ts.URL+"/health")
	require.NoError(t, json.Unmarshal(respBody, &status))
	assert.True(t, status.Healthy)
	assert.Equal(t, http.StatusOK, statusCode)
	require.NotNil(t, status.ReportIngestion.LastReport)
	assert.Equal(t, uint64(1_700_000_000), *status.ReportIngestion.LastReport)
}

func initAPIServer(h *health.Health) *httptest.Server {
	router := mux.NewRouter()
	NewAPI(h).Mount(router, "/health")
	return httptest.NewServer(router)
}

func httpGet(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url) //#nosec G107
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	r, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	return r, res.StatusCode
}
