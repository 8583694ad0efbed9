// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package httpclient

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/lsp/api/pool"
	"github.com/vechain/lsp/api/utils"
	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking"
)

var alice = lsp.BytesToAddress([]byte("alice"))

func TestClient_Summary(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pool", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Empty(t, r.Header.Get(utils.CallerHeader))
		w.Write([]byte(`{"totalShares":"100","lastReportTimestamp":7,"phase":"committed"}`))
	}))
	defer ts.Close()

	summary, err := New(ts.URL).Summary()
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(100), summary.TotalShares)
	assert.Equal(t, uint64(7), summary.LastReportTimestamp)
	assert.Equal(t, staking.PhaseCommitted, summary.Phase)
}

func TestClient_Deposit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pool/deposits", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, alice.String(), r.Header.Get(utils.CallerHeader))

		var deposit pool.Deposit
		require.NoError(t, json.NewDecoder(r.Body).Decode(&deposit))
		assert.Equal(t, lsp.Ethers(1), deposit.Amount)

		json.NewEncoder(w).Encode(&pool.DepositResult{Shares: uint256.NewInt(42)})
	}))
	defer ts.Close()

	client := New(ts.URL)
	shares, err := client.As(alice).Deposit(lsp.Ethers(1), lsp.Address{})
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(42), shares)
}

func TestClient_ClaimWithoutBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pool/withdrawals/3/claim", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Empty(t, body)
		w.Write([]byte(`{"id":3,"amount":"5"}`))
	}))
	defer ts.Close()

	res, err := New(ts.URL).As(alice).ClaimWithdrawal(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.ID)
	assert.Equal(t, uint256.NewInt(5), res.Amount)
}

func TestClient_FilterQuery(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events/rebases", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("from"))
		assert.Equal(t, "desc", r.URL.Query().Get("order"))
		w.Write([]byte(`[{"timestamp":10},{"timestamp":20}]`))
	}))
	defer ts.Close()

	rebases, err := New(ts.URL).FilterRebases(url.Values{"from": {"10"}, "order": {"desc"}})
	require.NoError(t, err)
	require.Len(t, rebases, 2)
	assert.Equal(t, uint64(20), rebases[1].Timestamp)
}

func TestClient_Errors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pool/withdrawals/1":
			http.Error(w, "request 1 not found", http.StatusNotFound)
		case "/pool/reports":
			http.Error(w, "report in progress", http.StatusConflict)
		default:
			w.Write([]byte(`not json`))
		}
	}))
	defer ts.Close()
	client := New(ts.URL)

	_, err := client.Withdrawal(1)
	assert.True(t, errors.Is(err, ErrNotFound))
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "request 1 not found", se.Body)

	_, err = client.SubmitReport(&staking.Report{})
	assert.True(t, errors.Is(err, ErrNot200Status))
	assert.False(t, errors.Is(err, ErrNotFound))

	_, err = client.Summary()
	assert.Error(t, err)
	assert.False(t, errors.As(err, &se))

	_, err = New("http://127.0.0.1:0").Summary()
	assert.Error(t, err)
}
