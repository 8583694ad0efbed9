// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/lsp/api/pool"
	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/lspclient/httpclient"
	"github.com/vechain/lsp/test/testpool"
)

var (
	alice = lsp.BytesToAddress([]byte("alice"))
	bob   = lsp.BytesToAddress([]byte("bob"))
)

func initPoolServer(t *testing.T) (*testpool.Pool, *httpclient.Client) {
	tp := testpool.New(t)

	router := mux.NewRouter()
	pool.New(tp.Pool).Mount(router, "/pool")
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return tp, httpclient.New(ts.URL)
}

func requireStatus(t *testing.T, err error, code int) {
	t.Helper()
	var se *httpclient.StatusError
	require.True(t, errors.As(err, &se), "want status error, got %v", err)
	assert.Equal(t, code, se.Code, se.Body)
}

func TestPool(t *testing.T) {
	tp, client := initPoolServer(t)

	for name, tt := range map[string]func(*testing.T, *testpool.Pool, *httpclient.Client){
		"summary":                testSummary,
		"deposit":                testDeposit,
		"depositInvalid":         testDepositInvalid,
		"report":                 testReport,
		"reportUnauthorized":     testReportUnauthorized,
		"income":                 testIncome,
		"withdrawalNotFound":     testWithdrawalNotFound,
		"getWithdrawalsNoOwner":  testGetWithdrawalsNoOwner,
		"getSharesInvalidAddr":   testGetSharesInvalidAddress,
		"requestWithdrawalEmpty": testRequestWithdrawalEmpty,
	} {
		t.Run(name, func(t *testing.T) {
			tt(t, tp, client)
		})
	}
}

func testSummary(t *testing.T, tp *testpool.Pool, client *httpclient.Client) {
	summary, err := client.Summary()
	require.NoError(t, err)
	assert.Equal(t, tp.Summary().TotalShares, summary.TotalShares)
	assert.Equal(t, testpool.Oracle, summary.Oracle)
	assert.Equal(t, tp.Phase(), summary.Phase)
	assert.False(t, summary.StakingPaused)
}

func testDeposit(t *testing.T, tp *testpool.Pool, client *httpclient.Client) {
	before := tp.SharesOf(alice)

	shares, err := client.As(alice).Deposit(lsp.Ethers(2), bob)
	require.NoError(t, err)
	assert.False(t, shares.IsZero())

	holding, err := client.Holding(alice)
	require.NoError(t, err)
	assert.Equal(t, alice, holding.Address)
	assert.Equal(t, tp.SharesOf(alice), holding.Shares)
	assert.True(t, holding.Shares.Gt(before))
}

func testDepositInvalid(t *testing.T, _ *testpool.Pool, client *httpclient.Client) {
	// no caller
	_, err := client.Deposit(lsp.Ethers(1), lsp.Address{})
	requireStatus(t, err, http.StatusForbidden)

	_, err = client.As(alice).Deposit(nil, lsp.Address{})
	requireStatus(t, err, http.StatusBadRequest)

	_, err = client.As(alice).Deposit(lsp.Ethers(0), lsp.Address{})
	requireStatus(t, err, http.StatusBadRequest)

	body, status, err := client.As(alice).RawHTTPPost("/pool/deposits", []byte(`{"amount":"1","unknown":1}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status, string(body))

	_, status, err = client.RawHTTPPost("/pool/deposits", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, status)
}

func testReport(t *testing.T, tp *testpool.Pool, client *httpclient.Client) {
	_, err := tp.Submit(alice, lsp.Ethers(32), lsp.Address{})
	require.NoError(t, err)
	_, err = tp.DepositBufferedEther(testpool.Admin, 1)
	require.NoError(t, err)

	pre := tp.Summary()
	report := tp.NextReport(testpool.Day, pre.CLValidators+1, lsp.Ethers(32*(pre.CLValidators+1)))

	sim, err := client.SimulateReport(report)
	require.NoError(t, err)
	assert.Equal(t, pre.TotalPooledEther, tp.Summary().TotalPooledEther, "simulation changed the pool")
	report.SimulatedShareRate = sim.ShareRate

	res, err := client.As(testpool.Oracle).SubmitReport(report)
	require.NoError(t, err)
	assert.Equal(t, sim.ShareRate, res.ShareRate)
	assert.Equal(t, tp.Summary().TotalShares, res.PostTotalShares)
	assert.Equal(t, report.Timestamp, tp.Summary().LastReportTimestamp)

	// stale
	_, err = client.As(testpool.Oracle).SubmitReport(report)
	requireStatus(t, err, http.StatusBadRequest)
}

func testReportUnauthorized(t *testing.T, tp *testpool.Pool, client *httpclient.Client) {
	report := tp.NextReport(testpool.Day, tp.Summary().CLValidators, tp.Summary().CLBalance)
	_, err := client.As(alice).SubmitReport(report)
	requireStatus(t, err, http.StatusForbidden)
}

func testIncome(t *testing.T, tp *testpool.Pool, client *httpclient.Client) {
	before := tp.Summary().RewardIncome

	summary, err := client.ReceiveRewardIncome(lsp.Ethers(1))
	require.NoError(t, err)
	assert.Equal(t, lsp.Ethers(1), summary.RewardIncome.Sub(summary.RewardIncome, before))

	_, err = client.ReceiveWithdrawalIncome(nil)
	requireStatus(t, err, http.StatusBadRequest)
}

func testWithdrawalNotFound(t *testing.T, _ *testpool.Pool, client *httpclient.Client) {
	_, err := client.Withdrawal(1000)
	requireStatus(t, err, http.StatusNotFound)
	assert.True(t, errors.Is(err, httpclient.ErrNotFound))

	_, status, err := client.RawHTTPGet("/pool/withdrawals/abc")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
}

func testGetWithdrawalsNoOwner(t *testing.T, _ *testpool.Pool, client *httpclient.Client) {
	_, status, err := client.RawHTTPGet("/pool/withdrawals")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
}

func testGetSharesInvalidAddress(t *testing.T, _ *testpool.Pool, client *httpclient.Client) {
	_, status, err := client.RawHTTPGet("/pool/shares/0x01")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
}

func testRequestWithdrawalEmpty(t *testing.T, _ *testpool.Pool, client *httpclient.Client) {
	_, err := client.As(alice).RequestWithdrawal(nil)
	requireStatus(t, err, http.StatusBadRequest)
}

func TestWithdrawalLifecycle(t *testing.T) {
	tp, client := initPoolServer(t)
	tp.Bootstrap(t, alice)
	alicec := client.As(alice)

	request, err := alicec.RequestWithdrawal(lsp.Ethers(10))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), request.ID)
	assert.Equal(t, alice, request.Owner)
	assert.Equal(t, lsp.Ethers(10), request.EtherAtRequest)

	requests, err := client.WithdrawalsOf(alice)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, request.ID, requests[0].ID)

	// not finalized
	_, err = alicec.ClaimWithdrawal(request.ID)
	requireStatus(t, err, http.StatusBadRequest)

	// free buffered ether for the settlement
	_, err = tp.Submit(bob, lsp.Ethers(10), lsp.Address{})
	require.NoError(t, err)
	r := tp.NextReport(testpool.Day, 1, lsp.Ethers(32))
	r.WithdrawalBatches = []uint64{request.ID}
	res := tp.Commit(t, r)
	assert.Equal(t, lsp.Ethers(10), res.WithdrawalsLocked)

	got, err := client.Withdrawal(request.ID)
	require.NoError(t, err)
	assert.True(t, got.Finalized)
	assert.False(t, got.Claimed)

	_, err = client.As(bob).ClaimWithdrawal(request.ID)
	requireStatus(t, err, http.StatusForbidden)

	claim, err := alicec.ClaimWithdrawal(request.ID)
	require.NoError(t, err)
	assert.Equal(t, request.ID, claim.ID)
	assert.Equal(t, lsp.Ethers(10), claim.Amount)

	_, err = alicec.ClaimWithdrawal(request.ID)
	requireStatus(t, err, http.StatusBadRequest)
}

func TestRequestBurn(t *testing.T) {
	tp, client := initPoolServer(t)
	tp.Bootstrap(t, alice)

	holding, err := client.As(alice).RequestBurn(lsp.Ethers(2))
	require.NoError(t, err)
	assert.Equal(t, lsp.Ethers(30), holding.Shares)
	assert.Equal(t, lsp.Ethers(2), tp.Summary().PendingBurnShares)

	_, err = client.As(alice).RequestBurn(lsp.Ethers(100))
	requireStatus(t, err, http.StatusBadRequest)
}
