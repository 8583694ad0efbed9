// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package governance_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/lsp/api/governance"
	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/lspclient/httpclient"
	"github.com/vechain/lsp/staking/acl"
	"github.com/vechain/lsp/staking/fees"
	"github.com/vechain/lsp/staking/sanity"
	"github.com/vechain/lsp/test/testpool"
)

var (
	alice    = lsp.BytesToAddress([]byte("alice"))
	treasury = lsp.BytesToAddress([]byte("treasury"))
)

func initGovernanceServer(t *testing.T, listRoles bool) (*testpool.Pool, *httpclient.Client) {
	tp := testpool.New(t)
	var directory governance.Directory
	if listRoles {
		directory = tp.Roles
	}

	router := mux.NewRouter()
	governance.New(tp.Pool, directory).Mount(router, "/admin")
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return tp, httpclient.New(ts.URL)
}

func TestStaking(t *testing.T) {
	tp, client := initGovernanceServer(t, true)
	admin := client.As(testpool.Admin)

	_, err := client.As(alice).PauseStaking()
	assert.ErrorIs(t, err, httpclient.ErrNot200Status)
	assert.Contains(t, err.Error(), "403")

	summary, err := admin.PauseStaking()
	require.NoError(t, err)
	assert.True(t, summary.StakingPaused)
	_, err = tp.Submit(alice, lsp.Ethers(1), lsp.Address{})
	assert.Error(t, err)

	summary, err = admin.ResumeStaking()
	require.NoError(t, err)
	assert.False(t, summary.StakingPaused)

	summary, err = admin.SetStakingLimit(lsp.Ethers(100), lsp.Ethers(1))
	require.NoError(t, err)
	assert.Equal(t, lsp.Ethers(100), summary.StakeLimit.MaxLimit)
	assert.Equal(t, lsp.Ethers(1), summary.StakeLimit.GrowthPerBlock)
	assert.Equal(t, lsp.Ethers(100), summary.StakeLimit.Current)

	_, err = admin.SetStakingLimit(nil, lsp.Ethers(1))
	assert.Contains(t, err.Error(), "400")

	body, status, err := admin.RawHTTPPost("/admin/staking/limit/remove", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, lsp.Unlimited, tp.Summary().StakeLimit.Current)
}

func TestFees(t *testing.T) {
	_, client := initGovernanceServer(t, true)
	admin := client.As(testpool.Admin)

	table := fees.Table{{Address: treasury, BasisPoints: 1000}}
	body, status, err := admin.RawHTTPPost("/admin/fees", table)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status, string(body))

	body, status, err = client.RawHTTPGet("/admin/fees")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	var got fees.Table
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, table, got)

	_, status, err = admin.RawHTTPPost("/admin/fees", fees.Table{{Address: treasury, BasisPoints: 10_001}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	_, status, err = client.As(alice).RawHTTPPost("/admin/fees", table)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestSanityLimits(t *testing.T) {
	tp, client := initGovernanceServer(t, true)
	admin := client.As(testpool.Admin)

	limits := sanity.DefaultLimits
	limits.MaxWithdrawalBatches = 3
	body, status, err := admin.RawHTTPPost("/admin/sanity-limits", limits)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, limits, tp.SanityLimits())

	body, status, err = client.RawHTTPGet("/admin/sanity-limits")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	var got sanity.Limits
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, limits, got)

	_, status, err = admin.RawHTTPPost("/admin/sanity-limits", []byte(`{"maxWithdrawalBatches":1,"bogus":true}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestOracleAndValidators(t *testing.T) {
	tp, client := initGovernanceServer(t, true)
	admin := client.As(testpool.Admin)

	_, status, err := admin.RawHTTPPost("/admin/oracle", &governance.Oracle{Oracle: alice})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, alice, tp.Oracle())

	_, status, err = admin.RawHTTPPost("/admin/oracle", &governance.Oracle{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	_, err = tp.Submit(alice, lsp.Ethers(64), lsp.Address{})
	require.NoError(t, err)

	res, err := admin.DepositBufferedEther(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Validators)
	assert.Equal(t, lsp.Ethers(64), res.Amount)

	_, err = client.As(alice).DepositBufferedEther(1)
	assert.Contains(t, err.Error(), "403")

	_, status, err = admin.RawHTTPPost("/admin/deposited-validators", &governance.Count{Count: 1})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	summary := tp.Summary()
	assert.Equal(t, uint64(1), summary.DepositedValidators)
	assert.Equal(t, lsp.Ethers(32), summary.TransientBalance)
}

func TestRoles(t *testing.T) {
	_, client := initGovernanceServer(t, true)

	body, status, err := client.RawHTTPGet("/admin/roles")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	var roles []*governance.RoleMembers
	require.NoError(t, json.Unmarshal(body, &roles))
	require.Len(t, roles, len(acl.AllRoles))
	for i, r := range roles {
		assert.Equal(t, acl.AllRoles[i], r.Role)
		assert.Equal(t, []lsp.Address{testpool.Admin}, r.Members)
	}
}

func TestNoCaller(t *testing.T) {
	_, client := initGovernanceServer(t, false)

	for _, path := range []string{"/admin/staking/pause", "/admin/staking/resume", "/admin/fees", "/admin/deposits"} {
		_, status, err := client.RawHTTPPost(path, []byte(`{}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, status, path)
	}

	_, status, err := client.As(testpool.Admin).RawHTTPPost("/admin/staking/limit", &governance.StakingLimit{
		MaxLimit:       new(uint256.Int),
		GrowthPerBlock: new(uint256.Int),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	// roles are not listed without a directory
	_, status, err = client.RawHTTPGet("/admin/roles")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
}
