// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking/acl"
	"github.com/vechain/lsp/staking/fees"
	"github.com/vechain/lsp/staking/sanity"
)

const testConfig = `
genesisTime: 1700000000
staking:
  oracle: "0x00000000000000000000000000000000000000aa"
  fees:
    - address: "0x00000000000000000000000000000000000000bb"
      basisPoints: 500
    - address: "0x00000000000000000000000000000000000000cc"
      basisPoints: 500
  sanityLimits:
    maxWithdrawalBatches: 10
  stakeLimit:
    maxLimit: "150000000000000000000000"
    growthPerBlock: "20000000000000000000"
roles:
  pause_staking:
    - "0x00000000000000000000000000000000000000dd"
  manage_fees:
    - "0x00000000000000000000000000000000000000dd"
    - "0x00000000000000000000000000000000000000ee"
`

func addr(t *testing.T, s string) lsp.Address {
	a, err := lsp.ParseAddress(s)
	require.NoError(t, err)
	return *a
}

func TestParsePoolConfig(t *testing.T) {
	cfg, err := parsePoolConfig([]byte(testConfig))
	require.NoError(t, err)

	assert.Equal(t, uint64(1700000000), cfg.GenesisTime)
	assert.Equal(t, addr(t, "0x00000000000000000000000000000000000000aa"), cfg.Staking.Oracle)
	assert.Equal(t, fees.Table{
		{Address: addr(t, "0x00000000000000000000000000000000000000bb"), BasisPoints: 500},
		{Address: addr(t, "0x00000000000000000000000000000000000000cc"), BasisPoints: 500},
	}, cfg.Staking.Fees)

	// unset limits keep their defaults
	want := sanity.DefaultLimits
	want.MaxWithdrawalBatches = 10
	assert.Equal(t, want, cfg.Staking.SanityLimits)

	require.NotNil(t, cfg.Staking.StakeLimit)
	assert.Equal(t, "150000000000000000000000", cfg.Staking.StakeLimit.MaxLimit.Dec())
	assert.Equal(t, lsp.Ethers(20), cfg.Staking.StakeLimit.GrowthPerBlock)
	assert.False(t, cfg.Staking.StakeLimit.Paused)

	roles, err := cfg.roles()
	require.NoError(t, err)
	dd := addr(t, "0x00000000000000000000000000000000000000dd")
	assert.True(t, roles.HasRole(acl.RolePauseStaking, dd))
	assert.True(t, roles.HasRole(acl.RoleManageFees, dd))
	assert.False(t, roles.HasRole(acl.RoleResumeStaking, dd))
	assert.Len(t, roles.Members(acl.RoleManageFees), 2)
}

func TestParsePoolConfigDefaults(t *testing.T) {
	for _, data := range []string{"", "  \n"} {
		cfg, err := parsePoolConfig([]byte(data))
		require.NoError(t, err)
		assert.Equal(t, defaultPoolConfig(), cfg)
	}

	cfg, err := loadPoolConfig("")
	require.NoError(t, err)
	assert.Equal(t, uint64(defaultGenesisTime), cfg.GenesisTime)
	assert.Equal(t, sanity.DefaultLimits, cfg.Staking.SanityLimits)
	assert.Nil(t, cfg.Staking.StakeLimit)
}

func TestParsePoolConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown field", "genesis: 1\n"},
		{"unknown role", "roles:\n  superuser: []\n"},
		{"bad address", "staking:\n  oracle: \"0x12\"\n"},
		{"bad amount", "staking:\n  stakeLimit:\n    maxLimit: \"-1\"\n"},
		{"not yaml", "staking: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parsePoolConfig([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadPoolConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lsp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0600))

	cfg, err := loadPoolConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(1700000000), cfg.GenesisTime)

	_, err = loadPoolConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDumpPoolConfig(t *testing.T) {
	cfg, err := parsePoolConfig([]byte(testConfig))
	require.NoError(t, err)

	out, err := cfg.dump(false)
	require.NoError(t, err)
	assert.Contains(t, out, "genesisTime: 1700000000\n")

	again, err := parsePoolConfig([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, cfg, again)

	diff, err := cfg.dump(true)
	require.NoError(t, err)
	assert.Contains(t, diff, "--- default\n")
	assert.Contains(t, diff, "+++ effective\n")
	assert.Contains(t, diff, "-genesisTime: 1606824023\n")
	assert.Contains(t, diff, "+genesisTime: 1700000000\n")

	diff, err = defaultPoolConfig().dump(true)
	require.NoError(t, err)
	assert.Empty(t, diff)
}
