// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fees

import (
	"errors"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking/reverts"
)

var (
	treasury = lsp.BytesToAddress([]byte("treasury"))
	modules  = lsp.BytesToAddress([]byte("modules"))
	insurer  = lsp.BytesToAddress([]byte("insurer"))
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		ok    bool
	}{
		{"empty", nil, true},
		{"full", Table{{treasury, 10_000}}, true},
		{"split", Table{{treasury, 500}, {modules, 500}}, true},
		{"over", Table{{treasury, 5_000}, {modules, 5_001}}, false},
		{"single over", Table{{treasury, 10_001}}, false},
		{"duplicated", Table{{treasury, 100}, {treasury, 100}}, false},
		{"zero address", Table{{lsp.Address{}, 100}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, reverts.ErrInvalidWeights), "got %v", err)
			_, err = NewDistributor(tt.table)
			assert.True(t, errors.Is(err, reverts.ErrInvalidWeights))
		})
	}
}

func TestDistributeFullTreasury(t *testing.T) {
	d, err := NewDistributor(Table{{treasury, 10_000}})
	require.NoError(t, err)

	// 1 ETH reward on a 64 ETH pool with 64e18 shares, rate 1
	dist, err := d.Distribute(lsp.Ethers(1), lsp.Ethers(64), lsp.Ethers(64))
	require.NoError(t, err)

	assert.Equal(t, lsp.Ethers(1), dist.TotalShares)
	require.Len(t, dist.Parts, 1)
	assert.Equal(t, treasury, dist.Parts[0].Recipient)
	assert.Equal(t, lsp.Ethers(1), dist.Parts[0].Shares)
}

func TestDistributeAtPreRate(t *testing.T) {
	d, err := NewDistributor(Table{{treasury, 500}, {modules, 500}})
	require.NoError(t, err)

	// rate 2: 100 ETH pooled for 50e18 shares, 10 ETH reward is 5e18 shares, 10% fee is 0.5e18
	dist, err := d.Distribute(lsp.Ethers(10), lsp.Ethers(100), lsp.Ethers(50))
	require.NoError(t, err)

	half := new(uint256.Int).Div(lsp.Ether, uint256.NewInt(2))
	assert.Equal(t, half, dist.TotalShares)
	assert.Equal(t, new(uint256.Int).Div(half, uint256.NewInt(2)), dist.Parts[0].Shares)
	assert.Equal(t, dist.Parts[0].Shares, dist.Parts[1].Shares)
}

func TestDistributeRemainderToFirst(t *testing.T) {
	d, err := NewDistributor(Table{{treasury, 1}, {modules, 1}, {insurer, 1}})
	require.NoError(t, err)

	// 30000 wei at rate 1 is 30000 shares, 3bp of it is 9 shares, 3 each
	dist, err := d.Distribute(uint256.NewInt(30_000), lsp.Ethers(1), lsp.Ethers(1))
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(9), dist.TotalShares)

	// 43333 wei gives 12 shares
	dist, err = d.Distribute(uint256.NewInt(43_333), lsp.Ethers(1), lsp.Ethers(1))
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(12), dist.TotalShares)
	assert.Equal(t, uint256.NewInt(4), dist.Parts[0].Shares)
	assert.Equal(t, uint256.NewInt(4), dist.Parts[1].Shares)
	assert.Equal(t, uint256.NewInt(4), dist.Parts[2].Shares)

	d, err = NewDistributor(Table{{treasury, 1}, {modules, 2}})
	require.NoError(t, err)
	dist, err = d.Distribute(uint256.NewInt(100_000), lsp.Ethers(1), lsp.Ethers(1))
	require.NoError(t, err)
	// 30 shares: 10 and 20
	assert.Equal(t, uint256.NewInt(10), dist.Parts[0].Shares)
	assert.Equal(t, uint256.NewInt(20), dist.Parts[1].Shares)

	dist, err = d.Distribute(uint256.NewInt(110_000), lsp.Ethers(1), lsp.Ethers(1))
	require.NoError(t, err)
	// 33 shares: 11 and 22
	assert.Equal(t, uint256.NewInt(33), dist.TotalShares)
	assert.Equal(t, uint256.NewInt(11), dist.Parts[0].Shares)

	dist, err = d.Distribute(uint256.NewInt(113_400), lsp.Ethers(1), lsp.Ethers(1))
	require.NoError(t, err)
	// 34 shares: 11 and 22, remainder 1 to the first
	assert.Equal(t, uint256.NewInt(34), dist.TotalShares)
	assert.Equal(t, uint256.NewInt(12), dist.Parts[0].Shares)
	assert.Equal(t, uint256.NewInt(22), dist.Parts[1].Shares)
}

func TestDistributeNothing(t *testing.T) {
	d, err := NewDistributor(nil)
	require.NoError(t, err)
	dist, err := d.Distribute(lsp.Ethers(1), lsp.Ethers(1), lsp.Ethers(1))
	require.NoError(t, err)
	assert.True(t, dist.TotalShares.IsZero())
	assert.Empty(t, dist.Parts)

	d, err = NewDistributor(Table{{treasury, 1000}})
	require.NoError(t, err)
	dist, err = d.Distribute(new(uint256.Int), lsp.Ethers(1), lsp.Ethers(1))
	require.NoError(t, err)
	assert.True(t, dist.TotalShares.IsZero())

	// no shares yet, reward is valued 1:1
	dist, err = d.Distribute(lsp.Ethers(10), new(uint256.Int), new(uint256.Int))
	require.NoError(t, err)
	assert.Equal(t, lsp.Ethers(1), dist.TotalShares)
}

func TestDistributeConservesShares(t *testing.T) {
	f := fuzz.New().NilChance(0)

	for range 500 {
		var (
			weights [4]uint16
			reward  uint64
			pooled  uint64
			shares  uint64
		)
		f.Fuzz(&weights)
		f.Fuzz(&reward)
		f.Fuzz(&pooled)
		f.Fuzz(&shares)

		var table Table
		var total uint64
		for i, w := range weights {
			bp := uint64(w) % 2_500
			total += bp
			table = append(table, Recipient{lsp.BytesToAddress([]byte{byte(i + 1)}), bp})
		}
		require.LessOrEqual(t, total, uint64(lsp.TotalBasisPoints))

		d, err := NewDistributor(table)
		require.NoError(t, err)

		dist, err := d.Distribute(uint256.NewInt(reward), uint256.NewInt(pooled|1), uint256.NewInt(shares|1))
		require.NoError(t, err)

		sum := new(uint256.Int)
		for _, p := range dist.Parts {
			sum.Add(sum, p.Shares)
		}
		assert.Equal(t, dist.TotalShares, sum)
	}
}
