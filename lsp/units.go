// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lsp

import (
	"math/big"

	"github.com/holiman/uint256"
)

const (
	// TotalBasisPoints is 100% expressed in basis points.
	TotalBasisPoints = 10_000

	// SecondsPerYear is used to annualise rates.
	SecondsPerYear = 365 * 24 * 60 * 60

	// BlockInterval is the seconds between two consecutive blocks of the staking chain.
	BlockInterval = 12
)

var (
	// Gwei is 1e9 wei.
	Gwei = uint256.NewInt(1e9)
	// Ether is 1e18 wei.
	Ether = uint256.NewInt(1e18)
	// DepositSize is the principal of a single validator.
	DepositSize = new(uint256.Int).Mul(uint256.NewInt(32), Ether)
	// ShareRatePrecision scales share rates, rate = pooled * ShareRatePrecision / shares.
	ShareRatePrecision = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(27))
	// Unlimited is the sentinel returned as capacity of a disabled stake limit.
	Unlimited = new(uint256.Int).SetAllOne()
)

// Ethers returns n ether in wei.
func Ethers(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), Ether)
}

// ToGwei converts a wei amount to gwei, saturating at max int64. Used for gauges.
func ToGwei(wei *uint256.Int) int64 {
	g := new(uint256.Int).Div(wei, Gwei)
	if !g.IsUint64() || g.Uint64() > uint64(1<<63-1) {
		return 1<<63 - 1
	}
	return int64(g.Uint64())
}

// BigToUint256 converts a non-negative big integer, it returns false on overflow or negative input.
func BigToUint256(b *big.Int) (*uint256.Int, bool) {
	if b.Sign() < 0 {
		return nil, false
	}
	v, overflow := uint256.FromBig(b)
	return v, !overflow
}
