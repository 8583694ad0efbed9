// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fees

import (
	"github.com/holiman/uint256"

	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking/reverts"
)

// Recipient receives a share of the protocol fee.
type Recipient struct {
	Address     lsp.Address `json:"address" yaml:"address"`
	BasisPoints uint64      `json:"basisPoints" yaml:"basisPoints"`
}

// Table is the ordered list of fee recipients. The first recipient receives rounding remainders.
type Table []Recipient

// TotalBasisPoints returns the sum of all recipient weights.
func (t Table) TotalBasisPoints() uint64 {
	var total uint64
	for _, r := range t {
		total += r.BasisPoints
	}
	return total
}

// Validate checks the table can be used to distribute fees.
func (t Table) Validate() error {
	seen := make(map[lsp.Address]struct{}, len(t))
	var total uint64
	for _, r := range t {
		if r.Address.IsZero() {
			return reverts.New(reverts.KindInvalidWeights, "zero recipient address")
		}
		if _, ok := seen[r.Address]; ok {
			return reverts.Errorf(reverts.KindInvalidWeights, "duplicated recipient %s", r.Address)
		}
		seen[r.Address] = struct{}{}

		if r.BasisPoints > lsp.TotalBasisPoints {
			return reverts.Errorf(reverts.KindInvalidWeights, "recipient %s basis points %d", r.Address, r.BasisPoints)
		}
		total += r.BasisPoints
		if total > lsp.TotalBasisPoints {
			return reverts.Errorf(reverts.KindInvalidWeights, "total basis points exceed %d", lsp.TotalBasisPoints)
		}
	}
	return nil
}

// Copy returns a copy of the table.
func (t Table) Copy() Table {
	return append(Table(nil), t...)
}

// Part is the fee minted to a single recipient.
type Part struct {
	Recipient lsp.Address  `json:"recipient"`
	Shares    *uint256.Int `json:"shares"`
}

// Distribution is the outcome of splitting a reward, sum(Parts) == TotalShares.
type Distribution struct {
	TotalShares *uint256.Int `json:"totalShares"`
	Parts       []Part       `json:"parts"`
}

// Distributor converts rewards into fee shares.
type Distributor struct {
	table Table
}

// NewDistributor validates the table and returns a distributor using it.
func NewDistributor(table Table) (*Distributor, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &Distributor{table: table.Copy()}, nil
}

// Table returns a copy of the fee table in use.
func (d *Distributor) Table() Table {
	return d.table.Copy()
}

// Distribute computes the fee shares for a positive reward. The reward is first expressed
// in shares at the pre-report rate, then weighted by the total fee basis points.
func (d *Distributor) Distribute(reward, preTotalPooled, preTotalShares *uint256.Int) (*Distribution, error) {
	dist := &Distribution{TotalShares: new(uint256.Int)}

	totalBP := d.table.TotalBasisPoints()
	if reward.IsZero() || totalBP == 0 {
		return dist, nil
	}

	rewardShares := new(uint256.Int).Set(reward)
	if !preTotalShares.IsZero() {
		if preTotalPooled.IsZero() {
			return dist, nil
		}
		var overflow bool
		if rewardShares, overflow = new(uint256.Int).MulDivOverflow(reward, preTotalShares, preTotalPooled); overflow {
			return nil, reverts.New(reverts.KindInvalidReport, "reward shares overflow")
		}
	}

	feeShares, overflow := new(uint256.Int).MulDivOverflow(rewardShares, uint256.NewInt(totalBP), uint256.NewInt(lsp.TotalBasisPoints))
	if overflow {
		return nil, reverts.New(reverts.KindInvalidReport, "fee shares overflow")
	}
	if feeShares.IsZero() {
		return dist, nil
	}

	dist.TotalShares = feeShares
	dist.Parts = make([]Part, len(d.table))

	allocated := new(uint256.Int)
	for i, r := range d.table {
		part, _ := new(uint256.Int).MulDivOverflow(feeShares, uint256.NewInt(r.BasisPoints), uint256.NewInt(totalBP))
		dist.Parts[i] = Part{Recipient: r.Address, Shares: part}
		allocated.Add(allocated, part)
	}
	// remainder to the first recipient
	remainder := new(uint256.Int).Sub(feeShares, allocated)
	dist.Parts[0].Shares.Add(dist.Parts[0].Shares, remainder)

	return dist, nil
}
