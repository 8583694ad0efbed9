// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking"
)

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Range selects events by timestamp, both ends inclusive. To below From leaves the range open.
type Range struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

type DepositFilter struct {
	Depositor *lsp.Address `json:"depositor"`
	Referral  *lsp.Address `json:"referral"`
	Range     *Range       `json:"range"`
	Order     Order        `json:"order"`
	Options   *Options     `json:"options"`
}

type RebaseFilter struct {
	Range   *Range   `json:"range"`
	Order   Order    `json:"order"`
	Options *Options `json:"options"`
}

// Deposit is a stored deposit event. Seq orders deposits by arrival.
type Deposit struct {
	Seq uint64 `json:"seq"`
	staking.DepositEvent
}
