// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"github.com/holiman/uint256"

	"github.com/vechain/lsp/lsp"
)

// Deposit is submitted by the caller, who becomes the holder of the minted shares.
type Deposit struct {
	Amount   *uint256.Int `json:"amount"`
	Referral lsp.Address  `json:"referral"`
}

type DepositResult struct {
	Shares *uint256.Int `json:"shares"`
}

// Income is ether received outside of deposits.
type Income struct {
	Amount *uint256.Int `json:"amount"`
}

// Holding is the balance of an address.
type Holding struct {
	Address lsp.Address  `json:"address"`
	Shares  *uint256.Int `json:"shares"`
	Ether   *uint256.Int `json:"ether"`
}

// SharesRequest names an amount of the caller's shares, to withdraw or to burn.
type SharesRequest struct {
	Shares *uint256.Int `json:"shares"`
}

type ClaimResult struct {
	ID     uint64       `json:"id"`
	Amount *uint256.Int `json:"amount"`
}
