// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package governance

import (
	"github.com/holiman/uint256"

	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking/acl"
)

type StakingLimit struct {
	MaxLimit       *uint256.Int `json:"maxLimit"`
	GrowthPerBlock *uint256.Int `json:"growthPerBlock"`
}

type Oracle struct {
	Oracle lsp.Address `json:"oracle"`
}

type Count struct {
	Count uint64 `json:"count"`
}

type DepositResult struct {
	Validators uint64       `json:"validators"`
	Amount     *uint256.Int `json:"amount"`
}

type RoleMembers struct {
	Role    acl.Role      `json:"role"`
	Members []lsp.Address `json:"members"`
}
