// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package acl

import (
	"maps"
	"slices"
	"sync"

	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking/reverts"
)

// Role names a permission required by an administrative operation.
type Role string

const (
	RolePauseStaking          Role = "pause_staking"
	RoleResumeStaking         Role = "resume_staking"
	RoleStakingControl        Role = "staking_control"
	RoleManageFees            Role = "manage_fees"
	RoleManageSanityLimits    Role = "manage_sanity_limits"
	RoleManageOracle          Role = "manage_oracle"
	RoleUnsafeChangeDeposited Role = "unsafe_change_deposited_validators"
	RoleDepositor             Role = "depositor"
)

// AllRoles lists every known role.
var AllRoles = []Role{
	RolePauseStaking,
	RoleResumeStaking,
	RoleStakingControl,
	RoleManageFees,
	RoleManageSanityLimits,
	RoleManageOracle,
	RoleUnsafeChangeDeposited,
	RoleDepositor,
}

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	return slices.Contains(AllRoles, r)
}

// Authority decides whether an address holds a role.
type Authority interface {
	HasRole(role Role, who lsp.Address) bool
}

// Check returns an Unauthorized revert unless who holds role.
func Check(a Authority, role Role, who lsp.Address) error {
	if a == nil || !a.HasRole(role, who) {
		return reverts.Errorf(reverts.KindUnauthorized, "%s lacks role %s", who, role)
	}
	return nil
}

// Roles is an in-memory Authority.
type Roles struct {
	lock    sync.RWMutex
	members map[Role]map[lsp.Address]struct{}
}

var _ Authority = (*Roles)(nil)

func NewRoles() *Roles {
	return &Roles{members: make(map[Role]map[lsp.Address]struct{})}
}

// Grant gives role to every address in who.
func (r *Roles) Grant(role Role, who ...lsp.Address) error {
	if !role.Valid() {
		return reverts.Errorf(reverts.KindInvalidRequest, "unknown role %q", role)
	}
	r.lock.Lock()
	defer r.lock.Unlock()

	m, ok := r.members[role]
	if !ok {
		m = make(map[lsp.Address]struct{})
		r.members[role] = m
	}
	for _, w := range who {
		m[w] = struct{}{}
	}
	return nil
}

func (r *Roles) Revoke(role Role, who lsp.Address) {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.members[role], who)
}

func (r *Roles) HasRole(role Role, who lsp.Address) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()

	_, ok := r.members[role][who]
	return ok
}

// Members returns the holders of role in address order.
func (r *Roles) Members(role Role) []lsp.Address {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return slices.SortedFunc(maps.Keys(r.members[role]), lsp.Address.Compare)
}
