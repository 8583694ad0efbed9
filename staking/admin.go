// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/holiman/uint256"

	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking/acl"
	"github.com/vechain/lsp/staking/fees"
	"github.com/vechain/lsp/staking/reverts"
	"github.com/vechain/lsp/staking/sanity"
	"github.com/vechain/lsp/staking/stakelimit"
)

// Governance operations. Each one requires its own role and takes effect for the next
// deposit or report.

func (p *Pool) PauseStaking(caller lsp.Address) error {
	return p.updateStakeLimit(caller, acl.RolePauseStaking, func(d stakelimit.Data, _ uint64) (stakelimit.Data, error) {
		return d.Pause(), nil
	})
}

func (p *Pool) ResumeStaking(caller lsp.Address) error {
	return p.updateStakeLimit(caller, acl.RoleResumeStaking, func(d stakelimit.Data, block uint64) (stakelimit.Data, error) {
		return d.Resume(block), nil
	})
}

// SetStakingLimit limits deposits to maxLimit, recovering growthPerBlock every block.
func (p *Pool) SetStakingLimit(caller lsp.Address, maxLimit, growthPerBlock *uint256.Int) error {
	if maxLimit == nil || growthPerBlock == nil {
		return reverts.New(reverts.KindInvalidRequest, "stake limit parameters required")
	}
	return p.updateStakeLimit(caller, acl.RoleStakingControl, func(d stakelimit.Data, block uint64) (stakelimit.Data, error) {
		return d.SetLimit(maxLimit, growthPerBlock, block)
	})
}

// RemoveStakingLimit lifts the limit, deposits stay subject to pausing.
func (p *Pool) RemoveStakingLimit(caller lsp.Address) error {
	return p.updateStakeLimit(caller, acl.RoleStakingControl, func(d stakelimit.Data, _ uint64) (stakelimit.Data, error) {
		return d.Remove(), nil
	})
}

func (p *Pool) updateStakeLimit(caller lsp.Address, role acl.Role, update func(stakelimit.Data, uint64) (stakelimit.Data, error)) error {
	if err := acl.Check(p.authority, role, caller); err != nil {
		return err
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	limit, err := update(p.ledger.StakeLimit(), p.clock.BlockNumber())
	if err != nil {
		return err
	}
	if err := p.ledger.SetStakeLimit(limit); err != nil {
		return err
	}
	logger.Info("stake limit updated", "by", caller, "role", role, "paused", limit.IsPaused(), "max", limit.MaxLimit, "growth", limit.GrowthPerBlock)
	return nil
}

// SetFeeTable replaces the fee recipients.
func (p *Pool) SetFeeTable(caller lsp.Address, table fees.Table) error {
	if err := acl.Check(p.authority, acl.RoleManageFees, caller); err != nil {
		return err
	}
	distributor, err := fees.NewDistributor(table)
	if err != nil {
		return err
	}

	p.lock.Lock()
	p.distributor = distributor
	p.lock.Unlock()

	logger.Info("fee table updated", "by", caller, "recipients", len(table), "totalBP", table.TotalBasisPoints())
	return nil
}

// FeeTable returns the fee recipients in use.
func (p *Pool) FeeTable() fees.Table {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return p.distributor.Table()
}

// SetSanityLimits replaces the report sanity limits.
func (p *Pool) SetSanityLimits(caller lsp.Address, limits sanity.Limits) error {
	if err := acl.Check(p.authority, acl.RoleManageSanityLimits, caller); err != nil {
		return err
	}
	checker, err := sanity.New(limits)
	if err != nil {
		return err
	}

	p.lock.Lock()
	p.checker = checker
	p.lock.Unlock()

	logger.Info("sanity limits updated", "by", caller)
	return nil
}

// SanityLimits returns the report sanity limits in use.
func (p *Pool) SanityLimits() sanity.Limits {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return p.checker.Limits()
}

// SetOracle designates the address allowed to submit reports.
func (p *Pool) SetOracle(caller, oracle lsp.Address) error {
	if err := acl.Check(p.authority, acl.RoleManageOracle, caller); err != nil {
		return err
	}
	if oracle.IsZero() {
		return reverts.New(reverts.KindInvalidRequest, "zero oracle address")
	}

	p.lock.Lock()
	p.oracle = oracle
	p.lock.Unlock()

	logger.Info("oracle updated", "by", caller, "oracle", oracle)
	return nil
}

// UnsafeChangeDepositedValidators overrides the deposited validator count, used to recover
// from deposits made outside the pool.
func (p *Pool) UnsafeChangeDepositedValidators(caller lsp.Address, count uint64) error {
	if err := acl.Check(p.authority, acl.RoleUnsafeChangeDeposited, caller); err != nil {
		return err
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	if err := p.ledger.SetDepositedValidators(count); err != nil {
		return err
	}
	updatePoolGauges(p.ledger.Snapshot())
	logger.Warn("deposited validators changed", "by", caller, "count", count)
	return nil
}

// DepositBufferedEther sends count validator deposits from the buffer and returns the
// amount deposited.
func (p *Pool) DepositBufferedEther(caller lsp.Address, count uint64) (*uint256.Int, error) {
	if err := acl.Check(p.authority, acl.RoleDepositor, caller); err != nil {
		return nil, err
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	amount, err := p.ledger.DepositBufferedEther(count)
	if err != nil {
		return nil, err
	}
	updatePoolGauges(p.ledger.Snapshot())
	logger.Info("buffered ether deposited", "by", caller, "validators", count, "amount", amount)
	return amount, nil
}
