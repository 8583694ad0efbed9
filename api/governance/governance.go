// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package governance serves the role gated pool operations.
package governance

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/lsp/api/utils"
	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking"
	"github.com/vechain/lsp/staking/acl"
	"github.com/vechain/lsp/staking/fees"
	"github.com/vechain/lsp/staking/sanity"
)

// Directory lists role holders.
type Directory interface {
	Members(role acl.Role) []lsp.Address
}

type Governance struct {
	pool      *staking.Pool
	directory Directory
}

// New creates the governance handlers. The roles route is only served with a directory.
func New(pool *staking.Pool, directory Directory) *Governance {
	return &Governance{pool, directory}
}

// handleCall decodes the body into a new T and applies op on behalf of the caller.
// The pool summary is responded on success.
func handleCall[T any](g *Governance, op func(caller lsp.Address, body *T) error) utils.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		caller, err := utils.Caller(req)
		if err != nil {
			return err
		}
		var body T
		if err := utils.ParseJSON(req.Body, &body); err != nil {
			return utils.BadRequest(errors.WithMessage(err, "body"))
		}
		if err := op(caller, &body); err != nil {
			return err
		}
		return utils.WriteJSON(w, g.pool.Summary())
	}
}

// handleAction applies a bodyless op on behalf of the caller.
func (g *Governance) handleAction(op func(caller lsp.Address) error) utils.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		caller, err := utils.Caller(req)
		if err != nil {
			return err
		}
		if err := op(caller); err != nil {
			return err
		}
		return utils.WriteJSON(w, g.pool.Summary())
	}
}

func (g *Governance) setStakingLimit(caller lsp.Address, body *StakingLimit) error {
	return g.pool.SetStakingLimit(caller, body.MaxLimit, body.GrowthPerBlock)
}

func (g *Governance) setFeeTable(caller lsp.Address, body *fees.Table) error {
	return g.pool.SetFeeTable(caller, *body)
}

func (g *Governance) setSanityLimits(caller lsp.Address, body *sanity.Limits) error {
	return g.pool.SetSanityLimits(caller, *body)
}

func (g *Governance) setOracle(caller lsp.Address, body *Oracle) error {
	return g.pool.SetOracle(caller, body.Oracle)
}

func (g *Governance) changeDepositedValidators(caller lsp.Address, body *Count) error {
	return g.pool.UnsafeChangeDepositedValidators(caller, body.Count)
}

func (g *Governance) handleDepositBufferedEther(w http.ResponseWriter, req *http.Request) error {
	caller, err := utils.Caller(req)
	if err != nil {
		return err
	}
	var body Count
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	amount, err := g.pool.DepositBufferedEther(caller, body.Count)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &DepositResult{Validators: body.Count, Amount: amount})
}

func (g *Governance) handleGetFees(w http.ResponseWriter, _ *http.Request) error {
	return utils.WriteJSON(w, g.pool.FeeTable())
}

func (g *Governance) handleGetSanityLimits(w http.ResponseWriter, _ *http.Request) error {
	return utils.WriteJSON(w, g.pool.SanityLimits())
}

func (g *Governance) handleGetRoles(w http.ResponseWriter, _ *http.Request) error {
	roles := make([]*RoleMembers, 0, len(acl.AllRoles))
	for _, role := range acl.AllRoles {
		roles = append(roles, &RoleMembers{Role: role, Members: g.directory.Members(role)})
	}
	return utils.WriteJSON(w, roles)
}

func (g *Governance) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/staking/pause").
		Methods(http.MethodPost).
		Name("POST /admin/staking/pause").
		HandlerFunc(utils.WrapHandlerFunc(g.handleAction(g.pool.PauseStaking)))
	sub.Path("/staking/resume").
		Methods(http.MethodPost).
		Name("POST /admin/staking/resume").
		HandlerFunc(utils.WrapHandlerFunc(g.handleAction(g.pool.ResumeStaking)))
	sub.Path("/staking/limit").
		Methods(http.MethodPost).
		Name("POST /admin/staking/limit").
		HandlerFunc(utils.WrapHandlerFunc(handleCall(g, g.setStakingLimit)))
	sub.Path("/staking/limit/remove").
		Methods(http.MethodPost).
		Name("POST /admin/staking/limit/remove").
		HandlerFunc(utils.WrapHandlerFunc(g.handleAction(g.pool.RemoveStakingLimit)))
	sub.Path("/fees").
		Methods(http.MethodGet).
		Name("GET /admin/fees").
		HandlerFunc(utils.WrapHandlerFunc(g.handleGetFees))
	sub.Path("/fees").
		Methods(http.MethodPost).
		Name("POST /admin/fees").
		HandlerFunc(utils.WrapHandlerFunc(handleCall(g, g.setFeeTable)))
	sub.Path("/sanity-limits").
		Methods(http.MethodGet).
		Name("GET /admin/sanity-limits").
		HandlerFunc(utils.WrapHandlerFunc(g.handleGetSanityLimits))
	sub.Path("/sanity-limits").
		Methods(http.MethodPost).
		Name("POST /admin/sanity-limits").
		HandlerFunc(utils.WrapHandlerFunc(handleCall(g, g.setSanityLimits)))
	sub.Path("/oracle").
		Methods(http.MethodPost).
		Name("POST /admin/oracle").
		HandlerFunc(utils.WrapHandlerFunc(handleCall(g, g.setOracle)))
	sub.Path("/deposited-validators").
		Methods(http.MethodPost).
		Name("POST /admin/deposited-validators").
		HandlerFunc(utils.WrapHandlerFunc(handleCall(g, g.changeDepositedValidators)))
	sub.Path("/deposits").
		Methods(http.MethodPost).
		Name("POST /admin/deposits").
		HandlerFunc(utils.WrapHandlerFunc(g.handleDepositBufferedEther))
	if g.directory != nil {
		sub.Path("/roles").
			Methods(http.MethodGet).
			Name("GET /admin/roles").
			HandlerFunc(utils.WrapHandlerFunc(g.handleGetRoles))
	}
}
