// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/lsp/api/utils"
	"github.com/vechain/lsp/staking"
)

type Pool struct {
	pool *staking.Pool
}

func New(pool *staking.Pool) *Pool {
	return &Pool{pool}
}

func (p *Pool) handleGetSummary(w http.ResponseWriter, _ *http.Request) error {
	return utils.WriteJSON(w, p.pool.Summary())
}

func (p *Pool) handleGetShares(w http.ResponseWriter, req *http.Request) error {
	addr, err := utils.ParseAddress(mux.Vars(req)["address"], "address")
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Holding{
		Address: *addr,
		Shares:  p.pool.SharesOf(*addr),
		Ether:   p.pool.EtherOf(*addr),
	})
}

func (p *Pool) handleDeposit(w http.ResponseWriter, req *http.Request) error {
	caller, err := utils.Caller(req)
	if err != nil {
		return err
	}
	var deposit Deposit
	if err := utils.ParseJSON(req.Body, &deposit); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if deposit.Amount == nil {
		return utils.BadRequest(errors.New("body: amount required"))
	}
	shares, err := p.pool.Submit(caller, deposit.Amount, deposit.Referral)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &DepositResult{Shares: shares})
}

func (p *Pool) handleReport(w http.ResponseWriter, req *http.Request) error {
	caller, err := utils.Caller(req)
	if err != nil {
		return err
	}
	var report staking.Report
	if err := utils.ParseJSON(req.Body, &report); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	result, err := p.pool.HandleReport(caller, &report)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, result)
}

func (p *Pool) handleSimulateReport(w http.ResponseWriter, req *http.Request) error {
	var report staking.Report
	if err := utils.ParseJSON(req.Body, &report); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	result, err := p.pool.SimulateReport(&report)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, result)
}

func (p *Pool) handleIncome(receive func(*uint256.Int) error) utils.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		var income Income
		if err := utils.ParseJSON(req.Body, &income); err != nil {
			return utils.BadRequest(errors.WithMessage(err, "body"))
		}
		if income.Amount == nil {
			return utils.BadRequest(errors.New("body: amount required"))
		}
		if err := receive(income.Amount); err != nil {
			return err
		}
		return utils.WriteJSON(w, p.pool.Summary())
	}
}

func (p *Pool) handleBurn(w http.ResponseWriter, req *http.Request) error {
	caller, err := utils.Caller(req)
	if err != nil {
		return err
	}
	var body SharesRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.Shares == nil {
		return utils.BadRequest(errors.New("body: shares required"))
	}
	if err := p.pool.RequestBurn(caller, body.Shares); err != nil {
		return err
	}
	return utils.WriteJSON(w, &Holding{
		Address: caller,
		Shares:  p.pool.SharesOf(caller),
		Ether:   p.pool.EtherOf(caller),
	})
}

func (p *Pool) handleRequestWithdrawal(w http.ResponseWriter, req *http.Request) error {
	caller, err := utils.Caller(req)
	if err != nil {
		return err
	}
	var body SharesRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	request, err := p.pool.RequestWithdrawal(caller, body.Shares)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, request)
}

func (p *Pool) handleGetWithdrawals(w http.ResponseWriter, req *http.Request) error {
	owner, err := utils.ParseAddress(req.URL.Query().Get("owner"), "owner")
	if err != nil {
		return err
	}
	if owner == nil {
		return utils.BadRequest(errors.New("owner: required"))
	}
	return utils.WriteJSON(w, p.pool.WithdrawalRequestsOf(*owner))
}

func (p *Pool) handleGetWithdrawal(w http.ResponseWriter, req *http.Request) error {
	id, err := utils.ParseUint(mux.Vars(req)["id"], "id", 0)
	if err != nil {
		return err
	}
	request, err := p.pool.WithdrawalRequest(id)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, request)
}

func (p *Pool) handleClaimWithdrawal(w http.ResponseWriter, req *http.Request) error {
	caller, err := utils.Caller(req)
	if err != nil {
		return err
	}
	id, err := utils.ParseUint(mux.Vars(req)["id"], "id", 0)
	if err != nil {
		return err
	}
	amount, err := p.pool.ClaimWithdrawal(caller, id)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &ClaimResult{ID: id, Amount: amount})
}

func (p *Pool) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /pool").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetSummary))
	sub.Path("/shares/{address}").
		Methods(http.MethodGet).
		Name("GET /pool/shares/{address}").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetShares))
	sub.Path("/deposits").
		Methods(http.MethodPost).
		Name("POST /pool/deposits").
		HandlerFunc(utils.WrapHandlerFunc(p.handleDeposit))
	sub.Path("/reports").
		Methods(http.MethodPost).
		Name("POST /pool/reports").
		HandlerFunc(utils.WrapHandlerFunc(p.handleReport))
	sub.Path("/reports/simulate").
		Methods(http.MethodPost).
		Name("POST /pool/reports/simulate").
		HandlerFunc(utils.WrapHandlerFunc(p.handleSimulateReport))
	sub.Path("/income/rewards").
		Methods(http.MethodPost).
		Name("POST /pool/income/rewards").
		HandlerFunc(utils.WrapHandlerFunc(p.handleIncome(p.pool.ReceiveRewardIncome)))
	sub.Path("/income/withdrawals").
		Methods(http.MethodPost).
		Name("POST /pool/income/withdrawals").
		HandlerFunc(utils.WrapHandlerFunc(p.handleIncome(p.pool.ReceiveWithdrawalIncome)))
	sub.Path("/burns").
		Methods(http.MethodPost).
		Name("POST /pool/burns").
		HandlerFunc(utils.WrapHandlerFunc(p.handleBurn))
	sub.Path("/withdrawals").
		Methods(http.MethodPost).
		Name("POST /pool/withdrawals").
		HandlerFunc(utils.WrapHandlerFunc(p.handleRequestWithdrawal))
	sub.Path("/withdrawals").
		Methods(http.MethodGet).
		Name("GET /pool/withdrawals").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetWithdrawals))
	sub.Path("/withdrawals/{id}").
		Methods(http.MethodGet).
		Name("GET /pool/withdrawals/{id}").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetWithdrawal))
	sub.Path("/withdrawals/{id}/claim").
		Methods(http.MethodPost).
		Name("POST /pool/withdrawals/{id}/claim").
		HandlerFunc(utils.WrapHandlerFunc(p.handleClaimWithdrawal))
}
