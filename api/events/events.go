// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"fmt"
	"math"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/lsp/api/utils"
	"github.com/vechain/lsp/eventdb"
	"github.com/vechain/lsp/staking"
)

type Events struct {
	db    *eventdb.EventDB
	limit uint64
}

func New(db *eventdb.EventDB, limit uint64) *Events {
	return &Events{
		db,
		limit,
	}
}

// parseFilter reads the range, order and paging parameters shared by every event query.
func (e *Events) parseFilter(query url.Values) (*eventdb.Range, eventdb.Order, *eventdb.Options, error) {
	var rng *eventdb.Range
	if query.Has("from") || query.Has("to") {
		from, err := utils.ParseUint(query.Get("from"), "from", 0)
		if err != nil {
			return nil, "", nil, err
		}
		to, err := utils.ParseUint(query.Get("to"), "to", math.MaxInt64)
		if err != nil {
			return nil, "", nil, err
		}
		if from > math.MaxInt64 || to > math.MaxInt64 {
			return nil, "", nil, utils.BadRequest(fmt.Errorf("range exceeds the maximum allowed value of %d", math.MaxInt64))
		}
		if from > to {
			return nil, "", nil, utils.BadRequest(errors.New("to must be greater than or equal to from"))
		}
		rng = &eventdb.Range{From: from, To: to}
	}

	order := eventdb.Order(query.Get("order"))
	switch order {
	case "", eventdb.ASC, eventdb.DESC:
	default:
		return nil, "", nil, utils.BadRequest(fmt.Errorf("order: must be %s or %s", eventdb.ASC, eventdb.DESC))
	}

	offset, err := utils.ParseUint(query.Get("offset"), "offset", 0)
	if err != nil {
		return nil, "", nil, err
	}
	if offset > math.MaxInt64 {
		return nil, "", nil, utils.BadRequest(fmt.Errorf("offset exceeds the maximum allowed value of %d", math.MaxInt64))
	}
	// one more than the limit to detect whether there are more events than allowed
	limit, err := utils.ParseUint(query.Get("limit"), "limit", e.limit+1)
	if err != nil {
		return nil, "", nil, err
	}
	if query.Has("limit") && limit > e.limit {
		return nil, "", nil, utils.Forbidden(fmt.Errorf("limit exceeds the maximum allowed value of %d", e.limit))
	}
	return rng, order, &eventdb.Options{Offset: offset, Limit: limit}, nil
}

func (e *Events) handleFilterDeposits(w http.ResponseWriter, req *http.Request) error {
	query := req.URL.Query()
	depositor, err := utils.ParseAddress(query.Get("depositor"), "depositor")
	if err != nil {
		return err
	}
	referral, err := utils.ParseAddress(query.Get("referral"), "referral")
	if err != nil {
		return err
	}
	rng, order, options, err := e.parseFilter(query)
	if err != nil {
		return err
	}

	deposits, err := e.db.FilterDeposits(req.Context(), &eventdb.DepositFilter{
		Depositor: depositor,
		Referral:  referral,
		Range:     rng,
		Order:     order,
		Options:   options,
	})
	if err != nil {
		return err
	}
	if len(deposits) > int(e.limit) {
		return utils.Forbidden(fmt.Errorf("the number of filtered events exceeds the maximum allowed value of %d, please use pagination", e.limit))
	}
	if deposits == nil {
		deposits = []*eventdb.Deposit{}
	}
	return utils.WriteJSON(w, deposits)
}

func (e *Events) handleFilterRebases(w http.ResponseWriter, req *http.Request) error {
	rng, order, options, err := e.parseFilter(req.URL.Query())
	if err != nil {
		return err
	}

	rebases, err := e.db.FilterRebases(req.Context(), &eventdb.RebaseFilter{
		Range:   rng,
		Order:   order,
		Options: options,
	})
	if err != nil {
		return err
	}
	if len(rebases) > int(e.limit) {
		return utils.Forbidden(fmt.Errorf("the number of filtered events exceeds the maximum allowed value of %d, please use pagination", e.limit))
	}
	if rebases == nil {
		rebases = []*staking.RebaseEvent{}
	}
	return utils.WriteJSON(w, rebases)
}

func (e *Events) handleGetRebase(w http.ResponseWriter, req *http.Request) error {
	var (
		rebase *staking.RebaseEvent
		err    error
	)
	if ts := mux.Vars(req)["timestamp"]; ts == "latest" {
		rebase, err = e.db.LatestRebase(req.Context())
	} else {
		timestamp, perr := utils.ParseUint(ts, "timestamp", 0)
		if perr != nil {
			return perr
		}
		rebase, err = e.db.RebaseAt(req.Context(), timestamp)
	}
	if err != nil {
		if errors.Is(err, eventdb.ErrNotFound) {
			return utils.NotFound(err)
		}
		return err
	}
	return utils.WriteJSON(w, rebase)
}

func (e *Events) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/deposits").
		Methods(http.MethodGet).
		Name("GET /events/deposits").
		HandlerFunc(utils.WrapHandlerFunc(e.handleFilterDeposits))
	sub.Path("/rebases").
		Methods(http.MethodGet).
		Name("GET /events/rebases").
		HandlerFunc(utils.WrapHandlerFunc(e.handleFilterRebases))
	sub.Path("/rebases/{timestamp}").
		Methods(http.MethodGet).
		Name("GET /events/rebases/{timestamp}").
		HandlerFunc(utils.WrapHandlerFunc(e.handleGetRebase))
}
