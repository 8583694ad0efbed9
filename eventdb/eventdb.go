// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"context"
	"database/sql"
	"strings"

	"github.com/holiman/uint256"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/vechain/lsp/cache"
	"github.com/vechain/lsp/log"
	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/staking"
)

var logger = log.WithContext("pkg", "eventdb")

// ErrNotFound is returned when a requested event does not exist.
var ErrNotFound = errors.New("event not found")

const rebaseCacheSize = 256

// EventDB stores pool events in sqlite.
type EventDB struct {
	path          string
	db            *sql.DB
	stmts         *stmtCache
	rebases       *cache.LRU
	driverVersion string
}

// New creates or opens an event db at the given path.
func New(path string) (eventDB *EventDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if eventDB == nil {
			db.Close()
		}
	}()
	// every connection to an in-memory db opens a new one
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(depositTableSchema + rebaseTableSchema); err != nil {
		return nil, errors.Wrap(err, "create tables")
	}

	rebases, err := cache.NewLRU(rebaseCacheSize)
	if err != nil {
		return nil, err
	}

	driverVer, _, _ := sqlite3.Version()
	return &EventDB{
		path:          path,
		db:            db,
		stmts:         newStmtCache(db),
		rebases:       rebases,
		driverVersion: driverVer,
	}, nil
}

// NewMem creates an event db in memory.
func NewMem() (*EventDB, error) {
	return New(":memory:")
}

func (db *EventDB) Close() error {
	db.stmts.Clear()
	return db.db.Close()
}

func (db *EventDB) Path() string {
	return db.path
}

// DriverVersion returns the version of the sqlite library in use.
func (db *EventDB) DriverVersion() string {
	return db.driverVersion
}

// InsertDeposit stores a deposit and returns its sequence number.
func (db *EventDB) InsertDeposit(ctx context.Context, ev *staking.DepositEvent) (uint64, error) {
	stmt, err := db.stmts.Prepare(`INSERT INTO deposit(blockNumber, timestamp, depositor, referral, amount, shares)
		VALUES(?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	res, err := stmt.ExecContext(ctx,
		ev.BlockNumber,
		ev.Timestamp,
		ev.Depositor.Bytes(),
		ev.Referral.Bytes(),
		orZero(ev.Amount),
		orZero(ev.Shares),
	)
	if err != nil {
		return 0, errors.Wrap(err, "insert deposit")
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(seq), nil
}

// InsertRebase stores a rebase. A rebase is identified by its report timestamp.
func (db *EventDB) InsertRebase(ctx context.Context, ev *staking.RebaseEvent) error {
	stmt, err := db.stmts.Prepare(`INSERT INTO rebase(` + rebaseColumns + `) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	if _, err := stmt.ExecContext(ctx,
		ev.Timestamp,
		ev.TimeElapsed,
		ev.CLValidators,
		orZero(ev.CLBalance),
		orZero(ev.PreTotalShares),
		orZero(ev.PreTotalPooledEther),
		orZero(ev.PostTotalShares),
		orZero(ev.PostTotalPooledEther),
		orZero(ev.FeeShares),
		orZero(ev.WithdrawalsLocked),
		orZero(ev.SharesBurned),
	); err != nil {
		return errors.Wrap(err, "insert rebase")
	}
	return nil
}

// FilterDeposits returns the deposits matching filter. A nil filter returns all of them.
func (db *EventDB) FilterDeposits(ctx context.Context, filter *DepositFilter) ([]*Deposit, error) {
	if filter == nil {
		filter = &DepositFilter{}
	}
	metricsHandleFilter("deposit", filter.Order, filter.Options)

	var args []any
	stmt := "SELECT seq, blockNumber, timestamp, depositor, referral, amount, shares FROM deposit WHERE 1"
	stmt, args = whereRange(stmt, args, filter.Range)
	if filter.Depositor != nil {
		stmt += " AND depositor = ?"
		args = append(args, filter.Depositor.Bytes())
	}
	if filter.Referral != nil {
		stmt += " AND referral = ?"
		args = append(args, filter.Referral.Bytes())
	}
	stmt += orderBy(filter.Order, "seq")
	stmt, args = limit(stmt, args, filter.Options)

	return db.queryDeposits(ctx, stmt, args...)
}

// FilterRebases returns the rebases matching filter. A nil filter returns all of them.
func (db *EventDB) FilterRebases(ctx context.Context, filter *RebaseFilter) ([]*staking.RebaseEvent, error) {
	if filter == nil {
		filter = &RebaseFilter{}
	}
	metricsHandleFilter("rebase", filter.Order, filter.Options)

	var args []any
	stmt := "SELECT " + rebaseColumns + " FROM rebase WHERE 1"
	stmt, args = whereRange(stmt, args, filter.Range)
	stmt += orderBy(filter.Order, "timestamp")
	stmt, args = limit(stmt, args, filter.Options)

	return db.queryRebases(ctx, stmt, args...)
}

// RebaseAt returns the rebase of the report with the given timestamp.
func (db *EventDB) RebaseAt(ctx context.Context, timestamp uint64) (*staking.RebaseEvent, error) {
	v, err := db.rebases.GetOrLoad(timestamp, func(key any) (any, error) {
		rebases, err := db.queryRebases(ctx, "SELECT "+rebaseColumns+" FROM rebase WHERE timestamp = ?", key)
		if err != nil {
			return nil, err
		}
		if len(rebases) == 0 {
			return nil, ErrNotFound
		}
		return rebases[0], nil
	})
	if db.rebases.Stats().Changed() {
		hit, miss := db.rebases.Stats().Counts()
		logger.Debug("rebase cache stats", "hit", hit, "miss", miss, "rate", db.rebases.Stats().HitRate())
	}
	if err != nil {
		return nil, err
	}
	return v.(*staking.RebaseEvent), nil
}

// LatestRebase returns the most recent rebase.
func (db *EventDB) LatestRebase(ctx context.Context) (*staking.RebaseEvent, error) {
	rebases, err := db.FilterRebases(ctx, &RebaseFilter{Order: DESC, Options: &Options{Limit: 1}})
	if err != nil {
		return nil, err
	}
	if len(rebases) == 0 {
		return nil, ErrNotFound
	}
	return rebases[0], nil
}

func whereRange(stmt string, args []any, r *Range) (string, []any) {
	if r == nil {
		return stmt, args
	}
	stmt += " AND timestamp >= ?"
	args = append(args, r.From)
	if r.To >= r.From {
		stmt += " AND timestamp <= ?"
		args = append(args, r.To)
	}
	return stmt, args
}

func orderBy(order Order, column string) string {
	if strings.EqualFold(string(order), string(DESC)) {
		return " ORDER BY " + column + " DESC"
	}
	return " ORDER BY " + column + " ASC"
}

func limit(stmt string, args []any, options *Options) (string, []any) {
	if options == nil {
		return stmt, args
	}
	return stmt + " LIMIT ?, ?", append(args, options.Offset, options.Limit)
}

func (db *EventDB) queryDeposits(ctx context.Context, stmt string, args ...any) ([]*Deposit, error) {
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deposits []*Deposit
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			d         = &Deposit{}
			depositor []byte
			referral  []byte
			amount    = new(uint256.Int)
			shares    = new(uint256.Int)
		)
		if err := rows.Scan(&d.Seq, &d.BlockNumber, &d.Timestamp, &depositor, &referral, amount, shares); err != nil {
			return nil, err
		}
		d.Depositor = lsp.BytesToAddress(depositor)
		d.Referral = lsp.BytesToAddress(referral)
		d.Amount = amount
		d.Shares = shares
		deposits = append(deposits, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return deposits, nil
}

func (db *EventDB) queryRebases(ctx context.Context, stmt string, args ...any) ([]*staking.RebaseEvent, error) {
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rebases []*staking.RebaseEvent
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		ev := &staking.RebaseEvent{
			CLBalance:            new(uint256.Int),
			PreTotalShares:       new(uint256.Int),
			PreTotalPooledEther:  new(uint256.Int),
			PostTotalShares:      new(uint256.Int),
			PostTotalPooledEther: new(uint256.Int),
			FeeShares:            new(uint256.Int),
			WithdrawalsLocked:    new(uint256.Int),
			SharesBurned:         new(uint256.Int),
		}
		if err := rows.Scan(
			&ev.Timestamp,
			&ev.TimeElapsed,
			&ev.CLValidators,
			ev.CLBalance,
			ev.PreTotalShares,
			ev.PreTotalPooledEther,
			ev.PostTotalShares,
			ev.PostTotalPooledEther,
			ev.FeeShares,
			ev.WithdrawalsLocked,
			ev.SharesBurned,
		); err != nil {
			return nil, err
		}
		rebases = append(rebases, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rebases, nil
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
