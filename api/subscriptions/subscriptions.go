// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"

	"github.com/vechain/lsp/api/utils"
	"github.com/vechain/lsp/eventdb"
	"github.com/vechain/lsp/log"
	"github.com/vechain/lsp/staking"
)

var logger = log.WithContext("pkg", "subscriptions")

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 7) / 10

	backfillLimit = 1000
)

// Source feeds pool events.
type Source interface {
	SubscribeRebase(ch chan *staking.RebaseEvent) event.Subscription
	SubscribeDeposit(ch chan *staking.DepositEvent) event.Subscription
}

type Subscriptions struct {
	source       Source
	db           *eventdb.EventDB
	upgrader     *websocket.Upgrader
	messages     *messageCache
	lock         sync.Mutex
	pendingConns map[string]*websocket.Conn
	done         chan struct{}
	wg           sync.WaitGroup
}

// New creates the subscription handlers. With a db, rebase subscribers may ask for
// the rebases they missed since a timestamp.
func New(source Source, db *eventdb.EventDB, allowedOrigins []string) *Subscriptions {
	return &Subscriptions{
		source: source,
		db:     db,
		upgrader: &websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == origin || allowed == "*" {
						return true
					}
				}
				return false
			},
		},
		messages:     newMessageCache(64),
		pendingConns: make(map[string]*websocket.Conn),
		done:         make(chan struct{}),
	}
}

func (s *Subscriptions) handleSubscribeRebase(w http.ResponseWriter, req *http.Request) error {
	since, err := utils.ParseUint(req.URL.Query().Get("since"), "since", 0)
	if err != nil {
		return err
	}
	if req.URL.Query().Has("since") && s.db == nil {
		return utils.BadRequest(errors.New("since: event history disabled"))
	}

	ch := make(chan *staking.RebaseEvent, 16)
	sub := s.source.SubscribeRebase(ch)
	defer sub.Unsubscribe()

	return s.serve(w, req, sub, func(conn *websocket.Conn) error {
		last := since
		if req.URL.Query().Has("since") {
			missed, err := s.db.FilterRebases(req.Context(), &eventdb.RebaseFilter{
				Range:   &eventdb.Range{From: since + 1, To: math.MaxInt64},
				Options: &eventdb.Options{Limit: backfillLimit},
			})
			if err != nil {
				return err
			}
			for _, ev := range missed {
				if err := s.writeRebase(conn, ev); err != nil {
					return err
				}
				last = ev.Timestamp
			}
		}
		return pipe(s, conn, ch, sub, func(ev *staking.RebaseEvent) error {
			// already sent from history
			if ev.Timestamp <= last {
				return nil
			}
			last = ev.Timestamp
			return s.writeRebase(conn, ev)
		})
	})
}

func (s *Subscriptions) handleSubscribeDeposit(w http.ResponseWriter, req *http.Request) error {
	ch := make(chan *staking.DepositEvent, 64)
	sub := s.source.SubscribeDeposit(ch)
	defer sub.Unsubscribe()

	return s.serve(w, req, sub, func(conn *websocket.Conn) error {
		return pipe(s, conn, ch, sub, func(ev *staking.DepositEvent) error {
			return writeMessage(conn, func() ([]byte, error) { return json.Marshal(ev) })
		})
	})
}

func (s *Subscriptions) writeRebase(conn *websocket.Conn, ev *staking.RebaseEvent) error {
	return writeMessage(conn, func() ([]byte, error) {
		msg, _, err := s.messages.GetOrAdd(ev.Timestamp, func() ([]byte, error) {
			return json.Marshal(ev)
		})
		return msg, err
	})
}

// serve upgrades the request and runs stream until it fails, the peer leaves or s closes.
func (s *Subscriptions) serve(w http.ResponseWriter, req *http.Request, sub event.Subscription, stream func(*websocket.Conn) error) error {
	conn, closed, err := s.setupConn(w, req)
	// since the conn is hijacked here, no error should be returned in lines below
	if err != nil {
		logger.Debug("upgrade to websocket", "err", err)
		return err
	}
	defer func() { s.closeConn(conn, err) }()

	go func() {
		<-closed
		sub.Unsubscribe()
	}()

	if err = stream(conn); err != nil {
		logger.Debug("subscription ended", "path", req.URL.Path, "err", err)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	}
	return nil
}

// pipe writes events from ch until the subscription ends or s closes.
func pipe[T any](s *Subscriptions, conn *websocket.Conn, ch <-chan T, sub event.Subscription, write func(T) error) error {
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-s.done:
			return nil
		case err, ok := <-sub.Err():
			if !ok {
				return context.Canceled
			}
			return err
		case ev := <-ch:
			if err := write(ev); err != nil {
				return err
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}

func writeMessage(conn *websocket.Conn, encode func() ([]byte, error)) error {
	msg, err := encode()
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, msg)
}

func (s *Subscriptions) setupConn(w http.ResponseWriter, req *http.Request) (*websocket.Conn, chan struct{}, error) {
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return nil, nil, err
	}

	id := uuid.New()
	s.lock.Lock()
	s.pendingConns[id] = conn
	s.lock.Unlock()
	s.wg.Add(1)

	closed := make(chan struct{})
	// start read loop to handle close event
	go func() {
		defer close(closed)
		defer func() {
			s.lock.Lock()
			delete(s.pendingConns, id)
			s.lock.Unlock()
			s.wg.Done()
		}()
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				logger.Debug("websocket read", "id", id, "err", err)
				return
			}
		}
	}()
	return conn, closed, nil
}

func (s *Subscriptions) closeConn(conn *websocket.Conn, err error) {
	var closeMsg []byte
	if err != nil {
		closeMsg = websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error())
	} else {
		closeMsg = websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	}

	if err := conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait)); err != nil {
		logger.Debug("write close message", "err", err)
	}
	conn.Close()
}

// Close ends every subscription. Subscribers' connections are hijacked, so the http server
// won't close them.
func (s *Subscriptions) Close() {
	close(s.done)

	s.lock.Lock()
	for _, conn := range s.pendingConns {
		conn.Close()
	}
	s.lock.Unlock()

	s.wg.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/rebase").
		Methods(http.MethodGet).
		Name("WS /subscriptions/rebase").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSubscribeRebase))
	sub.Path("/deposit").
		Methods(http.MethodGet).
		Name("WS /subscriptions/deposit").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSubscribeDeposit))
}
