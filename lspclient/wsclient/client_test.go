// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package wsclient

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		url    string
		host   string
		scheme string
	}{
		{"http://localhost:8669", "localhost:8669", "ws"},
		{"ws://localhost:8669/", "localhost:8669", "ws"},
		{"https://lsp.example", "lsp.example", "wss"},
		{"wss://lsp.example", "lsp.example", "wss"},
	}
	for _, tt := range tests {
		c, err := NewClient(tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.host, c.host)
		assert.Equal(t, tt.scheme, c.scheme)
	}

	_, err := NewClient("localhost:8669")
	assert.Error(t, err)
}

func serveMessages(t *testing.T, msgs ...string) *httptest.Server {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/subscriptions/rebase", r.URL.Path)
		assert.Equal(t, "since=5", r.URL.RawQuery)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, m := range msgs {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		// hold until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestSubscribeRebases(t *testing.T) {
	ts := serveMessages(t, `{"timestamp":10}`, `{"timestamp":20}`, `not json`)
	c, err := NewClient(ts.URL)
	require.NoError(t, err)

	since := uint64(5)
	sub, err := c.SubscribeRebases(&since)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	for _, want := range []uint64{10, 20} {
		select {
		case ev := <-sub.EventChan:
			require.NoError(t, ev.Error)
			assert.Equal(t, want, ev.Data.Timestamp)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout")
		}
	}

	select {
	case ev := <-sub.EventChan:
		assert.True(t, errors.Is(ev.Error, ErrUnexpectedMsg))
	case <-time.After(2 * time.Second):
		t.Fatal("timeout")
	}
	_, ok := <-sub.EventChan
	assert.False(t, ok)
}

func TestUnsubscribe(t *testing.T) {
	ts := serveMessages(t)
	c, err := NewClient(ts.URL)
	require.NoError(t, err)

	since := uint64(5)
	sub, err := c.SubscribeRebases(&since)
	require.NoError(t, err)

	require.NoError(t, sub.Unsubscribe())
	// a second call is a no-op
	require.NoError(t, sub.Unsubscribe())

	select {
	case _, ok := <-sub.EventChan:
		for ok {
			_, ok = <-sub.EventChan
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed")
	}
}
