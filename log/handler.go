// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"io"
	"log/slog"

	ethlog "github.com/ethereum/go-ethereum/log"
)

// levelHandler drops records below a level which is read on every record,
// so a *slog.LevelVar may be changed while the handler is in use.
type levelHandler struct {
	inner slog.Handler
	level slog.Leveler
}

func withLevel(h slog.Handler, level slog.Leveler) slog.Handler {
	return &levelHandler{inner: h, level: level}
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.inner.Enabled(ctx, level)
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return withLevel(h.inner.WithAttrs(attrs), h.level)
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return withLevel(h.inner.WithGroup(name), h.level)
}

// NewTerminalHandlerWithLevel is NewTerminalHandler dropping records below lvl.
func NewTerminalHandlerWithLevel(wr io.Writer, lvl slog.Leveler, useColor bool) slog.Handler {
	return withLevel(ethlog.NewTerminalHandler(wr, useColor), lvl)
}

// JSONHandlerWithLevel is JSONHandler dropping records below level.
func JSONHandlerWithLevel(wr io.Writer, level slog.Leveler) slog.Handler {
	return withLevel(ethlog.JSONHandler(wr), level)
}
