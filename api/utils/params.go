// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/vechain/lsp/lsp"
)

// ParseUint parses a decimal or 0x prefixed path or query parameter.
// An empty value yields def.
func ParseUint(value, name string, def uint64) (uint64, error) {
	if value == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(value, 0, 64)
	if err != nil {
		return 0, BadRequest(errors.WithMessage(err, name))
	}
	return n, nil
}

// ParseAddress parses an address parameter. An empty value yields nil.
func ParseAddress(value, name string) (*lsp.Address, error) {
	if value == "" {
		return nil, nil
	}
	addr, err := lsp.ParseAddress(value)
	if err != nil {
		return nil, BadRequest(errors.WithMessage(err, name))
	}
	return addr, nil
}
