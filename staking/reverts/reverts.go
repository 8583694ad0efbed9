// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"fmt"
)

// Kind classifies a business failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindInvalidReport
	KindSanityViolation
	KindLimitExceeded
	KindStakingPaused
	KindInvalidWeights
	KindReportInProgress
	KindZeroAmount
	KindInvalidRequest
	KindNotFound
)

var kindNames = [...]string{
	KindUnknown:          "unknown",
	KindUnauthorized:     "unauthorized",
	KindInvalidReport:    "invalid report",
	KindSanityViolation:  "sanity violation",
	KindLimitExceeded:    "limit exceeded",
	KindStakingPaused:    "staking paused",
	KindInvalidWeights:   "invalid weights",
	KindReportInProgress: "report in progress",
	KindZeroAmount:       "zero amount",
	KindInvalidRequest:   "invalid request",
	KindNotFound:         "not found",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Sentinels for errors.Is. Any revert of the same kind matches its sentinel.
var (
	ErrUnauthorized     = &ErrRevert{kind: KindUnauthorized}
	ErrInvalidReport    = &ErrRevert{kind: KindInvalidReport}
	ErrSanityViolation  = &ErrRevert{kind: KindSanityViolation}
	ErrLimitExceeded    = &ErrRevert{kind: KindLimitExceeded}
	ErrStakingPaused    = &ErrRevert{kind: KindStakingPaused}
	ErrInvalidWeights   = &ErrRevert{kind: KindInvalidWeights}
	ErrReportInProgress = &ErrRevert{kind: KindReportInProgress}
	ErrZeroAmount       = &ErrRevert{kind: KindZeroAmount}
	ErrInvalidRequest   = &ErrRevert{kind: KindInvalidRequest}
	ErrNotFound         = &ErrRevert{kind: KindNotFound}
)

// ErrRevert is an expected failure caused by caller input or pool state.
// The operation that returned it left no state behind.
type ErrRevert struct {
	kind    Kind
	message string
}

func New(kind Kind, message string) *ErrRevert {
	return &ErrRevert{
		kind:    kind,
		message: message,
	}
}

func Errorf(kind Kind, format string, args ...any) *ErrRevert {
	return New(kind, fmt.Sprintf(format, args...))
}

func (e *ErrRevert) Kind() Kind {
	return e.kind
}

func (e *ErrRevert) Error() string {
	if e.message == "" {
		return e.kind.String()
	}
	return e.kind.String() + ": " + e.message
}

// Is reports whether target is the sentinel of the same kind.
func (e *ErrRevert) Is(target error) bool {
	t, ok := target.(*ErrRevert)
	return ok && t.message == "" && t.kind == e.kind
}

func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	if errors.As(e, &ve) {
		return true
	}
	var sv *SanityViolation
	return errors.As(e, &sv)
}

// KindOf returns the kind of a revert, or KindUnknown for any other error.
func KindOf(err error) Kind {
	var ve *ErrRevert
	if errors.As(err, &ve) {
		return ve.kind
	}
	var sv *SanityViolation
	if errors.As(err, &sv) {
		return KindSanityViolation
	}
	return KindUnknown
}
