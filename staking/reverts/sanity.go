// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import "fmt"

// Reason identifies the sanity check a report failed.
type Reason string

const (
	ReasonValidatorsCount         Reason = "validators_count"
	ReasonBalancePerValidator     Reason = "balance_per_validator"
	ReasonAnnualBalanceIncrease   Reason = "annual_balance_increase"
	ReasonOneOffCLBalanceDecrease Reason = "one_off_cl_balance_decrease"
	ReasonExternalIncome          Reason = "external_income"
	ReasonBurnRequests            Reason = "burn_requests"
	ReasonWithdrawalBatches       Reason = "withdrawal_batches"
	ReasonWithdrawalSettlement    Reason = "withdrawal_settlement"
	ReasonSimulatedShareRate      Reason = "simulated_share_rate"
)

// SanityViolation is returned when a report is internally consistent but out of bounds.
type SanityViolation struct {
	Reason Reason
	Detail string
}

func NewSanityViolation(reason Reason, format string, args ...any) *SanityViolation {
	return &SanityViolation{
		Reason: reason,
		Detail: fmt.Sprintf(format, args...),
	}
}

func (e *SanityViolation) Error() string {
	return fmt.Sprintf("sanity violation (%s): %s", e.Reason, e.Detail)
}

// Is matches ErrSanityViolation.
func (e *SanityViolation) Is(target error) bool {
	t, ok := target.(*ErrRevert)
	return ok && t.message == "" && t.kind == KindSanityViolation
}
