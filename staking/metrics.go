// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/metrics"
	"github.com/vechain/lsp/staking/ledger"
)

var (
	metricDepositCount   = metrics.LazyLoadCounter("staking_deposit_count")
	metricDepositedGwei  = metrics.LazyLoadCounter("staking_deposited_gwei")
	metricReportCount    = metrics.LazyLoadCounterVec("staking_report_count", []string{"status", "reason"})
	metricReportDuration = metrics.LazyLoadHistogram("staking_report_duration_ms", metrics.Bucket10s)
	metricRebaseChange   = metrics.LazyLoadHistogramVec("staking_rebase_change_bp", []string{"direction"}, metrics.BucketBasisPoints)
	metricReportPhase    = metrics.LazyLoadGauge("staking_report_phase")
	metricPoolGauge      = metrics.LazyLoadGaugeVec("staking_pool_gwei", []string{"field"})
	metricSharesGauge    = metrics.LazyLoadGauge("staking_total_shares_gwei")
)

func updatePoolGauges(s ledger.State) {
	gauge := metricPoolGauge()
	gauge.SetWithLabel(lsp.ToGwei(s.BufferedEther), map[string]string{"field": "buffered"})
	gauge.SetWithLabel(lsp.ToGwei(s.CLBalance), map[string]string{"field": "cl_balance"})
	gauge.SetWithLabel(lsp.ToGwei(s.TransientBalance()), map[string]string{"field": "transient"})
	gauge.SetWithLabel(lsp.ToGwei(s.TotalPooledEther()), map[string]string{"field": "total_pooled"})
	gauge.SetWithLabel(lsp.ToGwei(s.LockedForWithdrawals), map[string]string{"field": "locked_withdrawals"})
	metricSharesGauge().Set(lsp.ToGwei(s.TotalShares))
}
