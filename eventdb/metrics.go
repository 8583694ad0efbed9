// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"github.com/vechain/lsp/metrics"
)

var (
	metricQueryOrderCounter = metrics.LazyLoadCounterVec("eventdb_query_order", []string{"order", "type"})
	metricOffsetBucket      = metrics.LazyLoadHistogramVec("eventdb_query_offset_bucket", []string{"type"}, []int64{
		0, 100, 1_000, 10_000, 100_000,
	})
	metricLimitBucket = metrics.LazyLoadHistogramVec("eventdb_query_limit_bucket", []string{"type"}, []int64{
		0, 5, 10, 25, 50, 100, 250, 500, 1000,
	})
	metricRecordedCounter = metrics.LazyLoadCounterVec("eventdb_recorded_count", []string{"type", "status"})
)

func metricsHandleFilter(queryType string, order Order, options *Options) {
	if metrics.NoOp() {
		return
	}

	if order == DESC {
		metricQueryOrderCounter().AddWithLabel(1, map[string]string{"order": "desc", "type": queryType})
	} else {
		metricQueryOrderCounter().AddWithLabel(1, map[string]string{"order": "asc", "type": queryType})
	}
	if options == nil {
		return
	}
	metricOffsetBucket().ObserveWithLabels(int64(min(options.Offset, 100_001)), map[string]string{"type": queryType})
	metricLimitBucket().ObserveWithLabels(int64(min(options.Limit, 1001)), map[string]string{"type": queryType})
}
