// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package dict

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	pathFast     = "fast"
	pathFallback = "fallback"
	pathShared   = "shared"
	pathAligned  = "aligned"
	pathRenumber = "renumber"

	opCompress    = "compress"
	opDecompress  = "decompress"
	opJoin        = "join"
	opSelect      = "select"
	opThetaSelect = "thetaselect"
)

var (
	operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "operations_total",
		Help: "Dictionary operations by the path they took",
	}, []string{"operation", "path"},
	)
	rowsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rows_processed_total",
		Help: "Offset rows read or written by dictionary operations",
	}, []string{"operation"},
	)
	dictionaryGrowth = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dictionary_entries_added_total",
		Help: "Entries appended to dictionaries after compression",
	})
	appendsWidened = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "appends_widened_total",
		Help: "Appends that had to widen their offsets from byte to short",
	})
	appendsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "appends_rejected_total",
		Help: "Appends that overflowed the dictionary and require decompression",
	})
)

func RegisterMetrics(reg prometheus.Registerer) error {
	return errors.Join(
		reg.Register(operations),
		reg.Register(rowsProcessed),
		reg.Register(dictionaryGrowth),
		reg.Register(appendsWidened),
		reg.Register(appendsRejected),
	)
}
