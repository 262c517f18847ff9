// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package catalog

import (
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	opSelect      = "select"
	opThetaSelect = "thetaselect"
	opJoin        = "join"
)

const (
	reasonAppend  = "append"
	reasonUpdate  = "update"
	reasonRequest = "request"
)

var (
	columnsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "columns",
		Help: "Number of columns in the catalog",
	})
	columnsLoaded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "columns_loaded_total",
		Help: "Columns loaded from object storage",
	}, []string{"storage"})
	syncLastSuccessfulTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "load_last_successful_time",
		Help: "Unix timestamp of the last successful load from object storage",
	})
	persistDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "persist_duration_seconds",
		Help:    "Time taken to persist a column",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
	}, []string{"storage"})
	persistFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "persist_failures_total",
		Help: "Columns that could not be persisted",
	})
	decompressions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "decompressions_total",
		Help: "Encoded columns turned plain again",
	}, []string{"storage", "reason"})
	rowsAppended = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rows_appended_total",
		Help: "Rows appended to columns",
	})
	rowsUpdated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rows_updated_total",
		Help: "Rows overwritten in columns",
	})
	queriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "queries_total",
		Help: "Queries by operation and storage of the queried column",
	}, []string{"operation", "storage"})
	quotaExhausted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "allocation_quota_exhausted_total",
		Help: "Queries rejected because they exceeded the allocation quota",
	})
)

func RegisterMetrics(reg prometheus.Registerer) error {
	return multierror.Append(nil,
		reg.Register(columnsTotal),
		reg.Register(columnsLoaded),
		reg.Register(syncLastSuccessfulTime),
		reg.Register(persistDuration),
		reg.Register(persistFailures),
		reg.Register(decompressions),
		reg.Register(rowsAppended),
		reg.Register(rowsUpdated),
		reg.Register(queriesTotal),
		reg.Register(quotaExhausted),
	).ErrorOrNil()
}
