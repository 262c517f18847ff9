// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package frame

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	reasonNull         = "null"
	reasonBelowMinimum = "below_minimum"
	reasonRange        = "range"
)

var (
	rowsEncoded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rows_encoded_total",
		Help: "Rows encoded as frame of reference offsets",
	}, []string{"width"},
	)
	encodeRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "encode_rejected_total",
		Help: "Compressions and appends that could not be represented relative to the minimum",
	}, []string{"reason"},
	)
)

func RegisterMetrics(reg prometheus.Registerer) error {
	return errors.Join(
		reg.Register(rowsEncoded),
		reg.Register(encodeRejected),
	)
}
