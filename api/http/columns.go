// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package http

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/route"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/thanos-io/column-codec/catalog"
	"github.com/thanos-io/column-codec/column"
	"github.com/thanos-io/column-codec/internal/limits"
	"github.com/thanos-io/column-codec/internal/log"
	"github.com/thanos-io/column-codec/internal/tracing"
	"github.com/thanos-io/column-codec/internal/warnings"
	"github.com/thanos-io/column-codec/schema"
)

type columnAPI struct {
	cat *catalog.Catalog

	defaultTimeout time.Duration

	concurrentQuerySemaphore *limits.Semaphore
}

type ColumnAPIOption func(*columnAPI)

func DefaultTimeout(s time.Duration) ColumnAPIOption {
	return func(capi *columnAPI) {
		capi.defaultTimeout = s
	}
}

func ConcurrentQueryQuota(n int) ColumnAPIOption {
	return func(capi *columnAPI) {
		capi.concurrentQuerySemaphore = limits.NewSemaphore(n)
	}
}

func instrument(path string, h http.HandlerFunc) http.Handler {
	handler := otelhttp.NewMiddleware(path)(h)
	handler = promhttp.InstrumentHandlerCounter(httpRequestsTotal.MustCurryWith(prometheus.Labels{"path": path}), handler)
	handler = promhttp.InstrumentHandlerDuration(httpRequestsDuration.MustCurryWith(prometheus.Labels{"path": path}), handler)
	return handler
}

func withInstrumentation(r *route.Router, path string, h http.HandlerFunc) {
	handler := instrument(path, h)

	r.Get(path, handler.ServeHTTP)
	r.Post(path, handler.ServeHTTP)
}

func RegisterColumnsV1(r *route.Router, cat *catalog.Catalog, opts ...ColumnAPIOption) {
	capi := &columnAPI{
		cat:            cat,
		defaultTimeout: 30 * time.Second,

		concurrentQuerySemaphore: limits.UnlimitedSemaphore(),
	}
	for i := range opts {
		opts[i](capi)
	}

	withInstrumentation(r, "/tables", capi.tables)
	withInstrumentation(r, "/tables/:table/columns/:column/meta", capi.meta)
	withInstrumentation(r, "/tables/:table/columns/:column/select", capi.selectRange)
	withInstrumentation(r, "/tables/:table/columns/:column/thetaselect", capi.thetaSelect)
	r.Post("/tables/:table/columns/:column/compress", instrument("/tables/:table/columns/:column/compress", capi.compress).ServeHTTP)
}

const (
	errBadRequest        = "bad_request"
	errNotFound          = "not_found"
	errInternal          = "internal"
	errCanceled          = "canceled"
	errTimeout           = "timeout"
	errResourceExhausted = "resource_exhausted"

	statusSuccess = "success"
	statusError   = "error"
)

type apiResponse struct {
	Status    string   `json:"status"`
	Data      any      `json:"data,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	ErrorType string   `json:"errorType,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type errorResponse struct {
	Typ string
	Err error
}

func encoder(w io.Writer) *jsoniter.Encoder {
	return jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
}

func writeErrorResponse(w http.ResponseWriter, r errorResponse) {
	switch r.Typ {
	case errNotFound:
		w.WriteHeader(http.StatusNotFound)
	case errBadRequest, errResourceExhausted:
		w.WriteHeader(http.StatusBadRequest)
	case errInternal:
		w.WriteHeader(http.StatusInternalServerError)
	case errCanceled, errTimeout:
		w.WriteHeader(http.StatusRequestTimeout)
	}
	encoder(w).Encode(apiResponse{
		Status:    statusError,
		ErrorType: r.Typ,
		Error:     r.Err.Error(),
	})
}

func writeResponse(w http.ResponseWriter, data any, warns ...error) {
	res := apiResponse{
		Status: statusSuccess,
		Data:   data,
	}
	for _, warn := range warns {
		res.Warnings = append(res.Warnings, warn.Error())
	}
	w.WriteHeader(http.StatusOK)
	encoder(w).Encode(res)
}

// errorTypeOf maps operator error kinds to response types.
func errorTypeOf(err error) string {
	switch {
	case errors.Is(err, column.ErrResourceMissing):
		return errNotFound
	case errors.Is(err, column.ErrAllocation):
		return errResourceExhausted
	case errors.Is(err, column.ErrMalformedInput), errors.Is(err, column.ErrCapacity):
		return errBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return errTimeout
	case errors.Is(err, context.Canceled):
		return errCanceled
	}
	return errInternal
}

type tableResponse struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

func (capi *columnAPI) tables(w http.ResponseWriter, r *http.Request) {
	res := make([]tableResponse, 0)
	for _, t := range capi.cat.Tables() {
		cols, err := capi.cat.Columns(t)
		if err != nil {
			writeErrorResponse(w, errorResponse{Typ: errorTypeOf(err), Err: err})
			return
		}
		res = append(res, tableResponse{Name: t, Columns: cols})
	}
	writeResponse(w, res)
}

func (capi *columnAPI) meta(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	m, err := capi.cat.Meta(route.Param(ctx, "table"), route.Param(ctx, "column"))
	if err != nil {
		writeErrorResponse(w, errorResponse{Typ: errorTypeOf(err), Err: err})
		return
	}
	writeResponse(w, m)
}

type SelectRequest struct {
	Table  string
	Column string

	Low, High                   *string
	LowInclusive, HighInclusive bool
	Anti, Unknown               bool

	Op    column.Op
	Value *string

	Limit   int64
	Timeout time.Duration
}

func (req *SelectRequest) complete(r *http.Request, defaultTimeout time.Duration) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("unable to parse form data: %w", err)
	}
	ctx := r.Context()
	req.Table = route.Param(ctx, "table")
	req.Column = route.Param(ctx, "column")

	if r.Form.Has("low") {
		req.Low = ptr(r.FormValue("low"))
	}
	if r.Form.Has("high") {
		req.High = ptr(r.FormValue("high"))
	}
	if r.Form.Has("value") {
		req.Value = ptr(r.FormValue("value"))
	}

	var err error
	for _, f := range []struct {
		name string
		dst  *bool
		def  bool
	}{
		{name: "li", dst: &req.LowInclusive, def: true},
		{name: "hi", dst: &req.HighInclusive, def: true},
		{name: "anti", dst: &req.Anti},
		{name: "unknown", dst: &req.Unknown},
	} {
		if *f.dst, err = parseBoolParam(r, f.name, f.def); err != nil {
			return validation.NewError(f.name, err.Error())
		}
	}

	if s := r.FormValue("op"); s != "" {
		if req.Op, err = column.ParseOp(s); err != nil {
			return validation.NewError("op", err.Error())
		}
	}

	if s := r.FormValue("limit"); s != "" {
		if req.Limit, err = strconv.ParseInt(s, 10, 64); err != nil || req.Limit < 0 {
			return validation.NewError("limit", "limit must be a non-negative integer")
		}
	}

	req.Timeout = defaultTimeout
	if s := r.FormValue("timeout"); s != "" {
		if req.Timeout, err = time.ParseDuration(s); err != nil || req.Timeout <= 0 {
			return validation.NewError("timeout", "timeout must be a positive duration")
		}
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

func parseBoolParam(r *http.Request, param string, defaultValue bool) (bool, error) {
	s := r.FormValue(param)
	if s == "" {
		return defaultValue, nil
	}
	return strconv.ParseBool(s)
}

type selectResponse struct {
	Count     int64   `json:"count"`
	Positions []int64 `json:"positions"`
}

func (capi *columnAPI) selectRange(w http.ResponseWriter, r *http.Request) {
	capi.runSelect(w, r, "select", func(ctx context.Context, vt schema.ValueType, req SelectRequest) (column.Candidates, error) {
		return dispatchSelect(ctx, capi.cat, vt, req)
	})
}

func (capi *columnAPI) thetaSelect(w http.ResponseWriter, r *http.Request) {
	capi.runSelect(w, r, "thetaselect", func(ctx context.Context, vt schema.ValueType, req SelectRequest) (column.Candidates, error) {
		return dispatchThetaSelect(ctx, capi.cat, vt, req)
	})
}

type selectFunc func(ctx context.Context, vt schema.ValueType, req SelectRequest) (column.Candidates, error)

func (capi *columnAPI) runSelect(w http.ResponseWriter, r *http.Request, op string, f selectFunc) {
	ctx := r.Context()
	span := tracing.SpanFromContext(ctx)
	l := log.FromRequest(r)

	var req SelectRequest
	if err := req.complete(r, capi.defaultTimeout); err != nil {
		writeErrorResponse(w, errorResponse{Typ: errBadRequest, Err: err})
		return
	}

	l = l.With(slog.String("table", req.Table), slog.String("column", req.Column))
	span.SetAttributes(attribute.String("select.table", req.Table))
	span.SetAttributes(attribute.String("select.column", req.Column))
	span.SetAttributes(attribute.String("select.op", op))

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	if err := capi.concurrentQuerySemaphore.Reserve(ctx); err != nil {
		writeErrorResponse(w, errorResponse{Typ: errTimeout, Err: fmt.Errorf("semaphore blocked: %s", err)})
		return
	}
	defer capi.concurrentQuerySemaphore.Release()

	m, err := capi.cat.Meta(req.Table, req.Column)
	if err != nil {
		writeErrorResponse(w, errorResponse{Typ: errorTypeOf(err), Err: err})
		return
	}

	cand, err := f(ctx, m.Type, req)
	if err != nil {
		l.Error("Failed", "op", op, "err", err)
		writeErrorResponse(w, errorResponse{Typ: errorTypeOf(err), Err: err})
		return
	}
	selectedRows.WithLabelValues(op, string(m.Type)).Observe(float64(cand.Len()))

	var warns []error
	res := selectResponse{Count: cand.Len()}
	if req.Limit > 0 && cand.Len() > req.Limit {
		cand = column.Limit(req.Limit, cand)
		warns = append(warns, warnings.ErrorTruncatedPositions)
	}
	res.Positions = cand.Positions()
	writeResponse(w, res, warns...)
}

func dispatchSelect(ctx context.Context, cat *catalog.Catalog, vt schema.ValueType, req SelectRequest) (column.Candidates, error) {
	switch vt {
	case schema.Int8:
		return selectAs[int8](ctx, cat, req)
	case schema.Int16:
		return selectAs[int16](ctx, cat, req)
	case schema.Int32:
		return selectAs[int32](ctx, cat, req)
	case schema.Int64:
		return selectAs[int64](ctx, cat, req)
	case schema.Float64:
		return selectAs[float64](ctx, cat, req)
	case schema.String:
		return selectAs[string](ctx, cat, req)
	}
	return nil, column.Errorf("select", column.ErrMalformedInput, "unsupported value type %q", vt)
}

func dispatchThetaSelect(ctx context.Context, cat *catalog.Catalog, vt schema.ValueType, req SelectRequest) (column.Candidates, error) {
	switch vt {
	case schema.Int8:
		return thetaSelectAs[int8](ctx, cat, req)
	case schema.Int16:
		return thetaSelectAs[int16](ctx, cat, req)
	case schema.Int32:
		return thetaSelectAs[int32](ctx, cat, req)
	case schema.Int64:
		return thetaSelectAs[int64](ctx, cat, req)
	case schema.Float64:
		return thetaSelectAs[float64](ctx, cat, req)
	case schema.String:
		return thetaSelectAs[string](ctx, cat, req)
	}
	return nil, column.Errorf("thetaselect", column.ErrMalformedInput, "unsupported value type %q", vt)
}

func parseOptional[T cmp.Ordered](name string, s *string) (*T, error) {
	if s == nil {
		return nil, nil
	}
	v, err := schema.ParseValue[T](*s)
	if err != nil {
		return nil, column.Errorf("parse "+name, column.ErrMalformedInput, "%s", err)
	}
	return &v, nil
}

func selectAs[T cmp.Ordered](ctx context.Context, cat *catalog.Catalog, req SelectRequest) (column.Candidates, error) {
	low, err := parseOptional[T]("low", req.Low)
	if err != nil {
		return nil, err
	}
	high, err := parseOptional[T]("high", req.High)
	if err != nil {
		return nil, err
	}
	return catalog.Select(ctx, cat, req.Table, req.Column, nil, low, high, req.LowInclusive, req.HighInclusive, req.Anti, req.Unknown)
}

func thetaSelectAs[T cmp.Ordered](ctx context.Context, cat *catalog.Catalog, req SelectRequest) (column.Candidates, error) {
	v, err := parseOptional[T]("value", req.Value)
	if err != nil {
		return nil, err
	}
	return catalog.ThetaSelect(ctx, cat, req.Table, req.Column, nil, v, req.Op)
}

type compressRequest struct {
	Table   string
	Column  string
	Storage schema.StorageKind
	Ordered bool
}

func (req compressRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Storage, validation.Required, validation.In(schema.Plain, schema.Dict, schema.FOR)),
	)
}

func (capi *columnAPI) compress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := log.FromRequest(r)

	if err := r.ParseForm(); err != nil {
		writeErrorResponse(w, errorResponse{Typ: errBadRequest, Err: fmt.Errorf("unable to parse form data: %s", err)})
		return
	}
	req := compressRequest{
		Table:   route.Param(ctx, "table"),
		Column:  route.Param(ctx, "column"),
		Storage: schema.StorageKind(r.FormValue("storage")),
	}
	var err error
	if req.Ordered, err = parseBoolParam(r, "ordered", false); err != nil {
		writeErrorResponse(w, errorResponse{Typ: errBadRequest, Err: validation.NewError("ordered", err.Error())})
		return
	}
	if err := req.Validate(); err != nil {
		writeErrorResponse(w, errorResponse{Typ: errBadRequest, Err: err})
		return
	}

	switch req.Storage {
	case schema.Dict:
		err = capi.cat.CompressDict(ctx, req.Table, req.Column, req.Ordered)
	case schema.FOR:
		err = capi.cat.CompressFOR(ctx, req.Table, req.Column)
	case schema.Plain:
		err = capi.cat.Decompress(ctx, req.Table, req.Column)
	}
	if err != nil {
		l.Error("Failed", "op", "compress", "err", err)
		writeErrorResponse(w, errorResponse{Typ: errorTypeOf(err), Err: err})
		return
	}

	m, err := capi.cat.Meta(req.Table, req.Column)
	if err != nil {
		writeErrorResponse(w, errorResponse{Typ: errorTypeOf(err), Err: err})
		return
	}
	writeResponse(w, m)
}
