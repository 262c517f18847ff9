// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package http

import (
	"net/http"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/common/route"

	"github.com/thanos-io/column-codec/catalog"
	"github.com/thanos-io/column-codec/internal/log"
)

const requestIDHeader = "X-Request-ID"

// requestIDMiddleware tags the request context with the caller's request id
// or a fresh one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = ulid.Make().String()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(log.ContextWithRequestID(r.Context(), id)))
	})
}

type apiConfig struct {
	columnAPIOpts      []ColumnAPIOption
	corsAllowedOrigins []string
}

type APIOption func(*apiConfig)

func ColumnOptions(opts ...ColumnAPIOption) APIOption {
	return func(cfg *apiConfig) {
		cfg.columnAPIOpts = opts
	}
}

func CORSAllowedOrigins(origins []string) APIOption {
	return func(cfg *apiConfig) {
		cfg.corsAllowedOrigins = origins
	}
}

func corsMiddleware(allowedOrigins []string, next http.Handler) http.Handler {
	allowedSet := make(map[string]struct{}, len(allowedOrigins))
	allowAll := false
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
			break
		}
		allowedSet[o] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if _, ok := allowedSet[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func NewAPI(cat *catalog.Catalog, opts ...APIOption) http.Handler {
	cfg := &apiConfig{}
	for i := range opts {
		opts[i](cfg)
	}

	r := route.New()

	api := r.WithPrefix("/api/v1")
	RegisterColumnsV1(api, cat, cfg.columnAPIOpts...)

	h := requestIDMiddleware(r)
	if len(cfg.corsAllowedOrigins) > 0 {
		return corsMiddleware(cfg.corsAllowedOrigins, h)
	}

	return h
}
