// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"
)

// Response states of a deadlineWriter.
const (
	responsePending int32 = iota
	responseStarted
	responseTimedOut
)

// Timeout gives each request a deadline of d. When the deadline passes
// before the handler has started its response, the client gets a 503 JSON
// error and anything the handler writes later is discarded. A handler that
// has already started responding, such as a backup download, is allowed to
// finish. Panics in the handler are re-raised on the calling goroutine so
// chi's Recoverer still sees them.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			dw := &deadlineWriter{ResponseWriter: w}
			done := make(chan any, 1)

			go func() {
				defer func() { done <- recover() }()
				next.ServeHTTP(dw, r.WithContext(ctx))
			}()

			select {
			case p := <-done:
				if p != nil {
					panic(p)
				}
				// The handler gave up on the deadline without answering.
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					dw.expire(w)
				}
			case <-ctx.Done():
				if dw.expire(w) {
					return
				}
				if p := <-done; p != nil {
					panic(p)
				}
			}
		})
	}
}

// deadlineWriter lets the handler or the timeout claim the response, but
// not both.
type deadlineWriter struct {
	http.ResponseWriter
	state atomic.Int32
}

// expire claims the response for the timeout error. It reports false when
// the handler had already started responding.
func (dw *deadlineWriter) expire(w http.ResponseWriter) bool {
	if !dw.state.CompareAndSwap(responsePending, responseTimedOut) {
		return false
	}
	WriteAPIError(w, http.StatusServiceUnavailable, "timeout", "Request timeout", nil)
	return true
}

func (dw *deadlineWriter) WriteHeader(code int) {
	if dw.state.CompareAndSwap(responsePending, responseStarted) {
		dw.ResponseWriter.WriteHeader(code)
	}
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.WriteHeader(http.StatusOK)
	if dw.state.Load() == responseTimedOut {
		return 0, http.ErrHandlerTimeout
	}
	return dw.ResponseWriter.Write(b)
}
