// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveWithTimeout(d time.Duration, h http.HandlerFunc) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	Timeout(d)(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/backups", nil))
	return rr
}

func TestTimeout(t *testing.T) {
	tests := []struct {
		name     string
		deadline time.Duration
		handler  http.HandlerFunc
		wantCode int
		wantBody string
	}{
		{
			name:     "fast handler",
			deadline: time.Second,
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"data":{}}`))
			},
			wantCode: http.StatusCreated,
			wantBody: `{"data":{}}`,
		},
		{
			name:     "implicit 200",
			deadline: time.Second,
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("ok"))
			},
			wantCode: http.StatusOK,
			wantBody: "ok",
		},
		{
			name:     "slow handler times out",
			deadline: 20 * time.Millisecond,
			handler: func(_ http.ResponseWriter, r *http.Request) {
				<-r.Context().Done()
			},
			wantCode: http.StatusServiceUnavailable,
			wantBody: `"code":"timeout"`,
		},
		{
			name:     "started response is allowed to finish",
			deadline: 20 * time.Millisecond,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				<-r.Context().Done()
				_, _ = w.Write([]byte("rest of the download"))
			},
			wantCode: http.StatusOK,
			wantBody: "rest of the download",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serveWithTimeout(tt.deadline, tt.handler)
			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
		})
	}
}

func TestTimeout_LateWritesAreDropped(t *testing.T) {
	wrote := make(chan error, 1)
	rr := serveWithTimeout(10*time.Millisecond, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		time.Sleep(10 * time.Millisecond)
		_, err := w.Write([]byte("late"))
		wrote <- err
	})

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	select {
	case err := <-wrote:
		assert.ErrorIs(t, err, http.ErrHandlerTimeout)
	case <-time.After(time.Second):
		t.Fatal("handler never returned")
	}
	assert.NotContains(t, rr.Body.String(), "late")
}

func TestTimeout_PanicReachesCaller(t *testing.T) {
	h := Timeout(time.Second)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	assert.PanicsWithValue(t, "boom", func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
