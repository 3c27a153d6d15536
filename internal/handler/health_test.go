package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type connState bool

func (c connState) IsConnected() bool { return bool(c) }

func TestReady(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("unreachable") })

	tests := []struct {
		name       string
		handler    *HealthHandler
		wantStatus int
	}{
		{"store only", NewHealthHandler(ok, nil), http.StatusOK},
		{"store and nats", NewHealthHandler(ok, connState(true)), http.StatusOK},
		{"store down", NewHealthHandler(down, connState(true)), http.StatusServiceUnavailable},
		{"nats down", NewHealthHandler(ok, connState(false)), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(nil, nil).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}
