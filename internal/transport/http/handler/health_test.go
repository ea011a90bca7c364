package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func withChiAction(r *http.Request, action string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("action", action)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestHealth_Ping(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler(nil).Ping(rr, withChiAction(httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil), "ping"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", decodeEnvelope(t, rr).Message)
}

func TestHealth_Ready(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	rr := httptest.NewRecorder()
	NewHealthHandler(ok).Ping(rr, withChiAction(httptest.NewRequest(http.MethodGet, "/v1/health-check/ready", nil), "ready"))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHealth_ReadyStoreDown(t *testing.T) {
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })
	rr := httptest.NewRecorder()
	NewHealthHandler(down).Ping(rr, withChiAction(httptest.NewRequest(http.MethodGet, "/v1/health-check/ready", nil), "ready"))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHealth_UnknownAction(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler(nil).Ping(rr, withChiAction(httptest.NewRequest(http.MethodGet, "/v1/health-check/nope", nil), "nope"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
