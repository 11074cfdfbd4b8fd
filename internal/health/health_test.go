package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	name string
	err  error
}

func (f fakePinger) Name() string               { return f.name }
func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHandlerHealthy(t *testing.T) {
	h := Handler(fakePinger{name: "mongo"}, fakePinger{name: "redis"})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerUnhealthy(t *testing.T) {
	h := Handler(fakePinger{name: "mongo"}, fakePinger{name: "redis", err: errors.New("connection refused")})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
