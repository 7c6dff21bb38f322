package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/labops/labops/internal/platform/apperr"
)

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler()
	logger := zerolog.New(os.Stderr)
	e.Use(RequestID(), Logger(logger), Recovery(logger))
	return e
}

func TestRequestID_Generated(t *testing.T) {
	e := newTestEcho()
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("expected generated request id header")
	}
}

func TestRequestID_Propagated(t *testing.T) {
	e := newTestEcho()
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(echo.HeaderXRequestID, "rid-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Header().Get(echo.HeaderXRequestID) != "rid-123" {
		t.Errorf("expected rid-123, got %s", rec.Header().Get(echo.HeaderXRequestID))
	}
}

func TestRecovery_PanicBecomes500(t *testing.T) {
	e := newTestEcho()
	e.GET("/boom", func(c echo.Context) error { panic("kaboom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestErrorHandler_DomainKinds(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", apperr.Validation("no services"), http.StatusBadRequest},
		{"invalid transition", apperr.InvalidTransition("registered to processing"), http.StatusConflict},
		{"not found", apperr.NotFound("order"), http.StatusNotFound},
		{"collector unavailable", apperr.CollectorUnavailable("busy"), http.StatusConflict},
		{"insufficient stock", apperr.InsufficientStock("draw kit"), http.StatusConflict},
		{"duplicate result", apperr.DuplicateResult("line"), http.StatusConflict},
		{"incomplete results", apperr.IncompleteResults("2 pending"), http.StatusConflict},
		{"contention", apperr.Contention("lock timeout"), http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		e := newTestEcho()
		e.GET("/op", func(c echo.Context) error { return tc.err })
		req := httptest.NewRequest(http.MethodGet, "/op", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != tc.code {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.code, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"kind"`) {
			t.Errorf("%s: expected kind in body, got %s", tc.name, rec.Body.String())
		}
	}
}

func TestErrorHandler_EchoHTTPError(t *testing.T) {
	e := newTestEcho()
	e.GET("/op", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	})
	req := httptest.NewRequest(http.MethodGet, "/op", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
