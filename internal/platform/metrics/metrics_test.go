package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/labops/labops/internal/platform/apperr"
)

func TestObserve_OutcomeLabels(t *testing.T) {
	m := New()
	m.Observe("createOrder", nil, 5*time.Millisecond)
	m.Observe("assignCollector", apperr.CollectorUnavailable("busy"), time.Millisecond)

	e := echo.New()
	e.GET("/metrics", m.Handler())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `labops_operations_total{operation="createOrder",outcome="ok"} 1`) {
		t.Errorf("missing ok counter in scrape output:\n%s", body)
	}
	if !strings.Contains(body, `outcome="collector_unavailable"`) {
		t.Errorf("missing error-kind outcome label in scrape output:\n%s", body)
	}
}

func TestMiddleware_CountsRequests(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/orders/:id", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", m.Handler())

	req := httptest.NewRequest(http.MethodGet, "/orders/abc", nil)
	e.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `operation="GET /orders/:id"`) {
		t.Error("expected route-template operation label")
	}
}
