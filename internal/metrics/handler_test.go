package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func scrape(t *testing.T, g prometheus.Gatherer, accept string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	w := httptest.NewRecorder()
	Handler(g).ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestHandler_ServesRecipeLogMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordLogAppend(3)

	resp, body := scrape(t, reg, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !strings.Contains(body, "recipebook_recipe_log_appended_total 3") {
		t.Errorf("body does not report 3 appended recipes:\n%s", body)
	}
}

func TestHandler_NegotiatesOpenMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg).RecordStepsRendered("image", 1)

	resp, body := scrape(t, reg, "application/openmetrics-text; version=1.0.0")
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/openmetrics-text") {
		t.Errorf("Content-Type = %q, want OpenMetrics", ct)
	}
	if !strings.HasSuffix(strings.TrimSpace(body), "# EOF") {
		t.Error("OpenMetrics body should end with # EOF")
	}
}

type failingGatherer struct {
	families []*dto.MetricFamily
}

func (g failingGatherer) Gather() ([]*dto.MetricFamily, error) {
	return g.families, errors.New("collector exploded")
}

func TestHandler_ContinuesOnGatherError(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg).RecordHTTPStatus(http.StatusCreated)
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	resp, body := scrape(t, failingGatherer{families: families}, "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !strings.Contains(body, `recipebook_http_status_total{status_code="201"} 1`) {
		t.Errorf("partial metrics missing:\n%s", body)
	}
}
