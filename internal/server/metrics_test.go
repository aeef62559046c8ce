package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/54b3r/recall-go/internal/generate"
	"github.com/54b3r/recall-go/internal/ingestion"
	"github.com/54b3r/recall-go/internal/rag"
)

// findMetric returns the first metric in family name whose labels include
// every pair in labels.
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			have := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				have[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if have[k] != v {
					continue metrics
				}
			}
			return m
		}
	}
	return nil
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	m := findMetric(t, reg, name, nil)
	if m == nil {
		t.Fatalf("%s not found in gathered metrics", name)
	}
	return m.GetGauge().GetValue()
}

func Test_Metrics_EndpointReturns200(t *testing.T) {
	t.Parallel()
	s, _ := newHandlerTestServer(t, &fakeService{}, nil)

	w := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Errorf("want 200, got %d", w.Code)
	}
	ct := w.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("want text/plain content-type, got %q", ct)
	}
}

func Test_Metrics_PipelineCounterIncremented(t *testing.T) {
	t.Parallel()
	s, reg := newHandlerTestServer(t, &fakeService{quiz: []generate.QuizItem{}}, nil)

	serve(s, httptest.NewRequest(http.MethodPost, "/api/quiz", nil))

	m := findMetric(t, reg, "recall_pipeline_requests_total", map[string]string{"op": "quiz", "outcome": "ok"})
	if m == nil {
		t.Fatal(`recall_pipeline_requests_total{op="quiz",outcome="ok"} not found`)
	}
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Errorf("want counter=1, got %v", got)
	}

	h := findMetric(t, reg, "recall_http_requests_total", map[string]string{"handler": "quiz", "code": "200"})
	if h == nil {
		t.Fatal(`recall_http_requests_total{handler="quiz",code="200"} not found`)
	}
}

func Test_Metrics_UploadSetsPassagesGauge(t *testing.T) {
	t.Parallel()
	svc := &fakeService{report: &ingestion.Report{Document: "notes_txt", Passages: 7}}
	s, reg := newHandlerTestServer(t, svc, nil)

	serve(s, uploadRequest(t, "file", "notes.txt", []byte("seven passages")))

	if got := gaugeValue(t, reg, "recall_index_passages"); got != 7 {
		t.Errorf("want passages=7, got %v", got)
	}
}

func TestOutcomeOf(t *testing.T) {
	t.Parallel()

	cases := map[string]error{
		outcomeOK:        nil,
		outcomeTimeout:   &rag.ChatServiceError{Op: "quiz", Err: rag.ErrServiceTimeout},
		outcomeNoContext: rag.ErrNoContext,
		outcomeError:     errors.New("boom"),
	}
	for want, err := range cases {
		if got := outcomeOf(err); got != want {
			t.Errorf("outcomeOf(%v) = %q, want %q", err, got, want)
		}
	}
	if got := outcomeOf(context.DeadlineExceeded); got != outcomeTimeout {
		t.Errorf("outcomeOf(DeadlineExceeded) = %q", got)
	}
}
