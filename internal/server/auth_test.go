package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/recall-go/internal/assistant"
	"github.com/54b3r/recall-go/internal/generate"
	"github.com/54b3r/recall-go/internal/ingestion"
)

// pipelineRequest builds a valid request for one of the pipeline routes.
func pipelineRequest(t *testing.T, op string) *http.Request {
	t.Helper()
	switch op {
	case opUpload:
		return uploadRequest(t, "file", "notes.txt", []byte("Tides follow the moon."))
	case opPrompt:
		return httptest.NewRequest(http.MethodPost, "/api/prompt", strings.NewReader(`{"prompt":"Why are there tides?"}`))
	default:
		return httptest.NewRequest(http.MethodPost, "/api/quiz", nil)
	}
}

// answeringService succeeds on every pipeline operation.
func answeringService() *fakeService {
	return &fakeService{
		report: &ingestion.Report{Document: "notes_txt", Passages: 1},
		answer: &assistant.Answer{Answer: "The moon.", Context: "Tides follow the moon."},
		quiz:   []generate.QuizItem{},
	}
}

func TestAuth_PipelineRoutesRejectWithEnvelope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		header    string
		challenge string
		message   string
	}{
		{"missing header", "", `Bearer realm="recall"`, "authorization required"},
		{"basic scheme", "Basic dXNlcjpwYXNz", `Bearer realm="recall"`, "authorization required"},
		{"wrong token", "Bearer wrong-token", `Bearer realm="recall" error="invalid_token"`, "invalid token"},
	}

	for _, op := range []string{opUpload, opPrompt, opQuiz} {
		for _, tc := range tests {
			t.Run(op+"/"+tc.name, func(t *testing.T) {
				t.Parallel()

				svc := answeringService()
				s, _ := newHandlerTestServer(t, svc, &Config{APIKey: "secret"})
				req := pipelineRequest(t, op)
				if tc.header != "" {
					req.Header.Set("Authorization", tc.header)
				}

				w := serve(s, req)

				require.Equal(t, http.StatusUnauthorized, w.Code)
				assert.Equal(t, tc.challenge, w.Header().Get("WWW-Authenticate"))
				assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
				assert.Equal(t, errorResponse{Status: statusError, Message: tc.message}, decode[errorResponse](t, w))
				assert.Empty(t, svc.gotName, "upload must not reach the service")
				assert.Empty(t, svc.gotPrompt, "prompt must not reach the service")
			})
		}
	}
}

func TestAuth_PipelineRoutesAcceptToken(t *testing.T) {
	t.Parallel()

	for _, header := range []string{"Bearer secret", "bearer secret", "BEARER  secret "} {
		for _, op := range []string{opUpload, opPrompt, opQuiz} {
			t.Run(op+"/"+header, func(t *testing.T) {
				t.Parallel()

				s, _ := newHandlerTestServer(t, answeringService(), &Config{APIKey: "secret"})
				req := pipelineRequest(t, op)
				req.Header.Set("Authorization", header)

				w := serve(s, req)

				assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
				assert.Equal(t, statusSuccess, decode[map[string]any](t, w)["status"])
			})
		}
	}
}

func TestAuth_DisabledWithoutKey(t *testing.T) {
	t.Parallel()

	svc := answeringService()
	s, _ := newHandlerTestServer(t, svc, nil)

	w := serve(s, pipelineRequest(t, opPrompt))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Why are there tides?", svc.gotPrompt)
}

func TestAuth_OperationalRoutesStayOpen(t *testing.T) {
	t.Parallel()

	s, _ := newHandlerTestServer(t, &fakeService{}, &Config{APIKey: "secret"})

	for _, path := range []string{"/", "/api/health", "/api/ready", "/metrics"} {
		w := serve(s, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		header string
		want   string
	}{
		{"Bearer mytoken", "mytoken"},
		{"bearer mytoken", "mytoken"},
		{"BEARER mytoken", "mytoken"},
		{"Bearer  spaced ", "spaced"},
		{"Basic dXNlcjpwYXNz", ""},
		{"", ""},
		{"Bearer", ""},
		{"token only", ""},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		assert.Equal(t, tc.want, bearerToken(req), "header=%q", tc.header)
	}
}
