package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// httpHealthCheck probes a backend with one cheap GET request.
type httpHealthCheck struct {
	url    string
	header http.Header
	client *http.Client
}

// HealthCheck issues the probe and treats any 2xx response as healthy.
func (h *httpHealthCheck) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return fmt.Errorf("provider: build health request: %w", err)
	}
	for k, vs := range h.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider: health request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("provider: health check returned %d", resp.StatusCode)
	}
	return nil
}

// HealthCheckFor returns a token-free probe for the configured backend, or nil
// when the backend has no such endpoint (callers then fall back to a
// generate call).
//
//	ollama: GET {OLLAMA_HOST}/api/version
//	openai: GET {base}/models with the bearer key
//	azure:  GET {endpoint}/openai/models?api-version=... with the api-key header
func HealthCheckFor(cfg *Config) HealthCheckConfig {
	client := &http.Client{Timeout: 5 * time.Second}
	switch cfg.Backend {
	case BackendOllama:
		host := cfg.Ollama.Host
		if host == "" {
			host = DefaultOllamaHost
		}
		return &httpHealthCheck{url: strings.TrimRight(host, "/") + "/api/version", client: client}
	case BackendOpenAI:
		base := cfg.OpenAI.BaseURL
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		h := http.Header{}
		h.Set("Authorization", "Bearer "+cfg.OpenAI.APIKey)
		return &httpHealthCheck{url: strings.TrimRight(base, "/") + "/models", header: h, client: client}
	case BackendAzure:
		apiVersion := cfg.AzureOpenAI.APIVersion
		if apiVersion == "" {
			apiVersion = DefaultAzureAPI
		}
		h := http.Header{}
		h.Set("api-key", cfg.AzureOpenAI.APIKey)
		url := strings.TrimRight(cfg.AzureOpenAI.Endpoint, "/") + "/openai/models?api-version=" + apiVersion
		return &httpHealthCheck{url: url, header: h, client: client}
	}
	return nil
}
