package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cyra/statusrate/internal/config"
	"github.com/cyra/statusrate/internal/logging"
	"github.com/cyra/statusrate/internal/parser"
)

// HTTPAPI posts each interval's samples as one JSON document.
type HTTPAPI struct {
	url     string
	token   string
	headers map[string]string
	client  *http.Client
	logger  *logging.Logger
}

// NewHTTPAPI creates an HTTPAPI sink from an http_api output config.
func NewHTTPAPI(cfg config.OutputConfig, logger *logging.Logger) *HTTPAPI {
	return &HTTPAPI{
		url:     cfg.URL,
		token:   cfg.AuthToken,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

func (h *HTTPAPI) Name() string {
	return "http_api"
}

type apiPayload struct {
	Timestamp int64                 `json:"timestamp"`
	Metrics   []parser.MetricSample `json:"metrics"`
}

func (h *HTTPAPI) Ship(ctx context.Context, samples []parser.MetricSample, ts time.Time) error {
	data, err := json.Marshal(apiPayload{Timestamp: ts.Unix(), Metrics: samples})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http request failed: status=%s", resp.Status)
	}

	h.logger.Debugf("http_api: posted %d samples to %s", len(samples), h.url)
	return nil
}
