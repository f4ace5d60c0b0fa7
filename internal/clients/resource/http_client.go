package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gorm.io/datatypes"

	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/platform/logger"
)

type httpClientConfig struct {
	URL        string            `json:"url"`
	ReverseURL string            `json:"reverse_url"`
	Headers    map[string]string `json:"headers"`
	From       string            `json:"from"`
	To         string            `json:"to"`
	TimeoutMS  int               `json:"timeout_ms"`
}

// httpClient talks to a remote bulk identifier-mapping endpoint. One POST
// maps a whole batch; the timeout applies per call, not per path.
type httpClient struct {
	name string
	log  *logger.Logger
	cfg  httpClientConfig
	http *http.Client
}

func NewHTTPClient(baseLog *logger.Logger, res *types.MappingResource) (Client, error) {
	var cfg httpClientConfig
	if len(res.Config) > 0 {
		if err := json.Unmarshal(res.Config, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.URL = strings.TrimSpace(cfg.URL)
	if cfg.URL == "" {
		return nil, fmt.Errorf("missing url")
	}
	if cfg.TimeoutMS <= 0 {
		cfg.TimeoutMS = 30000
	}
	if res.SupportsReverse && strings.TrimSpace(cfg.ReverseURL) == "" {
		return nil, fmt.Errorf("supports_reverse set but reverse_url missing")
	}
	return &httpClient{
		name: res.Name,
		log:  baseLog.With("client", "HTTPMappingClient", "resource", res.Name),
		cfg:  cfg,
		http: &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond},
	}, nil
}

func (c *httpClient) Name() string { return c.name }

type httpMapRequest struct {
	Identifiers []string       `json:"identifiers"`
	From        string         `json:"from,omitempty"`
	To          string         `json:"to,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
}

type httpMapResponse struct {
	Results map[string]MappedValue `json:"results"`
}

func (c *httpClient) MapIdentifiers(ctx context.Context, identifiers []string, config datatypes.JSON) (map[string]MappedValue, error) {
	if len(identifiers) == 0 {
		return map[string]MappedValue{}, nil
	}
	req := httpMapRequest{Identifiers: identifiers, From: c.cfg.From, To: c.cfg.To}
	if len(config) > 0 {
		var override map[string]any
		if err := json.Unmarshal(config, &override); err == nil {
			req.Config = override
		}
	}
	var resp httpMapResponse
	if err := c.post(ctx, c.cfg.URL, req, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		resp.Results = map[string]MappedValue{}
	}
	return resp.Results, nil
}

type httpReverseRequest struct {
	Identifiers []string `json:"identifiers"`
}

func (c *httpClient) ReverseMapIdentifiers(ctx context.Context, identifiers []string) (ReverseResult, error) {
	out := ReverseResult{InputToPrimary: map[string][]string{}}
	if len(identifiers) == 0 {
		return out, nil
	}
	if strings.TrimSpace(c.cfg.ReverseURL) == "" {
		return out, fmt.Errorf("resource %q has no reverse endpoint", c.name)
	}
	if err := c.post(ctx, c.cfg.ReverseURL, httpReverseRequest{Identifiers: identifiers}, &out); err != nil {
		return ReverseResult{}, err
	}
	if out.InputToPrimary == nil {
		out.InputToPrimary = map[string][]string{}
	}
	return out, nil
}

func (c *httpClient) post(ctx context.Context, url string, body any, dst any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(raw)
		if len(msg) > 2000 {
			msg = msg[:2000] + "..."
		}
		return fmt.Errorf("resource %q http %d: %s", c.name, resp.StatusCode, msg)
	}
	return json.Unmarshal(raw, dst)
}
