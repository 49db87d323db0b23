package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/propertyhub/lease-planner/internal/scrape"
	"go.uber.org/zap"
)

const (
	scrapePath     = "/scrape"
	defaultTimeout = 90 * time.Second
	maxErrorBody   = 4096
)

type ClientOpts func(c *Client)

// Client talks to a headless browser service exposing a Browserless style /scrape endpoint.
type Client struct {
	baseURL string
	token   string
	hc      *http.Client
	limiter *HostLimiter
}

func NewClient(baseURL string, opts ...ClientOpts) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func WithToken(token string) ClientOpts {
	return func(c *Client) {
		c.token = token
	}
}

func WithTimeout(d time.Duration) ClientOpts {
	return func(c *Client) {
		if d > 0 {
			c.hc.Timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) ClientOpts {
	return func(c *Client) {
		c.hc = hc
	}
}

// WithHostLimiter throttles requests per target portal.
func WithHostLimiter(l *HostLimiter) ClientOpts {
	return func(c *Client) {
		c.limiter = l
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Scrape runs req on the backend. Failures are returned as *Error.
func (c *Client) Scrape(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.WaitURL(ctx, req.URL); err != nil {
			return nil, &Error{Reason: scrape.ReasonBackendUnavailable, err: errors.Wrap(err, "waiting for rate limiter")}
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encoding scrape request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+scrapePath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "building scrape request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, &Error{Reason: scrape.ReasonBackendUnavailable, err: errors.Wrap(err, "calling automation backend")}
	}
	defer resp.Body.Close()

	zap.S().Named("scrape_backend").Debugw("scrape request done", "url", req.URL, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &Error{Reason: scrape.ReasonBackendUnavailable, StatusCode: resp.StatusCode, err: errors.Wrap(err, "decoding scrape response")}
	}
	return &out, nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil && scrape.IsReason(eb.Code) {
		return &Error{Reason: eb.Code, StatusCode: resp.StatusCode, err: errors.New(eb.Message)}
	}

	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &Error{Reason: reasonForStatus(resp.StatusCode), StatusCode: resp.StatusCode, err: fmt.Errorf("%s", msg)}
}

func reasonForStatus(code int) string {
	switch {
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return scrape.ReasonNavigationFailed
	case code == http.StatusUnauthorized || code == http.StatusForbidden || code == http.StatusTooManyRequests:
		return scrape.ReasonBackendUnavailable
	case code >= 500:
		return scrape.ReasonBackendUnavailable
	default:
		return scrape.ReasonNavigationFailed
	}
}
