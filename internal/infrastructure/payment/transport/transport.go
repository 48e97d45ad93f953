package transport

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Zhima-Mochi/artisanmart/internal/observability"
	"github.com/Zhima-Mochi/artisanmart/internal/observability/logctx"
)

const maxResponseBody = 1 << 20

// StatusError is a non-2xx provider response. Body is kept for logs only.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Client performs JSON calls against one payment provider and records
// external_requests_total / external_request_duration_seconds for each.
type Client struct {
	peer    string
	baseURL string
	http    *http.Client
	auth    func(*http.Request)
	log     observability.Logger

	extCounter   observability.Counter
	extHistogram observability.Histogram
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which has a 15s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithBasicAuth sets HTTP basic credentials on every request.
func WithBasicAuth(user, pass string) Option {
	return func(c *Client) {
		c.auth = func(r *http.Request) { r.SetBasicAuth(user, pass) }
	}
}

func New(peer, baseURL string, tel observability.Observability, opts ...Option) *Client {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()
	c := &Client{
		peer:         peer,
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Timeout: 15 * time.Second},
		log:          tel.Logger().With(observability.F("component", "payment_client"), observability.F("peer", peer)),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DoJSON sends in as the JSON body (when non-nil) and decodes a 2xx response into out.
// endpoint is the low-cardinality label for metrics, e.g. "orders.create".
func (c *Client) DoJSON(ctx context.Context, method, path, endpoint string, in, out any) (err error) {
	start := time.Now()
	outcome := "success"
	defer func() {
		if err != nil {
			outcome = "error"
		}
		c.extCounter.Add(1,
			observability.L("peer", c.peer),
			observability.L("endpoint", endpoint),
			observability.L("outcome", outcome),
		)
		c.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", c.peer),
			observability.L("endpoint", endpoint),
		)
		if err != nil {
			logctx.FromOr(ctx, c.log).Warn("payment_provider_call_failed",
				observability.F("endpoint", endpoint),
				observability.Err(err),
			)
		}
	}()

	var body io.Reader
	if in != nil {
		payload, marshalErr := json.Marshal(in)
		if marshalErr != nil {
			return fmt.Errorf("json.Marshal: %w", marshalErr)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("http.NewRequest: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth != nil {
		c.auth(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http.Do: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("json.Unmarshal: %w", err)
	}
	return nil
}

// SignHex returns hex(HMAC-SHA256(key, msg)).
func SignHex(key string, msg []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	_, _ = mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHex reports whether signature is hex(HMAC-SHA256(key, msg)), in constant time.
func VerifyHex(key string, msg []byte, signature string) bool {
	if key == "" || signature == "" {
		return false
	}
	want, err := hex.DecodeString(SignHex(key, msg))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}
