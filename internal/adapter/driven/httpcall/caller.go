// Package httpcall is the single seam through which every outbound HTTP
// request leaves this program: one call, one connection, one fixed
// timeout, no retries.
package httpcall

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mhdalton/surplussync/internal/domain/port/driven"
)

// DefaultTimeout is the fixed per-call deadline. Calls that exceed it fail
// with driven.ErrCallTimeout and are never retried automatically.
const DefaultTimeout = 10 * time.Second

// BasicAuth carries credentials for the Authorization: Basic header.
type BasicAuth struct {
	Username string
	Password string
}

// Result is a decoded response. Raw always holds the full body. JSON is
// populated only when the server declared a JSON content type; the
// marketplace API is known to return XML or plain text on some error
// paths, and those must not fail the call.
type Result struct {
	Status int
	Raw    []byte
	JSON   any
}

// Text returns the body as a string, for error reporting and non-JSON
// payloads.
func (r *Result) Text() string {
	return string(r.Raw)
}

// Caller issues one-shot HTTP requests. Each call builds a fresh client
// with keep-alives disabled, so no connection state survives between
// calls. Call volume is a handful per run; pooling would buy nothing and
// would hide cross-call interference.
type Caller struct {
	// Timeout applies per call. Exposed so tests can shorten it;
	// production code uses New and never touches it.
	Timeout time.Duration
}

// New creates a Caller with the fixed default timeout.
func New() *Caller {
	return &Caller{Timeout: DefaultTimeout}
}

// Call issues a single request. method must be GET, POST, or PUT. headers
// may be nil; body may be nil for body-less requests; auth may be nil for
// unauthenticated calls. A deadline overrun returns an error wrapping
// driven.ErrCallTimeout. Non-2xx statuses are NOT errors here — callers
// own the status-code contract of their endpoint.
func (c *Caller) Call(ctx context.Context, method, rawURL string, headers map[string]string, body []byte, auth *BasicAuth) (*Result, error) {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut:
	default:
		return nil, fmt.Errorf("unsupported method %q", method)
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", method, rawURL, err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if auth != nil {
		req.SetBasicAuth(auth.Username, auth.Password)
	}

	client := &http.Client{
		Timeout: c.Timeout,
		Transport: &http.Transport{
			DisableKeepAlives: true,
		},
	}
	defer client.CloseIdleConnections()

	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%s %s: %w", method, rawURL, driven.ErrCallTimeout)
		}
		return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%s %s: reading body: %w", method, rawURL, driven.ErrCallTimeout)
		}
		return nil, fmt.Errorf("%s %s: reading body: %w", method, rawURL, err)
	}

	result := &Result{Status: resp.StatusCode, Raw: raw}

	if isJSONContentType(resp.Header.Get("Content-Type")) && len(raw) > 0 {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			result.JSON = decoded
		}
		// A declared-JSON body that fails to parse stays available as
		// text; the server lied and the caller still gets the payload.
	}

	return result, nil
}

// isTimeout distinguishes deadline overruns from other transport failures.
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var uerr *url.Error
	return errors.As(err, &uerr) && uerr.Timeout()
}

// isJSONContentType accepts application/json and its +json suffix
// variants, with or without parameters.
func isJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct == "application/json" || strings.HasSuffix(ct, "+json")
}
