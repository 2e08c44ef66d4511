// Package rpcclient provides a failover JSON-RPC 2.0 client for Catalyst nodes.
//
// A client holds an ordered list of endpoint URLs. Each call starts at the
// endpoint that last answered successfully and walks the list on transport
// failures. Application-level errors (JSON-RPC error objects, non-retryable
// HTTP statuses) are returned immediately without trying further endpoints.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTimeout bounds a single RPC attempt.
const DefaultTimeout = 10 * time.Second

// BroadcastTimeout bounds transaction broadcasts, which can take longer
// while the node verifies and admits the transaction.
const BroadcastTimeout = 20 * time.Second

// ErrNoEndpoints is returned when the client has no endpoints configured.
var ErrNoEndpoints = errors.New("rpcclient: no endpoints configured")

// Client is a JSON-RPC 2.0 HTTP client with endpoint failover.
type Client struct {
	endpoints []string
	http      *http.Client
	timeout   time.Duration
	reqID     atomic.Uint64

	mu       sync.Mutex
	lastGood int
}

// New creates a client over the given endpoint URLs, tried in order.
func New(endpoints []string) *Client {
	return NewWithTimeout(endpoints, DefaultTimeout)
}

// NewWithTimeout creates a client with a custom per-attempt timeout.
func NewWithTimeout(endpoints []string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	eps := make([]string, len(endpoints))
	copy(eps, endpoints)
	return &Client{
		endpoints: eps,
		timeout:   timeout,
		http:      &http.Client{},
	}
}

// Endpoints returns the configured endpoint URLs in their original order.
func (c *Client) Endpoints() []string {
	out := make([]string, len(c.endpoints))
	copy(out, c.endpoints)
	return out
}

// LastGood returns the URL of the endpoint that most recently answered,
// or "" if no call has succeeded yet.
func (c *Client) LastGood() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.endpoints) == 0 {
		return ""
	}
	return c.endpoints[c.lastGood]
}

// SetPreferred moves the endpoint with the given URL to the front of the
// rotation. Unknown URLs are ignored.
func (c *Client) SetPreferred(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, ep := range c.endpoints {
		if ep == url {
			c.lastGood = i
			return
		}
	}
}

// request is a JSON-RPC 2.0 request.
type request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      uint64      `json:"id"`
}

// response is a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      uint64          `json:"id"`
}

// rpcError is a JSON-RPC 2.0 error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RPCError is returned when the server responds with a JSON-RPC error.
// It is never retried on another endpoint: all endpoints serve the same
// chain, so they would give the same answer.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// HTTPError is returned for non-200 HTTP responses that carry no JSON-RPC
// error object.
type HTTPError struct {
	Status int
	URL    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http status %d from %s", e.Status, e.URL)
}

// EndpointsError wraps the per-endpoint failures of a call that exhausted
// every endpoint.
type EndpointsError struct {
	Errs []error
}

func (e *EndpointsError) Error() string {
	return fmt.Sprintf("all %d endpoints failed, last: %v", len(e.Errs), e.Errs[len(e.Errs)-1])
}

func (e *EndpointsError) Unwrap() error { return e.Errs[len(e.Errs)-1] }

// Call invokes a JSON-RPC method with the default timeout and unmarshals
// the result into the provided pointer. If result is nil, the response
// result is discarded.
func (c *Client) Call(ctx context.Context, method string, params, result interface{}) error {
	return c.CallTimeout(ctx, method, params, result, c.timeout)
}

// CallTimeout is Call with an explicit per-attempt timeout.
func (c *Client) CallTimeout(ctx context.Context, method string, params, result interface{}, timeout time.Duration) error {
	if len(c.endpoints) == 0 {
		return ErrNoEndpoints
	}

	req := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.reqID.Add(1),
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	c.mu.Lock()
	start := c.lastGood
	c.mu.Unlock()

	var errs []error
	for i := 0; i < len(c.endpoints); i++ {
		idx := (start + i) % len(c.endpoints)
		url := c.endpoints[idx]

		err := c.attempt(ctx, url, body, result, timeout)
		if err == nil {
			c.mu.Lock()
			c.lastGood = idx
			c.mu.Unlock()
			return nil
		}
		if ctx.Err() != nil {
			// Caller gave up, not the endpoint.
			return ctx.Err()
		}
		if !retryable(err) {
			return err
		}
		errs = append(errs, fmt.Errorf("%s: %w", url, err))
	}
	return &EndpointsError{Errs: errs}
}

// attempt performs one request against one endpoint.
func (c *Client) attempt(ctx context.Context, url string, body []byte, result interface{}, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// Some servers return JSON-RPC errors with a non-200 status.
		var rpcResp response
		if json.Unmarshal(data, &rpcResp) == nil && rpcResp.Error != nil {
			return &RPCError{Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
		}
		return &HTTPError{Status: resp.StatusCode, URL: url}
	}

	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return &RPCError{Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}
	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

// retryable reports whether the next endpoint should be tried.
// Transport failures and overloaded-server statuses are retryable;
// JSON-RPC errors and ordinary client errors are not.
func retryable(err error) bool {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.Status >= 500:
			return true
		case httpErr.Status == http.StatusRequestTimeout, httpErr.Status == http.StatusTooManyRequests:
			return true
		default:
			return false
		}
	}
	// Network errors, timeouts, malformed responses.
	return true
}
