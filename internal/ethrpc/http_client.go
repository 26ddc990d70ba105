package ethrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"evm-token-watch/internal/observability"
)

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a node reply is read.
const maxResponseBytes = 8 << 20

// Client implements Transport over HTTP POST. Request ids come from a
// process-wide monotonic counter, so ids are unique across all
// outstanding batches.
type Client struct {
	endpoint  string
	client    *http.Client
	requestID atomic.Uint64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a JSON-RPC client for the given HTTP endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Transport = (*Client)(nil)

// rpcRequest is the wire form of a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// rpcResponse is the wire form of a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcErrorBody   `json:"error,omitempty"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Call issues a single request as a bare (non-array) JSON-RPC object.
func (c *Client) Call(ctx context.Context, req Request) (json.RawMessage, error) {
	start := time.Now()

	wire := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  req.Method,
		Params:  req.Params,
	}

	body, err := c.post(ctx, wire)
	observability.RecordRPCLatency(req.Method, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return resultOf(&resp)
}

// CallBatch issues the requests as one JSON-RPC batch and returns
// results in the caller's order. Arrival order is not assumed to equal
// send order: every reply is matched to its request by id. A request
// whose id is absent from the reply fails with ErrMissingResponse for
// that slot only.
func (c *Client) CallBatch(ctx context.Context, reqs []Request) ([]Result, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	start := time.Now()
	observability.RecordRPCBatchSize(len(reqs))

	wire := make([]rpcRequest, len(reqs))
	ids := make([]uint64, len(reqs))
	for i, req := range reqs {
		id := c.requestID.Add(1)
		ids[i] = id
		wire[i] = rpcRequest{
			JSONRPC: "2.0",
			ID:      id,
			Method:  req.Method,
			Params:  req.Params,
		}
	}

	body, err := c.post(ctx, wire)
	observability.RecordRPCLatency("batch", time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	var resps []rpcResponse
	if err := json.Unmarshal(body, &resps); err != nil {
		return nil, fmt.Errorf("unmarshal batch response: %w", err)
	}

	byID := make(map[uint64]*rpcResponse, len(resps))
	for i := range resps {
		byID[resps[i].ID] = &resps[i]
	}

	results := make([]Result, len(reqs))
	for i, id := range ids {
		resp, ok := byID[id]
		if !ok {
			results[i] = Result{Err: ErrMissingResponse}
			continue
		}
		value, err := resultOf(resp)
		results[i] = Result{Value: value, Err: err}
	}

	return results, nil
}

// post serializes payload, POSTs it, and returns the reply body.
// Non-2xx delivery is a transport error for the whole call.
func (c *Client) post(ctx context.Context, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, respBody)
	}

	return respBody, nil
}

// resultOf maps one response to its success value or error.
func resultOf(resp *rpcResponse) (json.RawMessage, error) {
	if resp.Error != nil {
		return nil, &RPCError{Code: resp.Error.Code, Message: resp.Error.Message}
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil, ErrEmptyResult
	}
	return resp.Result, nil
}
