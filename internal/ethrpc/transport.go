// Package ethrpc is a minimal JSON-RPC 2.0 client for
// Ethereum-compatible nodes. It supports single and batched calls;
// batch results are re-associated to their requests by numeric id, so
// the caller always sees results in the order it sent the requests,
// regardless of the node's reply order.
package ethrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Request is one JSON-RPC call to be issued. The id is assigned by the
// transport; callers only supply method and params.
type Request struct {
	Method string
	Params []any
}

// Result is the outcome of one request slot. Exactly one of Value and
// Err is meaningful.
type Result struct {
	Value json.RawMessage
	Err   error
}

// Transport sends JSON-RPC requests. CallBatch returns one Result per
// request, ordered identically to the input. Implementations never
// retry; retry policy belongs to the caller.
type Transport interface {
	// Call issues a single request and returns its raw result.
	Call(ctx context.Context, req Request) (json.RawMessage, error)

	// CallBatch issues the requests as one JSON-RPC batch. A non-nil
	// error means the whole batch failed before any slot produced a
	// result; otherwise per-slot failures are reported in Result.Err.
	CallBatch(ctx context.Context, reqs []Request) ([]Result, error)
}

// RPCError is an explicit error object returned by the node for a
// given request id.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

var (
	// ErrEmptyResult is returned when the node replies successfully
	// but without a result field.
	ErrEmptyResult = errors.New("ethrpc: empty result")

	// ErrMissingResponse is returned for a request whose id has no
	// matching entry in the batch reply.
	ErrMissingResponse = errors.New("ethrpc: no response for request id")
)

// CallObject is the eth_call parameter object.
type CallObject struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// EthCallRequest builds an eth_call request against the latest block.
func EthCallRequest(to, data string) Request {
	return Request{
		Method: "eth_call",
		Params: []any{CallObject{To: to, Data: data}, "latest"},
	}
}

// GetBalanceRequest builds an eth_getBalance request against the
// latest block.
func GetBalanceRequest(address string) Request {
	return Request{
		Method: "eth_getBalance",
		Params: []any{address, "latest"},
	}
}

// ResultString unmarshals a raw result into the hex string the eth_*
// read methods return.
func ResultString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("ethrpc: result is not a string: %w", err)
	}
	return s, nil
}
