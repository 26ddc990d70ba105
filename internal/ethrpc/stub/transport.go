// Package stub provides a scripted in-memory implementation of
// ethrpc.Transport for tests and offline use.
package stub

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"evm-token-watch/internal/ethrpc"
)

// ErrNotScripted is returned for a request the stub has no reply for.
var ErrNotScripted = errors.New("stub: no scripted reply")

// Transport implements ethrpc.Transport from a table of scripted
// replies. eth_call requests are keyed by contract address and the
// 4-byte selector of the calldata; other methods by method name and
// first string parameter.
type Transport struct {
	mu      sync.Mutex
	replies map[string]reply

	// OnCall, if set, runs before every request is answered. Tests use
	// it to mutate shared state while a call is "in flight".
	OnCall func(req ethrpc.Request)

	// Calls records every request in arrival order.
	Calls []ethrpc.Request
}

type reply struct {
	value json.RawMessage
	err   error
}

// NewTransport creates an empty stub transport.
func NewTransport() *Transport {
	return &Transport{replies: make(map[string]reply)}
}

var _ ethrpc.Transport = (*Transport)(nil)

// RespondCall scripts a hex-string result for an eth_call against the
// given contract and selector.
func (t *Transport) RespondCall(to, selector, hexResult string) {
	t.set(callKey(to, selector), reply{value: mustJSON(hexResult)})
}

// FailCall scripts an error for an eth_call against the given contract
// and selector.
func (t *Transport) FailCall(to, selector string, err error) {
	t.set(callKey(to, selector), reply{err: err})
}

// Respond scripts a hex-string result for a non-eth_call method keyed
// by its first string parameter.
func (t *Transport) Respond(method, param, hexResult string) {
	t.set(method+"|"+strings.ToLower(param), reply{value: mustJSON(hexResult)})
}

// Fail scripts an error for a non-eth_call method.
func (t *Transport) Fail(method, param string, err error) {
	t.set(method+"|"+strings.ToLower(param), reply{err: err})
}

func (t *Transport) set(key string, r reply) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies[key] = r
}

// Call answers a single request from the script table.
func (t *Transport) Call(ctx context.Context, req ethrpc.Request) (json.RawMessage, error) {
	if hook := t.hook(req); hook != nil {
		hook(req)
	}
	r, ok := t.lookup(req)
	if !ok {
		return nil, ErrNotScripted
	}
	return r.value, r.err
}

// CallBatch answers each request independently; a missing script entry
// fails that slot only, matching real per-slot failure semantics.
func (t *Transport) CallBatch(ctx context.Context, reqs []ethrpc.Request) ([]ethrpc.Result, error) {
	results := make([]ethrpc.Result, len(reqs))
	for i, req := range reqs {
		if hook := t.hook(req); hook != nil {
			hook(req)
		}
		r, ok := t.lookup(req)
		if !ok {
			results[i] = ethrpc.Result{Err: ErrNotScripted}
			continue
		}
		results[i] = ethrpc.Result{Value: r.value, Err: r.err}
	}
	return results, nil
}

func (t *Transport) hook(req ethrpc.Request) func(ethrpc.Request) {
	t.mu.Lock()
	t.Calls = append(t.Calls, req)
	hook := t.OnCall
	t.mu.Unlock()
	return hook
}

func (t *Transport) lookup(req ethrpc.Request) (reply, bool) {
	key := keyFor(req)

	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.replies[key]
	return r, ok
}

func keyFor(req ethrpc.Request) string {
	if req.Method == "eth_call" && len(req.Params) > 0 {
		if obj, ok := req.Params[0].(ethrpc.CallObject); ok {
			data := obj.Data
			if len(data) > 10 {
				data = data[:10]
			}
			return callKey(obj.To, data)
		}
	}

	param := ""
	if len(req.Params) > 0 {
		if s, ok := req.Params[0].(string); ok {
			param = s
		}
	}
	return req.Method + "|" + strings.ToLower(param)
}

func callKey(to, selector string) string {
	return "eth_call|" + strings.ToLower(to) + "|" + strings.ToLower(selector)
}

func mustJSON(s string) json.RawMessage {
	b, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	return b
}
