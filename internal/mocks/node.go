package mocks

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NodeHandler answers one JSON-RPC method. Returning a non-nil *RPCError sends an error response.
type NodeHandler func(params []json.RawMessage) (any, *RPCError)

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// FakeNode is an in-process Starknet JSON-RPC endpoint for tests.
type FakeNode struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]NodeHandler
	calls    map[string]int
	params   map[string][]json.RawMessage
}

func NewFakeNode(t testing.TB) *FakeNode {
	t.Helper()
	n := &FakeNode{
		handlers: make(map[string]NodeHandler),
		calls:    make(map[string]int),
		params:   make(map[string][]json.RawMessage),
	}
	n.Server = httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(n.Close)
	return n
}

func (n *FakeNode) Handle(method string, h NodeHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = h
}

// Respond registers a handler that always returns result.
func (n *FakeNode) Respond(method string, result any) {
	n.Handle(method, func([]json.RawMessage) (any, *RPCError) { return result, nil })
}

// Fail registers a handler that always returns an RPC error.
func (n *FakeNode) Fail(method string, code int, message string) {
	n.Handle(method, func([]json.RawMessage) (any, *RPCError) {
		return nil, &RPCError{Code: code, Message: message}
	})
}

func (n *FakeNode) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func (n *FakeNode) TotalCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, c := range n.calls {
		total += c
	}
	return total
}

// LastParams returns the params of the most recent call to method.
func (n *FakeNode) LastParams(method string) []json.RawMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.params[method]
}

func (n *FakeNode) serve(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls[req.Method]++
	n.params[req.Method] = req.Params
	h, ok := n.handlers[req.Method]
	n.mu.Unlock()

	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	if !ok {
		resp.Error = &RPCError{Code: -32601, Message: "Method not found"}
	} else {
		resp.Result, resp.Error = h(req.Params)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
