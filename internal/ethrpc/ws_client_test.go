package ethrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

func TestHeadSubscriber_ReceivesHeads(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var req rpcRequest
		if err := conn.ReadJSON(&req); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		if req.Method != "eth_subscribe" {
			t.Errorf("expected eth_subscribe, got %s", req.Method)
		}

		conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "0xsub1",
		})

		conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "eth_subscription",
			"params": map[string]interface{}{
				"subscription": "0xsub1",
				"result": map[string]interface{}{
					"number": "0x10",
					"hash":   "0xabc",
				},
			},
		})

		// Notification for a superseded subscription id must be dropped.
		conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "eth_subscription",
			"params": map[string]interface{}{
				"subscription": "0xstale",
				"result": map[string]interface{}{
					"number": "0x11",
					"hash":   "0xdef",
				},
			},
		})

		// Keep the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	sub, err := NewHeadSubscriber(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewHeadSubscriber: %v", err)
	}
	defer sub.Close()

	select {
	case head := <-sub.Heads():
		if head.Number != "0x10" {
			t.Errorf("expected number 0x10, got %s", head.Number)
		}
		if head.Hash != "0xabc" {
			t.Errorf("expected hash 0xabc, got %s", head.Hash)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for head notification")
	}

	// The stale-subscription notification must not arrive.
	select {
	case head := <-sub.Heads():
		t.Errorf("unexpected extra head: %+v", head)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHeadSubscriber_SubscribeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req rpcRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		raw, _ := json.Marshal(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32601, "message": "notifications not supported"},
		})
		conn.WriteMessage(websocket.TextMessage, raw)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	if _, err := NewHeadSubscriber(context.Background(), wsURL, nil); err == nil {
		t.Fatal("expected subscribe error")
	}
}

func TestHeadSubscriber_Close(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req rpcRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "0xsub1",
		})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	sub, err := NewHeadSubscriber(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewHeadSubscriber: %v", err)
	}

	if err := sub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, ok := <-sub.Heads(); ok {
		t.Error("Heads channel should be closed after Close")
	}

	// Close is idempotent.
	if err := sub.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
