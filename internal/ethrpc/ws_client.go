package ethrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// HeadConfig configures HeadSubscriber behavior.
type HeadConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultHeadConfig returns the default subscriber configuration.
func DefaultHeadConfig() HeadConfig {
	return HeadConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       120 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Head is one newHeads notification.
type Head struct {
	Number string // hex block number
	Hash   string
}

// HeadSubscriber maintains an eth_subscribe("newHeads") subscription
// over WebSocket. It reconnects with exponential backoff and
// resubscribes after connection loss. Consumers read from Heads and
// use each notification as a refresh trigger.
type HeadSubscriber struct {
	endpoint string
	config   HeadConfig

	// conn is only published after the subscribe handshake completed,
	// so readLoop never competes with the handshake read.
	conn      *websocket.Conn
	connMu    sync.Mutex
	subID     string
	closed    atomic.Bool
	requestID atomic.Uint64

	heads chan Head
	done  chan struct{}
	wg    sync.WaitGroup

	reconnecting atomic.Bool
}

// NewHeadSubscriber connects to the WebSocket endpoint and subscribes
// to newHeads.
func NewHeadSubscriber(ctx context.Context, endpoint string, config *HeadConfig) (*HeadSubscriber, error) {
	cfg := DefaultHeadConfig()
	if config != nil {
		cfg = *config
	}

	s := &HeadSubscriber{
		endpoint: endpoint,
		config:   cfg,
		heads:    make(chan Head, 64),
		done:     make(chan struct{}),
	}

	conn, subID, err := s.dialAndSubscribe(ctx)
	if err != nil {
		return nil, err
	}

	s.connMu.Lock()
	s.conn = conn
	s.subID = subID
	s.connMu.Unlock()

	s.wg.Add(2)
	go s.readLoop()
	go s.pingLoop()

	return s, nil
}

// Heads returns the notification channel. It is closed on Close.
func (s *HeadSubscriber) Heads() <-chan Head { return s.heads }

// Close shuts the subscriber down and closes the Heads channel.
func (s *HeadSubscriber) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	close(s.heads)
	return nil
}

// dialAndSubscribe opens a connection and completes the newHeads
// subscription handshake on it. The node answers the subscribe request
// before sending any notification for it, so the single read here is
// safe.
func (s *HeadSubscriber) dialAndSubscribe(ctx context.Context) (*websocket.Conn, string, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("websocket dial: %w", err)
	}

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      s.requestID.Add(1),
		Method:  "eth_subscribe",
		Params:  []any{"newHeads"},
	}

	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("write subscribe: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("read subscribe reply: %w", err)
	}

	var resp struct {
		ID     uint64        `json:"id"`
		Result string        `json:"result"`
		Error  *rpcErrorBody `json:"error"`
	}
	if err := json.Unmarshal(message, &resp); err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("unmarshal subscribe reply: %w", err)
	}
	if resp.Error != nil {
		conn.Close()
		return nil, "", &RPCError{Code: resp.Error.Code, Message: resp.Error.Message}
	}
	if resp.Result == "" {
		conn.Close()
		return nil, "", ErrEmptyResult
	}

	return conn, resp.Result, nil
}

func (s *HeadSubscriber) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			if !s.reconnecting.Swap(true) {
				go s.reconnect(reconnectDelay)
			}
			reconnectDelay *= 2
			if reconnectDelay > s.config.MaxReconnectDelay {
				reconnectDelay = s.config.MaxReconnectDelay
			}

			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = s.config.ReconnectDelay
		s.handleMessage(message)
	}
}

func (s *HeadSubscriber) reconnect(delay time.Duration) {
	defer s.reconnecting.Store(false)

	if s.closed.Load() {
		return
	}

	select {
	case <-s.done:
		return
	case <-time.After(delay):
	}

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, subID, err := s.dialAndSubscribe(ctx)
	if err != nil {
		// Will retry after the next read error wakes readLoop again.
		return
	}

	s.connMu.Lock()
	if s.closed.Load() {
		s.connMu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.subID = subID
	s.connMu.Unlock()
}

// wsHeadNotification is the eth_subscription notification envelope.
type wsHeadNotification struct {
	Method string `json:"method"`
	Params *struct {
		Subscription string `json:"subscription"`
		Result       struct {
			Number string `json:"number"`
			Hash   string `json:"hash"`
		} `json:"result"`
	} `json:"params"`
}

func (s *HeadSubscriber) handleMessage(message []byte) {
	var notif wsHeadNotification
	if err := json.Unmarshal(message, &notif); err != nil {
		return
	}
	if notif.Method != "eth_subscription" || notif.Params == nil {
		return
	}

	s.connMu.Lock()
	current := s.subID
	s.connMu.Unlock()
	if notif.Params.Subscription != current {
		return
	}

	head := Head{
		Number: notif.Params.Result.Number,
		Hash:   notif.Params.Result.Hash,
	}

	// Drop the head if the consumer is behind; the next one carries
	// the same trigger meaning.
	select {
	case s.heads <- head:
	default:
	}
}

func (s *HeadSubscriber) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			s.connMu.Unlock()
		}
	}
}
