// Package remote implements the WebSocket adapter (spec.md §4.I): the same
// adapter.Adapter contract as the local subprocess adapter, carried over a
// WebSocket connection to a sidecar that runs a local adapter internally
// and passes CLI NDJSON lines through verbatim.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/samsaffron/claude-agent-sdk-go/adapter"
	"github.com/samsaffron/claude-agent-sdk-go/option"
	"github.com/samsaffron/claude-agent-sdk-go/protocol"
)

// ProtocolVersion is the envelope version this adapter speaks; the sidecar
// rejects a connection whose version it does not recognize.
const ProtocolVersion = 1

// Config configures the sidecar connection (spec.md §4.I).
type Config struct {
	URL         string
	BearerToken string
	DialTimeout time.Duration
}

// envelope is the outer shape of every frame exchanged with the sidecar;
// Payload's meaning depends on Type.
type envelope struct {
	Type    string          `json:"type"`
	Version int             `json:"version,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Adapter is the WebSocket implementation of adapter.Adapter.
type Adapter struct {
	cfg  Config
	conn *websocket.Conn

	writeMu sync.Mutex
	mu      sync.Mutex
	status  adapter.Status

	activeRequestID string
	notify          chan<- adapter.Notification
}

// New constructs an unstarted remote adapter against the given sidecar
// configuration.
func New(cfg Config) *Adapter {
	return &Adapter{cfg: cfg}
}

func (a *Adapter) setStatus(s adapter.Status, reason string) {
	a.mu.Lock()
	a.status = s
	a.mu.Unlock()
	a.notify <- adapter.Notification{Kind: adapter.NotifyStatus, Status: s, Reason: reason}
}

// Start dials the sidecar, exchanges the init envelope, and begins the
// read loop (spec.md §4.I).
func (a *Adapter) Start(ctx context.Context, opts option.Options, notify chan<- adapter.Notification) error {
	a.notify = notify
	a.setStatus(adapter.StatusProvisioning, "")

	go func() {
		if err := a.provision(ctx, opts); err != nil {
			a.setStatus(adapter.StatusError, err.Error())
		}
	}()
	return nil
}

func (a *Adapter) provision(ctx context.Context, opts option.Options) error {
	headers := http.Header{}
	if a.cfg.BearerToken != "" {
		headers.Set("Authorization", "Bearer "+a.cfg.BearerToken)
	}

	dialer := websocket.Dialer{HandshakeTimeout: a.cfg.DialTimeout}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = 10 * time.Second
	}

	conn, _, err := dialer.DialContext(ctx, a.cfg.URL, headers)
	if err != nil {
		return fmt.Errorf("dialing sidecar: %w", err)
	}
	a.conn = conn

	a.setStatus(adapter.StatusInitializing, "")

	initPayload, _ := json.Marshal(map[string]any{"options": opts})
	if err := a.writeEnvelope(envelope{Type: "init", Version: ProtocolVersion, Payload: initPayload}); err != nil {
		return fmt.Errorf("sending init envelope: %w", err)
	}

	go a.readLoop(ctx)
	return nil
}

func (a *Adapter) writeEnvelope(e envelope) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return a.conn.WriteJSON(e)
}

// SendQuery implements adapter.Adapter by wrapping the prompt in a query
// envelope.
func (a *Adapter) SendQuery(ctx context.Context, requestID string, prompt string, queryOpts option.Options) error {
	a.mu.Lock()
	a.activeRequestID = requestID
	a.mu.Unlock()

	payload, err := json.Marshal(map[string]any{"request_id": requestID, "prompt": prompt})
	if err != nil {
		return err
	}
	return a.writeEnvelope(envelope{Type: "query", Payload: payload})
}

// Interrupt implements adapter.Adapter via an interrupt envelope.
func (a *Adapter) Interrupt(ctx context.Context) error {
	return a.writeEnvelope(envelope{Type: "interrupt"})
}

// Health implements adapter.Adapter.
func (a *Adapter) Health() (adapter.Health, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.status {
	case adapter.StatusReady:
		return adapter.HealthHealthy, ""
	case adapter.StatusProvisioning, adapter.StatusInitializing:
		return adapter.HealthDegraded, a.status.String()
	default:
		return adapter.HealthUnhealthy, a.status.String()
	}
}

// Stop implements adapter.Adapter: sends stop, then closes the socket.
func (a *Adapter) Stop(ctx context.Context) error {
	if a.conn == nil {
		return nil
	}
	_ = a.writeEnvelope(envelope{Type: "stop"})
	return a.conn.Close()
}

func (a *Adapter) readLoop(ctx context.Context) {
	for {
		var e envelope
		if err := a.conn.ReadJSON(&e); err != nil {
			a.disconnect(err.Error())
			return
		}
		a.handleEnvelope(e)
	}
}

func (a *Adapter) handleEnvelope(e envelope) {
	a.mu.Lock()
	reqID := a.activeRequestID
	a.mu.Unlock()

	switch e.Type {
	case "ready":
		a.setStatus(adapter.StatusReady, "")
	case "message":
		var wrapped struct {
			Payload string `json:"payload"`
		}
		if err := json.Unmarshal(e.Payload, &wrapped); err != nil {
			return
		}
		msg, err := protocol.Parse([]byte(wrapped.Payload))
		if err != nil {
			return
		}
		a.notify <- adapter.Notification{Kind: adapter.NotifyRawMessage, RequestID: reqID, RawMessage: msg}
	case "done":
		a.mu.Lock()
		a.activeRequestID = ""
		a.mu.Unlock()
		a.notify <- adapter.Notification{Kind: adapter.NotifyDone, RequestID: reqID}
	case "error":
		var body struct {
			Reason string `json:"reason"`
		}
		_ = json.Unmarshal(e.Payload, &body)
		a.notify <- adapter.Notification{Kind: adapter.NotifyError, RequestID: reqID, Err: fmt.Errorf("%s", body.Reason)}
	}
}

func (a *Adapter) disconnect(reason string) {
	a.mu.Lock()
	reqID := a.activeRequestID
	a.activeRequestID = ""
	a.status = adapter.StatusDisconnected
	a.mu.Unlock()

	if reqID != "" {
		a.notify <- adapter.Notification{Kind: adapter.NotifyError, RequestID: reqID, Err: fmt.Errorf("port_closed")}
	}
	a.notify <- adapter.Notification{Kind: adapter.NotifyStatus, Status: adapter.StatusDisconnected, Reason: reason}
}

var _ adapter.Adapter = (*Adapter)(nil)
