// Package local implements the local subprocess adapter (spec.md §4.H):
// spawns the claude CLI as a long-lived child, speaks stream-json on its
// stdin/stdout, and multiplexes the control protocol with the message
// stream over that single pipe.
package local

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/samsaffron/claude-agent-sdk-go/adapter"
	"github.com/samsaffron/claude-agent-sdk-go/adapter/local/clibinary"
	"github.com/samsaffron/claude-agent-sdk-go/cliargs"
	"github.com/samsaffron/claude-agent-sdk-go/hooks"
	"github.com/samsaffron/claude-agent-sdk-go/mcprouter"
	"github.com/samsaffron/claude-agent-sdk-go/option"
	"github.com/samsaffron/claude-agent-sdk-go/protocol"
)

// telemetryMarker is sent to the child so observability on the other side
// can attribute traffic to this SDK, the way term-llm tags its own
// subprocess environment.
const telemetryMarker = "claude-agent-sdk-go"

// Adapter is the local subprocess implementation of adapter.Adapter.
type Adapter struct {
	opts  option.Options
	cache *clibinary.Cache

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	writeMu sync.Mutex

	ids     protocol.IDGenerator
	pending sync.Map // request_id -> chan protocol.InboundResponse

	hooks  *hooks.Registry
	router *mcprouter.Router

	notify chan<- adapter.Notification

	mu              sync.Mutex
	status          adapter.Status
	activeRequestID string
	sessionID       string
	canReconnect    bool
	serverInfo      json.RawMessage
}

// New constructs an unstarted local adapter. cache may be nil, in which
// case binary resolution is not memoized.
func New(cache *clibinary.Cache) *Adapter {
	return &Adapter{cache: cache}
}

func (a *Adapter) setStatus(s adapter.Status, reason string) {
	a.mu.Lock()
	a.status = s
	a.mu.Unlock()
	a.notify <- adapter.Notification{Kind: adapter.NotifyStatus, Status: s, Reason: reason}
}

// Start implements adapter.Adapter. It resolves the binary, spawns the
// child asynchronously, and performs the initialize handshake
// (spec.md §4.H Provisioning).
func (a *Adapter) Start(ctx context.Context, opts option.Options, notify chan<- adapter.Notification) error {
	a.opts = opts
	a.notify = notify

	var cliPath option.CLIPath
	if opts.CLIPathOpt != nil {
		cliPath = *opts.CLIPathOpt
	} else {
		cliPath = option.CLIPath{Mode: option.CLIPathBundled}
	}

	a.setStatus(adapter.StatusProvisioning, "")

	go func() {
		if err := a.provision(ctx, cliPath); err != nil {
			a.setStatus(adapter.StatusError, err.Error())
		}
	}()
	return nil
}

func (a *Adapter) provision(ctx context.Context, cliPath option.CLIPath) error {
	bin, err := ResolveBinary(ctx, cliPath, a.cache)
	if err != nil {
		return fmt.Errorf("resolving claude binary: %w", err)
	}

	args, err := cliargs.Build(a.opts)
	if err != nil {
		return fmt.Errorf("building cli args: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = childEnv(a.opts)
	if a.opts.Cwd != nil {
		cmd.Dir = *a.opts.Cwd
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting claude: %w", err)
	}

	a.cmd = cmd
	a.stdin = stdin
	a.stdout = stdout
	a.router = mcprouter.NewRouter(a.opts.MCPServers)
	a.hooks = hooks.Build(a.opts.Hooks, a.opts.CanUseTool)

	go drainStderr(stderr)
	go a.readLoop(ctx)

	return a.handshake(ctx)
}

func childEnv(o option.Options) []string {
	env := os.Environ()
	if o.APIKey != nil && *o.APIKey != "" {
		env = append(env, "ANTHROPIC_API_KEY="+*o.APIKey)
	}
	for k, v := range o.Env {
		env = append(env, k+"="+v)
	}
	env = append(env, "CLAUDE_AGENT_SDK="+telemetryMarker)
	return env
}

func drainStderr(stderr io.ReadCloser) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		slog.Debug("claude stderr", "line", scanner.Text())
	}
}

// handshake sends the initialize control request and blocks (up to 30s)
// for its response, transitioning initializing -> ready or error
// (spec.md §4.H step 4).
func (a *Adapter) handshake(ctx context.Context) error {
	a.setStatus(adapter.StatusInitializing, "")

	id := a.ids.Next()
	req := protocol.NewInitializeRequest(id, a.hooks.WireHooks(), agentsWirePayload(a.opts.Agents))

	ch := make(chan protocol.InboundResponse, 1)
	a.pending.Store(id, ch)
	defer a.pending.Delete(id)

	if err := a.writeEnvelope(req); err != nil {
		return fmt.Errorf("sending initialize request: %w", err)
	}

	select {
	case resp := <-ch:
		if !resp.Success {
			a.setStatus(adapter.StatusError, resp.ErrorMsg)
			return fmt.Errorf("initialize failed: %s", resp.ErrorMsg)
		}
		raw, _ := json.Marshal(resp.Payload)
		a.mu.Lock()
		a.serverInfo = raw
		a.mu.Unlock()
		a.setStatus(adapter.StatusReady, "")
		return nil
	case <-time.After(adapter.ControlTimeout):
		a.setStatus(adapter.StatusError, "initialize_timeout")
		a.disconnect("initialize_timeout")
		return fmt.Errorf("initialize_timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func agentsWirePayload(agents map[string]option.AgentDefinition) map[string]any {
	if len(agents) == 0 {
		return nil
	}
	out := make(map[string]any, len(agents))
	for name, def := range agents {
		out[name] = map[string]any{
			"description": def.Description,
			"prompt":      def.Prompt,
			"tools":       def.Tools,
			"model":       def.Model,
		}
	}
	return out
}

func (a *Adapter) writeEnvelope(req protocol.OutboundRequest) error {
	line, err := req.Build()
	if err != nil {
		return err
	}
	return a.writeLine(line)
}

func (a *Adapter) writeLine(line []byte) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	if _, err := a.stdin.Write(line); err != nil {
		return err
	}
	_, err := a.stdin.Write([]byte("\n"))
	return err
}

// SendQuery implements adapter.Adapter (spec.md §4.H "Outbound queries").
func (a *Adapter) SendQuery(ctx context.Context, requestID string, prompt string, queryOpts option.Options) error {
	a.mu.Lock()
	a.activeRequestID = requestID
	sessionID := a.sessionID
	a.mu.Unlock()

	envelope := map[string]any{
		"type": "user",
		"message": map[string]any{
			"role":    "user",
			"content": []map[string]any{{"type": "text", "text": prompt}},
		},
		"parent_tool_use_id": nil,
	}
	if sessionID != "" {
		envelope["session_id"] = sessionID
	} else {
		envelope["session_id"] = nil
	}

	line, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encoding query envelope: %w", err)
	}
	return a.writeLine(line)
}

// Interrupt implements adapter.Adapter via the interrupt control request.
func (a *Adapter) Interrupt(ctx context.Context) error {
	id := a.ids.Next()
	req := protocol.NewInterruptRequest(id)
	ch := make(chan protocol.InboundResponse, 1)
	a.pending.Store(id, ch)
	defer a.pending.Delete(id)

	if err := a.writeEnvelope(req); err != nil {
		return err
	}
	select {
	case resp := <-ch:
		if !resp.Success {
			return fmt.Errorf("interrupt failed: %s", resp.ErrorMsg)
		}
		return nil
	case <-time.After(adapter.ControlTimeout):
		return adapter.ErrControlTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// controlHandle implements adapter.ControlHandle for a single in-flight
// outbound control request.
type controlHandle struct {
	ch <-chan protocol.InboundResponse
}

func (h controlHandle) Wait(ctx context.Context) (map[string]any, error) {
	select {
	case resp := <-h.ch:
		if !resp.Success {
			return nil, fmt.Errorf("%s", resp.ErrorMsg)
		}
		return resp.Payload, nil
	case <-time.After(adapter.ControlTimeout):
		return nil, adapter.ErrControlTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendControlRequest implements adapter.ControlCapable for the out-of-band
// control calls the session engine issues (set_model,
// set_permission_mode, rewind_files, mcp_status).
func (a *Adapter) SendControlRequest(ctx context.Context, subtype protocol.RequestSubtype, payload map[string]any) (adapter.ControlHandle, error) {
	id := a.ids.Next()
	req := protocol.OutboundRequest{RequestID: id, Subtype: subtype, Payload: payload}
	ch := make(chan protocol.InboundResponse, 1)
	a.pending.Store(id, ch)

	if err := a.writeEnvelope(req); err != nil {
		a.pending.Delete(id)
		return nil, err
	}
	return controlHandle{ch: ch}, nil
}

// Health implements adapter.Adapter with a coarse status-derived probe.
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

// Stop implements adapter.Adapter; idempotent.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	cmd := a.cmd
	a.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if a.stdin != nil {
		_ = a.stdin.Close()
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		return nil
	}
}

// readLoop consumes stdout lines, classifying and dispatching each
// (spec.md §4.H Steady state).
func (a *Adapter) readLoop(ctx context.Context) {
	maxBuf := option.DefaultMaxBufferSize
	if a.opts.MaxBufferSize != nil {
		maxBuf = *a.opts.MaxBufferSize
	}
	initBuf := 64 * 1024
	if maxBuf < initBuf {
		initBuf = maxBuf
	}
	scanner := bufio.NewScanner(a.stdout)
	scanner.Buffer(make([]byte, initBuf), maxBuf)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		a.handleLine(ctx, append([]byte(nil), line...))
	}
	if err := scanner.Err(); err != nil && strings.Contains(err.Error(), "token too long") {
		a.mu.Lock()
		reqID := a.activeRequestID
		a.mu.Unlock()
		a.notify <- adapter.Notification{Kind: adapter.NotifyError, RequestID: reqID, Err: fmt.Errorf("line exceeded max_buffer_size")}
	}
	a.disconnect("eof")
}

func (a *Adapter) handleLine(ctx context.Context, line []byte) {
	kind, err := protocol.Classify(line)
	if err != nil {
		slog.Debug("dropping unparseable line", "error", err)
		return
	}

	switch kind {
	case protocol.KindControlResponse:
		a.handleControlResponse(line)
	case protocol.KindControlRequest:
		a.handleControlRequest(ctx, line)
	default:
		a.handleRegularMessage(line)
	}
}

func (a *Adapter) handleControlResponse(line []byte) {
	resp, err := protocol.ParseResponse(line)
	if err != nil {
		slog.Debug("malformed control_response", "error", err)
		return
	}
	if v, ok := a.pending.LoadAndDelete(resp.RequestID); ok {
		ch := v.(chan protocol.InboundResponse)
		ch <- resp
	}
}

func (a *Adapter) handleControlRequest(ctx context.Context, line []byte) {
	req, err := protocol.ParseInboundRequest(line)
	if err != nil {
		slog.Debug("malformed control_request", "error", err)
		return
	}

	var resp protocol.ResponseEnvelope
	switch req.Subtype {
	case "can_use_tool", "hook_callback":
		resp = a.hooks.Dispatch(ctx, req)
	case "mcp_message":
		resp = a.dispatchMCP(ctx, req)
	default:
		resp = protocol.ResponseEnvelope{RequestID: req.RequestID, Success: false, ErrorMsg: fmt.Sprintf("unsupported control_request subtype %q", req.Subtype)}
	}

	out, err := resp.BuildResponse()
	if err != nil {
		slog.Debug("encoding control_response failed", "error", err)
		return
	}
	if err := a.writeLine(out); err != nil {
		slog.Debug("writing control_response failed", "error", err)
	}
}

func (a *Adapter) dispatchMCP(ctx context.Context, req protocol.InboundControlRequest) protocol.ResponseEnvelope {
	var body struct {
		ServerName string          `json:"server_name"`
		Message    json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(req.Raw, &body); err != nil {
		return protocol.ResponseEnvelope{RequestID: req.RequestID, Success: false, ErrorMsg: err.Error()}
	}
	rpcResp := a.router.Dispatch(ctx, body.ServerName, body.Message)
	payload, err := jsonToMap(rpcResp)
	if err != nil {
		return protocol.ResponseEnvelope{RequestID: req.RequestID, Success: false, ErrorMsg: err.Error()}
	}
	return protocol.ResponseEnvelope{RequestID: req.RequestID, Success: true, Payload: map[string]any{"mcp_response": payload}}
}

func jsonToMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Adapter) handleRegularMessage(line []byte) {
	msg, err := protocol.Parse(line)
	a.mu.Lock()
	reqID := a.activeRequestID
	a.mu.Unlock()

	if err != nil {
		slog.Debug("dropping unparseable message", "error", err)
		return
	}

	if sys, ok := msg.(protocol.SystemMessage); ok && sys.Subtype == "init" && sys.SessionID != "" {
		a.mu.Lock()
		a.sessionID = sys.SessionID
		a.mu.Unlock()
	}

	a.notify <- adapter.Notification{Kind: adapter.NotifyRawMessage, RequestID: reqID, RawMessage: msg}

	if msg.MessageType() == "result" {
		a.mu.Lock()
		a.activeRequestID = ""
		a.mu.Unlock()
	}
}

// disconnect fails the active request and every pending control request,
// then transitions to disconnected (spec.md §4.H Termination).
func (a *Adapter) disconnect(reason string) {
	a.mu.Lock()
	reqID := a.activeRequestID
	a.activeRequestID = ""
	a.status = adapter.StatusDisconnected
	a.mu.Unlock()

	a.pending.Range(func(key, value any) bool {
		ch := value.(chan protocol.InboundResponse)
		ch <- protocol.InboundResponse{RequestID: key.(string), Success: false, ErrorMsg: "port_closed"}
		a.pending.Delete(key)
		return true
	})

	if reqID != "" {
		a.notify <- adapter.Notification{Kind: adapter.NotifyError, RequestID: reqID, Err: fmt.Errorf("port_closed")}
	}
	a.notify <- adapter.Notification{Kind: adapter.NotifyStatus, Status: adapter.StatusDisconnected, Reason: reason}
}

// GetServerInfo implements adapter.ServerInfoCapable.
func (a *Adapter) GetServerInfo() (json.RawMessage, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.serverInfo, a.serverInfo != nil
}

var _ adapter.Adapter = (*Adapter)(nil)
var _ adapter.ServerInfoCapable = (*Adapter)(nil)
var _ adapter.ControlCapable = (*Adapter)(nil)
