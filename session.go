package claudeagent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	sdkadapter "github.com/samsaffron/claude-agent-sdk-go/adapter"
	"github.com/samsaffron/claude-agent-sdk-go/internal/telemetry"
	"github.com/samsaffron/claude-agent-sdk-go/option"
	"github.com/samsaffron/claude-agent-sdk-go/protocol"
)

// Session is a single-writer actor owning one Adapter (spec.md §4.J,
// §5 "cooperative, single-writer actor"). All public methods send a
// command to the run loop's mailbox and wait for its reply; the run loop
// is the only goroutine that ever reads or writes session state.
type Session struct {
	ad     sdkadapter.Adapter
	opts   option.Options
	notify chan sdkadapter.Notification
	cmds   chan any
	closed chan struct{}
	tel    telemetry.Log
}

// New starts the given adapter against opts and launches the session's
// run loop. It does not block for the adapter to become ready; the first
// query simply waits in queue until it does (spec.md §4.H step 3, §4.J
// "status(:ready) after the queue was waiting on provisioning").
//
// Request lifecycles are recorded to a no-op telemetry sink; use
// NewWithTelemetry to persist them.
func New(ctx context.Context, ad sdkadapter.Adapter, opts option.Options) (*Session, error) {
	return NewWithTelemetry(ctx, ad, opts, &telemetry.NoopLog{})
}

// NewWithTelemetry is New, but every request's lifecycle (start, end,
// status, cost, turn/tool counts — never prompt or message content) is
// additionally recorded to tel. Pass a telemetry.NewLog(cfg) sink to
// persist an audit trail across process restarts.
func NewWithTelemetry(ctx context.Context, ad sdkadapter.Adapter, opts option.Options, tel telemetry.Log) (*Session, error) {
	if err := option.Validate(opts); err != nil {
		return nil, newError(ErrValidation, err.Error())
	}
	if tel == nil {
		tel = &telemetry.NoopLog{}
	}

	s := &Session{
		ad:     ad,
		opts:   opts,
		notify: make(chan sdkadapter.Notification, 32),
		cmds:   make(chan any),
		closed: make(chan struct{}),
		tel:    tel,
	}

	if err := ad.Start(ctx, opts, s.notify); err != nil {
		return nil, newError(ErrSpawnFailed, err.Error())
	}

	go s.run()
	return s, nil
}

// nextRequestID mints a request id (spec.md §3 "Request"). This is
// deliberately a different id space from the control correlation ids
// protocol.IDGenerator produces (spec.md §4.D) — requests are
// caller-facing and never appear in control-protocol envelopes (only the
// remote adapter's own query envelope carries them), so a UUID rather than a
// counter avoids leaking how many queries a process has issued.
func (s *Session) nextRequestID() string {
	return "q_" + uuid.NewString()
}

// --- command types exchanged over the mailbox ---

type cmdSubmitQuery struct {
	req   *request
	reply chan error // non-nil error means the session was stopped
}

type cmdInterrupt struct{ reply chan error }

type cmdControl struct {
	subtype protocol.RequestSubtype
	payload map[string]any
	reply   chan controlResult
}

type controlResult struct {
	payload map[string]any
	err     error
}

type cmdGetSessionID struct{ reply chan string }
type cmdClear struct{ reply chan struct{} }
type cmdGetServerInfo struct{ reply chan json.RawMessage }
type cmdStop struct{ reply chan error }

// run is the session's single-writer loop: it is the only place that
// touches status/activeReq/queue/requests/sessionID (spec.md §5).
func (s *Session) run() {
	var (
		status     sdkadapter.Status = sdkadapter.StatusProvisioning
		activeReq  *request
		queue      []*request
		requests   = make(map[string]*request)
		sessionID  string
		serverInfo json.RawMessage
		stopped    bool
	)

	startNext := func() {
		if stopped || activeReq != nil || status != sdkadapter.StatusReady || len(queue) == 0 {
			return
		}
		next := queue[0]
		queue = queue[1:]
		activeReq = next
		next.status = RequestActive
		queryOpts := next.opts
		if sessionID != "" && queryOpts.Resume == nil {
			resumeID := sessionID
			queryOpts.Resume = &resumeID
		}
		if err := s.ad.SendQuery(context.Background(), next.id, next.prompt, queryOpts); err != nil {
			finishRequest(next, nil, err)
			activeReq = nil
		}
	}

	deliver := func(r *request, ev StreamEvent) {
		if r.subscriber == nil {
			return
		}
		select {
		case r.subscriber <- ev:
		case <-r.abandoned:
		}
	}

	var finishRequest func(r *request, lastMsg protocol.Message, err error)
	finishRequest = func(r *request, lastMsg protocol.Message, err error) {
		r.status = RequestCompleted
		delete(requests, r.id)
		s.recordEnd(r, err)
		if r.subscriber != nil {
			if err != nil {
				deliver(r, StreamEvent{Err: err})
			}
			deliver(r, StreamEvent{End: true})
		}
		if r.syncReply != nil {
			res := syncResult{err: err}
			if err == nil {
				res.text = lastResultText(r.accumulated)
			}
			select {
			case r.syncReply <- res:
			default:
			}
		}
	}

	failQueued := func(kind ErrorKind, detail string) {
		for _, r := range queue {
			finishRequest(r, nil, newError(kind, detail))
		}
		queue = nil
	}

	for {
		select {
		case n, ok := <-s.notify:
			if !ok {
				return
			}
			switch n.Kind {
			case sdkadapter.NotifyStatus:
				status = n.Status
				if n.Status == sdkadapter.StatusReady {
					startNext()
				} else if n.Status == sdkadapter.StatusError {
					if activeReq != nil {
						finishRequest(activeReq, nil, newError(ErrProvisioningFailed, n.Reason))
						activeReq = nil
					}
					failQueued(ErrProvisioningFailed, n.Reason)
				} else if n.Status == sdkadapter.StatusDisconnected {
					if activeReq != nil {
						finishRequest(activeReq, nil, newError(ErrPortClosed, n.Reason))
						activeReq = nil
					}
					failQueued(ErrPortClosed, n.Reason)
				}

			case sdkadapter.NotifyRawMessage:
				r, ok := requests[n.RequestID]
				if !ok {
					continue // caller disappeared or request already closed; discard
				}
				if sys, ok := n.RawMessage.(protocol.SystemMessage); ok && sys.Subtype == "init" && sys.SessionID != "" {
					sessionID = sys.SessionID
				}
				r.accumulated = append(r.accumulated, n.RawMessage)
				deliver(r, StreamEvent{Message: n.RawMessage})
				if n.RawMessage.MessageType() == "result" {
					finishRequest(r, n.RawMessage, nil)
					if activeReq == r {
						activeReq = nil
					}
					startNext()
				}

			case sdkadapter.NotifyDone:
				if r, ok := requests[n.RequestID]; ok {
					finishRequest(r, nil, nil)
					if activeReq == r {
						activeReq = nil
					}
				}
				startNext()

			case sdkadapter.NotifyError:
				if r, ok := requests[n.RequestID]; ok {
					finishRequest(r, nil, n.Err)
					if activeReq == r {
						activeReq = nil
					}
				}
				startNext()
			}

		case raw := <-s.cmds:
			switch cmd := raw.(type) {
			case cmdSubmitQuery:
				if stopped {
					cmd.reply <- newError(ErrSessionStopped, "")
					continue
				}
				requests[cmd.req.id] = cmd.req
				queue = append(queue, cmd.req)
				cmd.reply <- nil
				s.recordStart(cmd.req)
				startNext()

			case cmdInterrupt:
				cmd.reply <- s.ad.Interrupt(context.Background())

			case cmdControl:
				cc, ok := s.ad.(sdkadapter.ControlCapable)
				if !ok {
					cmd.reply <- controlResult{err: &sdkadapter.ErrNotSupported{Capability: string(cmd.subtype)}}
					continue
				}
				handle, err := cc.SendControlRequest(context.Background(), cmd.subtype, cmd.payload)
				if err != nil {
					cmd.reply <- controlResult{err: err}
					continue
				}
				go func(h sdkadapter.ControlHandle, reply chan controlResult) {
					ctx, cancel := context.WithTimeout(context.Background(), sdkadapter.ControlTimeout)
					defer cancel()
					payload, err := h.Wait(ctx)
					reply <- controlResult{payload: payload, err: err}
				}(handle, cmd.reply)

			case cmdGetSessionID:
				cmd.reply <- sessionID

			case cmdClear:
				sessionID = ""
				cmd.reply <- struct{}{}

			case cmdGetServerInfo:
				if sic, ok := s.ad.(sdkadapter.ServerInfoCapable); ok {
					if info, ok := sic.GetServerInfo(); ok {
						serverInfo = info
					}
				}
				cmd.reply <- serverInfo

			case cmdStop:
				stopped = true
				if activeReq != nil {
					finishRequest(activeReq, nil, newError(ErrSessionStopped, ""))
					activeReq = nil
				}
				failQueued(ErrSessionStopped, "")
				cmd.reply <- s.ad.Stop(context.Background())
				close(s.closed)
				return
			}
		}
	}
}

func requestKindLabel(k RequestKind) telemetry.RequestKind {
	switch k {
	case RequestStream:
		return telemetry.KindStream
	case RequestAsync:
		return telemetry.KindAsync
	default:
		return telemetry.KindSync
	}
}

// recordStart and recordEnd fire the telemetry write off the run loop's
// own goroutine so a slow or contended audit-log write never delays
// query dispatch; the sink is a best-effort side channel, not part of
// the request's own completion.
func (s *Session) recordStart(r *request) {
	cliPathMode := ""
	if r.opts.CLIPathOpt != nil {
		cliPathMode = string(r.opts.CLIPathOpt.Mode)
	}
	rec := telemetry.RequestRecord{
		ID:          r.id,
		Kind:        requestKindLabel(r.kind),
		Status:      telemetry.StatusActive,
		PromptChars: len(r.prompt),
		CLIPathMode: cliPathMode,
		StartedAt:   r.createdAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.tel.RecordStart(ctx, rec)
	}()
}

func (s *Session) recordEnd(r *request, queryErr error) {
	numTurns, toolUseCount, totalCostUSD, isError := summarizeForTelemetry(r.accumulated)
	errorKind := ""
	if queryErr != nil {
		if ae, ok := queryErr.(*Error); ok {
			errorKind = string(ae.Kind)
		} else {
			errorKind = "unknown"
		}
	} else if isError {
		errorKind = "result_is_error"
	}
	id, status := r.id, telemetry.StatusCompleted
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.tel.RecordEnd(ctx, id, status, errorKind, numTurns, toolUseCount, totalCostUSD)
	}()
}

// summarizeForTelemetry mirrors CollectSummary's accumulation logic
// (stream.go) but only extracts the metadata fields telemetry is allowed
// to retain — never message text.
func summarizeForTelemetry(msgs []protocol.Message) (numTurns, toolUseCount int, totalCostUSD float64, isError bool) {
	for _, msg := range msgs {
		switch m := msg.(type) {
		case protocol.AssistantMessage:
			for _, b := range m.Content {
				if _, ok := b.(protocol.ToolUseBlock); ok {
					toolUseCount++
				}
			}
		case protocol.ResultMessage:
			numTurns = m.NumTurns
			totalCostUSD = m.TotalCostUSD
			isError = m.IsError
		}
	}
	return
}

func lastResultText(msgs []protocol.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if rm, ok := msgs[i].(protocol.ResultMessage); ok {
			return rm.Result
		}
	}
	var b strings.Builder
	for _, m := range msgs {
		if am, ok := m.(protocol.AssistantMessage); ok {
			b.WriteString(am.TextContent())
		}
	}
	return b.String()
}

// QuerySync submits a prompt and blocks for the final result text
// (spec.md §4.J "query_sync"), subject to the default 300s request
// timeout unless overridden in queryOpts.
func (s *Session) QuerySync(ctx context.Context, prompt string, queryOpts option.Options) (string, error) {
	r := &request{
		id:        s.nextRequestID(),
		kind:      RequestSync,
		prompt:    prompt,
		opts:      option.Merge(queryOpts, s.opts, option.Options{}, option.Defaults()),
		status:    RequestQueued,
		createdAt: time.Now(),
		syncReply: make(chan syncResult, 1),
	}
	if err := s.submit(ctx, r); err != nil {
		return "", err
	}

	timeout := option.DefaultTimeout
	if r.opts.Timeout != nil {
		timeout = *r.opts.Timeout
	}
	select {
	case res := <-r.syncReply:
		return res.text, res.err
	case <-time.After(timeout):
		return "", newError(ErrRequestTimeout, fmt.Sprintf("no result within %s", timeout))
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// QueryStream submits a prompt and returns a Stream that yields every
// message until the terminal Result, inclusive (spec.md §4.J
// "query_stream").
func (s *Session) QueryStream(ctx context.Context, prompt string, queryOpts option.Options) (*Stream, error) {
	events := make(chan StreamEvent, 16)
	r := &request{
		id:         s.nextRequestID(),
		kind:       RequestStream,
		prompt:     prompt,
		opts:       option.Merge(queryOpts, s.opts, option.Options{}, option.Defaults()),
		status:     RequestQueued,
		createdAt:  time.Now(),
		subscriber: events,
		abandoned:  make(chan struct{}),
	}
	if err := s.submit(ctx, r); err != nil {
		return nil, err
	}
	var once sync.Once
	return &Stream{requestID: r.id, events: events, closeFn: func() { once.Do(func() { close(r.abandoned) }) }}, nil
}

// QueryAsync submits a prompt, returns its request id immediately, and
// invokes handler for every subsequent event from a dedicated goroutine —
// never from the session's own run loop, so a slow handler cannot stall
// other requests (spec.md §4.J "query_async").
func (s *Session) QueryAsync(ctx context.Context, prompt string, queryOpts option.Options, handler func(StreamEvent)) (string, error) {
	events := make(chan StreamEvent, 16)
	r := &request{
		id:         s.nextRequestID(),
		kind:       RequestAsync,
		prompt:     prompt,
		opts:       option.Merge(queryOpts, s.opts, option.Options{}, option.Defaults()),
		status:     RequestQueued,
		createdAt:  time.Now(),
		subscriber: events,
		abandoned:  make(chan struct{}),
	}
	if err := s.submit(ctx, r); err != nil {
		return "", err
	}
	go func() {
		defer close(r.abandoned)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				handler(ev)
				if ev.End {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return r.id, nil
}

func (s *Session) submit(ctx context.Context, r *request) error {
	reply := make(chan error, 1)
	select {
	case s.cmds <- cmdSubmitQuery{req: r, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Interrupt asks the adapter to stop the active query (spec.md §4.J
// "interrupt").
func (s *Session) Interrupt(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case s.cmds <- cmdInterrupt{reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) control(ctx context.Context, subtype protocol.RequestSubtype, payload map[string]any) (map[string]any, error) {
	reply := make(chan controlResult, 1)
	select {
	case s.cmds <- cmdControl{subtype: subtype, payload: payload, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-reply:
		return res.payload, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SetModel issues a set_model control call (spec.md §4.J "control calls").
func (s *Session) SetModel(ctx context.Context, model string) error {
	_, err := s.control(ctx, protocol.ReqSetModel, map[string]any{"model": model})
	return err
}

// SetPermissionMode issues a set_permission_mode control call.
func (s *Session) SetPermissionMode(ctx context.Context, mode option.PermissionMode) error {
	_, err := s.control(ctx, protocol.ReqSetPermissionMode, map[string]any{"mode": string(mode)})
	return err
}

// GetMCPStatus issues an mcp_status control call.
func (s *Session) GetMCPStatus(ctx context.Context) (map[string]any, error) {
	return s.control(ctx, protocol.ReqMCPStatus, nil)
}

// RewindFiles issues a rewind_files control call.
func (s *Session) RewindFiles(ctx context.Context, toMessageID string) error {
	_, err := s.control(ctx, protocol.ReqRewindFiles, map[string]any{"to_message_id": toMessageID})
	return err
}

// GetServerInfo returns the cached initialize response, if the adapter
// supports caching it.
func (s *Session) GetServerInfo(ctx context.Context) (json.RawMessage, error) {
	reply := make(chan json.RawMessage, 1)
	select {
	case s.cmds <- cmdGetServerInfo{reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case info := <-reply:
		return info, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetSessionID returns the captured CLI session id, or "" if none has
// been observed yet.
func (s *Session) GetSessionID(ctx context.Context) (string, error) {
	reply := make(chan string, 1)
	select {
	case s.cmds <- cmdGetSessionID{reply: reply}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case id := <-reply:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Clear resets the captured session id so the next query starts a fresh
// CLI conversation instead of resuming.
func (s *Session) Clear(ctx context.Context) error {
	reply := make(chan struct{}, 1)
	select {
	case s.cmds <- cmdClear{reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop shuts down the session and its adapter, failing every queued
// request with session_stopped (spec.md §4.J "stop", §5 "Stopping the
// session").
func (s *Session) Stop(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case s.cmds <- cmdStop{reply: reply}:
	case <-s.closed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
