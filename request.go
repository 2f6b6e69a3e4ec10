package claudeagent

import (
	"time"

	"github.com/samsaffron/claude-agent-sdk-go/option"
	"github.com/samsaffron/claude-agent-sdk-go/protocol"
)

// RequestKind distinguishes the three ways a caller can submit a query
// (spec.md §4.J).
type RequestKind int

const (
	RequestSync RequestKind = iota
	RequestStream
	RequestAsync
)

// RequestStatus tracks a request's position in its lifecycle
// (spec.md §3 "Request").
type RequestStatus int

const (
	RequestQueued RequestStatus = iota
	RequestActive
	RequestCompleted
)

// request is the per-query record owned by the session (spec.md §3
// "Request"). It is only ever touched from the session's run loop.
type request struct {
	id        string
	kind      RequestKind
	prompt    string
	opts      option.Options
	status    RequestStatus
	createdAt time.Time

	// subscriber receives every parsed message for this request, in
	// order, terminated by a StreamEvent with End set once Done fires.
	// Delivery blocks on the subscriber unless abandoned is closed, so a
	// live-but-slow consumer applies backpressure instead of silently
	// losing messages (spec.md §5 "Ordering guarantees").
	subscriber chan StreamEvent

	// abandoned is closed by Stream.Close to signal the run loop that
	// this request's consumer is gone; pending sends to subscriber are
	// then dropped rather than blocking the session forever
	// (spec.md §3 "Stream subscribers are weak references").
	abandoned chan struct{}

	// syncReply is set only for RequestSync; resolved exactly once.
	syncReply chan syncResult

	accumulated []protocol.Message
}

type syncResult struct {
	text string
	err  error
}
