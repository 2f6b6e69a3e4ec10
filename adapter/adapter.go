// Package adapter declares the pluggable transport contract (spec.md
// §4.G): every adapter implementation (local subprocess, remote WebSocket,
// test stub) gives the session engine the same start/send/interrupt/stop
// surface plus a notification channel, regardless of what sits behind it.
package adapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/samsaffron/claude-agent-sdk-go/option"
	"github.com/samsaffron/claude-agent-sdk-go/protocol"
)

// Status is the adapter lifecycle state (spec.md §3 "Adapter status", §5).
type Status int

const (
	StatusProvisioning Status = iota
	StatusInitializing
	StatusReady
	StatusDisconnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusProvisioning:
		return "provisioning"
	case StatusInitializing:
		return "initializing"
	case StatusReady:
		return "ready"
	case StatusDisconnected:
		return "disconnected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Health is the shallow liveness probe an adapter reports on demand.
type Health int

const (
	HealthHealthy Health = iota
	HealthDegraded
	HealthUnhealthy
)

// NotificationKind discriminates the Notification union pushed from
// adapter to session.
type NotificationKind int

const (
	NotifyStatus NotificationKind = iota
	NotifyRawMessage
	NotifyDone
	NotifyError
)

// Notification is the single channel shape an adapter uses to talk back to
// its owning session; which of the fields below are meaningful is
// selected by Kind.
type Notification struct {
	Kind NotificationKind

	Status Status // NotifyStatus
	Reason string // NotifyStatus: error/disconnect reason

	RequestID  string          // NotifyRawMessage / NotifyDone / NotifyError — correlates to the active request
	RawMessage protocol.Message // NotifyRawMessage: one parsed message

	Err error // NotifyError
}

// ControlHandle is returned by the optional SendControlRequest capability;
// it resolves once the matching control_response arrives or the adapter
// gives up on it.
type ControlHandle interface {
	Wait(ctx context.Context) (map[string]any, error)
}

// Adapter is the capability set every transport must expose (spec.md
// §4.G). Implementations push Notifications asynchronously; all methods
// here are otherwise non-blocking aside from necessary bookkeeping.
type Adapter interface {
	// Start provisions the transport (spawning a child process, dialing a
	// socket, etc). It may do synchronous parameter checks and return
	// promptly, continuing asynchronous setup in the background while
	// pushing Status notifications as it progresses.
	Start(ctx context.Context, opts option.Options, notify chan<- Notification) error

	// SendQuery enqueues one prompt for delivery on the pipe, tagged with
	// requestID so resulting messages can be correlated by the session.
	SendQuery(ctx context.Context, requestID string, prompt string, queryOpts option.Options) error

	// Interrupt asks the active query to stop. Best-effort: a transport
	// that cannot interrupt mid-flight may no-op.
	Interrupt(ctx context.Context) error

	// Health reports current liveness without blocking on the pipe.
	Health() (Health, string)

	// Stop releases all resources (child process, sockets, goroutines).
	// Idempotent.
	Stop(ctx context.Context) error
}

// ControlCapable is an optional capability interface: adapters that can
// carry out-of-band control requests (set_model, rewind_files, …) over
// the same pipe implement it. The session probes for this interface at
// resolve time and surfaces not_supported when absent (spec.md §7
// "Pluggable adapter behaviour with optional capabilities").
type ControlCapable interface {
	SendControlRequest(ctx context.Context, subtype protocol.RequestSubtype, payload map[string]any) (ControlHandle, error)
}

// ServerInfoCapable is an optional capability: adapters that cache the
// initialize handshake's reply can return it without a round trip.
type ServerInfoCapable interface {
	GetServerInfo() (json.RawMessage, bool)
}

// ErrNotSupported is returned by an adapter when a caller invokes a
// capability it does not implement, and by the session when probing an
// adapter that lacks ControlCapable/ServerInfoCapable.
type ErrNotSupported struct {
	Capability string
}

func (e *ErrNotSupported) Error() string { return "adapter: capability not supported: " + e.Capability }

// ErrControlTimeout is returned when a control request does not resolve
// within the 30-second window (spec.md §4.D, §5 "Control-timeout").
var ErrControlTimeout = controlTimeoutError{}

type controlTimeoutError struct{}

func (controlTimeoutError) Error() string { return "control_timeout" }

// ControlTimeout is the fixed window every outbound control request is
// allotted before ErrControlTimeout fires.
const ControlTimeout = 30 * time.Second
