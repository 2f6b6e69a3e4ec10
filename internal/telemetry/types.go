// Package telemetry is a metadata-only audit log for request lifecycles
// (spec.md §4.J "Session"): when a query started, how it ended, and what
// it cost — never the prompt text or any message content. It exists so a
// host application can answer "how many requests errored last week" or
// "what's our average turn count" without the SDK itself becoming a
// place where conversation data is retained at rest.
package telemetry

import "time"

// RequestStatus mirrors the public RequestStatus enum in the root
// package, duplicated here so this package has no import on the session
// engine (it is consumed BY the engine, not the other way around).
type RequestStatus string

const (
	StatusQueued    RequestStatus = "queued"
	StatusActive    RequestStatus = "active"
	StatusCompleted RequestStatus = "completed"
)

// RequestKind mirrors the public RequestKind enum (sync/stream/async).
type RequestKind string

const (
	KindSync   RequestKind = "sync"
	KindStream RequestKind = "stream"
	KindAsync  RequestKind = "async"
)

// RequestRecord is one row of the audit log. PromptChars records the
// length of the prompt, never its content, so operators can spot
// anomalies (a sudden spike in prompt size) without the log becoming a
// second copy of conversation data.
type RequestRecord struct {
	ID           string        `json:"id"`
	Kind         RequestKind   `json:"kind"`
	Status       RequestStatus `json:"status"`
	PromptChars  int           `json:"prompt_chars"`
	CLIPathMode  string        `json:"cli_path_mode,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	EndedAt      time.Time     `json:"ended_at,omitempty"`
	DurationMs   int64         `json:"duration_ms,omitempty"`
	NumTurns     int           `json:"num_turns,omitempty"`
	ToolUseCount int           `json:"tool_use_count,omitempty"`
	TotalCostUSD float64       `json:"total_cost_usd,omitempty"`
	ErrorKind    string        `json:"error_kind,omitempty"`
}

// Summary aggregates a window of RequestRecords for a dashboard-style
// rollup: total requests, error rate, cost.
type Summary struct {
	Count          int     `json:"count"`
	Errored        int     `json:"errored"`
	TotalCostUSD   float64 `json:"total_cost_usd"`
	TotalToolUses  int     `json:"total_tool_uses"`
	AverageTurns   float64 `json:"average_turns"`
}

// ListOptions filters a Log.List query.
type ListOptions struct {
	Status RequestStatus
	Kind   RequestKind
	Since  time.Time
	Limit  int
}
