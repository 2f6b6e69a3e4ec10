// Package protocol implements the message parser (spec.md §4.C) and the
// control protocol codec (spec.md §4.D): decoding one NDJSON line into a
// tagged Message variant, and classifying/building control envelopes.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Message is the tagged union of CLI stdout output (spec.md §3 "Message").
type Message interface {
	MessageType() string
}

// ResultSubtype distinguishes the five terminal outcomes the CLI reports
// (spec.md §4.C).
type ResultSubtype string

const (
	ResultSuccess                      ResultSubtype = "success"
	ResultErrorMaxTurns                ResultSubtype = "error_max_turns"
	ResultErrorDuringExecution         ResultSubtype = "error_during_execution"
	ResultErrorMaxBudgetUSD            ResultSubtype = "error_max_budget_usd"
	ResultErrorMaxStructuredRetries    ResultSubtype = "error_max_structured_output_retries"
)

// SystemMessage is the init record, or a catch-all for any other subtype.
type SystemMessage struct {
	Subtype        string
	SessionID      string
	Model          string
	Tools          []string
	MCPServers     []string
	PermissionMode string
	CLIVersion     string
	SlashCommands  []string
	Agents         []string
	Skills         []string
	Plugins        []string

	// Raw holds the full decoded object for any subtype other than "init",
	// which this SDK does not otherwise interpret (spec.md §4.C).
	Raw json.RawMessage
}

func (SystemMessage) MessageType() string { return "system" }

// AssistantMessage is model output.
type AssistantMessage struct {
	ID              string
	Model           string
	StopReason      string
	StopSequence    string
	Content         []ContentBlock
	Usage           Usage
	ParentToolUseID string
	SessionID       string
}

func (AssistantMessage) MessageType() string { return "assistant" }

// TextContent concatenates every Text content block, in order.
func (m AssistantMessage) TextContent() string {
	var out string
	for _, b := range m.Content {
		if t, ok := b.(TextBlock); ok {
			out += t.Text
		}
	}
	return out
}

// UserMessage is a synthetic turn carrying tool-result content blocks.
type UserMessage struct {
	Content         []ContentBlock
	ParentToolUseID string
	SessionID       string
}

func (UserMessage) MessageType() string { return "user" }

// Usage captures token/cache accounting.
type Usage struct {
	InputTokens              int
	OutputTokens             int
	CacheCreationInputTokens int
	CacheReadInputTokens     int
}

// ResultMessage is the terminal marker for a query.
type ResultMessage struct {
	Subtype       ResultSubtype
	IsError       bool
	Result        string
	DurationMs    int64
	DurationAPIMs int64
	NumTurns      int
	TotalCostUSD  float64
	Usage         Usage
	SessionID     string
}

func (ResultMessage) MessageType() string { return "result" }

// PartialAssistantMessage is a streaming token/delta event, emitted only
// when include_partial_messages is enabled.
type PartialAssistantMessage struct {
	DeltaType string // e.g. "text_delta"
	Text      string
	SessionID string
}

func (PartialAssistantMessage) MessageType() string { return "stream_event" }

// wireEnvelope is the superset of fields any top-level NDJSON object may
// carry, used only to dispatch on Type before unmarshalling the specific
// shape.
type wireEnvelope struct {
	Type      string          `json:"type"`
	Subtype   string          `json:"subtype"`
	SessionID string          `json:"session_id"`
	Message   json.RawMessage `json:"message"`
}

// ParseError wraps a decode or shape mismatch; per spec.md §4.C/§7 this is
// never fatal to the adapter's read loop — callers log at debug and drop
// the line.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse message: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// Parse decodes one NDJSON line into a Message. A malformed line or an
// unrecognized top-level type yields a non-nil *ParseError.
func Parse(line []byte) (Message, error) {
	var env wireEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, &ParseError{Line: string(line), Err: err}
	}

	switch env.Type {
	case "system":
		return parseSystem(line, env)
	case "assistant":
		return parseAssistant(env)
	case "user":
		return parseUser(env)
	case "result":
		return parseResult(line)
	case "stream_event":
		return parsePartialAssistant(line, env)
	default:
		return nil, &ParseError{Line: string(line), Err: fmt.Errorf("unrecognized message type %q", env.Type)}
	}
}

func parseSystem(line []byte, env wireEnvelope) (Message, error) {
	if env.Subtype != "init" {
		return SystemMessage{Subtype: env.Subtype, Raw: append(json.RawMessage(nil), line...)}, nil
	}
	var init struct {
		SessionID      string   `json:"session_id"`
		Model          string   `json:"model"`
		Tools          []string `json:"tools"`
		MCPServers     []string `json:"mcp_servers"`
		PermissionMode string   `json:"permission_mode"`
		CLIVersion     string   `json:"cli_version"`
		SlashCommands  []string `json:"slash_commands"`
		Agents         []string `json:"agents"`
		Skills         []string `json:"skills"`
		Plugins        []string `json:"plugins"`
	}
	if err := json.Unmarshal(line, &init); err != nil {
		return nil, &ParseError{Line: string(line), Err: err}
	}
	return SystemMessage{
		Subtype:        "init",
		SessionID:      init.SessionID,
		Model:          init.Model,
		Tools:          init.Tools,
		MCPServers:     init.MCPServers,
		PermissionMode: init.PermissionMode,
		CLIVersion:     init.CLIVersion,
		SlashCommands:  init.SlashCommands,
		Agents:         init.Agents,
		Skills:         init.Skills,
		Plugins:        init.Plugins,
	}, nil
}

func parseAssistant(env wireEnvelope) (Message, error) {
	var inner struct {
		ID           string          `json:"id"`
		Model        string          `json:"model"`
		StopReason   string          `json:"stop_reason"`
		StopSequence string          `json:"stop_sequence"`
		Content      json.RawMessage `json:"content"`
		Usage        wireUsage       `json:"usage"`
	}
	if err := json.Unmarshal(env.Message, &inner); err != nil {
		return nil, &ParseError{Err: err}
	}
	blocks, err := decodeContentBlocks(inner.Content)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	var parent struct {
		ParentToolUseID string `json:"parent_tool_use_id"`
	}
	_ = json.Unmarshal(env.Message, &parent) // best-effort; absent is fine

	return AssistantMessage{
		ID:              inner.ID,
		Model:           inner.Model,
		StopReason:      inner.StopReason,
		StopSequence:    inner.StopSequence,
		Content:         blocks,
		Usage:           inner.Usage.toUsage(),
		ParentToolUseID: parent.ParentToolUseID,
		SessionID:       env.SessionID,
	}, nil
}

func parseUser(env wireEnvelope) (Message, error) {
	var inner struct {
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(env.Message, &inner); err != nil {
		return nil, &ParseError{Err: err}
	}
	blocks, err := decodeContentBlocks(inner.Content)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	var parent struct {
		ParentToolUseID string `json:"parent_tool_use_id"`
	}
	_ = json.Unmarshal(env.Message, &parent)

	return UserMessage{
		Content:         blocks,
		ParentToolUseID: parent.ParentToolUseID,
		SessionID:       env.SessionID,
	}, nil
}

type wireUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

func (w wireUsage) toUsage() Usage {
	return Usage{
		InputTokens:              w.InputTokens,
		OutputTokens:             w.OutputTokens,
		CacheCreationInputTokens: w.CacheCreationInputTokens,
		CacheReadInputTokens:     w.CacheReadInputTokens,
	}
}

func parseResult(line []byte) (Message, error) {
	var flat struct {
		Subtype       string    `json:"subtype"`
		IsError       bool      `json:"is_error"`
		Result        string    `json:"result"`
		DurationMs    int64     `json:"duration_ms"`
		DurationAPIMs int64     `json:"duration_api_ms"`
		NumTurns      int       `json:"num_turns"`
		TotalCostUSD  float64   `json:"total_cost_usd"`
		Usage         wireUsage `json:"usage"`
		SessionID     string    `json:"session_id"`
	}
	if err := json.Unmarshal(line, &flat); err != nil {
		return nil, &ParseError{Line: string(line), Err: err}
	}
	return ResultMessage{
		Subtype:       ResultSubtype(flat.Subtype),
		IsError:       flat.IsError,
		Result:        flat.Result,
		DurationMs:    flat.DurationMs,
		DurationAPIMs: flat.DurationAPIMs,
		NumTurns:      flat.NumTurns,
		TotalCostUSD:  flat.TotalCostUSD,
		Usage:         flat.Usage.toUsage(),
		SessionID:     flat.SessionID,
	}, nil
}

func parsePartialAssistant(line []byte, env wireEnvelope) (Message, error) {
	var evt struct {
		Event struct {
			Type  string `json:"type"`
			Delta struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"delta"`
		} `json:"event"`
	}
	if err := json.Unmarshal(line, &evt); err != nil {
		return nil, &ParseError{Line: string(line), Err: err}
	}
	return PartialAssistantMessage{
		DeltaType: evt.Event.Delta.Type,
		Text:      evt.Event.Delta.Text,
		SessionID: env.SessionID,
	}, nil
}
