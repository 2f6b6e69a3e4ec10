package hooks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samsaffron/claude-agent-sdk-go/option"
	"github.com/samsaffron/claude-agent-sdk-go/protocol"
)

// inboundPayload is the common shape of a can_use_tool or hook_callback
// control request body.
type inboundPayload struct {
	ToolName   string          `json:"tool_name"`
	Input      map[string]any  `json:"input"`
	ToolUseID  *string         `json:"tool_use_id"`
	CallbackID string          `json:"hook_callback_id"`
	EventName  string          `json:"hook_event_name"`
}

// Dispatch handles one inbound control_request whose subtype is
// "can_use_tool" or "hook_callback", invokes the matching caller callback
// with exception containment, and returns the response envelope to write
// back to the CLI (spec.md §4.E "Dispatch is inbound").
//
// Any other subtype is not this package's concern and yields an error so
// the adapter can route it elsewhere (e.g. mcp_message to the mcprouter).
func (r *Registry) Dispatch(ctx context.Context, req protocol.InboundControlRequest) protocol.ResponseEnvelope {
	switch req.Subtype {
	case "can_use_tool":
		return r.dispatchPermission(ctx, req)
	case "hook_callback":
		return r.dispatchHookCallback(ctx, req)
	default:
		return protocol.ResponseEnvelope{
			RequestID: req.RequestID,
			Success:   false,
			ErrorMsg:  fmt.Sprintf("hooks: unsupported control_request subtype %q", req.Subtype),
		}
	}
}

func (r *Registry) dispatchPermission(ctx context.Context, req protocol.InboundControlRequest) protocol.ResponseEnvelope {
	var body inboundPayload
	if err := json.Unmarshal(req.Raw, &body); err != nil {
		return errorResponse(req.RequestID, err)
	}
	if r.permissionCB == nil {
		return protocol.ResponseEnvelope{RequestID: req.RequestID, Success: false, ErrorMsg: "no can_use_tool callback registered"}
	}
	result := invokeSafely(ctx, r.permissionCB, body.Input, body.ToolUseID)
	return protocol.ResponseEnvelope{RequestID: req.RequestID, Success: true, Payload: TranslateResult(result)}
}

func (r *Registry) dispatchHookCallback(ctx context.Context, req protocol.InboundControlRequest) protocol.ResponseEnvelope {
	var body inboundPayload
	if err := json.Unmarshal(req.Raw, &body); err != nil {
		return errorResponse(req.RequestID, err)
	}
	cb, ok := r.Lookup(body.CallbackID)
	if !ok {
		return protocol.ResponseEnvelope{RequestID: req.RequestID, Success: false, ErrorMsg: fmt.Sprintf("unknown hook callback id %q", body.CallbackID)}
	}
	result := invokeSafely(ctx, cb, body.Input, body.ToolUseID)
	return protocol.ResponseEnvelope{RequestID: req.RequestID, Success: true, Payload: TranslateResult(result)}
}

// invokeSafely wraps a callback invocation so a panic or returned error
// never propagates to crash the adapter's read loop; both become a deny
// response per spec.md §4.E's last row.
func invokeSafely(ctx context.Context, cb option.HookCallback, input map[string]any, toolUseID *string) (result option.HookResult) {
	defer func() {
		if p := recover(); p != nil {
			result = option.HookResult{Kind: option.ResultDeny, Message: fmt.Sprintf("Hook error: %v", p)}
		}
	}()
	res, err := cb(ctx, input, toolUseID)
	if err != nil {
		return option.HookResult{Kind: option.ResultDeny, Message: fmt.Sprintf("Hook error: %v", err)}
	}
	return res
}

func errorResponse(requestID string, err error) protocol.ResponseEnvelope {
	return protocol.ResponseEnvelope{RequestID: requestID, Success: false, ErrorMsg: err.Error()}
}
