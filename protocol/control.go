package protocol

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// Kind classifies one decoded top-level JSON object (spec.md §4.D.1).
type Kind int

const (
	KindRegularMessage Kind = iota
	KindControlRequest
	KindControlResponse
)

// Classify inspects a decoded object's "type" field without committing to
// any specific shape.
func Classify(raw json.RawMessage) (Kind, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return KindRegularMessage, err
	}
	switch probe.Type {
	case "control_request":
		return KindControlRequest, nil
	case "control_response":
		return KindControlResponse, nil
	default:
		return KindRegularMessage, nil
	}
}

// IDGenerator's counter is monotonic per instance; each adapter holds its
// own IDGenerator value, so two adapters in one process never collide on a
// shared global (spec.md §4.D.2 "per adapter").
type IDGenerator struct {
	counter atomic.Uint64
}

// Next produces "req_<counter>_<random-hex>".
func (g *IDGenerator) Next() string {
	n := g.counter.Add(1)
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	return fmt.Sprintf("req_%d_%s", n, hex.EncodeToString(buf[:]))
}

// RequestSubtype enumerates the outbound control_request subtypes this SDK
// builds (spec.md §4.D.3).
type RequestSubtype string

const (
	ReqInitialize         RequestSubtype = "initialize"
	ReqSetModel           RequestSubtype = "set_model"
	ReqSetPermissionMode  RequestSubtype = "set_permission_mode"
	ReqRewindFiles        RequestSubtype = "rewind_files"
	ReqMCPStatus          RequestSubtype = "mcp_status"
	ReqInterrupt          RequestSubtype = "interrupt"
)

// OutboundRequest is one control_request envelope awaiting a reply.
type OutboundRequest struct {
	RequestID string
	Subtype   RequestSubtype
	Payload   map[string]any
}

// wireControlRequest is the line shape: {"type":"control_request","request_id":id,"request":{"subtype":...,...payload}}.
type wireControlRequest struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id"`
	Request   map[string]any `json:"request"`
}

// Build renders an outbound control request as one NDJSON line.
func (r OutboundRequest) Build() ([]byte, error) {
	request := map[string]any{"subtype": string(r.Subtype)}
	for k, v := range r.Payload {
		request[k] = v
	}
	return json.Marshal(wireControlRequest{
		Type:      "control_request",
		RequestID: r.RequestID,
		Request:   request,
	})
}

// NewInitializeRequest builds the handshake request carrying hook
// wire-format and agent definitions (spec.md §4.E, §6 "Control envelopes").
func NewInitializeRequest(id string, hooks, agents map[string]any) OutboundRequest {
	payload := map[string]any{}
	if hooks != nil {
		payload["hooks"] = hooks
	}
	if agents != nil {
		payload["agents"] = agents
	}
	return OutboundRequest{RequestID: id, Subtype: ReqInitialize, Payload: payload}
}

func NewSetModelRequest(id, model string) OutboundRequest {
	return OutboundRequest{RequestID: id, Subtype: ReqSetModel, Payload: map[string]any{"model": model}}
}

func NewSetPermissionModeRequest(id, mode string) OutboundRequest {
	return OutboundRequest{RequestID: id, Subtype: ReqSetPermissionMode, Payload: map[string]any{"mode": mode}}
}

func NewRewindFilesRequest(id string, toMessageID string) OutboundRequest {
	return OutboundRequest{RequestID: id, Subtype: ReqRewindFiles, Payload: map[string]any{"to_message_id": toMessageID}}
}

func NewMCPStatusRequest(id string) OutboundRequest {
	return OutboundRequest{RequestID: id, Subtype: ReqMCPStatus, Payload: nil}
}

func NewInterruptRequest(id string) OutboundRequest {
	return OutboundRequest{RequestID: id, Subtype: ReqInterrupt, Payload: nil}
}

// InboundControlRequest is a control_request arriving from the CLI
// (permission prompts, hook callbacks, in-process MCP calls).
type InboundControlRequest struct {
	RequestID string
	Subtype   string
	Raw       json.RawMessage
}

// ParseInboundRequest decodes a line already classified as KindControlRequest.
func ParseInboundRequest(raw json.RawMessage) (InboundControlRequest, error) {
	var wire struct {
		Type      string          `json:"type"`
		RequestID string          `json:"request_id"`
		Request   json.RawMessage `json:"request"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return InboundControlRequest{}, err
	}
	var subtypeProbe struct {
		Subtype string `json:"subtype"`
	}
	if err := json.Unmarshal(wire.Request, &subtypeProbe); err != nil {
		return InboundControlRequest{}, err
	}
	return InboundControlRequest{
		RequestID: wire.RequestID,
		Subtype:   subtypeProbe.Subtype,
		Raw:       wire.Request,
	}, nil
}

// ResponseEnvelope answers an inbound control_request (spec.md §4.D.4).
type ResponseEnvelope struct {
	RequestID string
	Success   bool
	Payload   map[string]any // merged into the response object on success
	ErrorMsg  string
}

type wireControlResponse struct {
	Type     string         `json:"type"`
	Response map[string]any `json:"response"`
}

// BuildResponse renders a response envelope as one NDJSON line.
func (r ResponseEnvelope) BuildResponse() ([]byte, error) {
	response := map[string]any{"request_id": r.RequestID}
	if r.Success {
		response["subtype"] = "success"
		for k, v := range r.Payload {
			response[k] = v
		}
	} else {
		response["subtype"] = "error"
		response["error"] = r.ErrorMsg
	}
	return json.Marshal(wireControlResponse{Type: "control_response", Response: response})
}

// InboundResponse is a decoded control_response from the CLI, answering one
// of this adapter's own outbound requests.
type InboundResponse struct {
	RequestID string
	Success   bool
	Payload   map[string]any
	ErrorMsg  string
}

// ParseResponse decodes a line already classified as KindControlResponse
// into (request_id, success-payload | error-message) (spec.md §4.D.5).
func ParseResponse(raw json.RawMessage) (InboundResponse, error) {
	var wire struct {
		Type     string          `json:"type"`
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return InboundResponse{}, err
	}
	var body struct {
		Subtype   string         `json:"subtype"`
		RequestID string         `json:"request_id"`
		Error     string         `json:"error"`
	}
	if err := json.Unmarshal(wire.Response, &body); err != nil {
		return InboundResponse{}, err
	}
	var payload map[string]any
	if err := json.Unmarshal(wire.Response, &payload); err != nil {
		return InboundResponse{}, err
	}
	delete(payload, "subtype")
	delete(payload, "request_id")
	delete(payload, "error")

	resp := InboundResponse{RequestID: body.RequestID, Payload: payload}
	switch body.Subtype {
	case "success":
		resp.Success = true
	case "error":
		resp.Success = false
		resp.ErrorMsg = body.Error
	default:
		return InboundResponse{}, fmt.Errorf("control response: unrecognized subtype %q", body.Subtype)
	}
	return resp, nil
}
