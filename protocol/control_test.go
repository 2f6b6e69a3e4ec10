package protocol

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		raw  string
		want Kind
	}{
		{`{"type":"control_request","request_id":"r1"}`, KindControlRequest},
		{`{"type":"control_response","response":{}}`, KindControlResponse},
		{`{"type":"assistant"}`, KindRegularMessage},
		{`{"type":"result"}`, KindRegularMessage},
	}
	for _, c := range cases {
		got, err := Classify(json.RawMessage(c.raw))
		if err != nil {
			t.Fatalf("Classify(%s): %v", c.raw, err)
		}
		if got != c.want {
			t.Fatalf("Classify(%s)=%v, want %v", c.raw, got, c.want)
		}
	}
}

func TestIDGeneratorProducesUniqueIncreasingIDs(t *testing.T) {
	var gen IDGenerator
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := gen.Next()
		if seen[id] {
			t.Fatalf("duplicate id %q on iteration %d", id, i)
		}
		seen[id] = true
		var n int
		if _, err := fmt.Sscanf(id, "req_%d_", &n); err != nil || n != i+1 {
			t.Fatalf("id %q on iteration %d: counter=%d, want %d", id, i, n, i+1)
		}
	}
}

func TestOutboundRequestBuildRoundTrips(t *testing.T) {
	req := NewSetModelRequest("req_1", "claude-sonnet-4-6")
	line, err := req.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	kind, err := Classify(line)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if kind != KindControlRequest {
		t.Fatalf("kind=%v, want KindControlRequest", kind)
	}

	inbound, err := ParseInboundRequest(line)
	if err != nil {
		t.Fatalf("ParseInboundRequest: %v", err)
	}
	if inbound.RequestID != "req_1" || inbound.Subtype != string(ReqSetModel) {
		t.Fatalf("unexpected inbound request: %+v", inbound)
	}
	var body struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(inbound.Raw, &body); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if body.Model != "claude-sonnet-4-6" {
		t.Fatalf("model=%q", body.Model)
	}
}

func TestNewInitializeRequestOmitsNilFields(t *testing.T) {
	req := NewInitializeRequest("req_2", nil, nil)
	line, err := req.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var wire map[string]any
	if err := json.Unmarshal(line, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	request := wire["request"].(map[string]any)
	if _, ok := request["hooks"]; ok {
		t.Fatal("expected hooks to be omitted when nil")
	}
	if _, ok := request["agents"]; ok {
		t.Fatal("expected agents to be omitted when nil")
	}
}

func TestResponseEnvelopeSuccessRoundTrips(t *testing.T) {
	resp := ResponseEnvelope{RequestID: "req_1", Success: true, Payload: map[string]any{"mode": "default"}}
	line, err := resp.BuildResponse()
	if err != nil {
		t.Fatalf("BuildResponse: %v", err)
	}
	kind, err := Classify(line)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if kind != KindControlResponse {
		t.Fatalf("kind=%v, want KindControlResponse", kind)
	}
	parsed, err := ParseResponse(line)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if !parsed.Success || parsed.RequestID != "req_1" {
		t.Fatalf("unexpected parsed response: %+v", parsed)
	}
	if parsed.Payload["mode"] != "default" {
		t.Fatalf("payload=%v", parsed.Payload)
	}
}

func TestResponseEnvelopeErrorRoundTrips(t *testing.T) {
	resp := ResponseEnvelope{RequestID: "req_3", Success: false, ErrorMsg: "boom"}
	line, err := resp.BuildResponse()
	if err != nil {
		t.Fatalf("BuildResponse: %v", err)
	}
	parsed, err := ParseResponse(line)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if parsed.Success {
		t.Fatal("expected Success=false")
	}
	if parsed.ErrorMsg != "boom" {
		t.Fatalf("error_msg=%q", parsed.ErrorMsg)
	}
}

func TestParseResponseUnrecognizedSubtypeErrors(t *testing.T) {
	line := []byte(`{"type":"control_response","response":{"subtype":"mystery","request_id":"r1"}}`)
	if _, err := ParseResponse(line); err == nil {
		t.Fatal("expected an error for an unrecognized response subtype")
	}
}
