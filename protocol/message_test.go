package protocol

import "testing"

func TestParseSystemInit(t *testing.T) {
	line := []byte(`{"type":"system","subtype":"init","session_id":"sess_1","model":"claude-sonnet-4-6","tools":["Read","Bash"],"permission_mode":"default"}`)
	msg, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sys, ok := msg.(SystemMessage)
	if !ok {
		t.Fatalf("got %T, want SystemMessage", msg)
	}
	if sys.SessionID != "sess_1" || sys.Model != "claude-sonnet-4-6" {
		t.Fatalf("unexpected system message: %+v", sys)
	}
	if len(sys.Tools) != 2 || sys.Tools[0] != "Read" {
		t.Fatalf("tools=%v", sys.Tools)
	}
}

func TestParseSystemNonInitKeepsRaw(t *testing.T) {
	line := []byte(`{"type":"system","subtype":"compact_boundary","foo":"bar"}`)
	msg, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sys := msg.(SystemMessage)
	if sys.Subtype != "compact_boundary" {
		t.Fatalf("subtype=%q", sys.Subtype)
	}
	if len(sys.Raw) == 0 {
		t.Fatal("expected Raw to be populated for a non-init subtype")
	}
}

func TestParseAssistantTextContent(t *testing.T) {
	line := []byte(`{"type":"assistant","session_id":"s1","message":{"id":"msg_1","model":"claude-sonnet-4-6","content":[{"type":"text","text":"hello "},{"type":"text","text":"world"}],"usage":{"input_tokens":5,"output_tokens":7}}}`)
	msg, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	am, ok := msg.(AssistantMessage)
	if !ok {
		t.Fatalf("got %T, want AssistantMessage", msg)
	}
	if am.TextContent() != "hello world" {
		t.Fatalf("TextContent=%q", am.TextContent())
	}
	if am.Usage.InputTokens != 5 || am.Usage.OutputTokens != 7 {
		t.Fatalf("usage=%+v", am.Usage)
	}
	if am.SessionID != "s1" {
		t.Fatalf("session_id=%q", am.SessionID)
	}
}

func TestParseAssistantToolUse(t *testing.T) {
	line := []byte(`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"tu_1","name":"Read","input":{"path":"a.go"}}]}}`)
	msg, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	am := msg.(AssistantMessage)
	if len(am.Content) != 1 {
		t.Fatalf("content=%v", am.Content)
	}
	tu, ok := am.Content[0].(ToolUseBlock)
	if !ok {
		t.Fatalf("got %T, want ToolUseBlock", am.Content[0])
	}
	if tu.ID != "tu_1" || tu.Name != "Read" {
		t.Fatalf("tool use=%+v", tu)
	}
}

func TestParseUserToolResult(t *testing.T) {
	line := []byte(`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"tu_1","content":"ok","is_error":false}]}}`)
	msg, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	um := msg.(UserMessage)
	tr, ok := um.Content[0].(ToolResultBlock)
	if !ok {
		t.Fatalf("got %T, want ToolResultBlock", um.Content[0])
	}
	if tr.ToolUseID != "tu_1" || tr.Content != "ok" {
		t.Fatalf("tool result=%+v", tr)
	}
}

func TestParseUnknownContentBlockIsDropped(t *testing.T) {
	line := []byte(`{"type":"assistant","message":{"content":[{"type":"text","text":"a"},{"type":"something_new","foo":"bar"}]}}`)
	msg, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	am := msg.(AssistantMessage)
	if len(am.Content) != 1 {
		t.Fatalf("expected the unknown block to be dropped, got %d blocks", len(am.Content))
	}
}

func TestParseResult(t *testing.T) {
	line := []byte(`{"type":"result","subtype":"success","is_error":false,"result":"done","num_turns":3,"total_cost_usd":0.042,"session_id":"s1"}`)
	msg, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rm := msg.(ResultMessage)
	if rm.Subtype != ResultSuccess || rm.Result != "done" || rm.NumTurns != 3 {
		t.Fatalf("unexpected result message: %+v", rm)
	}
}

func TestParsePartialAssistantTextDelta(t *testing.T) {
	line := []byte(`{"type":"stream_event","session_id":"s1","event":{"type":"content_block_delta","delta":{"type":"text_delta","text":"chunk"}}}`)
	msg, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	pa := msg.(PartialAssistantMessage)
	if pa.DeltaType != "text_delta" || pa.Text != "chunk" {
		t.Fatalf("unexpected partial message: %+v", pa)
	}
}

func TestParseUnrecognizedTypeIsParseError(t *testing.T) {
	_, err := Parse([]byte(`{"type":"something_future"}`))
	if err == nil {
		t.Fatal("expected an error for an unrecognized message type")
	}
	var perr *ParseError
	if !asParseError(err, &perr) {
		t.Fatalf("got %T, want *ParseError", err)
	}
}

func TestParseMalformedJSONIsParseError(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	if err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
	var perr *ParseError
	if !asParseError(err, &perr) {
		t.Fatalf("got %T, want *ParseError", err)
	}
}

func asParseError(err error, target **ParseError) bool {
	if pe, ok := err.(*ParseError); ok {
		*target = pe
		return true
	}
	return false
}
