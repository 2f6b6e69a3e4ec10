package claudeagent

import (
	"context"

	"github.com/samsaffron/claude-agent-sdk-go/protocol"
)

// StreamEvent is what a subscriber receives: either one parsed message, a
// terminal error, or the end-of-stream sentinel (spec.md §4.K).
type StreamEvent struct {
	Message protocol.Message
	Err     error
	End     bool // true exactly once, as the final event, never alongside Message
}

// Stream is the lazy, backpressure-aware handle returned by QueryStream
// (spec.md §2 "streaming surface", §4.K); QueryAsync hands events to a
// handler function instead. Reading stops
// delivering once Close is called; the session notices the subscriber is
// gone and discards further messages for this request rather than
// blocking (spec.md §3 "Stream subscribers are weak references").
type Stream struct {
	requestID string
	events    <-chan StreamEvent
	closeFn   func()
}

// Events returns the raw channel of StreamEvent, terminated by one event
// with End set to true.
func (s *Stream) Events() <-chan StreamEvent { return s.events }

// RequestID identifies which request this stream belongs to, for
// correlating with Interrupt or logging.
func (s *Stream) RequestID() string { return s.requestID }

// Close abandons the stream. Safe to call multiple times; safe to call
// after the stream has already ended.
func (s *Stream) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

// Messages drains the stream into a plain channel of protocol.Message,
// stopping (and closing the output channel) at the first error or the end
// sentinel. Intended for callers that don't care about the Err/End
// distinction and just want "keep going until done".
func (s *Stream) Messages(ctx context.Context) <-chan protocol.Message {
	out := make(chan protocol.Message)
	go func() {
		defer close(out)
		defer s.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-s.events:
				if !ok || ev.End {
					return
				}
				if ev.Err != nil {
					return
				}
				select {
				case out <- ev.Message:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// FilterType returns a channel carrying only messages whose MessageType()
// matches one of kinds.
func FilterType(ctx context.Context, in <-chan protocol.Message, kinds ...string) <-chan protocol.Message {
	want := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	out := make(chan protocol.Message)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				if want[msg.MessageType()] {
					select {
					case out <- msg:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out
}

// TextContent extracts the concatenated Text content of each Assistant
// message, skipping every other message type (spec.md §4.K "text_content").
func TextContent(ctx context.Context, in <-chan protocol.Message) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				am, ok := msg.(protocol.AssistantMessage)
				if !ok {
					continue
				}
				text := am.TextContent()
				if text == "" {
					continue
				}
				select {
				case out <- text:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// ThinkingContent extracts Thinking block text from Assistant messages.
func ThinkingContent(ctx context.Context, in <-chan protocol.Message) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				am, ok := msg.(protocol.AssistantMessage)
				if !ok {
					continue
				}
				for _, b := range am.Content {
					if t, ok := b.(protocol.ThinkingBlock); ok && t.Thinking != "" {
						select {
						case out <- t.Thinking:
						case <-ctx.Done():
							return
						}
					}
				}
			}
		}
	}()
	return out
}

// ToolUses extracts ToolUseBlock entries from Assistant messages.
func ToolUses(ctx context.Context, in <-chan protocol.Message) <-chan protocol.ToolUseBlock {
	out := make(chan protocol.ToolUseBlock)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				am, ok := msg.(protocol.AssistantMessage)
				if !ok {
					continue
				}
				for _, b := range am.Content {
					if tu, ok := b.(protocol.ToolUseBlock); ok {
						select {
						case out <- tu:
						case <-ctx.Done():
							return
						}
					}
				}
			}
		}
	}()
	return out
}

// PartialText emits each streamed text_delta fragment as it arrives;
// meaningful only when include_partial_messages was enabled for the query
// (spec.md §4.K "emit partial text deltas").
func PartialText(ctx context.Context, in <-chan protocol.Message) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				pa, ok := msg.(protocol.PartialAssistantMessage)
				if !ok || pa.DeltaType != "text_delta" || pa.Text == "" {
					continue
				}
				select {
				case out <- pa.Text:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// BufferSentences re-chunks a text fragment stream so each emitted string
// ends on a sentence boundary (one of '.', '!', '?' followed by
// whitespace-or-EOF), buffering incomplete trailing fragments across
// reads. Any remainder is flushed when the input closes.
func BufferSentences(ctx context.Context, in <-chan string) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		var buf string
		emit := func(s string) bool {
			select {
			case out <- s:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for {
			select {
			case <-ctx.Done():
				return
			case frag, ok := <-in:
				if !ok {
					if buf != "" {
						emit(buf)
					}
					return
				}
				buf += frag
				for {
					cut := sentenceBoundary(buf)
					if cut < 0 {
						break
					}
					if !emit(buf[:cut]) {
						return
					}
					buf = buf[cut:]
				}
			}
		}
	}()
	return out
}

// sentenceBoundary returns the index just past the whitespace character
// that follows the first sentence terminator, or -1 if none is found yet.
func sentenceBoundary(s string) int {
	for i := 0; i < len(s)-1; i++ {
		switch s[i] {
		case '.', '!', '?':
			if s[i+1] == ' ' || s[i+1] == '\n' || s[i+1] == '\t' {
				return i + 2
			}
		}
	}
	return -1
}

// UntilResult forwards messages unchanged but closes the output channel
// immediately after forwarding a Result message (spec.md §4.K
// "until_result").
func UntilResult(ctx context.Context, in <-chan protocol.Message) <-chan protocol.Message {
	out := make(chan protocol.Message)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
				if msg.MessageType() == "result" {
					return
				}
			}
		}
	}()
	return out
}

// Summary is the terminal record produced by collecting an entire stream
// (spec.md §4.K "collect into a summary record").
type Summary struct {
	Text         string
	ToolUseCount int
	NumTurns     int
	TotalCostUSD float64
	IsError      bool
	ResultText   string
}

// CollectSummary drains a message stream into a Summary, accumulating
// assistant text and tool-use counts and capturing the terminal Result's
// fields.
func CollectSummary(ctx context.Context, in <-chan protocol.Message) Summary {
	var s Summary
	for {
		select {
		case <-ctx.Done():
			return s
		case msg, ok := <-in:
			if !ok {
				return s
			}
			switch m := msg.(type) {
			case protocol.AssistantMessage:
				s.Text += m.TextContent()
				for _, b := range m.Content {
					if _, ok := b.(protocol.ToolUseBlock); ok {
						s.ToolUseCount++
					}
				}
			case protocol.ResultMessage:
				s.NumTurns = m.NumTurns
				s.TotalCostUSD = m.TotalCostUSD
				s.IsError = m.IsError
				s.ResultText = m.Result
				return s
			}
		}
	}
}
