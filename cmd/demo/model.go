package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	claudeagent "github.com/samsaffron/claude-agent-sdk-go"
	"github.com/samsaffron/claude-agent-sdk-go/protocol"
)

var (
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	agentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	statusStyle = lipgloss.NewStyle().Faint(true)
)

// streamErrMsg reports a failure starting the query itself (as opposed to
// an error arriving mid-stream, which comes through pumpMsg).
type streamErrMsg struct{ err error }

// model drives a single Session through the streaming surface (§4.K),
// rendering assistant text as it arrives the way the teacher's chat TUI
// renders provider deltas.
type model struct {
	session  *claudeagent.Session
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	transcript string
	pending    string // partial text accumulated for the in-flight turn
	streaming  bool
	width      int
	height     int

	ctx    context.Context
	cancel context.CancelFunc
}

func newModel(session *claudeagent.Session) model {
	ti := textinput.New()
	ti.Placeholder = "ask something..."
	ti.Focus()
	ti.CharLimit = 4000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	renderer, _ := glamour.NewTermRenderer(glamour.WithAutoStyle())

	return model{
		session:  session,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		renderer: renderer,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

// submit starts a QueryStream and returns a tea.Cmd that forwards each
// event into the Update loop. One goroutine per in-flight query, matching
// the single-subscriber-per-request model the session engine expects.
func (m *model) submit(prompt string) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.ctx, m.cancel = ctx, cancel

	return func() tea.Msg {
		stream, err := m.session.QueryStream(ctx, prompt, queryOverrides())
		if err != nil {
			return streamErrMsg{err: err}
		}
		ev, ok := <-stream.Events()
		if !ok {
			return pumpMsg{stream: stream, ev: claudeagent.StreamEvent{End: true}}
		}
		return pumpMsg{stream: stream, ev: ev}
	}
}

// pumpMsg carries one event plus the still-open stream, so Update can keep
// reading without blocking the UI goroutine.
type pumpMsg struct {
	stream *claudeagent.Stream
	ev     claudeagent.StreamEvent
}

func pump(stream *claudeagent.Stream) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-stream.Events()
		if !ok {
			return pumpMsg{stream: stream, ev: claudeagent.StreamEvent{End: true}}
		}
		return pumpMsg{stream: stream, ev: ev}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 3
		m.input.Width = msg.Width - 2
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.streaming {
				if m.cancel != nil {
					m.cancel()
				}
				session := m.session
				return m, func() tea.Msg {
					_ = session.Interrupt(context.Background())
					return nil
				}
			}
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
		case "enter":
			if m.streaming {
				return m, nil
			}
			prompt := strings.TrimSpace(m.input.Value())
			if prompt == "" {
				return m, nil
			}
			m.appendLine(userStyle.Render("you") + "  " + prompt)
			m.input.SetValue("")
			m.streaming = true
			m.pending = ""
			return m, tea.Batch(m.submit(prompt), m.spinner.Tick)
		}

	case pumpMsg:
		ev := msg.ev
		if ev.End {
			m.streaming = false
			if m.pending != "" {
				m.appendLine(agentStyle.Render("claude") + "  " + m.render(m.pending))
				m.pending = ""
			}
			return m, nil
		}
		if ev.Err != nil {
			m.streaming = false
			m.appendLine(errStyle.Render(ev.Err.Error()))
			return m, nil
		}
		switch body := ev.Message.(type) {
		case protocol.AssistantMessage:
			if t := body.TextContent(); t != "" {
				m.pending += t
			}
		case protocol.PartialAssistantMessage:
			if body.DeltaType == "text_delta" {
				m.pending += body.Text
			}
		case protocol.ResultMessage:
			if body.IsError {
				m.appendLine(errStyle.Render("error: " + body.Result))
			}
		}
		return m, pump(msg.stream)

	case streamErrMsg:
		m.streaming = false
		m.appendLine(errStyle.Render(msg.err.Error()))
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if m.streaming {
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *model) appendLine(s string) {
	if m.transcript != "" {
		m.transcript += "\n\n"
	}
	m.transcript += s
	m.viewport.SetContent(m.transcript)
	m.viewport.GotoBottom()
}

func (m model) render(text string) string {
	if m.renderer == nil {
		return wordwrap.String(text, max(m.width-2, 40))
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func (m model) View() string {
	status := statusStyle.Render("enter to send · esc to interrupt · ctrl+c to quit")
	if m.streaming {
		live := m.transcript
		if live != "" {
			live += "\n\n"
		}
		live += agentStyle.Render("claude") + "  " + m.spinner.View() + " " + wordwrap.String(m.pending, max(m.width-2, 40))
		vp := m.viewport
		vp.SetContent(live)
		vp.GotoBottom()
		return fmt.Sprintf("%s\n%s\n%s", vp.View(), m.input.View(), status)
	}
	return fmt.Sprintf("%s\n%s\n%s", m.viewport.View(), m.input.View(), status)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
