// Package player is the terminal host of a walkthrough. It draws the
// presenter and chrome state and turns key presses into clicks.
package player

import (
	"fmt"
	"strings"

	"github.com/AaronLay10/AdventureEngine/internal/chrome"
	"github.com/AaronLay10/AdventureEngine/internal/walkthrough"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Controller receives the learner's input.
type Controller interface {
	ClickNext()
	ClickBack()
	ClickStartOver()
	Select(value string)
}

// SnapshotMsg carries a fresh walkthrough snapshot into the program.
type SnapshotMsg walkthrough.Snapshot

// Model is the bubbletea model of the player.
type Model struct {
	ctl    Controller
	snap   walkthrough.Snapshot
	status string
	width  int
}

// New returns a model that forwards input to ctl.
func New(ctl Controller) Model {
	return Model{ctl: ctl}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SnapshotMsg:
		m.snap = walkthrough.Snapshot(msg)
		m.status = ""
		if msg.Failure != nil {
			m.status = msg.Failure.Error()
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "n", "enter", "right":
		if !m.snap.Controls.Next.Clickable() {
			m.status = "Next is not available"
			return m, nil
		}
		m.status = ""
		m.ctl.ClickNext()
	case "b", "left":
		if !m.snap.Controls.Back.Clickable() {
			return m, nil
		}
		m.status = ""
		m.ctl.ClickBack()
	case "s":
		if !m.snap.Controls.StartOver.Clickable() {
			return m, nil
		}
		m.status = ""
		m.ctl.ClickStartOver()
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			i := int(key[0] - '1')
			if i < len(m.snap.Step.Options) {
				m.status = ""
				m.ctl.Select(m.snap.Step.Options[i].Value)
			}
		}
	}
	return m, nil
}

func (m Model) View() string {
	if !m.snap.Step.Shown {
		if m.status != "" {
			return errorStyle.Render(m.status) + "\n" + helpStyle.Render("q quit") + "\n"
		}
		return helpStyle.Render("Loading...") + "\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.snap.Step.StepName))
	b.WriteString("\n")

	body := bodyStyle
	if m.width > 4 {
		body = body.Width(m.width - 4)
	}
	b.WriteString(body.Render(strings.TrimSpace(m.snap.Step.Markdown)))
	b.WriteString("\n")

	for i, o := range m.snap.Step.Options {
		mark := "[ ]"
		style := optionStyle
		if o.Selected {
			mark = "[x]"
			style = selectedStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("  %d %s %s", i+1, mark, o.Label)))
		b.WriteString("\n")
	}
	if len(m.snap.Step.Options) > 0 {
		b.WriteString("\n")
	}

	b.WriteString(renderControls(m.snap.Controls))
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(errorStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("n next · b back · s start over · 1-9 choose · q quit"))
	b.WriteString("\n")
	return b.String()
}

func renderControls(c chrome.Controls) string {
	var buttons []string
	add := func(label string, btn chrome.Button) {
		if !btn.Visible {
			return
		}
		if btn.Enabled {
			buttons = append(buttons, buttonStyle.Render(label))
		} else {
			buttons = append(buttons, disabledStyle.Render(label))
		}
	}
	add("Back", c.Back)
	add("Next", c.Next)
	add("Start Over", c.StartOver)
	return lipgloss.JoinHorizontal(lipgloss.Top, buttons...)
}
