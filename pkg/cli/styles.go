package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
)

var (
	styleTitle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	styleSubtitle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	styleError     = lipgloss.NewStyle().Foreground(lipgloss.Color("160")).Bold(true)
	stylePrompt    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	styleSummary   = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	styleHighlight = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	styleBarFull   = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	styleBarEmpty  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	styleModal     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("205")).Padding(1, 2)
	styleTag       = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("63")).Padding(0, 1)
)

const barWidth = 30

type optionItem struct {
	title string
	desc  string
	value string
}

func (i optionItem) Title() string       { return i.title }
func (i optionItem) Description() string { return i.desc }
func (i optionItem) FilterValue() string { return i.title }

func newList(title string, items []list.Item) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.Foreground(lipgloss.Color("252"))
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(lipgloss.Color("205")).Bold(true)
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.Foreground(lipgloss.Color("244")).Italic(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(lipgloss.Color("212")).Italic(true)
	l := list.New(items, delegate, 0, 0)
	if title == "" {
		l.SetShowTitle(false)
	} else {
		l.Title = styleTitle.Render(title)
	}
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowPagination(false)
	// Screens own quitting; the list must not swallow esc or q.
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)
	return l
}

// fitList sizes a list to the terminal minus the lines drawn around it.
func fitList(l *list.Model, width, height, offset int) {
	if width <= 0 || height <= 0 {
		return
	}
	h := height - offset
	if h < 4 {
		h = 4
	}
	l.SetSize(width, h)
}

func newInput(placeholder string, width int) textinput.Model {
	in := textinput.New()
	in.Prompt = stylePrompt.Render("> ")
	in.Placeholder = placeholder
	if width > 0 {
		in.Width = width - 4
	}
	return in
}

// progressBar draws percent as a fixed-width bar.
func progressBar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	full := percent * barWidth / 100
	return styleBarFull.Render(strings.Repeat("█", full)) +
		styleBarEmpty.Render(strings.Repeat("░", barWidth-full)) +
		styleSubtitle.Render(fmt.Sprintf(" %3d%%", percent))
}

func footer(hints ...string) string {
	return stylePrompt.Render(strings.Join(hints, ", ") + ".")
}
