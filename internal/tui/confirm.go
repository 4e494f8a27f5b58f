// Package tui implements the interactive confirmation surface for pending
// plugin updates.
//
// The review screen lists every pending update with its change log. The
// operator can drop individual plugins from the proposed set before
// approving; cancelling leaves all plugins untouched.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/keypack/internal/pack"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	cursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
)

// Confirmer runs a bubbletea review program for each report.
type Confirmer struct{}

// NewConfirmer creates an interactive confirmer.
func NewConfirmer() *Confirmer {
	return &Confirmer{}
}

// Confirm presents the report and returns the plugin names still approved
// for update. ok is false when the operator cancelled.
func (c *Confirmer) Confirm(report pack.Report) ([]string, bool, error) {
	if len(report.Pending()) == 0 {
		// Nothing to approve; show the report non-interactively.
		fmt.Print(report.Render())
		return nil, true, nil
	}

	final, err := tea.NewProgram(newModel(report)).Run()
	if err != nil {
		return nil, false, fmt.Errorf("confirmation ui: %w", err)
	}

	m, ok := final.(model)
	if !ok || m.cancelled {
		return nil, false, nil
	}
	return m.approved(), true, nil
}

// item is one pending update row.
type item struct {
	decision pack.UpdateDecision
	include  bool
}

// model is the bubbletea state for the review screen.
type model struct {
	report    pack.Report
	items     []item
	cursor    int
	cancelled bool
	done      bool
}

func newModel(report pack.Report) model {
	pending := report.Pending()
	items := make([]item, len(pending))
	for i, d := range pending {
		items[i] = item{decision: d, include: true}
	}
	return model{report: report, items: items}
}

// approved returns the names still included.
func (m model) approved() []string {
	var names []string
	for _, it := range m.items {
		if it.include {
			names = append(names, it.decision.Plugin.Spec.Name)
		}
	}
	return names
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "q", "esc", "ctrl+c":
		m.cancelled = true
		return m, tea.Quit
	case "enter", "y":
		m.done = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case " ", "x":
		if len(m.items) > 0 {
			m.items[m.cursor].include = !m.items[m.cursor].include
		}
	}
	return m, nil
}

func (m model) View() string {
	if m.done || m.cancelled {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Pending plugin updates"))
	b.WriteString("\n\n")

	for _, d := range m.report.Errors() {
		b.WriteString(errorStyle.Render(fmt.Sprintf("x %s: %v", d.Plugin.Spec.Name, d.Err)))
		b.WriteString("\n")
	}

	for i, it := range m.items {
		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
		}
		mark := "[x]"
		if !it.include {
			mark = "[ ]"
		}
		d := it.decision
		line := fmt.Sprintf("%s %s %s -> %s (%s)", mark, d.Plugin.Spec.Name,
			shortHash(d.HeadCommit), shortHash(d.TargetCommit), d.TargetDescription)
		b.WriteString(cursor + pendingStyle.Render(line))
		b.WriteString("\n")
		if log := strings.TrimSpace(d.ChangeLog); log != "" {
			for _, l := range strings.Split(log, "\n") {
				b.WriteString(dimStyle.Render("      " + l))
				b.WriteString("\n")
			}
		}
	}

	if current := m.report.Current(); len(current) > 0 {
		b.WriteString("\n")
		b.WriteString(currentStyle.Render(fmt.Sprintf("%d plugins already up to date", len(current))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("space: toggle  enter: apply  q: cancel"))
	b.WriteString("\n")

	return b.String()
}

// shortHash abbreviates a commit hash for display.
func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
