// Package tui renders a live terminal monitor for the control loop. It is
// fed by a loop observer over a buffered channel; when the monitor falls
// behind, cycles are dropped rather than blocking the control goroutine.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"reactord/internal/loop"
	"reactord/internal/safety"
)

const historyCapacity = 240

var (
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	runStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	idleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	faultStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// Feed adapts the loop observer contract to channels the monitor reads.
// Routine cycles may be dropped under backpressure; a fatal cycle travels
// on its own slot so the monitor always sees the halt.
type Feed struct {
	ch    chan loop.Cycle
	fatal chan loop.Cycle
}

func NewFeed() *Feed {
	return &Feed{
		ch:    make(chan loop.Cycle, 8),
		fatal: make(chan loop.Cycle, 1),
	}
}

func (f *Feed) OnCycle(c loop.Cycle) {
	if c.Fatal != nil {
		select {
		case f.fatal <- c:
		default:
		}
		return
	}
	select {
	case f.ch <- c:
	default:
	}
}

func (f *Feed) Cycles() <-chan loop.Cycle { return f.ch }

func (f *Feed) Fatal() <-chan loop.Cycle { return f.fatal }

type cycleMsg loop.Cycle

// Model is the bubbletea state for the monitor view.
type Model struct {
	cycles  <-chan loop.Cycle
	fatal   <-chan loop.Cycle
	latest  loop.Cycle
	started bool

	history  map[string][]float64
	ids      []string
	selected int
}

func NewModel(feed *Feed) Model {
	return Model{
		cycles:  feed.Cycles(),
		fatal:   feed.Fatal(),
		history: make(map[string][]float64),
	}
}

func (m Model) Init() tea.Cmd {
	return m.waitForCycle()
}

func (m Model) waitForCycle() tea.Cmd {
	return func() tea.Msg {
		// a pending fatal cycle wins over any buffered routine cycles
		select {
		case c := <-m.fatal:
			return cycleMsg(c)
		default:
		}
		select {
		case c := <-m.fatal:
			return cycleMsg(c)
		case c, ok := <-m.cycles:
			if !ok {
				return tea.Quit()
			}
			return cycleMsg(c)
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			if len(m.ids) > 0 {
				m.selected = (m.selected + 1) % len(m.ids)
			}
		}

	case cycleMsg:
		m.latest = loop.Cycle(msg)
		m.started = true
		m.observe(m.latest)
		if m.latest.Fatal != nil {
			return m, tea.Sequence(tea.Printf("%s", m.latest.Fatal.Reason), tea.Quit)
		}
		return m, m.waitForCycle()
	}
	return m, nil
}

func (m *Model) observe(c loop.Cycle) {
	seen := make(map[string]bool, len(c.Reactors))
	for _, st := range c.Reactors {
		id := st.Snapshot.Identity
		seen[id] = true
		if st.Fault != nil {
			continue
		}
		h := append(m.history[id], st.Snapshot.EnergyFraction())
		if len(h) > historyCapacity {
			h = h[1:]
		}
		m.history[id] = h
	}

	for id := range seen {
		if !contains(m.ids, id) {
			m.ids = append(m.ids, id)
		}
	}
	sort.Strings(m.ids)
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("reactord monitor"))
	b.WriteByte('\n')

	if !m.started {
		b.WriteString(labelStyle.Render("waiting for first control cycle..."))
		return b.String()
	}

	b.WriteString(labelStyle.Render(fmt.Sprintf("cycle %d  %s", m.latest.Seq, m.latest.Time.Format(time.TimeOnly))))
	b.WriteString("\n\n")

	for _, st := range m.latest.Reactors {
		b.WriteString(m.reactorLine(st))
		b.WriteByte('\n')
	}

	if graph := m.graph(); graph != "" {
		b.WriteString(graphStyle.Render(graph))
		b.WriteByte('\n')
	}

	b.WriteString(helpStyle.Render("tab: select reactor · q: quit"))
	return b.String()
}

func (m Model) reactorLine(st loop.Status) string {
	id := st.Snapshot.Identity
	marker := "  "
	if len(m.ids) > 0 && m.ids[m.selected] == id {
		marker = selectedStyle.Render("> ")
	}

	if st.Fault != nil {
		return marker + faultStyle.Render(fmt.Sprintf("%-10s FAULT  %v", id, st.Fault))
	}

	snap := st.Snapshot
	state := runStyle.Render("RUN ")
	if !snap.Active {
		state = idleStyle.Render("IDLE")
	}
	line := fmt.Sprintf("%-10s %s  energy %5.1f%%  fuel %7.1f  rods %3d%%",
		id, state, snap.EnergyFraction()*100, snap.FuelTemperature, st.Verdict.RodLevel)

	for _, n := range st.Verdict.Notices {
		if n.Action == safety.ActionPaused || n.Action == safety.ActionResumed {
			line += "  " + labelStyle.Render(n.Message)
		}
	}
	return marker + line
}

func (m Model) graph() string {
	if len(m.ids) == 0 {
		return ""
	}
	id := m.ids[m.selected]
	h := m.history[id]
	if len(h) < 2 {
		return ""
	}

	return asciigraph.Plot(h,
		asciigraph.Height(8),
		asciigraph.Width(70),
		asciigraph.Caption(fmt.Sprintf("%s energy fraction", id)),
	)
}

// Run blocks on the monitor UI until the user quits or the loop halts.
func Run(feed *Feed) error {
	_, err := tea.NewProgram(NewModel(feed), tea.WithAltScreen()).Run()
	return err
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
