package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"reactord/internal/loop"
	"reactord/internal/reactor"
	"reactord/internal/safety"
)

func testCycle(seq uint64, frac float64) loop.Cycle {
	return loop.Cycle{
		Seq:  seq,
		Time: time.Unix(1000, 0),
		Reactors: []loop.Status{{
			Snapshot: reactor.Snapshot{
				Identity:        "alpha",
				EnergyStored:    frac * 1000,
				EnergyCapacity:  1000,
				FuelTemperature: 700,
				Active:          true,
			},
			Verdict: safety.Verdict{RodLevel: 40},
		}},
	}
}

func TestFeedDropsWhenFull(t *testing.T) {
	f := NewFeed()
	// more cycles than the buffer holds must not block the control loop
	for i := 0; i < 100; i++ {
		f.OnCycle(testCycle(uint64(i), 0.5))
	}
}

func TestFatalCycleSurvivesBackpressure(t *testing.T) {
	f := NewFeed()
	for i := 0; i < 100; i++ {
		f.OnCycle(testCycle(uint64(i), 0.5))
	}

	fatal := testCycle(200, 0.5)
	fatal.Fatal = &loop.FatalError{Reactor: "alpha", Reason: "fuel temperature 2100.0 exceeds limit 2000.0"}
	f.OnCycle(fatal)

	// the saturated routine buffer must not starve the fatal cycle
	m := NewModel(f)
	msg := m.waitForCycle()()
	c, ok := msg.(cycleMsg)
	if !ok {
		t.Fatalf("expected cycleMsg, got %T", msg)
	}
	if loop.Cycle(c).Fatal == nil {
		t.Fatal("expected the fatal cycle to be delivered first")
	}

	_, cmd := m.Update(c)
	if cmd == nil {
		t.Fatal("expected a command sequence ending in quit on a fatal cycle")
	}
}

func TestViewShowsReactor(t *testing.T) {
	m := NewModel(NewFeed())
	next, _ := m.Update(cycleMsg(testCycle(1, 0.5)))
	m = next.(Model)

	view := m.View()
	if !strings.Contains(view, "alpha") {
		t.Errorf("view missing reactor id:\n%s", view)
	}
	if !strings.Contains(view, "50.0%") {
		t.Errorf("view missing energy fraction:\n%s", view)
	}
}

func TestViewBeforeFirstCycle(t *testing.T) {
	m := NewModel(NewFeed())
	if !strings.Contains(m.View(), "waiting") {
		t.Error("expected waiting placeholder before the first cycle")
	}
}

func TestGraphAppearsAfterTwoCycles(t *testing.T) {
	m := NewModel(NewFeed())
	for i := 1; i <= 3; i++ {
		next, _ := m.Update(cycleMsg(testCycle(uint64(i), 0.4+0.1*float64(i))))
		m = next.(Model)
	}
	if !strings.Contains(m.View(), "energy fraction") {
		t.Error("expected trend graph caption after multiple cycles")
	}
}

func TestQuitKey(t *testing.T) {
	m := NewModel(NewFeed())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
