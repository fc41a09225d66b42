package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Console is a fixed-size terminal display. Lines past the height are
// dropped; long lines are cut at the width.
type Console struct {
	out    io.Writer
	width  int
	height int
}

func NewConsole(out io.Writer, width, height int) *Console {
	return &Console{out: out, width: width, height: height}
}

func (c *Console) Render(lines []string) {
	var b strings.Builder
	b.WriteString("\033[2J\033[H")

	n := len(lines)
	if n > c.height {
		n = c.height
	}
	for _, line := range lines[:n] {
		b.WriteString(styleLine(truncate(line, c.width)))
		b.WriteByte('\n')
	}
	fmt.Fprint(c.out, b.String())
}

// styleLine colors a line by its leading tag. Tags are produced by the
// control loop's formatter.
func styleLine(line string) string {
	switch {
	case strings.HasPrefix(line, "CRITICAL"):
		return criticalStyle.Render(line)
	case strings.HasPrefix(line, "FAULT"), strings.HasPrefix(line, "PAUSED"):
		return warnStyle.Render(line)
	case strings.HasPrefix(line, "== "):
		return headerStyle.Render(line)
	case strings.HasPrefix(line, "--"):
		return subtleStyle.Render(line)
	}
	return line
}

// truncate cuts s to at most width runes without splitting a multibyte
// character.
func truncate(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	n := 0
	for i := range s {
		if n == width {
			return s[:i]
		}
		n++
	}
	return s
}
