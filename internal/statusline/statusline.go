package statusline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/oshokin/package2pypi/internal/domain/release"
)

const (
	colorMuted   = lipgloss.Color("#6B7280")
	colorActive  = lipgloss.Color("#3B82F6")
	colorSuccess = lipgloss.Color("#10B981")
	colorError   = lipgloss.Color("#EF4444")
)

// Printer writes each status to w. It satisfies publisher.Notifier.
type Printer struct {
	mu  sync.Mutex
	out io.Writer

	state   lipgloss.Style
	active  lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
}

// New returns a Printer whose color profile is detected from w.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)

	return &Printer{
		out:     w,
		state:   r.NewStyle().Foreground(colorMuted).Width(stateWidth),
		active:  r.NewStyle().Foreground(colorActive),
		success: r.NewStyle().Bold(true).Foreground(colorSuccess),
		failure: r.NewStyle().Bold(true).Foreground(colorError),
	}
}

// stateWidth fits the longest state name.
const stateWidth = len("awaiting_install_convergence") + 1

// Notify prints "<state> <message>".
func (p *Printer) Notify(_ context.Context, status release.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, _ = fmt.Fprintln(p.out, p.Line(status))
}

// Line renders status without printing it.
func (p *Printer) Line(status release.Status) string {
	style := p.active

	switch {
	case status.State == release.StateSuccess:
		style = p.success
	case status.State == release.StateFailed, strings.HasPrefix(status.Message, "ERROR"):
		style = p.failure
	}

	return p.state.Render(status.State.String()) + style.Render(status.Message)
}
