// Package processtest provides a scripted process.Runner for tests.
package processtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/oshokin/package2pypi/internal/process"
)

// Handler produces the result of one call.
type Handler func(cmd process.Command) (*process.Result, error)

// Fake dispatches commands to handlers keyed by "<name> <first arg>",
// falling back to "<name>". Unmatched commands succeed with empty output.
type Fake struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []process.Command
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{handlers: make(map[string]Handler)}
}

// Handle registers h for key, e.g. "pip install" or "twine".
func (f *Fake) Handle(key string, h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.handlers[key] = h
}

// Reply registers a fixed result for key.
func (f *Fake) Reply(key string, exitCode int, output string) {
	f.Handle(key, func(process.Command) (*process.Result, error) {
		return &process.Result{ExitCode: exitCode, Output: output}, nil
	})
}

// Run implements process.Runner.
func (f *Fake) Run(_ context.Context, cmd process.Command) (*process.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)

	h, ok := f.lookup(cmd)
	f.mu.Unlock()

	if !ok {
		return &process.Result{}, nil
	}

	return h(cmd)
}

// Calls returns the rendered command lines seen so far.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	lines := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		lines = append(lines, c.String())
	}

	return lines
}

// Commands returns copies of the commands seen so far.
func (f *Fake) Commands() []process.Command {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]process.Command(nil), f.calls...)
}

// CountPrefix counts calls whose command line starts with prefix.
func (f *Fake) CountPrefix(prefix string) int {
	n := 0

	for _, line := range f.Calls() {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}

	return n
}

func (f *Fake) lookup(cmd process.Command) (Handler, bool) {
	if len(cmd.Args) > 0 {
		if h, ok := f.handlers[fmt.Sprintf("%s %s", cmd.Name, cmd.Args[0])]; ok {
			return h, true
		}
	}

	h, ok := f.handlers[cmd.Name]

	return h, ok
}
