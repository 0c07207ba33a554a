package marker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/package2pypi/internal/logger"
)

const (
	// Filename is the marker created in a package directory during a run.
	Filename = ".package2pypi.lock"

	// DefaultLifetime bounds how long a marker is honored. A full run is
	// two 60s polls plus build and upload.
	DefaultLifetime = 10 * time.Minute

	fileMode os.FileMode = 0o600
)

// ErrRunInProgress is returned when another live run holds the marker.
var ErrRunInProgress = errors.New("another publish run is in progress")

// Marker is the single-run guard the publisher depends on.
type Marker interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}

// ProcessLookup reports whether a process with pid exists.
type ProcessLookup func(pid int) (bool, error)

// FileMarker is a Marker backed by a PID file.
type FileMarker struct {
	path     string
	lifetime time.Duration
	lookup   ProcessLookup
	pid      int

	mu   sync.Mutex
	held bool
}

// Option configures a FileMarker.
type Option func(*FileMarker)

// WithLifetime overrides DefaultLifetime.
func WithLifetime(d time.Duration) Option {
	return func(m *FileMarker) {
		if d > 0 {
			m.lifetime = d
		}
	}
}

// WithProcessLookup replaces the go-ps based liveness check.
func WithProcessLookup(lookup ProcessLookup) Option {
	return func(m *FileMarker) {
		if lookup != nil {
			m.lookup = lookup
		}
	}
}

// NewFileMarker creates a marker for the given package directory.
func NewFileMarker(packageDir string, opts ...Option) *FileMarker {
	m := &FileMarker{
		path:     filepath.Join(filepath.Clean(packageDir), Filename),
		lifetime: DefaultLifetime,
		lookup:   processExists,
		pid:      os.Getpid(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Path returns the marker location.
func (m *FileMarker) Path() string {
	return m.path
}

// Acquire creates the marker, reclaiming a stale one once.
func (m *FileMarker) Acquire(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		err := m.create()
		if err == nil {
			m.held = true
			return nil
		}

		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("create marker: %w", err)
		}

		stale, reason := m.isStale()
		if !stale {
			return ErrRunInProgress
		}

		logger.WarnKV(ctx, "Reclaiming stale publish marker", "path", m.path, "reason", reason)

		if err = os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove stale marker: %w", err)
		}
	}

	return ErrRunInProgress
}

// Release removes the marker if this process holds it.
func (m *FileMarker) Release(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.held {
		return nil
	}

	m.held = false

	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove marker: %w", err)
	}

	logger.DebugKV(ctx, "Publish marker released", "path", m.path)

	return nil
}

func (m *FileMarker) create() error {
	f, err := os.OpenFile(m.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fileMode)
	if err != nil {
		return err
	}

	_, writeErr := f.WriteString(strconv.Itoa(m.pid))
	closeErr := f.Close()

	return errors.Join(writeErr, closeErr)
}

// isStale decides whether an existing marker may be reclaimed.
func (m *FileMarker) isStale() (bool, string) {
	info, err := os.Stat(m.path)
	if err != nil {
		// Vanished between create and stat.
		return true, "missing"
	}

	if time.Since(info.ModTime()) > m.lifetime {
		return true, "expired"
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		return false, ""
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return true, "unreadable owner"
	}

	if pid == m.pid {
		return false, ""
	}

	alive, err := m.lookup(pid)
	if err != nil {
		return false, ""
	}

	if !alive {
		return true, "owner exited"
	}

	return false, ""
}

// processExists looks pid up in the process table.
func processExists(pid int) (bool, error) {
	p, err := ps.FindProcess(pid)
	if err != nil {
		return false, err
	}

	return p != nil, nil
}
