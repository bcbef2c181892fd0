// Package filetx stages file writes and applies them all or not at all.
package filetx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

var (
	ErrTxClosed = errors.New("file transaction is closed")
	ErrCommit   = errors.New("failed to commit file transaction")
	// ErrPartialCommit marks a commit that replaced some paths before failing.
	ErrPartialCommit = errors.New("file transaction partially committed")
)

type State int

const (
	StateOpen State = iota
	StateCommitted
	StateRolledBack
	StatePartial
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	case StatePartial:
		return "partial"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is how a transaction scope ended.
type Result struct {
	State State
	// Paths lists the files written, in staging order. Empty on rollback,
	// the already replaced files on a partial commit.
	Paths []string
	Cause error
}

func (r Result) Committed() bool {
	return r.State == StateCommitted
}

// Err returns the error that caused the rollback, or nil after a commit.
func (r Result) Err() error {
	if r.State == StateCommitted {
		return nil
	}
	return r.Cause
}

// Manager opens transactions against a filesystem.
type Manager struct {
	fs     afero.Fs
	logger *slog.Logger
	perm   os.FileMode
}

func NewManager(fs afero.Fs, logger *slog.Logger) *Manager {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		fs:     fs,
		logger: logger.With("component", "filetx"),
		perm:   0644,
	}
}

func (m *Manager) Fs() afero.Fs {
	return m.fs
}

// ReadFile reads committed content outside of any transaction.
func (m *Manager) ReadFile(path string) (string, bool, error) {
	return readFile(m.fs, path)
}

// Run executes fn inside a new transaction. Staged writes are flushed when fn
// returns nil and discarded when it returns an error or panics. A panic is
// re-raised after the rollback.
func (m *Manager) Run(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) (res Result) {
	tx := &Tx{
		fs:      m.fs,
		pending: make(map[string]string),
	}

	defer func() {
		if p := recover(); p != nil {
			tx.discard()
			m.logger.Error("file transaction rolled back after panic", "panic", p)
			panic(p)
		}
	}()

	err := fn(ctx, tx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		staged := len(tx.order)
		tx.discard()
		m.logger.Info("file transaction rolled back", "staged", staged, "error", err)
		return Result{State: StateRolledBack, Cause: err}
	}

	paths, err := m.commit(tx)
	if err != nil {
		if len(paths) > 0 {
			m.logger.Error("file transaction partially committed", "written", paths, "error", err)
			return Result{State: StatePartial, Paths: paths, Cause: err}
		}
		m.logger.Error("file transaction commit failed", "error", err)
		return Result{State: StateRolledBack, Cause: err}
	}

	m.logger.Info("file transaction committed", "paths", paths)
	return Result{State: StateCommitted, Paths: paths}
}

// commit writes every staged file to a temp file beside its target, then
// renames them into place. Nothing is renamed unless every temp write
// succeeded; a failed rename returns the paths already replaced.
func (m *Manager) commit(tx *Tx) ([]string, error) {
	defer tx.close(StateCommitted)

	temps := make(map[string]string, len(tx.order))
	var dirs []string
	removeTemps := func() {
		for _, tmp := range temps {
			_ = m.fs.Remove(tmp)
		}
	}
	rollback := func() {
		removeTemps()
		for i := len(dirs) - 1; i >= 0; i-- {
			_ = m.fs.RemoveAll(dirs[i])
		}
		tx.state = StateRolledBack
	}

	for _, path := range tx.order {
		created, err := m.mkdirAll(filepath.Dir(path))
		if created != "" {
			dirs = append(dirs, created)
		}
		if err != nil {
			rollback()
			return nil, fmt.Errorf("%w: %s: %w", ErrCommit, path, err)
		}

		tmp, err := m.writeTemp(path, tx.pending[path])
		if err != nil {
			rollback()
			return nil, fmt.Errorf("%w: %s: %w", ErrCommit, path, err)
		}
		temps[path] = tmp
	}

	written := make([]string, 0, len(tx.order))
	for _, path := range tx.order {
		if err := m.fs.Rename(temps[path], path); err != nil {
			removeTemps()
			if len(written) == 0 {
				tx.state = StateRolledBack
				return nil, fmt.Errorf("%w: rename %s: %w", ErrCommit, path, err)
			}
			tx.state = StatePartial
			return written, fmt.Errorf("%w: %w: rename %s: %w", ErrCommit, ErrPartialCommit, path, err)
		}
		delete(temps, path)
		written = append(written, path)
	}

	return written, nil
}

// mkdirAll creates dir and returns the topmost directory it had to create,
// or "" when dir already existed.
func (m *Manager) mkdirAll(dir string) (string, error) {
	top := ""
	for d := dir; ; {
		ok, err := afero.DirExists(m.fs, d)
		if err != nil {
			return "", fmt.Errorf("failed to stat directory: %w", err)
		}
		parent := filepath.Dir(d)
		if ok || parent == d {
			break
		}
		top = d
		d = parent
	}
	if top == "" {
		return "", nil
	}

	if err := m.fs.MkdirAll(dir, 0755); err != nil {
		// MkdirAll may have created part of the chain before failing.
		if ok, _ := afero.DirExists(m.fs, top); ok {
			return top, fmt.Errorf("failed to create directory: %w", err)
		}
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	return top, nil
}

func (m *Manager) writeTemp(path, content string) (string, error) {
	dir := filepath.Dir(path)
	f, err := afero.TempFile(m.fs, dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		m.fs.Remove(name)
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		m.fs.Remove(name)
		return "", fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		m.fs.Remove(name)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := m.fs.Chmod(name, m.perm); err != nil {
		m.fs.Remove(name)
		return "", fmt.Errorf("failed to chmod temp file: %w", err)
	}

	return name, nil
}

// Tx is a single-use set of staged writes.
type Tx struct {
	fs      afero.Fs
	pending map[string]string
	order   []string
	state   State
}

// WriteFile stages content as the complete new content of path.
// A later write to the same path replaces the earlier one.
func (tx *Tx) WriteFile(path, content string) error {
	if tx.state != StateOpen {
		return ErrTxClosed
	}

	path = filepath.Clean(path)
	if _, ok := tx.pending[path]; !ok {
		tx.order = append(tx.order, path)
	}
	tx.pending[path] = content
	return nil
}

// ReadFile returns staged content for path if any, else what is on disk.
// A missing file is reported as ("", false, nil).
func (tx *Tx) ReadFile(path string) (string, bool, error) {
	if tx.state != StateOpen {
		return "", false, ErrTxClosed
	}

	if content, ok := tx.pending[filepath.Clean(path)]; ok {
		return content, true, nil
	}
	return readFile(tx.fs, path)
}

// Staged returns the staged paths in the order they were first written.
func (tx *Tx) Staged() []string {
	return append([]string(nil), tx.order...)
}

func (tx *Tx) State() State {
	return tx.state
}

func (tx *Tx) discard() {
	tx.close(StateRolledBack)
}

func (tx *Tx) close(state State) {
	if tx.state == StateOpen {
		tx.state = state
	}
	tx.pending = nil
	tx.order = nil
}

func readFile(fs afero.Fs, path string) (string, bool, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), true, nil
}
