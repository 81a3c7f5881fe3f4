package adapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	m "gooze.dev/pkg/bytemut/internal/model"
)

// ModuleStore owns the pristine modules of a session. Loaded modules are never
// modified; mutation always happens on a Copy.
type ModuleStore interface {
	// Load reads a container, registers it and associates a co-located
	// symbol file when one exists.
	Load(ctx context.Context, path m.Path) (*m.Module, error)
	// Open reads a container without registering it.
	Open(ctx context.Context, path m.Path) (*m.Module, error)
	// Copy returns a deep, independently owned clone of a loaded module.
	Copy(mod *m.Module) (*m.Module, error)
	// Write serializes mod to dest, plus a symbol file when the module's
	// record carries symbols.
	Write(ctx context.Context, mod *m.Module, dest m.Path) error
	// WriteTo serializes mod to w without symbols.
	WriteTo(mod *m.Module, w io.Writer) error
	// Record returns the record of a loaded module by name.
	Record(name string) (m.ModuleRecord, bool)
	// Modules lists the loaded modules in load order.
	Modules() []*m.Module
	// Cleanup releases every record. It is safe to call more than once.
	Cleanup()
}

// LocalModuleStore implements ModuleStore on an afero filesystem.
type LocalModuleStore struct {
	fs      afero.Fs
	mu      sync.RWMutex
	records []m.ModuleRecord
}

// NewLocalModuleStore constructs a LocalModuleStore backed by fs.
func NewLocalModuleStore(fs afero.Fs) *LocalModuleStore {
	return &LocalModuleStore{fs: fs}
}

// Load implements ModuleStore.
func (s *LocalModuleStore) Load(ctx context.Context, path m.Path) (*m.Module, error) {
	slog.Info("Loading module", "path", path)

	mod, err := s.Open(ctx, path)
	if err != nil {
		return nil, err
	}

	record := m.ModuleRecord{Module: mod, Path: path}

	symbolsPath := SymbolsPath(path)
	if ok, _ := afero.Exists(s.fs, string(symbolsPath)); ok {
		syms, err := ReadSymbols(s.fs, symbolsPath)
		if err != nil {
			slog.Warn("Ignoring unreadable symbols", "path", symbolsPath, "error", err)
		} else {
			record.Symbols = syms
			record.SymbolsPath = symbolsPath
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.Module.Name == mod.Name {
			return nil, fmt.Errorf("module %s from %s is already loaded from %s", mod.Name, path, r.Path)
		}
	}

	s.records = append(s.records, record)

	return mod, nil
}

// Open implements ModuleStore.
func (s *LocalModuleStore) Open(ctx context.Context, path m.Path) (*m.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.fs.Open(string(path))
	if err != nil {
		slog.Error("Failed to open module", "path", path, "error", err)
		return nil, fmt.Errorf("open module %s: %w", path, err)
	}
	defer f.Close()

	mod, err := DecodeModule(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return mod, nil
}

// Copy implements ModuleStore.
func (s *LocalModuleStore) Copy(mod *m.Module) (*m.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.findLocked(mod.Name); !ok {
		return nil, fmt.Errorf("module %s is not loaded", mod.Name)
	}

	return mod.Clone(), nil
}

// Write implements ModuleStore.
func (s *LocalModuleStore) Write(ctx context.Context, mod *m.Module, dest m.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := EncodeModule(&buf, mod); err != nil {
		slog.Error("Failed to encode module", "module", mod.Name, "dest", dest, "error", err)
		return err
	}

	if err := s.fs.MkdirAll(filepath.Dir(string(dest)), 0o750); err != nil {
		return fmt.Errorf("create directory for %s: %w", dest, err)
	}

	if err := afero.WriteFile(s.fs, string(dest), buf.Bytes(), 0o644); err != nil {
		slog.Error("Failed to write module", "dest", dest, "error", err)
		return fmt.Errorf("write module %s: %w", dest, err)
	}

	record, ok := s.Record(mod.Name)
	if ok && record.Symbols != nil {
		if err := WriteSymbols(s.fs, SymbolsPath(dest), record.Symbols); err != nil {
			return err
		}
	}

	slog.Debug("Wrote module", "module", mod.Name, "dest", dest, "bytes", buf.Len())

	return nil
}

// WriteTo implements ModuleStore.
func (s *LocalModuleStore) WriteTo(mod *m.Module, w io.Writer) error {
	return EncodeModule(w, mod)
}

// Record implements ModuleStore.
func (s *LocalModuleStore) Record(name string) (m.ModuleRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.findLocked(name)
}

// Modules implements ModuleStore.
func (s *LocalModuleStore) Modules() []*m.Module {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mods := make([]*m.Module, len(s.records))
	for i, r := range s.records {
		mods[i] = r.Module
	}

	return mods
}

// Cleanup implements ModuleStore.
func (s *LocalModuleStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) > 0 {
		slog.Debug("Releasing modules", "count", len(s.records))
	}

	s.records = nil
}

func (s *LocalModuleStore) findLocked(name string) (m.ModuleRecord, bool) {
	for _, r := range s.records {
		if r.Module.Name == name {
			return r, true
		}
	}

	return m.ModuleRecord{}, false
}

// WriteModuleFile writes a module and, when syms is not nil, its symbol file.
// It is used for modules that do not come from a store, such as fresh
// assembler output.
func WriteModuleFile(fs afero.Fs, mod *m.Module, syms *m.Symbols, dest m.Path) error {
	var buf bytes.Buffer
	if err := EncodeModule(&buf, mod); err != nil {
		return err
	}

	if err := fs.MkdirAll(filepath.Dir(string(dest)), 0o750); err != nil {
		return fmt.Errorf("create directory for %s: %w", dest, err)
	}

	if err := afero.WriteFile(fs, string(dest), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write module %s: %w", dest, err)
	}

	if syms == nil {
		return nil
	}

	return WriteSymbols(fs, SymbolsPath(dest), syms)
}
