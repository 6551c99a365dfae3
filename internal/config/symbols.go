package config

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// LoadSymbols reads a newline-delimited ticker list. Lines are trimmed and
// upper-cased, blanks and repeats are skipped. A missing file is an empty list.
func LoadSymbols(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("open symbols file: %w", err)
	}
	defer f.Close()

	symbols := []string{}
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		symbol := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		symbols = append(symbols, symbol)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read symbols file: %w", err)
	}
	return symbols, nil
}

// SymbolWatcher keeps the symbol list current as the file changes on disk
type SymbolWatcher struct {
	path     string
	debounce time.Duration
	onReload func(symbols []string, err error)

	mu      sync.RWMutex
	symbols []string
}

// NewSymbolWatcher loads path once. onReload, if set, is called after each
// reload attempt triggered by a file change.
func NewSymbolWatcher(path string, onReload func(symbols []string, err error)) (*SymbolWatcher, error) {
	symbols, err := LoadSymbols(path)
	if err != nil {
		return nil, err
	}
	return &SymbolWatcher{
		path:     path,
		debounce: 200 * time.Millisecond,
		onReload: onReload,
		symbols:  symbols,
	}, nil
}

// Symbols returns a copy of the current list
func (w *SymbolWatcher) Symbols() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, len(w.symbols))
	copy(out, w.symbols)
	return out
}

// Reload rereads the file. On error the previous list is kept.
func (w *SymbolWatcher) Reload() error {
	symbols, err := LoadSymbols(w.path)
	if err == nil {
		w.mu.Lock()
		w.symbols = symbols
		w.mu.Unlock()
	}
	if w.onReload != nil {
		w.onReload(w.Symbols(), err)
	}
	return err
}

// Run watches the file's directory until ctx is done. Editors usually
// replace files by rename, so the directory is watched rather than the file.
func (w *SymbolWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(w.path)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			// coalesce bursts of events from a single save
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			_ = w.Reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if w.onReload != nil {
				w.onReload(w.Symbols(), fmt.Errorf("watch error: %w", err))
			}
		}
	}
}
