package state

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
	"github.com/ducminhle1904/equity-signal-bot/internal/logger"
)

// ErrDuplicateEntry is returned when recording an entry for a symbol that is already held
var ErrDuplicateEntry = errors.New("entry already recorded")

// PositionStore tracks the entry price of every symbol the engine believes it holds.
// Every mutation rewrites the whole mapping through the KV.
//
// In-memory state is updated before persisting. If the write fails the error is
// returned but memory keeps the new value, since the order it reflects has
// already gone to the broker.
type PositionStore struct {
	kv     KV
	logger *logger.Logger

	mu      sync.RWMutex
	entries map[string]float64
}

// NewPositionStore creates an empty store; call Load to read persisted state
func NewPositionStore(kv KV, log *logger.Logger) *PositionStore {
	return &PositionStore{
		kv:      kv,
		logger:  log,
		entries: make(map[string]float64),
	}
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Load replaces in-memory state with what the KV holds. Missing or corrupt
// storage loads as empty; a flat assumption is always safe.
func (s *PositionStore) Load() map[string]float64 {
	entries, err := s.kv.Load()
	if err != nil {
		s.logger.LogError("Entry store unreadable, starting flat", err)
	}

	clean := make(map[string]float64, len(entries))
	for sym, price := range entries {
		if price <= 0 {
			s.logger.Warning("Ignoring non-positive entry price %.4f for %s", price, sym)
			continue
		}
		clean[normalize(sym)] = price
	}

	s.mu.Lock()
	s.entries = clean
	s.mu.Unlock()

	s.logger.Info("Loaded %d tracked position(s)", len(clean))
	return s.Snapshot()
}

// RecordEntry stores the entry price for a flat symbol
func (s *PositionStore) RecordEntry(symbol string, price float64) error {
	symbol = normalize(symbol)
	if price <= 0 {
		return boterrors.NewOrderError("state", "RecordEntry",
			fmt.Sprintf("entry price for %s must be positive, got %.4f", symbol, price))
	}

	s.mu.Lock()
	if existing, ok := s.entries[symbol]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s @ %.2f", ErrDuplicateEntry, symbol, existing)
	}
	s.entries[symbol] = price
	snapshot := s.copyLocked()
	s.mu.Unlock()

	return s.kv.Save(snapshot)
}

// ClearEntry removes a symbol. No-op (and no write) when absent.
func (s *PositionStore) ClearEntry(symbol string) error {
	symbol = normalize(symbol)

	s.mu.Lock()
	if _, ok := s.entries[symbol]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.entries, symbol)
	snapshot := s.copyLocked()
	s.mu.Unlock()

	return s.kv.Save(snapshot)
}

// GetEntry returns the recorded entry price
func (s *PositionStore) GetEntry(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.entries[normalize(symbol)]
	return price, ok
}

// Reconcile drops every tracked symbol the broker no longer reports as held.
// It returns the dropped symbols in sorted order.
func (s *PositionStore) Reconcile(brokerOpen map[string]struct{}) ([]string, error) {
	held := make(map[string]struct{}, len(brokerOpen))
	for sym := range brokerOpen {
		held[normalize(sym)] = struct{}{}
	}

	s.mu.Lock()
	var dropped []string
	for sym := range s.entries {
		if _, ok := held[sym]; !ok {
			dropped = append(dropped, sym)
		}
	}
	if len(dropped) == 0 {
		s.mu.Unlock()
		return nil, nil
	}
	for _, sym := range dropped {
		delete(s.entries, sym)
	}
	snapshot := s.copyLocked()
	s.mu.Unlock()

	sort.Strings(dropped)
	for _, sym := range dropped {
		s.logger.Warning("Reconcile: %s no longer held at broker, clearing local entry", sym)
	}
	return dropped, s.kv.Save(snapshot)
}

// Symbols lists tracked symbols in sorted order
func (s *PositionStore) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.entries))
	for sym := range s.entries {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a copy of the current mapping
func (s *PositionStore) Snapshot() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

func (s *PositionStore) copyLocked() map[string]float64 {
	out := make(map[string]float64, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}
