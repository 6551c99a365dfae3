package state

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
	"github.com/ducminhle1904/equity-signal-bot/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.NewLogger(logger.Config{Dir: t.TempDir(), Console: io.Discard})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func newFileStore(t *testing.T) (*PositionStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "entry_prices.json")
	return NewPositionStore(NewFileKV(path, false), testLogger(t)), path
}

// failingKV loads fine but refuses every write
type failingKV struct {
	entries map[string]float64
	saves   int
}

func (f *failingKV) Load() (map[string]float64, error) { return f.entries, nil }
func (f *failingKV) Save(map[string]float64) error {
	f.saves++
	return boterrors.NewStorageError("test", "Save", fmt.Errorf("disk full"))
}

func TestFileKV_MissingFileIsEmpty(t *testing.T) {
	kv := NewFileKV(filepath.Join(t.TempDir(), "nope.json"), false)
	entries, err := kv.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileKV_CorruptFileIsEmptyWithStorageError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entry_prices.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"AAPL": 15`), 0644))

	entries, err := NewFileKV(path, false).Load()
	assert.Empty(t, entries)
	require.Error(t, err)
	assert.True(t, boterrors.IsCategory(err, boterrors.ErrorCategoryStorage))
}

func TestFileKV_SaveIsAtomicAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entry_prices.json")
	kv := NewFileKV(path, true)

	require.NoError(t, kv.Save(map[string]float64{"AAPL": 150}))
	require.NoError(t, kv.Save(map[string]float64{"AAPL": 150, "MSFT": 300.5}))

	entries, err := kv.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"AAPL": 150, "MSFT": 300.5}, entries)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name())
	}
	assert.ElementsMatch(t, []string{"entry_prices.json", "entry_prices.json.bak"}, names)

	backup, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.JSONEq(t, `{"AAPL": 150}`, string(backup))
}

func TestPositionStore_LoadCorruptStartsFlat(t *testing.T) {
	store, path := newFileStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	assert.Empty(t, store.Load())
	assert.Empty(t, store.Symbols())
}

func TestPositionStore_LoadNormalizesAndDropsBadPrices(t *testing.T) {
	kv := &failingKV{entries: map[string]float64{"aapl": 150, "MSFT": 0, "TSLA": -1}}
	store := NewPositionStore(kv, testLogger(t))

	loaded := store.Load()
	assert.Equal(t, map[string]float64{"AAPL": 150}, loaded)
}

func TestPositionStore_RecordGetClear(t *testing.T) {
	store, path := newFileStore(t)
	store.Load()

	require.NoError(t, store.RecordEntry("aapl", 150))

	price, ok := store.GetEntry("AAPL")
	assert.True(t, ok)
	assert.Equal(t, 150.0, price)

	// persisted
	reloaded := NewPositionStore(NewFileKV(path, false), testLogger(t))
	assert.Equal(t, map[string]float64{"AAPL": 150}, reloaded.Load())

	require.NoError(t, store.ClearEntry("AAPL"))
	_, ok = store.GetEntry("AAPL")
	assert.False(t, ok)

	reloaded = NewPositionStore(NewFileKV(path, false), testLogger(t))
	assert.Empty(t, reloaded.Load())
}

func TestPositionStore_RecordEntryRejectsDuplicate(t *testing.T) {
	store, _ := newFileStore(t)
	require.NoError(t, store.RecordEntry("AAPL", 150))

	err := store.RecordEntry("AAPL", 155)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateEntry))

	price, _ := store.GetEntry("AAPL")
	assert.Equal(t, 150.0, price, "entry price is immutable once recorded")
}

func TestPositionStore_RecordEntryRejectsNonPositivePrice(t *testing.T) {
	store, _ := newFileStore(t)
	assert.Error(t, store.RecordEntry("AAPL", 0))
	assert.Error(t, store.RecordEntry("AAPL", -3))
	assert.Empty(t, store.Symbols())
}

func TestPositionStore_ClearAbsentIsNoop(t *testing.T) {
	kv := &failingKV{entries: map[string]float64{}}
	store := NewPositionStore(kv, testLogger(t))
	store.Load()

	assert.NoError(t, store.ClearEntry("AAPL"))
	assert.Equal(t, 0, kv.saves)
}

func TestPositionStore_SaveFailureKeepsMemoryState(t *testing.T) {
	kv := &failingKV{entries: map[string]float64{}}
	store := NewPositionStore(kv, testLogger(t))
	store.Load()

	err := store.RecordEntry("AAPL", 150)
	require.Error(t, err)
	assert.True(t, boterrors.IsCategory(err, boterrors.ErrorCategoryStorage))

	price, ok := store.GetEntry("AAPL")
	assert.True(t, ok)
	assert.Equal(t, 150.0, price)
}

func TestPositionStore_ReconcileDropsSymbolsNotAtBroker(t *testing.T) {
	store, path := newFileStore(t)
	require.NoError(t, store.RecordEntry("AAPL", 150))

	dropped, err := store.Reconcile(map[string]struct{}{})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, dropped)
	assert.Empty(t, store.Snapshot())

	reloaded := NewPositionStore(NewFileKV(path, false), testLogger(t))
	assert.Empty(t, reloaded.Load())
}

func TestPositionStore_ReconcileConvergence(t *testing.T) {
	tests := []struct {
		name   string
		local  map[string]float64
		broker []string
		want   []string
	}{
		{"empty both", nil, nil, []string{}},
		{"broker superset", map[string]float64{"AAPL": 1}, []string{"AAPL", "MSFT"}, []string{"AAPL"}},
		{"disjoint", map[string]float64{"AAPL": 1, "TSLA": 2}, []string{"MSFT"}, []string{}},
		{"partial", map[string]float64{"AAPL": 1, "TSLA": 2, "NVDA": 3}, []string{"tsla", "NVDA"}, []string{"NVDA", "TSLA"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewPositionStore(NewFileKV(filepath.Join(t.TempDir(), "s.json"), false), testLogger(t))
			for sym, p := range tt.local {
				require.NoError(t, store.RecordEntry(sym, p))
			}
			open := map[string]struct{}{}
			for _, s := range tt.broker {
				open[s] = struct{}{}
			}

			_, err := store.Reconcile(open)
			require.NoError(t, err)
			assert.Equal(t, tt.want, store.Symbols())
		})
	}
}

func TestPositionStore_ReconcileNothingToDropDoesNotWrite(t *testing.T) {
	kv := &failingKV{entries: map[string]float64{"AAPL": 150}}
	store := NewPositionStore(kv, testLogger(t))
	store.Load()

	dropped, err := store.Reconcile(map[string]struct{}{"AAPL": {}})
	assert.NoError(t, err)
	assert.Empty(t, dropped)
	assert.Equal(t, 0, kv.saves)
}
