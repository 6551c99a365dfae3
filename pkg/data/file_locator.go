package data

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindSymbolFile locates <SYMBOL>.csv in dir, trying the upper- and
// lower-case spellings. Returns "" when neither exists.
func FindSymbolFile(dir, symbol string) string {
	symbol = strings.TrimSpace(symbol)
	candidates := []string{
		filepath.Join(dir, strings.ToUpper(symbol)+".csv"),
		filepath.Join(dir, strings.ToLower(symbol)+".csv"),
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// ListSymbols returns the upper-cased names of every .csv file in dir, sorted
func ListSymbols(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var symbols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}
		symbols = append(symbols, strings.ToUpper(strings.TrimSuffix(name, filepath.Ext(name))))
	}
	sort.Strings(symbols)
	return symbols, nil
}
