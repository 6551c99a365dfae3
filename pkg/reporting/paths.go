package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultOutputPath returns results/<SYMBOL>_<strategy>_<date>.<ext>
func DefaultOutputPath(symbol, strategyName, ext string, at time.Time) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		s = "ALL"
	}
	name := strings.ToLower(strings.TrimSpace(strategyName))
	if name == "" {
		name = "unknown"
	}
	return filepath.Join("results", fmt.Sprintf("%s_%s_%s.%s", s, name, at.Format("20060102"), strings.TrimPrefix(ext, ".")))
}

// EnsureDirectoryExists creates the parent directory of path
func EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
