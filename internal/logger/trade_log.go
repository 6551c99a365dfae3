package logger

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const dateLayout = "2006-01-02"

// LogLevel tags each line written to the daily log
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelPnL     LogLevel = "PNL"
	LogLevelStatus  LogLevel = "STATUS"
)

// Config controls where and for how long daily logs are kept
type Config struct {
	Dir      string
	KeepDays int
	// Console receives a copy of every line. Nil means os.Stdout, io.Discard silences it.
	Console io.Writer
	Now     func() time.Time
}

// Logger appends timestamped lines to one file per calendar day
// (<dir>/YYYY-MM-DD.txt) and removes files older than KeepDays.
type Logger struct {
	dir      string
	keepDays int
	console  io.Writer
	now      func() time.Time

	mu       sync.Mutex
	file     *os.File
	fileDate string
}

// TradeRecord is a single BUY or SELL action
type TradeRecord struct {
	Action string
	Symbol string
	Price  float64
	Reason string
	// Optional account snapshot taken after the order
	Cash   *float64
	Equity *float64
}

// NewLogger creates the log directory and returns a logger writing into it
func NewLogger(cfg Config) (*Logger, error) {
	if cfg.Dir == "" {
		cfg.Dir = "logs"
	}
	if cfg.KeepDays <= 0 {
		cfg.KeepDays = 15
	}
	if cfg.Console == nil {
		cfg.Console = os.Stdout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &Logger{
		dir:      cfg.Dir,
		keepDays: cfg.KeepDays,
		console:  cfg.Console,
		now:      cfg.Now,
	}, nil
}

// Log writes a formatted entry with the given level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.write(level, fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// LogError logs an error with context
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// Trade records a BUY/SELL action
func (l *Logger) Trade(rec TradeRecord) {
	line := fmt.Sprintf("%s %s @ %.2f - %s", rec.Action, rec.Symbol, rec.Price, rec.Reason)
	if rec.Cash != nil && rec.Equity != nil {
		line += fmt.Sprintf(" | cash: $%.2f, positions: $%.2f, equity: $%.2f",
			*rec.Cash, *rec.Equity-*rec.Cash, *rec.Equity)
	}
	l.write(LogLevelTrade, line)
}

// PnL records a floating profit/loss observation for a held symbol
func (l *Logger) PnL(symbol string, entry, current float64) {
	pct := (current - entry) / entry * 100
	l.write(LogLevelPnL, fmt.Sprintf("%s holding, entry: %.2f, current: %.2f, %s: %+.2f%%",
		symbol, entry, current, DirectionLabel(pct), pct))
}

// DirectionLabel names the sign of a PnL percentage
func DirectionLabel(pct float64) string {
	switch {
	case pct > 0:
		return "PROFIT"
	case pct < 0:
		return "LOSS"
	default:
		return "FLAT"
	}
}

func (l *Logger) write(level LogLevel, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry := fmt.Sprintf("[%s] [%s] %s\n", now.Format("2006-01-02 15:04:05"), level, message)

	if err := l.openFor(now); err != nil {
		fmt.Fprintf(l.console, "log write failed: %v\n", err)
	} else if _, err := l.file.WriteString(entry); err != nil {
		fmt.Fprintf(l.console, "log write failed: %v\n", err)
	}
	fmt.Fprint(l.console, entry)

	l.cleanOldLogs(now)
}

// openFor makes sure the handle points at the file for now's date. Caller holds mu.
func (l *Logger) openFor(now time.Time) error {
	date := now.Format(dateLayout)
	if l.file != nil && l.fileDate == date {
		return nil
	}
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	file, err := os.OpenFile(filepath.Join(l.dir, date+".txt"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	l.file = file
	l.fileDate = date
	return nil
}

// CleanOldLogs deletes daily files older than the retention window and
// returns how many were removed.
func (l *Logger) CleanOldLogs() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cleanOldLogs(l.now())
}

func (l *Logger) cleanOldLogs(now time.Time) int {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return 0
	}

	today, _ := time.ParseInLocation(dateLayout, now.Format(dateLayout), now.Location())
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".txt") {
			continue
		}
		fileDate, err := time.ParseInLocation(dateLayout, strings.TrimSuffix(name, ".txt"), now.Location())
		if err != nil {
			continue
		}
		age := int(math.Round(today.Sub(fileDate).Hours() / 24))
		if age > l.keepDays {
			if err := os.Remove(filepath.Join(l.dir, name)); err == nil {
				removed++
				fmt.Fprintf(l.console, "🗑️ removed old log %s (%d days)\n", name, age)
			}
		}
	}
	return removed
}

// Tail returns up to n trailing lines of today's log
func (l *Logger) Tail(n int) ([]string, error) {
	l.mu.Lock()
	path := filepath.Join(l.dir, l.now().Format(dateLayout)+".txt")
	l.mu.Unlock()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, scanner.Err()
}

// GetLogPath returns today's log file path
func (l *Logger) GetLogPath() string {
	return filepath.Join(l.dir, l.now().Format(dateLayout)+".txt")
}

// Close closes the current file handle
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
