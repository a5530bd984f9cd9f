package monitoring

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the level, encoding and destination of the process logger.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	Output string // stdout, stderr, or file path
}

var (
	mu     sync.RWMutex
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
	once sync.Map
)

// Logf is the package-level diagnostic logger. It defaults to a zerolog
// console logger on stderr but may be replaced by SetLogger. Tests or
// production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	Logger().Info().Msgf(format, v...)
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Logger returns the structured logger shared by the process.
func Logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

// New builds a zerolog logger from cfg and installs it as the process
// logger; Logf is rerouted to it at info level.
func New(cfg Config) (zerolog.Logger, error) {
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level: %w", err)
	}

	var out io.Writer
	switch cfg.Output {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("could not open log file: %w", err)
		}
		out = f
	}

	switch cfg.Format {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q: expected console or json", cfg.Format)
	}

	l := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	mu.Lock()
	logger = l
	mu.Unlock()
	SetLogger(func(format string, v ...interface{}) {
		Logger().Info().Msgf(format, v...)
	})
	return l, nil
}

// Once logs the message through Logf the first time key is seen and
// drops later calls with the same key.
func Once(key, format string, v ...interface{}) {
	if _, loaded := once.LoadOrStore(key, struct{}{}); loaded {
		return
	}
	Logf(format, v...)
}

// ResetOnce forgets every key recorded by Once.
func ResetOnce() {
	once.Range(func(k, _ any) bool {
		once.Delete(k)
		return true
	})
}
