package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// Logger is the global logger instance
	Logger zerolog.Logger
)

func init() {
	// Default logger (info level, JSON on stdout) until Init is called
	Logger = zerolog.New(os.Stdout).
		With().
		Timestamp().
		Caller().
		Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = Logger
}

// LogLevel represents the logging level
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init initializes the global logger with the specified level and output
func Init(level string, pretty bool) {
	InitWriter(os.Stdout, level, pretty)
}

// InitWriter is Init with an explicit destination
func InitWriter(w io.Writer, level string, pretty bool) {
	zerolog.SetGlobalLevel(ParseLevel(level))

	output := w
	if pretty {
		output = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	Logger = zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()

	log.Logger = Logger
}

// Get returns the global logger instance
func Get() *zerolog.Logger {
	return &Logger
}

// WithComponent returns a logger with a component field set
func WithComponent(component string) *zerolog.Logger {
	l := Logger.With().Str("component", component).Logger()
	return &l
}

// WithField adds a custom field to the logger
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Logger.With().Interface(key, value).Logger()
	return &l
}

// Occurrence tracks a recurring failure so it is logged once when it starts
// and once when it clears, instead of on every frame.
type Occurrence struct {
	mu     sync.Mutex
	active bool
	count  uint64
}

// Fail records a failure and reports whether this is the start of a new occurrence
func (o *Occurrence) Fail() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.count++
	if o.active {
		return false
	}
	o.active = true
	return true
}

// Clear ends the current occurrence. It returns the number of failures it
// covered, or 0 if nothing was failing.
func (o *Occurrence) Clear() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.active {
		return 0
	}
	n := o.count
	o.active = false
	o.count = 0
	return n
}

// Active reports whether an occurrence is in progress
func (o *Occurrence) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}
