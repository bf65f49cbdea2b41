// logging.go - Structured Logging Interface for the QSS Kernel
//
// Structured logging for a Simulation, installed per Simulation through
// WithLogger (there is no package-level logger), mirroring the donor
// eventloop package's bespoke Logger interface rather than adopting a
// generics-heavy facade: a Simulation's diagnostics are low-frequency and
// low-cardinality enough (lifecycle and zero-crossing messages,
// ModelFailure context) that the extra abstraction isn't warranted here.
//
// Usage:
//   sim, err := qss.NewSimulation(model, qss.WithLogger(qss.NewDefaultLogger(qss.LevelWarn)))

package qss

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-catrate"
)

// LogLevel represents the severity of a log message.
type LogLevel int32

const (
	// LevelDebug for detailed diagnostic information (per-step requantizations).
	LevelDebug LogLevel = iota

	// LevelInfo for general informational messages (simulation lifecycle).
	LevelInfo

	// LevelWarn for warning conditions (refinement non-convergence, clamped steps).
	LevelWarn

	// LevelError for error conditions (ModelFailure).
	LevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", l)
	}
}

// LogEntry represents a structured diagnostic message emitted by a
// Simulation.
type LogEntry struct {
	Level     LogLevel
	Category  string // "lifecycle", "zc", "model"
	Variable  string
	Time      float64 // simulation time the diagnostic pertains to
	Message   string
	Err       error
	Timestamp time.Time
}

// Logger is the structured logging interface a Simulation reports
// diagnostics through.
type Logger interface {
	Log(entry LogEntry)
	IsEnabled(level LogLevel) bool
}

// DefaultLogger implements Logger, writing plain text to the *os.File in
// Out (os.Stdout by default).
type DefaultLogger struct {
	level atomic.Int32
	mu    sync.Mutex
	Out   *os.File // public for testing
}

// NewDefaultLogger creates a logger with the specified minimum level.
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	l := &DefaultLogger{Out: os.Stdout}
	l.level.Store(int32(level))
	return l
}

// SetLevel dynamically changes the minimum log level.
func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

// IsEnabled checks if the specified level would be logged.
func (l *DefaultLogger) IsEnabled(level LogLevel) bool {
	return level >= LogLevel(l.level.Load())
}

// Log writes a structured log entry.
func (l *DefaultLogger) Log(entry LogEntry) {
	if !l.IsEnabled(entry.Level) {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.Out, "[%s] t=%g [%-12s]", entry.Level, entry.Time, entry.Category)
	if entry.Variable != "" {
		fmt.Fprintf(l.Out, " var=%s", entry.Variable)
	}
	fmt.Fprintf(l.Out, " %s", entry.Message)
	if entry.Err != nil {
		fmt.Fprintf(l.Out, ": %v", entry.Err)
	}
	fmt.Fprintln(l.Out)
}

// NoOpLogger discards every entry. It is the Simulation default.
type NoOpLogger struct{}

// NewNoOpLogger returns a Logger that discards everything.
func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

func (l *NoOpLogger) Log(entry LogEntry)            {}
func (l *NoOpLogger) IsEnabled(level LogLevel) bool { return false }

// diagnostics bundles a Logger with a go-catrate rate limiter, which warn
// uses to bound repeated LevelWarn diagnostics per category; info and
// errorf are not rate-limited, and no kernel code path calls warn. One
// diagnostics lives on
// each Simulation; it is not safe for concurrent use, consistent with the
// kernel's single-threaded execution model (spec §5).
type diagnostics struct {
	logger  Logger
	limiter *catrate.Limiter
}

func newDiagnostics(logger Logger, rates map[time.Duration]int) *diagnostics {
	return &diagnostics{
		logger:  logger,
		limiter: catrate.NewLimiter(rates),
	}
}

// warn reports a rate-limited LevelWarn diagnostic under category. It
// returns ErrLimited (without logging) if the category's rate was
// exceeded, so callers that must know whether the message was actually
// surfaced (e.g. to decide whether to escalate) can check via errors.Is.
func (d *diagnostics) warn(category, variable string, t float64, message string, cause error) error {
	if _, ok := d.limiter.Allow(category); !ok {
		return ErrLimited
	}
	if d.logger.IsEnabled(LevelWarn) {
		d.logger.Log(LogEntry{
			Level:    LevelWarn,
			Category: category,
			Variable: variable,
			Time:     t,
			Message:  message,
			Err:      cause,
		})
	}
	return nil
}

// info reports an unthrottled LevelInfo diagnostic (simulation lifecycle
// events: Init, PreSimulate, completion). Lifecycle events are low enough
// frequency that rate-limiting would only hide real information.
func (d *diagnostics) info(category string, t float64, message string) {
	if d.logger.IsEnabled(LevelInfo) {
		d.logger.Log(LogEntry{
			Level:    LevelInfo,
			Category: category,
			Time:     t,
			Message:  message,
		})
	}
}

// errorf reports an unthrottled LevelError diagnostic: ModelFailure always
// aborts the dispatch loop, so there is no risk of log-spam to rate-limit.
func (d *diagnostics) errorf(category, variable string, t float64, cause error) {
	if d.logger.IsEnabled(LevelError) {
		d.logger.Log(LogEntry{
			Level:    LevelError,
			Category: category,
			Variable: variable,
			Time:     t,
			Message:  "model failure",
			Err:      cause,
		})
	}
}
