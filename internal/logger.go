package internal

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

type FieldKey string

const (
	FieldError   FieldKey = "error"
	FieldMsg     FieldKey = "message"
	FieldBase    FieldKey = "base"
	FieldVolume  FieldKey = "volume"
	FieldIndex   FieldKey = "index"
	FieldSize    FieldKey = "size"
	FieldLength  FieldKey = "length"
	FieldMode    FieldKey = "mode"
	FieldBackend FieldKey = "backend"
	FieldBytes   FieldKey = "bytes"
	FieldLimit   FieldKey = "limit"
	ConfigPath   FieldKey = "config_path"
)

type Fields map[FieldKey]any

// merge returns a new map holding f overlaid with other.
func (f Fields) merge(other Fields) Fields {
	if len(f) == 0 {
		return other
	}
	if len(other) == 0 {
		return f
	}
	out := make(Fields, len(f)+len(other))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

type Level = pterm.LogLevel

const (
	LevelTrace Level = pterm.LogLevelTrace
	LevelDebug Level = pterm.LogLevelDebug
	LevelInfo  Level = pterm.LogLevelInfo
	LevelWarn  Level = pterm.LogLevelWarn
	LevelError Level = pterm.LogLevelError
)

var levelNames = map[string]Level{
	"trace":   LevelTrace,
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

// ParseLevel maps a configured level name to a Level. Empty means info.
func ParseLevel(name string) (Level, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return LevelInfo, nil
	}
	lvl, ok := levelNames[name]
	if !ok {
		return LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
	return lvl, nil
}

// sink is the process wide pterm logger every Entry writes through. Volume
// data may be streamed on stdout, so output goes to stderr.
type sink struct {
	mu     sync.RWMutex
	logger *pterm.Logger
	level  Level
}

var output = &sink{
	logger: pterm.DefaultLogger.WithTime(true).
		WithTimeFormat(time.RFC3339).
		WithMaxWidth(120).
		WithCaller(false).
		WithWriter(os.Stderr).
		AppendKeyStyles(map[string]pterm.Style{
			string(FieldError):  *pterm.NewStyle(pterm.FgRed, pterm.Bold),
			string(FieldVolume): *pterm.NewStyle(pterm.FgCyan),
		}),
	level: LevelInfo,
}

func (s *sink) enabled(level Level) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return level >= s.level
}

func (s *sink) write(level Level, msg string, fields Fields) {
	if !s.enabled(level) {
		return
	}
	s.mu.RLock()
	logger := s.logger.WithLevel(s.level)
	s.mu.RUnlock()

	args := loggerArgs(fields)
	switch level {
	case LevelTrace:
		logger.Trace(msg, args)
	case LevelDebug:
		logger.Debug(msg, args)
	case LevelWarn:
		logger.Warn(msg, args)
	case LevelError:
		logger.Error(msg, args)
	default:
		logger.Info(msg, args)
	}
}

// loggerArgs orders fields by key so that lines are stable between runs.
func loggerArgs(fields Fields) []pterm.LoggerArgument {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	args := make([]pterm.LoggerArgument, 0, len(keys))
	for _, key := range keys {
		args = append(args, pterm.LoggerArgument{Key: key, Value: fields[FieldKey(key)]})
	}
	return args
}

func ConfigureLogger(level string) error {
	lvl, err := ParseLevel(level)
	SetLogLevel(lvl)
	return err
}

func SetLogLevel(level Level) {
	output.mu.Lock()
	defer output.mu.Unlock()
	output.level = level
	output.logger.Level = level
}

// SetLogWriter redirects log output, mostly for tests.
func SetLogWriter(w io.Writer) {
	output.mu.Lock()
	defer output.mu.Unlock()
	output.logger = output.logger.WithWriter(w)
}

// Entry is a logger carrying fields that are attached to every line, e.g.
// the base name of the stream being worked on.
type Entry struct {
	fields Fields
}

func WithFields(fields Fields) *Entry {
	return &Entry{fields: fields}
}

// With returns a child entry. Keys in fields override the parent's.
func (e *Entry) With(fields Fields) *Entry {
	if e == nil {
		return WithFields(fields)
	}
	return &Entry{fields: e.fields.merge(fields)}
}

func (e *Entry) Enabled(level Level) bool { return output.enabled(level) }

func (e *Entry) log(level Level, msg string, fields Fields) {
	var base Fields
	if e != nil {
		base = e.fields
	}
	output.write(level, msg, base.merge(fields))
}

func (e *Entry) Trace(msg string, fields Fields) { e.log(LevelTrace, msg, fields) }
func (e *Entry) Debug(msg string, fields Fields) { e.log(LevelDebug, msg, fields) }
func (e *Entry) Info(msg string, fields Fields)  { e.log(LevelInfo, msg, fields) }
func (e *Entry) Warn(msg string, fields Fields)  { e.log(LevelWarn, msg, fields) }
func (e *Entry) Error(msg string, fields Fields) { e.log(LevelError, msg, fields) }

func Trace(msg string, fields Fields) { output.write(LevelTrace, msg, fields) }
func Debug(msg string, fields Fields) { output.write(LevelDebug, msg, fields) }
func Info(msg string, fields Fields)  { output.write(LevelInfo, msg, fields) }
func Warn(msg string, fields Fields)  { output.write(LevelWarn, msg, fields) }
func Error(msg string, fields Fields) { output.write(LevelError, msg, fields) }
