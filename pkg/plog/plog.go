// Package plog is the process-wide structured logger. It renders each
// record as "YYYY-MM-DD HH:MM:SS [LEVEL] message key=value ...", writes
// every line to stdout, mirrors ERROR to stderr, and keeps one log file per
// calendar day under logs/.
package plog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulschiretz/webdav-uploader/pkg/util"
)

const timeLayout = "2006-01-02 15:04:05"

// lineHandler renders records in the uploader's wire log-line format.
type lineHandler struct {
	mu      *sync.Mutex
	out     io.Writer
	mirror  io.Writer // additional writer for ERROR (stderr); nil for none
	minimum slog.Level
	attrs   []slog.Attr
}

func newLineHandler(out, mirror io.Writer, minimum slog.Level) *lineHandler {
	return &lineHandler{mu: &sync.Mutex{}, out: out, mirror: mirror, minimum: minimum}
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.minimum
}

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Time.Local().Format(timeLayout))
	b.WriteString(" [")
	b.WriteString(levelTag(r.Level))
	b.WriteString("] ")
	b.WriteString(r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Any())
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Any())
		return true
	})
	b.WriteByte('\n')
	line := b.String()

	h.mu.Lock()
	defer h.mu.Unlock()
	io.WriteString(h.out, line)
	if h.mirror != nil && r.Level >= slog.LevelError {
		io.WriteString(h.mirror, line)
	}
	return nil
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &lineHandler{mu: h.mu, out: h.out, mirror: h.mirror, minimum: h.minimum}
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return next
}

func (h *lineHandler) WithGroup(_ string) slog.Handler {
	return h
}

func levelTag(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

var (
	defaultLogger *slog.Logger
	quietMode     atomic.Bool
	currentLevel  atomic.Int64
	fileMu        sync.Mutex
	logDir        = "logs"
	openDay       string
	openFile      *os.File
)

// outputOverride is the writer set by SetOutput; nil means stdout/stderr plus
// the daily file.
var outputOverride io.Writer

func init() {
	currentLevel.Store(int64(slog.LevelInfo))
	rebuild(os.Stdout, os.Stderr)
}

// dailyWriter returns (opening as needed) the log file for the current
// local calendar day under logDir.
type dailyWriter struct{}

func (dailyWriter) Write(p []byte) (int, error) {
	f, err := currentDayFile()
	if err != nil {
		return 0, err
	}
	return f.Write(p)
}

func currentDayFile() (*os.File, error) {
	fileMu.Lock()
	defer fileMu.Unlock()

	day := time.Now().Local().Format("2006-01-02")
	if day == openDay && openFile != nil {
		return openFile, nil
	}
	if err := os.MkdirAll(logDir, util.UserWritableDirPerms); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	path := filepath.Join(logDir, day+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, util.UserWritableFilePerms)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	if openFile != nil {
		openFile.Close()
	}
	openFile = f
	openDay = day
	return f, nil
}

// multiWriter fans out to the daily file and a console stream.
type multiWriter struct {
	console io.Writer
}

func (m multiWriter) Write(p []byte) (int, error) {
	if n, err := (dailyWriter{}).Write(p); err != nil {
		return n, err
	}
	return m.console.Write(p)
}

func rebuild(stdout, stderr io.Writer) {
	level := slog.Level(currentLevel.Load())
	h := newLineHandler(multiWriter{console: stdout}, stderr, level)
	defaultLogger = slog.New(h)
}

// SetOutput redirects both console streams, primarily for testing; it
// disables the on-disk daily file and quiet mode.
func SetOutput(w io.Writer) {
	quietMode.Store(false)
	outputOverride = w
	h := newLineHandler(w, nil, slog.Level(currentLevel.Load()))
	defaultLogger = slog.New(h)
}

// SetLevel sets the minimum level that will be emitted (gates DEBUG).
func SetLevel(level slog.Level) {
	currentLevel.Store(int64(level))
	if outputOverride != nil {
		defaultLogger = slog.New(newLineHandler(outputOverride, nil, level))
		return
	}
	rebuild(os.Stdout, os.Stderr)
}

// LevelFromString parses the CLI/config log-level string.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetQuiet suppresses INFO and DEBUG output when true.
func SetQuiet(quiet bool) {
	quietMode.Store(quiet)
}

// IsQuiet reports the current quiet-mode setting.
func IsQuiet() bool {
	return quietMode.Load()
}

func Debug(msg string, args ...any) {
	if quietMode.Load() {
		return
	}
	defaultLogger.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	if quietMode.Load() {
		return
	}
	defaultLogger.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}
