package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/AbdelilahOu/MssqlMcp/internal/config"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var slogLevels = map[LogLevel]slog.Level{
	DEBUG: slog.LevelDebug,
	INFO:  slog.LevelInfo,
	WARN:  slog.LevelWarn,
	ERROR: slog.LevelError,
}

// maxQueryLogLength bounds how much of a statement ends up in a log line.
const maxQueryLogLength = 100

type Logger struct {
	slogger  *slog.Logger
	logLevel LogLevel
	logFile  *os.File
}

func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func LogLevelString(level LogLevel) string {
	if name, exists := levelNames[level]; exists {
		return name
	}
	return "INFO"
}

func ConfigFromLoggingConfig(logCfg config.LoggingConfig) Config {
	return Config{
		Level:      ParseLogLevel(logCfg.Level),
		OutputFile: logCfg.OutputFile,
		MaxSize:    logCfg.MaxSizeMB,
		Console:    logCfg.Console,
	}
}

type Config struct {
	Level      LogLevel
	OutputFile string
	MaxSize    int64
	Console    bool

	// ConsoleWriter defaults to os.Stderr. Stdout is reserved for the stdio
	// transport and must never receive log lines.
	ConsoleWriter io.Writer
}

var globalLogger *Logger

func Initialize(cfg Config) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	globalLogger = logger
	return nil
}

func NewLogger(cfg Config) (*Logger, error) {
	logger := &Logger{
		logLevel: cfg.Level,
	}

	console := cfg.ConsoleWriter
	if console == nil {
		console = os.Stderr
	}

	var writers []io.Writer

	if cfg.Console {
		writers = append(writers, console)
	}

	if cfg.OutputFile != "" {
		dir := filepath.Dir(cfg.OutputFile)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}

		if err := rotateLogIfNeeded(cfg.OutputFile, cfg.MaxSize*1024*1024); err != nil {
			return nil, fmt.Errorf("failed to rotate log: %w", err)
		}

		file, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.logFile = file
		writers = append(writers, file)
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = io.Discard
	case 1:
		writer = writers[0]
	default:
		writer = io.MultiWriter(writers...)
	}

	logger.slogger = slog.New(tint.NewHandler(writer, &tint.Options{
		Level: slogLevels[cfg.Level],
		// no escape codes in log files
		NoColor: cfg.OutputFile != "",
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
			}
			return a
		},
	}))

	return logger, nil
}

func rotateLogIfNeeded(filename string, maxSize int64) error {
	if maxSize <= 0 {
		return nil
	}

	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if info.Size() >= maxSize {
		timestamp := time.Now().Format("20060102-150405")
		backupName := fmt.Sprintf("%s.%s", filename, timestamp)
		if err := os.Rename(filename, backupName); err != nil {
			return fmt.Errorf("failed to rotate log file: %w", err)
		}
	}

	return nil
}

// Slog exposes the underlying structured logger for components that take a
// *slog.Logger directly.
func (l *Logger) Slog() *slog.Logger {
	return l.slogger
}

func (l *Logger) Close() error {
	if l.logFile != nil {
		return l.logFile.Close()
	}
	return nil
}

func (l *Logger) shouldLog(level LogLevel) bool {
	return level >= l.logLevel
}

func (l *Logger) log(level LogLevel, msg string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}

	l.slogger.Log(context.Background(), slogLevels[level], msg, args...)
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(DEBUG, msg, firstFields(fields))
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(INFO, msg, firstFields(fields))
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(WARN, msg, firstFields(fields))
}

func (l *Logger) Error(msg string, err error, fields ...map[string]interface{}) {
	fieldMap := firstFields(fields)
	if err != nil {
		fieldMap["error"] = err.Error()
	}
	l.log(ERROR, msg, fieldMap)
}

func firstFields(fields []map[string]interface{}) map[string]interface{} {
	fieldMap := make(map[string]interface{})
	if len(fields) > 0 {
		for k, v := range fields[0] {
			fieldMap[k] = v
		}
	}
	return fieldMap
}

func Debug(msg string, fields ...map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.Debug(msg, fields...)
	}
}

func Info(msg string, fields ...map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.Info(msg, fields...)
	}
}

func Warn(msg string, fields ...map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.Warn(msg, fields...)
	}
}

func Error(msg string, err error, fields ...map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.Error(msg, err, fields...)
	}
}

func LogToolCall(toolName, requestID string, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"tool":        toolName,
		"request_id":  requestID,
		"duration_ms": duration.Milliseconds(),
	}
	if err != nil {
		Error("Tool call failed", err, fields)
	} else {
		Info("Tool call completed", fields)
	}
}

func LogDatabaseOperation(operation, query string, rowCount int64, err error) {
	fields := map[string]interface{}{
		"operation": operation,
		"query":     TruncateQuery(query),
	}
	if err != nil {
		Error("Database operation failed", err, fields)
		return
	}
	fields["rows"] = rowCount
	Info("Database operation completed", fields)
}

func LogConnectionEvent(event, target string, err error) {
	fields := map[string]interface{}{
		"event":  event,
		"target": target,
	}
	if err != nil {
		Error("Connection event failed", err, fields)
	} else {
		Info("Connection event completed", fields)
	}
}

// TruncateQuery shortens a statement for logging.
func TruncateQuery(query string) string {
	query = strings.Join(strings.Fields(query), " ")
	if len(query) > maxQueryLogLength {
		return query[:maxQueryLogLength] + "..."
	}
	return query
}

func GetGlobalLogger() *Logger {
	return globalLogger
}

// Slog returns the global structured logger, or a discarding one before
// Initialize has run.
func Slog() *slog.Logger {
	if globalLogger != nil {
		return globalLogger.slogger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func Shutdown() error {
	if globalLogger != nil {
		return globalLogger.Close()
	}
	return nil
}
