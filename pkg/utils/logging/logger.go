package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls where and how much the logger writes
type Options struct {
	Env          string
	Dir          string        // log file directory, "logs" when empty
	ConsoleLevel zapcore.Level // Info by default
	Console      io.Writer     // os.Stderr when nil so command output on stdout stays clean
}

// InitLogger initializes a zap logger with console and file outputs.
// env is used to prefix the log file name and level sets the console threshold.
func InitLogger(env, level string) (*zap.Logger, error) {
	return NewAtLevel(Options{Env: env}, level)
}

// NewAtLevel is New with the console threshold given as a config string.
// A bad level fails before any log file is created.
func NewAtLevel(opts Options, level string) (*zap.Logger, error) {
	parsed, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts.ConsoleLevel = parsed
	return New(opts)
}

// New builds a logger that tees human-readable console output with a JSON log file
func New(opts Options) (*zap.Logger, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	env := opts.Env
	if env == "" {
		env = "dev"
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logFileName := filepath.Join(dir, fmt.Sprintf("%s_%s.log", env, timestamp))
	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var console io.Writer = os.Stderr
	if opts.Console != nil {
		console = opts.Console
	}

	consoleConfig := zap.NewDevelopmentEncoderConfig()
	consoleConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if opts.Console != nil {
		// No colour codes outside a terminal
		consoleConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	fileConfig := zap.NewProductionEncoderConfig()
	fileConfig.TimeKey = "timestamp"
	fileConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.AddSync(console), opts.ConsoleLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), zapcore.AddSync(logFile), zapcore.DebugLevel),
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).
		With(zap.String("env", env))

	return logger, nil
}

// ParseLevel converts a config string such as "debug" or "warn" into a zap level
func ParseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("failed to parse log level %q: %w", level, err)
	}
	return parsed, nil
}
