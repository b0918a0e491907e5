// Package logger wraps zap with the console/JSON output switch and a set
// of global package-level helpers used by the monitor, transports, and CLI.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the process-wide structured logger.
	Logger *zap.SugaredLogger
	// JSONOutput tracks whether Initialize was last called with JSON output.
	JSONOutput bool
)

func init() {
	// Safe no-op logger so package-level calls never panic before
	// Initialize runs.
	Logger = zap.NewNop().Sugar()
}

// Initialize sets up the global logger at the zap level corresponding to
// verbosity (see VerbosityToLevel). Human-readable console output is the
// CLI default; JSON output suits daemonized server/client processes whose
// logs get shipped elsewhere.
func Initialize(jsonOutput bool, verbosity int) error {
	JSONOutput = jsonOutput
	level := VerbosityToLevel(verbosity)

	var zapLogger *zap.Logger
	var err error

	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		zapLogger, err = config.Build()
	} else {
		encoderCfg := zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		zapLogger = zap.New(
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(encoderCfg),
				zapcore.AddSync(os.Stdout),
				level,
			),
		)
	}

	if err != nil {
		return err
	}

	Logger = zapLogger.Sugar()
	return nil
}

// Cleanup flushes buffered log entries. Errors from Sync are often
// ignorable for stdout/stderr (EINVAL on macOS/Linux terminals).
func Cleanup() error {
	if Logger != nil {
		return Logger.Sync()
	}
	return nil
}

func Info(args ...interface{})                 { Logger.Info(args...) }
func Infof(format string, args ...interface{}) { Logger.Infof(format, args...) }
func Infow(msg string, kv ...interface{})      { Logger.Infow(msg, kv...) }

func Error(args ...interface{})                 { Logger.Error(args...) }
func Errorf(format string, args ...interface{}) { Logger.Errorf(format, args...) }
func Errorw(msg string, kv ...interface{})      { Logger.Errorw(msg, kv...) }

func Warn(args ...interface{})                 { Logger.Warn(args...) }
func Warnf(format string, args ...interface{}) { Logger.Warnf(format, args...) }
func Warnw(msg string, kv ...interface{})      { Logger.Warnw(msg, kv...) }

func Debug(args ...interface{})                 { Logger.Debug(args...) }
func Debugf(format string, args ...interface{}) { Logger.Debugf(format, args...) }
func Debugw(msg string, kv ...interface{})      { Logger.Debugw(msg, kv...) }
