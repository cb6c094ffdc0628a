package internal

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logLevel = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	logger   = newLogger()
)

func newLogger() *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = logLevel
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// SetVerbose switches the global log level between warn (default) and debug.
func SetVerbose(verbose bool) {
	if verbose {
		logLevel.SetLevel(zapcore.DebugLevel)
	} else {
		logLevel.SetLevel(zapcore.WarnLevel)
	}
}

// LogError logs a developer-visible error.
func LogError(format string, args ...any) {
	logger.Errorf(format, args...)
}

// LogWarn logs a developer-visible warning.
func LogWarn(format string, args ...any) {
	logger.Warnf(format, args...)
}

// LogInfo logs an informational message.
func LogInfo(format string, args ...any) {
	logger.Infof(format, args...)
}

// LogDebug logs a debug message, shown only in verbose mode.
func LogDebug(format string, args ...any) {
	logger.Debugf(format, args...)
}
