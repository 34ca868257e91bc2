package logging

import (
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger *zap.Logger
)

// LogLevelEnvVar is the environment variable consulted when no level is
// passed to Initialize. When both are empty logging is silent.
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "TLSPROBE_LOG_LEVEL"

// Initialize creates a new logger with the specified level.
// If level is empty, it checks the TLSPROBE_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		SetLogger(zap.NewNop())
		return nil
	}

	zapLevel, err := ParseLevel(level)
	if err != nil {
		return err
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	built, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	SetLogger(built)

	return nil
}

// ParseLevel maps a level name onto a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q (use debug, info, warn or error)", level)
	}
}

// SetLogger replaces the global logger. Tests use it to install zaptest or
// observer loggers.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// LogConnection logs a connection event
func LogConnection(remoteAddr string, event string) {
	Info("Connection event",
		zap.String("remote_addr", remoteAddr),
		zap.String("event", event),
	)
}

// LogTLSHandshake logs the parameters a session settled on.
func LogTLSHandshake(remoteAddr string, version string, cipherSuite string, serverName string, resumed bool) {
	Info("TLS handshake completed",
		zap.String("remote_addr", remoteAddr),
		zap.String("tls_version", version),
		zap.String("cipher_suite", cipherSuite),
		zap.String("server_name", serverName),
		zap.Bool("resumed", resumed),
	)
}

// LogHTTPRequest logs an HTTP request
func LogHTTPRequest(remoteAddr string, method string, path string, headers map[string]string) {
	Info("HTTP request received",
		zap.String("remote_addr", remoteAddr),
		zap.String("method", method),
		zap.String("path", path),
		zap.Any("headers", headers),
	)
}

// LogHTTPResponse logs an HTTP response
func LogHTTPResponse(remoteAddr string, statusCode int, bodyLength int) {
	Info("HTTP response sent",
		zap.String("remote_addr", remoteAddr),
		zap.Int("status_code", statusCode),
		zap.Int("body_length", bodyLength),
	)
}

// LogException logs a failure that ended a connection.
func LogException(where string, remoteAddr string, err error) {
	Warn(where,
		zap.String("remote_addr", remoteAddr),
		zap.Error(err),
	)
}

// LogAlert logs a TLS alert received from the peer.
func LogAlert(remoteAddr string, alert string) {
	Info("Alert",
		zap.String("remote_addr", remoteAddr),
		zap.String("alert", alert),
	)
}

// LogRawBytes logs raw bytes (useful for debugging protocol issues)
func LogRawBytes(label string, data []byte) {
	l := GetLogger()
	if !l.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	l.Debug(label,
		zap.Int("length", len(data)),
		zap.String("hex", hexDump(data)),
		zap.String("ascii", asciiDump(data)),
	)
}

func hexDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	// Limit to first 256 bytes for logging
	if len(data) > 256 {
		return hex.EncodeToString(data[:256]) + "..."
	}
	return hex.EncodeToString(data)
}

func asciiDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) > 256 {
		data = data[:256]
	}

	result := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b <= 126 {
			result[i] = b
		} else {
			result[i] = '.'
		}
	}
	return string(result)
}

// Sync flushes any buffered log entries
func Sync() {
	_ = GetLogger().Sync()
}
