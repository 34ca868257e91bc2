// Package logging provides structured logging for tlsprobe.
//
// The package wraps a global zap logger with convenience functions for the
// events the responder reports: accepted and closed connections, completed
// handshakes, received alerts, HTTP requests and responses, and failures that
// end a session.
//
// # Log Levels
//
//   - Debug: raw record dumps, strand and engine traces
//   - Info: connections, handshakes, requests, responses
//   - Warn: sessions torn down by protocol or transport failures
//   - Error: acceptor failures, startup problems
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// An empty level falls back to TLSPROBE_LOG_LEVEL; if that is empty too the
// logger is a no-op.
//
// # Thread Safety
//
// All functions are safe for concurrent use. SetLogger may be called at any
// time; subsequent calls observe the new logger.
package logging
