// Package engine adapts crypto/tls to a push-driven protocol engine.
//
// crypto/tls expects to own a net.Conn and pull ciphertext from it. The
// responder instead reads the socket itself and pushes ciphertext into the
// engine, receiving ciphertext to transmit and decrypted application data
// through callbacks:
//
//	socket bytes ──ReceivedData──▶ Server ──EmitOutput──▶ socket
//	                                 │
//	                                 └──RecordReceived──▶ application
//
// Each Server runs the TLS state machine on its own goroutine over an
// in-memory transport. ReceivedData hands the bytes to that goroutine and
// blocks until every byte has been consumed and the state machine is waiting
// for more, so all callbacks triggered by a call run before the call returns.
// Callers that serialize their calls (one per session strand) therefore see
// callbacks serialized with the rest of their handlers.
//
// # ClientHello inspection
//
// The first inbound handshake message is parsed with cryptobyte before the
// bytes reach crypto/tls, so InspectHandshakeMessage can report fields that
// tls.ClientHelloInfo does not expose, such as the client random.
//
// # Session resumption
//
// When a SessionStore is configured, issued tickets are opaque identifiers
// and the serialized tls.SessionState lives in the store. The identifier of an
// issued or resumed session is reported in SessionSummary.SessionID.
//
// # Lifetime
//
// The engine goroutine holds the Callbacks. Release ends the goroutine and
// drops the reference; owners must call it when the connection is finished.
package engine
