// Package ticketstore keeps serialized TLS sessions for stateful session
// resumption.
//
// The engine issues opaque ticket identifiers and stores the encoded
// tls.SessionState under them. Two stores are provided:
//
//   - Memory holds a bounded number of sessions in process memory. When full,
//     the oldest session is evicted. Sessions expire after a fixed lifetime.
//   - Badger persists sessions in an encrypted Badger database so they survive
//     restarts. The encryption key is derived from a passphrase with argon2id;
//     the salt is kept in a file next to the database directory.
//
// Both satisfy engine.SessionStore and are safe for concurrent use.
package ticketstore
