package engine

// Callbacks receives engine events. Every callback runs while the call that
// triggered it (ReceivedData, Send or Close) is in progress.
type Callbacks interface {
	// ChooseApplicationProtocol picks one of the ALPN protocols offered by
	// the client. Returning "" or a protocol that was not offered disables
	// ALPN for the connection.
	ChooseApplicationProtocol(offered []string) string

	// RecordReceived delivers decrypted application data. seq counts
	// deliveries from zero. A non-nil error aborts the connection and is
	// returned from ReceivedData.
	RecordReceived(seq uint64, data []byte) error

	// EmitOutput delivers ciphertext to transmit. The slice is owned by the
	// callee.
	EmitOutput(data []byte)

	// SessionActivated fires once the handshake has completed and
	// application data may flow.
	SessionActivated()

	// SessionEstablished reports the negotiated parameters. It fires right
	// before SessionActivated.
	SessionEstablished(summary SessionSummary)

	// InspectHandshakeMessage exposes inbound handshake messages.
	InspectHandshakeMessage(msg HandshakeMessage)

	// AlertReceived reports an alert sent by the peer. The engine is closed
	// for reading afterwards.
	AlertReceived(alert Alert)
}
