package engine

import (
	"crypto/tls"
)

// SessionSummary describes a negotiated session.
type SessionSummary struct {
	Version     string
	CipherSuite string
	// SessionID identifies the issued or resumed session in the session
	// store. Empty when no store is configured or no ticket was issued.
	SessionID           []byte
	ServerName          string
	ApplicationProtocol string
	Resumed             bool
}

func summarize(state tls.ConnectionState, sessionID []byte) SessionSummary {
	return SessionSummary{
		Version:             tls.VersionName(state.Version),
		CipherSuite:         tls.CipherSuiteName(state.CipherSuite),
		SessionID:           sessionID,
		ServerName:          state.ServerName,
		ApplicationProtocol: state.NegotiatedProtocol,
		Resumed:             state.DidResume,
	}
}
