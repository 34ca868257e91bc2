package ticketstore

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Load for unknown or expired sessions.
	ErrNotFound = errors.New("ticketstore: session not found")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("ticketstore: closed")
)

const (
	// DefaultLifetime matches the lifetime crypto/tls advertises for tickets.
	DefaultLifetime = 7 * 24 * time.Hour
	// DefaultCapacity bounds the in-memory store.
	DefaultCapacity = 10000
)
