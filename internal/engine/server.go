package engine

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/muurk/tlsprobe/internal/logging"
)

// maxPlaintext is the largest TLS record payload.
const maxPlaintext = 16384

var (
	// ErrClosed is returned once the engine can no longer carry data in the
	// requested direction.
	ErrClosed = errors.New("engine: connection closed")
	// ErrNotActive is returned by Send before the handshake has completed.
	ErrNotActive = errors.New("engine: cannot send data on inactive channel")
)

// SessionStore persists serialized TLS sessions under opaque identifiers.
// Implementations must be safe for concurrent use.
type SessionStore interface {
	Save(ctx context.Context, id, state []byte) error
	Load(ctx context.Context, id []byte) ([]byte, error)
}

// Config holds the objects shared by every engine of a server.
type Config struct {
	// TLS is the base configuration. It is cloned per connection and never
	// modified. Its GetConfigForClient, WrapSession and UnwrapSession fields
	// are overridden.
	TLS *tls.Config
	// Store enables stateful session tickets. Optional.
	Store SessionStore
	// LocalAddr and RemoteAddr are reported through tls.ClientHelloInfo.
	LocalAddr  net.Addr
	RemoteAddr net.Addr
}

type callbackRef struct {
	Callbacks
}

// Server is the server side of one TLS connection.
type Server struct {
	base  *tls.Config
	store SessionStore

	cb   atomic.Pointer[callbackRef]
	conn *pipeConn
	tls  *tls.Conn

	// sniffer is only touched by ReceivedData.
	sniffer helloSniffer

	// issuedID and resumedID are only touched by the engine goroutine.
	issuedID  []byte
	resumedID []byte

	active      atomic.Bool
	closedRead  atomic.Bool
	closedWrite atomic.Bool
	released    atomic.Bool
	releaseOnce sync.Once

	done chan struct{}
	mu   sync.Mutex
	err  error
}

// NewServer starts an engine reporting to cb.
func NewServer(cb Callbacks, cfg Config) *Server {
	e := &Server{
		base:  cfg.TLS,
		store: cfg.Store,
		done:  make(chan struct{}),
	}
	e.cb.Store(&callbackRef{cb})
	e.conn = newPipeConn(e.emit, cfg.LocalAddr, cfg.RemoteAddr)

	tlsCfg := cfg.TLS.Clone()
	tlsCfg.GetConfigForClient = e.configForClient
	e.tls = tls.Server(e.conn, tlsCfg)

	go e.run()
	return e
}

// ReceivedData feeds ciphertext to the engine and returns once it has all
// been processed. Any callbacks fire before it returns. data is not retained.
func (e *Server) ReceivedData(data []byte) error {
	if e.released.Load() {
		return ErrClosed
	}
	if e.closedRead.Load() {
		if err := e.failure(); err != nil {
			return err
		}
		return ErrClosed
	}
	if len(data) == 0 {
		return nil
	}

	e.inspect(data)

	select {
	case e.conn.feed <- append([]byte(nil), data...):
	case <-e.done:
		return e.failure()
	}

	select {
	case <-e.conn.idle:
	case <-e.done:
	}
	return e.failure()
}

// Send encrypts data as application records.
func (e *Server) Send(data []byte) error {
	if e.released.Load() || e.closedWrite.Load() {
		return ErrClosed
	}
	if !e.active.Load() {
		return ErrNotActive
	}
	_, err := e.tls.Write(data)
	return err
}

// Close sends close_notify and marks the engine closed for writing. Further
// calls do nothing.
func (e *Server) Close() {
	if e.released.Load() || e.closedWrite.Swap(true) {
		return
	}
	if err := e.tls.CloseWrite(); err != nil {
		logging.Debug("close_notify not sent", zap.Error(err))
	}
}

// IsClosedForReading reports whether the peer closed, an alert arrived or a
// protocol error occurred.
func (e *Server) IsClosedForReading() bool {
	return e.closedRead.Load()
}

// IsClosedForWriting reports whether Close was called or a protocol error
// occurred.
func (e *Server) IsClosedForWriting() bool {
	return e.closedWrite.Load()
}

// Release stops the engine goroutine and drops the callbacks. No callback
// fires after Release returns. It must not be called from a callback.
func (e *Server) Release() {
	e.releaseOnce.Do(func() {
		e.released.Store(true)
		e.cb.Store(nil)
		e.closedRead.Store(true)
		e.closedWrite.Store(true)
		_ = e.conn.Close()
	})
}

// Done is closed when the engine goroutine has exited.
func (e *Server) Done() <-chan struct{} {
	return e.done
}

func (e *Server) callbacks() Callbacks {
	if ref := e.cb.Load(); ref != nil {
		return ref.Callbacks
	}
	return nil
}

func (e *Server) failure() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *Server) fail(err error) {
	e.mu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.mu.Unlock()
	e.closedRead.Store(true)
	e.closedWrite.Store(true)
}

func (e *Server) emit(p []byte) {
	logging.LogRawBytes("TLS output", p)
	if cb := e.callbacks(); cb != nil {
		cb.EmitOutput(append([]byte(nil), p...))
	}
}

// inspect runs the ClientHello sniffer over inbound bytes.
func (e *Server) inspect(data []byte) {
	hello, err := e.sniffer.feed(data)
	if err != nil {
		logging.Debug("ClientHello not inspected", zap.Error(err))
		return
	}
	if hello == nil {
		return
	}
	if cb := e.callbacks(); cb != nil {
		cb.InspectHandshakeMessage(hello)
	}
}

func (e *Server) run() {
	defer close(e.done)

	if err := e.tls.HandshakeContext(context.Background()); err != nil {
		e.readFailed(err)
		return
	}
	e.active.Store(true)

	sessionID := e.issuedID
	state := e.tls.ConnectionState()
	if state.DidResume && e.resumedID != nil {
		sessionID = e.resumedID
	}
	if cb := e.callbacks(); cb != nil {
		cb.SessionEstablished(summarize(state, sessionID))
		cb.SessionActivated()
	}

	buf := make([]byte, maxPlaintext)
	var seq uint64
	for {
		n, err := e.tls.Read(buf)
		if n > 0 {
			if cb := e.callbacks(); cb != nil {
				if cbErr := cb.RecordReceived(seq, buf[:n]); cbErr != nil {
					e.fail(cbErr)
					return
				}
			}
			seq++
		}
		if err != nil {
			e.readFailed(err)
			return
		}
	}
}

// readFailed classifies an error from the TLS read side.
func (e *Server) readFailed(err error) {
	if e.released.Load() {
		return
	}
	if alert, ok := alertFromError(err); ok {
		e.closedRead.Store(true)
		if cb := e.callbacks(); cb != nil {
			cb.AlertReceived(alert)
		}
		return
	}
	e.fail(err)
}

// configForClient specialises the base configuration for one handshake.
func (e *Server) configForClient(hello *tls.ClientHelloInfo) (*tls.Config, error) {
	cfg := e.base.Clone()
	cfg.GetConfigForClient = nil

	if len(hello.SupportedProtos) > 0 {
		if cb := e.callbacks(); cb != nil {
			chosen := cb.ChooseApplicationProtocol(hello.SupportedProtos)
			cfg.NextProtos = nil
			for _, p := range hello.SupportedProtos {
				if p == chosen {
					cfg.NextProtos = []string{chosen}
					break
				}
			}
		}
	}

	if e.store != nil {
		cfg.WrapSession = e.wrapSession
		cfg.UnwrapSession = e.unwrapSession
	}
	return cfg, nil
}

func (e *Server) wrapSession(_ tls.ConnectionState, ss *tls.SessionState) ([]byte, error) {
	state, err := ss.Bytes()
	if err != nil {
		return nil, err
	}
	id := ulid.Make()
	if err := e.store.Save(context.Background(), id[:], state); err != nil {
		return nil, err
	}
	e.issuedID = id[:]
	return id[:], nil
}

func (e *Server) unwrapSession(identity []byte, _ tls.ConnectionState) (*tls.SessionState, error) {
	data, err := e.store.Load(context.Background(), identity)
	if err != nil {
		logging.Debug("Session not resumable", zap.Binary("identity", identity), zap.Error(err))
		return nil, nil
	}
	ss, err := tls.ParseSessionState(data)
	if err != nil {
		logging.Debug("Discarding unparsable session", zap.Error(err))
		return nil, nil
	}
	e.resumedID = append([]byte(nil), identity...)
	return ss, nil
}
