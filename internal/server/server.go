package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/tlsprobe/internal/engine"
	"github.com/muurk/tlsprobe/internal/logging"
	"github.com/muurk/tlsprobe/internal/reactor"
)

// DefaultShutdownTimeout bounds how long Shutdown waits for live sessions.
const DefaultShutdownTimeout = 10 * time.Second

// Config holds the server configuration
type Config struct {
	Host string
	Port int
	// Threads is the worker pool size. Zero uses reactor.DefaultSize.
	Threads int
	// MaxClients stops acceptance after that many connections. Zero means
	// unbounded.
	MaxClients uint64

	// TLS is shared by every session and never modified.
	TLS *tls.Config
	// Store enables stateful session tickets. Optional.
	Store engine.SessionStore
	// Metrics is optional.
	Metrics *Metrics
	// EngineFactory overrides the TLS engine. Optional.
	EngineFactory EngineFactory

	ShutdownTimeout time.Duration
}

// Server accepts connections and runs one Session per connection on a shared
// worker pool.
type Server struct {
	config  Config
	pool    *reactor.Pool
	cap     *ServiceCap
	factory EngineFactory
	metrics *Metrics

	mu       sync.Mutex
	listener net.Listener
	sessions map[*Session]struct{}
	closing  bool
	wg       sync.WaitGroup
}

// New creates a new Server instance
func New(config Config) (*Server, error) {
	if config.TLS == nil && config.EngineFactory == nil {
		return nil, errors.New("server: TLS configuration is required")
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}

	s := &Server{
		config:   config,
		pool:     reactor.NewPool(config.Threads),
		cap:      NewServiceCap(config.MaxClients),
		factory:  config.EngineFactory,
		metrics:  config.Metrics,
		sessions: make(map[*Session]struct{}),
	}
	if s.factory == nil {
		s.factory = s.newTLSEngine
	}
	s.metrics.observePool(s.pool)
	return s, nil
}

func (s *Server) newTLSEngine(cb engine.Callbacks, conn net.Conn) Engine {
	return engine.NewServer(cb, engine.Config{
		TLS:        s.config.TLS,
		Store:      s.config.Store,
		LocalAddr:  conn.LocalAddr(),
		RemoteAddr: conn.RemoteAddr(),
	})
}

// Listen opens the listening socket. Serve calls it when needed.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	return nil
}

// Addr returns the listening address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Threads returns the worker pool size.
func (s *Server) Threads() int {
	return s.pool.Size()
}

// Cap returns the service cap tracker.
func (s *Server) Cap() *ServiceCap {
	return s.cap
}

// Serve accepts connections until the cap is reached or accepting fails, then
// waits for every session to finish. When ctx is cancelled it shuts down
// instead.
func (s *Server) Serve(ctx context.Context) error {
	if s.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	logging.Info("Server listening for connections",
		zap.String("addr", s.Addr().String()),
		zap.Int("threads", s.pool.Size()),
		zap.Uint64("max_clients", s.cap.Max()),
	)

	acceptDone := make(chan error, 1)
	go func() {
		acceptDone <- s.acceptConnections()
	}()

	var acceptErr error
	select {
	case acceptErr = <-acceptDone:
	case <-ctx.Done():
		logging.Info("Shutdown requested, stopping server...")
		return s.Shutdown(context.Background())
	}

	done := make(chan struct{})
	go func() {
		s.waitSessions()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logging.Info("Shutdown requested, stopping server...")
		return s.Shutdown(context.Background())
	}

	s.pool.Close()
	logging.Info("All sessions finished",
		zap.Uint64("serviced", s.cap.Serviced()),
	)
	return acceptErr
}

// acceptConnections accepts connections until the cap is reached or Accept
// fails.
func (s *Server) acceptConnections() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			s.metrics.sessionError(errKindAccept)
			return fmt.Errorf("accept: %w", err)
		}

		s.metrics.accepted()
		s.startSession(conn)
		s.cap.RecordService()

		if s.cap.ShouldStopAccepting() {
			logging.Info("Connection cap reached, no longer accepting",
				zap.Uint64("serviced", s.cap.Serviced()),
			)
			s.closeListener()
			return nil
		}
	}
}

func (s *Server) startSession(conn net.Conn) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	sess := newSession(conn, reactor.NewStrand(s.pool), s.factory, s.metrics, s.sessionFinished)
	s.sessions[sess] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	s.metrics.sessionStarted()
	logging.LogConnection(conn.RemoteAddr().String(), "connection_accepted")
	sess.Start()
}

func (s *Server) sessionFinished(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()

	s.metrics.sessionFinished()
	s.wg.Done()
}

func (s *Server) waitSessions() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) closeListener() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}
}

// Shutdown stops accepting, aborts every live session and waits for them to
// finish, bounded by ctx and the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.closeListener()

	s.mu.Lock()
	s.closing = true
	live := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()

	for _, sess := range live {
		logging.Info("Closing active connection", zap.String("remote_addr", sess.clientAddr))
		sess.Abort()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		logging.Info("All connections closed gracefully")
		s.pool.Close()
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
		err = ctx.Err()
	case <-time.After(s.config.ShutdownTimeout):
		logging.Warn("Shutdown timeout, forcing close",
			zap.Duration("timeout", s.config.ShutdownTimeout),
		)
	}

	logging.Sync()
	return err
}

// ActiveSessions returns the number of sessions that have not finished
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
