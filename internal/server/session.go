package server

import (
	"errors"
	"io"
	"net"

	"go.uber.org/zap"

	"github.com/muurk/tlsprobe/internal/engine"
	"github.com/muurk/tlsprobe/internal/httpreq"
	"github.com/muurk/tlsprobe/internal/logging"
	"github.com/muurk/tlsprobe/internal/reactor"
)

// readBufferSize is the capacity of a session's reusable read buffer.
const readBufferSize = 4096

// Engine is the protocol engine a session drives. *engine.Server implements
// it.
type Engine interface {
	ReceivedData(data []byte) error
	Send(data []byte) error
	Close()
	IsClosedForReading() bool
	IsClosedForWriting() bool
	Release()
}

// EngineFactory creates the engine for one connection.
type EngineFactory func(cb engine.Callbacks, conn net.Conn) Engine

// Session manages one client connection from accept until the socket is
// closed and no I/O is outstanding.
//
// Every handler runs on the session's strand. Socket reads and writes run on
// short-lived goroutines and post their completion back to the strand. Engine
// callbacks run inside ReceivedData, Send or Close, which are only called from
// strand handlers, so session state needs no locking.
type Session struct {
	conn       net.Conn
	strand     *reactor.Strand
	clientAddr string
	metrics    *Metrics

	readBuf []byte
	reading bool
	queue   writeQueue

	// engine is nil once the session has stopped.
	engine Engine
	parser *httpreq.Parser

	connectionSummary string
	sessionSummary    string
	helloSummary      string

	socketClosed bool
	finished     bool
	onFinish     func(*Session)
}

func newSession(conn net.Conn, strand *reactor.Strand, factory EngineFactory, metrics *Metrics, onFinish func(*Session)) *Session {
	s := &Session{
		conn:       conn,
		strand:     strand,
		clientAddr: clientAddress(conn.RemoteAddr()),
		metrics:    metrics,
		readBuf:    make([]byte, readBufferSize),
		onFinish:   onFinish,
	}
	s.engine = factory(s, conn)
	return s
}

// clientAddress returns the IP of addr, or addr itself when it has no port.
func clientAddress(addr net.Addr) string {
	if addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// Start begins the read loop.
func (s *Session) Start() {
	s.post(func() { s.startRead() })
}

// Abort stops the session from outside its strand, e.g. on shutdown.
func (s *Session) Abort() {
	s.post(func() { s.stop() })
}

// post runs fn on the strand. If the pool is gone the socket is closed so the
// peer is not left hanging.
func (s *Session) post(fn func()) {
	if err := s.strand.Post(fn); err != nil {
		logging.Warn("Session handler dropped",
			zap.String("remote_addr", s.clientAddr),
			zap.Error(err),
		)
		_ = s.conn.Close()
	}
}

func (s *Session) startRead() {
	if s.reading || s.socketClosed {
		return
	}
	s.reading = true
	go func() {
		n, err := s.conn.Read(s.readBuf)
		s.post(func() { s.onRead(n, err) })
	}()
}

func (s *Session) onRead(n int, err error) {
	s.reading = false
	s.metrics.received(n)

	if s.engine == nil {
		if n > 0 {
			logging.Debug("Received client data after close", zap.String("remote_addr", s.clientAddr))
		}
		s.maybeFinish()
		return
	}

	if n > 0 {
		if feedErr := s.engine.ReceivedData(s.readBuf[:n]); feedErr != nil {
			logging.LogException("TLS connection failed", s.clientAddr, feedErr)
			s.metrics.sessionError(errKindProtocol)
			s.stop()
			return
		}
	}

	if err != nil {
		s.readFailed(err)
		s.stop()
		return
	}

	if s.engine.IsClosedForReading() {
		s.stop()
		return
	}

	s.startRead()
}

func (s *Session) readFailed(err error) {
	switch {
	case errors.Is(err, io.EOF):
		logging.LogConnection(s.clientAddr, "peer_closed")
	case s.socketClosed:
		logging.Debug("Read ended by socket close", zap.String("remote_addr", s.clientAddr))
	default:
		logging.LogException("Read failed", s.clientAddr, err)
		s.metrics.sessionError(errKindTransport)
	}
}

// flush starts a write if none is in flight and output is pending.
func (s *Session) flush() {
	if s.socketClosed {
		return
	}
	buf := s.queue.next()
	if buf == nil {
		return
	}
	go func() {
		_, err := s.conn.Write(buf)
		s.post(func() { s.onWriteComplete(len(buf), err) })
	}()
}

func (s *Session) onWriteComplete(n int, err error) {
	s.queue.complete()

	if err != nil {
		if !s.socketClosed {
			logging.LogException("Write failed", s.clientAddr, err)
			s.metrics.sessionError(errKindTransport)
		}
		s.stop()
		s.closeSocket()
		s.maybeFinish()
		return
	}
	s.metrics.sent(n)

	if s.queue.idle() && (s.engine == nil || s.engine.IsClosedForWriting()) {
		s.closeSocket()
		s.maybeFinish()
		return
	}
	s.flush()
}

// stop closes and releases the engine. It is idempotent.
func (s *Session) stop() {
	if s.engine == nil {
		s.maybeFinish()
		return
	}

	e := s.engine
	e.Close()
	e.Release()
	s.engine = nil

	if !s.queue.inFlight() {
		s.closeSocket()
	}
	s.maybeFinish()
}

func (s *Session) closeSocket() {
	if s.socketClosed {
		return
	}
	s.socketClosed = true
	_ = s.conn.Close()
	logging.LogConnection(s.clientAddr, "connection_closed")
}

// maybeFinish reports the session as finished once the socket is closed and
// no read or write is outstanding.
func (s *Session) maybeFinish() {
	if s.finished || !s.socketClosed || s.reading || s.queue.inFlight() {
		return
	}
	s.finished = true
	if s.onFinish != nil {
		s.onFinish(s)
	}
}

// ChooseApplicationProtocol implements engine.Callbacks.
func (s *Session) ChooseApplicationProtocol(offered []string) string {
	return "http/1.1"
}

// RecordReceived implements engine.Callbacks.
func (s *Session) RecordReceived(seq uint64, data []byte) error {
	if s.parser == nil {
		s.parser = httpreq.NewParser(s)
	}
	return s.parser.Consume(data)
}

// EmitOutput implements engine.Callbacks. An empty payload only flushes.
func (s *Session) EmitOutput(data []byte) {
	if len(data) > 0 {
		if s.socketClosed {
			logging.Debug("Dropping output for closed socket",
				zap.String("remote_addr", s.clientAddr),
				zap.Int("length", len(data)),
			)
			return
		}
		s.queue.enqueue(data)
	}
	s.flush()
}

// SessionActivated implements engine.Callbacks.
func (s *Session) SessionActivated() {
	s.connectionSummary = connectionBanner()
}

// SessionEstablished implements engine.Callbacks.
func (s *Session) SessionEstablished(summary engine.SessionSummary) {
	s.sessionSummary = summarizeSession(summary)
	logging.LogTLSHandshake(s.clientAddr, summary.Version, summary.CipherSuite, summary.ServerName, summary.Resumed)
}

// InspectHandshakeMessage implements engine.Callbacks.
func (s *Session) InspectHandshakeMessage(msg engine.HandshakeMessage) {
	if hello, ok := msg.(*engine.ClientHello); ok {
		s.helloSummary = summarizeClientHello(hello)
	}
}

// AlertReceived implements engine.Callbacks.
func (s *Session) AlertReceived(alert engine.Alert) {
	if s.engine == nil {
		logging.Debug("Received client data after close", zap.String("remote_addr", s.clientAddr))
		return
	}
	if alert.CloseNotify {
		s.engine.Close()
		return
	}
	logging.LogAlert(s.clientAddr, alert.String())
}

// HandleRequest implements httpreq.Handler.
func (s *Session) HandleRequest(req *httpreq.Request) {
	if s.engine == nil {
		logging.Debug("Received client data after close", zap.String("remote_addr", s.clientAddr))
		return
	}
	logging.LogHTTPRequest(s.clientAddr, req.Verb, req.Location, req.Headers)

	var response string
	var status, bodyLength int
	switch {
	case req.Verb != "GET":
		response, status = responseMethodNotAllowed, 405
	case req.Location == "/" || req.Location == "/status":
		report := s.connectionSummary + s.sessionSummary + s.helloSummary + summarizeRequest(s.clientAddr, req)
		response, status, bodyLength = reportResponse(report), 200, len(report)
	default:
		response, status = responseNotFound, 404
	}

	if err := s.engine.Send([]byte(response)); err != nil {
		logging.LogException("Response not sent", s.clientAddr, err)
	} else {
		logging.LogHTTPResponse(s.clientAddr, status, bodyLength)
		s.metrics.response(status)
	}
	s.engine.Close()
}
