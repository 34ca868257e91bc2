package engine

import (
	"net"
	"sync"
	"time"
)

// pipeConn is the net.Conn crypto/tls runs over. Reads are satisfied from
// buffers handed over by ReceivedData; writes go straight to the output
// callback.
//
// Read is only ever called from the engine goroutine, so pending and owed
// need no locking.
type pipeConn struct {
	feed   chan []byte
	idle   chan struct{}
	closed chan struct{}
	once   sync.Once

	pending []byte
	// owed is set while a ReceivedData call is waiting for its bytes to be
	// consumed.
	owed bool

	write  func([]byte)
	local  net.Addr
	remote net.Addr
}

func newPipeConn(write func([]byte), local, remote net.Addr) *pipeConn {
	if local == nil {
		local = pipeAddr("engine")
	}
	if remote == nil {
		remote = pipeAddr("peer")
	}
	return &pipeConn{
		feed:   make(chan []byte),
		idle:   make(chan struct{}),
		closed: make(chan struct{}),
		write:  write,
		local:  local,
		remote: remote,
	}
}

func (c *pipeConn) Read(p []byte) (int, error) {
	for len(c.pending) == 0 {
		if c.owed {
			c.owed = false
			select {
			case c.idle <- struct{}{}:
			case <-c.closed:
				return 0, net.ErrClosed
			}
		}
		select {
		case b := <-c.feed:
			c.pending = b
			c.owed = true
		case <-c.closed:
			return 0, net.ErrClosed
		}
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *pipeConn) Write(p []byte) (int, error) {
	select {
	case <-c.closed:
		return 0, net.ErrClosed
	default:
	}
	c.write(p)
	return len(p), nil
}

// Close releases the engine goroutine if it is blocked in Read.
func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *pipeConn) LocalAddr() net.Addr                { return c.local }
func (c *pipeConn) RemoteAddr() net.Addr               { return c.remote }
func (c *pipeConn) SetDeadline(t time.Time) error      { return nil }
func (c *pipeConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *pipeConn) SetWriteDeadline(t time.Time) error { return nil }

type pipeAddr string

func (a pipeAddr) Network() string { return "pipe" }
func (a pipeAddr) String() string  { return string(a) }
