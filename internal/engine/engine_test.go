package engine

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/cryptobyte"

	"github.com/muurk/tlsprobe/internal/credentials"
)

func testCertificate(t *testing.T) (tls.Certificate, *x509.CertPool) {
	t.Helper()
	gen, err := credentials.Generate(credentials.DefaultParams())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	cert, err := gen.TLSCertificate()
	if err != nil {
		t.Fatalf("TLSCertificate() error = %v", err)
	}
	pool := x509.NewCertPool()
	pool.AddCert(gen.Certificate)
	return cert, pool
}

// recorder implements Callbacks, forwarding output to a socket from its own
// goroutine so callbacks never block.
type recorder struct {
	mu          sync.Mutex
	engine      *Server
	out         chan []byte
	records     [][]byte
	hello       *ClientHello
	summary     *SessionSummary
	activated   bool
	alerts      []Alert
	offered     []string
	onRecord    func(data []byte) error
	established chan struct{}
}

func newRecorder() *recorder {
	return &recorder{
		out:         make(chan []byte, 256),
		established: make(chan struct{}),
	}
}

func (r *recorder) ChooseApplicationProtocol(offered []string) string {
	r.mu.Lock()
	r.offered = offered
	r.mu.Unlock()
	return "http/1.1"
}

func (r *recorder) RecordReceived(seq uint64, data []byte) error {
	r.mu.Lock()
	r.records = append(r.records, append([]byte(nil), data...))
	fn := r.onRecord
	r.mu.Unlock()
	if fn != nil {
		return fn(data)
	}
	return nil
}

func (r *recorder) EmitOutput(data []byte) { r.out <- data }

func (r *recorder) SessionActivated() {
	r.mu.Lock()
	r.activated = true
	r.mu.Unlock()
	close(r.established)
}

func (r *recorder) SessionEstablished(summary SessionSummary) {
	r.mu.Lock()
	r.summary = &summary
	r.mu.Unlock()
}

func (r *recorder) InspectHandshakeMessage(msg HandshakeMessage) {
	if hello, ok := msg.(*ClientHello); ok {
		r.mu.Lock()
		r.hello = hello
		r.mu.Unlock()
	}
}

func (r *recorder) AlertReceived(alert Alert) {
	r.mu.Lock()
	r.alerts = append(r.alerts, alert)
	r.mu.Unlock()
}

// harness wires an engine to one end of a net.Pipe.
type harness struct {
	engine *Server
	rec    *recorder
	client net.Conn
	errs   chan error
}

func startHarness(t *testing.T, cfg Config, rec *recorder) *harness {
	t.Helper()
	serverSide, clientSide := net.Pipe()

	e := NewServer(rec, cfg)
	rec.engine = e
	h := &harness{engine: e, rec: rec, client: clientSide, errs: make(chan error, 1)}

	go func() {
		for b := range rec.out {
			if _, err := serverSide.Write(b); err != nil {
				return
			}
		}
	}()

	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := serverSide.Read(buf)
			if n > 0 {
				if err := e.ReceivedData(buf[:n]); err != nil {
					h.errs <- err
					return
				}
				if e.IsClosedForReading() {
					h.errs <- nil
					return
				}
			}
			if err != nil {
				h.errs <- err
				return
			}
		}
	}()

	t.Cleanup(func() {
		e.Release()
		_ = serverSide.Close()
		_ = clientSide.Close()
		select {
		case <-e.Done():
		case <-time.After(5 * time.Second):
			t.Error("engine goroutine did not exit after Release")
		}
	})
	return h
}

func TestEngineHandshakeAndData(t *testing.T) {
	cert, roots := testCertificate(t)
	rec := newRecorder()
	rec.onRecord = func(data []byte) error {
		return rec.engine.Send(bytes.ToUpper(data))
	}

	h := startHarness(t, Config{TLS: &tls.Config{Certificates: []tls.Certificate{cert}}}, rec)

	client := tls.Client(h.client, &tls.Config{
		RootCAs:    roots,
		ServerName: "localhost",
		NextProtos: []string{"h2", "http/1.1"},
	})
	if err := client.Handshake(); err != nil {
		t.Fatalf("client Handshake() error = %v", err)
	}
	if got := client.ConnectionState().NegotiatedProtocol; got != "http/1.1" {
		t.Errorf("negotiated protocol = %q, want http/1.1", got)
	}

	if _, err := client.Write([]byte("ping")); err != nil {
		t.Fatalf("client Write() error = %v", err)
	}
	reply := make([]byte, 4)
	if _, err := io.ReadFull(client, reply); err != nil {
		t.Fatalf("client Read() error = %v", err)
	}
	if string(reply) != "PING" {
		t.Errorf("reply = %q, want PING", reply)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("client Close() error = %v", err)
	}
	select {
	case err := <-h.errs:
		if err != nil {
			t.Fatalf("ReceivedData() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("engine never reported the close")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if !rec.activated {
		t.Error("SessionActivated was not called")
	}
	if rec.summary == nil {
		t.Fatal("SessionEstablished was not called")
	}
	if rec.summary.Version != "TLS 1.3" {
		t.Errorf("Version = %s, want TLS 1.3", rec.summary.Version)
	}
	if rec.summary.ServerName != "localhost" {
		t.Errorf("ServerName = %s, want localhost", rec.summary.ServerName)
	}
	if rec.hello == nil {
		t.Fatal("ClientHello was not inspected")
	}
	if len(rec.hello.Random) != 32 {
		t.Errorf("client random has %d bytes, want 32", len(rec.hello.Random))
	}
	if rec.hello.ServerName != "localhost" {
		t.Errorf("ClientHello server name = %s, want localhost", rec.hello.ServerName)
	}
	if len(rec.offered) != 2 {
		t.Errorf("offered protocols = %v", rec.offered)
	}
	if len(rec.alerts) != 1 || !rec.alerts[0].CloseNotify {
		t.Errorf("alerts = %v, want one close_notify", rec.alerts)
	}
	if !h.engine.IsClosedForReading() {
		t.Error("IsClosedForReading() = false after close_notify")
	}
}

func TestEngineRecordErrorAbortsConnection(t *testing.T) {
	cert, roots := testCertificate(t)
	rec := newRecorder()
	wantErr := errors.New("refused")
	rec.onRecord = func([]byte) error { return wantErr }

	h := startHarness(t, Config{TLS: &tls.Config{Certificates: []tls.Certificate{cert}}}, rec)

	client := tls.Client(h.client, &tls.Config{RootCAs: roots, ServerName: "localhost"})
	if err := client.Handshake(); err != nil {
		t.Fatalf("client Handshake() error = %v", err)
	}
	if _, err := client.Write([]byte("data")); err != nil {
		t.Fatalf("client Write() error = %v", err)
	}

	select {
	case err := <-h.errs:
		if !errors.Is(err, wantErr) {
			t.Fatalf("ReceivedData() error = %v, want %v", err, wantErr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("engine never failed")
	}
	if !h.engine.IsClosedForReading() || !h.engine.IsClosedForWriting() {
		t.Error("engine should be closed in both directions after a failure")
	}
	if err := h.engine.Send([]byte("late")); !errors.Is(err, ErrClosed) {
		t.Errorf("Send() after failure error = %v, want ErrClosed", err)
	}
}

func TestEngineRejectsGarbage(t *testing.T) {
	cert, _ := testCertificate(t)
	rec := newRecorder()
	e := NewServer(rec, Config{TLS: &tls.Config{Certificates: []tls.Certificate{cert}}})
	defer e.Release()

	err := e.ReceivedData([]byte("GET / HTTP/1.1\r\n\r\n"))
	if err == nil {
		t.Fatal("ReceivedData() accepted plaintext HTTP")
	}
	if !e.IsClosedForReading() {
		t.Error("IsClosedForReading() = false after a protocol error")
	}
	if err2 := e.ReceivedData([]byte{0x16}); err2 == nil {
		t.Error("ReceivedData() after failure returned nil")
	}
}

func TestEngineSendBeforeHandshake(t *testing.T) {
	cert, _ := testCertificate(t)
	e := NewServer(newRecorder(), Config{TLS: &tls.Config{Certificates: []tls.Certificate{cert}}})
	defer e.Release()

	if err := e.Send([]byte("early")); !errors.Is(err, ErrNotActive) {
		t.Errorf("Send() error = %v, want ErrNotActive", err)
	}
}

func TestEngineReleaseIsIdempotent(t *testing.T) {
	cert, _ := testCertificate(t)
	e := NewServer(newRecorder(), Config{TLS: &tls.Config{Certificates: []tls.Certificate{cert}}})

	e.Release()
	e.Release()
	e.Close()

	select {
	case <-e.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("engine goroutine did not exit")
	}
	if err := e.ReceivedData([]byte{1}); !errors.Is(err, ErrClosed) {
		t.Errorf("ReceivedData() after Release error = %v, want ErrClosed", err)
	}
	if e.callbacks() != nil {
		t.Error("callbacks still referenced after Release")
	}
}

type mapStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *mapStore) Save(_ context.Context, id, state []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[string(id)] = state
	return nil
}

func (s *mapStore) Load(_ context.Context, id []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[string(id)]
	if !ok {
		return nil, errors.New("not found")
	}
	return v, nil
}

func TestEngineSessionResumption(t *testing.T) {
	cert, roots := testCertificate(t)
	store := &mapStore{data: make(map[string][]byte)}
	cfg := Config{TLS: &tls.Config{Certificates: []tls.Certificate{cert}}, Store: store}
	cache := tls.NewLRUClientSessionCache(4)

	connect := func() *recorder {
		rec := newRecorder()
		rec.onRecord = func(data []byte) error {
			if err := rec.engine.Send(data); err != nil {
				return err
			}
			rec.engine.Close()
			return nil
		}
		h := startHarness(t, cfg, rec)

		client := tls.Client(h.client, &tls.Config{
			RootCAs:            roots,
			ServerName:         "localhost",
			ClientSessionCache: cache,
		})
		if _, err := client.Write([]byte("x")); err != nil {
			t.Fatalf("client Write() error = %v", err)
		}
		if _, err := io.ReadAll(client); err != nil {
			t.Fatalf("client ReadAll() error = %v", err)
		}
		<-rec.established
		return rec
	}

	first := connect()
	first.mu.Lock()
	firstID := first.summary.SessionID
	resumed := first.summary.Resumed
	first.mu.Unlock()
	if resumed {
		t.Error("first connection reported a resumed session")
	}
	if len(firstID) != 16 {
		t.Fatalf("first SessionID has %d bytes, want 16", len(firstID))
	}

	second := connect()
	second.mu.Lock()
	defer second.mu.Unlock()
	if !second.summary.Resumed {
		t.Fatal("second connection did not resume")
	}
	if len(second.summary.SessionID) != 16 {
		t.Errorf("resumed SessionID has %d bytes, want 16", len(second.summary.SessionID))
	}
}

func TestCipherSuiteName(t *testing.T) {
	tests := []struct {
		id     uint16
		want   string
		wantOK bool
	}{
		{id: tls.TLS_AES_256_GCM_SHA384, want: "TLS_AES_256_GCM_SHA384", wantOK: true},
		{id: tls.TLS_RSA_WITH_AES_128_CBC_SHA256, want: "TLS_RSA_WITH_AES_128_CBC_SHA256", wantOK: true},
		{id: RenegotiationSCSV, wantOK: false},
		{id: 0x0a0a, wantOK: false},
	}

	for _, tt := range tests {
		got, ok := CipherSuiteName(tt.id)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("CipherSuiteName(0x%04x) = %q, %v; want %q, %v", tt.id, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestAlertFromError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantOK    bool
		wantClose bool
		wantDesc  string
	}{
		{name: "eof", err: io.EOF, wantOK: true, wantClose: true, wantDesc: "close_notify"},
		{
			name:     "remote alert",
			err:      &net.OpError{Op: "remote error", Err: errors.New("tls: bad certificate")},
			wantOK:   true,
			wantDesc: "bad certificate",
		},
		{name: "local error", err: &net.OpError{Op: "local error", Err: errors.New("tls: bad record MAC")}},
		{name: "other", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert, ok := alertFromError(tt.err)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if alert.CloseNotify != tt.wantClose || alert.Description != tt.wantDesc {
				t.Errorf("alert = %+v", alert)
			}
		})
	}
}

// buildClientHello returns a ClientHello handshake message (with header).
func buildClientHello(t *testing.T, suites []uint16, serverName string) []byte {
	t.Helper()
	var b cryptobyte.Builder
	b.AddUint8(uint8(HandshakeClientHello))
	b.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddUint16(tls.VersionTLS12)
		b.AddBytes(bytes.Repeat([]byte{0xAB}, 32))
		b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {})
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			for _, s := range suites {
				b.AddUint16(s)
			}
		})
		b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) { b.AddUint8(0) })
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddUint16(extensionServerName)
			b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
				b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
					b.AddUint8(0)
					b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
						b.AddBytes([]byte(serverName))
					})
				})
			})
			b.AddUint16(extensionALPN)
			b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
				b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
					b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes([]byte("http/1.1")) })
				})
			})
		})
	})
	msg, err := b.Bytes()
	if err != nil {
		t.Fatalf("building ClientHello: %v", err)
	}
	return msg
}

func record(fragment []byte) []byte {
	out := []byte{recordTypeHandshake, 0x03, 0x01, byte(len(fragment) >> 8), byte(len(fragment))}
	return append(out, fragment...)
}

func TestHelloSniffer(t *testing.T) {
	suites := []uint16{tls.TLS_AES_128_GCM_SHA256, RenegotiationSCSV, 0x1a1a}
	msg := buildClientHello(t, suites, "example.test")

	// Split the message over two records and feed it one byte at a time.
	wire := append(record(msg[:10]), record(msg[10:])...)

	var h helloSniffer
	var hello *ClientHello
	for i := range wire {
		got, err := h.feed(wire[i : i+1])
		if err != nil {
			t.Fatalf("feed() error = %v", err)
		}
		if got != nil {
			if i != len(wire)-1 {
				t.Fatalf("ClientHello reported after %d of %d bytes", i+1, len(wire))
			}
			hello = got
		}
	}
	if hello == nil {
		t.Fatal("ClientHello never completed")
	}

	if len(hello.CipherSuites) != len(suites) {
		t.Fatalf("got %d suites, want %d", len(hello.CipherSuites), len(suites))
	}
	for i, s := range suites {
		if hello.CipherSuites[i] != s {
			t.Errorf("suite[%d] = 0x%04x, want 0x%04x", i, hello.CipherSuites[i], s)
		}
	}
	if !bytes.Equal(hello.Random, bytes.Repeat([]byte{0xAB}, 32)) {
		t.Errorf("random = %x", hello.Random)
	}
	if hello.ServerName != "example.test" {
		t.Errorf("ServerName = %q, want example.test", hello.ServerName)
	}
	if len(hello.ALPNProtocols) != 1 || hello.ALPNProtocols[0] != "http/1.1" {
		t.Errorf("ALPNProtocols = %v", hello.ALPNProtocols)
	}

	if got, err := h.feed(record(msg)); got != nil || err != nil {
		t.Errorf("sniffer kept parsing after completion: %v, %v", got, err)
	}
}

func TestHelloSnifferRejectsNonHandshake(t *testing.T) {
	var h helloSniffer
	if _, err := h.feed([]byte("GET / HTTP/1.1\r\n")); err == nil {
		t.Error("feed() accepted a non-handshake record")
	}
}
