// Package server implements the TLS-terminating HTTP responder.
//
// The server accepts TCP connections and runs a Session for each one. A
// session pumps ciphertext between its socket and a protocol engine, parses
// the single HTTP request carried inside and answers it with a plain text
// report describing the negotiated connection:
//
//	TLS negotiation with tlsprobe v1.0.0 test server
//
//	Version: TLS 1.3
//	Ciphersuite: TLS_AES_128_GCM_SHA256
//	SessionID: 0190F1...
//	SNI: localhost
//	Client random: 5A1C...
//	Client offered following ciphersuites:
//	 - 0x1301 TLS_AES_128_GCM_SHA256
//	 - 0x00ff Renegotiation SCSV
//	Client 127.0.0.1 requested GET /
//	Client HTTP headers:
//	 Host: localhost
//
// Only GET / and GET /status produce a report. Other locations get
// "404 Not Found" and other verbs "405 Method Not Allowed", both without a
// body. The connection is closed after one response.
//
// # Concurrency
//
// Sessions run on a fixed reactor.Pool. Each session owns a reactor.Strand,
// so its handlers never run concurrently, while different sessions proceed in
// parallel on any worker. Blocking socket calls run on short-lived goroutines
// that post their completion back to the strand.
//
// Outbound data is double buffered: new output is appended to a pending
// buffer, which is swapped into flight only when the previous write has
// completed. There is never more than one write outstanding per socket.
//
// # Connection cap
//
// With Config.MaxClients set, the listener is closed once that many
// connections have been accepted. Serve then waits for the remaining sessions
// and returns.
//
// # Usage Example
//
//	srv, err := server.New(server.Config{
//	    Port:       8443,
//	    MaxClients: 10,
//	    TLS:        tlsConfig,
//	    Store:      ticketstore.NewMemory(0, 0),
//	    Metrics:    server.NewMetrics(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Serve(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
