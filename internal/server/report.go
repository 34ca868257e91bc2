package server

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/muurk/tlsprobe/internal/engine"
	"github.com/muurk/tlsprobe/internal/httpreq"
	"github.com/muurk/tlsprobe/internal/version"
)

// connectionBanner opens every report.
func connectionBanner() string {
	return "TLS negotiation with " + version.Product() + " test server\n\n"
}

// summarizeSession renders the negotiated parameters.
func summarizeSession(s engine.SessionSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Version: %s\n", s.Version)
	fmt.Fprintf(&b, "Ciphersuite: %s\n", s.CipherSuite)
	if len(s.SessionID) > 0 {
		fmt.Fprintf(&b, "SessionID: %X\n", s.SessionID)
	}
	if s.ServerName != "" {
		fmt.Fprintf(&b, "SNI: %s\n", s.ServerName)
	}
	return b.String()
}

// summarizeClientHello renders the client random and the offered suites.
func summarizeClientHello(hello *engine.ClientHello) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Client random: %X\n", hello.Random)
	b.WriteString("Client offered following ciphersuites:\n")
	for _, id := range hello.CipherSuites {
		fmt.Fprintf(&b, " - 0x%04x %s\n", id, suiteLabel(id))
	}
	return b.String()
}

func suiteLabel(id uint16) string {
	if name, ok := engine.CipherSuiteName(id); ok {
		return name
	}
	if id == engine.RenegotiationSCSV {
		return "Renegotiation SCSV"
	}
	return "Unknown ciphersuite"
}

// summarizeRequest renders the request line and headers, sorted by name.
func summarizeRequest(clientAddr string, req *httpreq.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Client %s requested %s %s\n", clientAddr, req.Verb, req.Location)

	if len(req.Headers) > 0 {
		names := make([]string, 0, len(req.Headers))
		for name := range req.Headers {
			names = append(names, name)
		}
		sort.Strings(names)

		b.WriteString("Client HTTP headers:\n")
		for _, name := range names {
			fmt.Fprintf(&b, " %s: %s\n", name, req.Headers[name])
		}
	}
	return b.String()
}

// Canned responses. Only 200 carries headers and a body.
const (
	responseNotFound         = "HTTP/1.0 404 Not Found\r\n\r\n"
	responseMethodNotAllowed = "HTTP/1.0 405 Method Not Allowed\r\n\r\n"
)

// reportResponse frames report as a 200 text/plain response.
func reportResponse(report string) string {
	var b strings.Builder
	b.WriteString("HTTP/1.0 200 OK\r\n")
	b.WriteString("Server: " + version.Product() + "\r\n")
	b.WriteString("Content-Type: text/plain\r\n")
	b.WriteString("Content-Length: " + strconv.Itoa(len(report)) + "\r\n")
	b.WriteString("\r\n")
	b.WriteString(report)
	return b.String()
}
