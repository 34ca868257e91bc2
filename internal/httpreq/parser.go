package httpreq

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// MaxHeaders is the number of distinct headers a request may carry.
const MaxHeaders = 1024

// ErrTooManyHeaders is returned by Consume when a request exceeds MaxHeaders.
var ErrTooManyHeaders = errors.New("too many HTTP headers sent in request")

// Request is one parsed request head.
type Request struct {
	Verb     string
	Location string
	Version  string
	// Headers is keyed by the header name exactly as received.
	Headers map[string]string
}

// Handler receives completed requests.
type Handler interface {
	HandleRequest(req *Request)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(req *Request)

// HandleRequest calls f(req).
func (f HandlerFunc) HandleRequest(req *Request) {
	f(req)
}

// Parser accumulates input until a full request head is available.
// It is not safe for concurrent use.
type Parser struct {
	handler Handler
	buf     []byte
}

// NewParser returns a parser delivering requests to h.
func NewParser(h Handler) *Parser {
	return &Parser{handler: h}
}

// Buffered reports how many bytes are waiting for a complete request.
func (p *Parser) Buffered() int {
	return len(p.buf)
}

// Consume appends data and tries to parse a request. Incomplete input is kept
// for the next call. At most one request is delivered per call; the buffer is
// cleared after a delivery.
func (p *Parser) Consume(data []byte) error {
	p.buf = append(p.buf, data...)

	req, ok, err := parse(p.buf)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	p.buf = p.buf[:0]
	p.handler.HandleRequest(req)
	return nil
}

// parse returns ok=false when more input is needed.
func parse(buf []byte) (*Request, bool, error) {
	rest := buf

	var requestLine string
	for {
		line, next, complete := nextLine(rest)
		if !complete {
			return nil, false, nil
		}
		rest = next
		if strings.TrimSpace(line) != "" {
			requestLine = line
			break
		}
	}

	fields := strings.Fields(requestLine)
	if len(fields) < 2 {
		return nil, false, nil
	}

	req := &Request{
		Verb:     fields[0],
		Location: fields[1],
		Headers:  make(map[string]string),
	}
	if len(fields) > 2 {
		req.Version = fields[2]
	}

	for {
		line, next, complete := nextLine(rest)
		if !complete {
			return nil, false, nil
		}
		rest = next

		name, value, found := strings.Cut(line, ": ")
		if !found {
			break
		}

		req.Headers[name] = value
		if len(req.Headers) > MaxHeaders {
			return nil, false, fmt.Errorf("%w (limit %d)", ErrTooManyHeaders, MaxHeaders)
		}
	}

	return req, true, nil
}

// nextLine splits off one '\n' terminated line, without the terminator and
// without a trailing '\r'.
func nextLine(buf []byte) (string, []byte, bool) {
	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		return "", buf, false
	}
	line := buf[:i]
	line = bytes.TrimSuffix(line, []byte{'\r'})
	return string(line), buf[i+1:], true
}
