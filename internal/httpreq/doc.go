// Package httpreq implements the incremental request parser used by the TLS
// responder.
//
// The parser is deliberately tolerant. It accumulates decrypted fragments,
// tokenizes a request line of the form
//
//	VERB LOCATION [VERSION]
//
// and then collects "Name: Value" header lines. The first complete line that
// does not contain ": " ends the header block, which is how the blank line
// after the headers is recognised. The version token is never validated and
// request bodies are never read.
//
// A parse only completes once a terminating line has arrived, so the same
// request fed byte by byte or all at once yields the same Request.
package httpreq
