package engine

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

// HandshakeType is the TLS handshake message type.
type HandshakeType uint8

const (
	HandshakeClientHello HandshakeType = 1
)

const (
	recordTypeHandshake = 22
	recordHeaderLen     = 5
	handshakeHeaderLen  = 4

	extensionServerName        = 0
	extensionALPN              = 16
	extensionSupportedVersions = 43

	// maxSniffBytes bounds how much inbound data is buffered while waiting
	// for a complete ClientHello.
	maxSniffBytes = 1 << 17
)

var errNotHandshake = errors.New("first record is not a handshake record")

// HandshakeMessage is an inbound handshake message.
type HandshakeMessage interface {
	Type() HandshakeType
}

// ClientHello is the subset of a ClientHello reported to Callbacks.
type ClientHello struct {
	LegacyVersion     uint16
	Random            []byte
	SessionID         []byte
	CipherSuites      []uint16
	ServerName        string
	ALPNProtocols     []string
	SupportedVersions []uint16
}

// Type implements HandshakeMessage.
func (*ClientHello) Type() HandshakeType {
	return HandshakeClientHello
}

// helloSniffer reassembles the first handshake message from TLS records.
type helloSniffer struct {
	records   []byte
	handshake []byte
	done      bool
}

// feed returns the ClientHello once it is complete. After a result or an
// error the sniffer ignores further input.
func (h *helloSniffer) feed(data []byte) (*ClientHello, error) {
	if h.done {
		return nil, nil
	}
	h.records = append(h.records, data...)

	for len(h.records) >= recordHeaderLen {
		if h.records[0] != recordTypeHandshake {
			h.finish()
			return nil, errNotHandshake
		}
		length := int(h.records[3])<<8 | int(h.records[4])
		if len(h.records) < recordHeaderLen+length {
			break
		}
		h.handshake = append(h.handshake, h.records[recordHeaderLen:recordHeaderLen+length]...)
		h.records = h.records[recordHeaderLen+length:]
	}

	if len(h.handshake) >= handshakeHeaderLen {
		if HandshakeType(h.handshake[0]) != HandshakeClientHello {
			h.finish()
			return nil, fmt.Errorf("unexpected handshake message type %d", h.handshake[0])
		}
		length := int(h.handshake[1])<<16 | int(h.handshake[2])<<8 | int(h.handshake[3])
		if len(h.handshake) >= handshakeHeaderLen+length {
			body := h.handshake[handshakeHeaderLen : handshakeHeaderLen+length]
			h.finish()
			return parseClientHello(body)
		}
	}

	if len(h.records)+len(h.handshake) > maxSniffBytes {
		h.finish()
		return nil, fmt.Errorf("ClientHello exceeds %d bytes", maxSniffBytes)
	}
	return nil, nil
}

func (h *helloSniffer) finish() {
	h.done = true
	h.records = nil
	h.handshake = nil
}

// parseClientHello decodes a ClientHello body (without the handshake header).
func parseClientHello(body []byte) (*ClientHello, error) {
	s := cryptobyte.String(body)
	hello := &ClientHello{}

	var random []byte
	var sessionID, suites, compression cryptobyte.String
	if !s.ReadUint16(&hello.LegacyVersion) ||
		!s.ReadBytes(&random, 32) ||
		!s.ReadUint8LengthPrefixed(&sessionID) ||
		!s.ReadUint16LengthPrefixed(&suites) ||
		!s.ReadUint8LengthPrefixed(&compression) {
		return nil, errors.New("malformed ClientHello")
	}
	hello.Random = append([]byte(nil), random...)
	hello.SessionID = append([]byte(nil), sessionID...)

	for !suites.Empty() {
		var id uint16
		if !suites.ReadUint16(&id) {
			return nil, errors.New("malformed ClientHello cipher suite list")
		}
		hello.CipherSuites = append(hello.CipherSuites, id)
	}

	if s.Empty() {
		return hello, nil
	}

	var extensions cryptobyte.String
	if !s.ReadUint16LengthPrefixed(&extensions) {
		return nil, errors.New("malformed ClientHello extensions")
	}
	for !extensions.Empty() {
		var typ uint16
		var ext cryptobyte.String
		if !extensions.ReadUint16(&typ) || !extensions.ReadUint16LengthPrefixed(&ext) {
			return nil, errors.New("malformed ClientHello extension")
		}
		var err error
		switch typ {
		case extensionServerName:
			hello.ServerName, err = parseServerName(ext)
		case extensionALPN:
			hello.ALPNProtocols, err = parseALPN(ext)
		case extensionSupportedVersions:
			hello.SupportedVersions, err = parseSupportedVersions(ext)
		}
		if err != nil {
			return nil, err
		}
	}
	return hello, nil
}

func parseServerName(ext cryptobyte.String) (string, error) {
	var list cryptobyte.String
	if !ext.ReadUint16LengthPrefixed(&list) {
		return "", errors.New("malformed server_name extension")
	}
	for !list.Empty() {
		var nameType uint8
		var name cryptobyte.String
		if !list.ReadUint8(&nameType) || !list.ReadUint16LengthPrefixed(&name) {
			return "", errors.New("malformed server_name entry")
		}
		if nameType == 0 {
			return string(name), nil
		}
	}
	return "", nil
}

func parseALPN(ext cryptobyte.String) ([]string, error) {
	var list cryptobyte.String
	if !ext.ReadUint16LengthPrefixed(&list) {
		return nil, errors.New("malformed ALPN extension")
	}
	var protos []string
	for !list.Empty() {
		var proto cryptobyte.String
		if !list.ReadUint8LengthPrefixed(&proto) {
			return nil, errors.New("malformed ALPN protocol")
		}
		protos = append(protos, string(proto))
	}
	return protos, nil
}

func parseSupportedVersions(ext cryptobyte.String) ([]uint16, error) {
	var list cryptobyte.String
	if !ext.ReadUint8LengthPrefixed(&list) {
		return nil, errors.New("malformed supported_versions extension")
	}
	var versions []uint16
	for !list.Empty() {
		var v uint16
		if !list.ReadUint16(&v) {
			return nil, errors.New("malformed supported_versions entry")
		}
		versions = append(versions, v)
	}
	return versions, nil
}
