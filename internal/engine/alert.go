package engine

import (
	"errors"
	"io"
	"net"
	"strings"
)

// Alert is an alert received from the peer.
type Alert struct {
	// Description is the alert name, e.g. "close_notify" or
	// "bad certificate".
	Description string
	CloseNotify bool
}

func (a Alert) String() string {
	return a.Description
}

// alertFromError recognises the errors crypto/tls returns for peer alerts:
// io.EOF for close_notify and a "remote error" OpError for everything else.
func alertFromError(err error) (Alert, bool) {
	if errors.Is(err, io.EOF) {
		return Alert{Description: "close_notify", CloseNotify: true}, true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "remote error" && opErr.Err != nil {
		return Alert{Description: strings.TrimPrefix(opErr.Err.Error(), "tls: ")}, true
	}
	return Alert{}, false
}
