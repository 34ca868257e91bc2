package engine

import "crypto/tls"

// RenegotiationSCSV is TLS_EMPTY_RENEGOTIATION_INFO_SCSV (RFC 5746).
const RenegotiationSCSV uint16 = 0x00FF

var suiteNames = func() map[uint16]string {
	names := make(map[uint16]string)
	for _, s := range tls.CipherSuites() {
		names[s.ID] = s.Name
	}
	for _, s := range tls.InsecureCipherSuites() {
		names[s.ID] = s.Name
	}
	return names
}()

// CipherSuiteName returns the standard name of a cipher suite implemented by
// crypto/tls. ok is false for anything else, including signalling values.
func CipherSuiteName(id uint16) (name string, ok bool) {
	name, ok = suiteNames[id]
	return name, ok
}
