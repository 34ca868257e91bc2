package policy

import "crypto/tls"

var builtins = map[string]Policy{
	"default": {
		Name:        "default",
		Description: "TLS 1.2 and 1.3 with the crypto/tls default suites",
		MinVersion:  "1.2",
		MaxVersion:  "1.3",
	},
	"strict": {
		Name:        "strict",
		Description: "TLS 1.2 and 1.3, ECDHE with AEAD suites only",
		MinVersion:  "1.2",
		MaxVersion:  "1.3",
		CipherSuites: suiteNames(
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		),
		Curves: []string{"X25519MLKEM768", "X25519", "P-256", "P-384"},
	},
	"suiteb_128": {
		Name:         "suiteb_128",
		Description:  "Suite B 128-bit: ECDSA, AES-128-GCM, P-256",
		MinVersion:   "1.2",
		MaxVersion:   "1.3",
		CipherSuites: suiteNames(tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256),
		Curves:       []string{"P-256"},
	},
	"suiteb_192": {
		Name:         "suiteb_192",
		Description:  "Suite B 192-bit: ECDSA, AES-256-GCM, P-384",
		MinVersion:   "1.2",
		MaxVersion:   "1.3",
		CipherSuites: suiteNames(tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384),
		Curves:       []string{"P-384"},
	},
	"bsi": {
		Name:        "bsi",
		Description: "BSI TR-02102-2 suites and groups available in crypto/tls",
		MinVersion:  "1.2",
		MaxVersion:  "1.3",
		CipherSuites: suiteNames(
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256,
		),
		Curves: []string{"P-256", "P-384", "P-521"},
	},
	"all": {
		Name:         "all",
		Description:  "Every version and suite implemented by crypto/tls",
		MinVersion:   "1.0",
		MaxVersion:   "1.3",
		CipherSuites: allSuiteNames(),
	},
	"cc3200": {
		Name:        "cc3200",
		Description: "TLS 1.2 only with the RSA/CBC suites of TI CC3200 clients",
		MinVersion:  "1.2",
		MaxVersion:  "1.2",
		CipherSuites: suiteNames(
			tls.TLS_RSA_WITH_AES_128_CBC_SHA256,
			0x003D, // TLS_RSA_WITH_AES_256_CBC_SHA256, not implemented by crypto/tls
			tls.TLS_RSA_WITH_AES_128_CBC_SHA,
			tls.TLS_RSA_WITH_AES_256_CBC_SHA,
			tls.TLS_RSA_WITH_3DES_EDE_CBC_SHA,
		),
	},
}

// Names returns the built-in policy names in a stable order.
func Names() []string {
	return []string{"default", "strict", "suiteb_128", "suiteb_192", "bsi", "all", "cc3200"}
}

// suiteNames maps suite IDs to names, skipping the ones crypto/tls does not
// implement.
func suiteNames(ids ...uint16) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := suitesByID[id]; ok {
			names = append(names, name)
		}
	}
	return names
}

func allSuiteNames() []string {
	var names []string
	for _, s := range tls.CipherSuites() {
		names = append(names, s.Name)
	}
	for _, s := range tls.InsecureCipherSuites() {
		names = append(names, s.Name)
	}
	return names
}
