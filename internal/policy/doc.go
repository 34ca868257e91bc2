// Package policy turns a named or file-based TLS policy into a *tls.Config.
//
// Built-in policies:
//
//	default     TLS 1.2 and 1.3 with the crypto/tls default suites
//	strict      TLS 1.2 and 1.3, ECDHE with AEAD suites only
//	suiteb_128  NSA Suite B 128-bit profile (ECDSA, AES-128-GCM, P-256)
//	suiteb_192  NSA Suite B 192-bit profile (ECDSA, AES-256-GCM, P-384)
//	bsi         BSI TR-02102-2 recommendations supported by crypto/tls
//	all         every version and suite crypto/tls implements
//	cc3200      TLS 1.2 with the RSA/CBC suites of TI CC3200 clients
//
// Anything else is treated as a YAML file, first as a path and then as
// <config dir>/policies/<name>.yaml:
//
//	name: lab
//	description: TLS 1.2 only, two suites
//	min_version: "1.2"
//	max_version: "1.2"
//	cipher_suites:
//	  - TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256
//	  - TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256
//	curves: [X25519, P-256]
//	disable_session_tickets: false
//
// Cipher suite lists only apply up to TLS 1.2; crypto/tls does not allow
// configuring TLS 1.3 suites.
package policy
