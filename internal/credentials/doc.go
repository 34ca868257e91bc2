// Package credentials loads the server certificate chain and private key and
// generates self-signed pairs for manual testing.
//
// Load accepts PEM files as produced by most tooling (certificate chain in
// one file, PKCS#1, PKCS#8 or SEC 1 key in the other). Generate produces an
// ECDSA P-256 or RSA-2048 certificate valid for the requested DNS names and
// IP addresses; the result can be written with WriteFiles and passed straight
// back to Load.
package credentials
