package credentials

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"time"
)

// Load reads a PEM certificate chain and private key.
func Load(certPath, keyPath string) (tls.Certificate, error) {
	if _, err := os.Stat(certPath); err != nil {
		return tls.Certificate{}, &CredentialError{Operation: "load", Path: certPath, Err: err}
	}
	if _, err := os.Stat(keyPath); err != nil {
		return tls.Certificate{}, &CredentialError{Operation: "load", Path: keyPath, Err: err}
	}

	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, &CredentialError{Operation: "load", Path: certPath, Err: err}
	}
	if cert.Leaf == nil && len(cert.Certificate) > 0 {
		if leaf, err := x509.ParseCertificate(cert.Certificate[0]); err == nil {
			cert.Leaf = leaf
		}
	}
	return cert, nil
}

// Params holds parameters for a generated certificate.
type Params struct {
	// CommonName defaults to the first host, or "localhost".
	CommonName   string
	Organization string
	// Hosts are DNS names or IP addresses placed in the SAN extension.
	Hosts     []string
	ValidDays int
	// RSA selects an RSA-2048 key instead of ECDSA P-256.
	RSA bool
}

// DefaultParams returns a localhost certificate valid for 30 days.
func DefaultParams() Params {
	return Params{
		Organization: "tlsprobe test server",
		Hosts:        []string{"localhost", "127.0.0.1", "::1"},
		ValidDays:    30,
	}
}

// Generated is a freshly generated self-signed pair.
type Generated struct {
	CertPEM     []byte
	KeyPEM      []byte
	Certificate *x509.Certificate
}

// Generate creates a self-signed server certificate.
func Generate(params Params) (*Generated, error) {
	if params.ValidDays <= 0 {
		return nil, &CredentialError{Operation: "generate", Err: errors.New("validity must be at least one day")}
	}

	var (
		priv     crypto.Signer
		keyUsage = x509.KeyUsageDigitalSignature
		err      error
	)
	if params.RSA {
		priv, err = rsa.GenerateKey(rand.Reader, 2048)
		keyUsage |= x509.KeyUsageKeyEncipherment
	} else {
		priv, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}
	if err != nil {
		return nil, &CredentialError{Operation: "generate_key", Err: err}
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, &CredentialError{Operation: "generate_serial", Err: err}
	}

	commonName := params.CommonName
	if commonName == "" {
		commonName = "localhost"
		if len(params.Hosts) > 0 {
			commonName = params.Hosts[0]
		}
	}

	notBefore := time.Now().Add(-time.Minute)
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{params.Organization},
			CommonName:   commonName,
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.AddDate(0, 0, params.ValidDays),
		KeyUsage:              keyUsage | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	for _, h := range params.Hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, priv.Public(), priv)
	if err != nil {
		return nil, &CredentialError{Operation: "create_certificate", Err: err}
	}
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, &CredentialError{Operation: "parse_certificate", Err: err}
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, &CredentialError{Operation: "marshal_key", Err: err}
	}

	return &Generated{
		CertPEM:     pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}),
		KeyPEM:      pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
		Certificate: cert,
	}, nil
}

// TLSCertificate returns the pair as a tls.Certificate.
func (g *Generated) TLSCertificate() (tls.Certificate, error) {
	cert, err := tls.X509KeyPair(g.CertPEM, g.KeyPEM)
	if err != nil {
		return tls.Certificate{}, &CredentialError{Operation: "load", Err: err}
	}
	cert.Leaf = g.Certificate
	return cert, nil
}

// WriteFiles writes the certificate (0644) and key (0600).
func (g *Generated) WriteFiles(certPath, keyPath string) error {
	if err := os.WriteFile(certPath, g.CertPEM, 0o644); err != nil {
		return &CredentialError{Operation: "write", Path: certPath, Err: err}
	}
	if err := os.WriteFile(keyPath, g.KeyPEM, 0o600); err != nil {
		return &CredentialError{Operation: "write", Path: keyPath, Err: err}
	}
	return nil
}

// Describe returns fields worth logging about a certificate.
func Describe(cert tls.Certificate) map[string]interface{} {
	info := map[string]interface{}{
		"chain_length": len(cert.Certificate),
	}
	if cert.Leaf != nil {
		info["subject"] = cert.Leaf.Subject.String()
		info["issuer"] = cert.Leaf.Issuer.String()
		info["not_after"] = cert.Leaf.NotAfter.Format(time.RFC3339)
		info["dns_names"] = cert.Leaf.DNSNames
		info["key_algorithm"] = cert.Leaf.PublicKeyAlgorithm.String()
	}
	return info
}

// ParseHosts validates a host list for Params.Hosts.
func ParseHosts(hosts []string) ([]string, error) {
	var out []string
	for _, h := range hosts {
		if h == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(h); err == nil {
			return nil, fmt.Errorf("host %q must not include a port", h)
		}
		out = append(out, h)
	}
	if len(out) == 0 {
		return nil, errors.New("at least one host is required")
	}
	return out, nil
}
