package credentials

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name    string
		rsa     bool
		wantAlg x509.PublicKeyAlgorithm
	}{
		{name: "ecdsa", rsa: false, wantAlg: x509.ECDSA},
		{name: "rsa", rsa: true, wantAlg: x509.RSA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultParams()
			params.RSA = tt.rsa

			gen, err := Generate(params)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if gen.Certificate.PublicKeyAlgorithm != tt.wantAlg {
				t.Errorf("key algorithm = %v, want %v", gen.Certificate.PublicKeyAlgorithm, tt.wantAlg)
			}
			if gen.Certificate.Subject.CommonName != "localhost" {
				t.Errorf("CommonName = %s, want localhost", gen.Certificate.Subject.CommonName)
			}
			if len(gen.Certificate.IPAddresses) != 2 {
				t.Errorf("got %d IP SANs, want 2", len(gen.Certificate.IPAddresses))
			}
			if err := gen.Certificate.VerifyHostname("127.0.0.1"); err != nil {
				t.Errorf("VerifyHostname(127.0.0.1) error = %v", err)
			}

			cert, err := gen.TLSCertificate()
			if err != nil {
				t.Fatalf("TLSCertificate() error = %v", err)
			}
			switch cert.PrivateKey.(type) {
			case *ecdsa.PrivateKey:
				if tt.rsa {
					t.Error("expected an RSA private key")
				}
			case *rsa.PrivateKey:
				if !tt.rsa {
					t.Error("expected an ECDSA private key")
				}
			default:
				t.Errorf("unexpected key type %T", cert.PrivateKey)
			}
		})
	}
}

func TestGenerateRejectsZeroValidity(t *testing.T) {
	params := DefaultParams()
	params.ValidDays = 0

	_, err := Generate(params)
	var credErr *CredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("Generate() error = %v, want *CredentialError", err)
	}
	if credErr.Operation != "generate" {
		t.Errorf("Operation = %s, want generate", credErr.Operation)
	}
}

func TestWriteFilesAndLoad(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "server.crt")
	keyPath := filepath.Join(dir, "server.key")

	gen, err := Generate(DefaultParams())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if err := gen.WriteFiles(certPath, keyPath); err != nil {
		t.Fatalf("WriteFiles() error = %v", err)
	}

	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatalf("Stat(key) error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("key permissions = %o, want 600", perm)
	}

	cert, err := Load(certPath, keyPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cert.Leaf == nil {
		t.Fatal("Load() did not populate Leaf")
	}
	if !cert.Leaf.Equal(gen.Certificate) {
		t.Error("loaded certificate differs from the generated one")
	}

	desc := Describe(cert)
	if desc["chain_length"] != 1 {
		t.Errorf("chain_length = %v, want 1", desc["chain_length"])
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.crt"), filepath.Join(dir, "missing.key"))

	var credErr *CredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("Load() error = %v, want *CredentialError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want it to wrap os.ErrNotExist", err)
	}
}

func TestParseHosts(t *testing.T) {
	tests := []struct {
		name    string
		hosts   []string
		want    int
		wantErr bool
	}{
		{name: "names and ips", hosts: []string{"example.test", "10.0.0.1"}, want: 2},
		{name: "empty entries skipped", hosts: []string{"", "example.test"}, want: 1},
		{name: "port rejected", hosts: []string{"example.test:443"}, wantErr: true},
		{name: "nothing left", hosts: []string{""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHosts(tt.hosts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHosts() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(got) != tt.want {
				t.Errorf("got %d hosts, want %d", len(got), tt.want)
			}
		})
	}
}
