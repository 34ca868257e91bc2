package policy

import (
	"crypto/tls"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const appName = "tlsprobe"

// Policy describes the protocol versions and algorithms a server accepts.
type Policy struct {
	Name                  string   `yaml:"name"`
	Description           string   `yaml:"description,omitempty"`
	MinVersion            string   `yaml:"min_version"`
	MaxVersion            string   `yaml:"max_version"`
	CipherSuites          []string `yaml:"cipher_suites,omitempty"`
	Curves                []string `yaml:"curves,omitempty"`
	DisableSessionTickets bool     `yaml:"disable_session_tickets,omitempty"`
}

var versions = map[string]uint16{
	"1.0": tls.VersionTLS10,
	"1.1": tls.VersionTLS11,
	"1.2": tls.VersionTLS12,
	"1.3": tls.VersionTLS13,
}

var curves = map[string]tls.CurveID{
	"X25519":         tls.X25519,
	"X25519MLKEM768": tls.X25519MLKEM768,
	"P-256":          tls.CurveP256,
	"P-384":          tls.CurveP384,
	"P-521":          tls.CurveP521,
}

var suitesByID, suitesByName = func() (map[uint16]string, map[string]uint16) {
	byID := make(map[uint16]string)
	byName := make(map[string]uint16)
	for _, list := range [][]*tls.CipherSuite{tls.CipherSuites(), tls.InsecureCipherSuites()} {
		for _, s := range list {
			byID[s.ID] = s.Name
			byName[s.Name] = s.ID
		}
	}
	return byID, byName
}()

// Load resolves nameOrPath to a policy. Built-in names win over files.
func Load(nameOrPath string) (*Policy, error) {
	if p, ok := builtins[nameOrPath]; ok {
		return &p, nil
	}

	if _, err := os.Stat(nameOrPath); err == nil {
		return LoadFile(nameOrPath)
	}

	if dir, err := GetConfigDir(); err == nil && !strings.ContainsRune(nameOrPath, os.PathSeparator) {
		candidate := filepath.Join(dir, "policies", nameOrPath+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			return LoadFile(candidate)
		}
	}

	return nil, &PolicyError{Kind: ErrKindNotFound, Policy: nameOrPath, Err: ErrUnknownPolicy}
}

// LoadFile reads a YAML policy document and validates it.
func LoadFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PolicyError{Kind: ErrKindRead, Policy: path, Err: err}
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, &PolicyError{Kind: ErrKindParse, Policy: path, Err: err}
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if p.MinVersion == "" {
		p.MinVersion = "1.2"
	}
	if p.MaxVersion == "" {
		p.MaxVersion = "1.3"
	}

	if _, err := p.TLSConfig(tls.Certificate{}); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetConfigDir returns the OS-appropriate configuration directory:
//   - Linux: $XDG_CONFIG_HOME/tlsprobe or $HOME/.config/tlsprobe
//   - macOS: $HOME/.config/tlsprobe
//   - Windows: %LOCALAPPDATA%\tlsprobe
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil
	case "darwin":
		// $HOME/.config, following the XDG layout
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", appName), nil
}

// TLSConfig builds a server configuration presenting cert.
func (p *Policy) TLSConfig(cert tls.Certificate) (*tls.Config, error) {
	invalid := func(format string, args ...interface{}) error {
		return &PolicyError{Kind: ErrKindInvalid, Policy: p.Name, Err: fmt.Errorf(format, args...)}
	}

	minVersion, ok := versions[p.MinVersion]
	if !ok {
		return nil, invalid("unknown min_version %q", p.MinVersion)
	}
	maxVersion, ok := versions[p.MaxVersion]
	if !ok {
		return nil, invalid("unknown max_version %q", p.MaxVersion)
	}
	if minVersion > maxVersion {
		return nil, invalid("min_version %s is above max_version %s", p.MinVersion, p.MaxVersion)
	}

	cfg := &tls.Config{
		MinVersion:             minVersion,
		MaxVersion:             maxVersion,
		SessionTicketsDisabled: p.DisableSessionTickets,
	}
	if cert.Certificate != nil {
		cfg.Certificates = []tls.Certificate{cert}
	}

	for _, name := range p.CipherSuites {
		id, ok := suitesByName[name]
		if !ok {
			return nil, invalid("unknown cipher suite %q", name)
		}
		cfg.CipherSuites = append(cfg.CipherSuites, id)
	}

	for _, name := range p.Curves {
		id, ok := curves[name]
		if !ok {
			return nil, invalid("unknown curve %q", name)
		}
		cfg.CurvePreferences = append(cfg.CurvePreferences, id)
	}

	return cfg, nil
}

// Info returns a human-readable summary of the policy
func (p *Policy) Info() map[string]interface{} {
	suites := p.CipherSuites
	if len(suites) == 0 {
		suites = []string{"(crypto/tls defaults)"}
	}
	return map[string]interface{}{
		"name":            p.Name,
		"min_version":     "TLS " + p.MinVersion,
		"max_version":     "TLS " + p.MaxVersion,
		"cipher_suites":   suites,
		"curves":          p.Curves,
		"session_tickets": !p.DisableSessionTickets,
	}
}

// Marshal renders the policy as a YAML document accepted by LoadFile.
func (p *Policy) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

// Curves returns the curve names accepted in policy files.
func Curves() []string {
	names := make([]string, 0, len(curves))
	for name := range curves {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
