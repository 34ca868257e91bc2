package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/tlsprobe/internal/logging"
	"github.com/muurk/tlsprobe/internal/version"
)

const (
	// ServiceType is the mDNS service type tlsprobe advertises
	ServiceType = "_https._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for discovery
	DefaultScanTimeout = 5 * time.Second

	productKey = "product"
)

// Advertisement is a registered mDNS service.
type Advertisement struct {
	server *zeroconf.Server
	once   sync.Once
}

// Advertise registers instance on port. extra is added to the TXT record next
// to the product and version keys.
func Advertise(instance string, port int, extra map[string]string) (*Advertisement, error) {
	txt := buildTXT(extra)
	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising over mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
		zap.Strings("txt", txt),
	)
	return &Advertisement{server: server}, nil
}

// Shutdown withdraws the advertisement. It is safe to call more than once.
func (a *Advertisement) Shutdown() {
	a.once.Do(a.server.Shutdown)
}

// buildTXT renders the TXT record with product and version first and the
// remaining keys sorted.
func buildTXT(extra map[string]string) []string {
	txt := []string{
		productKey + "=" + version.ProductName,
		"version=" + version.Version,
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		if k == productKey || k == "version" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		txt = append(txt, k+"="+extra[k])
	}
	return txt
}

// Scanner handles mDNS discovery of probes
type Scanner struct {
	// Timeout is the maximum time to wait for discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForProbes discovers all probes on the local network
func (s *Scanner) ScanForProbes() ([]*Probe, error) {
	return s.ScanForProbesWithContext(context.Background())
}

// ScanForProbesWithContext discovers probes with a custom context
func (s *Scanner) ScanForProbesWithContext(ctx context.Context) ([]*Probe, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var mu sync.Mutex
	probes := make([]*Probe, 0)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			if probe := parseServiceEntry(entry); probe != nil {
				mu.Lock()
				probes = append(probes, probe)
				mu.Unlock()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	// Wait for context to complete (timeout or cancellation)
	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	return append([]*Probe(nil), probes...), nil
}

// parseServiceEntry converts a zeroconf service entry to a Probe.
// Returns nil if the entry is not a tlsprobe instance.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Probe {
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}
	if metadata[productKey] != version.ProductName {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" || entry.Port == 0 {
		return nil
	}

	return &Probe{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// ScanForProbes is a convenience function to scan with a custom timeout
func ScanForProbes(timeout time.Duration) ([]*Probe, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.ScanForProbes()
}
