package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Probe is a tlsprobe instance found on the network.
type Probe struct {
	// Instance is the advertised instance name
	Instance string

	// Hostname is the mDNS hostname (e.g., "lab.local.")
	Hostname string

	// IP is the first advertised address, IPv4 preferred
	IP string

	Port int

	// Metadata holds the TXT record as key/value pairs
	Metadata map[string]string

	// DiscoveredAt is when the probe was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the probe
func (p *Probe) String() string {
	return fmt.Sprintf("%s (%s) at %s version %s", p.Instance, p.Hostname, p.Address(), p.GetMetadata("version"))
}

// Address returns host:port for dialling the probe.
func (p *Probe) Address() string {
	return net.JoinHostPort(p.IP, strconv.Itoa(p.Port))
}

// StatusURL returns the URL of the probe's report.
func (p *Probe) StatusURL() string {
	path := p.GetMetadata("path")
	if path == "" {
		path = "/"
	}
	return "https://" + p.Address() + path
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (p *Probe) GetMetadata(key string) string {
	if p.Metadata == nil {
		return ""
	}
	return p.Metadata[key]
}
