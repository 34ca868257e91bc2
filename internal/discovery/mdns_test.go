package discovery

import (
	"net"
	"reflect"
	"testing"

	"github.com/grandcat/zeroconf"

	"github.com/muurk/tlsprobe/internal/version"
)

func TestParseServiceEntry(t *testing.T) {
	product := "product=" + version.ProductName

	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
		wantURL  string
	}{
		{
			name: "probe with IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "lab"},
				HostName:      "lab.local.",
				Port:          8443,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
				Text:          []string{product, "version=v1", "path=/status"},
			},
			wantIP:   "192.168.4.16",
			wantPort: 8443,
			wantURL:  "https://192.168.4.16:8443/status",
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				HostName: "lab.local.",
				Port:     443,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
				Text:     []string{product},
			},
			wantIP:   "fe80::1",
			wantPort: 443,
			wantURL:  "https://[fe80::1]:443/",
		},
		{
			name: "other https service",
			entry: &zeroconf.ServiceEntry{
				HostName: "printer.local.",
				Port:     443,
				AddrIPv4: []net.IP{net.ParseIP("192.168.4.20")},
				Text:     []string{"path=/"},
			},
			wantNil: true,
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				HostName: "lab.local.",
				Port:     443,
				Text:     []string{product},
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseServiceEntry(tt.entry)
			if tt.wantNil {
				if got != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("parseServiceEntry() = nil")
			}
			if got.IP != tt.wantIP {
				t.Errorf("IP = %v, want %v", got.IP, tt.wantIP)
			}
			if got.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", got.Port, tt.wantPort)
			}
			if url := got.StatusURL(); url != tt.wantURL {
				t.Errorf("StatusURL() = %v, want %v", url, tt.wantURL)
			}
		})
	}
}

func TestBuildTXT(t *testing.T) {
	got := buildTXT(map[string]string{
		"policy":  "strict",
		"path":    "/status",
		"product": "spoofed",
	})
	want := []string{
		"product=" + version.ProductName,
		"version=" + version.Version,
		"path=/status",
		"policy=strict",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("buildTXT() = %v, want %v", got, want)
	}
}

func TestProbeGetMetadata(t *testing.T) {
	p := &Probe{}
	if got := p.GetMetadata("version"); got != "" {
		t.Errorf("GetMetadata() on nil map = %q", got)
	}
	p.Metadata = map[string]string{"version": "v2"}
	if got := p.GetMetadata("version"); got != "v2" {
		t.Errorf("GetMetadata() = %q, want v2", got)
	}
}
