// Package discovery advertises tlsprobe listeners over mDNS and finds them.
//
// A server started with --advertise registers an "_https._tcp" service whose
// TXT record identifies it as a tlsprobe instance:
//
//	product=tlsprobe
//	version=v1.2.3
//	path=/status
//	policy=default
//
// Scanner browses the same service type and keeps only entries carrying
// product=tlsprobe, so ordinary HTTPS services on the network are ignored.
//
// # Usage Example
//
//	ad, err := discovery.Advertise("lab-probe", 8443, map[string]string{"policy": "strict"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ad.Shutdown()
//
//	probes, err := discovery.ScanForProbes(3 * time.Second)
//	for _, p := range probes {
//	    fmt.Println(p)
//	}
package discovery
