package paymail

import (
	"fmt"
	"net"
	"sort"
	"strings"
)

// DNSResolver looks up SRV records.
type DNSResolver interface {
	LookupSRV(service, proto, name string) (string, []*net.SRV, error)
}

type netResolver struct{}

func (netResolver) LookupSRV(service, proto, name string) (string, []*net.SRV, error) {
	return net.LookupSRV(service, proto, name)
}

// DefaultDNSResolver uses the system resolver without DNSSEC.
var DefaultDNSResolver DNSResolver = netResolver{}

// SRVService is the SRV service name of alias hosts: _bsvalias._tcp.{domain}.
const SRVService = "bsvalias"

// ResolveEndpoints returns the host:port endpoints of domain, sorted by
// priority ascending then weight descending.
func ResolveEndpoints(domain string, resolver DNSResolver) ([]string, error) {
	if domain == "" {
		return nil, fmt.Errorf("%w: empty domain", ErrDNSLookupFailed)
	}
	_, addrs, err := resolver.LookupSRV(SRVService, "tcp", domain)
	if err != nil {
		return nil, fmt.Errorf("%w: SRV lookup for _%s._tcp.%s: %w", ErrDNSLookupFailed, SRVService, domain, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: no SRV records for _%s._tcp.%s", ErrNoEndpoints, SRVService, domain)
	}

	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].Priority != addrs[j].Priority {
			return addrs[i].Priority < addrs[j].Priority
		}
		return addrs[i].Weight > addrs[j].Weight
	})

	endpoints := make([]string, len(addrs))
	for i, srv := range addrs {
		endpoints[i] = fmt.Sprintf("%s:%d", strings.TrimSuffix(srv.Target, "."), srv.Port)
	}
	return endpoints, nil
}
