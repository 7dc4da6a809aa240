package paymail

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	// defaultUpstream is the recursive resolver used when none is configured.
	defaultUpstream = "8.8.8.8:53"

	// defaultTimeout bounds one query exchange.
	defaultTimeout = 10 * time.Second

	// edns0BufSize is the EDNS0 UDP buffer size advertised with the DO flag.
	edns0BufSize = 4096
)

// DNSSECResolver is a DNSResolver that only accepts answers the upstream
// recursive resolver marked as authenticated (the AD flag). Validation is
// left to the upstream; the resolver only checks its verdict.
type DNSSECResolver struct {
	// Upstream is the recursive resolver address, e.g. "8.8.8.8:53".
	Upstream string

	// Timeout bounds each exchange. Zero uses defaultTimeout.
	Timeout time.Duration

	// Net is the transport, "udp" (default) or "tcp".
	Net string
}

var _ DNSResolver = (*DNSSECResolver)(nil)

// NewDNSSECResolver returns a resolver querying upstream, 8.8.8.8:53 when
// empty.
func NewDNSSECResolver(upstream string) *DNSSECResolver {
	if upstream == "" {
		upstream = defaultUpstream
	}
	return &DNSSECResolver{Upstream: upstream, Timeout: defaultTimeout}
}

func (r *DNSSECResolver) exchange(name string, qtype uint16) (*dns.Msg, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true
	msg.SetEdns0(edns0BufSize, true)

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &dns.Client{Net: r.Net, Timeout: timeout}
	resp, _, err := client.Exchange(msg, r.Upstream)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s %s: %w", ErrDNSLookupFailed, name, dns.TypeToString[qtype], err)
	}
	if resp.Rcode != dns.RcodeSuccess && resp.Rcode != dns.RcodeNameError {
		return nil, fmt.Errorf("%w: query %s %s: rcode %s",
			ErrDNSLookupFailed, name, dns.TypeToString[qtype], dns.RcodeToString[resp.Rcode])
	}
	if !resp.AuthenticatedData {
		return nil, fmt.Errorf("%w: AD flag not set for %s %s",
			ErrDNSSECValidationFailed, name, dns.TypeToString[qtype])
	}
	return resp, nil
}

// LookupSRV looks up _service._proto.name. The returned cname is always
// empty.
func (r *DNSSECResolver) LookupSRV(service, proto, name string) (string, []*net.SRV, error) {
	qname := fmt.Sprintf("_%s._%s.%s", service, proto, name)
	resp, err := r.exchange(qname, dns.TypeSRV)
	if err != nil {
		return "", nil, err
	}

	var srvs []*net.SRV
	for _, rr := range resp.Answer {
		if srv, ok := rr.(*dns.SRV); ok {
			srvs = append(srvs, &net.SRV{
				Target:   strings.TrimSuffix(srv.Target, "."),
				Port:     srv.Port,
				Priority: srv.Priority,
				Weight:   srv.Weight,
			})
		}
	}
	if len(srvs) == 0 {
		return "", nil, fmt.Errorf("%w: no SRV records for %s", ErrNoEndpoints, qname)
	}
	return "", srvs, nil
}
