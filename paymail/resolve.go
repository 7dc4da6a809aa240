package paymail

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bitfsorg/tbcwallet-go/log"
	"github.com/bitfsorg/tbcwallet-go/wallet"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
)

// maxResponseSize bounds every body read from an alias host.
const maxResponseSize = 1 << 20

// Capability keys as published in .well-known/bsvalias.
const (
	capPKI                    = "pki"
	capPKIBRFC                = "0c4339ef99c2"
	capPaymentDestination     = "paymentDestination"
	capPaymentDestinationBRFC = "759684b1a19a"
)

// Capabilities are the URL templates an alias host publishes.
type Capabilities struct {
	PKI                string
	PaymentDestination string
}

type wellKnown struct {
	BSVAlias     string         `json:"bsvalias"`
	Capabilities map[string]any `json:"capabilities"`
}

type pkiResponse struct {
	Handle string `json:"handle"`
	PubKey string `json:"pubkey"`
}

type destinationRequest struct {
	SenderName string `json:"senderName,omitempty"`
	DT         string `json:"dt"`
	Amount     uint64 `json:"amount,omitempty"`
}

type destinationResponse struct {
	Output string `json:"output"`
}

// Resolver turns alias@domain into a native address.
type Resolver struct {
	HTTP    *http.Client
	DNS     DNSResolver
	Network *wallet.Network
	// Scheme of alias host URLs; https unless set.
	Scheme string
	// SenderName is sent with payment destination requests.
	SenderName string

	now func() time.Time
}

// NewResolver returns a resolver for network that validates SRV answers
// with DNSSEC against upstream.
func NewResolver(network *wallet.Network, upstream string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Resolver{
		HTTP:    &http.Client{Timeout: timeout},
		DNS:     NewDNSSECResolver(upstream),
		Network: network,
	}
}

// Resolve returns the native address recipient pays to. Plain addresses
// are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, recipient string) (string, error) {
	return r.ResolveAmount(ctx, recipient, 0)
}

// ResolveAmount is Resolve with the amount announced to the payment
// destination endpoint.
func (r *Resolver) ResolveAmount(ctx context.Context, recipient string, amount uint64) (string, error) {
	if !strings.Contains(recipient, "@") {
		return recipient, nil
	}
	alias, domain, err := ParseAlias(recipient)
	if err != nil {
		return "", err
	}
	host, err := r.host(domain)
	if err != nil {
		return "", err
	}
	caps, err := r.Discover(ctx, host)
	if err != nil {
		return "", err
	}

	var addr string
	switch {
	case caps.PaymentDestination != "":
		addr, err = r.paymentDestination(ctx, caps.PaymentDestination, alias, domain, amount)
	case caps.PKI != "":
		addr, err = r.pkiAddress(ctx, caps.PKI, alias, domain)
	default:
		err = fmt.Errorf("%w: %s publishes neither PKI nor payment destination", ErrDiscovery, host)
	}
	if err != nil {
		return "", err
	}
	log.Wallet.Debug().Str("recipient", recipient).Str("address", addr).Msg("alias resolved")
	return addr, nil
}

// host returns the first SRV endpoint of domain, or domain:443 when it
// publishes none.
func (r *Resolver) host(domain string) (string, error) {
	resolver := r.DNS
	if resolver == nil {
		resolver = DefaultDNSResolver
	}
	endpoints, err := ResolveEndpoints(domain, resolver)
	if errors.Is(err, ErrNoEndpoints) {
		return domain + ":443", nil
	}
	if err != nil {
		return "", err
	}
	return endpoints[0], nil
}

// Discover fetches the capabilities of an alias host.
func (r *Resolver) Discover(ctx context.Context, host string) (*Capabilities, error) {
	scheme := r.Scheme
	if scheme == "" {
		scheme = "https"
	}
	u := scheme + "://" + host + "/.well-known/bsvalias"
	body, err := r.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	var wk wellKnown
	if err := json.Unmarshal(body, &wk); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrDiscovery, u, err)
	}

	caps := &Capabilities{}
	for key, val := range wk.Capabilities {
		s, ok := val.(string)
		if !ok {
			continue
		}
		switch key {
		case capPKI, capPKIBRFC:
			caps.PKI = s
		case capPaymentDestination, capPaymentDestinationBRFC:
			caps.PaymentDestination = s
		}
	}
	return caps, nil
}

func (r *Resolver) pkiAddress(ctx context.Context, template, alias, domain string) (string, error) {
	body, err := r.do(ctx, http.MethodGet, expand(template, alias, domain), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPKIResolution, err)
	}
	var pki pkiResponse
	if err := json.Unmarshal(body, &pki); err != nil {
		return "", fmt.Errorf("%w: parsing response: %w", ErrPKIResolution, err)
	}
	pub, err := parseCompressedPubKey(pki.PubKey)
	if err != nil {
		return "", err
	}
	return wallet.NativeAddress(pub, r.network())
}

func (r *Resolver) paymentDestination(ctx context.Context, template, alias, domain string, amount uint64) (string, error) {
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	req, err := json.Marshal(destinationRequest{
		SenderName: r.SenderName,
		DT:         now().UTC().Format(time.RFC3339),
		Amount:     amount,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAddressResolution, err)
	}
	body, err := r.do(ctx, http.MethodPost, expand(template, alias, domain), req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAddressResolution, err)
	}
	var dest destinationResponse
	if err := json.Unmarshal(body, &dest); err != nil {
		return "", fmt.Errorf("%w: parsing response: %w", ErrAddressResolution, err)
	}
	lock, err := script.NewFromHex(dest.Output)
	if err != nil {
		return "", fmt.Errorf("%w: output script: %w", ErrAddressResolution, err)
	}
	if !lock.IsP2PKH() {
		return "", fmt.Errorf("%w: output is not P2PKH", ErrAddressResolution)
	}
	pkh, err := lock.PublicKeyHash()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAddressResolution, err)
	}
	addr, err := script.NewAddressFromPublicKeyHash(pkh, r.network().Mainnet)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAddressResolution, err)
	}
	return addr.AddressString, nil
}

func (r *Resolver) network() *wallet.Network {
	if r.Network == nil {
		return &wallet.MainNet
	}
	return r.Network
}

func (r *Resolver) do(ctx context.Context, method, u string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := r.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s %s returned status %d", method, u, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
}

// expand fills a capability URL template, escaping both variables.
func expand(template, alias, domain string) string {
	u := strings.ReplaceAll(template, "{alias}", url.PathEscape(alias))
	return strings.ReplaceAll(u, "{domain.tld}", url.PathEscape(domain))
}

func parseCompressedPubKey(h string) (*ec.PublicKey, error) {
	b, err := hex.DecodeString(h)
	if err != nil || len(b) != 33 || (b[0] != 0x02 && b[0] != 0x03) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPubKey, h)
	}
	pub, err := ec.PublicKeyFromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPubKey, err)
	}
	return pub, nil
}
