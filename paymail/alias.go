// Package paymail resolves alias@domain recipients to native addresses.
// The host serving the domain's aliases is found through the
// _bsvalias._tcp SRV record, optionally validated by DNSSEC, and the
// address comes from the payment destination capability or, failing
// that, from the alias's PKI key.
package paymail

import (
	"fmt"
	"strings"
)

// ParseAlias splits alias@domain. The alias is lower-cased.
func ParseAlias(s string) (alias, domain string, err error) {
	s = strings.TrimSpace(s)
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidAlias, s)
	}
	alias, domain = strings.ToLower(s[:at]), strings.ToLower(s[at+1:])
	if strings.ContainsAny(alias, "/?#@ ") || !strings.Contains(domain, ".") ||
		strings.ContainsAny(domain, "/?#@: ") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidAlias, s)
	}
	return alias, domain, nil
}

// IsAlias reports whether s looks like alias@domain.
func IsAlias(s string) bool {
	_, _, err := ParseAlias(s)
	return err == nil
}
