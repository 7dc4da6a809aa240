package paymail

import "errors"

var (
	// ErrInvalidAlias indicates a string that is not alias@domain.
	ErrInvalidAlias = errors.New("paymail: invalid alias")

	// ErrDNSLookupFailed indicates an SRV lookup failed.
	ErrDNSLookupFailed = errors.New("paymail: DNS lookup failed")

	// ErrDNSSECValidationFailed indicates the upstream resolver did not
	// authenticate the answer.
	ErrDNSSECValidationFailed = errors.New("paymail: DNSSEC validation failed")

	// ErrNoEndpoints indicates no SRV records were found for the domain.
	ErrNoEndpoints = errors.New("paymail: no endpoints found")

	// ErrDiscovery indicates .well-known/bsvalias could not be fetched or parsed.
	ErrDiscovery = errors.New("paymail: capability discovery failed")

	// ErrPKIResolution indicates the PKI endpoint returned an error.
	ErrPKIResolution = errors.New("paymail: PKI resolution failed")

	// ErrInvalidPubKey indicates a public key that is not a valid compressed secp256k1 key.
	ErrInvalidPubKey = errors.New("paymail: invalid compressed public key")

	// ErrAddressResolution indicates the payment destination could not be
	// turned into a native address.
	ErrAddressResolution = errors.New("paymail: address resolution failed")
)
