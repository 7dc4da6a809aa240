package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
)

// Network pairs the native chain flavor with the matching Bitcoin parameters.
type Network struct {
	Name    string
	Mainnet bool             // native addresses use version 0x00 when true, 0x6f otherwise
	BTC     *chaincfg.Params // Bitcoin address and signing parameters
}

// Predefined networks.
var (
	MainNet = Network{Name: "mainnet", Mainnet: true, BTC: &chaincfg.MainNetParams}
	TestNet = Network{Name: "testnet", Mainnet: false, BTC: &chaincfg.TestNet3Params}
)

var predefined = map[string]*Network{
	"mainnet": &MainNet,
	"testnet": &TestNet,
}

// GetNetwork returns a predefined network by name.
func GetNetwork(name string) (*Network, error) {
	if net, ok := predefined[name]; ok {
		return net, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidNetwork, name)
}
