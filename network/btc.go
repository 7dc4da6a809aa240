package network

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bitfsorg/tbcwallet-go/log"
	"github.com/bitfsorg/tbcwallet-go/utxo"
)

// Compile-time interface check.
var _ BTCService = (*BTCClient)(nil)

// BTCClient is the REST client for an Esplora-style Bitcoin API.
type BTCClient struct {
	httpClient
}

// NewBTCClient creates a client for the API rooted at baseURL.
func NewBTCClient(baseURL string, timeout time.Duration) *BTCClient {
	return &BTCClient{httpClient: newHTTPClient(baseURL, timeout)}
}

type esploraUTXO struct {
	TxID   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Value  uint64 `json:"value"`
	Status struct {
		Confirmed   bool   `json:"confirmed"`
		BlockHeight uint32 `json:"block_height"`
	} `json:"status"`
}

// ListUnspent calls GET /address/{address}/utxo.
func (c *BTCClient) ListUnspent(ctx context.Context, address string, minAmount uint64) ([]utxo.UTXO, error) {
	var results []esploraUTXO
	if err := c.getJSON(ctx, "/address/"+url.PathEscape(address)+"/utxo", &results); err != nil {
		return nil, err
	}
	out := make([]utxo.UTXO, 0, len(results))
	for _, r := range results {
		if r.Value == 0 || r.Value < minAmount {
			continue
		}
		out = append(out, utxo.UTXO{TxID: r.TxID, Vout: r.Vout, Value: r.Value, Height: r.Status.BlockHeight})
	}
	return out, nil
}

// GetRawTx calls GET /tx/{txid}/hex, which answers with plain hex.
func (c *BTCClient) GetRawTx(ctx context.Context, txid string) ([]byte, error) {
	body, err := c.do(ctx, http.MethodGet, "/tx/"+url.PathEscape(txid)+"/hex", "", nil)
	if err != nil {
		return nil, err
	}
	data, err := hex.DecodeString(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tx hex: %v", ErrInvalidResponse, err)
	}
	return data, nil
}

// BroadcastTx calls POST /tx with the raw hex as a text body.
func (c *BTCClient) BroadcastTx(ctx context.Context, rawTxHex string) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/tx", "text/plain", []byte(rawTxHex))
	if err != nil {
		return "", classifyBroadcast(err)
	}
	txid := strings.TrimSpace(string(body))
	if len(txid) != 64 {
		return "", classifyBroadcast(fmt.Errorf("%w: unexpected txid %q", ErrInvalidResponse, txid))
	}
	log.Chain.Debug().Str("txid", txid).Msg("btc broadcast accepted")
	return txid, nil
}

// FetchFeeRates calls GET /v1/fees/recommended.
func (c *BTCClient) FetchFeeRates(ctx context.Context) (*FeeRates, error) {
	var rates FeeRates
	if err := c.getJSON(ctx, "/v1/fees/recommended", &rates); err != nil {
		return nil, err
	}
	if rates.Fastest == 0 && rates.HalfHour == 0 && rates.Hour == 0 {
		return nil, fmt.Errorf("%w: empty fee rates", ErrInvalidResponse)
	}
	return &rates, nil
}
