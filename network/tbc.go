package network

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"github.com/bitfsorg/tbcwallet-go/log"
	"github.com/bitfsorg/tbcwallet-go/txerr"
	"github.com/bitfsorg/tbcwallet-go/utxo"
)

// Compile-time interface check.
var _ TBCService = (*TBCClient)(nil)

// TBCClient is the REST client for the native-chain API.
type TBCClient struct {
	httpClient
}

// NewTBCClient creates a client for the API rooted at baseURL.
func NewTBCClient(baseURL string, timeout time.Duration) *TBCClient {
	return &TBCClient{httpClient: newHTTPClient(baseURL, timeout)}
}

// unspentResult maps one entry of the unspent listing.
type unspentResult struct {
	TxHash string `json:"tx_hash"`
	TxPos  uint32 `json:"tx_pos"`
	Height uint32 `json:"height"`
	Value  uint64 `json:"value"`
}

func (r unspentResult) toUTXO(script string) utxo.UTXO {
	return utxo.UTXO{TxID: r.TxHash, Vout: r.TxPos, Value: r.Value, Height: r.Height, Script: script}
}

// ListUnspent returns the unspent outputs of address.
// It calls GET /address/{address}/unspent/.
func (c *TBCClient) ListUnspent(ctx context.Context, address string, minAmount uint64) ([]utxo.UTXO, error) {
	var results []unspentResult
	if err := c.getJSON(ctx, "/address/"+url.PathEscape(address)+"/unspent/", &results); err != nil {
		return nil, err
	}
	out := make([]utxo.UTXO, 0, len(results))
	for _, r := range results {
		if r.Value == 0 || r.Value < minAmount {
			continue
		}
		out = append(out, r.toUTXO(""))
	}
	return out, nil
}

// GetRawTx returns the raw transaction bytes for txid.
// It calls GET /tx/hex/{txid}, which answers with a JSON string.
func (c *TBCClient) GetRawTx(ctx context.Context, txid string) ([]byte, error) {
	var rawHex string
	if err := c.getJSON(ctx, "/tx/hex/"+url.PathEscape(txid), &rawHex); err != nil {
		return nil, err
	}
	data, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tx hex: %v", ErrInvalidResponse, err)
	}
	return data, nil
}

type broadcastRequest struct {
	TxHex string `json:"txHex"`
}

type broadcastResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// BroadcastTx submits raw hex via POST /broadcast/tx/raw. Rejections are
// wrapped in ErrBroadcastRejected and tagged.
func (c *TBCClient) BroadcastTx(ctx context.Context, rawTxHex string) (string, error) {
	var resp broadcastResponse
	if err := c.postJSON(ctx, "/broadcast/tx/raw", broadcastRequest{TxHex: rawTxHex}, &resp); err != nil {
		return "", classifyBroadcast(err)
	}
	if resp.Error != nil && resp.Error.Message != "" {
		return "", classifyBroadcast(fmt.Errorf("%s", resp.Error.Message))
	}
	if resp.Result == "" {
		return "", txerr.New(txerr.Unknown, "network.broadcast",
			fmt.Errorf("%w: empty txid", ErrInvalidResponse))
	}
	log.Chain.Debug().Str("txid", resp.Result).Msg("tbc broadcast accepted")
	return resp.Result, nil
}

// FetchFTInfo calls GET /ft/info/contract/id/{contractID}.
func (c *TBCClient) FetchFTInfo(ctx context.Context, contractID string) (*FTInfo, error) {
	var info FTInfo
	if err := c.getJSON(ctx, "/ft/info/contract/id/"+url.PathEscape(contractID), &info); err != nil {
		return nil, err
	}
	if info.ContractID == "" {
		info.ContractID = contractID
	}
	return &info, nil
}

type ftUTXOResult struct {
	UTXOID     string `json:"utxoId"`
	UTXOVout   uint32 `json:"utxoVout"`
	UTXOValue  uint64 `json:"utxoBalance"`
	FTBalance  uint64 `json:"ftBalance"`
	ContractID string `json:"ftContractId"`
	Script     string `json:"utxoScript"`
}

type ftUTXOListResult struct {
	List []ftUTXOResult `json:"ftUtxoList"`
}

// FetchFTUTXOs calls GET /ft/utxo/address/{address}/contract/{contractID}.
func (c *TBCClient) FetchFTUTXOs(ctx context.Context, contractID, address string) ([]utxo.FTUTXO, error) {
	var res ftUTXOListResult
	path := "/ft/utxo/address/" + url.PathEscape(address) + "/contract/" + url.PathEscape(contractID)
	if err := c.getJSON(ctx, path, &res); err != nil {
		return nil, err
	}
	out := make([]utxo.FTUTXO, 0, len(res.List))
	for _, r := range res.List {
		if r.FTBalance == 0 {
			continue
		}
		cid := r.ContractID
		if cid == "" {
			cid = contractID
		}
		out = append(out, utxo.FTUTXO{
			TxID:       r.UTXOID,
			Vout:       r.UTXOVout,
			Value:      r.UTXOValue,
			Balance:    r.FTBalance,
			ContractID: cid,
			Script:     r.Script,
		})
	}
	return out, nil
}

// FetchPrePreTxData calls GET /ft/prepre/tx/{txid}/vout/{vout}.
func (c *TBCClient) FetchPrePreTxData(ctx context.Context, txid string, vout uint32) (string, error) {
	var res struct {
		Data string `json:"prepreTxData"`
	}
	path := fmt.Sprintf("/ft/prepre/tx/%s/vout/%d", url.PathEscape(txid), vout)
	if err := c.getJSON(ctx, path, &res); err != nil {
		return "", err
	}
	if _, err := hex.DecodeString(res.Data); err != nil || res.Data == "" {
		return "", fmt.Errorf("%w: invalid prepre data for %s:%d", ErrInvalidResponse, txid, vout)
	}
	return res.Data, nil
}

// FetchUTXOsByScriptHash calls GET /script/hash/{scriptHash}/unspent.
func (c *TBCClient) FetchUTXOsByScriptHash(ctx context.Context, scriptHash string) ([]utxo.UTXO, error) {
	var results []unspentResult
	if err := c.getJSON(ctx, "/script/hash/"+url.PathEscape(scriptHash)+"/unspent", &results); err != nil {
		return nil, err
	}
	out := make([]utxo.UTXO, 0, len(results))
	for _, r := range results {
		if r.Value == 0 {
			continue
		}
		out = append(out, r.toUTXO(""))
	}
	return out, nil
}
