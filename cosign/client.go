// Package cosign relays M-of-N transactions between the members of a
// multisig wallet. The initiator submits a self-signed transaction, the
// other members fetch it from their pending list and post their
// signatures, and whoever broadcasts marks it completed.
package cosign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bitfsorg/tbcwallet-go/log"
	"github.com/bitfsorg/tbcwallet-go/multisig"
)

// Pending is a member's view of the relay, grouped by state.
type Pending struct {
	WaitSigned      []*multisig.Transaction `json:"wait_signed"`
	WaitOtherSign   []*multisig.Transaction `json:"wait_other_sign"`
	WaitBroadcasted []*multisig.Transaction `json:"wait_broadcasted"`
	Completed       []*multisig.Transaction `json:"completed"`
	Withdrawn       []*multisig.Transaction `json:"withdrawn"`
}

func (p *Pending) add(t *multisig.Transaction) {
	switch t.State {
	case multisig.StateWaitSigned:
		p.WaitSigned = append(p.WaitSigned, t)
	case multisig.StateWaitOtherSign:
		p.WaitOtherSign = append(p.WaitOtherSign, t)
	case multisig.StateWaitBroadcasted:
		p.WaitBroadcasted = append(p.WaitBroadcasted, t)
	case multisig.StateCompleted:
		p.Completed = append(p.Completed, t)
	case multisig.StateWithdrawn:
		p.Withdrawn = append(p.Withdrawn, t)
	}
}

// Client is the relay as seen by a wallet member.
type Client interface {
	// Submit uploads a new transaction, or merges its signatures into the
	// copy the relay already holds.
	Submit(ctx context.Context, t *multisig.Transaction) (*multisig.Transaction, error)
	// Sign adds pubKey's per-input signatures.
	Sign(ctx context.Context, unsignedTxID, pubKey string, sigs []string) (*multisig.Transaction, error)
	// Get returns one transaction.
	Get(ctx context.Context, unsignedTxID string) (*multisig.Transaction, error)
	// FetchPending returns the transactions pubKey is a member of. Pages
	// start at 1.
	FetchPending(ctx context.Context, pubKey string, page int) (*Pending, error)
	// Withdraw cancels a transaction on behalf of pubKey.
	Withdraw(ctx context.Context, unsignedTxID, pubKey string) (*multisig.Transaction, error)
	// Complete records the broadcast txid.
	Complete(ctx context.Context, unsignedTxID, txid string) (*multisig.Transaction, error)
}

type signRequest struct {
	PubKey     string   `json:"pubKey"`
	Signatures []string `json:"signatures"`
}

type withdrawRequest struct {
	PubKey string `json:"pubKey"`
}

type completeRequest struct {
	TxID string `json:"txid"`
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// HTTPClient talks to a relay over HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient returns a client for the relay at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Submit(ctx context.Context, t *multisig.Transaction) (*multisig.Transaction, error) {
	var out multisig.Transaction
	if err := c.call(ctx, http.MethodPost, "/v1/multisig/tx", t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Sign(ctx context.Context, unsignedTxID, pubKey string, sigs []string) (*multisig.Transaction, error) {
	var out multisig.Transaction
	req := signRequest{PubKey: pubKey, Signatures: sigs}
	if err := c.call(ctx, http.MethodPost, txPath(unsignedTxID, "sign"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Get(ctx context.Context, unsignedTxID string) (*multisig.Transaction, error) {
	var out multisig.Transaction
	if err := c.call(ctx, http.MethodGet, txPath(unsignedTxID, ""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) FetchPending(ctx context.Context, pubKey string, page int) (*Pending, error) {
	var out Pending
	path := "/v1/multisig/pending/" + url.PathEscape(pubKey) + "?page=" + strconv.Itoa(page)
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Withdraw(ctx context.Context, unsignedTxID, pubKey string) (*multisig.Transaction, error) {
	var out multisig.Transaction
	if err := c.call(ctx, http.MethodPost, txPath(unsignedTxID, "withdraw"), withdrawRequest{PubKey: pubKey}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Complete(ctx context.Context, unsignedTxID, txid string) (*multisig.Transaction, error) {
	var out multisig.Transaction
	if err := c.call(ctx, http.MethodPost, txPath(unsignedTxID, "complete"), completeRequest{TxID: txid}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func txPath(id, action string) string {
	p := "/v1/multisig/tx/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *HTTPClient) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("cosign: marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("cosign: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrRequestFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Cosign.Debug().Int("status", resp.StatusCode).Str("path", path).Msg("relay error")
		return responseError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrRequestFailed, path, err)
	}
	return nil
}

// responseError maps the relay's error payload back to a sentinel.
func responseError(status int, data []byte) error {
	var p errorPayload
	_ = json.Unmarshal(data, &p)
	msg := p.Error.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch p.Error.Code {
	case codeNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case codeBadRequest:
		return fmt.Errorf("%w: %s", ErrRejected, msg)
	case codeConflict:
		return fmt.Errorf("%w: %s", ErrStateConflict, msg)
	}
	return fmt.Errorf("%w: HTTP %d: %s", ErrRequestFailed, status, msg)
}
