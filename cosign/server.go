package cosign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bitfsorg/tbcwallet-go/log"
	"github.com/bitfsorg/tbcwallet-go/multisig"
	"github.com/bitfsorg/tbcwallet-go/tx"
	"github.com/julienschmidt/httprouter"
)

// PageSize is the number of transactions per FetchPending page.
const PageSize = 20

// Server is an in-memory relay. Every signature it accepts is verified
// against the unsigned transaction first.
type Server struct {
	mu  sync.Mutex
	txs map[string]*multisig.Transaction
}

// NewServer returns an empty relay.
func NewServer() *Server {
	return &Server{txs: make(map[string]*multisig.Transaction)}
}

// Router returns the relay's routes.
func (s *Server) Router() *httprouter.Router {
	mux := httprouter.New()

	// POST {transaction} /v1/multisig/tx -> {transaction} submit or merge signatures
	mux.POST("/v1/multisig/tx", s.submit)

	// GET /v1/multisig/tx/:id -> {transaction}
	mux.GET("/v1/multisig/tx/:id", s.get)

	// POST {pubKey, signatures} /v1/multisig/tx/:id/sign -> {transaction}
	mux.POST("/v1/multisig/tx/:id/sign", s.sign)

	// POST {pubKey} /v1/multisig/tx/:id/withdraw -> {transaction}
	mux.POST("/v1/multisig/tx/:id/withdraw", s.withdraw)

	// POST {txid} /v1/multisig/tx/:id/complete -> {transaction}
	mux.POST("/v1/multisig/tx/:id/complete", s.complete)

	// GET /v1/multisig/pending/:pubkey?page=N -> {pending grouped by state}
	mux.GET("/v1/multisig/pending/:pubkey", s.pending)

	return mux
}

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router(), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		log.Cosign.Info().Str("addr", addr).Msg("relay listening")
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in multisig.Transaction
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		sendBadRequest(w, fmt.Sprintf("decode transaction: %s", err))
		return
	}
	if err := in.Wallet().Validate(); err != nil {
		sendError(w, "submit", err)
		return
	}
	if len(in.Signatures) == 0 {
		sendBadRequest(w, "submit: transaction carries no signatures")
		return
	}
	for pk, sigs := range in.Signatures {
		if err := multisig.VerifySignatures(&in, pk, sigs); err != nil {
			sendError(w, "submit", err)
			return
		}
	}

	signers, incoming := in.Signers(), in.Signatures

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.txs[in.UnsignedTxID]
	if !ok {
		cur = &in
		cur.Signatures, cur.State, cur.TxID = nil, multisig.StateWaitSigned, ""
		s.txs[in.UnsignedTxID] = cur
	} else if cur.TxHex != in.TxHex {
		sendError(w, "submit", fmt.Errorf("%w: %s", multisig.ErrTxMismatch, in.UnsignedTxID))
		return
	}
	for _, pk := range signers {
		if cur.HasSigned(pk) {
			continue
		}
		if err := cur.AddSignature(pk, incoming[pk]); err != nil {
			sendError(w, "submit", err)
			return
		}
	}
	log.Cosign.Info().
		Str("unsigned_txid", cur.UnsignedTxID).
		Int("signatures", cur.SignatureCount()).
		Stringer("state", cur.State).
		Bool("new", !ok).
		Msg("transaction submitted")
	sendResponse(w, snapshot(cur))
}

func (s *Server) get(w http.ResponseWriter, _ *http.Request, p httprouter.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(p.ByName("id"))
	if err != nil {
		sendError(w, "get", err)
		return
	}
	sendResponse(w, snapshot(t))
}

func (s *Server) sign(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req signRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendBadRequest(w, fmt.Sprintf("decode sign request: %s", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(p.ByName("id"))
	if err != nil {
		sendError(w, "sign", err)
		return
	}
	if t.State.Final() {
		sendError(w, "sign", fmt.Errorf("%w: transaction is %s", multisig.ErrInvalidState, t.State))
		return
	}
	if err := multisig.VerifySignatures(t, req.PubKey, req.Signatures); err != nil {
		sendError(w, "sign", err)
		return
	}
	if err := t.AddSignature(req.PubKey, req.Signatures); err != nil {
		sendError(w, "sign", err)
		return
	}
	log.Cosign.Info().
		Str("unsigned_txid", t.UnsignedTxID).
		Str("signer", req.PubKey).
		Int("signatures", t.SignatureCount()).
		Stringer("state", t.State).
		Msg("signature added")
	sendResponse(w, snapshot(t))
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendBadRequest(w, fmt.Sprintf("decode withdraw request: %s", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(p.ByName("id"))
	if err != nil {
		sendError(w, "withdraw", err)
		return
	}
	if err := t.Withdraw(req.PubKey); err != nil {
		sendError(w, "withdraw", err)
		return
	}
	log.Cosign.Info().Str("unsigned_txid", t.UnsignedTxID).Str("by", req.PubKey).Msg("transaction withdrawn")
	sendResponse(w, snapshot(t))
}

func (s *Server) complete(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendBadRequest(w, fmt.Sprintf("decode complete request: %s", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(p.ByName("id"))
	if err != nil {
		sendError(w, "complete", err)
		return
	}
	if err := t.Complete(req.TxID); err != nil {
		sendError(w, "complete", err)
		return
	}
	log.Cosign.Info().Str("unsigned_txid", t.UnsignedTxID).Str("txid", t.TxID).Msg("transaction completed")
	sendResponse(w, snapshot(t))
}

func (s *Server) pending(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			sendBadRequest(w, "page must be a positive integer")
			return
		}
		page = n
	}
	pubKey := p.ByName("pubkey")

	s.mu.Lock()
	var mine []*multisig.Transaction
	for _, t := range s.txs {
		if slices.Contains(t.PubKeys, pubKey) {
			mine = append(mine, snapshot(t))
		}
	}
	s.mu.Unlock()

	slices.SortFunc(mine, func(a, b *multisig.Transaction) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.UnsignedTxID, b.UnsignedTxID)
	})

	out := &Pending{}
	start := (page - 1) * PageSize
	for i := start; i < len(mine) && i < start+PageSize; i++ {
		out.add(mine[i])
	}
	sendResponse(w, out)
}

func (s *Server) lookup(id string) (*multisig.Transaction, error) {
	t, ok := s.txs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, nil
}

// snapshot copies t so it can be encoded outside the lock.
func snapshot(t *multisig.Transaction) *multisig.Transaction {
	cp := *t
	cp.Signatures = maps.Clone(t.Signatures)
	return &cp
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

func sendResponse(w http.ResponseWriter, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		sendErrorResponse(w, http.StatusInternalServerError, codeUnknown, fmt.Sprintf("in json.Marshal: %s", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b)
}

func sendBadRequest(w http.ResponseWriter, message string) {
	sendErrorResponse(w, http.StatusBadRequest, codeBadRequest, message)
}

func sendError(w http.ResponseWriter, where string, err error) {
	status, code := statusForError(err)
	sendErrorResponse(w, status, code, fmt.Sprintf("%s: %s", where, err))
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, multisig.ErrInvalidState):
		return http.StatusConflict, codeConflict
	case errors.Is(err, multisig.ErrUnknownSigner),
		errors.Is(err, multisig.ErrInvalidParams),
		errors.Is(err, multisig.ErrInvalidWallet),
		errors.Is(err, multisig.ErrTxMismatch),
		errors.Is(err, tx.ErrInvalidSignature),
		errors.Is(err, tx.ErrInvalidParams):
		return http.StatusBadRequest, codeBadRequest
	}
	return http.StatusInternalServerError, codeUnknown
}

func sendErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	log.Cosign.Warn().Str("code", code).Msg(message)
	payload := fmt.Sprintf("{\"error\":{\"code\":%q,\"message\":%q}}", code, message)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(payload))
}
