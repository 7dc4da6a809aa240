package cosign

import (
	"context"

	"github.com/bitfsorg/tbcwallet-go/multisig"
)

var _ Client = (*MockClient)(nil)

// MockClient is a test double for Client.
// All function fields must be set before the corresponding method is called.
type MockClient struct {
	SubmitFn       func(ctx context.Context, t *multisig.Transaction) (*multisig.Transaction, error)
	SignFn         func(ctx context.Context, unsignedTxID, pubKey string, sigs []string) (*multisig.Transaction, error)
	GetFn          func(ctx context.Context, unsignedTxID string) (*multisig.Transaction, error)
	FetchPendingFn func(ctx context.Context, pubKey string, page int) (*Pending, error)
	WithdrawFn     func(ctx context.Context, unsignedTxID, pubKey string) (*multisig.Transaction, error)
	CompleteFn     func(ctx context.Context, unsignedTxID, txid string) (*multisig.Transaction, error)
}

func (m *MockClient) Submit(ctx context.Context, t *multisig.Transaction) (*multisig.Transaction, error) {
	return m.SubmitFn(ctx, t)
}
func (m *MockClient) Sign(ctx context.Context, unsignedTxID, pubKey string, sigs []string) (*multisig.Transaction, error) {
	return m.SignFn(ctx, unsignedTxID, pubKey, sigs)
}
func (m *MockClient) Get(ctx context.Context, unsignedTxID string) (*multisig.Transaction, error) {
	return m.GetFn(ctx, unsignedTxID)
}
func (m *MockClient) FetchPending(ctx context.Context, pubKey string, page int) (*Pending, error) {
	return m.FetchPendingFn(ctx, pubKey, page)
}
func (m *MockClient) Withdraw(ctx context.Context, unsignedTxID, pubKey string) (*multisig.Transaction, error) {
	return m.WithdrawFn(ctx, unsignedTxID, pubKey)
}
func (m *MockClient) Complete(ctx context.Context, unsignedTxID, txid string) (*multisig.Transaction, error) {
	return m.CompleteFn(ctx, unsignedTxID, txid)
}
