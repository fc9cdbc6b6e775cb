package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"
)

//go:generate mockgen -destination=../mocks/mock_backend.go -package=mocks github.com/cyphera/sett-deployer/internal/chain Backend

// Backend is the subset of the JSON-RPC surface the deployment tooling uses.
// *ethclient.Client satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

var _ Backend = (*ethclient.Client)(nil)

// Caller performs read-only contract calls against the latest block.
type Caller interface {
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// Sender signs, submits and confirms transactions from a single account.
type Sender interface {
	Caller
	From() common.Address
	Transact(ctx context.Context, to common.Address, data []byte, opts ...TxOption) (*types.Receipt, error)
	Create(ctx context.Context, code []byte, opts ...TxOption) (*types.Receipt, error)
}

// Dial connects to an RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return client, nil
}

// NewReader returns a Caller that issues eth_call against backend.
func NewReader(backend Backend) Caller {
	return reader{backend: backend}
}

type reader struct {
	backend Backend
}

func (r reader) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", to.Hex(), err)
	}
	return out, nil
}

// RateLimited wraps backend so every RPC waits on limiter first. A nil
// limiter returns backend unchanged.
func RateLimited(backend Backend, limiter *rate.Limiter) Backend {
	if limiter == nil {
		return backend
	}
	return &limitedBackend{next: backend, limiter: limiter}
}

// NewLimiter builds a limiter for perSecond requests, or nil when perSecond <= 0.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

type limitedBackend struct {
	next    Backend
	limiter *rate.Limiter
}

func (b *limitedBackend) ChainID(ctx context.Context) (*big.Int, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return b.next.ChainID(ctx)
}

func (b *limitedBackend) BlockNumber(ctx context.Context) (uint64, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return b.next.BlockNumber(ctx)
}

func (b *limitedBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return b.next.PendingNonceAt(ctx, account)
}

func (b *limitedBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return b.next.SuggestGasPrice(ctx)
}

func (b *limitedBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return b.next.EstimateGas(ctx, msg)
}

func (b *limitedBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	return b.next.SendTransaction(ctx, tx)
}

func (b *limitedBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return b.next.TransactionReceipt(ctx, txHash)
}

func (b *limitedBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return b.next.CallContract(ctx, msg, blockNumber)
}

func (b *limitedBackend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return b.next.CodeAt(ctx, account, blockNumber)
}
