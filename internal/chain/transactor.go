package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// ErrTxReverted is returned when a mined transaction has a failed status.
var ErrTxReverted = errors.New("transaction reverted")

var errAwaitingConfirmations = errors.New("awaiting confirmations")

// Gas estimates are padded by this percentage before signing.
const gasEstimatePadPercent = 20

// Transactor submits transactions one at a time from a single signer and
// blocks until each is mined with the configured number of confirmations.
type Transactor struct {
	backend       Backend
	signer        Signer
	chainID       *big.Int
	logger        *zap.Logger
	confirmations uint64
	settleDelay   time.Duration
	pollInitial   time.Duration
	pollMax       time.Duration
	receiptWait   time.Duration
}

// TransactorOption configures a Transactor.
type TransactorOption func(*Transactor)

// WithConfirmations sets how many blocks, including the inclusion block, a
// receipt needs before a transaction counts as confirmed.
func WithConfirmations(n uint64) TransactorOption {
	return func(t *Transactor) {
		if n > 0 {
			t.confirmations = n
		}
	}
}

// WithSettleDelay adds a fixed wait after each confirmed transaction.
func WithSettleDelay(d time.Duration) TransactorOption {
	return func(t *Transactor) {
		t.settleDelay = d
	}
}

// WithPolling sets the receipt polling backoff bounds.
func WithPolling(initial, max time.Duration) TransactorOption {
	return func(t *Transactor) {
		t.pollInitial = initial
		t.pollMax = max
	}
}

// WithReceiptTimeout bounds how long WaitMined polls before giving up.
func WithReceiptTimeout(d time.Duration) TransactorOption {
	return func(t *Transactor) {
		t.receiptWait = d
	}
}

// WithLogger sets the transactor logger.
func WithLogger(l *zap.Logger) TransactorOption {
	return func(t *Transactor) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTransactor queries the chain id and returns a ready Transactor.
func NewTransactor(ctx context.Context, backend Backend, signer Signer, opts ...TransactorOption) (*Transactor, error) {
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}

	t := &Transactor{
		backend:       backend,
		signer:        signer,
		chainID:       chainID,
		logger:        zap.NewNop(),
		confirmations: 1,
		pollInitial:   500 * time.Millisecond,
		pollMax:       5 * time.Second,
		receiptWait:   5 * time.Minute,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// ChainID returns the chain id the transactor signs for.
func (t *Transactor) ChainID() *big.Int {
	return new(big.Int).Set(t.chainID)
}

// From returns the sending account.
func (t *Transactor) From() common.Address {
	return t.signer.Address()
}

// Call performs an eth_call from the sending account.
func (t *Transactor) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	from := t.From()
	out, err := t.backend.CallContract(ctx, ethereum.CallMsg{From: from, To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", to.Hex(), err)
	}
	return out, nil
}

// TxOption adjusts a single transaction.
type TxOption func(*txParams)

type txParams struct {
	gasLimit uint64
}

// WithGasLimit skips estimation and uses limit.
func WithGasLimit(limit uint64) TxOption {
	return func(p *txParams) {
		p.gasLimit = limit
	}
}

// Transact sends data to a contract and waits for confirmation.
func (t *Transactor) Transact(ctx context.Context, to common.Address, data []byte, opts ...TxOption) (*types.Receipt, error) {
	return t.send(ctx, &to, data, opts)
}

// Create deploys code (creation bytecode plus constructor arguments) and waits
// for confirmation. The receipt carries the new contract address.
func (t *Transactor) Create(ctx context.Context, code []byte, opts ...TxOption) (*types.Receipt, error) {
	return t.send(ctx, nil, code, opts)
}

func (t *Transactor) send(ctx context.Context, to *common.Address, data []byte, opts []TxOption) (*types.Receipt, error) {
	var params txParams
	for _, opt := range opts {
		opt(&params)
	}

	from := t.From()
	nonce, err := t.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}
	gasPrice, err := t.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	gasLimit := params.gasLimit
	if gasLimit == 0 {
		estimate, err := t.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:     from,
			To:       to,
			GasPrice: gasPrice,
			Data:     data,
		})
		if err != nil {
			return nil, fmt.Errorf("estimate gas: %w", err)
		}
		gasLimit = estimate + estimate*gasEstimatePadPercent/100
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       to,
		Data:     data,
	})
	signed, err := t.signer.SignTx(tx, t.chainID)
	if err != nil {
		return nil, err
	}
	if err := t.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send tx: %w", err)
	}

	t.logger.Debug("Transaction submitted",
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas_limit", gasLimit),
	)

	receipt, err := t.WaitMined(ctx, signed.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrTxReverted, signed.Hash().Hex())
	}

	if t.settleDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(t.settleDelay):
		}
	}
	return receipt, nil
}

// WaitMined polls for the receipt of txHash until it has the configured
// confirmations. Lookup errors other than "not found" abort immediately.
func (t *Transactor) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = t.pollInitial
	policy.MaxInterval = t.pollMax
	policy.MaxElapsedTime = t.receiptWait

	operation := func() (*types.Receipt, error) {
		receipt, err := t.backend.TransactionReceipt(ctx, txHash)
		if errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("get receipt %s: %w", txHash.Hex(), err))
		}
		if t.confirmations <= 1 {
			return receipt, nil
		}

		head, err := t.backend.BlockNumber(ctx)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("get block number: %w", err))
		}
		mined := receipt.BlockNumber.Uint64()
		if head < mined || head-mined+1 < t.confirmations {
			return nil, errAwaitingConfirmations
		}
		return receipt, nil
	}

	receipt, err := backoff.RetryWithData(operation, backoff.WithContext(policy, ctx))
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", txHash.Hex(), err)
	}
	t.logger.Debug("Transaction confirmed",
		zap.String("tx_hash", txHash.Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
		zap.Uint64("gas_used", receipt.GasUsed),
	)
	return receipt, nil
}
var _ Sender = (*Transactor)(nil)
