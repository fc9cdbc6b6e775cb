// Package harness samples chain state around strategy operations and hands
// the before and after snapshots to a resolver.Resolver.
package harness

import (
	"context"
	"fmt"
	"sort"

	"github.com/cyphera/sett-deployer/internal/chain"
	"github.com/cyphera/sett-deployer/internal/constants"
	"github.com/cyphera/sett-deployer/internal/contracts"
	"github.com/cyphera/sett-deployer/internal/resolver"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Operation names a strategy action a hook is attached to.
type Operation string

const (
	OpDeposit  Operation = "deposit"
	OpWithdraw Operation = "withdraw"
	OpEarn     Operation = "earn"
	OpTend     Operation = "tend"
	OpHarvest  Operation = "harvest"
)

// Config identifies the contracts and accounts to sample.
type Config struct {
	Want     common.Address
	Vault    common.Address
	Strategy common.Address
	// Entities are sampled for both want and sett balances.
	Entities map[string]common.Address
}

// Action performs an operation. Operations that send no transaction return
// a nil receipt.
type Action func(ctx context.Context) (*types.Receipt, error)

// Harness runs operations between two snapshots.
type Harness struct {
	caller   chain.Caller
	resolver resolver.Resolver
	cfg      Config
	vault    *contracts.Vault
	strategy *contracts.Strategy
	logger   *zap.Logger
}

func New(caller chain.Caller, r resolver.Resolver, cfg Config, logger *zap.Logger) *Harness {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harness{
		caller:   caller,
		resolver: r,
		cfg:      cfg,
		vault:    contracts.NewVault(cfg.Vault, caller),
		strategy: contracts.NewStrategy(cfg.Strategy, caller),
		logger:   logger,
	}
}

// BalanceCalls builds the balance queries for one snapshot. Want balances
// cover the entities plus every strategy destination.
func (h *Harness) BalanceCalls() []resolver.BalanceCall {
	wantEntities := make(map[string]common.Address, len(h.cfg.Entities))
	for name, addr := range h.cfg.Entities {
		wantEntities[name] = addr
	}
	for name, addr := range h.resolver.GetStrategyDestinations() {
		wantEntities[name] = addr
	}

	var calls []resolver.BalanceCall
	calls = h.resolver.AddEntityBalancesForTokens(
		appendCalls(calls, constants.TokenKeyWant, h.cfg.Want, wantEntities),
		constants.TokenKeyWant, h.cfg.Want, wantEntities,
	)
	calls = h.resolver.AddEntityBalancesForTokens(
		appendCalls(calls, constants.TokenKeySett, h.cfg.Vault, h.cfg.Entities),
		constants.TokenKeySett, h.cfg.Vault, h.cfg.Entities,
	)
	return calls
}

func appendCalls(calls []resolver.BalanceCall, tokenKey string, token common.Address, entities map[string]common.Address) []resolver.BalanceCall {
	names := make([]string, 0, len(entities))
	for name := range entities {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		calls = append(calls, resolver.BalanceCall{TokenKey: tokenKey, Token: token, Entity: name, Holder: entities[name]})
	}
	return calls
}

// Snapshot samples every balance call plus the share price, the strategy's
// total balance and its fee getters.
func (h *Harness) Snapshot(ctx context.Context) (resolver.Snapshot, error) {
	snap := make(resolver.Snapshot)
	for _, call := range h.BalanceCalls() {
		bal, err := contracts.BalanceOf(ctx, h.caller, call.Token, call.Holder)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", call.Key(), err)
		}
		snap[call.Key()] = bal
	}

	ppfs, err := h.vault.PricePerFullShare(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", constants.KeyPricePerFullShare, err)
	}
	snap[constants.KeyPricePerFullShare] = ppfs

	if snap[constants.KeyStrategyBalanceOf], err = h.strategy.BalanceOf(ctx); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", constants.KeyStrategyBalanceOf, err)
	}
	fees, err := h.strategy.Fees(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot fees: %w", err)
	}
	snap[constants.KeyPerformanceFeeGovernance] = fees.GovernancePerformance
	snap[constants.KeyPerformanceFeeStrategist] = fees.StrategistPerformance
	snap[constants.KeyWithdrawalFee] = fees.Withdrawal
	return snap, nil
}

// Run snapshots, performs action, snapshots again and calls the resolver hook
// for op.
func (h *Harness) Run(ctx context.Context, op Operation, params resolver.Params, action Action) error {
	switch op {
	case OpDeposit, OpWithdraw, OpEarn, OpTend, OpHarvest:
	default:
		return fmt.Errorf("unknown operation %q", op)
	}

	before, err := h.Snapshot(ctx)
	if err != nil {
		return err
	}
	receipt, err := action(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	after, err := h.Snapshot(ctx)
	if err != nil {
		return err
	}
	tx, err := resolver.DecodeReceipt(receipt, h.cfg.Strategy)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch op {
	case OpDeposit:
		err = h.resolver.HookAfterConfirmDeposit(before, after, params)
	case OpWithdraw:
		err = h.resolver.HookAfterConfirmWithdraw(before, after, params)
	case OpEarn:
		err = h.resolver.HookAfterEarn(before, after, params)
	case OpTend:
		err = h.resolver.HookAfterTend(before, after, tx)
	case OpHarvest:
		err = h.resolver.ConfirmHarvest(before, after, tx)
	}
	if err != nil {
		return fmt.Errorf("%s check: %w", op, err)
	}
	h.logger.Debug("Operation confirmed", zap.String("operation", string(op)))
	return nil
}
