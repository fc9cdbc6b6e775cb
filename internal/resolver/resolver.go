package resolver

import (
	"github.com/ethereum/go-ethereum/common"
)

// Resolver is the strategy specific capability set a harness drives. Every
// hook is a predicate over harness supplied values and returns nil when the
// invariant holds.
type Resolver interface {
	// GetStrategyDestinations lists every position outside the strategy that
	// holds strategy funds. The harness samples want balances for each.
	GetStrategyDestinations() Destinations

	HookAfterConfirmWithdraw(before, after Snapshot, params Params) error
	HookAfterConfirmDeposit(before, after Snapshot, params Params) error
	HookAfterEarn(before, after Snapshot, params Params) error
	HookAfterTend(before, after Snapshot, tx *Receipt) error

	ConfirmHarvest(before, after Snapshot, tx *Receipt) error

	// AddEntityBalancesForTokens may append extra balance queries for token
	// across entities to calls.
	AddEntityBalancesForTokens(calls []BalanceCall, tokenKey string, token common.Address, entities map[string]common.Address) []BalanceCall
}
