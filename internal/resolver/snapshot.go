// Package resolver implements the strategy specific hooks a test harness
// calls around deposit, withdraw, earn, tend and harvest operations.
package resolver

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// ErrMissingKey is returned when a hook needs a snapshot value that was not sampled.
var ErrMissingKey = errors.New("snapshot key missing")

// Snapshot is a flat view of sampled chain values, keyed "token.entity" for
// balances and "contract.getter" for scalar reads.
type Snapshot map[string]*big.Int

// BalanceKey returns the snapshot key of entity's balance of tokenKey.
func BalanceKey(tokenKey, entity string) string {
	return tokenKey + "." + entity
}

// Get returns the value for key.
func (s Snapshot) Get(key string) (*big.Int, bool) {
	v, ok := s[key]
	return v, ok && v != nil
}

// MustGet returns the value for key or ErrMissingKey.
func (s Snapshot) MustGet(key string) (*big.Int, error) {
	v, ok := s.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	return v, nil
}

// Keys returns the snapshot keys in sorted order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Diff returns after[key] - before[key].
func Diff(before, after Snapshot, key string) (*big.Int, error) {
	b, err := before.MustGet(key)
	if err != nil {
		return nil, fmt.Errorf("before: %w", err)
	}
	a, err := after.MustGet(key)
	if err != nil {
		return nil, fmt.Errorf("after: %w", err)
	}
	return new(big.Int).Sub(a, b), nil
}

// Params describes the operation a hook is checking.
type Params struct {
	User   common.Address
	Amount *big.Int
}

// Destinations maps a sub-position name to the address holding strategy funds there.
type Destinations map[string]common.Address

// BalanceCall is one balanceOf query the harness executes into a Snapshot
// under BalanceKey(TokenKey, Entity).
type BalanceCall struct {
	TokenKey string
	Token    common.Address
	Entity   string
	Holder   common.Address
}

// Key returns the snapshot key the call's result is stored under.
func (c BalanceCall) Key() string {
	return BalanceKey(c.TokenKey, c.Entity)
}
