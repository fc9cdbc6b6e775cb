package resolver

import (
	"github.com/cyphera/sett-deployer/internal/constants"
	"github.com/cyphera/sett-deployer/internal/errs"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// CoreResolver carries the checks shared by every strategy. Its operation
// hooks accept everything.
type CoreResolver struct {
	Logger *zap.Logger
}

var _ Resolver = (*CoreResolver)(nil)

func (r *CoreResolver) logger() *zap.Logger {
	if r == nil || r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *CoreResolver) GetStrategyDestinations() Destinations {
	return Destinations{}
}

func (r *CoreResolver) HookAfterConfirmWithdraw(before, after Snapshot, params Params) error {
	return nil
}

func (r *CoreResolver) HookAfterConfirmDeposit(before, after Snapshot, params Params) error {
	return nil
}

func (r *CoreResolver) HookAfterEarn(before, after Snapshot, params Params) error {
	return nil
}

func (r *CoreResolver) HookAfterTend(before, after Snapshot, tx *Receipt) error {
	return nil
}

// ConfirmHarvest checks that the share price did not fall and that each
// configured performance fee reached its recipient when value was gained.
// Balances that were not sampled are skipped.
func (r *CoreResolver) ConfirmHarvest(before, after Snapshot, tx *Receipt) error {
	ppfs, err := Diff(before, after, constants.KeyPricePerFullShare)
	if err != nil {
		return err
	}
	if ppfs.Sign() < 0 {
		return errs.Mismatch("harvest "+constants.KeyPricePerFullShare+" did not decrease", before[constants.KeyPricePerFullShare], after[constants.KeyPricePerFullShare])
	}
	if ppfs.Sign() == 0 {
		return nil
	}

	fees := []struct {
		feeKey string
		entity string
	}{
		{constants.KeyPerformanceFeeGovernance, constants.EntityGovernanceRewards},
		{constants.KeyPerformanceFeeStrategist, constants.EntityStrategist},
	}
	for _, f := range fees {
		fee, ok := before.Get(f.feeKey)
		if !ok || fee.Sign() == 0 {
			continue
		}
		key := BalanceKey(constants.TokenKeyWant, f.entity)
		if _, ok := before.Get(key); !ok {
			continue
		}
		delta, err := Diff(before, after, key)
		if err != nil {
			return err
		}
		if delta.Sign() <= 0 {
			return errs.Mismatch("harvest "+key+" increased", "> 0", delta)
		}
		r.logger().Debug("Harvest fee received", zap.String("entity", f.entity), zap.String("amount", delta.String()))
	}
	return nil
}

// AddEntityBalancesForTokens returns calls unchanged.
func (r *CoreResolver) AddEntityBalancesForTokens(calls []BalanceCall, tokenKey string, token common.Address, entities map[string]common.Address) []BalanceCall {
	return calls
}
