package resolver

import (
	"github.com/cyphera/sett-deployer/internal/constants"
	"github.com/cyphera/sett-deployer/internal/errs"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// DestinationGauge is the destination name of a staking gauge.
const DestinationGauge = "gauge"

// GaugeResolver is a StrategyResolver for strategies that stake want in a
// single gauge.
type GaugeResolver struct {
	StrategyResolver
	Gauge common.Address
}

var _ Resolver = (*GaugeResolver)(nil)

func NewGaugeResolver(gauge common.Address, logger *zap.Logger) *GaugeResolver {
	return &GaugeResolver{StrategyResolver: *NewStrategyResolver(logger), Gauge: gauge}
}

func (r *GaugeResolver) GetStrategyDestinations() Destinations {
	return Destinations{DestinationGauge: r.Gauge}
}

func gaugeKey() string {
	return BalanceKey(constants.TokenKeyWant, DestinationGauge)
}

// HookAfterConfirmDeposit checks deposits stay in the vault until earn.
func (r *GaugeResolver) HookAfterConfirmDeposit(before, after Snapshot, params Params) error {
	delta, err := Diff(before, after, gaugeKey())
	if err != nil {
		return err
	}
	if delta.Sign() != 0 {
		return errs.Mismatch("deposit "+gaugeKey()+" unchanged", 0, delta)
	}
	return nil
}

// HookAfterEarn checks earn staked want in the gauge.
func (r *GaugeResolver) HookAfterEarn(before, after Snapshot, params Params) error {
	delta, err := Diff(before, after, gaugeKey())
	if err != nil {
		return err
	}
	if delta.Sign() <= 0 {
		return errs.Mismatch("earn "+gaugeKey()+" increased", "> 0", delta)
	}
	return nil
}

// HookAfterConfirmWithdraw checks withdrawals never add to the gauge.
func (r *GaugeResolver) HookAfterConfirmWithdraw(before, after Snapshot, params Params) error {
	delta, err := Diff(before, after, gaugeKey())
	if err != nil {
		return err
	}
	if delta.Sign() > 0 {
		return errs.Mismatch("withdraw "+gaugeKey()+" not increased", "<= 0", delta)
	}
	return nil
}

// HookAfterTend checks tend staked the strategy's idle want and left none behind.
func (r *GaugeResolver) HookAfterTend(before, after Snapshot, tx *Receipt) error {
	delta, err := Diff(before, after, gaugeKey())
	if err != nil {
		return err
	}
	if delta.Sign() <= 0 {
		return errs.Mismatch("tend "+gaugeKey()+" increased", "> 0", delta)
	}
	idleKey := BalanceKey(constants.TokenKeyWant, constants.EntityStrategy)
	idle, err := after.MustGet(idleKey)
	if err != nil {
		return err
	}
	if idle.Sign() != 0 {
		return errs.Mismatch("tend "+idleKey+" is zero", 0, idle)
	}
	return nil
}
