package resolver

import (
	"github.com/cyphera/sett-deployer/internal/constants"
	"github.com/cyphera/sett-deployer/internal/errs"
	"go.uber.org/zap"
)

var performanceFeeFields = []string{"destination", "token", "amount", "blockNumber", "timestamp"}

// StrategyResolver checks harvests of a strategy that pays only the
// governance performance fee.
type StrategyResolver struct {
	CoreResolver

	// RequireValueGained fails ConfirmHarvest when the share price did not
	// strictly increase. When false the outcome is only logged.
	RequireValueGained bool
}

var _ Resolver = (*StrategyResolver)(nil)

// NewStrategyResolver returns a StrategyResolver that requires value gained.
func NewStrategyResolver(logger *zap.Logger) *StrategyResolver {
	return &StrategyResolver{CoreResolver: CoreResolver{Logger: logger}, RequireValueGained: true}
}

// ConfirmHarvestEvents checks the harvest receipt carries at least one well
// formed PerformanceFeeGovernance event, exactly one Harvest event and no
// PerformanceFeeStrategist event.
func (r *StrategyResolver) ConfirmHarvestEvents(before, after Snapshot, tx *Receipt) error {
	if tx == nil {
		return errs.EventShape(constants.EventHarvest, "no receipt")
	}

	govFees := tx.Events[constants.EventPerformanceFeeGovernance]
	if len(govFees) == 0 {
		return errs.EventShape(constants.EventPerformanceFeeGovernance, "expected at least one event, got none")
	}
	for i, event := range govFees {
		for _, field := range performanceFeeFields {
			if _, ok := event[field]; !ok {
				return errs.EventShape(constants.EventPerformanceFeeGovernance, "event %d missing field %q", i, field)
			}
		}
	}

	harvests := tx.Events[constants.EventHarvest]
	if len(harvests) != 1 {
		return errs.EventShape(constants.EventHarvest, "expected exactly one event, got %d", len(harvests))
	}
	if _, ok := harvests[0]["harvested"]; !ok {
		return errs.EventShape(constants.EventHarvest, "missing field %q", "harvested")
	}

	// Strategist performance fee is configured to zero.
	if tx.Has(constants.EventPerformanceFeeStrategist) {
		return errs.EventShape(constants.EventPerformanceFeeStrategist, "unexpected event, strategist fee is zero")
	}

	r.logger().Debug("Harvest events confirmed",
		zap.Int("performance_fee_governance", len(govFees)),
		zap.Any("harvested", harvests[0]["harvested"]),
	)
	return nil
}

// ConfirmHarvest checks harvest events, runs the core harvest checks and then
// compares the share price.
func (r *StrategyResolver) ConfirmHarvest(before, after Snapshot, tx *Receipt) error {
	if err := r.ConfirmHarvestEvents(before, after, tx); err != nil {
		return err
	}
	if err := r.CoreResolver.ConfirmHarvest(before, after, tx); err != nil {
		return err
	}

	delta, err := Diff(before, after, constants.KeyPricePerFullShare)
	if err != nil {
		return err
	}
	valueGained := delta.Sign() > 0
	if !valueGained {
		if r.RequireValueGained {
			return errs.Mismatch("harvest "+constants.KeyPricePerFullShare+" increased", before[constants.KeyPricePerFullShare], after[constants.KeyPricePerFullShare])
		}
		r.logger().Warn("Harvest produced no value", zap.String("ppfs", after[constants.KeyPricePerFullShare].String()))
		return nil
	}
	r.logger().Info("Harvest produced value", zap.String("ppfs_delta", delta.String()))
	return nil
}
