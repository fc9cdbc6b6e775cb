package deploy

import (
	"context"

	"github.com/cyphera/sett-deployer/internal/chain"
	"github.com/cyphera/sett-deployer/internal/config"
	"github.com/cyphera/sett-deployer/internal/contracts"
	"github.com/cyphera/sett-deployer/internal/errs"
	"github.com/cyphera/sett-deployer/internal/helpers"
	"github.com/ethereum/go-ethereum/common"
)

// Verification is the on-chain state of a wired want token.
type Verification struct {
	Controller common.Address         `json:"controller"`
	Want       common.Address         `json:"want"`
	Strategy   common.Address         `json:"strategy"`
	Name       string                 `json:"name"`
	Vault      common.Address         `json:"vault"`
	Approved   bool                   `json:"approved"`
	Paused     bool                   `json:"paused"`
	Fees       contracts.StrategyFees `json:"fees"`
}

// Verify reads the controller wiring for controller and the target's want
// and checks it against the configuration.
func Verify(ctx context.Context, caller chain.Caller, target *config.Target, controllerAddr common.Address) (*Verification, error) {
	if helpers.IsZeroAddress(controllerAddr) {
		return nil, errs.Config("controller", "is required to verify")
	}
	controller := contracts.NewController(controllerAddr, caller)
	v := &Verification{Controller: controllerAddr, Want: target.Want}

	var err error
	if v.Strategy, err = controller.Strategies(ctx, target.Want); err != nil {
		return nil, err
	}
	if helpers.IsZeroAddress(v.Strategy) {
		return v, errs.Mismatch("controller.strategies(want)", "non-zero", v.Strategy.Hex())
	}
	if v.Approved, err = controller.ApprovedStrategies(ctx, target.Want, v.Strategy); err != nil {
		return nil, err
	}
	if !v.Approved {
		return v, errs.Mismatch("controller.approvedStrategies(want, strategy)", true, false)
	}

	if v.Vault, err = controller.Vaults(ctx, target.Want); err != nil {
		return nil, err
	}
	if !helpers.IsZeroAddress(target.Vault) && v.Vault != target.Vault {
		return v, errs.Mismatch("controller.vaults(want)", target.Vault.Hex(), v.Vault.Hex())
	}
	if helpers.IsZeroAddress(v.Vault) {
		return v, errs.Mismatch("controller.vaults(want)", "non-zero", v.Vault.Hex())
	}
	if v.Paused, err = contracts.NewVault(v.Vault, caller).Paused(ctx); err != nil {
		return nil, err
	}
	if v.Paused {
		return v, errs.Mismatch("vault.paused()", false, true)
	}

	strategy := contracts.NewStrategy(v.Strategy, caller)
	want, err := strategy.Want(ctx)
	if err != nil {
		return nil, err
	}
	if want != target.Want {
		return v, errs.Mismatch("strategy.want()", target.Want.Hex(), want.Hex())
	}
	if v.Name, err = strategy.Name(ctx); err != nil {
		return nil, err
	}
	if v.Fees, err = strategy.Fees(ctx); err != nil {
		return nil, err
	}
	return v, CompareFees(target.Fees, v.Fees)
}
