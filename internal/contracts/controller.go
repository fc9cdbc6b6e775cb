package contracts

import (
	"context"

	"github.com/cyphera/sett-deployer/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
)

var (
	FuncControllerInitialize = w3.MustNewFunc("initialize(address,address,address,address)", "")
	FuncApproveStrategy      = w3.MustNewFunc("approveStrategy(address,address)", "")
	FuncSetStrategy          = w3.MustNewFunc("setStrategy(address,address)", "")
	FuncSetVault             = w3.MustNewFunc("setVault(address,address)", "")
	FuncApprovedStrategies   = w3.MustNewFunc("approvedStrategies(address,address)", "bool")
	FuncStrategies           = w3.MustNewFunc("strategies(address)", "address")
	FuncVaults               = w3.MustNewFunc("vaults(address)", "address")
	FuncGovernance           = w3.MustNewFunc("governance()", "address")
	FuncRewards              = w3.MustNewFunc("rewards()", "address")
)

// ControllerInitArgs are the Controller initializer arguments in call order.
type ControllerInitArgs struct {
	Governance common.Address
	Strategist common.Address
	Keeper     common.Address
	Rewards    common.Address
}

func EncodeControllerInit(args ControllerInitArgs) ([]byte, error) {
	return FuncControllerInitialize.EncodeArgs(args.Governance, args.Strategist, args.Keeper, args.Rewards)
}

// Controller maps want tokens to their strategy and vault.
type Controller struct {
	Address common.Address
	caller  chain.Caller
}

func NewController(address common.Address, caller chain.Caller) *Controller {
	return &Controller{Address: address, caller: caller}
}

func (c *Controller) ApproveStrategy(ctx context.Context, from chain.Sender, want, strategy common.Address) (*types.Receipt, error) {
	return transact(ctx, from, c.Address, FuncApproveStrategy, want, strategy)
}

func (c *Controller) SetStrategy(ctx context.Context, from chain.Sender, want, strategy common.Address) (*types.Receipt, error) {
	return transact(ctx, from, c.Address, FuncSetStrategy, want, strategy)
}

func (c *Controller) SetVault(ctx context.Context, from chain.Sender, want, vault common.Address) (*types.Receipt, error) {
	return transact(ctx, from, c.Address, FuncSetVault, want, vault)
}

func (c *Controller) ApprovedStrategies(ctx context.Context, want, strategy common.Address) (bool, error) {
	return callBool(ctx, c.caller, c.Address, FuncApprovedStrategies, want, strategy)
}

func (c *Controller) Strategies(ctx context.Context, want common.Address) (common.Address, error) {
	return callAddress(ctx, c.caller, c.Address, FuncStrategies, want)
}

func (c *Controller) Vaults(ctx context.Context, want common.Address) (common.Address, error) {
	return callAddress(ctx, c.caller, c.Address, FuncVaults, want)
}

func (c *Controller) Governance(ctx context.Context) (common.Address, error) {
	return callAddress(ctx, c.caller, c.Address, FuncGovernance)
}

func (c *Controller) Rewards(ctx context.Context) (common.Address, error) {
	return callAddress(ctx, c.caller, c.Address, FuncRewards)
}
