package deploy

import (
	"context"
	"fmt"

	"github.com/cyphera/sett-deployer/internal/chain"
	"github.com/cyphera/sett-deployer/internal/contracts"
	"github.com/cyphera/sett-deployer/internal/errs"
	"github.com/cyphera/sett-deployer/internal/helpers"
	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Deployment is one confirmed proxy creation.
type Deployment struct {
	Address common.Address `json:"address"`
	TxHash  common.Hash    `json:"tx_hash"`
}

// VaultDeployment adds the unpause transaction to a vault Deployment.
type VaultDeployment struct {
	Deployment
	UnpauseTxHash common.Hash `json:"unpause_tx_hash"`
}

// Deployer creates AdminUpgradeabilityProxy instances in front of logic
// contracts.
type Deployer struct {
	sender        chain.Sender
	proxyBytecode []byte
	logger        *zap.Logger
}

func NewDeployer(sender chain.Sender, proxyBytecode []byte, logger *zap.Logger) *Deployer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deployer{sender: sender, proxyBytecode: proxyBytecode, logger: logger}
}

// Deploy creates a proxy for logic administered by proxyAdmin and runs
// initData through it in the same transaction.
func (d *Deployer) Deploy(ctx context.Context, logic, proxyAdmin common.Address, initData []byte, opts ...chain.TxOption) (Deployment, error) {
	if helpers.IsZeroAddress(logic) {
		return Deployment{}, errs.Config("logic", "must not be the zero address")
	}
	if helpers.IsZeroAddress(proxyAdmin) {
		return Deployment{}, errs.Config("proxy_admin", "must not be the zero address")
	}
	if len(d.proxyBytecode) == 0 {
		return Deployment{}, errs.Config("proxy_artifact", "bytecode is empty")
	}

	code, err := contracts.EncodeProxyCreation(d.proxyBytecode, contracts.ProxyCreation{
		Logic:    logic,
		Admin:    proxyAdmin,
		InitData: initData,
	})
	if err != nil {
		return Deployment{}, err
	}
	receipt, err := d.sender.Create(ctx, code, opts...)
	if err != nil {
		return Deployment{}, fmt.Errorf("deploy proxy for %s: %w", logic.Hex(), err)
	}
	if helpers.IsZeroAddress(receipt.ContractAddress) {
		return Deployment{}, errs.Mismatch("proxy contract address", "non-zero", receipt.ContractAddress.Hex())
	}
	return Deployment{Address: receipt.ContractAddress, TxHash: receipt.TxHash}, nil
}

// DeployController deploys a test controller with the deployer in every role.
func (d *Deployer) DeployController(ctx context.Context, logic, proxyAdmin common.Address) (*contracts.Controller, Deployment, error) {
	dev := d.sender.From()
	args := contracts.ControllerInitArgs{Governance: dev, Strategist: dev, Keeper: dev, Rewards: dev}
	d.logger.Debug("Controller arguments", zap.String("args", spew.Sdump(args)))

	init, err := contracts.EncodeControllerInit(args)
	if err != nil {
		return nil, Deployment{}, fmt.Errorf("encode controller initializer: %w", err)
	}
	dep, err := d.Deploy(ctx, logic, proxyAdmin, init)
	if err != nil {
		return nil, Deployment{}, err
	}
	d.logger.Info("Controller was deployed", zap.String("address", dep.Address.Hex()))
	return contracts.NewController(dep.Address, d.sender), dep, nil
}

// DeployVault deploys a vault, checks it starts paused, unpauses it and
// checks it is live.
func (d *Deployer) DeployVault(ctx context.Context, logic, proxyAdmin common.Address, args contracts.VaultInitArgs) (*contracts.Vault, VaultDeployment, error) {
	d.logger.Debug("Vault arguments", zap.String("args", spew.Sdump(args)))

	init, err := contracts.EncodeVaultInit(args)
	if err != nil {
		return nil, VaultDeployment{}, fmt.Errorf("encode vault initializer: %w", err)
	}
	dep, err := d.Deploy(ctx, logic, proxyAdmin, init)
	if err != nil {
		return nil, VaultDeployment{}, err
	}
	d.logger.Info("Vault was deployed", zap.String("address", dep.Address.Hex()))

	vault := contracts.NewVault(dep.Address, d.sender)
	result := VaultDeployment{Deployment: dep}

	paused, err := vault.Paused(ctx)
	if err != nil {
		return nil, result, err
	}
	if !paused {
		return nil, result, errs.Mismatch("vault.paused() after deploy", true, paused)
	}

	receipt, err := vault.Unpause(ctx, d.sender)
	if err != nil {
		return nil, result, err
	}
	result.UnpauseTxHash = receipt.TxHash

	paused, err = vault.Paused(ctx)
	if err != nil {
		return nil, result, err
	}
	if paused {
		return nil, result, errs.Mismatch("vault.paused() after unpause", false, paused)
	}
	return vault, result, nil
}

// DeployStrategy deploys the strategy proxy. A zero gasLimit falls back to
// estimation.
func (d *Deployer) DeployStrategy(ctx context.Context, logic, proxyAdmin common.Address, args contracts.StrategyInitArgs, gasLimit uint64) (*contracts.Strategy, Deployment, error) {
	d.logger.Debug("Strategy arguments", zap.String("args", spew.Sdump(args)))

	init, err := contracts.EncodeStrategyInit(args)
	if err != nil {
		return nil, Deployment{}, fmt.Errorf("encode strategy initializer: %w", err)
	}
	var opts []chain.TxOption
	if gasLimit > 0 {
		opts = append(opts, chain.WithGasLimit(gasLimit))
	}
	dep, err := d.Deploy(ctx, logic, proxyAdmin, init, opts...)
	if err != nil {
		return nil, Deployment{}, err
	}
	d.logger.Info("Strategy was deployed", zap.String("address", dep.Address.Hex()))
	return contracts.NewStrategy(dep.Address, d.sender), dep, nil
}
