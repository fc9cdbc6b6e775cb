package deploy

import (
	"context"
	"math/big"

	"github.com/cyphera/sett-deployer/internal/chain"
	"github.com/cyphera/sett-deployer/internal/config"
	"github.com/cyphera/sett-deployer/internal/contracts"
	"github.com/cyphera/sett-deployer/internal/errs"
	"github.com/cyphera/sett-deployer/internal/helpers"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Transaction step names used as Record.Transactions keys.
const (
	StepDeployController = "deploy_controller"
	StepDeployVault      = "deploy_vault"
	StepUnpauseVault     = "unpause_vault"
	StepDeployStrategy   = "deploy_strategy"
	StepApproveStrategy  = "approve_strategy"
	StepSetStrategy      = "set_strategy"
	StepSetVault         = "set_vault"
)

// Pipeline resolves actors, deploys whatever the target does not already
// have, deploys the strategy and wires everything on the controller.
type Pipeline struct {
	target        *config.Target
	sender        chain.Sender
	proxyBytecode []byte
	logger        *zap.Logger
}

func NewPipeline(target *config.Target, sender chain.Sender, proxyBytecode []byte, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{target: target, sender: sender, proxyBytecode: proxyBytecode, logger: logger}
}

// Run executes the pipeline. It stops at the first failure; transactions that
// already confirmed are reported in the returned record.
func (p *Pipeline) Run(ctx context.Context) (*Record, error) {
	t := p.target
	dev := p.sender.From()
	record := newRecord(t, dev)
	log := p.logger.With(
		zap.String("run_id", record.RunID),
		zap.String("network", t.Network),
		zap.String("strategy", t.Strategy),
	)
	log.Info("Starting deployment", zap.String("deployer", dev.Hex()))

	registry := NewRegistryClient(contracts.NewRegistry(t.Registry, p.sender), log)
	actors, err := registry.ResolveActors(ctx, dev)
	if err != nil {
		return record, errors.Wrap(err, "resolve actors")
	}
	record.Actors = actors

	deployer := NewDeployer(p.sender, p.proxyBytecode, log)

	controller := contracts.NewController(t.Controller, p.sender)
	if helpers.IsZeroAddress(t.Controller) {
		var dep Deployment
		controller, dep, err = deployer.DeployController(ctx, t.ControllerLogic, actors.ProxyAdmin)
		if err != nil {
			return record, errors.Wrap(err, "deploy controller")
		}
		record.ControllerDeployed = true
		record.addTx(StepDeployController, dep.TxHash)
	}
	record.Controller = controller.Address

	vault := contracts.NewVault(t.Vault, p.sender)
	if helpers.IsZeroAddress(t.Vault) {
		var dep VaultDeployment
		vault, dep, err = deployer.DeployVault(ctx, t.VaultLogic, actors.ProxyAdmin, contracts.VaultInitArgs{
			Token:      t.Want,
			Controller: controller.Address,
			Governance: actors.Governance,
			Keeper:     actors.Keeper,
			Guardian:   actors.Guardian,
		})
		record.addTx(StepDeployVault, dep.TxHash)
		record.addTx(StepUnpauseVault, dep.UnpauseTxHash)
		if err != nil {
			return record, errors.Wrap(err, "deploy vault")
		}
		record.VaultDeployed = true
	}
	record.Vault = vault.Address

	strategy, dep, err := deployer.DeployStrategy(ctx, t.StrategyLogic, actors.ProxyAdmin, contracts.StrategyInitArgs{
		Governance: actors.Governance,
		Strategist: actors.Strategist,
		Controller: controller.Address,
		Keeper:     actors.Keeper,
		Guardian:   actors.Guardian,
		Want:       t.Want,
		Fees:       t.Fees.Array(),
	}, t.StrategyGasLimit)
	if err != nil {
		return record, errors.Wrap(err, "deploy strategy")
	}
	record.StrategyAddress = strategy.Address
	record.addTx(StepDeployStrategy, dep.TxHash)

	if err := p.checkStrategy(ctx, strategy); err != nil {
		return record, errors.Wrap(err, "check strategy")
	}

	wiring, err := NewWirer(p.sender, log).Wire(ctx, controller, t.Want, strategy.Address, vault.Address)
	record.addTx(StepApproveStrategy, wiring.ApproveStrategyTx)
	record.addTx(StepSetStrategy, wiring.SetStrategyTx)
	record.addTx(StepSetVault, wiring.SetVaultTx)
	if err != nil {
		return record, errors.Wrapf(err, "wire controller %s", controller.Address.Hex())
	}

	log.Info("Deployment complete",
		zap.String("controller", record.Controller.Hex()),
		zap.String("vault", record.Vault.Hex()),
		zap.String("strategy_address", record.StrategyAddress.Hex()),
	)
	return record, nil
}

// checkStrategy reads back the strategy's want and fees.
func (p *Pipeline) checkStrategy(ctx context.Context, strategy *contracts.Strategy) error {
	want, err := strategy.Want(ctx)
	if err != nil {
		return err
	}
	if want != p.target.Want {
		return errs.Mismatch("strategy.want()", p.target.Want.Hex(), want.Hex())
	}
	fees, err := strategy.Fees(ctx)
	if err != nil {
		return err
	}
	return CompareFees(p.target.Fees, fees)
}

// CompareFees checks on-chain fee getters against the configured tuple.
func CompareFees(want config.FeeTuple, got contracts.StrategyFees) error {
	checks := []struct {
		name string
		want int64
		got  *big.Int
	}{
		{"strategy.performanceFeeGovernance()", want.GovernancePerformance, got.GovernancePerformance},
		{"strategy.performanceFeeStrategist()", want.StrategistPerformance, got.StrategistPerformance},
		{"strategy.withdrawalFee()", want.Withdrawal, got.Withdrawal},
	}
	for _, c := range checks {
		if c.got == nil || c.got.Cmp(big.NewInt(c.want)) != 0 {
			return errs.Mismatch(c.name, helpers.FormatBps(c.want), formatBig(c.got))
		}
	}
	return nil
}

func formatBig(v *big.Int) string {
	if v == nil {
		return "<nil>"
	}
	if v.IsInt64() {
		return helpers.FormatBps(v.Int64())
	}
	return v.String()
}
