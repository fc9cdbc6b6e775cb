package main

import (
	"context"
	"fmt"

	"github.com/cyphera/sett-deployer/internal/chain"
	"github.com/cyphera/sett-deployer/internal/constants"
	"github.com/cyphera/sett-deployer/internal/contracts"
	"github.com/cyphera/sett-deployer/internal/deploy"
	"github.com/cyphera/sett-deployer/internal/errs"
	"github.com/cyphera/sett-deployer/internal/harness"
	"github.com/cyphera/sett-deployer/internal/helpers"
	"github.com/cyphera/sett-deployer/internal/resolver"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type operationFlags struct {
	controller string
	gauge      string
}

func newHarvestCmd(a *app) *cobra.Command {
	var flags operationFlags
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Harvest the wired strategy and confirm events, fees and share price",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOperation(cmd.Context(), harness.OpHarvest, flags, func(ctx context.Context, s *contracts.Strategy, from chain.Sender) (*types.Receipt, error) {
				return s.Harvest(ctx, from)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newTendCmd(a *app) *cobra.Command {
	var flags operationFlags
	cmd := &cobra.Command{
		Use:   "tend",
		Short: "Tend the wired strategy and confirm its destination balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOperation(cmd.Context(), harness.OpTend, flags, func(ctx context.Context, s *contracts.Strategy, from chain.Sender) (*types.Receipt, error) {
				return s.Tend(ctx, from)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func (f *operationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.controller, "controller", "", "controller address (default from settings)")
	cmd.Flags().StringVar(&f.gauge, "gauge", "", "staking gauge the strategy deposits into")
}

func (a *app) runOperation(ctx context.Context, op harness.Operation, flags operationFlags,
	send func(context.Context, *contracts.Strategy, chain.Sender) (*types.Receipt, error)) error {
	controllerAddr := a.target.Controller
	if flags.controller != "" {
		parsed, err := helpers.ParseAddress(flags.controller)
		if err != nil {
			return err
		}
		controllerAddr = parsed
	}
	if helpers.IsZeroAddress(controllerAddr) {
		return errs.Config("controller", "is required for %s", op)
	}
	r, err := a.newResolver(flags.gauge)
	if err != nil {
		return err
	}

	backend, err := a.connect(ctx)
	if err != nil {
		return err
	}
	reader := chain.NewReader(backend)
	controller := contracts.NewController(controllerAddr, reader)
	strategyAddr, err := controller.Strategies(ctx, a.target.Want)
	if err != nil {
		return err
	}
	if helpers.IsZeroAddress(strategyAddr) {
		return errs.Mismatch("controller.strategies(want)", "non-zero", strategyAddr.Hex())
	}
	vaultAddr, err := controller.Vaults(ctx, a.target.Want)
	if err != nil {
		return err
	}
	rewards, err := controller.Rewards(ctx)
	if err != nil {
		return err
	}
	var dev common.Address
	if a.env.Deployer != "" {
		dev = common.HexToAddress(a.env.Deployer)
	}
	actors, err := deploy.NewRegistryClient(contracts.NewRegistry(a.target.Registry, reader), a.logger).ResolveActors(ctx, dev)
	if err != nil {
		return err
	}

	tr, signer, err := a.transactor(ctx, backend)
	if err != nil {
		return err
	}
	defer func() { _ = signer.Lock() }()

	h := harness.New(tr, r, harness.Config{
		Want:     a.target.Want,
		Vault:    vaultAddr,
		Strategy: strategyAddr,
		Entities: map[string]common.Address{
			constants.EntityStrategy:          strategyAddr,
			constants.EntityStrategist:        actors.Strategist,
			constants.EntityGovernanceRewards: rewards,
		},
	}, a.logger)

	strategy := contracts.NewStrategy(strategyAddr, tr)
	err = h.Run(ctx, op, resolver.Params{}, func(ctx context.Context) (*types.Receipt, error) {
		return send(ctx, strategy, tr)
	})
	if err != nil {
		return err
	}
	a.logger.Info("Operation confirmed", zap.String("operation", string(op)), zap.String("strategy", strategyAddr.Hex()))
	fmt.Fprintf(a.out, "%s confirmed on %s\n", op, strategyAddr.Hex())
	return nil
}

// newResolver picks the gauge resolver when a gauge is given and the plain
// strategy resolver otherwise.
func (a *app) newResolver(gauge string) (resolver.Resolver, error) {
	if gauge == "" {
		r := resolver.NewStrategyResolver(a.logger)
		r.RequireValueGained = a.env.RequireValueGained
		return r, nil
	}
	addr, err := helpers.ParseAddress(gauge)
	if err != nil {
		return nil, err
	}
	r := resolver.NewGaugeResolver(addr, a.logger)
	r.RequireValueGained = a.env.RequireValueGained
	return r, nil
}
