package main

import (
	"encoding/json"

	"github.com/cyphera/sett-deployer/internal/chain"
	"github.com/cyphera/sett-deployer/internal/contracts"
	"github.com/cyphera/sett-deployer/internal/deploy"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

func newActorsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "actors",
		Short: "Resolve the registry actors without deploying",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backend, err := a.connect(ctx)
			if err != nil {
				return err
			}
			var deployer common.Address
			if a.env.Deployer != "" {
				deployer = common.HexToAddress(a.env.Deployer)
			}
			registry := deploy.NewRegistryClient(contracts.NewRegistry(a.target.Registry, chain.NewReader(backend)), a.logger)
			actors, err := registry.ResolveActors(ctx, deployer)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(actors)
		},
	}
}
