package main

import (
	"context"
	"fmt"

	"github.com/cyphera/sett-deployer/internal/chain"
	"github.com/cyphera/sett-deployer/internal/contracts"
	"github.com/cyphera/sett-deployer/internal/deploy"
	"github.com/cyphera/sett-deployer/internal/keys"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newDeployCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the strategy proxy and wire it on the controller",
		Long: `Deploys the strategy behind an upgradeable proxy, plus a controller or vault
when the selected strategy does not reference existing ones, then approves and
sets the strategy and vault on the controller. The deployer becomes governance;
the other actors come from the Badger registry.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			artifact, err := contracts.LoadArtifact(a.target.ProxyArtifact)
			if err != nil {
				return err
			}
			backend, err := a.connect(ctx)
			if err != nil {
				return err
			}
			tr, signer, err := a.transactor(ctx, backend)
			if err != nil {
				return err
			}
			defer func() { _ = signer.Lock() }()

			record, runErr := deploy.NewPipeline(a.target, tr, artifact.Bytecode, a.logger).Run(ctx)
			if record != nil {
				if err := record.WriteJSON(a.out); err != nil {
					a.logger.Warn("Failed to write deployment record", zap.Error(err))
				}
			}
			return runErr
		},
	}
}

// transactor unlocks the deployer key and builds a Transactor on backend.
// Callers must Lock the returned signer.
func (a *app) transactor(ctx context.Context, backend chain.Backend) (*chain.Transactor, *keys.Signer, error) {
	signer, err := a.chooseSigner()
	if err != nil {
		return nil, nil, err
	}
	fmt.Fprintf(a.errOut, "You are using: 'dev' [%s]\n", signer.Address().Hex())

	tr, err := chain.NewTransactor(ctx, backend, signer,
		chain.WithConfirmations(a.env.Confirmations),
		chain.WithSettleDelay(a.env.SettleDelay),
		chain.WithLogger(a.logger),
	)
	if err != nil {
		_ = signer.Lock()
		return nil, nil, err
	}
	return tr, signer, nil
}

func (a *app) chooseSigner() (*keys.Signer, error) {
	store, err := keys.Open(a.env.KeystoreDir, false)
	if err != nil {
		return nil, err
	}
	prompter := a.prompter
	if prompter == nil && a.env.Deployer != "" {
		prompter = keys.FixedPrompter{Address: common.HexToAddress(a.env.Deployer), Passphrase: a.env.KeystorePassword}
	}
	if prompter == nil {
		prompter = keys.NewTerminalPrompter(a.in, a.errOut)
	}
	return keys.Choose(store, prompter, a.env.KeystorePassword)
}
