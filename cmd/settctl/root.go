package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cyphera/sett-deployer/internal/chain"
	"github.com/cyphera/sett-deployer/internal/config"
	"github.com/cyphera/sett-deployer/internal/errs"
	"github.com/cyphera/sett-deployer/internal/keys"
	"github.com/cyphera/sett-deployer/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	in        *os.File
	out       io.Writer
	errOut    io.Writer
	lookupEnv func(string) (string, bool)
	dotEnv    []string
	dial      func(ctx context.Context, rpcURL string) (chain.Backend, error)
	prompter  keys.Prompter
	logger    *zap.Logger

	settingsFile string
	network      string
	strategy     string

	env    config.Env
	target *config.Target
}

func newApp() *app {
	return &app{
		in:        os.Stdin,
		out:       os.Stdout,
		errOut:    os.Stderr,
		lookupEnv: os.LookupEnv,
		dotEnv:    []string{".env"},
		dial: func(ctx context.Context, rpcURL string) (chain.Backend, error) {
			return chain.Dial(ctx, rpcURL)
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "settctl",
		Short:         "Deploy and wire Badger sett strategies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.OrNop(a.logger).Sync()
		},
	}
	root.PersistentFlags().StringVar(&a.settingsFile, "settings", "", "settings file (default $SETTINGS_FILE or "+config.DefaultSettingsFile+")")
	root.PersistentFlags().StringVar(&a.network, "network", "", "network name (default $NETWORK)")
	root.PersistentFlags().StringVar(&a.strategy, "strategy", "", "strategy name (default $STRATEGY)")
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(newDeployCmd(a), newActorsCmd(a), newVerifyCmd(a), newHarvestCmd(a), newTendCmd(a))
	return root
}

// execute runs root and logs a failure before returning it.
func execute(root *cobra.Command, a *app) error {
	err := root.Execute()
	if err != nil {
		logger.OrNop(a.logger).Error("Command failed", zap.Error(err), zap.String("kind", string(errs.KindOf(err))))
		fmt.Fprintln(a.errOut, "Error:", err)
	}
	return err
}

func (a *app) setup() error {
	if err := config.LoadDotEnv(a.dotEnv...); err != nil {
		return err
	}
	env, err := config.EnvFromLookup(a.lookupEnv)
	if err != nil {
		return err
	}
	if a.settingsFile != "" {
		env.SettingsFile = a.settingsFile
	}
	if a.network != "" {
		env.Network = a.network
	}
	if a.strategy != "" {
		env.Strategy = a.strategy
	}
	a.env = env

	if a.logger == nil {
		cfg := logger.ConfigForStage(env.Stage)
		cfg.Level = env.LogLevel
		l, err := logger.New(cfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		a.logger = l
	}

	settings, err := config.Load(env.SettingsFile)
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	target, err := settings.Select(env.Network, env.Strategy)
	if err != nil {
		return err
	}
	env.Apply(target)
	if target.RPCURL == "" {
		return errs.Config("networks."+target.Network+".rpc_url", "is required (or set RPC_URL)")
	}
	a.target = target
	return nil
}

// connect dials the target's RPC endpoint and checks the chain id.
func (a *app) connect(ctx context.Context) (chain.Backend, error) {
	backend, err := a.dial(ctx, a.target.RPCURL)
	if err != nil {
		return nil, err
	}
	backend = chain.RateLimited(backend, chain.NewLimiter(a.env.RPCRateLimit))

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	if a.target.ChainID != 0 && chainID.Int64() != a.target.ChainID {
		return nil, errs.Config("networks."+a.target.Network+".chain_id", "configured %d, rpc reports %s", a.target.ChainID, chainID)
	}

	fmt.Fprintf(a.errOut, "You are using the '%s' network\n", a.target.Network)
	a.logger.Info("Connected", zap.String("network", a.target.Network), zap.String("chain_id", chainID.String()))
	return backend, nil
}
