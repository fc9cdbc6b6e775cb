package deploy_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/cyphera/sett-deployer/internal/chain"
	"github.com/cyphera/sett-deployer/internal/config"
	"github.com/cyphera/sett-deployer/internal/constants"
	"github.com/cyphera/sett-deployer/internal/contracts"
	"github.com/cyphera/sett-deployer/internal/deploy"
	"github.com/cyphera/sett-deployer/internal/errs"
	"github.com/cyphera/sett-deployer/internal/testutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func newTarget(existingPair bool) *config.Target {
	t := &config.Target{
		Network:          "ftm-main",
		ChainID:          testutil.FantomChainID,
		Strategy:         "StrategyGenericSolidexHelper",
		Registry:         testutil.RegistryAddress,
		BadgerTree:       testutil.BadgerTreeAddress,
		ControllerLogic:  testutil.ControllerLogicAddress,
		VaultLogic:       testutil.VaultLogicAddress,
		StrategyLogic:    testutil.StrategyLogicAddress,
		Want:             testutil.WantAddress,
		Fees:             config.FeeTuple{GovernancePerformance: 1500, StrategistPerformance: 0, Withdrawal: 10},
		StrategyGasLimit: 800_000,
	}
	if existingPair {
		t.Controller = testutil.ControllerAddress
		t.Vault = testutil.VaultAddress
	}
	return t
}

func TestRegistryClient_ResolveActors(t *testing.T) {
	f := testutil.NewFixture(t)
	tr := f.Transactor(t)
	client := deploy.NewRegistryClient(contracts.NewRegistry(testutil.RegistryAddress, tr), nil)

	actors, err := client.ResolveActors(context.Background(), tr.From())
	require.NoError(t, err)
	assert.Equal(t, deploy.Actors{
		Governance: tr.From(),
		Strategist: testutil.GovernanceAddress,
		Guardian:   testutil.GuardianAddress,
		Keeper:     testutil.KeeperAddress,
		ProxyAdmin: testutil.ProxyAdminAddress,
	}, actors)
}

func TestRegistryClient_ZeroRole(t *testing.T) {
	for _, role := range constants.RegistryRoles {
		t.Run(role, func(t *testing.T) {
			f := testutil.NewFixture(t)
			f.Chain.SetRegistry(testutil.RegistryAddress, map[string]common.Address{role: {}})
			tr := f.Transactor(t)
			client := deploy.NewRegistryClient(contracts.NewRegistry(testutil.RegistryAddress, tr), nil)

			_, err := client.ResolveActors(context.Background(), tr.From())
			require.ErrorIs(t, err, errs.ErrConfig)
			var cfgErr *errs.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "registry."+role, cfgErr.Field)
		})
	}
}

func TestDeployer_DeployVault(t *testing.T) {
	f := testutil.NewFixture(t)
	tr := f.Transactor(t)
	logger, logs := newObservedLogger()
	d := deploy.NewDeployer(tr, testutil.ProxyBytecode, logger)

	vault, dep, err := d.DeployVault(context.Background(), testutil.VaultLogicAddress, testutil.ProxyAdminAddress, contracts.VaultInitArgs{
		Token:      testutil.WantAddress,
		Controller: testutil.ControllerAddress,
		Governance: tr.From(),
		Keeper:     testutil.KeeperAddress,
		Guardian:   testutil.GuardianAddress,
	})
	require.NoError(t, err)
	assert.Equal(t, dep.Address, vault.Address)
	assert.NotEqual(t, common.Hash{}, dep.UnpauseTxHash)
	require.Len(t, f.Chain.Sent, 2)

	state := f.Chain.Vault(dep.Address)
	require.NotNil(t, state)
	assert.False(t, state.Paused)
	assert.Equal(t, testutil.WantAddress, state.Token)

	entries := logs.FilterMessage("Vault was deployed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, dep.Address.Hex(), entries[0].ContextMap()["address"])
	assert.Equal(t, 1, logs.FilterMessage("Vault arguments").Len())
}

func TestDeployer_DeployVaultNotPaused(t *testing.T) {
	f := testutil.NewFixture(t)
	f.Chain.VaultsStartUnpaused = true
	tr := f.Transactor(t)
	d := deploy.NewDeployer(tr, testutil.ProxyBytecode, nil)

	_, dep, err := d.DeployVault(context.Background(), testutil.VaultLogicAddress, testutil.ProxyAdminAddress, contracts.VaultInitArgs{
		Token:      testutil.WantAddress,
		Governance: tr.From(),
	})
	require.ErrorIs(t, err, errs.ErrChainStateMismatch)
	assert.Contains(t, err.Error(), "after deploy")
	assert.Equal(t, common.Hash{}, dep.UnpauseTxHash)
	assert.Len(t, f.Chain.Sent, 1, "unpause must not be sent")
}

func TestDeployer_DeployVaultStillPaused(t *testing.T) {
	f := testutil.NewFixture(t)
	f.Chain.Drop(contracts.FuncUnpause)
	tr := f.Transactor(t)
	d := deploy.NewDeployer(tr, testutil.ProxyBytecode, nil)

	_, _, err := d.DeployVault(context.Background(), testutil.VaultLogicAddress, testutil.ProxyAdminAddress, contracts.VaultInitArgs{
		Token:      testutil.WantAddress,
		Governance: tr.From(),
	})
	require.ErrorIs(t, err, errs.ErrChainStateMismatch)
	assert.Contains(t, err.Error(), "after unpause")
}

func TestDeployer_DeployStrategy(t *testing.T) {
	f := testutil.NewFixture(t)
	tr := f.Transactor(t)
	d := deploy.NewDeployer(tr, testutil.ProxyBytecode, nil)

	strategy, dep, err := d.DeployStrategy(context.Background(), testutil.StrategyLogicAddress, testutil.ProxyAdminAddress, contracts.StrategyInitArgs{
		Governance: tr.From(),
		Strategist: testutil.GovernanceAddress,
		Controller: testutil.ControllerAddress,
		Keeper:     testutil.KeeperAddress,
		Guardian:   testutil.GuardianAddress,
		Want:       testutil.WantAddress,
		Fees:       [3]*big.Int{big.NewInt(1500), big.NewInt(0), big.NewInt(10)},
	}, 800_000)
	require.NoError(t, err)
	require.Len(t, f.Chain.Sent, 1)
	assert.Equal(t, uint64(800_000), f.Chain.Sent[0].Gas())
	assert.Nil(t, f.Chain.Sent[0].To())

	fees, err := strategy.Fees(context.Background())
	require.NoError(t, err)
	require.NoError(t, deploy.CompareFees(config.FeeTuple{GovernancePerformance: 1500, Withdrawal: 10}, fees))

	state := f.Chain.Strategy(dep.Address)
	require.NotNil(t, state)
	assert.Equal(t, testutil.GovernanceAddress, state.Strategist)
	assert.Equal(t, tr.From(), state.Governance)
}

func TestDeployer_Errors(t *testing.T) {
	f := testutil.NewFixture(t)
	tr := f.Transactor(t)
	d := deploy.NewDeployer(tr, testutil.ProxyBytecode, nil)
	ctx := context.Background()

	_, err := d.Deploy(ctx, common.Address{}, testutil.ProxyAdminAddress, nil)
	assert.ErrorIs(t, err, errs.ErrConfig)

	_, err = d.Deploy(ctx, testutil.VaultLogicAddress, common.Address{}, nil)
	assert.ErrorIs(t, err, errs.ErrConfig)

	_, err = deploy.NewDeployer(tr, nil, nil).Deploy(ctx, testutil.VaultLogicAddress, testutil.ProxyAdminAddress, nil)
	assert.ErrorIs(t, err, errs.ErrConfig)
	assert.Empty(t, f.Chain.Sent)

	_, err = d.Deploy(ctx, common.HexToAddress("0xbad"), testutil.ProxyAdminAddress, []byte{1, 2, 3, 4})
	assert.ErrorIs(t, err, chain.ErrTxReverted)
}

func TestCompareFees(t *testing.T) {
	want := config.FeeTuple{GovernancePerformance: 1500, StrategistPerformance: 0, Withdrawal: 10}
	tests := []struct {
		name    string
		got     contracts.StrategyFees
		wantErr string
	}{
		{
			name: "match",
			got:  contracts.StrategyFees{GovernancePerformance: big.NewInt(1500), StrategistPerformance: big.NewInt(0), Withdrawal: big.NewInt(10)},
		},
		{
			name:    "governance differs",
			got:     contracts.StrategyFees{GovernancePerformance: big.NewInt(1000), StrategistPerformance: big.NewInt(0), Withdrawal: big.NewInt(10)},
			wantErr: "strategy.performanceFeeGovernance(): want 15.00%, got 10.00%",
		},
		{
			name:    "strategist differs",
			got:     contracts.StrategyFees{GovernancePerformance: big.NewInt(1500), StrategistPerformance: big.NewInt(250), Withdrawal: big.NewInt(10)},
			wantErr: "strategy.performanceFeeStrategist()",
		},
		{
			name:    "missing withdrawal",
			got:     contracts.StrategyFees{GovernancePerformance: big.NewInt(1500), StrategistPerformance: big.NewInt(0)},
			wantErr: "got <nil>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := deploy.CompareFees(want, tt.got)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, errs.ErrChainStateMismatch)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
