package deploy_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/cyphera/sett-deployer/internal/deploy"
	"github.com/cyphera/sett-deployer/internal/errs"
	"github.com/cyphera/sett-deployer/internal/testutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixture(t).WithExistingPair()
	tr := f.Transactor(t)
	record, err := deploy.NewPipeline(newTarget(true), tr, testutil.ProxyBytecode, nil).Run(ctx)
	require.NoError(t, err)

	v, err := deploy.Verify(ctx, tr, newTarget(true), testutil.ControllerAddress)
	require.NoError(t, err)
	assert.Equal(t, record.StrategyAddress, v.Strategy)
	assert.Equal(t, "StrategyGenericSolidexHelper", v.Name)
	assert.False(t, v.Paused)
	assert.Equal(t, int64(1500), v.Fees.GovernancePerformance.Int64())

	t.Run("fee drift", func(t *testing.T) {
		f.Chain.Strategy(record.StrategyAddress).Fees[2] = big.NewInt(50)
		_, err := deploy.Verify(ctx, tr, newTarget(true), testutil.ControllerAddress)
		assert.ErrorIs(t, err, errs.ErrChainStateMismatch)
		assert.ErrorContains(t, err, "withdrawalFee")
	})

	t.Run("paused vault", func(t *testing.T) {
		f.Chain.Vault(testutil.VaultAddress).Paused = true
		_, err := deploy.Verify(ctx, tr, newTarget(true), testutil.ControllerAddress)
		assert.ErrorContains(t, err, "vault.paused()")
	})
}

func TestVerify_NotWired(t *testing.T) {
	f := testutil.NewFixture(t).WithExistingPair()
	tr := f.Transactor(t)

	_, err := deploy.Verify(context.Background(), tr, newTarget(true), testutil.ControllerAddress)
	assert.ErrorIs(t, err, errs.ErrChainStateMismatch)

	_, err = deploy.Verify(context.Background(), tr, newTarget(true), common.Address{})
	assert.ErrorIs(t, err, errs.ErrConfig)
}
