package testutil_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/cyphera/sett-deployer/internal/chain"
	"github.com/cyphera/sett-deployer/internal/contracts"
	"github.com/cyphera/sett-deployer/internal/testutil"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_RejectsStaleNonce(t *testing.T) {
	f := testutil.NewFixture(t)
	signerTx := func(nonce uint64) *types.Transaction {
		tx := types.NewTx(&types.LegacyTx{Nonce: nonce, Gas: 21000, GasPrice: big.NewInt(1), To: &testutil.WantAddress})
		signed, err := f.Deployer.SignTx(tx, big.NewInt(testutil.FantomChainID))
		require.NoError(t, err)
		return signed
	}

	ctx := context.Background()
	require.NoError(t, f.Chain.SendTransaction(ctx, signerTx(0)))
	assert.Error(t, f.Chain.SendTransaction(ctx, signerTx(0)))

	_, err := f.Chain.TransactionReceipt(ctx, common.HexToHash("0x1234"))
	assert.ErrorIs(t, err, ethereum.NotFound)
}

func TestChain_RevertLeavesStateUntouched(t *testing.T) {
	f := testutil.NewFixture(t).WithExistingPair()
	tr := f.Transactor(t)
	ctrl := contracts.NewController(testutil.ControllerAddress, tr)
	strategy := common.HexToAddress("0x0b0b")

	_, err := ctrl.SetStrategy(context.Background(), tr, testutil.WantAddress, strategy)
	require.ErrorIs(t, err, chain.ErrTxReverted)
	assert.Empty(t, f.Chain.Controller(testutil.ControllerAddress).Strategies)

	nonce, err := f.Chain.PendingNonceAt(context.Background(), tr.From())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nonce)
}

func TestChain_ERC20Balances(t *testing.T) {
	c := testutil.NewChain(testutil.FantomChainID)
	holder := common.HexToAddress("0xf9ce347a78dd40f8e02f84431286a4f1153a78bd")
	c.Mint(testutil.WantAddress, holder, big.NewInt(10))

	bal, err := contracts.BalanceOf(context.Background(), chain.NewReader(c), testutil.WantAddress, holder)
	require.NoError(t, err)
	assert.Equal(t, int64(10), bal.Int64())

	assert.Panics(t, func() { c.Transfer(testutil.WantAddress, holder, testutil.VaultAddress, big.NewInt(11)) })
}

func TestChain_UnknownRead(t *testing.T) {
	c := testutil.NewChain(testutil.FantomChainID)
	_, err := c.CallContract(context.Background(), ethereum.CallMsg{To: &testutil.WantAddress, Data: []byte{1, 2, 3, 4}}, nil)
	assert.ErrorIs(t, err, testutil.ErrExecutionReverted)
}
