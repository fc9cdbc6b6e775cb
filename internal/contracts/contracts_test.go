package contracts_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/cyphera/sett-deployer/internal/contracts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	registryAddr = common.HexToAddress("0xFda7eB6f8b7a9e9fCFd348042ae675d1d652454f")
	wantAddr     = common.HexToAddress("0x6058345A4D8B89Ddac7042Be08091F91a404B80b")
	treeAddr     = common.HexToAddress("0x89122c767A5F543e663DB536b603123225bc3823")
)

type mockCaller struct {
	mock.Mock
}

func (m *mockCaller) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	args := m.Called(ctx, to, data)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

func TestRegistryGet(t *testing.T) {
	caller := &mockCaller{}
	input, err := contracts.FuncRegistryGet.EncodeArgs("governance")
	require.NoError(t, err)
	output, err := contracts.FuncRegistryGet.Returns.Pack(treeAddr)
	require.NoError(t, err)
	caller.On("Call", mock.Anything, registryAddr, input).Return(output, nil)

	got, err := contracts.NewRegistry(registryAddr, caller).Get(context.Background(), "governance")
	require.NoError(t, err)
	assert.Equal(t, treeAddr, got)
	caller.AssertExpectations(t)
}

func TestRegistryGet_CallError(t *testing.T) {
	caller := &mockCaller{}
	caller.On("Call", mock.Anything, registryAddr, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := contracts.NewRegistry(registryAddr, caller).Get(context.Background(), "keeper")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get(string)")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRegistryGet_EmptyResult(t *testing.T) {
	caller := &mockCaller{}
	caller.On("Call", mock.Anything, registryAddr, mock.Anything).Return([]byte{}, nil)

	_, err := contracts.NewRegistry(registryAddr, caller).Get(context.Background(), "keeper")
	require.Error(t, err)
}

func TestStrategyFees(t *testing.T) {
	strategyAddr := common.HexToAddress("0x2b7f219d0f574d1bb7893bdddb67e40f4aa8d10d")
	caller := &mockCaller{}
	for fn, v := range map[[4]byte]int64{
		contracts.FuncPerformanceFeeGovernance.Selector: 1500,
		contracts.FuncPerformanceFeeStrategist.Selector: 0,
		contracts.FuncWithdrawalFee.Selector:            10,
	} {
		out, err := contracts.FuncWithdrawalFee.Returns.Pack(big.NewInt(v))
		require.NoError(t, err)
		caller.On("Call", mock.Anything, strategyAddr, fn[:]).Return(out, nil)
	}

	fees, err := contracts.NewStrategy(strategyAddr, caller).Fees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1500), fees.GovernancePerformance.Int64())
	assert.Equal(t, int64(0), fees.StrategistPerformance.Int64())
	assert.Equal(t, int64(10), fees.Withdrawal.Int64())
}

func TestEncodeStrategyInit(t *testing.T) {
	args := contracts.StrategyInitArgs{
		Governance: common.HexToAddress("0x01"),
		Strategist: common.HexToAddress("0x02"),
		Controller: common.HexToAddress("0x03"),
		Keeper:     common.HexToAddress("0x04"),
		Guardian:   common.HexToAddress("0x05"),
		Want:       wantAddr,
		Fees:       [3]*big.Int{big.NewInt(1500), big.NewInt(0), big.NewInt(10)},
	}
	data, err := contracts.EncodeStrategyInit(args)
	require.NoError(t, err)
	assert.Equal(t, contracts.FuncStrategyInitialize.Selector[:], data[:4])

	values, err := contracts.FuncStrategyInitialize.Args.Unpack(data[4:])
	require.NoError(t, err)
	require.Len(t, values, 7)
	assert.Equal(t, wantAddr, values[5])
	fees, ok := values[6].([3]*big.Int)
	require.True(t, ok)
	assert.Equal(t, int64(1500), fees[0].Int64())
	assert.Equal(t, int64(10), fees[2].Int64())
}

func TestProxyCreation(t *testing.T) {
	bytecode := []byte{0x60, 0x80, 0x60, 0x40}
	init, err := contracts.EncodeVaultInit(contracts.VaultInitArgs{Token: wantAddr})
	require.NoError(t, err)
	creation := contracts.ProxyCreation{
		Logic:    common.HexToAddress("0x18E31A50cEe0b8c716870c1bc8Bc7796e9CcD9ed"),
		Admin:    common.HexToAddress("0x0a"),
		InitData: init,
	}

	code, err := contracts.EncodeProxyCreation(bytecode, creation)
	require.NoError(t, err)
	assert.Equal(t, bytecode, code[:len(bytecode)])

	decoded, err := contracts.DecodeProxyCreation(bytecode, code)
	require.NoError(t, err)
	assert.Equal(t, creation, decoded)

	_, err = contracts.DecodeProxyCreation([]byte{0xff}, code)
	assert.ErrorIs(t, err, contracts.ErrNotProxyCreation)
}

func TestParseArtifact(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []byte
		wantErr bool
	}{
		{name: "hardhat prefix", raw: `{"contractName":"AdminUpgradeabilityProxy","abi":[],"bytecode":"0x6080"}`, want: []byte{0x60, 0x80}},
		{name: "brownie bare hex", raw: `{"contractName":"AdminUpgradeabilityProxy","abi":[],"bytecode":"6080"}`, want: []byte{0x60, 0x80}},
		{name: "empty bytecode", raw: `{"contractName":"X","bytecode":""}`, wantErr: true},
		{name: "bad hex", raw: `{"contractName":"X","bytecode":"0xzz"}`, wantErr: true},
		{name: "bad json", raw: `{`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact, err := contracts.ParseArtifact([]byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, artifact.Bytecode)
		})
	}
}

func TestStrategyEventLogs(t *testing.T) {
	fields := map[string]any{
		"destination": treeAddr,
		"token":       wantAddr,
		"amount":      big.NewInt(42),
		"blockNumber": big.NewInt(1234),
		"timestamp":   big.NewInt(1_640_000_000),
	}
	log, err := contracts.EncodeLog("PerformanceFeeGovernance", fields)
	require.NoError(t, err)
	require.Len(t, log.Topics, 4)

	name, decoded, ok, err := contracts.DecodeLog(log)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "PerformanceFeeGovernance", name)
	assert.Equal(t, treeAddr, decoded["destination"])
	assert.Equal(t, wantAddr, decoded["token"])
	assert.Equal(t, 0, big.NewInt(42).Cmp(decoded["amount"].(*big.Int)))
	assert.Equal(t, 0, big.NewInt(1234).Cmp(decoded["blockNumber"].(*big.Int)))
	assert.Len(t, decoded, 5)
}

func TestDecodeLog_Foreign(t *testing.T) {
	_, _, ok, err := contracts.DecodeLog(&types.Log{Topics: []common.Hash{common.HexToHash("0x01")}})
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, ok, err = contracts.DecodeLog(&types.Log{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEncodeLog_MissingField(t *testing.T) {
	_, err := contracts.EncodeLog("Harvest", map[string]any{"harvested": big.NewInt(1)})
	assert.Error(t, err)

	_, err = contracts.EncodeLog("Unknown", nil)
	assert.Error(t, err)
}
