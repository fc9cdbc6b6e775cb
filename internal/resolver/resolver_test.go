package resolver_test

import (
	"math/big"
	"testing"

	"github.com/cyphera/sett-deployer/internal/constants"
	"github.com/cyphera/sett-deployer/internal/contracts"
	"github.com/cyphera/sett-deployer/internal/errs"
	"github.com/cyphera/sett-deployer/internal/resolver"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var (
	wantAddr  = common.HexToAddress("0x6058345A4D8B89Ddac7042Be08091F91a404B80b")
	treeAddr  = common.HexToAddress("0x89122c767A5F543e663DB536b603123225bc3823")
	gaugeAddr = common.HexToAddress("0x0000000000000000000000000000000000009a08")

	strategyAddr = common.HexToAddress("0x0000000000000000000000000000000000001111")
	otherAddr    = common.HexToAddress("0x0000000000000000000000000000000000002222")
)

func govFeeEvent() resolver.Event {
	return resolver.Event{
		"destination": treeAddr,
		"token":       wantAddr,
		"amount":      big.NewInt(150),
		"blockNumber": big.NewInt(100),
		"timestamp":   big.NewInt(1_640_000_100),
	}
}

func harvestEvent() resolver.Event {
	return resolver.Event{"harvested": big.NewInt(1000), "blockNumber": big.NewInt(100)}
}

func ppfs(before, after int64) (resolver.Snapshot, resolver.Snapshot) {
	return resolver.Snapshot{constants.KeyPricePerFullShare: big.NewInt(before)},
		resolver.Snapshot{constants.KeyPricePerFullShare: big.NewInt(after)}
}

func TestConfirmHarvestEvents(t *testing.T) {
	missingTimestamp := govFeeEvent()
	delete(missingTimestamp, "timestamp")

	tests := []struct {
		name      string
		events    map[string][]resolver.Event
		wantEvent string
	}{
		{
			name: "well formed",
			events: map[string][]resolver.Event{
				constants.EventPerformanceFeeGovernance: {govFeeEvent()},
				constants.EventHarvest:                  {harvestEvent()},
			},
		},
		{
			name: "several governance fee events",
			events: map[string][]resolver.Event{
				constants.EventPerformanceFeeGovernance: {govFeeEvent(), govFeeEvent()},
				constants.EventHarvest:                  {harvestEvent()},
			},
		},
		{
			name: "no governance fee event",
			events: map[string][]resolver.Event{
				constants.EventHarvest: {harvestEvent()},
			},
			wantEvent: constants.EventPerformanceFeeGovernance,
		},
		{
			name: "governance fee event missing timestamp",
			events: map[string][]resolver.Event{
				constants.EventPerformanceFeeGovernance: {govFeeEvent(), missingTimestamp},
				constants.EventHarvest:                  {harvestEvent()},
			},
			wantEvent: constants.EventPerformanceFeeGovernance,
		},
		{
			name: "no harvest event",
			events: map[string][]resolver.Event{
				constants.EventPerformanceFeeGovernance: {govFeeEvent()},
			},
			wantEvent: constants.EventHarvest,
		},
		{
			name: "two harvest events",
			events: map[string][]resolver.Event{
				constants.EventPerformanceFeeGovernance: {govFeeEvent()},
				constants.EventHarvest:                  {harvestEvent(), harvestEvent()},
			},
			wantEvent: constants.EventHarvest,
		},
		{
			name: "harvest event without harvested",
			events: map[string][]resolver.Event{
				constants.EventPerformanceFeeGovernance: {govFeeEvent()},
				constants.EventHarvest:                  {{"blockNumber": big.NewInt(1)}},
			},
			wantEvent: constants.EventHarvest,
		},
		{
			name: "strategist fee event present",
			events: map[string][]resolver.Event{
				constants.EventPerformanceFeeGovernance: {govFeeEvent()},
				constants.EventHarvest:                  {harvestEvent()},
				constants.EventPerformanceFeeStrategist: {govFeeEvent()},
			},
			wantEvent: constants.EventPerformanceFeeStrategist,
		},
		{
			name: "strategist fee event alone",
			events: map[string][]resolver.Event{
				constants.EventPerformanceFeeStrategist: {govFeeEvent()},
			},
			wantEvent: constants.EventPerformanceFeeGovernance,
		},
	}

	r := resolver.NewStrategyResolver(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, after := ppfs(1, 2)
			err := r.ConfirmHarvestEvents(before, after, resolver.NewReceipt(tt.events))
			if tt.wantEvent == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, errs.ErrEventShape)
			var shapeErr *errs.EventShapeError
			require.ErrorAs(t, err, &shapeErr)
			assert.Equal(t, tt.wantEvent, shapeErr.Event)
		})
	}
}

func TestConfirmHarvestEvents_NilReceipt(t *testing.T) {
	before, after := ppfs(1, 2)
	err := resolver.NewStrategyResolver(nil).ConfirmHarvestEvents(before, after, nil)
	assert.ErrorIs(t, err, errs.ErrEventShape)
}

func wellFormedReceipt() *resolver.Receipt {
	return resolver.NewReceipt(map[string][]resolver.Event{
		constants.EventPerformanceFeeGovernance: {govFeeEvent()},
		constants.EventHarvest:                  {harvestEvent()},
	})
}

func TestConfirmHarvest_ValueGained(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := resolver.NewStrategyResolver(zap.New(core))

	before, after := ppfs(100, 150)
	require.NoError(t, r.ConfirmHarvest(before, after, wellFormedReceipt()))
	assert.Equal(t, 1, logs.FilterMessage("Harvest produced value").Len())
}

func TestConfirmHarvest_NoValueGained(t *testing.T) {
	t.Run("required", func(t *testing.T) {
		r := resolver.NewStrategyResolver(nil)
		before, after := ppfs(100, 100)
		err := r.ConfirmHarvest(before, after, wellFormedReceipt())
		assert.ErrorIs(t, err, errs.ErrChainStateMismatch)
	})

	t.Run("log only", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		r := resolver.NewStrategyResolver(zap.New(core))
		r.RequireValueGained = false
		before, after := ppfs(100, 100)
		require.NoError(t, r.ConfirmHarvest(before, after, wellFormedReceipt()))
		assert.Equal(t, 1, logs.FilterMessage("Harvest produced no value").Len())
	})

	t.Run("share price fell", func(t *testing.T) {
		r := resolver.NewStrategyResolver(nil)
		r.RequireValueGained = false
		before, after := ppfs(100, 90)
		err := r.ConfirmHarvest(before, after, wellFormedReceipt())
		assert.ErrorIs(t, err, errs.ErrChainStateMismatch)
	})
}

func TestConfirmHarvest_EventsCheckedFirst(t *testing.T) {
	r := resolver.NewStrategyResolver(nil)
	before, after := ppfs(100, 150)
	err := r.ConfirmHarvest(before, after, resolver.NewReceipt(nil))
	assert.ErrorIs(t, err, errs.ErrEventShape)
}

func TestConfirmHarvest_MissingSharePrice(t *testing.T) {
	r := resolver.NewStrategyResolver(nil)
	err := r.ConfirmHarvest(resolver.Snapshot{}, resolver.Snapshot{}, wellFormedReceipt())
	assert.ErrorIs(t, err, resolver.ErrMissingKey)
}

func TestCoreResolver_ConfirmHarvestFees(t *testing.T) {
	rewardsKey := resolver.BalanceKey(constants.TokenKeyWant, constants.EntityGovernanceRewards)
	base := func(rewards int64, ppfsValue int64) resolver.Snapshot {
		return resolver.Snapshot{
			constants.KeyPricePerFullShare:        big.NewInt(ppfsValue),
			constants.KeyPerformanceFeeGovernance: big.NewInt(1500),
			constants.KeyPerformanceFeeStrategist: big.NewInt(0),
			rewardsKey:                            big.NewInt(rewards),
		}
	}
	r := &resolver.CoreResolver{}

	assert.NoError(t, r.ConfirmHarvest(base(0, 100), base(150, 110), nil))
	assert.ErrorIs(t, r.ConfirmHarvest(base(0, 100), base(0, 110), nil), errs.ErrChainStateMismatch)
	assert.NoError(t, r.ConfirmHarvest(base(0, 100), base(0, 100), nil), "no value, no fee expected")
}

func TestCoreResolver_Defaults(t *testing.T) {
	var r resolver.Resolver = &resolver.CoreResolver{}

	dest := r.GetStrategyDestinations()
	require.NotNil(t, dest)
	assert.Empty(t, dest)

	before, after := resolver.Snapshot{}, resolver.Snapshot{}
	assert.NoError(t, r.HookAfterConfirmDeposit(before, after, resolver.Params{}))
	assert.NoError(t, r.HookAfterConfirmWithdraw(before, after, resolver.Params{}))
	assert.NoError(t, r.HookAfterEarn(before, after, resolver.Params{}))
	assert.NoError(t, r.HookAfterTend(before, after, nil))

	calls := []resolver.BalanceCall{{TokenKey: constants.TokenKeyWant, Token: wantAddr, Entity: "strategy"}}
	got := r.AddEntityBalancesForTokens(calls, constants.TokenKeyWant, wantAddr, map[string]common.Address{"strategy": treeAddr})
	assert.Equal(t, calls, got)
}

func TestDecodeReceipt(t *testing.T) {
	govLog, err := contracts.EncodeLog(constants.EventPerformanceFeeGovernance, map[string]any(govFeeEvent()))
	require.NoError(t, err)
	harvestLog, err := contracts.EncodeLog(constants.EventHarvest, map[string]any(harvestEvent()))
	require.NoError(t, err)
	govLog.Address, harvestLog.Address = strategyAddr, strategyAddr
	transfer := &types.Log{
		Address: strategyAddr,
		Topics:  []common.Hash{common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")},
	}

	decoded, err := resolver.DecodeReceipt(&types.Receipt{
		TxHash: common.HexToHash("0x01"),
		Logs:   []*types.Log{govLog, transfer, harvestLog},
	}, strategyAddr)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x01"), decoded.TxHash)
	assert.Len(t, decoded.Events, 2)
	assert.True(t, decoded.Has(constants.EventHarvest))
	assert.False(t, decoded.Has(constants.EventPerformanceFeeStrategist))

	before, after := ppfs(1, 2)
	assert.NoError(t, resolver.NewStrategyResolver(nil).ConfirmHarvest(before, after, decoded))
}

func TestDecodeReceipt_SkipsOtherEmitters(t *testing.T) {
	harvestLog, err := contracts.EncodeLog(constants.EventHarvest, map[string]any(harvestEvent()))
	require.NoError(t, err)
	harvestLog.Address = strategyAddr

	sameShape, err := contracts.EncodeLog(constants.EventHarvest, map[string]any(harvestEvent()))
	require.NoError(t, err)
	sameShape.Address = otherAddr

	// Same topic0, but blockNumber is not indexed, so the strategy ABI cannot decode it.
	otherShape := &types.Log{
		Address: otherAddr,
		Topics:  []common.Hash{contracts.StrategyEvents.Events[constants.EventHarvest].ID},
		Data:    make([]byte, 64),
	}

	decoded, err := resolver.DecodeReceipt(&types.Receipt{
		Logs: []*types.Log{sameShape, harvestLog, otherShape},
	}, strategyAddr)
	require.NoError(t, err)
	assert.Len(t, decoded.Events[constants.EventHarvest], 1)

	_, err = resolver.DecodeReceipt(&types.Receipt{Logs: []*types.Log{otherShape}}, otherAddr)
	assert.Error(t, err)
}

func TestSnapshot(t *testing.T) {
	s := resolver.Snapshot{"want.strategy": big.NewInt(5), "sett.pricePerFullShare": big.NewInt(1), "nil": nil}
	assert.Equal(t, []string{"nil", "sett.pricePerFullShare", "want.strategy"}, s.Keys())

	_, ok := s.Get("nil")
	assert.False(t, ok)
	_, err := s.MustGet("want.gauge")
	assert.ErrorIs(t, err, resolver.ErrMissingKey)

	d, err := resolver.Diff(s, resolver.Snapshot{"want.strategy": big.NewInt(2)}, "want.strategy")
	require.NoError(t, err)
	assert.Equal(t, int64(-3), d.Int64())
}
