package testutil

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/cyphera/sett-deployer/internal/constants"
	"github.com/cyphera/sett-deployer/internal/contracts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
)

var errUnknownSelector = errors.New("unknown selector")

func revert(reason string) error {
	return fmt.Errorf("%w: %s", ErrExecutionReverted, reason)
}

func selectorOf(data []byte) [4]byte {
	var sel [4]byte
	copy(sel[:], data)
	return sel
}

func args(fn *w3.Func, data []byte) ([]any, error) {
	values, err := fn.Args.Unpack(data[4:])
	if err != nil {
		return nil, revert(fmt.Sprintf("decode %s: %v", fn.Signature, err))
	}
	return values, nil
}

func address(v any) common.Address {
	a, _ := v.(common.Address)
	return a
}

func output(fn *w3.Func, values ...any) ([]byte, error) {
	return fn.Returns.Pack(values...)
}

// create handles a contract creation transaction. Only proxy creation is
// supported.
func (c *Chain) create(from, created common.Address, code []byte) error {
	proxy, err := contracts.DecodeProxyCreation(ProxyBytecode, code)
	if err != nil {
		return err
	}
	kind, ok := c.logic[proxy.Logic]
	if !ok {
		return revert("proxy logic is not a known implementation")
	}
	if len(proxy.InitData) < 4 {
		return revert("missing initializer")
	}

	switch kind {
	case KindController:
		values, err := args(contracts.FuncControllerInitialize, proxy.InitData)
		if err != nil {
			return err
		}
		s := &ControllerState{
			Governance: address(values[0]),
			Strategist: address(values[1]),
			Keeper:     address(values[2]),
			Rewards:    address(values[3]),
		}
		s.ensureMaps()
		c.controllers[created] = s
	case KindVault:
		values, err := args(contracts.FuncVaultInitialize, proxy.InitData)
		if err != nil {
			return err
		}
		c.vaults[created] = &VaultState{
			Token:             address(values[0]),
			Controller:        address(values[1]),
			Governance:        address(values[2]),
			Keeper:            address(values[3]),
			Guardian:          address(values[4]),
			Paused:            !c.VaultsStartUnpaused,
			PricePerFullShare: oneShare(),
		}
	case KindStrategy:
		values, err := args(contracts.FuncStrategyInitialize, proxy.InitData)
		if err != nil {
			return err
		}
		fees, ok := values[6].([3]*big.Int)
		if !ok {
			return revert("bad fee tuple")
		}
		c.strategies[created] = &StrategyState{
			Governance:   address(values[0]),
			Strategist:   address(values[1]),
			Controller:   address(values[2]),
			Keeper:       address(values[3]),
			Guardian:     address(values[4]),
			Want:         address(values[5]),
			Fees:         fees,
			Name:         "StrategyGenericSolidexHelper",
			HarvestYield: oneShare(),
		}
	}
	return nil
}

// execute applies a state changing call and returns its logs.
func (c *Chain) execute(from, to common.Address, data []byte) ([]*types.Log, error) {
	if len(data) < 4 {
		return nil, revert("no data")
	}
	sel := selectorOf(data)
	if c.dropped[sel] {
		return nil, nil
	}

	if s, ok := c.controllers[to]; ok {
		return nil, c.executeController(s, from, sel, data)
	}
	if v, ok := c.vaults[to]; ok {
		if sel != contracts.FuncUnpause.Selector {
			return nil, revert(errUnknownSelector.Error())
		}
		if from != v.Governance {
			return nil, revert("onlyGovernance")
		}
		v.Paused = false
		return nil, nil
	}
	if s, ok := c.strategies[to]; ok {
		return c.executeStrategy(to, s, from, sel)
	}
	return nil, revert(errUnknownSelector.Error())
}

func (c *Chain) executeController(s *ControllerState, from common.Address, sel [4]byte, data []byte) error {
	authorized := from == s.Governance || from == s.Strategist
	switch sel {
	case contracts.FuncApproveStrategy.Selector:
		values, err := args(contracts.FuncApproveStrategy, data)
		if err != nil {
			return err
		}
		if from != s.Governance {
			return revert("!governance")
		}
		want, strategy := address(values[0]), address(values[1])
		if s.Approved[want] == nil {
			s.Approved[want] = make(map[common.Address]bool)
		}
		s.Approved[want][strategy] = true
	case contracts.FuncSetStrategy.Selector:
		values, err := args(contracts.FuncSetStrategy, data)
		if err != nil {
			return err
		}
		if !authorized {
			return revert("!strategist")
		}
		want, strategy := address(values[0]), address(values[1])
		if !s.Approved[want][strategy] {
			return revert("!approved")
		}
		s.Strategies[want] = strategy
	case contracts.FuncSetVault.Selector:
		values, err := args(contracts.FuncSetVault, data)
		if err != nil {
			return err
		}
		if !authorized {
			return revert("!strategist")
		}
		want, vault := address(values[0]), address(values[1])
		if current, ok := s.Vaults[want]; ok && current != (common.Address{}) && current != vault {
			return revert("vault already set")
		}
		s.Vaults[want] = vault
	default:
		return revert(errUnknownSelector.Error())
	}
	return nil
}

func (c *Chain) executeStrategy(at common.Address, s *StrategyState, from common.Address, sel [4]byte) ([]*types.Log, error) {
	if from != s.Keeper && from != s.Governance && from != s.Strategist {
		return nil, revert("onlyAuthorizedActors")
	}
	switch sel {
	case contracts.FuncHarvest.Selector:
		return c.harvest(at, s)
	case contracts.FuncTend.Selector:
		idle := new(big.Int).Set(c.balance(s.Want, at))
		if s.Gauge != (common.Address{}) && idle.Sign() > 0 {
			c.credit(s.Want, at, new(big.Int).Neg(idle))
			c.credit(s.Want, s.Gauge, idle)
		}
		log, err := contracts.EncodeLog(constants.EventTend, map[string]any{"tended": idle})
		if err != nil {
			return nil, err
		}
		return []*types.Log{log}, nil
	}
	return nil, revert(errUnknownSelector.Error())
}

func (c *Chain) harvest(at common.Address, s *StrategyState) ([]*types.Log, error) {
	harvested := new(big.Int).Set(s.HarvestYield)
	govFee := bps(harvested, s.Fees[0])
	strategistFee := bps(harvested, s.Fees[1])
	net := new(big.Int).Sub(harvested, govFee)
	net.Sub(net, strategistFee)

	rewards := s.Governance
	if ctrl, ok := c.controllers[s.Controller]; ok && ctrl.Rewards != (common.Address{}) {
		rewards = ctrl.Rewards
	}

	block := new(big.Int).SetUint64(c.block)
	timestamp := new(big.Int).SetUint64(baseTimestamp + c.block)
	var logs []*types.Log
	emit := func(name string, fields map[string]any) error {
		log, err := contracts.EncodeLog(name, fields)
		if err != nil {
			return err
		}
		logs = append(logs, log)
		return nil
	}

	if govFee.Sign() > 0 {
		c.credit(s.Want, rewards, govFee)
		if err := emit(constants.EventPerformanceFeeGovernance, map[string]any{
			"destination": rewards, "token": s.Want, "amount": govFee, "blockNumber": block, "timestamp": timestamp,
		}); err != nil {
			return nil, err
		}
	}
	if strategistFee.Sign() > 0 {
		c.credit(s.Want, s.Strategist, strategistFee)
		if err := emit(constants.EventPerformanceFeeStrategist, map[string]any{
			"destination": s.Strategist, "token": s.Want, "amount": strategistFee, "blockNumber": block, "timestamp": timestamp,
		}); err != nil {
			return nil, err
		}
	}
	if !s.SkipHarvestEvent {
		if err := emit(constants.EventHarvest, map[string]any{"harvested": harvested, "blockNumber": block}); err != nil {
			return nil, err
		}
	}
	logs = append(logs, s.ExtraHarvestEvents...)

	c.credit(s.Want, at, net)
	if ctrl, ok := c.controllers[s.Controller]; ok {
		if v, ok := c.vaults[ctrl.Vaults[s.Want]]; ok && net.Sign() > 0 {
			v.PricePerFullShare = new(big.Int).Add(v.PricePerFullShare, net)
		}
	}
	return logs, nil
}

func bps(amount, fee *big.Int) *big.Int {
	if fee == nil {
		return new(big.Int)
	}
	out := new(big.Int).Mul(amount, fee)
	return out.Div(out, big.NewInt(constants.MaxBps))
}

// read serves eth_call.
func (c *Chain) read(to common.Address, data []byte) ([]byte, error) {
	sel := selectorOf(data)

	if to == c.registry && c.registry != (common.Address{}) {
		if sel != contracts.FuncRegistryGet.Selector {
			return nil, revert(errUnknownSelector.Error())
		}
		values, err := args(contracts.FuncRegistryGet, data)
		if err != nil {
			return nil, err
		}
		key, _ := values[0].(string)
		return output(contracts.FuncRegistryGet, c.registryEntries[key])
	}

	if s, ok := c.controllers[to]; ok {
		switch sel {
		case contracts.FuncApprovedStrategies.Selector:
			values, err := args(contracts.FuncApprovedStrategies, data)
			if err != nil {
				return nil, err
			}
			return output(contracts.FuncApprovedStrategies, s.Approved[address(values[0])][address(values[1])])
		case contracts.FuncStrategies.Selector:
			values, err := args(contracts.FuncStrategies, data)
			if err != nil {
				return nil, err
			}
			return output(contracts.FuncStrategies, s.Strategies[address(values[0])])
		case contracts.FuncVaults.Selector:
			values, err := args(contracts.FuncVaults, data)
			if err != nil {
				return nil, err
			}
			return output(contracts.FuncVaults, s.Vaults[address(values[0])])
		case contracts.FuncGovernance.Selector:
			return output(contracts.FuncGovernance, s.Governance)
		case contracts.FuncRewards.Selector:
			return output(contracts.FuncRewards, s.Rewards)
		}
		return nil, revert(errUnknownSelector.Error())
	}

	if v, ok := c.vaults[to]; ok {
		switch sel {
		case contracts.FuncPaused.Selector:
			return output(contracts.FuncPaused, v.Paused)
		case contracts.FuncGetPricePerFullShare.Selector:
			return output(contracts.FuncGetPricePerFullShare, v.PricePerFullShare)
		case contracts.FuncToken.Selector:
			return output(contracts.FuncToken, v.Token)
		}
	}

	if s, ok := c.strategies[to]; ok {
		switch sel {
		case contracts.FuncPerformanceFeeGovernance.Selector:
			return output(contracts.FuncPerformanceFeeGovernance, s.Fees[0])
		case contracts.FuncPerformanceFeeStrategist.Selector:
			return output(contracts.FuncPerformanceFeeStrategist, s.Fees[1])
		case contracts.FuncWithdrawalFee.Selector:
			return output(contracts.FuncWithdrawalFee, s.Fees[2])
		case contracts.FuncWant.Selector:
			return output(contracts.FuncWant, s.Want)
		case contracts.FuncStrategyBalanceOf.Selector:
			total := new(big.Int).Set(c.balance(s.Want, to))
			if s.Gauge != (common.Address{}) {
				total.Add(total, c.balance(s.Want, s.Gauge))
			}
			return output(contracts.FuncStrategyBalanceOf, total)
		case contracts.FuncGetName.Selector:
			return output(contracts.FuncGetName, s.Name)
		}
		return nil, revert(errUnknownSelector.Error())
	}

	if sel == contracts.FuncBalanceOf.Selector {
		values, err := args(contracts.FuncBalanceOf, data)
		if err != nil {
			return nil, err
		}
		return output(contracts.FuncBalanceOf, c.balance(to, address(values[0])))
	}
	return nil, revert(errUnknownSelector.Error())
}
