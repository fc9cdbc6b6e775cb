package contracts

import (
	"context"
	"math/big"

	"github.com/cyphera/sett-deployer/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
)

var (
	FuncStrategyInitialize       = w3.MustNewFunc("initialize(address,address,address,address,address,address,uint256[3])", "")
	FuncPerformanceFeeGovernance = w3.MustNewFunc("performanceFeeGovernance()", "uint256")
	FuncPerformanceFeeStrategist = w3.MustNewFunc("performanceFeeStrategist()", "uint256")
	FuncWithdrawalFee            = w3.MustNewFunc("withdrawalFee()", "uint256")
	FuncWant                     = w3.MustNewFunc("want()", "address")
	FuncStrategyBalanceOf        = w3.MustNewFunc("balanceOf()", "uint256")
	FuncGetName                  = w3.MustNewFunc("getName()", "string")
	FuncHarvest                  = w3.MustNewFunc("harvest()", "")
	FuncTend                     = w3.MustNewFunc("tend()", "")
)

// StrategyInitArgs are the strategy initializer arguments in call order.
// Fees are (governance performance, strategist performance, withdrawal) in bps.
type StrategyInitArgs struct {
	Governance common.Address
	Strategist common.Address
	Controller common.Address
	Keeper     common.Address
	Guardian   common.Address
	Want       common.Address
	Fees       [3]*big.Int
}

func EncodeStrategyInit(args StrategyInitArgs) ([]byte, error) {
	return FuncStrategyInitialize.EncodeArgs(
		args.Governance,
		args.Strategist,
		args.Controller,
		args.Keeper,
		args.Guardian,
		args.Want,
		args.Fees,
	)
}

// StrategyFees are the fee getters read back after initialization.
type StrategyFees struct {
	GovernancePerformance *big.Int `json:"governance_performance_bps"`
	StrategistPerformance *big.Int `json:"strategist_performance_bps"`
	Withdrawal            *big.Int `json:"withdrawal_bps"`
}

// Strategy is the BaseStrategy binding.
type Strategy struct {
	Address common.Address
	caller  chain.Caller
}

func NewStrategy(address common.Address, caller chain.Caller) *Strategy {
	return &Strategy{Address: address, caller: caller}
}

func (s *Strategy) Fees(ctx context.Context) (StrategyFees, error) {
	gov, err := callUint(ctx, s.caller, s.Address, FuncPerformanceFeeGovernance)
	if err != nil {
		return StrategyFees{}, err
	}
	strategist, err := callUint(ctx, s.caller, s.Address, FuncPerformanceFeeStrategist)
	if err != nil {
		return StrategyFees{}, err
	}
	withdrawal, err := callUint(ctx, s.caller, s.Address, FuncWithdrawalFee)
	if err != nil {
		return StrategyFees{}, err
	}
	return StrategyFees{GovernancePerformance: gov, StrategistPerformance: strategist, Withdrawal: withdrawal}, nil
}

func (s *Strategy) Want(ctx context.Context) (common.Address, error) {
	return callAddress(ctx, s.caller, s.Address, FuncWant)
}

func (s *Strategy) BalanceOf(ctx context.Context) (*big.Int, error) {
	return callUint(ctx, s.caller, s.Address, FuncStrategyBalanceOf)
}

func (s *Strategy) Name(ctx context.Context) (string, error) {
	return callString(ctx, s.caller, s.Address, FuncGetName)
}

func (s *Strategy) Harvest(ctx context.Context, from chain.Sender) (*types.Receipt, error) {
	return transact(ctx, from, s.Address, FuncHarvest)
}

func (s *Strategy) Tend(ctx context.Context, from chain.Sender) (*types.Receipt, error) {
	return transact(ctx, from, s.Address, FuncTend)
}
