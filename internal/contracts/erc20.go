package contracts

import (
	"context"
	"math/big"

	"github.com/cyphera/sett-deployer/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"
)

var FuncBalanceOf = w3.MustNewFunc("balanceOf(address)", "uint256")

// BalanceOf reads token.balanceOf(holder).
func BalanceOf(ctx context.Context, caller chain.Caller, token, holder common.Address) (*big.Int, error) {
	return callUint(ctx, caller, token, FuncBalanceOf, holder)
}
