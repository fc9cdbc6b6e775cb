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
	FuncVaultInitialize      = w3.MustNewFunc("initialize(address,address,address,address,address,bool,string,string)", "")
	FuncPaused               = w3.MustNewFunc("paused()", "bool")
	FuncUnpause              = w3.MustNewFunc("unpause()", "")
	FuncGetPricePerFullShare = w3.MustNewFunc("getPricePerFullShare()", "uint256")
	FuncToken                = w3.MustNewFunc("token()", "address")
)

// VaultInitArgs are the SettV4 initializer arguments in call order.
type VaultInitArgs struct {
	Token             common.Address
	Controller        common.Address
	Governance        common.Address
	Keeper            common.Address
	Guardian          common.Address
	OverrideTokenName bool
	NameOverride      string
	SymbolOverride    string
}

func EncodeVaultInit(args VaultInitArgs) ([]byte, error) {
	return FuncVaultInitialize.EncodeArgs(
		args.Token,
		args.Controller,
		args.Governance,
		args.Keeper,
		args.Guardian,
		args.OverrideTokenName,
		args.NameOverride,
		args.SymbolOverride,
	)
}

// Vault is the Sett binding.
type Vault struct {
	Address common.Address
	caller  chain.Caller
}

func NewVault(address common.Address, caller chain.Caller) *Vault {
	return &Vault{Address: address, caller: caller}
}

func (v *Vault) Paused(ctx context.Context) (bool, error) {
	return callBool(ctx, v.caller, v.Address, FuncPaused)
}

func (v *Vault) Unpause(ctx context.Context, from chain.Sender) (*types.Receipt, error) {
	return transact(ctx, from, v.Address, FuncUnpause)
}

func (v *Vault) PricePerFullShare(ctx context.Context) (*big.Int, error) {
	return callUint(ctx, v.caller, v.Address, FuncGetPricePerFullShare)
}

func (v *Vault) Token(ctx context.Context) (common.Address, error) {
	return callAddress(ctx, v.caller, v.Address, FuncToken)
}
