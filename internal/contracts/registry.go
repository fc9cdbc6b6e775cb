package contracts

import (
	"context"

	"github.com/cyphera/sett-deployer/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"
)

var FuncRegistryGet = w3.MustNewFunc("get(string)", "address")

// Registry is the read-only BadgerRegistry binding.
type Registry struct {
	Address common.Address
	caller  chain.Caller
}

func NewRegistry(address common.Address, caller chain.Caller) *Registry {
	return &Registry{Address: address, caller: caller}
}

// Get returns the address registered under key, or the zero address.
func (r *Registry) Get(ctx context.Context, key string) (common.Address, error) {
	return callAddress(ctx, r.caller, r.Address, FuncRegistryGet, key)
}
