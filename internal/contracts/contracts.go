// Package contracts holds ABI bindings for the external Badger contracts the
// deployment tooling talks to. Logic lives on chain; these types only encode
// calls and decode results.
package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/cyphera/sett-deployer/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
)

func call(ctx context.Context, caller chain.Caller, to common.Address, fn *w3.Func, args ...any) ([]any, error) {
	input, err := fn.EncodeArgs(args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", fn.Signature, err)
	}
	output, err := caller.Call(ctx, to, input)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Signature, err)
	}
	values, err := fn.Returns.Unpack(output)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fn.Signature, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("decode %s: empty result", fn.Signature)
	}
	return values, nil
}

func callAddress(ctx context.Context, caller chain.Caller, to common.Address, fn *w3.Func, args ...any) (common.Address, error) {
	values, err := call(ctx, caller, to, fn, args...)
	if err != nil {
		return common.Address{}, err
	}
	v, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("decode %s: unexpected %T", fn.Signature, values[0])
	}
	return v, nil
}

func callBool(ctx context.Context, caller chain.Caller, to common.Address, fn *w3.Func, args ...any) (bool, error) {
	values, err := call(ctx, caller, to, fn, args...)
	if err != nil {
		return false, err
	}
	v, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("decode %s: unexpected %T", fn.Signature, values[0])
	}
	return v, nil
}

func callUint(ctx context.Context, caller chain.Caller, to common.Address, fn *w3.Func, args ...any) (*big.Int, error) {
	values, err := call(ctx, caller, to, fn, args...)
	if err != nil {
		return nil, err
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("decode %s: unexpected %T", fn.Signature, values[0])
	}
	return v, nil
}

func callString(ctx context.Context, caller chain.Caller, to common.Address, fn *w3.Func, args ...any) (string, error) {
	values, err := call(ctx, caller, to, fn, args...)
	if err != nil {
		return "", err
	}
	v, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("decode %s: unexpected %T", fn.Signature, values[0])
	}
	return v, nil
}

func transact(ctx context.Context, from chain.Sender, to common.Address, fn *w3.Func, args ...any) (*types.Receipt, error) {
	input, err := fn.EncodeArgs(args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", fn.Signature, err)
	}
	receipt, err := from.Transact(ctx, to, input)
	if err != nil {
		return receipt, fmt.Errorf("%s: %w", fn.Signature, err)
	}
	return receipt, nil
}
