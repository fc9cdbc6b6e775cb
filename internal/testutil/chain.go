// Package testutil provides an in-memory chain that executes the subset of
// Badger controller, vault, strategy, registry and ERC20 behavior the
// deployment tooling depends on.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/cyphera/sett-deployer/internal/chain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lmittmann/w3"
)

// ProxyBytecode stands in for the AdminUpgradeabilityProxy creation code.
var ProxyBytecode = common.FromHex("0x608060405260405162000c3538038062000c35833981810160405260608110156200003757600080fd5b")

// ErrExecutionReverted is returned by CallContract for failing reads.
var ErrExecutionReverted = errors.New("execution reverted")

const (
	baseTimestamp   = 1_640_000_000
	defaultGasPrice = 1_000_000_000
	defaultGas      = 250_000
)

// Kind identifies which contract a logic address implements.
type Kind int

const (
	KindController Kind = iota + 1
	KindVault
	KindStrategy
)

type ControllerState struct {
	Governance common.Address
	Strategist common.Address
	Keeper     common.Address
	Rewards    common.Address
	Approved   map[common.Address]map[common.Address]bool
	Strategies map[common.Address]common.Address
	Vaults     map[common.Address]common.Address
}

type VaultState struct {
	Token             common.Address
	Controller        common.Address
	Governance        common.Address
	Keeper            common.Address
	Guardian          common.Address
	Paused            bool
	PricePerFullShare *big.Int
}

type StrategyState struct {
	Governance common.Address
	Strategist common.Address
	Controller common.Address
	Keeper     common.Address
	Guardian   common.Address
	Want       common.Address
	Fees       [3]*big.Int
	Name       string

	// HarvestYield is the gross want amount realized by each harvest.
	HarvestYield *big.Int
	// Gauge receives the strategy's idle want on tend.
	Gauge common.Address
	// ExtraHarvestEvents are appended to the harvest receipt.
	ExtraHarvestEvents []*types.Log
	// SkipHarvestEvent drops the Harvest event from the receipt.
	SkipHarvestEvent bool
}

// Chain is a chain.Backend backed by in-memory contract state.
type Chain struct {
	mu sync.Mutex

	chainID  *big.Int
	block    uint64
	nonces   map[common.Address]uint64
	receipts map[common.Hash]*types.Receipt

	registry        common.Address
	registryEntries map[string]common.Address
	logic           map[common.Address]Kind
	controllers     map[common.Address]*ControllerState
	vaults          map[common.Address]*VaultState
	strategies      map[common.Address]*StrategyState
	balances        map[common.Address]map[common.Address]*big.Int
	dropped         map[[4]byte]bool

	// VaultsStartUnpaused makes freshly initialized vaults report paused() == false.
	VaultsStartUnpaused bool
	// Sent records every accepted transaction in order.
	Sent []*types.Transaction
}

var _ chain.Backend = (*Chain)(nil)

// NewChain returns an empty chain at block 1.
func NewChain(chainID int64) *Chain {
	return &Chain{
		chainID:         big.NewInt(chainID),
		block:           1,
		nonces:          make(map[common.Address]uint64),
		receipts:        make(map[common.Hash]*types.Receipt),
		registryEntries: make(map[string]common.Address),
		logic:           make(map[common.Address]Kind),
		controllers:     make(map[common.Address]*ControllerState),
		vaults:          make(map[common.Address]*VaultState),
		strategies:      make(map[common.Address]*StrategyState),
		balances:        make(map[common.Address]map[common.Address]*big.Int),
		dropped:         make(map[[4]byte]bool),
	}
}

// SetRegistry places the registry at address with the given entries.
func (c *Chain) SetRegistry(address common.Address, entries map[string]common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry = address
	for k, v := range entries {
		c.registryEntries[k] = v
	}
}

// RegisterLogic marks address as an implementation of kind.
func (c *Chain) RegisterLogic(address common.Address, kind Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logic[address] = kind
}

// AddController installs an already deployed controller proxy.
func (c *Chain) AddController(address common.Address, state ControllerState) *ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := state
	s.ensureMaps()
	c.controllers[address] = &s
	return &s
}

// AddVault installs an already deployed vault proxy.
func (c *Chain) AddVault(address common.Address, state VaultState) *VaultState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := state
	if s.PricePerFullShare == nil {
		s.PricePerFullShare = oneShare()
	}
	c.vaults[address] = &s
	return &s
}

// Controller returns the state of the controller at address, or nil.
func (c *Chain) Controller(address common.Address) *ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controllers[address]
}

// Vault returns the state of the vault at address, or nil.
func (c *Chain) Vault(address common.Address) *VaultState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vaults[address]
}

// Strategy returns the state of the strategy at address, or nil.
func (c *Chain) Strategy(address common.Address) *StrategyState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.strategies[address]
}

// Drop makes transactions calling fn succeed without changing state.
func (c *Chain) Drop(fn *w3.Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropped[fn.Selector] = true
}

// Mint credits amount of token to holder.
func (c *Chain) Mint(token, holder common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credit(token, holder, amount)
}

// Transfer moves amount of token between holders. It panics on insufficient
// balance since only tests drive it.
func (c *Chain) Transfer(token, from, to common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.balance(token, from).Cmp(amount) < 0 {
		panic(fmt.Sprintf("transfer %s: insufficient balance of %s", amount, from.Hex()))
	}
	c.credit(token, from, new(big.Int).Neg(amount))
	c.credit(token, to, amount)
}

// Balance returns holder's balance of token.
func (c *Chain) Balance(token, holder common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.balance(token, holder))
}

// Mine advances the head by n empty blocks.
func (c *Chain) Mine(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.block += n
}

// Receipt returns the receipt stored for hash, or nil.
func (c *Chain) Receipt(hash common.Hash) *types.Receipt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receipts[hash]
}

func (c *Chain) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.chainID), nil
}

func (c *Chain) BlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.block, nil
}

func (c *Chain) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonces[account], nil
}

func (c *Chain) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(defaultGasPrice), nil
}

func (c *Chain) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return defaultGas, nil
}

func (c *Chain) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isContract(account) {
		return []byte{0x60, 0x80}, nil
	}
	return nil, nil
}

func (c *Chain) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	receipt, ok := c.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (c *Chain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	from, err := types.Sender(types.LatestSignerForChainID(c.chainID), tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if tx.Nonce() != c.nonces[from] {
		return fmt.Errorf("nonce too low: have %d, want %d", tx.Nonce(), c.nonces[from])
	}
	c.nonces[from]++
	c.block++
	c.Sent = append(c.Sent, tx)

	receipt := &types.Receipt{
		Type:              tx.Type(),
		Status:            types.ReceiptStatusSuccessful,
		TxHash:            tx.Hash(),
		GasUsed:           tx.Gas() / 2,
		CumulativeGasUsed: tx.Gas() / 2,
		BlockNumber:       new(big.Int).SetUint64(c.block),
	}

	var logs []*types.Log
	if tx.To() == nil {
		created := crypto.CreateAddress(from, tx.Nonce())
		if err := c.create(from, created, tx.Data()); err != nil {
			receipt.Status = types.ReceiptStatusFailed
		} else {
			receipt.ContractAddress = created
		}
	} else {
		logs, err = c.execute(from, *tx.To(), tx.Data())
		if err != nil {
			receipt.Status = types.ReceiptStatusFailed
			logs = nil
		}
	}
	for i, l := range logs {
		l.TxHash = tx.Hash()
		l.BlockNumber = c.block
		l.Index = uint(i)
		if l.Address == (common.Address{}) {
			l.Address = *tx.To()
		}
	}
	receipt.Logs = logs
	c.receipts[tx.Hash()] = receipt
	return nil
}

func (c *Chain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, ErrExecutionReverted
	}
	return c.read(*msg.To, msg.Data)
}

func (c *Chain) isContract(a common.Address) bool {
	if a == c.registry {
		return true
	}
	if _, ok := c.logic[a]; ok {
		return true
	}
	if _, ok := c.controllers[a]; ok {
		return true
	}
	if _, ok := c.vaults[a]; ok {
		return true
	}
	_, ok := c.strategies[a]
	return ok
}

func (c *Chain) balance(token, holder common.Address) *big.Int {
	if b, ok := c.balances[token][holder]; ok {
		return b
	}
	return new(big.Int)
}

func (c *Chain) credit(token, holder common.Address, amount *big.Int) {
	if c.balances[token] == nil {
		c.balances[token] = make(map[common.Address]*big.Int)
	}
	c.balances[token][holder] = new(big.Int).Add(c.balance(token, holder), amount)
}

func (s *ControllerState) ensureMaps() {
	if s.Approved == nil {
		s.Approved = make(map[common.Address]map[common.Address]bool)
	}
	if s.Strategies == nil {
		s.Strategies = make(map[common.Address]common.Address)
	}
	if s.Vaults == nil {
		s.Vaults = make(map[common.Address]common.Address)
	}
}

func oneShare() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
}
