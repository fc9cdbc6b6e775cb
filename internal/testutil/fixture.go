package testutil

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cyphera/sett-deployer/internal/chain"
	"github.com/cyphera/sett-deployer/internal/constants"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// Well known addresses used across fixtures.
var (
	RegistryAddress        = common.HexToAddress("0xFda7eB6f8b7a9e9fCFd348042ae675d1d652454f")
	BadgerTreeAddress      = common.HexToAddress("0x89122c767A5F543e663DB536b603123225bc3823")
	ControllerLogicAddress = common.HexToAddress("0xc09ECb36De87AAe031ba0E824a5DF94Ab799754f")
	VaultLogicAddress      = common.HexToAddress("0x18E31A50cEe0b8c716870c1bc8Bc7796e9CcD9ed")
	StrategyLogicAddress   = common.HexToAddress("0x2b7f219d0f574d1bb7893bdddb67e40f4aa8d10d")
	WantAddress            = common.HexToAddress("0x6058345A4D8B89Ddac7042Be08091F91a404B80b")
	ControllerAddress      = common.HexToAddress("0x72ac086a5d7e1221a6d47438c45ed199e9bff423")
	VaultAddress           = common.HexToAddress("0xb6d63a4e5ca740e96c26adabcac73be78ee39dc5")

	GovernanceAddress = common.HexToAddress("0x000000000000000000000000000000000000a001")
	GuardianAddress   = common.HexToAddress("0x000000000000000000000000000000000000a002")
	KeeperAddress     = common.HexToAddress("0x000000000000000000000000000000000000a003")
	ProxyAdminAddress = common.HexToAddress("0x000000000000000000000000000000000000a004")
)

// FantomChainID is the chain id fixtures run on.
const FantomChainID = 250

// Fixture is a chain with the registry and logic contracts in place and a
// funded deployer key.
type Fixture struct {
	Chain    *Chain
	Key      *ecdsa.PrivateKey
	Deployer *chain.KeySigner
}

// NewFixture builds a fresh Fixture. The registry resolves every role.
func NewFixture(t testing.TB) *Fixture {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	c := NewChain(FantomChainID)
	c.SetRegistry(RegistryAddress, map[string]common.Address{
		constants.RoleGovernance:         GovernanceAddress,
		constants.RoleGuardian:           GuardianAddress,
		constants.RoleKeeper:             KeeperAddress,
		constants.RoleProxyAdminTimelock: ProxyAdminAddress,
	})
	c.RegisterLogic(ControllerLogicAddress, KindController)
	c.RegisterLogic(VaultLogicAddress, KindVault)
	c.RegisterLogic(StrategyLogicAddress, KindStrategy)
	return &Fixture{Chain: c, Key: key, Deployer: chain.NewKeySigner(key)}
}

// WithExistingPair installs the pre-deployed controller and vault with the
// deployer as governance.
func (f *Fixture) WithExistingPair() *Fixture {
	dev := f.Deployer.Address()
	f.Chain.AddController(ControllerAddress, ControllerState{
		Governance: dev,
		Strategist: dev,
		Keeper:     dev,
		Rewards:    dev,
	})
	f.Chain.AddVault(VaultAddress, VaultState{
		Token:      WantAddress,
		Controller: ControllerAddress,
		Governance: dev,
		Keeper:     KeeperAddress,
		Guardian:   GuardianAddress,
	})
	return f
}

// Transactor returns a transactor for the deployer with fast polling.
func (f *Fixture) Transactor(t testing.TB, opts ...chain.TransactorOption) *chain.Transactor {
	t.Helper()
	return NewTransactor(t, f.Chain, f.Deployer, opts...)
}

// NewTransactor returns a transactor for signer on c with fast polling.
func NewTransactor(t testing.TB, c *Chain, signer chain.Signer, opts ...chain.TransactorOption) *chain.Transactor {
	t.Helper()
	opts = append([]chain.TransactorOption{
		chain.WithPolling(time.Millisecond, 5*time.Millisecond),
		chain.WithReceiptTimeout(5 * time.Second),
	}, opts...)
	tr, err := chain.NewTransactor(context.Background(), c, signer, opts...)
	require.NoError(t, err)
	return tr
}

// WriteProxyArtifact writes a brownie style artifact for ProxyBytecode into
// dir and returns its path.
func WriteProxyArtifact(t testing.TB, dir string) string {
	t.Helper()
	doc := map[string]any{
		"contractName": "AdminUpgradeabilityProxy",
		"abi":          []any{},
		"bytecode":     hex.EncodeToString(ProxyBytecode),
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(dir, "AdminUpgradeabilityProxy.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}
