// Package deploy deploys the controller, vault and strategy proxies and wires
// them together on the controller.
package deploy

import (
	"context"
	"fmt"

	"github.com/cyphera/sett-deployer/internal/constants"
	"github.com/cyphera/sett-deployer/internal/contracts"
	"github.com/cyphera/sett-deployer/internal/errs"
	"github.com/cyphera/sett-deployer/internal/helpers"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Actors are the permissioned accounts for one deployment run.
type Actors struct {
	Governance common.Address `json:"governance"`
	Strategist common.Address `json:"strategist"`
	Guardian   common.Address `json:"guardian"`
	Keeper     common.Address `json:"keeper"`
	ProxyAdmin common.Address `json:"proxy_admin"`
}

// RegistryClient resolves role addresses from the BadgerRegistry.
type RegistryClient struct {
	registry *contracts.Registry
	logger   *zap.Logger
}

func NewRegistryClient(registry *contracts.Registry, logger *zap.Logger) *RegistryClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistryClient{registry: registry, logger: logger}
}

// Get returns the address registered for role. An unset role is a
// configuration error.
func (c *RegistryClient) Get(ctx context.Context, role string) (common.Address, error) {
	addr, err := c.registry.Get(ctx, role)
	if err != nil {
		return common.Address{}, fmt.Errorf("registry get %q: %w", role, err)
	}
	if helpers.IsZeroAddress(addr) {
		return common.Address{}, errs.Config("registry."+role, "resolved to the zero address")
	}
	return addr, nil
}

// ResolveActors reads every registry role. The deployer becomes governance
// and the registry's governance becomes the strategist.
func (c *RegistryClient) ResolveActors(ctx context.Context, deployer common.Address) (Actors, error) {
	resolved := make(map[string]common.Address, len(constants.RegistryRoles))
	for _, role := range constants.RegistryRoles {
		addr, err := c.Get(ctx, role)
		if err != nil {
			return Actors{}, err
		}
		resolved[role] = addr
	}

	actors := Actors{
		Governance: deployer,
		Strategist: resolved[constants.RoleGovernance],
		Guardian:   resolved[constants.RoleGuardian],
		Keeper:     resolved[constants.RoleKeeper],
		ProxyAdmin: resolved[constants.RoleProxyAdminTimelock],
	}
	c.logger.Info("Resolved actors from registry",
		zap.String("registry", c.registry.Address.Hex()),
		zap.String("strategist", actors.Strategist.Hex()),
		zap.String("guardian", actors.Guardian.Hex()),
		zap.String("keeper", actors.Keeper.Hex()),
		zap.String("proxy_admin", actors.ProxyAdmin.Hex()),
	)
	return actors, nil
}
