package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"

	"github.com/cyphera/sett-deployer/internal/constants"
	"github.com/cyphera/sett-deployer/internal/errs"
	"github.com/cyphera/sett-deployer/internal/helpers"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Fees holds basis-point values as written in the settings file. A nil field
// means the value was not supplied.
type Fees struct {
	GovernancePerformance *int64 `yaml:"governance_performance"`
	StrategistPerformance *int64 `yaml:"strategist_performance"`
	Withdrawal            *int64 `yaml:"withdrawal"`
}

// LogicAddresses are the pre-deployed implementation contracts proxies point at.
type LogicAddresses struct {
	Controller string `yaml:"controller"`
	Vault      string `yaml:"vault"`
	Strategy   string `yaml:"strategy"`
}

// StrategySettings describes one strategy on one network.
type StrategySettings struct {
	Want        string `yaml:"want"`
	LPComponent string `yaml:"lp_component"`
	RewardToken string `yaml:"reward_token"`
	Whale       string `yaml:"whale"`

	// Controller and Vault reference already deployed proxies. When empty the
	// pipeline deploys fresh ones from the network's logic addresses.
	Controller string `yaml:"controller"`
	Vault      string `yaml:"vault"`

	Fees             *Fees  `yaml:"fees"`
	StrategyGasLimit uint64 `yaml:"strategy_gas_limit"`
}

// NetworkSettings describes one chain.
type NetworkSettings struct {
	ChainID    int64                       `yaml:"chain_id"`
	RPCURL     string                      `yaml:"rpc_url"`
	Logic      LogicAddresses              `yaml:"logic"`
	Strategies map[string]StrategySettings `yaml:"strategies"`
}

// Settings is the static settings document.
type Settings struct {
	Registry      string                     `yaml:"registry"`
	BadgerTree    string                     `yaml:"badger_tree"`
	DevMultisig   string                     `yaml:"dev_multisig"`
	ProxyArtifact string                     `yaml:"proxy_artifact"`
	Fees          Fees                       `yaml:"fees"`
	Networks      map[string]NetworkSettings `yaml:"networks"`

	dir string
}

// FeeTuple is the resolved (governance, strategist, withdrawal) fee triple in bps.
type FeeTuple struct {
	GovernancePerformance int64 `json:"governance_performance_bps"`
	StrategistPerformance int64 `json:"strategist_performance_bps"`
	Withdrawal            int64 `json:"withdrawal_bps"`
}

// Array returns the tuple in strategy initializer order.
func (f FeeTuple) Array() [3]*big.Int {
	return [3]*big.Int{
		big.NewInt(f.GovernancePerformance),
		big.NewInt(f.StrategistPerformance),
		big.NewInt(f.Withdrawal),
	}
}

// Target is a fully parsed network/strategy selection.
type Target struct {
	Network  string
	ChainID  int64
	RPCURL   string
	Strategy string

	Registry      common.Address
	BadgerTree    common.Address
	DevMultisig   common.Address
	ProxyArtifact string

	ControllerLogic common.Address
	VaultLogic      common.Address
	StrategyLogic   common.Address

	Want common.Address

	// LPComponent, RewardToken and Whale are parsed and validated but only
	// informational; no deployment step reads them.
	LPComponent common.Address
	RewardToken common.Address
	Whale       common.Address

	// Controller and Vault are zero when they must be deployed.
	Controller common.Address
	Vault      common.Address

	Fees             FeeTuple
	StrategyGasLimit uint64
}

// Load reads and parses a settings file.
func Load(path string) (*Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	settings, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	settings.dir = filepath.Dir(path)
	return settings, nil
}

// Parse decodes a YAML settings document.
func Parse(raw []byte) (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal(raw, &settings); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return &settings, nil
}

// NetworkNames returns the configured network names in sorted order.
func (s *Settings) NetworkNames() []string {
	names := make([]string, 0, len(s.Networks))
	for name := range s.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select resolves a network and strategy into a Target. Empty names are
// accepted when exactly one candidate exists.
func (s *Settings) Select(network, strategy string) (*Target, error) {
	network, err := pick("network", network, s.NetworkNames())
	if err != nil {
		return nil, err
	}
	net := s.Networks[network]

	strategyNames := make([]string, 0, len(net.Strategies))
	for name := range net.Strategies {
		strategyNames = append(strategyNames, name)
	}
	sort.Strings(strategyNames)
	strategy, err = pick("networks."+network+".strategy", strategy, strategyNames)
	if err != nil {
		return nil, err
	}
	strat := net.Strategies[strategy]
	prefix := fmt.Sprintf("networks.%s.strategies.%s", network, strategy)

	p := &parser{}
	target := &Target{
		Network:          network,
		ChainID:          net.ChainID,
		RPCURL:           net.RPCURL,
		Strategy:         strategy,
		Registry:         p.required("registry", s.Registry),
		BadgerTree:       p.optional("badger_tree", s.BadgerTree),
		DevMultisig:      p.optional("dev_multisig", s.DevMultisig),
		StrategyLogic:    p.required("networks."+network+".logic.strategy", net.Logic.Strategy),
		Want:             p.required(prefix+".want", strat.Want),
		LPComponent:      p.optional(prefix+".lp_component", strat.LPComponent),
		RewardToken:      p.optional(prefix+".reward_token", strat.RewardToken),
		Whale:            p.optional(prefix+".whale", strat.Whale),
		Controller:       p.optional(prefix+".controller", strat.Controller),
		Vault:            p.optional(prefix+".vault", strat.Vault),
		StrategyGasLimit: strat.StrategyGasLimit,
	}
	if helpers.IsZeroAddress(target.Controller) {
		target.ControllerLogic = p.required("networks."+network+".logic.controller", net.Logic.Controller)
	}
	if helpers.IsZeroAddress(target.Vault) {
		target.VaultLogic = p.required("networks."+network+".logic.vault", net.Logic.Vault)
	}
	if p.err != nil {
		return nil, p.err
	}

	if s.ProxyArtifact == "" {
		return nil, errs.Config("proxy_artifact", "is required")
	}
	target.ProxyArtifact = s.ProxyArtifact
	if !filepath.IsAbs(target.ProxyArtifact) && s.dir != "" {
		target.ProxyArtifact = filepath.Join(s.dir, target.ProxyArtifact)
	}

	fees, err := resolveFees(s.Fees, strat.Fees)
	if err != nil {
		return nil, err
	}
	target.Fees = fees
	return target, nil
}

// Validate checks every network/strategy pair.
func (s *Settings) Validate() error {
	if len(s.Networks) == 0 {
		return errs.Config("networks", "at least one network is required")
	}
	for _, network := range s.NetworkNames() {
		if len(s.Networks[network].Strategies) == 0 {
			return errs.Config("networks."+network+".strategies", "at least one strategy is required")
		}
		for strategy := range s.Networks[network].Strategies {
			if _, err := s.Select(network, strategy); err != nil {
				return err
			}
		}
	}
	return nil
}

func resolveFees(defaults Fees, override *Fees) (FeeTuple, error) {
	merged := defaults
	if override != nil {
		if override.GovernancePerformance != nil {
			merged.GovernancePerformance = override.GovernancePerformance
		}
		if override.StrategistPerformance != nil {
			merged.StrategistPerformance = override.StrategistPerformance
		}
		if override.Withdrawal != nil {
			merged.Withdrawal = override.Withdrawal
		}
	}

	var tuple FeeTuple
	fields := []struct {
		name string
		src  *int64
		dst  *int64
	}{
		{"fees.governance_performance", merged.GovernancePerformance, &tuple.GovernancePerformance},
		{"fees.strategist_performance", merged.StrategistPerformance, &tuple.StrategistPerformance},
		{"fees.withdrawal", merged.Withdrawal, &tuple.Withdrawal},
	}
	for _, f := range fields {
		if f.src == nil {
			return FeeTuple{}, errs.Config(f.name, "is required")
		}
		if *f.src < 0 || *f.src > constants.MaxBps {
			return FeeTuple{}, errs.Config(f.name, "must be between 0 and %d bps, got %d", constants.MaxBps, *f.src)
		}
		*f.dst = *f.src
	}
	return tuple, nil
}

func pick(field, name string, candidates []string) (string, error) {
	if name == "" {
		if len(candidates) == 1 {
			return candidates[0], nil
		}
		return "", errs.Config(field, "must be chosen from %v", candidates)
	}
	for _, c := range candidates {
		if c == name {
			return name, nil
		}
	}
	return "", errs.Config(field, "unknown %q, expected one of %v", name, candidates)
}

// parser keeps the first address error so Select reads top to bottom.
type parser struct {
	err error
}

func (p *parser) required(field, value string) common.Address {
	if p.err != nil {
		return common.Address{}
	}
	if value == "" {
		p.err = errs.Config(field, "is required")
		return common.Address{}
	}
	addr := p.optional(field, value)
	if p.err == nil && helpers.IsZeroAddress(addr) {
		p.err = errs.Config(field, "must not be the zero address")
	}
	return addr
}

func (p *parser) optional(field, value string) common.Address {
	if p.err != nil || value == "" {
		return common.Address{}
	}
	addr, err := helpers.ParseAddress(value)
	if err != nil {
		p.err = errs.Config(field, "%v", err)
	}
	return addr
}
