package constants

// Common string constants used throughout the codebase
const (
	// Log levels
	ErrorLevel = "error"

	// Environments
	ProdEnvironment = "prod"

	// Service name attached to production logs
	ServiceName = "sett-deployer"
)

// Registry role names
const (
	RoleGovernance         = "governance"
	RoleGuardian           = "guardian"
	RoleKeeper             = "keeper"
	RoleProxyAdminTimelock = "proxyAdminTimelock"
)

// RegistryRoles lists every role the deployment pipeline resolves, in lookup order.
var RegistryRoles = []string{
	RoleGovernance,
	RoleGuardian,
	RoleKeeper,
	RoleProxyAdminTimelock,
}

// Strategy event names
const (
	EventPerformanceFeeGovernance = "PerformanceFeeGovernance"
	EventPerformanceFeeStrategist = "PerformanceFeeStrategist"
	EventHarvest                  = "Harvest"
	EventTend                     = "Tend"
)

// Snapshot keys
const (
	KeyPricePerFullShare        = "sett.pricePerFullShare"
	KeyStrategyBalanceOf        = "strategy.balanceOf"
	KeyPerformanceFeeGovernance = "strategy.performanceFeeGovernance"
	KeyPerformanceFeeStrategist = "strategy.performanceFeeStrategist"
	KeyWithdrawalFee            = "strategy.withdrawalFee"

	TokenKeyWant = "want"
	TokenKeySett = "sett"

	EntityStrategy          = "strategy"
	EntityStrategist        = "strategist"
	EntityGovernanceRewards = "governanceRewards"
)

// MaxBps is the basis point denominator used by fee getters.
const MaxBps = 10_000
