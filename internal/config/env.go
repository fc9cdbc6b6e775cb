package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cyphera/sett-deployer/internal/errs"
	"github.com/cyphera/sett-deployer/internal/helpers"
	"github.com/joho/godotenv"
)

const DefaultSettingsFile = "configs/settings.yaml"

// Env holds runtime configuration sourced from the environment.
type Env struct {
	Stage              string
	LogLevel           string
	SettingsFile       string
	Network            string
	Strategy           string
	RPCURL             string
	KeystoreDir        string
	KeystorePassword   string
	Deployer           string
	Confirmations      uint64
	SettleDelay        time.Duration
	RPCRateLimit       float64
	RequireValueGained bool
}

// LoadDotEnv loads the given .env files. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// EnvFromLookup reads Env through lookup, which makes it testable without
// touching the process environment.
func EnvFromLookup(lookup func(string) (string, bool)) (Env, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}

	env := Env{
		Stage:            get("STAGE", helpers.StageLocal),
		LogLevel:         get("LOG_LEVEL", "info"),
		SettingsFile:     get("SETTINGS_FILE", DefaultSettingsFile),
		Network:          get("NETWORK", ""),
		Strategy:         get("STRATEGY", ""),
		RPCURL:           get("RPC_URL", ""),
		KeystoreDir:      get("KEYSTORE_DIR", ""),
		KeystorePassword: get("KEYSTORE_PASSWORD", ""),
		Deployer:         get("DEPLOYER_ADDRESS", ""),
	}
	if env.Deployer != "" && !helpers.IsAddressValid(env.Deployer) {
		return Env{}, errs.Config("DEPLOYER_ADDRESS", "invalid address %q", env.Deployer)
	}
	if !helpers.IsValidStage(env.Stage) {
		return Env{}, errs.Config("STAGE", "invalid stage %q, must be one of %s, %s, %s",
			env.Stage, helpers.StageProd, helpers.StageDev, helpers.StageLocal)
	}

	var err error
	if env.Confirmations, err = strconv.ParseUint(get("CONFIRMATIONS", "1"), 10, 64); err != nil {
		return Env{}, errs.Config("CONFIRMATIONS", "%v", err)
	}
	if env.Confirmations == 0 {
		return Env{}, errs.Config("CONFIRMATIONS", "must be at least 1")
	}
	if env.SettleDelay, err = time.ParseDuration(get("SETTLE_DELAY", "0s")); err != nil {
		return Env{}, errs.Config("SETTLE_DELAY", "%v", err)
	}
	if env.RPCRateLimit, err = strconv.ParseFloat(get("RPC_RATE_LIMIT", "0"), 64); err != nil {
		return Env{}, errs.Config("RPC_RATE_LIMIT", "%v", err)
	}
	if env.RequireValueGained, err = strconv.ParseBool(get("REQUIRE_VALUE_GAINED", "true")); err != nil {
		return Env{}, errs.Config("REQUIRE_VALUE_GAINED", "%v", err)
	}
	return env, nil
}

// Apply overlays environment overrides onto a selected target.
func (e Env) Apply(target *Target) {
	if e.RPCURL != "" {
		target.RPCURL = e.RPCURL
	}
}
