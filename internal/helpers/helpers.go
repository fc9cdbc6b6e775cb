package helpers

import (
	"fmt"
	"strings"

	"github.com/cyphera/sett-deployer/internal/constants"
	"github.com/ethereum/go-ethereum/common"
)

// Stage constants define the possible deployment/runtime environments.
const (
	StageProd  = constants.ProdEnvironment
	StageDev   = "dev"
	StageLocal = "local"
)

// IsValidStage checks if the provided stage string is one of the defined valid stages.
func IsValidStage(stage string) bool {
	switch stage {
	case StageProd, StageDev, StageLocal:
		return true
	default:
		return false
	}
}

// IsAddressValid checks if the provided string is a valid Ethereum address
// It verifies:
// 1. The address is exactly 42 characters long (including 0x prefix)
// 2. The address starts with "0x"
// 3. The remaining 40 characters are valid hexadecimal
func IsAddressValid(address string) bool {
	if len(address) != 42 {
		return false
	}
	if !strings.HasPrefix(address, "0x") {
		return false
	}
	return isHex(address[2:])
}

// ParseAddress converts a hex string into an address, rejecting malformed input.
func ParseAddress(address string) (common.Address, error) {
	address = strings.TrimSpace(address)
	if !IsAddressValid(address) {
		return common.Address{}, fmt.Errorf("invalid address: %q", address)
	}
	return common.HexToAddress(address), nil
}

// IsZeroAddress reports whether addr is the zero address.
func IsZeroAddress(addr common.Address) bool {
	return addr == (common.Address{})
}

// FormatBps renders basis points as a percentage, e.g. 1500 -> "15.00%".
func FormatBps(bps int64) string {
	return fmt.Sprintf("%d.%02d%%", bps/100, bps%100)
}

func isHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
