package contracts

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ErrNotProxyCreation is returned when creation code does not start with the
// proxy bytecode.
var ErrNotProxyCreation = errors.New("not a proxy creation")

var proxyConstructor = mustArguments("address", "address", "bytes")

// Artifact is a compiled contract as emitted by brownie or hardhat.
type Artifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     []byte          `json:"-"`
}

// LoadArtifact reads a build artifact and decodes its creation bytecode.
func LoadArtifact(path string) (*Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return ParseArtifact(raw)
}

// ParseArtifact decodes artifact JSON. The bytecode may carry a 0x prefix.
func ParseArtifact(raw []byte) (*Artifact, error) {
	var doc struct {
		ContractName string          `json:"contractName"`
		ABI          json.RawMessage `json:"abi"`
		Bytecode     string          `json:"bytecode"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse artifact: %w", err)
	}
	code, err := hex.DecodeString(strings.TrimPrefix(doc.Bytecode, "0x"))
	if err != nil {
		return nil, fmt.Errorf("artifact %s bytecode: %w", doc.ContractName, err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("artifact %s has no bytecode", doc.ContractName)
	}
	return &Artifact{ContractName: doc.ContractName, ABI: doc.ABI, Bytecode: code}, nil
}

// ProxyCreation is an AdminUpgradeabilityProxy constructor call.
type ProxyCreation struct {
	Logic    common.Address
	Admin    common.Address
	InitData []byte
}

// EncodeProxyCreation appends the constructor arguments to the proxy bytecode.
func EncodeProxyCreation(bytecode []byte, p ProxyCreation) ([]byte, error) {
	args, err := proxyConstructor.Pack(p.Logic, p.Admin, p.InitData)
	if err != nil {
		return nil, fmt.Errorf("pack proxy constructor: %w", err)
	}
	code := make([]byte, 0, len(bytecode)+len(args))
	code = append(code, bytecode...)
	return append(code, args...), nil
}

// DecodeProxyCreation reverses EncodeProxyCreation for creation code built
// from bytecode.
func DecodeProxyCreation(bytecode, code []byte) (ProxyCreation, error) {
	if len(code) < len(bytecode) || !bytes.Equal(code[:len(bytecode)], bytecode) {
		return ProxyCreation{}, ErrNotProxyCreation
	}
	values, err := proxyConstructor.Unpack(code[len(bytecode):])
	if err != nil {
		return ProxyCreation{}, fmt.Errorf("unpack proxy constructor: %w", err)
	}
	logic, _ := values[0].(common.Address)
	admin, _ := values[1].(common.Address)
	data, _ := values[2].([]byte)
	return ProxyCreation{Logic: logic, Admin: admin, InitData: data}, nil
}

func mustArguments(typeNames ...string) abi.Arguments {
	args := make(abi.Arguments, 0, len(typeNames))
	for _, name := range typeNames {
		typ, err := abi.NewType(name, "", nil)
		if err != nil {
			panic(err)
		}
		args = append(args, abi.Argument{Type: typ})
	}
	return args
}
