// Package keys selects and unlocks the deploying account from a local
// go-ethereum keystore directory.
package keys

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrNoAccounts is returned when the keystore directory holds no key files.
var ErrNoAccounts = errors.New("no accounts in keystore")

// Store wraps an encrypted keystore directory.
type Store struct {
	Directory string
	ks        *keystore.KeyStore
}

// GetDefaultDirectory returns ~/.ethereum/keystore.
func GetDefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".ethereum", "keystore"), nil
}

// Open returns a Store for directory. light selects the cheap scrypt
// parameters for newly imported keys.
func Open(directory string, light bool) (*Store, error) {
	if directory == "" {
		var err error
		directory, err = GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	scryptN, scryptP := keystore.StandardScryptN, keystore.StandardScryptP
	if light {
		scryptN, scryptP = keystore.LightScryptN, keystore.LightScryptP
	}
	return &Store{Directory: directory, ks: keystore.NewKeyStore(directory, scryptN, scryptP)}, nil
}

// Accounts lists key addresses sorted by file name.
func (s *Store) Accounts() []common.Address {
	accs := s.ks.Accounts()
	out := make([]common.Address, 0, len(accs))
	for _, a := range accs {
		out = append(out, a.Address)
	}
	return out
}

// Import encrypts key into the store.
func (s *Store) Import(key *ecdsa.PrivateKey, passphrase string) (common.Address, error) {
	acc, err := s.ks.ImportECDSA(key, passphrase)
	if err != nil {
		return common.Address{}, fmt.Errorf("import key: %w", err)
	}
	return acc.Address, nil
}

// Unlock decrypts address with passphrase and returns a signer for it.
func (s *Store) Unlock(address common.Address, passphrase string) (*Signer, error) {
	acc := accounts.Account{Address: address}
	if err := s.ks.Unlock(acc, passphrase); err != nil {
		return nil, fmt.Errorf("unlock %s: %w", address.Hex(), err)
	}
	return &Signer{ks: s.ks, account: acc}, nil
}

// Signer signs with an unlocked keystore account.
type Signer struct {
	ks      *keystore.KeyStore
	account accounts.Account
}

func (s *Signer) Address() common.Address {
	return s.account.Address
}

func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := s.ks.SignTx(s.account, tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	return signed, nil
}

// Lock drops the decrypted key from memory.
func (s *Signer) Lock() error {
	return s.ks.Lock(s.account.Address)
}
