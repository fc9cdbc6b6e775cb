package keys

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/term"
)

// Prompter asks the operator for input.
type Prompter interface {
	Select(label string, options []string) (int, error)
	Password(label string) (string, error)
}

// Choose lists the store's accounts, asks which one to use and unlocks it.
// A non-empty passphrase skips the password prompt.
func Choose(store *Store, prompter Prompter, passphrase string) (*Signer, error) {
	accs := store.Accounts()
	if len(accs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAccounts, store.Directory)
	}
	options := make([]string, len(accs))
	for i, a := range accs {
		options[i] = a.Hex()
	}

	idx, err := prompter.Select("Select deployer account", options)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(accs) {
		return nil, fmt.Errorf("account selection %d out of range [0,%d)", idx, len(accs))
	}
	chosen := accs[idx]

	if passphrase == "" {
		passphrase, err = prompter.Password(fmt.Sprintf("Password for %s", chosen.Hex()))
		if err != nil {
			return nil, err
		}
	}
	return store.Unlock(chosen, passphrase)
}

// TerminalPrompter reads answers from in and writes prompts to out. Passwords
// are read without echo when in is a terminal.
type TerminalPrompter struct {
	in     *os.File
	out    io.Writer
	reader *bufio.Reader
}

func NewTerminalPrompter(in *os.File, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: in, out: out, reader: bufio.NewReader(in)}
}

func (p *TerminalPrompter) Select(label string, options []string) (int, error) {
	for i, opt := range options {
		fmt.Fprintf(p.out, "  [%d] %s\n", i, opt)
	}
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		return 0, fmt.Errorf("read selection: %w", err)
	}
	idx, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("invalid selection %q", strings.TrimSpace(line))
	}
	return idx, nil
}

func (p *TerminalPrompter) Password(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	fd := int(p.in.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// FixedPrompter answers Select with the account matching Address, used when
// the deployer is preselected through configuration.
type FixedPrompter struct {
	Address    common.Address
	Passphrase string
}

func (p FixedPrompter) Select(_ string, options []string) (int, error) {
	for i, opt := range options {
		if strings.EqualFold(opt, p.Address.Hex()) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("account %s not in keystore", p.Address.Hex())
}

func (p FixedPrompter) Password(string) (string, error) {
	return p.Passphrase, nil
}
