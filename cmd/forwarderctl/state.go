package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/holiman/uint256"
	"github.com/tarmac-project/forwarder/call"
	hostmock "github.com/tarmac-project/forwarder/host/mock"
	"github.com/tarmac-project/forwarder/payment"
)

// DefaultStateFile is where the CLI keeps its state between runs.
const DefaultStateFile = "state.toml"

// State is the persisted view of the simulated chain.
type State struct {
	Forwarder string    `toml:"forwarder"`
	Accounts  []Account `toml:"accounts"`
	Targets   []Target  `toml:"targets"`
}

// Account lists the non-zero balances of one address.
type Account struct {
	Address  string    `toml:"address"`
	Balances []Balance `toml:"balances"`
}

// Balance is one (token, nonce) holding. Amount is a decimal string.
type Balance struct {
	Token  string `toml:"token"`
	Nonce  uint64 `toml:"nonce"`
	Amount string `toml:"amount"`
}

// Target is one function of a plain target account.
type Target struct {
	Address   string `toml:"address"`
	Function  string `toml:"function"`
	Behaviour string `toml:"behaviour"`
}

// LoadState reads path. A missing file yields an empty state.
func LoadState(path string) (*State, error) {
	s := &State{}
	if _, err := toml.DecodeFile(path, s); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("load state %s: %w", path, err)
	}
	return s, nil
}

// Save writes s to path, replacing any previous content.
func (s *State) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save state %s: %w", path, err)
	}

	if err := toml.NewEncoder(f).Encode(s); err != nil {
		_ = f.Close()
		return fmt.Errorf("save state %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("save state %s: %w", path, err)
	}
	return nil
}

// SetTarget adds or replaces the behaviour of address.function.
func (s *State) SetTarget(t Target) {
	for i := range s.Targets {
		if s.Targets[i].Address == t.Address && s.Targets[i].Function == t.Function {
			s.Targets[i] = t
			return
		}
	}
	s.Targets = append(s.Targets, t)
}

// World rebuilds the simulated chain described by s.
func (s *State) World(deploy hostmock.Factory) (*hostmock.World, error) {
	w := hostmock.New(hostmock.Config{})

	if s.Forwarder != "" {
		if err := w.Deploy(call.Address(s.Forwarder), deploy); err != nil {
			return nil, err
		}
	}

	for _, t := range s.Targets {
		fn, err := behaviour(t.Behaviour)
		if err != nil {
			return nil, fmt.Errorf("target %s.%s: %w", t.Address, t.Function, err)
		}
		if err := w.AddTarget(call.Address(t.Address), t.Function, fn); err != nil {
			return nil, err
		}
	}

	for _, a := range s.Accounts {
		for _, b := range a.Balances {
			amount, err := uint256.FromDecimal(b.Amount)
			if err != nil {
				return nil, fmt.Errorf("balance of %s in %s-%d: %w", a.Address, b.Token, b.Nonce, err)
			}
			if err := w.Fund(call.Address(a.Address), payment.New(b.Token, b.Nonce, amount)); err != nil {
				return nil, err
			}
		}
	}

	return w, nil
}

// Capture replaces the balances in s with those held by w.
func (s *State) Capture(w *hostmock.World) {
	s.Accounts = s.Accounts[:0]
	for _, addr := range w.Accounts() {
		holdings := w.Holdings(addr)
		if len(holdings) == 0 {
			continue
		}
		acc := Account{Address: string(addr)}
		for _, p := range holdings {
			acc.Balances = append(acc.Balances, Balance{Token: p.TokenID, Nonce: p.Nonce, Amount: p.Value().Dec()})
		}
		s.Accounts = append(s.Accounts, acc)
	}
}
