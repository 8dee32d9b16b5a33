package mock

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/tarmac-project/forwarder/call"
	"github.com/tarmac-project/forwarder/payment"
)

type snapshot struct {
	balances map[call.Address]map[tokenKey]*uint256.Int
	storage  map[call.Address]map[string][]byte
}

func (w *World) snapshot() snapshot {
	s := snapshot{
		balances: make(map[call.Address]map[tokenKey]*uint256.Int, len(w.balances)),
		storage:  make(map[call.Address]map[string][]byte, len(w.storage)),
	}
	for addr, bals := range w.balances {
		cp := make(map[tokenKey]*uint256.Int, len(bals))
		for k, v := range bals {
			cp[k] = new(uint256.Int).Set(v)
		}
		s.balances[addr] = cp
	}
	for addr, kvs := range w.storage {
		cp := make(map[string][]byte, len(kvs))
		for k, v := range kvs {
			cp[k] = append([]byte(nil), v...)
		}
		s.storage[addr] = cp
	}
	return s
}

func (w *World) restore(s snapshot) {
	w.balances = s.balances
	w.storage = s.storage
}

// transfer moves pays from one account to another, all or nothing.
func (w *World) transfer(from, to call.Address, pays []payment.Payment) error {
	need := make(map[tokenKey]*uint256.Int)
	for _, p := range pays {
		k := tokenKey{p.TokenID, p.Nonce}
		if need[k] == nil {
			need[k] = new(uint256.Int)
		}
		if _, overflow := need[k].AddOverflow(need[k], p.Value()); overflow {
			return fmt.Errorf("%w: payments of %s-%d", ErrAmountOverflow, k.token, k.nonce)
		}
	}

	for k, amt := range need {
		if w.Balance(from, k.token, k.nonce).Lt(amt) {
			return fmt.Errorf("%w: %s needs %s of %s-%d", ErrInsufficientFunds, from, amt, k.token, k.nonce)
		}
		if from == to {
			continue
		}
		if _, overflow := new(uint256.Int).AddOverflow(w.Balance(to, k.token, k.nonce), amt); overflow {
			return fmt.Errorf("%w: balance of %s in %s-%d", ErrAmountOverflow, to, k.token, k.nonce)
		}
	}

	for k, amt := range need {
		if amt.IsZero() {
			continue
		}
		w.balances[from][k].Sub(w.balances[from][k], amt)
		w.add(to, k, amt)
	}
	return nil
}

// credit adds p to the balance of addr, failing if the balance would
// exceed 2^256-1.
func (w *World) credit(addr call.Address, p payment.Payment) error {
	k := tokenKey{p.TokenID, p.Nonce}
	if _, overflow := new(uint256.Int).AddOverflow(w.Balance(addr, k.token, k.nonce), p.Value()); overflow {
		return fmt.Errorf("%w: balance of %s in %s-%d", ErrAmountOverflow, addr, k.token, k.nonce)
	}
	w.add(addr, k, p.Value())
	return nil
}

func (w *World) add(addr call.Address, k tokenKey, amt *uint256.Int) {
	if w.balances[addr] == nil {
		w.balances[addr] = make(map[tokenKey]*uint256.Int)
	}
	cur, ok := w.balances[addr][k]
	if !ok {
		cur = new(uint256.Int)
		w.balances[addr][k] = cur
	}
	cur.Add(cur, amt)
}
