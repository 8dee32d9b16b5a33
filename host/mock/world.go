package mock

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/tarmac-project/forwarder/call"
	"github.com/tarmac-project/forwarder/codec"
	"github.com/tarmac-project/forwarder/host"
	"github.com/tarmac-project/forwarder/kv"
	"github.com/tarmac-project/forwarder/payment"
)

// CodeUserError is the callback code reported for a failed Promise target.
const CodeUserError = 4

var (
	// ErrUnknownAccount is returned when a call names an address with no
	// contract or target behind it.
	ErrUnknownAccount = errors.New("unknown account")

	// ErrUnknownFunction is returned when a target has no such function.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrNotPayable is returned when payments are attached to a
	// non-payable endpoint.
	ErrNotPayable = errors.New("endpoint is not payable")

	// ErrInsufficientFunds is returned when a sender cannot cover a payment.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAmountOverflow is returned when payment amounts or a resulting
	// balance exceed 2^256-1.
	ErrAmountOverflow = errors.New("amount overflows 256 bits")

	// ErrOutOfGas is returned when a call asks for more gas than is left.
	ErrOutOfGas = errors.New("not enough gas")

	// ErrNoExecution is returned by host functions invoked outside Execute.
	ErrNoExecution = errors.New("no invocation in progress")

	// ErrAlreadyDeployed is returned when an address is already taken.
	ErrAlreadyDeployed = errors.New("address already in use")

	// ErrContractArguments is returned when a call to a deployed contract
	// does not carry exactly one argument, the endpoint payload.
	ErrContractArguments = errors.New("contract calls take exactly one argument")
)

// Contract is a deployed program addressed by endpoint name.
type Contract interface {
	Invoke(endpoint string, payload []byte) ([]byte, error)
	Payable(endpoint string) bool
}

// Factory builds a contract bound to w. The contract uses w as its host
// and key/value store.
type Factory func(w *World) (Contract, error)

// Invocation is what a target function sees.
type Invocation struct {
	Caller    call.Address
	Arguments [][]byte
	Payments  []payment.Payment
	Gas       uint64
}

// TargetFunc implements one function of a plain target account.
type TargetFunc func(Invocation) ([][]byte, error)

// Tx is a top-level transaction.
type Tx struct {
	From     call.Address
	To       call.Address
	Endpoint string
	Payload  []byte
	Payments []payment.Payment
	Gas      uint64
}

// IssuedCall records a call issued through IssueCall.
type IssuedCall struct {
	ID       string
	Issuer   call.Address
	Mode     call.Mode
	Request  call.Request
	Gas      call.Gas
	Callback string
}

// Outcome reports how a deferred call ended.
type Outcome struct {
	Call        IssuedCall
	ReturnData  [][]byte
	Err         error
	CallbackErr error
}

// Receipt is the result of Execute.
type Receipt struct {
	ReturnData []byte
	Deferred   []Outcome
}

type tokenKey struct {
	token string
	nonce uint64
}

type frame struct {
	address  call.Address
	received []payment.Payment
	gas      uint64
}

type deferred struct {
	call IssuedCall
	gas  uint64
}

// World is a simulated chain. It is not safe for concurrent use.
type World struct {
	balances  map[call.Address]map[tokenKey]*uint256.Int
	storage   map[call.Address]map[string][]byte
	contracts map[call.Address]Contract
	targets   map[call.Address]map[string]TargetFunc

	frames []*frame
	queue  []deferred
	calls  []IssuedCall

	newID func() string
}

var (
	_ host.Host = (*World)(nil)
	_ kv.KV     = (*World)(nil)
)

// Config configures a World.
type Config struct {
	// NewCallID generates call ids for deferred calls. Defaults to random
	// UUIDs.
	NewCallID func() string
}

// New creates an empty World.
func New(cfg Config) *World {
	newID := cfg.NewCallID
	if newID == nil {
		newID = uuid.NewString
	}
	return &World{
		balances:  make(map[call.Address]map[tokenKey]*uint256.Int),
		storage:   make(map[call.Address]map[string][]byte),
		contracts: make(map[call.Address]Contract),
		targets:   make(map[call.Address]map[string]TargetFunc),
		newID:     newID,
	}
}

// Deploy installs the contract built by f at addr.
func (w *World) Deploy(addr call.Address, f Factory) error {
	if w.taken(addr) {
		return fmt.Errorf("%w: %s", ErrAlreadyDeployed, addr)
	}
	c, err := f(w)
	if err != nil {
		return err
	}
	w.contracts[addr] = c
	return nil
}

// AddTarget installs fn as function name of the plain account addr.
func (w *World) AddTarget(addr call.Address, name string, fn TargetFunc) error {
	if _, ok := w.contracts[addr]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyDeployed, addr)
	}
	if w.targets[addr] == nil {
		w.targets[addr] = make(map[string]TargetFunc)
	}
	w.targets[addr][name] = fn
	return nil
}

// Fund credits p to addr.
func (w *World) Fund(addr call.Address, p payment.Payment) error {
	return w.credit(addr, p)
}

// Balance returns the balance of addr in (token, nonce).
func (w *World) Balance(addr call.Address, token string, nonce uint64) *uint256.Int {
	if b, ok := w.balances[addr][tokenKey{token, nonce}]; ok {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}

// Holdings returns every non-zero balance of addr sorted by token and nonce.
func (w *World) Holdings(addr call.Address) []payment.Payment {
	out := make([]payment.Payment, 0, len(w.balances[addr]))
	for k, v := range w.balances[addr] {
		if v.IsZero() {
			continue
		}
		out = append(out, payment.New(k.token, k.nonce, v))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TokenID != out[j].TokenID {
			return out[i].TokenID < out[j].TokenID
		}
		return out[i].Nonce < out[j].Nonce
	})
	return out
}

// Accounts returns every address holding a balance, sorted.
func (w *World) Accounts() []call.Address {
	out := make([]call.Address, 0, len(w.balances))
	for a := range w.balances {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Calls returns every call issued so far, in issue order. Calls issued by
// an execution that was rolled back are dropped with it.
func (w *World) Calls() []IssuedCall {
	return append([]IssuedCall(nil), w.calls...)
}

// Execute runs tx as an atomic unit and then drains the deferred queue.
func (w *World) Execute(tx Tx) (Receipt, error) {
	snap := w.snapshot()
	issued := len(w.calls)

	ret, err := w.invokeContract(tx.From, tx.To, tx.Endpoint, tx.Payload, tx.Payments, tx.Gas)
	if err != nil {
		w.restore(snap)
		w.queue = nil
		w.calls = w.calls[:issued]
		return Receipt{}, err
	}

	return Receipt{ReturnData: ret, Deferred: w.drain()}, nil
}

func (w *World) drain() []Outcome {
	var out []Outcome
	for len(w.queue) > 0 {
		d := w.queue[0]
		w.queue = w.queue[1:]
		out = append(out, w.runDeferred(d))
	}
	return out
}

func (w *World) runDeferred(d deferred) Outcome {
	o := Outcome{Call: d.call}

	snap := w.snapshot()
	queued, issued := len(w.queue), len(w.calls)
	o.ReturnData, o.Err = w.dispatch(d.call.Issuer, d.call.Request, d.gas)
	if o.Err != nil {
		w.restore(snap)
		w.queue = w.queue[:queued]
		w.calls = w.calls[:issued]
	}

	if d.call.Mode != call.Promise {
		return o
	}

	res := codec.CallbackResult{CallID: d.call.ID, ReturnData: o.ReturnData}
	if o.Err != nil {
		res.Code = CodeUserError
		res.Message = o.Err.Error()
		res.ReturnData = nil
	}

	snap = w.snapshot()
	queued, issued = len(w.queue), len(w.calls)
	_, o.CallbackErr = w.invokeContract(
		d.call.Request.Target(),
		d.call.Issuer,
		d.call.Callback,
		codec.EncodeCallbackResult(res),
		nil,
		d.gas,
	)
	if o.CallbackErr != nil {
		w.restore(snap)
		w.queue = w.queue[:queued]
		w.calls = w.calls[:issued]
	}
	return o
}

// dispatch moves the request's payments from caller to its target and runs
// the target.
func (w *World) dispatch(caller call.Address, req call.Request, gas uint64) ([][]byte, error) {
	target := req.Target()

	if c, ok := w.contracts[target]; ok {
		args := req.Arguments()
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: %s got %d", ErrContractArguments, target, len(args))
		}
		ret, err := w.runContract(c, caller, target, req.Function(), args[0], req.Payments(), gas)
		if err != nil {
			return nil, err
		}
		return [][]byte{ret}, nil
	}

	fns, ok := w.targets[target]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, target)
	}
	fn, ok := fns[req.Function()]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownFunction, target, req.Function())
	}

	pays := req.Payments()
	if err := w.transfer(caller, target, pays); err != nil {
		return nil, err
	}
	return fn(Invocation{Caller: caller, Arguments: req.Arguments(), Payments: pays, Gas: gas})
}

func (w *World) invokeContract(
	caller, addr call.Address,
	endpoint string,
	payload []byte,
	pays []payment.Payment,
	gas uint64,
) ([]byte, error) {
	c, ok := w.contracts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, addr)
	}
	return w.runContract(c, caller, addr, endpoint, payload, pays, gas)
}

func (w *World) runContract(
	c Contract,
	caller, addr call.Address,
	endpoint string,
	payload []byte,
	pays []payment.Payment,
	gas uint64,
) ([]byte, error) {
	if len(pays) > 0 && !c.Payable(endpoint) {
		return nil, fmt.Errorf("%w: %s.%s", ErrNotPayable, addr, endpoint)
	}
	if err := w.transfer(caller, addr, pays); err != nil {
		return nil, err
	}

	w.frames = append(w.frames, &frame{address: addr, received: payment.CloneAll(pays), gas: gas})
	defer func() { w.frames = w.frames[:len(w.frames)-1] }()

	return c.Invoke(endpoint, payload)
}

// GasLeft implements host.Host.
func (w *World) GasLeft() (uint64, error) {
	f, err := w.current()
	if err != nil {
		return 0, err
	}
	return f.gas, nil
}

// ReceivedTransfers implements host.Host.
func (w *World) ReceivedTransfers() ([]payment.Payment, error) {
	f, err := w.current()
	if err != nil {
		return nil, err
	}
	return payment.CloneAll(f.received), nil
}

// IssueCall implements host.Host. Sync calls run immediately; every other
// mode is queued until the current transaction has finished.
func (w *World) IssueCall(mode call.Mode, req call.Request, gas call.Gas) (host.Issued, error) {
	if !mode.Valid() {
		return host.Issued{}, call.ErrInvalidMode
	}

	f, err := w.current()
	if err != nil {
		return host.Issued{}, err
	}

	budget := f.gas
	if limit, ok := gas.Limit(); ok {
		if limit > f.gas {
			return host.Issued{}, fmt.Errorf("%w: asked %d, left %d", ErrOutOfGas, limit, f.gas)
		}
		budget = limit
	}

	ic := IssuedCall{Issuer: f.address, Mode: mode, Request: req, Gas: gas}
	if mode == call.Promise {
		ic.Callback = host.DefaultCallback
	}

	if mode == call.Sync {
		w.calls = append(w.calls, ic)
		ret, err := w.dispatch(f.address, req, budget)
		if err != nil {
			return host.Issued{}, err
		}
		return host.Issued{ReturnData: ret}, nil
	}

	ic.ID = w.newID()
	w.calls = append(w.calls, ic)
	w.queue = append(w.queue, deferred{call: ic, gas: budget})
	return host.Issued{CallID: ic.ID}, nil
}

// Get implements kv.KV over the storage of the executing contract.
func (w *World) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, kv.ErrInvalidKey
	}
	f, err := w.current()
	if err != nil {
		return nil, err
	}
	v, ok := w.storage[f.address][key]
	if !ok {
		return nil, kv.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set implements kv.KV.
func (w *World) Set(key string, value []byte) error {
	if key == "" {
		return kv.ErrInvalidKey
	}
	if value == nil {
		return kv.ErrInvalidValue
	}
	f, err := w.current()
	if err != nil {
		return err
	}
	if w.storage[f.address] == nil {
		w.storage[f.address] = make(map[string][]byte)
	}
	w.storage[f.address][key] = append([]byte(nil), value...)
	return nil
}

// Delete implements kv.KV.
func (w *World) Delete(key string) error {
	if key == "" {
		return kv.ErrInvalidKey
	}
	f, err := w.current()
	if err != nil {
		return err
	}
	if _, ok := w.storage[f.address][key]; !ok {
		return kv.ErrKeyNotFound
	}
	delete(w.storage[f.address], key)
	return nil
}

// StorageKeys returns the storage keys of addr, sorted.
func (w *World) StorageKeys(addr call.Address) []string {
	keys := make([]string, 0, len(w.storage[addr]))
	for k := range w.storage[addr] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (w *World) current() (*frame, error) {
	if len(w.frames) == 0 {
		return nil, ErrNoExecution
	}
	return w.frames[len(w.frames)-1], nil
}

func (w *World) taken(addr call.Address) bool {
	_, c := w.contracts[addr]
	_, t := w.targets[addr]
	return c || t
}
