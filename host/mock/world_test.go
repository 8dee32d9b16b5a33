package mock

import (
	"errors"
	"fmt"
	"testing"

	"github.com/holiman/uint256"
	"github.com/tarmac-project/forwarder/call"
	"github.com/tarmac-project/forwarder/codec"
	"github.com/tarmac-project/forwarder/kv"
	"github.com/tarmac-project/forwarder/payment"
)

var errTarget = errors.New("target refused")

type scripted struct {
	endpoints map[string]func([]byte) ([]byte, error)
	payable   map[string]bool
}

func (s *scripted) Invoke(endpoint string, payload []byte) ([]byte, error) {
	fn, ok := s.endpoints[endpoint]
	if !ok {
		return nil, fmt.Errorf("no endpoint %s", endpoint)
	}
	return fn(payload)
}

func (s *scripted) Payable(endpoint string) bool { return s.payable[endpoint] }

func deploy(t *testing.T, w *World, addr call.Address, build func(*World) *scripted) {
	t.Helper()
	if err := w.Deploy(addr, func(w *World) (Contract, error) { return build(w), nil }); err != nil {
		t.Fatalf("Deploy returned error: %v", err)
	}
}

func egld(n uint64) payment.Payment { return payment.New("EGLD", 0, uint256.NewInt(n)) }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("call-%d", n)
	}
}

func TestWorld_ExecuteMovesPayments(t *testing.T) {
	t.Parallel()

	w := New(Config{})
	if err := w.Fund("alice", egld(100)); err != nil {
		t.Fatalf("Fund returned error: %v", err)
	}
	deploy(t, w, "sc", func(w *World) *scripted {
		return &scripted{
			endpoints: map[string]func([]byte) ([]byte, error){
				"deposit": func([]byte) ([]byte, error) {
					got, err := w.ReceivedTransfers()
					if err != nil || len(got) != 1 || !got[0].Equal(egld(30)) {
						return nil, fmt.Errorf("unexpected transfers %v %v", got, err)
					}
					return []byte("ok"), nil
				},
				"plain": func([]byte) ([]byte, error) { return nil, nil },
			},
			payable: map[string]bool{"deposit": true},
		}
	})

	rcpt, err := w.Execute(Tx{From: "alice", To: "sc", Endpoint: "deposit", Payments: []payment.Payment{egld(30)}})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if string(rcpt.ReturnData) != "ok" {
		t.Fatalf("unexpected return data %q", rcpt.ReturnData)
	}
	if got := w.Balance("sc", "EGLD", 0); got.Uint64() != 30 {
		t.Fatalf("contract balance %s", got)
	}

	if _, err := w.Execute(Tx{From: "alice", To: "sc", Endpoint: "plain", Payments: []payment.Payment{egld(1)}}); !errors.Is(err, ErrNotPayable) {
		t.Fatalf("expected ErrNotPayable, got %v", err)
	}
	if _, err := w.Execute(Tx{From: "alice", To: "sc", Endpoint: "deposit", Payments: []payment.Payment{egld(71)}}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := w.Balance("alice", "EGLD", 0); got.Uint64() != 70 {
		t.Fatalf("alice balance %s", got)
	}
}

func TestWorld_FailedExecutionRollsBack(t *testing.T) {
	t.Parallel()

	w := New(Config{})
	if err := w.Fund("alice", egld(10)); err != nil {
		t.Fatalf("Fund returned error: %v", err)
	}
	if err := w.AddTarget("target", "take", func(Invocation) ([][]byte, error) { return nil, nil }); err != nil {
		t.Fatalf("AddTarget returned error: %v", err)
	}
	deploy(t, w, "sc", func(w *World) *scripted {
		return &scripted{
			endpoints: map[string]func([]byte) ([]byte, error){
				"run": func([]byte) ([]byte, error) {
					if err := w.Set("seen", []byte("1")); err != nil {
						return nil, err
					}
					req := call.NewRequest("target", "take", nil, []payment.Payment{egld(10)})
					if _, err := w.IssueCall(call.Sync, req, call.GasLimit(5)); err != nil {
						return nil, err
					}
					if _, err := w.IssueCall(call.Async, req, call.HostDefaultGas()); err != nil {
						return nil, err
					}
					return nil, errTarget
				},
			},
			payable: map[string]bool{"run": true},
		}
	})

	if _, err := w.Execute(Tx{From: "alice", To: "sc", Endpoint: "run", Payments: []payment.Payment{egld(10)}, Gas: 5}); !errors.Is(err, errTarget) {
		t.Fatalf("expected errTarget, got %v", err)
	}

	if got := w.Balance("alice", "EGLD", 0); got.Uint64() != 10 {
		t.Fatalf("alice balance %s after rollback", got)
	}
	if got := w.Balance("target", "EGLD", 0); !got.IsZero() {
		t.Fatalf("target balance %s after rollback", got)
	}
	if keys := w.StorageKeys("sc"); len(keys) != 0 {
		t.Fatalf("storage survived rollback: %v", keys)
	}
	if len(w.queue) != 0 {
		t.Fatalf("deferred queue survived rollback")
	}
	if calls := w.Calls(); len(calls) != 0 {
		t.Fatalf("issued calls survived rollback: %v", calls)
	}
}

func TestWorld_RolledBackDeferredCallDropsItsIssuedCalls(t *testing.T) {
	t.Parallel()

	w := New(Config{NewCallID: sequentialIDs()})
	if err := w.AddTarget("target", "ok", func(Invocation) ([][]byte, error) { return nil, nil }); err != nil {
		t.Fatalf("AddTarget returned error: %v", err)
	}
	deploy(t, w, "inner", func(w *World) *scripted {
		return &scripted{
			endpoints: map[string]func([]byte) ([]byte, error){
				"fail": func([]byte) ([]byte, error) {
					req := call.NewRequest("target", "ok", nil, nil)
					if _, err := w.IssueCall(call.Async, req, call.HostDefaultGas()); err != nil {
						return nil, err
					}
					return nil, errTarget
				},
			},
		}
	})
	deploy(t, w, "sc", func(w *World) *scripted {
		return &scripted{
			endpoints: map[string]func([]byte) ([]byte, error){
				"run": func([]byte) ([]byte, error) {
					req := call.NewRequest("inner", "fail", [][]byte{nil}, nil)
					_, err := w.IssueCall(call.Async, req, call.HostDefaultGas())
					return nil, err
				},
			},
		}
	})

	rcpt, err := w.Execute(Tx{From: "alice", To: "sc", Endpoint: "run", Gas: 10})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(rcpt.Deferred) != 1 || !errors.Is(rcpt.Deferred[0].Err, errTarget) {
		t.Fatalf("unexpected deferred outcomes: %+v", rcpt.Deferred)
	}

	calls := w.Calls()
	if len(calls) != 1 || calls[0].Request.Target() != "inner" {
		t.Fatalf("expected only the call to inner, got %+v", calls)
	}
}

func TestWorld_TransferRejectsOverflowingPayments(t *testing.T) {
	t.Parallel()

	tok := func(v *uint256.Int) payment.Payment { return payment.New("TOK", 0, v) }
	maxAmount := new(uint256.Int).SetAllOne()

	w := New(Config{})
	if err := w.Fund("alice", tok(uint256.NewInt(1))); err != nil {
		t.Fatalf("Fund returned error: %v", err)
	}
	if err := w.Fund("bob", tok(maxAmount)); err != nil {
		t.Fatalf("Fund returned error: %v", err)
	}
	deploy(t, w, "sc", func(*World) *scripted {
		return &scripted{
			endpoints: map[string]func([]byte) ([]byte, error){
				"deposit": func([]byte) ([]byte, error) { return nil, nil },
			},
			payable: map[string]bool{"deposit": true},
		}
	})

	tt := []struct {
		name string
		from call.Address
		pays []payment.Payment
		err  error
	}{
		{name: "summed amounts wrap", from: "alice", pays: []payment.Payment{tok(maxAmount), tok(uint256.NewInt(2))}, err: ErrAmountOverflow},
		{name: "uncovered amount", from: "alice", pays: []payment.Payment{tok(uint256.NewInt(2))}, err: ErrInsufficientFunds},
	}

	for _, tc := range tt {
		if _, err := w.Execute(Tx{From: tc.from, To: "sc", Endpoint: "deposit", Payments: tc.pays}); !errors.Is(err, tc.err) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.err, err)
		}
		if got := w.Balance("alice", "TOK", 0); got.Uint64() != 1 || !got.IsUint64() {
			t.Fatalf("%s: alice balance %s", tc.name, got)
		}
		if got := w.Balance("sc", "TOK", 0); !got.IsZero() {
			t.Fatalf("%s: sc balance %s", tc.name, got)
		}
	}

	// bob already holds the maximum, so anything sent to him overflows.
	if err := w.transfer("alice", "bob", []payment.Payment{tok(uint256.NewInt(1))}); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}
	if got := w.Balance("alice", "TOK", 0); got.Uint64() != 1 {
		t.Fatalf("alice balance %s", got)
	}
	if got := w.Balance("bob", "TOK", 0); !got.Eq(maxAmount) {
		t.Fatalf("bob balance %s", got)
	}
}

func TestWorld_FundRejectsOverflow(t *testing.T) {
	t.Parallel()

	maxAmount := new(uint256.Int).SetAllOne()
	w := New(Config{})
	if err := w.Fund("alice", payment.New("TOK", 0, maxAmount)); err != nil {
		t.Fatalf("Fund returned error: %v", err)
	}
	if err := w.Fund("alice", payment.New("TOK", 0, uint256.NewInt(1))); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}
	if got := w.Balance("alice", "TOK", 0); !got.Eq(maxAmount) {
		t.Fatalf("alice balance %s", got)
	}
}

func TestWorld_DeferredCallsRunAfterInvocation(t *testing.T) {
	t.Parallel()

	var events []string
	w := New(Config{NewCallID: sequentialIDs()})
	if err := w.Fund("sc", egld(10)); err != nil {
		t.Fatalf("Fund returned error: %v", err)
	}
	_ = w.AddTarget("target", "ok", func(inv Invocation) ([][]byte, error) {
		events = append(events, fmt.Sprintf("target gas=%d", inv.Gas))
		return [][]byte{[]byte("done")}, nil
	})
	_ = w.AddTarget("target", "fail", func(Invocation) ([][]byte, error) {
		events = append(events, "target fail")
		return nil, errTarget
	})

	var results []codec.CallbackResult
	deploy(t, w, "sc", func(w *World) *scripted {
		return &scripted{
			endpoints: map[string]func([]byte) ([]byte, error){
				"run": func([]byte) ([]byte, error) {
					pays := []payment.Payment{egld(4)}
					if _, err := w.IssueCall(call.Async, call.NewRequest("target", "ok", nil, pays), call.HostDefaultGas()); err != nil {
						return nil, err
					}
					issued, err := w.IssueCall(call.Promise, call.NewRequest("target", "fail", nil, pays), call.GasLimit(7))
					if err != nil {
						return nil, err
					}
					if issued.CallID != "call-2" {
						return nil, fmt.Errorf("unexpected call id %q", issued.CallID)
					}
					events = append(events, "endpoint done")
					return nil, nil
				},
				"callBack": func(payload []byte) ([]byte, error) {
					r, err := codec.DecodeCallbackResult(payload)
					if err != nil {
						return nil, err
					}
					results = append(results, r)
					return nil, nil
				},
			},
		}
	})

	rcpt, err := w.Execute(Tx{From: "alice", To: "sc", Endpoint: "run", Gas: 9})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	want := []string{"endpoint done", "target gas=9", "target fail"}
	if fmt.Sprint(events) != fmt.Sprint(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	if len(rcpt.Deferred) != 2 || rcpt.Deferred[0].Err != nil || !errors.Is(rcpt.Deferred[1].Err, errTarget) {
		t.Fatalf("unexpected outcomes %+v", rcpt.Deferred)
	}
	if len(results) != 1 || results[0].CallID != "call-2" || results[0].Code != CodeUserError {
		t.Fatalf("unexpected callback results %+v", results)
	}

	if got := w.Balance("sc", "EGLD", 0); got.Uint64() != 6 {
		t.Fatalf("issuer balance %s, failed promise payments should stay", got)
	}
	if got := w.Balance("target", "EGLD", 0); got.Uint64() != 4 {
		t.Fatalf("target balance %s", got)
	}
	if n := len(w.Calls()); n != 2 {
		t.Fatalf("expected 2 issued calls, got %d", n)
	}
}

func TestWorld_HostFunctionsOutsideExecution(t *testing.T) {
	t.Parallel()

	w := New(Config{})
	if _, err := w.GasLeft(); !errors.Is(err, ErrNoExecution) {
		t.Fatalf("GasLeft: expected ErrNoExecution, got %v", err)
	}
	if _, err := w.Get("k"); !errors.Is(err, ErrNoExecution) {
		t.Fatalf("Get: expected ErrNoExecution, got %v", err)
	}
	if _, err := w.IssueCall(call.Mode(9), call.Request{}, call.HostDefaultGas()); !errors.Is(err, call.ErrInvalidMode) {
		t.Fatalf("IssueCall: expected ErrInvalidMode, got %v", err)
	}
	if err := w.Set("", []byte("v")); !errors.Is(err, kv.ErrInvalidKey) {
		t.Fatalf("Set: expected ErrInvalidKey, got %v", err)
	}
}

func TestWorld_Gas(t *testing.T) {
	t.Parallel()

	w := New(Config{})
	_ = w.AddTarget("target", "noop", func(Invocation) ([][]byte, error) { return nil, nil })
	deploy(t, w, "sc", func(w *World) *scripted {
		return &scripted{
			endpoints: map[string]func([]byte) ([]byte, error){
				"greedy": func([]byte) ([]byte, error) {
					_, err := w.IssueCall(call.Sync, call.NewRequest("target", "noop", nil, nil), call.GasLimit(101))
					return nil, err
				},
			},
		}
	})

	if _, err := w.Execute(Tx{From: "alice", To: "sc", Endpoint: "greedy", Gas: 100}); !errors.Is(err, ErrOutOfGas) {
		t.Fatalf("expected ErrOutOfGas, got %v", err)
	}
	if err := w.Deploy("sc", nil); !errors.Is(err, ErrAlreadyDeployed) {
		t.Fatalf("expected ErrAlreadyDeployed, got %v", err)
	}
}
