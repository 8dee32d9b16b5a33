package host

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/holiman/uint256"
	"github.com/tarmac-project/forwarder"
	"github.com/tarmac-project/forwarder/call"
	"github.com/tarmac-project/forwarder/codec"
	"github.com/tarmac-project/forwarder/hostmock"
	"github.com/tarmac-project/forwarder/payment"
	sdkproto "github.com/tarmac-project/protobuf-go/sdk"
)

var statusOK = &sdkproto.Status{Status: "OK", Code: 200}

func mustReply(b []byte, err error) []byte {
	if err != nil {
		panic(err)
	}
	return b
}

func newClient(t *testing.T, cfg hostmock.Config) (*Client, *hostmock.Mock) {
	t.Helper()

	m, err := hostmock.New(cfg)
	if err != nil {
		t.Fatalf("failed to create hostmock: %v", err)
	}
	c, err := New(Config{SDKConfig: forwarder.RuntimeConfig{Namespace: cfg.ExpectedNamespace}, HostCall: m.HostCall})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return c, m
}

func TestNew(t *testing.T) {
	t.Parallel()

	customHostCall := func(string, string, string, []byte) ([]byte, error) {
		return nil, nil
	}

	tt := []struct {
		name         string
		namespace    string
		callback     string
		hostCall     HostCall
		wantNS       string
		wantCallback string
		wantHostPtr  uintptr
	}{
		{
			name:         "custom namespace and callback",
			namespace:    "custom",
			callback:     "onDone",
			wantNS:       "custom",
			wantCallback: "onDone",
		},
		{
			name:         "defaults with override",
			hostCall:     customHostCall,
			wantNS:       forwarder.DefaultNamespace,
			wantCallback: DefaultCallback,
			wantHostPtr:  reflect.ValueOf(customHostCall).Pointer(),
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c, err := New(Config{
				SDKConfig: forwarder.RuntimeConfig{Namespace: tc.namespace},
				Callback:  tc.callback,
				HostCall:  tc.hostCall,
			})
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			if c.runtime.Namespace != tc.wantNS {
				t.Fatalf("namespace mismatch: want %q, got %q", tc.wantNS, c.runtime.Namespace)
			}
			if c.callback != tc.wantCallback {
				t.Fatalf("callback mismatch: want %q, got %q", tc.wantCallback, c.callback)
			}
			if tc.wantHostPtr != 0 {
				if got := reflect.ValueOf(c.hostCall).Pointer(); got != tc.wantHostPtr {
					t.Fatalf("hostcall pointer mismatch: want %v, got %v", tc.wantHostPtr, got)
				}
			}
		})
	}
}

func TestGasLeft(t *testing.T) {
	t.Parallel()

	tt := []struct {
		name    string
		route   hostmock.Route
		want    uint64
		wantErr error
	}{
		{
			name: "happy path",
			route: hostmock.Route{Response: func() []byte {
				return mustReply(codec.EncodeGasLeftReply(codec.GasLeftReply{Status: statusOK, GasLeft: 19_500_000}))
			}},
			want: 19_500_000,
		},
		{
			name:    "host call failure",
			route:   hostmock.Route{Fail: true, Error: errors.New("boom")},
			wantErr: forwarder.ErrHostCall,
		},
		{
			name: "missing status",
			route: hostmock.Route{Response: func() []byte {
				return mustReply(codec.EncodeGasLeftReply(codec.GasLeftReply{GasLeft: 1}))
			}},
			wantErr: forwarder.ErrHostResponseInvalid,
		},
		{
			name:    "garbage reply",
			route:   hostmock.Route{Response: func() []byte { return []byte{0x0a, 0x05, 0x01} }},
			wantErr: ErrUnmarshalResponse,
		},
		{
			name: "error status",
			route: hostmock.Route{Response: func() []byte {
				return mustReply(codec.EncodeGasLeftReply(codec.GasLeftReply{
					Status: &sdkproto.Status{Status: "no frame", Code: 500},
				}))
			}},
			wantErr: forwarder.ErrHostError,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c, _ := newClient(t, hostmock.Config{
				ExpectedNamespace:  "forwarder",
				ExpectedCapability: capabilityName,
				Routes:             map[string]hostmock.Route{fnGasLeft: tc.route},
			})

			got, err := c.GasLeft()
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("unexpected error: want %v got %v", tc.wantErr, err)
			}
			if err == nil && got != tc.want {
				t.Fatalf("gas mismatch: want %d got %d", tc.want, got)
			}
		})
	}
}

func TestReceivedTransfers(t *testing.T) {
	t.Parallel()

	want := []payment.Payment{
		payment.New("TOKY", 0, uint256.NewInt(5)),
		payment.New("TOKZ", 0, uint256.NewInt(7)),
	}

	c, _ := newClient(t, hostmock.Config{
		ExpectedNamespace:  "forwarder",
		ExpectedCapability: capabilityName,
		Routes: map[string]hostmock.Route{
			fnTransfers: {Response: func() []byte {
				return mustReply(codec.EncodeTransfersReply(codec.TransfersReply{Status: statusOK, Payments: want}))
			}},
		},
	})

	got, err := c.ReceivedTransfers()
	if err != nil {
		t.Fatalf("ReceivedTransfers returned error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("transfer count mismatch: want %d got %d", len(want), len(got))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("transfer %d mismatch: want %v got %v", i, want[i], got[i])
		}
	}
}

func TestIssueCall(t *testing.T) {
	t.Parallel()

	req := call.NewRequest("targetA", "f", [][]byte{[]byte("arg1"), []byte("arg2")}, []payment.Payment{
		payment.New("TOKX", 0, uint256.NewInt(100)),
	})

	issueValidator := func(wantMode call.Mode, wantGas call.Gas, wantCallback string) func([]byte) error {
		return func(p []byte) error {
			got, err := codec.DecodeIssueCall(p)
			if err != nil {
				return fmt.Errorf("could not decode payload: %w", err)
			}
			if got.Mode != wantMode {
				return fmt.Errorf("mode mismatch: want %v got %v", wantMode, got.Mode)
			}
			if got.Gas != wantGas {
				return fmt.Errorf("gas mismatch: want %v got %v", wantGas, got.Gas)
			}
			if got.Callback != wantCallback {
				return fmt.Errorf("callback mismatch: want %q got %q", wantCallback, got.Callback)
			}
			args := got.Request.Arguments()
			if len(args) != 2 || !bytes.Equal(args[0], []byte("arg1")) || !bytes.Equal(args[1], []byte("arg2")) {
				return fmt.Errorf("arguments mismatch: %q", args)
			}
			return nil
		}
	}

	reply := func(r codec.IssueReply) func() []byte {
		return func() []byte { return mustReply(codec.EncodeIssueReply(r)) }
	}

	tt := []struct {
		name     string
		mode     call.Mode
		gas      call.Gas
		route    hostmock.Route
		wantID   string
		wantData [][]byte
		wantErr  error
	}{
		{
			name: "sync returns data",
			mode: call.Sync,
			gas:  call.GasLimit(5_000_000),
			route: hostmock.Route{
				PayloadValidator: issueValidator(call.Sync, call.GasLimit(5_000_000), ""),
				Response:         reply(codec.IssueReply{Status: statusOK, ReturnData: [][]byte{[]byte("out")}}),
			},
			wantData: [][]byte{[]byte("out")},
		},
		{
			name: "async leaves gas to host",
			mode: call.Async,
			gas:  call.HostDefaultGas(),
			route: hostmock.Route{
				PayloadValidator: issueValidator(call.Async, call.HostDefaultGas(), ""),
				Response:         reply(codec.IssueReply{Status: statusOK}),
			},
		},
		{
			name: "promise names callback",
			mode: call.Promise,
			gas:  call.GasLimit(7),
			route: hostmock.Route{
				PayloadValidator: issueValidator(call.Promise, call.GasLimit(7), DefaultCallback),
				Response:         reply(codec.IssueReply{Status: statusOK, CallID: "call-1"}),
			},
			wantID: "call-1",
		},
		{
			name: "promise without call id",
			mode: call.Promise,
			gas:  call.GasLimit(7),
			route: hostmock.Route{
				Response: reply(codec.IssueReply{Status: statusOK}),
			},
			wantErr: forwarder.ErrHostResponseInvalid,
		},
		{
			name: "target failure status",
			mode: call.Sync,
			gas:  call.GasLimit(1),
			route: hostmock.Route{
				Response: reply(codec.IssueReply{Status: &sdkproto.Status{Status: "execution failed", Code: 500}}),
			},
			wantErr: forwarder.ErrHostError,
		},
		{
			name:    "invalid mode never reaches host",
			mode:    call.Mode(42),
			route:   hostmock.Route{Fail: true},
			wantErr: call.ErrInvalidMode,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c, m := newClient(t, hostmock.Config{
				ExpectedNamespace:  "forwarder",
				ExpectedCapability: capabilityName,
				Routes:             map[string]hostmock.Route{fnIssueCall: tc.route},
			})

			got, err := c.IssueCall(tc.mode, req, tc.gas)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("unexpected error: want %v got %v", tc.wantErr, err)
			}
			if tc.wantErr == call.ErrInvalidMode && len(m.Calls()) != 0 {
				t.Fatalf("invalid mode reached the host: %v", m.Functions())
			}
			if tc.wantErr != nil {
				return
			}
			if got.CallID != tc.wantID {
				t.Fatalf("call id mismatch: want %q got %q", tc.wantID, got.CallID)
			}
			if len(got.ReturnData) != len(tc.wantData) {
				t.Fatalf("return data mismatch: want %q got %q", tc.wantData, got.ReturnData)
			}
		})
	}
}
