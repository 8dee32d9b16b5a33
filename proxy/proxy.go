package proxy

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/tarmac-project/forwarder/call"
	"github.com/tarmac-project/forwarder/continuation"
	"github.com/tarmac-project/forwarder/host"
	"github.com/tarmac-project/forwarder/logging"
	"github.com/tarmac-project/forwarder/metrics"
	"github.com/tarmac-project/forwarder/payment"
)

// HandlerName is the continuation handler the forwarder registers for its
// own Promise calls.
const HandlerName = "forward"

var (
	// ErrNilHost is returned by New when no host is configured.
	ErrNilHost = errors.New("host is nil")

	// ErrNilContinuations is returned by New when no continuation registry
	// is configured.
	ErrNilContinuations = errors.New("continuation registry is nil")

	// ErrSyncCallFailed is returned when the target of a Sync call fails.
	// The host rolls back the whole invocation.
	ErrSyncCallFailed = errors.New("synchronous call failed")

	// ErrIssueFailed is returned when the host refuses to issue a call under
	// a deferred mode.
	ErrIssueFailed = errors.New("failed to issue call")

	// ErrContextGathering is returned when the gas or the received transfers
	// cannot be read.
	ErrContextGathering = errors.New("failed to gather invocation context")
)

// Config wires a Forwarder to its collaborators.
type Config struct {
	// Host is the execution environment. Required.
	Host host.Host

	// Continuations stores pending Promise calls. Required.
	Continuations *continuation.Registry

	// Logger defaults to logging.Discard().
	Logger logging.Client

	// Metrics defaults to metrics.Discard().
	Metrics metrics.Recorder
}

// Forwarder relays calls to remote targets.
type Forwarder struct {
	host          host.Host
	continuations *continuation.Registry
	log           logging.Client
	metrics       metrics.Recorder
}

// New creates a Forwarder and registers its continuation handler.
func New(cfg Config) (*Forwarder, error) {
	if cfg.Host == nil {
		return nil, ErrNilHost
	}
	if cfg.Continuations == nil {
		return nil, ErrNilContinuations
	}

	f := &Forwarder{
		host:          cfg.Host,
		continuations: cfg.Continuations,
		log:           cfg.Logger,
		metrics:       cfg.Metrics,
	}
	if f.log == nil {
		f.log = logging.Discard()
	}
	if f.metrics == nil {
		f.metrics = metrics.Discard()
	}

	f.continuations.Handle(HandlerName, f.onResult)
	return f, nil
}

// Init runs on deployment. It has no effect.
func (f *Forwarder) Init() error { return nil }

// Upgrade runs on code upgrade. It has no effect.
func (f *Forwarder) Upgrade() error { return nil }

// Forward relays a call without payments.
func (f *Forwarder) Forward(mode call.Mode, target call.Address, function string, args [][]byte) error {
	return f.forward(mode, payment.None{}, target, function, args)
}

// ForwardWithExternalPayment relays a call carrying exactly one payment
// described by the caller.
func (f *Forwarder) ForwardWithExternalPayment(
	mode call.Mode,
	tokenID string,
	nonce uint64,
	amount *uint256.Int,
	target call.Address,
	function string,
	args [][]byte,
) error {
	s := payment.ExternalSingleToken{Payment: payment.New(tokenID, nonce, amount)}
	return f.forward(mode, s, target, function, args)
}

// ForwardWithHeldPayment relays a call carrying every transfer attached to
// the current invocation, in receipt order.
func (f *Forwarder) ForwardWithHeldPayment(mode call.Mode, target call.Address, function string, args [][]byte) error {
	return f.forward(mode, payment.AllReceivedTransfers{}, target, function, args)
}

// ForwardWithHybridPayment relays a call carrying the received transfers
// followed by one payment described by the caller.
func (f *Forwarder) ForwardWithHybridPayment(
	mode call.Mode,
	tokenID string,
	nonce uint64,
	amount *uint256.Int,
	target call.Address,
	function string,
	args [][]byte,
) error {
	s := payment.HybridTransfer{Payment: payment.New(tokenID, nonce, amount)}
	return f.forward(mode, s, target, function, args)
}

// Callback delivers the outcome of a Promise call issued by this forwarder.
func (f *Forwarder) Callback(res continuation.Result) error {
	_, err := f.continuations.Resolve(res)
	if err != nil {
		f.log.Error("promise callback rejected", "call_id", res.CallID, "error", err)
		return err
	}
	return nil
}

func (f *Forwarder) onResult(p continuation.Pending, res continuation.Result) error {
	f.metrics.PromiseResolved(res.Failed())

	log := f.log.With("call_id", res.CallID, "target", p.Target, "function", p.Function)
	if res.Failed() {
		log.Warn("promise call failed", "code", res.Code, "message", res.Message)
		return nil
	}
	log.Info("promise call completed", "results", len(res.ReturnData))
	return nil
}

type invocation struct {
	gas      uint64
	received []payment.Payment
}

func (f *Forwarder) forward(mode call.Mode, s payment.Strategy, target call.Address, function string, args [][]byte) error {
	if !mode.Valid() {
		f.log.Error("rejected call", "mode", uint8(mode), "error", call.ErrInvalidMode)
		return call.ErrInvalidMode
	}

	inv, err := f.gather(s)
	if err != nil {
		f.log.Error("context gathering failed", "mode", mode, "error", err)
		return err
	}

	req := call.NewRequest(target, function, args, payment.Resolve(s, inv.received))
	return f.dispatch(mode, req, inv.gas)
}

func (f *Forwarder) gather(s payment.Strategy) (invocation, error) {
	gas, err := f.host.GasLeft()
	if err != nil {
		return invocation{}, errors.Join(ErrContextGathering, err)
	}

	inv := invocation{gas: gas}
	if s.NeedsReceived() {
		received, err := f.host.ReceivedTransfers()
		if err != nil {
			return invocation{}, errors.Join(ErrContextGathering, err)
		}
		inv.received = payment.CloneAll(received)
	}
	return inv, nil
}

func (f *Forwarder) dispatch(mode call.Mode, req call.Request, gasLeft uint64) error {
	log := f.log.With(
		"mode", mode,
		"target", req.Target(),
		"function", req.Function(),
		"arguments", req.NumArguments(),
		"payments", req.NumPayments(),
	)

	switch mode {
	case call.Sync:
		if _, err := f.host.IssueCall(mode, req, call.GasLimit(gasLeft)); err != nil {
			f.metrics.Failed(mode)
			log.Error("synchronous call failed", "error", err)
			return errors.Join(ErrSyncCallFailed, err)
		}

	case call.Async, call.TransferExecute:
		gas := call.GasLimit(gasLeft)
		if mode == call.Async {
			gas = call.HostDefaultGas()
		}
		if _, err := f.host.IssueCall(mode, req, gas); err != nil {
			f.metrics.Failed(mode)
			log.Error("issue failed", "error", err)
			return errors.Join(ErrIssueFailed, err)
		}

	case call.Promise:
		issued, err := f.host.IssueCall(mode, req, call.GasLimit(gasLeft))
		if err != nil {
			f.metrics.Failed(mode)
			log.Error("issue failed", "error", err)
			return errors.Join(ErrIssueFailed, err)
		}
		pending := continuation.Pending{
			Handler:  HandlerName,
			Mode:     mode,
			Target:   req.Target(),
			Function: req.Function(),
			Payments: req.Payments(),
		}
		if err := f.continuations.Register(issued.CallID, pending); err != nil {
			log.Error("failed to register continuation", "call_id", issued.CallID, "error", err)
			return errors.Join(ErrIssueFailed, fmt.Errorf("register continuation %s: %w", issued.CallID, err))
		}
		f.metrics.PromiseRegistered()
		log = log.With("call_id", issued.CallID)

	default:
		return call.ErrInvalidMode
	}

	f.metrics.Dispatched(mode, req.NumPayments())
	log.Debug("call dispatched")
	return nil
}
