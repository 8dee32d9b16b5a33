package contract

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tarmac-project/forwarder"
	"github.com/tarmac-project/forwarder/codec"
	"github.com/tarmac-project/forwarder/host"
	"github.com/tarmac-project/forwarder/proxy"
)

// Endpoint names.
const (
	EndpointCall             = "callEndpoint"
	EndpointInternalTransfer = "callInternalTransferEndpoint"
	EndpointTransfer         = "callTransferEndpoint"
	EndpointHybridTransfer   = "callHybridTransferEndpoint"
	EndpointInit             = "init"
	EndpointUpgrade          = "upgrade"
	EndpointCallback         = host.DefaultCallback
)

var (
	// ErrNilForwarder is returned by New without a forwarder.
	ErrNilForwarder = errors.New("forwarder is nil")

	// ErrUnknownEndpoint is returned by Invoke for an unregistered name.
	ErrUnknownEndpoint = errors.New("unknown endpoint")

	// ErrMissingPayment is returned when an endpoint that takes a
	// caller-described payment receives none.
	ErrMissingPayment = errors.New("payment argument is required")

	// ErrUnexpectedPayment is returned when an endpoint that takes no
	// caller-described payment receives one.
	ErrUnexpectedPayment = errors.New("endpoint takes no payment argument")
)

type endpoint struct {
	handler forwarder.Endpoint
	payable bool
}

// Contract routes endpoint invocations to a proxy.Forwarder.
type Contract struct {
	fwd       *proxy.Forwarder
	endpoints map[string]endpoint
}

// New builds the endpoint table for fwd.
func New(fwd *proxy.Forwarder) (*Contract, error) {
	if fwd == nil {
		return nil, ErrNilForwarder
	}

	c := &Contract{fwd: fwd}
	c.endpoints = map[string]endpoint{
		EndpointCall:             {handler: c.call},
		EndpointInternalTransfer: {handler: c.callInternalTransfer},
		EndpointTransfer:         {handler: c.callTransfer, payable: true},
		EndpointHybridTransfer:   {handler: c.callHybridTransfer, payable: true},
		EndpointInit:             {handler: lifecycle(fwd.Init)},
		EndpointUpgrade:          {handler: lifecycle(fwd.Upgrade)},
		EndpointCallback:         {handler: c.callBack},
	}
	return c, nil
}

// Endpoints returns the handler table for module registration.
func (c *Contract) Endpoints() map[string]forwarder.Endpoint {
	out := make(map[string]forwarder.Endpoint, len(c.endpoints))
	for name, ep := range c.endpoints {
		out[name] = ep.handler
	}
	return out
}

// Names returns the endpoint names in sorted order.
func (c *Contract) Names() []string {
	names := make([]string, 0, len(c.endpoints))
	for name := range c.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Payable reports whether name accepts attached transfers.
func (c *Contract) Payable(name string) bool {
	return c.endpoints[name].payable
}

// Invoke runs the endpoint name with payload.
func (c *Contract) Invoke(name string, payload []byte) ([]byte, error) {
	ep, ok := c.endpoints[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, name)
	}
	return ep.handler(payload)
}

func (c *Contract) call(payload []byte) ([]byte, error) {
	a, err := decode(payload, false)
	if err != nil {
		return nil, err
	}
	return nil, c.fwd.Forward(a.Mode, a.Target, a.Function, a.Arguments)
}

func (c *Contract) callInternalTransfer(payload []byte) ([]byte, error) {
	a, err := decode(payload, true)
	if err != nil {
		return nil, err
	}
	p := a.Payment
	return nil, c.fwd.ForwardWithExternalPayment(a.Mode, p.TokenID, p.Nonce, p.Amount, a.Target, a.Function, a.Arguments)
}

func (c *Contract) callTransfer(payload []byte) ([]byte, error) {
	a, err := decode(payload, false)
	if err != nil {
		return nil, err
	}
	return nil, c.fwd.ForwardWithHeldPayment(a.Mode, a.Target, a.Function, a.Arguments)
}

func (c *Contract) callHybridTransfer(payload []byte) ([]byte, error) {
	a, err := decode(payload, true)
	if err != nil {
		return nil, err
	}
	p := a.Payment
	return nil, c.fwd.ForwardWithHybridPayment(a.Mode, p.TokenID, p.Nonce, p.Amount, a.Target, a.Function, a.Arguments)
}

func (c *Contract) callBack(payload []byte) ([]byte, error) {
	res, err := codec.DecodeCallbackResult(payload)
	if err != nil {
		return nil, err
	}
	return nil, c.fwd.Callback(res)
}

func lifecycle(hook func() error) forwarder.Endpoint {
	return func([]byte) ([]byte, error) { return nil, hook() }
}

func decode(payload []byte, withPayment bool) (codec.EndpointArgs, error) {
	a, err := codec.DecodeEndpointArgs(payload)
	if err != nil {
		return codec.EndpointArgs{}, err
	}
	switch {
	case withPayment && a.Payment == nil:
		return codec.EndpointArgs{}, ErrMissingPayment
	case !withPayment && a.Payment != nil:
		return codec.EndpointArgs{}, ErrUnexpectedPayment
	}
	return a, nil
}
