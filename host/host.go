package host

import (
	"errors"

	"github.com/tarmac-project/forwarder"
	"github.com/tarmac-project/forwarder/call"
	"github.com/tarmac-project/forwarder/codec"
	"github.com/tarmac-project/forwarder/payment"
	wapc "github.com/wapc/wapc-guest-tinygo"
)

const (
	capabilityName = "blockchain"
	fnGasLeft      = "gas_left"
	fnTransfers    = "received_transfers"
	fnIssueCall    = "issue_call"

	// DefaultCallback is the endpoint the host invokes with the result of a
	// Promise call.
	DefaultCallback = "callBack"
)

var (
	// ErrMarshalRequest wraps failures while encoding the request payload.
	ErrMarshalRequest = errors.New("failed to marshal request")

	// ErrUnmarshalResponse wraps failures while decoding the host response.
	ErrUnmarshalResponse = errors.New("failed to unmarshal response")
)

// HostCall defines the waPC host function signature used by the client.
type HostCall func(string, string, string, []byte) ([]byte, error)

// Host is the execution environment the forwarder calls into.
type Host interface {
	// GasLeft returns the gas remaining to the current invocation.
	GasLeft() (uint64, error)

	// ReceivedTransfers returns the transfers attached to the current
	// invocation, in receipt order.
	ReceivedTransfers() ([]payment.Payment, error)

	// IssueCall issues req under mode with the given gas budget. For Sync
	// calls it returns once the target has completed.
	IssueCall(mode call.Mode, req call.Request, gas call.Gas) (Issued, error)
}

// Issued describes an issued call.
type Issued struct {
	// CallID identifies a call whose outcome is delivered later. The host
	// sets it for Promise calls and may set it for the other deferred modes.
	CallID string

	// ReturnData holds the target's results for Sync calls.
	ReturnData [][]byte
}

// Config controls how a Client instance interacts with the host runtime.
type Config struct {
	// SDKConfig provides the runtime namespace used for host calls.
	SDKConfig forwarder.RuntimeConfig

	// Callback names the endpoint that receives Promise results. Defaults
	// to DefaultCallback.
	Callback string

	// HostCall overrides the waPC host function.
	HostCall HostCall
}

// Client implements Host through waPC host calls.
type Client struct {
	runtime  forwarder.RuntimeConfig
	callback string
	hostCall HostCall
}

// Ensure Client satisfies the Host interface at compile time.
var _ Host = (*Client)(nil)

// New creates a host client with namespace defaults and optional host-call override.
func New(config Config) (*Client, error) {
	runtime := config.SDKConfig
	if runtime.Namespace == "" {
		runtime.Namespace = forwarder.DefaultNamespace
	}

	callback := config.Callback
	if callback == "" {
		callback = DefaultCallback
	}

	hostCall := config.HostCall
	if hostCall == nil {
		hostCall = wapc.HostCall
	}

	return &Client{runtime: runtime, callback: callback, hostCall: hostCall}, nil
}

// GasLeft returns the gas remaining to the current invocation.
func (c *Client) GasLeft() (uint64, error) {
	resp, callErr := c.hostCall(c.runtime.Namespace, capabilityName, fnGasLeft, nil)
	if callErr != nil && len(resp) == 0 {
		return 0, errors.Join(forwarder.ErrHostCall, callErr)
	}

	r, err := codec.DecodeGasLeftReply(resp)
	if err != nil {
		return 0, decodeErr(callErr, err)
	}

	if err := forwarder.CheckStatus(r.Status, callErr); err != nil {
		return 0, err
	}

	return r.GasLeft, nil
}

// ReceivedTransfers returns the transfers attached to the current invocation.
func (c *Client) ReceivedTransfers() ([]payment.Payment, error) {
	resp, callErr := c.hostCall(c.runtime.Namespace, capabilityName, fnTransfers, nil)
	if callErr != nil && len(resp) == 0 {
		return nil, errors.Join(forwarder.ErrHostCall, callErr)
	}

	r, err := codec.DecodeTransfersReply(resp)
	if err != nil {
		return nil, decodeErr(callErr, err)
	}

	if err := forwarder.CheckStatus(r.Status, callErr); err != nil {
		return nil, err
	}

	return r.Payments, nil
}

// IssueCall issues req under mode. Promise calls name the configured
// callback endpoint.
func (c *Client) IssueCall(mode call.Mode, req call.Request, gas call.Gas) (Issued, error) {
	if !mode.Valid() {
		return Issued{}, errors.Join(ErrMarshalRequest, call.ErrInvalidMode)
	}

	msg := codec.IssueCall{Mode: mode, Request: req, Gas: gas}
	if mode == call.Promise {
		msg.Callback = c.callback
	}

	resp, callErr := c.hostCall(c.runtime.Namespace, capabilityName, fnIssueCall, codec.EncodeIssueCall(msg))
	if callErr != nil && len(resp) == 0 {
		return Issued{}, errors.Join(forwarder.ErrHostCall, callErr)
	}

	r, err := codec.DecodeIssueReply(resp)
	if err != nil {
		return Issued{}, decodeErr(callErr, err)
	}

	if err := forwarder.CheckStatus(r.Status, callErr); err != nil {
		return Issued{}, err
	}

	if mode == call.Promise && r.CallID == "" {
		return Issued{}, errors.Join(forwarder.ErrHostResponseInvalid, errors.New("promise issued without call id"))
	}

	return Issued{CallID: r.CallID, ReturnData: r.ReturnData}, nil
}

func decodeErr(callErr, err error) error {
	if callErr != nil {
		return errors.Join(forwarder.ErrHostCall, callErr, forwarder.ErrHostResponseInvalid, ErrUnmarshalResponse, err)
	}
	return errors.Join(forwarder.ErrHostResponseInvalid, ErrUnmarshalResponse, err)
}
