package kv

import (
	"errors"

	"github.com/tarmac-project/forwarder"
	proto "github.com/tarmac-project/protobuf-go/sdk/kvstore"
	wapc "github.com/wapc/wapc-guest-tinygo"
)

const (
	capabilityName = "kvstore"
	fnGet          = "get"
	fnSet          = "set"
	fnDelete       = "delete"
)

// KV is the subset of the key-value capability used by the module.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// HostCall defines the waPC host function signature used by KV operations.
type HostCall func(string, string, string, []byte) ([]byte, error)

// Config controls how a Client instance interacts with the host runtime.
type Config struct {
	// SDKConfig provides the runtime namespace used for host calls.
	SDKConfig forwarder.RuntimeConfig

	// HostCall overrides the waPC host function used for KV operations.
	HostCall HostCall
}

var (
	ErrInvalidKey        = errors.New("key is invalid")
	ErrInvalidValue      = errors.New("value is invalid")
	ErrKeyNotFound       = errors.New("key not found")
	ErrMarshalRequest    = errors.New("failed to marshal request")
	ErrUnmarshalResponse = errors.New("failed to unmarshal response")
)

// Client is the KV capability client implementation.
type Client struct {
	runtime  forwarder.RuntimeConfig
	hostCall HostCall
}

// Ensure Client satisfies the KV interface at compile time.
var _ KV = (*Client)(nil)

// New creates a KV client.
func New(config Config) (*Client, error) {
	runtime := config.SDKConfig
	if runtime.Namespace == "" {
		runtime.Namespace = forwarder.DefaultNamespace
	}

	hostCall := config.HostCall
	if hostCall == nil {
		hostCall = wapc.HostCall
	}

	return &Client{runtime: runtime, hostCall: hostCall}, nil
}

// Get returns the value stored under key, or ErrKeyNotFound.
func (c *Client) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	b, err := (&proto.KVStoreGet{Key: key}).MarshalVT()
	if err != nil {
		return nil, errors.Join(ErrMarshalRequest, err)
	}

	respBytes, callErr := c.hostCall(c.runtime.Namespace, capabilityName, fnGet, b)
	if callErr != nil && len(respBytes) == 0 {
		return nil, errors.Join(forwarder.ErrHostCall, callErr)
	}

	var resp proto.KVStoreGetResponse
	if err := resp.UnmarshalVT(respBytes); err != nil {
		return nil, errors.Join(forwarder.ErrHostResponseInvalid, ErrUnmarshalResponse, err)
	}

	if resp.GetStatus().GetCode() == forwarder.StatusMissing {
		return nil, ErrKeyNotFound
	}

	if err := forwarder.CheckStatus(resp.GetStatus(), callErr); err != nil {
		return nil, err
	}

	return resp.GetData(), nil
}

// Set stores value under key.
func (c *Client) Set(key string, value []byte) error {
	if key == "" {
		return ErrInvalidKey
	}
	if value == nil {
		return ErrInvalidValue
	}

	b, err := (&proto.KVStoreSet{Key: key, Data: value}).MarshalVT()
	if err != nil {
		return errors.Join(ErrMarshalRequest, err)
	}

	respBytes, callErr := c.hostCall(c.runtime.Namespace, capabilityName, fnSet, b)
	if callErr != nil && len(respBytes) == 0 {
		return errors.Join(forwarder.ErrHostCall, callErr)
	}

	var resp proto.KVStoreSetResponse
	if err := resp.UnmarshalVT(respBytes); err != nil {
		return errors.Join(forwarder.ErrHostResponseInvalid, ErrUnmarshalResponse, err)
	}

	return forwarder.CheckStatus(resp.GetStatus(), callErr)
}

// Delete removes key, or returns ErrKeyNotFound.
func (c *Client) Delete(key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	b, err := (&proto.KVStoreDelete{Key: key}).MarshalVT()
	if err != nil {
		return errors.Join(ErrMarshalRequest, err)
	}

	respBytes, callErr := c.hostCall(c.runtime.Namespace, capabilityName, fnDelete, b)
	if callErr != nil && len(respBytes) == 0 {
		return errors.Join(forwarder.ErrHostCall, callErr)
	}

	var resp proto.KVStoreDeleteResponse
	if err := resp.UnmarshalVT(respBytes); err != nil {
		return errors.Join(forwarder.ErrHostResponseInvalid, ErrUnmarshalResponse, err)
	}

	if resp.GetStatus().GetCode() == forwarder.StatusMissing {
		return ErrKeyNotFound
	}

	return forwarder.CheckStatus(resp.GetStatus(), callErr)
}
