package mock

import (
	"fmt"
	"sort"

	"github.com/tarmac-project/forwarder/kv"
)

// Operation names recorded in Call.Op.
const (
	OpGet    = "GET"
	OpSet    = "SET"
	OpDelete = "DELETE"
)

// ErrExample is a sentinel tests can script as a failure.
var ErrExample = fmt.Errorf("kv mock example error")

// Config configures the mock client.
type Config struct {
	// Seed pre-populates the in-memory store.
	Seed map[string][]byte
}

// Response describes a scripted outcome for one operation on one key.
type Response struct {
	// Value is returned by GET.
	Value []byte
	// Err is returned by the operation.
	Err error
}

// ResponseBuilder configures a scripted response.
type ResponseBuilder struct {
	m   *Client
	key string
}

// ReturnValue sets the bytes returned by GET.
func (b *ResponseBuilder) ReturnValue(v []byte) *ResponseBuilder {
	r := b.m.responses[b.key]
	r.Value = v
	b.m.responses[b.key] = r
	return b
}

// ReturnError sets the error returned by the operation.
func (b *ResponseBuilder) ReturnError(err error) *Client {
	r := b.m.responses[b.key]
	r.Err = err
	b.m.responses[b.key] = r
	return b.m
}

// Call records an operation performed against the mock.
type Call struct {
	Op    string
	Key   string
	Value []byte
}

// Client implements kv.KV in memory.
type Client struct {
	store     map[string][]byte
	responses map[string]Response

	// Calls stores a history of operations for assertions.
	Calls []Call
}

var _ kv.KV = (*Client)(nil)

// New creates a new mock KV client.
func New(cfg Config) *Client {
	st := make(map[string][]byte, len(cfg.Seed))
	for k, v := range cfg.Seed {
		st[k] = append([]byte(nil), v...)
	}
	return &Client{store: st, responses: make(map[string]Response)}
}

// OnGet scripts GET for key.
func (m *Client) OnGet(key string) *ResponseBuilder {
	return &ResponseBuilder{m: m, key: OpGet + " " + key}
}

// OnSet scripts SET for key. A scripted SET without error still stores.
func (m *Client) OnSet(key string) *ResponseBuilder {
	return &ResponseBuilder{m: m, key: OpSet + " " + key}
}

// OnDelete scripts DELETE for key.
func (m *Client) OnDelete(key string) *ResponseBuilder {
	return &ResponseBuilder{m: m, key: OpDelete + " " + key}
}

// Get implements kv.KV.
func (m *Client) Get(key string) ([]byte, error) {
	m.Calls = append(m.Calls, Call{Op: OpGet, Key: key})
	if key == "" {
		return nil, kv.ErrInvalidKey
	}
	if r, ok := m.responses[OpGet+" "+key]; ok {
		return r.Value, r.Err
	}
	v, ok := m.store[key]
	if !ok {
		return nil, kv.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set implements kv.KV.
func (m *Client) Set(key string, value []byte) error {
	m.Calls = append(m.Calls, Call{Op: OpSet, Key: key, Value: append([]byte(nil), value...)})
	if key == "" {
		return kv.ErrInvalidKey
	}
	if value == nil {
		return kv.ErrInvalidValue
	}
	if r, ok := m.responses[OpSet+" "+key]; ok && r.Err != nil {
		return r.Err
	}
	m.store[key] = append([]byte(nil), value...)
	return nil
}

// Delete implements kv.KV.
func (m *Client) Delete(key string) error {
	m.Calls = append(m.Calls, Call{Op: OpDelete, Key: key})
	if key == "" {
		return kv.ErrInvalidKey
	}
	if r, ok := m.responses[OpDelete+" "+key]; ok {
		return r.Err
	}
	if _, ok := m.store[key]; !ok {
		return kv.ErrKeyNotFound
	}
	delete(m.store, key)
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *Client) Keys() []string {
	keys := make([]string, 0, len(m.store))
	for k := range m.store {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
