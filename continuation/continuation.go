package continuation

import (
	"errors"
	"fmt"

	"github.com/tarmac-project/forwarder/codec"
	"github.com/tarmac-project/forwarder/kv"
)

const keyPrefix = "promise/"

var (
	// ErrNilStore is returned by New when no key/value store is provided.
	ErrNilStore = errors.New("continuation store is nil")

	// ErrInvalidCallID is returned for an empty call id.
	ErrInvalidCallID = errors.New("call id is invalid")

	// ErrDuplicateCall is returned when a call id is registered twice.
	ErrDuplicateCall = errors.New("call id already registered")

	// ErrUnknownCall is returned when a result arrives for a call id that
	// has no pending record.
	ErrUnknownCall = errors.New("no pending call for call id")

	// ErrUnknownHandler is returned when a pending record names a handler
	// that was never registered.
	ErrUnknownHandler = errors.New("no handler registered")

	// ErrStore wraps failures of the underlying key/value store.
	ErrStore = errors.New("continuation store failed")
)

// Pending is the record kept for an outstanding Promise call.
type Pending = codec.Pending

// Result is the outcome the host delivers for a Promise call.
type Result = codec.CallbackResult

// Handler runs once for every resolved Promise call.
type Handler func(Pending, Result) error

// Registry persists pending Promise calls and dispatches their results.
type Registry struct {
	store    kv.KV
	handlers map[string]Handler
}

// New creates a Registry backed by store.
func New(store kv.KV) (*Registry, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	return &Registry{store: store, handlers: make(map[string]Handler)}, nil
}

// Handle registers h under name. A later call with the same name replaces
// the earlier handler.
func (r *Registry) Handle(name string, h Handler) {
	r.handlers[name] = h
}

// Register stores p under callID until Resolve is called for it.
func (r *Registry) Register(callID string, p Pending) error {
	if callID == "" {
		return ErrInvalidCallID
	}

	_, err := r.store.Get(key(callID))
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrDuplicateCall, callID)
	case !errors.Is(err, kv.ErrKeyNotFound):
		return errors.Join(ErrStore, err)
	}

	if err := r.store.Set(key(callID), codec.EncodePending(p)); err != nil {
		return errors.Join(ErrStore, err)
	}
	return nil
}

// Lookup returns the pending record for callID without removing it.
func (r *Registry) Lookup(callID string) (Pending, error) {
	if callID == "" {
		return Pending{}, ErrInvalidCallID
	}

	raw, err := r.store.Get(key(callID))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return Pending{}, fmt.Errorf("%w: %s", ErrUnknownCall, callID)
	}
	if err != nil {
		return Pending{}, errors.Join(ErrStore, err)
	}

	return codec.DecodePending(raw)
}

// Resolve removes the pending record for res.CallID and invokes its
// handler. The record is gone once Resolve returns, even if the handler
// fails.
func (r *Registry) Resolve(res Result) (Pending, error) {
	p, err := r.Lookup(res.CallID)
	if err != nil {
		return Pending{}, err
	}

	if err := r.store.Delete(key(res.CallID)); err != nil {
		return Pending{}, errors.Join(ErrStore, err)
	}

	h, ok := r.handlers[p.Handler]
	if !ok {
		return p, fmt.Errorf("%w: %q", ErrUnknownHandler, p.Handler)
	}

	return p, h(p, res)
}

func key(callID string) string { return keyPrefix + callID }
