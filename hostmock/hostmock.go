package hostmock

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnexpectedNamespace is returned when the namespace is not as expected.
	ErrUnexpectedNamespace = errors.New("unexpected namespace")

	// ErrUnexpectedCapability is returned when the capability is not as expected.
	ErrUnexpectedCapability = errors.New("unexpected capability")

	// ErrUnexpectedFunction is returned when the function is not as expected.
	ErrUnexpectedFunction = errors.New("unexpected function")

	// ErrOperationFailed is returned when Fail is set without a custom error.
	ErrOperationFailed = errors.New("operation failed")
)

// Route scripts the behaviour of one host function.
type Route struct {
	// PayloadValidator validates the payload passed to the host call.
	PayloadValidator func([]byte) error

	// Response defines the response to return for the host call.
	Response func() []byte

	// Error is the error to return if the route is configured to fail.
	Error error

	// Fail indicates whether the route should return an error.
	Fail bool
}

// Config represents the configuration for creating a Mock instance.
type Config struct {
	// ExpectedNamespace defines the namespace expected in the host call.
	// Empty matches any namespace.
	ExpectedNamespace string

	// ExpectedCapability defines the capability expected in the host call.
	// Empty matches any capability.
	ExpectedCapability string

	// ExpectedFunction defines the function name expected in the host call
	// when Routes is empty. Empty matches any function.
	ExpectedFunction string

	// Error is the error to return if the mock is configured to fail.
	Error error

	// PayloadValidator validates the payload passed to the host call when
	// Routes is empty.
	PayloadValidator func([]byte) error

	// Response defines the response to return when Routes is empty.
	Response func() []byte

	// Fail makes every call fail, regardless of routes.
	Fail bool

	// Routes scripts several functions of the same capability, keyed by
	// function name. A call to a function without a route fails with
	// ErrUnexpectedFunction.
	Routes map[string]Route
}

// Call records a host call received by the mock.
type Call struct {
	Namespace  string
	Capability string
	Function   string
	Payload    []byte
}

// Mock simulates the waPC host, validating routing and returning scripted
// responses.
type Mock struct {
	namespace  string
	capability string
	fail       bool
	err        error
	routes     map[string]Route
	fallback   *Route
	function   string

	mu    sync.Mutex
	calls []Call
}

// New creates a new instance of the Mock based on the provided Config.
func New(config Config) (*Mock, error) {
	m := &Mock{
		namespace:  config.ExpectedNamespace,
		capability: config.ExpectedCapability,
		fail:       config.Fail,
		err:        config.Error,
		routes:     make(map[string]Route, len(config.Routes)),
	}

	for fn, r := range config.Routes {
		m.routes[fn] = r
	}

	if len(m.routes) == 0 {
		m.function = config.ExpectedFunction
		m.fallback = &Route{
			PayloadValidator: config.PayloadValidator,
			Response:         config.Response,
		}
	}

	return m, nil
}

// HostCall simulates a host call, validating inputs and returning a response or error.
func (m *Mock) HostCall(namespace, capability, function string, payload []byte) ([]byte, error) {
	m.record(namespace, capability, function, payload)

	if m.fail {
		return nil, failure(m.err)
	}

	if m.namespace != "" && m.namespace != namespace {
		return nil, fmt.Errorf("%w: expected namespace %s, got %s", ErrUnexpectedNamespace, m.namespace, namespace)
	}

	if m.capability != "" && m.capability != capability {
		return nil, fmt.Errorf(
			"%w: expected capability %s, got %s",
			ErrUnexpectedCapability,
			m.capability,
			capability,
		)
	}

	route, err := m.route(function)
	if err != nil {
		return nil, err
	}

	if route.Fail {
		return nil, failure(route.Error)
	}

	if route.PayloadValidator != nil {
		if err := route.PayloadValidator(payload); err != nil {
			return nil, err
		}
	}

	if route.Response != nil {
		return route.Response(), nil
	}

	return nil, nil
}

// Calls returns the host calls received so far, in order.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Functions returns the function names called so far, in order.
func (m *Mock) Functions() []string {
	calls := m.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Function
	}
	return out
}

func (m *Mock) route(function string) (Route, error) {
	if m.fallback != nil {
		if m.function != "" && m.function != function {
			return Route{}, fmt.Errorf("%w: expected function %s, got %s", ErrUnexpectedFunction, m.function, function)
		}
		return *m.fallback, nil
	}

	r, ok := m.routes[function]
	if !ok {
		return Route{}, fmt.Errorf("%w: no route for %s", ErrUnexpectedFunction, function)
	}
	return r, nil
}

func (m *Mock) record(namespace, capability, function string, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{
		Namespace:  namespace,
		Capability: capability,
		Function:   function,
		Payload:    append([]byte(nil), payload...),
	})
}

func failure(err error) error {
	if err != nil {
		return err
	}
	return ErrOperationFailed
}
