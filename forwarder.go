package forwarder

import (
	"errors"
	"fmt"
	"sort"

	wapc "github.com/wapc/wapc-guest-tinygo"
)

// DefaultNamespace is used when no explicit namespace is provided.
const DefaultNamespace = "forwarder"

var (
	// ErrNoEndpoints is returned when the module is created without endpoints.
	ErrNoEndpoints = errors.New("at least one endpoint is required")

	// ErrEndpointNil is returned when a named endpoint has a nil handler.
	ErrEndpointNil = errors.New("endpoint handler cannot be nil")
)

// Endpoint handles one exported function of the module. The payload is the
// raw argument buffer supplied by the host.
type Endpoint func([]byte) ([]byte, error)

// Config provides configuration options for module initialization.
type Config struct {
	// Namespace controls the namespace used for host callbacks.
	// If empty, DefaultNamespace is used.
	Namespace string

	// Endpoints maps exported function names to their handlers.
	Endpoints map[string]Endpoint
}

// RuntimeConfig carries configuration that is used during creation of the
// host capability clients.
type RuntimeConfig struct {
	// Namespace is the namespace used to scope host interactions.
	Namespace string
}

// Module represents the initialized runtime with its endpoints registered.
type Module struct {
	runtime   RuntimeConfig
	endpoints map[string]Endpoint
}

// New validates the endpoint table and registers every endpoint with waPC.
func New(config Config) (*Module, error) {
	if len(config.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	cfg := RuntimeConfig{Namespace: DefaultNamespace}
	if config.Namespace != "" {
		cfg.Namespace = config.Namespace
	}

	m := &Module{
		runtime:   cfg,
		endpoints: make(map[string]Endpoint, len(config.Endpoints)),
	}

	fns := make(wapc.Functions, len(config.Endpoints))
	for name, ep := range config.Endpoints {
		if ep == nil {
			return nil, fmt.Errorf("%w: %s", ErrEndpointNil, name)
		}
		m.endpoints[name] = ep
		fns[name] = wapc.Function(ep)
	}

	wapc.RegisterFunctions(fns)

	return m, nil
}

// Config returns the current runtime configuration snapshot.
func (m *Module) Config() RuntimeConfig { return m.runtime }

// Endpoints returns the registered endpoint names in sorted order.
func (m *Module) Endpoints() []string {
	names := make([]string, 0, len(m.endpoints))
	for name := range m.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
