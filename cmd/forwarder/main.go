// Command forwarder is the WebAssembly guest. Build it with TinyGo:
//
//	tinygo build -o forwarder.wasm -target wasi ./cmd/forwarder
package main

import (
	"github.com/tarmac-project/forwarder"
	"github.com/tarmac-project/forwarder/continuation"
	"github.com/tarmac-project/forwarder/contract"
	"github.com/tarmac-project/forwarder/host"
	"github.com/tarmac-project/forwarder/kv"
	"github.com/tarmac-project/forwarder/logging"
	"github.com/tarmac-project/forwarder/metrics"
	"github.com/tarmac-project/forwarder/proxy"
)

func main() {
	if _, err := setup(forwarder.RuntimeConfig{Namespace: forwarder.DefaultNamespace}, nil); err != nil {
		panic(err)
	}
}

// setup wires the host capability clients to the forwarder and registers
// its endpoints. A nil hostCall uses the waPC host.
func setup(rt forwarder.RuntimeConfig, hostCall func(string, string, string, []byte) ([]byte, error)) (*forwarder.Module, error) {
	h, err := host.New(host.Config{SDKConfig: rt, HostCall: hostCall})
	if err != nil {
		return nil, err
	}

	store, err := kv.New(kv.Config{SDKConfig: rt, HostCall: hostCall})
	if err != nil {
		return nil, err
	}

	log, err := logging.New(logging.Config{SDKConfig: rt, HostCall: hostCall})
	if err != nil {
		return nil, err
	}

	rec, err := metrics.New(metrics.Config{SDKConfig: rt, HostCall: hostCall})
	if err != nil {
		return nil, err
	}

	reg, err := continuation.New(store)
	if err != nil {
		return nil, err
	}

	fwd, err := proxy.New(proxy.Config{Host: h, Continuations: reg, Logger: log, Metrics: rec})
	if err != nil {
		return nil, err
	}

	c, err := contract.New(fwd)
	if err != nil {
		return nil, err
	}

	return forwarder.New(forwarder.Config{Namespace: rt.Namespace, Endpoints: c.Endpoints()})
}
