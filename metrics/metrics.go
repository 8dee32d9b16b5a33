package metrics

import (
	"errors"
	"regexp"
	"strings"

	"github.com/tarmac-project/forwarder"
	"github.com/tarmac-project/forwarder/call"
	proto "github.com/tarmac-project/protobuf-go/sdk/metrics"
	wapc "github.com/wapc/wapc-guest-tinygo"
)

const (
	capabilityName = "metrics"
	fnCounter      = "counter"
	fnGauge        = "gauge"
	fnHistogram    = "histogram"
	actionInc      = "inc"
	actionDec      = "dec"

	namePrefix = "forwarder_"
)

var (
	// ErrInvalidMetricName indicates a metric name that does not match the supported format.
	ErrInvalidMetricName = errors.New("metric name is invalid")

	isMetricNameValid = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)
)

// HostCall defines the waPC host function signature used by metrics operations.
type HostCall func(string, string, string, []byte) ([]byte, error)

// Recorder receives dispatch events from the forwarder.
type Recorder interface {
	// Dispatched records a call issued under mode carrying payments entries.
	Dispatched(mode call.Mode, payments int)

	// Failed records a call under mode that aborted the invocation.
	Failed(mode call.Mode)

	// PromiseRegistered records a new outstanding continuation.
	PromiseRegistered()

	// PromiseResolved records a delivered callback; failed reports whether
	// the target call had failed.
	PromiseResolved(failed bool)
}

// Config controls how a HostMetrics instance interacts with the host runtime.
type Config struct {
	// SDKConfig provides the runtime namespace used for host calls.
	SDKConfig forwarder.RuntimeConfig

	// HostCall overrides the waPC host function used for metrics operations.
	HostCall HostCall
}

// HostMetrics is a Recorder backed by the host metrics capability.
type HostMetrics struct {
	runtime  forwarder.RuntimeConfig
	hostCall HostCall

	dispatched map[call.Mode]string
	failed     map[call.Mode]string
}

var _ Recorder = (*HostMetrics)(nil)

const (
	metricPaymentsPerCall  = namePrefix + "payments_per_call"
	metricPendingPromises  = namePrefix + "pending_promises"
	metricCallbacksTotal   = namePrefix + "promise_callbacks_total"
	metricCallbackFailures = namePrefix + "promise_callback_failures_total"
)

// New creates a HostMetrics recorder with namespace defaults and optional
// host-call override.
func New(config Config) (*HostMetrics, error) {
	runtime := config.SDKConfig
	if runtime.Namespace == "" {
		runtime.Namespace = forwarder.DefaultNamespace
	}

	hostCall := config.HostCall
	if hostCall == nil {
		hostCall = wapc.HostCall
	}

	h := &HostMetrics{
		runtime:    runtime,
		hostCall:   hostCall,
		dispatched: make(map[call.Mode]string),
		failed:     make(map[call.Mode]string),
	}

	for _, m := range call.Modes() {
		base := namePrefix + strings.ReplaceAll(m.String(), "-", "_")
		h.dispatched[m] = base + "_dispatched_total"
		h.failed[m] = base + "_failed_total"
	}

	for _, name := range h.names() {
		if !isMetricNameValid.MatchString(name) {
			return nil, errors.Join(ErrInvalidMetricName, errors.New(name))
		}
	}

	return h, nil
}

// Dispatched implements Recorder.
func (h *HostMetrics) Dispatched(mode call.Mode, payments int) {
	if name, ok := h.dispatched[mode]; ok {
		h.counter(name)
	}
	h.observe(metricPaymentsPerCall, float64(payments))
}

// Failed implements Recorder.
func (h *HostMetrics) Failed(mode call.Mode) {
	if name, ok := h.failed[mode]; ok {
		h.counter(name)
	}
}

// PromiseRegistered implements Recorder.
func (h *HostMetrics) PromiseRegistered() { h.gauge(metricPendingPromises, actionInc) }

// PromiseResolved implements Recorder.
func (h *HostMetrics) PromiseResolved(failed bool) {
	h.gauge(metricPendingPromises, actionDec)
	h.counter(metricCallbacksTotal)
	if failed {
		h.counter(metricCallbackFailures)
	}
}

func (h *HostMetrics) names() []string {
	names := []string{metricPaymentsPerCall, metricPendingPromises, metricCallbacksTotal, metricCallbackFailures}
	for _, m := range call.Modes() {
		names = append(names, h.dispatched[m], h.failed[m])
	}
	return names
}

func (h *HostMetrics) counter(name string) {
	payload, err := (&proto.MetricsCounter{Name: name}).MarshalVT()
	if err != nil {
		return
	}
	_, _ = h.hostCall(h.runtime.Namespace, capabilityName, fnCounter, payload)
}

func (h *HostMetrics) gauge(name, action string) {
	payload, err := (&proto.MetricsGauge{Name: name, Action: action}).MarshalVT()
	if err != nil {
		return
	}
	_, _ = h.hostCall(h.runtime.Namespace, capabilityName, fnGauge, payload)
}

func (h *HostMetrics) observe(name string, value float64) {
	payload, err := (&proto.MetricsHistogram{Name: name, Value: value}).MarshalVT()
	if err != nil {
		return
	}
	_, _ = h.hostCall(h.runtime.Namespace, capabilityName, fnHistogram, payload)
}

type discard struct{}

// Discard returns a Recorder that drops every event.
func Discard() Recorder { return discard{} }

func (discard) Dispatched(call.Mode, int) {}
func (discard) Failed(call.Mode)          {}
func (discard) PromiseRegistered()        {}
func (discard) PromiseResolved(bool)      {}
