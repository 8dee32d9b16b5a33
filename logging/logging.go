package logging

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tarmac-project/forwarder"
	wapc "github.com/wapc/wapc-guest-tinygo"
)

const capabilityName = "logging"

// Client sends leveled, structured log entries to the host runtime. kv is a
// flat list of alternating keys and values.
type Client interface {
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	Debug(msg string, kv ...any)
	Trace(msg string, kv ...any)

	// With returns a Client that adds kv to every entry.
	With(kv ...any) Client
}

// Config controls how a Client instance interacts with the host runtime.
type Config struct {
	// SDKConfig provides the runtime namespace used for host calls.
	SDKConfig forwarder.RuntimeConfig

	// HostCall overrides the waPC host function used for logging operations.
	HostCall func(string, string, string, []byte) ([]byte, error)
}

// client implements Client using the configured host call entrypoint.
type client struct {
	runtime  forwarder.RuntimeConfig
	hostCall func(string, string, string, []byte) ([]byte, error)
	fields   []any
}

// New creates a Client that emits logs through the host logging capability.
func New(cfg Config) (Client, error) {
	runtimeCfg := cfg.SDKConfig
	if runtimeCfg.Namespace == "" {
		runtimeCfg.Namespace = forwarder.DefaultNamespace
	}

	hostCall := cfg.HostCall
	if hostCall == nil {
		hostCall = wapc.HostCall
	}

	return &client{
		runtime:  runtimeCfg,
		hostCall: hostCall,
	}, nil
}

func (c *client) Info(msg string, kv ...any)  { c.log("Info", msg, kv) }
func (c *client) Warn(msg string, kv ...any)  { c.log("Warn", msg, kv) }
func (c *client) Error(msg string, kv ...any) { c.log("Error", msg, kv) }
func (c *client) Debug(msg string, kv ...any) { c.log("Debug", msg, kv) }
func (c *client) Trace(msg string, kv ...any) { c.log("Trace", msg, kv) }

func (c *client) With(kv ...any) Client {
	fields := make([]any, 0, len(c.fields)+len(kv))
	fields = append(fields, c.fields...)
	fields = append(fields, kv...)
	return &client{runtime: c.runtime, hostCall: c.hostCall, fields: fields}
}

func (c *client) log(level, msg string, kv []any) {
	_, _ = c.hostCall(c.runtime.Namespace, capabilityName, level, []byte(Format(msg, c.fields, kv)))
}

// Format renders msg and the key/value lists as a single line. A trailing
// key without a value is rendered with the value MISSING.
func Format(msg string, kvs ...[]any) string {
	var sb strings.Builder
	sb.WriteString(msg)
	for _, kv := range kvs {
		for i := 0; i < len(kv); i += 2 {
			sb.WriteByte(' ')
			sb.WriteString(fmt.Sprint(kv[i]))
			sb.WriteByte('=')
			if i+1 < len(kv) {
				sb.WriteString(quote(fmt.Sprint(kv[i+1])))
			} else {
				sb.WriteString("MISSING")
			}
		}
	}
	return sb.String()
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

type discard struct{}

// Discard returns a Client that drops every entry.
func Discard() Client { return discard{} }

func (discard) Info(string, ...any)  {}
func (discard) Warn(string, ...any)  {}
func (discard) Error(string, ...any) {}
func (discard) Debug(string, ...any) {}
func (discard) Trace(string, ...any) {}

func (d discard) With(...any) Client { return d }
