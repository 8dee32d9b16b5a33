/*
Package metrics records what the forwarder dispatches through the host
metrics capability.

Recorder is the interface the forwarder core reports to: one counter per
execution mode for issued and failed calls, a histogram of payment-set sizes,
a gauge of outstanding Promise continuations and counters for delivered
callbacks. Emission is best-effort in the Prometheus style: marshal or host
failures are swallowed so metrics never alter a dispatch outcome. Discard
returns a Recorder that does nothing.
*/
package metrics
