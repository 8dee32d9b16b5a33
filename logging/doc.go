/*
Package logging emits structured log entries from the forwarder module to the
host runtime.

Each entry is a message followed by key=value pairs, sent through the host
logging capability under the function named after its level (Info, Warn,
Error, Debug, Trace). With returns a child client that prefixes every entry
with fixed fields. Logging is best-effort: host failures are swallowed so a
log line can never change the outcome of a forwarded call. Discard returns a
client that drops everything.
*/
package logging
