/*
Package host defines what the forwarder needs from its execution environment
and provides a client that obtains it through waPC host calls.

Host is the narrow interface the forwarder core depends on: the remaining
gas, the transfers received by the current invocation, and the ability to
issue an outgoing call. Client implements it on top of the "blockchain"
capability, encoding requests and decoding replies with the codec package.
Zero-value Config options fall back to forwarder.DefaultNamespace, the
default callback endpoint and wapc.HostCall, so tests can swap in a hostmock
through Config.HostCall.
*/
package host
