/*
Package kv provides a client for the host key-value capability.

The forwarder keeps its pending Promise records here: an entry is written
when the call is issued and removed when the callback invocation arrives,
so the record outlives the invocation that created it. Requests and replies
use the tarmac kvstore protobuf messages; zero-value Config options fall back
to forwarder.DefaultNamespace and wapc.HostCall.
*/
package kv
