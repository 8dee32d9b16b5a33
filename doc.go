/*
Package forwarder provides the entry point and runtime configuration for the
call-forwarding WebAssembly module.

The package registers the module's endpoints with waPC and exposes the
RuntimeConfig shared by the host capability clients (host, kv, logging,
metrics). DefaultNamespace is used when a namespace is not explicitly
provided. Host replies are checked with CheckStatus, which maps the embedded
status code onto the shared error sentinels.
*/
package forwarder
