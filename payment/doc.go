/*
Package payment models the value transfers a forwarded call can carry and the
strategies that decide which transfers are attached.

A Payment is a (token, nonce, amount) triple. A Strategy is one of None,
ExternalSingleToken, AllReceivedTransfers or HybridTransfer; Resolve turns a
strategy and the snapshot of transfers received by the current invocation
into the ordered payment set of the outgoing call. Entries are never
reordered, merged or deduplicated, even when a token repeats.
*/
package payment
