/*
Package mock provides World, an in-memory simulated chain that implements
host.Host and kv.KV for the contract currently executing.

A World holds token balances per account, deployed contracts, plain target
functions and per-account storage. Execute runs one transaction as an atomic
unit: attached payments move to the callee, the endpoint runs, and on error
every balance and storage change is undone. Calls issued under Async,
Promise or TransferExecute are queued and run after the issuing invocation
has finished, each as its own atomic unit; a failed deferred call leaves its
payments with the issuer. A Promise call is followed by an invocation of the
issuer's callback endpoint carrying the encoded codec.CallbackResult.
*/
package mock
