/*
Package proxy implements the call forwarder.

Every forwarding operation runs three strictly sequential stages. Context
gathering reads the remaining gas once and, when the payment strategy needs
it, snapshots the transfers attached to the invocation. Assembly resolves
the payment set and builds an immutable call.Request. Dispatch issues the
request under the chosen execution mode:

	Sync             gas = remaining gas, blocks, failure aborts the invocation
	Async            gas = host default, fire and forget
	Promise          gas = remaining gas, result delivered to the callback endpoint
	TransferExecute  gas = remaining gas, fire and forget

The forwarder never inspects arguments and never retries.
*/
package proxy
