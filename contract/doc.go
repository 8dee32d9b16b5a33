/*
Package contract exposes the forwarder as a table of named endpoints.

Each endpoint decodes its payload with the codec package and calls the
matching proxy.Forwarder operation:

	callEndpoint                  Forward
	callInternalTransferEndpoint  ForwardWithExternalPayment
	callTransferEndpoint          ForwardWithHeldPayment (payable)
	callHybridTransferEndpoint    ForwardWithHybridPayment (payable)
	init, upgrade                 lifecycle hooks
	callBack                      Promise results

Payloads that cannot be decoded, including undeclared execution modes, are
rejected before anything is forwarded.
*/
package contract
