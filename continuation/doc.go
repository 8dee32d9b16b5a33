/*
Package continuation keeps track of Promise calls issued by the forwarder
until the host delivers their outcome.

Each pending call is persisted through the key/value capability under its
host-issued call id, so the record survives the invocation that issued it.
When the callback endpoint runs, Resolve loads and removes the record and
hands it, together with the delivered result, to the handler named at
registration time.

	reg, err := continuation.New(kvClient)
	reg.Handle("forward", func(p continuation.Pending, r continuation.Result) error {
		return nil
	})
*/
package continuation
