/*
Package codec encodes the messages exchanged between the forwarder module and
its host: endpoint arguments, host-call requests and replies, callback results
and pending-promise records.

Messages use the protobuf wire format, written and read field by field with
protowire so the module carries no generated code of its own. Host replies
embed the shared tarmac sdk.Status message as field 1. Unknown fields are
skipped; a truncated or mistyped field yields ErrMalformed, and an execution
mode outside the declared set yields call.ErrInvalidMode.
*/
package codec
