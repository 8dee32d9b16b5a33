/*
Package hostmock provides a pretend waPC host for wire-level tests.

Use it when a test needs to check exactly what a client sends to the host:
the namespace, capability and function of each call and the encoded payload.
A single forwarder invocation makes several host calls (gas_left,
received_transfers, issue_call), so the mock can script each function
separately through Routes and keeps an ordered log of every call it saw.

Quick start

	m, _ := hostmock.New(hostmock.Config{
	  ExpectedNamespace:  "forwarder",
	  ExpectedCapability: "blockchain",
	  Routes: map[string]hostmock.Route{
	    "gas_left":   {Response: gasReply},
	    "issue_call": {PayloadValidator: checkIssue, Response: okReply},
	  },
	})

	client, _ := host.New(host.Config{HostCall: m.HostCall})

Behavior

  - If Fail is set, every call returns Error, or ErrOperationFailed when
    Error is nil.
  - Empty ExpectedNamespace / ExpectedCapability / ExpectedFunction act as
    wildcards; set values are enforced.
  - With Routes, a function without a route fails with
    ErrUnexpectedFunction; without Routes the top-level PayloadValidator and
    Response apply to every call.
  - Every call, including rejected ones, is recorded and available through
    Calls.
*/
package hostmock
