package call

import "github.com/tarmac-project/forwarder/payment"

// Address identifies a callee. Its contents are opaque to the forwarder.
type Address string

// Request is the immutable description of an outgoing call. It is built once
// per invocation and never modified; accessors hand out copies.
type Request struct {
	target    Address
	function  string
	arguments [][]byte
	payments  []payment.Payment
}

// NewRequest assembles a Request, copying arguments and payments so later
// changes by the caller cannot leak into it. Order is preserved exactly.
func NewRequest(target Address, function string, arguments [][]byte, payments []payment.Payment) Request {
	return Request{
		target:    target,
		function:  function,
		arguments: copyArguments(arguments),
		payments:  payment.CloneAll(payments),
	}
}

// Target returns the callee address.
func (r Request) Target() Address { return r.target }

// Function returns the remote function identifier.
func (r Request) Function() string { return r.function }

// Arguments returns a copy of the ordered argument buffers.
func (r Request) Arguments() [][]byte { return copyArguments(r.arguments) }

// Payments returns a copy of the ordered payment set.
func (r Request) Payments() []payment.Payment { return payment.CloneAll(r.payments) }

// NumArguments returns the number of arguments without copying them.
func (r Request) NumArguments() int { return len(r.arguments) }

// NumPayments returns the size of the payment set without copying it.
func (r Request) NumPayments() int { return len(r.payments) }

func copyArguments(args [][]byte) [][]byte {
	out := make([][]byte, len(args))
	for i, a := range args {
		out[i] = append([]byte{}, a...)
	}
	return out
}
