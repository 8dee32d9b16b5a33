package codec

import (
	"github.com/tarmac-project/forwarder/call"
	"github.com/tarmac-project/forwarder/payment"
	"google.golang.org/protobuf/encoding/protowire"
)

func protoNumber(n int) protowire.Number { return protowire.Number(n) }

// EndpointArgs are the arguments of the four forwarding endpoints. Payment
// is only meaningful for the external and hybrid endpoints.
type EndpointArgs struct {
	Mode      call.Mode
	Target    call.Address
	Function  string
	Arguments [][]byte
	Payment   *payment.Payment
}

const (
	fieldArgsMode     = 1
	fieldArgsTarget   = 2
	fieldArgsFunction = 3
	fieldArgsArgument = 4
	fieldArgsPayment  = 5
)

// EncodeEndpointArgs encodes endpoint arguments. The mode is written as-is,
// so an undeclared value survives encoding and is rejected on decode.
func EncodeEndpointArgs(a EndpointArgs) []byte {
	var b []byte
	b = appendVarint(b, fieldArgsMode, uint64(a.Mode))
	b = appendString(b, fieldArgsTarget, string(a.Target))
	b = appendString(b, fieldArgsFunction, a.Function)
	for _, arg := range a.Arguments {
		b = appendBytes(b, fieldArgsArgument, arg)
	}
	if a.Payment != nil {
		b = appendBytes(b, fieldArgsPayment, EncodePayment(*a.Payment))
	}
	return b
}

// DecodeEndpointArgs decodes endpoint arguments, failing closed on an
// undeclared mode.
func DecodeEndpointArgs(b []byte) (EndpointArgs, error) {
	msg, err := parse(b)
	if err != nil {
		return EndpointArgs{}, err
	}

	mode, err := decodeMode(msg, fieldArgsMode)
	if err != nil {
		return EndpointArgs{}, err
	}
	target, err := msg.str(fieldArgsTarget)
	if err != nil {
		return EndpointArgs{}, err
	}
	function, err := msg.str(fieldArgsFunction)
	if err != nil {
		return EndpointArgs{}, err
	}
	args, err := msg.repeated(fieldArgsArgument)
	if err != nil {
		return EndpointArgs{}, err
	}

	out := EndpointArgs{
		Mode:      mode,
		Target:    call.Address(target),
		Function:  function,
		Arguments: args,
	}

	if msg.has(fieldArgsPayment) {
		raw, err := msg.bytes(fieldArgsPayment)
		if err != nil {
			return EndpointArgs{}, err
		}
		p, err := DecodePayment(raw)
		if err != nil {
			return EndpointArgs{}, err
		}
		out.Payment = &p
	}

	return out, nil
}

// IssueCall is the request a forwarder sends to the host to issue an
// outgoing call.
type IssueCall struct {
	Mode     call.Mode
	Request  call.Request
	Gas      call.Gas
	Callback string
}

const (
	fieldIssueMode     = 1
	fieldIssueTarget   = 2
	fieldIssueFunction = 3
	fieldIssueArgument = 4
	fieldIssuePayment  = 5
	fieldIssueGas      = 6
	fieldIssueCallback = 7
)

// EncodeIssueCall encodes an issue request. The gas field is present only
// when the budget is explicit.
func EncodeIssueCall(c IssueCall) []byte {
	var b []byte
	b = appendVarint(b, fieldIssueMode, uint64(c.Mode))
	b = appendString(b, fieldIssueTarget, string(c.Request.Target()))
	b = appendString(b, fieldIssueFunction, c.Request.Function())
	for _, arg := range c.Request.Arguments() {
		b = appendBytes(b, fieldIssueArgument, arg)
	}
	b = appendPayments(b, fieldIssuePayment, c.Request.Payments())
	if limit, ok := c.Gas.Limit(); ok {
		b = appendVarint(b, fieldIssueGas, limit)
	}
	if c.Callback != "" {
		b = appendString(b, fieldIssueCallback, c.Callback)
	}
	return b
}

// DecodeIssueCall decodes an issue request.
func DecodeIssueCall(b []byte) (IssueCall, error) {
	msg, err := parse(b)
	if err != nil {
		return IssueCall{}, err
	}

	mode, err := decodeMode(msg, fieldIssueMode)
	if err != nil {
		return IssueCall{}, err
	}
	target, err := msg.str(fieldIssueTarget)
	if err != nil {
		return IssueCall{}, err
	}
	function, err := msg.str(fieldIssueFunction)
	if err != nil {
		return IssueCall{}, err
	}
	args, err := msg.repeated(fieldIssueArgument)
	if err != nil {
		return IssueCall{}, err
	}
	pays, err := decodePayments(msg, fieldIssuePayment)
	if err != nil {
		return IssueCall{}, err
	}
	callback, err := msg.str(fieldIssueCallback)
	if err != nil {
		return IssueCall{}, err
	}

	gas := call.HostDefaultGas()
	if msg.has(fieldIssueGas) {
		limit, err := msg.varint(fieldIssueGas)
		if err != nil {
			return IssueCall{}, err
		}
		gas = call.GasLimit(limit)
	}

	return IssueCall{
		Mode:     mode,
		Request:  call.NewRequest(call.Address(target), function, args, pays),
		Gas:      gas,
		Callback: callback,
	}, nil
}

// CallbackResult is delivered to the callback endpoint once a Promise call
// completes. A zero Code means the target succeeded.
type CallbackResult struct {
	CallID     string
	Code       uint64
	ReturnData [][]byte
	Message    string
}

// Failed reports whether the target call failed.
func (r CallbackResult) Failed() bool { return r.Code != 0 }

const (
	fieldCallbackID      = 1
	fieldCallbackCode    = 2
	fieldCallbackData    = 3
	fieldCallbackMessage = 4
)

// EncodeCallbackResult encodes a callback result.
func EncodeCallbackResult(r CallbackResult) []byte {
	var b []byte
	b = appendString(b, fieldCallbackID, r.CallID)
	b = appendVarint(b, fieldCallbackCode, r.Code)
	for _, d := range r.ReturnData {
		b = appendBytes(b, fieldCallbackData, d)
	}
	if r.Message != "" {
		b = appendString(b, fieldCallbackMessage, r.Message)
	}
	return b
}

// DecodeCallbackResult decodes a callback result.
func DecodeCallbackResult(b []byte) (CallbackResult, error) {
	msg, err := parse(b)
	if err != nil {
		return CallbackResult{}, err
	}

	id, err := msg.str(fieldCallbackID)
	if err != nil {
		return CallbackResult{}, err
	}
	code, err := msg.varint(fieldCallbackCode)
	if err != nil {
		return CallbackResult{}, err
	}
	data, err := msg.repeated(fieldCallbackData)
	if err != nil {
		return CallbackResult{}, err
	}
	message, err := msg.str(fieldCallbackMessage)
	if err != nil {
		return CallbackResult{}, err
	}

	return CallbackResult{CallID: id, Code: code, ReturnData: data, Message: message}, nil
}

// Pending is the record kept for an issued Promise call until its callback
// arrives.
type Pending struct {
	Handler  string
	Mode     call.Mode
	Target   call.Address
	Function string
	Payments []payment.Payment
}

const (
	fieldPendingHandler  = 1
	fieldPendingMode     = 2
	fieldPendingTarget   = 3
	fieldPendingFunction = 4
	fieldPendingPayment  = 5
)

// EncodePending encodes a pending record.
func EncodePending(p Pending) []byte {
	var b []byte
	b = appendString(b, fieldPendingHandler, p.Handler)
	b = appendVarint(b, fieldPendingMode, uint64(p.Mode))
	b = appendString(b, fieldPendingTarget, string(p.Target))
	b = appendString(b, fieldPendingFunction, p.Function)
	return appendPayments(b, fieldPendingPayment, p.Payments)
}

// DecodePending decodes a pending record.
func DecodePending(b []byte) (Pending, error) {
	msg, err := parse(b)
	if err != nil {
		return Pending{}, err
	}

	handler, err := msg.str(fieldPendingHandler)
	if err != nil {
		return Pending{}, err
	}
	mode, err := decodeMode(msg, fieldPendingMode)
	if err != nil {
		return Pending{}, err
	}
	target, err := msg.str(fieldPendingTarget)
	if err != nil {
		return Pending{}, err
	}
	function, err := msg.str(fieldPendingFunction)
	if err != nil {
		return Pending{}, err
	}
	pays, err := decodePayments(msg, fieldPendingPayment)
	if err != nil {
		return Pending{}, err
	}

	return Pending{
		Handler:  handler,
		Mode:     mode,
		Target:   call.Address(target),
		Function: function,
		Payments: pays,
	}, nil
}

func decodeMode(msg message, num protowire.Number) (call.Mode, error) {
	v, err := msg.varint(num)
	if err != nil {
		return 0, err
	}
	return call.ParseMode(v)
}
