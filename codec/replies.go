package codec

import (
	"errors"

	"github.com/tarmac-project/forwarder/payment"
	sdkproto "github.com/tarmac-project/protobuf-go/sdk"
)

const (
	fieldReplyStatus = 1
	fieldReplyValue  = 2
	fieldReplyData   = 3
)

// GasLeftReply answers a gas_left host call.
type GasLeftReply struct {
	Status  *sdkproto.Status
	GasLeft uint64
}

// TransfersReply answers a received_transfers host call.
type TransfersReply struct {
	Status   *sdkproto.Status
	Payments []payment.Payment
}

// IssueReply answers an issue_call host call. CallID is set for calls whose
// outcome is delivered later; ReturnData is set for Sync calls.
type IssueReply struct {
	Status     *sdkproto.Status
	CallID     string
	ReturnData [][]byte
}

// EncodeGasLeftReply encodes a gas_left reply.
func EncodeGasLeftReply(r GasLeftReply) ([]byte, error) {
	b, err := appendStatus(nil, r.Status)
	if err != nil {
		return nil, err
	}
	return appendVarint(b, fieldReplyValue, r.GasLeft), nil
}

// DecodeGasLeftReply decodes a gas_left reply.
func DecodeGasLeftReply(b []byte) (GasLeftReply, error) {
	msg, status, err := parseReply(b)
	if err != nil {
		return GasLeftReply{}, err
	}
	gas, err := msg.varint(fieldReplyValue)
	if err != nil {
		return GasLeftReply{}, err
	}
	return GasLeftReply{Status: status, GasLeft: gas}, nil
}

// EncodeTransfersReply encodes a received_transfers reply.
func EncodeTransfersReply(r TransfersReply) ([]byte, error) {
	b, err := appendStatus(nil, r.Status)
	if err != nil {
		return nil, err
	}
	return appendPayments(b, fieldReplyValue, r.Payments), nil
}

// DecodeTransfersReply decodes a received_transfers reply, keeping the
// transfers in the order the host listed them.
func DecodeTransfersReply(b []byte) (TransfersReply, error) {
	msg, status, err := parseReply(b)
	if err != nil {
		return TransfersReply{}, err
	}
	pays, err := decodePayments(msg, fieldReplyValue)
	if err != nil {
		return TransfersReply{}, err
	}
	return TransfersReply{Status: status, Payments: pays}, nil
}

// EncodeIssueReply encodes an issue_call reply.
func EncodeIssueReply(r IssueReply) ([]byte, error) {
	b, err := appendStatus(nil, r.Status)
	if err != nil {
		return nil, err
	}
	if r.CallID != "" {
		b = appendString(b, fieldReplyValue, r.CallID)
	}
	for _, d := range r.ReturnData {
		b = appendBytes(b, fieldReplyData, d)
	}
	return b, nil
}

// DecodeIssueReply decodes an issue_call reply.
func DecodeIssueReply(b []byte) (IssueReply, error) {
	msg, status, err := parseReply(b)
	if err != nil {
		return IssueReply{}, err
	}
	id, err := msg.str(fieldReplyValue)
	if err != nil {
		return IssueReply{}, err
	}
	data, err := msg.repeated(fieldReplyData)
	if err != nil {
		return IssueReply{}, err
	}
	return IssueReply{Status: status, CallID: id, ReturnData: data}, nil
}

func appendStatus(b []byte, status *sdkproto.Status) ([]byte, error) {
	if status == nil {
		return b, nil
	}
	raw, err := status.MarshalVT()
	if err != nil {
		return nil, err
	}
	return appendBytes(b, fieldReplyStatus, raw), nil
}

// parseReply parses a reply and extracts its status. A reply without a
// status field yields a nil status, which callers treat as invalid.
func parseReply(b []byte) (message, *sdkproto.Status, error) {
	msg, err := parse(b)
	if err != nil {
		return nil, nil, err
	}
	if !msg.has(fieldReplyStatus) {
		return msg, nil, nil
	}
	raw, err := msg.bytes(fieldReplyStatus)
	if err != nil {
		return nil, nil, err
	}
	status := &sdkproto.Status{}
	if err := status.UnmarshalVT(raw); err != nil {
		return nil, nil, errors.Join(ErrMalformed, err)
	}
	return msg, status, nil
}
