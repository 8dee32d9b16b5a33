package codec

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/tarmac-project/forwarder/payment"
)

const (
	fieldPaymentToken  = 1
	fieldPaymentNonce  = 2
	fieldPaymentAmount = 3

	maxAmountBytes = 32
)

// EncodePayment encodes a single payment. The amount is written as minimal
// big-endian bytes; zero is written as an empty buffer.
func EncodePayment(p payment.Payment) []byte {
	var b []byte
	b = appendString(b, fieldPaymentToken, p.TokenID)
	b = appendVarint(b, fieldPaymentNonce, p.Nonce)
	b = appendBytes(b, fieldPaymentAmount, p.Value().Bytes())
	return b
}

// DecodePayment decodes a payment written by EncodePayment.
func DecodePayment(b []byte) (payment.Payment, error) {
	msg, err := parse(b)
	if err != nil {
		return payment.Payment{}, err
	}

	token, err := msg.str(fieldPaymentToken)
	if err != nil {
		return payment.Payment{}, err
	}
	nonce, err := msg.varint(fieldPaymentNonce)
	if err != nil {
		return payment.Payment{}, err
	}
	raw, err := msg.bytes(fieldPaymentAmount)
	if err != nil {
		return payment.Payment{}, err
	}
	if len(raw) > maxAmountBytes {
		return payment.Payment{}, fmt.Errorf("%w: amount is %d bytes", ErrMalformed, len(raw))
	}

	return payment.Payment{TokenID: token, Nonce: nonce, Amount: new(uint256.Int).SetBytes(raw)}, nil
}

func appendPayments(b []byte, num int, ps []payment.Payment) []byte {
	for _, p := range ps {
		b = appendBytes(b, protoNumber(num), EncodePayment(p))
	}
	return b
}

func decodePayments(msg message, num int) ([]payment.Payment, error) {
	raws, err := msg.repeated(protoNumber(num))
	if err != nil {
		return nil, err
	}
	out := make([]payment.Payment, 0, len(raws))
	for _, raw := range raws {
		p, err := DecodePayment(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
