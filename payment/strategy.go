package payment

// Strategy decides how the payment set of a forwarded call is populated.
// The set of strategies is closed: None, ExternalSingleToken,
// AllReceivedTransfers and HybridTransfer.
type Strategy interface {
	// NeedsReceived reports whether the strategy reads the transfers
	// received by the current invocation.
	NeedsReceived() bool

	isStrategy()
}

// None attaches no payment.
type None struct{}

// ExternalSingleToken attaches exactly the caller-supplied payment.
type ExternalSingleToken struct {
	Payment Payment
}

// AllReceivedTransfers attaches every received transfer, in receipt order.
type AllReceivedTransfers struct{}

// HybridTransfer attaches every received transfer followed by the
// caller-supplied payment.
type HybridTransfer struct {
	Payment Payment
}

func (None) NeedsReceived() bool                 { return false }
func (ExternalSingleToken) NeedsReceived() bool  { return false }
func (AllReceivedTransfers) NeedsReceived() bool { return true }
func (HybridTransfer) NeedsReceived() bool       { return true }

func (None) isStrategy()                 {}
func (ExternalSingleToken) isStrategy()  {}
func (AllReceivedTransfers) isStrategy() {}
func (HybridTransfer) isStrategy()       {}

// Resolve builds the payment set for s from the received snapshot. The
// result never aliases received or the strategy's own payment.
func Resolve(s Strategy, received []Payment) []Payment {
	switch s := s.(type) {
	case None:
		return []Payment{}
	case ExternalSingleToken:
		return []Payment{s.Payment.Clone()}
	case AllReceivedTransfers:
		return CloneAll(received)
	case HybridTransfer:
		out := make([]Payment, 0, len(received)+1)
		for _, p := range received {
			out = append(out, p.Clone())
		}
		return append(out, s.Payment.Clone())
	default:
		// Unreachable: the interface is sealed.
		panic("payment: unknown strategy")
	}
}
