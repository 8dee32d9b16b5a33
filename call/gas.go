package call

import "fmt"

// Gas is an optional gas budget for an outgoing call. The zero value asks the
// host to apply its default allocation.
type Gas struct {
	limit    uint64
	explicit bool
}

// GasLimit returns an explicit budget of n.
func GasLimit(n uint64) Gas { return Gas{limit: n, explicit: true} }

// HostDefaultGas returns a budget that leaves the allocation to the host.
func HostDefaultGas() Gas { return Gas{} }

// Limit returns the explicit budget and whether one is set.
func (g Gas) Limit() (uint64, bool) { return g.limit, g.explicit }

func (g Gas) String() string {
	if !g.explicit {
		return "host-default"
	}
	return fmt.Sprintf("%d", g.limit)
}
