package call

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidMode is returned when a value does not name one of the declared
// execution modes.
var ErrInvalidMode = errors.New("invalid execution mode")

// Mode selects how a forwarded call is executed.
type Mode uint8

const (
	// Sync blocks until the target completes; a target failure aborts the
	// whole enclosing invocation.
	Sync Mode = iota
	// Async issues the call and never observes its result.
	Async
	// Promise issues the call and registers a continuation that receives
	// the result in a later invocation.
	Promise
	// TransferExecute sends the payments together with a fire-and-forget call.
	TransferExecute
)

var modeNames = [...]string{
	Sync:            "sync",
	Async:           "async",
	Promise:         "promise",
	TransferExecute: "transfer-execute",
}

// Modes lists every declared mode in wire order.
func Modes() []Mode { return []Mode{Sync, Async, Promise, TransferExecute} }

// ParseMode converts a wire value into a Mode, failing closed on anything
// outside the declared variants.
func ParseMode(v uint64) (Mode, error) {
	if v > uint64(TransferExecute) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidMode, v)
	}
	return Mode(v), nil
}

// Valid reports whether m is one of the declared modes.
func (m Mode) Valid() bool { return m <= TransferExecute }

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
	return modeNames[m]
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, uint8(m))
	}
	return []byte(modeNames[m]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Matching is case
// insensitive and also accepts the camel-case form (e.g. "TransferExecute").
func (m *Mode) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.ReplaceAll(string(text), "_", "-"))
	for i, name := range modeNames {
		if s == name || s == strings.ReplaceAll(name, "-", "") {
			*m = Mode(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidMode, text)
}
