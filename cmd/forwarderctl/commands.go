package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"github.com/tarmac-project/forwarder/call"
	"github.com/tarmac-project/forwarder/codec"
	"github.com/tarmac-project/forwarder/contract"
	hostmock "github.com/tarmac-project/forwarder/host/mock"
	"github.com/tarmac-project/forwarder/payment"
)

const defaultForwarder = "forwarder"

var (
	// ErrNotDeployed is returned by call commands before deploy has run.
	ErrNotDeployed = errors.New("forwarder is not deployed, run deploy first")

	// ErrInvalidPayment is returned for a payment flag that is not
	// TOKEN:NONCE:AMOUNT.
	ErrInvalidPayment = errors.New("payment must be TOKEN:NONCE:AMOUNT")
)

func deployCommand(a *app) *cobra.Command {
	var (
		address string
		from    string
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the forwarder and run its init endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := a.world()
			if err != nil {
				return err
			}
			if err := w.Deploy(call.Address(address), a.forwarderFactory()); err != nil {
				return err
			}
			if _, err := w.Execute(hostmock.Tx{From: call.Address(from), To: call.Address(address), Endpoint: contract.EndpointInit}); err != nil {
				return fmt.Errorf("init: %w", err)
			}

			a.state.Forwarder = address
			a.state.Capture(w)
			a.logger.Info("forwarder deployed", "address", address)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "new address: %s\n", address)
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", defaultForwarder, "address of the forwarder")
	cmd.Flags().StringVar(&from, "from", "owner", "deploying account")
	return cmd
}

func fundCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fund ADDRESS TOKEN:NONCE:AMOUNT",
		Short: "Credit tokens to an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			p, err := parsePayment(args[1])
			if err != nil {
				return err
			}
			w, err := a.world()
			if err != nil {
				return err
			}
			if err := w.Fund(call.Address(args[0]), p); err != nil {
				return err
			}
			a.state.Capture(w)
			a.logger.Info("account funded", "address", args[0], "payment", p)
			return nil
		},
	}
}

func targetCommand(a *app) *cobra.Command {
	var behaviourName string

	cmd := &cobra.Command{
		Use:   "target ADDRESS FUNCTION",
		Short: "Install a target function with a fixed behaviour",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			if _, err := behaviour(behaviourName); err != nil {
				return err
			}
			if args[0] == a.state.Forwarder {
				return fmt.Errorf("%w: %s", hostmock.ErrAlreadyDeployed, args[0])
			}
			a.state.SetTarget(Target{Address: args[0], Function: args[1], Behaviour: behaviourName})
			a.logger.Info("target installed", "address", args[0], "function", args[1], "behaviour", behaviourName)
			return nil
		},
	}

	cmd.Flags().StringVar(&behaviourName, "behaviour", BehaviourAccept, "accept, fail or echo")
	return cmd
}

func balanceCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance ADDRESS",
		Short: "Print the balances of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.world()
			if err != nil {
				return err
			}
			for _, p := range w.Holdings(call.Address(args[0])) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

type callKind struct {
	use      string
	endpoint string
	external bool
	held     bool
}

type callParams struct {
	from     string
	target   string
	function string
	mode     string
	args     []string
	gas      uint64
	payment  string
	attached []string
}

func callCommand(a *app, kind callKind) *cobra.Command {
	var p callParams

	cmd := &cobra.Command{
		Use:   kind.use,
		Short: "Send a transaction to the " + kind.endpoint + " endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.state.Forwarder == "" {
				return ErrNotDeployed
			}

			tx, err := p.tx(kind, a.state.Forwarder)
			if err != nil {
				return err
			}

			w, err := a.world()
			if err != nil {
				return err
			}

			rcpt, err := w.Execute(tx)
			if err != nil {
				a.logger.Error("transaction failed", "endpoint", kind.endpoint, "error", err)
				return err
			}

			a.state.Capture(w)
			printReceipt(cmd.OutOrStdout(), w, rcpt)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&p.from, "from", "user", "sending account")
	flags.StringVar(&p.target, "target", "", "address of the target")
	flags.StringVar(&p.function, "function", "", "target function")
	flags.StringVar(&p.mode, "mode", call.Sync.String(), "sync, async, promise or transfer-execute")
	flags.StringArrayVar(&p.args, "arg", nil, "target argument, 0x-prefixed values are hex decoded (repeatable)")
	flags.Uint64Var(&p.gas, "gas", 5_000_000, "gas limit of the transaction")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("function")

	if kind.external {
		flags.StringVar(&p.payment, "payment", "", "payment sent by the forwarder, TOKEN:NONCE:AMOUNT")
		_ = cmd.MarkFlagRequired("payment")
	}
	if kind.held {
		flags.StringArrayVar(&p.attached, "transfer", nil, "transfer attached to the transaction, TOKEN:NONCE:AMOUNT (repeatable)")
	}

	return cmd
}

func (p callParams) tx(kind callKind, forwarder string) (hostmock.Tx, error) {
	var mode call.Mode
	if err := mode.UnmarshalText([]byte(p.mode)); err != nil {
		return hostmock.Tx{}, err
	}

	args, err := decodeArgs(p.args)
	if err != nil {
		return hostmock.Tx{}, err
	}

	ea := codec.EndpointArgs{
		Mode:      mode,
		Target:    call.Address(p.target),
		Function:  p.function,
		Arguments: args,
	}
	if kind.external {
		pay, err := parsePayment(p.payment)
		if err != nil {
			return hostmock.Tx{}, err
		}
		ea.Payment = &pay
	}

	attached := make([]payment.Payment, 0, len(p.attached))
	for _, s := range p.attached {
		pay, err := parsePayment(s)
		if err != nil {
			return hostmock.Tx{}, err
		}
		attached = append(attached, pay)
	}

	return hostmock.Tx{
		From:     call.Address(p.from),
		To:       call.Address(forwarder),
		Endpoint: kind.endpoint,
		Payload:  codec.EncodeEndpointArgs(ea),
		Payments: attached,
		Gas:      p.gas,
	}, nil
}

func decodeArgs(raw []string) ([][]byte, error) {
	out := make([][]byte, 0, len(raw))
	for _, s := range raw {
		if hexPart, ok := strings.CutPrefix(s, "0x"); ok {
			b, err := hex.DecodeString(hexPart)
			if err != nil {
				return nil, fmt.Errorf("argument %q: %w", s, err)
			}
			out = append(out, b)
			continue
		}
		out = append(out, []byte(s))
	}
	return out, nil
}

func parsePayment(s string) (payment.Payment, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 || parts[0] == "" {
		return payment.Payment{}, fmt.Errorf("%w: %q", ErrInvalidPayment, s)
	}
	nonce, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return payment.Payment{}, errors.Join(ErrInvalidPayment, err)
	}
	amount, err := uint256.FromDecimal(parts[2])
	if err != nil {
		return payment.Payment{}, errors.Join(ErrInvalidPayment, err)
	}
	return payment.New(parts[0], nonce, amount), nil
}

func printReceipt(out io.Writer, w *hostmock.World, rcpt hostmock.Receipt) {
	for _, c := range w.Calls() {
		_, _ = fmt.Fprintf(out, "issued %s %s.%s args=%d gas=%s payments=%v\n",
			c.Mode, c.Request.Target(), c.Request.Function(), c.Request.NumArguments(), c.Gas, c.Request.Payments())
	}
	for _, o := range rcpt.Deferred {
		status := "ok"
		if o.Err != nil {
			status = "failed: " + o.Err.Error()
		}
		_, _ = fmt.Fprintf(out, "deferred %s %s: %s\n", o.Call.ID, o.Call.Mode, status)
	}
}
