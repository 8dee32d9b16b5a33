package main

import (
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/tarmac-project/forwarder/continuation"
	"github.com/tarmac-project/forwarder/contract"
	hostmock "github.com/tarmac-project/forwarder/host/mock"
	"github.com/tarmac-project/forwarder/logging"
	"github.com/tarmac-project/forwarder/proxy"
)

const (
	stateFlag    = "state"
	logLevelFlag = "log-level"
)

type app struct {
	statePath string
	logLevel  string

	logger hclog.Logger
	state  *State
}

// NewRootCommand builds the forwarderctl command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "forwarderctl",
		Short:         "Interact with a call forwarder deployed on a simulated chain",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.logger = hclog.New(&hclog.LoggerOptions{
				Name:   "forwarderctl",
				Level:  hclog.LevelFromString(a.logLevel),
				Output: cmd.ErrOrStderr(),
			})

			s, err := LoadState(a.statePath)
			if err != nil {
				return err
			}
			a.state = s
			a.logger.Debug("state loaded", "path", a.statePath, "forwarder", s.Forwarder)
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if err := a.state.Save(a.statePath); err != nil {
				return err
			}
			a.logger.Debug("state saved", "path", a.statePath)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.statePath, stateFlag, DefaultStateFile, "path of the state file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, logLevelFlag, "info", "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(
		deployCommand(a),
		fundCommand(a),
		targetCommand(a),
		balanceCommand(a),
		callCommand(a, callKind{use: "call", endpoint: contract.EndpointCall}),
		callCommand(a, callKind{use: "call-external", endpoint: contract.EndpointInternalTransfer, external: true}),
		callCommand(a, callKind{use: "call-held", endpoint: contract.EndpointTransfer, held: true}),
		callCommand(a, callKind{use: "call-hybrid", endpoint: contract.EndpointHybridTransfer, external: true, held: true}),
	)

	return rootCmd
}

// world rebuilds the simulated chain from the loaded state.
func (a *app) world() (*hostmock.World, error) {
	return a.state.World(a.forwarderFactory())
}

func (a *app) forwarderFactory() hostmock.Factory {
	return func(w *hostmock.World) (hostmock.Contract, error) {
		reg, err := continuation.New(w)
		if err != nil {
			return nil, err
		}
		fwd, err := proxy.New(proxy.Config{
			Host:          w,
			Continuations: reg,
			Logger:        hclogClient{a.logger.Named("forwarder")},
		})
		if err != nil {
			return nil, err
		}
		return contract.New(fwd)
	}
}

// hclogClient lets the forwarder log through hclog.
type hclogClient struct {
	l hclog.Logger
}

var _ logging.Client = hclogClient{}

func (c hclogClient) Info(msg string, kv ...any)  { c.l.Info(msg, kv...) }
func (c hclogClient) Warn(msg string, kv ...any)  { c.l.Warn(msg, kv...) }
func (c hclogClient) Error(msg string, kv ...any) { c.l.Error(msg, kv...) }
func (c hclogClient) Debug(msg string, kv ...any) { c.l.Debug(msg, kv...) }
func (c hclogClient) Trace(msg string, kv ...any) { c.l.Trace(msg, kv...) }

func (c hclogClient) With(kv ...any) logging.Client { return hclogClient{c.l.With(kv...)} }
