package main

import (
	"errors"
	"fmt"

	hostmock "github.com/tarmac-project/forwarder/host/mock"
)

// Target behaviours.
const (
	BehaviourAccept = "accept"
	BehaviourFail   = "fail"
	BehaviourEcho   = "echo"
)

var (
	// ErrTargetFailed is returned by targets with the fail behaviour.
	ErrTargetFailed = errors.New("target failed")

	// ErrUnknownBehaviour is returned for a behaviour name that is not
	// accept, fail or echo.
	ErrUnknownBehaviour = errors.New("unknown target behaviour")
)

func behaviour(name string) (hostmock.TargetFunc, error) {
	switch name {
	case BehaviourAccept, "":
		return func(hostmock.Invocation) ([][]byte, error) { return nil, nil }, nil
	case BehaviourFail:
		return func(hostmock.Invocation) ([][]byte, error) { return nil, ErrTargetFailed }, nil
	case BehaviourEcho:
		return func(inv hostmock.Invocation) ([][]byte, error) { return inv.Arguments, nil }, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBehaviour, name)
}
