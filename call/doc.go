// Package call defines the execution modes and the immutable request a
// forwarder hands to the host when it issues an outgoing call.
package call
