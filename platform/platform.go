// Package platform declares the external collaborators a [dhcp.Client]
// or [dhcp.Server] needs but never talks to directly: the transport, the
// clock, the jitter source, the environment store, and the post-boot
// auto-load step. Concrete implementations live in subpackages
// (udptransport) and in cmd/bootdhcp.
package platform

import "time"

// Transport sends a single already-encoded frame and reports the local
// port it is bound to. Receiving is left to the caller's event loop
// (a Transport has no Recv method because the engine never blocks
// waiting on one: it is handed bytes by whoever owns the socket).
type Transport interface {
	Send(frame []byte) error
	LocalPort() uint16
}

// Clock schedules a single pending callback, grounded on the single-
// timer-per-FSM model described in spec.md §5.
type Clock interface {
	NowMillis() uint32
	SetTimeout(d time.Duration, fn func())
	CancelTimeout()
}

// RandSource is the jitter source for pre-transmit delay, seeded from
// the interface's hardware address.
type RandSource interface {
	Seed(mac [6]byte)
	Uint32() uint32
}

// Env is the name/value store network parameters are copied into (an
// in-memory map, process environment variables, or a bootloader's own
// variable store), grounded on original_source's setenv/getenv calls in
// BootpCopyNetParams.
type Env interface {
	GetVar(name string) (string, bool)
	SetVar(name, value string)
}

// AutoLoader performs the post-configuration boot-file transfer (TFTP,
// NFS, ...). It is out of scope for this module (spec.md §1 Non-goals);
// callers that don't need it can use [NopAutoLoader].
type AutoLoader interface {
	Load() error
}

// NopAutoLoader is an AutoLoader that does nothing, for callers that
// only need address configuration.
type NopAutoLoader struct{}

func (NopAutoLoader) Load() error { return nil }
