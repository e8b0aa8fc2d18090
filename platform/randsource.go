package platform

import "github.com/go-embedded/bootdhcp/internal"

// XorshiftRand is a [RandSource] backed by the teacher's xorshift
// generator, seeded from an interface's hardware address the same way
// original_source's srand_mac seeds libc rand().
type XorshiftRand struct {
	state uint32
}

func (r *XorshiftRand) Seed(mac [6]byte) {
	seed := uint32(mac[2])<<24 | uint32(mac[3])<<16 | uint32(mac[4])<<8 | uint32(mac[5])
	if seed == 0 {
		seed = 0x9e3779b9
	}
	r.state = seed
}

func (r *XorshiftRand) Uint32() uint32 {
	r.state = internal.Prand32(r.state)
	return r.state
}
