package dhcp

import "testing"

// TestJitterBoundGrowsWithTries locks in the try-dependent jitter shape:
// the value is bounded by 1<<(32-shift), and shift falls from 22-try
// (tries 0..2) to a flat 19 afterwards, so the bound doubles per try
// until try 3 and then stays constant.
func TestJitterBoundGrowsWithTries(t *testing.T) {
	var mac [6]byte = [6]byte{1, 2, 3, 4, 5, 6}
	sched := NewScheduler(mac, 0)

	bound := func(try int) uint32 {
		shift := uint(22 - try)
		if try > 2 {
			shift = 19
		}
		return uint32(1) << (32 - shift)
	}

	for try := 0; try <= 5; try++ {
		sched.tries = try
		for i := 0; i < 50; i++ {
			d := sched.Jitter()
			if uint32(d.Milliseconds()) >= bound(try) {
				t.Fatalf("try=%d: jitter %s exceeds bound implied by shift", try, d)
			}
		}
	}
}
