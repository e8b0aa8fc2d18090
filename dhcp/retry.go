package dhcp

import (
	"time"

	"github.com/go-embedded/bootdhcp/internal"
)

// maxOutstandingXIDs bounds the retry-attempt correlation set: one xid
// per retransmission, oldest discarded first.
const maxOutstandingXIDs = 4

// xidSet is the bounded set of transaction IDs a client will still
// accept a reply for: every retransmitted Discover/Request gets its own
// xid (so stray replies to an earlier attempt are not silently merged
// with a later one's state), and the most recent maxOutstandingXIDs of
// them remain acceptable; adding one more evicts the oldest.
type xidSet struct {
	ids [maxOutstandingXIDs]uint32
	n   int
}

func (s *xidSet) reset() { s.n = 0 }

func (s *xidSet) add(xid uint32) {
	if s.n == len(s.ids) {
		copy(s.ids[:], s.ids[1:])
		s.n--
	}
	s.ids[s.n] = xid
	s.n++
}

func (s *xidSet) contains(xid uint32) bool {
	for i := 0; i < s.n; i++ {
		if s.ids[i] == xid {
			return true
		}
	}
	return false
}

// Scheduler decides when the next (re)transmission is due and adds
// random pre-transmit jitter, grounded on original_source's BootpRequest
// busy-wait (a try-dependent right shift of rand(), see [Scheduler.Jitter],
// seeded from the client's own MAC address via srand_mac) reimplemented with the
// teacher's internal.Prand32 xorshift generator instead of libc rand(),
// and on internal.Backoff for the exponential interval shape (via the
// BackoffDHCPRetry priority: 1s floor, 64s ceiling).
type Scheduler struct {
	backoff internal.Backoff
	rand    uint32
	tries   int
	maxTry  int
}

// NewScheduler seeds the jitter source from mac, matching
// original_source's srand_mac and giving two clients on the same
// network distinct retry phase even if they boot in lock-step.
func NewScheduler(mac [6]byte, maxRetries int) Scheduler {
	seed := uint32(mac[2])<<24 | uint32(mac[3])<<16 | uint32(mac[4])<<8 | uint32(mac[5])
	if seed == 0 {
		seed = 0x9e3779b9 // xorshift needs a non-zero seed.
	}
	return Scheduler{backoff: internal.NewBackoff(internal.BackoffDHCPRetry), rand: seed, maxTry: maxRetries}
}

// Jitter returns a pseudo-random delay to add before the next
// transmission, so that many clients booting simultaneously don't
// collide on the wire. The upper bound of the delay grows with the
// attempt count, matching original_source's BootpRequest jitter
// (`rand() >> (22 - try)` for the first three attempts, `rand() >> 19`
// thereafter): below 1024ms at try 0, doubling each try up to below
// 8192ms from try 3 on.
func (s *Scheduler) Jitter() time.Duration {
	s.rand = internal.Prand32(s.rand)
	try := s.tries
	shift := uint(22 - try)
	if try > 2 {
		shift = 19
	}
	return time.Duration(s.rand>>shift) * time.Millisecond
}

// NextInterval returns the delay before the next retransmission is due
// and reports whether retries are exhausted (Exhausted == true means the
// caller should fail the exchange rather than send again, matching
// original_source's BootpTimeout giving up after a bounded number of
// attempts).
func (s *Scheduler) NextInterval() (wait time.Duration, exhausted bool) {
	s.tries++
	if s.maxTry > 0 && s.tries > s.maxTry {
		return 0, true
	}
	return s.backoff.Advance(), false
}

// Reset restarts the backoff and attempt counter for a fresh exchange.
func (s *Scheduler) Reset() {
	s.backoff.Hit()
	s.tries = 0
}
