package dhcp

import (
	"testing"
	"time"
)

func discoverFrame(t *testing.T, mac [6]byte, xid uint32) []byte {
	t.Helper()
	buf := make([]byte, 300)
	frm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	frm.SetOp(OpRequest)
	frm.SetHardware(1, 6, 0)
	frm.SetXID(xid)
	copy(frm.CHAddrAs6()[:], mac[:])
	frm.SetMagicCookie(MagicCookie)
	opts := frm.OptionsPayload()
	n, _ := EncodeOption(opts, OptMessageType, byte(MsgDiscover))
	opts[n] = byte(OptEnd)
	return buf
}

// TestServerGivesUpOnStaleClient exercises the give-up timer: a client
// that never follows its Discover with a Request within cfg.GiveUp is
// marked ServerTimedOut, and does not receive a late Offer afterwards.
func TestServerGivesUpOnStaleClient(t *testing.T) {
	var sv Server
	sv.Reset(ServerConfig{ServerAddr: [4]byte{10, 0, 0, 1}, GiveUp: 10 * time.Millisecond})

	mac := [6]byte{1, 2, 3, 4, 5, 6}
	if err := sv.Demux(discoverFrame(t, mac, 0x1234), 0); err != nil {
		t.Fatal(err)
	}

	sv.Tick(time.Now().Add(20 * time.Millisecond))

	var outbuf [1500]byte
	n, err := sv.Encapsulate(outbuf[:], 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected no reply for a timed-out client, got %d bytes", n)
	}
	if outcome, done := sv.Done(); !done || outcome != ServerTimedOut {
		t.Fatalf("expected Done()==(TimedOut,true), got (%v,%v)", outcome, done)
	}
}

// TestServerDoneTracksServedClient verifies Done() reports ServerServed
// once a client has been handed an Ack, and not before.
func TestServerDoneTracksServedClient(t *testing.T) {
	var sv Server
	sv.Reset(ServerConfig{ServerAddr: [4]byte{10, 0, 0, 1}})

	mac := [6]byte{1, 2, 3, 4, 5, 6}
	if err := sv.Demux(discoverFrame(t, mac, 0x1234), 0); err != nil {
		t.Fatal(err)
	}
	if _, done := sv.Done(); done {
		t.Fatal("should not be done after a single Discover")
	}

	var outbuf [1500]byte
	n, err := sv.Encapsulate(outbuf[:], 0)
	if err != nil || n == 0 {
		t.Fatalf("expected an Offer to be built, n=%d err=%v", n, err)
	}

	requestBuf := make([]byte, n)
	copy(requestBuf, outbuf[:n])
	reqFrm, err := NewFrame(requestBuf)
	if err != nil {
		t.Fatal(err)
	}
	reqFrm.SetOp(OpRequest)
	opts := reqFrm.OptionsPayload()
	w, _ := EncodeOption(opts, OptMessageType, byte(MsgRequest))
	opts[w] = byte(OptEnd)

	if err := sv.Demux(requestBuf, 0); err != nil {
		t.Fatal(err)
	}
	n, err = sv.Encapsulate(outbuf[:], 0)
	if err != nil || n == 0 {
		t.Fatalf("expected an Ack to be built, n=%d err=%v", n, err)
	}
	if outcome, done := sv.Done(); !done || outcome != ServerServed {
		t.Fatalf("expected Done()==(Served,true), got (%v,%v)", outcome, done)
	}
}

// TestServerTimesOutWithNoClients covers the session-level give-up when
// no Discover ever arrives.
func TestServerTimesOutWithNoClients(t *testing.T) {
	var sv Server
	sv.Reset(ServerConfig{ServerAddr: [4]byte{10, 0, 0, 1}, GiveUp: 5 * time.Millisecond})
	time.Sleep(10 * time.Millisecond)
	if outcome, done := sv.Done(); !done || outcome != ServerTimedOut {
		t.Fatalf("expected a session-level timeout, got (%v,%v)", outcome, done)
	}
}
