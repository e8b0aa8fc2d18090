package dhcp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// TestClientServerDHCPRoundTrip exercises a full DISCOVER/OFFER/REQUEST/ACK
// exchange entirely in memory, grounded on [dhcpv4]'s TestClientServer.
func TestClientServerDHCPRoundTrip(t *testing.T) {
	var cl Client
	var sv Server
	mac := [6]byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}
	sv.Reset(ServerConfig{ServerAddr: [4]byte{192, 168, 1, 1}})

	const xid = 0x12345678
	err := cl.BeginRequest(xid, RequestConfig{
		ClientHardwareAddr: mac,
		Features:            FeatureSet{DHCP: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if cl.State() != StateInit {
		t.Fatalf("expected StateInit, got %s", cl.State())
	}

	var wire [1500]byte

	// Client -> Discover.
	n, err := cl.Encapsulate(wire[:], 0)
	if err != nil || n == 0 {
		t.Fatalf("discover encapsulate: n=%d err=%v", n, err)
	}
	if cl.State() != StateSelecting {
		t.Fatalf("expected StateSelecting after discover, got %s", cl.State())
	}

	// Server <- Discover, -> Offer.
	if err := sv.Demux(wire[:n], 0); err != nil {
		t.Fatalf("server demux discover: %v", err)
	}
	on, err := sv.Encapsulate(wire[:], 0)
	if err != nil || on == 0 {
		t.Fatalf("server encapsulate offer: n=%d err=%v", on, err)
	}

	// Client <- Offer.
	if err := cl.Demux(wire[:on], 0); err != nil {
		t.Fatalf("client demux offer: %v", err)
	}
	if cl.State() != StateSelecting {
		t.Fatalf("expected to remain StateSelecting after offer, got %s", cl.State())
	}

	// Client -> Request.
	n, err = cl.Encapsulate(wire[:], 0)
	if err != nil || n == 0 {
		t.Fatalf("request encapsulate: n=%d err=%v", n, err)
	}
	if cl.State() != StateRequesting {
		t.Fatalf("expected StateRequesting, got %s", cl.State())
	}

	// Server <- Request, -> Ack.
	if err := sv.Demux(wire[:n], 0); err != nil {
		t.Fatalf("server demux request: %v", err)
	}
	on, err = sv.Encapsulate(wire[:], 0)
	if err != nil || on == 0 {
		t.Fatalf("server encapsulate ack: n=%d err=%v", on, err)
	}

	// Client <- Ack.
	if err := cl.Demux(wire[:on], 0); err != nil {
		t.Fatalf("client demux ack: %v", err)
	}
	if cl.State() != StateBound {
		t.Fatalf("expected StateBound, got %s", cl.State())
	}
	if cl.Outcome() != OutcomeBound {
		t.Fatalf("expected OutcomeBound, got %s", cl.Outcome())
	}
	if addr, ok := cl.offer.unpack(); !ok || addr == [4]byte{} {
		t.Fatalf("expected a non-zero assigned address, got %v valid=%v", addr, ok)
	}
}

// TestClientBootpRequestOmitsDHCPOptions exercises the legacy BOOTP-only
// builder path (FeatureSet.DHCP == false): the request carries no
// message-type option (BOOTP has no DISCOVER/REQUEST distinction; the op
// field alone marks it a BOOTREQUEST) and encodes the maximum-message-size
// extension with the preserved legacy bug instead.
func TestClientBootpRequestOmitsDHCPOptions(t *testing.T) {
	var cl Client
	mac := [6]byte{1, 2, 3, 4, 5, 6}
	if err := cl.BeginRequest(1, RequestConfig{ClientHardwareAddr: mac}); err != nil {
		t.Fatal(err)
	}
	var wire [1500]byte
	n, err := cl.Encapsulate(wire[:], 0)
	if err != nil || n == 0 {
		t.Fatalf("discover: n=%d err=%v", n, err)
	}
	frm, err := NewFrame(wire[:n])
	if err != nil {
		t.Fatal(err)
	}
	var sawMessageType, sawMaxSize bool
	err = frm.ForEachOption(func(_ int, op OptNum, data []byte) error {
		switch op {
		case OptMessageType:
			sawMessageType = true
		case OptMaximumMessageSize:
			sawMaxSize = true
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if sawMessageType {
		t.Error("BOOTP request should not carry OptMessageType")
	}
	if !sawMaxSize {
		t.Error("BOOTP request should carry the legacy maximum-message-size extension")
	}
}

// TestEncapsulatePadsShortRequest locks in spec property 4: a bare BOOTP
// DISCOVER, whose real option content is only a few bytes, still comes
// out with at least minExtensionLen bytes from the magic cookie through
// End (inclusive of trailing Pad).
func TestEncapsulatePadsShortRequest(t *testing.T) {
	var cl Client
	mac := [6]byte{1, 2, 3, 4, 5, 6}
	if err := cl.BeginRequest(1, RequestConfig{ClientHardwareAddr: mac}); err != nil {
		t.Fatal(err)
	}
	var wire [1500]byte
	n, err := cl.Encapsulate(wire[:], 0)
	if err != nil || n == 0 {
		t.Fatalf("discover: n=%d err=%v", n, err)
	}
	if got := n - OptionsOffset + 4; got < minExtensionLen {
		t.Fatalf("expected extensions field >= %d bytes (cookie..End), got %d", minExtensionLen, got)
	}
}

// TestXIDOutstandingSetAcceptsRetriedAttempt verifies that a reply
// matching an earlier retransmission's xid is still acceptable, per the
// bounded outstanding-xid set invariant.
func TestXIDOutstandingSetAcceptsRetriedAttempt(t *testing.T) {
	var s xidSet
	s.add(1)
	s.add(2)
	s.add(3)
	if !s.contains(1) || !s.contains(2) || !s.contains(3) {
		t.Fatal("expected all three xids to be outstanding")
	}
	for i := uint32(4); i <= maxOutstandingXIDs+3; i++ {
		s.add(i)
	}
	if s.contains(1) {
		t.Fatal("expected oldest xid to be evicted once bound exceeded")
	}
}

// TestFilterPermissiveVsStrict locks in the two FilterMode behaviors
// (DESIGN.md Open Question 2 / spec S8).
func TestFilterPermissiveVsStrict(t *testing.T) {
	buf := make([]byte, OptionsOffset+1)
	frm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	frm.SetXID(42)
	frm.SetMagicCookie(MagicCookie)
	frm.SetHardware(1, 6, 0)
	frm.SetOp(Op(2 + MsgOffer)) // legacy overloaded opcode.

	var outstanding xidSet
	outstanding.add(42)

	strict := Filter{Mode: FilterStrict}
	if rc := strict.CheckReply(frm, outstanding); rc != RejectBadOp {
		t.Fatalf("strict mode: expected RejectBadOp, got %v", rc)
	}

	permissive := Filter{Mode: FilterPermissive}
	if rc := permissive.CheckReply(frm, outstanding); rc != RejectNone {
		t.Fatalf("permissive mode: expected RejectNone, got %v", rc)
	}
}

// TestBuildBootpExtensionsPreservesLegacyBug locks in the intentional
// option-57 high-byte bug in the BOOTP-only builder path (spec S7).
func TestBuildBootpExtensionsPreservesLegacyBug(t *testing.T) {
	buf := make([]byte, 16)
	n, err := buildBootpExtensions(buf, 1024) // 0x0400
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("expected 4 bytes written (tag,len,hi,lo), got %d", n)
	}
	hi, lo := buf[2], buf[3]
	if hi != 0 || lo != 0 {
		t.Fatalf("expected the preserved >>16 bug to yield hi=0 lo=0, got hi=%d lo=%d", hi, lo)
	}
}

// TestApplyOptionsFirstWriterWins replays two OFFERs carrying different
// option values into the same Sink and asserts the second is ignored,
// per spec property 5. Uses go-cmp for the struct-shaped comparison
// instead of a field-by-field check.
func TestApplyOptionsFirstWriterWins(t *testing.T) {
	mkOffer := func(router, subnet [4]byte, lease uint32) Frame {
		buf := make([]byte, 300)
		frm, err := NewFrame(buf)
		if err != nil {
			t.Fatal(err)
		}
		frm.SetMagicCookie(MagicCookie)
		opts := frm.OptionsPayload()
		var n int
		w, _ := EncodeOption(opts[n:], OptRouter, router[:]...)
		n += w
		w, _ = EncodeOption(opts[n:], OptSubnetMask, subnet[:]...)
		n += w
		w, _ = EncodeOption(opts[n:], OptIPAddressLeaseTime,
			byte(lease>>24), byte(lease>>16), byte(lease>>8), byte(lease))
		n += w
		opts[n] = byte(OptEnd)
		return frm
	}

	var sink Sink
	first := mkOffer([4]byte{192, 0, 2, 1}, [4]byte{255, 255, 255, 0}, 3600)
	second := mkOffer([4]byte{192, 0, 2, 99}, [4]byte{255, 255, 0, 0}, 7200)

	if err := ApplyOptions(first, &sink, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := ApplyOptions(second, &sink, nil, nil); err != nil {
		t.Fatal(err)
	}

	var want Sink
	if err := ApplyOptions(first, &want, nil, nil); err != nil {
		t.Fatal(err)
	}
	opts := cmp.Options{
		cmp.AllowUnexported(Sink{}, boundedString{}, addr4{}),
		cmpopts.EquateEmpty(),
	}
	if diff := cmp.Diff(want, sink, opts...); diff != "" {
		t.Fatalf("second OFFER clobbered first-writer-wins fields (-want +got):\n%s", diff)
	}
}

// TestBootFilePrefixDropsMismatchedOffer exercises spec scenario S3.
func TestBootFilePrefixDropsMismatchedOffer(t *testing.T) {
	mkOffer := func(file string) (Frame, []byte) {
		buf := make([]byte, 300)
		frm, err := NewFrame(buf)
		if err != nil {
			t.Fatal(err)
		}
		frm.SetOp(OpReply)
		frm.SetHardware(1, 6, 0)
		frm.SetFile([]byte(file))
		frm.SetMagicCookie(MagicCookie)
		opts := frm.OptionsPayload()
		opts[0] = byte(OptEnd)
		return frm, buf
	}

	var cl Client
	if err := cl.BeginRequest(1, RequestConfig{BootFilePrefix: "vmlinuz"}); err != nil {
		t.Fatal(err)
	}
	cl.outstanding.add(1) // pretend a Discover with xid 1 is already in flight.
	cl.state = StateSelecting

	mismatched, buf := mkOffer("grub")
	mismatched.SetXID(1)
	if err := cl.Demux(buf, 0); err != nil {
		t.Fatalf("mismatched offer should be dropped silently, got error: %v", err)
	}
	if cl.offer.valid {
		t.Fatal("prefix-mismatched offer must not be accepted")
	}

	accepted, buf2 := mkOffer("vmlinuz-5")
	accepted.SetXID(1)
	if err := cl.Demux(buf2, 0); err != nil {
		t.Fatalf("matching offer: %v", err)
	}
	if !cl.offer.valid {
		t.Fatal("expected the prefix-matching offer to be accepted")
	}
}

// TestVendorBootFileFallback exercises spec scenario S5: an empty file
// field falls back to option 67.
func TestVendorBootFileFallback(t *testing.T) {
	buf := make([]byte, 300)
	frm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	frm.SetMagicCookie(MagicCookie) // file field left empty.
	opts := frm.OptionsPayload()
	n, _ := EncodeOptionString(opts, OptBootFileName, "netboot.img")
	opts[n] = byte(OptEnd)

	var sink Sink
	if err := ApplyOptions(frm, &sink, nil, nil); err != nil {
		t.Fatal(err)
	}
	if got := sink.BootFile.String(); got != "netboot.img" {
		t.Fatalf("expected vendor bootfile fallback, got %q", got)
	}
}

func TestEncodeOption16CorrectEncoding(t *testing.T) {
	buf := make([]byte, 16)
	n, err := EncodeOption16(buf, OptMaximumMessageSize, 1024)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 || buf[2] != 0x04 || buf[3] != 0x00 {
		t.Fatalf("expected correct big-endian 0x0400, got % x", buf[:n])
	}
}
