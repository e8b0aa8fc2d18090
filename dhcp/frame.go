package dhcp

import "encoding/binary"

// NewFrame returns a new DHCPv4/BOOTP Frame backed by buf. An error is
// returned if buf is too short to contain the options region header.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < minFrameSize {
		return Frame{}, errSmallFrame
	}
	return Frame{buf: buf}, nil
}

// Frame is a zero-copy view over a BOOTP/DHCPv4 message. No field is ever
// copied out of buf; accessors return pointers or slices into it.
//
// See [RFC 951] and [RFC 2131].
//
// [RFC 951]: https://tools.ietf.org/html/rfc951
// [RFC 2131]: https://tools.ietf.org/html/rfc2131
type Frame struct {
	buf []byte
}

// OptionsPayload returns the options region of the frame, magic cookie excluded.
func (frm Frame) OptionsPayload() []byte { return frm.buf[OptionsOffset:] }

func (frm Frame) Op() Op      { return Op(frm.buf[0]) }
func (frm Frame) SetOp(op Op) { frm.buf[0] = byte(op) }

func (frm Frame) Hardware() (htype, hlen, hops uint8) {
	return frm.buf[1], frm.buf[2], frm.buf[3]
}

func (frm Frame) SetHardware(htype, hlen, hops uint8) {
	frm.buf[1], frm.buf[2], frm.buf[3] = htype, hlen, hops
}

// XID is the transaction ID correlating a request with its replies.
func (frm Frame) XID() uint32       { return binary.BigEndian.Uint32(frm.buf[4:8]) }
func (frm Frame) SetXID(xid uint32) { binary.BigEndian.PutUint32(frm.buf[4:8], xid) }

func (frm Frame) Secs() uint16        { return binary.BigEndian.Uint16(frm.buf[8:10]) }
func (frm Frame) SetSecs(secs uint16) { binary.BigEndian.PutUint16(frm.buf[8:10], secs) }

func (frm Frame) Flags() Flags         { return Flags(binary.BigEndian.Uint16(frm.buf[10:12])) }
func (frm Frame) SetFlags(flags Flags) { binary.BigEndian.PutUint16(frm.buf[10:12], uint16(flags)) }

// CIAddr is the client's own IP address, valid once bound.
func (frm Frame) CIAddr() *[4]byte { return (*[4]byte)(frm.buf[12:16]) }

// YIAddr is "your" (client) IP address, set by the server in Offer/Ack.
func (frm Frame) YIAddr() *[4]byte { return (*[4]byte)(frm.buf[16:20]) }

// SIAddr is the next-server (bootstrap) IP address.
func (frm Frame) SIAddr() *[4]byte { return (*[4]byte)(frm.buf[20:24]) }

// GIAddr is the relay-agent (gateway) IP address.
func (frm Frame) GIAddr() *[4]byte { return (*[4]byte)(frm.buf[24:28]) }

// CHAddrAs6 returns the first 6 bytes of CHAddr, the common Ethernet case.
func (frm Frame) CHAddrAs6() *[6]byte { return (*[6]byte)(frm.buf[28:34]) }

// CHAddr is the client hardware address, up to 16 bytes.
func (frm Frame) CHAddr() *[16]byte { return (*[16]byte)(frm.buf[28:44]) }

// SName is the legacy 64-byte "server host name" field, NUL-trimmed.
func (frm Frame) SName() []byte { return trimNUL(frm.buf[sizeHeader : sizeHeader+sizeSName]) }

// SetSName writes s into the server host name field, truncating to fit.
func (frm Frame) SetSName(s []byte) {
	n := copy(frm.buf[sizeHeader:sizeHeader+sizeSName], s)
	clear(frm.buf[sizeHeader+n : sizeHeader+sizeSName])
}

// File is the legacy 128-byte "boot file name" field, NUL-trimmed.
func (frm Frame) File() []byte {
	start := sizeHeader + sizeSName
	return trimNUL(frm.buf[start : start+sizeBootFile])
}

// SetFile writes s into the boot file name field, truncating to fit.
func (frm Frame) SetFile(s []byte) {
	start := sizeHeader + sizeSName
	n := copy(frm.buf[start:start+sizeBootFile], s)
	clear(frm.buf[start+n : start+sizeBootFile])
}

func trimNUL(b []byte) []byte {
	if i := bytesIndexZero(b); i >= 0 {
		return b[:i]
	}
	return b
}

func bytesIndexZero(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}

// MagicCookie returns the 4 bytes preceding the options region; compare against [MagicCookie].
func (frm Frame) MagicCookie() uint32 { return binary.BigEndian.Uint32(frm.buf[magicCookieOffset:]) }

func (frm Frame) SetMagicCookie(cookie uint32) {
	binary.BigEndian.PutUint32(frm.buf[magicCookieOffset:], cookie)
}

// ClearHeader zeros every byte up to and including the magic cookie.
func (frm Frame) ClearHeader() {
	for i := range frm.buf[:OptionsOffset] {
		frm.buf[i] = 0
	}
}

// ForEachOption walks the TLV options region, calling fn with each
// option's byte offset (from the start of the options region), its tag
// and its data slice. Parsing halts without error at the End tag, at the
// end of buf, or at a record whose declared length would overrun buf
// (opt_start+2+len > options_end): that record and everything after it
// is treated the same as a missing End tag, not a protocol error.
// fn may be nil to only validate the option stream.
func (frm Frame) ForEachOption(fn func(off int, op OptNum, data []byte) error) error {
	ptr := OptionsOffset
	if ptr > len(frm.buf) {
		return errSmallFrame
	} else if len(frm.buf[ptr:]) == 0 {
		return errNoOptions
	}
	for ptr+1 < len(frm.buf) {
		optnum := OptNum(frm.buf[ptr])
		if optnum == OptEnd {
			break
		} else if optnum == OptPad {
			ptr++
			continue
		}
		optlen := int(frm.buf[ptr+1])
		if ptr+2+optlen > len(frm.buf) {
			break // overrun TLV: stop parsing as if End had been hit.
		}
		if fn != nil {
			off := ptr - OptionsOffset
			data := frm.buf[ptr+2 : ptr+2+optlen]
			if err := fn(off, optnum, data); err != nil {
				return err
			}
		}
		ptr += 2 + optlen
	}
	return nil
}
