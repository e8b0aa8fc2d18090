package dhcp

import "errors"

// RejectCode is a numbered reason a frame failed the packet filter,
// mirroring original_source's BootpCheckPkt numbered rejects.
type RejectCode int

const (
	RejectNone         RejectCode = 0
	RejectTooShort     RejectCode = -1 // frame smaller than the fixed header.
	RejectBadOp        RejectCode = -2 // op field not acceptable for this FilterMode.
	RejectXIDMismatch  RejectCode = -3 // xid not in the outstanding set.
	RejectBadCookie    RejectCode = -4 // magic cookie absent or wrong.
	RejectBadHwLen     RejectCode = -5 // hardware address length mismatch.
	RejectNoOptions    RejectCode = -6 // no options region / no message type.
	RejectBadHwType    RejectCode = -7 // htype not Ethernet (1).
)

func (r RejectCode) String() string {
	switch r {
	case RejectNone:
		return "accepted"
	case RejectTooShort:
		return "frame too short"
	case RejectBadOp:
		return "bad op field"
	case RejectXIDMismatch:
		return "xid mismatch"
	case RejectBadCookie:
		return "bad magic cookie"
	case RejectBadHwLen:
		return "bad hardware address length"
	case RejectNoOptions:
		return "no options/message type"
	case RejectBadHwType:
		return "bad hardware address type"
	default:
		return "reject?"
	}
}

var (
	errClosed          = errors.New("dhcp: client/server not active")
	errUnexpectedState = errors.New("dhcp: unexpected state for operation")
	errNack            = errors.New("dhcp: server returned NAK")
	errBadMessageType  = errors.New("dhcp: missing or unacceptable message type")
	errHostnameTooLong = errors.New("dhcp: requested hostname too long")
	errClientIDTooLong = errors.New("dhcp: client identifier too long")
	errZeroXID         = errors.New("dhcp: zero xid")
)
