package dhcp

// Filter validates a received frame before the FSM touches it, grounded
// on original_source's BootpCheckPkt numbered-reject design (see
// DESIGN.md Open Question 2 for the op-field decision).
type Filter struct {
	Mode FilterMode
}

// CheckReply validates frm as a candidate server reply to a request
// carrying one of the xids in outstanding. It does not consult message
// type; callers combine this with getMessageType as needed.
func (f Filter) CheckReply(frm Frame, outstanding xidSet) RejectCode {
	if !outstanding.contains(frm.XID()) {
		return RejectXIDMismatch
	}
	switch f.Mode {
	case FilterPermissive:
		if !legacyOpcodeSet[frm.Op()] {
			return RejectBadOp
		}
	default:
		if frm.Op() != OpReply {
			return RejectBadOp
		}
	}
	if frm.MagicCookie() != MagicCookie {
		return RejectBadCookie
	}
	if htype, _, _ := frm.Hardware(); htype != 1 {
		return RejectBadHwType
	}
	return RejectNone
}

// CheckRequest validates frm as a candidate client request arriving at a server.
func (f Filter) CheckRequest(frm Frame) RejectCode {
	if frm.Op() != OpRequest && f.Mode == FilterStrict {
		return RejectBadOp
	}
	if frm.MagicCookie() != MagicCookie {
		return RejectBadCookie
	}
	htype, hlen, _ := frm.Hardware()
	if htype != 1 {
		return RejectBadHwType
	}
	if hlen != 6 {
		return RejectBadHwLen
	}
	return RejectNone
}
