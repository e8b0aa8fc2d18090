// Package dhcp implements the BOOTP/DHCPv4 wire protocol and the client
// and server state machines built on top of it. It is transport-agnostic:
// callers hand it a buffer and an offset and get back byte counts, the
// same way [Client.Encapsulate] and [Client.Demux] work in the packages
// this module is built from.
package dhcp

import "errors"

const (
	sizeHeader   = 44  // op..chaddr, fixed BOOTP header.
	sizeSName    = 64  // Server host name, legacy BOOTP field.
	sizeBootFile = 128 // Boot file name, legacy BOOTP field.

	// magicCookieOffset is measured from the start of the UDP payload.
	magicCookieOffset = sizeHeader + sizeSName + sizeBootFile
	// MagicCookie is the expected value of the 4 bytes preceding the options region.
	MagicCookie uint32 = 0x63825363
	// OptionsOffset is the start of the options region, measured from the start of the UDP payload.
	OptionsOffset = magicCookieOffset + 4

	DefaultClientPort = 68
	DefaultServerPort = 67

	minFrameSize = OptionsOffset

	// minExtensionLen is the minimum size, counted from the magic cookie
	// through End inclusive, of a client DISCOVER/REQUEST's extensions
	// field. Grounded on original_source's CONFIG_DHCP_MIN_EXT_LEN: short
	// requests are padded with zero (Pad) bytes after End to reach it,
	// for compatibility with legacy servers that assume a fixed-size
	// vendor field.
	minExtensionLen = 64
)

// Op is the BOOTP opcode, the very first byte of every frame.
type Op uint8

const (
	opUndefined Op = iota
	OpRequest      // BOOTREQUEST, sent by clients.
	OpReply        // BOOTREPLY, sent by servers.
)

func (o Op) String() string {
	switch o {
	case OpRequest:
		return "BOOTREQUEST"
	case OpReply:
		return "BOOTREPLY"
	default:
		return "op?"
	}
}

// MessageType is the value of [OptMessageType] (option 53).
type MessageType uint8

const (
	msgUndefined MessageType = iota
	MsgDiscover
	MsgOffer
	MsgRequest
	MsgDecline
	MsgAck
	MsgNack
	MsgRelease
	MsgInform
)

func (m MessageType) String() string {
	switch m {
	case MsgDiscover:
		return "DISCOVER"
	case MsgOffer:
		return "OFFER"
	case MsgRequest:
		return "REQUEST"
	case MsgDecline:
		return "DECLINE"
	case MsgAck:
		return "ACK"
	case MsgNack:
		return "NAK"
	case MsgRelease:
		return "RELEASE"
	case MsgInform:
		return "INFORM"
	default:
		return "msgtype?"
	}
}

// ClientState is the client and server negotiation state.
//
//	StateInit      -> | send Discover/Request | -> StateSelecting
//	StateSelecting -> |  accept Offer, Request | -> StateRequesting
//	StateRequesting-> |      receive Ack       | -> StateBound
//
// Transitions are monotonic: the only way back to StateInit is a fresh
// [Client.BeginRequest] call, never an implicit rollback.
type ClientState uint8

const (
	_ ClientState = iota
	StateInit
	StateSelecting
	StateRequesting
	StateBound
)

func (s ClientState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateSelecting:
		return "selecting"
	case StateRequesting:
		return "requesting"
	case StateBound:
		return "bound"
	default:
		return "state?"
	}
}

// HasIP reports whether the client has a usable CIAddr by this state.
func (s ClientState) HasIP() bool { return s >= StateRequesting }

// Flags is the BOOTP flags field; only the broadcast bit is defined.
type Flags uint16

const FlagBroadcast Flags = 0x8000

// OptNum identifies a DHCP/BOOTP vendor option.
type OptNum uint8

const (
	OptPad                   OptNum = 0
	OptSubnetMask            OptNum = 1
	OptTimeOffset            OptNum = 2
	OptRouter                OptNum = 3
	OptTimeServers           OptNum = 4
	OptNameServers           OptNum = 5
	OptDNSServers            OptNum = 6
	OptLogServers            OptNum = 7
	OptHostName              OptNum = 12
	OptBootFileSize          OptNum = 13
	OptDomainName            OptNum = 15
	OptRootPath              OptNum = 17
	OptInterfaceMTUSize      OptNum = 26
	OptBroadcastAddress      OptNum = 28
	OptNISDomainName         OptNum = 40
	OptNTPServersAddresses   OptNum = 42
	OptVendorSpecific        OptNum = 43
	OptRequestedIPaddress    OptNum = 50
	OptIPAddressLeaseTime    OptNum = 51
	OptOptionOverload        OptNum = 52
	OptMessageType           OptNum = 53
	OptServerIdentification  OptNum = 54
	OptParameterRequestList  OptNum = 55
	OptMessage               OptNum = 56
	OptMaximumMessageSize    OptNum = 57
	OptRenewTimeValue        OptNum = 58
	OptRebindingTimeValue    OptNum = 59
	OptTFTPServerName        OptNum = 66
	OptVendorClassIdentifier OptNum = 60
	OptClientIdentifier      OptNum = 61
	OptBootFileName          OptNum = 67 // vendor-carried fallback for the fixed header's file field.
	OptClientSystemArch      OptNum = 93 // PXE.
	OptClientNetworkIDIface  OptNum = 94 // PXE.
	OptClientUUID            OptNum = 97 // PXE.
	OptEnd                   OptNum = 255
)

// FilterMode selects how [Client] and [Server] validate the op field of
// an incoming frame. See DESIGN.md Open Question 2.
type FilterMode uint8

const (
	// FilterStrict requires op to be exactly the opcode appropriate for
	// the direction of travel; message type is read only from option 53.
	FilterStrict FilterMode = iota
	// FilterPermissive additionally accepts a DHCP message-type constant
	// in the op field, matching legacy BOOTP-era firmware behavior.
	FilterPermissive
)

// legacyOpcodeSet are the additional op-field values FilterPermissive
// accepts for a server reply, besides OpReply itself.
var legacyOpcodeSet = map[Op]bool{
	OpReply:            true,
	Op(2 + MsgOffer):   true, // historically conflated with DHCPOFFER.
	Op(2 + MsgAck):     true, // historically conflated with DHCPACK.
	Op(2 + MsgNack):    true, // historically conflated with DHCPNAK.
}

var (
	errSmallFrame     = errors.New("dhcp: frame shorter than options offset")
	errNoOptions      = errors.New("dhcp: no options region")
	errOptionNotFit   = errors.New("dhcp: options don't fit in buffer")
	errBadMagicCookie = errors.New("dhcp: bad magic cookie")
)

// EncodeOption writes a single TLV option (tag, length, data) into dst
// and returns the number of bytes written.
func EncodeOption(dst []byte, opt OptNum, data ...byte) (int, error) {
	if len(data) > 255 {
		return 0, errors.New("dhcp: option data too long")
	} else if len(dst) < 2+len(data) {
		return 0, errOptionNotFit
	}
	dst[0] = byte(opt)
	dst[1] = byte(len(data))
	copy(dst[2:], data)
	return 2 + len(data), nil
}

// EncodeOption16 writes a single TLV option whose payload is a big-endian uint16.
func EncodeOption16(dst []byte, opt OptNum, v uint16) (int, error) {
	return EncodeOption(dst, opt, byte(v>>8), byte(v))
}

// EncodeOptionString writes a single TLV option whose payload is the raw bytes of s.
func EncodeOptionString(dst []byte, opt OptNum, s string) (int, error) {
	return EncodeOption(dst, opt, []byte(s)...)
}
