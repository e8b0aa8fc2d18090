package dhcp

import "math"

// FeatureSet toggles protocol dialects a [Client]/[Server] supports.
type FeatureSet struct {
	// DHCP enables RFC 2131 options (message type, parameter request
	// list, server identification, ...). When false, only the legacy
	// BOOTP header fields and vendor-extension field are used, matching
	// original_source's BootpExtended path.
	DHCP bool
	// PXE adds the client-architecture/NIC-ID/UUID option triplet
	// (93/94/97) to DHCP DISCOVERs, grounded on original_source's
	// DhcpExtended PXE block. No vendor-class-identifier (60) is sent.
	PXE bool
}

// PXEIdentity identifies a PXE-booting client. ClientArch (93) and
// ClientNIC (94) are always sent when PXE is enabled, zero values
// included; an all-zero ClientUUID omits option 97.
type PXEIdentity struct {
	ClientArch uint16
	ClientNIC  [3]byte // major, minor, type, RFC 4578 §2.1.
	ClientUUID [16]byte
}

var defaultParamReqList = []byte{
	byte(OptSubnetMask),
	byte(OptTimeOffset),
	byte(OptRouter),
	byte(OptInterfaceMTUSize),
	byte(OptBroadcastAddress),
	byte(OptDNSServers),
	byte(OptDomainName),
	byte(OptNTPServersAddresses),
}

// buildOptionsCommon appends the client-identifier and hostname options
// shared by every request state, matching the tail end of
// [dhcpv4.Client.Encapsulate].
func buildOptionsCommon(opts []byte, clientID []byte, hostname string) (int, error) {
	var n int
	w, err := EncodeOption(opts[n:], OptClientIdentifier, clientID...)
	n += w
	if err != nil {
		return n, err
	}
	if len(hostname) > 0 {
		w, err = EncodeOptionString(opts[n:], OptHostName, hostname)
		n += w
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// buildPXEOptions appends the PXE triplet (93/94/97), grounded on
// original_source's DhcpExtended, which sends these immediately after
// the vendor-class-identifier whenever the client was PXE-booted.
func buildPXEOptions(opts []byte, id PXEIdentity) (int, error) {
	var n int
	w, err := EncodeOption16(opts[n:], OptClientSystemArch, id.ClientArch)
	n += w
	if err != nil {
		return n, err
	}
	w, err = EncodeOption(opts[n:], OptClientNetworkIDIface, id.ClientNIC[0], id.ClientNIC[1], id.ClientNIC[2])
	n += w
	if err != nil {
		return n, err
	}
	if id.ClientUUID == [16]byte{} {
		return n, nil
	}
	w, err = EncodeOption(opts[n:], OptClientUUID, id.ClientUUID[:]...)
	n += w
	return n, err
}

// buildBootpExtensions builds the legacy BOOTP-only vendor extensions
// used when FeatureSet.DHCP is false: just a maximum-message-size
// option, encoded with original_source's BootpExtended bug preserved
// (see DESIGN.md Open Question 1): the value's high byte is produced by
// shifting right 16 bits instead of 8, so any maxlen above 0xff always
// encodes as zero in the high byte. This path exists only to remain
// wire-compatible with the exact legacy BOOTP peers the original
// implementation targeted; it must not be "corrected".
func buildBootpExtensions(opts []byte, maxlen uint16) (int, error) {
	hi := byte(uint32(maxlen) >> 16) // preserved bug: should be >>8.
	lo := byte(maxlen)
	return EncodeOption(opts, OptMaximumMessageSize, hi, lo)
}

// clampMaxMessageSize mirrors DhcpExtended's bounding of the advertised
// buffer size to a uint16 before encoding option 57.
func clampMaxMessageSize(bufLen int) uint16 {
	if bufLen > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(bufLen)
}
