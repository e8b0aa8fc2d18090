package dhcp

import (
	"encoding/binary"
	"log/slog"
)

// VendorHook lets a caller claim an option tag this package doesn't
// otherwise recognize, grounded on original_source's CONFIG_BOOTP_VENDOREX
// dhcp_vendorex_proc callback. It reports whether it consumed the option;
// when it returns false (or hook is nil), applyOption logs "unhandled
// option" instead, matching BootpOptionProcess's default-case printf.
type VendorHook func(op OptNum, data []byte) bool

// ApplyOptions walks frm's options region and writes recognized values
// into sink, applying "first writer wins": once a field holds a valid
// value from an earlier reply in the same exchange, a later option of
// the same kind is ignored rather than overwriting it. This mirrors
// [dhcpv4.Client.setOptions] in the teacher package.
//
// The fixed header's file field takes priority over option 67's vendor
// bootfile fallback, matching original_source's BootpCopyNetParams/
// BootpVendorFieldProcess ordering: a non-empty file field is copied in
// before the options are walked, so option 67 only ever fires when the
// header left it blank.
//
// hook is offered any tag ApplyOptions doesn't recognize; tags it
// explicitly ignores or handles elsewhere are not offered. It may be nil.
func ApplyOptions(frm Frame, sink *Sink, log *slog.Logger, hook VendorHook) error {
	if sink.BootFile.empty() {
		if file := frm.File(); len(file) > 0 {
			warnIfTruncated(log, "boot_file", sink.BootFile.set(string(file)))
		}
	}
	return frm.ForEachOption(func(_ int, op OptNum, data []byte) error {
		applyOption(sink, op, data, log, hook)
		return nil
	})
}

func applyOption(sink *Sink, op OptNum, data []byte, log *slog.Logger, hook VendorHook) {
	switch op {
	case OptIPAddressLeaseTime:
		if sink.LeaseSeconds == 0 {
			sink.LeaseSeconds = maybeU32(data)
		}
	case OptTimeOffset:
		if len(data) == 4 && sink.TimeOffset == 0 {
			sink.TimeOffset = int32(binary.BigEndian.Uint32(data))
		}
	case OptBootFileSize:
		if sink.BootFileSize != 0 {
			break
		}
		switch len(data) {
		case 2:
			sink.BootFileSize = uint32(binary.BigEndian.Uint16(data))
		case 4:
			sink.BootFileSize = binary.BigEndian.Uint32(data)
		}
	case OptBootFileName:
		// Fallback only: BootFile is normally filled from the fixed
		// header's file field by ApplyOptions before options are walked.
		// Some legacy peers leave that field empty and carry the name
		// here instead (original_source's BootpVendorFieldProcess case 67).
		if sink.BootFile.empty() {
			warnIfTruncated(log, "boot_file", sink.BootFile.set(string(data)))
		}
	case OptRouter:
		sink.Router.setFromOption(data)
	case OptSubnetMask:
		sink.Subnet.setFromOption(data)
	case OptMaximumMessageSize:
		if len(data) == 2 && sink.MaxMessageSize == 0 {
			sink.MaxMessageSize = binary.BigEndian.Uint16(data)
		}
	case OptHostName:
		if sink.HostName.empty() {
			warnIfTruncated(log, "host_name", sink.HostName.set(string(data)))
		}
	case OptRootPath:
		if sink.RootPath.empty() {
			warnIfTruncated(log, "root_path", sink.RootPath.set(string(data)))
		}
	case OptNISDomainName:
		if sink.NISDomain.empty() {
			warnIfTruncated(log, "nis_domain", sink.NISDomain.set(string(data)))
		}
	case OptDNSServers:
		if len(data)%4 != 0 || len(data) == 0 {
			return
		}
		sink.DNS1.setFromOption(data[0:4])
		if len(data) >= 8 {
			sink.DNS2.setFromOption(data[4:8])
		}
	case OptNTPServersAddresses:
		if len(data) >= 4 {
			sink.NTPServer.setFromOption(data[0:4])
		}
	// Explicitly ignored per the option table: renew/rebind time (58/59),
	// broadcast address (28), domain name (15) and TFTP server name (66)
	// are all accepted on the wire but never copied into Sink.
	case OptRenewTimeValue, OptRebindingTimeValue, OptBroadcastAddress, OptDomainName, OptTFTPServerName:
	// OptMessage (56) carries a server error string on NAK; Client.Demux
	// keeps it on the Client (Outcome reports OutcomeNacked) rather than
	// storing it on Sink.
	case OptMessageType, OptServerIdentification, OptRequestedIPaddress,
		OptParameterRequestList, OptClientIdentifier, OptMessage:
		// Handled elsewhere (getMessageType, Client.captureServerID,
		// request-side builders) or not applicable to a reply.
	default:
		if hook == nil || !hook(op, data) {
			if log != nil {
				log.Warn("unhandled option", slog.Int("tag", int(op)))
			}
		}
	}
}

// ApplyBootpVendor applies the legacy BOOTP "vendor extensions" field
// (the 64 bytes following sname/file when magic cookie is present there
// instead of at the DHCP options offset) using the same option table as
// ApplyOptions. Grounded on original_source's BootpVendorFieldProcess,
// which reuses its DHCP option dispatch for the BOOTP vendor field once
// the magic cookie is confirmed. A TLV that overruns vend halts parsing
// the same way [Frame.ForEachOption] does: without error.
func ApplyBootpVendor(vend []byte, sink *Sink, log *slog.Logger, hook VendorHook) error {
	if len(vend) < 4 {
		return errSmallFrame
	}
	if binary.BigEndian.Uint32(vend) != MagicCookie {
		return errBadMagicCookie
	}
	buf := vend[4:]
	ptr := 0
	for ptr+1 < len(buf) {
		op := OptNum(buf[ptr])
		if op == OptEnd {
			break
		} else if op == OptPad {
			ptr++
			continue
		}
		optlen := int(buf[ptr+1])
		if ptr+2+optlen > len(buf) {
			break
		}
		applyOption(sink, op, buf[ptr+2:ptr+2+optlen], log, hook)
		ptr += 2 + optlen
	}
	return nil
}

func warnIfTruncated(log *slog.Logger, field string, truncated bool) {
	if truncated && log != nil {
		log.Warn("dhcp option value truncated", slog.String("field", field))
	}
}

func maybeU32(b []byte) uint32 {
	if len(b) != 4 {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// getMessageType scans frm's options for OptMessageType and returns its
// value, or msgUndefined if absent or malformed. Grounded on
// [dhcpv4.Client.getMessageType], rewritten to scan every single-byte
// option rather than stopping at the first one found (the teacher's
// version has a documented bug, tested for in dhcp_test.go, where any
// single-byte option before option 53 is mistaken for the message type).
func getMessageType(frm Frame) MessageType {
	var found MessageType
	frm.ForEachOption(func(_ int, op OptNum, data []byte) error {
		if op == OptMessageType && len(data) == 1 {
			found = MessageType(data[0])
		}
		return nil
	})
	return found
}
