package dhcp

// boundedString is a fixed-capacity ASCII field. set truncates silently
// long values and reports whether truncation happened, matching
// original_source's "warn and keep the prefix" rule for host_name,
// bootfile and similar BOOTP string fields.
type boundedString struct {
	buf [128]byte
	n   int
}

// set copies s into the field, truncating to cap. Reports true if s was truncated.
func (b *boundedString) set(s string) (truncated bool) {
	cap := len(b.buf)
	if len(s) > cap {
		s = s[:cap]
		truncated = true
	}
	b.n = copy(b.buf[:], s)
	return truncated
}

func (b *boundedString) String() string { return string(b.buf[:b.n]) }

func (b *boundedString) empty() bool { return b.n == 0 }

// addr4 is an optional IPv4 value: a DHCP field the peer has not (yet)
// supplied must be distinguishable from an all-zeroes address.
type addr4 struct {
	addr  [4]byte
	valid bool
}

func (a *addr4) unpack() ([4]byte, bool) { return a.addr, a.valid }

func (a *addr4) set(addr [4]byte) { a.addr, a.valid = addr, true }

// setFromOption sets a from a 4-byte option payload, leaving a untouched
// (first-writer-wins) if data has the wrong length or a is already valid.
func (a *addr4) setFromOption(data []byte) {
	if a.valid || len(data) != 4 {
		return
	}
	a.set([4]byte(data))
}

// Sink is the single destination every option processor writes
// configuration into: it is the engine's NetworkParameterSink. It
// replaces any notion of package-level state: callers own one Sink per
// negotiation and pass it by pointer. Protocol-correlation state (the
// offered address, the responding server's own identity) lives on
// [Client] instead, since it's FSM bookkeeping rather than a network
// parameter to hand to the OS.
type Sink struct {
	Router         addr4
	Subnet         addr4
	LeaseSeconds   uint32
	MaxMessageSize uint16
	BootFileSize   uint32
	TimeOffset     int32

	HostName  boundedString
	RootPath  boundedString
	NISDomain boundedString
	BootFile  boundedString

	// DNS1/DNS2 hold the first two entries of the DNS list option (6); a
	// peer that advertises more is truncated to these two, matching
	// original_source's fixed dns1/dns2 BootpCopyNetParams fields.
	DNS1 addr4
	DNS2 addr4
	// NTPServer holds the single address carried by option 42.
	NTPServer addr4
}

// RouterAddr returns the router option value, if the peer sent one.
func (s *Sink) RouterAddr() ([4]byte, bool) { return s.Router.unpack() }

// SubnetAddr returns the subnet mask option value, if the peer sent one.
func (s *Sink) SubnetAddr() ([4]byte, bool) { return s.Subnet.unpack() }

// DNS1Addr returns the first DNS server option value, if the peer sent one.
func (s *Sink) DNS1Addr() ([4]byte, bool) { return s.DNS1.unpack() }

// DNS2Addr returns the second DNS server option value, if the peer sent one.
func (s *Sink) DNS2Addr() ([4]byte, bool) { return s.DNS2.unpack() }

// NTPServerAddr returns the NTP server option value, if the peer sent one.
func (s *Sink) NTPServerAddr() ([4]byte, bool) { return s.NTPServer.unpack() }
