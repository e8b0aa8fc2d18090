package dhcp

import (
	"log/slog"
	"net/netip"
	"time"

	"github.com/go-embedded/bootdhcp/internal"
)

// ServerConfig configures a [Server] instance.
type ServerConfig struct {
	ServerAddr [4]byte
	// Gateway is only carried in the reply's GIAddr header field, never
	// as a Router(3) option: spec scenario S6 fixes the OFFER/ACK option
	// sequence at exactly {53, 54, 51, 1, 255}.
	Gateway   [4]byte
	Subnet    [4]byte
	LeaseTime time.Duration
	// GiveUp bounds how long a client entry may sit in a non-terminal
	// state before the server abandons it, matching original_source's
	// dhcpserver_to_handler 10-second give-up timer (absent from the
	// teacher's Server, which never times out a pending client).
	GiveUp time.Duration
}

const (
	defaultGiveUp       = 10 * time.Second
	defaultLeaseSeconds = 86409
)

// ServerOutcome is the terminal per-client result tracked by [Server].
type ServerOutcome uint8

const (
	ServerPending ServerOutcome = iota
	ServerServed
	ServerTimedOut
)

// serverEntry is one client's negotiation state, grounded on
// [dhcpv4.serverEntry].
type serverEntry struct {
	hostname    string
	xid         uint32
	addr        [4]byte
	hwaddr      [6]byte
	state       ClientState
	outcome     ServerOutcome
	lastSeen    time.Time
}

// Server implements the C6 server state machine:
// WAITFORDISCOVER -> WAITFORREQUEST -> terminal (Served/TimedOut).
// Grounded on [dhcpv4.Server], generalized with a give-up timer absent
// from the teacher but present in original_source's dhcpserver_to_handler.
type Server struct {
	connID    uint64
	cfg       ServerConfig
	nextAddr  netip.Addr
	hosts     map[[36]byte]serverEntry
	pending   int
	filter    Filter
	started   time.Time
	sawClient bool
	Log       *slog.Logger
}

// Reset clears all bound clients and begins handing out addresses from
// the address immediately after cfg.ServerAddr.
func (sv *Server) Reset(cfg ServerConfig) {
	if cfg.GiveUp == 0 {
		cfg.GiveUp = defaultGiveUp
	}
	*sv = Server{
		connID:   sv.connID + 1,
		cfg:      cfg,
		nextAddr: netip.AddrFrom4(cfg.ServerAddr),
		hosts:    make(map[[36]byte]serverEntry, 8),
		started:  sv.now(),
		Log:      sv.Log,
	}
}

// Demux parses an incoming client message and updates per-client state.
func (sv *Server) Demux(carrierData []byte, frameOffset int) error {
	dhcpData := carrierData[frameOffset:]
	dfrm, err := NewFrame(dhcpData)
	if err != nil {
		return err
	}
	if rc := sv.filter.CheckRequest(dfrm); rc != RejectNone {
		return rejectError(rc)
	}

	var msgType MessageType
	var clientID []byte
	var hostname []byte
	err = dfrm.ForEachOption(func(_ int, op OptNum, data []byte) error {
		switch op {
		case OptMessageType:
			if len(data) == 1 {
				msgType = MessageType(data[0])
			}
		case OptHostName:
			if len(data) <= 36 {
				hostname = data
			}
		case OptClientIdentifier:
			if len(data) <= 36 {
				clientID = data
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	var clientIDRaw [36]byte
	if len(clientID) > 0 {
		copy(clientIDRaw[:], clientID)
	} else {
		copy(clientIDRaw[:], dfrm.CHAddrAs6()[:])
	}
	client, exists := sv.hosts[clientIDRaw]

	switch msgType {
	case MsgDiscover:
		sv.sawClient = true
		if exists && client.state != 0 {
			return nil // Duplicate Discover for an active client, ignore.
		}
		sv.nextAddr = sv.nextAddr.Next()
		client.addr = sv.nextAddr.As4()
		client.state = StateInit
		client.hostname = string(hostname)
		client.xid = dfrm.XID()
		client.hwaddr = *dfrm.CHAddrAs6()
		client.outcome = ServerPending
		client.lastSeen = sv.now()
		sv.pending++
		if sv.Log != nil {
			sv.Log.Debug("dhcp discover received", internal.SlogAddr6("client", dfrm.CHAddrAs6()))
		}

	case MsgRequest:
		if !exists {
			return errUnexpectedState
		} else if dfrm.XID() != client.xid {
			return errUnexpectedState
		} else if client.state != StateInit && client.state != StateSelecting {
			return errUnexpectedState
		}
		client.state = StateRequesting
		client.lastSeen = sv.now()
		sv.pending++

	default:
		return errBadMessageType
	}
	sv.hosts[clientIDRaw] = client
	return nil
}

// Encapsulate writes the next pending reply (Offer or Ack), if any, into
// carrierData at offsetToFrame and returns its length.
func (sv *Server) Encapsulate(carrierData []byte, offsetToFrame int) (int, error) {
	dfrm, err := NewFrame(carrierData[offsetToFrame:])
	if err != nil {
		return 0, err
	}
	optBuf := dfrm.OptionsPayload()
	if len(optBuf) < 64 {
		return 0, errOptionNotFit
	}
	if sv.pending == 0 {
		return 0, nil
	}

	var client serverEntry
	var clientID [36]byte
	found := false
	for k, v := range sv.hosts {
		if v.outcome == ServerPending && (v.state == StateInit || v.state == StateRequesting) {
			client, clientID, found = v, k, true
			break
		}
	}
	if !found {
		return 0, nil
	}

	var nextState ClientState
	var msgType MessageType
	var n int
	switch client.state {
	case StateInit:
		nextState, msgType = StateSelecting, MsgOffer
	case StateRequesting:
		nextState, msgType = StateBound, MsgAck
	}
	w, err := EncodeOption(optBuf[n:], OptMessageType, byte(msgType))
	n += w
	if err != nil {
		return 0, err
	}
	w, _ = EncodeOption(optBuf[n:], OptServerIdentification, sv.cfg.ServerAddr[:]...)
	n += w
	leaseSecs := uint32(sv.cfg.LeaseTime / time.Second)
	if leaseSecs == 0 {
		leaseSecs = defaultLeaseSeconds
	}
	w, _ = EncodeOption(optBuf[n:], OptIPAddressLeaseTime,
		byte(leaseSecs>>24), byte(leaseSecs>>16), byte(leaseSecs>>8), byte(leaseSecs))
	n += w
	// Options end here, exactly {53, 54, 51, 1, 255}: Gateway is only
	// carried in the header (GIAddr below), never as a Router(3) option,
	// and no DNS(6) option is sent, matching spec scenario S6's fixed
	// reply shape.
	w, _ = EncodeOption(optBuf[n:], OptSubnetMask, sv.cfg.Subnet[:]...)
	n += w
	optBuf[n] = byte(OptEnd)
	n++

	dfrm.ClearHeader()
	dfrm.SetOp(OpReply)
	dfrm.SetHardware(1, 6, 0)
	dfrm.SetXID(client.xid)
	*dfrm.YIAddr() = client.addr
	*dfrm.SIAddr() = sv.cfg.ServerAddr
	*dfrm.GIAddr() = sv.cfg.Gateway
	copy(dfrm.CHAddrAs6()[:], client.hwaddr[:])
	dfrm.SetMagicCookie(MagicCookie)

	client.state = nextState
	if nextState == StateBound {
		client.outcome = ServerServed
	}
	sv.hosts[clientID] = client
	sv.pending--
	return OptionsOffset + n, nil
}

// Tick advances any give-up timers, transitioning clients that have sat
// in a pending state past cfg.GiveUp into ServerTimedOut. Grounded on
// original_source's dhcpserver_to_handler, which is absent from the
// teacher's Server entirely.
func (sv *Server) Tick(now time.Time) {
	for k, v := range sv.hosts {
		if v.outcome != ServerPending {
			continue
		}
		if now.Sub(v.lastSeen) >= sv.cfg.GiveUp {
			v.outcome = ServerTimedOut
			// Only StateInit (Offer not yet sent) and StateRequesting (Ack
			// not yet sent) hold an uncollected pending credit; StateSelecting
			// already had its credit consumed when the Offer went out.
			if v.state == StateInit || v.state == StateRequesting {
				sv.pending--
			}
			sv.hosts[k] = v
		}
	}
}

// OutcomeFor reports the terminal outcome of the client identified by id, if known.
func (sv *Server) OutcomeFor(clientID [36]byte) (ServerOutcome, bool) {
	e, ok := sv.hosts[clientID]
	if !ok {
		return 0, false
	}
	return e.outcome, true
}

// Done reports whether any client has reached a terminal outcome
// (Served or TimedOut), matching the one-shot C6 session model: the
// caller's network loop exits as soon as a single peer has been served
// or given up on, rather than serving indefinitely.
func (sv *Server) Done() (ServerOutcome, bool) {
	if !sv.sawClient && sv.now().Sub(sv.started) >= sv.cfg.GiveUp {
		return ServerTimedOut, true // no DISCOVER arrived at all within the give-up window.
	}
	for _, v := range sv.hosts {
		if v.outcome == ServerServed || v.outcome == ServerTimedOut {
			return v.outcome, true
		}
	}
	return ServerPending, false
}

func (sv *Server) now() time.Time { return time.Now() }
