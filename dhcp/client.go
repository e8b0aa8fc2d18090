package dhcp

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/go-embedded/bootdhcp/internal"
)

// RequestConfig configures a single client negotiation started by
// [Client.BeginRequest].
type RequestConfig struct {
	RequestedAddr      [4]byte
	ClientHardwareAddr [6]byte
	Hostname           string
	ClientID           string
	Features           FeatureSet
	PXE                PXEIdentity
	Filter             FilterMode
	// BootFilePrefix, if non-empty, filters OFFERs by the fixed header's
	// file field: an OFFER whose file does not start with this prefix is
	// silently dropped rather than accepted, matching original_source's
	// BootpExtended bootfile-prefix check in the SELECTING state.
	BootFilePrefix string
	// VendorHook, if non-nil, is offered every option tag ApplyOptions
	// doesn't itself recognize, grounded on original_source's
	// CONFIG_BOOTP_VENDOREX dhcp_vendorex_proc hook.
	VendorHook VendorHook
}

// Outcome is the terminal result of a client negotiation.
type Outcome uint8

const (
	OutcomePending Outcome = iota
	OutcomeBound
	OutcomeNacked
	OutcomeTimedOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeBound:
		return "bound"
	case OutcomeNacked:
		return "nacked"
	case OutcomeTimedOut:
		return "timed out"
	default:
		return "outcome?"
	}
}

// Client implements the C5 client state machine: INIT -> SELECTING ->
// REQUESTING -> BOUND. It is single-threaded and non-reentrant: none of
// its methods may be called concurrently. Grounded on [dhcpv4.Client], generalized
// to use an explicit [Sink] instead of private scattered fields and a
// bounded [xidSet] instead of a single currentXID.
type Client struct {
	connID      uint64
	reqHostname string
	clientID    []byte
	state       ClientState
	clientMAC   [6]byte
	outstanding xidSet
	currentXID  uint32
	offer       addr4
	svip        addr4 // server identifier.
	siip        addr4 // SIAddr of current reply.
	reqIP       addr4
	features    FeatureSet
	pxe         PXEIdentity
	filter      Filter
	outcome     Outcome
	nackMessage string
	bootFilePrefix string
	vendorHook     VendorHook

	Sink Sink
	Log  *slog.Logger

	auxbuf [4]byte
}

// Reset clears the negotiation state and increments the internal
// connection counter; the requested hostname and address, hardware
// address, client identifier and logger are kept.
func (c *Client) Reset() { c.reset(0) }

// BeginRequest starts a new negotiation, identified by the given xid.
func (c *Client) BeginRequest(xid uint32, cfg RequestConfig) error {
	if len(cfg.Hostname) > 36 {
		return errHostnameTooLong
	} else if c.state != StateInit && c.state != 0 {
		return errUnexpectedState
	} else if xid == 0 {
		return errZeroXID
	} else if len(cfg.ClientID) > 32 {
		return errClientIDTooLong
	}
	c.reset(xid)
	c.state = StateInit
	c.currentXID = xid
	c.outstanding.add(xid)
	c.reqHostname = cfg.Hostname
	c.reqIP = addr4{addr: cfg.RequestedAddr, valid: cfg.RequestedAddr != [4]byte{}}
	c.clientMAC = cfg.ClientHardwareAddr
	c.features = cfg.Features
	c.pxe = cfg.PXE
	c.filter = Filter{Mode: cfg.Filter}
	c.bootFilePrefix = cfg.BootFilePrefix
	c.vendorHook = cfg.VendorHook
	if cfg.ClientID != "" {
		c.clientID = append(c.clientID[:0], cfg.ClientID...)
	} else {
		c.clientID = append(c.clientID[:0], c.clientMAC[:]...)
	}
	return nil
}

// Rearm assigns a fresh xid to the in-flight attempt for a
// retransmission, keeping the previous xid acceptable too (the server
// may still be replying to it). Grounded on the retry invariant that
// every retransmission gets a new xid but all remain correlatable.
func (c *Client) Rearm(xid uint32) {
	c.currentXID = xid
	c.outstanding.add(xid)
}

func (c *Client) State() ClientState { return c.state }
func (c *Client) Outcome() Outcome   { return c.outcome }

func (c *Client) isClosed() bool { return c.state == 0 }

// Encapsulate writes the next outgoing frame, if any is due, into
// carrierFrame at frameOffset and returns its length. A zero length with
// a nil error means there is nothing to send right now (e.g. awaiting a
// reply).
func (c *Client) Encapsulate(carrierFrame []byte, frameOffset int) (int, error) {
	if c.isClosed() {
		return 0, errClosed
	}
	switch c.state {
	case StateSelecting:
		if !c.offer.valid {
			return 0, nil
		}
	case StateRequesting, StateBound:
		return 0, nil
	}
	dst := carrierFrame[frameOffset:]
	frm, err := NewFrame(dst)
	if err != nil {
		return 0, err
	}
	opts := frm.OptionsPayload()
	if len(opts) < 64 {
		return 0, errOptionNotFit
	}

	var nextState ClientState
	var n int
	switch c.state {
	case StateInit:
		if c.features.DHCP {
			w, _ := EncodeOption(opts[n:], OptMessageType, byte(MsgDiscover))
			n += w
			w, _ = EncodeOption(opts[n:], OptParameterRequestList, defaultParamReqList...)
			n += w
			w, _ = EncodeOption16(opts[n:], OptMaximumMessageSize, clampMaxMessageSize(len(dst)))
			n += w
			if c.reqIP.valid {
				w, _ = EncodeOption(opts[n:], OptRequestedIPaddress, c.reqIP.addr[:]...)
				n += w
			}
			if c.features.PXE {
				w, _ = buildPXEOptions(opts[n:], c.pxe)
				n += w
			}
		} else {
			w, _ := buildBootpExtensions(opts[n:], clampMaxMessageSize(len(dst)))
			n += w
		}
		nextState = StateSelecting

	case StateSelecting:
		w, _ := EncodeOption(opts[n:], OptMessageType, byte(MsgRequest))
		n += w
		w, _ = EncodeOption(opts[n:], OptRequestedIPaddress, c.offer.addr[:]...)
		n += w
		w, _ = EncodeOption(opts[n:], OptServerIdentification, c.svip.addr[:]...)
		n += w
		nextState = StateRequesting

	default:
		return 0, errUnexpectedState
	}
	if c.features.DHCP {
		w, err := buildOptionsCommon(opts[n:], c.clientID, c.reqHostname)
		n += w
		if err != nil {
			return 0, err
		}
	}
	opts[n] = byte(OptEnd)
	n++
	for n+4 < minExtensionLen && n < len(opts) {
		opts[n] = byte(OptPad)
		n++
	}
	c.setHeader(frm)
	c.state = nextState
	return OptionsOffset + n, nil
}

// Demux parses an incoming reply and advances the state machine.
func (c *Client) Demux(carrierData []byte, frameOffset int) error {
	if c.isClosed() {
		return errClosed
	}
	pkt := carrierData[frameOffset:]
	frm, err := NewFrame(pkt)
	if err != nil {
		return err
	}
	if rc := c.filter.CheckReply(frm, c.outstanding); rc != RejectNone {
		return rejectError(rc)
	}

	msgType := getMessageType(frm)
	if c.features.DHCP {
		if msgType == MsgNack {
			c.outcome = OutcomeNacked
			getMessageField(frm, &c.nackMessage)
			return errNack
		}
		if msgType != MsgOffer && msgType != MsgAck {
			return errBadMessageType
		}
	}
	if c.state == StateSelecting && c.bootFilePrefix != "" && !bytes.HasPrefix(frm.File(), []byte(c.bootFilePrefix)) {
		return nil // file prefix mismatch: drop silently, stay in StateSelecting.
	}
	if err := ApplyOptions(frm, &c.Sink, c.Log, c.vendorHook); err != nil {
		return err
	}
	c.captureServerID(frm)

	switch c.state {
	case StateSelecting:
		if !c.features.DHCP {
			// BOOTP: the single BOOTREPLY completes the exchange.
			c.offer.set(*frm.YIAddr())
			c.siip.set(*frm.SIAddr())
			c.state = StateBound
			c.outcome = OutcomeBound
		} else if msgType == MsgOffer {
			if !c.offer.valid {
				c.offer.set(*frm.YIAddr())
				c.siip.set(*frm.SIAddr())
				if c.Log != nil {
					c.Log.Debug("dhcp offer received", internal.SlogAddr4("offered", frm.YIAddr()))
				}
			}
		}
	case StateRequesting:
		if !c.features.DHCP || msgType == MsgAck {
			c.state = StateBound
			c.outcome = OutcomeBound
		}
	default:
		return errUnexpectedState
	}
	return nil
}

// captureServerID records OptServerIdentification, first-writer-wins.
// This is protocol-correlation state (who the client is negotiating
// with), not a network parameter, so it lives on Client rather than Sink.
func (c *Client) captureServerID(frm Frame) {
	if c.svip.valid {
		return
	}
	frm.ForEachOption(func(_ int, op OptNum, data []byte) error {
		if op == OptServerIdentification && len(data) == 4 {
			c.svip.setFromOption(data)
		}
		return nil
	})
}

func (c *Client) setHeader(frm Frame) {
	frm.ClearHeader()
	frm.SetOp(OpRequest)
	frm.SetXID(c.currentXID)
	frm.SetHardware(1, 6, 0)
	frm.SetSecs(1)
	if c.state.HasIP() {
		*frm.CIAddr() = c.offer.addr
	}
	if c.state != StateInit && c.siip.valid {
		*frm.SIAddr() = c.siip.addr
	}
	copy(frm.CHAddrAs6()[:], c.clientMAC[:])
	frm.SetMagicCookie(MagicCookie)
}

func (c *Client) reset(xid uint32) {
	*c = Client{
		connID:      c.connID + 1,
		reqHostname: c.reqHostname,
		currentXID:  xid,
		reqIP:       c.reqIP,
		clientMAC:   c.clientMAC,
		clientID:    c.clientID,
		Log:         c.Log,
	}
}

func rejectError(rc RejectCode) error {
	return fmt.Errorf("dhcp: reply rejected by filter: %s", rc)
}

func getMessageField(frm Frame, dst *string) {
	frm.ForEachOption(func(_ int, op OptNum, data []byte) error {
		if op == OptMessage {
			*dst = string(data)
		}
		return nil
	})
}
