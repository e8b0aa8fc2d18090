package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/subcommands"

	"github.com/go-embedded/bootdhcp/dhcp"
	"github.com/go-embedded/bootdhcp/platform"
	"github.com/go-embedded/bootdhcp/platform/udptransport"
)

// clientCmdBase holds the flags shared by the bootp and dhcp subcommands.
type clientCmdBase struct {
	iface          string
	hostname       string
	bootFilePrefix string
	timeout        time.Duration
	retries        int
}

func (c *clientCmdBase) SetCommonFlags(f *flag.FlagSet) {
	f.StringVar(&c.iface, "iface", "", "network interface name to request an address for")
	f.StringVar(&c.hostname, "hostname", "", "hostname to request from the server")
	f.StringVar(&c.bootFilePrefix, "bootfile-prefix", "", "drop OFFERs whose boot filename doesn't start with this")
	f.DurationVar(&c.timeout, "timeout", 30*time.Second, "overall negotiation timeout")
	f.IntVar(&c.retries, "retries", 4, "number of reply waits before giving up (0: no limit); a DISCOVER or REQUEST is sent once and not resent")
}

func (c *clientCmdBase) run(ctx context.Context, features dhcp.FeatureSet) error {
	mac, err := hardwareAddr(c.iface)
	if err != nil {
		return err
	}
	xport, err := udptransport.New(dhcp.DefaultClientPort, net.IPv4bcast, dhcp.DefaultServerPort)
	if err != nil {
		return fmt.Errorf("opening broadcast socket: %w", err)
	}
	defer xport.Close()

	env := platform.NewProcessEnv("BOOTDHCP_")
	hostname := c.hostname
	if hostname == "" {
		hostname, _ = env.GetVar("hostname")
	}

	var cl dhcp.Client
	cl.Log = slog.Default()
	sched := dhcp.NewScheduler(mac, c.retries)

	rnd := &platform.XorshiftRand{}
	rnd.Seed(mac)
	xid := rnd.Uint32()
	err = cl.BeginRequest(xid, dhcp.RequestConfig{
		ClientHardwareAddr: mac,
		Hostname:           hostname,
		Features:           features,
		BootFilePrefix:     c.bootFilePrefix,
	})
	if err != nil {
		return err
	}

	buf := make([]byte, 1500)
	deadline := time.Now().Add(c.timeout)
	for cl.State() != dhcp.StateBound && time.Now().Before(deadline) {
		time.Sleep(sched.Jitter())
		n, err := cl.Encapsulate(buf, 0)
		if err != nil {
			return err
		}
		if n > 0 {
			if err := xport.Send(buf[:n]); err != nil {
				return err
			}
		}
		wait, exhausted := sched.NextInterval()
		if exhausted {
			return fmt.Errorf("bootdhcp: retries exhausted in state %s", cl.State())
		}
		xport.SetReadDeadline(time.Now().Add(wait))
		rn, rerr := xport.Recv(buf)
		if rerr != nil {
			continue // timeout or transient read error; wait again (nothing already sent is resent).
		}
		if err := cl.Demux(buf[:rn], 0); err != nil {
			slog.Default().Warn("dhcp reply rejected", slog.String("err", err.Error()))
			continue
		}
	}
	if cl.State() != dhcp.StateBound {
		return fmt.Errorf("bootdhcp: did not reach bound state, last=%s", cl.State())
	}
	printSink(&cl.Sink)

	// original_source's BootpCopyNetParams only calls setenv("bootfile", ...)
	// when the negotiated file field is non-empty; an empty one leaves
	// whatever bootfile variable the loader previously had in place alone.
	if bootfile := cl.Sink.BootFile.String(); bootfile != "" {
		env.SetVar("bootfile", bootfile)
		var loader platform.TFTPAutoLoader
		if err := loader.Load(); err != nil {
			slog.Default().Warn("auto-load failed", slog.String("err", err.Error()))
		}
	}
	return nil
}

func printSink(s *dhcp.Sink) {
	if router, ok := s.RouterAddr(); ok {
		fmt.Printf("router: %d.%d.%d.%d\n", router[0], router[1], router[2], router[3])
	}
	if subnet, ok := s.SubnetAddr(); ok {
		fmt.Printf("subnet: %d.%d.%d.%d\n", subnet[0], subnet[1], subnet[2], subnet[3])
	}
	if dns1, ok := s.DNS1Addr(); ok {
		fmt.Printf("dns1: %d.%d.%d.%d\n", dns1[0], dns1[1], dns1[2], dns1[3])
	}
	if dns2, ok := s.DNS2Addr(); ok {
		fmt.Printf("dns2: %d.%d.%d.%d\n", dns2[0], dns2[1], dns2[2], dns2[3])
	}
	if ntp, ok := s.NTPServerAddr(); ok {
		fmt.Printf("ntp: %d.%d.%d.%d\n", ntp[0], ntp[1], ntp[2], ntp[3])
	}
	fmt.Printf("lease: %ds\n", s.LeaseSeconds)
	if bootfile := s.BootFile.String(); bootfile != "" {
		fmt.Printf("bootfile: %s (%d bytes)\n", bootfile, s.BootFileSize)
	}
}

type bootpCmd struct{ clientCmdBase }

func (*bootpCmd) Name() string     { return "bootp" }
func (*bootpCmd) Usage() string    { return "bootp [flags]\n\nNegotiate an address using legacy BOOTP only.\n" }
func (*bootpCmd) Synopsis() string { return "run a BOOTP (RFC 951) client exchange" }
func (c *bootpCmd) SetFlags(f *flag.FlagSet) { c.SetCommonFlags(f) }

func (c *bootpCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.run(ctx, dhcp.FeatureSet{DHCP: false}); err != nil {
		slog.Default().Error(err.Error())
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type dhcpCmd struct {
	clientCmdBase
	pxe bool
}

func (*dhcpCmd) Name() string     { return "dhcp" }
func (*dhcpCmd) Usage() string    { return "dhcp [flags]\n\nNegotiate an address using DHCP (RFC 2131).\n" }
func (*dhcpCmd) Synopsis() string { return "run a DHCP client exchange" }
func (c *dhcpCmd) SetFlags(f *flag.FlagSet) {
	c.SetCommonFlags(f)
	f.BoolVar(&c.pxe, "pxe", false, "include PXE client-identity options")
}

func (c *dhcpCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.run(ctx, dhcp.FeatureSet{DHCP: true, PXE: c.pxe}); err != nil {
		slog.Default().Error(err.Error())
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
