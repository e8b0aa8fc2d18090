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
	"github.com/go-embedded/bootdhcp/platform/udptransport"
)

type dhcpServerCmd struct {
	serverAddr string
	gateway    string
	subnet     string
	leaseSecs  int
}

func (*dhcpServerCmd) Name() string  { return "dhcp-server" }
func (*dhcpServerCmd) Usage() string { return "dhcp-server -addr <ip> [flags]\n\nServe one DHCP lease to the first client on the local broadcast domain, then exit.\n" }
func (*dhcpServerCmd) Synopsis() string {
	return "run a minimal DHCP server"
}

func (c *dhcpServerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.serverAddr, "addr", "", "this server's IPv4 address (required)")
	f.StringVar(&c.gateway, "gateway", "", "gateway address to put in the reply's giaddr field (no Router option is sent)")
	f.StringVar(&c.subnet, "subnet", "255.255.255.0", "subnet mask to advertise")
	f.IntVar(&c.leaseSecs, "lease", 86400, "lease time in seconds")
}

func (c *dhcpServerCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	outcome, err := c.run(ctx)
	if err != nil {
		slog.Default().Error(err.Error())
		return subcommands.ExitFailure
	}
	if outcome == dhcp.ServerTimedOut {
		return subcommands.ExitStatus(-1) // per spec.md §6's dhcp_server exit code table.
	}
	return subcommands.ExitSuccess
}

func (c *dhcpServerCmd) run(ctx context.Context) (dhcp.ServerOutcome, error) {
	addr := net.ParseIP(c.serverAddr).To4()
	if addr == nil {
		return 0, fmt.Errorf("bootdhcp: -addr is required and must be an IPv4 address")
	}
	var gw [4]byte
	if c.gateway != "" {
		ip := net.ParseIP(c.gateway).To4()
		if ip == nil {
			return 0, fmt.Errorf("bootdhcp: invalid -gateway address")
		}
		gw = [4]byte(ip)
	}
	var subnet [4]byte
	if ip := net.ParseIP(c.subnet).To4(); ip != nil {
		subnet = [4]byte(ip)
	}
	xport, err := udptransport.New(dhcp.DefaultServerPort, net.IPv4bcast, dhcp.DefaultClientPort)
	if err != nil {
		return 0, fmt.Errorf("opening broadcast socket: %w", err)
	}
	defer xport.Close()

	var sv dhcp.Server
	sv.Log = slog.Default()
	sv.Reset(dhcp.ServerConfig{
		ServerAddr: [4]byte(addr),
		Gateway:    gw,
		Subnet:     subnet,
		LeaseTime:  time.Duration(c.leaseSecs) * time.Second,
	})

	buf := make([]byte, 1500)
	outbuf := make([]byte, 1500)
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
		xport.SetReadDeadline(time.Now().Add(1 * time.Second))
		n, err := xport.Recv(buf)
		if err == nil {
			if derr := sv.Demux(buf[:n], 0); derr != nil {
				slog.Default().Warn("rejected client message", slog.String("err", derr.Error()))
			}
		}
		sv.Tick(time.Now())
		for {
			wn, werr := sv.Encapsulate(outbuf, 0)
			if werr != nil {
				slog.Default().Warn("encapsulate failed", slog.String("err", werr.Error()))
				break
			}
			if wn == 0 {
				break
			}
			if serr := xport.Send(outbuf[:wn]); serr != nil {
				slog.Default().Warn("send failed", slog.String("err", serr.Error()))
			}
		}
		if outcome, done := sv.Done(); done {
			return outcome, nil
		}
	}
}
