// Command bootdhcp drives the dhcp package's client and server state
// machines over a real broadcast UDP socket.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&bootpCmd{}, "")
	subcommands.Register(&dhcpCmd{}, "")
	subcommands.Register(&dhcpServerCmd{}, "")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
