package main

import (
	"errors"
	"net"
)

// hardwareAddr resolves name to a 6-byte Ethernet hardware address. If
// name is empty, the first interface with a non-empty hardware address
// is used.
func hardwareAddr(name string) (mac [6]byte, err error) {
	var ifaces []net.Interface
	if name != "" {
		ifi, err := net.InterfaceByName(name)
		if err != nil {
			return mac, err
		}
		ifaces = []net.Interface{*ifi}
	} else {
		ifaces, err = net.Interfaces()
		if err != nil {
			return mac, err
		}
	}
	for _, ifi := range ifaces {
		if len(ifi.HardwareAddr) == 6 {
			copy(mac[:], ifi.HardwareAddr)
			return mac, nil
		}
	}
	return mac, errors.New("bootdhcp: no usable network interface with a hardware address")
}
