// Copyright (c) 2026 by Koanworks.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	// DefaultGroup is an administratively scoped IPv4 multicast group.
	DefaultGroup = "239.255.73.42"
	DefaultPort  = 45777

	DefaultAnnouncePeriod = 2 * time.Second

	durBreak = 500 * time.Millisecond
)

// Announce periodically multicasts the beacon to the group until the context
// ends. It is a blocking call.
func Announce(ctx context.Context, groupAddr net.UDPAddr, beacon Beacon, period time.Duration, log *slog.Logger) (err error) {
	if groupAddr.IP == nil || !groupAddr.IP.IsMulticast() {
		return errors.New("discovery: group address is not multicast")
	}
	if period <= 0 {
		period = DefaultAnnouncePeriod
	}
	if log == nil {
		log = slog.Default()
	}

	data, err := EncodeBeacon(beacon)
	if err != nil {
		return err
	}

	conn, err := net.DialUDP("udp", nil, &groupAddr)
	if err != nil {
		return fmt.Errorf("discovery: failed to dial multicast group: %w", err)
	}

	defer func() {
		errClose := conn.Close()
		if errClose != nil && err == nil {
			err = fmt.Errorf("discovery: failed to close announcer: %w", errClose)
		}
	}()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	log.Debug("announcing presence", "group", groupAddr.String(), "peer", beacon.PeerID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, errSend := conn.Write(data); errSend != nil {
				log.Debug("failed to send beacon", "error", errSend.Error())
			}
		}
	}
}

// Listen joins the multicast group and invokes processFn for every valid
// beacon heard, skipping this peer's own announcements and any foreign
// traffic on the group. It is a blocking call; cancel the context to stop.
func Listen(
	ctx context.Context,
	groupAddr net.UDPAddr,
	selfID string,
	processFn func(beacon Beacon, addr net.UDPAddr),
) (err error) {
	if groupAddr.IP == nil || !groupAddr.IP.IsMulticast() {
		return errors.New("discovery: group address is not multicast")
	}

	iface, err := getDefaultInterface()
	if err != nil {
		return fmt.Errorf("discovery: failed to get network interface: %w", err)
	}

	addrListen := net.UDPAddr{
		IP:   groupAddr.IP,
		Port: groupAddr.Port,
		Zone: iface.Name,
	}

	conn, err := net.ListenUDP("udp", &addrListen)
	if err != nil {
		return fmt.Errorf("discovery: failed to listen: %w", err)
	}

	defer func() {
		errClose := conn.Close()
		if errClose != nil && err == nil {
			err = fmt.Errorf("discovery: failed to close listener: %w", errClose)
		}
	}()

	addr := net.UDPAddr{
		IP:   groupAddr.IP,
		Port: 0,
		Zone: iface.Name,
	}

	var p interface {
		JoinGroup(*net.Interface, net.Addr) error
		LeaveGroup(*net.Interface, net.Addr) error
	}
	if ip4 := addr.IP.To4(); ip4 != nil {
		p = ipv4.NewPacketConn(conn)
	} else {
		p = ipv6.NewPacketConn(conn)
	}

	err = p.JoinGroup(iface, &addr)
	if err != nil {
		return fmt.Errorf("discovery: failed to join group: %w", err)
	}

	defer func() {
		errLeave := p.LeaveGroup(iface, &addr)
		if errLeave != nil && err == nil {
			err = fmt.Errorf("discovery: failed to leave group: %w", errLeave)
		}
	}()

	const bufferSize = 4 << 10
	buffer := [bufferSize]byte{}

	err = conn.SetReadDeadline(time.Now().Add(durBreak))
	if err != nil {
		err = fmt.Errorf("discovery: failed to set read deadline: %w", err)
		return
	}

	for {
		var n int
		var from *net.UDPAddr

		n, from, err = conn.ReadFromUDP(buffer[:])

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if errTimeout, ok := err.(net.Error); ok && errTimeout.Timeout() {
			err = conn.SetReadDeadline(time.Now().Add(durBreak))
			if err != nil {
				err = fmt.Errorf("discovery: failed to set read deadline: %w", err)
				return
			}

			continue
		}

		if err != nil {
			err = fmt.Errorf("discovery: failed to read datagram: %w", err)
			return
		}

		beacon, errDecode := DecodeBeacon(buffer[:n])
		if errDecode != nil {
			continue
		}

		if beacon.PeerID == selfID {
			continue
		}

		processFn(beacon, *from)
	}
}

func getDefaultInterface() (*net.Interface, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to get network interfaces: %w", err)
	}

	var ifaces []*net.Interface
	for i := range interfaces {
		iface := &interfaces[i]

		addrs, err := iface.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}

		addrs, err = iface.MulticastAddrs()
		if err != nil || len(addrs) == 0 {
			continue
		}

		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagRunning == 0 ||
			iface.Flags&net.FlagLoopback > 0 || iface.Flags&net.FlagMulticast == 0 ||
			iface.Flags&net.FlagPointToPoint > 0 {
			continue
		}

		ifaces = append(ifaces, iface)
	}

	if len(ifaces) == 0 {
		return nil, errors.New("no available network interfaces")
	}

	selectByName := func(prefix string) []*net.Interface {
		var ifacesSel []*net.Interface
		for _, iface := range ifaces {
			if strings.HasPrefix(iface.Name, prefix) {
				ifacesSel = append(ifacesSel, iface)
			}
		}

		sort.Slice(ifacesSel, func(i, j int) bool {
			return ifacesSel[i].Name < ifacesSel[j].Name
		})

		return ifacesSel
	}

	if ifacesSel := selectByName("en"); len(ifacesSel) > 0 {
		return ifacesSel[0], nil
	}

	if ifacesSel := selectByName("eth"); len(ifacesSel) > 0 {
		return ifacesSel[0], nil
	}

	return ifaces[0], nil
}
