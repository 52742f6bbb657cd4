package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/net/ipv4"
)

const (
	mdnsMulticastAddr = "224.0.0.251"
	mdnsPort          = 5353
)

// mdnsConn is a minimal multicast UDP transport, patterned on beacon's
// UDPv4Transport: bind to the mDNS multicast group, wrap with
// ipv4.PacketConn, expose a context-aware Send/Receive pair.
type mdnsConn struct {
	conn     net.PacketConn
	ipv4Conn *ipv4.PacketConn
	dest     net.Addr
}

func newMDNSConn() (*mdnsConn, error) {
	addr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", mdnsMulticastAddr, mdnsPort))
	if err != nil {
		return nil, fmt.Errorf("discovery: resolve mdns multicast address: %w", err)
	}
	conn, err := net.ListenMulticastUDP("udp4", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("discovery: join mdns multicast group: %w", err)
	}
	if err := conn.SetReadBuffer(65536); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("discovery: set mdns read buffer: %w", err)
	}
	return &mdnsConn{
		conn:     conn,
		ipv4Conn: ipv4.NewPacketConn(conn),
		dest:     addr,
	}, nil
}

func (m *mdnsConn) send(ctx context.Context, packet []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	n, err := m.conn.WriteTo(packet, m.dest)
	if err != nil {
		return fmt.Errorf("discovery: send mdns query: %w", err)
	}
	if n != len(packet) {
		return fmt.Errorf("discovery: partial mdns query write %d/%d", n, len(packet))
	}
	return nil
}

func (m *mdnsConn) receive(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := m.conn.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("discovery: set mdns read deadline: %w", err)
		}
	}
	buf := make([]byte, 9000)
	n, _, _, err := m.ipv4Conn.ReadFrom(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (m *mdnsConn) Close() error {
	return m.conn.Close()
}

// BrowseMDNS issues a single PTR query for serviceType over mDNS and
// collects SRV/A answers until ctx expires or instanceHint is found. When
// instanceHint matches a PTR answer's instance name it is preferred; the
// first complete (host, port) pair seen is used as a fallback.
func BrowseMDNS(ctx context.Context, serviceType, instanceHint string) (string, int, error) {
	conn, err := newMDNSConn()
	if err != nil {
		return "", 0, err
	}
	defer conn.Close()

	query := buildPTRQuery(uint16(1), serviceType)
	if err := conn.send(ctx, query); err != nil {
		return "", 0, err
	}

	var fallbackHost string
	var fallbackPort int
	for {
		select {
		case <-ctx.Done():
			if fallbackHost != "" {
				return fallbackHost, fallbackPort, nil
			}
			return "", 0, ctx.Err()
		default:
		}

		msg, err := conn.receive(ctx)
		if err != nil {
			if fallbackHost != "" {
				return fallbackHost, fallbackPort, nil
			}
			return "", 0, fmt.Errorf("discovery: mdns receive: %w", err)
		}
		answers, err := parseResponse(msg)
		if err != nil {
			continue
		}

		var ptrInstance string
		addrs := map[string]string{}
		var srvHost string
		var srvPort uint16
		for _, a := range answers {
			switch a.rtype {
			case dnsTypePTR:
				name, _, perr := readName(msg, a.dataOffset)
				if perr == nil {
					ptrInstance = name
				}
			case dnsTypeSRV:
				host, port, serr := parseSRV(msg, a.data, a.dataOffset)
				if serr == nil {
					srvHost, srvPort = host, port
				}
			case dnsTypeA:
				ip, aerr := parseA(a.data)
				if aerr == nil {
					addrs[a.name] = ip
				}
			}
		}

		if srvHost != "" && srvPort != 0 {
			host := srvHost
			if ip, ok := addrs[srvHost]; ok {
				host = ip
			}
			// A PTR target is the full instance name, e.g.
			// "XTablesService._xtables._tcp.local"; compare its first label.
			if instanceHint == "" || strings.SplitN(ptrInstance, ".", 2)[0] == instanceHint || ptrInstance == "" {
				return host, int(srvPort), nil
			}
			if fallbackHost == "" {
				fallbackHost, fallbackPort = host, int(srvPort)
			}
		}
	}
}
