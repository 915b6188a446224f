package ftp

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

const dataConnTimeout = 10 * time.Second

// dataChannelKind tags which arming, if any, a dataChannel currently
// holds. At most one of {active, passive} is armed at a time; arming one
// clears the other.
type dataChannelKind int

const (
	dataChannelNone dataChannelKind = iota
	dataChannelActive
	dataChannelPassive
)

// dataChannel is the tagged union of the two ways a data connection can
// be negotiated: the server dials a client-given address (PORT), or the
// server accepts on a listener it bound (PASV).
type dataChannel struct {
	kind       dataChannelKind
	activeAddr string
	listener   net.Listener
}

// armActive records a PORT target, disarming any passive listener.
func (d *dataChannel) armActive(addr string) {
	d.disarm()
	d.kind = dataChannelActive
	d.activeAddr = addr
}

// armPassive binds a fresh listener and records it, disarming any active
// target. The caller is responsible for formatting the PASV reply from
// the returned port.
func (d *dataChannel) armPassive() (port int, err error) {
	l, err := net.Listen("tcp", "0.0.0.0:0")
	if err != nil {
		return 0, fmt.Errorf("binding passive listener: %w", err)
	}

	d.disarm()
	d.kind = dataChannelPassive
	d.listener = l

	_, portStr, err := net.SplitHostPort(l.Addr().String())
	if err != nil {
		l.Close()
		d.disarm()
		return 0, fmt.Errorf("reading passive listener port: %w", err)
	}
	port, err = strconv.Atoi(portStr)
	if err != nil {
		l.Close()
		d.disarm()
		return 0, fmt.Errorf("parsing passive listener port: %w", err)
	}
	return port, nil
}

// disarm clears any current arming, closing an owned listener.
func (d *dataChannel) disarm() {
	if d.listener != nil {
		d.listener.Close()
	}
	d.kind = dataChannelNone
	d.activeAddr = ""
	d.listener = nil
}

// open consumes the current arming and returns the negotiated data
// connection. It fails if nothing is armed.
func (d *dataChannel) open() (net.Conn, error) {
	switch d.kind {
	case dataChannelActive:
		addr := d.activeAddr
		d.disarm()
		conn, err := net.DialTimeout("tcp", addr, dataConnTimeout)
		if err != nil {
			return nil, fmt.Errorf("dialing active data connection %s: %w", addr, err)
		}
		return conn, nil

	case dataChannelPassive:
		l := d.listener
		d.kind = dataChannelNone
		d.activeAddr = ""
		d.listener = nil

		type result struct {
			conn net.Conn
			err  error
		}
		done := make(chan result, 1)
		go func() {
			conn, err := l.Accept()
			done <- result{conn, err}
		}()

		select {
		case r := <-done:
			l.Close()
			if r.err != nil {
				return nil, fmt.Errorf("accepting passive data connection: %w", r.err)
			}
			return r.conn, nil
		case <-time.After(dataConnTimeout):
			l.Close()
			return nil, fmt.Errorf("accepting passive data connection: timed out")
		}

	default:
		return nil, fmt.Errorf("use PASV or PORT first")
	}
}

// parsePORT parses a PORT argument "h1,h2,h3,h4,p1,p2" into a dialable
// address, validating octet ranges per RFC 959.
func parsePORT(arg string) (addr string, err error) {
	parts := strings.Split(arg, ",")
	if len(parts) != 6 {
		return "", fmt.Errorf("PORT requires 6 comma-separated parts, got %d", len(parts))
	}

	nums := make([]int, 6)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", fmt.Errorf("PORT part %q is not numeric: %w", p, err)
		}
		if n < 0 || n > 255 {
			return "", fmt.Errorf("PORT part %d out of range [0,255]", n)
		}
		nums[i] = n
	}

	host := fmt.Sprintf("%d.%d.%d.%d", nums[0], nums[1], nums[2], nums[3])
	port := nums[4]*256 + nums[5]
	return fmt.Sprintf("%s:%d", host, port), nil
}

// pasvOctets derives the (h1,h2,h3,h4,p1,p2) tuple for a 227 reply from
// the control connection's local address and the bound data port.
func pasvOctets(localAddr net.Addr, port int) (h1, h2, h3, h4, p1, p2 int) {
	host := "127.0.0.1"
	if tcpAddr, ok := localAddr.(*net.TCPAddr); ok && tcpAddr.IP != nil && !tcpAddr.IP.IsUnspecified() {
		if ip4 := tcpAddr.IP.To4(); ip4 != nil {
			host = ip4.String()
		}
	}

	ip := net.ParseIP(host).To4()
	if ip == nil {
		ip = net.IPv4(127, 0, 0, 1).To4()
	}
	return int(ip[0]), int(ip[1]), int(ip[2]), int(ip[3]), port / 256, port % 256
}
