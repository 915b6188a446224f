package ftp

import (
	"net"
	"strconv"
	"testing"
	"time"
)

func TestParsePORTValid(t *testing.T) {
	addr, err := parsePORT("127,0,0,1,195,80")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "127.0.0.1:50000"
	if addr != want {
		t.Errorf("addr = %q, want %q", addr, want)
	}
}

func TestParsePORTWrongPartCount(t *testing.T) {
	if _, err := parsePORT("127,0,0,1,195"); err == nil {
		t.Error("expected error for 5-part PORT argument")
	}
	if _, err := parsePORT("127,0,0,1,195,80,0"); err == nil {
		t.Error("expected error for 7-part PORT argument")
	}
}

func TestParsePORTOutOfRangeOctet(t *testing.T) {
	if _, err := parsePORT("127,0,0,1,256,0"); err == nil {
		t.Error("expected error for octet 256")
	}
	if _, err := parsePORT("127,0,0,1,-1,0"); err == nil {
		t.Error("expected error for negative octet")
	}
}

func TestParsePORTNonNumeric(t *testing.T) {
	if _, err := parsePORT("a,0,0,1,195,80"); err == nil {
		t.Error("expected error for non-numeric octet")
	}
}

func TestArmActiveThenArmPassiveMutuallyExclusive(t *testing.T) {
	var d dataChannel
	d.armActive("127.0.0.1:4000")
	if d.kind != dataChannelActive {
		t.Fatalf("expected active arming")
	}

	port, err := d.armPassive()
	if err != nil {
		t.Fatalf("armPassive failed: %v", err)
	}
	defer d.disarm()

	if d.kind != dataChannelPassive {
		t.Errorf("expected passive arming to replace active")
	}
	if d.activeAddr != "" {
		t.Errorf("expected active addr cleared, got %q", d.activeAddr)
	}
	if port <= 0 {
		t.Errorf("expected positive port, got %d", port)
	}
}

func TestDataChannelOpenWithNothingArmed(t *testing.T) {
	var d dataChannel
	if _, err := d.open(); err == nil {
		t.Error("expected error opening an unarmed data channel")
	}
}

func TestDataChannelPassiveRoundTrip(t *testing.T) {
	var d dataChannel
	port, err := d.armPassive()
	if err != nil {
		t.Fatalf("armPassive failed: %v", err)
	}

	dialErrCh := make(chan error, 1)
	go func() {
		conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), time.Second)
		if err != nil {
			dialErrCh <- err
			return
		}
		defer conn.Close()
		dialErrCh <- nil
	}()

	serverConn, err := d.open()
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer serverConn.Close()

	if err := <-dialErrCh; err != nil {
		t.Fatalf("client dial failed: %v", err)
	}
}
