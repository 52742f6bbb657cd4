package discovery

import (
	"encoding/binary"
	"testing"
)

func TestEncodeNameFormat(t *testing.T) {
	got := encodeName("_xtables._tcp.local.")
	want := []byte{8}
	want = append(want, "_xtables"...)
	want = append(want, 4)
	want = append(want, "_tcp"...)
	want = append(want, 5)
	want = append(want, "local"...)
	want = append(want, 0)
	if string(got) != string(want) {
		t.Fatalf("encodeName mismatch: got %v want %v", got, want)
	}
}

func TestBuildPTRQueryHasOneQuestion(t *testing.T) {
	q := buildPTRQuery(42, "_xtables._tcp.local.")
	if len(q) < 12 {
		t.Fatal("query shorter than a DNS header")
	}
	id := binary.BigEndian.Uint16(q[0:2])
	qd := binary.BigEndian.Uint16(q[4:6])
	if id != 42 || qd != 1 {
		t.Fatalf("expected id=42 qdcount=1, got id=%d qdcount=%d", id, qd)
	}
}

func TestReadNameWithoutCompression(t *testing.T) {
	msg := append([]byte{}, make([]byte, 12)...)
	msg = append(msg, encodeName("XTablesService._xtables._tcp.local.")...)
	name, next, err := readName(msg, 12)
	if err != nil {
		t.Fatalf("readName error: %v", err)
	}
	if name != "XTablesService._xtables._tcp.local" {
		t.Fatalf("unexpected name: %q", name)
	}
	if next != len(msg) {
		t.Fatalf("expected next offset to reach end of message, got %d want %d", next, len(msg))
	}
}

func TestReadNameFollowsCompressionPointer(t *testing.T) {
	msg := append([]byte{}, make([]byte, 12)...)
	origNameOffset := len(msg)
	msg = append(msg, encodeName("_xtables._tcp.local.")...)

	pointerOffset := len(msg)
	var ptr [2]byte
	binary.BigEndian.PutUint16(ptr[:], uint16(0xC000|origNameOffset))
	msg = append(msg, ptr[:]...)

	name, next, err := readName(msg, pointerOffset)
	if err != nil {
		t.Fatalf("readName error: %v", err)
	}
	if name != "_xtables._tcp.local" {
		t.Fatalf("unexpected compressed name: %q", name)
	}
	if next != pointerOffset+2 {
		t.Fatalf("expected next offset just past the 2-byte pointer, got %d want %d", next, pointerOffset+2)
	}
}

func TestParseAValidatesLength(t *testing.T) {
	ip, err := parseA([]byte{10, 0, 0, 5})
	if err != nil || ip != "10.0.0.5" {
		t.Fatalf("expected 10.0.0.5, got %q err=%v", ip, err)
	}
	if _, err := parseA([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short A record")
	}
}

func TestParseResponseRoundTrip(t *testing.T) {
	var hdr [12]byte
	binary.BigEndian.PutUint16(hdr[6:], 1) // ANCOUNT=1
	msg := append([]byte{}, hdr[:]...)

	msg = append(msg, encodeName("host.local.")...)
	var rtype, class [2]byte
	binary.BigEndian.PutUint16(rtype[:], dnsTypeA)
	binary.BigEndian.PutUint16(class[:], dnsClassIN)
	msg = append(msg, rtype[:]...)
	msg = append(msg, class[:]...)
	msg = append(msg, 0, 0, 0, 0) // TTL
	var rdlen [2]byte
	binary.BigEndian.PutUint16(rdlen[:], 4)
	msg = append(msg, rdlen[:]...)
	msg = append(msg, 192, 168, 1, 1)

	answers, err := parseResponse(msg)
	if err != nil {
		t.Fatalf("parseResponse error: %v", err)
	}
	if len(answers) != 1 || answers[0].rtype != dnsTypeA {
		t.Fatalf("expected one A answer, got %+v", answers)
	}
	ip, err := parseA(answers[0].data)
	if err != nil || ip != "192.168.1.1" {
		t.Fatalf("expected 192.168.1.1, got %q err=%v", ip, err)
	}
}
