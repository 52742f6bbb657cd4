package xtables

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/Kobeeeef/XTABLES/internal/framing"
	"github.com/Kobeeeef/XTABLES/internal/wire"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	return ln
}

// fakeServer stands in for an XTABLES server across all three sockets,
// enough to drive a Client end to end.
type fakeServer struct {
	pushLn, reqLn, subLn net.Listener
	pushPort, reqPort, subPort int

	pushed chan wire.Message
	subConns chan net.Conn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	pushLn := listen(t)
	reqLn := listen(t)
	subLn := listen(t)
	fs := &fakeServer{
		pushLn: pushLn, reqLn: reqLn, subLn: subLn,
		pushPort: pushLn.Addr().(*net.TCPAddr).Port,
		reqPort:  reqLn.Addr().(*net.TCPAddr).Port,
		subPort:  subLn.Addr().(*net.TCPAddr).Port,
		pushed:   make(chan wire.Message, 16),
		subConns: make(chan net.Conn, 4),
	}
	go fs.acceptPush()
	go fs.acceptSub()
	return fs
}

func (fs *fakeServer) acceptPush() {
	for {
		c, err := fs.pushLn.Accept()
		if err != nil {
			return
		}
		go func(c net.Conn) {
			r := framing.NewReader(c)
			for {
				raw, err := r.ReadFrame()
				if err != nil {
					return
				}
				msg, err := wire.DecodeMessage(raw)
				if err != nil {
					continue
				}
				fs.pushed <- msg
			}
		}(c)
	}
}

func (fs *fakeServer) acceptSub() {
	for {
		c, err := fs.subLn.Accept()
		if err != nil {
			return
		}
		fs.subConns <- c
	}
}

// pushUpdate sends one update frame on the given sub connection c.
func (fs *fakeServer) pushUpdate(t *testing.T, c net.Conn, u wire.UpdateRecord) {
	t.Helper()
	if err := framing.WriteFrame(c, wire.EncodeUpdate(u)); err != nil {
		t.Fatalf("pushUpdate: %v", err)
	}
}

// serveReq accepts a single req connection and answers every request on
// it with handler's reply.
func (fs *fakeServer) serveReq(t *testing.T, handler func(wire.Message) wire.Message) {
	t.Helper()
	go func() {
		c, err := fs.reqLn.Accept()
		if err != nil {
			return
		}
		r := framing.NewReader(c)
		for {
			raw, err := r.ReadFrame()
			if err != nil {
				return
			}
			msg, err := wire.DecodeMessage(raw)
			if err != nil {
				continue
			}
			reply := handler(msg)
			if err := framing.WriteFrame(c, wire.EncodeMessage(reply)); err != nil {
				return
			}
		}
	}()
}

func (fs *fakeServer) close() {
	fs.pushLn.Close()
	fs.reqLn.Close()
	fs.subLn.Close()
}

func newTestClient(t *testing.T, fs *fakeServer, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithExplicitAddress("127.0.0.1"),
		WithPorts(fs.pushPort, fs.reqPort, fs.subPort),
		WithBufferCapacity(64),
	}
	c, err := New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Shutdown() })
	return c
}

// putStringEventually retries PutString until the Push endpoint's
// background reconnect supervisor has finished its first connect.
func putStringEventually(t *testing.T, c *Client, key, value string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var err error
	for time.Now().Before(deadline) {
		if err = c.PutString(key, value); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("PutString never succeeded: %v", err)
}

func TestPutStringRoundTripsOverPush(t *testing.T) {
	fs := newFakeServer(t)
	defer fs.close()
	c := newTestClient(t, fs)

	putStringEventually(t, c, "robot.state", "ENABLED")

	select {
	case msg := <-fs.pushed:
		if msg.Command != wire.CommandPut || msg.Key != "robot.state" || string(msg.Value) != "ENABLED" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for push")
	}
}

func TestGetStringReturnsServerValue(t *testing.T) {
	fs := newFakeServer(t)
	defer fs.close()
	fs.serveReq(t, func(in wire.Message) wire.Message {
		val, _ := wire.EncodeScalar(wire.TypeString, "hello")
		return wire.Message{HasID: true, ID: in.ID, Command: wire.CommandGet, HasVal: true, Value: val, Type: wire.TypeString}
	})
	c := newTestClient(t, fs)

	got, err := c.GetString(context.Background(), "some.key")
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	if got != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestGetTypeMismatchReturnsErrTypeMismatch(t *testing.T) {
	fs := newFakeServer(t)
	defer fs.close()
	fs.serveReq(t, func(in wire.Message) wire.Message {
		val, _ := wire.EncodeScalar(wire.TypeDouble, 3.14)
		return wire.Message{HasID: true, ID: in.ID, HasVal: true, Value: val, Type: wire.TypeDouble}
	})
	c := newTestClient(t, fs)

	_, err := c.GetString(context.Background(), "some.key")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("got %v, want ErrTypeMismatch", err)
	}
}

func TestPingSucceedsAgainstLiveServer(t *testing.T) {
	fs := newFakeServer(t)
	defer fs.close()
	fs.serveReq(t, func(in wire.Message) wire.Message {
		return wire.Message{HasID: true, ID: in.ID, Command: wire.CommandPing}
	})
	c := newTestClient(t, fs)

	res := c.Ping(context.Background())
	if !res.Success || res.Nanoseconds < 0 {
		t.Fatalf("unexpected ping result: %+v", res)
	}
}

func TestPingFailsWhenServerNeverReplies(t *testing.T) {
	fs := newFakeServer(t)
	defer fs.close()
	// No serveReq handler: the Req dial succeeds (listener exists) but
	// the server never replies, so Call times out at ReceiveTimeout.
	go func() {
		c, err := fs.reqLn.Accept()
		if err != nil {
			return
		}
		_ = c // accept and never respond
	}()
	c := newTestClient(t, fs)

	start := time.Now()
	res := c.Ping(context.Background())
	elapsed := time.Since(start)
	if res.Success {
		t.Fatal("expected ping to fail")
	}
	if elapsed < 3*time.Second || elapsed > 4*time.Second {
		t.Fatalf("expected ~3s timeout bound, got %v", elapsed)
	}
}

func TestSubscribeReceivesUpdateFromServer(t *testing.T) {
	fs := newFakeServer(t)
	defer fs.close()
	c := newTestClient(t, fs)

	received := make(chan string, 1)
	if _, err := c.Subscribe("vision.target", func(key string, value []byte, vt wire.Type) {
		received <- string(value)
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	var subConn net.Conn
	select {
	case subConn = <-fs.subConns:
	case <-time.After(2 * time.Second):
		t.Fatal("sub never connected")
	}

	val, _ := wire.EncodeScalar(wire.TypeString, "tag7")
	fs.pushUpdate(t, subConn, wire.UpdateRecord{Category: wire.CategoryUpdate, Key: "vision.target", HasVal: true, Value: val, Type: wire.TypeString})

	select {
	case got := <-received:
		if got != "tag7" {
			t.Fatalf("got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatched update")
	}
}

func TestTelemetrySolicitationIsAnsweredOnPush(t *testing.T) {
	fs := newFakeServer(t)
	defer fs.close()
	c := newTestClient(t, fs)

	var subConn net.Conn
	select {
	case subConn = <-fs.subConns:
	case <-time.After(2 * time.Second):
		t.Fatal("sub never connected")
	}

	fs.pushUpdate(t, subConn, wire.UpdateRecord{Category: wire.CategoryInformation, Key: ""})

	select {
	case msg := <-fs.pushed:
		if msg.Command != wire.CommandInformation || !msg.HasVal {
			t.Fatalf("unexpected telemetry reply: %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for telemetry reply")
	}
}

func TestGhostModeSuppressesTelemetryReply(t *testing.T) {
	fs := newFakeServer(t)
	defer fs.close()
	c := newTestClient(t, fs, WithGhostMode(true))

	var subConn net.Conn
	select {
	case subConn = <-fs.subConns:
	case <-time.After(2 * time.Second):
		t.Fatal("sub never connected")
	}
	fs.pushUpdate(t, subConn, wire.UpdateRecord{Category: wire.CategoryInformation, Key: ""})

	select {
	case msg := <-fs.pushed:
		t.Fatalf("expected no telemetry reply in ghost mode, got %+v", msg)
	case <-time.After(300 * time.Millisecond):
	}
	_ = c
}
