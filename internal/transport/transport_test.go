package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/Kobeeeef/XTABLES/internal/framing"
	"github.com/Kobeeeef/XTABLES/internal/monitor"
	"github.com/Kobeeeef/XTABLES/internal/wire"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return ln
}

func TestPushSendsFrames(t *testing.T) {
	ln := listen(t)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		nc, err := ln.Accept()
		if err != nil {
			return
		}
		defer nc.Close()
		r := framing.NewReader(nc)
		frame, err := r.ReadFrame()
		if err == nil {
			received <- frame
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mon := monitor.New(nil)
	push := NewPush("push", func() string { return ln.Addr().String() }, mon, nil)
	go push.Run(ctx)

	msg := wire.EncodeMessage(wire.Message{Command: wire.CommandPut, HasKey: true, Key: "a.b"})

	deadline := time.After(2 * time.Second)
	for {
		if err := push.Send(msg); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("push never became connected")
		case <-time.After(5 * time.Millisecond):
		}
	}

	select {
	case got := <-received:
		if string(got) != string(msg) {
			t.Fatalf("received frame does not match sent frame")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received a frame")
	}
}

func TestReqCallRoundTrip(t *testing.T) {
	ln := listen(t)
	defer ln.Close()

	go func() {
		nc, err := ln.Accept()
		if err != nil {
			return
		}
		defer nc.Close()
		r := framing.NewReader(nc)
		frame, err := r.ReadFrame()
		if err != nil {
			return
		}
		msg, err := wire.DecodeMessage(frame)
		if err != nil {
			return
		}
		reply := wire.EncodeMessage(wire.Message{HasID: true, ID: msg.ID, Command: wire.CommandGet, HasVal: true, Value: []byte{1}, Type: wire.TypeBool})
		_ = framing.WriteFrame(nc, reply)
	}()

	ctx := context.Background()
	mon := monitor.New(nil)
	req := NewReq("req", func() string { return ln.Addr().String() }, mon, nil)

	out := wire.EncodeMessage(wire.Message{HasID: true, ID: 7, Command: wire.CommandGet, HasKey: true, Key: "a.b"})
	reply, err := req.Call(ctx, out)
	if err != nil {
		t.Fatalf("Call error: %v", err)
	}
	decoded, err := wire.DecodeMessage(reply)
	if err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if decoded.ID != 7 || !decoded.HasVal || decoded.Value[0] != 1 {
		t.Fatalf("unexpected reply: %+v", decoded)
	}
}

func TestReqCallTimesOutAndResets(t *testing.T) {
	ln := listen(t)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		nc, err := ln.Accept()
		if err == nil {
			accepted <- nc
		}
	}()

	ctx := context.Background()
	mon := monitor.New(nil)
	req := NewReq("req", func() string { return ln.Addr().String() }, mon, nil)

	callCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	_, err := req.Call(callCtx, []byte("x"))
	if err == nil {
		t.Fatal("expected timeout error when server never replies")
	}
	if req.Connected() {
		t.Fatal("expected connection to be reset after a timeout")
	}

	select {
	case nc := <-accepted:
		nc.Close()
	case <-time.After(time.Second):
	}
}

func TestSubDeliversOnlyMatchingPrefixes(t *testing.T) {
	ln := listen(t)
	defer ln.Close()

	updateA := wire.EncodeUpdate(wire.UpdateRecord{Key: "a.b", Category: wire.CategoryUpdate, HasVal: true, Value: []byte("1"), Type: wire.TypeString})
	updateC := wire.EncodeUpdate(wire.UpdateRecord{Key: "c.d", Category: wire.CategoryUpdate, HasVal: true, Value: []byte("2"), Type: wire.TypeString})

	go func() {
		nc, err := ln.Accept()
		if err != nil {
			return
		}
		defer nc.Close()
		_ = framing.WriteFrame(nc, updateA)
		_ = framing.WriteFrame(nc, updateC)
		time.Sleep(100 * time.Millisecond)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan []byte, 2)
	mon := monitor.New(nil)
	sub := NewSub("sub", func() string { return ln.Addr().String() }, mon, nil, func(raw []byte) {
		received <- raw
	})
	go sub.Run(ctx)
	sub.Subscribe("a.b")

	select {
	case got := <-received:
		decoded, err := wire.DecodeUpdate(got)
		if err != nil || decoded.Key != "a.b" {
			t.Fatalf("expected update for a.b, got %+v err=%v", decoded, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected the a.b update to be delivered")
	}

	select {
	case got := <-received:
		t.Fatalf("unexpected second delivery for a non-matching prefix: %v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPushCloseUnblocksRunPromptly(t *testing.T) {
	ln := listen(t)
	defer ln.Close()
	go func() {
		nc, err := ln.Accept()
		if err == nil {
			defer nc.Close()
			time.Sleep(time.Second)
		}
	}()

	mon := monitor.New(nil)
	push := NewPush("push", func() string { return ln.Addr().String() }, mon, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- push.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for push.d.get() == nil {
		select {
		case <-deadline:
			t.Fatal("push never connected")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := push.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Run did not return within 500ms of cancel+Close")
	}
}

func TestSubCloseUnblocksRunPromptly(t *testing.T) {
	ln := listen(t)
	defer ln.Close()
	go func() {
		nc, err := ln.Accept()
		if err == nil {
			defer nc.Close()
			time.Sleep(time.Second)
		}
	}()

	mon := monitor.New(nil)
	sub := NewSub("sub", func() string { return ln.Addr().String() }, mon, nil, func([]byte) {})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for sub.d.get() == nil {
		select {
		case <-deadline:
			t.Fatal("sub never connected")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := sub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Run did not return within 500ms of cancel+Close")
	}
}

func TestReqCloseUnblocksInFlightCall(t *testing.T) {
	ln := listen(t)
	defer ln.Close()
	accepted := make(chan net.Conn, 1)
	go func() {
		nc, err := ln.Accept()
		if err == nil {
			accepted <- nc
		}
	}()

	mon := monitor.New(nil)
	req := NewReq("req", func() string { return ln.Addr().String() }, mon, nil)

	done := make(chan error, 1)
	go func() {
		_, err := req.Call(context.Background(), []byte("x"))
		done <- err
	}()

	select {
	case nc := <-accepted:
		defer nc.Close()
	case <-time.After(time.Second):
		t.Fatal("server never accepted connection")
	}

	// Give Call a moment to finish its write and start blocking on the read.
	time.Sleep(50 * time.Millisecond)
	if err := req.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected Call to return an error after Close")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Call did not return within 500ms of Close")
	}
}
