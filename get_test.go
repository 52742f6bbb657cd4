package xtables

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Kobeeeef/XTABLES/internal/wire"
)

func TestGetReturnsErrNotPresentOnUnknownType(t *testing.T) {
	fs := newFakeServer(t)
	defer fs.close()
	fs.serveReq(t, func(in wire.Message) wire.Message {
		return wire.Message{HasID: true, ID: in.ID, Command: wire.CommandGet}
	})
	c := newTestClient(t, fs)

	_, err := c.GetString(context.Background(), "missing.key")
	if !errors.Is(err, ErrNotPresent) {
		t.Fatalf("got %v, want ErrNotPresent", err)
	}
}

func TestGetIntegerListRoundTrips(t *testing.T) {
	fs := newFakeServer(t)
	defer fs.close()
	want := []int32{1, 2, 3, -7}
	fs.serveReq(t, func(in wire.Message) wire.Message {
		return wire.Message{
			HasID: true, ID: in.ID, Command: wire.CommandGet,
			HasVal: true, Value: wire.EncodeIntegerList(want), Type: wire.TypeIntegerList,
		}
	})
	c := newTestClient(t, fs)

	got, err := c.GetIntegerList(context.Background(), "some.list")
	if err != nil {
		t.Fatalf("GetIntegerList: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestGetTablesDecodesStringList(t *testing.T) {
	fs := newFakeServer(t)
	defer fs.close()
	fs.serveReq(t, func(in wire.Message) wire.Message {
		val := wire.EncodeStringList([]string{"robot", "robot.drivetrain", "robot.vision"})
		return wire.Message{HasID: true, ID: in.ID, Command: wire.CommandGetTables, HasVal: true, Value: val, Type: wire.TypeStringList}
	})
	c := newTestClient(t, fs)

	got, err := c.GetTables(context.Background(), "")
	if err != nil {
		t.Fatalf("GetTables: %v", err)
	}
	if len(got) != 3 || got[1] != "robot.drivetrain" {
		t.Fatalf("unexpected tables: %v", got)
	}
}

func TestRenameKeyReturnsServerAck(t *testing.T) {
	fs := newFakeServer(t)
	defer fs.close()
	fs.serveReq(t, func(in wire.Message) wire.Message {
		ok, _ := wire.EncodeScalar(wire.TypeBool, true)
		return wire.Message{HasID: true, ID: in.ID, Command: wire.CommandDebug, HasVal: true, Value: ok, Type: wire.TypeBool}
	})
	c := newTestClient(t, fs)

	renamed, err := c.RenameKey(context.Background(), "robot.old", "robot.new")
	if err != nil {
		t.Fatalf("RenameKey: %v", err)
	}
	if !renamed {
		t.Fatal("expected rename to report success")
	}
}

func TestDeleteDefaultsToTrueWithNoValue(t *testing.T) {
	fs := newFakeServer(t)
	defer fs.close()
	fs.serveReq(t, func(in wire.Message) wire.Message {
		return wire.Message{HasID: true, ID: in.ID, Command: wire.CommandDelete}
	})
	c := newTestClient(t, fs)

	ok, err := c.Delete(context.Background(), "robot.old")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !ok {
		t.Fatal("expected Delete to report true")
	}
}

func TestGetPropagatesContextDeadline(t *testing.T) {
	fs := newFakeServer(t)
	defer fs.close()
	go func() {
		c, err := fs.reqLn.Accept()
		if err != nil {
			return
		}
		_ = c
	}()
	c := newTestClient(t, fs)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.GetString(ctx, "some.key")
	if err == nil {
		t.Fatal("expected error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("expected caller deadline to win, took %v", elapsed)
	}
}
