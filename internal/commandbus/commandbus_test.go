package commandbus

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestParseDatagramMultiCommand(t *testing.T) {
	got := ParseDatagram([]byte("squelch=10;threshold=4; equalise=on"))
	want := []Command{
		{Verb: "squelch=10"},
		{Verb: "threshold=4"},
		{Verb: "equalise=on"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d commands, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Verb != want[i].Verb {
			t.Errorf("command %d verb = %q, want %q", i, got[i].Verb, want[i].Verb)
		}
	}
}

func TestParseDatagramWithArgs(t *testing.T) {
	got := ParseDatagram([]byte("play --sleep=50 --skip=2"))
	if len(got) != 1 {
		t.Fatalf("got %d commands, want 1", len(got))
	}
	if got[0].Verb != "play" {
		t.Errorf("verb = %q, want play", got[0].Verb)
	}
	want := []string{"--sleep=50", "--skip=2"}
	if !reflect.DeepEqual(got[0].Args, want) {
		t.Errorf("args = %v, want %v", got[0].Args, want)
	}
}

func TestParseDatagramSkipsEmptySegments(t *testing.T) {
	got := ParseDatagram([]byte("fast;;"))
	if len(got) != 1 || got[0].Verb != "fast" {
		t.Fatalf("got %+v", got)
	}
}

func TestDispatcherUnknownVerbErrors(t *testing.T) {
	d := NewDispatcher()
	if err := d.Dispatch(Command{Verb: "bogus"}); err == nil {
		t.Fatal("expected an error for an unregistered verb")
	}
}

func TestDispatcherRoutesToHandler(t *testing.T) {
	d := NewDispatcher()
	var seen []Command
	d.Handle("fast", func(cmd Command) error {
		seen = append(seen, cmd)
		return nil
	})
	if err := d.Dispatch(Command{Verb: "fast"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(seen) != 1 {
		t.Fatalf("handler invoked %d times, want 1", len(seen))
	}
}

func TestEndpointEndToEndOverUnixgram(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "cmd.sock")

	d := NewDispatcher()
	received := make(chan Command, 4)
	d.Handle("squelch=10", func(cmd Command) error {
		received <- cmd
		return nil
	})

	ep, err := Listen("unixgram", sockPath, d, nil)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ep.Close()
	go ep.Serve()

	if err := Send("unixgram", sockPath, "squelch=10"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatched command")
	}
}
