// If you are AI: This is the CLI entrypoint for inspecting and managing publication channels.

// Command channel is a tool for working with publication channels: list
// enumerates all local channels, info prints one channel's diagnostics,
// read waits for and prints the next frame, peek prints the current
// frame without waiting, purge clears abandoned subscriber slots and
// delete removes a channel left behind by a crashed publisher.
//
// usage: channel <command> <channel> ...
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/graeme-walker/videotools/internal/bus"
)

// main dispatches to the requested sub-command.
func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = runList()
	case "info":
		err = runInfo(os.Args[2:])
	case "read":
		err = runRead(os.Args[2:])
	case "peek":
		err = runPeek(os.Args[2:])
	case "purge":
		err = runPurge(os.Args[2:])
	case "delete":
		err = runDelete(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "channel: %v\n", err)
		os.Exit(1)
	}
}

// usage prints the tool's sub-command summary to stderr.
func usage() {
	fmt.Fprintln(os.Stderr, "usage: channel <list|info|read|peek|purge|delete> [<channel>]")
}

// runList prints every local channel's administrative info as a JSON
// array, the same shape served by the httpserver's "/__" route.
func runList() error {
	infos, err := bus.List()
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(infos)
}

// requireChannel extracts the single required channel-name argument.
func requireChannel(args []string) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("missing <channel> argument")
	}
	return args[0], nil
}

// runInfo prints one channel's diagnostics as JSON.
func runInfo(args []string) error {
	name, err := requireChannel(args)
	if err != nil {
		return err
	}
	info, err := bus.Info(name)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(info)
}

// runRead subscribes to name and blocks until the next published frame
// arrives, printing its type, timestamp and payload length.
func runRead(args []string) error {
	name, err := requireChannel(args)
	if err != nil {
		return err
	}
	sub, err := bus.Open(name)
	if err != nil {
		return err
	}
	defer sub.Close()

	frame, err := sub.Receive(context.Background())
	if err != nil {
		return err
	}
	return printFrame(frame)
}

// runPeek subscribes to name and prints the current frame without
// waiting for a new one, failing if nothing has been published yet.
func runPeek(args []string) error {
	name, err := requireChannel(args)
	if err != nil {
		return err
	}
	sub, err := bus.Open(name)
	if err != nil {
		return err
	}
	defer sub.Close()

	frame, ok, err := sub.Peek()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no frame has been published on %q yet", name)
	}
	return printFrame(frame)
}

// printFrame writes a frame's metadata and payload length to stdout.
func printFrame(frame bus.Frame) error {
	fmt.Printf("type=%s time=%s seq=%d bytes=%d\n", frame.Type, frame.Time, frame.Seq, len(frame.Payload))
	return nil
}

// runPurge clears subscriber slots left behind by crashed processes and
// reports how many were recovered.
func runPurge(args []string) error {
	name, err := requireChannel(args)
	if err != nil {
		return err
	}
	cleared, err := bus.Purge(name)
	if err != nil {
		return err
	}
	fmt.Printf("cleared %d slot(s)\n", cleared)
	return nil
}

// runDelete removes a channel abandoned by a crashed publisher.
func runDelete(args []string) error {
	name, err := requireChannel(args)
	if err != nil {
		return err
	}
	return bus.Delete(name)
}
