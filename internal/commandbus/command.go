// If you are AI: This file parses CommandBus datagrams into verb/args commands.

// Package commandbus implements the toolkit's datagram command endpoint:
// a UDP or Unix-domain socket that accepts small control messages like
// "squelch=10;threshold=4" and dispatches each verb to a registered
// handler.
package commandbus

import "strings"

// Command is one parsed verb plus its arguments, e.g. "squelch=10" or
// "move --sleep=50 first".
type Command struct {
	Verb string
	Args []string
}

// ParseDatagram splits a datagram into its ';'-separated commands, per
// §6's grammar. Empty segments (a trailing ';', repeated ';;') are
// skipped. Each command's first whitespace-separated token is the verb;
// the rest are args, which may be bare tokens or "key=value" pairs —
// callers interpret those themselves.
func ParseDatagram(data []byte) []Command {
	segments := strings.Split(string(data), ";")
	cmds := make([]Command, 0, len(segments))
	for _, seg := range segments {
		fields := strings.Fields(seg)
		if len(fields) == 0 {
			continue
		}
		cmds = append(cmds, Command{Verb: fields[0], Args: fields[1:]})
	}
	return cmds
}
