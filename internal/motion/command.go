// If you are AI: This file implements live-tuning command handling for the comparator.

package motion

import (
	"strconv"
	"strings"

	"github.com/graeme-walker/videotools/internal/commandbus"
)

// ApplyCommand handles one live-tuning verb from the CommandBus:
// squelch=N, threshold=N, equalise=on|off. Unrecognised or malformed
// commands are logged and ignored rather than failing the stream, per
// §4.5's "Live tuning".
func (c *Comparator) ApplyCommand(cmd commandbus.Command) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case strings.HasPrefix(cmd.Verb, "squelch="):
		n, err := strconv.Atoi(strings.TrimPrefix(cmd.Verb, "squelch="))
		if err != nil {
			c.warn("bad squelch command %q: %v", cmd.Verb, err)
			return
		}
		c.cfg.Squelch = n
	case strings.HasPrefix(cmd.Verb, "threshold="):
		n, err := strconv.Atoi(strings.TrimPrefix(cmd.Verb, "threshold="))
		if err != nil {
			c.warn("bad threshold command %q: %v", cmd.Verb, err)
			return
		}
		c.cfg.Threshold = n
	case cmd.Verb == "equalise=on":
		c.cfg.Equalise = true
	case cmd.Verb == "equalise=off":
		c.cfg.Equalise = false
	default:
		c.warn("unrecognised command %q", cmd.Verb)
	}
}

// warn logs a non-fatal comparator error.
func (c *Comparator) warn(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf("motion: "+format, args...)
	}
}
