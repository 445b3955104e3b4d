package store

import (
	"image"
	"strconv"
	"strings"

	"github.com/grovetools/overlay/errors"
)

// Command verbs accepted in the overlay command file.
const (
	VerbVolumeUp   = "vol-up"
	VerbVolumeDown = "vol-down"
	VerbScroll     = "scroll"
)

// command is one parsed line of the overlay command file.
type command struct {
	verb    string
	address string
	level   int
	anchor  image.Point
}

// parseCommand parses "<vol-up|vol-down> <address> <level>" or
// "scroll <address> <x> <y>". The verb is checked first so an unknown
// verb never affects state.
func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, errors.MalformedCommand(line, "empty line")
	}

	verb := fields[0]
	switch verb {
	case VerbVolumeUp, VerbVolumeDown, VerbScroll:
	default:
		return command{}, errors.MalformedCommand(line, "unknown verb "+strconv.Quote(verb))
	}

	want := 3
	if verb == VerbScroll {
		want = 4
	}
	if len(fields) != want {
		return command{}, errors.MalformedCommand(line, "wrong number of fields")
	}

	cmd := command{verb: verb, address: fields[1]}

	if verb == VerbScroll {
		x, err := strconv.Atoi(fields[2])
		if err != nil {
			return command{}, errors.MalformedCommand(line, "x is not an integer")
		}
		y, err := strconv.Atoi(fields[3])
		if err != nil {
			return command{}, errors.MalformedCommand(line, "y is not an integer")
		}
		cmd.anchor = image.Pt(x, y)
		return cmd, nil
	}

	level, err := strconv.Atoi(fields[2])
	if err != nil {
		return command{}, errors.MalformedCommand(line, "level is not an integer")
	}
	if level < 0 || level > 100 {
		return command{}, errors.MalformedCommand(line, "level out of range 0..100")
	}
	cmd.level = level
	return cmd, nil
}

// parseAddresses splits mute-state content into addresses, ignoring blank
// lines and surrounding whitespace.
func parseAddresses(content string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, line := range strings.Split(content, "\n") {
		addr := strings.TrimSpace(line)
		if addr == "" {
			continue
		}
		out[addr] = struct{}{}
	}
	return out
}
