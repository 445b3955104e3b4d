package client

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grovetools/overlay/errors"
	"github.com/grovetools/overlay/internal/daemon/store"
)

// Command verbs accepted by hosts.
const (
	VerbVolumeUp   = store.VerbVolumeUp
	VerbVolumeDown = store.VerbVolumeDown
	VerbScroll     = store.VerbScroll
)

// AppendVolume appends a volume command line to the command file.
func AppendVolume(path, verb, address string, level int) error {
	if verb != VerbVolumeUp && verb != VerbVolumeDown {
		return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("unknown volume verb %q", verb))
	}
	if level < 0 || level > 100 {
		return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("level %d out of range 0..100", level))
	}
	if err := checkAddress(address); err != nil {
		return err
	}
	return appendLine(path, fmt.Sprintf("%s %s %d", verb, address, level))
}

// AppendScroll appends a scroll anchor command line to the command file.
func AppendScroll(path, address string, x, y int) error {
	if err := checkAddress(address); err != nil {
		return err
	}
	return appendLine(path, fmt.Sprintf("%s %s %d %d", VerbScroll, address, x, y))
}

func checkAddress(address string) error {
	if address == "" || strings.ContainsAny(address, " \t\r\n") {
		return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("invalid window address %q", address))
	}
	return nil
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open command file: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("failed to write command: %w", err)
	}
	return nil
}

// ReadMuted returns the addresses listed in the mute-state file, sorted. A
// missing file means nothing is muted.
func ReadMuted(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		addr := strings.TrimSpace(line)
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	sort.Strings(out)
	return out, nil
}

// SetMuted adds or removes address in the mute-state file.
func SetMuted(path, address string, muted bool) error {
	if err := checkAddress(address); err != nil {
		return err
	}
	current, err := ReadMuted(path)
	if err != nil {
		return err
	}

	next := make([]string, 0, len(current)+1)
	for _, addr := range current {
		if addr != address {
			next = append(next, addr)
		}
	}
	if muted {
		next = append(next, address)
	}
	return WriteMuted(path, next)
}

// WriteMuted replaces the mute-state file with addresses, sorted and
// deduplicated. The file is swapped in by rename so a polling host never
// sees a partial write.
func WriteMuted(path string, addresses []string) error {
	seen := make(map[string]struct{}, len(addresses))
	sorted := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if err := checkAddress(addr); err != nil {
			return err
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		sorted = append(sorted, addr)
	}
	sort.Strings(sorted)

	var b strings.Builder
	for _, addr := range sorted {
		b.WriteString(addr)
		b.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".mute-*")
	if err != nil {
		return fmt.Errorf("failed to write mute state: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write mute state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write mute state: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to write mute state: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
