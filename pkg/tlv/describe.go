package tlv

import (
	"fmt"
	"strings"
)

// WriteEntries writes one report line per entry to sb.
// Lines are joined with newlines without a trailing newline; if the builder
// already holds content, a separating newline is prepended.
// labels maps record types to display names; unlabeled types are reported as
// "Type XX".
func WriteEntries(sb *strings.Builder, entries []Entry, labels map[uint8]string) {
	if len(entries) == 0 {
		return
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, formatEntry(e, labels))
	}

	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Join(lines, "\n"))
}

func formatEntry(e Entry, labels map[uint8]string) string {
	name, ok := labels[e.Type]
	if !ok {
		name = fmt.Sprintf("Type %02X", e.Type)
	} else {
		name = fmt.Sprintf("%s (%02X)", name, e.Type)
	}

	if len(e.Value) == 0 {
		return fmt.Sprintf("    - %s: <empty>", name)
	}
	return fmt.Sprintf("    - %s: %X (%q)", name, e.Value, MakeSafeASCII(e.Value))
}

// Text returns the value as a string with NUL padding removed.
func (e Entry) Text() string {
	return strings.ReplaceAll(string(e.Value), "\x00", "")
}

// MakeSafeASCII replaces non-printable bytes with '.'.
func MakeSafeASCII(data []byte) string {
	return strings.Map(func(r rune) rune {
		if r >= 32 && r <= 126 {
			return r
		}
		return '.'
	}, string(data))
}
