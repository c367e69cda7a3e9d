package tlv

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriteEntries(t *testing.T) {
	labels := map[uint8]string{
		0x01: "Model",
		0x04: "Firmware Version",
	}

	tests := []struct {
		name          string
		preset        string
		entries       []Entry
		expectedLines []string
	}{
		{
			name: "Labeled and Unlabeled",
			entries: []Entry{
				New(0x01, []byte("K3")),
				New(0x04, []byte{'1', '.', '2', 0x00}),
				New(0x7A, []byte{0xCA, 0xFE}),
				New(0x05, nil),
			},
			expectedLines: []string{
				`    - Model (01): 4B33 ("K3")`,
				`    - Firmware Version (04): 312E3200 ("1.2.")`,
				`    - Type 7A: CAFE ("..")`,
				`    - Type 05: <empty>`,
			},
		},
		{
			name:    "Existing Content",
			preset:  "=== HEADER ===",
			entries: []Entry{New(0x01, []byte("K3"))},
			expectedLines: []string{
				"=== HEADER ===",
				`    - Model (01): 4B33 ("K3")`,
			},
		},
		{
			name:          "No Entries",
			expectedLines: []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			sb.WriteString(tt.preset)
			WriteEntries(&sb, tt.entries, labels)
			actualLines := strings.Split(sb.String(), "\n")

			if diff := cmp.Diff(tt.expectedLines, actualLines); diff != "" {
				t.Errorf("Mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEntryText(t *testing.T) {
	e := New(0x04, []byte{'1', '.', '0', '.', '3', 0x00, 0x00})
	if got := e.Text(); got != "1.0.3" {
		t.Errorf("Text() = %q, want %q", got, "1.0.3")
	}
}

func TestMakeSafeASCII(t *testing.T) {
	input := []byte{0x41, 0x42, 0x00, 0x1F, 0x7F, 0x43} // AB, null, US, DEL, C
	want := "AB...C"                                    // 0x7F (127) is > 126, so it becomes dot

	got := MakeSafeASCII(input)
	if got != want {
		t.Errorf("MakeSafeASCII() = %q, want %q", got, want)
	}
}
