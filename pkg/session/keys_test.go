package session

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gregLibert/hwlink/pkg/tlv"
)

func TestParsePublicKey(t *testing.T) {
	compressed := "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	uncompressed := "04" + strings.Repeat("ab", 64)

	tests := []struct {
		name    string
		input   string
		want    PublicKey
		wantErr bool
	}{
		{
			name:  "compressed",
			input: compressed,
			want:  PublicKey{Bytes: tlv.Hex(compressed), Compressed: true},
		},
		{
			name:  "compressed odd prefix, upper case, 0x and spaces",
			input: "0x03" + strings.ToUpper(compressed[2:34]) + " " + compressed[34:],
			want:  PublicKey{Bytes: tlv.Hex("03", compressed[2:]), Compressed: true},
		},
		{
			name:  "uncompressed",
			input: uncompressed,
			want:  PublicKey{Bytes: tlv.Hex(uncompressed)},
		},
		{name: "empty", input: "", wantErr: true},
		{name: "compressed with 04 prefix", input: "04" + compressed[2:], wantErr: true},
		{name: "uncompressed with 02 prefix", input: "02" + uncompressed[2:], wantErr: true},
		{name: "one char short", input: compressed[:65], wantErr: true},
		{name: "non-hex", input: "02" + strings.Repeat("xy", 32), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePublicKey(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPublicKeyFormat) {
					t.Fatalf("error = %v, want ErrInvalidPublicKeyFormat", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParsePublicKey_ReasonNamesTheProblem(t *testing.T) {
	_, err := ParsePublicKey("05" + strings.Repeat("00", 32))
	if err == nil || !strings.Contains(err.Error(), "must start with 02 or 03") {
		t.Errorf("error = %v", err)
	}

	_, err = ParsePublicKey("0203")
	if err == nil || !strings.Contains(err.Error(), "got 4") {
		t.Errorf("error = %v", err)
	}
}

func TestParsePrivateKey(t *testing.T) {
	got, err := ParsePrivateKey("0x" + testPrivHex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(tlv.Hex(testPrivHex), got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"", testPrivHex[:63], testPrivHex + "00", strings.Repeat("q", 64)} {
		if _, err := ParsePrivateKey(bad); !errors.Is(err, ErrInvalidPrivateKeyFormat) {
			t.Errorf("ParsePrivateKey(%q) error = %v", bad, err)
		}
	}
}

func TestBuildEnrollmentPayload(t *testing.T) {
	pub := tlv.Hex("02", strings.Repeat("11", 32))
	sig := tlv.Hex(strings.Repeat("22", 64))

	got, err := BuildEnrollmentPayload(pub, sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := append(append([]byte{33}, pub...), sig...)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if _, err := BuildEnrollmentPayload(pub[:32], sig); err == nil {
		t.Error("expected error for 32-byte key")
	}
	if _, err := BuildEnrollmentPayload(pub, sig[:63]); err == nil {
		t.Error("expected error for 63-byte signature")
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    Version
		wantErr bool
	}{
		{input: "2.1.4", want: Version{Major: 2, Minor: 1, Patch: 4, Raw: "2.1.4"}},
		{input: "1.0.12\x00\x00", want: Version{Major: 1, Minor: 0, Patch: 12, Raw: "1.0.12"}},
		{input: "3.2.1-beta.4", want: Version{Major: 3, Minor: 2, Patch: 1, Raw: "3.2.1-beta.4"}},
		{input: "v1.2.3", want: Version{Major: 0, Minor: 2, Patch: 3, Raw: "v1.2.3"}},
		{input: "1.2", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrVersionUnavailable) {
					t.Fatalf("error = %v, want ErrVersionUnavailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReplyText(t *testing.T) {
	tests := map[string]struct {
		payload []byte
		want    string
	}{
		"firmware json":        {[]byte("{\n\t\"payload\":\t\"Invalid packet index\"\n}"), "Invalid packet index"},
		"plain text":           {[]byte("pong"), "pong"},
		"binary":               {[]byte{0x01, 'a', 0xFF}, ".a."},
		"json without payload": {[]byte(`{"other": 1}`), `{"other": 1}`},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := ReplyText(tt.payload); got != tt.want {
				t.Errorf("ReplyText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPhaseError_Format(t *testing.T) {
	base := errors.New("boom")
	tests := []struct {
		err  *PhaseError
		want string
	}{
		{&PhaseError{Phase: PhaseSend, Index: 2, Total: 3, Err: base}, "send fragment 2/3: boom"},
		{&PhaseError{Phase: PhaseReceive, Index: 1, Err: base}, "receive fragment 1: boom"},
		{&PhaseError{Phase: PhaseBuild, Err: base}, "build request: boom"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
		if !errors.Is(tt.err, base) {
			t.Errorf("%q does not unwrap to the cause", tt.want)
		}
	}
}
