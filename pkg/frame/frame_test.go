package frame

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gregLibert/hwlink/pkg/status"
	"github.com/gregLibert/hwlink/pkg/tlv"
)

func TestBuild_DeviceInfoRequest(t *testing.T) {
	raw, err := Build(ServiceDeviceInfo, CmdDeviceInfoBasic, nil, 0)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// Header, version, index, service, command, flags=isHost, length=0.
	wantHeader := tlv.Hex("6B 00 0000 01 01 0200 0000")
	if diff := cmp.Diff(wantHeader, raw[:HeaderLen]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if len(raw) != HeaderLen+ChecksumLen {
		t.Fatalf("len = %d, want %d", len(raw), HeaderLen+ChecksumLen)
	}
	if got, want := binary.LittleEndian.Uint32(raw[HeaderLen:]), crc32.ChecksumIEEE(raw[:HeaderLen]); got != want {
		t.Errorf("checksum = %08X, want %08X", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	entries := []tlv.Entry{
		tlv.New(TLVDeviceModel, []byte("Keystone 3 Pro")),
		tlv.New(TLVDeviceFirmwareVersion, []byte("1.2.3")),
		tlv.New(TLVUpdatePubKey, make([]byte, 200)),
	}

	raw, err := Build(ServiceDeviceInfo, CmdDeviceInfoRunning, entries, 7)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	body := raw[:len(raw)-ChecksumLen]
	if got, want := binary.LittleEndian.Uint32(raw[len(body):]), crc32.ChecksumIEEE(body); got != want {
		t.Errorf("checksum = %08X, want CRC-32/IEEE %08X", got, want)
	}
	if !VerifyChecksum(raw) {
		t.Error("VerifyChecksum() = false for a freshly built frame")
	}

	f, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if f.ServiceID != ServiceDeviceInfo || f.CommandID != CmdDeviceInfoRunning || f.PacketIndex != 7 {
		t.Errorf("header fields = (%d, %d, %d)", f.ServiceID, f.CommandID, f.PacketIndex)
	}
	if diff := cmp.Diff(Flags{IsHost: true}, f.Flags); diff != "" {
		t.Errorf("flags mismatch (-want +got):\n%s", diff)
	}
	if int(f.PayloadLength) != len(f.Payload) || len(raw) != HeaderLen+len(f.Payload)+ChecksumLen {
		t.Errorf("payload length %d does not match %d encoded bytes", f.PayloadLength, len(f.Payload))
	}
	if diff := cmp.Diff(entries, f.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if !f.Success {
		t.Error("frame without general result should be successful")
	}
}

func TestParse_Idempotent(t *testing.T) {
	raw, err := Build(ServiceFileTrans, 3, []tlv.Entry{tlv.New(0x01, []byte{0xAA})}, 1)
	if err != nil {
		t.Fatal(err)
	}

	first, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Parse() is not idempotent (-first +second):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		wantErr error
	}{
		{"Empty", nil, ErrFrameTooShort},
		{"Nine Bytes", tlv.Hex("6B 00 0000 01 01 0200 00"), ErrFrameTooShort},
		// Length is checked first, so a short buffer with a bad header is too short.
		{"Short With Bad Header", tlv.Hex("AA 00"), ErrFrameTooShort},
		{"Bad Header", tlv.Hex("6A 00 0000 01 01 0200 0000"), ErrHeaderMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParse_GeneralResult(t *testing.T) {
	tests := []struct {
		name        string
		entries     []tlv.Entry
		wantSuccess bool
		wantResult  status.Internal
	}{
		{"Absent", []tlv.Entry{tlv.New(TLVDeviceModel, []byte("K3"))}, true, status.INTERNAL_SUCCESS},
		{"Zero", []tlv.Entry{tlv.New(TLVGeneralResult, []byte{0x00})}, true, status.INTERNAL_SUCCESS},
		{"Busy", []tlv.Entry{tlv.New(TLVGeneralResult, []byte{0x04})}, false, status.INTERNAL_ERR_DEVICE_BUSY},
		{"Empty Value", []tlv.Entry{tlv.New(TLVGeneralResult, nil)}, false, status.INTERNAL_ERR_UNKNOWN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Encode(&Frame{ServiceID: ServiceDeviceInfo, CommandID: 1, Flags: Flags{Ack: true}, Entries: tt.entries})
			if err != nil {
				t.Fatal(err)
			}
			f, err := Parse(raw)
			if err != nil {
				t.Fatal(err)
			}
			if f.Success != tt.wantSuccess || f.Result != tt.wantResult {
				t.Errorf("Success, Result = %v, %s; want %v, %s", f.Success, f.Result.Verbose(), tt.wantSuccess, tt.wantResult.Verbose())
			}
		})
	}
}

func TestParse_ClampsPayload(t *testing.T) {
	// Header announces 16 payload bytes but only 6 follow; no checksum.
	raw := tlv.Hex("6B 00 0000 01 01 0100 1000", "01 02 4B33", "04 05")

	f, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if f.PayloadLength != 16 {
		t.Errorf("PayloadLength = %d, want 16", f.PayloadLength)
	}
	if len(f.Payload) != 6 {
		t.Errorf("len(Payload) = %d, want 6", len(f.Payload))
	}
	if f.Checksum != 0 {
		t.Errorf("Checksum = %08X, want 0", f.Checksum)
	}
	// The truncated firmware-version record is dropped.
	want := []tlv.Entry{{Type: TLVDeviceModel, Length: 2, Value: []byte("K3")}}
	if diff := cmp.Diff(want, f.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if VerifyChecksum(raw) {
		t.Error("VerifyChecksum() = true for a truncated frame")
	}
}

func TestParse_DoesNotVerifyChecksum(t *testing.T) {
	raw, err := Build(ServiceDeviceInfo, CmdDeviceInfoBasic, []tlv.Entry{tlv.New(TLVDeviceModel, []byte("K3"))}, 0)
	if err != nil {
		t.Fatal(err)
	}
	raw[len(raw)-1] ^= 0xFF

	if _, err := Parse(raw); err != nil {
		t.Errorf("Parse() error = %v, corrupted checksum must be tolerated", err)
	}
	if VerifyChecksum(raw) {
		t.Error("VerifyChecksum() = true for a corrupted checksum")
	}
}

func TestChecksum_KnownVector(t *testing.T) {
	// CRC-32/IEEE check value.
	if got := Checksum([]byte("123456789")); got != 0xCBF43926 {
		t.Errorf("Checksum() = %08X, want CBF43926", got)
	}
}

func TestFlags(t *testing.T) {
	tests := []struct {
		flags Flags
		wire  uint16
	}{
		{Flags{}, 0x0000},
		{Flags{Ack: true}, 0x0001},
		{Flags{IsHost: true}, 0x0002},
		{Flags{Ack: true, IsHost: true}, 0x0003},
	}
	for _, tt := range tests {
		if got := tt.flags.Encode(); got != tt.wire {
			t.Errorf("%+v.Encode() = %04X, want %04X", tt.flags, got, tt.wire)
		}
		if got := DecodeFlags(tt.wire); got != tt.flags {
			t.Errorf("DecodeFlags(%04X) = %+v, want %+v", tt.wire, got, tt.flags)
		}
	}
}

func TestDescribe(t *testing.T) {
	raw, err := Encode(&Frame{
		ServiceID: ServiceDeviceInfo,
		CommandID: CmdDeviceInfoBasic,
		Flags:     Flags{Ack: true},
		Entries: []tlv.Entry{
			tlv.New(TLVDeviceModel, []byte("K3")),
			tlv.New(TLVGeneralResult, []byte{0x00}),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	f, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}

	report := f.Describe()
	for _, want := range []string{
		"Service: DEVICE_INFO (1)",
		"ack=true host=false",
		"Result:  [0x00] Success",
		`- Model (01): 4B33 ("K3")`,
		"- General Result (FF): 00",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("Describe() missing %q in:\n%s", want, report)
		}
	}
}
