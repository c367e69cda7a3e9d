package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gregLibert/hwlink/pkg/frame"
	"github.com/gregLibert/hwlink/pkg/tlv"
)

// DeviceInfo is the answer to the basic device info query.
type DeviceInfo struct {
	Model           string
	SerialNumber    string
	HardwareVersion string
	FirmwareVersion string
	BootVersion     string

	// Frame is the parsed reply, kept for reports.
	Frame *frame.Frame
}

// Version is a parsed firmware version string.
type Version struct {
	Major int
	Minor int
	Patch int
	Raw   string
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseVersion reads "major.minor.patch". Each component keeps its leading
// digits and counts as 0 when there are none; fewer than three components
// yield ErrVersionUnavailable.
func ParseVersion(s string) (Version, error) {
	raw := strings.ReplaceAll(s, "\x00", "")
	parts := strings.Split(raw, ".")
	if len(parts) < 3 {
		return Version{}, fmt.Errorf("%w: %q", ErrVersionUnavailable, raw)
	}
	return Version{
		Major: leadingInt(parts[0]),
		Minor: leadingInt(parts[1]),
		Patch: leadingInt(parts[2]),
		Raw:   raw,
	}, nil
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// Frame sends one internal protocol frame and returns the parsed reply.
// A reply whose general result is not success returns the frame together
// with a *FrameStatusError.
func (s *Session) Frame(ctx context.Context, serviceID, commandID uint8, entries []tlv.Entry) (*frame.Frame, error) {
	conn, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer s.end()

	raw, err := frame.Build(serviceID, commandID, entries, 0)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseBuild, Err: err}
	}

	log := s.cfg.Logger.With().Str("service", frame.ServiceName(serviceID)).Uint8("command", commandID).Logger()
	log.Debug().Hex("raw", raw).Msg("sent")
	if err := conn.Send(ctx, raw); err != nil {
		return nil, &PhaseError{Phase: PhaseSend, Index: 1, Total: 1, Err: err}
	}

	reply, err := conn.Receive(ctx, frame.MaxPacketSize, s.cfg.ReadTimeout)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseReceive, Index: 1, Total: 1, Err: err}
	}
	log.Debug().Hex("raw", reply).Msg("received")

	f, err := frame.Parse(reply)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseParse, Index: 1, Total: 1, Err: err}
	}
	if !frame.VerifyChecksum(reply) {
		log.Warn().Uint32("checksum", f.Checksum).Msg("frame checksum does not match its content")
	}
	if !f.Success {
		return f, &FrameStatusError{ServiceID: f.ServiceID, CommandID: f.CommandID, Result: f.Result}
	}
	return f, nil
}

// DeviceInfo queries the basic device info service.
func (s *Session) DeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	f, err := s.Frame(ctx, frame.ServiceDeviceInfo, frame.CmdDeviceInfoBasic, nil)
	if err != nil {
		return nil, err
	}

	text := func(typ uint8) string {
		if e, ok := f.Find(typ); ok {
			return e.Text()
		}
		return ""
	}
	return &DeviceInfo{
		Model:           text(frame.TLVDeviceModel),
		SerialNumber:    text(frame.TLVDeviceSerialNumber),
		HardwareVersion: text(frame.TLVDeviceHardwareVersion),
		FirmwareVersion: text(frame.TLVDeviceFirmwareVersion),
		BootVersion:     text(frame.TLVDeviceBootVersion),
		Frame:           f,
	}, nil
}

// FirmwareVersion reads and parses the firmware version of the device.
func (s *Session) FirmwareVersion(ctx context.Context) (Version, error) {
	info, err := s.DeviceInfo(ctx)
	if err != nil {
		return Version{}, err
	}
	return ParseVersion(info.FirmwareVersion)
}
