package session

import (
	"context"

	"github.com/gregLibert/hwlink/pkg/eapdu"
)

// Exchange sends payload as cmd and returns the reassembled response.
// A non-success status returns the response together with a
// *DeviceStatusError.
func (s *Session) Exchange(ctx context.Context, cmd eapdu.Command, payload []byte) (*eapdu.Response, error) {
	conn, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer s.end()

	resp, err := s.exchange(ctx, conn, cmd, payload, s.cfg.ReadTimeout)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return resp, &DeviceStatusError{Command: cmd, Status: resp.Status, Outcome: resp.Status.Outcome()}
	}
	return resp, nil
}

// Echo sends data with CMD_ECHO_TEST and returns what the device sent back.
func (s *Session) Echo(ctx context.Context, data []byte) ([]byte, error) {
	resp, err := s.Exchange(ctx, eapdu.CMD_ECHO_TEST, data)
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}
