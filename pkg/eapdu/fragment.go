package eapdu

import (
	"fmt"

	"github.com/gregLibert/hwlink/pkg/status"
)

// FragmentCount returns how many packets of size chunk carry n bytes.
// An empty payload still needs one packet.
func FragmentCount(n, chunk int) int {
	if n == 0 {
		return 1
	}
	return (n + chunk - 1) / chunk
}

// BuildFragments splits payload into request packets for cmd.
// Every packet carries the same total and request id; indexes run from 0.
func (c Codec) BuildFragments(cmd Command, payload []byte, requestID uint16) ([][]byte, error) {
	total := FragmentCount(len(payload), MaxPayloadSize)
	if total > MaxFragments {
		return nil, fmt.Errorf("%w: %d bytes need %d fragments (max %d)", ErrPayloadTooLarge, len(payload), total, MaxFragments)
	}

	packets := make([][]byte, 0, total)
	for i := 0; i < total; i++ {
		start := i * MaxPayloadSize
		end := min(start+MaxPayloadSize, len(payload))

		raw, err := c.Bytes(&Packet{
			Header: Header{
				Command:   cmd,
				Total:     uint16(total),
				Index:     uint16(i),
				RequestID: requestID,
			},
			Data: payload[start:end],
		})
		if err != nil {
			return nil, err
		}
		packets = append(packets, raw)
	}
	return packets, nil
}

// BuildResponseFragments splits a device reply into response packets, each
// closed by st.
func (c Codec) BuildResponseFragments(cmd Command, requestID uint16, st status.EAPDU, payload []byte) ([][]byte, error) {
	total := FragmentCount(len(payload), MaxResponseData)
	if total > MaxFragments {
		return nil, fmt.Errorf("%w: %d bytes need %d fragments (max %d)", ErrPayloadTooLarge, len(payload), total, MaxFragments)
	}

	packets := make([][]byte, 0, total)
	for i := 0; i < total; i++ {
		start := i * MaxResponseData
		end := min(start+MaxResponseData, len(payload))

		raw, err := c.ResponseBytes(&ResponsePacket{
			Header: Header{
				Command:   cmd,
				Total:     uint16(total),
				Index:     uint16(i),
				RequestID: requestID,
			},
			Data:   payload[start:end],
			Status: st,
		})
		if err != nil {
			return nil, err
		}
		packets = append(packets, raw)
	}
	return packets, nil
}

// PacketCountError reports a reassembly whose packet count disagrees with
// the total announced by the first packet.
type PacketCountError struct {
	Expected int
	Received int
}

func (e *PacketCountError) Error() string {
	return fmt.Sprintf("%v: expected %d, received %d", ErrPacketCountMismatch, e.Expected, e.Received)
}

func (e *PacketCountError) Unwrap() error {
	return ErrPacketCountMismatch
}

// Response is a reassembled device reply.
type Response struct {
	Command   Command
	RequestID uint16
	Total     int
	Status    status.EAPDU
	Payload   []byte

	// DivergentStatus lists the positions of packets whose trailer differs
	// from the first packet's. It is informational only.
	DivergentStatus []int
}

// IsSuccess classifies the response status.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// String returns a readable summary of the response.
func (r *Response) String() string {
	return fmt.Sprintf("%s | Request: %d | Packets: %d | Data: %d bytes | Status: %s",
		r.Command.Verbose(), r.RequestID, r.Total, len(r.Payload), r.Status.Verbose())
}

// Reassemble joins response packets received for one request.
//
// The first packet is authoritative for the command, request id, total and
// status. Payloads are concatenated in the order given; indexes are not used
// to reorder.
func (c Codec) Reassemble(packets [][]byte) (*Response, error) {
	if len(packets) == 0 {
		return nil, ErrNoPackets
	}

	first, err := c.ParseResponsePacket(packets[0])
	if err != nil {
		return nil, fmt.Errorf("packet 0: %w", err)
	}

	total := int(first.Total)
	if len(packets) != total {
		return nil, &PacketCountError{Expected: total, Received: len(packets)}
	}

	resp := &Response{
		Command:   first.Command,
		RequestID: first.RequestID,
		Total:     total,
		Status:    first.Status,
		Payload:   append([]byte(nil), first.Data...),
	}

	for i, raw := range packets[1:] {
		p, err := c.ParseResponsePacket(raw)
		if err != nil {
			return nil, fmt.Errorf("packet %d: %w", i+1, err)
		}
		if p.Status != first.Status {
			resp.DivergentStatus = append(resp.DivergentStatus, i+1)
		}
		resp.Payload = append(resp.Payload, p.Data...)
	}

	return resp, nil
}

// BuildFragments splits payload with the default codec.
func BuildFragments(cmd Command, payload []byte, requestID uint16) ([][]byte, error) {
	return Default.BuildFragments(cmd, payload, requestID)
}

// Reassemble joins response packets with the default codec.
func Reassemble(packets [][]byte) (*Response, error) {
	return Default.Reassemble(packets)
}
