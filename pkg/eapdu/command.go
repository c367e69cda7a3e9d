// Package eapdu implements the device's fragmented request/response protocol.
//
// A logical request is split into up to 65535 request packets sharing a
// command code, a fragment total and a request id. The device answers with
// one or more response packets, each ending with a status trailer. The host
// reassembles the reply by concatenating response data in arrival order.
package eapdu

import "fmt"

// Command identifies the operation requested from the device (INS field).
type Command uint16

// Commands understood by the device firmware.
const (
	CMD_ECHO_TEST             Command = 0x01
	CMD_RESOLVE_UR            Command = 0x02
	CMD_CHECK_LOCK_STATUS     Command = 0x03
	CMD_EXPORT_ADDRESS        Command = 0x04
	CMD_GET_DEVICE_INFO       Command = 0x05
	CMD_GET_DEVICE_USB_PUBKEY Command = 0x06
)

var commandNames = map[Command]string{
	CMD_ECHO_TEST:             "ECHO_TEST",
	CMD_RESOLVE_UR:            "RESOLVE_UR",
	CMD_CHECK_LOCK_STATUS:     "CHECK_LOCK_STATUS",
	CMD_EXPORT_ADDRESS:        "EXPORT_ADDRESS",
	CMD_GET_DEVICE_INFO:       "GET_DEVICE_INFO",
	CMD_GET_DEVICE_USB_PUBKEY: "GET_DEVICE_USB_PUBKEY",
}

// IsKnown reports whether the firmware defines the command.
func (c Command) IsKnown() bool {
	_, ok := commandNames[c]
	return ok
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(%d)", uint16(c))
}

// Verbose returns a human-readable description of the command.
func (c Command) Verbose() string {
	return fmt.Sprintf("INS: 0x%04X | Command: %s", uint16(c), c.String())
}
