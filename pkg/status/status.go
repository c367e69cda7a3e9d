// Package status classifies the numeric status codes returned by the device.
//
// The device speaks two protocols with separate status spaces:
//
//  1. EAPDU: a 16-bit status trailer closes every response packet. The code
//     space is shared by generic protocol results (0x00-0x03), request parsing
//     (0x04-0x09), address export (0x0A-0x10) and public key enrollment
//     (0x11-0x17). Two enrollment outcomes, "verify success" (0x16) and
//     "set success" (0x17), count as success alongside 0x00.
//
//  2. Internal (0x6B frames): an 8-bit result carried in the general-result
//     TLV entry.
//
// Lookups never fail. Unmapped codes get an "Unknown status" label and are
// classified as failures.
package status

import "fmt"

// Outcome is the semantic class of a status code.
type Outcome int

const (
	// Success means the device completed the request.
	Success Outcome = iota
	// Failure means the request was well-formed but the device refused it or
	// could not complete it.
	Failure
	// Malformed means the device could not parse the request itself.
	Malformed
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Malformed:
		return "malformed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// EAPDU is the status trailer of an EAPDU response packet.
type EAPDU uint16

// EAPDU status codes as defined by the device firmware.
const (
	EAPDU_SUCCESS                       EAPDU = 0x00
	EAPDU_FAILURE                       EAPDU = 0x01
	EAPDU_INVALID_TOTAL_PACKETS         EAPDU = 0x02
	EAPDU_INVALID_INDEX                 EAPDU = 0x03
	EAPDU_PARSING_REJECTED              EAPDU = 0x04
	EAPDU_PARSING_ERROR                 EAPDU = 0x05
	EAPDU_PARSING_DISALLOWED            EAPDU = 0x06
	EAPDU_PARSING_UNMATCHED             EAPDU = 0x07
	EAPDU_PARSING_MISMATCHED_WALLET     EAPDU = 0x08
	EAPDU_PARSING_VERIFY_PASSWORD_ERROR EAPDU = 0x09
	EAPDU_EXPORT_ADDRESS_UNSUPPORTED    EAPDU = 0x0A
	EAPDU_EXPORT_ADDRESS_INVALID_PARAMS EAPDU = 0x0B
	EAPDU_EXPORT_ADDRESS_ERROR          EAPDU = 0x0C
	EAPDU_EXPORT_ADDRESS_DISALLOWED     EAPDU = 0x0D
	EAPDU_EXPORT_ADDRESS_REJECTED       EAPDU = 0x0E
	EAPDU_EXPORT_ADDRESS_BUSY           EAPDU = 0x0F
	EAPDU_HARDWARE_CALL_SUCCESS         EAPDU = 0x10
	EAPDU_SET_PUBKEY_ERROR              EAPDU = 0x11
	EAPDU_SET_PUBKEY_REJECTED           EAPDU = 0x12
	EAPDU_SET_PUBKEY_BUSY               EAPDU = 0x13
	EAPDU_SET_PUBKEY_INVALID_PARAMS     EAPDU = 0x14
	EAPDU_SET_PUBKEY_VERIFY_FAILED      EAPDU = 0x15
	EAPDU_SET_PUBKEY_VERIFY_SUCCESS     EAPDU = 0x16
	EAPDU_SET_PUBKEY_SET_SUCCESS        EAPDU = 0x17
)

var eapduLabels = map[EAPDU]string{
	EAPDU_SUCCESS:                       "Success",
	EAPDU_FAILURE:                       "Failure",
	EAPDU_INVALID_TOTAL_PACKETS:         "Invalid total packets",
	EAPDU_INVALID_INDEX:                 "Invalid packet index",
	EAPDU_PARSING_REJECTED:              "Parsing rejected",
	EAPDU_PARSING_ERROR:                 "Parsing error",
	EAPDU_PARSING_DISALLOWED:            "Parsing disallowed",
	EAPDU_PARSING_UNMATCHED:             "Parsing unmatched",
	EAPDU_PARSING_MISMATCHED_WALLET:     "Parsing mismatched wallet",
	EAPDU_PARSING_VERIFY_PASSWORD_ERROR: "Parsing verify password error",
	EAPDU_EXPORT_ADDRESS_UNSUPPORTED:    "Export address unsupported chain",
	EAPDU_EXPORT_ADDRESS_INVALID_PARAMS: "Export address invalid params",
	EAPDU_EXPORT_ADDRESS_ERROR:          "Export address error",
	EAPDU_EXPORT_ADDRESS_DISALLOWED:     "Export address disallowed",
	EAPDU_EXPORT_ADDRESS_REJECTED:       "Export address rejected",
	EAPDU_EXPORT_ADDRESS_BUSY:           "Export address busy",
	EAPDU_HARDWARE_CALL_SUCCESS:         "Hardware call success",
	EAPDU_SET_PUBKEY_ERROR:              "Set pubkey error",
	EAPDU_SET_PUBKEY_REJECTED:           "Set pubkey rejected",
	EAPDU_SET_PUBKEY_BUSY:               "Set pubkey busy",
	EAPDU_SET_PUBKEY_INVALID_PARAMS:     "Set pubkey invalid params",
	EAPDU_SET_PUBKEY_VERIFY_FAILED:      "Set pubkey verify failed",
	EAPDU_SET_PUBKEY_VERIFY_SUCCESS:     "Set pubkey verify success",
	EAPDU_SET_PUBKEY_SET_SUCCESS:        "Set pubkey set success",
}

// IsSuccess reports whether the device accepted the request.
// This is the only place the widened success set is defined.
func (s EAPDU) IsSuccess() bool {
	switch s {
	case EAPDU_SUCCESS, EAPDU_SET_PUBKEY_VERIFY_SUCCESS, EAPDU_SET_PUBKEY_SET_SUCCESS:
		return true
	default:
		return false
	}
}

// IsKnown reports whether the code has a firmware definition.
func (s EAPDU) IsKnown() bool {
	_, ok := eapduLabels[s]
	return ok
}

// Outcome classifies the status.
func (s EAPDU) Outcome() Outcome {
	if s.IsSuccess() {
		return Success
	}
	switch s {
	case EAPDU_INVALID_TOTAL_PACKETS, EAPDU_INVALID_INDEX, EAPDU_PARSING_ERROR:
		return Malformed
	default:
		return Failure
	}
}

// Label returns the firmware name of the status, or "Unknown status: 0x<hex>".
func (s EAPDU) Label() string {
	if label, ok := eapduLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("Unknown status: 0x%x", uint16(s))
}

func (s EAPDU) String() string {
	return s.Label()
}

// Verbose returns the code and label, e.g. "[0x0017] Set pubkey set success".
func (s EAPDU) Verbose() string {
	return fmt.Sprintf("[0x%04X] %s", uint16(s), s.Label())
}

// Internal is the result byte of the 0x6B frame protocol.
type Internal uint8

// Internal protocol result codes.
const (
	INTERNAL_SUCCESS            Internal = 0x00
	INTERNAL_ERR_INVALID_CMD    Internal = 0x01
	INTERNAL_ERR_INVALID_LENGTH Internal = 0x02
	INTERNAL_ERR_INVALID_DATA   Internal = 0x03
	INTERNAL_ERR_DEVICE_BUSY    Internal = 0x04
	INTERNAL_ERR_TIMEOUT        Internal = 0x05
	INTERNAL_ERR_UNKNOWN        Internal = 0xFF
)

var internalLabels = map[Internal]string{
	INTERNAL_SUCCESS:            "Success",
	INTERNAL_ERR_INVALID_CMD:    "Invalid command",
	INTERNAL_ERR_INVALID_LENGTH: "Invalid length",
	INTERNAL_ERR_INVALID_DATA:   "Invalid data",
	INTERNAL_ERR_DEVICE_BUSY:    "Device busy",
	INTERNAL_ERR_TIMEOUT:        "Timeout",
	INTERNAL_ERR_UNKNOWN:        "Unknown error",
}

// IsSuccess reports whether the result byte signals success.
func (s Internal) IsSuccess() bool {
	return s == INTERNAL_SUCCESS
}

// Outcome classifies the result byte.
func (s Internal) Outcome() Outcome {
	switch s {
	case INTERNAL_SUCCESS:
		return Success
	case INTERNAL_ERR_INVALID_CMD, INTERNAL_ERR_INVALID_LENGTH, INTERNAL_ERR_INVALID_DATA:
		return Malformed
	default:
		return Failure
	}
}

// Label returns the name of the result, or "Unknown status code: 0x<hex>".
func (s Internal) Label() string {
	if label, ok := internalLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("Unknown status code: 0x%x", uint8(s))
}

func (s Internal) String() string {
	return s.Label()
}

// Verbose returns the code and label, e.g. "[0x04] Device busy".
func (s Internal) Verbose() string {
	return fmt.Sprintf("[0x%02X] %s", uint8(s), s.Label())
}
