package frame

import "fmt"

// Service identifiers.
const (
	ServiceDeviceInfo   uint8 = 1
	ServiceFileTrans    uint8 = 2
	ServiceNFTFileTrans uint8 = 3
)

// Device info service commands.
const (
	CmdDeviceInfoBasic   uint8 = 1
	CmdDeviceInfoRunning uint8 = 2
)

// TLV record types used by the device info service.
const (
	TLVDeviceModel           uint8 = 0x01
	TLVDeviceSerialNumber    uint8 = 0x02
	TLVDeviceHardwareVersion uint8 = 0x03
	TLVDeviceFirmwareVersion uint8 = 0x04
	TLVDeviceBootVersion     uint8 = 0x05
	TLVUpdatePubKey          uint8 = 0x10
	TLVGeneralResult         uint8 = 0xFF
)

// TLVLabels names the known record types for reports.
var TLVLabels = map[uint8]string{
	TLVDeviceModel:           "Model",
	TLVDeviceSerialNumber:    "Serial Number",
	TLVDeviceHardwareVersion: "Hardware Version",
	TLVDeviceFirmwareVersion: "Firmware Version",
	TLVDeviceBootVersion:     "Boot Version",
	TLVUpdatePubKey:          "Update Public Key",
	TLVGeneralResult:         "General Result",
}

// ServiceName returns a display name for a service id.
func ServiceName(id uint8) string {
	switch id {
	case ServiceDeviceInfo:
		return "DEVICE_INFO (1)"
	case ServiceFileTrans:
		return "FILE_TRANS (2)"
	case ServiceNFTFileTrans:
		return "NFT_FILE_TRANS (3)"
	default:
		return fmt.Sprintf("UNKNOWN (%d)", id)
	}
}
