package devicesim

import (
	"encoding/json"

	"github.com/gregLibert/hwlink/pkg/eapdu"
	"github.com/gregLibert/hwlink/pkg/frame"
	"github.com/gregLibert/hwlink/pkg/keycrypto"
	"github.com/gregLibert/hwlink/pkg/status"
	"github.com/gregLibert/hwlink/pkg/tlv"
)

const signatureLen = keycrypto.SignatureLen

func (d *Device) handleEAPDU(raw []byte) {
	p, err := d.codec.ParsePacket(raw)
	if err != nil {
		d.log.Debug().Err(err).Msg("dropping packet")
		return
	}

	total, index := int(p.Total), int(p.Index)
	switch {
	case total > MaxPackets:
		d.replyMessage(p.Command, p.RequestID, status.EAPDU_INVALID_TOTAL_PACKETS, "Invalid total number of packets")
		d.resetParser()
		return
	case index >= total:
		d.replyMessage(p.Command, p.RequestID, status.EAPDU_INVALID_INDEX, "Invalid packet index")
		d.resetParser()
		return
	}
	if _, dup := d.fragments[index]; dup {
		d.log.Debug().Int("index", index).Msg("duplicate fragment")
		return
	}

	if d.total == 0 {
		d.total = total
	}
	d.fragments[index] = append([]byte(nil), p.Data...)

	var data []byte
	for i := 0; i < d.total; i++ {
		chunk, ok := d.fragments[i]
		if !ok {
			return
		}
		data = append(data, chunk...)
	}
	d.resetParser()

	d.log.Debug().Stringer("command", p.Command).Int("bytes", len(data)).Msg("request complete")
	d.dispatch(p.Command, p.RequestID, data)
}

func (d *Device) dispatch(cmd eapdu.Command, requestID uint16, data []byte) {
	switch cmd {
	case eapdu.CMD_ECHO_TEST:
		d.reply(cmd, requestID, status.EAPDU_SUCCESS, data)
	case eapdu.CMD_GET_DEVICE_USB_PUBKEY:
		d.enroll(requestID, data)
	case eapdu.CMD_GET_DEVICE_INFO:
		d.replyDeviceInfo(requestID)
	default:
		d.log.Debug().Stringer("command", cmd).Msg("no handler")
	}
}

func (d *Device) enroll(requestID uint16, data []byte) {
	const cmd = eapdu.CMD_GET_DEVICE_USB_PUBKEY

	if len(data) == 0 {
		d.replyMessage(cmd, requestID, status.EAPDU_SET_PUBKEY_INVALID_PARAMS, "Invalid params")
		return
	}
	n := int(data[0])
	if (n != keycrypto.CompressedPublicKeyLen && n != keycrypto.UncompressedPublicKeyLen) || len(data) != 1+n+signatureLen {
		d.replyMessage(cmd, requestID, status.EAPDU_SET_PUBKEY_INVALID_PARAMS, "Invalid params")
		return
	}

	pub := data[1 : 1+n]
	sig := data[1+n:]
	hash := d.crypto.SHA256(pub)
	if !d.crypto.Verify(sig, hash[:], pub) {
		d.replyMessage(cmd, requestID, status.EAPDU_SET_PUBKEY_VERIFY_FAILED, "Verify failed")
		return
	}

	st := status.EAPDU_SET_PUBKEY_SET_SUCCESS
	if d.enrollStatus != 0 {
		st = d.enrollStatus
	}
	if st.IsSuccess() {
		d.enrolled = append([]byte(nil), pub...)
	}
	d.replyMessage(cmd, requestID, st, st.Label())
}

func (d *Device) replyDeviceInfo(requestID uint16) {
	body, err := json.MarshalIndent(map[string]string{
		"model":           d.info.Model,
		"serialNumber":    d.info.SerialNumber,
		"hardwareVersion": d.info.HardwareVersion,
		"firmwareVersion": d.info.FirmwareVersion,
		"bootVersion":     d.info.BootVersion,
	}, "", "\t")
	if err != nil {
		d.log.Error().Err(err).Msg("encode device info")
		return
	}
	d.reply(eapdu.CMD_GET_DEVICE_INFO, requestID, status.EAPDU_SUCCESS, body)
}

// replyMessage sends msg wrapped as {"payload": msg}.
func (d *Device) replyMessage(cmd eapdu.Command, requestID uint16, st status.EAPDU, msg string) {
	body, err := json.MarshalIndent(map[string]string{"payload": msg}, "", "\t")
	if err != nil {
		d.log.Error().Err(err).Msg("encode reply")
		return
	}
	d.reply(cmd, requestID, st, body)
}

func (d *Device) reply(cmd eapdu.Command, requestID uint16, st status.EAPDU, payload []byte) {
	packets, err := d.codec.BuildResponseFragments(cmd, requestID, st, payload)
	if err != nil {
		d.log.Error().Err(err).Msg("build reply")
		return
	}
	d.log.Debug().Stringer("command", cmd).Stringer("status", st).Int("packets", len(packets)).Msg("reply queued")
	d.outbox = append(d.outbox, packets...)
}

func (d *Device) handleFrame(raw []byte) {
	req, err := frame.Parse(raw)
	if err != nil {
		d.log.Debug().Err(err).Msg("dropping frame")
		return
	}

	var entries []tlv.Entry
	if req.ServiceID == frame.ServiceDeviceInfo && req.CommandID == frame.CmdDeviceInfoBasic {
		entries = []tlv.Entry{
			tlv.New(frame.TLVDeviceModel, []byte(d.info.Model)),
			tlv.New(frame.TLVDeviceSerialNumber, []byte(d.info.SerialNumber)),
			tlv.New(frame.TLVDeviceHardwareVersion, []byte(d.info.HardwareVersion)),
			tlv.New(frame.TLVDeviceFirmwareVersion, []byte(d.info.FirmwareVersion)),
			tlv.New(frame.TLVDeviceBootVersion, []byte(d.info.BootVersion)),
			tlv.New(frame.TLVGeneralResult, []byte{byte(status.INTERNAL_SUCCESS)}),
		}
	} else {
		entries = []tlv.Entry{
			tlv.New(frame.TLVGeneralResult, []byte{byte(status.INTERNAL_ERR_INVALID_CMD)}),
		}
	}

	out, err := frame.Encode(&frame.Frame{
		Version:     frame.Version,
		PacketIndex: req.PacketIndex,
		ServiceID:   req.ServiceID,
		CommandID:   req.CommandID,
		Flags:       frame.Flags{Ack: true},
		Entries:     entries,
	})
	if err != nil {
		d.log.Error().Err(err).Msg("build frame reply")
		return
	}
	d.outbox = append(d.outbox, out)
}
