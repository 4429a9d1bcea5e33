package hci

import (
	"encoding/binary"
	"io"
)

// Section 7.3.1
type EventMask uint64

const (
	EventMaskDisconnectionCompleteEvent        EventMask = (1 << 4)
	EventMaskEncryptionChangeEvent             EventMask = (1 << 7)
	EventMaskHardwareErrorEvent                EventMask = (1 << 15)
	EventMaskDataBufferOverflowEvent           EventMask = (1 << 25)
	EventMaskEncryptionKeyRefreshCompleteEvent EventMask = (1 << 47)
	EventMaskLEMetaEvent                       EventMask = (1 << 61)
)

type HCISetEventMaskCommandPacket struct {
	EventMask
}

func (p *HCISetEventMaskCommandPacket) Marshal() ([]byte, error) {
	buf := newCommand(OpcodeSetEventMask, 8)
	binary.LittleEndian.PutUint64(buf[4:], uint64(p.EventMask))
	return buf, nil
}

func (p *HCISetEventMaskCommandPacket) Unmarshal(buf []byte) error {
	params, err := commandParams(buf, OpcodeSetEventMask)
	if err != nil {
		return err
	}
	if len(params) != 8 {
		return io.ErrShortBuffer
	}
	p.EventMask = EventMask(binary.LittleEndian.Uint64(params))
	return nil
}

func (p *HCISetEventMaskCommandPacket) Opcode() Opcode {
	return OpcodeSetEventMask
}

func (a *Adapter) SetEventMask(mask EventMask) error {
	_, err := a.op(&HCISetEventMaskCommandPacket{EventMask: mask})
	return err
}
