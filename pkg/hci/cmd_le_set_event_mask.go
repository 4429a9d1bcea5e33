package hci

import (
	"encoding/binary"
	"io"
)

// Section 7.8.1. Bit n enables LE Meta subevent n+1.
type LEEventMask uint64

const (
	LEEventMaskConnectionCompleteEvent             LEEventMask = (1 << 0)
	LEEventMaskAdvertisingReportEvent              LEEventMask = (1 << 1)
	LEEventMaskConnectionUpdateCompleteEvent       LEEventMask = (1 << 2)
	LEEventMaskReadRemoteUsedFeaturesCompleteEvent LEEventMask = (1 << 3)
	LEEventMaskLongTermKeyRequestEvent             LEEventMask = (1 << 4)
	LEEventMaskExtendedAdvertisingReportEvent      LEEventMask = (1 << 12)
)

type HCILESetEventMaskCommandPacket struct {
	LEEventMask
}

func (p *HCILESetEventMaskCommandPacket) Marshal() ([]byte, error) {
	buf := newCommand(OpcodeLESetEventMask, 8)
	binary.LittleEndian.PutUint64(buf[4:], uint64(p.LEEventMask))
	return buf, nil
}

func (p *HCILESetEventMaskCommandPacket) Unmarshal(buf []byte) error {
	params, err := commandParams(buf, OpcodeLESetEventMask)
	if err != nil {
		return err
	}
	if len(params) != 8 {
		return io.ErrShortBuffer
	}
	p.LEEventMask = LEEventMask(binary.LittleEndian.Uint64(params))
	return nil
}

func (p *HCILESetEventMaskCommandPacket) Opcode() Opcode {
	return OpcodeLESetEventMask
}

func (a *Adapter) LESetEventMask(mask LEEventMask) error {
	_, err := a.op(&HCILESetEventMaskCommandPacket{LEEventMask: mask})
	return err
}
