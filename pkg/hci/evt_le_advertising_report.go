package hci

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// AdvertisingEventType is the legacy report event type, or the extended
// report's event type bit field.
type AdvertisingEventType uint16

// Legacy report event types, Section 7.7.65.2.
const (
	AdvertisingEventTypeAdvInd        AdvertisingEventType = 0x00
	AdvertisingEventTypeAdvDirectInd  AdvertisingEventType = 0x01
	AdvertisingEventTypeAdvScanInd    AdvertisingEventType = 0x02
	AdvertisingEventTypeAdvNonconnInd AdvertisingEventType = 0x03
	AdvertisingEventTypeScanRsp       AdvertisingEventType = 0x04
)

// Extended report event type bits, Section 7.7.65.13.
const (
	AdvertisingEventTypeConnectable  AdvertisingEventType = (1 << 0)
	AdvertisingEventTypeScannable    AdvertisingEventType = (1 << 1)
	AdvertisingEventTypeDirected     AdvertisingEventType = (1 << 2)
	AdvertisingEventTypeScanResponse AdvertisingEventType = (1 << 3)
	AdvertisingEventTypeLegacy       AdvertisingEventType = (1 << 4)

	advertisingEventTypeDataStatusMask AdvertisingEventType = 0x60
)

// RSSINotAvailable is reported when the controller has no RSSI reading.
const RSSINotAvailable int8 = 127

// AdvertisingReport is one report from a legacy or extended advertising
// report event. Data aliases the event buffer.
type AdvertisingReport struct {
	EventType   AdvertisingEventType
	AddressType PeerAddressType
	Address     BDAddr
	RSSI        int8
	TxPower     int8
	SID         uint8
	Data        []byte
	Extended    bool
}

// Incomplete reports whether more data for this advertisement will follow
// in later extended reports.
func (r *AdvertisingReport) Incomplete() bool {
	return r.Extended && r.EventType&advertisingEventTypeDataStatusMask != 0
}

// LEAdvertisingReportEventPacket decodes reports laid out one after another,
// each with its RSSI after the data, which is how controllers deliver them.
type LEAdvertisingReportEventPacket struct {
	Reports []AdvertisingReport
}

func (p *LEAdvertisingReportEventPacket) Unmarshal(buf []byte) error {
	if len(buf) < 5 || buf[0] != byte(PacketTypeEvent) || buf[1] != byte(EventCodeLEMeta) {
		return errors.New("incorrect packet")
	}
	if buf[3] != byte(LEMetaSubeventCodeAdvertisingReport) {
		return errors.New("incorrect subevent")
	}
	if len(buf) != int(buf[2])+3 {
		return io.ErrShortBuffer
	}
	n := int(buf[4])
	b := buf[5:]
	p.Reports = make([]AdvertisingReport, 0, n)
	for i := 0; i < n; i++ {
		if len(b) < 9 {
			return io.ErrShortBuffer
		}
		r := AdvertisingReport{
			EventType:   AdvertisingEventType(b[0]),
			AddressType: PeerAddressType(b[1]),
		}
		copy(r.Address[:], b[2:8])
		l := int(b[8])
		if len(b) < 10+l {
			return io.ErrShortBuffer
		}
		r.Data = b[9 : 9+l]
		r.RSSI = int8(b[9+l])
		r.TxPower = RSSINotAvailable
		p.Reports = append(p.Reports, r)
		b = b[10+l:]
	}
	return nil
}

func (p *LEAdvertisingReportEventPacket) Marshal() ([]byte, error) {
	buf := []byte{byte(PacketTypeEvent), byte(EventCodeLEMeta), 0, byte(LEMetaSubeventCodeAdvertisingReport), byte(len(p.Reports))}
	for _, r := range p.Reports {
		buf = append(buf, byte(r.EventType), byte(r.AddressType))
		buf = append(buf, r.Address[:]...)
		buf = append(buf, byte(len(r.Data)))
		buf = append(buf, r.Data...)
		buf = append(buf, byte(r.RSSI))
	}
	if len(buf)-3 > math.MaxUint8 {
		return nil, io.ErrShortWrite
	}
	buf[2] = byte(len(buf) - 3)
	return buf, nil
}

type LEExtendedAdvertisingReportEventPacket struct {
	Reports []AdvertisingReport
}

const extendedReportHeaderLength = 24

func (p *LEExtendedAdvertisingReportEventPacket) Unmarshal(buf []byte) error {
	if len(buf) < 5 || buf[0] != byte(PacketTypeEvent) || buf[1] != byte(EventCodeLEMeta) {
		return errors.New("incorrect packet")
	}
	if buf[3] != byte(LEMetaSubeventCodeExtendedAdvertisingReport) {
		return errors.New("incorrect subevent")
	}
	if len(buf) != int(buf[2])+3 {
		return io.ErrShortBuffer
	}
	n := int(buf[4])
	b := buf[5:]
	p.Reports = make([]AdvertisingReport, 0, n)
	for i := 0; i < n; i++ {
		if len(b) < extendedReportHeaderLength {
			return io.ErrShortBuffer
		}
		r := AdvertisingReport{
			EventType:   AdvertisingEventType(binary.LittleEndian.Uint16(b[0:2])),
			AddressType: PeerAddressType(b[2]),
			SID:         b[11],
			TxPower:     int8(b[12]),
			RSSI:        int8(b[13]),
			Extended:    true,
		}
		copy(r.Address[:], b[3:9])
		l := int(b[23])
		if len(b) < extendedReportHeaderLength+l {
			return io.ErrShortBuffer
		}
		r.Data = b[extendedReportHeaderLength : extendedReportHeaderLength+l]
		p.Reports = append(p.Reports, r)
		b = b[extendedReportHeaderLength+l:]
	}
	return nil
}

func (p *LEExtendedAdvertisingReportEventPacket) Marshal() ([]byte, error) {
	buf := []byte{byte(PacketTypeEvent), byte(EventCodeLEMeta), 0, byte(LEMetaSubeventCodeExtendedAdvertisingReport), byte(len(p.Reports))}
	for _, r := range p.Reports {
		h := make([]byte, extendedReportHeaderLength)
		binary.LittleEndian.PutUint16(h[0:], uint16(r.EventType))
		h[2] = byte(r.AddressType)
		copy(h[3:9], r.Address[:])
		h[9] = 0x01 // primary PHY: LE 1M
		h[11] = r.SID
		h[12] = byte(r.TxPower)
		h[13] = byte(r.RSSI)
		h[23] = byte(len(r.Data))
		buf = append(buf, h...)
		buf = append(buf, r.Data...)
	}
	if len(buf)-3 > math.MaxUint8 {
		return nil, io.ErrShortWrite
	}
	buf[2] = byte(len(buf) - 3)
	return buf, nil
}
