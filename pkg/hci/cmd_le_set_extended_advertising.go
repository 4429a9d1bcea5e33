package hci

import (
	"encoding/binary"
	"errors"
	"io"
)

// AdvertisingEventProperties selects the PDU types of an extended
// advertising set.
type AdvertisingEventProperties uint16

const (
	AdvertisingEventPropertiesConnectable AdvertisingEventProperties = (1 << 0)
	AdvertisingEventPropertiesScannable   AdvertisingEventProperties = (1 << 1)
	AdvertisingEventPropertiesDirected    AdvertisingEventProperties = (1 << 2)
	AdvertisingEventPropertiesHighDuty    AdvertisingEventProperties = (1 << 3)
	AdvertisingEventPropertiesLegacy      AdvertisingEventProperties = (1 << 4)
	AdvertisingEventPropertiesAnonymous   AdvertisingEventProperties = (1 << 5)
	AdvertisingEventPropertiesIncludeTx   AdvertisingEventProperties = (1 << 6)
)

type PHY uint8

const (
	PHY1M    PHY = 0x01
	PHY2M    PHY = 0x02
	PHYCoded PHY = 0x03
)

// TxPowerNoPreference lets the controller pick the transmit power.
const TxPowerNoPreference int8 = 0x7F

func putUint24(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

func uint24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// Section 7.8.53
type LESetExtendedAdvertisingParametersCommandPacket struct {
	AdvertisingHandle              uint8
	AdvertisingEventProperties     AdvertisingEventProperties
	PrimaryAdvertisingIntervalMin  uint32
	PrimaryAdvertisingIntervalMax  uint32
	PrimaryAdvertisingChannelMap   AdvertisingChannelMap
	OwnAddressType                 OwnAddressType
	PeerAddressType                PeerAddressType
	PeerAddress                    BDAddr
	AdvertisingFilterPolicy        AdvertisingFilterPolicy
	AdvertisingTxPower             int8
	PrimaryAdvertisingPHY          PHY
	SecondaryAdvertisingMaxSkip    uint8
	SecondaryAdvertisingPHY        PHY
	AdvertisingSID                 uint8
	ScanRequestNotificationEnabled bool
}

func (p *LESetExtendedAdvertisingParametersCommandPacket) Marshal() ([]byte, error) {
	buf := newCommand(OpcodeLESetExtendedAdvertisingParameters, 25)
	buf[4] = p.AdvertisingHandle
	binary.LittleEndian.PutUint16(buf[5:], uint16(p.AdvertisingEventProperties))
	putUint24(buf[7:], p.PrimaryAdvertisingIntervalMin)
	putUint24(buf[10:], p.PrimaryAdvertisingIntervalMax)
	buf[13] = byte(p.PrimaryAdvertisingChannelMap)
	buf[14] = byte(p.OwnAddressType)
	buf[15] = byte(p.PeerAddressType)
	copy(buf[16:22], p.PeerAddress[:])
	buf[22] = byte(p.AdvertisingFilterPolicy)
	buf[23] = byte(p.AdvertisingTxPower)
	buf[24] = byte(p.PrimaryAdvertisingPHY)
	buf[25] = p.SecondaryAdvertisingMaxSkip
	buf[26] = byte(p.SecondaryAdvertisingPHY)
	buf[27] = p.AdvertisingSID
	if p.ScanRequestNotificationEnabled {
		buf[28] = 1
	}
	return buf, nil
}

func (p *LESetExtendedAdvertisingParametersCommandPacket) Unmarshal(buf []byte) error {
	params, err := commandParams(buf, OpcodeLESetExtendedAdvertisingParameters)
	if err != nil {
		return err
	}
	if len(params) != 25 {
		return io.ErrShortBuffer
	}
	p.AdvertisingHandle = params[0]
	p.AdvertisingEventProperties = AdvertisingEventProperties(binary.LittleEndian.Uint16(params[1:]))
	p.PrimaryAdvertisingIntervalMin = uint24(params[3:])
	p.PrimaryAdvertisingIntervalMax = uint24(params[6:])
	p.PrimaryAdvertisingChannelMap = AdvertisingChannelMap(params[9])
	p.OwnAddressType = OwnAddressType(params[10])
	p.PeerAddressType = PeerAddressType(params[11])
	copy(p.PeerAddress[:], params[12:18])
	p.AdvertisingFilterPolicy = AdvertisingFilterPolicy(params[18])
	p.AdvertisingTxPower = int8(params[19])
	p.PrimaryAdvertisingPHY = PHY(params[20])
	p.SecondaryAdvertisingMaxSkip = params[21]
	p.SecondaryAdvertisingPHY = PHY(params[22])
	p.AdvertisingSID = params[23]
	p.ScanRequestNotificationEnabled = params[24] == 1
	return nil
}

func (p *LESetExtendedAdvertisingParametersCommandPacket) Opcode() Opcode {
	return OpcodeLESetExtendedAdvertisingParameters
}

type SetExtendedAdvertisingParametersRequest struct {
	AdvertisingHandle          uint8
	AdvertisingEventProperties AdvertisingEventProperties
	AdvertisingIntervalMin     uint32
	AdvertisingIntervalMax     uint32
	AdvertisingChannelMap      AdvertisingChannelMap
	OwnAddressType             OwnAddressType
	AdvertisingFilterPolicy    AdvertisingFilterPolicy
	AdvertisingSID             uint8
}

// LESetExtendedAdvertisingParameters configures an advertising set on the
// 1M PHY and returns the transmit power selected by the controller.
func (a *Adapter) LESetExtendedAdvertisingParameters(request *SetExtendedAdvertisingParametersRequest) (int8, error) {
	if request.AdvertisingIntervalMin == 0 {
		request.AdvertisingIntervalMin = 0x0800
	}
	if request.AdvertisingIntervalMax == 0 {
		request.AdvertisingIntervalMax = request.AdvertisingIntervalMin
	}
	if request.AdvertisingIntervalMin < 0x0020 || request.AdvertisingIntervalMax > 0xFFFFFF {
		return 0, errors.New("invalid advertising interval")
	}
	if request.AdvertisingIntervalMax < request.AdvertisingIntervalMin {
		return 0, errors.New("advertising interval max below min")
	}
	if request.AdvertisingSID > 0x0F {
		return 0, errors.New("invalid advertising sid")
	}
	if request.AdvertisingChannelMap == 0 {
		request.AdvertisingChannelMap = AdvertisingChannelMapDefault
	}

	buf, err := a.op(&LESetExtendedAdvertisingParametersCommandPacket{
		AdvertisingHandle:             request.AdvertisingHandle,
		AdvertisingEventProperties:    request.AdvertisingEventProperties,
		PrimaryAdvertisingIntervalMin: request.AdvertisingIntervalMin,
		PrimaryAdvertisingIntervalMax: request.AdvertisingIntervalMax,
		PrimaryAdvertisingChannelMap:  request.AdvertisingChannelMap,
		OwnAddressType:                request.OwnAddressType,
		AdvertisingFilterPolicy:       request.AdvertisingFilterPolicy,
		AdvertisingTxPower:            TxPowerNoPreference,
		PrimaryAdvertisingPHY:         PHY1M,
		SecondaryAdvertisingPHY:       PHY1M,
		AdvertisingSID:                request.AdvertisingSID,
	})
	if err != nil {
		return 0, err
	}
	if len(buf) < 2 {
		return 0, io.ErrShortBuffer
	}
	return int8(buf[1]), nil
}

// AdvertisingSet names one set in an extended advertising enable command.
// Duration is in units of 10 ms; zero advertises until disabled.
type AdvertisingSet struct {
	AdvertisingHandle            uint8
	Duration                     uint16
	MaxExtendedAdvertisingEvents uint8
}

// Section 7.8.56
type LESetExtendedAdvertisingEnableCommandPacket struct {
	Enable bool
	Sets   []AdvertisingSet
}

func (p *LESetExtendedAdvertisingEnableCommandPacket) Marshal() ([]byte, error) {
	if len(p.Sets) > 63 {
		return nil, io.ErrShortWrite
	}
	buf := newCommand(OpcodeLESetExtendedAdvertisingEnable, 2+4*len(p.Sets))
	if p.Enable {
		buf[4] = 1
	}
	buf[5] = uint8(len(p.Sets))
	for i, s := range p.Sets {
		b := buf[6+4*i:]
		b[0] = s.AdvertisingHandle
		binary.LittleEndian.PutUint16(b[1:], s.Duration)
		b[3] = s.MaxExtendedAdvertisingEvents
	}
	return buf, nil
}

func (p *LESetExtendedAdvertisingEnableCommandPacket) Unmarshal(buf []byte) error {
	params, err := commandParams(buf, OpcodeLESetExtendedAdvertisingEnable)
	if err != nil {
		return err
	}
	if len(params) < 2 || len(params) != 2+4*int(params[1]) {
		return io.ErrShortBuffer
	}
	p.Enable = params[0] == 1
	p.Sets = make([]AdvertisingSet, params[1])
	for i := range p.Sets {
		b := params[2+4*i:]
		p.Sets[i] = AdvertisingSet{
			AdvertisingHandle:            b[0],
			Duration:                     binary.LittleEndian.Uint16(b[1:]),
			MaxExtendedAdvertisingEvents: b[3],
		}
	}
	return nil
}

func (p *LESetExtendedAdvertisingEnableCommandPacket) Opcode() Opcode {
	return OpcodeLESetExtendedAdvertisingEnable
}

func (a *Adapter) LESetExtendedAdvertisingEnable(enable bool, sets ...AdvertisingSet) error {
	_, err := a.op(&LESetExtendedAdvertisingEnableCommandPacket{Enable: enable, Sets: sets})
	return err
}
