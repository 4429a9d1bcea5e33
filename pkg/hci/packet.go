package hci

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// ErrUnsupportedPacket is returned by Unmarshal for packets this package
// does not decode. The adapter skips them.
var ErrUnsupportedPacket = errors.New("unsupported packet type")

type Packet interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

type CommandPacket interface {
	Packet
	Opcode() Opcode
}

func Unmarshal(buf []byte) (Packet, error) {
	if len(buf) < 3 {
		return nil, io.ErrShortBuffer
	}
	if PacketType(buf[0]) != PacketTypeEvent {
		return nil, ErrUnsupportedPacket
	}
	if len(buf) != int(buf[2])+3 {
		return nil, io.ErrShortBuffer
	}
	var p Packet
	switch EventCode(buf[1]) {
	case EventCodeCommandComplete:
		p = &CommandCompleteEventPacket{}
	case EventCodeDisconnectionComplete:
		p = &DisconnectionCompleteEventPacket{}
	case EventCodeLEMeta:
		if len(buf) < 4 {
			return nil, io.ErrShortBuffer
		}
		switch LEMetaSubeventCode(buf[3]) {
		case LEMetaSubeventCodeConnectionComplete:
			p = &LEConnectionCompleteEventPacket{}
		case LEMetaSubeventCodeAdvertisingReport:
			p = &LEAdvertisingReportEventPacket{}
		case LEMetaSubeventCodeExtendedAdvertisingReport:
			p = &LEExtendedAdvertisingReportEventPacket{}
		}
	}
	if p == nil {
		return nil, ErrUnsupportedPacket
	}
	if err := p.Unmarshal(buf); err != nil {
		return nil, err
	}
	return p, nil
}

// newCommand allocates a command packet with its header filled in.
func newCommand(opcode Opcode, paramLen int) []byte {
	buf := make([]byte, 4+paramLen)
	buf[0] = byte(PacketTypeCommand)
	binary.LittleEndian.PutUint16(buf[1:], uint16(opcode))
	buf[3] = uint8(paramLen)
	return buf
}

// commandParams checks the header of a marshalled command and returns its
// parameters.
func commandParams(buf []byte, opcode Opcode) ([]byte, error) {
	if len(buf) < 4 || buf[0] != byte(PacketTypeCommand) || binary.LittleEndian.Uint16(buf[1:]) != uint16(opcode) {
		return nil, errors.New("incorrect packet")
	}
	if len(buf) != int(buf[3])+4 {
		return nil, io.ErrShortBuffer
	}
	return buf[4:], nil
}

// GenericCommandPacket encompasses many argument-less packets.
type GenericCommandPacket struct {
	opcode Opcode
}

func NewGenericCommandPacket(opcode Opcode) *GenericCommandPacket {
	return &GenericCommandPacket{opcode}
}

func (p *GenericCommandPacket) Marshal() ([]byte, error) {
	return newCommand(p.opcode, 0), nil
}

func (p *GenericCommandPacket) Unmarshal(buf []byte) error {
	if len(buf) != 4 || buf[0] != byte(PacketTypeCommand) {
		return errors.New("incorrect packet")
	}
	if buf[3] != 0 {
		return io.ErrShortBuffer
	}
	p.opcode = Opcode(binary.LittleEndian.Uint16(buf[1:3]))
	return nil
}

func (p *GenericCommandPacket) Opcode() Opcode {
	return p.opcode
}

type LESetAdvertisingEnableCommandPacket struct {
	AdvertisingEnable bool
}

func (p *LESetAdvertisingEnableCommandPacket) Marshal() ([]byte, error) {
	buf := newCommand(OpcodeLESetAdvertisingEnable, 1)
	if p.AdvertisingEnable {
		buf[4] = 1
	}
	return buf, nil
}

func (p *LESetAdvertisingEnableCommandPacket) Unmarshal(buf []byte) error {
	params, err := commandParams(buf, OpcodeLESetAdvertisingEnable)
	if err != nil {
		return err
	}
	if len(params) != 1 {
		return io.ErrShortBuffer
	}
	p.AdvertisingEnable = params[0] == 1
	return nil
}

func (p *LESetAdvertisingEnableCommandPacket) Opcode() Opcode {
	return OpcodeLESetAdvertisingEnable
}

type CommandCompleteEventPacket struct {
	NumCommandPackets uint8
	CommandOpcode     Opcode
	ReturnParameters  []byte
}

func (p *CommandCompleteEventPacket) Unmarshal(buf []byte) error {
	if len(buf) < 6 || buf[0] != byte(PacketTypeEvent) || buf[1] != byte(EventCodeCommandComplete) {
		return errors.New("incorrect packet")
	}
	if len(buf) != int(buf[2])+3 {
		return io.ErrShortBuffer
	}
	p.NumCommandPackets = buf[3]
	p.CommandOpcode = Opcode(binary.LittleEndian.Uint16(buf[4:]))
	p.ReturnParameters = buf[6:]
	return nil
}

func (p *CommandCompleteEventPacket) Marshal() ([]byte, error) {
	if len(p.ReturnParameters)+3 > math.MaxUint8 {
		return nil, io.ErrShortWrite
	}
	buf := make([]byte, 6+len(p.ReturnParameters))
	buf[0] = byte(PacketTypeEvent)
	buf[1] = byte(EventCodeCommandComplete)
	buf[2] = byte(len(p.ReturnParameters) + 3)
	buf[3] = p.NumCommandPackets
	binary.LittleEndian.PutUint16(buf[4:], uint16(p.CommandOpcode))
	copy(buf[6:], p.ReturnParameters)
	return buf, nil
}

// Section 7.7.5
type DisconnectionCompleteEventPacket struct {
	Status           uint8
	ConnectionHandle uint16
	Reason           uint8
}

func (p *DisconnectionCompleteEventPacket) Marshal() ([]byte, error) {
	buf := []byte{byte(PacketTypeEvent), byte(EventCodeDisconnectionComplete), 4, p.Status, 0, 0, p.Reason}
	binary.LittleEndian.PutUint16(buf[4:], p.ConnectionHandle)
	return buf, nil
}

func (p *DisconnectionCompleteEventPacket) Unmarshal(buf []byte) error {
	if len(buf) < 3 || buf[0] != byte(PacketTypeEvent) || buf[1] != byte(EventCodeDisconnectionComplete) {
		return errors.New("incorrect packet")
	}
	if buf[2] != 4 || len(buf) != 7 {
		return io.ErrShortBuffer
	}
	p.Status = buf[3]
	p.ConnectionHandle = binary.LittleEndian.Uint16(buf[4:6]) & 0x0FFF
	p.Reason = buf[6]
	return nil
}

type Role uint8

const (
	RoleCentral    Role = 0
	RolePeripheral Role = 1
)

type CentralClockAccuracy uint8

const (
	CentralClockAccuracy500PPM CentralClockAccuracy = 0
	CentralClockAccuracy250PPM CentralClockAccuracy = 1
	CentralClockAccuracy150PPM CentralClockAccuracy = 2
	CentralClockAccuracy100PPM CentralClockAccuracy = 3
	CentralClockAccuracy75PPM  CentralClockAccuracy = 4
	CentralClockAccuracy50PPM  CentralClockAccuracy = 5
	CentralClockAccuracy30PPM  CentralClockAccuracy = 6
	CentralClockAccuracy20PPM  CentralClockAccuracy = 7
)

// Section 7.7.65.1
type LEConnectionCompleteEventPacket struct {
	Status               uint8
	ConnectionHandle     uint16
	Role                 Role
	PeerAddressType      PeerAddressType
	PeerAddress          BDAddr
	ConnectionInterval   uint16
	PeripheralLatency    uint16
	SupervisionTimeout   uint16
	CentralClockAccuracy CentralClockAccuracy
}

func (p *LEConnectionCompleteEventPacket) Marshal() ([]byte, error) {
	buf := make([]byte, 22)
	buf[0] = byte(PacketTypeEvent)
	buf[1] = byte(EventCodeLEMeta)
	buf[2] = 19
	buf[3] = byte(LEMetaSubeventCodeConnectionComplete)
	buf[4] = p.Status
	binary.LittleEndian.PutUint16(buf[5:], p.ConnectionHandle)
	buf[7] = byte(p.Role)
	buf[8] = byte(p.PeerAddressType)
	copy(buf[9:15], p.PeerAddress[:])
	binary.LittleEndian.PutUint16(buf[15:], p.ConnectionInterval)
	binary.LittleEndian.PutUint16(buf[17:], p.PeripheralLatency)
	binary.LittleEndian.PutUint16(buf[19:], p.SupervisionTimeout)
	buf[21] = byte(p.CentralClockAccuracy)
	return buf, nil
}

func (p *LEConnectionCompleteEventPacket) Unmarshal(buf []byte) error {
	if len(buf) < 4 || buf[0] != byte(PacketTypeEvent) || buf[1] != byte(EventCodeLEMeta) {
		return errors.New("incorrect packet")
	}
	if buf[2] != 19 || len(buf) != 22 {
		return io.ErrShortBuffer
	}
	if buf[3] != byte(LEMetaSubeventCodeConnectionComplete) {
		return errors.New("incorrect subevent")
	}
	p.Status = buf[4]
	p.ConnectionHandle = binary.LittleEndian.Uint16(buf[5:7])
	p.Role = Role(buf[7])
	p.PeerAddressType = PeerAddressType(buf[8])
	copy(p.PeerAddress[:], buf[9:15])
	p.ConnectionInterval = binary.LittleEndian.Uint16(buf[15:17])
	p.PeripheralLatency = binary.LittleEndian.Uint16(buf[17:19])
	p.SupervisionTimeout = binary.LittleEndian.Uint16(buf[19:21])
	p.CentralClockAccuracy = CentralClockAccuracy(buf[21])
	return nil
}
