package hci

import (
	"encoding/binary"
	"errors"
	"io"
)

type ScanType uint8

const (
	ScanTypePassive ScanType = 0x00
	ScanTypeActive  ScanType = 0x01
)

type ScanningFilterPolicy uint8

const (
	ScanningFilterPolicyAcceptAll        ScanningFilterPolicy = 0x00
	ScanningFilterPolicyFilterAcceptList ScanningFilterPolicy = 0x01
)

// Section 7.8.10
type LESetScanParametersCommandPacket struct {
	ScanType             ScanType
	ScanInterval         uint16
	ScanWindow           uint16
	OwnAddressType       OwnAddressType
	ScanningFilterPolicy ScanningFilterPolicy
}

func (p *LESetScanParametersCommandPacket) Marshal() ([]byte, error) {
	buf := newCommand(OpcodeLESetScanParameters, 7)
	buf[4] = byte(p.ScanType)
	binary.LittleEndian.PutUint16(buf[5:], p.ScanInterval)
	binary.LittleEndian.PutUint16(buf[7:], p.ScanWindow)
	buf[9] = byte(p.OwnAddressType)
	buf[10] = byte(p.ScanningFilterPolicy)
	return buf, nil
}

func (p *LESetScanParametersCommandPacket) Unmarshal(buf []byte) error {
	params, err := commandParams(buf, OpcodeLESetScanParameters)
	if err != nil {
		return err
	}
	if len(params) != 7 {
		return io.ErrShortBuffer
	}
	p.ScanType = ScanType(params[0])
	p.ScanInterval = binary.LittleEndian.Uint16(params[1:])
	p.ScanWindow = binary.LittleEndian.Uint16(params[3:])
	p.OwnAddressType = OwnAddressType(params[5])
	p.ScanningFilterPolicy = ScanningFilterPolicy(params[6])
	return nil
}

func (p *LESetScanParametersCommandPacket) Opcode() Opcode {
	return OpcodeLESetScanParameters
}

type SetScanParametersRequest struct {
	ScanType             ScanType
	ScanInterval         uint16
	ScanWindow           uint16
	OwnAddressType       OwnAddressType
	ScanningFilterPolicy ScanningFilterPolicy
}

// validate fills in defaults and checks the scan timing.
func (r *SetScanParametersRequest) validate() error {
	if r.ScanInterval == 0 {
		r.ScanInterval = 0x0010
	}
	if r.ScanInterval < 0x0004 || r.ScanInterval > 0x4000 {
		return errors.New("invalid scan interval")
	}
	if r.ScanWindow == 0 {
		r.ScanWindow = r.ScanInterval
	}
	if r.ScanWindow < 0x0004 || r.ScanWindow > r.ScanInterval {
		return errors.New("invalid scan window")
	}
	return nil
}

func (a *Adapter) LESetScanParameters(request *SetScanParametersRequest) error {
	if err := request.validate(); err != nil {
		return err
	}

	_, err := a.op(&LESetScanParametersCommandPacket{
		ScanType:             request.ScanType,
		ScanInterval:         request.ScanInterval,
		ScanWindow:           request.ScanWindow,
		OwnAddressType:       request.OwnAddressType,
		ScanningFilterPolicy: request.ScanningFilterPolicy,
	})
	return err
}

// Section 7.8.11
type LESetScanEnableCommandPacket struct {
	ScanEnable       bool
	FilterDuplicates bool
}

func (p *LESetScanEnableCommandPacket) Marshal() ([]byte, error) {
	buf := newCommand(OpcodeLESetScanEnable, 2)
	if p.ScanEnable {
		buf[4] = 1
	}
	if p.FilterDuplicates {
		buf[5] = 1
	}
	return buf, nil
}

func (p *LESetScanEnableCommandPacket) Unmarshal(buf []byte) error {
	params, err := commandParams(buf, OpcodeLESetScanEnable)
	if err != nil {
		return err
	}
	if len(params) != 2 {
		return io.ErrShortBuffer
	}
	p.ScanEnable = params[0] == 1
	p.FilterDuplicates = params[1] == 1
	return nil
}

func (p *LESetScanEnableCommandPacket) Opcode() Opcode {
	return OpcodeLESetScanEnable
}

// LESetScanEnable starts or stops scanning. Duplicate filtering is left to
// the caller's report cache when filterDuplicates is false.
func (a *Adapter) LESetScanEnable(enable, filterDuplicates bool) error {
	_, err := a.op(&LESetScanEnableCommandPacket{ScanEnable: enable, FilterDuplicates: filterDuplicates})
	return err
}

// Section 7.8.64. Only the LE 1M PHY is scanned.
type LESetExtendedScanParametersCommandPacket struct {
	OwnAddressType       OwnAddressType
	ScanningFilterPolicy ScanningFilterPolicy
	ScanType             ScanType
	ScanInterval         uint16
	ScanWindow           uint16
}

func (p *LESetExtendedScanParametersCommandPacket) Marshal() ([]byte, error) {
	buf := newCommand(OpcodeLESetExtendedScanParameters, 8)
	buf[4] = byte(p.OwnAddressType)
	buf[5] = byte(p.ScanningFilterPolicy)
	buf[6] = byte(PHY1M)
	buf[7] = byte(p.ScanType)
	binary.LittleEndian.PutUint16(buf[8:], p.ScanInterval)
	binary.LittleEndian.PutUint16(buf[10:], p.ScanWindow)
	return buf, nil
}

func (p *LESetExtendedScanParametersCommandPacket) Unmarshal(buf []byte) error {
	params, err := commandParams(buf, OpcodeLESetExtendedScanParameters)
	if err != nil {
		return err
	}
	if len(params) != 8 {
		return io.ErrShortBuffer
	}
	if PHY(params[2]) != PHY1M {
		return errors.New("unsupported scanning phys")
	}
	p.OwnAddressType = OwnAddressType(params[0])
	p.ScanningFilterPolicy = ScanningFilterPolicy(params[1])
	p.ScanType = ScanType(params[3])
	p.ScanInterval = binary.LittleEndian.Uint16(params[4:])
	p.ScanWindow = binary.LittleEndian.Uint16(params[6:])
	return nil
}

func (p *LESetExtendedScanParametersCommandPacket) Opcode() Opcode {
	return OpcodeLESetExtendedScanParameters
}

// LESetExtendedScanParameters is LESetScanParameters for controllers that
// deliver extended advertising reports.
func (a *Adapter) LESetExtendedScanParameters(request *SetScanParametersRequest) error {
	if err := request.validate(); err != nil {
		return err
	}
	_, err := a.op(&LESetExtendedScanParametersCommandPacket{
		OwnAddressType:       request.OwnAddressType,
		ScanningFilterPolicy: request.ScanningFilterPolicy,
		ScanType:             request.ScanType,
		ScanInterval:         request.ScanInterval,
		ScanWindow:           request.ScanWindow,
	})
	return err
}

// Section 7.8.65. Duration and Period are in units of 10 ms and 1.28 s;
// zero scans until disabled.
type LESetExtendedScanEnableCommandPacket struct {
	Enable           bool
	FilterDuplicates bool
	Duration         uint16
	Period           uint16
}

func (p *LESetExtendedScanEnableCommandPacket) Marshal() ([]byte, error) {
	buf := newCommand(OpcodeLESetExtendedScanEnable, 6)
	if p.Enable {
		buf[4] = 1
	}
	if p.FilterDuplicates {
		buf[5] = 1
	}
	binary.LittleEndian.PutUint16(buf[6:], p.Duration)
	binary.LittleEndian.PutUint16(buf[8:], p.Period)
	return buf, nil
}

func (p *LESetExtendedScanEnableCommandPacket) Unmarshal(buf []byte) error {
	params, err := commandParams(buf, OpcodeLESetExtendedScanEnable)
	if err != nil {
		return err
	}
	if len(params) != 6 {
		return io.ErrShortBuffer
	}
	p.Enable = params[0] == 1
	p.FilterDuplicates = params[1] == 1
	p.Duration = binary.LittleEndian.Uint16(params[2:])
	p.Period = binary.LittleEndian.Uint16(params[4:])
	return nil
}

func (p *LESetExtendedScanEnableCommandPacket) Opcode() Opcode {
	return OpcodeLESetExtendedScanEnable
}

func (a *Adapter) LESetExtendedScanEnable(enable, filterDuplicates bool) error {
	_, err := a.op(&LESetExtendedScanEnableCommandPacket{Enable: enable, FilterDuplicates: filterDuplicates})
	return err
}
