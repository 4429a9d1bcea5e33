package hci

import (
	"encoding/binary"
	"errors"
	"io"
)

type AdvertisingType uint8

const (
	AdvertisingTypeConnectableAndScannableUndirectedAdvertising AdvertisingType = 0x00
	AdvertisingTypeConnectableHighDutyCycleDirectedAdvertising  AdvertisingType = 0x01
	AdvertisingTypeScannableUndirectedAdvertising               AdvertisingType = 0x02
	AdvertisingTypeNonConnectableUndirectedAdvertising          AdvertisingType = 0x03
	AdvertisingTypeConnectableLowDutyCycleDirectedAdvertising   AdvertisingType = 0x04
)

type AdvertisingChannelMap uint8

const (
	AdvertisingChannelMapChannel37 AdvertisingChannelMap = 0x01
	AdvertisingChannelMapChannel38 AdvertisingChannelMap = 0x02
	AdvertisingChannelMapChannel39 AdvertisingChannelMap = 0x04

	AdvertisingChannelMapDefault AdvertisingChannelMap = 0x07
)

type AdvertisingFilterPolicy uint8

const (
	AdvertisingFilterPolicyProcessScanAndConnectionRequestsFromAllDevices                       AdvertisingFilterPolicy = 0x00
	AdvertisingFilterPolicyProcessConnectionRequestsFromAllDevicesAndScanRequestsFromFilterList AdvertisingFilterPolicy = 0x01
	AdvertisingFilterPolicyProcessScanRequestsFromAllDevicesAndConnectionRequestsFromFilterList AdvertisingFilterPolicy = 0x02
	AdvertisingFilterPolicyProcessScanAndConnectionRequestsFromFilterList                       AdvertisingFilterPolicy = 0x03
)

// Section 7.8.5
type HCILESetAdvertisingParametersCommandPacket struct {
	AdvertisingIntervalMin  uint16
	AdvertisingIntervalMax  uint16
	AdvertisingType         AdvertisingType
	OwnAddressType          OwnAddressType
	PeerAddressType         PeerAddressType
	PeerAddress             BDAddr
	AdvertisingChannelMap   AdvertisingChannelMap
	AdvertisingFilterPolicy AdvertisingFilterPolicy
}

func (p *HCILESetAdvertisingParametersCommandPacket) Marshal() ([]byte, error) {
	buf := newCommand(OpcodeLESetAdvertisingParameters, 15)
	binary.LittleEndian.PutUint16(buf[4:], p.AdvertisingIntervalMin)
	binary.LittleEndian.PutUint16(buf[6:], p.AdvertisingIntervalMax)
	buf[8] = byte(p.AdvertisingType)
	buf[9] = byte(p.OwnAddressType)
	buf[10] = byte(p.PeerAddressType)
	copy(buf[11:], p.PeerAddress[:])
	buf[17] = byte(p.AdvertisingChannelMap)
	buf[18] = byte(p.AdvertisingFilterPolicy)
	return buf, nil
}

func (p *HCILESetAdvertisingParametersCommandPacket) Unmarshal(buf []byte) error {
	params, err := commandParams(buf, OpcodeLESetAdvertisingParameters)
	if err != nil {
		return err
	}
	if len(params) != 15 {
		return io.ErrUnexpectedEOF
	}
	p.AdvertisingIntervalMin = binary.LittleEndian.Uint16(params[0:])
	p.AdvertisingIntervalMax = binary.LittleEndian.Uint16(params[2:])
	p.AdvertisingType = AdvertisingType(params[4])
	p.OwnAddressType = OwnAddressType(params[5])
	p.PeerAddressType = PeerAddressType(params[6])
	copy(p.PeerAddress[:], params[7:13])
	p.AdvertisingChannelMap = AdvertisingChannelMap(params[13])
	p.AdvertisingFilterPolicy = AdvertisingFilterPolicy(params[14])
	return nil
}

func (p *HCILESetAdvertisingParametersCommandPacket) Opcode() Opcode {
	return OpcodeLESetAdvertisingParameters
}

type SetAdvertisingParametersRequest struct {
	AdvertisingIntervalMin  uint16
	AdvertisingIntervalMax  uint16
	AdvertisingType         AdvertisingType
	OwnAddressType          OwnAddressType
	PeerAddressType         PeerAddressType
	PeerAddress             BDAddr
	AdvertisingChannelMap   AdvertisingChannelMap
	AdvertisingFilterPolicy AdvertisingFilterPolicy
}

func (a *Adapter) LESetAdvertisingParameters(request *SetAdvertisingParametersRequest) error {
	if request.AdvertisingIntervalMin == 0 {
		request.AdvertisingIntervalMin = 0x0800
	}
	if request.AdvertisingIntervalMin < 0x0020 || request.AdvertisingIntervalMin > 0x4000 {
		return errors.New("invalid advertising interval min")
	}
	if request.AdvertisingIntervalMax == 0 {
		request.AdvertisingIntervalMax = 0x0800
	}
	if request.AdvertisingIntervalMax < 0x0020 || request.AdvertisingIntervalMax > 0x4000 {
		return errors.New("invalid advertising interval max")
	}
	if request.AdvertisingIntervalMax < request.AdvertisingIntervalMin {
		return errors.New("advertising interval max below min")
	}
	if request.AdvertisingChannelMap == 0 {
		request.AdvertisingChannelMap = AdvertisingChannelMapDefault
	}

	_, err := a.op(&HCILESetAdvertisingParametersCommandPacket{
		AdvertisingIntervalMin:  request.AdvertisingIntervalMin,
		AdvertisingIntervalMax:  request.AdvertisingIntervalMax,
		AdvertisingType:         request.AdvertisingType,
		OwnAddressType:          request.OwnAddressType,
		PeerAddressType:         request.PeerAddressType,
		PeerAddress:             request.PeerAddress,
		AdvertisingChannelMap:   request.AdvertisingChannelMap,
		AdvertisingFilterPolicy: request.AdvertisingFilterPolicy,
	})
	return err
}
