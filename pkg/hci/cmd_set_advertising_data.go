package hci

import (
	"io"

	"github.com/muxable/bleadv/pkg/ad"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Largest data fragment carried by a single extended or periodic data
// command: the parameter length byte minus the fixed parameters.
const (
	MaxExtendedAdvertisingDataFragment = 251
	MaxPeriodicAdvertisingDataFragment = 252
)

// Section 7.8.7 and 7.8.8. Both commands carry a length byte followed by a
// fixed 31-byte field.
type LESetAdvertisingDataCommandPacket struct {
	ScanResponse bool
	Data         []byte
}

func (p *LESetAdvertisingDataCommandPacket) Marshal() ([]byte, error) {
	if len(p.Data) > ad.MaxLegacyLength {
		return nil, &ad.PayloadTooLargeError{Size: len(p.Data), Limit: ad.MaxLegacyLength}
	}
	buf := newCommand(p.Opcode(), 1+ad.MaxLegacyLength)
	buf[4] = uint8(len(p.Data))
	copy(buf[5:], p.Data)
	return buf, nil
}

func (p *LESetAdvertisingDataCommandPacket) Unmarshal(buf []byte) error {
	params, err := commandParams(buf, p.Opcode())
	if err != nil {
		return err
	}
	if len(params) != 1+ad.MaxLegacyLength || int(params[0]) > ad.MaxLegacyLength {
		return io.ErrShortBuffer
	}
	p.Data = params[1 : 1+params[0]]
	return nil
}

func (p *LESetAdvertisingDataCommandPacket) Opcode() Opcode {
	if p.ScanResponse {
		return OpcodeLESetScanResponseData
	}
	return OpcodeLESetAdvertisingData
}

// DataOperation marks a fragment's position in a fragmented data update.
type DataOperation uint8

const (
	DataOperationIntermediate DataOperation = 0x00
	DataOperationFirst        DataOperation = 0x01
	DataOperationLast         DataOperation = 0x02
	DataOperationComplete     DataOperation = 0x03
	DataOperationUnchanged    DataOperation = 0x04
)

// fragment splits data into chunks of at most max bytes tagged with their
// operation. Empty data is a single complete fragment.
func fragment(data []byte, max int, fn func(op DataOperation, b []byte) error) error {
	if len(data) <= max {
		return fn(DataOperationComplete, data)
	}
	for i := 0; i < len(data); i += max {
		j := i + max
		if j > len(data) {
			j = len(data)
		}
		op := DataOperationIntermediate
		if i == 0 {
			op = DataOperationFirst
		} else if j == len(data) {
			op = DataOperationLast
		}
		if err := fn(op, data[i:j]); err != nil {
			return err
		}
	}
	return nil
}

// Section 7.8.54 and 7.8.55.
type LESetExtendedAdvertisingDataCommandPacket struct {
	ScanResponse       bool
	AdvertisingHandle  uint8
	Operation          DataOperation
	FragmentPreference uint8
	Data               []byte
}

func (p *LESetExtendedAdvertisingDataCommandPacket) Marshal() ([]byte, error) {
	if len(p.Data) > MaxExtendedAdvertisingDataFragment {
		return nil, io.ErrShortWrite
	}
	buf := newCommand(p.Opcode(), 4+len(p.Data))
	buf[4] = p.AdvertisingHandle
	buf[5] = byte(p.Operation)
	buf[6] = p.FragmentPreference
	buf[7] = uint8(len(p.Data))
	copy(buf[8:], p.Data)
	return buf, nil
}

func (p *LESetExtendedAdvertisingDataCommandPacket) Unmarshal(buf []byte) error {
	params, err := commandParams(buf, p.Opcode())
	if err != nil {
		return err
	}
	if len(params) < 4 || len(params) != 4+int(params[3]) {
		return io.ErrShortBuffer
	}
	p.AdvertisingHandle = params[0]
	p.Operation = DataOperation(params[1])
	p.FragmentPreference = params[2]
	p.Data = params[4:]
	return nil
}

func (p *LESetExtendedAdvertisingDataCommandPacket) Opcode() Opcode {
	if p.ScanResponse {
		return OpcodeLESetExtendedScanResponseData
	}
	return OpcodeLESetExtendedAdvertisingData
}

// Section 7.8.62.
type LESetPeriodicAdvertisingDataCommandPacket struct {
	AdvertisingHandle uint8
	Operation         DataOperation
	Data              []byte
}

func (p *LESetPeriodicAdvertisingDataCommandPacket) Marshal() ([]byte, error) {
	if len(p.Data) > MaxPeriodicAdvertisingDataFragment {
		return nil, io.ErrShortWrite
	}
	buf := newCommand(OpcodeLESetPeriodicAdvertisingData, 3+len(p.Data))
	buf[4] = p.AdvertisingHandle
	buf[5] = byte(p.Operation)
	buf[6] = uint8(len(p.Data))
	copy(buf[7:], p.Data)
	return buf, nil
}

func (p *LESetPeriodicAdvertisingDataCommandPacket) Unmarshal(buf []byte) error {
	params, err := commandParams(buf, OpcodeLESetPeriodicAdvertisingData)
	if err != nil {
		return err
	}
	if len(params) < 3 || len(params) != 3+int(params[2]) {
		return io.ErrShortBuffer
	}
	p.AdvertisingHandle = params[0]
	p.Operation = DataOperation(params[1])
	p.Data = params[3:]
	return nil
}

func (p *LESetPeriodicAdvertisingDataCommandPacket) Opcode() Opcode {
	return OpcodeLESetPeriodicAdvertisingData
}

// AdvertisingDataCommands encodes payload and returns the commands that load
// it into the controller buffer named by its target. Legacy payloads use the
// fixed 31-byte commands; extended and periodic payloads are fragmented.
func AdvertisingDataCommands(handle uint8, payload *ad.Payload) ([]CommandPacket, error) {
	data, err := payload.Encode()
	if err != nil {
		return nil, err
	}
	var cmds []CommandPacket
	switch {
	case payload.Target == ad.TargetPeriodic:
		err = fragment(data, MaxPeriodicAdvertisingDataFragment, func(op DataOperation, b []byte) error {
			cmds = append(cmds, &LESetPeriodicAdvertisingDataCommandPacket{
				AdvertisingHandle: handle,
				Operation:         op,
				Data:              b,
			})
			return nil
		})
	case payload.Extended:
		err = fragment(data, MaxExtendedAdvertisingDataFragment, func(op DataOperation, b []byte) error {
			cmds = append(cmds, &LESetExtendedAdvertisingDataCommandPacket{
				ScanResponse:       payload.Target == ad.TargetScanResponse,
				AdvertisingHandle:  handle,
				Operation:          op,
				FragmentPreference: 0x01, // controller should not fragment further
				Data:               b,
			})
			return nil
		})
	default:
		cmds = append(cmds, &LESetAdvertisingDataCommandPacket{
			ScanResponse: payload.Target == ad.TargetScanResponse,
			Data:         data,
		})
	}
	return cmds, err
}

// SetAdvertisingPayload encodes payload and loads it into the advertising,
// scan response or periodic data of the given advertising set. handle is
// ignored for legacy payloads.
func (a *Adapter) SetAdvertisingPayload(handle uint8, payload *ad.Payload) error {
	cmds, err := AdvertisingDataCommands(handle, payload)
	if err != nil {
		return err
	}
	for _, cmd := range cmds {
		if _, err := a.op(cmd); err != nil {
			return errors.Wrapf(err, "set %s data", payload.Target)
		}
	}
	zap.L().Debug("advertising data set",
		zap.Stringer("target", payload.Target),
		zap.Bool("extended", payload.Extended),
		zap.Uint8("handle", handle),
		zap.Int("size", payload.Size()),
		zap.Int("commands", len(cmds)))
	return nil
}
