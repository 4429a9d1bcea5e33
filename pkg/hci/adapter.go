package hci

import (
	"encoding/binary"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultCommandTimeout bounds how long a command waits for its Command
// Complete event.
const DefaultCommandTimeout = 2 * time.Second

var ErrCommandTimeout = errors.New("hci: command timed out")

// Transport carries HCI packets to and from a controller. *Socket is the
// Linux user channel implementation.
type Transport interface {
	ReadPacket() (Packet, error)
	WritePacket(Packet) error
	Close() error
}

type Adapter struct {
	Transport

	CommandTimeout time.Duration

	handlersLock sync.Mutex
	handlers     map[string]func(Packet, error)

	done chan struct{}
	err  error
}

// NewAdapter starts reading packets from t. Handlers registered on the
// adapter run on the reading goroutine and must not block.
func NewAdapter(t Transport) *Adapter {
	a := &Adapter{
		Transport:      t,
		CommandTimeout: DefaultCommandTimeout,
		handlers:       make(map[string]func(Packet, error)),
		done:           make(chan struct{}),
	}
	go a.pump()
	return a
}

func (a *Adapter) pump() {
	for {
		p, err := a.ReadPacket()
		var malformed *MalformedPacketError
		if errors.As(err, &malformed) {
			if !errors.Is(malformed, ErrUnsupportedPacket) {
				zap.L().Warn("dropping malformed packet", zap.Binary("packet", malformed.Raw), zap.Error(malformed.Err))
			}
			continue
		}
		a.handlersLock.Lock()
		handlers := make([]func(Packet, error), 0, len(a.handlers))
		for _, h := range a.handlers {
			handlers = append(handlers, h)
		}
		a.handlersLock.Unlock()
		for _, h := range handlers {
			h(p, err)
		}
		if err != nil {
			a.err = err
			close(a.done)
			return
		}
	}
}

// subscribe registers fn for every packet and for the terminal read error.
func (a *Adapter) subscribe(fn func(Packet, error)) (cancel func()) {
	id := uuid.NewString()
	a.handlersLock.Lock()
	a.handlers[id] = fn
	a.handlersLock.Unlock()
	return func() {
		a.handlersLock.Lock()
		delete(a.handlers, id)
		a.handlersLock.Unlock()
	}
}

// Done is closed when the transport stops delivering packets.
func (a *Adapter) Done() <-chan struct{} {
	return a.done
}

// Err returns the error that stopped the adapter, once Done is closed.
func (a *Adapter) Err() error {
	select {
	case <-a.done:
		return a.err
	default:
		return nil
	}
}

// op writes a command and waits for its Command Complete event. The
// returned parameters start with the status byte, which is known to be zero.
func (a *Adapter) op(p CommandPacket) ([]byte, error) {
	result := make(chan []byte, 1)
	cancel := a.subscribe(func(q Packet, err error) {
		if q, ok := q.(*CommandCompleteEventPacket); ok && q.CommandOpcode == p.Opcode() {
			select {
			case result <- q.ReturnParameters:
			default:
			}
		}
	})
	defer cancel()

	if err := a.WritePacket(p); err != nil {
		return nil, errors.Wrapf(err, "write %v", p.Opcode())
	}

	timer := time.NewTimer(a.CommandTimeout)
	defer timer.Stop()
	select {
	case buf := <-result:
		if len(buf) == 0 {
			return nil, errors.Wrapf(io.ErrUnexpectedEOF, "%v", p.Opcode())
		}
		if buf[0] != 0 {
			return nil, &CommandError{Opcode: p.Opcode(), Status: buf[0]}
		}
		return buf, nil
	case <-a.done:
		return nil, errors.Wrapf(a.err, "%v", p.Opcode())
	case <-timer.C:
		return nil, errors.Wrapf(ErrCommandTimeout, "%v", p.Opcode())
	}
}

func (a *Adapter) Reset() error {
	_, err := a.op(NewGenericCommandPacket(OpcodeReset))
	return err
}

func (a *Adapter) ReadBDAddr() (BDAddr, error) {
	var addr BDAddr
	buf, err := a.op(NewGenericCommandPacket(OpcodeReadBDAddr))
	if err != nil {
		return addr, err
	}
	if copy(addr[:], buf[1:]) != 6 {
		return addr, io.ErrShortBuffer
	}
	return addr, nil
}

// LEReadMaximumAdvertisingDataLength returns the largest advertising data
// the controller accepts for one extended advertising set.
func (a *Adapter) LEReadMaximumAdvertisingDataLength() (uint16, error) {
	buf, err := a.op(NewGenericCommandPacket(OpcodeLEReadMaximumAdvertisingDataLength))
	if err != nil {
		return 0, err
	}
	if len(buf) < 3 {
		return 0, io.ErrShortBuffer
	}
	return binary.LittleEndian.Uint16(buf[1:3]), nil
}

func (a *Adapter) LESetAdvertisingEnable(enable bool) error {
	_, err := a.op(&LESetAdvertisingEnableCommandPacket{AdvertisingEnable: enable})
	return err
}

// OnAdvertisingReport calls fn for every report in legacy and extended
// advertising report events.
func (a *Adapter) OnAdvertisingReport(fn func(AdvertisingReport)) (cancel func()) {
	return a.subscribe(func(p Packet, err error) {
		switch p := p.(type) {
		case *LEAdvertisingReportEventPacket:
			for _, r := range p.Reports {
				fn(r)
			}
		case *LEExtendedAdvertisingReportEventPacket:
			for _, r := range p.Reports {
				fn(r)
			}
		}
	})
}

func (a *Adapter) OnConnection(fn func(*LEConnectionCompleteEventPacket)) (cancel func()) {
	return a.subscribe(func(p Packet, err error) {
		if p, ok := p.(*LEConnectionCompleteEventPacket); ok {
			fn(p)
		}
	})
}

func (a *Adapter) OnDisconnection(fn func(*DisconnectionCompleteEventPacket)) (cancel func()) {
	return a.subscribe(func(p Packet, err error) {
		if p, ok := p.(*DisconnectionCompleteEventPacket); ok {
			fn(p)
		}
	})
}
