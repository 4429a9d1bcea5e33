package hci

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/muxable/bleadv/pkg/ad"
)

// fakeTransport answers every command with a Command Complete carrying
// status and any configured return parameters, and delivers whatever is
// pushed on in.
type fakeTransport struct {
	in chan Packet

	mu      sync.Mutex
	written []CommandPacket
	status  map[Opcode]uint8
	returns map[Opcode][]byte
	silent  map[Opcode]bool
	closed  bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:      make(chan Packet, 64),
		status:  make(map[Opcode]uint8),
		returns: make(map[Opcode][]byte),
		silent:  make(map[Opcode]bool),
	}
}

func (f *fakeTransport) setReturns(op Opcode, params ...byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.returns[op] = params
}

func (f *fakeTransport) ReadPacket() (Packet, error) {
	p, ok := <-f.in
	if !ok {
		return nil, io.EOF
	}
	return p, nil
}

func (f *fakeTransport) WritePacket(p Packet) error {
	cmd, ok := p.(CommandPacket)
	if !ok {
		return errors.New("not a command")
	}
	if _, err := cmd.Marshal(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, cmd)
	if f.silent[cmd.Opcode()] {
		return nil
	}
	params := append([]byte{f.status[cmd.Opcode()]}, f.returns[cmd.Opcode()]...)
	if cmd.Opcode() == OpcodeReadBDAddr {
		params = append(params, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11)
	}
	f.in <- &CommandCompleteEventPacket{NumCommandPackets: 1, CommandOpcode: cmd.Opcode(), ReturnParameters: params}
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.in)
	}
	return nil
}

func (f *fakeTransport) commands() []CommandPacket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CommandPacket(nil), f.written...)
}

func TestAdapterCommands(t *testing.T) {
	f := newFakeTransport()
	a := NewAdapter(f)
	defer a.Close()

	if err := a.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	addr, err := a.ReadBDAddr()
	if err != nil {
		t.Fatalf("ReadBDAddr() error = %v", err)
	}
	if addr.String() != "11:22:33:44:55:66" {
		t.Errorf("ReadBDAddr() = %v", addr)
	}
	if err := a.LESetScanParameters(&SetScanParametersRequest{ScanType: ScanTypeActive}); err != nil {
		t.Fatalf("LESetScanParameters() error = %v", err)
	}
	if err := a.LESetScanParameters(&SetScanParametersRequest{ScanInterval: 0x0010, ScanWindow: 0x0020}); err == nil {
		t.Error("LESetScanParameters() accepted a window longer than the interval")
	}
	if err := a.LESetScanEnable(true, false); err != nil {
		t.Fatalf("LESetScanEnable() error = %v", err)
	}

	var opcodes []Opcode
	for _, c := range f.commands() {
		opcodes = append(opcodes, c.Opcode())
	}
	want := []Opcode{OpcodeReset, OpcodeReadBDAddr, OpcodeLESetScanParameters, OpcodeLESetScanEnable}
	if len(opcodes) != len(want) {
		t.Fatalf("wrote %v, want %v", opcodes, want)
	}
	for i := range want {
		if opcodes[i] != want[i] {
			t.Errorf("command %d = %v, want %v", i, opcodes[i], want[i])
		}
	}
}

func TestAdapterExtendedScan(t *testing.T) {
	f := newFakeTransport()
	a := NewAdapter(f)
	defer a.Close()

	if err := a.LESetExtendedScanParameters(&SetScanParametersRequest{ScanInterval: 0x0010, ScanWindow: 0x0020}); err == nil {
		t.Error("LESetExtendedScanParameters() accepted a window longer than the interval")
	}
	if len(f.commands()) != 0 {
		t.Fatal("a command was written for invalid scan parameters")
	}
	if err := a.LESetExtendedScanParameters(&SetScanParametersRequest{ScanType: ScanTypeActive}); err != nil {
		t.Fatalf("LESetExtendedScanParameters() error = %v", err)
	}
	if err := a.LESetExtendedScanEnable(true, false); err != nil {
		t.Fatalf("LESetExtendedScanEnable() error = %v", err)
	}

	cmds := f.commands()
	if len(cmds) != 2 {
		t.Fatalf("wrote %d commands, want 2", len(cmds))
	}
	params, ok := cmds[0].(*LESetExtendedScanParametersCommandPacket)
	if !ok {
		t.Fatalf("command 0 = %T", cmds[0])
	}
	if params.ScanType != ScanTypeActive || params.ScanInterval != 0x0010 || params.ScanWindow != 0x0010 {
		t.Errorf("parameters = %+v", params)
	}
	enable, ok := cmds[1].(*LESetExtendedScanEnableCommandPacket)
	if !ok || !enable.Enable || enable.FilterDuplicates {
		t.Errorf("command 1 = %+v", cmds[1])
	}

	f.mu.Lock()
	f.status[OpcodeLESetExtendedScanEnable] = 0x0C
	f.mu.Unlock()
	var cmdErr *CommandError
	if err := a.LESetExtendedScanEnable(false, false); !errors.As(err, &cmdErr) || cmdErr.Opcode != OpcodeLESetExtendedScanEnable {
		t.Errorf("LESetExtendedScanEnable() error = %v, want *CommandError", err)
	}
}

func TestLEReadMaximumAdvertisingDataLength(t *testing.T) {
	f := newFakeTransport()
	a := NewAdapter(f)
	defer a.Close()

	if _, err := a.LEReadMaximumAdvertisingDataLength(); !errors.Is(err, io.ErrShortBuffer) {
		t.Errorf("LEReadMaximumAdvertisingDataLength() error = %v, want io.ErrShortBuffer", err)
	}
	f.setReturns(OpcodeLEReadMaximumAdvertisingDataLength, 0x72, 0x06)
	limit, err := a.LEReadMaximumAdvertisingDataLength()
	if err != nil {
		t.Fatalf("LEReadMaximumAdvertisingDataLength() error = %v", err)
	}
	if limit != 1650 {
		t.Errorf("LEReadMaximumAdvertisingDataLength() = %d, want 1650", limit)
	}
}

func TestAdapterCommandError(t *testing.T) {
	f := newFakeTransport()
	f.status[OpcodeLESetAdvertisingEnable] = 0x0C
	a := NewAdapter(f)
	defer a.Close()

	err := a.LESetAdvertisingEnable(true)
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("LESetAdvertisingEnable() error = %v, want *CommandError", err)
	}
	if cmdErr.Opcode != OpcodeLESetAdvertisingEnable || cmdErr.Status != 0x0C {
		t.Errorf("CommandError = %+v", cmdErr)
	}
}

func TestAdapterCommandTimeout(t *testing.T) {
	f := newFakeTransport()
	f.silent[OpcodeReset] = true
	a := NewAdapter(f)
	a.CommandTimeout = 20 * time.Millisecond
	defer a.Close()

	if err := a.Reset(); !errors.Is(err, ErrCommandTimeout) {
		t.Fatalf("Reset() error = %v, want ErrCommandTimeout", err)
	}
}

func TestAdapterClosedTransport(t *testing.T) {
	f := newFakeTransport()
	f.silent[OpcodeReset] = true
	a := NewAdapter(f)
	a.CommandTimeout = time.Minute
	f.Close()

	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("adapter did not stop")
	}
	if !errors.Is(a.Err(), io.EOF) {
		t.Errorf("Err() = %v, want io.EOF", a.Err())
	}
	if err := a.Reset(); !errors.Is(err, io.EOF) {
		t.Errorf("Reset() error = %v, want io.EOF", err)
	}
}

func TestSetAdvertisingPayload(t *testing.T) {
	f := newFakeTransport()
	a := NewAdapter(f)
	defer a.Close()

	err := a.SetAdvertisingPayload(1, &ad.Payload{
		Target:   ad.TargetAdvertising,
		Extended: true,
		Elements: []ad.Element{ad.NewElement(ad.TypeManufacturerData, make([]byte, 251))},
	})
	if err != nil {
		t.Fatalf("SetAdvertisingPayload() error = %v", err)
	}
	cmds := f.commands()
	if len(cmds) != 2 {
		t.Fatalf("wrote %d commands, want 2", len(cmds))
	}
	for _, c := range cmds {
		if c.Opcode() != OpcodeLESetExtendedAdvertisingData {
			t.Errorf("opcode = %v", c.Opcode())
		}
	}

	err = a.SetAdvertisingPayload(0, &ad.Payload{Elements: []ad.Element{{Type: ad.TypeFlags, Length: 1}}})
	if !errors.Is(err, ad.ErrNullElement) {
		t.Errorf("SetAdvertisingPayload() error = %v, want ErrNullElement", err)
	}
	if len(f.commands()) != 2 {
		t.Error("a command was written for an invalid payload")
	}
}

func TestOnAdvertisingReport(t *testing.T) {
	f := newFakeTransport()
	a := NewAdapter(f)
	defer a.Close()

	got := make(chan AdvertisingReport, 4)
	cancel := a.OnAdvertisingReport(func(r AdvertisingReport) { got <- r })

	f.in <- &LEAdvertisingReportEventPacket{Reports: []AdvertisingReport{
		{Address: BDAddr{1}, RSSI: -50},
		{Address: BDAddr{2}, RSSI: -51},
	}}
	f.in <- &LEExtendedAdvertisingReportEventPacket{Reports: []AdvertisingReport{
		{Address: BDAddr{3}, RSSI: -52, Extended: true},
	}}
	for i := byte(1); i <= 3; i++ {
		select {
		case r := <-got:
			if r.Address[0] != i {
				t.Errorf("report %d from %v", i, r.Address)
			}
		case <-time.After(time.Second):
			t.Fatalf("report %d not delivered", i)
		}
	}

	cancel()
	disconnected := make(chan uint16, 1)
	a.OnDisconnection(func(p *DisconnectionCompleteEventPacket) { disconnected <- p.ConnectionHandle })
	f.in <- &LEAdvertisingReportEventPacket{Reports: []AdvertisingReport{{Address: BDAddr{4}}}}
	f.in <- &DisconnectionCompleteEventPacket{ConnectionHandle: 0x40}
	select {
	case h := <-disconnected:
		if h != 0x40 {
			t.Errorf("handle = %#x", h)
		}
	case <-time.After(time.Second):
		t.Fatal("disconnection not delivered")
	}
	select {
	case r := <-got:
		t.Errorf("report %v delivered after cancel", r.Address)
	default:
	}
}
