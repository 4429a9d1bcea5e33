package main

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/muxable/bleadv/pkg/ad"
	"github.com/muxable/bleadv/pkg/hci"
)

// controller completes every command successfully, appending any configured
// return parameters after the status.
type controller struct {
	in chan hci.Packet

	mu      sync.Mutex
	written []hci.CommandPacket
	returns map[hci.Opcode][]byte
	closed  bool
}

func newController() *controller {
	return &controller{in: make(chan hci.Packet, 16), returns: make(map[hci.Opcode][]byte)}
}

func (c *controller) ReadPacket() (hci.Packet, error) {
	p, ok := <-c.in
	if !ok {
		return nil, io.EOF
	}
	return p, nil
}

func (c *controller) WritePacket(p hci.Packet) error {
	cmd, ok := p.(hci.CommandPacket)
	if !ok {
		return errors.New("not a command")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, cmd)
	params := append([]byte{0}, c.returns[cmd.Opcode()]...)
	c.in <- &hci.CommandCompleteEventPacket{NumCommandPackets: 1, CommandOpcode: cmd.Opcode(), ReturnParameters: params}
	return nil
}

func (c *controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.in)
	}
	return nil
}

func (c *controller) commands() []hci.CommandPacket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]hci.CommandPacket(nil), c.written...)
}

func (c *controller) opcodes() []hci.Opcode {
	var ops []hci.Opcode
	for _, cmd := range c.commands() {
		ops = append(ops, cmd.Opcode())
	}
	return ops
}

func sameOpcodes(got, want []hci.Opcode) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestStartScanning(t *testing.T) {
	for _, tt := range []struct {
		extended bool
		mask     hci.LEEventMask
		params   hci.Opcode
		enable   hci.Opcode
	}{
		{false, hci.LEEventMaskAdvertisingReportEvent, hci.OpcodeLESetScanParameters, hci.OpcodeLESetScanEnable},
		{true, hci.LEEventMaskAdvertisingReportEvent | hci.LEEventMaskExtendedAdvertisingReportEvent,
			hci.OpcodeLESetExtendedScanParameters, hci.OpcodeLESetExtendedScanEnable},
	} {
		c := newController()
		a := hci.NewAdapter(c)

		stop, err := startScanning(a, true, tt.extended)
		if err != nil {
			t.Fatalf("extended=%v: startScanning() error = %v", tt.extended, err)
		}
		if err := stop(); err != nil {
			t.Fatalf("extended=%v: stop() error = %v", tt.extended, err)
		}

		want := []hci.Opcode{hci.OpcodeSetEventMask, hci.OpcodeLESetEventMask, tt.params, tt.enable, tt.enable}
		if got := c.opcodes(); !sameOpcodes(got, want) {
			t.Errorf("extended=%v: wrote %v, want %v", tt.extended, got, want)
		}
		cmds := c.commands()
		if m, ok := cmds[1].(*hci.HCILESetEventMaskCommandPacket); !ok || m.LEEventMask != tt.mask {
			t.Errorf("extended=%v: le event mask = %+v, want %#x", tt.extended, cmds[1], tt.mask)
		}
		if tt.extended {
			p, ok := cmds[2].(*hci.LESetExtendedScanParametersCommandPacket)
			if !ok || p.ScanType != hci.ScanTypeActive {
				t.Errorf("scan parameters = %+v", cmds[2])
			}
			first, _ := cmds[3].(*hci.LESetExtendedScanEnableCommandPacket)
			last, _ := cmds[4].(*hci.LESetExtendedScanEnableCommandPacket)
			if first == nil || !first.Enable || first.FilterDuplicates || last == nil || last.Enable {
				t.Errorf("scan enable = %+v then %+v", cmds[3], cmds[4])
			}
		}
		a.Close()
	}
}

func TestConfigureExtendedAdvertisingChecksControllerMaximum(t *testing.T) {
	pf := payloadFlags{name: strings.Repeat("x", 40), extended: true}
	set, err := pf.build()
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}

	c := newController()
	c.returns[hci.OpcodeLEReadMaximumAdvertisingDataLength] = []byte{31, 0}
	a := hci.NewAdapter(c)
	defer a.Close()

	_, err = configureAdvertising(a, set, 0x0800)
	var tooLarge *ad.PayloadTooLargeError
	if !errors.As(err, &tooLarge) || !errors.Is(err, ad.ErrPayloadTooLarge) {
		t.Fatalf("configureAdvertising() error = %v, want *ad.PayloadTooLargeError", err)
	}
	if tooLarge.Size != set.advertising.Size() || tooLarge.Limit != 31 {
		t.Errorf("PayloadTooLargeError = %+v", tooLarge)
	}
	if got := c.opcodes(); !sameOpcodes(got, []hci.Opcode{hci.OpcodeLEReadMaximumAdvertisingDataLength}) {
		t.Errorf("wrote %v before rejecting the payload", got)
	}
}

func TestConfigureExtendedAdvertising(t *testing.T) {
	pf := payloadFlags{name: "AdvC", extended: true, scanResponse: true, rotate: []string{strings.Repeat("y", 200)}}
	set, err := pf.build()
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	if set.largest() != 202 {
		t.Fatalf("largest() = %d, want 202", set.largest())
	}

	c := newController()
	c.returns[hci.OpcodeLEReadMaximumAdvertisingDataLength] = []byte{0x72, 0x06}
	c.returns[hci.OpcodeLESetExtendedAdvertisingParameters] = []byte{0xF6}
	a := hci.NewAdapter(c)
	defer a.Close()

	enable, err := configureAdvertising(a, set, 0x0800)
	if err != nil {
		t.Fatalf("configureAdvertising() error = %v", err)
	}
	if err := enable(); err != nil {
		t.Fatalf("enable() error = %v", err)
	}

	want := []hci.Opcode{
		hci.OpcodeLEReadMaximumAdvertisingDataLength,
		hci.OpcodeLESetExtendedAdvertisingParameters,
		hci.OpcodeLESetExtendedAdvertisingEnable,
	}
	if got := c.opcodes(); !sameOpcodes(got, want) {
		t.Fatalf("wrote %v, want %v", got, want)
	}
	params, ok := c.commands()[1].(*hci.LESetExtendedAdvertisingParametersCommandPacket)
	if !ok || params.AdvertisingEventProperties != hci.AdvertisingEventPropertiesScannable {
		t.Errorf("advertising parameters = %+v", c.commands()[1])
	}
}

func TestConfigureLegacyAdvertisingSkipsMaximum(t *testing.T) {
	set, err := (&payloadFlags{name: "AdvC"}).build()
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	c := newController()
	a := hci.NewAdapter(c)
	defer a.Close()

	if _, err := configureAdvertising(a, set, 0x0800); err != nil {
		t.Fatalf("configureAdvertising() error = %v", err)
	}
	if got := c.opcodes(); !sameOpcodes(got, []hci.Opcode{hci.OpcodeLESetAdvertisingParameters}) {
		t.Errorf("wrote %v", got)
	}
}
