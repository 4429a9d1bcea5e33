package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/muxable/bleadv/pkg/ad"
	"github.com/muxable/bleadv/pkg/hci"
	"github.com/muxable/bleadv/pkg/scancache"
)

type chanSource chan scancache.Report

func (c chanSource) Reports() <-chan scancache.Report { return c }

func payload(t *testing.T, name string) []byte {
	t.Helper()
	buf, err := ad.Encode([]ad.Element{ad.Flags(ad.FlagsLEGeneralDiscoverableMode), ad.CompleteLocalName(name)}, false)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return buf
}

func start(t *testing.T, cfg Config) (chanSource, *Scanner, context.CancelFunc, <-chan error) {
	t.Helper()
	// Unbuffered so a completed send means Run has taken the report.
	src := make(chanSource)
	s, err := New(src, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return src, s, cancel, done
}

func snapshot(t *testing.T, s *Scanner) []scancache.Record {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	records, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	return records
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := NewConfig()
	cfg.Capacity = 0
	if _, err := New(make(chanSource), cfg); !errors.Is(err, scancache.ErrInvalidCapacity) {
		t.Errorf("New() error = %v, want ErrInvalidCapacity", err)
	}
	cfg = NewConfig()
	cfg.SweepInterval = 0
	if _, err := New(make(chanSource), cfg); err == nil {
		t.Error("New() accepted a zero sweep interval")
	}
}

func TestScannerDeduplicates(t *testing.T) {
	cfg := NewConfig()
	cfg.SweepInterval = time.Hour
	src, s, cancel, done := start(t, cfg)
	defer cancel()

	a := scancache.Report{Address: [6]byte{1}, RSSI: -40, Payload: payload(t, "a")}
	b := scancache.Report{Address: [6]byte{2}, RSSI: -50, Payload: payload(t, "b")}
	src <- a
	src <- b
	a.RSSI = -45
	src <- a

	records := snapshot(t, s)
	if len(records) != 2 {
		t.Fatalf("Snapshot() = %d records, want 2", len(records))
	}
	if records[0].Address != a.Address || records[0].RSSI != -45 {
		t.Errorf("head = %v", records[0])
	}
	if ad.LocalName(records[1].Payload) != "b" {
		t.Errorf("tail name = %q", ad.LocalName(records[1].Payload))
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}

func TestScannerExpires(t *testing.T) {
	cfg := NewConfig()
	cfg.SweepInterval = 5 * time.Millisecond
	cfg.MissThreshold = 1
	src, s, cancel, _ := start(t, cfg)
	defer cancel()

	src <- scancache.Report{Address: [6]byte{1}, Payload: payload(t, "gone")}
	deadline := time.Now().Add(2 * time.Second)
	for len(snapshot(t, s)) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("record never expired")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestScannerAllocationFailureIsNotFatal(t *testing.T) {
	cfg := NewConfig()
	cfg.SweepInterval = time.Hour
	cfg.MaxBytes = 4
	src, s, cancel, _ := start(t, cfg)
	defer cancel()

	src <- scancache.Report{Address: [6]byte{1}, Payload: payload(t, "too long")}
	src <- scancache.Report{Address: [6]byte{2}, Payload: []byte{0x02, 0x01, 0x06}}
	records := snapshot(t, s)
	if len(records) != 1 || records[0].Address != [6]byte{2} {
		t.Errorf("Snapshot() = %v", records)
	}
}

func TestScannerSourceClosed(t *testing.T) {
	cfg := NewConfig()
	src, s, cancel, done := start(t, cfg)
	defer cancel()

	close(src)
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return")
	}
	ctx, cancelSnap := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelSnap()
	if _, err := s.Snapshot(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Snapshot() error = %v, want DeadlineExceeded", err)
	}
}

func TestToReport(t *testing.T) {
	legacy := toReport(hci.AdvertisingReport{
		EventType:   hci.AdvertisingEventTypeScanRsp,
		AddressType: hci.PeerAddressTypeRandomDeviceAddress,
		Address:     hci.BDAddr{1, 2, 3, 4, 5, 6},
		RSSI:        -70,
		Data:        []byte{0x02, 0x01, 0x06},
	})
	if legacy.PacketType != 0x04 || legacy.AddressType != 1 || legacy.RSSI != -70 || legacy.Address != [6]byte{1, 2, 3, 4, 5, 6} {
		t.Errorf("legacy = %+v", legacy)
	}

	extended := toReport(hci.AdvertisingReport{
		EventType: hci.AdvertisingEventTypeLegacy | hci.AdvertisingEventTypeScannable | 0x40,
		Extended:  true,
	})
	if extended.PacketType != 0x12 {
		t.Errorf("extended packet type = %#x, want 0x12", extended.PacketType)
	}
}
