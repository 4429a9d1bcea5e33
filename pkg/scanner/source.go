package scanner

import (
	"github.com/muxable/bleadv/pkg/hci"
	"github.com/muxable/bleadv/pkg/scancache"
	"go.uber.org/zap"
)

// AdapterSource forwards advertising reports from an hci.Adapter. Reports
// arriving while the buffer is full are dropped, since the adapter's reader
// must never block.
type AdapterSource struct {
	ch     chan scancache.Report
	cancel func()
}

func NewAdapterSource(a *hci.Adapter, buffer int) *AdapterSource {
	s := &AdapterSource{ch: make(chan scancache.Report, buffer)}
	s.cancel = a.OnAdvertisingReport(s.push)
	return s
}

func (s *AdapterSource) push(r hci.AdvertisingReport) {
	// Chained extended reports are not reassembled.
	if r.Incomplete() {
		zap.L().Debug("skipping incomplete report", zap.Stringer("address", r.Address))
		return
	}
	select {
	case s.ch <- toReport(r):
	default:
		zap.L().Debug("report buffer full", zap.Stringer("address", r.Address))
	}
}

func (s *AdapterSource) Reports() <-chan scancache.Report {
	return s.ch
}

// Close stops forwarding. The report channel is left open so a running
// scanner keeps draining what was buffered.
func (s *AdapterSource) Close() {
	s.cancel()
}

func toReport(r hci.AdvertisingReport) scancache.Report {
	packetType := uint8(r.EventType)
	if r.Extended {
		packetType = uint8(r.EventType & 0x1F)
	}
	return scancache.Report{
		Address:     r.Address,
		AddressType: uint8(r.AddressType),
		PacketType:  packetType,
		RSSI:        r.RSSI,
		Payload:     r.Data,
	}
}
