// Package scanner runs a scan-report cache on a single goroutine, feeding
// it controller reports and expiring devices that stop advertising.
package scanner

import (
	"context"
	"time"

	"github.com/muxable/bleadv/pkg/ad"
	"github.com/muxable/bleadv/pkg/hci"
	"github.com/muxable/bleadv/pkg/scancache"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ReportSource delivers advertising reports. The channel is closed when the
// source has no more reports.
type ReportSource interface {
	Reports() <-chan scancache.Report
}

type Config struct {
	// Capacity is the number of distinct reports kept.
	Capacity int
	// MissThreshold is the number of sweeps a record may go unseen before
	// it is dropped.
	MissThreshold uint64
	SweepInterval time.Duration
	// MaxBytes bounds the payload bytes held. Zero means unbounded.
	MaxBytes int
}

func NewConfig() Config {
	return Config{
		Capacity:      scancache.DefaultCapacity,
		MissThreshold: 3,
		SweepInterval: time.Second,
	}
}

type Scanner struct {
	src       ReportSource
	cfg       Config
	cache     *scancache.Cache
	snapshots chan chan []scancache.Record
}

func New(src ReportSource, cfg Config) (*Scanner, error) {
	if cfg.SweepInterval <= 0 {
		return nil, errors.Errorf("invalid sweep interval %v", cfg.SweepInterval)
	}
	var opts []scancache.Option
	if cfg.MaxBytes > 0 {
		opts = append(opts, scancache.WithMaxBytes(cfg.MaxBytes))
	}
	cache, err := scancache.New(cfg.Capacity, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "capacity %d", cfg.Capacity)
	}
	return &Scanner{
		src:       src,
		cfg:       cfg,
		cache:     cache,
		snapshots: make(chan chan []scancache.Record),
	}, nil
}

// Run owns the cache until ctx is done or the source closes. It returns nil
// when the source closes and ctx.Err() otherwise.
func (s *Scanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	reports := s.src.Reports()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-reports:
			if !ok {
				return nil
			}
			if err := s.cache.TouchOrInsert(r); err != nil {
				zap.L().Warn("dropping advertising report",
					zap.String("address", hci.BDAddr(r.Address).String()),
					zap.Int("size", len(r.Payload)),
					zap.Error(err))
			}
		case <-ticker.C:
			s.sweep()
		case reply := <-s.snapshots:
			reply <- s.cache.Records()
		}
	}
}

func (s *Scanner) sweep() {
	current := s.cache.Advance()
	if n := s.cache.SweepAndExpire(current, s.cfg.MissThreshold); n > 0 {
		zap.L().Debug("expired devices", zap.Int("count", n), zap.Uint64("sweep", current))
	}
	s.cache.Walk(func(r scancache.Record) bool {
		zap.L().Info("device",
			zap.String("address", hci.BDAddr(r.Address).String()),
			zap.Uint8("addressType", r.AddressType),
			zap.Uint8("packetType", r.PacketType),
			zap.Int8("rssi", r.RSSI),
			zap.String("name", ad.LocalName(r.Payload)),
			zap.Uint64("age", current-r.LastSeen))
		return true
	})
}

// Snapshot returns the cached records, most recently seen first. It blocks
// until Run services the request or ctx is done.
func (s *Scanner) Snapshot(ctx context.Context) ([]scancache.Record, error) {
	reply := make(chan []scancache.Record, 1)
	select {
	case s.snapshots <- reply:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case records := <-reply:
		return records, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
