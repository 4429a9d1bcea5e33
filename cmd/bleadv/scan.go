package main

import (
	"context"

	"github.com/muxable/bleadv/pkg/hci"
	"github.com/muxable/bleadv/pkg/scanner"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startScanning enables advertising report events and starts scanning
// without duplicate filtering, since the cache needs every sighting to stay
// fresh. Extended scanning also receives legacy PDUs, as extended reports.
func startScanning(a *hci.Adapter, active, extended bool) (stop func() error, err error) {
	if err := a.SetEventMask(hci.EventMaskLEMetaEvent); err != nil {
		return nil, errors.Wrap(err, "set event mask")
	}
	mask := hci.LEEventMaskAdvertisingReportEvent
	if extended {
		mask |= hci.LEEventMaskExtendedAdvertisingReportEvent
	}
	if err := a.LESetEventMask(mask); err != nil {
		return nil, errors.Wrap(err, "set le event mask")
	}

	req := &hci.SetScanParametersRequest{ScanType: hci.ScanTypePassive}
	if active {
		req.ScanType = hci.ScanTypeActive
	}
	if extended {
		if err := a.LESetExtendedScanParameters(req); err != nil {
			return nil, errors.Wrap(err, "set extended scan parameters")
		}
		if err := a.LESetExtendedScanEnable(true, false); err != nil {
			return nil, errors.Wrap(err, "enable extended scanning")
		}
		return func() error { return a.LESetExtendedScanEnable(false, false) }, nil
	}
	if err := a.LESetScanParameters(req); err != nil {
		return nil, errors.Wrap(err, "set scan parameters")
	}
	if err := a.LESetScanEnable(true, false); err != nil {
		return nil, errors.Wrap(err, "enable scanning")
	}
	return func() error { return a.LESetScanEnable(false, false) }, nil
}

func scanCmd() *cobra.Command {
	cfg := scanner.NewConfig()
	var active, extended bool
	var buffer int

	cmd := &cobra.Command{
		Use:     "scan",
		Short:   "Scan for advertisers and log the devices in range",
		Example: "  bleadv scan --capacity 16 --miss 5 --sweep 2s --active",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAdapter()
			if err != nil {
				return err
			}
			defer a.Close()

			src := scanner.NewAdapterSource(a, buffer)
			defer src.Close()
			s, err := scanner.New(src, cfg)
			if err != nil {
				return err
			}

			stop, err := startScanning(a, active, extended)
			if err != nil {
				return err
			}
			zap.L().Info("scanning",
				zap.Bool("extended", extended),
				zap.Int("capacity", cfg.Capacity),
				zap.Uint64("miss", cfg.MissThreshold),
				zap.Duration("sweep", cfg.SweepInterval))

			ctx, cancel := signalContext()
			defer cancel()
			go func() {
				select {
				case <-a.Done():
					zap.L().Error("controller stopped", zap.Error(a.Err()))
					cancel()
				case <-ctx.Done():
				}
			}()

			err = s.Run(ctx)
			if ctx.Err() != nil && a.Err() != nil {
				return errors.Wrap(a.Err(), "controller")
			}
			if errors.Is(err, context.Canceled) {
				err = nil
			}
			if err := stop(); err != nil {
				zap.L().Warn("disable scanning", zap.Error(err))
			}
			return err
		},
	}

	cmd.Flags().IntVar(&cfg.Capacity, "capacity", cfg.Capacity,
		"number of distinct reports kept")
	cmd.Flags().Uint64Var(&cfg.MissThreshold, "miss", cfg.MissThreshold,
		"sweeps a device may go unseen before it is dropped")
	cmd.Flags().DurationVar(&cfg.SweepInterval, "sweep", cfg.SweepInterval,
		"time between sweeps")
	cmd.Flags().IntVar(&cfg.MaxBytes, "max-bytes", cfg.MaxBytes,
		"payload byte budget for the cache, 0 for none")
	cmd.Flags().BoolVar(&active, "active", false,
		"send scan requests to collect scan responses")
	cmd.Flags().BoolVar(&extended, "extended", false,
		"use extended scanning to receive extended advertising reports")
	cmd.Flags().IntVar(&buffer, "buffer", 64,
		"reports buffered between the controller and the cache")
	return cmd
}
