package main

import (
	"context"
	"time"

	"github.com/muxable/bleadv/pkg/ad"
	"github.com/muxable/bleadv/pkg/advertiser"
	"github.com/muxable/bleadv/pkg/hci"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// advertisingHandle is the only extended advertising set used.
const advertisingHandle = 0

// configureAdvertising sets advertising parameters and returns a function
// that (re)enables advertising.
func configureAdvertising(a *hci.Adapter, set *payloadSet, interval uint16) (func() error, error) {
	if set.advertising.Extended {
		limit, err := a.LEReadMaximumAdvertisingDataLength()
		if err != nil {
			return nil, errors.Wrap(err, "read maximum advertising data length")
		}
		if size := set.largest(); size > int(limit) {
			return nil, &ad.PayloadTooLargeError{Size: size, Limit: int(limit)}
		}

		// Extended advertising PDUs cannot be both connectable and scannable.
		props := hci.AdvertisingEventPropertiesConnectable
		if set.scanResponse != nil {
			props = hci.AdvertisingEventPropertiesScannable
		}
		txPower, err := a.LESetExtendedAdvertisingParameters(&hci.SetExtendedAdvertisingParametersRequest{
			AdvertisingHandle:          advertisingHandle,
			AdvertisingEventProperties: props,
			AdvertisingIntervalMin:     uint32(interval),
		})
		if err != nil {
			return nil, errors.Wrap(err, "set extended advertising parameters")
		}
		zap.L().Debug("extended advertising set configured", zap.Int8("txPower", txPower))
		return func() error {
			return a.LESetExtendedAdvertisingEnable(true, hci.AdvertisingSet{AdvertisingHandle: advertisingHandle})
		}, nil
	}

	if err := a.LESetAdvertisingParameters(&hci.SetAdvertisingParametersRequest{
		AdvertisingIntervalMin: interval,
		AdvertisingIntervalMax: interval,
		AdvertisingType:        hci.AdvertisingTypeConnectableAndScannableUndirectedAdvertising,
	}); err != nil {
		return nil, errors.Wrap(err, "set advertising parameters")
	}
	return func() error {
		return a.LESetAdvertisingEnable(true)
	}, nil
}

func advertiseCmd() *cobra.Command {
	var pf payloadFlags
	var interval uint16
	var rotateInterval time.Duration

	cmd := &cobra.Command{
		Use:     "advertise",
		Short:   "Advertise the payload described by the flags",
		Example: "  bleadv advertise --name AdvC --rotate AdvD,AdvE --rotate-interval 5s",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := pf.build()
			if err != nil {
				return err
			}

			a, err := openAdapter()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.SetEventMask(hci.EventMaskDisconnectionCompleteEvent | hci.EventMaskLEMetaEvent); err != nil {
				return errors.Wrap(err, "set event mask")
			}
			if err := a.LESetEventMask(hci.LEEventMaskConnectionCompleteEvent); err != nil {
				return errors.Wrap(err, "set le event mask")
			}

			enable, err := configureAdvertising(a, set, interval)
			if err != nil {
				return err
			}

			adv := advertiser.New(a, advertiser.Config{Handle: advertisingHandle, RotateInterval: rotateInterval})
			if err := adv.Apply(set.advertising); err != nil {
				return err
			}
			if set.scanResponse != nil {
				if err := adv.Apply(*set.scanResponse); err != nil {
					return err
				}
			}
			if err := enable(); err != nil {
				return errors.Wrap(err, "enable advertising")
			}
			zap.L().Info("advertising",
				zap.Int("size", set.advertising.Size()),
				zap.Bool("extended", set.advertising.Extended),
				zap.Int("rotation", len(set.rotation)))

			// The controller stops advertising when a central connects.
			restart := make(chan struct{}, 1)
			cancelConn := a.OnConnection(func(p *hci.LEConnectionCompleteEventPacket) {
				zap.L().Info("connected", zap.Stringer("peer", p.PeerAddress), zap.Uint16("handle", p.ConnectionHandle))
			})
			defer cancelConn()
			cancelDisc := a.OnDisconnection(func(p *hci.DisconnectionCompleteEventPacket) {
				zap.L().Info("disconnected", zap.Uint16("handle", p.ConnectionHandle), zap.Uint8("reason", p.Reason))
				select {
				case restart <- struct{}{}:
				default:
				}
			})
			defer cancelDisc()

			ctx, cancel := signalContext()
			defer cancel()

			rotateErr := make(chan error, 1)
			if len(set.rotation) > 0 {
				go func() { rotateErr <- adv.Rotate(ctx, set.rotation) }()
			}

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-a.Done():
					return errors.Wrap(a.Err(), "controller")
				case err := <-rotateErr:
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				case <-restart:
					if err := enable(); err != nil {
						return errors.Wrap(err, "restart advertising")
					}
					zap.L().Info("advertising resumed")
				}
			}
		},
	}
	pf.register(cmd)
	cmd.Flags().Uint16Var(&interval, "interval", 0x0800,
		"advertising interval in units of 0.625 ms")
	cmd.Flags().DurationVar(&rotateInterval, "rotate-interval", 10*time.Second,
		"time between rotated payloads")
	return cmd
}
