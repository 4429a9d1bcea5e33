package main

import (
	"github.com/muxable/bleadv/pkg/hci"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	hciIdx      int
	logLevelStr string
)

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func Commands() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "bleadv",
		Short:        "bleadv encodes, advertises and scans BLE advertising data",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(logLevelStr)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	rootCmd.PersistentFlags().IntVarP(&hciIdx, "hci", "i", 0,
		"HCI index for the controller; -1 picks the first available")
	rootCmd.PersistentFlags().StringVarP(&logLevelStr, "log-level", "l", "info",
		"log level to use")

	rootCmd.AddCommand(encodeCmd())
	rootCmd.AddCommand(advertiseCmd())
	rootCmd.AddCommand(scanCmd())

	return rootCmd
}

// openAdapter binds the user channel and resets the controller.
func openAdapter() (*hci.Adapter, error) {
	sck, err := hci.NewSocket(hciIdx)
	if err != nil {
		return nil, err
	}
	a := hci.NewAdapter(sck)
	if err := a.Reset(); err != nil {
		a.Close()
		return nil, errors.Wrap(err, "reset")
	}
	addr, err := a.ReadBDAddr()
	if err != nil {
		a.Close()
		return nil, errors.Wrap(err, "read bdaddr")
	}
	zap.L().Info("controller ready", zap.Int("hci", hciIdx), zap.Stringer("address", addr))
	return a, nil
}
