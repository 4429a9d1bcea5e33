package main

import (
	"encoding/hex"
	"fmt"

	"github.com/muxable/bleadv/pkg/ad"
	"github.com/spf13/cobra"
)

func printPayload(cmd *cobra.Command, p *ad.Payload) error {
	buf, err := p.Encode()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", p.Target, hex.EncodeToString(buf))
	return nil
}

func encodeCmd() *cobra.Command {
	var pf payloadFlags
	cmd := &cobra.Command{
		Use:     "encode",
		Short:   "Print the advertising data described by the flags as hex",
		Example: "  bleadv encode --name AdvC --company-id 0x004C --manufacturer-data 0215",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := pf.build()
			if err != nil {
				return err
			}
			if err := printPayload(cmd, &set.advertising); err != nil {
				return err
			}
			if set.scanResponse != nil {
				if err := printPayload(cmd, set.scanResponse); err != nil {
					return err
				}
			}
			for i := 1; i < len(set.rotation); i++ {
				if err := printPayload(cmd, &set.rotation[i]); err != nil {
					return err
				}
			}
			return nil
		},
	}
	pf.register(cmd)
	return cmd
}
