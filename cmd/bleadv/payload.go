package main

import (
	"encoding/hex"
	"math"

	"github.com/muxable/bleadv/pkg/ad"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

type payloadFlags struct {
	name             string
	companyID        string
	manufacturerData string
	extended         bool
	scanResponse     bool
	rotate           []string
}

func (f *payloadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "complete local name")
	cmd.Flags().StringVar(&f.companyID, "company-id", "",
		"manufacturer company identifier, e.g. 0x004C")
	cmd.Flags().StringVar(&f.manufacturerData, "manufacturer-data", "",
		"manufacturer specific data as hex")
	cmd.Flags().BoolVar(&f.extended, "extended", false,
		"use the extended advertising size limit")
	cmd.Flags().BoolVar(&f.scanResponse, "scan-response", false,
		"carry the local name in the scan response")
	cmd.Flags().StringSliceVar(&f.rotate, "rotate", nil,
		"additional local names to rotate through")
}

// payloadSet is what the flags describe: the advertising data, an optional
// scan response, and when rotating, one payload per name.
type payloadSet struct {
	advertising  ad.Payload
	scanResponse *ad.Payload
	rotation     []ad.Payload
}

// largest returns the encoded size of the biggest payload the set will
// hand to the controller.
func (s *payloadSet) largest() int {
	n := s.advertising.Size()
	if s.scanResponse != nil && s.scanResponse.Size() > n {
		n = s.scanResponse.Size()
	}
	for i := range s.rotation {
		if size := s.rotation[i].Size(); size > n {
			n = size
		}
	}
	return n
}

func parseCompanyID(s string) (uint16, error) {
	v, err := cast.ToUint64E(s)
	if err != nil {
		return 0, errors.Wrapf(err, "company id %q", s)
	}
	if v > math.MaxUint16 {
		return 0, errors.Errorf("company id %q out of range", s)
	}
	return uint16(v), nil
}

func (f *payloadFlags) build() (*payloadSet, error) {
	base := []ad.Element{ad.Flags(ad.FlagsLEGeneralDiscoverableMode | ad.FlagsBREDRNotSupported)}
	if f.companyID != "" || f.manufacturerData != "" {
		if f.companyID == "" {
			return nil, errors.New("--manufacturer-data needs --company-id")
		}
		id, err := parseCompanyID(f.companyID)
		if err != nil {
			return nil, err
		}
		data, err := hex.DecodeString(f.manufacturerData)
		if err != nil {
			return nil, errors.Wrap(err, "manufacturer data")
		}
		base = append(base, ad.ManufacturerData(id, data))
	}

	named := func(name string) ad.Payload {
		if f.scanResponse {
			return ad.Payload{
				Target:   ad.TargetScanResponse,
				Extended: f.extended,
				Elements: []ad.Element{ad.CompleteLocalName(name)},
			}
		}
		elements := append(append([]ad.Element(nil), base...), ad.CompleteLocalName(name))
		return ad.Payload{Target: ad.TargetAdvertising, Extended: f.extended, Elements: elements}
	}

	set := &payloadSet{
		advertising: ad.Payload{Target: ad.TargetAdvertising, Extended: f.extended, Elements: base},
	}
	if f.name != "" {
		p := named(f.name)
		if f.scanResponse {
			set.scanResponse = &p
		} else {
			set.advertising = p
		}
	}
	if len(f.rotate) > 0 {
		if f.name == "" {
			return nil, errors.New("--rotate needs --name")
		}
		for _, name := range append([]string{f.name}, f.rotate...) {
			set.rotation = append(set.rotation, named(name))
		}
	}
	return set, nil
}
