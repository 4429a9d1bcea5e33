package ad

import "fmt"

// Type is the one-byte AD type tag. The registry is open-ended, so values
// outside the named constants are carried through untouched.
//
// Supplement to the Bluetooth Core Specification, Part A, Section 1.
type Type uint8

const (
	TypeFlags                       Type = 0x01
	TypeIncompleteServiceUUIDs16    Type = 0x02
	TypeCompleteServiceUUIDs16      Type = 0x03
	TypeIncompleteServiceUUIDs32    Type = 0x04
	TypeCompleteServiceUUIDs32      Type = 0x05
	TypeIncompleteServiceUUIDs128   Type = 0x06
	TypeCompleteServiceUUIDs128     Type = 0x07
	TypeShortLocalName              Type = 0x08
	TypeCompleteLocalName           Type = 0x09
	TypeTxPowerLevel                Type = 0x0A
	TypeClassOfDevice               Type = 0x0D
	TypePeripheralConnIntervalRange Type = 0x12
	TypeServiceSolicitationUUIDs16  Type = 0x14
	TypeServiceSolicitationUUIDs128 Type = 0x15
	TypeServiceData16               Type = 0x16
	TypePublicTargetAddress         Type = 0x17
	TypeRandomTargetAddress         Type = 0x18
	TypeAppearance                  Type = 0x19
	TypeAdvertisingInterval         Type = 0x1A
	TypeLEDeviceAddress             Type = 0x1B
	TypeLERole                      Type = 0x1C
	TypeServiceSolicitationUUIDs32  Type = 0x1F
	TypeServiceData32               Type = 0x20
	TypeServiceData128              Type = 0x21
	TypeURI                         Type = 0x24
	TypeManufacturerData            Type = 0xFF
)

var typeNames = map[Type]string{
	TypeFlags:                       "Flags",
	TypeIncompleteServiceUUIDs16:    "IncompleteServiceUUIDs16",
	TypeCompleteServiceUUIDs16:      "CompleteServiceUUIDs16",
	TypeIncompleteServiceUUIDs32:    "IncompleteServiceUUIDs32",
	TypeCompleteServiceUUIDs32:      "CompleteServiceUUIDs32",
	TypeIncompleteServiceUUIDs128:   "IncompleteServiceUUIDs128",
	TypeCompleteServiceUUIDs128:     "CompleteServiceUUIDs128",
	TypeShortLocalName:              "ShortLocalName",
	TypeCompleteLocalName:           "CompleteLocalName",
	TypeTxPowerLevel:                "TxPowerLevel",
	TypeClassOfDevice:               "ClassOfDevice",
	TypePeripheralConnIntervalRange: "PeripheralConnIntervalRange",
	TypeServiceSolicitationUUIDs16:  "ServiceSolicitationUUIDs16",
	TypeServiceSolicitationUUIDs128: "ServiceSolicitationUUIDs128",
	TypeServiceData16:               "ServiceData16",
	TypePublicTargetAddress:         "PublicTargetAddress",
	TypeRandomTargetAddress:         "RandomTargetAddress",
	TypeAppearance:                  "Appearance",
	TypeAdvertisingInterval:         "AdvertisingInterval",
	TypeLEDeviceAddress:             "LEDeviceAddress",
	TypeLERole:                      "LERole",
	TypeServiceSolicitationUUIDs32:  "ServiceSolicitationUUIDs32",
	TypeServiceData32:               "ServiceData32",
	TypeServiceData128:              "ServiceData128",
	TypeURI:                         "URI",
	TypeManufacturerData:            "ManufacturerData",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("0x%02x", uint8(t))
}

// FlagsValue is the payload of a TypeFlags element.
type FlagsValue uint8

const (
	FlagsLELimitedDiscoverableMode FlagsValue = (1 << 0)
	FlagsLEGeneralDiscoverableMode FlagsValue = (1 << 1)
	FlagsBREDRNotSupported         FlagsValue = (1 << 2)
	FlagsSimultaneousLEAndBREDR    FlagsValue = (1 << 3)
)
