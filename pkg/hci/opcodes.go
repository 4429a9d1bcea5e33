package hci

import "fmt"

// https://software-dl.ti.com/simplelink/esd/simplelink_cc13x2_sdk/1.60.00.29_new/exports/docs/ble5stack/vendor_specific_guide/BLE_Vendor_Specific_HCI_Guide/hci_interface.html

type PacketType uint8

const (
	PacketTypeCommand         PacketType = 0x01
	PacketTypeACLData         PacketType = 0x02
	PacketTypeSynchronousData PacketType = 0x03
	PacketTypeEvent           PacketType = 0x04
	PacketTypeExtendedCommand PacketType = 0x09
)

type Opcode uint16

const (
	OpcodeReset                              Opcode = 0x0C03
	OpcodeSetEventMask                       Opcode = 0x0C01
	OpcodeReadBDAddr                         Opcode = 0x1009
	OpcodeLESetEventMask                     Opcode = 0x2001
	OpcodeLESetAdvertisingParameters         Opcode = 0x2006
	OpcodeLESetAdvertisingData               Opcode = 0x2008
	OpcodeLESetScanResponseData              Opcode = 0x2009
	OpcodeLESetAdvertisingEnable             Opcode = 0x200A
	OpcodeLESetScanParameters                Opcode = 0x200B
	OpcodeLESetScanEnable                    Opcode = 0x200C
	OpcodeLESetExtendedAdvertisingParameters Opcode = 0x2036
	OpcodeLESetExtendedAdvertisingData       Opcode = 0x2037
	OpcodeLESetExtendedScanResponseData      Opcode = 0x2038
	OpcodeLESetExtendedAdvertisingEnable     Opcode = 0x2039
	OpcodeLEReadMaximumAdvertisingDataLength Opcode = 0x203A
	OpcodeLESetPeriodicAdvertisingData       Opcode = 0x203F
	OpcodeLESetExtendedScanParameters        Opcode = 0x2041
	OpcodeLESetExtendedScanEnable            Opcode = 0x2042
)

var opcodeNames = map[Opcode]string{
	OpcodeReset:                              "Reset",
	OpcodeSetEventMask:                       "SetEventMask",
	OpcodeReadBDAddr:                         "ReadBDAddr",
	OpcodeLESetEventMask:                     "LESetEventMask",
	OpcodeLESetAdvertisingParameters:         "LESetAdvertisingParameters",
	OpcodeLESetAdvertisingData:               "LESetAdvertisingData",
	OpcodeLESetScanResponseData:              "LESetScanResponseData",
	OpcodeLESetAdvertisingEnable:             "LESetAdvertisingEnable",
	OpcodeLESetScanParameters:                "LESetScanParameters",
	OpcodeLESetScanEnable:                    "LESetScanEnable",
	OpcodeLESetExtendedAdvertisingParameters: "LESetExtendedAdvertisingParameters",
	OpcodeLESetExtendedAdvertisingData:       "LESetExtendedAdvertisingData",
	OpcodeLESetExtendedAdvertisingEnable:     "LESetExtendedAdvertisingEnable",
	OpcodeLESetExtendedScanResponseData:      "LESetExtendedScanResponseData",
	OpcodeLESetPeriodicAdvertisingData:       "LESetPeriodicAdvertisingData",
	OpcodeLESetExtendedScanParameters:        "LESetExtendedScanParameters",
	OpcodeLESetExtendedScanEnable:            "LESetExtendedScanEnable",
	OpcodeLEReadMaximumAdvertisingDataLength: "LEReadMaximumAdvertisingDataLength",
}

func (o Opcode) String() string {
	if s, ok := opcodeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("0x%04x", uint16(o))
}

type EventCode uint8

const (
	EventCodeDisconnectionComplete                EventCode = 0x05
	EventCodeEncryptionChange                     EventCode = 0x08
	EventCodeReadRemoteVersionInformationComplete EventCode = 0x0C
	EventCodeCommandComplete                      EventCode = 0x0E
	EventCodeCommandStatus                        EventCode = 0x0F
	EventCodeHardwareError                        EventCode = 0x10
	EventCodeNumberOfCompletedPackets             EventCode = 0x13
	EventCodeDataBufferOverflow                   EventCode = 0x1A
	EventCodeEncryptionKeyRefreshComplete         EventCode = 0x30
	EventCodeAuthenticatedPayloadTimeoutExpired   EventCode = 0x57
	EventCodeLEMeta                               EventCode = 0x3E
)

type LEMetaSubeventCode uint8

const (
	LEMetaSubeventCodeConnectionComplete             LEMetaSubeventCode = 0x01
	LEMetaSubeventCodeAdvertisingReport              LEMetaSubeventCode = 0x02
	LEMetaSubeventCodeConnectionUpdate               LEMetaSubeventCode = 0x03
	LEMetaSubeventCodeReadRemoteUsedFeaturesComplete LEMetaSubeventCode = 0x04
	LEMetaSubeventCodeLongTermKeyRequest             LEMetaSubeventCode = 0x05
	LEMetaSubeventCodeReadLocalP256PublicKeyComplete LEMetaSubeventCode = 0x08
	LEMetaSubeventCodeGenerateDHKeyComplete          LEMetaSubeventCode = 0x09
	LEMetaSubeventCodeEnhancedConnectionComplete     LEMetaSubeventCode = 0x0A
	LEMetaSubeventCodePHYUpdateComplete              LEMetaSubeventCode = 0x0C
	LEMetaSubeventCodeExtendedAdvertisingReport      LEMetaSubeventCode = 0x0D
)
