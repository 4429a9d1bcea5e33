package ad

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// NewElement wraps data as an element of type t with its length filled in.
func NewElement(t Type, data []byte) Element {
	if data == nil {
		data = []byte{}
	}
	return Element{Type: t, Length: len(data), Data: data}
}

func Flags(f FlagsValue) Element {
	return NewElement(TypeFlags, []byte{byte(f)})
}

func CompleteLocalName(name string) Element {
	return NewElement(TypeCompleteLocalName, []byte(name))
}

func ShortLocalName(name string) Element {
	return NewElement(TypeShortLocalName, []byte(name))
}

// TxPowerLevel is the radiated power in dBm.
func TxPowerLevel(dbm int8) Element {
	return NewElement(TypeTxPowerLevel, []byte{byte(dbm)})
}

// Appearance is defined in the Assigned Numbers document, Section 2.6.
func Appearance(v uint16) Element {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return NewElement(TypeAppearance, b)
}

// ManufacturerData prefixes data with the little-endian company identifier.
func ManufacturerData(companyID uint16, data []byte) Element {
	b := make([]byte, 2+len(data))
	binary.LittleEndian.PutUint16(b, companyID)
	copy(b[2:], data)
	return NewElement(TypeManufacturerData, b)
}

func CompleteServiceUUIDs16(uuids ...uint16) Element {
	b := make([]byte, 2*len(uuids))
	for i, u := range uuids {
		binary.LittleEndian.PutUint16(b[2*i:], u)
	}
	return NewElement(TypeCompleteServiceUUIDs16, b)
}

// CompleteServiceUUIDs128 lists 128-bit service UUIDs. AD structures carry
// UUIDs little-endian, so each one is byte-reversed from its RFC 4122 form.
func CompleteServiceUUIDs128(uuids ...uuid.UUID) Element {
	b := make([]byte, 0, 16*len(uuids))
	for _, u := range uuids {
		for i := len(u) - 1; i >= 0; i-- {
			b = append(b, u[i])
		}
	}
	return NewElement(TypeCompleteServiceUUIDs128, b)
}

func ServiceData16(serviceUUID uint16, data []byte) Element {
	b := make([]byte, 2+len(data))
	binary.LittleEndian.PutUint16(b, serviceUUID)
	copy(b[2:], data)
	return NewElement(TypeServiceData16, b)
}
