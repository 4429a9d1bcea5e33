package hci

import "fmt"

type OwnAddressType uint8

const (
	OwnAddressTypePublicDeviceAddress         OwnAddressType = 0x00
	OwnAddressTypeRandomDeviceAddress         OwnAddressType = 0x01
	OwnAddressTypeControllerGeneratedOrPublic OwnAddressType = 0x02
	OwnAddressTypeControllerGeneratedOrRandom OwnAddressType = 0x03
)

type PeerAddressType uint8

const (
	PeerAddressTypePublicDeviceAddress PeerAddressType = 0x00
	PeerAddressTypeRandomDeviceAddress PeerAddressType = 0x01
)

// BDAddr is stored in controller (little-endian) byte order.
type BDAddr [6]byte

func (a BDAddr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", a[5], a[4], a[3], a[2], a[1], a[0])
}

// CommandError is returned when the controller completes a command with a
// non-zero status.
type CommandError struct {
	Opcode Opcode
	Status uint8
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("hci: %v failed with status 0x%02x", e.Opcode, e.Status)
}
