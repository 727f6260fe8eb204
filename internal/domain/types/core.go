package types

import "strconv"

// Address identifies a message recipient. It is opaque to the dispatch core;
// the server resolves it to a set of devices.
type Address string

// String returns the string form of the address.
func (a Address) String() string { return string(a) }

// DeviceID numbers one of a recipient's endpoints.
type DeviceID uint32

// PrimaryDeviceID is the recipient's first device. It is never pruned
// automatically when a per-device key fetch reports it unregistered.
const PrimaryDeviceID DeviceID = 1

// EncodedDevice returns the "addr.deviceId" form used to key session records.
func EncodedDevice(addr Address, id DeviceID) string {
	return string(addr) + "." + strconv.FormatUint(uint64(id), 10)
}
