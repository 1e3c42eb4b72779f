// Package machine implements the machine-binding layer of spec.md §4.5:
// the identity types a slave's SII EEPROM block resolves to, a registry
// of live machines with weak back-reference support, and the boot
// sequence that turns a discovered EtherCAT group into running machine
// instances. Grounded on the teacher's registry/builder pattern
// (services/hal/internal/core/registry.go's map-of-constructors) and on
// spec.md §3/§9's description of the original's machine-connection
// graph.
package machine

import "github.com/lineflow/linectl/internal/ethercat"

// MachineIdentification names a machine type: a vendor plus a
// vendor-scoped machine-type code (spec.md §3).
type MachineIdentification struct {
	VendorID    uint16
	MachineType uint16
}

// MachineIdentificationUnique additionally carries the serial number
// that distinguishes one physical instance of a machine type from
// another (spec.md §3). This is the key the Manager registry and
// cross-machine weak references are keyed by.
type MachineIdentificationUnique struct {
	MachineIdentification
	SerialNumber uint16
}

// DeviceMachineIdentification is a single slave's claim to belong to a
// machine instance in a particular role (spec.md §4.5 step 3/4).
type DeviceMachineIdentification struct {
	MachineIdentificationUnique
	Role uint16
}

// FromSlaveMDI converts the raw SII EEPROM block read off the bus into
// a DeviceMachineIdentification. The EEPROM carries each field as a
// 32-bit word pair, but every vendor/machine-type/serial/role value
// this fleet actually assigns fits in 16 bits, so the conversion
// narrows. The zero block converts to the zero value; callers must
// check SlaveMDI.IsZero themselves to detect an unidentified slave
// (spec.md §4.5 step 3).
func FromSlaveMDI(mdi ethercat.SlaveMDI) DeviceMachineIdentification {
	return DeviceMachineIdentification{
		MachineIdentificationUnique: MachineIdentificationUnique{
			MachineIdentification: MachineIdentification{
				VendorID:    uint16(mdi.VendorID),
				MachineType: uint16(mdi.MachineType),
			},
			SerialNumber: uint16(mdi.SerialNumber),
		},
		Role: uint16(mdi.Role),
	}
}
