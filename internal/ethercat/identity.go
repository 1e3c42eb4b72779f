// Package ethercat implements the bus-facing half of spec.md §4.5: slave
// identity discovery, the SII EEPROM manufacturer-defined identification
// words, CoE mailbox SDO writes, PDO assignment wiring, and the
// interface-discovery/boot sequence that brings a bus from absent
// network link to a running OP-state group. Grounded on
// control-core/src/ethercat/interface_discovery.rs for the discovery
// shape (enumerate, filter, probe each candidate on its own recovered
// goroutine, take the first success) translated from Rust's
// thread::Builder+catch_unwind into Go's goroutine+recover idiom.
package ethercat

import "github.com/lineflow/linectl/internal/device"

// Identity is an alias for the device package's slave identity tuple —
// the catalogue match and the EtherCAT discovery layer describe the same
// concept and should not diverge.
type Identity = device.Identity

// SlaveMDI is the raw manufacturer-defined identification block read
// from a slave's SII EEPROM at word offsets 0x28-0x2F (spec.md §6): four
// 32-bit fields, each spanning two consecutive 16-bit words low-word
// first, in vendor/serial/machine/role order. All zero means the slave
// carries no machine-identification data and is "unidentified" per
// spec.md §4.5 step 3.
type SlaveMDI struct {
	VendorID     uint32
	SerialNumber uint32
	MachineType  uint32
	Role         uint32
}

// IsZero reports whether every field of the block is zero, the
// unidentified-slave case.
func (m SlaveMDI) IsZero() bool {
	return m.VendorID == 0 && m.MachineType == 0 && m.SerialNumber == 0 && m.Role == 0
}
