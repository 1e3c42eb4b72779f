// Package models holds the concrete machine bindings (spec.md §4.5/§4.6
// supplemented by original_source/machines/src/*): winder2, puller1,
// extruder1, buffertower1, aquapath1. Each subpackage implements
// machine.Machine and exposes a Catalogue entry for internal/machine.Bind.
package models

import "github.com/lineflow/linectl/internal/machine"

// VendorQitech is this line's equipment vendor ID, shared by every
// machine model (original_source/machines/src/lib.rs's VENDOR_QITECH).
const VendorQitech uint16 = 1

// Machine-type codes, one per model (original_source/machines/src's
// MACHINE_WINDER2_V1/MACHINE_PULLER1_V1/etc. naming convention).
const (
	MachineTypeWinder2       uint16 = 1
	MachineTypePuller1       uint16 = 2
	MachineTypeExtruder1     uint16 = 3
	MachineTypeBufferTower1  uint16 = 4
	MachineTypeAquapath1     uint16 = 5
)

// Identification builds the MachineIdentification key a Catalogue is
// registered under for one of this package's models.
func Identification(machineType uint16) machine.MachineIdentification {
	return machine.MachineIdentification{VendorID: VendorQitech, MachineType: machineType}
}
