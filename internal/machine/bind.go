package machine

import (
	"github.com/lineflow/linectl/internal/ctlerr"
	"github.com/lineflow/linectl/internal/device"
	"github.com/lineflow/linectl/internal/ethercat"
)

// Builder constructs a machine instance from the devices discovered for
// one machine identity, keyed by role. The constructor is responsible
// for validating each device's identity tuple against its accepted
// list, downcasting to the expected device kind, writing its CoE
// configuration, and wrapping it in a role-appropriate capability facade
// (spec.md §4.5 step 5) — Bind only handles slave-to-machine grouping.
type Builder func(id MachineIdentificationUnique, roleDevices map[uint16]device.Device) (Machine, error)

// Catalogue maps a machine type to the constructor that builds it.
type Catalogue map[MachineIdentification]Builder

// Bind implements steps 3-5 of spec.md §4.5's boot sequence: group
// identified slaves by MachineIdentificationUnique, validate there are
// no duplicate roles within a group, and instantiate + register the
// corresponding machine for every group. A group whose machine type has
// no catalogue entry fails Bind with ctlerr.FatalConfig.
//
// slaveDevices maps a slave's bus position (ethercat.SlaveHandle.Position)
// to the device driver already bound to it; group.Slaves supplies each
// position's MDI block. Machines are returned in the order their groups
// were first seen in group.Slaves, which Bind's caller uses as the cycle
// engine's machine registration order (spec.md §4.4 step 5).
func Bind(group *ethercat.Group, slaveDevices map[int]device.Device, catalogue Catalogue, mgr *Manager) ([]Machine, error) {
	type pending struct {
		id    MachineIdentificationUnique
		roles map[uint16]device.Device
		order int
	}

	groups := make(map[MachineIdentificationUnique]*pending)
	var orderedIDs []MachineIdentificationUnique

	for _, slave := range group.Slaves {
		if slave.MDI.IsZero() {
			continue // unidentified slave, spec.md §4.5 step 3
		}
		dmi := FromSlaveMDI(slave.MDI)

		p, ok := groups[dmi.MachineIdentificationUnique]
		if !ok {
			p = &pending{id: dmi.MachineIdentificationUnique, roles: map[uint16]device.Device{}}
			groups[dmi.MachineIdentificationUnique] = p
			orderedIDs = append(orderedIDs, dmi.MachineIdentificationUnique)
		}
		if _, dup := p.roles[dmi.Role]; dup {
			return nil, ctlerr.New(ctlerr.FatalConfig, "machine.Bind", "duplicate role within one machine group")
		}
		p.roles[dmi.Role] = slaveDevices[slave.Position]
	}

	machines := make([]Machine, 0, len(orderedIDs))
	for _, id := range orderedIDs {
		p := groups[id]
		build, ok := catalogue[p.id.MachineIdentification]
		if !ok {
			return nil, ctlerr.New(ctlerr.FatalConfig, "machine.Bind", "no machine builder registered for this vendor/machine-type pair")
		}
		mach, err := build(p.id, p.roles)
		if err != nil {
			return nil, err
		}
		if err := mgr.Register(mach); err != nil {
			return nil, err
		}
		machines = append(machines, mach)
	}

	return machines, nil
}
