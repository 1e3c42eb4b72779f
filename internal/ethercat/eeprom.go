package ethercat

import "context"

// SII EEPROM word offsets carrying the manufacturer-defined machine
// identification block (spec.md §6): four 32-bit fields, two words each.
const (
	mdiVendorWord  uint16 = 0x28
	mdiSerialWord  uint16 = 0x2A
	mdiMachineWord uint16 = 0x2C
	mdiRoleWord    uint16 = 0x2E
)

// EEPROM is the SII EEPROM word-level access a slave's mailbox exposes.
type EEPROM interface {
	ReadWord(ctx context.Context, wordOffset uint16) (uint16, error)
	WriteWord(ctx context.Context, wordOffset uint16, value uint16) error
}

// readDWord reads the 32-bit value stored at wordOffset/wordOffset+1,
// low word first.
func readDWord(ctx context.Context, e EEPROM, wordOffset uint16) (uint32, error) {
	lo, err := e.ReadWord(ctx, wordOffset)
	if err != nil {
		return 0, err
	}
	hi, err := e.ReadWord(ctx, wordOffset+1)
	if err != nil {
		return 0, err
	}
	return uint32(lo) | uint32(hi)<<16, nil
}

// writeDWord writes a 32-bit value across wordOffset/wordOffset+1, low
// word first.
func writeDWord(ctx context.Context, e EEPROM, wordOffset uint16, value uint32) error {
	if err := e.WriteWord(ctx, wordOffset, uint16(value)); err != nil {
		return err
	}
	return e.WriteWord(ctx, wordOffset+1, uint16(value>>16))
}

// ReadMDI reads the manufacturer-defined identification block from a
// slave's EEPROM (spec.md §4.5 step 3).
func ReadMDI(ctx context.Context, e EEPROM) (SlaveMDI, error) {
	var m SlaveMDI
	var err error
	if m.VendorID, err = readDWord(ctx, e, mdiVendorWord); err != nil {
		return SlaveMDI{}, err
	}
	if m.SerialNumber, err = readDWord(ctx, e, mdiSerialWord); err != nil {
		return SlaveMDI{}, err
	}
	if m.MachineType, err = readDWord(ctx, e, mdiMachineWord); err != nil {
		return SlaveMDI{}, err
	}
	if m.Role, err = readDWord(ctx, e, mdiRoleWord); err != nil {
		return SlaveMDI{}, err
	}
	return m, nil
}

// WriteMDI provisions a slave's EEPROM with a machine identification
// block, used by commissioning tooling rather than the cycle-time boot
// path.
func WriteMDI(ctx context.Context, e EEPROM, m SlaveMDI) error {
	if err := writeDWord(ctx, e, mdiVendorWord, m.VendorID); err != nil {
		return err
	}
	if err := writeDWord(ctx, e, mdiSerialWord, m.SerialNumber); err != nil {
		return err
	}
	if err := writeDWord(ctx, e, mdiMachineWord, m.MachineType); err != nil {
		return err
	}
	return writeDWord(ctx, e, mdiRoleWord, m.Role)
}
