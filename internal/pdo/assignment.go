package pdo

import "context"

// PDO assignment sub-indices (spec.md §4.1/§6).
const (
	RxAssignmentIndex uint16 = 0x1C12
	TxAssignmentIndex uint16 = 0x1C13
)

// SdoWriter is the mailbox write primitive a slave's CoE configuration is
// built on (spec.md §4.1 "glossary: SDO write").
type SdoWriter interface {
	SdoWrite(ctx context.Context, index uint16, subindex uint8, value any) error
}

// WriteAssignment configures one PDO assignment list (0x1C12 for RX /
// 0x1C13 for TX): zero the count, write each populated object's CoE
// index in order, then write the final count. Mirrors the sequence in
// ethercat-hal/src/devices/el3001.rs's write_config.
func WriteAssignment(ctx context.Context, w SdoWriter, assignmentIndex uint16, objectIndices []uint16) error {
	if err := w.SdoWrite(ctx, assignmentIndex, 0x00, uint8(0)); err != nil {
		return err
	}
	for i, idx := range objectIndices {
		if err := w.SdoWrite(ctx, assignmentIndex, uint8(i+1), idx); err != nil {
			return err
		}
	}
	return w.SdoWrite(ctx, assignmentIndex, 0x00, uint8(len(objectIndices)))
}
