package device

import (
	"context"
	"time"

	"github.com/lineflow/linectl/internal/pdo"
)

// BusCoupler is the EK1100 bus coupler: it carries no process data of its
// own, but terminates the E-bus of a segment and establishes the LRD/LWR
// windows from which the rest of the segment's devices read/write their
// slices.
type BusCoupler struct {
	Identity Identity
}

var BusCouplerCatalogue = CatalogueEntry{
	Name:       "EK1100",
	Identities: []Identity{{VendorID: 0x00000002, ProductID: 0x044c2c52}},
}

func (*BusCoupler) InputLen() int                                       { return 0 }
func (*BusCoupler) OutputLen() int                                      { return 0 }
func (*BusCoupler) Input(bits []byte)                                   {}
func (*BusCoupler) Output(bits []byte)                                  {}
func (*BusCoupler) Ts(inputTS, outputTS time.Time)                      {}
func (*BusCoupler) WriteConfig(ctx context.Context, w pdo.SdoWriter) error { return nil }
