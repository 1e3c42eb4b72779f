package device

import (
	"context"
	"time"

	"github.com/lineflow/linectl/internal/pdo"
)

// AnalogOut is an EL4002-style multi-channel analog output terminal.
type AnalogOut struct {
	Channels []pdo.AoStandard
	outputTS time.Time
}

var AnalogOut2ChCatalogue = CatalogueEntry{
	Name:       "EL4002",
	Identities: []Identity{{VendorID: 0x00000002, ProductID: 0x0fa23052}},
}

func NewAnalogOut(channels int) *AnalogOut {
	return &AnalogOut{Channels: make([]pdo.AoStandard, channels)}
}

func (a *AnalogOut) InputLen() int  { return 0 }
func (a *AnalogOut) OutputLen() int { return len(a.Channels) * pdo.AoStandard{}.BitLen() }

func (a *AnalogOut) Input(bits []byte) {}

func (a *AnalogOut) Output(bits []byte) {
	w := pdo.NewBitWriter(bits)
	for i := range a.Channels {
		a.Channels[i].Encode(w)
	}
}

func (a *AnalogOut) WriteConfig(ctx context.Context, w pdo.SdoWriter) error { return nil }

func (a *AnalogOut) Ts(inputTS, outputTS time.Time) { a.outputTS = outputTS }

// SetRaw sets a channel's commanded raw counts directly.
func (a *AnalogOut) SetRaw(i int, v int16) { a.Channels[i].Value = v }

// SetNormalized sets a channel from a [-1, 1] normalized command, scaled
// to the terminal's full int16 range.
func (a *AnalogOut) SetNormalized(i int, v float64) {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	a.Channels[i].Value = int16(v * 32767)
}
