package device

import (
	"context"
	"time"

	"github.com/lineflow/linectl/internal/pdo"
)

// DigitalIn is an EL1008-style 8-channel digital input terminal: one
// DigitalChannel object per channel, packed contiguously.
type DigitalIn struct {
	Channels [8]pdo.DigitalChannel
	inputTS  time.Time
}

var DigitalInCatalogue = CatalogueEntry{
	Name:       "EL1008",
	Identities: []Identity{{VendorID: 0x00000002, ProductID: 0x03f03052}},
}

func (d *DigitalIn) InputLen() int  { return 8 }
func (d *DigitalIn) OutputLen() int { return 0 }

func (d *DigitalIn) Input(bits []byte) {
	r := pdo.NewBitReader(bits)
	for i := range d.Channels {
		d.Channels[i].Decode(r)
	}
}

func (d *DigitalIn) Output(bits []byte) {}

func (d *DigitalIn) WriteConfig(ctx context.Context, w pdo.SdoWriter) error { return nil }

func (d *DigitalIn) Ts(inputTS, outputTS time.Time) { d.inputTS = inputTS }

// Channel reads a single input channel's current boolean value.
func (d *DigitalIn) Channel(i int) bool { return d.Channels[i].Value }

// DigitalOut is an EL2002/EL2008-style digital output terminal.
type DigitalOut struct {
	Channels []pdo.DigitalChannel
	outputTS time.Time
}

var DigitalOut2Catalogue = CatalogueEntry{
	Name:       "EL2002",
	Identities: []Identity{{VendorID: 0x00000002, ProductID: 0x07d23052}},
}

var DigitalOut8Catalogue = CatalogueEntry{
	Name:       "EL2008",
	Identities: []Identity{{VendorID: 0x00000002, ProductID: 0x07d83052}},
}

func NewDigitalOut(channels int) *DigitalOut {
	return &DigitalOut{Channels: make([]pdo.DigitalChannel, channels)}
}

func (d *DigitalOut) InputLen() int  { return 0 }
func (d *DigitalOut) OutputLen() int { return len(d.Channels) }

func (d *DigitalOut) Input(bits []byte) {}

func (d *DigitalOut) Output(bits []byte) {
	w := pdo.NewBitWriter(bits)
	for i := range d.Channels {
		d.Channels[i].Encode(w)
	}
}

func (d *DigitalOut) WriteConfig(ctx context.Context, w pdo.SdoWriter) error { return nil }

func (d *DigitalOut) Ts(inputTS, outputTS time.Time) { d.outputTS = outputTS }

// SetChannel sets a single output channel's commanded boolean value.
func (d *DigitalOut) SetChannel(i int, v bool) { d.Channels[i].Value = v }
