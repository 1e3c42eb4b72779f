package device

import (
	"context"
	"time"

	"github.com/lineflow/linectl/internal/pdo"
)

// TempIn is an EL3204-style 4-channel RTD/thermocouple input terminal.
type TempIn struct {
	Channels [4]pdo.TemperatureChannel
	inputTS  time.Time
}

var TempInCatalogue = CatalogueEntry{
	Name:       "EL3204",
	Identities: []Identity{{VendorID: 0x00000002, ProductID: 0x0c843052}},
}

func (t *TempIn) InputLen() int  { return len(t.Channels) * pdo.TemperatureChannel{}.BitLen() }
func (t *TempIn) OutputLen() int { return 0 }

func (t *TempIn) Input(bits []byte) {
	r := pdo.NewBitReader(bits)
	for i := range t.Channels {
		t.Channels[i].Decode(r)
	}
}

func (t *TempIn) Output(bits []byte) {}

func (t *TempIn) WriteConfig(ctx context.Context, w pdo.SdoWriter) error { return nil }

func (t *TempIn) Ts(inputTS, outputTS time.Time) { t.inputTS = inputTS }

// DegC returns a channel's current reading in degrees Celsius from its
// raw 0.1 degC counts.
func (t *TempIn) DegC(i int) float64 { return float64(t.Channels[i].Value) / 10.0 }

// Error reports whether a channel currently flags an error (wire break,
// over/under-range).
func (t *TempIn) Error(i int) bool {
	c := t.Channels[i]
	return c.Error || c.Underrange || c.Overrange
}
