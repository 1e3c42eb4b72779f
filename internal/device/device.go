// Package device implements the universal per-slave device contract of
// spec.md §4.2: a closed set of concrete terminal drivers, each
// implementing Device plus whichever capability interfaces its hardware
// supports. This generalizes the teacher's registry/builder pattern
// (services/hal/internal/core/types.go's Device interface) from a
// dynamically-typed capability set to EtherCAT's fixed, compile-time-known
// terminal catalogue (spec.md §9 "trait-object polymorphism -> tagged
// variants + capability traits").
package device

import (
	"context"
	"time"

	"github.com/lineflow/linectl/internal/ctlerr"
	"github.com/lineflow/linectl/internal/pdo"
)

// Device is the universal contract every slave driver implements
// (spec.md §4.2).
type Device interface {
	InputLen() int
	OutputLen() int
	Input(bits []byte)
	Output(bits []byte)
	WriteConfig(ctx context.Context, w pdo.SdoWriter) error
	Ts(inputTS, outputTS time.Time)
}

// InputChecked validates the bit-slice length before decoding, returning
// ctlerr.FatalDeviceShape on mismatch (spec.md §4.2 errors).
func InputChecked(d Device, bits []byte) error {
	want := pdo.ByteLen(d.InputLen())
	if len(bits) != want {
		return ctlerr.New(ctlerr.FatalDeviceShape, "device.Input",
			"input length mismatch: got "+itoa(len(bits))+" bytes, want "+itoa(want))
	}
	d.Input(bits)
	return nil
}

// OutputChecked validates the bit-slice length before encoding, returning
// ctlerr.FatalDeviceShape on mismatch.
func OutputChecked(d Device, bits []byte) error {
	want := pdo.ByteLen(d.OutputLen())
	if len(bits) != want {
		return ctlerr.New(ctlerr.FatalDeviceShape, "device.Output",
			"output length mismatch: got "+itoa(len(bits))+" bytes, want "+itoa(want))
	}
	d.Output(bits)
	return nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// PDOPreset selects between a terminal's "compact" and "standard" PDO
// presentation. spec.md §9 leaves the correct default unspecified per
// installation — the binder must pass this explicitly (see DESIGN.md Open
// Question 1).
type PDOPreset int

const (
	PDOPresetStandard PDOPreset = iota
	PDOPresetCompact
)

// Identity is a slave's EtherCAT identity tuple (spec.md §3).
type Identity struct {
	VendorID  uint32
	ProductID uint32
	Revision  uint32
}

// Catalogue entries map accepted identity tuples to the driver
// constructor a machine binding should instantiate. Multiple accepted
// revisions per device type (spec.md §3).
type CatalogueEntry struct {
	Name      string
	Identities []Identity
}

func (e CatalogueEntry) Accepts(id Identity) bool {
	for _, want := range e.Identities {
		if want == id {
			return true
		}
	}
	return false
}
