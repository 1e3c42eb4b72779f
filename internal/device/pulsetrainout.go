package device

import (
	"context"
	"time"

	"github.com/lineflow/linectl/internal/pdo"
)

// PulseTrainOut is an EL2521/EL2522-style single-axis pulse-train output
// terminal: a PtoControl RX object paired with a PtoStatus TX mirror.
type PulseTrainOut struct {
	Control  pdo.PtoControl
	Status   pdo.PtoStatus
	inputTS  time.Time
	outputTS time.Time
}

var (
	PulseTrainOut1ChCatalogue = CatalogueEntry{
		Name:       "EL2521",
		Identities: []Identity{{VendorID: 0x00000002, ProductID: 0x09d93052}},
	}
	PulseTrainOut2ChCatalogue = CatalogueEntry{
		Name:       "EL2522",
		Identities: []Identity{{VendorID: 0x00000002, ProductID: 0x09da3052}},
	}
)

func (p *PulseTrainOut) InputLen() int  { return p.Status.BitLen() }
func (p *PulseTrainOut) OutputLen() int { return p.Control.BitLen() }

func (p *PulseTrainOut) Input(bits []byte) {
	p.Status.Decode(pdo.NewBitReader(bits))
}

func (p *PulseTrainOut) Output(bits []byte) {
	p.Control.Encode(pdo.NewBitWriter(bits))
}

func (p *PulseTrainOut) WriteConfig(ctx context.Context, w pdo.SdoWriter) error {
	if err := pdo.WriteAssignment(ctx, w, pdo.RxAssignmentIndex, []uint16{p.Control.CoEIndex()}); err != nil {
		return err
	}
	return pdo.WriteAssignment(ctx, w, pdo.TxAssignmentIndex, []uint16{p.Status.CoEIndex()})
}

func (p *PulseTrainOut) Ts(inputTS, outputTS time.Time) {
	p.inputTS = inputTS
	p.outputTS = outputTS
}

// SetFrequency commands a signed target frequency, in the terminal's raw
// counts, and sets the frequency-select bit; the go-counter bit is left
// unchanged.
func (p *PulseTrainOut) SetFrequency(v int16) {
	p.Control.FrequencyValue = v
	p.Control.FrequencySelect = true
}
