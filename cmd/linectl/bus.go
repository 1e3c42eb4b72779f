package main

import (
	"context"

	"github.com/lineflow/linectl/internal/cycle"
	"github.com/lineflow/linectl/internal/ethercat"
)

// busAdapter bridges ethercat.RawBus's "here's the datagram, here's the
// reply" TxRx to cycle.Bus's "mutate the slots you were built with"
// shape: it concatenates every slot's Output buffer into one outbound
// frame and demultiplexes the reply back into each slot's Input buffer,
// in the same position order the slots were laid out in.
type busAdapter struct {
	raw   *ethercat.RawBus
	slots []*cycle.Slot
}

func newBusAdapter(raw *ethercat.RawBus, slots []*cycle.Slot) *busAdapter {
	return &busAdapter{raw: raw, slots: slots}
}

func (a *busAdapter) TxRx(ctx context.Context) error {
	out := make([]byte, 0, a.totalLen(func(s *cycle.Slot) []byte { return s.Output }))
	for _, s := range a.slots {
		out = append(out, s.Output...)
	}

	in, err := a.raw.TxRx(ctx, out)
	if err != nil {
		return err
	}

	offset := 0
	for _, s := range a.slots {
		n := len(s.Input)
		if offset+n > len(in) {
			break // short reply; leave remaining slots holding their last-known input
		}
		copy(s.Input, in[offset:offset+n])
		offset += n
	}
	return nil
}

func (a *busAdapter) Close() { a.raw.Close() }

func (a *busAdapter) totalLen(pick func(*cycle.Slot) []byte) int {
	n := 0
	for _, s := range a.slots {
		n += len(pick(s))
	}
	return n
}
