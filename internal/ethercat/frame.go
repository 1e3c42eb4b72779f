package ethercat

import (
	"context"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/lineflow/linectl/internal/ctlerr"
)

// EtherType is the reserved Ethernet type for raw EtherCAT frames
// (spec.md §4.1 glossary).
const EtherType = 0x88A4

var broadcastMAC = []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// RawBus sends and receives one raw Ethernet frame per cycle carrying
// the EtherCAT datagram set, built on gopacket the way this codebase's
// other time-critical raw-packet concerns (the cycle-time histogram's
// sibling PTP-style workloads elsewhere in the corpus) are built: open a
// live capture handle bound to one interface, serialize/deserialize
// through gopacket's layer model rather than hand-rolled byte slicing.
type RawBus struct {
	handle *pcap.Handle
	srcMAC []byte
}

// OpenRawBus opens a live packet capture handle on iface for EtherCAT
// traffic. snaplen should comfortably exceed the largest single-frame
// PDU budget configured for the bus.
func OpenRawBus(iface string, snaplen int32, readTimeout time.Duration) (*RawBus, error) {
	handle, err := pcap.OpenLive(iface, snaplen, true, readTimeout)
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.FatalConfig, "ethercat.OpenRawBus", err)
	}
	netIface, err := interfaceHardwareAddr(iface)
	if err != nil {
		handle.Close()
		return nil, err
	}
	return &RawBus{handle: handle, srcMAC: netIface}, nil
}

// TxRx serializes datagrams into one Ethernet frame, writes it, and
// reads back the slave chain's reply. This is the only blocking I/O
// point in a cycle (spec.md §4.4 step 2).
func (b *RawBus) TxRx(ctx context.Context, datagrams []byte) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       b.srcMAC,
		DstMAC:       broadcastMAC,
		EthernetType: layers.EthernetType(EtherType),
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, gopacket.Payload(datagrams)); err != nil {
		return nil, ctlerr.Wrap(ctlerr.TransientBusError, "ethercat.TxRx", err)
	}

	if err := b.handle.WritePacketData(buf.Bytes()); err != nil {
		return nil, ctlerr.Wrap(ctlerr.TransientBusError, "ethercat.TxRx", err)
	}

	data, _, err := b.handle.ReadPacketData()
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.TransientBusError, "ethercat.TxRx", err)
	}

	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)
	appLayer := packet.ApplicationLayer()
	if appLayer == nil {
		return nil, ctlerr.New(ctlerr.TransientBusError, "ethercat.TxRx", "reply frame carried no EtherCAT payload")
	}
	return appLayer.Payload(), nil
}

// Close releases the underlying capture handle.
func (b *RawBus) Close() { b.handle.Close() }
