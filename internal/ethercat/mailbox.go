package ethercat

import (
	"context"
	"encoding/binary"

	"github.com/lineflow/linectl/internal/ctlerr"
)

// CoE mailbox header constants for an expedited SDO download request
// (ETG.1000.6, the subset this codebase uses: 1/2/4-byte values only).
const (
	coeServiceSDORequest = 0x02
	coeSDODownload       = 0x01
)

// MailboxTransport sends one CoE mailbox request and returns the
// slave's response frame.
type MailboxTransport interface {
	SendReceive(ctx context.Context, request []byte) (response []byte, err error)
}

// CoEClient implements pdo.SdoWriter over a mailbox transport,
// encoding expedited SDO download requests (spec.md §4.1 "glossary: SDO
// write").
type CoEClient struct {
	Transport MailboxTransport
}

// SdoWrite encodes and sends an expedited CoE SDO download. value must
// be a uint8, uint16, or uint32 (the only expedited payload widths this
// codebase's PDO assignment and configuration paths ever need).
func (c *CoEClient) SdoWrite(ctx context.Context, index uint16, subindex uint8, value any) error {
	payload, size, err := encodeExpeditedValue(value)
	if err != nil {
		return err
	}

	req := make([]byte, 16)
	binary.LittleEndian.PutUint16(req[0:2], 10) // mailbox data length
	req[6] = coeServiceSDORequest << 4
	req[8] = coeSDODownload<<4 | 0x01<<1 /* expedited */ | byte(4-size)<<2
	binary.LittleEndian.PutUint16(req[9:11], index)
	req[11] = subindex
	copy(req[12:16], payload)

	resp, err := c.Transport.SendReceive(ctx, req)
	if err != nil {
		return ctlerr.Wrap(ctlerr.TransientBusError, "ethercat.SdoWrite", err)
	}
	if len(resp) >= 9 && resp[6]>>4 == 0x04 { // SDO abort
		return ctlerr.New(ctlerr.TransientBusError, "ethercat.SdoWrite", "slave returned SDO abort")
	}
	return nil
}

func encodeExpeditedValue(value any) ([]byte, int, error) {
	buf := make([]byte, 4)
	switch v := value.(type) {
	case uint8:
		buf[0] = v
		return buf, 1, nil
	case uint16:
		binary.LittleEndian.PutUint16(buf, v)
		return buf, 2, nil
	case uint32:
		binary.LittleEndian.PutUint32(buf, v)
		return buf, 4, nil
	default:
		return nil, 0, ctlerr.New(ctlerr.FatalConfig, "ethercat.SdoWrite", "unsupported SDO value type")
	}
}
