package ethercat

import (
	"net"

	"github.com/lineflow/linectl/internal/ctlerr"
)

func interfaceHardwareAddr(name string) ([]byte, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.FatalConfig, "ethercat.interfaceHardwareAddr", err)
	}
	return []byte(iface.HardwareAddr), nil
}
