package ethercat

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/lineflow/linectl/internal/ctlerr"
	"github.com/lineflow/linectl/internal/logging"
)

// excludedPrefixes mirrors interface_discovery.rs's filter: tunnels and
// bridges are never EtherCAT-capable, and platform pseudo-interfaces
// would only ever fail the probe after wasting its timeout.
var excludedPrefixes = []string{"bridge", "utun", "awdl", "anpi", "llw", "docker", "veth"}

func eligible(iface net.Interface) bool {
	if iface.Flags&net.FlagLoopback != 0 {
		return false
	}
	if iface.Flags&net.FlagUp == 0 {
		return false
	}
	for _, prefix := range excludedPrefixes {
		if strings.HasPrefix(iface.Name, prefix) {
			return false
		}
	}
	return true
}

// ProbeFunc attempts a short init-single-group boot on the named
// interface and reports whether it succeeded.
type ProbeFunc func(ctx context.Context, iface string) error

// DiscoverInterface enumerates network interfaces, filters out
// loopback/tunnel/bridge interfaces, sorts the remainder by name, and
// probe-boots each in turn on its own goroutine (recovered from panics)
// until one succeeds (spec.md §4.5 step 1).
func DiscoverInterface(ctx context.Context, probe ProbeFunc, probeTimeout time.Duration) (string, error) {
	log := logging.For("ethercat.discovery")

	ifaces, err := net.Interfaces()
	if err != nil {
		return "", ctlerr.Wrap(ctlerr.FatalConfig, "ethercat.DiscoverInterface", err)
	}

	var candidates []string
	for _, iface := range ifaces {
		if eligible(iface) {
			candidates = append(candidates, iface.Name)
		}
	}
	sort.Strings(candidates)

	for _, name := range candidates {
		log.WithField("interface", name).Debug("probing interface")
		if probeOne(ctx, name, probe, probeTimeout) {
			log.WithField("interface", name).Info("found working EtherCAT interface")
			return name, nil
		}
	}

	return "", ctlerr.New(ctlerr.FatalConfig, "ethercat.DiscoverInterface", "no suitable EtherCAT interface found")
}

// probeOne runs probe on a recovered goroutine so a panic deep in the
// probe boot (a malformed group response, a driver quirk) can't bring
// down discovery of the remaining candidates.
func probeOne(ctx context.Context, name string, probe ProbeFunc, timeout time.Duration) bool {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic during interface probe: %v", r)
			}
		}()
		done <- probe(ctx, name)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err == nil
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Group is the bus-wide state produced by a successful boot (spec.md
// §4.5 steps 2-7): the slaves discovered on the bus, each with its MDI
// identification (if any) and its propagation delay.
type Group struct {
	Interface string
	Slaves    []SlaveHandle
}

// SlaveHandle pairs a slave's bus position with its identity, MDI block,
// and DC propagation delay as reported by the working group.
type SlaveHandle struct {
	Position          int
	Identity          Identity
	MDI               SlaveMDI
	PropagationDelay  time.Duration
}

// InitSingleGroup retries initGroup until it succeeds, which
// spec.md §4.5 step 2 specifies for recovering from a transient
// working-counter mismatch during PRE-OP transition.
func InitSingleGroup(ctx context.Context, initGroup func(ctx context.Context) (*Group, error), retryDelay time.Duration, maxAttempts int) (*Group, error) {
	var lastErr error
	for attempt := 0; maxAttempts <= 0 || attempt < maxAttempts; attempt++ {
		group, err := initGroup(ctx)
		if err == nil {
			return group, nil
		}
		lastErr = err
		logging.For("ethercat.discovery").WithError(err).WithField("attempt", attempt+1).Warn("init_single_group failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, ctlerr.Wrap(ctlerr.TransientBusError, "ethercat.InitSingleGroup", lastErr)
}
