package serial

import (
	"context"
	"sync"
	"time"
)

// PortLister enumerates currently-present serial device paths (e.g. a
// glob over /dev/ttyUSB* / /dev/ttyACM*).
type PortLister func() ([]string, error)

// Dispatch starts a worker for a newly-discovered port and returns a
// stop function to tear it down when the port disappears or the
// scanner is cancelled.
type Dispatch func(ctx context.Context, portName string) (stop func(), err error)

// HotplugScanner polls List on Interval, starting a worker via Dispatch
// for each newly-seen port and stopping the worker for any port that
// disappears — spec.md §4.9 "hot-plug port scan".
type HotplugScanner struct {
	List     PortLister
	Dispatch Dispatch
	Interval time.Duration

	mu    sync.Mutex
	known map[string]func()
}

// NewHotplugScanner constructs a scanner with the given poll interval
// (defaulting to 2s if zero or negative).
func NewHotplugScanner(list PortLister, dispatch Dispatch, interval time.Duration) *HotplugScanner {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &HotplugScanner{List: list, Dispatch: dispatch, Interval: interval, known: make(map[string]func())}
}

// Run blocks, polling until ctx is cancelled, at which point every
// currently-running worker is stopped before returning.
func (s *HotplugScanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			s.stopAll()
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *HotplugScanner) poll(ctx context.Context) {
	ports, err := s.List()
	if err != nil {
		return
	}
	seen := make(map[string]bool, len(ports))
	for _, p := range ports {
		seen[p] = true
		s.ensureStarted(ctx, p)
	}
	s.stopMissing(seen)
}

func (s *HotplugScanner) ensureStarted(ctx context.Context, port string) {
	s.mu.Lock()
	_, running := s.known[port]
	s.mu.Unlock()
	if running {
		return
	}

	stop, err := s.Dispatch(ctx, port)
	if err != nil || stop == nil {
		return
	}

	s.mu.Lock()
	s.known[port] = stop
	s.mu.Unlock()
}

func (s *HotplugScanner) stopMissing(seen map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for port, stop := range s.known {
		if !seen[port] {
			stop()
			delete(s.known, port)
		}
	}
}

func (s *HotplugScanner) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for port, stop := range s.known {
		stop()
		delete(s.known, port)
	}
}

// KnownPorts returns a snapshot of the ports currently dispatched.
func (s *HotplugScanner) KnownPorts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ports := make([]string, 0, len(s.known))
	for p := range s.known {
		ports = append(ports, p)
	}
	return ports
}
