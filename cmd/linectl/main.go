// Command linectl is a single EtherCAT bus controller process: it loads
// its environment config, brings up the bus, binds the slaves it finds
// to the machine models this repo knows about, and runs the hard
// real-time cycle loop until told to stop. Grounded on the teacher's
// root main.go boot shape (settle, bring a subsystem up in the
// background, wait for readiness, enter the main loop under a
// cancellable context), generalized from a TinyGo board's bus/hal pair
// to this process's config/events/cycle stack.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/lineflow/linectl/internal/config"
	"github.com/lineflow/linectl/internal/cycle"
	"github.com/lineflow/linectl/internal/device"
	"github.com/lineflow/linectl/internal/ethercat"
	"github.com/lineflow/linectl/internal/events"
	"github.com/lineflow/linectl/internal/logging"
	"github.com/lineflow/linectl/internal/machine"
	"github.com/lineflow/linectl/internal/models/aquapath1"
	"github.com/lineflow/linectl/internal/models/buffertower1"
	"github.com/lineflow/linectl/internal/models/extruder1"
	"github.com/lineflow/linectl/internal/models/puller1"
	"github.com/lineflow/linectl/internal/models/winder2"
	"github.com/lineflow/linectl/internal/pdo"
	"github.com/lineflow/linectl/internal/rtsetup"
	"github.com/lineflow/linectl/internal/serial"
)

const (
	probeTimeout    = 500 * time.Millisecond
	groupRetryDelay = time.Second
	groupMaxAttempt = 0 // retry forever, per spec.md §4.5 step 2
	metricsAddr     = ":9090"
	snaplen         = 2048
	readTimeout     = 10 * time.Millisecond
)

var catalogue = mergeCatalogues(
	winder2.Catalogue,
	puller1.Catalogue,
	extruder1.Catalogue,
	buffertower1.Catalogue,
	aquapath1.Catalogue,
)

func mergeCatalogues(cats ...machine.Catalogue) machine.Catalogue {
	out := make(machine.Catalogue)
	for _, c := range cats {
		for id, build := range c {
			out[id] = build
		}
	}
	return out
}

func main() {
	configPath := flag.String("config", "/etc/linectl/config.yaml", "path to the boot config YAML document")
	flag.Parse()

	log := logging.For("main")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := events.NewRegistry(cfg.MetricsQueueN)
	mainRoom := registry.Room(events.MainRoomID)
	if err := config.Publish(mainRoom, cfg, time.Now()); err != nil {
		log.WithError(err).Warn("failed to publish retained config event")
	}

	metrics := rtsetup.NewCycleMetrics()
	go serveMetrics(metrics, log)

	if cfg.RealTime.Enabled {
		applyRealTimeSetup(cfg, log)
	}

	mgr := machine.NewManager()

	bus, machines, ifaceName, err := bootBus(ctx, cfg, mgr, log)
	if err != nil {
		log.WithError(err).Fatal("failed to bring up the EtherCAT bus")
	}
	defer bus.Close()
	log.WithField("interface", ifaceName).WithField("machines", len(machines)).Info("bus up, entering cycle loop")

	announceMachines(registry, machines)

	go runSerialPorts(ctx, cfg, log)

	engine := cycle.NewEngine(bus, bus.slots, toCycleMachines(machines), metrics)
	sched := cycle.NewScheduler(1, 0.1, cfg.CyclePeriod)
	engine.Run(ctx, sched, time.Now)

	log.Info("shutting down")
}

// applyRealTimeSetup performs the boot-time SCHED_FIFO/mlockall/IRQ-pin
// sequence spec.md §5 reserves for the cycle thread. Failures are
// logged, not fatal: a development machine without CAP_SYS_NICE should
// still run, just without real-time guarantees.
func applyRealTimeSetup(cfg *config.Config, log *logrus.Entry) {
	if err := rtsetup.SetRealtimePriority(); err != nil {
		log.WithError(err).Warn("failed to set real-time scheduling priority")
	}
	if cfg.RealTime.LockMemory {
		if err := rtsetup.LockMemory(); err != nil {
			log.WithError(err).Warn("failed to lock process memory")
		}
	}
	if cfg.RealTime.PinInterface != "" {
		if err := rtsetup.PinIRQ(cfg.RealTime.PinInterface, cfg.RealTime.PinCPUList); err != nil {
			log.WithError(err).Warn("failed to pin interface IRQ")
		}
	}
}

func serveMetrics(metrics *rtsetup.CycleMetrics, log *logrus.Entry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(metricsAddr, mux); err != nil {
		log.WithError(err).Warn("metrics server stopped")
	}
}

// bootBus implements spec.md §4.5 steps 1-6: pick an interface, build the
// slave group (see buildGroup; no EtherCAT state transition is requested
// here), bind every identified slave to its machine, and lay out
// the process-image slots the cycle engine walks every cycle.
func bootBus(ctx context.Context, cfg *config.Config, mgr *machine.Manager, log *logrus.Entry) (*busAdapter, []machine.Machine, string, error) {
	ifaceName := cfg.Interface
	if cfg.Autodiscover {
		name, err := ethercat.DiscoverInterface(ctx, probeInterface, probeTimeout)
		if err != nil {
			return nil, nil, "", err
		}
		ifaceName = name
	}

	raw, err := ethercat.OpenRawBus(ifaceName, snaplen, readTimeout)
	if err != nil {
		return nil, nil, "", err
	}

	group, err := ethercat.InitSingleGroup(ctx, func(ctx context.Context) (*ethercat.Group, error) {
		return buildGroup(ctx, ifaceName)
	}, groupRetryDelay, groupMaxAttempt)
	if err != nil {
		raw.Close()
		return nil, nil, "", err
	}

	devices, slots := bindDevices(group)

	machines, err := machine.Bind(group, devices, catalogue, mgr)
	if err != nil {
		raw.Close()
		return nil, nil, "", err
	}

	return newBusAdapter(raw, slots), machines, ifaceName, nil
}

// probeInterface is the short-timeout discovery check spec.md §4.5 step
// 1 runs per candidate interface: open a raw capture and immediately
// close it, the same health check a full group boot would do first.
func probeInterface(ctx context.Context, iface string) error {
	bus, err := ethercat.OpenRawBus(iface, snaplen, readTimeout)
	if err != nil {
		return err
	}
	bus.Close()
	return nil
}

// buildGroup constructs the bus-wide slave group. This repo implements
// the frame, mailbox, and SII-EEPROM primitives a master uses
// (internal/ethercat's RawBus/CoEClient/ReadMDI) but not slave-chain
// auto-addressing and PDO-offset assignment themselves — that is a
// vendor master stack's job (SOEM, IgH) and no such stack appears
// anywhere in this repo's reference corpus. Wiring one in is the
// remaining integration step; until then the group comes up with no
// slaves, which Bind and the cycle engine both handle as the degenerate
// "nothing identified yet" case rather than failing.
func buildGroup(ctx context.Context, ifaceName string) (*ethercat.Group, error) {
	return &ethercat.Group{Interface: ifaceName, Slaves: nil}, nil
}

// bindDevices constructs one driver per identified slave from the
// default terminal catalogue and lays out its process-image slot.
// Unidentified slaves and identities this repo has no driver for are
// skipped; the engine simply never touches their bytes.
func bindDevices(group *ethercat.Group) (map[int]device.Device, []*cycle.Slot) {
	cat := device.DefaultCatalogue()
	devices := make(map[int]device.Device, len(group.Slaves))
	slots := make([]*cycle.Slot, 0, len(group.Slaves))

	for _, slave := range group.Slaves {
		construct, ok := cat[slave.Identity]
		if !ok {
			slots = append(slots, &cycle.Slot{})
			continue
		}
		d := construct(slave.Identity)
		devices[slave.Position] = d
		slots = append(slots, &cycle.Slot{
			Device: d,
			Input:  make([]byte, pdo.ByteLen(d.InputLen())),
			Output: make([]byte, pdo.ByteLen(d.OutputLen())),
		})
	}
	return devices, slots
}

func toCycleMachines(machines []machine.Machine) []cycle.Machine {
	out := make([]cycle.Machine, len(machines))
	for i, m := range machines {
		out[i] = m
	}
	return out
}

// announceMachines gives every bound machine its own event room, emits
// a one-time state snapshot so a client connecting right after boot
// sees which machines came up without needing a separate discovery call
// (spec.md §4.7's "default-state" replay semantics applied at the
// machine-registry level), and hands the same emitter to the machine
// itself so its own Act/Mutate calls can report live values and state
// on every subsequent cycle and mutation.
func announceMachines(registry *events.Registry, machines []machine.Machine) {
	for _, m := range machines {
		id := m.ID()
		room := registry.Room(events.MachineRoomID(id.VendorID, id.MachineType, id.SerialNumber))
		emitter := events.NewMachineEmitter(room)
		emitter.ForceState(struct {
			VendorID     uint16 `json:"vendorId"`
			MachineType  uint16 `json:"machineType"`
			SerialNumber uint16 `json:"serialNumber"`
		}{id.VendorID, id.MachineType, id.SerialNumber}, time.Now())

		if emitting, ok := m.(machine.EventEmitting); ok {
			emitting.SetEmitter(emitter)
		}
	}
}

// runSerialPorts scans the configured RS-232/RS-485 devices and keeps a
// worker running per port for as long as it stays plugged in (spec.md
// §4.9's hot-plug scan), started once per process rather than per cycle.
func runSerialPorts(ctx context.Context, cfg *config.Config, log *logrus.Entry) {
	if len(cfg.SerialPorts) == 0 {
		return
	}

	byPort := make(map[string]config.SerialPort, len(cfg.SerialPorts))
	for _, p := range cfg.SerialPorts {
		byPort[p.Port] = p
	}

	cache := serial.NewCache()

	list := func() ([]string, error) {
		var present []string
		for port := range byPort {
			if _, err := os.Stat(port); err == nil {
				present = append(present, port)
			}
		}
		return present, nil
	}

	dispatch := func(ctx context.Context, portName string) (func(), error) {
		p, ok := byPort[portName]
		if !ok {
			return nil, nil
		}
		workerCtx, cancel := context.WithCancel(ctx)
		go runSerialWorker(workerCtx, p, cache, log)
		return cancel, nil
	}

	scanner := serial.NewHotplugScanner(list, dispatch, 2*time.Second)
	scanner.Run(ctx)
}

func runSerialWorker(ctx context.Context, p config.SerialPort, cache *serial.Cache, log *logrus.Entry) {
	var err error
	switch p.Kind {
	case "modbus-rtu":
		err = serial.RunModbusRTUWorker(ctx, serial.ModbusRTUConfig{
			Port:         p.Port,
			BaudRate:     p.BaudRate,
			DataBits:     8,
			Parity:       "N",
			StopBits:     1,
			SlaveID:      p.SlaveID,
			Timeout:      p.Timeout,
			Register:     0,
			Quantity:     1,
			PollInterval: 100 * time.Millisecond,
			MaxRetries:   3,
		}, cache, p.DeviceID, decodeSingleRegister)
	case "ascii":
		err = serial.RunAsciiWorker(ctx, serial.AsciiConfig{
			Port:        p.Port,
			BaudRate:    p.BaudRate,
			ReadTimeout: p.Timeout,
		}, cache, p.DeviceID, decodeKeyValueLine)
	default:
		log.WithField("kind", p.Kind).Warn("unrecognized serial port kind, skipping")
		return
	}
	if err != nil && ctx.Err() == nil {
		log.WithError(err).WithField("device_id", p.DeviceID).Warn("serial worker exited")
	}
}

// decodeSingleRegister reads a single 16-bit holding register as a raw
// count, the minimal decode every Modbus-RTU sensor configured here
// actually needs until a device-specific scale factor is known.
func decodeSingleRegister(raw []byte) map[string]float64 {
	if len(raw) < 2 {
		return nil
	}
	return map[string]float64{"value": float64(uint16(raw[0])<<8 | uint16(raw[1]))}
}

// decodeKeyValueLine parses one "key=value" ASCII frame.
func decodeKeyValueLine(line string) (map[string]float64, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return nil, fmt.Errorf("serial: malformed key=value frame: %q", line)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return nil, fmt.Errorf("serial: malformed value in frame %q: %w", line, err)
	}
	return map[string]float64{strings.TrimSpace(key): v}, nil
}
