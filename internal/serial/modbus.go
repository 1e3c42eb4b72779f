package serial

import (
	"context"
	"time"

	"github.com/goburrow/modbus"
)

// ModbusRTUConfig configures one RTU-master connection (spec.md §4.9,
// dispatched to "the inverter/micrometer").
type ModbusRTUConfig struct {
	Port     string
	BaudRate int
	DataBits int
	Parity   string
	StopBits int
	SlaveID  byte
	Timeout  time.Duration

	Register     uint16
	Quantity     uint16
	PollInterval time.Duration
	MaxRetries   int
}

// modbusReader is the subset of *modbus.RTUClientHandler's paired client
// this package drives; fakeable in tests without a real serial port.
type modbusReader interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
}

// Decoder turns a raw register read into named float64 values.
type Decoder func(raw []byte) map[string]float64

func dialModbusRTU(cfg ModbusRTUConfig) (modbusReader, func() error, error) {
	handler := modbus.NewRTUClientHandler(cfg.Port)
	handler.BaudRate = cfg.BaudRate
	handler.DataBits = cfg.DataBits
	handler.Parity = cfg.Parity
	handler.StopBits = cfg.StopBits
	handler.SlaveId = cfg.SlaveID
	handler.Timeout = cfg.Timeout

	if err := handler.Connect(); err != nil {
		return nil, nil, err
	}
	return modbus.NewClient(handler), handler.Close, nil
}

// RunModbusRTUWorker dials cfg.Port, then polls Register/Quantity every
// PollInterval until ctx is cancelled, decoding each read via decode and
// storing the result (or a read error) in cache under deviceID. A failed
// read is retried up to MaxRetries times before being recorded as an
// error reading, per spec.md §5 "per-request timeouts with a bounded
// retry count".
func RunModbusRTUWorker(ctx context.Context, cfg ModbusRTUConfig, cache *Cache, deviceID string, decode Decoder) error {
	client, closeFn, err := dialModbusRTU(cfg)
	if err != nil {
		cache.Store(Reading{DeviceID: deviceID, Err: err, Timestamp: time.Now()})
		return err
	}
	defer closeFn()

	return pollModbus(ctx, client, cfg, cache, deviceID, decode)
}

func pollModbus(ctx context.Context, client modbusReader, cfg ModbusRTUConfig, cache *Cache, deviceID string, decode Decoder) error {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			readModbusOnce(client, cfg, cache, deviceID, decode)
		}
	}
}

func readModbusOnce(client modbusReader, cfg ModbusRTUConfig, cache *Cache, deviceID string, decode Decoder) {
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var raw []byte
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		raw, err = client.ReadHoldingRegisters(cfg.Register, cfg.Quantity)
		if err == nil {
			break
		}
	}

	now := time.Now()
	if err != nil {
		cache.Store(Reading{DeviceID: deviceID, Err: err, Timestamp: now})
		return
	}
	cache.Store(Reading{DeviceID: deviceID, Values: decode(raw), Timestamp: now})
}
