package serial

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestCacheStoreAndLatest(t *testing.T) {
	c := NewCache()
	if _, ok := c.Latest("dev1"); ok {
		t.Fatal("expected no reading before any Store")
	}
	c.Store(Reading{DeviceID: "dev1", Values: map[string]float64{"temp": 21.5}})
	r, ok := c.Latest("dev1")
	if !ok || r.Values["temp"] != 21.5 {
		t.Fatalf("got %v, %v", r, ok)
	}
	if len(c.Devices()) != 1 {
		t.Fatalf("expected 1 device, got %d", len(c.Devices()))
	}
}

func TestHotplugScannerStartsAndStopsOnDisappear(t *testing.T) {
	var mu sync.Mutex
	running := map[string]bool{}

	ports := []string{"/dev/ttyUSB0"}
	list := func() ([]string, error) {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), ports...), nil
	}
	dispatch := func(ctx context.Context, port string) (func(), error) {
		mu.Lock()
		running[port] = true
		mu.Unlock()
		return func() {
			mu.Lock()
			running[port] = false
			mu.Unlock()
		}, nil
	}

	s := NewHotplugScanner(list, dispatch, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() { s.Run(ctx); close(done) }()

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	started := running["/dev/ttyUSB0"]
	mu.Unlock()
	if !started {
		t.Fatal("expected port to be dispatched")
	}

	mu.Lock()
	ports = nil
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	stillRunning := running["/dev/ttyUSB0"]
	mu.Unlock()
	if stillRunning {
		t.Fatal("expected port worker to be stopped once it disappears")
	}

	cancel()
	<-done
}

type fakeModbusReader struct {
	mu      sync.Mutex
	raw     []byte
	failN   int // number of ReadHoldingRegisters calls to fail before succeeding
	calls   int
}

func (f *fakeModbusReader) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failN {
		return nil, errors.New("transient read error")
	}
	return f.raw, nil
}

func TestReadModbusOnceRetriesThenSucceeds(t *testing.T) {
	client := &fakeModbusReader{raw: []byte{0x00, 0x2A}, failN: 2}
	cache := NewCache()
	decode := func(raw []byte) map[string]float64 {
		return map[string]float64{"raw": float64(int(raw[0])<<8 | int(raw[1]))}
	}
	readModbusOnce(client, ModbusRTUConfig{MaxRetries: 3}, cache, "dev-modbus", decode)

	r, ok := cache.Latest("dev-modbus")
	if !ok || r.Err != nil {
		t.Fatalf("expected a successful reading after retries, got %+v ok=%v", r, ok)
	}
	if r.Values["raw"] != 42 {
		t.Fatalf("got %v, want 42", r.Values["raw"])
	}
}

func TestReadModbusOnceExhaustsRetries(t *testing.T) {
	client := &fakeModbusReader{failN: 100}
	cache := NewCache()
	readModbusOnce(client, ModbusRTUConfig{MaxRetries: 2}, cache, "dev-modbus", func([]byte) map[string]float64 { return nil })

	r, ok := cache.Latest("dev-modbus")
	if !ok || r.Err == nil {
		t.Fatalf("expected an error reading after exhausting retries, got %+v ok=%v", r, ok)
	}
}

func TestScanAsciiLinesDecodesEachLine(t *testing.T) {
	input := strings.NewReader("T:21.5\nT:22.0\n")
	cache := NewCache()
	decode := func(line string) (map[string]float64, error) {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return nil, errors.New("malformed frame")
		}
		v, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, err
		}
		return map[string]float64{"temp": v}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = scanAsciiLines(ctx, input, cache, "dev-ascii", decode)

	r, ok := cache.Latest("dev-ascii")
	if !ok {
		t.Fatal("expected a reading to have been stored")
	}
	if r.Values["temp"] != 22.0 {
		t.Fatalf("got %v, want 22.0 (the last line)", r.Values["temp"])
	}
}
