package serial

import (
	"bufio"
	"context"
	"io"
	"time"

	tarmserial "github.com/tarm/serial"
)

// AsciiConfig configures one vendor-ASCII line-oriented connection
// (spec.md §4.9, dispatched to "the other sensors").
type AsciiConfig struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

// LineDecoder turns one newline-terminated ASCII frame into named
// float64 values, or an error if the frame is malformed.
type LineDecoder func(line string) (map[string]float64, error)

func openAsciiPort(cfg AsciiConfig) (io.ReadCloser, error) {
	return tarmserial.OpenPort(&tarmserial.Config{Name: cfg.Port, Baud: cfg.BaudRate, ReadTimeout: cfg.ReadTimeout})
}

// RunAsciiWorker opens cfg.Port and reads newline-delimited ASCII frames
// until ctx is cancelled or the port errors, decoding each line via
// decode and storing the result in cache under deviceID. Adapted from
// the teacher's uart_worker line-accumulation loop, generalized from
// byte-at-a-time buffering to bufio.Scanner since this path has no
// idle-flush requirement (lines are always newline-terminated).
func RunAsciiWorker(ctx context.Context, cfg AsciiConfig, cache *Cache, deviceID string, decode LineDecoder) error {
	port, err := openAsciiPort(cfg)
	if err != nil {
		cache.Store(Reading{DeviceID: deviceID, Err: err, Timestamp: time.Now()})
		return err
	}
	defer port.Close()

	return scanAsciiLines(ctx, port, cache, deviceID, decode)
}

func scanAsciiLines(ctx context.Context, r io.Reader, cache *Cache, deviceID string, decode LineDecoder) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-scanErr:
			return err
		case line := <-lines:
			values, err := decode(line)
			now := time.Now()
			if err != nil {
				cache.Store(Reading{DeviceID: deviceID, Err: err, Timestamp: now})
				continue
			}
			cache.Store(Reading{DeviceID: deviceID, Values: values, Timestamp: now})
		}
	}
}
