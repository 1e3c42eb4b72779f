package regulate

import "math/big"

const u32Max int64 = 4294967295

// CounterWrapper32 unwraps a hardware u32 counter (reported each cycle
// alongside an overflow/underflow flag) into a signed i64 running
// position, per spec.md §4.8. Ported line-for-line in arithmetic from
// ethercat-hal/src/helpers/counter_wrapper_u16_i128.rs's u16/i128 scheme,
// generalized to the u32/i64 width spec.md actually specifies for
// EtherCAT encoder counters.
type CounterWrapper32 struct {
	counter    int64
	setCounter *int64
}

// NewCounterWrapper32 constructs a wrapper starting at the given
// position.
func NewCounterWrapper32(counter int64) *CounterWrapper32 {
	return &CounterWrapper32{counter: counter}
}

// Update folds in one cycle's raw counter reading and its
// overflow/underflow flags.
func (c *CounterWrapper32) Update(counter uint32, underflow, overflow bool) {
	c.counter += counterU32ToI64(c.counter, counter, underflow, overflow)
}

// Current returns the unwrapped running position.
func (c *CounterWrapper32) Current() int64 { return c.counter }

// PushOverride schedules an absolute-position override to take effect
// on the next PopOverride call (spec.md §4.8 "setting a new absolute
// position is staged and committed on the next cycle").
func (c *CounterWrapper32) PushOverride(newCounter int64) {
	c.setCounter = &newCounter
}

// PopOverride applies a pending override (if any), returning the raw u32
// value to write to the slave's set_counter_value this cycle.
func (c *CounterWrapper32) PopOverride() (uint32, bool) {
	if c.setCounter == nil {
		return 0, false
	}
	c.counter = *c.setCounter
	raw := setCounterU32FromI64(*c.setCounter)
	c.setCounter = nil
	return raw, true
}

// GetOverride returns the pending override value, if any, without
// applying it.
func (c *CounterWrapper32) GetOverride() (int64, bool) {
	if c.setCounter == nil {
		return 0, false
	}
	return *c.setCounter, true
}

func counterU32ToI64(lastCounter int64, counter uint32, underflow, overflow bool) int64 {
	switch {
	case overflow:
		return int64(counter) - lastCounter + u32Max + 1
	case underflow:
		return int64(counter) - lastCounter - (u32Max + 1)
	default:
		return int64(counter) - lastCounter
	}
}

func setCounterU32FromI64(newCounter int64) uint32 {
	modulo := newCounter % (u32Max + 1)
	if modulo < 0 {
		modulo += u32Max + 1
	}
	return uint32(modulo)
}

// CounterWrapper16 is the original u16/i128 counter-unwrap scheme,
// carried over via math/big since Go has no native 128-bit integer.
// spec.md's EtherCAT encoders are all u32/i64 (CounterWrapper32); this
// type exists only for a Modbus-reported u16 counter wide enough to
// need the full i128 range, which no machine model in this codebase
// currently instantiates — documented unused in production, the same
// status as the cycle engine's general multi-task resonant scheduler.
type CounterWrapper16 struct {
	counter    *big.Int
	setCounter *big.Int
}

var (
	u16Max     = big.NewInt(65535)
	u16Modulus = big.NewInt(65536)
)

// NewCounterWrapper16 constructs a wrapper starting at the given
// position.
func NewCounterWrapper16(counter *big.Int) *CounterWrapper16 {
	return &CounterWrapper16{counter: new(big.Int).Set(counter)}
}

func (c *CounterWrapper16) Update(counter uint16, underflow, overflow bool) {
	delta := counterU16ToI128(c.counter, counter, underflow, overflow)
	c.counter.Add(c.counter, delta)
}

func (c *CounterWrapper16) Current() *big.Int { return new(big.Int).Set(c.counter) }

func counterU16ToI128(lastCounter *big.Int, counter uint16, underflow, overflow bool) *big.Int {
	c := big.NewInt(int64(counter))
	switch {
	case overflow:
		return new(big.Int).Add(new(big.Int).Sub(c, lastCounter), new(big.Int).Add(u16Max, big.NewInt(1)))
	case underflow:
		return new(big.Int).Sub(new(big.Int).Sub(c, lastCounter), new(big.Int).Add(u16Max, big.NewInt(1)))
	default:
		return new(big.Int).Sub(c, lastCounter)
	}
}

// PushOverride schedules an absolute-position override.
func (c *CounterWrapper16) PushOverride(newCounter *big.Int) {
	c.setCounter = new(big.Int).Set(newCounter)
}

// PopOverride applies a pending override, returning the raw u16 value to
// write to the device.
func (c *CounterWrapper16) PopOverride() (uint16, bool) {
	if c.setCounter == nil {
		return 0, false
	}
	c.counter.Set(c.setCounter)
	modulo := new(big.Int).Mod(c.setCounter, u16Modulus)
	c.setCounter = nil
	return uint16(modulo.Int64()), true
}
