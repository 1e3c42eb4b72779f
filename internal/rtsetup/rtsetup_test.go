package rtsetup

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestFindIRQForInterfaceParsesProcInterrupts(t *testing.T) {
	proc := " " +
		"           CPU0       CPU1\n" +
		" 16:         10          0   IO-APIC   16-fasteoi   enp0s31f6\n" +
		" 17:          5          5   IO-APIC   17-fasteoi   eth1\n"

	irq, ok := findIRQForInterface(proc, "enp0s31f6")
	if !ok || irq != 16 {
		t.Fatalf("got irq=%d ok=%v, want 16,true", irq, ok)
	}

	irq, ok = findIRQForInterface(proc, "eth1")
	if !ok || irq != 17 {
		t.Fatalf("got irq=%d ok=%v, want 17,true", irq, ok)
	}
}

func TestFindIRQForInterfaceNoMatch(t *testing.T) {
	if _, ok := findIRQForInterface("16: 1 2 eth0\n", "eth9"); ok {
		t.Fatal("expected no match for an interface not present")
	}
}

func TestFindIRQForInterfaceMalformedLineSkipped(t *testing.T) {
	proc := "not-a-number: eth0\n17: 1 eth0\n"
	irq, ok := findIRQForInterface(proc, "eth0")
	if !ok || irq != 17 {
		t.Fatalf("got irq=%d ok=%v, want the first well-formed match 17,true", irq, ok)
	}
}

func TestCycleMetricsObserveCycleRecordsHistogram(t *testing.T) {
	m := NewCycleMetrics()
	m.ObserveCycle(250 * time.Microsecond)
	m.ObserveCycle(500 * time.Microsecond)

	count := testutil.CollectAndCount(m.cycleDuration)
	if count != 1 {
		t.Fatalf("expected one registered histogram metric family, got %d", count)
	}
}

func TestCycleMetricsObserveCycleErrorIncrementsCounter(t *testing.T) {
	m := NewCycleMetrics()
	m.ObserveCycleError(errFake{})
	m.ObserveCycleError(errFake{})

	if got := testutil.ToFloat64(m.cycleErrors); got != 2 {
		t.Fatalf("got %v errors, want 2", got)
	}
}

func TestCycleMetricsSetSaturationClamps(t *testing.T) {
	m := NewCycleMetrics()
	m.SetSaturation("winder1", "spool", 1.5)
	if got := testutil.ToFloat64(m.saturation.WithLabelValues("winder1", "spool")); got != 1 {
		t.Fatalf("got %v, want clamped to 1", got)
	}

	m.SetSaturation("winder1", "puller", -0.2)
	if got := testutil.ToFloat64(m.saturation.WithLabelValues("winder1", "puller")); got != 0 {
		t.Fatalf("got %v, want clamped to 0", got)
	}
}

type errFake struct{}

func (errFake) Error() string { return "fake transient error" }
