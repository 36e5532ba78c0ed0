package metrics

import (
	"strings"
	"testing"
)

func TestCountersAppearInExposition(t *testing.T) {
	before := Read()
	IncCallsPlaced()
	IncCallsFailed()
	BatchStarted()
	BatchCompleted()
	after := Read()

	if after.CallsPlaced != before.CallsPlaced+1 || after.CallsFailed != before.CallsFailed+1 {
		t.Fatalf("call counters did not advance: %+v -> %+v", before, after)
	}
	if after.BatchesActive != before.BatchesActive {
		t.Fatalf("active batches should be unchanged, got %d", after.BatchesActive)
	}

	text := PrometheusText()
	for _, name := range []string{"calldispatch_calls_placed_total", "calldispatch_batches_active", "calldispatch_uptime_seconds"} {
		if !strings.Contains(text, "# TYPE "+name) {
			t.Errorf("missing %s in exposition", name)
		}
	}
}
