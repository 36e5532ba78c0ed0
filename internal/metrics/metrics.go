package metrics

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var (
	startTime        = time.Now()
	callsPlaced      atomic.Uint64
	callsFailed      atomic.Uint64
	analysesDone     atomic.Uint64
	analysesSkipped  atomic.Uint64
	batchesStarted   atomic.Uint64
	batchesCompleted atomic.Uint64
	batchesActive    atomic.Int64
)

func IncCallsPlaced() { callsPlaced.Add(1) }

func IncCallsFailed() { callsFailed.Add(1) }

func IncAnalyses() { analysesDone.Add(1) }

func IncAnalysesSkipped() { analysesSkipped.Add(1) }

// BatchStarted records a batch entering the running state.
func BatchStarted() {
	batchesStarted.Add(1)
	batchesActive.Add(1)
}

// BatchCompleted records a batch reaching the complete state.
func BatchCompleted() {
	batchesCompleted.Add(1)
	batchesActive.Add(-1)
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	CallsPlaced      uint64
	CallsFailed      uint64
	Analyses         uint64
	AnalysesSkipped  uint64
	BatchesStarted   uint64
	BatchesCompleted uint64
	BatchesActive    int64
	UptimeSeconds    float64
}

func Read() Snapshot {
	return Snapshot{
		CallsPlaced:      callsPlaced.Load(),
		CallsFailed:      callsFailed.Load(),
		Analyses:         analysesDone.Load(),
		AnalysesSkipped:  analysesSkipped.Load(),
		BatchesStarted:   batchesStarted.Load(),
		BatchesCompleted: batchesCompleted.Load(),
		BatchesActive:    batchesActive.Load(),
		UptimeSeconds:    time.Since(startTime).Seconds(),
	}
}

// PrometheusText renders the counters in the Prometheus text exposition format.
func PrometheusText() string {
	s := Read()
	var b strings.Builder
	write := func(name, kind, help, value string) {
		b.WriteString("# HELP " + name + " " + help + "\n")
		b.WriteString("# TYPE " + name + " " + kind + "\n")
		b.WriteString(name + " " + value + "\n")
	}
	write("calldispatch_calls_placed_total", "counter", "Calls accepted by the calling API", formatUint(s.CallsPlaced))
	write("calldispatch_calls_failed_total", "counter", "Calls that ended in an error record", formatUint(s.CallsFailed))
	write("calldispatch_analyses_total", "counter", "Calls analyzed successfully", formatUint(s.Analyses))
	write("calldispatch_analyses_skipped_total", "counter", "Calls whose analysis produced no result", formatUint(s.AnalysesSkipped))
	write("calldispatch_batches_started_total", "counter", "Batches started", formatUint(s.BatchesStarted))
	write("calldispatch_batches_completed_total", "counter", "Batches completed", formatUint(s.BatchesCompleted))
	write("calldispatch_batches_active", "gauge", "Batches currently running", formatInt(s.BatchesActive))
	write("calldispatch_uptime_seconds", "gauge", "Process uptime in seconds", formatFloat(s.UptimeSeconds))
	return b.String()
}

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }
func formatInt(v int64) string   { return strconv.FormatInt(v, 10) }

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
