package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RuntimeCollector reports goroutine, heap and GC figures on every scrape.
type RuntimeCollector struct {
	goroutines *prometheus.Desc
	heapAlloc  *prometheus.Desc
	sys        *prometheus.Desc
	gcRuns     *prometheus.Desc
	gcPause    *prometheus.Desc
}

func NewRuntimeCollector(namespace, subsystem string) *RuntimeCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, nil, nil)
	}
	return &RuntimeCollector{
		goroutines: desc("runtime_goroutines", "Number of goroutines"),
		heapAlloc:  desc("runtime_heap_alloc_bytes", "Heap bytes allocated and in use"),
		sys:        desc("runtime_sys_bytes", "Bytes obtained from the OS"),
		gcRuns:     desc("runtime_gc_runs_total", "Completed GC cycles"),
		gcPause:    desc("runtime_gc_last_pause_seconds", "Duration of the last GC pause"),
	}
}

// Describe implements prometheus.Collector.
func (c *RuntimeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.goroutines
	ch <- c.heapAlloc
	ch <- c.sys
	ch <- c.gcRuns
	ch <- c.gcPause
}

// Collect implements prometheus.Collector.
func (c *RuntimeCollector) Collect(ch chan<- prometheus.Metric) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	ch <- prometheus.MustNewConstMetric(c.goroutines, prometheus.GaugeValue, float64(runtime.NumGoroutine()))
	ch <- prometheus.MustNewConstMetric(c.heapAlloc, prometheus.GaugeValue, float64(stats.HeapAlloc))
	ch <- prometheus.MustNewConstMetric(c.sys, prometheus.GaugeValue, float64(stats.Sys))
	ch <- prometheus.MustNewConstMetric(c.gcRuns, prometheus.CounterValue, float64(stats.NumGC))

	if stats.NumGC > 0 {
		pause := time.Duration(stats.PauseNs[(stats.NumGC+255)%256])
		ch <- prometheus.MustNewConstMetric(c.gcPause, prometheus.GaugeValue, pause.Seconds())
	}
}
