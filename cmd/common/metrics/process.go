package metrics

import (
	"fmt"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/procfs"
)

const (
	MetricCPUUTimeSeconds  = "crank_process_cpu_utime_seconds"
	MetricCPUSTimeSeconds  = "crank_process_cpu_stime_seconds"
	MetricMemoryRSSBytes   = "crank_process_memory_rss_bytes"
	MetricMemoryVSizeBytes = "crank_process_memory_vsize_bytes"

	// ClockTicks is getconf CLK_TCK
	ClockTicks = 100
)

var (
	utimeGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricCPUUTimeSeconds,
			Help: "CPU user time spent by the crank as reported by /proc/<PID>/stat (seconds).",
		},
	)

	stimeGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricCPUSTimeSeconds,
			Help: "CPU system time spent by the crank as reported by /proc/<PID>/stat (seconds).",
		},
	)

	rssGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricMemoryRSSBytes,
			Help: "Resident set size of the crank as reported by /proc/<PID>/stat (bytes).",
		},
	)

	vsizeGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricMemoryVSizeBytes,
			Help: "Virtual memory size of the crank as reported by /proc/<PID>/stat (bytes).",
		},
	)

	processCollectors = []prometheus.Collector{utimeGauge, stimeGauge, rssGauge, vsizeGauge}
	processOnce       sync.Once
)

type processCollector struct {
	pid int
}

func (c *processCollector) Name() string {
	return "process"
}

func (c *processCollector) Update() error {
	proc, err := procfs.NewProc(c.pid)
	if err != nil {
		return fmt.Errorf("process metric: failed to obtain proc object for PID %d: %w", c.pid, err)
	}
	stat, err := proc.Stat()
	if err != nil {
		return fmt.Errorf("process metric: failed to obtain stat for PID %d: %w", c.pid, err)
	}

	utimeGauge.Set(float64(stat.UTime) / float64(ClockTicks))
	stimeGauge.Set(float64(stat.STime) / float64(ClockTicks))
	rssGauge.Set(float64(stat.ResidentMemory()))
	vsizeGauge.Set(float64(stat.VirtualMemory()))

	return nil
}

// NewProcessCollector constructs a new process CPU and memory collector.
func NewProcessCollector() ResourceCollector {
	// Process metrics are singletons, register them only once.
	processOnce.Do(func() {
		prometheus.MustRegister(processCollectors...)
	})

	return &processCollector{
		pid: os.Getpid(),
	}
}
