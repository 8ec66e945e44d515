// Package governor throttles the pipeline against a configured CPU ceiling.
//
// Observe is designed to be called from the per-row hot path: it is a no-op
// until a 100 ms polling interval has elapsed, then compares the process CPU
// time delta against the wall-clock delta and sleeps off any overage. The
// sleep scales with how far over the ceiling the measured usage is, so heavy
// overage converges toward the ceiling faster than a fixed sleep would.
//
// A Governor owns mutable timing state across calls and is meant for a
// single pipeline goroutine; it provides no synchronization of its own.
package governor

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultPollInterval bounds how often Observe actually samples.
const DefaultPollInterval = 100 * time.Millisecond

// Options configures a Governor. Zero fields take defaults; the clock, CPU
// time source, and sleep hooks exist so throttling math can be unit tested
// against a fake clock.
type Options struct {
	// CeilingPercent is the maximum allowed CPU utilization in (0, 100].
	CeilingPercent float64
	PollInterval   time.Duration
	Now            func() time.Time
	CPUTime        func() (time.Duration, error)
	Sleep          func(time.Duration)
}

// Governor keeps the last observation and inserts sleeps when measured
// utilization exceeds the ceiling.
type Governor struct {
	ceiling  float64
	interval time.Duration
	now      func() time.Time
	cpuTime  func() (time.Duration, error)
	sleep    func(time.Duration)

	lastCheck time.Time
	lastCPU   time.Duration
}

// New builds a governor with the default poll interval and real clocks.
func New(ceilingPercent float64) (*Governor, error) {
	return NewWithOptions(Options{CeilingPercent: ceilingPercent})
}

// NewWithOptions builds a governor, validating the ceiling and filling in
// defaults for unset hooks.
func NewWithOptions(opts Options) (*Governor, error) {
	if opts.CeilingPercent <= 0 || opts.CeilingPercent > 100 {
		return nil, fmt.Errorf("governor: ceiling %.1f%% outside (0, 100]", opts.CeilingPercent)
	}
	g := &Governor{
		ceiling:  opts.CeilingPercent,
		interval: opts.PollInterval,
		now:      opts.Now,
		cpuTime:  opts.CPUTime,
		sleep:    opts.Sleep,
	}
	if g.interval <= 0 {
		g.interval = DefaultPollInterval
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.cpuTime == nil {
		g.cpuTime = processCPUTime
	}
	if g.sleep == nil {
		g.sleep = time.Sleep
	}
	return g, nil
}

// Ceiling returns the configured utilization ceiling in percent.
func (g *Governor) Ceiling() float64 {
	return g.ceiling
}

// Observe samples utilization if the poll interval has elapsed and sleeps
// off any overage. The first observation only records a baseline. Safe to
// call on a nil governor, which disables throttling entirely.
func (g *Governor) Observe() {
	if g == nil {
		return
	}
	now := g.now()
	if !g.lastCheck.IsZero() && now.Sub(g.lastCheck) < g.interval {
		return
	}
	cpu, err := g.cpuTime()
	if err != nil {
		g.lastCheck = now
		return
	}

	if !g.lastCheck.IsZero() && g.lastCPU > 0 && g.ceiling < 100 {
		wallDelta := now.Sub(g.lastCheck)
		cpuDelta := cpu - g.lastCPU
		if wallDelta > 0 && cpuDelta > 0 {
			usage := float64(cpuDelta) / float64(wallDelta) * 100
			if usage > g.ceiling {
				// Sleep long enough that cpuDelta over the extended
				// window lands on the ceiling.
				oversleep := time.Duration(float64(cpuDelta)*100/g.ceiling) - wallDelta
				if oversleep > 0 {
					g.sleep(oversleep)
				}
			}
		}
	}

	g.lastCheck = now
	g.lastCPU = cpu
}

// processCPUTime returns user plus system CPU time consumed by the process.
func processCPUTime() (time.Duration, error) {
	var usage unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &usage); err != nil {
		return 0, fmt.Errorf("getrusage: %w", err)
	}
	return time.Duration(usage.Utime.Nano() + usage.Stime.Nano()), nil
}
