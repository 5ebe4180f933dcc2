package utils

import "time"

// PerfTimer measures elapsed wall-clock time with support for lap times.
type PerfTimer struct {
	startTime time.Time
	lapTime   time.Time
}

func NewPerfTimer() *PerfTimer {
	now := time.Now()
	return &PerfTimer{startTime: now, lapTime: now}
}

// Lap_ms returns the time since the last lap (or construction) and restarts
// the lap clock.
func (pt *PerfTimer) Lap_ms() int64 {
	now := time.Now()
	lap := now.Sub(pt.lapTime)
	pt.lapTime = now

	return lap.Milliseconds()
}

// Elapsed_ms returns the total time since construction without touching the
// lap clock.
func (pt *PerfTimer) Elapsed_ms() int64 {
	return time.Since(pt.startTime).Milliseconds()
}
