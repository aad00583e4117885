package bootloader

import (
	"sync/atomic"
	"time"
)

// Counters for observing the boot path during tests and simulation runs.
var (
	bootCount     uint64
	handoffCount  uint64
	elDropCount   uint64
	sysRegWrites  uint64
	bssBytesTotal uint64
	faultCount    uint64

	// Timing metrics (nanoseconds)
	totalBootTime uint64
)

// Metrics is a snapshot of the boot-path counters.
type Metrics struct {
	Boots         uint64 `json:"boots"`
	Handoffs      uint64 `json:"handoffs"`
	ELDrops       uint64 `json:"el_drops"`
	SysRegWrites  uint64 `json:"sysreg_writes"`
	BSSBytes      uint64 `json:"bss_bytes_cleared"`
	Faults        uint64 `json:"faults"`
	AvgBootTimeNs uint64 `json:"avg_boot_time_ns"`
}

// GetMetrics returns current boot-path metrics.
func GetMetrics() Metrics {
	boots := atomic.LoadUint64(&bootCount)

	var avgBoot uint64
	if boots > 0 {
		avgBoot = atomic.LoadUint64(&totalBootTime) / boots
	}

	return Metrics{
		Boots:         boots,
		Handoffs:      atomic.LoadUint64(&handoffCount),
		ELDrops:       atomic.LoadUint64(&elDropCount),
		SysRegWrites:  atomic.LoadUint64(&sysRegWrites),
		BSSBytes:      atomic.LoadUint64(&bssBytesTotal),
		Faults:        atomic.LoadUint64(&faultCount),
		AvgBootTimeNs: avgBoot,
	}
}

// ResetMetrics clears all boot-path metrics.
func ResetMetrics() {
	atomic.StoreUint64(&bootCount, 0)
	atomic.StoreUint64(&handoffCount, 0)
	atomic.StoreUint64(&elDropCount, 0)
	atomic.StoreUint64(&sysRegWrites, 0)
	atomic.StoreUint64(&bssBytesTotal, 0)
	atomic.StoreUint64(&faultCount, 0)
	atomic.StoreUint64(&totalBootTime, 0)
}

// Internal metric recording functions
func recordBoot() {
	atomic.AddUint64(&bootCount, 1)
}

func recordBootTime(duration time.Duration) {
	atomic.AddUint64(&totalBootTime, uint64(duration.Nanoseconds()))
}

func recordHandoff() {
	atomic.AddUint64(&handoffCount, 1)
}

func recordELDrop() {
	atomic.AddUint64(&elDropCount, 1)
}

func recordSysRegWrite() {
	atomic.AddUint64(&sysRegWrites, 1)
}

func recordBSSCleared(n uint64) {
	atomic.AddUint64(&bssBytesTotal, n)
}

func recordFault() {
	atomic.AddUint64(&faultCount, 1)
}
