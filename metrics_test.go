package bootloader

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMetrics(t *testing.T) {
	ResetMetrics()

	m := GetMetrics()
	if m.Boots != 0 {
		t.Errorf("Expected Boots=0, got %d", m.Boots)
	}

	recordBoot()
	recordBootTime(200 * time.Millisecond)
	recordELDrop()
	recordSysRegWrite()
	recordSysRegWrite()
	recordBSSCleared(0x2000)
	recordHandoff()

	m = GetMetrics()
	if m.Boots != 1 {
		t.Errorf("Expected Boots=1, got %d", m.Boots)
	}
	if m.Handoffs != 1 {
		t.Errorf("Expected Handoffs=1, got %d", m.Handoffs)
	}
	if m.ELDrops != 1 {
		t.Errorf("Expected ELDrops=1, got %d", m.ELDrops)
	}
	if m.SysRegWrites != 2 {
		t.Errorf("Expected SysRegWrites=2, got %d", m.SysRegWrites)
	}
	if m.BSSBytes != 0x2000 {
		t.Errorf("Expected BSSBytes=0x2000, got %#x", m.BSSBytes)
	}
	if m.AvgBootTimeNs == 0 {
		t.Error("Expected non-zero average boot time")
	}

	recordFault()
	if m := GetMetrics(); m.Faults != 1 {
		t.Errorf("Expected Faults=1, got %d", m.Faults)
	}

	ResetMetrics()
	if m := GetMetrics(); m != (Metrics{}) {
		t.Errorf("Expected zeroed metrics after reset, got %+v", m)
	}
}

func TestMetricsJSON(t *testing.T) {
	ResetMetrics()
	recordBoot()
	recordBSSCleared(64)

	data, err := json.Marshal(GetMetrics())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]uint64
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["boots"] != 1 {
		t.Errorf("Expected boots=1 in JSON, got %d", decoded["boots"])
	}
	if decoded["bss_bytes_cleared"] != 64 {
		t.Errorf("Expected bss_bytes_cleared=64 in JSON, got %d", decoded["bss_bytes_cleared"])
	}

	ResetMetrics()
}
