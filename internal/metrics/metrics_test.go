package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Objects:            10,
		DeletableObjects:   3,
		Origins:            8,
		DeletableOrigins:   2,
		ReclaimableBytes:   1572864,
		Roots:              4,
		DanglingReferences: 1,
		CyclicGroups:       0,
		ClosureDuration:    1500 * time.Millisecond,
		Finished:           time.Unix(1700000000, 0),
	}
}

func TestNew_RegistersGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewWithRegistry(reg)
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	expected := map[string]bool{
		"cachegc_objects_total":              false,
		"cachegc_objects_deletable":          false,
		"cachegc_origins_total":              false,
		"cachegc_origins_deletable":          false,
		"cachegc_reclaimable_bytes":          false,
		"cachegc_roots":                      false,
		"cachegc_dangling_references":        false,
		"cachegc_cyclic_groups":              false,
		"cachegc_closure_duration_seconds":   false,
		"cachegc_last_run_timestamp_seconds": false,
	}
	for _, family := range families {
		if _, ok := expected[family.GetName()]; ok {
			expected[family.GetName()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("expected metric %s to be registered", name)
		}
	}
}

func TestObserve(t *testing.T) {
	m := New()
	m.Observe(sampleSnapshot())

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"objects_total", testutil.ToFloat64(m.ObjectsTotal), 10},
		{"objects_deletable", testutil.ToFloat64(m.ObjectsDeletable), 3},
		{"origins_total", testutil.ToFloat64(m.OriginsTotal), 8},
		{"origins_deletable", testutil.ToFloat64(m.OriginsDeletable), 2},
		{"reclaimable_bytes", testutil.ToFloat64(m.ReclaimableBytes), 1572864},
		{"roots", testutil.ToFloat64(m.Roots), 4},
		{"dangling_references", testutil.ToFloat64(m.DanglingReferences), 1},
		{"cyclic_groups", testutil.ToFloat64(m.CyclicGroups), 0},
		{"closure_duration_seconds", testutil.ToFloat64(m.ClosureDuration), 1.5},
		{"last_run_timestamp_seconds", testutil.ToFloat64(m.LastRun), 1700000000},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Observe(sampleSnapshot())

	path := filepath.Join(t.TempDir(), "cachegc.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	out := string(data)
	for _, line := range []string{
		"# TYPE cachegc_objects_deletable gauge",
		"cachegc_objects_deletable 3",
		"# TYPE cachegc_reclaimable_bytes gauge",
		"cachegc_closure_duration_seconds 1.5",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("textfile missing %q:\n%s", line, out)
		}
	}
}
