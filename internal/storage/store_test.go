package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/pixeldust/internal/field"
	"github.com/san-kum/pixeldust/internal/metrics"
)

func testRun() *Run {
	return &Run{
		Name:      "bench",
		Asset:     "logo.png",
		Particles: 16,
		Frames:    2,
		Params:    field.DefaultParams(),
		Metrics:   map[string]float64{"peak_displacement": 12.5},
		Samples: []metrics.Sample{
			{Frame: 1, MaxDisplacement: 12.5, MeanDisplacement: 3, MaxSpeed: 4, Kinetic: 8},
			{Frame: 2, MaxDisplacement: 10, MeanDisplacement: 2.5, MaxSpeed: 3, Kinetic: 5},
		},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(testRun())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "bench_") {
		t.Errorf("unexpected run id %q", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Asset != "logo.png" || meta.Particles != 16 {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Params != field.DefaultParams() {
		t.Error("params did not survive the round trip")
	}
	if meta.Metrics["peak_displacement"] != 12.5 {
		t.Errorf("expected peak 12.5, got %f", meta.Metrics["peak_displacement"])
	}

	samples, err := st.LoadTrace(runID)
	if err != nil {
		t.Fatalf("load trace failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[1] != testRun().Samples[1] {
		t.Errorf("sample mismatch: %+v", samples[1])
	}
}

func TestStoreList(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "runs"))

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := st.Save(testRun()); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	runID, err := st.Save(testRun())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{"metadata.json", "trace.csv"} {
		if _, err := os.Stat(filepath.Join(tmpDir, runID, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestStoreMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); !errors.Is(err, ErrNoRun) {
		t.Errorf("expected ErrNoRun, got %v", err)
	}
	if _, err := st.LoadTrace("nope"); !errors.Is(err, ErrNoRun) {
		t.Errorf("expected ErrNoRun, got %v", err)
	}
}

func TestReadTraceCSVSkipsMalformedRows(t *testing.T) {
	in := "frame,max_displacement,mean_displacement,max_speed,kinetic\n" +
		"1,1,1,1,1\n" +
		"x,1,1,1,1\n" +
		"2,1,1\n" +
		"3,2,2,2,oops\n" +
		"4,4,4,4,4\n"

	samples, err := ReadTraceCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(samples) != 2 || samples[0].Frame != 1 || samples[1].Frame != 4 {
		t.Errorf("unexpected samples %+v", samples)
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, testRun()); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var decoded struct {
		Name    string           `json:"name"`
		Samples []metrics.Sample `json:"samples"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded.Name != "bench" || len(decoded.Samples) != 2 {
		t.Errorf("unexpected export %+v", decoded)
	}
}
