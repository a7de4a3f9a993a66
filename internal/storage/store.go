// Package storage persists recorded runs: a metadata.json with the tuning
// that produced them and a trace.csv of every recorded step.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/pixeldust/internal/field"
	"github.com/san-kum/pixeldust/internal/metrics"
)

var ErrNoRun = errors.New("storage: run not found")

var traceHeader = []string{"frame", "max_displacement", "mean_displacement", "max_speed", "kinetic"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Asset     string             `json:"asset"`
	Timestamp time.Time          `json:"timestamp"`
	Particles int                `json:"particles"`
	Frames    uint64             `json:"frames"`
	Params    field.Params       `json:"params"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Run is everything one bench or script invocation recorded.
type Run struct {
	Name      string
	Asset     string
	Particles int
	Frames    uint64
	Params    field.Params
	Metrics   map[string]float64
	Samples   []metrics.Sample
}

func (s *Store) Save(run *Run) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", run.Name, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Name:      run.Name,
		Asset:     run.Asset,
		Timestamp: now,
		Particles: run.Particles,
		Frames:    run.Frames,
		Params:    run.Params,
		Metrics:   run.Metrics,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "trace.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteTraceCSV(csvFile, run.Samples); err != nil {
		return "", err
	}
	return runID, nil
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoRun, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadTrace(runID string) ([]metrics.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "trace.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoRun, runID)
		}
		return nil, err
	}
	defer file.Close()
	return ReadTraceCSV(file)
}

func WriteTraceCSV(w io.Writer, samples []metrics.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(traceHeader); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{
			strconv.FormatUint(s.Frame, 10),
			strconv.FormatFloat(s.MaxDisplacement, 'f', 6, 64),
			strconv.FormatFloat(s.MeanDisplacement, 'f', 6, 64),
			strconv.FormatFloat(s.MaxSpeed, 'f', 6, 64),
			strconv.FormatFloat(s.Kinetic, 'f', 6, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTraceCSV parses what WriteTraceCSV wrote. Malformed rows are skipped.
func ReadTraceCSV(r io.Reader) ([]metrics.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []metrics.Sample{}, nil
	}

	samples := make([]metrics.Sample, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) != len(traceHeader) {
			continue
		}
		frame, err := strconv.ParseUint(record[0], 10, 64)
		if err != nil {
			continue
		}
		var vals [4]float64
		ok := true
		for j := range vals {
			if vals[j], err = strconv.ParseFloat(record[j+1], 64); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		samples = append(samples, metrics.Sample{
			Frame:            frame,
			MaxDisplacement:  vals[0],
			MeanDisplacement: vals[1],
			MaxSpeed:         vals[2],
			Kinetic:          vals[3],
		})
	}
	return samples, nil
}

type exportData struct {
	Name      string             `json:"name"`
	Asset     string             `json:"asset"`
	Particles int                `json:"particles"`
	Frames    uint64             `json:"frames"`
	Params    field.Params       `json:"params"`
	Metrics   map[string]float64 `json:"metrics"`
	Samples   []metrics.Sample   `json:"samples"`
}

// ExportJSON writes run as one indented json document.
func ExportJSON(w io.Writer, run *Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exportData{
		Name:      run.Name,
		Asset:     run.Asset,
		Particles: run.Particles,
		Frames:    run.Frames,
		Params:    run.Params,
		Metrics:   run.Metrics,
		Samples:   run.Samples,
	})
}
