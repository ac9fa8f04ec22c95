package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/tankdcs/internal/plant"
)

const (
	metadataFile = "metadata.json"
	levelsFile   = "levels.csv"
)

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
	Scenario  string             `json:"scenario"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      uint64             `json:"seed"`
	Dt        float64            `json:"dt"`
	Ticks     int                `json:"ticks"`
	Tanks     []string           `json:"tanks"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes metadata.json and levels.csv into a new run directory and
// returns the run id.
func (s *Store) Save(meta RunMetadata, hist *History) (string, error) {
	now := time.Now()
	if meta.Scenario == "" {
		meta.Scenario = "run"
	}
	meta.ID = fmt.Sprintf("%s_%s", meta.Scenario, uuid.NewString()[:8])
	meta.Timestamp = now
	meta.Tanks = hist.Names
	if n := hist.Len(); n > 0 {
		meta.Ticks = hist.Ticks[n-1]
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, levelsFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, hist); err != nil {
		return "", err
	}
	return meta.ID, nil
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
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadHistory(runID string) (*History, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, levelsFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return parseCSV(records)
}

// CSV layout: tick,time then level,target,status per tank.
func WriteCSV(out io.Writer, hist *History) error {
	w := csv.NewWriter(out)

	header := []string{"tick", "time"}
	for _, name := range hist.Names {
		header = append(header, name+".level", name+".target", name+".status")
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range hist.Times {
		row := []string{strconv.Itoa(hist.Ticks[i]), strconv.FormatFloat(hist.Times[i], 'f', 6, 64)}
		for j := range hist.Levels[i] {
			row = append(row,
				strconv.FormatFloat(hist.Levels[i][j], 'f', 6, 64),
				strconv.FormatFloat(hist.Targets[i][j], 'f', 6, 64),
				hist.Statuses[i][j].String(),
			)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func parseCSV(records [][]string) (*History, error) {
	hist := &History{}
	if len(records) == 0 {
		return hist, nil
	}

	header := records[0]
	if len(header) < 2 || (len(header)-2)%3 != 0 {
		return nil, fmt.Errorf("storage: malformed header %v", header)
	}
	n := (len(header) - 2) / 3
	hist.Names = make([]string, n)
	for j := 0; j < n; j++ {
		name, ok := strings.CutSuffix(header[2+3*j], ".level")
		if !ok {
			return nil, fmt.Errorf("storage: column %q is not a level column", header[2+3*j])
		}
		hist.Names[j] = name
	}

	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("storage: row %d has %d fields, want %d", i+1, len(record), len(header))
		}
		tick, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("storage: row %d tick: %w", i+1, err)
		}
		t, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("storage: row %d time: %w", i+1, err)
		}

		levels := make([]float64, n)
		targets := make([]float64, n)
		statuses := make([]plant.Status, n)
		for j := 0; j < n; j++ {
			base := 2 + 3*j
			if levels[j], err = strconv.ParseFloat(record[base], 64); err != nil {
				return nil, fmt.Errorf("storage: row %d level: %w", i+1, err)
			}
			if targets[j], err = strconv.ParseFloat(record[base+1], 64); err != nil {
				return nil, fmt.Errorf("storage: row %d target: %w", i+1, err)
			}
			if statuses[j], err = plant.ParseStatus(record[base+2]); err != nil {
				return nil, fmt.Errorf("storage: row %d: %w", i+1, err)
			}
		}

		hist.Ticks = append(hist.Ticks, tick)
		hist.Times = append(hist.Times, t)
		hist.Levels = append(hist.Levels, levels)
		hist.Targets = append(hist.Targets, targets)
		hist.Statuses = append(hist.Statuses, statuses)
	}
	return hist, nil
}
