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

	"github.com/san-kum/roar/internal/sim"
	"github.com/san-kum/roar/internal/sizing"
)

const (
	metadataFile   = "metadata.json"
	sizingFile     = "sizing.json"
	trajectoryFile = "trajectory.csv"
)

// ErrBadTrajectory indicates a trajectory file whose header does not match the state columns.
var ErrBadTrajectory = errors.New("storage: malformed trajectory")

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Timestamp  time.Time          `json:"timestamp"`
	Dt         float64            `json:"dt"`
	Integrator string             `json:"integrator"`
	Status     sim.Status         `json:"status"`
	Steps      int                `json:"steps"`
	BurnTime   float64            `json:"burn_time"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Save writes one run directory and returns its id.
func (s *Store) Save(name string, cfg sim.Config, integrator string, seed *sizing.Result, result *sim.Result) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}
	now := s.now()
	runID, runDir, err := s.mkRunDir(name, now)
	if err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Name:       name,
		Timestamp:  now,
		Dt:         cfg.Dt,
		Integrator: integrator,
		Status:     result.Status,
		Steps:      result.Steps,
		BurnTime:   result.Final().Time,
		Metrics:    result.Metrics,
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if seed != nil {
		if err := writeJSON(filepath.Join(runDir, sizingFile), seed.SI()); err != nil {
			return "", err
		}
	}

	f, err := os.Create(filepath.Join(runDir, trajectoryFile))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := WriteCSV(f, result.States); err != nil {
		return "", err
	}
	return runID, f.Close()
}

func (s *Store) mkRunDir(name string, now time.Time) (string, string, error) {
	base := fmt.Sprintf("%s_%d", name, now.Unix())
	runID := base
	for i := 1; ; i++ {
		runDir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			return runID, runDir, nil
		}
		if !os.IsExist(err) {
			return "", "", err
		}
		runID = fmt.Sprintf("%s_%d", base, i)
	}
}

// List returns stored runs, oldest first. Directories without readable
// metadata are skipped.
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
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
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

// LoadSizing returns the SI sizing values stored with a run.
func (s *Store) LoadSizing(runID string) (map[string]float64, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, sizingFile))
	if err != nil {
		return nil, err
	}
	values := make(map[string]float64)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func (s *Store) LoadTrajectory(runID string) ([]sim.State, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// WriteCSV writes states with a header row of sim.Columns.
func WriteCSV(w io.Writer, states []sim.State) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sim.Columns); err != nil {
		return err
	}
	row := make([]string, len(sim.Columns))
	for _, st := range states {
		for i, v := range st.Values() {
			row[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ReadCSV(r io.Reader) ([]sim.State, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header", ErrBadTrajectory)
	}
	header := records[0]
	if len(header) != len(sim.Columns) {
		return nil, fmt.Errorf("%w: %d columns, want %d", ErrBadTrajectory, len(header), len(sim.Columns))
	}
	for i, c := range sim.Columns {
		if header[i] != c {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrBadTrajectory, i, header[i], c)
		}
	}

	states := make([]sim.State, 0, len(records)-1)
	values := make([]float64, len(sim.Columns))
	for line, record := range records[1:] {
		for i, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: %v", ErrBadTrajectory, line+1, err)
			}
			values[i] = v
		}
		states = append(states, sim.StateFromValues(values))
	}
	return states, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}
