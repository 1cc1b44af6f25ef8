package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"natjus/internal/atomicfile"
	"natjus/internal/extraction"
)

type Paths struct {
	JSON string
	CSV  string
	XLSX string
}

// Store holds the records accumulated across runs, keyed by source filename.
type Store struct {
	mu      sync.RWMutex
	paths   Paths
	records map[string]extraction.Record
}

// Load reads previously saved records. A missing results file yields an empty store.
func Load(paths Paths) (*Store, error) {
	s := &Store{paths: paths, records: map[string]extraction.Record{}}

	data, err := os.ReadFile(paths.JSON)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return s, nil
	}

	var recs []extraction.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode results %s: %w", paths.JSON, err)
	}
	for _, r := range recs {
		s.records[r.SourceFilename] = r
	}
	return s, nil
}

func (s *Store) Upsert(r extraction.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.SourceFilename] = r
}

func (s *Store) Remove(filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, filename)
}

func (s *Store) Get(filename string) (extraction.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[filename]
	return r, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Records returns every record ordered by source filename.
func (s *Store) Records() []extraction.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]extraction.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b extraction.Record) int {
		return strings.Compare(a.SourceFilename, b.SourceFilename)
	})
	return out
}

// Save rewrites the JSON and CSV outputs.
func (s *Store) Save() error {
	recs := s.Records()

	err := atomicfile.Write(s.paths.JSON, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(recs)
	})
	if err != nil {
		return fmt.Errorf("save results json: %w", err)
	}

	if s.paths.CSV == "" {
		return nil
	}
	if err := atomicfile.Write(s.paths.CSV, func(w io.Writer) error { return WriteCSV(w, recs) }); err != nil {
		return fmt.Errorf("save results csv: %w", err)
	}
	return nil
}

// ExportXLSX writes the spreadsheet projection, usually once at the end of a run.
func (s *Store) ExportXLSX() error {
	if s.paths.XLSX == "" {
		return nil
	}
	recs := s.Records()
	if err := atomicfile.Write(s.paths.XLSX, func(w io.Writer) error { return WriteXLSX(w, recs) }); err != nil {
		return fmt.Errorf("export results xlsx: %w", err)
	}
	return nil
}
