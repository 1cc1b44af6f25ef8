package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"natjus/internal/atomicfile"
)

var ErrCorrupt = errors.New("checkpoint unreadable")

// State is the on-disk form. A name appears in at most one of the lists.
type State struct {
	Processed []string `json:"processed"`
	Failed    []string `json:"failed"`
}

type Store struct {
	mu    sync.Mutex
	path  string
	state State
}

// Load reads the checkpoint at path. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	s := &Store{path: path, state: State{Processed: []string{}, Failed: []string{}}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	if st.Processed != nil {
		s.state.Processed = st.Processed
	}
	for _, name := range st.Failed {
		if !slices.Contains(s.state.Processed, name) {
			s.state.Failed = append(s.state.Failed, name)
		}
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

// Seen reports whether the document reached a terminal state in any run.
func (s *Store) Seen(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.state.Processed, name) || slices.Contains(s.state.Failed, name)
}

func (s *Store) IsProcessed(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.state.Processed, name)
}

func (s *Store) IsFailed(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.state.Failed, name)
}

func (s *Store) MarkSucceeded(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Failed = slices.DeleteFunc(s.state.Failed, func(n string) bool { return n == name })
	if !slices.Contains(s.state.Processed, name) {
		s.state.Processed = append(s.state.Processed, name)
	}
}

func (s *Store) MarkFailed(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Processed = slices.DeleteFunc(s.state.Processed, func(n string) bool { return n == name })
	if !slices.Contains(s.state.Failed, name) {
		s.state.Failed = append(s.state.Failed, name)
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Processed: slices.Clone(s.state.Processed),
		Failed:    slices.Clone(s.state.Failed),
	}
}

// Save rewrites the whole checkpoint file.
func (s *Store) Save() error {
	snap := s.Snapshot()
	err := atomicfile.Write(s.path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(snap)
	})
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}
