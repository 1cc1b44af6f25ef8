package stats

import (
	"natjus/internal/checkpoint"
	"natjus/internal/extraction"
	"natjus/internal/pipeline"
	"natjus/internal/results"
)

type Progress struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
}

// FileSource reads progress and records from the files the extract command
// writes, so a long running server sees the latest run.
type FileSource struct {
	InputDir       string
	CheckpointPath string
	Results        results.Paths
}

func (s FileSource) Progress() (Progress, error) {
	names, err := pipeline.ListPDFs(s.InputDir)
	if err != nil {
		return Progress{}, err
	}
	cp, err := checkpoint.Load(s.CheckpointPath)
	if err != nil {
		return Progress{}, err
	}

	p := Progress{Total: len(names)}
	for _, n := range names {
		switch {
		case cp.IsProcessed(n):
			p.Processed++
		case cp.IsFailed(n):
			p.Failed++
		default:
			p.Pending++
		}
	}
	return p, nil
}

func (s FileSource) Records() ([]extraction.Record, error) {
	store, err := results.Load(s.Results)
	if err != nil {
		return nil, err
	}
	return store.Records(), nil
}
