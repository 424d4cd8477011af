package api

import (
	"context"

	"docsort/internal/docstore"
	"docsort/internal/jobqueue"
)

// Overview is a point-in-time summary of the pipeline.
type Overview struct {
	Documents map[docstore.Status]int `json:"documents"`
	Jobs      map[jobqueue.Status]int `json:"jobs"`
}

// Overview gathers document and job counts by status.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	docStats, err := s.docs.Stats(ctx)
	if err != nil {
		return nil, err
	}
	jobStats, err := s.jobs.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &Overview{Documents: docStats, Jobs: jobStats}, nil
}
