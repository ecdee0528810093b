// Package app orchestrates comparison runs: it turns model identifiers into
// fitted comparisons, stamps each run with an identity, and hands the outcome
// to an optional store.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"macrosad/domain/compare"
	"macrosad/domain/sad"
)

// RunRecord is one completed comparison run.
type RunRecord struct {
	ID        uuid.UUID       `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Models    []string        `json:"models"`
	NullModel string          `json:"null_model,omitempty"`
	Result    *compare.Result `json:"result"`
}

// RunStore persists completed runs.
type RunStore interface {
	SaveRun(ctx context.Context, rec RunRecord) error
}

// CompareRequest names the inputs of one run.
type CompareRequest struct {
	Datasets  []compare.Dataset `json:"datasets"`
	Models    []string          `json:"models"`
	NullModel string            `json:"null_model,omitempty"`
	Corrected bool              `json:"corrected"`
	Workers   int               `json:"workers,omitempty"`
}

// CompareService runs model comparisons and records them.
type CompareService struct {
	store RunStore
}

// NewCompareService returns a service. A nil store disables persistence.
func NewCompareService(store RunStore) *CompareService {
	return &CompareService{store: store}
}

// Run executes one comparison and persists the record when a store is
// configured. A persistence failure fails the run; the caller decides whether
// a lost record is acceptable, not the service.
func (s *CompareService) Run(ctx context.Context, req CompareRequest) (*RunRecord, error) {
	if len(req.Models) == 0 {
		req.Models = sad.Names()
	}
	models := make([]sad.Model, len(req.Models))
	for i, name := range req.Models {
		m, err := sad.New(name)
		if err != nil {
			return nil, err
		}
		models[i] = m
	}

	opts := compare.Options{Corrected: req.Corrected, Workers: req.Workers}
	if req.NullModel != "" {
		null, err := sad.New(req.NullModel)
		if err != nil {
			return nil, fmt.Errorf("null model: %w", err)
		}
		opts.NullModel = null
	}

	cmp, err := compare.NewComparator(req.Datasets, models)
	if err != nil {
		return nil, err
	}
	result, err := cmp.Run(ctx, opts)
	if err != nil {
		return nil, err
	}

	rec := &RunRecord{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Models:    req.Models,
		NullModel: req.NullModel,
		Result:    result,
	}
	if s.store != nil {
		if err := s.store.SaveRun(ctx, *rec); err != nil {
			return nil, fmt.Errorf("save run %s: %w", rec.ID, err)
		}
		log.Printf("[CompareService] saved run %s (%d datasets, %d models)",
			rec.ID, len(req.Datasets), len(req.Models))
	}
	return rec, nil
}
