package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/cadvi/internal/application/pipeline"
	"github.com/sawpanic/cadvi/internal/domain/market"
	"github.com/sawpanic/cadvi/internal/gates"
)

var (
	// ErrNoScan is returned by lookups made before the first scan completes
	ErrNoScan = errors.New("no scan has completed yet")

	// ErrUnknownSymbol is returned when the last batch has no such coin
	ErrUnknownSymbol = errors.New("symbol not in last snapshot")
)

// Source yields one listings snapshot
type Source interface {
	Listings(ctx context.Context, limit int) ([]market.RawListing, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context, limit int) ([]market.RawListing, error)

// Listings calls f
func (f SourceFunc) Listings(ctx context.Context, limit int) ([]market.RawListing, error) {
	return f(ctx, limit)
}

// FileSource replays a saved listings response. Both the full API envelope
// and a bare JSON array of listings are accepted.
type FileSource struct {
	Path string
}

// Listings reads the file and returns at most limit records
func (f FileSource) Listings(ctx context.Context, limit int) ([]market.RawListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read listings file: %w", err)
	}

	var listings []market.RawListing
	if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "[") {
		err = json.Unmarshal(data, &listings)
	} else {
		var envelope struct {
			Data []market.RawListing `json:"data"`
		}
		err = json.Unmarshal(data, &envelope)
		listings = envelope.Data
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse listings file %s: %w", f.Path, err)
	}

	if limit > 0 && len(listings) > limit {
		listings = listings[:limit]
	}
	return listings, nil
}

// Explanation is the full gate breakdown for one coin of the last batch
type Explanation struct {
	Candidate pipeline.ScoredCandidate `json:"candidate"`
	Gate      *gates.EntryGateResult   `json:"gate"`
	Ranked    bool                     `json:"ranked"`
}

// Service fetches, normalizes and ranks snapshots, and keeps the latest
// result for read-only consumers.
type Service struct {
	source     Source
	normalizer *market.Normalizer
	pipeline   *pipeline.Pipeline
	limit      int

	mu     sync.RWMutex
	latest *pipeline.Result
	batch  market.Batch
}

// NewService wires a source to a pipeline; limit is the default listing count
func NewService(source Source, normalizer *market.Normalizer, p *pipeline.Pipeline, limit int) *Service {
	if limit <= 0 {
		limit = 200
	}
	return &Service{
		source:     source,
		normalizer: normalizer,
		pipeline:   p,
		limit:      limit,
	}
}

// Pipeline returns the underlying ranking pipeline
func (s *Service) Pipeline() *pipeline.Pipeline {
	return s.pipeline
}

// Scan fetches one snapshot and ranks it. limit ≤0 uses the service default.
func (s *Service) Scan(ctx context.Context, category market.Category, limit int) (*pipeline.Result, error) {
	if limit <= 0 {
		limit = s.limit
	}

	listings, err := s.source.Listings(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listings: %w", err)
	}

	batch := s.normalizer.NormalizeAll(listings)
	if batch.Rejected > 0 || batch.Excluded > 0 {
		log.Debug().
			Int("rejected", batch.Rejected).
			Int("excluded", batch.Excluded).
			Msg("Listings dropped during normalization")
	}

	result, err := s.pipeline.Run(ctx, batch, category)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.latest = result
	s.batch = batch
	s.mu.Unlock()

	return result, nil
}

// Latest returns the most recent result, or nil before the first scan
func (s *Service) Latest() *pipeline.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Explain re-evaluates one coin of the last batch against the gates
func (s *Service) Explain(symbol string, category market.Category) (*Explanation, error) {
	s.mu.RLock()
	latest, batch := s.latest, s.batch
	s.mu.RUnlock()

	if latest == nil {
		return nil, ErrNoScan
	}

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, snap := range batch.Snapshots {
		if snap.Symbol != symbol {
			continue
		}
		candidate, gate := s.pipeline.Evaluate(snap, batch.BTC, category)
		ranked := false
		for _, c := range latest.Candidates {
			if c.Symbol == symbol {
				ranked = true
				break
			}
		}
		return &Explanation{Candidate: candidate, Gate: gate, Ranked: ranked}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
}

// BreakerState reports the source's circuit breaker state when it has one
func (s *Service) BreakerState() (string, bool) {
	b, ok := s.source.(interface{ BreakerState() string })
	if !ok {
		return "", false
	}
	return b.BreakerState(), true
}
