// Package memory is an in-process vector store backend using brute-force
// Euclidean search. It backs tests and single-machine deployments.
package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"docchat/internal/vectorstore"
)

type collection struct {
	dimension int
	points    []vectorstore.Point
}

// Storage holds named collections guarded by one RWMutex.
type Storage struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

func NewStorage() *Storage {
	return &Storage{collections: make(map[string]*collection)}
}

func (s *Storage) EnsureCollection(_ context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		if c.dimension != dimension {
			return errors.New("collection exists with different dimension")
		}
		return nil
	}
	s.collections[name] = &collection{dimension: dimension}
	return nil
}

func (s *Storage) Upsert(_ context.Context, name string, points []vectorstore.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return errors.New("unknown collection " + name)
	}
	for _, p := range points {
		if len(p.Vector) != c.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	for _, p := range points {
		replaced := false
		for i := range c.points {
			if c.points[i].ID == p.ID {
				c.points[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			c.points = append(c.points, p)
		}
	}
	return nil
}

// Search scans the whole collection and returns the nearest points by
// Euclidean distance. A name that was never created yields an empty result.
func (s *Storage) Search(_ context.Context, name string, vector []float64, limit int) ([]vectorstore.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}
	hits := make([]vectorstore.Hit, 0, len(c.points))
	for _, p := range c.points {
		hits = append(hits, vectorstore.Hit{ID: p.ID, Distance: euclidean(p.Vector, vector), Text: p.Text})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if limit < len(hits) {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Storage) DeleteByDocument(_ context.Context, name string, documentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return nil
	}
	kept := c.points[:0]
	for _, p := range c.points {
		if p.DocumentID != documentID {
			kept = append(kept, p)
		}
	}
	c.points = kept
	return nil
}

func euclidean(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
