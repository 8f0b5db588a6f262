// Package memory provides an in-memory brute-force vector store. It stands in
// for the Milvus store in tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/docqa/backend/internal/vector"
)

type Store struct {
	mu       sync.RWMutex
	segments []vector.Segment
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Upsert(_ context.Context, segments []vector.Segment) error {
	for _, seg := range segments {
		if len(seg.Embedding) == 0 {
			return errors.New("segment has no embedding")
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = append(s.segments, segments...)
	return nil
}

func (s *Store) Query(_ context.Context, embedding []float32, topK int) ([]vector.Match, error) {
	if topK <= 0 {
		topK = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]vector.Match, 0, len(s.segments))
	for _, seg := range s.segments {
		matches = append(matches, vector.Match{
			ID:         seg.ID,
			SourceFile: seg.SourceFile,
			Page:       seg.Page,
			Text:       seg.Text,
			Distance:   l2Distance(seg.Embedding, embedding),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *Store) DeleteBySource(_ context.Context, sourceFile string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.segments[:0]
	removed := 0
	for _, seg := range s.segments {
		if seg.SourceFile == sourceFile {
			removed++
			continue
		}
		kept = append(kept, seg)
	}
	s.segments = kept
	return removed, nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = nil
	return nil
}

func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.segments)), nil
}

func l2Distance(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
