// Package inmemory implements the access request store as an in-process map.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mnemolabs/mnemo/pkg/access"
	"github.com/mnemolabs/mnemo/pkg/memory"
)

// Store keeps requests in memory guarded by a read-write mutex.
type Store struct {
	mu       sync.RWMutex
	requests map[string]memory.CrossDomainRequest
}

// NewStore creates an empty in-memory request store.
func NewStore() *Store {
	return &Store{requests: make(map[string]memory.CrossDomainRequest)}
}

// CreatePending inserts the request unless a pending request for the same
// tuple already exists, in which case that request is returned.
func (s *Store) CreatePending(ctx context.Context, req memory.CrossDomainRequest) (memory.CrossDomainRequest, error) {
	if err := ctx.Err(); err != nil {
		return memory.CrossDomainRequest{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.requests {
		if existing.Status == memory.StatusPending &&
			existing.SourceDomain == req.SourceDomain &&
			existing.TargetDomain == req.TargetDomain &&
			existing.Operation == req.Operation {
			return existing.Clone(), nil
		}
	}

	s.requests[req.ID] = req.Clone()
	return req.Clone(), nil
}

// Get returns the request with the given ID.
func (s *Store) Get(ctx context.Context, id string) (memory.CrossDomainRequest, error) {
	if err := ctx.Err(); err != nil {
		return memory.CrossDomainRequest{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return memory.CrossDomainRequest{}, fmt.Errorf("%w: %s", access.ErrNotFound, id)
	}
	return req.Clone(), nil
}

// LatestApproved returns the most recently approved request for the tuple.
func (s *Store) LatestApproved(ctx context.Context, source, target string, op memory.Operation) (memory.CrossDomainRequest, error) {
	if err := ctx.Err(); err != nil {
		return memory.CrossDomainRequest{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *memory.CrossDomainRequest
	for _, req := range s.requests {
		if req.Status != memory.StatusApproved ||
			req.SourceDomain != source ||
			req.TargetDomain != target ||
			req.Operation != op {
			continue
		}
		if latest == nil || resolvedAfter(req, *latest) {
			found := req
			latest = &found
		}
	}
	if latest == nil {
		return memory.CrossDomainRequest{}, fmt.Errorf("%w: no approval for %s -> %s %s", access.ErrNotFound, source, target, op)
	}
	return latest.Clone(), nil
}

// Transition moves a pending request to a terminal status.
func (s *Store) Transition(ctx context.Context, id string, status memory.RequestStatus, resolvedAt time.Time) (memory.CrossDomainRequest, error) {
	if err := ctx.Err(); err != nil {
		return memory.CrossDomainRequest{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return memory.CrossDomainRequest{}, fmt.Errorf("%w: %s", access.ErrNotFound, id)
	}
	if req.Status.IsTerminal() {
		return memory.CrossDomainRequest{}, &memory.InvalidStateError{RequestID: id, Status: req.Status}
	}

	req.Status = status
	req.ResolvedAt = &resolvedAt
	s.requests[id] = req
	return req.Clone(), nil
}

// List returns all requests ordered by creation time, then ID.
func (s *Store) List(ctx context.Context) ([]memory.CrossDomainRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	requests := make([]memory.CrossDomainRequest, 0, len(s.requests))
	for _, req := range s.requests {
		requests = append(requests, req.Clone())
	}
	sort.Slice(requests, func(a, b int) bool {
		if !requests[a].CreatedAt.Equal(requests[b].CreatedAt) {
			return requests[a].CreatedAt.Before(requests[b].CreatedAt)
		}
		return requests[a].ID < requests[b].ID
	})
	return requests, nil
}

// Close releases resources held by the store.
func (s *Store) Close() error {
	return nil
}

func resolvedAfter(a, b memory.CrossDomainRequest) bool {
	if a.ResolvedAt == nil {
		return false
	}
	if b.ResolvedAt == nil {
		return true
	}
	return a.ResolvedAt.After(*b.ResolvedAt)
}

var _ access.Store = (*Store)(nil)
