package cache

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/storefront/checkout/internal/application/checkout"
)

type handoffEntry struct {
	handoff   checkout.Handoff
	expiresAt time.Time
}

// InMemoryHandoffStore keeps handoffs in process memory. Suitable for a
// single BFF instance and for tests.
type InMemoryHandoffStore struct {
	mu        sync.RWMutex
	entries   map[string]handoffEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryHandoffStore creates the store and starts its cleanup loop
func NewInMemoryHandoffStore() *InMemoryHandoffStore {
	s := &InMemoryHandoffStore{
		entries:  make(map[string]handoffEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.cleanupLoop()
	return s
}

// Save stores a copy of h until ttl elapses
func (s *InMemoryHandoffStore) Save(ctx context.Context, h *checkout.Handoff, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[h.Token]; ok && now.Before(e.expiresAt) {
		return fmt.Errorf("handoff %s already exists", h.Token)
	}
	s.entries[h.Token] = handoffEntry{handoff: copyHandoff(h), expiresAt: now.Add(ttl)}
	return nil
}

// Load returns a copy of the handoff for token, or checkout.ErrHandoffNotFound
func (s *InMemoryHandoffStore) Load(ctx context.Context, token string) (*checkout.Handoff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[token]
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, checkout.ErrHandoffNotFound
	}
	h := copyHandoff(&e.handoff)
	return &h, nil
}

// Len returns the number of stored handoffs, expired ones included
func (s *InMemoryHandoffStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup loop. Safe to call multiple times.
func (s *InMemoryHandoffStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryHandoffStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryHandoffStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for token, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, token)
		}
	}
}

func copyHandoff(h *checkout.Handoff) checkout.Handoff {
	out := *h
	out.Items = slices.Clone(h.Items)
	for i := range out.Items {
		out.Items[i].AvailableSizes = slices.Clone(out.Items[i].AvailableSizes)
		out.Items[i].AvailableColors = slices.Clone(out.Items[i].AvailableColors)
	}
	if h.Coupon != nil {
		c := *h.Coupon
		out.Coupon = &c
	}
	return out
}

var _ checkout.HandoffStore = (*InMemoryHandoffStore)(nil)
