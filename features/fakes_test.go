package features

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/storefront/checkout/internal/application/checkout"
	"github.com/storefront/checkout/internal/domain/address"
	"github.com/storefront/checkout/internal/domain/cart"
)

// memoryBackend is an in-memory storefront backend keyed by token
type memoryBackend struct {
	mu        sync.Mutex
	carts     map[string][]cart.LineItem
	addresses map[string][]address.Address
	nextID    int
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{
		carts:     map[string][]cart.LineItem{},
		addresses: map[string][]address.Address{},
	}
}

func (m *memoryBackend) FetchCart(ctx context.Context, token string) ([]cart.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.carts[token]), nil
}

func (m *memoryBackend) ListAddresses(ctx context.Context, token string) ([]address.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.addresses[token]), nil
}

func (m *memoryBackend) AddAddress(ctx context.Context, token string, fields address.Fields) (address.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a := address.Address{ID: fmt.Sprintf("new-%d", m.nextID), Fields: fields}
	m.addresses[token] = append(m.addresses[token], a)
	return a, nil
}

func (m *memoryBackend) UpdateAddress(ctx context.Context, token, id string, fields address.Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.addresses[token] {
		if a.ID == id {
			m.addresses[token][i].Fields = fields
			return nil
		}
	}
	return fmt.Errorf("address %s not found", id)
}

func (m *memoryBackend) DeleteAddress(ctx context.Context, token, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addresses[token] = slices.DeleteFunc(m.addresses[token], func(a address.Address) bool { return a.ID == id })
	return nil
}

// slowCarts blocks FetchCart until released, then answers with its items
type slowCarts struct {
	items   []cart.LineItem
	started chan struct{}
	release chan struct{}
}

func newSlowCarts(items []cart.LineItem) *slowCarts {
	return &slowCarts{
		items:   items,
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (s *slowCarts) FetchCart(ctx context.Context, token string) ([]cart.LineItem, error) {
	s.started <- struct{}{}
	select {
	case <-s.release:
		return slices.Clone(s.items), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type staticDirectory struct{}

func (staticDirectory) Provinces(ctx context.Context) ([]address.Region, error) {
	return []address.Region{{Code: "1", Name: "Ha Noi"}, {Code: "79", Name: "Ho Chi Minh"}}, nil
}

func (staticDirectory) Districts(ctx context.Context, provinceCode string) ([]address.Region, error) {
	if provinceCode == "1" {
		return []address.Region{{Code: "001", Name: "Ba Dinh"}}, nil
	}
	return []address.Region{{Code: "760", Name: "Quan 1"}}, nil
}

func (staticDirectory) Wards(ctx context.Context, districtCode string) ([]address.Region, error) {
	if districtCode == "001" {
		return []address.Region{{Code: "00004", Name: "Truc Bach"}}, nil
	}
	return []address.Region{{Code: "26734", Name: "Ben Nghe"}}, nil
}

// memoryHandoffs keeps handoffs in a map
type memoryHandoffs struct {
	mu    sync.Mutex
	items map[string]*checkout.Handoff
}

func (m *memoryHandoffs) Save(ctx context.Context, h *checkout.Handoff, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = map[string]*checkout.Handoff{}
	}
	m.items[h.Token] = h
	return nil
}

func (m *memoryHandoffs) Load(ctx context.Context, token string) (*checkout.Handoff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.items[token]
	if !ok {
		return nil, checkout.ErrHandoffNotFound
	}
	return h, nil
}
