package checkout

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/checkout/internal/domain/address"
	"github.com/storefront/checkout/internal/domain/cart"
	"github.com/storefront/checkout/internal/domain/shared"
)

// fakeBackend is an in-memory storefront backend keyed by token
type fakeBackend struct {
	mu        sync.Mutex
	carts     map[string][]cart.LineItem
	addresses map[string][]address.Address
	nextID    int
	failNext  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		carts:     map[string][]cart.LineItem{},
		addresses: map[string][]address.Address{},
	}
}

func (f *fakeBackend) fail() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeBackend) FetchCart(ctx context.Context, token string) ([]cart.LineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	return slices.Clone(f.carts[token]), nil
}

func (f *fakeBackend) ListAddresses(ctx context.Context, token string) ([]address.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	return slices.Clone(f.addresses[token]), nil
}

func (f *fakeBackend) AddAddress(ctx context.Context, token string, fields address.Fields) (address.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return address.Address{}, err
	}
	f.nextID++
	a := address.Address{ID: fmt.Sprintf("new-%d", f.nextID), Fields: fields}
	f.addresses[token] = append(f.addresses[token], a)
	return a, nil
}

func (f *fakeBackend) UpdateAddress(ctx context.Context, token, id string, fields address.Fields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	for i, a := range f.addresses[token] {
		if a.ID == id {
			f.addresses[token][i].Fields = fields
			return nil
		}
	}
	return shared.NewRemoteError("updateAddress", 404, "Address not found", nil)
}

func (f *fakeBackend) DeleteAddress(ctx context.Context, token, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	f.addresses[token] = slices.DeleteFunc(f.addresses[token], func(a address.Address) bool { return a.ID == id })
	return nil
}

// fakeDirectory serves a fixed two-province hierarchy
type fakeDirectory struct{}

func (fakeDirectory) Provinces(ctx context.Context) ([]address.Region, error) {
	return []address.Region{{Code: "1", Name: "Ha Noi"}, {Code: "79", Name: "Ho Chi Minh"}}, nil
}

func (fakeDirectory) Districts(ctx context.Context, provinceCode string) ([]address.Region, error) {
	if provinceCode == "1" {
		return []address.Region{{Code: "001", Name: "Ba Dinh"}}, nil
	}
	return []address.Region{{Code: "760", Name: "Quan 1"}}, nil
}

func (fakeDirectory) Wards(ctx context.Context, districtCode string) ([]address.Region, error) {
	if districtCode == "001" {
		return []address.Region{{Code: "00004", Name: "Truc Bach"}}, nil
	}
	return []address.Region{{Code: "26734", Name: "Ben Nghe"}}, nil
}

// memHandoffs is an in-memory HandoffStore
type memHandoffs struct {
	mu    sync.Mutex
	items map[string]*Handoff
	ttl   time.Duration
	err   error
}

func (m *memHandoffs) Save(ctx context.Context, h *Handoff, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.items == nil {
		m.items = map[string]*Handoff{}
	}
	m.items[h.Token] = h
	m.ttl = ttl
	return nil
}

func (m *memHandoffs) Load(ctx context.Context, token string) (*Handoff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.items[token]
	if !ok {
		return nil, ErrHandoffNotFound
	}
	return h, nil
}

func lineItem(price int64, qty int) cart.LineItem {
	return cart.LineItem{
		ProductID:      fmt.Sprintf("p-%d", price),
		Name:           "Item",
		UnitPrice:      decimal.NewFromInt(price),
		Quantity:       qty,
		Size:           "M",
		AvailableSizes: []string{"M", "L"},
	}
}

func addr(id, street string) address.Address {
	return address.Address{ID: id, Fields: address.Fields{
		Province:      "Ha Noi",
		District:      "Ba Dinh",
		Ward:          "Truc Bach",
		Street:        street,
		ReceiverName:  "Chi",
		ReceiverPhone: "0988",
	}}
}
