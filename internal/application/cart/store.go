package cart

import (
	"context"
	"sync"

	appshared "github.com/storefront/checkout/internal/application/shared"
	"github.com/storefront/checkout/internal/domain/cart"
	"github.com/storefront/checkout/internal/domain/identity"
	"go.uber.org/zap"
)

// Source loads a user's cart from the storefront backend
type Source interface {
	FetchCart(ctx context.Context, token string) ([]cart.LineItem, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context, token string) ([]cart.LineItem, error)

// FetchCart calls f
func (f SourceFunc) FetchCart(ctx context.Context, token string) ([]cart.LineItem, error) {
	return f(ctx, token)
}

// Store owns the local cart of one session. The server cart replaces it
// wholesale on hydrate; edits mutate it in place and are not persisted.
//
// Hydrate results are tagged with the generation they were issued in. A
// result arriving after a later Hydrate or Reset is dropped.
type Store struct {
	mu     sync.Mutex
	source Source
	gen    appshared.Generation
	cart   *cart.Cart
	owner  string
	logger *zap.Logger
}

// NewStore creates an empty Store reading from source
func NewStore(source Source, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		source: source,
		cart:   cart.New(nil),
		logger: logger,
	}
}

// Hydrate replaces the cart with the server cart of user, or clears it when
// user is absent. On a remote failure or a cancelled ctx the current cart is
// left unchanged.
func (s *Store) Hydrate(ctx context.Context, user *identity.User) error {
	s.mu.Lock()
	if !user.Present() {
		s.gen.Advance()
		s.cart = cart.New(nil)
		s.owner = ""
		s.mu.Unlock()
		return nil
	}
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return err
	}
	reqCtx, ticket, stop := s.gen.Begin(ctx)
	s.mu.Unlock()
	defer stop()

	items, err := s.source.FetchCart(reqCtx, user.Token)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !ticket.Valid() {
		s.logger.Debug("Discarding stale cart fetch",
			zap.String("user", user.Key()),
			zap.Uint64("generation", ticket.Seq()),
		)
		return nil
	}
	if err != nil {
		s.logger.Warn("Failed to fetch cart", zap.String("user", user.Key()), zap.Error(err))
		return err
	}
	s.cart = cart.New(items)
	s.owner = user.Key()
	s.logger.Debug("Cart hydrated", zap.String("user", s.owner), zap.Int("items", s.cart.Len()))
	return nil
}

// Reset clears the cart and discards any in-flight hydrate
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen.Advance()
	s.cart = cart.New(nil)
	s.owner = ""
}

// Owner returns the key of the user the cart was loaded for
func (s *Store) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// SetQuantity sets the quantity of the line item at index
func (s *Store) SetQuantity(index, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.SetQuantity(index, quantity)
}

// SetSize sets the selected size of the line item at index
func (s *Store) SetSize(index int, size string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.SetSize(index, size)
}

// SetColor sets the selected color of the line item at index
func (s *Store) SetColor(index int, color string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.SetColor(index, color)
}

// RemoveItem removes the line item at index locally.
// TODO: persist removals once the backend exposes a remove-item endpoint.
func (s *Store) RemoveItem(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.RemoveItem(index)
}

// LimitedPreview returns the first n items and the count of the rest
func (s *Store) LimitedPreview(n int) cart.Preview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Preview(n)
}

// Items returns a copy of the line items
func (s *Store) Items() []cart.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Items()
}

// Len returns the number of line items
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Len()
}

// Validate checks every line item before commit
func (s *Store) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Validate()
}
