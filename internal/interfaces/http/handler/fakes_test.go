package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	addressapp "github.com/storefront/checkout/internal/application/address"
	cartapp "github.com/storefront/checkout/internal/application/cart"
	"github.com/storefront/checkout/internal/application/checkout"
	"github.com/storefront/checkout/internal/domain/address"
	"github.com/storefront/checkout/internal/domain/cart"
	"github.com/storefront/checkout/internal/domain/pricing"
	"github.com/storefront/checkout/internal/domain/shared"
	"github.com/storefront/checkout/internal/infrastructure/auth"
	"github.com/storefront/checkout/internal/infrastructure/cache"
	"github.com/storefront/checkout/internal/infrastructure/logger"
	"github.com/storefront/checkout/internal/infrastructure/telemetry"
	"github.com/storefront/checkout/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeBackend is an in-memory storefront backend keyed by token
type fakeBackend struct {
	mu         sync.Mutex
	carts      map[string][]cart.LineItem
	addresses  map[string][]address.Address
	categories []string
	nextID     int
	failNext   error
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

func (f *fakeBackend) FetchMiniCart(ctx context.Context, token string) ([]cart.LineItem, error) {
	return f.FetchCart(ctx, token)
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
	for i, a := range f.addresses[token] {
		if a.ID == id {
			f.addresses[token][i].Fields = fields
			return nil
		}
	}
	return shared.NewRemoteError("updateAddress", http.StatusNotFound, "Address not found", nil)
}

func (f *fakeBackend) DeleteAddress(ctx context.Context, token, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addresses[token] = slices.DeleteFunc(f.addresses[token], func(a address.Address) bool { return a.ID == id })
	return nil
}

func (f *fakeBackend) Categories(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	return slices.Clone(f.categories), nil
}

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

type testEnv struct {
	backend  *fakeBackend
	registry *checkout.Registry
	handoffs *cache.InMemoryHandoffStore
	metrics  *telemetry.Metrics
	engine   *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		backend:  newFakeBackend(),
		handoffs: cache.NewInMemoryHandoffStore(),
		metrics:  telemetry.NewMetrics(),
	}
	t.Cleanup(func() { _ = env.handoffs.Close() })

	prices := pricing.NewEngine(pricing.DefaultAdjustments())
	env.registry = checkout.NewRegistry(func() *checkout.Workspace {
		return &checkout.Workspace{
			Session: checkout.NewSession(
				cartapp.NewStore(env.backend, nil),
				addressapp.NewBook(env.backend, fakeDirectory{}, nil),
				prices,
				env.handoffs,
				checkout.Options{HandoffTTL: time.Minute},
				nil,
			),
			MiniCart: cartapp.NewStore(cartapp.SourceFunc(env.backend.FetchMiniCart), nil),
		}
	}, nil, checkout.WithSizeObserver(env.metrics.SetSessions))

	cartHandler := NewCartHandler(env.registry, 0)
	checkoutHandler := NewCheckoutHandler(env.registry, env.handoffs, time.Minute, env.metrics)
	sessionHandler := NewSessionHandler(env.registry)
	catalogHandler := NewCatalogHandler(env.backend)

	r := gin.New()
	r.Use(logger.GinMiddleware(zap.NewNop()))
	r.GET("/health", NewHealthHandler("test").Health)

	api := r.Group("/api/v1", middleware.Auth(auth.NewInspector("", ""), zap.NewNop()))
	api.GET("/minicart", cartHandler.MiniCart)
	api.GET("/cart", cartHandler.Get)
	api.PATCH("/cart/items/:index", cartHandler.UpdateItem)
	api.DELETE("/cart/items/:index", cartHandler.RemoveItem)
	api.GET("/categories", catalogHandler.Categories)
	api.GET("/checkout", checkoutHandler.Get)
	api.POST("/checkout/dialog/open", checkoutHandler.OpenDialog)
	api.POST("/checkout/dialog/select", checkoutHandler.SelectAddress)
	api.POST("/checkout/dialog/confirm", checkoutHandler.ConfirmDialog)
	api.POST("/checkout/dialog/cancel", checkoutHandler.CancelDialog)
	api.POST("/checkout/dialog/add", checkoutHandler.AddAddress)
	api.POST("/checkout/dialog/edit/:id", checkoutHandler.EditAddress)
	api.POST("/checkout/dialog/save", checkoutHandler.SaveAddress)
	api.DELETE("/checkout/addresses/:id", checkoutHandler.DeleteAddress)
	api.POST("/checkout/editor/province", checkoutHandler.SelectProvince)
	api.POST("/checkout/editor/district", checkoutHandler.SelectDistrict)
	api.POST("/checkout/editor/ward", checkoutHandler.SelectWard)
	api.PUT("/checkout/editor/fields", checkoutHandler.SetEditorFields)
	api.POST("/checkout/coupon", checkoutHandler.ApplyCoupon)
	api.DELETE("/checkout/coupon", checkoutHandler.ClearCoupon)
	api.POST("/checkout/pay", checkoutHandler.Pay)
	api.GET("/checkout/handoff/:token", checkoutHandler.GetHandoff)
	api.POST("/session/end", sessionHandler.End)
	env.engine = r
	return env
}

// do sends a request as the shopper holding token; an empty token sends none
func (e *testEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func lineItem(id string, price int64, qty int) cart.LineItem {
	return cart.LineItem{
		ProductID:       id,
		Name:            "Item " + id,
		UnitPrice:       decimal.NewFromInt(price),
		Quantity:        qty,
		Size:            "M",
		AvailableSizes:  []string{"M", "L"},
		Color:           "red",
		AvailableColors: []string{"red", "blue"},
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
