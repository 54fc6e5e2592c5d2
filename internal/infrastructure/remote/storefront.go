package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
	"github.com/storefront/checkout/internal/domain/address"
	"github.com/storefront/checkout/internal/domain/cart"
)

// Storefront is the storefront backend API used by the cart, the address book
// and the navigation chrome.
type Storefront struct {
	client *Client
}

// NewStorefront creates a Storefront on top of client
func NewStorefront(client *Client) *Storefront {
	return &Storefront{client: client}
}

// wireCartItem is a cart entry as served by get-cart
type wireCartItem struct {
	ID              string          `json:"_id"`
	ProductID       string          `json:"productId"`
	Name            string          `json:"prodName"`
	Price           decimal.Decimal `json:"prodPrice"`
	Quantity        int             `json:"prodQuantity"`
	Size            string          `json:"prodSize"`
	Color           string          `json:"prodColor"`
	Image           string          `json:"prodImage"`
	AvailableSizes  []string        `json:"availableSizes"`
	AvailableColors []string        `json:"availableColors"`
}

func (w wireCartItem) toDomain() cart.LineItem {
	id := w.ProductID
	if id == "" {
		id = w.ID
	}
	return cart.LineItem{
		ProductID:       id,
		Name:            w.Name,
		UnitPrice:       w.Price,
		Quantity:        w.Quantity,
		Size:            w.Size,
		Color:           w.Color,
		Image:           w.Image,
		AvailableSizes:  w.AvailableSizes,
		AvailableColors: w.AvailableColors,
	}
}

// wireMiniItem is a mini-cart entry as served by get-minicart
type wireMiniItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Image    string          `json:"image"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

func (w wireMiniItem) toDomain() cart.LineItem {
	return cart.LineItem{
		ProductID: w.ID,
		Name:      w.Name,
		Image:     w.Image,
		UnitPrice: w.Price,
		Quantity:  w.Quantity,
	}
}

// wireAddress is an address as stored by the backend
type wireAddress struct {
	ID string `json:"_id"`
	address.Fields
}

func (w wireAddress) toDomain() address.Address {
	return address.Address{ID: w.ID, Fields: w.Fields}
}

// FetchCart returns the shopper's full cart
func (s *Storefront) FetchCart(ctx context.Context, token string) ([]cart.LineItem, error) {
	var resp struct {
		Cart struct {
			Items []wireCartItem `json:"items"`
		} `json:"cart"`
	}
	if err := s.client.Do(ctx, Request{
		Op:     "getCart",
		Method: http.MethodGet,
		Path:   "/api/cart/get-cart",
		Token:  token,
	}, &resp); err != nil {
		return nil, err
	}

	items := make([]cart.LineItem, 0, len(resp.Cart.Items))
	for _, w := range resp.Cart.Items {
		items = append(items, w.toDomain())
	}
	return items, nil
}

// FetchMiniCart returns the compact cart shown in the header
func (s *Storefront) FetchMiniCart(ctx context.Context, token string) ([]cart.LineItem, error) {
	var resp struct {
		Items []wireMiniItem `json:"items"`
	}
	if err := s.client.Do(ctx, Request{
		Op:     "getMiniCart",
		Method: http.MethodGet,
		Path:   "/api/cart/get-minicart",
		Token:  token,
	}, &resp); err != nil {
		return nil, err
	}

	items := make([]cart.LineItem, 0, len(resp.Items))
	for _, w := range resp.Items {
		items = append(items, w.toDomain())
	}
	return items, nil
}

// ListAddresses returns the shopper's saved addresses in backend order
func (s *Storefront) ListAddresses(ctx context.Context, token string) ([]address.Address, error) {
	var resp struct {
		Data []wireAddress `json:"data"`
	}
	if err := s.client.Do(ctx, Request{
		Op:     "listAddresses",
		Method: http.MethodGet,
		Path:   "/api/user/addresses",
		Token:  token,
	}, &resp); err != nil {
		return nil, err
	}

	out := make([]address.Address, 0, len(resp.Data))
	for _, w := range resp.Data {
		out = append(out, w.toDomain())
	}
	return out, nil
}

// AddAddress creates an address. The returned Address has an empty ID when
// the backend does not echo the created record.
func (s *Storefront) AddAddress(ctx context.Context, token string, fields address.Fields) (address.Address, error) {
	var raw json.RawMessage
	if err := s.client.Do(ctx, Request{
		Op:     "addAddress",
		Method: http.MethodPost,
		Path:   "/api/user/addAddress",
		Token:  token,
		Body:   fields,
	}, &raw); err != nil {
		return address.Address{}, err
	}
	return address.Address{ID: createdID(raw), Fields: fields}, nil
}

// createdID finds the new record's ID in {"data": {"_id"}} or {"_id"}
func createdID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var resp struct {
		ID   string `json:"_id"`
		Data struct {
			ID string `json:"_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ""
	}
	if resp.Data.ID != "" {
		return resp.Data.ID
	}
	return resp.ID
}

// UpdateAddress replaces the fields of address id
func (s *Storefront) UpdateAddress(ctx context.Context, token, id string, fields address.Fields) error {
	return s.client.Do(ctx, Request{
		Op:     "updateAddress",
		Method: http.MethodPut,
		Path:   "/api/user/updateAddress/" + url.PathEscape(id),
		Token:  token,
		Body:   fields,
	}, nil)
}

// DeleteAddress removes address id
func (s *Storefront) DeleteAddress(ctx context.Context, token, id string) error {
	return s.client.Do(ctx, Request{
		Op:     "deleteAddress",
		Method: http.MethodDelete,
		Path:   "/api/user/deleteAddress/" + url.PathEscape(id),
		Token:  token,
	}, nil)
}

// Categories returns the product category names
func (s *Storefront) Categories(ctx context.Context) ([]string, error) {
	var resp struct {
		Data []string `json:"data"`
	}
	if err := s.client.Do(ctx, Request{
		Op:     "getCategories",
		Method: http.MethodGet,
		Path:   "/api/product/get-categories",
	}, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
