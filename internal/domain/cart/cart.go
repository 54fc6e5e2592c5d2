package cart

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/storefront/checkout/internal/domain/shared"
)

// LineItem is one product entry in a cart with its chosen variant
type LineItem struct {
	ProductID       string          `json:"productId"`
	Name            string          `json:"name"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	Quantity        int             `json:"quantity"`
	Size            string          `json:"size,omitempty"`
	Color           string          `json:"color,omitempty"`
	AvailableSizes  []string        `json:"availableSizes,omitempty"`
	AvailableColors []string        `json:"availableColors,omitempty"`
	Image           string          `json:"image,omitempty"`
}

// Amount returns UnitPrice * Quantity
func (i LineItem) Amount() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Validate checks the line item before it is committed. Size and color are only
// checked against a non-empty available set.
func (i LineItem) Validate() error {
	if i.Quantity < 1 {
		return shared.ErrInvalidQuantity
	}
	var bad []string
	if i.Size != "" && len(i.AvailableSizes) > 0 && !slices.Contains(i.AvailableSizes, i.Size) {
		bad = append(bad, "size")
	}
	if i.Color != "" && len(i.AvailableColors) > 0 && !slices.Contains(i.AvailableColors, i.Color) {
		bad = append(bad, "color")
	}
	if len(bad) > 0 {
		return shared.NewValidationError(shared.ErrInvalidVariant.Code,
			fmt.Sprintf("%s: variant not available", i.Name), bad...)
	}
	return nil
}

func (i LineItem) clone() LineItem {
	i.AvailableSizes = slices.Clone(i.AvailableSizes)
	i.AvailableColors = slices.Clone(i.AvailableColors)
	return i
}

// Preview is the compact view used by the mini-cart
type Preview struct {
	Items     []LineItem
	Remaining int
}

// Cart is an ordered sequence of line items. Order is display order.
// The zero value is an empty cart.
type Cart struct {
	items []LineItem
}

// New creates a cart holding copies of items
func New(items []LineItem) *Cart {
	c := &Cart{items: make([]LineItem, 0, len(items))}
	for _, item := range items {
		c.items = append(c.items, item.clone())
	}
	return c
}

// Items returns a copy of the line items
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, item.clone())
	}
	return out
}

// Len returns the number of line items
func (c *Cart) Len() int {
	return len(c.items)
}

// IsEmpty reports whether the cart has no line items
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// TotalQuantity sums the quantities of all line items
func (c *Cart) TotalQuantity() int {
	total := 0
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

// Item returns a copy of the line item at index
func (c *Cart) Item(index int) (LineItem, error) {
	if err := c.checkIndex(index); err != nil {
		return LineItem{}, err
	}
	return c.items[index].clone(), nil
}

// SetQuantity sets the quantity of the line item at index
func (c *Cart) SetQuantity(index, quantity int) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	if quantity < 1 {
		return shared.ErrInvalidQuantity
	}
	c.items[index].Quantity = quantity
	return nil
}

// SetSize sets the selected size of the line item at index. The value is not
// checked against the available sizes until Validate.
func (c *Cart) SetSize(index int, size string) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	c.items[index].Size = size
	return nil
}

// SetColor sets the selected color of the line item at index
func (c *Cart) SetColor(index int, color string) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	c.items[index].Color = color
	return nil
}

// RemoveItem removes the line item at index
func (c *Cart) RemoveItem(index int) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	c.items = slices.Delete(c.items, index, index+1)
	return nil
}

// Preview returns the first n items and the number of items left out
func (c *Cart) Preview(n int) Preview {
	if n < 0 {
		n = 0
	}
	n = min(n, len(c.items))
	p := Preview{
		Items:     make([]LineItem, 0, n),
		Remaining: len(c.items) - n,
	}
	for _, item := range c.items[:n] {
		p.Items = append(p.Items, item.clone())
	}
	return p
}

// Validate checks every line item, returning the first failure
func (c *Cart) Validate() error {
	for idx, item := range c.items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("line item %d: %w", idx, err)
		}
	}
	return nil
}

func (c *Cart) checkIndex(index int) error {
	if index < 0 || index >= len(c.items) {
		return shared.NewValidationError(shared.ErrIndexOutOfRange.Code,
			fmt.Sprintf("Line item index %d out of range [0, %d)", index, len(c.items)))
	}
	return nil
}
