package dto

import (
	"time"

	"github.com/shopspring/decimal"
	addressapp "github.com/storefront/checkout/internal/application/address"
	"github.com/storefront/checkout/internal/application/checkout"
	"github.com/storefront/checkout/internal/domain/address"
	"github.com/storefront/checkout/internal/domain/cart"
	"github.com/storefront/checkout/internal/domain/pricing"
)

// UpdateLineItemRequest changes the quantity or variant of a line item.
// Absent fields are left unchanged.
type UpdateLineItemRequest struct {
	Quantity *int    `json:"quantity"`
	Size     *string `json:"size"`
	Color    *string `json:"color"`
}

// SelectAddressRequest stages an address in the picker
type SelectAddressRequest struct {
	ID string `json:"id" binding:"required"`
}

// RegionRequest selects a region by code
type RegionRequest struct {
	Code string `json:"code" binding:"required"`
}

// EditorFieldsRequest sets free-text editor fields. Absent fields are left
// unchanged.
type EditorFieldsRequest struct {
	Street        *string `json:"street"`
	ReceiverName  *string `json:"receiverName"`
	ReceiverPhone *string `json:"receiverPhone"`
}

// ToEditorFields converts the request to the session's field update
func (r EditorFieldsRequest) ToEditorFields() checkout.EditorFields {
	return checkout.EditorFields{
		Street:        r.Street,
		ReceiverName:  r.ReceiverName,
		ReceiverPhone: r.ReceiverPhone,
	}
}

// CouponRequest applies a coupon
type CouponRequest struct {
	Code  string          `json:"code" binding:"required"`
	Kind  string          `json:"kind" binding:"required,oneof=percentage fixed"`
	Value decimal.Decimal `json:"value"`
}

// BreakdownResponse is a price breakdown
type BreakdownResponse struct {
	pricing.Breakdown
	Clamped bool `json:"clamped"`
}

// ToBreakdownResponse converts a breakdown
func ToBreakdownResponse(b pricing.Breakdown) BreakdownResponse {
	return BreakdownResponse{Breakdown: b, Clamped: b.Clamped()}
}

// MiniCartResponse is the header cart preview
type MiniCartResponse struct {
	Items     []cart.LineItem `json:"items"`
	Remaining int             `json:"remaining"`
	Count     int             `json:"count"`
}

// ToMiniCartResponse converts a preview. count is the full number of line items.
func ToMiniCartResponse(p cart.Preview, count int) MiniCartResponse {
	items := p.Items
	if items == nil {
		items = []cart.LineItem{}
	}
	return MiniCartResponse{Items: items, Remaining: p.Remaining, Count: count}
}

// CartResponse is the cart page
type CartResponse struct {
	Items     []cart.LineItem   `json:"items"`
	ItemCount int               `json:"itemCount"`
	Breakdown BreakdownResponse `json:"breakdown"`
}

// ToCartResponse converts a cart summary
func ToCartResponse(s checkout.CartSummary) CartResponse {
	return CartResponse{
		Items:     nonNilItems(s.Items),
		ItemCount: s.ItemCount,
		Breakdown: ToBreakdownResponse(s.Breakdown),
	}
}

// AddressResponse is a saved address
type AddressResponse struct {
	address.Address
	FullAddress string `json:"fullAddress"`
}

// ToAddressResponse converts an address; nil stays nil
func ToAddressResponse(a *address.Address) *AddressResponse {
	if a == nil {
		return nil
	}
	return &AddressResponse{Address: *a, FullAddress: a.FullAddress()}
}

// EditorResponse is the address editor
type EditorResponse struct {
	Mode             string           `json:"mode"`
	TargetID         string           `json:"targetId,omitempty"`
	Draft            address.Fields   `json:"draft"`
	Provinces        []address.Region `json:"provinces"`
	Districts        []address.Region `json:"districts"`
	Wards            []address.Region `json:"wards"`
	SelectedProvince *address.Region  `json:"selectedProvince,omitempty"`
	SelectedDistrict *address.Region  `json:"selectedDistrict,omitempty"`
	SelectedWard     *address.Region  `json:"selectedWard,omitempty"`
}

// ToEditorResponse converts an editor snapshot
func ToEditorResponse(v addressapp.EditorView) EditorResponse {
	return EditorResponse{
		Mode:             v.Mode.String(),
		TargetID:         v.TargetID,
		Draft:            v.Draft,
		Provinces:        nonNilRegions(v.Options[address.LevelProvince]),
		Districts:        nonNilRegions(v.Options[address.LevelDistrict]),
		Wards:            nonNilRegions(v.Options[address.LevelWard]),
		SelectedProvince: v.Selected[address.LevelProvince],
		SelectedDistrict: v.Selected[address.LevelDistrict],
		SelectedWard:     v.Selected[address.LevelWard],
	}
}

// DialogResponse is the address dialog. Editor is only set in editor mode.
type DialogResponse struct {
	Mode   string          `json:"mode"`
	Editor *EditorResponse `json:"editor,omitempty"`
}

// CheckoutResponse is the checkout screen view model
type CheckoutResponse struct {
	State      string            `json:"state"`
	Items      []cart.LineItem   `json:"items"`
	ItemCount  int               `json:"itemCount"`
	Breakdown  BreakdownResponse `json:"breakdown"`
	Coupon     *pricing.Coupon   `json:"coupon,omitempty"`
	Chosen     *AddressResponse  `json:"chosenAddress"`
	Temp       *AddressResponse  `json:"tempAddress"`
	Addresses  []AddressResponse `json:"addresses"`
	Dialog     DialogResponse    `json:"dialog"`
	CanProceed bool              `json:"canProceed"`
}

// ToCheckoutResponse converts a view model
func ToCheckoutResponse(vm checkout.ViewModel) CheckoutResponse {
	addresses := make([]AddressResponse, 0, len(vm.Addresses))
	for i := range vm.Addresses {
		addresses = append(addresses, *ToAddressResponse(&vm.Addresses[i]))
	}
	dialog := DialogResponse{Mode: vm.Dialog.Mode.String()}
	if vm.Dialog.Mode == checkout.DialogEditor {
		editor := ToEditorResponse(vm.Dialog.Editor)
		dialog.Editor = &editor
	}
	return CheckoutResponse{
		State:      vm.State.String(),
		Items:      nonNilItems(vm.Items),
		ItemCount:  vm.ItemCount,
		Breakdown:  ToBreakdownResponse(vm.Breakdown),
		Coupon:     vm.Coupon,
		Chosen:     ToAddressResponse(vm.Chosen),
		Temp:       ToAddressResponse(vm.Temp),
		Addresses:  addresses,
		Dialog:     dialog,
		CanProceed: vm.CanProceed,
	}
}

// PaymentResponse is returned when the order was handed to payment
type PaymentResponse struct {
	Token     string            `json:"token"`
	Total     decimal.Decimal   `json:"total"`
	ExpiresAt time.Time         `json:"expiresAt"`
	Breakdown BreakdownResponse `json:"breakdown"`
}

// ToPaymentResponse converts a stored handoff
func ToPaymentResponse(h *checkout.Handoff, ttl time.Duration) PaymentResponse {
	return PaymentResponse{
		Token:     h.Token,
		Total:     h.Breakdown.Total,
		ExpiresAt: h.CreatedAt.Add(ttl),
		Breakdown: handoffBreakdown(h),
	}
}

// HandoffResponse is the order snapshot read by the payment screen
type HandoffResponse struct {
	Token     string            `json:"token"`
	Address   address.Address   `json:"address"`
	Items     []cart.LineItem   `json:"items"`
	Breakdown BreakdownResponse `json:"breakdown"`
	Coupon    *pricing.Coupon   `json:"coupon,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// ToHandoffResponse converts a stored handoff
func ToHandoffResponse(h *checkout.Handoff, ttl time.Duration) HandoffResponse {
	return HandoffResponse{
		Token:     h.Token,
		Address:   h.Address,
		Items:     nonNilItems(h.Items),
		Breakdown: handoffBreakdown(h),
		Coupon:    h.Coupon,
		CreatedAt: h.CreatedAt,
		ExpiresAt: h.CreatedAt.Add(ttl),
	}
}

// A loaded handoff has lost its warning, so the stored flag wins.
func handoffBreakdown(h *checkout.Handoff) BreakdownResponse {
	return BreakdownResponse{Breakdown: h.Breakdown, Clamped: h.Clamped || h.Breakdown.Clamped()}
}

func nonNilItems(items []cart.LineItem) []cart.LineItem {
	if items == nil {
		return []cart.LineItem{}
	}
	return items
}

func nonNilRegions(regions []address.Region) []address.Region {
	if regions == nil {
		return []address.Region{}
	}
	return regions
}
