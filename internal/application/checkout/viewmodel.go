package checkout

import (
	addressapp "github.com/storefront/checkout/internal/application/address"
	"github.com/storefront/checkout/internal/domain/address"
	"github.com/storefront/checkout/internal/domain/cart"
	"github.com/storefront/checkout/internal/domain/pricing"
)

// State is the checkout screen state
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateAddressDialog
)

// String returns the state name used in view models
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateAddressDialog:
		return "address_dialog"
	}
	return "unknown"
}

// DialogMode is the sub-mode of the address dialog
type DialogMode int

const (
	DialogClosed DialogMode = iota
	DialogPicker
	DialogEditor
)

// String returns the dialog mode name used in view models
func (m DialogMode) String() string {
	switch m {
	case DialogClosed:
		return "closed"
	case DialogPicker:
		return "picker"
	case DialogEditor:
		return "editor"
	}
	return "unknown"
}

// DialogView describes the address dialog
type DialogView struct {
	Mode   DialogMode
	Editor addressapp.EditorView
}

// ViewModel is the read-only state the checkout screen renders. It is built
// fresh on every read; callers dispatch intents on the Session instead of
// mutating it.
type ViewModel struct {
	State      State
	Items      []cart.LineItem
	ItemCount  int
	Breakdown  pricing.Breakdown
	Coupon     *pricing.Coupon
	Chosen     *address.Address
	Temp       *address.Address
	Addresses  []address.Address
	Dialog     DialogView
	CanProceed bool
}

// CartSummary is the cart page view: the items and their breakdown
type CartSummary struct {
	Items     []cart.LineItem
	ItemCount int
	Breakdown pricing.Breakdown
}
