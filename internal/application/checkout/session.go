package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	addressapp "github.com/storefront/checkout/internal/application/address"
	cartapp "github.com/storefront/checkout/internal/application/cart"
	appshared "github.com/storefront/checkout/internal/application/shared"
	"github.com/storefront/checkout/internal/domain/address"
	"github.com/storefront/checkout/internal/domain/identity"
	"github.com/storefront/checkout/internal/domain/pricing"
	"github.com/storefront/checkout/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultHandoffTTL is how long a payment handoff stays retrievable
const DefaultHandoffTTL = 30 * time.Minute

// Options tunes a Session
type Options struct {
	HandoffTTL time.Duration
	Now        func() time.Time
}

type phase int

const (
	phaseIdle phase = iota
	phaseLoading
	phaseReady
)

// Session composes the cart store, the address book and the pricing engine
// into the checkout screen state machine:
//
//	Idle → Loading → Ready ⇄ AddressDialog(picker | editor)
//
// The session is the only owner of its cart and address book. Remote results
// that arrive after End or a later Start are dropped.
type Session struct {
	mu       sync.Mutex
	cart     *cartapp.Store
	book     *addressapp.Book
	engine   *pricing.Engine
	handoffs HandoffStore
	opts     Options
	gen      appshared.Generation
	logger   *zap.Logger

	user   *identity.User
	phase  phase
	dialog DialogMode
	chosen *address.Address
	temp   *address.Address
	coupon *pricing.Coupon
}

// NewSession creates an idle session
func NewSession(
	cartStore *cartapp.Store,
	book *addressapp.Book,
	engine *pricing.Engine,
	handoffs HandoffStore,
	opts Options,
	logger *zap.Logger,
) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HandoffTTL <= 0 {
		opts.HandoffTTL = DefaultHandoffTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{
		cart:     cartStore,
		book:     book,
		engine:   engine,
		handoffs: handoffs,
		opts:     opts,
		logger:   logger,
	}
}

// Start loads the cart and address book of user and chooses the first
// address in server order. An absent user ends the session. When a load
// fails the session stays in Loading and Start may be retried.
func (s *Session) Start(ctx context.Context, user *identity.User) error {
	if !user.Present() {
		s.End()
		return nil
	}

	s.mu.Lock()
	reqCtx, ticket, stop := s.gen.Begin(ctx)
	u := *user
	s.user = &u
	s.phase = phaseLoading
	s.dialog = DialogClosed
	s.book.Cancel()
	s.chosen, s.temp = nil, nil
	s.mu.Unlock()
	defer stop()

	// End or a later Start cancels reqCtx; the address book is then left alone.
	cartErr := s.cart.Hydrate(reqCtx, user)
	var bookErr error
	if reqCtx.Err() == nil {
		bookErr = s.book.Hydrate(reqCtx, user)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !ticket.Valid() {
		s.logger.Debug("Discarding stale checkout start", zap.String("user", user.Key()))
		return nil
	}
	if err := errors.Join(cartErr, bookErr); err != nil {
		s.logger.Warn("Checkout session failed to load", zap.String("user", user.Key()), zap.Error(err))
		return err
	}

	if list := s.book.Addresses(); len(list) > 0 {
		first := list[0]
		s.chosen = &first
	}
	s.temp = clone(s.chosen)
	s.phase = phaseReady
	s.logger.Info("Checkout session ready",
		zap.String("user", user.Key()),
		zap.Int("items", s.cart.Len()),
		zap.Bool("has_address", s.chosen != nil),
	)
	return nil
}

// End resets the session after sign-out, dropping in-flight requests
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen.Advance()
	s.cart.Reset()
	s.book.Reset()
	s.user = nil
	s.phase = phaseIdle
	s.dialog = DialogClosed
	s.chosen, s.temp = nil, nil
	s.coupon = nil
}

// User returns the signed-in user of the session, nil when idle
func (s *Session) User() *identity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// State returns the current screen state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// OpenAddressDialog opens the picker with the chosen address staged. With no
// saved addresses the editor opens directly on a new address.
func (s *Session) OpenAddressDialog(ctx context.Context) error {
	s.mu.Lock()
	if err := s.requirePhaseLocked(phaseReady); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.dialog != DialogClosed {
		s.mu.Unlock()
		return invalidState("Address dialog is already open")
	}
	if len(s.book.Addresses()) > 0 {
		s.dialog = DialogPicker
		s.temp = clone(s.chosen)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	return s.enterEditor(func() error { return s.book.BeginNew(ctx) })
}

// SelectAddress stages the saved address id in the picker
func (s *Session) SelectAddress(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireDialogLocked(DialogPicker); err != nil {
		return err
	}
	a, ok := s.book.Find(id)
	if !ok {
		return shared.NewValidationError(shared.ErrUnknownAddress.Code,
			fmt.Sprintf("Address %q not found", id), "id")
	}
	s.temp = &a
	return nil
}

// ConfirmAddressSelection commits the staged address and closes the dialog.
// Without a staged address it fails with NoAddressSelected and the dialog
// stays open.
func (s *Session) ConfirmAddressSelection() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireDialogLocked(DialogPicker); err != nil {
		return err
	}
	if s.temp == nil {
		return shared.ErrNoAddressSelected
	}
	s.chosen = clone(s.temp)
	s.dialog = DialogClosed
	s.logger.Debug("Address chosen", zap.String("address_id", s.chosen.ID))
	return nil
}

// CancelDialog backs out of the current dialog mode. The editor returns to
// the picker, discarding staged edits; the picker closes the dialog and
// drops the staged selection.
func (s *Session) CancelDialog() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.dialog {
	case DialogEditor:
		s.book.Cancel()
		if len(s.book.Addresses()) == 0 {
			s.dialog = DialogClosed
		} else {
			s.dialog = DialogPicker
		}
	case DialogPicker:
		s.dialog = DialogClosed
		s.temp = clone(s.chosen)
	default:
		return invalidState("Address dialog is not open")
	}
	return nil
}

// StartNewAddress switches the picker to the editor on a new address
func (s *Session) StartNewAddress(ctx context.Context) error {
	if err := s.requireDialog(DialogPicker); err != nil {
		return err
	}
	return s.enterEditor(func() error { return s.book.BeginNew(ctx) })
}

// EditAddress switches the picker to the editor on the saved address id
func (s *Session) EditAddress(ctx context.Context, id string) error {
	if err := s.requireDialog(DialogPicker); err != nil {
		return err
	}
	return s.enterEditor(func() error { return s.book.BeginEdit(ctx, id) })
}

// SelectProvince selects a province in the editor
func (s *Session) SelectProvince(ctx context.Context, code string) error {
	if err := s.requireDialog(DialogEditor); err != nil {
		return err
	}
	return s.book.SelectProvince(ctx, code)
}

// SelectDistrict selects a district in the editor
func (s *Session) SelectDistrict(ctx context.Context, code string) error {
	if err := s.requireDialog(DialogEditor); err != nil {
		return err
	}
	return s.book.SelectDistrict(ctx, code)
}

// SelectWard selects a ward in the editor
func (s *Session) SelectWard(code string) error {
	if err := s.requireDialog(DialogEditor); err != nil {
		return err
	}
	return s.book.SelectWard(code)
}

// EditorFields holds the optional free-text editor inputs
type EditorFields struct {
	Street        *string
	ReceiverName  *string
	ReceiverPhone *string
}

// SetEditorFields stages the given free-text fields in the editor
func (s *Session) SetEditorFields(f EditorFields) error {
	if err := s.requireDialog(DialogEditor); err != nil {
		return err
	}
	if f.Street != nil {
		if err := s.book.SetStreet(*f.Street); err != nil {
			return err
		}
	}
	if f.ReceiverName != nil {
		if err := s.book.SetReceiverName(*f.ReceiverName); err != nil {
			return err
		}
	}
	if f.ReceiverPhone != nil {
		if err := s.book.SetReceiverPhone(*f.ReceiverPhone); err != nil {
			return err
		}
	}
	return nil
}

// SaveAddress submits the editor. On success the picker shows the refreshed
// list with the saved address staged; on failure the editor stays open.
func (s *Session) SaveAddress(ctx context.Context) (address.Address, error) {
	if err := s.requireDialog(DialogEditor); err != nil {
		return address.Address{}, err
	}
	saved, err := s.book.Save(ctx)
	if err != nil {
		return address.Address{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dialog == DialogEditor {
		s.dialog = DialogPicker
	}
	s.temp = &saved
	s.reconcileLocked()
	return saved, nil
}

// DeleteAddress deletes a saved address from the picker. If the chosen or
// staged address was deleted it falls back to the first remaining address,
// or none.
func (s *Session) DeleteAddress(ctx context.Context, id string) error {
	if err := s.requireDialog(DialogPicker); err != nil {
		return err
	}
	if err := s.book.DeleteAddress(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconcileLocked()
	return nil
}

// ApplyCoupon validates and applies a coupon to the order
func (s *Session) ApplyCoupon(code string, kind pricing.CouponKind, value decimal.Decimal) error {
	c, err := pricing.NewCoupon(code, kind, value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupon = c
	return nil
}

// ClearCoupon removes the applied coupon
func (s *Session) ClearCoupon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupon = nil
}

// SetQuantity sets the quantity of the line item at index
func (s *Session) SetQuantity(index, quantity int) error {
	return s.cart.SetQuantity(index, quantity)
}

// SetSize sets the size of the line item at index
func (s *Session) SetSize(index int, size string) error {
	return s.cart.SetSize(index, size)
}

// SetColor sets the color of the line item at index
func (s *Session) SetColor(index int, color string) error {
	return s.cart.SetColor(index, color)
}

// RemoveItem removes the line item at index
func (s *Session) RemoveItem(index int) error {
	return s.cart.RemoveItem(index)
}

// ProceedToPayment snapshots the order into a handoff for the payment screen.
// It requires a closed dialog, a chosen address and a non-empty cart whose
// line items all pass validation.
func (s *Session) ProceedToPayment(ctx context.Context) (*Handoff, error) {
	s.mu.Lock()
	if err := s.requirePhaseLocked(phaseReady); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.dialog != DialogClosed {
		s.mu.Unlock()
		return nil, invalidState("Close the address dialog before proceeding")
	}
	if s.chosen == nil {
		s.mu.Unlock()
		return nil, shared.ErrNoAddressSelected
	}
	chosen, coupon, subject := *s.chosen, s.coupon, s.user.Key()
	s.mu.Unlock()

	items := s.cart.Items()
	if len(items) == 0 {
		return nil, shared.ErrEmptyCart
	}
	if err := s.cart.Validate(); err != nil {
		return nil, err
	}

	breakdown := s.engine.Compute(items, coupon)
	if breakdown.Clamped() {
		s.logger.Warn("Order total clamped to zero", zap.String("user", subject), zap.Error(breakdown.Warning))
	}
	h := &Handoff{
		Token:       uuid.NewString(),
		UserSubject: subject,
		Address:     chosen,
		Items:       items,
		Breakdown:   breakdown,
		Clamped:     breakdown.Clamped(),
		Coupon:      coupon,
		CreatedAt:   s.opts.Now().UTC(),
	}
	if err := s.handoffs.Save(ctx, h, s.opts.HandoffTTL); err != nil {
		s.logger.Error("Failed to store payment handoff", zap.String("user", subject), zap.Error(err))
		return nil, fmt.Errorf("store payment handoff: %w", err)
	}

	s.logger.Info("Payment handoff created",
		zap.String("user", subject),
		zap.String("token", h.Token),
		zap.String("total", breakdown.Total.String()),
	)
	return h, nil
}

// CartSummary returns the cart items with their price breakdown
func (s *Session) CartSummary() CartSummary {
	s.mu.Lock()
	coupon := s.coupon
	s.mu.Unlock()

	items := s.cart.Items()
	return CartSummary{
		Items:     items,
		ItemCount: len(items),
		Breakdown: s.engine.Compute(items, coupon),
	}
}

// View builds the current view model
func (s *Session) View() ViewModel {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.cart.Items()
	vm := ViewModel{
		State:     s.stateLocked(),
		Items:     items,
		ItemCount: len(items),
		Breakdown: s.engine.Compute(items, s.coupon),
		Coupon:    s.coupon,
		Chosen:    clone(s.chosen),
		Temp:      clone(s.temp),
		Addresses: s.book.Addresses(),
		Dialog: DialogView{
			Mode:   s.dialog,
			Editor: s.book.Editor(),
		},
	}
	vm.CanProceed = vm.State == StateReady && vm.Chosen != nil && len(items) > 0
	return vm
}

func (s *Session) stateLocked() State {
	switch {
	case s.phase == phaseIdle:
		return StateIdle
	case s.phase == phaseLoading:
		return StateLoading
	case s.dialog != DialogClosed:
		return StateAddressDialog
	}
	return StateReady
}

// reconcileLocked re-resolves the chosen and staged addresses against the
// refreshed list. A chosen address that no longer exists falls back to the
// first remaining one.
func (s *Session) reconcileLocked() {
	list := s.book.Addresses()
	s.chosen = resolve(s.chosen, list)
	if s.chosen == nil && len(list) > 0 {
		first := list[0]
		s.chosen = &first
	}
	s.temp = resolve(s.temp, list)
	if s.temp == nil {
		s.temp = clone(s.chosen)
	}
}

func (s *Session) enterEditor(begin func() error) error {
	err := begin()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.book.Editor().Mode != address.ModeIdle {
		s.dialog = DialogEditor
	}
	return err
}

func (s *Session) requireDialog(mode DialogMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requireDialogLocked(mode)
}

func (s *Session) requireDialogLocked(mode DialogMode) error {
	if s.dialog != mode {
		return invalidState(fmt.Sprintf("Address dialog is %s, expected %s", s.dialog, mode))
	}
	return nil
}

func (s *Session) requirePhaseLocked(p phase) error {
	if s.phase == phaseIdle {
		return shared.ErrUnauthenticated
	}
	if s.phase != p {
		return invalidState("Checkout is still loading")
	}
	return nil
}

func resolve(a *address.Address, list []address.Address) *address.Address {
	if a == nil {
		return nil
	}
	if found, ok := address.Find(list, a.ID); ok {
		return &found
	}
	return nil
}

func clone(a *address.Address) *address.Address {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

func invalidState(msg string) error {
	return shared.NewDomainError(shared.KindInvalidState, "INVALID_STATE", msg)
}
