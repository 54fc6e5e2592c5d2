package address

import (
	"context"
	"fmt"
	"slices"
	"sync"

	appshared "github.com/storefront/checkout/internal/application/shared"
	"github.com/storefront/checkout/internal/domain/address"
	"github.com/storefront/checkout/internal/domain/identity"
	"github.com/storefront/checkout/internal/domain/shared"
	"go.uber.org/zap"
)

// Backend is the address part of the storefront API
type Backend interface {
	ListAddresses(ctx context.Context, token string) ([]address.Address, error)
	AddAddress(ctx context.Context, token string, fields address.Fields) (address.Address, error)
	UpdateAddress(ctx context.Context, token, id string, fields address.Fields) error
	DeleteAddress(ctx context.Context, token, id string) error
}

// Directory looks up the region hierarchy
type Directory interface {
	Provinces(ctx context.Context) ([]address.Region, error)
	Districts(ctx context.Context, provinceCode string) ([]address.Region, error)
	Wards(ctx context.Context, districtCode string) ([]address.Region, error)
}

// EditorView is a read-only snapshot of the address editor
type EditorView struct {
	Mode     address.Mode
	TargetID string
	Draft    address.Fields
	Options  [3][]address.Region
	Selected [3]*address.Region
}

// Book is the signed-in user's address book together with the address
// editor. Every mutation re-fetches the list from the server; there is no
// local merge.
type Book struct {
	mu        sync.Mutex
	backend   Backend
	directory Directory
	gen       appshared.Generation
	user      *identity.User
	addresses []address.Address
	editor    address.Editor
	logger    *zap.Logger
}

// NewBook creates an empty Book
func NewBook(backend Backend, directory Directory, logger *zap.Logger) *Book {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Book{
		backend:   backend,
		directory: directory,
		logger:    logger,
	}
}

// Hydrate loads the address list of user, or clears the book when user is
// absent. A later Hydrate or Reset discards the result of an earlier one, and
// a cancelled ctx leaves the book untouched.
func (b *Book) Hydrate(ctx context.Context, user *identity.User) error {
	b.mu.Lock()
	if !user.Present() {
		b.resetLocked()
		b.mu.Unlock()
		return nil
	}
	if err := ctx.Err(); err != nil {
		b.mu.Unlock()
		return err
	}
	reqCtx, ticket, stop := b.gen.Begin(ctx)
	if b.user.Key() != user.Key() {
		b.addresses = nil
		b.editor.Reset()
	}
	u := *user
	b.user = &u
	b.mu.Unlock()
	defer stop()

	list, err := b.backend.ListAddresses(reqCtx, u.Token)
	return b.applyList(ticket, list, err)
}

// ListAddresses hydrates the book for user and returns its addresses. An
// absent user yields an empty list.
func (b *Book) ListAddresses(ctx context.Context, user *identity.User) ([]address.Address, error) {
	if err := b.Hydrate(ctx, user); err != nil {
		return nil, err
	}
	return b.Addresses(), nil
}

// Addresses returns a copy of the loaded addresses in server order
func (b *Book) Addresses() []address.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.addresses)
}

// Find returns the loaded address with id
func (b *Book) Find(id string) (address.Address, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return address.Find(b.addresses, id)
}

// Reset clears the book and discards in-flight requests
func (b *Book) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
}

func (b *Book) resetLocked() {
	b.gen.Advance()
	b.user = nil
	b.addresses = nil
	b.editor.Reset()
}

// AddAddress saves a new address and returns it as listed after re-fetch
func (b *Book) AddAddress(ctx context.Context, fields address.Fields) (address.Address, error) {
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return address.Address{}, err
	}
	reqCtx, ticket, token, stop, err := b.join(ctx)
	if err != nil {
		return address.Address{}, err
	}
	defer stop()

	created, err := b.backend.AddAddress(reqCtx, token, fields)
	if err != nil {
		b.logger.Warn("Failed to add address", zap.Error(err))
		return address.Address{}, err
	}
	if err := b.refresh(reqCtx, ticket, token); err != nil {
		return address.Address{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if created.ID != "" {
		if a, ok := address.Find(b.addresses, created.ID); ok {
			return a, nil
		}
	}
	// the backend may not echo the new id; take the last entry with the same fields
	for i := len(b.addresses) - 1; i >= 0; i-- {
		if b.addresses[i].Fields == fields {
			return b.addresses[i], nil
		}
	}
	return address.Address{ID: created.ID, Fields: fields}, nil
}

// UpdateAddress overwrites the address with id and returns it as listed after
// re-fetch.
func (b *Book) UpdateAddress(ctx context.Context, id string, fields address.Fields) (address.Address, error) {
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return address.Address{}, err
	}
	if err := b.requireKnown(id); err != nil {
		return address.Address{}, err
	}
	reqCtx, ticket, token, stop, err := b.join(ctx)
	if err != nil {
		return address.Address{}, err
	}
	defer stop()

	if err := b.backend.UpdateAddress(reqCtx, token, id, fields); err != nil {
		b.logger.Warn("Failed to update address", zap.String("address_id", id), zap.Error(err))
		return address.Address{}, err
	}
	if err := b.refresh(reqCtx, ticket, token); err != nil {
		return address.Address{}, err
	}
	if a, ok := b.Find(id); ok {
		return a, nil
	}
	return address.Address{ID: id, Fields: fields}, nil
}

// DeleteAddress removes the address with id and re-fetches the list
func (b *Book) DeleteAddress(ctx context.Context, id string) error {
	if err := b.requireKnown(id); err != nil {
		return err
	}
	reqCtx, ticket, token, stop, err := b.join(ctx)
	if err != nil {
		return err
	}
	defer stop()

	if err := b.backend.DeleteAddress(reqCtx, token, id); err != nil {
		b.logger.Warn("Failed to delete address", zap.String("address_id", id), zap.Error(err))
		return err
	}
	return b.refresh(reqCtx, ticket, token)
}

// ResolveProvinces lists all provinces. While the editor is open the list
// becomes its province options.
func (b *Book) ResolveProvinces(ctx context.Context) ([]address.Region, error) {
	return b.loadLevel(ctx, address.LevelProvince, "", false)
}

// ResolveDistricts lists the districts of provinceCode. The province must be
// selected in the editor.
func (b *Book) ResolveDistricts(ctx context.Context, provinceCode string) ([]address.Region, error) {
	return b.loadLevel(ctx, address.LevelDistrict, provinceCode, false)
}

// ResolveWards lists the wards of districtCode. The district must be selected
// in the editor.
func (b *Book) ResolveWards(ctx context.Context, districtCode string) ([]address.Region, error) {
	return b.loadLevel(ctx, address.LevelWard, districtCode, false)
}

// BeginNew opens the editor for a new address with the user's phone as the
// default receiver phone, then loads the province options.
func (b *Book) BeginNew(ctx context.Context) error {
	b.mu.Lock()
	if !b.user.Present() {
		b.mu.Unlock()
		return shared.ErrUnauthenticated
	}
	if err := b.editor.BeginNew(b.user.DefaultPhone()); err != nil {
		b.mu.Unlock()
		return err
	}
	b.mu.Unlock()

	_, err := b.ResolveProvinces(ctx)
	return err
}

// BeginEdit opens the editor on the saved address id. The saved region names
// are matched against the directory so the cascade shows them selected;
// names without a match stay selected by name only.
func (b *Book) BeginEdit(ctx context.Context, id string) error {
	b.mu.Lock()
	a, ok := address.Find(b.addresses, id)
	if !ok {
		b.mu.Unlock()
		return b.unknown(id)
	}
	if err := b.editor.BeginEdit(a); err != nil {
		b.mu.Unlock()
		return err
	}
	b.mu.Unlock()

	parent := ""
	for _, level := range []address.Level{address.LevelProvince, address.LevelDistrict, address.LevelWard} {
		if _, err := b.loadLevel(ctx, level, parent, true); err != nil {
			return err
		}
		r, ok := b.selected(level)
		if !ok || r.Code == "" || level == address.LevelWard {
			break
		}
		parent = r.Code
	}
	return nil
}

// SelectProvince selects a province in the editor and loads its districts
func (b *Book) SelectProvince(ctx context.Context, code string) error {
	return b.selectAndLoad(ctx, address.LevelProvince, code)
}

// SelectDistrict selects a district in the editor and loads its wards
func (b *Book) SelectDistrict(ctx context.Context, code string) error {
	return b.selectAndLoad(ctx, address.LevelDistrict, code)
}

// SelectWard selects a ward in the editor
func (b *Book) SelectWard(code string) error {
	return b.withRegions(func(s *address.Selection) error {
		_, err := s.Select(address.LevelWard, code)
		return err
	})
}

// SetStreet stages the street line
func (b *Book) SetStreet(v string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.editor.SetStreet(v)
}

// SetReceiverName stages the receiver name
func (b *Book) SetReceiverName(v string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.editor.SetReceiverName(v)
}

// SetReceiverPhone stages the receiver phone
func (b *Book) SetReceiverPhone(v string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.editor.SetReceiverPhone(v)
}

// Save submits the editor draft as a new or updated address. On failure the
// editor stays open with the draft intact.
func (b *Book) Save(ctx context.Context) (address.Address, error) {
	b.mu.Lock()
	mode, target, draft := b.editor.Mode(), b.editor.TargetID(), b.editor.Draft()
	b.mu.Unlock()

	var (
		saved address.Address
		err   error
	)
	switch mode {
	case address.ModeEditingNew:
		saved, err = b.AddAddress(ctx, draft)
	case address.ModeEditingExisting:
		saved, err = b.UpdateAddress(ctx, target, draft)
	default:
		return address.Address{}, shared.NewDomainError(shared.KindInvalidState, "EDITOR_IDLE", "No address is being edited")
	}
	if err != nil {
		return address.Address{}, err
	}

	b.mu.Lock()
	if b.editor.Mode() == mode && b.editor.TargetID() == target {
		b.editor.Finish()
	}
	b.mu.Unlock()

	b.logger.Info("Address saved", zap.String("address_id", saved.ID), zap.String("mode", mode.String()))
	return saved, nil
}

// Cancel leaves the editor, discarding staged edits
func (b *Book) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.editor.Cancel()
}

// Editor returns a snapshot of the editor state
func (b *Book) Editor() EditorView {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := EditorView{
		Mode:     b.editor.Mode(),
		TargetID: b.editor.TargetID(),
		Draft:    b.editor.Draft(),
	}
	regions, err := b.editor.Regions()
	if err != nil {
		return v
	}
	for _, level := range []address.Level{address.LevelProvince, address.LevelDistrict, address.LevelWard} {
		v.Options[level] = regions.Options(level)
		if r, ok := regions.Selected(level); ok {
			v.Selected[level] = &r
		}
	}
	return v
}

func (b *Book) selectAndLoad(ctx context.Context, level address.Level, code string) error {
	err := b.withRegions(func(s *address.Selection) error {
		_, err := s.Select(level, code)
		return err
	})
	if err != nil {
		return err
	}
	_, err = b.loadLevel(ctx, level+1, code, false)
	return err
}

func (b *Book) withRegions(fn func(*address.Selection) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	regions, err := b.editor.Regions()
	if err != nil {
		return err
	}
	return fn(regions)
}

func (b *Book) selected(level address.Level) (address.Region, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	regions, err := b.editor.Regions()
	if err != nil {
		return address.Region{}, false
	}
	return regions.Selected(level)
}

// loadLevel fetches the options of level under parentCode. District and ward
// lookups are rejected before any remote call unless the parent is selected
// in the open editor. When the parent changes while the lookup is in flight,
// or the generation advances, the result is dropped.
func (b *Book) loadLevel(ctx context.Context, level address.Level, parentCode string, attach bool) ([]address.Region, error) {
	b.mu.Lock()
	if level > address.LevelProvince {
		if err := b.requireParentLocked(level, parentCode); err != nil {
			b.mu.Unlock()
			return nil, err
		}
	}
	reqCtx, ticket, stop := b.gen.Join(ctx)
	b.mu.Unlock()
	defer stop()

	var (
		list []address.Region
		err  error
	)
	switch level {
	case address.LevelProvince:
		list, err = b.directory.Provinces(reqCtx)
	case address.LevelDistrict:
		list, err = b.directory.Districts(reqCtx, parentCode)
	default:
		list, err = b.directory.Wards(reqCtx, parentCode)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !ticket.Valid() {
		b.logger.Debug("Discarding stale region lookup", zap.Stringer("level", level))
		return nil, nil
	}
	if err != nil {
		b.logger.Warn("Failed to resolve regions", zap.Stringer("level", level), zap.String("parent", parentCode), zap.Error(err))
		return nil, err
	}
	regions, rerr := b.editor.Regions()
	if rerr != nil {
		return list, nil
	}
	if err := regions.SetOptions(level, parentCode, list); err != nil {
		b.logger.Debug("Discarding region lookup for superseded parent",
			zap.Stringer("level", level), zap.String("parent", parentCode))
		return nil, nil
	}
	if attach {
		regions.Attach(level)
	}
	return list, nil
}

func (b *Book) requireParentLocked(level address.Level, parentCode string) error {
	regions, err := b.editor.Regions()
	if err != nil {
		return shared.NewDomainError(shared.KindInvalidSelectionOrder, "INVALID_SELECTION_ORDER",
			fmt.Sprintf("Select a %s before choosing a %s", level-1, level))
	}
	return regions.RequireParent(level, parentCode)
}

// join tags a request with the current generation and returns the token of
// the signed-in user.
func (b *Book) join(ctx context.Context) (context.Context, appshared.Ticket, string, context.CancelFunc, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.user.Present() {
		return nil, appshared.Ticket{}, "", nil, shared.ErrUnauthenticated
	}
	reqCtx, ticket, stop := b.gen.Join(ctx)
	return reqCtx, ticket, b.user.Token, stop, nil
}

func (b *Book) refresh(ctx context.Context, ticket appshared.Ticket, token string) error {
	list, err := b.backend.ListAddresses(ctx, token)
	return b.applyList(ticket, list, err)
}

func (b *Book) applyList(ticket appshared.Ticket, list []address.Address, err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !ticket.Valid() {
		b.logger.Debug("Discarding stale address list", zap.Uint64("generation", ticket.Seq()))
		return nil
	}
	if err != nil {
		b.logger.Warn("Failed to list addresses", zap.Error(err))
		return err
	}
	b.addresses = slices.Clone(list)
	return nil
}

func (b *Book) requireKnown(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := address.Find(b.addresses, id); !ok {
		return b.unknown(id)
	}
	return nil
}

func (b *Book) unknown(id string) error {
	return shared.NewValidationError(shared.ErrUnknownAddress.Code,
		fmt.Sprintf("Address %q not found", id), "id")
}
