package address

import (
	"github.com/storefront/checkout/internal/domain/shared"
)

// Mode is the editor state
type Mode int

const (
	ModeIdle Mode = iota
	ModeEditingNew
	ModeEditingExisting
)

// String returns the mode name used in view models
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeEditingNew:
		return "editing_new"
	case ModeEditingExisting:
		return "editing_existing"
	}
	return "unknown"
}

// Editor stages the fields of a new or existing address.
//
//	Idle → EditingNew → Idle
//	Idle → EditingExisting(id) → Idle
//
// Leaving through Cancel restores the staged fields to empty (with the
// default receiver phone) or to the pre-edit address.
type Editor struct {
	mode         Mode
	targetID     string
	original     Fields
	defaultPhone string

	regions       Selection
	street        string
	receiverName  string
	receiverPhone string
}

// Mode returns the current editor state
func (e *Editor) Mode() Mode {
	return e.mode
}

// Editing reports whether the editor is not idle
func (e *Editor) Editing() bool {
	return e.mode != ModeIdle
}

// TargetID returns the id of the address being edited, empty unless
// EditingExisting.
func (e *Editor) TargetID() string {
	return e.targetID
}

// BeginNew enters EditingNew with empty fields and the receiver phone set to
// defaultPhone.
func (e *Editor) BeginNew(defaultPhone string) error {
	if e.Editing() {
		return e.busy()
	}
	e.defaultPhone = defaultPhone
	e.clear()
	e.mode = ModeEditingNew
	return nil
}

// BeginEdit enters EditingExisting for addr with its saved values staged.
// Region levels are restored by name; callers attach option lists afterwards.
func (e *Editor) BeginEdit(addr Address) error {
	if e.Editing() {
		return e.busy()
	}
	e.mode = ModeEditingExisting
	e.targetID = addr.ID
	e.original = addr.Fields
	e.load(addr.Fields)
	return nil
}

// Regions exposes the cascading selection while editing
func (e *Editor) Regions() (*Selection, error) {
	if !e.Editing() {
		return nil, e.idle()
	}
	return &e.regions, nil
}

// SetStreet stages the street line
func (e *Editor) SetStreet(v string) error {
	if !e.Editing() {
		return e.idle()
	}
	e.street = v
	return nil
}

// SetReceiverName stages the receiver name
func (e *Editor) SetReceiverName(v string) error {
	if !e.Editing() {
		return e.idle()
	}
	e.receiverName = v
	return nil
}

// SetReceiverPhone stages the receiver phone
func (e *Editor) SetReceiverPhone(v string) error {
	if !e.Editing() {
		return e.idle()
	}
	e.receiverPhone = v
	return nil
}

// Draft returns the staged fields
func (e *Editor) Draft() Fields {
	province, district, ward := e.regions.Names()
	return Fields{
		Province:      province,
		District:      district,
		Ward:          ward,
		Street:        e.street,
		ReceiverName:  e.receiverName,
		ReceiverPhone: e.receiverPhone,
	}
}

// Cancel discards staged edits and returns to Idle
func (e *Editor) Cancel() {
	switch e.mode {
	case ModeEditingExisting:
		e.load(e.original)
	default:
		e.clear()
	}
	e.mode = ModeIdle
	e.targetID = ""
	e.original = Fields{}
}

// Finish returns to Idle after a successful save
func (e *Editor) Finish() {
	e.clear()
	e.mode = ModeIdle
	e.targetID = ""
	e.original = Fields{}
}

// Reset returns the editor to its zero state, forgetting the default phone
func (e *Editor) Reset() {
	*e = Editor{}
}

func (e *Editor) clear() {
	e.regions.Reset()
	e.street = ""
	e.receiverName = ""
	e.receiverPhone = e.defaultPhone
}

func (e *Editor) load(f Fields) {
	e.regions.Restore(f.Province, f.District, f.Ward)
	e.street = f.Street
	e.receiverName = f.ReceiverName
	e.receiverPhone = f.ReceiverPhone
}

func (e *Editor) busy() error {
	return shared.NewDomainError(shared.KindInvalidState, "EDITOR_BUSY", "An address is already being edited")
}

func (e *Editor) idle() error {
	return shared.NewDomainError(shared.KindInvalidState, "EDITOR_IDLE", "No address is being edited")
}
