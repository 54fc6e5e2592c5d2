package address

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/storefront/checkout/internal/domain/shared"
)

// Fields are the user-editable parts of an address. Region levels hold
// display names, as the backend stores them.
type Fields struct {
	Province      string `json:"province" validate:"required"`
	District      string `json:"district" validate:"required"`
	Ward          string `json:"ward" validate:"required"`
	Street        string `json:"street" validate:"required"`
	ReceiverName  string `json:"receiverName" validate:"required"`
	ReceiverPhone string `json:"receiverPhone" validate:"required"`
}

// Address is a saved delivery address in the user's address book
type Address struct {
	ID string `json:"id"`
	Fields
}

// FullAddress formats the address the way the checkout summary shows it
func (a Address) FullAddress() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.Ward, a.District, a.Province} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func fieldValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Normalize trims surrounding whitespace from every field
func (f Fields) Normalize() Fields {
	return Fields{
		Province:      strings.TrimSpace(f.Province),
		District:      strings.TrimSpace(f.District),
		Ward:          strings.TrimSpace(f.Ward),
		Street:        strings.TrimSpace(f.Street),
		ReceiverName:  strings.TrimSpace(f.ReceiverName),
		ReceiverPhone: strings.TrimSpace(f.ReceiverPhone),
	}
}

// Validate requires every field to be non-blank. The returned error lists
// all missing fields in declaration order.
func (f Fields) Validate() error {
	err := fieldValidator().Struct(f.Normalize())
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return shared.NewValidationError(shared.ErrMissingFields.Code, shared.ErrMissingFields.Message, missing...)
}

// Find returns the address with id from list
func Find(list []Address, id string) (Address, bool) {
	for _, a := range list {
		if a.ID == id {
			return a, true
		}
	}
	return Address{}, false
}
