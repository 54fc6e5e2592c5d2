package address

import (
	"fmt"
	"slices"

	"github.com/storefront/checkout/internal/domain/shared"
)

// Region is a province, district or ward
type Region struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Level identifies a tier of the region hierarchy
type Level int

const (
	LevelProvince Level = iota
	LevelDistrict
	LevelWard
)

// String returns the level name
func (l Level) String() string {
	switch l {
	case LevelProvince:
		return "province"
	case LevelDistrict:
		return "district"
	case LevelWard:
		return "ward"
	}
	return "unknown"
}

func findRegion(list []Region, code string) (Region, bool) {
	for _, r := range list {
		if r.Code == code {
			return r, true
		}
	}
	return Region{}, false
}

// FindByName returns the first region in list named name
func FindByName(list []Region, name string) (Region, bool) {
	for _, r := range list {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}

// Selection is the cascading province → district → ward choice with the
// option list of each level. Selecting a level clears every level below it,
// including its option list, so a district is only ever chosen from the
// currently selected province and a ward from the current district.
//
// A selected region may carry an empty code when it was restored from a saved
// address whose name did not match any option.
type Selection struct {
	options  [3][]Region
	selected [3]*Region
}

// Options returns a copy of the option list for level
func (s *Selection) Options(level Level) []Region {
	return slices.Clone(s.options[level])
}

// Selected returns the selected region at level
func (s *Selection) Selected(level Level) (Region, bool) {
	if r := s.selected[level]; r != nil {
		return *r, true
	}
	return Region{}, false
}

// SetOptions installs the option list for level. For district and ward the
// parent must be selected with parentCode, otherwise the list belongs to a
// superseded selection and InvalidSelectionOrder is returned.
func (s *Selection) SetOptions(level Level, parentCode string, options []Region) error {
	if level > LevelProvince {
		if err := s.RequireParent(level, parentCode); err != nil {
			return err
		}
	}
	s.options[level] = slices.Clone(options)
	return nil
}

// RequireParent checks that the parent of level is selected with parentCode
func (s *Selection) RequireParent(level Level, parentCode string) error {
	if level == LevelProvince {
		return nil
	}
	parent := s.selected[level-1]
	if parent == nil || parent.Code == "" || parent.Code != parentCode {
		return shared.NewDomainError(shared.KindInvalidSelectionOrder, "INVALID_SELECTION_ORDER",
			fmt.Sprintf("Select a %s before choosing a %s", level-1, level))
	}
	return nil
}

// Select chooses the region with code among the options of level and clears
// all lower levels.
func (s *Selection) Select(level Level, code string) (Region, error) {
	if level > LevelProvince && s.selected[level-1] == nil {
		return Region{}, shared.NewDomainError(shared.KindInvalidSelectionOrder, "INVALID_SELECTION_ORDER",
			fmt.Sprintf("Select a %s before choosing a %s", level-1, level))
	}
	r, ok := findRegion(s.options[level], code)
	if !ok {
		return Region{}, shared.NewValidationError(shared.ErrUnknownRegion.Code,
			fmt.Sprintf("Unknown %s %q", level, code), level.String())
	}
	s.selected[level] = &r
	s.clearBelow(level)
	return r, nil
}

// Restore selects regions by name, as saved on an existing address, without
// option lists. Lower levels are cleared as with Select.
func (s *Selection) Restore(province, district, ward string) {
	s.Reset()
	for level, name := range []string{province, district, ward} {
		if name == "" {
			break
		}
		s.selected[level] = &Region{Name: name}
	}
}

// Attach swaps a name-only selection at level for the matching option,
// giving it a code so lower levels can be resolved. It does not clear lower
// levels. It reports whether a match was found.
func (s *Selection) Attach(level Level) bool {
	cur := s.selected[level]
	if cur == nil {
		return false
	}
	r, ok := FindByName(s.options[level], cur.Name)
	if !ok {
		return false
	}
	s.selected[level] = &r
	return true
}

// Names returns the selected display names, empty where unselected
func (s *Selection) Names() (province, district, ward string) {
	names := [3]string{}
	for i, r := range s.selected {
		if r != nil {
			names[i] = r.Name
		}
	}
	return names[0], names[1], names[2]
}

// Reset clears every selection and option list except the province options,
// which do not depend on any parent.
func (s *Selection) Reset() {
	s.selected = [3]*Region{}
	s.options[LevelDistrict] = nil
	s.options[LevelWard] = nil
}

func (s *Selection) clearBelow(level Level) {
	for l := level + 1; l <= LevelWard; l++ {
		s.selected[l] = nil
		s.options[l] = nil
	}
}
