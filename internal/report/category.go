// Package report holds the report draft, its lifecycle controller, and the
// authenticity evaluation applied before submission.
package report

import "strings"

// Category is a civic issue category. The zero value is CategoryUnknown,
// meaning no category has been chosen yet.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryPothole
	CategoryGarbage
	CategoryStreetlight
	CategoryOther
)

var categoryNames = map[Category]string{
	CategoryPothole:     "Pothole",
	CategoryGarbage:     "Garbage",
	CategoryStreetlight: "Streetlight",
	CategoryOther:       "Other",
}

// String returns the display and wire form of the category.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return ""
}

// Known reports whether a category has been chosen.
func (c Category) Known() bool {
	_, ok := categoryNames[c]
	return ok
}

// ParseCategory maps a category name back to its value. Matching is
// case-insensitive. Unrecognized names yield CategoryUnknown and false.
func ParseCategory(s string) (Category, bool) {
	for c, name := range categoryNames {
		if strings.EqualFold(s, name) {
			return c, true
		}
	}
	return CategoryUnknown, false
}

// Categories returns all selectable categories in display order.
func Categories() []Category {
	return []Category{CategoryPothole, CategoryGarbage, CategoryStreetlight, CategoryOther}
}
