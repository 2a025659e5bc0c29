package valueobjects

import (
	"strings"

	pkgerrors "constellations/pkg/errors"
)

// Category is one side of the bipartite graph.
type Category string

const (
	CategoryPerson Category = "person"
	CategoryThing  Category = "thing"
)

// ParseCategory accepts the collaborator's spellings ("Person", "event", ...).
// Anything that is not a person is a thing.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "person", "people":
		return CategoryPerson, nil
	case "thing", "event", "work", "things":
		return CategoryThing, nil
	case "":
		return "", pkgerrors.NewValidationError("category cannot be empty")
	default:
		return "", pkgerrors.NewValidationError("unknown category: " + s)
	}
}

// IsPerson reports whether the category is the people side.
func (c Category) IsPerson() bool {
	return c == CategoryPerson
}

// String returns the string representation of the Category
func (c Category) String() string {
	return string(c)
}
