package valueobjects

import (
	"encoding/json"
	"strings"

	pkgerrors "constellations/pkg/errors"
)

// LayoutMode selects the placement philosophy of a diagram.
type LayoutMode int

const (
	ModeFreeForm LayoutMode = iota
	ModeChronological
)

// ParseLayoutMode converts a mode name into a LayoutMode.
func ParseLayoutMode(s string) (LayoutMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "freeform", "free-form", "free_form", "":
		return ModeFreeForm, nil
	case "chronological", "timeline":
		return ModeChronological, nil
	default:
		return ModeFreeForm, pkgerrors.NewValidationError("unknown layout mode: " + s)
	}
}

func (m LayoutMode) String() string {
	if m == ModeChronological {
		return "chronological"
	}
	return "freeform"
}

// IsChronological is a convenience for the common branch.
func (m LayoutMode) IsChronological() bool {
	return m == ModeChronological
}

// MarshalJSON implements json.Marshaler
func (m LayoutMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (m *LayoutMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLayoutMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
