package valueobjects

import (
	"strings"

	pkgerrors "constellations/pkg/errors"
)

// NodeID is the stable key the data collaborator assigns to a node.
type NodeID string

// NewNodeID creates a NodeID from an existing string
func NewNodeID(id string) (NodeID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", pkgerrors.NewValidationError("node ID cannot be empty")
	}
	return NodeID(id), nil
}

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return string(id)
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id == ""
}

// LinkID identifies a link. Snapshots may omit it, in which case it is
// derived from the endpoints.
type LinkID string

// DeriveLinkID builds the identity used for links that arrive without one.
func DeriveLinkID(source, target NodeID) LinkID {
	return LinkID(string(source) + "->" + string(target))
}

// String returns the string representation of the LinkID
func (id LinkID) String() string {
	return string(id)
}
