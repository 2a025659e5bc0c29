package entities

import "constellations/domain/core/valueobjects"

// Link connects a person and a thing.
type Link struct {
	ID       valueobjects.LinkID
	SourceID valueobjects.NodeID
	TargetID valueobjects.NodeID
	Label    string
}

// NewLink creates a link, deriving the id from the endpoints when empty.
func NewLink(id valueobjects.LinkID, source, target valueobjects.NodeID, label string) *Link {
	if id == "" {
		id = valueobjects.DeriveLinkID(source, target)
	}
	return &Link{ID: id, SourceID: source, TargetID: target, Label: label}
}

// Touches reports whether id is one of the endpoints.
func (l *Link) Touches(id valueobjects.NodeID) bool {
	return l.SourceID == id || l.TargetID == id
}

// Other returns the endpoint opposite id.
func (l *Link) Other(id valueobjects.NodeID) valueobjects.NodeID {
	if l.SourceID == id {
		return l.TargetID
	}
	return l.SourceID
}

// Connects reports whether the link joins a and b in either direction.
func (l *Link) Connects(a, b valueobjects.NodeID) bool {
	return (l.SourceID == a && l.TargetID == b) || (l.SourceID == b && l.TargetID == a)
}

// Clone returns an independent copy.
func (l *Link) Clone() *Link {
	cp := *l
	return &cp
}
