// Package snapshot is the wire form of a node and link set as produced by
// the data collaborator.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"constellations/domain/core/entities"
	"constellations/domain/core/valueobjects"
	pkgerrors "constellations/pkg/errors"
	"constellations/pkg/utils"
)

// MaxDocumentBytes bounds a decoded snapshot.
const MaxDocumentBytes = 8 << 20

// NodeDTO is one node as sent over the wire.
type NodeDTO struct {
	ID            string   `json:"id" validate:"required,max=256"`
	Type          string   `json:"type" validate:"required"`
	Origin        bool     `json:"is_origin,omitempty"`
	Title         string   `json:"title" validate:"max=1024"`
	Description   string   `json:"description,omitempty" validate:"max=8192"`
	Year          *int     `json:"year,omitempty"`
	ImageURL      string   `json:"image_url,omitempty" validate:"max=2048"`
	Names         []string `json:"names,omitempty"`
	Loading       bool     `json:"loading,omitempty"`
	ImageFetching bool     `json:"image_fetching,omitempty"`
	ImageResolved bool     `json:"image_resolved,omitempty"`
}

// LinkDTO is one link as sent over the wire. Links may reference nodes that
// are not in the document; those are filtered by the engine.
type LinkDTO struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
	Label  string `json:"label,omitempty" validate:"max=512"`
}

// Document is a complete snapshot.
type Document struct {
	Nodes []NodeDTO `json:"nodes" validate:"dive"`
	Links []LinkDTO `json:"links" validate:"dive"`
}

// Decode reads and validates a JSON document. Input longer than
// MaxDocumentBytes is rejected before decoding.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentBytes+1))
	if err != nil {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("reading snapshot: %v", err))
	}
	if len(data) > MaxDocumentBytes {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("snapshot exceeds %d bytes", MaxDocumentBytes)).
			WithDetails(map[string]interface{}{"max_bytes": MaxDocumentBytes})
	}

	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("malformed snapshot: %v", err))
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks field constraints.
func (d *Document) Validate() error {
	if err := utils.ValidateStruct(d); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

// Entities converts the document into fresh engine entities.
func (d *Document) Entities() ([]*entities.Node, []*entities.Link, error) {
	nodes := make([]*entities.Node, 0, len(d.Nodes))
	for _, dto := range d.Nodes {
		n, err := dto.toEntity()
		if err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}

	links := make([]*entities.Link, 0, len(d.Links))
	for _, dto := range d.Links {
		links = append(links, entities.NewLink(
			valueobjects.LinkID(dto.ID),
			valueobjects.NodeID(dto.Source),
			valueobjects.NodeID(dto.Target),
			dto.Label,
		))
	}
	return nodes, links, nil
}

func (dto NodeDTO) toEntity() (*entities.Node, error) {
	id, err := valueobjects.NewNodeID(dto.ID)
	if err != nil {
		return nil, err
	}
	category, err := valueobjects.ParseCategory(dto.Type)
	if err != nil {
		return nil, err
	}

	n := entities.NewNode(id, category, dto.Title)
	n.Origin = dto.Origin
	n.Description = dto.Description
	if dto.Year != nil {
		year := *dto.Year
		n.Year = &year
	}
	n.ImageRef = dto.ImageURL
	n.Names = append([]string(nil), dto.Names...)
	n.Loading = dto.Loading
	n.ImageFetching = dto.ImageFetching
	n.ImageResolved = dto.ImageResolved
	return n, nil
}

// FromEntities builds a document from live entities, for example to persist
// what a session is showing.
func FromEntities(nodes []*entities.Node, links []*entities.Link) *Document {
	doc := &Document{
		Nodes: make([]NodeDTO, 0, len(nodes)),
		Links: make([]LinkDTO, 0, len(links)),
	}
	for _, n := range nodes {
		dto := NodeDTO{
			ID:            n.ID.String(),
			Type:          string(n.Category),
			Origin:        n.Origin,
			Title:         n.Title,
			Description:   n.Description,
			ImageURL:      n.ImageRef,
			Names:         append([]string(nil), n.Names...),
			Loading:       n.Loading,
			ImageFetching: n.ImageFetching,
			ImageResolved: n.ImageResolved,
		}
		if n.Year != nil {
			year := *n.Year
			dto.Year = &year
		}
		doc.Nodes = append(doc.Nodes, dto)
	}
	for _, l := range links {
		doc.Links = append(doc.Links, LinkDTO{
			ID:     string(l.ID),
			Source: l.SourceID.String(),
			Target: l.TargetID.String(),
			Label:  l.Label,
		})
	}
	return doc
}
