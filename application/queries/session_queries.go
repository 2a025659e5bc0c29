// Package queries defines the read-only requests against diagram sessions.
package queries

import "constellations/pkg/utils"

// GetFrameQuery returns the latest frame of a session, painting one if the
// session has not painted yet.
type GetFrameQuery struct {
	SessionID string `validate:"required"`
}

func (q GetFrameQuery) Validate() error { return utils.ValidateStruct(q) }

// RenderSVGQuery renders the latest frame of a session as a standalone
// document.
type RenderSVGQuery struct {
	SessionID string `validate:"required"`
}

func (q RenderSVGQuery) Validate() error { return utils.ValidateStruct(q) }

// ListSessionsQuery lists live sessions, oldest first.
type ListSessionsQuery struct{}

func (q ListSessionsQuery) Validate() error { return nil }

// RenderedDocument is the result of RenderSVGQuery.
type RenderedDocument struct {
	ContentType string
	Body        []byte
	Seq         uint64
}
