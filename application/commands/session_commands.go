// Package commands defines the requests that change a diagram session.
package commands

import (
	"constellations/application/snapshot"
	"constellations/pkg/utils"
)

// CreateSessionCommand opens a new diagram session. SessionID is chosen by
// the caller so the response can name it without a return value.
type CreateSessionCommand struct {
	SessionID string  `validate:"required,max=64"`
	Mode      string  `validate:"omitempty,oneof=freeform free-form chronological timeline"`
	Compact   bool
	TextOnly  bool
	Width     float64 `validate:"omitempty,gt=0,lte=20000"`
	Height    float64 `validate:"omitempty,gt=0,lte=20000"`
}

func (c CreateSessionCommand) Validate() error { return utils.ValidateStruct(c) }
func (c CreateSessionCommand) Session() string { return c.SessionID }

// CloseSessionCommand tears a session down.
type CloseSessionCommand struct {
	SessionID string `validate:"required"`
}

func (c CloseSessionCommand) Validate() error { return utils.ValidateStruct(c) }
func (c CloseSessionCommand) Session() string { return c.SessionID }

// ReplaceSnapshotCommand hands the session a new node and link set.
type ReplaceSnapshotCommand struct {
	SessionID string             `validate:"required"`
	Document  *snapshot.Document `validate:"required"`
}

func (c ReplaceSnapshotCommand) Validate() error { return utils.ValidateStruct(c) }
func (c ReplaceSnapshotCommand) Session() string { return c.SessionID }

// UpdateOptionsCommand changes shell-controlled flags. Nil fields are left
// alone.
type UpdateOptionsCommand struct {
	SessionID   string   `validate:"required"`
	Mode        *string  `validate:"omitempty,oneof=freeform free-form chronological timeline"`
	Compact     *bool
	TextOnly    *bool
	Width       *float64 `validate:"omitempty,gt=0,lte=20000"`
	Height      *float64 `validate:"omitempty,gt=0,lte=20000"`
	Selected    *string
	SearchEpoch *int64
}

func (c UpdateOptionsCommand) Validate() error { return utils.ValidateStruct(c) }
func (c UpdateOptionsCommand) Session() string { return c.SessionID }

// SetHighlightCommand replaces the keep and drop sets.
type SetHighlightCommand struct {
	SessionID string `validate:"required"`
	Keep      []string
	Drop      []string
}

func (c SetHighlightCommand) Validate() error { return utils.ValidateStruct(c) }
func (c SetHighlightCommand) Session() string { return c.SessionID }

// CenterOnNodeCommand animates the viewport onto a node.
type CenterOnNodeCommand struct {
	SessionID string `validate:"required"`
	NodeID    string `validate:"required"`
}

func (c CenterOnNodeCommand) Validate() error { return utils.ValidateStruct(c) }
func (c CenterOnNodeCommand) Session() string { return c.SessionID }

// Interaction kinds accepted by InteractCommand.
const (
	InteractDragStart       = "drag_start"
	InteractDragMove        = "drag_move"
	InteractDragEnd         = "drag_end"
	InteractClickNode       = "click_node"
	InteractClickLink       = "click_link"
	InteractClickBackground = "click_background"
	InteractHover           = "hover"
	InteractPan             = "pan"
	InteractZoom            = "zoom"
	InteractGestureEnd      = "gesture_end"
	InteractKeyPan          = "key_pan"
)

// InteractCommand forwards one pointer or keyboard event. X and Y are
// screen coordinates.
type InteractCommand struct {
	SessionID string  `validate:"required"`
	Kind      string  `validate:"required,oneof=drag_start drag_move drag_end click_node click_link click_background hover pan zoom gesture_end key_pan"`
	NodeID    string  `validate:"required_if=Kind drag_start,required_if=Kind click_node"`
	LinkID    string  `validate:"required_if=Kind click_link"`
	X         float64
	Y         float64
	DX        float64
	DY        float64
	Factor    float64 `validate:"required_if=Kind zoom,gte=0"`
	Key       string  `validate:"required_if=Kind key_pan"`
}

func (c InteractCommand) Validate() error { return utils.ValidateStruct(c) }
func (c InteractCommand) Session() string { return c.SessionID }

// ApplyMeasurementsCommand carries card heights measured by a remote scene.
type ApplyMeasurementsCommand struct {
	SessionID string             `validate:"required"`
	Heights   map[string]float64 `validate:"required,dive,keys,required,endkeys,gt=0"`
}

func (c ApplyMeasurementsCommand) Validate() error { return utils.ValidateStruct(c) }
func (c ApplyMeasurementsCommand) Session() string { return c.SessionID }
