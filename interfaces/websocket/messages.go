package websocket

import (
	"encoding/json"
	"time"

	"constellations/application/ports"
	"constellations/application/snapshot"
	"constellations/domain/core/entities"
)

// Outbound message types.
const (
	TypeFrame = "frame"
	TypeEvent = "event"
	TypeError = "error"
)

// Inbound message types.
const (
	TypeInteraction  = "interaction"
	TypeMeasurements = "measurements"
	TypeSnapshot     = "snapshot"
)

// Event kinds carried by TypeEvent messages.
const (
	EventNodeClick    = "node_click"
	EventLinkClick    = "link_click"
	EventVisibleNodes = "visible_nodes"
)

// Message is the envelope of every websocket message in both directions.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// EventData is the payload of an event message. Node is null when a click
// cleared the focus.
type EventData struct {
	Kind  string             `json:"kind"`
	Node  *snapshot.NodeDTO  `json:"node"`
	Link  *snapshot.LinkDTO  `json:"link,omitempty"`
	Nodes []snapshot.NodeDTO `json:"nodes,omitempty"`
}

// ErrorData is the payload of an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// InteractionData mirrors the REST interaction body.
type InteractionData struct {
	Kind   string  `json:"kind"`
	NodeID string  `json:"node_id,omitempty"`
	LinkID string  `json:"link_id,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	DX     float64 `json:"dx,omitempty"`
	DY     float64 `json:"dy,omitempty"`
	Factor float64 `json:"factor,omitempty"`
	Key    string  `json:"key,omitempty"`
}

// MeasurementsData carries card content heights keyed by node id.
type MeasurementsData struct {
	Heights map[string]float64 `json:"heights"`
}

func encode(messageType string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: messageType, Data: raw, Timestamp: time.Now().UnixMilli()})
}

func frameMessage(frame *ports.Frame) ([]byte, error) {
	return encode(TypeFrame, frame)
}

func nodeClickData(n *entities.Node) EventData {
	data := EventData{Kind: EventNodeClick}
	if n != nil {
		dto := snapshot.FromEntities([]*entities.Node{n}, nil).Nodes[0]
		data.Node = &dto
	}
	return data
}

func linkClickData(l *entities.Link) EventData {
	dto := snapshot.FromEntities(nil, []*entities.Link{l}).Links[0]
	return EventData{Kind: EventLinkClick, Link: &dto}
}

func visibleNodesData(nodes []*entities.Node) EventData {
	return EventData{Kind: EventVisibleNodes, Nodes: snapshot.FromEntities(nodes, nil).Nodes}
}
