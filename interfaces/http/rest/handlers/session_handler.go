// Package handlers adapts HTTP requests onto the command and query buses.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"constellations/application/commands"
	"constellations/application/commands/bus"
	"constellations/application/ports"
	"constellations/application/queries"
	querybus "constellations/application/queries/bus"
	"constellations/application/session"
	"constellations/application/snapshot"
	"constellations/pkg/common"
	"constellations/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxRequestBytes = 1 << 20

// SessionHandler handles session-related HTTP requests
type SessionHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
	}
}

// CreateSessionRequest represents the request body for creating a session
type CreateSessionRequest struct {
	Mode     string  `json:"mode,omitempty"`
	Compact  bool    `json:"compact,omitempty"`
	TextOnly bool    `json:"text_only,omitempty"`
	Width    float64 `json:"width,omitempty" validate:"omitempty,gt=0"`
	Height   float64 `json:"height,omitempty" validate:"omitempty,gt=0"`
}

// UpdateOptionsRequest changes presentation flags; omitted fields are kept.
type UpdateOptionsRequest struct {
	Mode        *string  `json:"mode,omitempty"`
	Compact     *bool    `json:"compact,omitempty"`
	TextOnly    *bool    `json:"text_only,omitempty"`
	Width       *float64 `json:"width,omitempty"`
	Height      *float64 `json:"height,omitempty"`
	Selected    *string  `json:"selected,omitempty"`
	SearchEpoch *int64   `json:"search_epoch,omitempty"`
}

// HighlightRequest replaces the keep and drop sets.
type HighlightRequest struct {
	Keep []string `json:"keep"`
	Drop []string `json:"drop"`
}

// InteractionRequest is one pointer or keyboard event in screen coordinates.
type InteractionRequest struct {
	Kind   string  `json:"kind" validate:"required"`
	NodeID string  `json:"node_id,omitempty"`
	LinkID string  `json:"link_id,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	DX     float64 `json:"dx,omitempty"`
	DY     float64 `json:"dy,omitempty"`
	Factor float64 `json:"factor,omitempty"`
	Key    string  `json:"key,omitempty"`
}

// Command converts the request for session id.
func (r InteractionRequest) Command(sessionID string) commands.InteractCommand {
	return commands.InteractCommand{
		SessionID: sessionID,
		Kind:      r.Kind,
		NodeID:    r.NodeID,
		LinkID:    r.LinkID,
		X:         r.X,
		Y:         r.Y,
		DX:        r.DX,
		DY:        r.DY,
		Factor:    r.Factor,
		Key:       r.Key,
	}
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength != 0 {
		if err := common.ParseJSONBody(r, &req, maxRequestBytes); err != nil {
			common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
			return
		}
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.ValidationError, err.Error())
		return
	}

	sessionID := uuid.New().String()
	cmd := commands.CreateSessionCommand{
		SessionID: sessionID,
		Mode:      req.Mode,
		Compact:   req.Compact,
		TextOnly:  req.TextOnly,
		Width:     req.Width,
		Height:    req.Height,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, "Failed to create session", sessionID, err)
		return
	}

	w.Header().Set("Location", "/api/v1/sessions/"+sessionID)
	common.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":        sessionID,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	})
}

// ListSessions handles GET /sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListSessionsQuery{})
	if err != nil {
		h.fail(w, "Failed to list sessions", "", err)
		return
	}
	sessions, _ := result.([]session.Info)
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// CloseSession handles DELETE /sessions/{id}
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.commandBus.Send(r.Context(), commands.CloseSessionCommand{SessionID: id}); err != nil {
		h.fail(w, "Failed to close session", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReplaceSnapshot handles PUT /sessions/{id}/snapshot
func (h *SessionHandler) ReplaceSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// one byte of slack so Decode reports the oversize document itself
	r.Body = http.MaxBytesReader(w, r.Body, snapshot.MaxDocumentBytes+1)
	doc, err := snapshot.Decode(r.Body)
	if err != nil {
		h.fail(w, "Invalid snapshot", id, err)
		return
	}

	if err := h.commandBus.Send(r.Context(), commands.ReplaceSnapshotCommand{SessionID: id, Document: doc}); err != nil {
		h.fail(w, "Failed to replace snapshot", id, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"id":    id,
		"nodes": len(doc.Nodes),
		"links": len(doc.Links),
	})
}

// UpdateOptions handles PUT /sessions/{id}/options
func (h *SessionHandler) UpdateOptions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateOptionsRequest
	if err := common.ParseJSONBody(r, &req, maxRequestBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}

	cmd := commands.UpdateOptionsCommand{
		SessionID:   id,
		Mode:        req.Mode,
		Compact:     req.Compact,
		TextOnly:    req.TextOnly,
		Width:       req.Width,
		Height:      req.Height,
		Selected:    req.Selected,
		SearchEpoch: req.SearchEpoch,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, "Failed to update options", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetHighlight handles PUT /sessions/{id}/highlight
func (h *SessionHandler) SetHighlight(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req HighlightRequest
	if err := common.ParseJSONBody(r, &req, maxRequestBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}

	cmd := commands.SetHighlightCommand{SessionID: id, Keep: req.Keep, Drop: req.Drop}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, "Failed to set highlight", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CenterOnNode handles POST /sessions/{id}/center/{nodeID}
func (h *SessionHandler) CenterOnNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cmd := commands.CenterOnNodeCommand{SessionID: id, NodeID: chi.URLParam(r, "nodeID")}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, "Failed to center on node", id, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Interact handles POST /sessions/{id}/interactions
func (h *SessionHandler) Interact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req InteractionRequest
	if err := common.ParseJSONBody(r, &req, maxRequestBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.commandBus.Send(r.Context(), req.Command(id)); err != nil {
		h.fail(w, "Interaction rejected", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetFrame handles GET /sessions/{id}/frame
func (h *SessionHandler) GetFrame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := h.queryBus.Ask(r.Context(), queries.GetFrameQuery{SessionID: id})
	if err != nil {
		h.fail(w, "Failed to get frame", id, err)
		return
	}
	frame := result.(*ports.Frame)
	w.Header().Set("X-Frame-Seq", strconv.FormatUint(frame.Seq, 10))
	common.RespondJSON(w, http.StatusOK, frame)
}

// GetFrameSVG handles GET /sessions/{id}/frame.svg
func (h *SessionHandler) GetFrameSVG(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := h.queryBus.Ask(r.Context(), queries.RenderSVGQuery{SessionID: id})
	if err != nil {
		h.fail(w, "Failed to render frame", id, err)
		return
	}
	doc := result.(*queries.RenderedDocument)
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("X-Frame-Seq", strconv.FormatUint(doc.Seq, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}

func (h *SessionHandler) fail(w http.ResponseWriter, msg, sessionID string, err error) {
	h.logger.Warn(msg, zap.String("sessionID", sessionID), zap.Error(err))
	common.RespondAppError(w, err)
}
