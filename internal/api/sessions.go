package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/internal/session"
	"sjsage522/pricewatcher/pkg/errors"
)

// StartSessionRequest is the body of POST /api/sessions
type StartSessionRequest struct {
	ItemID string `json:"itemId"`
}

// SubmitResponse reports the result of applying a session.
type SubmitResponse struct {
	Message string               `json:"message"`
	Changes session.Patch        `json:"changes"`
	Item    *model.MonitoredItem `json:"item"`
}

// StartSession handles POST /api/sessions. The session is seeded with the
// item's current condition, foil and verified seller flags.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" {
		writeError(w, "itemId is required", http.StatusBadRequest)
		return
	}

	c := callerFrom(r)
	item, err := s.store.GetMonitoredItem(r.Context(), req.ItemID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if !c.canEdit(item.OwnerID) {
		s.writeFailure(w, r, errForbidden(item))
		return
	}

	sess, err := s.sessions.Start(*item, c.ownerID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// UpdateSession handles PATCH /api/sessions/{sessionID}
func (s *Server) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var patch session.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}

	sess, err := s.sessions.Update(sess.ID, patch)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// SubmitSession handles POST /api/sessions/{sessionID}/submit. Only the
// fields that differ from the stored item are written.
func (s *Server) SubmitSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	item, err := s.store.GetMonitoredItem(ctx, sess.ItemID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	changes := sess.Diff(*item)
	resp := SubmitResponse{Message: "No changes were made.", Changes: changes, Item: item}
	if !changes.Empty() {
		changes.Apply(item)
		if err := s.store.UpdateMonitoredItem(ctx, item); err != nil {
			s.writeFailure(w, r, err)
			return
		}
		resp.Message = "Item updated."
		s.logger.Info().Str("id", item.ID).Str("session", sess.ID).Msg("Monitored item updated from session")
	}

	if err := s.sessions.Delete(sess.ID); err != nil {
		s.logger.Warn().Err(err).Str("session", sess.ID).Msg("Failed to close session")
	}
	writeJSON(w, http.StatusOK, resp)
}

// CancelSession handles DELETE /api/sessions/{sessionID}
func (s *Server) CancelSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	if err := s.sessions.Delete(sess.ID); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sessionFor loads the session in the path and checks the caller opened it.
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeFailure(w, r, err)
		return nil, false
	}
	if !callerFrom(r).canEdit(sess.OwnerID) {
		s.writeFailure(w, r, errors.NewForbidden(component, "this edit session belongs to someone else"))
		return nil, false
	}
	return sess, true
}
