package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// CreateURLRequest is the body of POST /api/urls
type CreateURLRequest struct {
	URL string `json:"url"`
}

// ImageURLRequest is the body of PUT /api/urls/{urlID}/image-url
type ImageURLRequest struct {
	ImageURL string `json:"imageUrl"`
}

// ListURLs handles GET /api/urls
func (s *Server) ListURLs(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.ListURLSummaries(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// GetURLByString handles GET /api/urls/by-string?url=
func (s *Server) GetURLByString(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeError(w, "url query parameter is required", http.StatusBadRequest)
		return
	}

	rec, err := s.store.GetURLByString(r.Context(), raw)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// CreateURL handles POST /api/urls. An existing url is a conflict.
func (s *Server) CreateURL(w http.ResponseWriter, r *http.Request) {
	var req CreateURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if err := validateURL(req.URL); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	rec, err := s.store.CreateURL(r.Context(), req.URL)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// SetImageURL handles PUT /api/urls/{urlID}/image-url
func (s *Server) SetImageURL(w http.ResponseWriter, r *http.Request) {
	var req ImageURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ImageURL == "" {
		writeError(w, "imageUrl is required and must be a string", http.StatusBadRequest)
		return
	}

	rec, err := s.store.SetURLImage(r.Context(), chi.URLParam(r, "urlID"), req.ImageURL)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// AcknowledgePriceChange handles PUT /api/urls/{urlID}/acknowledge-price-change.
// This is the only place the changed flag is cleared.
func (s *Server) AcknowledgePriceChange(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.SetHasPriceChanged(r.Context(), chi.URLParam(r, "urlID"), false)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
