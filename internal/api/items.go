package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/internal/store"
	"sjsage522/pricewatcher/pkg/errors"
)

const maxNameLength = 45

// CreateItemRequest is the body of POST /api/monitored-items. Threshold
// accepts a JSON number or a numeric string.
type CreateItemRequest struct {
	Name           string          `json:"name"`
	URL            string          `json:"url"`
	Threshold      json.RawMessage `json:"threshold"`
	Condition      model.Condition `json:"condition"`
	IsFoil         bool            `json:"isFoil"`
	SellerVerified bool            `json:"sellerVerified"`
	OwnerID        string          `json:"ownerId"`
	OwnerName      string          `json:"ownerName"`
}

// UpdateItemRequest is the body of PUT /api/monitored-items/{id}. Absent
// fields are left unchanged.
type UpdateItemRequest struct {
	Name           *string          `json:"name"`
	URL            *string          `json:"url"`
	Threshold      json.RawMessage  `json:"threshold"`
	Condition      *model.Condition `json:"condition"`
	IsFoil         *bool            `json:"isFoil"`
	SellerVerified *bool            `json:"sellerVerified"`
}

// OwnerRef is one entry of the users-to-notify response.
type OwnerRef struct {
	OwnerID string `json:"ownerId"`
}

// ListItems handles GET /api/monitored-items
func (s *Server) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListMonitoredItems(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetItem handles GET /api/monitored-items/{itemID}
func (s *Server) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.store.GetMonitoredItem(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// CreateItem handles POST /api/monitored-items. The url record is reused when
// another item already watches the same url.
func (s *Server) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.OwnerID == "" {
		req.OwnerID = callerFrom(r).ownerID
	}

	item, err := req.toItem()
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	ctx := r.Context()
	rec, err := store.FindOrCreateURL(ctx, s.store, req.URL)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	item.URLID = rec.ID

	if err := s.store.CreateMonitoredItem(ctx, item); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	s.logger.Info().
		Str("id", item.ID).
		Str("name", item.Name).
		Str("threshold", item.Threshold.String()).
		Str("owner", item.OwnerID).
		Msg("Monitored item created")

	writeJSON(w, http.StatusCreated, item)
}

// UpdateItem handles PUT /api/monitored-items/{itemID}
func (s *Server) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	item, err := s.store.GetMonitoredItem(ctx, chi.URLParam(r, "itemID"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if !callerFrom(r).canEdit(item.OwnerID) {
		s.writeFailure(w, r, errForbidden(item))
		return
	}

	if err := req.apply(item); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	if req.URL != nil && *req.URL != item.URL.URL {
		rec, err := store.FindOrCreateURL(ctx, s.store, *req.URL)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		item.URLID = rec.ID
	}

	if err := s.store.UpdateMonitoredItem(ctx, item); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/monitored-items/{itemID}
func (s *Server) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	item, err := s.store.GetMonitoredItem(ctx, chi.URLParam(r, "itemID"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if !callerFrom(r).canEdit(item.OwnerID) {
		s.writeFailure(w, r, errForbidden(item))
		return
	}

	if err := s.store.DeleteMonitoredItem(ctx, item.ID); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	s.logger.Info().Str("id", item.ID).Str("name", item.Name).Msg("Monitored item deleted")
	w.WriteHeader(http.StatusNoContent)
}

// UsersToNotify handles GET /api/monitored-items/users-to-notify/{urlID}
func (s *Server) UsersToNotify(w http.ResponseWriter, r *http.Request) {
	owners, err := s.store.ListOwnersForURL(r.Context(), chi.URLParam(r, "urlID"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(owners, func(id string, _ int) OwnerRef {
		return OwnerRef{OwnerID: id}
	}))
}

func (req CreateItemRequest) toItem() (*model.MonitoredItem, error) {
	threshold, err := parseThreshold(req.Threshold)
	if err != nil {
		return nil, err
	}

	item := &model.MonitoredItem{
		Name:           strings.TrimSpace(req.Name),
		Threshold:      threshold,
		Condition:      req.Condition,
		IsFoil:         req.IsFoil,
		SellerVerified: req.SellerVerified,
		OwnerID:        req.OwnerID,
		OwnerName:      req.OwnerName,
	}
	if err := validateItem(item, req.URL); err != nil {
		return nil, err
	}
	return item, nil
}

func (req UpdateItemRequest) apply(item *model.MonitoredItem) error {
	if req.Name != nil {
		item.Name = strings.TrimSpace(*req.Name)
	}
	if len(req.Threshold) > 0 {
		threshold, err := parseThreshold(req.Threshold)
		if err != nil {
			return err
		}
		item.Threshold = threshold
	}
	if req.Condition != nil {
		item.Condition = *req.Condition
	}
	if req.IsFoil != nil {
		item.IsFoil = *req.IsFoil
	}
	if req.SellerVerified != nil {
		item.SellerVerified = *req.SellerVerified
	}

	rawURL := item.URL.URL
	if req.URL != nil {
		rawURL = *req.URL
	}
	return validateItem(item, rawURL)
}

func validateItem(item *model.MonitoredItem, rawURL string) error {
	switch {
	case item.Name == "":
		return errors.NewValidation(component, "name is required")
	case utf8.RuneCountInString(item.Name) > maxNameLength:
		return errors.NewValidation(component, fmt.Sprintf("name cannot exceed %d characters", maxNameLength))
	case !item.Condition.Valid():
		return errors.NewValidation(component, fmt.Sprintf("unknown condition %q", item.Condition))
	case item.OwnerID == "":
		return errors.NewValidation(component, "ownerId is required")
	}
	return validateURL(rawURL)
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.NewValidation(component, "url must be an absolute http(s) url")
	}
	return nil
}

// parseThreshold accepts 12.5 or "12.5". Negative thresholds never alert and
// are rejected.
func parseThreshold(raw json.RawMessage) (decimal.Decimal, error) {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if text == "" || text == "null" {
		return decimal.Zero, errors.NewValidation(component, "threshold is required")
	}

	threshold, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, errors.NewValidation(component, "threshold must be numeric")
	}
	if threshold.IsNegative() {
		return decimal.Zero, errors.NewValidation(component, "threshold cannot be negative")
	}
	return threshold, nil
}

func errForbidden(item *model.MonitoredItem) error {
	return errors.NewForbidden(component, fmt.Sprintf("you can only change your own items (%s)", item.Name))
}
