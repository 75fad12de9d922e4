package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	"sjsage522/pricewatcher/pkg/errors"
)

const (
	component = "api"

	headerOwner = "X-Owner-Id"
	headerAdmin = "X-Admin"
)

// caller identifies who is making a request. Admins may edit any item.
type caller struct {
	ownerID string
	admin   bool
}

func callerFrom(r *http.Request) caller {
	return caller{
		ownerID: strings.TrimSpace(r.Header.Get(headerOwner)),
		admin:   strings.EqualFold(r.Header.Get(headerAdmin), "true"),
	}
}

func (c caller) canEdit(ownerID string) bool {
	return c.admin || (c.ownerID != "" && c.ownerID == ownerID)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeFailure maps a WatchError kind to its HTTP status. Anything else is
// logged and reported as an internal error.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeValidation:
		writeError(w, message(err), http.StatusBadRequest)
	case errors.ErrorTypeDuplicate:
		writeError(w, "This url is already monitored.", http.StatusConflict)
	case errors.ErrorTypeNotFound:
		writeError(w, message(err), http.StatusNotFound)
	case errors.ErrorTypeForbidden:
		writeError(w, message(err), http.StatusForbidden)
	default:
		s.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
		writeError(w, "internal server error", http.StatusInternalServerError)
	}
}

func message(err error) string {
	var we *errors.WatchError
	if stderrors.As(err, &we) {
		return we.Message
	}
	return err.Error()
}
