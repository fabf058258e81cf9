package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/techmatters/terraso-go/pkg/audit"
	"github.com/techmatters/terraso-go/pkg/collaboration"
	"github.com/techmatters/terraso-go/pkg/db"
	"github.com/techmatters/terraso-go/pkg/export"
	"github.com/techmatters/terraso-go/pkg/identity"
	"github.com/techmatters/terraso-go/pkg/logging"
	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/server/store"
	"github.com/techmatters/terraso-go/pkg/soil"
	"github.com/techmatters/terraso-go/pkg/soilid"
	"github.com/techmatters/terraso-go/pkg/validation"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	maxJSONBody     = 10 << 20
)

// apiError is the body of every error response, wrapped as {"error": ...}.
type apiError struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message,omitempty"`
	Model   string                  `json:"model,omitempty"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

func respondWithError(w http.ResponseWriter, code int, payload interface{}) {
	respondWithJSON(w, code, map[string]interface{}{"error": payload})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func notFound(w http.ResponseWriter, modelName string) {
	respondWithError(w, http.StatusNotFound, apiError{Code: "not_found", Model: modelName})
}

// notAllowed reports a failed permission check as <action>_not_allowed.
func notAllowed(w http.ResponseWriter, action, modelName string) {
	respondWithError(w, http.StatusForbidden, apiError{Code: action + "_not_allowed", Model: modelName})
}

func badRequest(w http.ResponseWriter, code, message string) {
	respondWithError(w, http.StatusBadRequest, apiError{Code: code, Message: message})
}

func invalidData(w http.ResponseWriter, modelName string, err error) {
	body := apiError{Code: "invalid_data", Model: modelName, Message: err.Error()}
	var ve *validation.RequestValidationError
	if errors.As(err, &ve) {
		body.Fields = ve.Fields
	}
	respondWithError(w, http.StatusBadRequest, body)
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	logging.Component("api").Error().Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("request failed")
	respondWithError(w, http.StatusInternalServerError, apiError{Code: "internal_error"})
}

// respondWithServiceError maps an error from a store or service to a
// response. action names the operation for permission errors.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, modelName, action string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, soil.ErrNotFound),
		errors.Is(err, export.ErrNotFound), errors.Is(err, collaboration.ErrMembershipNotFound):
		notFound(w, modelName)
	case errors.Is(err, soil.ErrNotAllowed), errors.Is(err, export.ErrNotAllowed):
		notAllowed(w, action, modelName)
	case errors.Is(err, collaboration.ErrCannotRequest):
		notAllowed(w, action, modelName)
	case errors.Is(err, export.ErrBadFormat):
		badRequest(w, "bad_format", err.Error())
	case errors.Is(err, soilid.ErrUnavailable):
		respondWithError(w, http.StatusServiceUnavailable, apiError{Code: "soil_id_unavailable", Message: err.Error()})
	case errors.Is(err, model.ErrEmptyName), errors.Is(err, model.ErrDisallowedName):
		invalidData(w, modelName, err)
	case db.IsIntegrityViolation(err), soil.IsInvalidData(err):
		invalidData(w, modelName, err)
	default:
		internalError(w, r, err)
	}
}

// decodeJSON reads the body into v and runs its validate tags.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return &validation.RequestValidationError{Fields: []validation.FieldError{{
			Field:   "body",
			Tag:     "json",
			Message: fmt.Sprintf("malformed request body: %v", err),
		}}}
	}
	return validation.Validate(v)
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)[name])
}

// listOptions reads limit, offset and search from the query string.
func listOptions(r *http.Request) store.ListOptions {
	q := r.URL.Query()
	opts := store.ListOptions{Limit: defaultPageSize, Search: q.Get("search")}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		opts.Limit = v
	}
	if opts.Limit > maxPageSize {
		opts.Limit = maxPageSize
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		opts.Offset = v
	}
	return opts
}

// clientTimestamp reads X-Client-Timestamp as RFC 3339 or unix milliseconds.
func clientTimestamp(r *http.Request) *time.Time {
	raw := r.Header.Get("X-Client-Timestamp")
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t := time.UnixMilli(ms)
		return &t
	}
	return nil
}

func clientIP(r *http.Request) string {
	if ip := identity.RemoteIP(r); ip != nil {
		return ip.String()
	}
	return ""
}

func logAudit(r *http.Request, event audit.ResourceEvent) {
	audit.Log(event.WithClient(clientIP(r), clientTimestamp(r)))
}

func auditResource(id uuid.UUID, kind, name string, value interface{}) audit.Resource {
	return audit.Resource{ID: id, Type: kind, Name: name, Value: value}
}

// allowed writes the error response for a failed or denied permission
// check and reports whether the handler may go on.
func allowed(w http.ResponseWriter, r *http.Request, ok bool, err error, action, modelName string) bool {
	if err != nil {
		internalError(w, r, err)
		return false
	}
	if !ok {
		notAllowed(w, action, modelName)
		return false
	}
	return true
}
