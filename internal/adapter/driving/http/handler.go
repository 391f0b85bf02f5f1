// Package httphandler serves the credential store over HTTP.
package httphandler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/teampanel/internal/domain/model"
	"github.com/ericfisherdev/teampanel/internal/domain/port/driven"
)

// maxBodyBytes caps the size of a POST /users body.
const maxBodyBytes = 1 << 20

// usersPath is the only path the service answers.
const usersPath = "/users"

// Handler is the HTTP driving adapter exposing the credential collection.
type Handler struct {
	store   driven.CredentialStore
	metrics *Metrics
	logger  *slog.Logger
}

// NewHandler creates a Handler. metrics may be nil.
func NewHandler(store driven.CredentialStore, metrics *Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with request ID, logging, metrics and recovery middleware. Only GET and
// POST on /users exist; everything else is a 404 with an empty body.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+usersPath, h.ListUsers)
	mux.HandleFunc("POST "+usersPath, h.ReplaceUsers)
	mux.HandleFunc("/", h.NotFound)

	// ServeMux redirects unclean paths such as //users; those are unknown
	// paths here and must not reach it.
	routed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != usersPath {
			h.NotFound(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})

	// Recovery innermost so panics are caught before metrics and logging.
	wrapped := recoveryMiddleware(logger, routed)
	wrapped = metricsMiddleware(h.metrics, wrapped)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// ListUsers returns the stored collection as a JSON array. The response
// carries an ETag so clients can revalidate with If-None-Match, which accepts
// a tag list, weak tags and "*".
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	// The GET pattern also matches HEAD, which is not part of the API.
	if r.Method != http.MethodGet {
		h.NotFound(w, r)
		return
	}

	start := time.Now()
	creds, err := h.store.FetchAll(r.Context())
	h.metrics.observeStore("fetch_all", start, err)
	if err != nil {
		h.logger.Error("failed to fetch credentials", "error", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if creds == nil {
		creds = []model.Credential{}
	}

	data, err := json.Marshal(creds)
	if err != nil {
		h.logger.Error("failed to encode credentials", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	etag := documentETag(data)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	writeRawJSON(w, http.StatusOK, data)
}

// ReplaceUsers overwrites the stored collection with the JSON array in the
// request body.
func (h *Handler) ReplaceUsers(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var creds []model.Credential
	if err := decodeSingleJSON(r.Body, &creds); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if creds == nil {
		writeError(w, http.StatusBadRequest, "invalid request body: expected a JSON array")
		return
	}

	if err := model.Credentials(creds).Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid credentials collection: "+err.Error())
		return
	}

	start := time.Now()
	err := h.store.ReplaceAll(r.Context(), creds)
	h.metrics.observeStore("replace_all", start, err)
	if err != nil {
		h.logger.Error("failed to replace credentials", "count", len(creds), "error", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("credentials replaced", "count", len(creds), "request_id", RequestID(r.Context()))
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// NotFound answers every unknown method or path with 404 and no body.
func (h *Handler) NotFound(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNotFound)
}

// decodeSingleJSON decodes exactly one JSON value from r into v. Anything
// but whitespace after that value is an error.
func decodeSingleJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(v); err != nil {
		return err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return err
		}
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

// etagMatches reports whether an If-None-Match header matches etag, using
// the weak comparison RFC 9110 prescribes for GET.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

// documentETag returns a strong ETag for an encoded collection.
func documentETag(data []byte) string {
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}
